package trader

import (
	"context"
	"sync"
	"time"

	"autotrader/internal/models"
	"autotrader/pkg/utils"
)

// ============================================================
// Тестовые фейки биржи и журнала
// ============================================================

// fakeExchange - управляемая реализация exchange.Exchange
type fakeExchange struct {
	mu sync.Mutex

	tickers    []models.TickerSnapshot
	tickersErr error

	candles    map[string][]models.Candle
	candlesErr map[string]error

	balances    []models.Balance
	balancesErr error

	prices    map[string]float64
	pricesErr map[string]error

	openOrders    []models.OpenOrder
	openOrdersErr error

	submitID  string
	submitErr error

	cancelErr map[string]error

	// счётчики вызовов
	tickerCalls int
	candleCalls map[string]int
	submitCalls []string
	cancelled   []string
}

func newFakeExchange() *fakeExchange {
	return &fakeExchange{
		candles:     make(map[string][]models.Candle),
		candlesErr:  make(map[string]error),
		prices:      make(map[string]float64),
		pricesErr:   make(map[string]error),
		cancelErr:   make(map[string]error),
		candleCalls: make(map[string]int),
		submitID:    "test-order-1",
	}
}

func (f *fakeExchange) Get24hTickers(ctx context.Context) ([]models.TickerSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tickerCalls++
	if f.tickersErr != nil {
		return nil, f.tickersErr
	}
	return f.tickers, nil
}

func (f *fakeExchange) GetCandles(ctx context.Context, symbol, interval string, limit int) ([]models.Candle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.candleCalls[symbol]++
	if err := f.candlesErr[symbol]; err != nil {
		return nil, err
	}
	return f.candles[symbol], nil
}

func (f *fakeExchange) GetBalances(ctx context.Context) ([]models.Balance, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.balancesErr != nil {
		return nil, f.balancesErr
	}
	return f.balances, nil
}

func (f *fakeExchange) GetSymbolPrice(ctx context.Context, symbol string) (float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.pricesErr[symbol]; err != nil {
		return 0, err
	}
	return f.prices[symbol], nil
}

func (f *fakeExchange) GetOpenOrders(ctx context.Context) ([]models.OpenOrder, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.openOrdersErr != nil {
		return nil, f.openOrdersErr
	}
	return f.openOrders, nil
}

func (f *fakeExchange) SubmitOrder(ctx context.Context, symbol, side string, qty float64) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submitCalls = append(f.submitCalls, symbol)
	if f.submitErr != nil {
		return "", f.submitErr
	}
	return f.submitID, nil
}

func (f *fakeExchange) CancelOrder(ctx context.Context, symbol, orderID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.cancelErr[orderID]; err != nil {
		return err
	}
	f.cancelled = append(f.cancelled, orderID)
	return nil
}

// fakeJournal собирает записи журнала в память
type fakeJournal struct {
	mu     sync.Mutex
	trades []*models.TradeRecord
	equity []*models.EquitySample
	alerts []*models.AlertEvent
	safety []*models.SafetyEvent
}

func (j *fakeJournal) RecordTrade(t *models.TradeRecord) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.trades = append(j.trades, t)
}

func (j *fakeJournal) RecordEquity(s *models.EquitySample) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.equity = append(j.equity, s)
}

func (j *fakeJournal) RecordAlert(a *models.AlertEvent) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.alerts = append(j.alerts, a)
}

func (j *fakeJournal) RecordSafety(e *models.SafetyEvent) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.safety = append(j.safety, e)
}

func (j *fakeJournal) alertCount() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return len(j.alerts)
}

func (j *fakeJournal) safetyCount() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return len(j.safety)
}

// ============================================================
// Общие хелперы
// ============================================================

func testLogger() *utils.Logger {
	return utils.InitLogger(utils.LogConfig{Level: "error", Format: "text"})
}

// risingCandles строит монотонно растущую серию цен закрытия
func risingCandles(n int, start, step float64) []models.Candle {
	candles := make([]models.Candle, n)
	t := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := range candles {
		price := start + float64(i)*step
		candles[i] = models.Candle{
			OpenTime: t.Add(time.Duration(i) * 15 * time.Minute),
			Open:     price,
			High:     price + step/2,
			Low:      price - step/2,
			Close:    price,
			Volume:   100,
		}
	}
	return candles
}

// fallingCandles строит монотонно падающую серию
func fallingCandles(n int, start, step float64) []models.Candle {
	candles := make([]models.Candle, n)
	t := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := range candles {
		price := start - float64(i)*step
		candles[i] = models.Candle{
			OpenTime: t.Add(time.Duration(i) * 15 * time.Minute),
			Open:     price,
			High:     price + step/2,
			Low:      price - step/2,
			Close:    price,
			Volume:   100,
		}
	}
	return candles
}

func newTestProvider(ex *fakeExchange, journal *fakeJournal) *MarketDataProvider {
	return NewMarketDataProvider(ex, 60*time.Second, 30*time.Second, 5*time.Second, journal, testLogger())
}

func newTestRisk(ex *fakeExchange, provider *MarketDataProvider, journal *fakeJournal) *RiskManager {
	return NewRiskManager(ex, provider, journal, RiskConfig{
		FixedFraction:     0.05,
		MaxDrawdownPerDay: 0.05,
		CandleInterval:    "15m",
		CandleLimit:       96,
		RequestTimeout:    5 * time.Second,
	}, testLogger())
}
