package trader

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"autotrader/internal/models"
)

// ============================================================
// MarketDataProvider Tests
// ============================================================

func TestProviderTickers_Cached(t *testing.T) {
	ex := newFakeExchange()
	ex.tickers = []models.TickerSnapshot{{Symbol: "BTCUSDT", LastPrice: 50000}}

	provider := newTestProvider(ex, &fakeJournal{})

	for i := 0; i < 5; i++ {
		tickers, err := provider.Tickers(context.Background())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(tickers) != 1 {
			t.Fatalf("expected 1 ticker, got %d", len(tickers))
		}
	}

	// TTL 60s: все пять обращений из кэша
	if ex.tickerCalls != 1 {
		t.Errorf("expected 1 upstream call, got %d", ex.tickerCalls)
	}
}

func TestProviderTickers_CacheMetricLabels(t *testing.T) {
	ex := newFakeExchange()
	ex.tickers = []models.TickerSnapshot{{Symbol: "BTCUSDT", LastPrice: 50000}}

	provider := newTestProvider(ex, &fakeJournal{})

	// Счётчики глобальные, сравниваем дельты
	refreshBefore := testutil.ToFloat64(CacheRequests.WithLabelValues("tickers", "refresh"))
	hitBefore := testutil.ToFloat64(CacheRequests.WithLabelValues("tickers", "hit"))

	for i := 0; i < 3; i++ {
		if _, err := provider.Tickers(context.Background()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	refreshDelta := testutil.ToFloat64(CacheRequests.WithLabelValues("tickers", "refresh")) - refreshBefore
	hitDelta := testutil.ToFloat64(CacheRequests.WithLabelValues("tickers", "hit")) - hitBefore

	// Холодный кэш даёт один refresh, повторные чтения в пределах TTL - hit
	if refreshDelta != 1 {
		t.Errorf("refresh counter delta = %v, want 1", refreshDelta)
	}
	if hitDelta != 2 {
		t.Errorf("hit counter delta = %v, want 2", hitDelta)
	}
}

func TestProviderAccountEquity_PartialFailure(t *testing.T) {
	ex := newFakeExchange()
	ex.balances = []models.Balance{
		{Asset: "USDT", Free: 1000},
		{Asset: "BTC", Free: 0.1},
		{Asset: "DOGE", Free: 500},
	}
	ex.prices["BTCUSDT"] = 50000
	ex.pricesErr["DOGEUSDT"] = errors.New("symbol not found")

	provider := newTestProvider(ex, &fakeJournal{})

	equity := provider.AccountEquity(context.Background())

	// DOGE без цены даёт ноль, остальное суммируется: 1000 + 0.1*50000
	want := 1000 + 0.1*50000
	if math.Abs(equity-want) > 1e-9 {
		t.Errorf("expected equity %v, got %v", want, equity)
	}
}

func TestProviderAccountEquity_BalanceListFailure(t *testing.T) {
	ex := newFakeExchange()
	ex.balancesErr = errors.New("exchange maintenance")

	journal := &fakeJournal{}
	provider := newTestProvider(ex, journal)

	equity := provider.AccountEquity(context.Background())

	if equity != 0 {
		t.Errorf("expected zero equity on balance list failure, got %v", equity)
	}
	if journal.alertCount() != 1 {
		t.Errorf("balance list failure must produce an alert, got %d", journal.alertCount())
	}
}

func TestProviderOHLCV_NotCached(t *testing.T) {
	ex := newFakeExchange()
	ex.candles["BTCUSDT"] = risingCandles(30, 100, 1)

	provider := newTestProvider(ex, &fakeJournal{})

	for i := 0; i < 3; i++ {
		if _, err := provider.OHLCV(context.Background(), "BTCUSDT", "15m", 30); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	// Свечи не кэшируются - каждый вызов идёт к бирже
	if ex.candleCalls["BTCUSDT"] != 3 {
		t.Errorf("expected 3 upstream calls, got %d", ex.candleCalls["BTCUSDT"])
	}
}

func TestProviderInvalidateEquity(t *testing.T) {
	ex := newFakeExchange()
	ex.balances = []models.Balance{{Asset: "USDT", Free: 1000}}

	provider := newTestProvider(ex, &fakeJournal{})

	if got := provider.AccountEquity(context.Background()); got != 1000 {
		t.Fatalf("expected 1000, got %v", got)
	}

	ex.mu.Lock()
	ex.balances = []models.Balance{{Asset: "USDT", Free: 900}}
	ex.mu.Unlock()

	// Без сброса кэша вернулось бы старое значение
	provider.InvalidateEquity()

	if got := provider.AccountEquity(context.Background()); got != 900 {
		t.Errorf("expected fresh value 900 after invalidation, got %v", got)
	}
}
