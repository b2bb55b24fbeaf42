package trader

import (
	"context"
	"fmt"
	"time"

	"autotrader/internal/exchange"
	"autotrader/internal/models"
	"autotrader/pkg/utils"
)

// Journal - запись исходов в append-only журнал (реализуется ledger)
type Journal interface {
	RecordTrade(trade *models.TradeRecord)
	RecordEquity(sample *models.EquitySample)
	RecordAlert(alert *models.AlertEvent)
	RecordSafety(event *models.SafetyEvent)
}

// RiskConfig - параметры аллокации капитала
type RiskConfig struct {
	FixedFraction     float64 // доля капитала при методе "fixed"
	MaxDrawdownPerDay float64 // верхняя граница доли Келли
	CandleInterval    string
	CandleLimit       int
	RequestTimeout    time.Duration
}

// RiskManager превращает сигнал и капитал в размер ордера
// и отменяет открытые ордера, ставшие рискованными.
type RiskManager struct {
	ex       exchange.Exchange
	provider *MarketDataProvider
	journal  Journal
	cfg      RiskConfig
	log      *utils.Logger

	now func() time.Time
}

// NewRiskManager создает риск-менеджер
func NewRiskManager(ex exchange.Exchange, provider *MarketDataProvider, journal Journal, cfg RiskConfig, log *utils.Logger) *RiskManager {
	return &RiskManager{
		ex:       ex,
		provider: provider,
		journal:  journal,
		cfg:      cfg,
		log:      log.WithComponent("risk_manager"),
		now:      time.Now,
	}
}

// SizeOrder считает размер позиции.
//
// "fixed": equity * FixedFraction / entry.
// "kelly": f* = winRate - (1-winRate)/winLossRatio, обрезается
// в [0, MaxDrawdownPerDay], затем equity * f* / entry.
func (r *RiskManager) SizeOrder(method string, equity, entry, winRate, winLossRatio float64) (float64, error) {
	if entry <= 0 {
		return 0, ErrNonPositiveEntry
	}

	switch method {
	case models.SizingFixed:
		return equity * r.cfg.FixedFraction / entry, nil

	case models.SizingKelly:
		if winLossRatio <= 0 {
			return 0, fmt.Errorf("%w: win/loss ratio must be positive", ErrInvalidMethod)
		}
		kelly := winRate - (1-winRate)/winLossRatio
		fraction := utils.Clamp(kelly, 0, r.cfg.MaxDrawdownPerDay)
		return equity * fraction / entry, nil

	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidMethod, method)
	}
}

// PlaceOrderWithRisk размещает ордер под риск-бюджетом.
//
// Капитал берётся из кэша провайдера, количество считается SizeOrder,
// SL/TP выводятся из slPct/tpPct вокруг entry с учётом направления.
// Отклонение биржей НЕ ретраится: алерт в журнал и recoverable ошибка.
func (r *RiskManager) PlaceOrderWithRisk(ctx context.Context, symbol, side string, entry float64, method string, winRate, winLossRatio, slPct, tpPct float64) (*models.TradeRecord, error) {
	if side != models.SideBuy && side != models.SideSell {
		return nil, fmt.Errorf("%w: side %q", ErrInvalidMethod, side)
	}

	equity := r.provider.AccountEquity(ctx)

	qty, err := r.SizeOrder(method, equity, entry, winRate, winLossRatio)
	if err != nil {
		return nil, err
	}
	if qty <= 0 {
		return nil, fmt.Errorf("computed quantity is zero for %s (equity %.2f)", symbol, equity)
	}

	// SL/TP с учётом направления позиции
	var sl, tp float64
	if side == models.SideBuy {
		sl = entry * (1 - slPct/100)
		tp = entry * (1 + tpPct/100)
	} else {
		sl = entry * (1 + slPct/100)
		tp = entry * (1 - tpPct/100)
	}

	submitCtx, cancel := context.WithTimeout(ctx, r.cfg.RequestTimeout)
	orderID, err := r.ex.SubmitOrder(submitCtx, symbol, side, qty)
	cancel()
	if err != nil {
		UpstreamErrors.WithLabelValues("submit").Inc()
		if exchange.IsRejected(err) {
			OrdersRejected.WithLabelValues(symbol).Inc()
			r.journal.RecordAlert(&models.AlertEvent{
				Timestamp: r.now(),
				Message:   fmt.Sprintf("🚫 Ордер %s %s отклонён биржей: %v", side, symbol, err),
			})
		}
		return nil, fmt.Errorf("submit order %s %s: %w", side, symbol, err)
	}

	trade := &models.TradeRecord{
		Timestamp:    r.now(),
		Symbol:       symbol,
		Side:         side,
		Quantity:     qty,
		Entry:        entry,
		StopLoss:     sl,
		TakeProfit:   tp,
		SizingMethod: method,
	}
	r.journal.RecordTrade(trade)

	OrdersPlaced.WithLabelValues(symbol, side, method).Inc()
	r.log.Info("order placed",
		utils.Symbol(symbol),
		utils.Side(side),
		utils.OrderID(orderID),
		utils.Quantity(qty),
		utils.Price(entry))

	// Баланс изменился, кэш капитала устарел
	r.provider.InvalidateEquity()

	return trade, nil
}

// CleanupRiskyOrders отменяет открытые ордера, ставшие рискованными.
//
// Ордера группируются по символу, волатильность считается ОДИН раз
// на группу. Ордер отменяется если волатильность символа выше
// thresholdVol (причина high_volatility, проверяется первой) или
// возраст превышает maxAge (stale_order). Ошибка отмены одного
// ордера логируется, обработка остальных продолжается.
func (r *RiskManager) CleanupRiskyOrders(ctx context.Context, thresholdVol float64, maxAge time.Duration) error {
	fetchCtx, cancel := context.WithTimeout(ctx, r.cfg.RequestTimeout)
	orders, err := r.ex.GetOpenOrders(fetchCtx)
	cancel()
	if err != nil {
		UpstreamErrors.WithLabelValues("open_orders").Inc()
		return fmt.Errorf("fetch open orders: %w", err)
	}

	OpenOrdersCount.Set(float64(len(orders)))
	if len(orders) == 0 {
		return nil
	}

	// Группировка по символу: один запрос свечей на группу
	groups := make(map[string][]models.OpenOrder)
	for _, o := range orders {
		groups[o.Symbol] = append(groups[o.Symbol], o)
	}

	maxAgeMinutes := maxAge.Minutes()
	now := r.now()

	for symbol, group := range groups {
		vol := r.symbolVolatility(ctx, symbol)

		for _, order := range group {
			age := order.AgeMinutes(now)

			var reason string
			switch {
			case vol > thresholdVol:
				reason = models.ReasonHighVolatility
			case age > maxAgeMinutes:
				reason = models.ReasonStaleOrder
			default:
				continue
			}

			cancelCtx, cancelFn := context.WithTimeout(ctx, r.cfg.RequestTimeout)
			err := r.ex.CancelOrder(cancelCtx, symbol, order.ID)
			cancelFn()
			if err != nil {
				UpstreamErrors.WithLabelValues("cancel").Inc()
				r.log.Error("failed to cancel risky order",
					utils.Symbol(symbol),
					utils.OrderID(order.ID),
					utils.Reason(reason),
					utils.Err(err))
				continue
			}

			OrdersCancelled.WithLabelValues(symbol, reason).Inc()

			r.journal.RecordAlert(&models.AlertEvent{
				Timestamp: r.now(),
				Message: fmt.Sprintf("⛔ Ордер %s на %s отменён: %s (волатильность %.2f%%, возраст %.0f мин)",
					order.ID, symbol, reason, vol, age),
			})
			r.journal.RecordSafety(&models.SafetyEvent{
				Timestamp:  r.now(),
				Symbol:     symbol,
				Reason:     reason,
				Volatility: vol,
				AgeMinutes: age,
			})
		}
	}

	return nil
}

// symbolVolatility считает текущую волатильность символа.
// Ошибка получения свечей даёт 0: правило возраста всё ещё применимо.
func (r *RiskManager) symbolVolatility(ctx context.Context, symbol string) float64 {
	candles, err := r.provider.OHLCV(ctx, symbol, r.cfg.CandleInterval, r.cfg.CandleLimit)
	if err != nil {
		r.log.Warn("volatility unavailable, treating as zero",
			utils.Symbol(symbol),
			utils.Err(err))
		return 0
	}

	vol, err := ComputeVolatility(candles)
	if err != nil {
		return 0
	}
	return vol
}
