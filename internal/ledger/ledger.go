package ledger

import (
	"autotrader/internal/models"
	"autotrader/pkg/utils"
)

// TradeStore - запись сделок в журнал
type TradeStore interface {
	Create(trade *models.TradeRecord) error
}

// EquityStore - запись сэмплов капитала
type EquityStore interface {
	Create(sample *models.EquitySample) error
}

// AlertStore - запись алертов
type AlertStore interface {
	Create(alert *models.AlertEvent) error
}

// SafetyStore - запись событий отмены
type SafetyStore interface {
	Create(event *models.SafetyEvent) error
}

// Broadcaster рассылает события журнала подключенным клиентам дашборда
type Broadcaster interface {
	BroadcastTrade(trade *models.TradeRecord)
	BroadcastEquity(sample *models.EquitySample)
	BroadcastAlert(alert *models.AlertEvent)
	BroadcastSafety(event *models.SafetyEvent)
}

// Ledger - единая точка записи в append-only журнал.
//
// Ошибки БД логируются, но НЕ возвращаются торговым циклам:
// недоступность журнала не должна останавливать торговлю.
// Каждая успешная запись дублируется в WebSocket hub.
type Ledger struct {
	trades TradeStore
	equity EquityStore
	alerts AlertStore
	safety SafetyStore

	hub Broadcaster
	log *utils.Logger
}

// New создает журнал поверх репозиториев.
// hub может быть nil - тогда рассылка отключена.
func New(trades TradeStore, equity EquityStore, alerts AlertStore, safety SafetyStore, hub Broadcaster, log *utils.Logger) *Ledger {
	return &Ledger{
		trades: trades,
		equity: equity,
		alerts: alerts,
		safety: safety,
		hub:    hub,
		log:    log.WithComponent("ledger"),
	}
}

// RecordTrade записывает размещённую сделку
func (l *Ledger) RecordTrade(trade *models.TradeRecord) {
	if err := l.trades.Create(trade); err != nil {
		l.log.Error("failed to record trade",
			utils.Symbol(trade.Symbol),
			utils.Side(trade.Side),
			utils.Err(err))
		return
	}

	l.log.Info("trade recorded",
		utils.Symbol(trade.Symbol),
		utils.Side(trade.Side),
		utils.Quantity(trade.Quantity),
		utils.Price(trade.Entry))

	if l.hub != nil {
		l.hub.BroadcastTrade(trade)
	}
}

// RecordEquity записывает сэмпл капитала
func (l *Ledger) RecordEquity(sample *models.EquitySample) {
	if err := l.equity.Create(sample); err != nil {
		l.log.Error("failed to record equity sample",
			utils.Equity(sample.Equity),
			utils.Err(err))
		return
	}

	if l.hub != nil {
		l.hub.BroadcastEquity(sample)
	}
}

// RecordAlert записывает алерт
func (l *Ledger) RecordAlert(alert *models.AlertEvent) {
	if err := l.alerts.Create(alert); err != nil {
		l.log.Error("failed to record alert", utils.Err(err))
		return
	}

	l.log.Warn("alert recorded", utils.String("message", alert.Message))

	if l.hub != nil {
		l.hub.BroadcastAlert(alert)
	}
}

// RecordSafety записывает событие отмены ордера
func (l *Ledger) RecordSafety(event *models.SafetyEvent) {
	if err := l.safety.Create(event); err != nil {
		l.log.Error("failed to record safety event",
			utils.Symbol(event.Symbol),
			utils.Reason(event.Reason),
			utils.Err(err))
		return
	}

	l.log.Warn("order cancelled by risk control",
		utils.Symbol(event.Symbol),
		utils.Reason(event.Reason),
		utils.Volatility(event.Volatility),
		utils.Float64("age_minutes", event.AgeMinutes))

	if l.hub != nil {
		l.hub.BroadcastSafety(event)
	}
}
