package models

import "time"

// EquitySample - точка временного ряда капитала аккаунта в USDT.
// Инвариант: timestamp монотонно возрастает при вставке.
type EquitySample struct {
	ID        int       `json:"id" db:"id"`
	Timestamp time.Time `json:"timestamp" db:"timestamp"`
	Equity    float64   `json:"equity" db:"equity"`
}

// AlertEvent - запись журнала алертов
type AlertEvent struct {
	ID        int       `json:"id" db:"id"`
	Timestamp time.Time `json:"timestamp" db:"timestamp"`
	Message   string    `json:"message" db:"message"`
}

// Причины отмены ордера (закрытый набор)
const (
	ReasonHighVolatility = "high_volatility"
	ReasonStaleOrder     = "stale_order"
)

// SafetyEvent - запись журнала безопасности об отменённом ордере
type SafetyEvent struct {
	ID         int       `json:"id" db:"id"`
	Timestamp  time.Time `json:"timestamp" db:"timestamp"`
	Symbol     string    `json:"symbol" db:"symbol"`
	Reason     string    `json:"reason" db:"reason"` // high_volatility или stale_order
	Volatility float64   `json:"volatility" db:"volatility"`
	AgeMinutes float64   `json:"age_minutes" db:"age_minutes"`
}
