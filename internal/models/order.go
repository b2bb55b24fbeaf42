package models

import "time"

// Стороны ордера
const (
	SideBuy  = "BUY"
	SideSell = "SELL"
)

// Методы расчёта размера позиции
const (
	SizingFixed = "fixed" // фиксированная доля капитала
	SizingKelly = "kelly" // доля по критерию Келли с ограничением сверху
)

// OrderIntent - намерение разместить ордер.
// Создаётся риск-менеджером, живёт до передачи бирже или отбрасывается.
type OrderIntent struct {
	Symbol       string  `json:"symbol"`
	Side         string  `json:"side"` // BUY или SELL
	Quantity     float64 `json:"quantity"`
	Entry        float64 `json:"entry"`
	StopLoss     float64 `json:"stop_loss"`
	TakeProfit   float64 `json:"take_profit"`
	SizingMethod string  `json:"sizing_method"`
}

// TradeRecord - запись о размещённом ордере в журнале сделок.
// Append-only: после вставки не изменяется.
type TradeRecord struct {
	ID           int       `json:"id" db:"id"`
	Timestamp    time.Time `json:"timestamp" db:"timestamp"`
	Symbol       string    `json:"symbol" db:"symbol"`
	Side         string    `json:"side" db:"side"`
	Quantity     float64   `json:"qty" db:"qty"`
	Entry        float64   `json:"entry" db:"entry"`
	StopLoss     float64   `json:"sl" db:"sl"`
	TakeProfit   float64   `json:"tp" db:"tp"`
	SizingMethod string    `json:"method" db:"method"`
}

// OpenOrder - открытый ордер на бирже (как его отдаёт биржа)
type OpenOrder struct {
	ID        string    `json:"id"`
	Symbol    string    `json:"symbol"`
	Side      string    `json:"side"`
	Quantity  float64   `json:"quantity"`
	Price     float64   `json:"price"`
	CreatedAt time.Time `json:"created_at"`
}

// AgeMinutes возвращает возраст ордера в минутах на момент now
func (o *OpenOrder) AgeMinutes(now time.Time) float64 {
	return now.Sub(o.CreatedAt).Minutes()
}
