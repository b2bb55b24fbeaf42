package models

import "time"

// Candle представляет одну OHLCV свечу фиксированной гранулярности.
// Последовательность свечей всегда хронологическая и неизменяемая после загрузки.
type Candle struct {
	OpenTime time.Time `json:"open_time"`
	Open     float64   `json:"open"`
	High     float64   `json:"high"`
	Low      float64   `json:"low"`
	Close    float64   `json:"close"`
	Volume   float64   `json:"volume"`
}

// TickerSnapshot представляет 24-часовой срез по одному символу.
// Набор снапшотов обновляется целиком за один цикл кэша.
type TickerSnapshot struct {
	Symbol         string  `json:"symbol"`
	LastPrice      float64 `json:"last_price"`
	QuoteVolume24h float64 `json:"quote_volume_24h"`
}

// Balance представляет остаток по одному активу на аккаунте
type Balance struct {
	Asset string  `json:"asset"`
	Free  float64 `json:"free"`
}

// Signal - расчётный сигнал по символу.
// Пересчитывается при каждом сканировании и никогда не персистится,
// в БД попадает только решение, которое из него следует.
type Signal struct {
	Symbol        string  `json:"symbol"`
	RSI           float64 `json:"rsi"`
	VolatilityPct float64 `json:"volatility_pct"`
	TrendScore    float64 `json:"trend_score"`
	LastClose     float64 `json:"last_close"`
}
