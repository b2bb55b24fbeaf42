// Package exchange предоставляет унифицированный интерфейс для работы с биржей.
package exchange

import (
	"context"
	"errors"

	"autotrader/internal/models"
)

// Exchange определяет унифицированный интерфейс биржевого коннектора.
// Все методы ограничены контекстом: вызов либо завершается, либо
// возвращает ошибку по таймауту - зависаний не допускается.
type Exchange interface {
	// Get24hTickers возвращает 24-часовые снапшоты по всем отслеживаемым символам
	Get24hTickers(ctx context.Context) ([]models.TickerSnapshot, error)

	// GetCandles возвращает хронологическую последовательность OHLCV свечей
	GetCandles(ctx context.Context, symbol, interval string, limit int) ([]models.Candle, error)

	// GetBalances возвращает ненулевые остатки по активам аккаунта
	GetBalances(ctx context.Context) ([]models.Balance, error)

	// GetSymbolPrice возвращает текущую спотовую цену символа
	GetSymbolPrice(ctx context.Context, symbol string) (float64, error)

	// GetOpenOrders возвращает все открытые ордера аккаунта
	GetOpenOrders(ctx context.Context) ([]models.OpenOrder, error)

	// SubmitOrder отправляет рыночный ордер на биржу
	SubmitOrder(ctx context.Context, symbol, side string, qty float64) (string, error)

	// CancelOrder отменяет открытый ордер
	CancelOrder(ctx context.Context, symbol, orderID string) error
}

// Коды ошибок биржи
const (
	CodeUnavailable = "unavailable" // сеть/5xx - transient
	CodeRateLimited = "rate_limited"
	CodeRejected    = "rejected" // биржа отклонила ордер
	CodeAuth        = "auth"     // неверные ключи - fatal
	CodeBadRequest  = "bad_request"
)

// ExchangeError представляет ошибку от биржи с разделением
// transient/fatal, которое обязано учитывать ядро:
// transient - логируем и ждём следующего тика, fatal - наверх.
type ExchangeError struct {
	Code     string
	Message  string
	Original error
}

func (e *ExchangeError) Error() string {
	return "exchange: " + e.Code + ": " + e.Message
}

// Unwrap возвращает оригинальную ошибку для поддержки errors.Is() и errors.As()
func (e *ExchangeError) Unwrap() error {
	return e.Original
}

// Retryable сообщает, имеет ли смысл повторять операцию позже
func (e *ExchangeError) Retryable() bool {
	switch e.Code {
	case CodeUnavailable, CodeRateLimited:
		return true
	default:
		return false
	}
}

// IsRejected возвращает true, если ошибка - отклонение ордера биржей
func IsRejected(err error) bool {
	var ee *ExchangeError
	if errors.As(err, &ee) {
		return ee.Code == CodeRejected
	}
	return false
}

// IsTransient возвращает true для временных ошибок (сеть, rate limit)
func IsTransient(err error) bool {
	var ee *ExchangeError
	if errors.As(err, &ee) {
		return ee.Retryable()
	}
	return false
}
