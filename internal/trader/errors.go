package trader

import "errors"

// Ошибки торгового ядра
var (
	// ErrInsufficientData - слишком мало свечей для расчёта индикатора.
	// Символ пропускается, скан продолжается.
	ErrInsufficientData = errors.New("insufficient candle data")

	// ErrInvalidMethod - нераспознанный метод расчёта размера позиции.
	// Фатальна для одной попытки ордера, не для цикла.
	ErrInvalidMethod = errors.New("invalid sizing method")

	// ErrNonPositiveEntry - цена входа должна быть положительной
	ErrNonPositiveEntry = errors.New("entry price must be positive")
)
