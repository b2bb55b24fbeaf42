package utils

import (
	"math"
)

// math.go - математические утилиты торгового ядра
//
// Назначение:
// Вспомогательные функции для расчёта размеров ордеров и статистик по свечам.
// Все функции являются чистыми (pure functions) без побочных эффектов.

// RoundToStep округляет значение ВНИЗ до ближайшего кратного step.
//
// Используется для округления объёма ордера до минимального шага биржи.
// Округление вниз гарантирует, что мы не превысим доступные средства.
//
// Примеры:
//   - RoundToStep(0.123456, 0.001) = 0.123
//   - RoundToStep(1.999, 0.01) = 1.99
func RoundToStep(value, step float64) float64 {
	if step <= 0 {
		return value
	}
	return math.Floor(value/step) * step
}

// Mean возвращает среднее арифметическое. Для пустого среза возвращает 0.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// Clamp ограничивает значение отрезком [lo, hi]
func Clamp(value, lo, hi float64) float64 {
	if value < lo {
		return lo
	}
	if value > hi {
		return hi
	}
	return value
}

// PercentChange возвращает изменение to относительно from в процентах.
// Если from <= 0, возвращает 0.
//
// Примеры:
//   - PercentChange(100, 105) = 5.0
//   - PercentChange(100, 95) = -5.0
func PercentChange(from, to float64) float64 {
	if from <= 0 {
		return 0
	}
	return (to - from) / from * 100
}
