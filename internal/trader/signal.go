package trader

import (
	"context"
	"math"
	"sort"
	"time"

	"autotrader/internal/models"
	"autotrader/pkg/utils"
)

// DisqualifiedScore - сигнальное значение для символов, не прошедших
// фильтры ликвидности/перекупленности. Ниже любого реального скора.
var DisqualifiedScore = math.Inf(-1)

// SignalConfig - пороги и веса движка сигналов
type SignalConfig struct {
	RSIPeriod      int
	RSIThreshold   float64 // RSI выше порога - символ перекуплен, дисквалификация
	MinVolume24h   float64 // минимальный 24h объём в quote-валюте
	CandleInterval string
	CandleLimit    int
}

// SignalEngine считает индикаторы и ранжирует кандидатов на вход
type SignalEngine struct {
	provider *MarketDataProvider
	cfg      SignalConfig
	log      *utils.Logger
}

// NewSignalEngine создает движок сигналов
func NewSignalEngine(provider *MarketDataProvider, cfg SignalConfig, log *utils.Logger) *SignalEngine {
	return &SignalEngine{
		provider: provider,
		cfg:      cfg,
		log:      log.WithComponent("signal_engine"),
	}
}

// ComputeRSI считает RSI по ценам закрытия со сглаживанием Уайлдера.
// Требует минимум period+1 свечей.
func ComputeRSI(candles []models.Candle, period int) (float64, error) {
	if period <= 0 || len(candles) < period+1 {
		return 0, ErrInsufficientData
	}

	// Первое значение - простое среднее приростов/потерь
	var avgGain, avgLoss float64
	for i := 1; i <= period; i++ {
		delta := candles[i].Close - candles[i-1].Close
		if delta > 0 {
			avgGain += delta
		} else {
			avgLoss -= delta
		}
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)

	// Дальше - сглаживание Уайлдера
	for i := period + 1; i < len(candles); i++ {
		delta := candles[i].Close - candles[i-1].Close
		var gain, loss float64
		if delta > 0 {
			gain = delta
		} else {
			loss = -delta
		}
		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
	}

	if avgLoss == 0 {
		if avgGain == 0 {
			return 50, nil
		}
		return 100, nil
	}

	rs := avgGain / avgLoss
	return 100 - 100/(1+rs), nil
}

// ComputeVolatility считает размах окна в процентах:
// (max high - min low) / среднее close * 100
func ComputeVolatility(candles []models.Candle) (float64, error) {
	if len(candles) == 0 {
		return 0, ErrInsufficientData
	}

	maxHigh := candles[0].High
	minLow := candles[0].Low
	closes := make([]float64, len(candles))

	for i, c := range candles {
		if c.High > maxHigh {
			maxHigh = c.High
		}
		if c.Low < minLow {
			minLow = c.Low
		}
		closes[i] = c.Close
	}

	meanClose := utils.Mean(closes)
	if meanClose <= 0 {
		return 0, ErrInsufficientData
	}

	return (maxHigh - minLow) / meanClose * 100, nil
}

// ComputeTrendScore считает композитный скор привлекательности символа.
//
// Чистая функция: одинаковый вход всегда даёт одинаковый скор.
// Монотонна по объёму, по |RSI - 50| и по обратной волатильности.
// Символы с volume24h < MinVolume24h или rsi > RSIThreshold получают
// DisqualifiedScore.
func (e *SignalEngine) ComputeTrendScore(rsi, volatility, volume24h float64) float64 {
	if volume24h < e.cfg.MinVolume24h {
		return DisqualifiedScore
	}
	if rsi > e.cfg.RSIThreshold {
		return DisqualifiedScore
	}

	// Ликвидность в логарифме, чтобы гиганты не задавили остальных
	liquidity := math.Log10(1 + volume24h)

	// Отклонение RSI от нейтрали - сила момента, в [0, 50]
	momentum := math.Abs(rsi - 50)

	// Спокойные символы предпочтительнее
	calmness := 10 / (1 + volatility)

	return liquidity*2 + momentum + calmness*5
}

// ScanAndRank сканирует отслеживаемые символы и возвращает до limit
// лучших кандидатов по убыванию скора.
//
// Ошибка по одному символу пропускает символ, а не прерывает скан.
// Дисквалифицированные символы в результат не попадают.
func (e *SignalEngine) ScanAndRank(ctx context.Context, limit int) ([]models.Signal, error) {
	start := time.Now()
	defer func() {
		ScanDuration.Observe(time.Since(start).Seconds())
	}()

	tickers, err := e.provider.Tickers(ctx)
	if err != nil {
		return nil, err
	}

	signals := make([]models.Signal, 0, len(tickers))
	for _, ticker := range tickers {
		candles, err := e.provider.OHLCV(ctx, ticker.Symbol, e.cfg.CandleInterval, e.cfg.CandleLimit)
		if err != nil {
			SymbolsSkipped.WithLabelValues("fetch_error").Inc()
			e.log.Warn("skipping symbol, candle fetch failed",
				utils.Symbol(ticker.Symbol),
				utils.Err(err))
			continue
		}

		rsi, err := ComputeRSI(candles, e.cfg.RSIPeriod)
		if err != nil {
			SymbolsSkipped.WithLabelValues("insufficient_data").Inc()
			e.log.Debug("skipping symbol, not enough candles",
				utils.Symbol(ticker.Symbol))
			continue
		}

		vol, err := ComputeVolatility(candles)
		if err != nil {
			SymbolsSkipped.WithLabelValues("insufficient_data").Inc()
			continue
		}

		score := e.ComputeTrendScore(rsi, vol, ticker.QuoteVolume24h)
		if math.IsInf(score, -1) {
			SymbolsSkipped.WithLabelValues("disqualified").Inc()
			continue
		}

		signals = append(signals, models.Signal{
			Symbol:        ticker.Symbol,
			RSI:           rsi,
			VolatilityPct: vol,
			TrendScore:    score,
			LastClose:     candles[len(candles)-1].Close,
		})
	}

	sort.Slice(signals, func(i, j int) bool {
		return signals[i].TrendScore > signals[j].TrendScore
	})

	if limit > 0 && len(signals) > limit {
		signals = signals[:limit]
	}

	return signals, nil
}
