package trader

import (
	"context"
	"time"

	"autotrader/internal/cache"
	"autotrader/internal/exchange"
	"autotrader/internal/models"
	"autotrader/pkg/utils"
)

// AlertSink получает алерты провайдера (реализуется журналом)
type AlertSink interface {
	RecordAlert(alert *models.AlertEvent)
}

// MarketDataProvider отдаёт рыночные данные через rate-limited кэши.
//
// Тикеры и капитал кэшируются (TTL задаётся конфигом), свечи
// запрашиваются напрямую: для расчёта индикаторов нужна свежесть.
type MarketDataProvider struct {
	ex exchange.Exchange

	tickers *cache.RateLimited[[]models.TickerSnapshot]
	equity  *cache.RateLimited[float64]

	// таймаут одного обращения к бирже
	requestTimeout time.Duration

	alerts AlertSink
	log    *utils.Logger
}

// NewMarketDataProvider создает провайдер рыночных данных
func NewMarketDataProvider(ex exchange.Exchange, tickerTTL, equityTTL, requestTimeout time.Duration, alerts AlertSink, log *utils.Logger) *MarketDataProvider {
	return &MarketDataProvider{
		ex:             ex,
		tickers:        cache.NewRateLimited[[]models.TickerSnapshot](tickerTTL),
		equity:         cache.NewRateLimited[float64](equityTTL),
		requestTimeout: requestTimeout,
		alerts:         alerts,
		log:            log.WithComponent("market_data"),
	}
}

// Tickers возвращает 24h снапшоты отслеживаемых символов через кэш
func (p *MarketDataProvider) Tickers(ctx context.Context) ([]models.TickerSnapshot, error) {
	result, refreshed, err := p.tickers.Get(ctx, func(ctx context.Context) ([]models.TickerSnapshot, error) {
		fetchCtx, cancel := context.WithTimeout(ctx, p.requestTimeout)
		defer cancel()
		return p.ex.Get24hTickers(fetchCtx)
	})
	if err != nil {
		CacheRequests.WithLabelValues("tickers", "error").Inc()
		UpstreamErrors.WithLabelValues("tickers").Inc()
		return nil, err
	}
	CacheRequests.WithLabelValues("tickers", cacheResult(refreshed)).Inc()
	return result, nil
}

// AccountEquity возвращает капитал аккаунта в USDT через кэш.
//
// Суммирует USDT-эквивалент всех ненулевых остатков. Ошибка конвертации
// одного актива проглатывается (актив даёт ноль). Ошибка получения
// самого списка балансов даёт капитал 0 и алерт - но НЕ ошибку:
// торговые циклы не должны падать из-за недоступного баланса.
func (p *MarketDataProvider) AccountEquity(ctx context.Context) float64 {
	equity, refreshed, err := p.equity.Get(ctx, p.computeEquity)
	if err != nil {
		// Неудачный refresh не кэшируется, ноль отдаётся только вызывающему
		CacheRequests.WithLabelValues("equity", "error").Inc()
		p.log.Error("failed to compute account equity", utils.Err(err))
		if p.alerts != nil {
			p.alerts.RecordAlert(&models.AlertEvent{
				Timestamp: time.Now(),
				Message:   "⚠️ Не удалось получить балансы аккаунта: " + err.Error(),
			})
		}
		return 0
	}
	CacheRequests.WithLabelValues("equity", cacheResult(refreshed)).Inc()
	AccountEquity.Set(equity)
	return equity
}

// cacheResult переводит флаг обновления в значение лейбла result
func cacheResult(refreshed bool) string {
	if refreshed {
		return "refresh"
	}
	return "hit"
}

// computeEquity считает сумму USDT-эквивалентов всех остатков.
// Ошибка списка балансов возвращается наверх, ошибка цены
// одного актива проглатывается (актив даёт ноль).
func (p *MarketDataProvider) computeEquity(ctx context.Context) (float64, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, p.requestTimeout)
	defer cancel()

	balances, err := p.ex.GetBalances(fetchCtx)
	if err != nil {
		UpstreamErrors.WithLabelValues("balances").Inc()
		return 0, err
	}

	var total float64
	for _, bal := range balances {
		if bal.Free <= 0 {
			continue
		}
		if bal.Asset == "USDT" {
			total += bal.Free
			continue
		}

		priceCtx, cancelPrice := context.WithTimeout(ctx, p.requestTimeout)
		price, err := p.ex.GetSymbolPrice(priceCtx, bal.Asset+"USDT")
		cancelPrice()
		if err != nil {
			// Частичная толерантность: актив без цены даёт ноль
			UpstreamErrors.WithLabelValues("price").Inc()
			p.log.Warn("failed to convert asset to USDT",
				utils.String("asset", bal.Asset),
				utils.Err(err))
			continue
		}
		total += bal.Free * price
	}

	return total, nil
}

// OHLCV возвращает свечи символа без кэширования
func (p *MarketDataProvider) OHLCV(ctx context.Context, symbol, interval string, limit int) ([]models.Candle, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, p.requestTimeout)
	defer cancel()

	candles, err := p.ex.GetCandles(fetchCtx, symbol, interval, limit)
	if err != nil {
		UpstreamErrors.WithLabelValues("candles").Inc()
		return nil, err
	}
	return candles, nil
}

// InvalidateEquity сбрасывает кэш капитала (после размещения ордера
// баланс меняется и кэшированное значение устаревает)
func (p *MarketDataProvider) InvalidateEquity() {
	p.equity.Invalidate()
}
