package trader

import (
	"context"
	"runtime/debug"
	"sync"
	"time"

	"autotrader/internal/models"
	"autotrader/pkg/utils"
)

// SchedulerConfig - кадансы и пороги обоих циклов
type SchedulerConfig struct {
	RiskInterval      time.Duration // период риск-цикла
	AutoTradeInterval time.Duration // период цикла авто-трейдинга

	// Риск-цикл
	CleanupVolThreshold float64       // волатильность выше - отмена
	CleanupMaxAge       time.Duration // возраст ордера выше - отмена

	// Цикл авто-трейдинга
	AutoScoreThreshold float64 // минимальный скор для входа
	AutoEntryBufferPct float64 // буфер цены входа от последнего close
	AutoSLPct          float64
	AutoTPPct          float64
	AutoWinRate        float64
	AutoWinLossRatio   float64
	SizingMethod       string
}

// Scheduler крутит два независимых цикла: риск-контроль и авто-трейдинг.
//
// Циклы не синхронизируются между собой: работают над логически
// независимыми данными (капитал/ордера против сигналов), общий у них
// только журнал. Паника в теле цикла восстанавливается и не убивает
// процесс. Shutdown через отмену контекста, Wait дожидается
// завершения тел циклов.
type Scheduler struct {
	provider *MarketDataProvider
	signals  *SignalEngine
	risk     *RiskManager
	journal  Journal
	cfg      SchedulerConfig
	log      *utils.Logger

	wg sync.WaitGroup
}

// NewScheduler создает планировщик
func NewScheduler(provider *MarketDataProvider, signals *SignalEngine, risk *RiskManager, journal Journal, cfg SchedulerConfig, log *utils.Logger) *Scheduler {
	return &Scheduler{
		provider: provider,
		signals:  signals,
		risk:     risk,
		journal:  journal,
		cfg:      cfg,
		log:      log.WithComponent("scheduler"),
	}
}

// Start запускает оба цикла. Неблокирующий.
func (s *Scheduler) Start(ctx context.Context) {
	s.wg.Add(2)
	go s.runLoop(ctx, "risk", s.cfg.RiskInterval, s.riskTick)
	go s.runLoop(ctx, "auto_trade", s.cfg.AutoTradeInterval, s.autoTradeTick)

	s.log.Info("scheduler started",
		utils.String("risk_interval", s.cfg.RiskInterval.String()),
		utils.String("auto_trade_interval", s.cfg.AutoTradeInterval.String()))
}

// Wait блокирует до завершения обоих циклов после отмены контекста
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

// runLoop - общий каркас цикла: тик -> тело -> ждать следующего тика,
// до отмены контекста. Первый прогон сразу при старте, не через interval.
func (s *Scheduler) runLoop(ctx context.Context, name string, interval time.Duration, body func(ctx context.Context)) {
	defer s.wg.Done()

	log := s.log.With(utils.String("loop", name))

	safeBody := func() {
		defer func() {
			if rec := recover(); rec != nil {
				log.Error("loop body panicked",
					utils.Any("panic", rec),
					utils.String("stack", string(debug.Stack())))
			}
		}()
		body(ctx)
	}

	safeBody()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("loop stopped")
			return
		case <-ticker.C:
			safeBody()
		}
	}
}

// riskTick - тело риск-цикла: снапшот капитала в журнал,
// затем зачистка рискованных ордеров.
func (s *Scheduler) riskTick(ctx context.Context) {
	equity := s.provider.AccountEquity(ctx)
	if equity > 0 {
		s.journal.RecordEquity(&models.EquitySample{
			Timestamp: time.Now(),
			Equity:    equity,
		})
	}

	if err := s.risk.CleanupRiskyOrders(ctx, s.cfg.CleanupVolThreshold, s.cfg.CleanupMaxAge); err != nil {
		// Недоступность биржи - transient, повтор на следующем тике
		s.log.Warn("cleanup pass failed", utils.Err(err))
	}
}

// autoTradeTick - тело цикла авто-трейдинга: скан и, если лучший
// кандидат проходит порог, вход с буфером цены от последнего close.
func (s *Scheduler) autoTradeTick(ctx context.Context) {
	signals, err := s.signals.ScanAndRank(ctx, 5)
	if err != nil {
		s.log.Warn("scan failed", utils.Err(err))
		return
	}
	if len(signals) == 0 {
		return
	}

	top := signals[0]
	if top.TrendScore < s.cfg.AutoScoreThreshold {
		s.log.Debug("no candidate cleared the score threshold",
			utils.Symbol(top.Symbol),
			utils.Score(top.TrendScore))
		return
	}

	// Полярность сигнала: RSI ниже нейтрали - лонг с входом выше close,
	// иначе шорт с входом ниже close
	var side string
	var entry float64
	if top.RSI < 50 {
		side = models.SideBuy
		entry = top.LastClose * (1 + s.cfg.AutoEntryBufferPct/100)
	} else {
		side = models.SideSell
		entry = top.LastClose * (1 - s.cfg.AutoEntryBufferPct/100)
	}

	_, err = s.risk.PlaceOrderWithRisk(ctx, top.Symbol, side, entry,
		s.cfg.SizingMethod, s.cfg.AutoWinRate, s.cfg.AutoWinLossRatio,
		s.cfg.AutoSLPct, s.cfg.AutoTPPct)
	if err != nil {
		s.log.Warn("auto trade attempt failed",
			utils.Symbol(top.Symbol),
			utils.Side(side),
			utils.Err(err))
		return
	}

	s.log.Info("auto trade placed",
		utils.Symbol(top.Symbol),
		utils.Side(side),
		utils.Score(top.TrendScore),
		utils.Price(entry))
}
