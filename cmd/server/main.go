package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"

	"autotrader/internal/api"
	"autotrader/internal/api/handlers"
	"autotrader/internal/assistant"
	"autotrader/internal/config"
	"autotrader/internal/exchange"
	"autotrader/internal/ledger"
	"autotrader/internal/repository"
	"autotrader/internal/trader"
	"autotrader/internal/websocket"
	"autotrader/pkg/utils"
)

func main() {
	// Загрузка конфигурации
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Инициализация логгера
	logger := utils.InitGlobalLogger(utils.LogConfig{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Инициализация базы данных и миграция схемы
	db, err := repository.InitDB(ctx, cfg.Database.Driver, cfg.Database.DSN())
	if err != nil {
		logger.Fatal("не удалось подключиться к базе данных", utils.Err(err))
	}
	defer db.Close()

	logger.Info("подключение к базе данных установлено",
		utils.String("dsn", cfg.Database.DSNWithoutPassword()))

	// Репозитории append-only журналов
	tradeRepo := repository.NewTradeRepository(db)
	equityRepo := repository.NewEquityRepository(db)
	alertRepo := repository.NewAlertRepository(db)
	safetyRepo := repository.NewSafetyRepository(db)

	// WebSocket hub для дашборда
	hub := websocket.NewHub(logger.WithComponent("websocket"))
	go hub.Run()

	// Журнал: единственный путь записи в БД и на дашборд
	journal := ledger.New(tradeRepo, equityRepo, alertRepo, safetyRepo, hub,
		logger.WithComponent("ledger"))

	// Клиент биржи
	httpClient := exchange.NewHTTPClient(exchange.HTTPClientConfig{
		TotalTimeout: cfg.Exchange.RequestTimeout,
	})
	binance := exchange.NewBinance(exchange.BinanceConfig{
		BaseURL:   cfg.Exchange.BaseURL,
		APIKey:    cfg.Exchange.APIKey,
		SecretKey: cfg.Exchange.SecretKey,
		Symbols:   cfg.Trading.Symbols,
		RateLimit: cfg.Exchange.RateLimit,
		RateBurst: cfg.Exchange.RateBurst,
	}, httpClient)

	// Торговое ядро
	provider := trader.NewMarketDataProvider(binance,
		cfg.Trading.TickerTTL, cfg.Trading.EquityTTL, cfg.Exchange.RequestTimeout,
		journal, logger.WithComponent("provider"))

	signals := trader.NewSignalEngine(provider, trader.SignalConfig{
		RSIPeriod:      cfg.Trading.RSIPeriod,
		RSIThreshold:   cfg.Trading.RSIThreshold,
		MinVolume24h:   cfg.Trading.MinVolume24h,
		CandleInterval: cfg.Trading.CandleInterval,
		CandleLimit:    cfg.Trading.CandleLimit,
	}, logger.WithComponent("signals"))

	risk := trader.NewRiskManager(binance, provider, journal, trader.RiskConfig{
		FixedFraction:     cfg.Trading.FixedFraction,
		MaxDrawdownPerDay: cfg.Trading.MaxDrawdownPerDay,
		CandleInterval:    cfg.Trading.CandleInterval,
		CandleLimit:       cfg.Trading.CandleLimit,
		RequestTimeout:    cfg.Exchange.RequestTimeout,
	}, logger.WithComponent("risk"))

	scheduler := trader.NewScheduler(provider, signals, risk, journal, trader.SchedulerConfig{
		RiskInterval:        cfg.Trading.RiskInterval,
		AutoTradeInterval:   cfg.Trading.AutoTradeInterval,
		CleanupVolThreshold: cfg.Trading.CleanupVolThreshold,
		CleanupMaxAge:       cfg.Trading.CleanupMaxAge,
		AutoScoreThreshold:  cfg.Trading.AutoScoreThreshold,
		AutoEntryBufferPct:  cfg.Trading.AutoEntryBufferPct,
		AutoSLPct:           cfg.Trading.AutoSLPct,
		AutoTPPct:           cfg.Trading.AutoTPPct,
		AutoWinRate:         cfg.Trading.AutoWinRate,
		AutoWinLossRatio:    cfg.Trading.AutoWinLossRatio,
		SizingMethod:        cfg.Trading.SizingMethod,
	}, logger.WithComponent("scheduler"))
	scheduler.Start(ctx)

	// Зависимости HTTP API
	deps := &api.Dependencies{
		Trades: handlers.NewTradeHandler(tradeRepo, risk, binance, handlers.ManualTradeDefaults{
			Method:       cfg.Trading.SizingMethod,
			WinRate:      cfg.Trading.AutoWinRate,
			WinLossRatio: cfg.Trading.AutoWinLossRatio,
			SLPct:        cfg.Trading.AutoSLPct,
			TPPct:        cfg.Trading.AutoTPPct,
		}),
		Journal:      handlers.NewJournalHandler(equityRepo, alertRepo, safetyRepo),
		Signals:      handlers.NewSignalHandler(signals),
		Hub:          hub,
		APITokenHash: cfg.Security.APITokenHash,
		Logger:       logger.WithComponent("api"),
	}

	// Ассистент включается только при настроенном completion-сервисе.
	// Единственная доступная ему функция - place_order, через тот же
	// риск-менеджер, что и остальные пути размещения.
	if cfg.Assistant.BaseURL != "" {
		registry := assistant.NewRegistry(logger.WithComponent("assistant"))
		registry.Register(assistant.NewPlaceOrderFunction(risk, binance, assistant.PlaceOrderDefaults{
			Method:       cfg.Trading.SizingMethod,
			WinRate:      cfg.Trading.AutoWinRate,
			WinLossRatio: cfg.Trading.AutoWinLossRatio,
			SLPct:        cfg.Trading.AutoSLPct,
			TPPct:        cfg.Trading.AutoTPPct,
			Timeout:      cfg.Exchange.RequestTimeout,
		}, logger.WithComponent("assistant")))

		client := assistant.NewClient(assistant.ClientConfig{
			BaseURL:        cfg.Assistant.BaseURL,
			APIKey:         cfg.Assistant.APIKey,
			Model:          cfg.Assistant.Model,
			RequestTimeout: cfg.Assistant.RequestTimeout,
		}, nil, logger.WithComponent("assistant"))

		deps.Assistant = handlers.NewAssistantHandler(client, registry)
	}

	router := api.SetupRoutes(deps)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("HTTP сервер запущен", utils.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP сервер упал", utils.Err(err))
		}
	}()

	// Graceful shutdown: сигнал останавливает циклы, затем сервер
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("получен сигнал остановки, завершаем работу")

	cancel()
	scheduler.Wait()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("ошибка остановки HTTP сервера", utils.Err(err))
	}

	logger.Info("сервер остановлен")
}
