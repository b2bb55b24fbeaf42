//go:build integration

// Package integration содержит интеграционные тесты торгового агента.
//
// Проверяется взаимодействие компонентов поверх реального Postgres:
// - миграции и append-only репозитории журналов
// - полный HTTP цикл read-эндпоинтов и пути записи
// - WebSocket поток событий от журнала до клиента
//
// Тесты отделены build-тегом "integration":
// go test -tags=integration ./tests/integration/...
//
// Подключение к БД настраивается переменными TEST_DB_* (по умолчанию
// localhost:5432, база autotrader_test). Без доступной базы тесты
// пропускаются.
package integration

import (
	"context"
	"database/sql"
	"fmt"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	_ "github.com/lib/pq"

	"autotrader/internal/api"
	"autotrader/internal/api/handlers"
	"autotrader/internal/ledger"
	"autotrader/internal/models"
	"autotrader/internal/repository"
	"autotrader/internal/websocket"
	"autotrader/pkg/crypto"
	"autotrader/pkg/utils"
)

// testToken - bearer-токен пути записи в интеграционных тестах
const testToken = "integration-test-token"

func testDSN() string {
	host := envOr("TEST_DB_HOST", "localhost")
	port := envOr("TEST_DB_PORT", "5432")
	name := envOr("TEST_DB_NAME", "autotrader_test")
	user := envOr("TEST_DB_USER", "postgres")
	password := envOr("TEST_DB_PASSWORD", "postgres")
	sslmode := envOr("TEST_DB_SSL_MODE", "disable")

	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		host, port, user, password, name, sslmode)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// testEnv - полный стек для одного теста: БД, журнал, hub, HTTP сервер
type testEnv struct {
	DB     *sql.DB
	Hub    *websocket.Hub
	Ledger *ledger.Ledger
	Server *httptest.Server

	Trades *repository.TradeRepository
	Equity *repository.EquityRepository
	Alerts *repository.AlertRepository
	Safety *repository.SafetyRepository
}

// stubPlacer подменяет риск-менеджер в пути записи: пишет сделку
// в журнал без похода на биржу
type stubPlacer struct {
	journal *ledger.Ledger
}

func (s *stubPlacer) PlaceOrderWithRisk(ctx context.Context, symbol, side string, entry float64, method string, winRate, winLossRatio, slPct, tpPct float64) (*models.TradeRecord, error) {
	trade := &models.TradeRecord{
		Timestamp:    time.Now(),
		Symbol:       symbol,
		Side:         side,
		Quantity:     1,
		Entry:        entry,
		StopLoss:     entry * (1 - slPct/100),
		TakeProfit:   entry * (1 + tpPct/100),
		SizingMethod: method,
	}
	s.journal.RecordTrade(trade)
	return trade, nil
}

type stubPrices struct {
	price float64
}

func (s *stubPrices) GetSymbolPrice(ctx context.Context, symbol string) (float64, error) {
	return s.price, nil
}

// newTestEnv поднимает стек на реальной базе. Без базы - t.Skip.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	db, err := repository.InitDB(ctx, "postgres", testDSN())
	if err != nil {
		t.Skipf("тестовая база недоступна: %v", err)
	}

	truncateAll(t, db)

	logger := utils.InitLogger(utils.LogConfig{Level: "error", Format: "text"})

	hub := websocket.NewHub(logger)
	go hub.Run()

	trades := repository.NewTradeRepository(db)
	equity := repository.NewEquityRepository(db)
	alerts := repository.NewAlertRepository(db)
	safety := repository.NewSafetyRepository(db)

	journal := ledger.New(trades, equity, alerts, safety, hub, logger)

	hash, err := crypto.HashToken(testToken)
	if err != nil {
		t.Fatalf("ошибка хеширования токена: %v", err)
	}

	deps := &api.Dependencies{
		Trades: handlers.NewTradeHandler(trades, &stubPlacer{journal: journal}, &stubPrices{price: 50000}, handlers.ManualTradeDefaults{
			Method:       models.SizingFixed,
			WinRate:      0.55,
			WinLossRatio: 2.0,
			SLPct:        3.0,
			TPPct:        6.0,
		}),
		Journal:      handlers.NewJournalHandler(equity, alerts, safety),
		Hub:          hub,
		APITokenHash: hash,
		Logger:       logger,
	}

	server := httptest.NewServer(api.SetupRoutes(deps))

	t.Cleanup(func() {
		server.Close()
		db.Close()
	})

	return &testEnv{
		DB:     db,
		Hub:    hub,
		Ledger: journal,
		Server: server,
		Trades: trades,
		Equity: equity,
		Alerts: alerts,
		Safety: safety,
	}
}

func truncateAll(t *testing.T, db *sql.DB) {
	t.Helper()
	for _, table := range []string{"trades", "equity_curve", "alerts", "safety_events"} {
		if _, err := db.Exec("TRUNCATE TABLE " + table + " RESTART IDENTITY"); err != nil {
			t.Fatalf("ошибка очистки таблицы %s: %v", table, err)
		}
	}
}
