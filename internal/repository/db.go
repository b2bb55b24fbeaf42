package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"autotrader/pkg/retry"
)

// Схема журнала. Все четыре таблицы append-only:
// код никогда не выполняет UPDATE или DELETE по ним.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS trades (
		id SERIAL PRIMARY KEY,
		timestamp TIMESTAMP NOT NULL DEFAULT NOW(),
		symbol VARCHAR(20) NOT NULL,
		side VARCHAR(10) NOT NULL,
		qty DECIMAL(20, 8) NOT NULL,
		entry DECIMAL(20, 8) NOT NULL,
		sl DECIMAL(20, 8) NOT NULL,
		tp DECIMAL(20, 8) NOT NULL,
		method VARCHAR(10) NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS equity_curve (
		id SERIAL PRIMARY KEY,
		timestamp TIMESTAMP NOT NULL DEFAULT NOW(),
		equity DECIMAL(20, 2) NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS alerts (
		id SERIAL PRIMARY KEY,
		timestamp TIMESTAMP NOT NULL DEFAULT NOW(),
		message TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS safety_events (
		id SERIAL PRIMARY KEY,
		timestamp TIMESTAMP NOT NULL DEFAULT NOW(),
		symbol VARCHAR(20) NOT NULL,
		reason VARCHAR(20) NOT NULL,
		volatility DECIMAL(10, 4) NOT NULL,
		age_minutes DECIMAL(10, 2) NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_trades_timestamp ON trades (timestamp DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_equity_timestamp ON equity_curve (timestamp DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_alerts_timestamp ON alerts (timestamp DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_safety_timestamp ON safety_events (timestamp DESC)`,
}

// InitDB открывает подключение к Postgres, проверяет его
// с ретраями и применяет схему журнала
func InitDB(ctx context.Context, driver, dsn string) (*sql.DB, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Настройка пула соединений
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	// БД может подниматься дольше приложения, поэтому ping с ретраями
	pingCfg := retry.Config{
		MaxRetries:   5,
		InitialDelay: 1 * time.Second,
		MaxDelay:     10 * time.Second,
		Multiplier:   2.0,
		JitterFactor: 0.1,
	}

	err = retry.Do(ctx, func() error {
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		return db.PingContext(pingCtx)
	}, pingCfg)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := Migrate(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

// Migrate применяет схему журнала
func Migrate(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}
