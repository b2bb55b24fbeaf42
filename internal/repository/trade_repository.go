package repository

import (
	"database/sql"
	"time"

	"autotrader/internal/models"
)

// TradeRepository - работа с таблицей trades.
// Таблица append-only: только вставка и чтение.
type TradeRepository struct {
	db *sql.DB
}

// NewTradeRepository создает новый экземпляр репозитория
func NewTradeRepository(db *sql.DB) *TradeRepository {
	return &TradeRepository{db: db}
}

// Create добавляет запись о размещённом ордере
func (r *TradeRepository) Create(trade *models.TradeRecord) error {
	query := `
		INSERT INTO trades (timestamp, symbol, side, qty, entry, sl, tp, method)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`

	if trade.Timestamp.IsZero() {
		trade.Timestamp = time.Now()
	}

	return r.db.QueryRow(
		query,
		trade.Timestamp,
		trade.Symbol,
		trade.Side,
		trade.Quantity,
		trade.Entry,
		trade.StopLoss,
		trade.TakeProfit,
		trade.SizingMethod,
	).Scan(&trade.ID)
}

// GetRecent возвращает последние N сделок
func (r *TradeRepository) GetRecent(limit int) ([]*models.TradeRecord, error) {
	query := `
		SELECT id, timestamp, symbol, side, qty, entry, sl, tp, method
		FROM trades
		ORDER BY timestamp DESC
		LIMIT $1`

	rows, err := r.db.Query(query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var trades []*models.TradeRecord
	for rows.Next() {
		trade := &models.TradeRecord{}
		err := rows.Scan(
			&trade.ID,
			&trade.Timestamp,
			&trade.Symbol,
			&trade.Side,
			&trade.Quantity,
			&trade.Entry,
			&trade.StopLoss,
			&trade.TakeProfit,
			&trade.SizingMethod,
		)
		if err != nil {
			return nil, err
		}
		trades = append(trades, trade)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return trades, nil
}

// GetBySymbol возвращает последние сделки по символу
func (r *TradeRepository) GetBySymbol(symbol string, limit int) ([]*models.TradeRecord, error) {
	query := `
		SELECT id, timestamp, symbol, side, qty, entry, sl, tp, method
		FROM trades
		WHERE symbol = $1
		ORDER BY timestamp DESC
		LIMIT $2`

	rows, err := r.db.Query(query, symbol, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var trades []*models.TradeRecord
	for rows.Next() {
		trade := &models.TradeRecord{}
		err := rows.Scan(
			&trade.ID,
			&trade.Timestamp,
			&trade.Symbol,
			&trade.Side,
			&trade.Quantity,
			&trade.Entry,
			&trade.StopLoss,
			&trade.TakeProfit,
			&trade.SizingMethod,
		)
		if err != nil {
			return nil, err
		}
		trades = append(trades, trade)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return trades, nil
}

// Count возвращает общее количество сделок
func (r *TradeRepository) Count() (int, error) {
	var count int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM trades`).Scan(&count)
	if err != nil {
		return 0, err
	}
	return count, nil
}
