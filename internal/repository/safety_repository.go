package repository

import (
	"database/sql"
	"time"

	"autotrader/internal/models"
)

// SafetyRepository - работа с таблицей safety_events.
// Журнал отменённых ордеров, append-only.
type SafetyRepository struct {
	db *sql.DB
}

// NewSafetyRepository создает новый экземпляр репозитория
func NewSafetyRepository(db *sql.DB) *SafetyRepository {
	return &SafetyRepository{db: db}
}

// Create добавляет запись об отмене ордера
func (r *SafetyRepository) Create(event *models.SafetyEvent) error {
	query := `
		INSERT INTO safety_events (timestamp, symbol, reason, volatility, age_minutes)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	return r.db.QueryRow(
		query,
		event.Timestamp,
		event.Symbol,
		event.Reason,
		event.Volatility,
		event.AgeMinutes,
	).Scan(&event.ID)
}

// GetRecent возвращает последние N записей журнала безопасности
func (r *SafetyRepository) GetRecent(limit int) ([]*models.SafetyEvent, error) {
	query := `
		SELECT id, timestamp, symbol, reason, volatility, age_minutes
		FROM safety_events
		ORDER BY timestamp DESC
		LIMIT $1`

	rows, err := r.db.Query(query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []*models.SafetyEvent
	for rows.Next() {
		event := &models.SafetyEvent{}
		err := rows.Scan(
			&event.ID,
			&event.Timestamp,
			&event.Symbol,
			&event.Reason,
			&event.Volatility,
			&event.AgeMinutes,
		)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return events, nil
}

// GetByReason возвращает последние записи с указанной причиной отмены
func (r *SafetyRepository) GetByReason(reason string, limit int) ([]*models.SafetyEvent, error) {
	query := `
		SELECT id, timestamp, symbol, reason, volatility, age_minutes
		FROM safety_events
		WHERE reason = $1
		ORDER BY timestamp DESC
		LIMIT $2`

	rows, err := r.db.Query(query, reason, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []*models.SafetyEvent
	for rows.Next() {
		event := &models.SafetyEvent{}
		err := rows.Scan(
			&event.ID,
			&event.Timestamp,
			&event.Symbol,
			&event.Reason,
			&event.Volatility,
			&event.AgeMinutes,
		)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return events, nil
}
