package repository

import (
	"database/sql"
	"time"

	"autotrader/internal/models"
)

// AlertRepository - работа с таблицей alerts (append-only журнал алертов)
type AlertRepository struct {
	db *sql.DB
}

// NewAlertRepository создает новый экземпляр репозитория
func NewAlertRepository(db *sql.DB) *AlertRepository {
	return &AlertRepository{db: db}
}

// Create добавляет запись алерта
func (r *AlertRepository) Create(alert *models.AlertEvent) error {
	query := `
		INSERT INTO alerts (timestamp, message)
		VALUES ($1, $2)
		RETURNING id`

	if alert.Timestamp.IsZero() {
		alert.Timestamp = time.Now()
	}

	return r.db.QueryRow(query, alert.Timestamp, alert.Message).Scan(&alert.ID)
}

// GetRecent возвращает последние N алертов
func (r *AlertRepository) GetRecent(limit int) ([]*models.AlertEvent, error) {
	query := `
		SELECT id, timestamp, message
		FROM alerts
		ORDER BY timestamp DESC
		LIMIT $1`

	rows, err := r.db.Query(query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var alerts []*models.AlertEvent
	for rows.Next() {
		alert := &models.AlertEvent{}
		if err := rows.Scan(&alert.ID, &alert.Timestamp, &alert.Message); err != nil {
			return nil, err
		}
		alerts = append(alerts, alert)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return alerts, nil
}
