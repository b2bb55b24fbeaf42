package repository

import (
	"database/sql"
	"time"

	"autotrader/internal/models"
)

// EquityRepository - работа с таблицей equity_curve.
// Таблица append-only: сэмплы капитала только добавляются.
type EquityRepository struct {
	db *sql.DB
}

// NewEquityRepository создает новый экземпляр репозитория
func NewEquityRepository(db *sql.DB) *EquityRepository {
	return &EquityRepository{db: db}
}

// Create добавляет сэмпл капитала
func (r *EquityRepository) Create(sample *models.EquitySample) error {
	query := `
		INSERT INTO equity_curve (timestamp, equity)
		VALUES ($1, $2)
		RETURNING id`

	if sample.Timestamp.IsZero() {
		sample.Timestamp = time.Now()
	}

	return r.db.QueryRow(query, sample.Timestamp, sample.Equity).Scan(&sample.ID)
}

// GetRecent возвращает последние N сэмплов капитала
func (r *EquityRepository) GetRecent(limit int) ([]*models.EquitySample, error) {
	query := `
		SELECT id, timestamp, equity
		FROM equity_curve
		ORDER BY timestamp DESC
		LIMIT $1`

	rows, err := r.db.Query(query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var samples []*models.EquitySample
	for rows.Next() {
		sample := &models.EquitySample{}
		if err := rows.Scan(&sample.ID, &sample.Timestamp, &sample.Equity); err != nil {
			return nil, err
		}
		samples = append(samples, sample)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return samples, nil
}

// GetSince возвращает сэмплы капитала начиная с указанного момента
// в хронологическом порядке (для построения кривой)
func (r *EquityRepository) GetSince(from time.Time) ([]*models.EquitySample, error) {
	query := `
		SELECT id, timestamp, equity
		FROM equity_curve
		WHERE timestamp >= $1
		ORDER BY timestamp ASC`

	rows, err := r.db.Query(query, from)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var samples []*models.EquitySample
	for rows.Next() {
		sample := &models.EquitySample{}
		if err := rows.Scan(&sample.ID, &sample.Timestamp, &sample.Equity); err != nil {
			return nil, err
		}
		samples = append(samples, sample)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return samples, nil
}
