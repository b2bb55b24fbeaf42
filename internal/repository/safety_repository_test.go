package repository

import (
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"autotrader/internal/models"
)

// ============================================================
// SafetyRepository Tests
// ============================================================

func TestSafetyRepositoryCreate(t *testing.T) {
	tests := []struct {
		name        string
		event       *models.SafetyEvent
		mockSetup   func(mock sqlmock.Sqlmock)
		expectError bool
	}{
		{
			name: "high volatility cancellation",
			event: &models.SafetyEvent{
				Symbol:     "BTCUSDT",
				Reason:     models.ReasonHighVolatility,
				Volatility: 9.5,
				AgeMinutes: 15,
			},
			mockSetup: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`INSERT INTO safety_events`).
					WithArgs(sqlmock.AnyArg(), "BTCUSDT", models.ReasonHighVolatility, 9.5, 15.0).
					WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
			},
			expectError: false,
		},
		{
			name: "stale order cancellation",
			event: &models.SafetyEvent{
				Symbol:     "ETHUSDT",
				Reason:     models.ReasonStaleOrder,
				Volatility: 2.1,
				AgeMinutes: 150,
			},
			mockSetup: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`INSERT INTO safety_events`).
					WithArgs(sqlmock.AnyArg(), "ETHUSDT", models.ReasonStaleOrder, 2.1, 150.0).
					WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(2))
			},
			expectError: false,
		},
		{
			name: "database error",
			event: &models.SafetyEvent{
				Symbol:     "BTCUSDT",
				Reason:     models.ReasonStaleOrder,
				Volatility: 1.0,
				AgeMinutes: 130,
			},
			mockSetup: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`INSERT INTO safety_events`).
					WithArgs(sqlmock.AnyArg(), "BTCUSDT", models.ReasonStaleOrder, 1.0, 130.0).
					WillReturnError(errors.New("database error"))
			},
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			if err != nil {
				t.Fatalf("failed to create mock: %v", err)
			}
			defer db.Close()

			tt.mockSetup(mock)

			repo := NewSafetyRepository(db)
			err = repo.Create(tt.event)

			if tt.expectError {
				if err == nil {
					t.Error("expected error, got nil")
				}
			} else if err != nil {
				t.Errorf("unexpected error: %v", err)
			}

			if err := mock.ExpectationsWereMet(); err != nil {
				t.Errorf("unfulfilled expectations: %v", err)
			}
		})
	}
}

func TestSafetyRepositoryGetByReason(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock: %v", err)
	}
	defer db.Close()

	rows := sqlmock.NewRows([]string{"id", "timestamp", "symbol", "reason", "volatility", "age_minutes"}).
		AddRow(1, time.Now(), "BTCUSDT", models.ReasonHighVolatility, 9.5, 15.0)

	mock.ExpectQuery(`FROM safety_events\s+WHERE reason = \$1`).
		WithArgs(models.ReasonHighVolatility, 20).
		WillReturnRows(rows)

	repo := NewSafetyRepository(db)
	events, err := repo.GetByReason(models.ReasonHighVolatility, 20)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if events[0].Reason != models.ReasonHighVolatility {
		t.Errorf("unexpected reason: %s", events[0].Reason)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}
