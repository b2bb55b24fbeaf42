package repository

import (
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"autotrader/internal/models"
)

// ============================================================
// EquityRepository / AlertRepository Tests
// ============================================================

func TestEquityRepositoryCreate(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery(`INSERT INTO equity_curve`).
		WithArgs(sqlmock.AnyArg(), 10250.75).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))

	repo := NewEquityRepository(db)
	sample := &models.EquitySample{Equity: 10250.75}

	if err := repo.Create(sample); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sample.ID != 1 {
		t.Errorf("expected ID 1, got %d", sample.ID)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestEquityRepositoryGetSince(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock: %v", err)
	}
	defer db.Close()

	from := time.Now().Add(-24 * time.Hour)
	rows := sqlmock.NewRows([]string{"id", "timestamp", "equity"}).
		AddRow(1, from.Add(time.Hour), 10000.0).
		AddRow(2, from.Add(2*time.Hour), 10100.0)

	mock.ExpectQuery(`FROM equity_curve\s+WHERE timestamp >= \$1`).
		WithArgs(from).
		WillReturnRows(rows)

	repo := NewEquityRepository(db)
	samples, err := repo.GetSince(from)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(samples) != 2 {
		t.Fatalf("expected 2 samples, got %d", len(samples))
	}
	if !samples[0].Timestamp.Before(samples[1].Timestamp) {
		t.Error("samples must be in chronological order")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestAlertRepositoryCreateAndGetRecent(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery(`INSERT INTO alerts`).
		WithArgs(sqlmock.AnyArg(), "⚠️ BTCUSDT: RSI 75.3 выше порога 70").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))

	rows := sqlmock.NewRows([]string{"id", "timestamp", "message"}).
		AddRow(1, time.Now(), "⚠️ BTCUSDT: RSI 75.3 выше порога 70")

	mock.ExpectQuery(`FROM alerts`).
		WithArgs(50).
		WillReturnRows(rows)

	repo := NewAlertRepository(db)

	alert := &models.AlertEvent{Message: "⚠️ BTCUSDT: RSI 75.3 выше порога 70"}
	if err := repo.Create(alert); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	alerts, err := repo.GetRecent(50)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(alerts) != 1 {
		t.Fatalf("expected 1 alert, got %d", len(alerts))
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}
