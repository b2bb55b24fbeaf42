package handlers

import (
	"net/http"
	"time"

	"autotrader/internal/models"
)

// EquityReader читает временной ряд капитала
type EquityReader interface {
	GetRecent(limit int) ([]*models.EquitySample, error)
	GetSince(from time.Time) ([]*models.EquitySample, error)
}

// AlertReader читает журнал алертов
type AlertReader interface {
	GetRecent(limit int) ([]*models.AlertEvent, error)
}

// SafetyReader читает журнал безопасности
type SafetyReader interface {
	GetRecent(limit int) ([]*models.SafetyEvent, error)
	GetByReason(reason string, limit int) ([]*models.SafetyEvent, error)
}

// JournalHandler отдаёт read-only журналы дашборду
//
// Endpoints:
// - GET /api/v1/equity - временной ряд капитала
// - GET /api/v1/alerts - журнал алертов
// - GET /api/v1/safety - журнал отменённых ордеров
type JournalHandler struct {
	equity EquityReader
	alerts AlertReader
	safety SafetyReader
}

// NewJournalHandler создает новый JournalHandler с внедрением зависимостей
func NewJournalHandler(equity EquityReader, alerts AlertReader, safety SafetyReader) *JournalHandler {
	return &JournalHandler{
		equity: equity,
		alerts: alerts,
		safety: safety,
	}
}

// GetEquityResponse представляет ответ временного ряда капитала
type GetEquityResponse struct {
	Samples []*models.EquitySample `json:"samples"`
	Total   int                    `json:"total"`
}

// GetEquity возвращает временной ряд капитала
//
// GET /api/v1/equity
//
// Query параметры:
// - limit (int): количество последних точек (по умолчанию 100, максимум 500)
// - since (RFC3339): все точки начиная с момента, в хронологическом
//   порядке; имеет приоритет над limit
func (h *JournalHandler) GetEquity(w http.ResponseWriter, r *http.Request) {
	var (
		samples []*models.EquitySample
		err     error
	)

	if raw := r.URL.Query().Get("since"); raw != "" {
		from, parseErr := time.Parse(time.RFC3339, raw)
		if parseErr != nil {
			respondWithError(w, http.StatusBadRequest, "invalid since parameter, expected RFC3339 timestamp")
			return
		}
		samples, err = h.equity.GetSince(from)
	} else {
		samples, err = h.equity.GetRecent(parseLimit(r))
	}
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "failed to get equity curve: "+err.Error())
		return
	}

	respondWithJSON(w, http.StatusOK, GetEquityResponse{
		Samples: samples,
		Total:   len(samples),
	})
}

// GetAlertsResponse представляет ответ журнала алертов
type GetAlertsResponse struct {
	Alerts []*models.AlertEvent `json:"alerts"`
	Total  int                  `json:"total"`
}

// GetAlerts возвращает последние записи журнала алертов
//
// GET /api/v1/alerts
//
// Query параметры:
// - limit (int): количество записей (по умолчанию 100, максимум 500)
func (h *JournalHandler) GetAlerts(w http.ResponseWriter, r *http.Request) {
	alerts, err := h.alerts.GetRecent(parseLimit(r))
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "failed to get alerts: "+err.Error())
		return
	}

	respondWithJSON(w, http.StatusOK, GetAlertsResponse{
		Alerts: alerts,
		Total:  len(alerts),
	})
}

// GetSafetyResponse представляет ответ журнала безопасности
type GetSafetyResponse struct {
	Events []*models.SafetyEvent `json:"events"`
	Total  int                   `json:"total"`
}

// GetSafety возвращает последние записи журнала безопасности
//
// GET /api/v1/safety
//
// Query параметры:
// - limit (int): количество записей (по умолчанию 100, максимум 500)
// - reason (string): фильтр по причине (high_volatility, stale_order)
func (h *JournalHandler) GetSafety(w http.ResponseWriter, r *http.Request) {
	limit := parseLimit(r)
	reason := r.URL.Query().Get("reason")

	if reason != "" && reason != models.ReasonHighVolatility && reason != models.ReasonStaleOrder {
		respondWithError(w, http.StatusBadRequest, "unknown reason, expected high_volatility or stale_order")
		return
	}

	var (
		events []*models.SafetyEvent
		err    error
	)
	if reason != "" {
		events, err = h.safety.GetByReason(reason, limit)
	} else {
		events, err = h.safety.GetRecent(limit)
	}
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "failed to get safety events: "+err.Error())
		return
	}

	respondWithJSON(w, http.StatusOK, GetSafetyResponse{
		Events: events,
		Total:  len(events),
	})
}
