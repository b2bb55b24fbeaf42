package handlers

import (
	"context"
	"net/http"
	"strconv"

	"autotrader/internal/models"
)

// SignalScanner пересчитывает и ранжирует сигналы по текущему рынку
type SignalScanner interface {
	ScanAndRank(ctx context.Context, limit int) ([]models.Signal, error)
}

// SignalHandler отдаёт расчётные сигналы дашборду.
// Сигналы не персистятся, каждый запрос пересчитывает их поверх
// кэшированных тикеров.
type SignalHandler struct {
	scanner SignalScanner
}

// NewSignalHandler создает новый SignalHandler
func NewSignalHandler(scanner SignalScanner) *SignalHandler {
	return &SignalHandler{scanner: scanner}
}

// GetSignalsResponse представляет ответ списка сигналов
type GetSignalsResponse struct {
	Signals []models.Signal `json:"signals"`
	Total   int             `json:"total"`
}

// GetSignals возвращает ранжированные сигналы по убыванию trend score
//
// GET /api/v1/signals
//
// Query параметры:
// - limit (int): количество сигналов (по умолчанию 10, максимум 50)
func (h *SignalHandler) GetSignals(w http.ResponseWriter, r *http.Request) {
	limit := 10
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	if limit > 50 {
		limit = 50
	}

	signals, err := h.scanner.ScanAndRank(r.Context(), limit)
	if err != nil {
		respondWithError(w, http.StatusBadGateway, "failed to scan signals: "+err.Error())
		return
	}

	respondWithJSON(w, http.StatusOK, GetSignalsResponse{
		Signals: signals,
		Total:   len(signals),
	})
}
