package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"autotrader/internal/exchange"
	"autotrader/internal/models"
	"autotrader/internal/trader"
)

// TradeReader читает журнал сделок
type TradeReader interface {
	GetRecent(limit int) ([]*models.TradeRecord, error)
	GetBySymbol(symbol string, limit int) ([]*models.TradeRecord, error)
}

// OrderPlacer - путь размещения ордера с контролем риска
type OrderPlacer interface {
	PlaceOrderWithRisk(ctx context.Context, symbol, side string, entry float64, method string, winRate, winLossRatio, slPct, tpPct float64) (*models.TradeRecord, error)
}

// PriceSource отдаёт текущую спотовую цену символа
type PriceSource interface {
	GetSymbolPrice(ctx context.Context, symbol string) (float64, error)
}

// ManualTradeDefaults - параметры риска, подставляемые в ручную сделку,
// когда запрос их не указывает
type ManualTradeDefaults struct {
	Method       string
	WinRate      float64
	WinLossRatio float64
	SLPct        float64
	TPPct        float64
}

// TradeHandler отвечает за журнал сделок и единственный путь записи
//
// Endpoints:
// - GET /api/v1/trades - последние сделки (limit, symbol)
// - POST /api/v1/trades/manual - ручная сделка через риск-менеджер
type TradeHandler struct {
	trades   TradeReader
	placer   OrderPlacer
	prices   PriceSource
	defaults ManualTradeDefaults
}

// NewTradeHandler создает новый TradeHandler с внедрением зависимостей
func NewTradeHandler(trades TradeReader, placer OrderPlacer, prices PriceSource, defaults ManualTradeDefaults) *TradeHandler {
	return &TradeHandler{
		trades:   trades,
		placer:   placer,
		prices:   prices,
		defaults: defaults,
	}
}

// GetTradesResponse представляет ответ списка сделок
type GetTradesResponse struct {
	Trades []*models.TradeRecord `json:"trades"`
	Total  int                   `json:"total"`
}

// GetTrades возвращает последние записи журнала сделок
//
// GET /api/v1/trades
//
// Query параметры:
// - limit (int): количество записей (по умолчанию 100, максимум 500)
// - symbol (string): фильтр по символу
func (h *TradeHandler) GetTrades(w http.ResponseWriter, r *http.Request) {
	limit := parseLimit(r)
	symbol := r.URL.Query().Get("symbol")

	var (
		trades []*models.TradeRecord
		err    error
	)
	if symbol != "" {
		trades, err = h.trades.GetBySymbol(symbol, limit)
	} else {
		trades, err = h.trades.GetRecent(limit)
	}
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "failed to get trades: "+err.Error())
		return
	}

	respondWithJSON(w, http.StatusOK, GetTradesResponse{
		Trades: trades,
		Total:  len(trades),
	})
}

// ManualTradeRequest - тело запроса ручной сделки.
// Entry опционален: при нуле берётся текущая спотовая цена.
// Параметры риска опциональны, по умолчанию из конфигурации.
type ManualTradeRequest struct {
	Symbol       string  `json:"symbol"`
	Side         string  `json:"side"`
	Entry        float64 `json:"entry,omitempty"`
	Method       string  `json:"method,omitempty"`
	WinRate      float64 `json:"win_rate,omitempty"`
	WinLossRatio float64 `json:"win_loss_ratio,omitempty"`
	SLPct        float64 `json:"sl_pct,omitempty"`
	TPPct        float64 `json:"tp_pct,omitempty"`
}

// CreateManualTrade размещает ордер вручную через риск-менеджер
//
// POST /api/v1/trades/manual
//
// Размер позиции всегда рассчитывает риск-менеджер, запрос его
// не задаёт. Это тот же путь, которым ходят автоторговля и
// LLM-ассистент.
//
// HTTP коды:
// - 201 Created: ордер размещён, возвращает запись журнала
// - 400 Bad Request: невалидное тело или параметры
// - 422 Unprocessable Entity: биржа отклонила ордер
// - 502 Bad Gateway: не удалось получить цену или разместить ордер
func (h *TradeHandler) CreateManualTrade(w http.ResponseWriter, r *http.Request) {
	var req ManualTradeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	if req.Symbol == "" {
		respondWithError(w, http.StatusBadRequest, "symbol is required")
		return
	}
	if req.Side != models.SideBuy && req.Side != models.SideSell {
		respondWithError(w, http.StatusBadRequest, "side must be BUY or SELL")
		return
	}

	entry := req.Entry
	if entry == 0 {
		price, err := h.prices.GetSymbolPrice(r.Context(), req.Symbol)
		if err != nil {
			respondWithError(w, http.StatusBadGateway, "failed to resolve entry price: "+err.Error())
			return
		}
		entry = price
	}

	method := req.Method
	if method == "" {
		method = h.defaults.Method
	}
	winRate := req.WinRate
	if winRate == 0 {
		winRate = h.defaults.WinRate
	}
	winLossRatio := req.WinLossRatio
	if winLossRatio == 0 {
		winLossRatio = h.defaults.WinLossRatio
	}
	slPct := req.SLPct
	if slPct == 0 {
		slPct = h.defaults.SLPct
	}
	tpPct := req.TPPct
	if tpPct == 0 {
		tpPct = h.defaults.TPPct
	}

	trade, err := h.placer.PlaceOrderWithRisk(r.Context(), req.Symbol, req.Side, entry, method, winRate, winLossRatio, slPct, tpPct)
	if err != nil {
		switch {
		case errors.Is(err, trader.ErrInvalidMethod), errors.Is(err, trader.ErrNonPositiveEntry):
			respondWithError(w, http.StatusBadRequest, err.Error())
		case exchange.IsRejected(err):
			respondWithError(w, http.StatusUnprocessableEntity, "order rejected: "+err.Error())
		default:
			respondWithError(w, http.StatusBadGateway, "failed to place order: "+err.Error())
		}
		return
	}

	respondWithJSON(w, http.StatusCreated, trade)
}
