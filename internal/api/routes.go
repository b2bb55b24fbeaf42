package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"autotrader/internal/api/handlers"
	"autotrader/internal/api/middleware"
	"autotrader/internal/websocket"
	"autotrader/pkg/utils"
)

// Dependencies - зависимости HTTP слоя.
// Nil-поля допустимы: соответствующие маршруты просто не регистрируются,
// что позволяет поднимать частичный сервер в тестах.
type Dependencies struct {
	Trades    *handlers.TradeHandler
	Journal   *handlers.JournalHandler
	Signals   *handlers.SignalHandler
	Assistant *handlers.AssistantHandler

	Hub *websocket.Hub

	// APITokenHash - bcrypt хеш токена для пути записи
	APITokenHash string

	Logger *utils.Logger
}

// SetupRoutes настраивает маршрутизацию HTTP API
//
// Структура маршрутов:
//
//	/api/v1/trades          GET  журнал сделок
//	/api/v1/trades/manual   POST ручная сделка (bearer-токен)
//	/api/v1/equity          GET  временной ряд капитала
//	/api/v1/alerts          GET  журнал алертов
//	/api/v1/safety          GET  журнал безопасности
//	/api/v1/signals         GET  текущие ранжированные сигналы
//	/api/v1/assistant       POST диалог с ассистентом (bearer-токен)
//	/ws/stream              WebSocket поток событий
//	/metrics                Prometheus метрики
//	/health                 проверка живости
func SetupRoutes(deps *Dependencies) *mux.Router {
	log := deps.Logger
	router := mux.NewRouter()

	router.Use(middleware.Recovery(log))
	router.Use(middleware.Logging(log))
	router.Use(middleware.CORS)

	api := router.PathPrefix("/api/v1").Subrouter()

	if deps.Trades != nil {
		api.HandleFunc("/trades", deps.Trades.GetTrades).Methods("GET")

		// Единственный путь записи, закрыт bearer-токеном
		manual := api.PathPrefix("/trades/manual").Subrouter()
		manual.Use(middleware.BearerAuth(deps.APITokenHash, log))
		manual.HandleFunc("", deps.Trades.CreateManualTrade).Methods("POST")
	}

	if deps.Journal != nil {
		api.HandleFunc("/equity", deps.Journal.GetEquity).Methods("GET")
		api.HandleFunc("/alerts", deps.Journal.GetAlerts).Methods("GET")
		api.HandleFunc("/safety", deps.Journal.GetSafety).Methods("GET")
	}

	if deps.Signals != nil {
		api.HandleFunc("/signals", deps.Signals.GetSignals).Methods("GET")
	}

	if deps.Assistant != nil {
		// Ассистент умеет размещать ордера, поэтому закрыт тем же токеном
		ai := api.PathPrefix("/assistant").Subrouter()
		ai.Use(middleware.BearerAuth(deps.APITokenHash, log))
		ai.HandleFunc("", deps.Assistant.Ask).Methods("POST")
	}

	if deps.Hub != nil {
		router.HandleFunc("/ws/stream", func(w http.ResponseWriter, r *http.Request) {
			websocket.ServeWS(deps.Hub, w, r)
		})
	}

	router.Handle("/metrics", promhttp.Handler()).Methods("GET")

	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}).Methods("GET")

	return router
}
