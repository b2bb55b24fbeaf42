package trader

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ============================================================
// Prometheus метрики торгового ядра
// ============================================================
//
// Использование:
// - Grafana дашборды поверх /metrics
// - Alertmanager для уведомлений о деградации циклов

// ============ Метрики сканирования ============

// ScanDuration - длительность полного прохода ScanAndRank
var ScanDuration = promauto.NewHistogram(
	prometheus.HistogramOpts{
		Namespace: "autotrader",
		Subsystem: "signals",
		Name:      "scan_duration_seconds",
		Help:      "Duration of a full scan-and-rank pass in seconds",
		Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	},
)

// SymbolsSkipped - символы, пропущенные при скане
var SymbolsSkipped = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "autotrader",
		Subsystem: "signals",
		Name:      "symbols_skipped_total",
		Help:      "Symbols skipped during scan by cause",
	},
	[]string{"cause"}, // fetch_error, insufficient_data, disqualified
)

// ============ Метрики ордеров ============

// OrdersPlaced - размещённые ордера
var OrdersPlaced = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "autotrader",
		Subsystem: "orders",
		Name:      "placed_total",
		Help:      "Total number of placed orders",
	},
	[]string{"symbol", "side", "method"},
)

// OrdersRejected - отклонённые биржей ордера
var OrdersRejected = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "autotrader",
		Subsystem: "orders",
		Name:      "rejected_total",
		Help:      "Total number of orders rejected by the exchange",
	},
	[]string{"symbol"},
)

// OrdersCancelled - ордера, отменённые риск-контролем
var OrdersCancelled = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "autotrader",
		Subsystem: "orders",
		Name:      "cancelled_total",
		Help:      "Total number of orders cancelled by risk control",
	},
	[]string{"symbol", "reason"}, // high_volatility, stale_order
)

// ============ Метрики состояния ============

// AccountEquity - последний снапшот капитала в USDT
var AccountEquity = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: "autotrader",
		Subsystem: "account",
		Name:      "equity_usdt",
		Help:      "Last observed account equity in USDT",
	},
)

// OpenOrdersCount - количество открытых ордеров при последней проверке
var OpenOrdersCount = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: "autotrader",
		Subsystem: "orders",
		Name:      "open_count",
		Help:      "Open orders observed at last risk check",
	},
)

// ============ Метрики кэша ============

// CacheRequests - обращения к рыночным кэшам
var CacheRequests = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "autotrader",
		Subsystem: "cache",
		Name:      "requests_total",
		Help:      "Market data cache requests",
	},
	[]string{"cache", "result"}, // cache: tickers, equity; result: hit, refresh, error
)

// UpstreamErrors - ошибки обращений к бирже по типам запросов
var UpstreamErrors = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "autotrader",
		Subsystem: "exchange",
		Name:      "upstream_errors_total",
		Help:      "Exchange request failures by call type",
	},
	[]string{"call"}, // tickers, candles, balances, price, open_orders, submit, cancel
)
