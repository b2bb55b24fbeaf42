package assistant

import (
	"context"
	"errors"
	"fmt"
	"time"

	"autotrader/internal/models"
	"autotrader/pkg/utils"
)

// Ошибки диспетчеризации
var (
	// ErrUnknownFunction - модель запросила незарегистрированную
	// функцию. Fail closed: вызов отклоняется.
	ErrUnknownFunction = errors.New("unknown function name")

	// ErrInvalidArguments - аргументы не прошли валидацию схемы
	ErrInvalidArguments = errors.New("invalid function arguments")
)

// Function - зарегистрированная функция: схема для модели,
// валидатор аргументов и типизированный обработчик.
type Function struct {
	Schema   FunctionSchema
	Validate func(args map[string]interface{}) error
	Handle   func(ctx context.Context, args map[string]interface{}) (string, error)
}

// Registry - закрытый реестр функций, доступных модели.
//
// Динамический lookup по имени в глобальном пространстве имён
// недопустим: только явно зарегистрированные функции, всё
// остальное отклоняется до вызова обработчика.
type Registry struct {
	funcs map[string]Function
	log   *utils.Logger
}

// NewRegistry создает пустой реестр
func NewRegistry(log *utils.Logger) *Registry {
	return &Registry{
		funcs: make(map[string]Function),
		log:   log.WithComponent("function_registry"),
	}
}

// Register добавляет функцию в реестр
func (r *Registry) Register(f Function) {
	r.funcs[f.Schema.Name] = f
}

// Schemas возвращает декларации всех зарегистрированных функций
// для передачи completion-сервису
func (r *Registry) Schemas() []FunctionSchema {
	schemas := make([]FunctionSchema, 0, len(r.funcs))
	for _, f := range r.funcs {
		schemas = append(schemas, f.Schema)
	}
	return schemas
}

// Dispatch валидирует и выполняет запрошенный моделью вызов.
// Неизвестное имя и невалидные аргументы отклоняются до вызова.
func (r *Registry) Dispatch(ctx context.Context, call *FunctionCall) (string, error) {
	f, ok := r.funcs[call.Name]
	if !ok {
		r.log.Warn("rejected unknown function call", utils.String("function", call.Name))
		return "", fmt.Errorf("%w: %q", ErrUnknownFunction, call.Name)
	}

	if f.Validate != nil {
		if err := f.Validate(call.Arguments); err != nil {
			r.log.Warn("rejected function call, invalid arguments",
				utils.String("function", call.Name),
				utils.Err(err))
			return "", err
		}
	}

	return f.Handle(ctx, call.Arguments)
}

// ============================================================
// place_order
// ============================================================

// OrderPlacer - контракт риск-менеджера для ручного размещения
type OrderPlacer interface {
	PlaceOrderWithRisk(ctx context.Context, symbol, side string, entry float64, method string, winRate, winLossRatio, slPct, tpPct float64) (*models.TradeRecord, error)
}

// PriceSource отдаёт текущую спотовую цену символа
type PriceSource interface {
	GetSymbolPrice(ctx context.Context, symbol string) (float64, error)
}

// PlaceOrderDefaults - параметры риска, подставляемые при вызове
// place_order (модель их не контролирует)
type PlaceOrderDefaults struct {
	Method       string
	WinRate      float64
	WinLossRatio float64
	SLPct        float64
	TPPct        float64
	Timeout      time.Duration
}

// placeOrderArgs - типизированные аргументы place_order
type placeOrderArgs struct {
	Symbol string
	Side   string
	Qty    float64
}

// parsePlaceOrderArgs валидирует аргументы против схемы:
// symbol - непустая строка, side из {BUY, SELL}, qty > 0
func parsePlaceOrderArgs(args map[string]interface{}) (placeOrderArgs, error) {
	var out placeOrderArgs

	symbol, ok := args["symbol"].(string)
	if !ok || symbol == "" {
		return out, fmt.Errorf("%w: symbol must be a non-empty string", ErrInvalidArguments)
	}

	side, ok := args["side"].(string)
	if !ok || (side != models.SideBuy && side != models.SideSell) {
		return out, fmt.Errorf("%w: side must be BUY or SELL", ErrInvalidArguments)
	}

	qty, ok := args["qty"].(float64)
	if !ok || qty <= 0 {
		return out, fmt.Errorf("%w: qty must be a positive number", ErrInvalidArguments)
	}

	out.Symbol = symbol
	out.Side = side
	out.Qty = qty
	return out, nil
}

// NewPlaceOrderFunction собирает единственную функцию реестра.
//
// Запрошенное моделью количество валидируется, но финальный размер
// определяет риск-менеджер: вход берётся по текущей цене, размер -
// из риск-бюджета с настроенными по умолчанию параметрами.
func NewPlaceOrderFunction(placer OrderPlacer, prices PriceSource, defaults PlaceOrderDefaults, log *utils.Logger) Function {
	log = log.WithComponent("place_order")

	return Function{
		Schema: FunctionSchema{
			Name:        "place_order",
			Description: "Place a market order on the exchange under the configured risk budget",
			Parameters: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"symbol": map[string]interface{}{"type": "string"},
					"side":   map[string]interface{}{"type": "string", "enum": []string{models.SideBuy, models.SideSell}},
					"qty":    map[string]interface{}{"type": "number"},
				},
				"required": []string{"symbol", "side", "qty"},
			},
		},
		Validate: func(args map[string]interface{}) error {
			_, err := parsePlaceOrderArgs(args)
			return err
		},
		Handle: func(ctx context.Context, args map[string]interface{}) (string, error) {
			parsed, err := parsePlaceOrderArgs(args)
			if err != nil {
				return "", err
			}

			priceCtx, cancel := context.WithTimeout(ctx, defaults.Timeout)
			entry, err := prices.GetSymbolPrice(priceCtx, parsed.Symbol)
			cancel()
			if err != nil {
				return "", fmt.Errorf("resolve entry price for %s: %w", parsed.Symbol, err)
			}

			trade, err := placer.PlaceOrderWithRisk(ctx, parsed.Symbol, parsed.Side, entry,
				defaults.Method, defaults.WinRate, defaults.WinLossRatio,
				defaults.SLPct, defaults.TPPct)
			if err != nil {
				return "", err
			}

			log.Info("assistant order placed",
				utils.Symbol(parsed.Symbol),
				utils.Side(parsed.Side),
				utils.Quantity(trade.Quantity),
				utils.Float64("requested_qty", parsed.Qty))

			return fmt.Sprintf("Placed %s %s: qty %.8f at %.4f (sl %.4f, tp %.4f)",
				parsed.Side, parsed.Symbol, trade.Quantity, trade.Entry, trade.StopLoss, trade.TakeProfit), nil
		},
	}
}
