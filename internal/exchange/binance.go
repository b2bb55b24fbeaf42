package exchange

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	jsoniter "github.com/json-iterator/go"

	"autotrader/internal/models"
	"autotrader/pkg/ratelimit"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const binanceRecvWindow = "5000"

// Binance реализует интерфейс Exchange для спотового API Binance
type Binance struct {
	baseURL   string
	apiKey    string
	secretKey string

	httpClient *http.Client
	limiter    *ratelimit.RateLimiter

	// symbols ограничивает Get24hTickers отслеживаемым набором:
	// /ticker/24hr без фильтра возвращает тысячи символов
	symbols map[string]bool
}

// BinanceConfig - параметры коннектора
type BinanceConfig struct {
	BaseURL   string
	APIKey    string
	SecretKey string
	Symbols   []string
	RateLimit float64
	RateBurst float64
}

// NewBinance создаёт новый коннектор Binance.
// Все запросы проходят через общий rate limiter и пул соединений.
func NewBinance(cfg BinanceConfig, client *http.Client) *Binance {
	if client == nil {
		client = NewHTTPClient(DefaultHTTPClientConfig())
	}

	symbols := make(map[string]bool, len(cfg.Symbols))
	for _, s := range cfg.Symbols {
		symbols[s] = true
	}

	return &Binance{
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		secretKey:  cfg.SecretKey,
		httpClient: client,
		limiter:    ratelimit.NewRateLimiter(cfg.RateLimit, cfg.RateBurst),
		symbols:    symbols,
	}
}

// sign создаёт HMAC-SHA256 подпись строки запроса
func (b *Binance) sign(query string) string {
	h := hmac.New(sha256.New, []byte(b.secretKey))
	h.Write([]byte(query))
	return hex.EncodeToString(h.Sum(nil))
}

// apiError - тело ошибки Binance API
type apiError struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
}

// doRequest выполняет HTTP запрос к API с учётом rate limit и подписи
func (b *Binance) doRequest(ctx context.Context, method, endpoint string, params url.Values, signed bool) ([]byte, error) {
	if err := b.limiter.Wait(ctx); err != nil {
		return nil, &ExchangeError{Code: CodeUnavailable, Message: "rate limiter wait cancelled", Original: err}
	}

	if params == nil {
		params = url.Values{}
	}

	if signed {
		params.Set("timestamp", strconv.FormatInt(time.Now().UnixMilli(), 10))
		params.Set("recvWindow", binanceRecvWindow)
		params.Set("signature", b.sign(params.Encode()))
	}

	reqURL := b.baseURL + endpoint
	if encoded := params.Encode(); encoded != "" {
		reqURL += "?" + encoded
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, nil)
	if err != nil {
		return nil, &ExchangeError{Code: CodeBadRequest, Message: "build request", Original: err}
	}

	if signed {
		req.Header.Set("X-MBX-APIKEY", b.apiKey)
	}

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return nil, &ExchangeError{Code: CodeUnavailable, Message: "request failed", Original: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &ExchangeError{Code: CodeUnavailable, Message: "read response", Original: err}
	}

	if resp.StatusCode == http.StatusOK {
		return body, nil
	}

	// Разбираем тело ошибки, чтобы отличить transient от fatal
	var apiErr apiError
	_ = json.Unmarshal(body, &apiErr)

	return nil, classifyHTTPError(resp.StatusCode, apiErr)
}

// classifyHTTPError переводит HTTP статус в ExchangeError с кодом taxonomy
func classifyHTTPError(status int, apiErr apiError) *ExchangeError {
	msg := apiErr.Msg
	if msg == "" {
		msg = http.StatusText(status)
	}

	switch {
	case status == http.StatusTooManyRequests || status == 418:
		// 418 - бан за превышение лимитов
		return &ExchangeError{Code: CodeRateLimited, Message: msg}
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return &ExchangeError{Code: CodeAuth, Message: msg}
	case status >= 500:
		return &ExchangeError{Code: CodeUnavailable, Message: msg}
	case apiErr.Code == -2010 || apiErr.Code == -2011:
		// -2010: недостаточно средств / ордер отклонён, -2011: отмена отклонена
		return &ExchangeError{Code: CodeRejected, Message: msg}
	default:
		return &ExchangeError{Code: CodeBadRequest, Message: msg}
	}
}

// ============================================================
// Рыночные данные
// ============================================================

type tickerResponse struct {
	Symbol      string `json:"symbol"`
	LastPrice   string `json:"lastPrice"`
	QuoteVolume string `json:"quoteVolume"`
}

// Get24hTickers возвращает 24h снапшоты по отслеживаемым символам
func (b *Binance) Get24hTickers(ctx context.Context) ([]models.TickerSnapshot, error) {
	body, err := b.doRequest(ctx, http.MethodGet, "/api/v3/ticker/24hr", nil, false)
	if err != nil {
		return nil, err
	}

	var raw []tickerResponse
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, &ExchangeError{Code: CodeUnavailable, Message: "decode tickers", Original: err}
	}

	snapshots := make([]models.TickerSnapshot, 0, len(b.symbols))
	for _, t := range raw {
		if !b.symbols[t.Symbol] {
			continue
		}
		last, err1 := strconv.ParseFloat(t.LastPrice, 64)
		vol, err2 := strconv.ParseFloat(t.QuoteVolume, 64)
		if err1 != nil || err2 != nil {
			continue
		}
		snapshots = append(snapshots, models.TickerSnapshot{
			Symbol:         t.Symbol,
			LastPrice:      last,
			QuoteVolume24h: vol,
		})
	}

	return snapshots, nil
}

// GetCandles возвращает OHLCV свечи в хронологическом порядке
func (b *Binance) GetCandles(ctx context.Context, symbol, interval string, limit int) ([]models.Candle, error) {
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("interval", interval)
	params.Set("limit", strconv.Itoa(limit))

	body, err := b.doRequest(ctx, http.MethodGet, "/api/v3/klines", params, false)
	if err != nil {
		return nil, err
	}

	// Kline приходит смешанным массивом:
	// [openTime, "open", "high", "low", "close", "volume", closeTime, ...]
	var raw [][]interface{}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, &ExchangeError{Code: CodeUnavailable, Message: "decode klines", Original: err}
	}

	candles := make([]models.Candle, 0, len(raw))
	for _, k := range raw {
		if len(k) < 6 {
			continue
		}
		openTime, ok := k[0].(float64)
		if !ok {
			continue
		}
		open, err1 := parseKlineField(k[1])
		high, err2 := parseKlineField(k[2])
		low, err3 := parseKlineField(k[3])
		closePrice, err4 := parseKlineField(k[4])
		volume, err5 := parseKlineField(k[5])
		if err1 != nil || err2 != nil || err3 != nil || err4 != nil || err5 != nil {
			continue
		}
		candles = append(candles, models.Candle{
			OpenTime: time.UnixMilli(int64(openTime)),
			Open:     open,
			High:     high,
			Low:      low,
			Close:    closePrice,
			Volume:   volume,
		})
	}

	return candles, nil
}

func parseKlineField(v interface{}) (float64, error) {
	s, ok := v.(string)
	if !ok {
		return 0, fmt.Errorf("unexpected kline field type %T", v)
	}
	return strconv.ParseFloat(s, 64)
}

// GetSymbolPrice возвращает текущую спотовую цену
func (b *Binance) GetSymbolPrice(ctx context.Context, symbol string) (float64, error) {
	params := url.Values{}
	params.Set("symbol", symbol)

	body, err := b.doRequest(ctx, http.MethodGet, "/api/v3/ticker/price", params, false)
	if err != nil {
		return 0, err
	}

	var resp struct {
		Price string `json:"price"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return 0, &ExchangeError{Code: CodeUnavailable, Message: "decode price", Original: err}
	}

	price, err := strconv.ParseFloat(resp.Price, 64)
	if err != nil {
		return 0, &ExchangeError{Code: CodeUnavailable, Message: "parse price", Original: err}
	}

	return price, nil
}

// ============================================================
// Аккаунт и ордера
// ============================================================

// GetBalances возвращает ненулевые остатки аккаунта
func (b *Binance) GetBalances(ctx context.Context) ([]models.Balance, error) {
	body, err := b.doRequest(ctx, http.MethodGet, "/api/v3/account", nil, true)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Balances []struct {
			Asset  string `json:"asset"`
			Free   string `json:"free"`
			Locked string `json:"locked"`
		} `json:"balances"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &ExchangeError{Code: CodeUnavailable, Message: "decode account", Original: err}
	}

	var balances []models.Balance
	for _, bal := range resp.Balances {
		free, err1 := strconv.ParseFloat(bal.Free, 64)
		locked, err2 := strconv.ParseFloat(bal.Locked, 64)
		if err1 != nil || err2 != nil {
			continue
		}
		total := free + locked
		if total <= 0 {
			continue
		}
		balances = append(balances, models.Balance{Asset: bal.Asset, Free: total})
	}

	return balances, nil
}

// GetOpenOrders возвращает все открытые ордера аккаунта
func (b *Binance) GetOpenOrders(ctx context.Context) ([]models.OpenOrder, error) {
	body, err := b.doRequest(ctx, http.MethodGet, "/api/v3/openOrders", nil, true)
	if err != nil {
		return nil, err
	}

	var raw []struct {
		OrderID int64  `json:"orderId"`
		Symbol  string `json:"symbol"`
		Side    string `json:"side"`
		OrigQty string `json:"origQty"`
		Price   string `json:"price"`
		Time    int64  `json:"time"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, &ExchangeError{Code: CodeUnavailable, Message: "decode open orders", Original: err}
	}

	orders := make([]models.OpenOrder, 0, len(raw))
	for _, o := range raw {
		qty, err1 := strconv.ParseFloat(o.OrigQty, 64)
		price, err2 := strconv.ParseFloat(o.Price, 64)
		if err1 != nil || err2 != nil {
			continue
		}
		orders = append(orders, models.OpenOrder{
			ID:        strconv.FormatInt(o.OrderID, 10),
			Symbol:    o.Symbol,
			Side:      o.Side,
			Quantity:  qty,
			Price:     price,
			CreatedAt: time.UnixMilli(o.Time),
		})
	}

	return orders, nil
}

// SubmitOrder отправляет рыночный ордер, возвращает ID ордера биржи
func (b *Binance) SubmitOrder(ctx context.Context, symbol, side string, qty float64) (string, error) {
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("side", side)
	params.Set("type", "MARKET")
	params.Set("quantity", strconv.FormatFloat(qty, 'f', -1, 64))

	body, err := b.doRequest(ctx, http.MethodPost, "/api/v3/order", params, true)
	if err != nil {
		return "", err
	}

	var resp struct {
		OrderID int64  `json:"orderId"`
		Status  string `json:"status"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", &ExchangeError{Code: CodeUnavailable, Message: "decode order response", Original: err}
	}

	if resp.Status == "REJECTED" {
		return "", &ExchangeError{Code: CodeRejected, Message: "order rejected by exchange"}
	}

	return strconv.FormatInt(resp.OrderID, 10), nil
}

// CancelOrder отменяет открытый ордер
func (b *Binance) CancelOrder(ctx context.Context, symbol, orderID string) error {
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("orderId", orderID)

	_, err := b.doRequest(ctx, http.MethodDelete, "/api/v3/order", params, true)
	return err
}
