package exchange

import (
	"context"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newTestBinance(t *testing.T, handler http.HandlerFunc) (*Binance, *httptest.Server) {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	b := NewBinance(BinanceConfig{
		BaseURL:   srv.URL,
		APIKey:    "test-key",
		SecretKey: "test-secret",
		Symbols:   []string{"BTCUSDT", "ETHUSDT"},
		RateLimit: 1000,
		RateBurst: 1000,
	}, srv.Client())

	return b, srv
}

func TestBinance_Get24hTickers_FiltersTrackedSymbols(t *testing.T) {
	b, _ := newTestBinance(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v3/ticker/24hr" {
			t.Errorf("неожиданный путь: %s", r.URL.Path)
		}
		w.Write([]byte(`[
			{"symbol":"BTCUSDT","lastPrice":"50000.00","quoteVolume":"2000000.5"},
			{"symbol":"DOGEUSDT","lastPrice":"0.1","quoteVolume":"900000"},
			{"symbol":"ETHUSDT","lastPrice":"3000.00","quoteVolume":"1500000"}
		]`))
	})

	tickers, err := b.Get24hTickers(context.Background())
	if err != nil {
		t.Fatalf("ошибка не ожидалась: %v", err)
	}

	if len(tickers) != 2 {
		t.Fatalf("ожидалось 2 тикера, получено %d", len(tickers))
	}

	if tickers[0].Symbol != "BTCUSDT" || tickers[0].LastPrice != 50000.00 {
		t.Errorf("неверный первый тикер: %+v", tickers[0])
	}
	if tickers[1].QuoteVolume24h != 1500000 {
		t.Errorf("неверный объём: %v", tickers[1].QuoteVolume24h)
	}
}

func TestBinance_GetCandles(t *testing.T) {
	b, _ := newTestBinance(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("symbol") != "BTCUSDT" || q.Get("interval") != "15m" || q.Get("limit") != "2" {
			t.Errorf("неверные параметры запроса: %s", r.URL.RawQuery)
		}
		w.Write([]byte(`[
			[1700000000000,"100.0","110.0","95.0","105.0","1234.5",1700000899999,"0",10,"0","0","0"],
			[1700000900000,"105.0","115.0","100.0","110.0","2345.6",1700001799999,"0",12,"0","0","0"]
		]`))
	})

	candles, err := b.GetCandles(context.Background(), "BTCUSDT", "15m", 2)
	if err != nil {
		t.Fatalf("ошибка не ожидалась: %v", err)
	}

	if len(candles) != 2 {
		t.Fatalf("ожидалось 2 свечи, получено %d", len(candles))
	}
	if candles[0].Close != 105.0 || candles[1].Close != 110.0 {
		t.Errorf("неверные цены закрытия: %v, %v", candles[0].Close, candles[1].Close)
	}
	if !candles[0].OpenTime.Before(candles[1].OpenTime) {
		t.Error("свечи должны идти в хронологическом порядке")
	}
}

func TestBinance_SubmitOrder_Signed(t *testing.T) {
	b, _ := newTestBinance(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("ожидался POST, получен %s", r.Method)
		}
		if r.Header.Get("X-MBX-APIKEY") != "test-key" {
			t.Error("отсутствует заголовок X-MBX-APIKEY")
		}
		q := r.URL.Query()
		if q.Get("signature") == "" {
			t.Error("запрос должен быть подписан")
		}
		if q.Get("symbol") != "BTCUSDT" || q.Get("side") != "BUY" {
			t.Errorf("неверные параметры ордера: %s", r.URL.RawQuery)
		}
		w.Write([]byte(`{"orderId":12345,"status":"FILLED"}`))
	})

	id, err := b.SubmitOrder(context.Background(), "BTCUSDT", "BUY", 0.5)
	if err != nil {
		t.Fatalf("ошибка не ожидалась: %v", err)
	}
	if id != "12345" {
		t.Errorf("ожидался ID 12345, получен %s", id)
	}
}

func TestBinance_SubmitOrder_Rejected(t *testing.T) {
	b, _ := newTestBinance(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"code":-2010,"msg":"Account has insufficient balance"}`))
	})

	_, err := b.SubmitOrder(context.Background(), "BTCUSDT", "BUY", 100)
	if err == nil {
		t.Fatal("ожидалась ошибка")
	}

	var exErr *ExchangeError
	if !errors.As(err, &exErr) {
		t.Fatalf("ожидался *ExchangeError, получен %T", err)
	}
	if exErr.Code != CodeRejected {
		t.Errorf("ожидался код %s, получен %s", CodeRejected, exErr.Code)
	}
	if exErr.Retryable() {
		t.Error("отклонённый ордер не должен быть retryable")
	}
}

func TestClassifyHTTPError(t *testing.T) {
	tests := []struct {
		name          string
		status        int
		apiCode       int
		wantCode      string
		wantRetryable bool
	}{
		{"rate limited 429", http.StatusTooManyRequests, -1003, CodeRateLimited, true},
		{"ban 418", 418, -1003, CodeRateLimited, true},
		{"auth 401", http.StatusUnauthorized, -2014, CodeAuth, false},
		{"forbidden 403", http.StatusForbidden, 0, CodeAuth, false},
		{"server error 500", http.StatusInternalServerError, 0, CodeUnavailable, true},
		{"gateway 502", http.StatusBadGateway, 0, CodeUnavailable, true},
		{"rejected -2010", http.StatusBadRequest, -2010, CodeRejected, false},
		{"cancel rejected -2011", http.StatusBadRequest, -2011, CodeRejected, false},
		{"bad request", http.StatusBadRequest, -1102, CodeBadRequest, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := classifyHTTPError(tt.status, apiError{Code: tt.apiCode, Msg: "test"})
			if err.Code != tt.wantCode {
				t.Errorf("код: ожидался %s, получен %s", tt.wantCode, err.Code)
			}
			if err.Retryable() != tt.wantRetryable {
				t.Errorf("Retryable(): ожидалось %v", tt.wantRetryable)
			}
		})
	}
}

func TestBinance_GetBalances(t *testing.T) {
	b, _ := newTestBinance(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-MBX-APIKEY") == "" {
			t.Error("запрос аккаунта должен содержать API ключ")
		}
		w.Write([]byte(`{"balances":[
			{"asset":"USDT","free":"1000.5","locked":"0"},
			{"asset":"BTC","free":"0.1","locked":"0.05"},
			{"asset":"DUST","free":"0","locked":"0"}
		]}`))
	})

	balances, err := b.GetBalances(context.Background())
	if err != nil {
		t.Fatalf("ошибка не ожидалась: %v", err)
	}

	if len(balances) != 2 {
		t.Fatalf("нулевые остатки должны отбрасываться, получено %d", len(balances))
	}
	if balances[1].Asset != "BTC" || math.Abs(balances[1].Free-0.15) > 1e-9 {
		t.Errorf("locked должен учитываться в капитале: %+v", balances[1])
	}
}
