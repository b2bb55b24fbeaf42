package assistant

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	jsoniter "github.com/json-iterator/go"

	"autotrader/pkg/retry"
	"autotrader/pkg/utils"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// FunctionSchema - декларация вызываемой функции для completion-сервиса
type FunctionSchema struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description,omitempty"`
	Parameters  map[string]interface{} `json:"parameters"`
}

// FunctionCall - структурированный запрос вызова функции из ответа модели
type FunctionCall struct {
	Name      string
	Arguments map[string]interface{}
}

// CompletionResult - ответ completion-сервиса: свободный текст
// или запрос вызова функции (ровно одно из двух)
type CompletionResult struct {
	Text         string
	FunctionCall *FunctionCall
}

// ClientConfig - настройки клиента completion-сервиса
type ClientConfig struct {
	BaseURL        string
	APIKey         string
	Model          string
	RequestTimeout time.Duration
}

// Client - HTTP клиент completion-сервиса с function calling.
// Transient ошибки ретраятся с экспоненциальным backoff.
type Client struct {
	cfg        ClientConfig
	httpClient *http.Client
	retryCfg   retry.Config
	log        *utils.Logger
}

// NewClient создает клиент completion-сервиса
func NewClient(cfg ClientConfig, httpClient *http.Client, log *utils.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.RequestTimeout}
	}
	return &Client{
		cfg:        cfg,
		httpClient: httpClient,
		retryCfg:   retry.NetworkConfig(),
		log:        log.WithComponent("assistant_client"),
	}
}

// ============================================================
// Wire-формат chat completions
// ============================================================

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type completionRequest struct {
	Model     string           `json:"model"`
	Messages  []chatMessage    `json:"messages"`
	Functions []FunctionSchema `json:"functions,omitempty"`
}

type completionResponse struct {
	Choices []struct {
		Message struct {
			Content      string `json:"content"`
			FunctionCall *struct {
				Name      string `json:"name"`
				Arguments string `json:"arguments"` // JSON-строка
			} `json:"function_call"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Complete отправляет промпт вместе со схемами доступных функций.
//
// Таймаут ограничен RequestTimeout, transient HTTP ошибки (5xx, сеть)
// ретраятся. Таймаут превращается в recoverable ошибку, не в зависание.
func (c *Client) Complete(ctx context.Context, prompt string, functions []FunctionSchema) (*CompletionResult, error) {
	reqBody := completionRequest{
		Model:     c.cfg.Model,
		Messages:  []chatMessage{{Role: "user", Content: prompt}},
		Functions: functions,
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal completion request: %w", err)
	}

	cfg := c.retryCfg
	cfg.RetryIf = retry.RetryTransient
	cfg.OnRetry = func(attempt int, err error, delay time.Duration) {
		c.log.Warn("retrying completion request",
			utils.Int("attempt", attempt),
			utils.Err(err))
	}

	result, err := retry.DoWithResult(ctx, func() (*CompletionResult, error) {
		return c.doComplete(ctx, payload)
	}, cfg)
	if err != nil {
		return nil, err
	}
	return result, nil
}

// doComplete выполняет один HTTP запрос к completion-сервису
func (c *Client) doComplete(ctx context.Context, payload []byte) (*CompletionResult, error) {
	reqCtx, cancel := context.WithTimeout(ctx, c.cfg.RequestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost,
		c.cfg.BaseURL+"/v1/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build completion request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &transientError{err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &transientError{err: err}
	}

	if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
		return nil, &transientError{err: fmt.Errorf("completion service returned %d", resp.StatusCode)}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &fatalError{err: fmt.Errorf("completion service returned %d: %s", resp.StatusCode, string(body))}
	}

	var parsed completionResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, &fatalError{err: fmt.Errorf("decode completion response: %w", err)}
	}
	if parsed.Error != nil {
		return nil, &fatalError{err: fmt.Errorf("completion service error: %s", parsed.Error.Message)}
	}
	if len(parsed.Choices) == 0 {
		return nil, &fatalError{err: fmt.Errorf("completion response has no choices")}
	}

	msg := parsed.Choices[0].Message
	if msg.FunctionCall == nil {
		return &CompletionResult{Text: msg.Content}, nil
	}

	var args map[string]interface{}
	if err := json.Unmarshal([]byte(msg.FunctionCall.Arguments), &args); err != nil {
		return nil, &fatalError{err: fmt.Errorf("decode function call arguments: %w", err)}
	}

	return &CompletionResult{
		FunctionCall: &FunctionCall{
			Name:      msg.FunctionCall.Name,
			Arguments: args,
		},
	}, nil
}

// transientError помечает ошибку как retryable для pkg/retry
type transientError struct {
	err error
}

func (e *transientError) Error() string   { return e.err.Error() }
func (e *transientError) Unwrap() error   { return e.err }
func (e *transientError) Retryable() bool { return true }

// fatalError - ошибка, которую повторять бессмысленно (auth, формат)
type fatalError struct {
	err error
}

func (e *fatalError) Error() string   { return e.err.Error() }
func (e *fatalError) Unwrap() error   { return e.err }
func (e *fatalError) Retryable() bool { return false }
