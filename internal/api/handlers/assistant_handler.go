package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"autotrader/internal/assistant"
)

// Completer - клиент внешнего completion-сервиса
type Completer interface {
	Complete(ctx context.Context, prompt string, functions []assistant.FunctionSchema) (*assistant.CompletionResult, error)
}

// Dispatcher - реестр функций, доступных ассистенту
type Dispatcher interface {
	Schemas() []assistant.FunctionSchema
	Dispatch(ctx context.Context, call *assistant.FunctionCall) (string, error)
}

// AssistantHandler - диалоговый endpoint ассистента.
// Закрыт тем же bearer-токеном, что и ручные сделки: ассистент
// умеет размещать ордера.
type AssistantHandler struct {
	client   Completer
	registry Dispatcher
}

// NewAssistantHandler создает новый AssistantHandler
func NewAssistantHandler(client Completer, registry Dispatcher) *AssistantHandler {
	return &AssistantHandler{
		client:   client,
		registry: registry,
	}
}

// AssistantRequest - тело запроса к ассистенту
type AssistantRequest struct {
	Prompt string `json:"prompt"`
}

// AssistantResponse - ответ ассистента.
// Reply содержит либо свободный текст модели, либо результат
// выполненной функции; FunctionCalled заполняется во втором случае.
type AssistantResponse struct {
	Reply          string `json:"reply"`
	FunctionCalled string `json:"function_called,omitempty"`
}

// Ask пропускает промпт через completion-сервис и, если модель
// запросила вызов функции, выполняет его через реестр
//
// POST /api/v1/assistant
//
// HTTP коды:
// - 200 OK: свободный текст или результат функции
// - 400 Bad Request: пустой промпт или невалидные аргументы функции
// - 502 Bad Gateway: completion-сервис недоступен
func (h *AssistantHandler) Ask(w http.ResponseWriter, r *http.Request) {
	var req AssistantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.Prompt == "" {
		respondWithError(w, http.StatusBadRequest, "prompt is required")
		return
	}

	result, err := h.client.Complete(r.Context(), req.Prompt, h.registry.Schemas())
	if err != nil {
		respondWithError(w, http.StatusBadGateway, "completion service failed: "+err.Error())
		return
	}

	if result.FunctionCall == nil {
		respondWithJSON(w, http.StatusOK, AssistantResponse{Reply: result.Text})
		return
	}

	reply, err := h.registry.Dispatch(r.Context(), result.FunctionCall)
	if err != nil {
		if errors.Is(err, assistant.ErrUnknownFunction) || errors.Is(err, assistant.ErrInvalidArguments) {
			respondWithError(w, http.StatusBadRequest, err.Error())
			return
		}
		respondWithError(w, http.StatusBadGateway, "function call failed: "+err.Error())
		return
	}

	respondWithJSON(w, http.StatusOK, AssistantResponse{
		Reply:          reply,
		FunctionCalled: result.FunctionCall.Name,
	})
}
