package websocket

import (
	"time"

	"autotrader/internal/models"
)

// MessageType определяет тип WebSocket сообщения
type MessageType string

// Типы WebSocket сообщений
const (
	// MessageTypeTrade - новая сделка записана в журнал
	MessageTypeTrade MessageType = "trade"

	// MessageTypeEquity - новый сэмпл капитала
	// Отправляется на каждом тике риск-цикла
	MessageTypeEquity MessageType = "equity"

	// MessageTypeAlert - новый RSI алерт
	MessageTypeAlert MessageType = "alert"

	// MessageTypeSafety - ордер отменён риск-контролем
	MessageTypeSafety MessageType = "safety"
)

// BaseMessage - базовая структура для всех WebSocket сообщений
type BaseMessage struct {
	Type      MessageType `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
}

// TradeMessage - сообщение о размещённой сделке
type TradeMessage struct {
	BaseMessage
	Data *models.TradeRecord `json:"data"`
}

// EquityMessage - сообщение с сэмплом капитала
type EquityMessage struct {
	BaseMessage
	Data *models.EquitySample `json:"data"`
}

// AlertMessage - сообщение об RSI алерте
type AlertMessage struct {
	BaseMessage
	Data *models.AlertEvent `json:"data"`
}

// SafetyMessage - сообщение об отмене ордера риск-контролем
type SafetyMessage struct {
	BaseMessage
	Data *models.SafetyEvent `json:"data"`
}

// ============ Фабричные функции для создания сообщений ============

// NewTradeMessage создает сообщение о сделке
func NewTradeMessage(trade *models.TradeRecord) *TradeMessage {
	return &TradeMessage{
		BaseMessage: BaseMessage{
			Type:      MessageTypeTrade,
			Timestamp: time.Now(),
		},
		Data: trade,
	}
}

// NewEquityMessage создает сообщение с сэмплом капитала
func NewEquityMessage(sample *models.EquitySample) *EquityMessage {
	return &EquityMessage{
		BaseMessage: BaseMessage{
			Type:      MessageTypeEquity,
			Timestamp: time.Now(),
		},
		Data: sample,
	}
}

// NewAlertMessage создает сообщение об алерте
func NewAlertMessage(alert *models.AlertEvent) *AlertMessage {
	return &AlertMessage{
		BaseMessage: BaseMessage{
			Type:      MessageTypeAlert,
			Timestamp: time.Now(),
		},
		Data: alert,
	}
}

// NewSafetyMessage создает сообщение об отмене ордера
func NewSafetyMessage(event *models.SafetyEvent) *SafetyMessage {
	return &SafetyMessage{
		BaseMessage: BaseMessage{
			Type:      MessageTypeSafety,
			Timestamp: time.Now(),
		},
		Data: event,
	}
}
