package websocket

import (
	"encoding/json"
	"time"

	"github.com/dom/doctree/internal/domain"
)

type MessageType string

const (
	// Client to Server
	MessageTypePing MessageType = "PING"

	// Server to Client
	MessageTypeConnected       MessageType = "CONNECTED"
	MessageTypePong            MessageType = "PONG"
	MessageTypeDocumentCreated MessageType = MessageType(domain.DocumentCreated)
	MessageTypeDocumentUpdated MessageType = MessageType(domain.DocumentUpdated)
	MessageTypeDocumentDeleted MessageType = MessageType(domain.DocumentDeleted)
	MessageTypeError           MessageType = "ERROR"
)

type Message struct {
	Type      MessageType     `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	Timestamp int64           `json:"timestamp"`
	Seq       uint64          `json:"seq,omitempty"`
}

func NewMessage(msgType MessageType, payload interface{}) (*Message, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &Message{
		Type:      msgType,
		Payload:   payloadBytes,
		Timestamp: time.Now().UnixMilli(),
	}, nil
}

// Server to Client payloads

type ConnectedPayload struct {
	ClientID string    `json:"clientId"`
	UserID   domain.ID `json:"userId"`
}

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
