package websocket

import (
	"encoding/json"
	"time"

	"github.com/bnema/chatsim/internal/domain"
)

const (
	frameJoin    = "chat.join"
	frameJoined  = "chat.joined"
	frameSend    = "chat.send"
	frameAck     = "chat.ack"
	frameMessage = "chat.message"
	frameError   = "chat.error"
)

type wsFrame struct {
	Type      string          `json:"type"`
	RequestID string          `json:"request_id,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

type joinPayload struct {
	ConversationID string `json:"conversation_id"`
}

type joinedPayload struct {
	ConversationID string `json:"conversation_id"`
	Name           string `json:"name"`
	Members        int    `json:"members"`
	History        int    `json:"history"`
	ServerTime     string `json:"server_time"`
}

type sendPayload struct {
	Body string `json:"body"`
}

type ackEnvelope struct {
	Result ackResult `json:"result"`
}

type ackResult struct {
	Status string `json:"status"`
}

type messageEnvelope struct {
	Message chatMessage `json:"message"`
}

type chatMessage struct {
	MessageID      string `json:"message_id,omitempty"`
	ConversationID string `json:"conversation_id"`
	Speaker        string `json:"speaker"`
	Body           string `json:"body"`
	SentAt         string `json:"sent_at"`
	Timestamp      int64  `json:"timestamp"`
	Fallback       bool   `json:"fallback,omitempty"`
}

type wsErrorEnvelope struct {
	Error wsError `json:"error"`
}

type wsError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func toChatMessage(delivery domain.Delivery) chatMessage {
	utterance := delivery.Utterance
	return chatMessage{
		MessageID:      utterance.ID,
		ConversationID: string(utterance.ConversationID),
		Speaker:        utterance.Speaker,
		Body:           utterance.Content,
		SentAt:         utterance.Time().UTC().Format(time.RFC3339Nano),
		Timestamp:      utterance.Timestamp,
		Fallback:       delivery.Fallback,
	}
}

func mustJSON(v any) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return data
}
