package websocket

import (
	"encoding/json"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/bnema/chatsim/internal/domain"
	"go.uber.org/zap"
	ws "golang.org/x/net/websocket"
)

const (
	maxDecodeErrorsPerConn = 3
	maxFramePayloadBytes   = 8 << 10
)

func (h *handler) serveConn(conn *ws.Conn) {
	defer func() {
		_ = conn.Close()
	}()

	decoder := json.NewDecoder(conn)
	peer := newWSPeer(conn)
	var joined domain.ConversationID
	defer func() {
		if joined != "" {
			h.hub.leave(joined, peer)
		}
	}()

	decodeErrors := 0
	for {
		var frame wsFrame
		if err := decoder.Decode(&frame); err != nil {
			if errors.Is(err, io.EOF) {
				return
			}
			decodeErrors++
			_ = writeWSError(peer, "", "INVALID_ARGUMENT", "invalid frame payload")
			if decodeErrors >= maxDecodeErrorsPerConn {
				return
			}
			decoder = json.NewDecoder(conn)
			continue
		}
		decodeErrors = 0

		if len(frame.Payload) > maxFramePayloadBytes {
			_ = writeWSError(peer, frame.RequestID, "INVALID_ARGUMENT", "payload too large")
			continue
		}

		switch frame.Type {
		case frameJoin:
			if id, ok := h.handleJoin(peer, frame); ok {
				if joined != "" && joined != id {
					h.hub.leave(joined, peer)
				}
				joined = id
			}
		case frameSend:
			h.handleSend(conn, peer, joined, frame)
		default:
			_ = writeWSError(peer, frame.RequestID, "INVALID_ARGUMENT", "unsupported frame type")
		}
	}
}

func (h *handler) handleJoin(peer *wsPeer, frame wsFrame) (domain.ConversationID, bool) {
	var payload joinPayload
	if err := json.Unmarshal(frame.Payload, &payload); err != nil {
		_ = writeWSError(peer, frame.RequestID, "INVALID_ARGUMENT", "invalid join payload")
		return "", false
	}

	id := domain.ConversationID(strings.TrimSpace(payload.ConversationID))
	if id == "" {
		_ = writeWSError(peer, frame.RequestID, "INVALID_ARGUMENT", "conversation_id is required")
		return "", false
	}

	var persona *domain.Persona
	for _, candidate := range h.engine.Personas() {
		if candidate.ConversationID() == id {
			persona = &candidate
			break
		}
	}
	if persona == nil {
		_ = writeWSError(peer, frame.RequestID, "NOT_FOUND", "unknown conversation")
		return "", false
	}

	h.hub.join(id, peer)
	history := h.engine.History(id, h.opts.HistoryLimit)

	_ = peer.writeFrame(wsFrame{
		Type:      frameJoined,
		RequestID: frame.RequestID,
		Payload: mustJSON(joinedPayload{
			ConversationID: string(id),
			Name:           persona.DisplayName,
			Members:        len(persona.ParticipantIDs),
			History:        len(history),
			ServerTime:     time.Now().UTC().Format(time.RFC3339),
		}),
	})
	for _, utterance := range history {
		_ = peer.writeFrame(wsFrame{
			Type:    frameMessage,
			Payload: mustJSON(messageEnvelope{Message: toChatMessage(domain.Delivery{Utterance: utterance})}),
		})
	}

	h.logger.Debug("peer joined conversation", zap.String("conversation", string(id)))
	return id, true
}

func (h *handler) handleSend(conn *ws.Conn, peer *wsPeer, joined domain.ConversationID, frame wsFrame) {
	var payload sendPayload
	if err := json.Unmarshal(frame.Payload, &payload); err != nil {
		_ = writeWSError(peer, frame.RequestID, "INVALID_ARGUMENT", "invalid send payload")
		return
	}
	if code, msg := validateBody(payload.Body); code != "" {
		_ = writeWSError(peer, frame.RequestID, code, msg)
		return
	}
	if joined == "" {
		_ = writeWSError(peer, frame.RequestID, "FORBIDDEN", "must join a conversation before sending")
		return
	}

	ctx := conn.Request().Context()
	if err := h.engine.Send(ctx, joined, payload.Body); err != nil {
		_, code := classifySendError(err)
		_ = writeWSError(peer, frame.RequestID, code, err.Error())
		return
	}

	_ = peer.writeFrame(wsFrame{
		Type:      frameAck,
		RequestID: frame.RequestID,
		Payload:   mustJSON(ackEnvelope{Result: ackResult{Status: "ok"}}),
	})
}

func writeWSError(peer *wsPeer, requestID string, code string, message string) error {
	return peer.writeFrame(wsFrame{
		Type:      frameError,
		RequestID: requestID,
		Payload:   mustJSON(wsErrorEnvelope{Error: wsError{Code: code, Message: message}}),
	})
}
