// Package websocket exposes a running simulation over HTTP and a WebSocket
// feed. Every delivery the engine publishes is pushed to the peers that
// joined its conversation.
package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/bnema/chatsim/internal/domain"
	"go.uber.org/zap"
	ws "golang.org/x/net/websocket"
)

const (
	maxMessageBodyRunes = 2000
	maxRequestBodyBytes = 16 << 10
	defaultBurstGap     = time.Minute
)

// Engine is the part of the simulation the handler drives.
type Engine interface {
	Personas() []domain.Persona
	Send(ctx context.Context, id domain.ConversationID, text string) error
	History(id domain.ConversationID, limit int) []domain.Utterance
	Bursts(id domain.ConversationID, threshold time.Duration) []domain.Burst
}

type Options struct {
	BurstThreshold time.Duration
	HistoryLimit   int
	Logger         *zap.Logger
}

type handler struct {
	engine Engine
	hub    *Hub
	opts   Options
	logger *zap.Logger
}

func NewHandler(engine Engine, hub *Hub, opts Options) http.Handler {
	if opts.BurstThreshold <= 0 {
		opts.BurstThreshold = defaultBurstGap
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	h := &handler{engine: engine, hub: hub, opts: opts, logger: opts.Logger}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /up", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	mux.HandleFunc("GET /api/personas", h.listPersonas)
	mux.HandleFunc("GET /api/conversations/{id}/messages", h.listMessages)
	mux.HandleFunc("POST /api/conversations/{id}/messages", h.postMessage)
	mux.HandleFunc("GET /api/conversations/{id}/bursts", h.listBursts)

	wsHandler := ws.Handler(h.serveConn)
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.Header().Set("Allow", http.MethodGet)
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		wsHandler.ServeHTTP(w, r)
	})

	return mux
}

type personaView struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Status       string   `json:"status,omitempty"`
	Avatar       string   `json:"avatar,omitempty"`
	Group        bool     `json:"group"`
	Participants []string `json:"participants,omitempty"`
}

type burstView struct {
	Start    int64         `json:"start"`
	Messages []chatMessage `json:"messages"`
}

func (h *handler) listPersonas(w http.ResponseWriter, _ *http.Request) {
	personas := h.engine.Personas()
	views := make([]personaView, 0, len(personas))
	for _, persona := range personas {
		view := personaView{
			ID:     string(persona.ID),
			Name:   persona.DisplayName,
			Status: persona.StatusText,
			Avatar: persona.AvatarGlyph,
			Group:  persona.IsGroup(),
		}
		for _, id := range persona.ParticipantIDs {
			view.Participants = append(view.Participants, string(id))
		}
		views = append(views, view)
	}

	writeJSON(w, http.StatusOK, views)
}

func (h *handler) listMessages(w http.ResponseWriter, r *http.Request) {
	id, ok := h.conversation(w, r)
	if !ok {
		return
	}

	limit := h.opts.HistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			writeError(w, http.StatusBadRequest, "INVALID_ARGUMENT", "limit must be a non-negative integer")
			return
		}
		limit = parsed
	}

	history := h.engine.History(id, limit)
	messages := make([]chatMessage, 0, len(history))
	for _, utterance := range history {
		messages = append(messages, toChatMessage(domain.Delivery{Utterance: utterance}))
	}

	writeJSON(w, http.StatusOK, messages)
}

func (h *handler) listBursts(w http.ResponseWriter, r *http.Request) {
	id, ok := h.conversation(w, r)
	if !ok {
		return
	}

	bursts := h.engine.Bursts(id, h.opts.BurstThreshold)
	views := make([]burstView, 0, len(bursts))
	for _, burst := range bursts {
		view := burstView{Start: burst.Start}
		for _, utterance := range burst.Utterances {
			view.Messages = append(view.Messages, toChatMessage(domain.Delivery{Utterance: utterance}))
		}
		views = append(views, view)
	}

	writeJSON(w, http.StatusOK, views)
}

func (h *handler) postMessage(w http.ResponseWriter, r *http.Request) {
	id, ok := h.conversation(w, r)
	if !ok {
		return
	}

	var payload sendPayload
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBodyBytes)).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_ARGUMENT", "invalid message payload")
		return
	}
	if code, msg := validateBody(payload.Body); code != "" {
		writeError(w, http.StatusBadRequest, code, msg)
		return
	}

	if err := h.engine.Send(r.Context(), id, payload.Body); err != nil {
		status, code := classifySendError(err)
		writeError(w, status, code, err.Error())
		return
	}

	writeJSON(w, http.StatusAccepted, ackEnvelope{Result: ackResult{Status: "ok"}})
}

func (h *handler) conversation(w http.ResponseWriter, r *http.Request) (domain.ConversationID, bool) {
	id := domain.ConversationID(strings.TrimSpace(r.PathValue("id")))
	for _, persona := range h.engine.Personas() {
		if persona.ConversationID() == id {
			return id, true
		}
	}

	writeError(w, http.StatusNotFound, "NOT_FOUND", "unknown conversation")
	return "", false
}

func validateBody(body string) (string, string) {
	body = strings.TrimSpace(body)
	if body == "" {
		return "INVALID_ARGUMENT", "body is required"
	}
	if len([]rune(body)) > maxMessageBodyRunes {
		return "INVALID_ARGUMENT", "body must be at most 2000 characters"
	}
	return "", ""
}

func classifySendError(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrConversationBusy):
		return http.StatusConflict, "BUSY"
	case errors.Is(err, domain.ErrPersonaNotFound):
		return http.StatusNotFound, "NOT_FOUND"
	case errors.Is(err, domain.ErrEmptyMessage):
		return http.StatusBadRequest, "INVALID_ARGUMENT"
	default:
		return http.StatusInternalServerError, "INTERNAL"
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, wsErrorEnvelope{Error: wsError{Code: code, Message: message}})
}
