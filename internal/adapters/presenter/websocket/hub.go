package websocket

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/bnema/chatsim/internal/domain"
	"github.com/bnema/chatsim/internal/ports"
	"go.uber.org/zap"
	ws "golang.org/x/net/websocket"
)

const writeTimeout = 5 * time.Second

type wsPeer struct {
	mu      sync.Mutex
	conn    *ws.Conn
	encoder *json.Encoder
}

func newWSPeer(conn *ws.Conn) *wsPeer {
	return &wsPeer{conn: conn, encoder: json.NewEncoder(conn)}
}

func (p *wsPeer) writeFrame(frame wsFrame) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.conn != nil {
		_ = p.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	}
	return p.encoder.Encode(frame)
}

// Hub fans deliveries out to the peers that joined each conversation.
type Hub struct {
	mu     sync.Mutex
	rooms  map[domain.ConversationID]map[*wsPeer]struct{}
	logger *zap.Logger
}

var _ ports.Notifier = (*Hub)(nil)

func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{rooms: map[domain.ConversationID]map[*wsPeer]struct{}{}, logger: logger}
}

func (h *Hub) Publish(delivery domain.Delivery) {
	frame := wsFrame{Type: frameMessage, Payload: mustJSON(messageEnvelope{Message: toChatMessage(delivery)})}
	for _, peer := range h.subscribers(delivery.Utterance.ConversationID) {
		if err := peer.writeFrame(frame); err != nil {
			h.logger.Debug("drop delivery for peer",
				zap.String("conversation", string(delivery.Utterance.ConversationID)),
				zap.Error(err))
		}
	}
}

// Subscribers reports how many peers follow the conversation.
func (h *Hub) Subscribers(id domain.ConversationID) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.rooms[id])
}

func (h *Hub) join(id domain.ConversationID, peer *wsPeer) {
	h.mu.Lock()
	defer h.mu.Unlock()

	room, ok := h.rooms[id]
	if !ok {
		room = map[*wsPeer]struct{}{}
		h.rooms[id] = room
	}
	room[peer] = struct{}{}
}

func (h *Hub) leave(id domain.ConversationID, peer *wsPeer) {
	h.mu.Lock()
	defer h.mu.Unlock()

	room := h.rooms[id]
	delete(room, peer)
	if len(room) == 0 {
		delete(h.rooms, id)
	}
}

func (h *Hub) subscribers(id domain.ConversationID) []*wsPeer {
	h.mu.Lock()
	defer h.mu.Unlock()

	peers := make([]*wsPeer, 0, len(h.rooms[id]))
	for peer := range h.rooms[id] {
		peers = append(peers, peer)
	}
	return peers
}
