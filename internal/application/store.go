package application

import (
	"sync"

	"github.com/bnema/chatsim/internal/domain"
	"github.com/google/uuid"
)

// ConversationStore owns every conversation log. Logs are append-only and
// reads hand out copies, so a snapshot never changes under its holder.
type ConversationStore struct {
	mu   sync.RWMutex
	logs map[domain.ConversationID][]domain.Utterance
}

func NewConversationStore() *ConversationStore {
	return &ConversationStore{logs: map[domain.ConversationID][]domain.Utterance{}}
}

// Append adds the utterance to the end of the conversation log and returns it
// as stored. A missing id is generated, and a timestamp older than the current
// tail is raised to the tail's so the log stays non-decreasing.
func (s *ConversationStore) Append(id domain.ConversationID, utterance domain.Utterance) domain.Utterance {
	s.mu.Lock()
	defer s.mu.Unlock()

	utterance.ConversationID = id
	if utterance.ID == "" {
		utterance.ID = uuid.NewString()
	}

	log := s.logs[id]
	if n := len(log); n > 0 && utterance.Timestamp < log[n-1].Timestamp {
		utterance.Timestamp = log[n-1].Timestamp
	}
	s.logs[id] = append(log, utterance)

	return utterance
}

// Read returns a copy of the last limit utterances, or the whole log when
// limit is not positive.
func (s *ConversationStore) Read(id domain.ConversationID, limit int) []domain.Utterance {
	s.mu.RLock()
	defer s.mu.RUnlock()

	log := s.logs[id]
	if limit > 0 && len(log) > limit {
		log = log[len(log)-limit:]
	}

	snapshot := make([]domain.Utterance, len(log))
	copy(snapshot, log)
	return snapshot
}

func (s *ConversationStore) Len(id domain.ConversationID) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.logs[id])
}
