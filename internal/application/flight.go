package application

import (
	"sync"

	"github.com/bnema/chatsim/internal/domain"
)

// flights holds the per-conversation busy flags.
type flights struct {
	mu   sync.Mutex
	busy map[domain.ConversationID]struct{}
}

func newFlights() *flights {
	return &flights{busy: map[domain.ConversationID]struct{}{}}
}

// tryAcquire marks the conversation busy. The returned release clears the
// flag and is safe to call more than once.
func (f *flights) tryAcquire(id domain.ConversationID) (func(), bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.busy[id]; ok {
		return nil, false
	}
	f.busy[id] = struct{}{}

	var once sync.Once
	return func() {
		once.Do(func() {
			f.mu.Lock()
			delete(f.busy, id)
			f.mu.Unlock()
		})
	}, true
}

func (f *flights) isBusy(id domain.ConversationID) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.busy[id]
	return ok
}
