package application

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/bnema/chatsim/internal/domain"
	"github.com/bnema/chatsim/internal/ports"
	"go.uber.org/zap"
)

const (
	DefaultPacingMin = 600 * time.Millisecond
	DefaultPacingMax = 1400 * time.Millisecond
)

// PacingWindow bounds the random pause before each reply is delivered.
type PacingWindow struct {
	Min time.Duration
	Max time.Duration
}

func (w PacingWindow) draw(random ports.Random) time.Duration {
	if w.Max <= w.Min {
		return w.Min
	}
	return w.Min + time.Duration(random.Float64()*float64(w.Max-w.Min))
}

// Dispatcher delivers a response batch into the conversation log in random
// order with randomized pacing.
type Dispatcher struct {
	store    *ConversationStore
	notifier ports.Notifier
	clock    ports.Clock
	random   ports.Random
	pacing   PacingWindow
	wg       *sync.WaitGroup
	logger   *zap.Logger
}

// Dispatch shuffles the batch and schedules every reply at a cumulative random
// offset from now. It returns immediately; release runs after the last
// delivery or when ctx is cancelled.
func (d *Dispatcher) Dispatch(ctx context.Context, id domain.ConversationID, batch domain.ResponseBatch, release func()) {
	items := slices.Clone(batch)
	d.random.Shuffle(len(items), func(i, j int) {
		items[i], items[j] = items[j], items[i]
	})

	offsets := make([]time.Duration, len(items))
	var total time.Duration
	for i := range items {
		total += d.pacing.draw(d.random)
		offsets[i] = total
	}

	start := d.clock.Now()
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer release()

		for i, item := range items {
			wait := start.Add(offsets[i]).Sub(d.clock.Now())
			select {
			case <-ctx.Done():
				d.logger.Debug("dispatch cancelled",
					zap.String("conversation", string(id)),
					zap.Int("undelivered", len(items)-i))
				return
			case <-d.clock.After(max(wait, 0)):
			}
			d.deliver(id, item)
		}
	}()
}

func (d *Dispatcher) deliver(id domain.ConversationID, reply domain.Reply) {
	stored := d.store.Append(id, domain.Utterance{
		Speaker:   reply.Speaker,
		Content:   reply.Content,
		Timestamp: d.clock.Now().UnixMilli(),
	})
	d.notifier.Publish(domain.Delivery{Utterance: stored})
}
