package application

import (
	"context"
	"sync"
	"time"

	"github.com/bnema/chatsim/internal/domain"
	"github.com/bnema/chatsim/internal/ports"
	"go.uber.org/zap"
)

const (
	DefaultSchedulerMinInterval = 5 * time.Second
	DefaultSchedulerMaxInterval = 25 * time.Second
)

type SchedulerConfig struct {
	MinInterval time.Duration
	MaxInterval time.Duration
}

// RunFunc feeds one instruction to a conversation and reports whether an
// orchestration actually ran.
type RunFunc func(ctx context.Context, id domain.ConversationID, instruction string) bool

// Scheduler repeatedly waits a random interval, then feeds a random
// instruction from its pool to the conversation.
type Scheduler struct {
	conversation domain.ConversationID
	pool         []string
	config       SchedulerConfig
	run          RunFunc
	clock        ports.Clock
	random       ports.Random
	logger       *zap.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func NewScheduler(id domain.ConversationID, pool []string, config SchedulerConfig, run RunFunc, clock ports.Clock, random ports.Random, logger *zap.Logger) *Scheduler {
	if clock == nil {
		clock = ports.SystemClock{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Scheduler{
		conversation: id,
		pool:         append([]string(nil), pool...),
		config:       config,
		run:          run,
		clock:        clock,
		random:       random,
		logger:       logger,
	}
}

// Start arms the scheduler. It reports false when the pool is empty or the
// scheduler is already running.
func (s *Scheduler) Start(ctx context.Context) bool {
	if len(s.pool) == 0 {
		s.logger.Info("instruction pool is empty, scheduler stays idle", zap.String("conversation", string(s.conversation)))
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return false
	}

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	go s.loop(ctx, s.done)

	return true
}

// Stop cancels the loop and waits for it to exit.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancel != nil
}

func (s *Scheduler) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	for {
		wait := s.nextInterval()
		select {
		case <-ctx.Done():
			return
		case <-s.clock.After(wait):
		}

		instruction := s.pool[s.random.IntN(len(s.pool))]
		if !s.run(ctx, s.conversation, instruction) {
			s.logger.Debug("scheduled instruction skipped",
				zap.String("conversation", string(s.conversation)),
				zap.String("instruction", instruction))
		}
	}
}

func (s *Scheduler) nextInterval() time.Duration {
	lo, hi := s.config.MinInterval, s.config.MaxInterval
	if hi <= lo {
		return lo
	}
	return lo + time.Duration(s.random.Float64()*float64(hi-lo))
}
