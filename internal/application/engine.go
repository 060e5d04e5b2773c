package application

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/bnema/chatsim/internal/domain"
	"github.com/bnema/chatsim/internal/ports"
	"github.com/bnema/chatsim/internal/random"
	"go.uber.org/zap"
)

const DefaultHistoryLimit = 20

type EngineConfig struct {
	Personas     []domain.Persona
	Generator    ports.Generator
	Notifier     ports.Notifier
	Clock        ports.Clock
	Random       ports.Random
	Logger       *zap.Logger
	Pacing       PacingWindow
	HistoryLimit int
}

// Engine owns the personas, conversation logs and busy flags of one
// simulation and routes triggers through the orchestration pipeline.
type Engine struct {
	roster       *Roster
	store        *ConversationStore
	flights      *flights
	generator    ports.Generator
	notifier     ports.Notifier
	clock        ports.Clock
	random       ports.Random
	historyLimit int
	logger       *zap.Logger

	orchestrator *Orchestrator
	dispatcher   *Dispatcher

	lifetime context.Context
	cancel   context.CancelFunc
	inflight sync.WaitGroup

	mu         sync.Mutex
	schedulers []*Scheduler
}

func NewEngine(cfg EngineConfig) (*Engine, error) {
	if cfg.Generator == nil {
		return nil, errors.New("generator is required")
	}

	roster, err := NewRoster(cfg.Personas)
	if err != nil {
		return nil, err
	}

	if cfg.Notifier == nil {
		cfg.Notifier = ports.NopNotifier{}
	}
	if cfg.Clock == nil {
		cfg.Clock = ports.SystemClock{}
	}
	if cfg.Random == nil {
		src, err := random.NewFromEntropy()
		if err != nil {
			return nil, fmt.Errorf("seed random source: %w", err)
		}
		cfg.Random = src
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Pacing == (PacingWindow{}) {
		cfg.Pacing = PacingWindow{Min: DefaultPacingMin, Max: DefaultPacingMax}
	}
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = DefaultHistoryLimit
	}

	lifetime, cancel := context.WithCancel(context.Background())
	e := &Engine{
		roster:       roster,
		store:        NewConversationStore(),
		flights:      newFlights(),
		generator:    cfg.Generator,
		notifier:     cfg.Notifier,
		clock:        cfg.Clock,
		random:       cfg.Random,
		historyLimit: cfg.HistoryLimit,
		logger:       cfg.Logger,
		lifetime:     lifetime,
		cancel:       cancel,
	}
	e.dispatcher = &Dispatcher{
		store:    e.store,
		notifier: e.notifier,
		clock:    e.clock,
		random:   e.random,
		pacing:   cfg.Pacing,
		wg:       &e.inflight,
		logger:   e.logger.Named("dispatcher"),
	}
	e.orchestrator = &Orchestrator{
		roster:       e.roster,
		store:        e.store,
		flights:      e.flights,
		generator:    e.generator,
		dispatcher:   e.dispatcher,
		notifier:     e.notifier,
		clock:        e.clock,
		random:       e.random,
		historyLimit: e.historyLimit,
		lifetime:     e.lifetime,
		logger:       e.logger.Named("orchestrator"),
	}

	for _, persona := range roster.List() {
		if greeting := strings.TrimSpace(persona.Greeting); greeting != "" {
			e.store.Append(persona.ConversationID(), domain.Utterance{
				Speaker:   persona.DisplayName,
				Content:   greeting,
				Timestamp: e.clock.Now().UnixMilli(),
			})
		}
	}

	return e, nil
}

func (e *Engine) Personas() []domain.Persona {
	return e.roster.List()
}

func (e *Engine) Persona(id domain.PersonaID) (domain.Persona, error) {
	return e.roster.Get(id)
}

func (e *Engine) Members(groupID domain.PersonaID) ([]domain.Persona, error) {
	return e.roster.Members(groupID)
}

func (e *Engine) Attributes(id domain.PersonaID) (domain.PersonaAttributes, error) {
	persona, err := e.roster.Get(id)
	if err != nil {
		return domain.PersonaAttributes{}, err
	}
	return domain.ParseAttributes(persona.ProfileText), nil
}

func (e *Engine) AssignProfile(id domain.PersonaID, profile string) error {
	return e.roster.AssignProfile(id, profile)
}

// LoadProfiles assigns profile text from source to every non-group persona.
// A missing profile keeps the persona's current text; other source failures
// are logged and skipped. Only context errors are returned.
func (e *Engine) LoadProfiles(ctx context.Context, source ports.ProfileSource) error {
	for _, persona := range e.roster.List() {
		if persona.IsGroup() {
			continue
		}

		profile, err := source.Get(ctx, persona.ID)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			if !errors.Is(err, domain.ErrProfileNotFound) {
				e.logger.Warn("load persona profile", zap.String("persona", string(persona.ID)), zap.Error(err))
			}
			continue
		}

		if err := e.roster.AssignProfile(persona.ID, strings.TrimSpace(profile)); err != nil {
			e.logger.Debug("profile not reassigned", zap.String("persona", string(persona.ID)), zap.Error(err))
		}
	}

	return nil
}

// Send appends a user message to the conversation and produces the reply:
// through the group pipeline for group personas, or as a single reply from
// the persona otherwise. Generation failures are not returned; they surface
// as a fallback delivery.
func (e *Engine) Send(ctx context.Context, id domain.ConversationID, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return domain.ErrEmptyMessage
	}

	persona, err := e.roster.Get(domain.PersonaID(id))
	if err != nil {
		return err
	}

	release, ok := e.flights.tryAcquire(id)
	if !ok {
		return fmt.Errorf("send to %q: %w", id, domain.ErrConversationBusy)
	}

	e.append(id, domain.SpeakerUser, text)

	if persona.IsGroup() {
		e.orchestrator.runAcquired(ctx, id, Trigger{Direct: true}, release)
		return nil
	}

	defer release()
	e.replyAs(ctx, persona)
	return nil
}

func (e *Engine) replyAs(ctx context.Context, persona domain.Persona) {
	id := persona.ConversationID()
	request := buildSingleRequest(persona, e.store.Read(id, e.historyLimit))

	text, err := generateText(ctx, e.generator, request)
	if err != nil {
		e.logger.Warn("persona generation failed", zap.String("conversation", string(id)), zap.Error(err))
		publishFallback(e.notifier, e.clock, id)
		return
	}

	if text = strings.TrimSpace(text); text != "" {
		e.append(id, persona.DisplayName, text)
	}
}

// Trigger feeds an instruction to a group conversation. It reports false when
// an orchestration for that conversation is already in flight.
func (e *Engine) Trigger(ctx context.Context, id domain.ConversationID, instruction string) (bool, error) {
	if _, err := e.roster.Members(domain.PersonaID(id)); err != nil {
		return false, err
	}
	return e.orchestrator.Run(ctx, id, Trigger{Instruction: instruction}), nil
}

// NewScheduler creates an instruction scheduler for a group conversation. The
// engine stops it on Close.
func (e *Engine) NewScheduler(groupID domain.ConversationID, pool []string, config SchedulerConfig) (*Scheduler, error) {
	if _, err := e.roster.Members(domain.PersonaID(groupID)); err != nil {
		return nil, err
	}
	if config == (SchedulerConfig{}) {
		config = SchedulerConfig{MinInterval: DefaultSchedulerMinInterval, MaxInterval: DefaultSchedulerMaxInterval}
	}

	run := func(ctx context.Context, id domain.ConversationID, instruction string) bool {
		return e.orchestrator.Run(ctx, id, Trigger{Instruction: instruction})
	}
	scheduler := NewScheduler(groupID, pool, config, run, e.clock, e.random, e.logger.Named("scheduler"))

	e.mu.Lock()
	e.schedulers = append(e.schedulers, scheduler)
	e.mu.Unlock()

	return scheduler, nil
}

func (e *Engine) History(id domain.ConversationID, limit int) []domain.Utterance {
	return e.store.Read(id, limit)
}

func (e *Engine) Bursts(id domain.ConversationID, threshold time.Duration) []domain.Burst {
	return domain.GroupBursts(e.store.Read(id, 0), threshold)
}

func (e *Engine) Busy(id domain.ConversationID) bool {
	return e.flights.isBusy(id)
}

// Wait blocks until every scheduled delivery has been made.
func (e *Engine) Wait() {
	e.inflight.Wait()
}

// Close stops the schedulers created by the engine, cancels pending
// deliveries and waits for them to wind down.
func (e *Engine) Close() {
	e.mu.Lock()
	schedulers := e.schedulers
	e.schedulers = nil
	e.mu.Unlock()

	for _, scheduler := range schedulers {
		scheduler.Stop()
	}
	e.cancel()
	e.inflight.Wait()
}

func (e *Engine) append(id domain.ConversationID, speaker, content string) domain.Utterance {
	stored := e.store.Append(id, domain.Utterance{
		Speaker:   speaker,
		Content:   content,
		Timestamp: e.clock.Now().UnixMilli(),
	})
	e.notifier.Publish(domain.Delivery{Utterance: stored})
	return stored
}
