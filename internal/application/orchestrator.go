package application

import (
	"context"
	"fmt"

	"github.com/bnema/chatsim/internal/domain"
	"github.com/bnema/chatsim/internal/ports"
	"go.uber.org/zap"
)

// Trigger is what provokes one orchestration: an instruction drawn by the
// scheduler, or a user message already appended to the log.
type Trigger struct {
	Instruction string
	Direct      bool
}

// Orchestrator turns one trigger into one response batch for a group
// conversation. At most one run per conversation is in flight.
type Orchestrator struct {
	roster       *Roster
	store        *ConversationStore
	flights      *flights
	generator    ports.Generator
	dispatcher   *Dispatcher
	notifier     ports.Notifier
	clock        ports.Clock
	random       ports.Random
	historyLimit int
	lifetime     context.Context
	logger       *zap.Logger
}

// Run reports false without doing anything when the conversation is busy.
func (o *Orchestrator) Run(ctx context.Context, id domain.ConversationID, trigger Trigger) bool {
	release, ok := o.flights.tryAcquire(id)
	if !ok {
		o.logger.Debug("orchestration skipped, conversation busy", zap.String("conversation", string(id)))
		return false
	}

	o.runAcquired(ctx, id, trigger, release)
	return true
}

// runAcquired expects the busy flag to be held and guarantees release is
// called, either here or by the dispatcher after its last delivery.
func (o *Orchestrator) runAcquired(ctx context.Context, id domain.ConversationID, trigger Trigger, release func()) {
	batch, err := o.generateBatch(ctx, id, trigger)
	if err != nil {
		release()
		o.logger.Warn("group generation failed", zap.String("conversation", string(id)), zap.Error(err))
		if trigger.Direct {
			publishFallback(o.notifier, o.clock, id)
		}
		return
	}
	if len(batch) == 0 {
		release()
		o.logger.Debug("generation produced no replies", zap.String("conversation", string(id)))
		return
	}

	o.logger.Debug("dispatching replies", zap.String("conversation", string(id)), zap.Int("replies", len(batch)))
	o.dispatcher.Dispatch(o.lifetime, id, batch, release)
}

func (o *Orchestrator) generateBatch(ctx context.Context, id domain.ConversationID, trigger Trigger) (domain.ResponseBatch, error) {
	members, err := o.roster.Members(domain.PersonaID(id))
	if err != nil {
		return nil, err
	}

	history := o.store.Read(id, o.historyLimit)
	request := buildGroupRequest(members, history, o.pickOpener(members, trigger), trigger.Instruction)

	text, err := generateText(ctx, o.generator, request)
	if err != nil {
		return nil, err
	}

	return domain.ParseSpeakerLines(text), nil
}

// pickOpener nominates a first speaker for instruction triggers, weighted by
// talkativeness.
func (o *Orchestrator) pickOpener(members []domain.Persona, trigger Trigger) string {
	if trigger.Instruction == "" || len(members) == 0 {
		return ""
	}

	candidates := make([]domain.Candidate, 0, len(members))
	names := make(map[domain.PersonaID]string, len(members))
	for _, member := range members {
		candidates = append(candidates, domain.Candidate{
			ID:     member.ID,
			Weight: domain.ParseAttributes(member.ProfileText).Talkativeness,
		})
		names[member.ID] = member.DisplayName
	}

	id, _ := domain.PickWeighted(candidates, o.random.Float64())
	return names[id]
}

func generateText(ctx context.Context, generator ports.Generator, request domain.GenerationRequest) (string, error) {
	stream, err := generator.Generate(ctx, request)
	if err != nil {
		return "", fmt.Errorf("open generation stream: %w", err)
	}
	defer stream.Close()

	return DecodeStream(stream)
}

func publishFallback(notifier ports.Notifier, clock ports.Clock, id domain.ConversationID) {
	notifier.Publish(domain.Delivery{
		Utterance: domain.Utterance{
			ConversationID: id,
			Speaker:        domain.SpeakerAssistant,
			Content:        domain.FallbackReply,
			Timestamp:      clock.Now().UnixMilli(),
		},
		Fallback: true,
	})
}
