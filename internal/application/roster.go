package application

import (
	"fmt"
	"slices"
	"sync"

	"github.com/bnema/chatsim/internal/domain"
)

type rosterEntry struct {
	persona  domain.Persona
	assigned bool
}

// Roster is the fixed persona set of a simulation. Only profile text may
// change after construction, and at most once per persona.
type Roster struct {
	mu      sync.RWMutex
	order   []domain.PersonaID
	entries map[domain.PersonaID]*rosterEntry
}

func NewRoster(personas []domain.Persona) (*Roster, error) {
	normalized := make([]domain.Persona, 0, len(personas))
	for _, persona := range personas {
		persona.NormalizeParticipants()
		normalized = append(normalized, persona)
	}
	if err := domain.ValidateRoster(normalized); err != nil {
		return nil, fmt.Errorf("validate roster: %w", err)
	}

	roster := &Roster{entries: make(map[domain.PersonaID]*rosterEntry, len(normalized))}
	for _, persona := range normalized {
		roster.order = append(roster.order, persona.ID)
		roster.entries[persona.ID] = &rosterEntry{persona: persona}
	}

	return roster, nil
}

func (r *Roster) List() []domain.Persona {
	r.mu.RLock()
	defer r.mu.RUnlock()

	personas := make([]domain.Persona, 0, len(r.order))
	for _, id := range r.order {
		personas = append(personas, clonePersona(r.entries[id].persona))
	}
	return personas
}

func (r *Roster) Get(id domain.PersonaID) (domain.Persona, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.entries[id]
	if !ok {
		return domain.Persona{}, fmt.Errorf("persona %q: %w", id, domain.ErrPersonaNotFound)
	}
	return clonePersona(entry.persona), nil
}

// Members resolves the participants of a group persona in membership order.
func (r *Roster) Members(groupID domain.PersonaID) ([]domain.Persona, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.entries[groupID]
	if !ok {
		return nil, fmt.Errorf("persona %q: %w", groupID, domain.ErrPersonaNotFound)
	}
	if !entry.persona.IsGroup() {
		return nil, fmt.Errorf("persona %q: %w", groupID, domain.ErrNotAGroup)
	}

	members := make([]domain.Persona, 0, len(entry.persona.ParticipantIDs))
	for _, id := range entry.persona.ParticipantIDs {
		members = append(members, clonePersona(r.entries[id].persona))
	}
	return members, nil
}

func (r *Roster) AssignProfile(id domain.PersonaID, profile string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.entries[id]
	if !ok {
		return fmt.Errorf("persona %q: %w", id, domain.ErrPersonaNotFound)
	}
	if entry.assigned {
		return fmt.Errorf("persona %q: %w", id, domain.ErrProfileAlreadyAssigned)
	}

	entry.persona.ProfileText = profile
	entry.assigned = true
	return nil
}

func clonePersona(persona domain.Persona) domain.Persona {
	persona.ParticipantIDs = slices.Clone(persona.ParticipantIDs)
	return persona
}
