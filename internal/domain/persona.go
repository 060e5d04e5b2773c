package domain

import (
	"fmt"
	"strings"
)

type PersonaID string

// ConversationID names a conversation log. Every persona, group personas
// included, owns exactly one log keyed by its own id.
type ConversationID string

type Persona struct {
	ID             PersonaID
	DisplayName    string
	StatusText     string
	AvatarGlyph    string
	ProfileText    string
	Greeting       string
	ParticipantIDs []PersonaID
}

func (p Persona) IsGroup() bool {
	return len(p.ParticipantIDs) > 0
}

func (p Persona) ConversationID() ConversationID {
	return ConversationID(p.ID)
}

func (p Persona) Validate() error {
	if strings.TrimSpace(string(p.ID)) == "" {
		return fmt.Errorf("id is required")
	}
	if strings.TrimSpace(p.DisplayName) == "" {
		return fmt.Errorf("name is required")
	}
	for _, participant := range p.ParticipantIDs {
		if participant == p.ID {
			return fmt.Errorf("group %q cannot include itself", p.ID)
		}
	}

	return nil
}

func (p *Persona) NormalizeParticipants() {
	if p == nil || len(p.ParticipantIDs) == 0 {
		return
	}

	participants := make([]PersonaID, 0, len(p.ParticipantIDs))
	seen := make(map[PersonaID]struct{}, len(p.ParticipantIDs))
	for _, participant := range p.ParticipantIDs {
		trimmed := PersonaID(strings.TrimSpace(string(participant)))
		if trimmed == "" {
			continue
		}
		if _, ok := seen[trimmed]; ok {
			continue
		}
		seen[trimmed] = struct{}{}
		participants = append(participants, trimmed)
	}

	p.ParticipantIDs = participants
}

// ValidateRoster checks every persona and resolves group membership: ids are
// unique and each participant names an existing non-group persona.
func ValidateRoster(personas []Persona) error {
	byID := make(map[PersonaID]Persona, len(personas))
	for _, persona := range personas {
		if err := persona.Validate(); err != nil {
			return fmt.Errorf("persona %q: %w", persona.ID, err)
		}
		if _, ok := byID[persona.ID]; ok {
			return fmt.Errorf("persona %q: %w", persona.ID, ErrDuplicatePersona)
		}
		byID[persona.ID] = persona
	}

	for _, persona := range personas {
		for _, participant := range persona.ParticipantIDs {
			member, ok := byID[participant]
			if !ok {
				return fmt.Errorf("group %q participant %q: %w", persona.ID, participant, ErrPersonaNotFound)
			}
			if member.IsGroup() {
				return fmt.Errorf("group %q participant %q is itself a group", persona.ID, participant)
			}
		}
	}

	return nil
}

// DefaultRoster is the three-person group used when no roster file exists.
func DefaultRoster() []Persona {
	return []Persona{
		{ID: "group", DisplayName: "群聊", StatusText: "三人组", AvatarGlyph: "群", ParticipantIDs: []PersonaID{"1", "2", "3"}},
		{ID: "1", DisplayName: "榆木华", StatusText: "企鹅罐头", AvatarGlyph: "华", Greeting: "我是榆木华"},
		{ID: "2", DisplayName: "Snaur", StatusText: "症", AvatarGlyph: "卵", Greeting: "我是Snaur"},
		{ID: "3", DisplayName: "FFFanwen", StatusText: "已读不回", AvatarGlyph: "蚊", Greeting: "我是FFFanwen"},
	}
}
