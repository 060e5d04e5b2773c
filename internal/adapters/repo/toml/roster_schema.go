package toml

import (
	"fmt"

	"github.com/bnema/chatsim/internal/domain"
)

const currentRosterSchemaVersion = 1

type rosterSchema struct {
	Version  int             `toml:"version" yaml:"version"`
	Personas []personaSchema `toml:"personas" yaml:"personas"`
}

func (s *rosterSchema) applyDefaults() {
	if s.Version == 0 {
		s.Version = currentRosterSchemaVersion
	}
}

func (s rosterSchema) validateVersion() error {
	if s.Version > currentRosterSchemaVersion {
		return fmt.Errorf("unsupported roster schema version %d (current %d)", s.Version, currentRosterSchemaVersion)
	}

	return nil
}

type personaSchema struct {
	ID           string   `toml:"id" yaml:"id"`
	Name         string   `toml:"name" yaml:"name"`
	Status       string   `toml:"status,omitempty" yaml:"status,omitempty"`
	Avatar       string   `toml:"avatar,omitempty" yaml:"avatar,omitempty"`
	Greeting     string   `toml:"greeting,omitempty" yaml:"greeting,omitempty"`
	Participants []string `toml:"participants,omitempty" yaml:"participants,omitempty"`
	Profile      string   `toml:"profile,omitempty,multiline" yaml:"profile,omitempty"`
}

func toPersonaSchema(persona domain.Persona) personaSchema {
	participants := make([]string, 0, len(persona.ParticipantIDs))
	for _, id := range persona.ParticipantIDs {
		participants = append(participants, string(id))
	}
	if len(participants) == 0 {
		participants = nil
	}

	return personaSchema{
		ID:           string(persona.ID),
		Name:         persona.DisplayName,
		Status:       persona.StatusText,
		Avatar:       persona.AvatarGlyph,
		Greeting:     persona.Greeting,
		Participants: participants,
		Profile:      persona.ProfileText,
	}
}

func fromPersonaSchema(persona personaSchema) domain.Persona {
	var participants []domain.PersonaID
	for _, id := range persona.Participants {
		participants = append(participants, domain.PersonaID(id))
	}

	return domain.Persona{
		ID:             domain.PersonaID(persona.ID),
		DisplayName:    persona.Name,
		StatusText:     persona.Status,
		AvatarGlyph:    persona.Avatar,
		ProfileText:    persona.Profile,
		Greeting:       persona.Greeting,
		ParticipantIDs: participants,
	}
}
