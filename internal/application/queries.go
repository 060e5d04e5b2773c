package application

import "github.com/bnema/chatsim/internal/domain"

type PersonaStatus struct {
	Persona    domain.Persona
	Attributes domain.PersonaAttributes
	Members    []string
	Messages   int
	Busy       bool
}

func (e *Engine) Statuses() []PersonaStatus {
	personas := e.roster.List()
	byID := make(map[domain.PersonaID]domain.Persona, len(personas))
	for _, persona := range personas {
		byID[persona.ID] = persona
	}

	statuses := make([]PersonaStatus, 0, len(personas))
	for _, persona := range personas {
		status := PersonaStatus{
			Persona:  persona,
			Messages: e.store.Len(persona.ConversationID()),
			Busy:     e.flights.isBusy(persona.ConversationID()),
		}
		if persona.IsGroup() {
			for _, id := range persona.ParticipantIDs {
				status.Members = append(status.Members, byID[id].DisplayName)
			}
		} else {
			status.Attributes = domain.ParseAttributes(persona.ProfileText)
		}
		statuses = append(statuses, status)
	}

	return statuses
}
