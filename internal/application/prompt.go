package application

import (
	"fmt"
	"strings"

	"github.com/bnema/chatsim/internal/domain"
)

func buildGroupRequest(members []domain.Persona, history []domain.Utterance, opener, instruction string) domain.GenerationRequest {
	var system strings.Builder
	system.WriteString("You are to simulate a short, realistic group chat among the following participants.\n\n")
	for _, member := range members {
		attrs := domain.ParseAttributes(member.ProfileText)
		fmt.Fprintf(&system, "Name: %s\nTalkativeness: %.2f\nReply rate: %.2f\nProfile:\n%s\n\n",
			member.DisplayName, attrs.Talkativeness, attrs.ReplyRate, strings.TrimSpace(member.ProfileText))
	}
	system.WriteString("For every participant, decide independently whether they speak in this turn. " +
		"The chance of speaking follows their reply rate; talkative participants speak more often.\n")
	if opener != "" {
		fmt.Fprintf(&system, "Suggested first speaker: %s.\n", opener)
	}
	if len(members) > 0 {
		fmt.Fprintf(&system, "Output exactly one line per speaking participant in the form \"Name: utterance\", e.g. \"%s: 我来说一句\". ", members[0].DisplayName)
	}
	system.WriteString("Do not include narration, stage directions, or lines for silent participants. " +
		"Keep each utterance concise and in character.")

	messages := []domain.Message{{Role: domain.RoleSystem, Content: system.String()}}
	for _, utterance := range history {
		messages = append(messages, domain.Message{Role: groupRole(utterance), Content: utterance.Content})
	}
	if instruction = strings.TrimSpace(instruction); instruction != "" {
		messages = append(messages, domain.Message{
			Role:    domain.RoleSystem,
			Content: "Topic for this turn: " + instruction,
		})
	}

	return domain.GenerationRequest{Messages: messages}
}

func buildSingleRequest(persona domain.Persona, history []domain.Utterance) domain.GenerationRequest {
	var messages []domain.Message
	if profile := strings.TrimSpace(persona.ProfileText); profile != "" {
		messages = append(messages, domain.Message{Role: domain.RoleSystem, Content: profile})
	}
	for _, utterance := range history {
		role := domain.RoleAssistant
		if utterance.FromUser() {
			role = domain.RoleUser
		}
		messages = append(messages, domain.Message{Role: role, Content: utterance.Content})
	}

	return domain.GenerationRequest{Messages: messages}
}

func groupRole(utterance domain.Utterance) string {
	switch strings.TrimSpace(utterance.Speaker) {
	case domain.SpeakerUser:
		return domain.RoleUser
	case "", domain.SpeakerAssistant:
		return domain.RoleAssistant
	default:
		return utterance.Speaker
	}
}
