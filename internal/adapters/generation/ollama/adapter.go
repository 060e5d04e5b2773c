package ollama

import (
	"strings"

	"github.com/bnema/chatsim/internal/domain"
)

// ToRequest flattens a role/content conversation into the system and prompt
// fields of /api/generate. The first system message becomes the system
// prompt; every other message is rendered as a "Role: content" prompt line.
func ToRequest(req domain.GenerationRequest, model string) Request {
	out := Request{Model: model, Stream: true}

	var prompt strings.Builder
	for _, msg := range req.Messages {
		if msg.Role == domain.RoleSystem && out.System == "" {
			out.System = msg.Content
			continue
		}

		prompt.WriteString(speakerLabel(msg.Role))
		prompt.WriteString(": ")
		prompt.WriteString(msg.Content)
		prompt.WriteByte('\n')
	}
	out.Prompt = prompt.String()

	return out
}

func speakerLabel(role string) string {
	switch role {
	case domain.RoleSystem:
		return "System"
	case domain.RoleUser:
		return "User"
	case domain.RoleAssistant:
		return "Assistant"
	default:
		return role
	}
}
