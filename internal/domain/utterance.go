package domain

import "time"

const (
	SpeakerUser      = "user"
	SpeakerAssistant = "assistant"
)

// FallbackReply is shown in place of a reply when the generation channel fails
// on a direct user message. It is never written to a conversation log.
const FallbackReply = "请求失败，请稍后重试。"

type Utterance struct {
	ID             string
	ConversationID ConversationID
	Speaker        string
	Content        string
	// Timestamp is in unix milliseconds.
	Timestamp int64
}

func (u Utterance) Time() time.Time {
	return time.UnixMilli(u.Timestamp)
}

func (u Utterance) FromUser() bool {
	return u.Speaker == SpeakerUser
}

type Reply struct {
	Speaker string
	Content string
}

type ResponseBatch []Reply

// Delivery is what the presentation boundary receives for every utterance the
// core produces. Fallback deliveries carry FallbackReply and no log entry.
type Delivery struct {
	Utterance Utterance
	Fallback  bool
}

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one role/content pair of a generation request. Besides the
// three standard roles, a persona display name may be used as the role.
type Message struct {
	Role    string
	Content string
}

type GenerationRequest struct {
	Messages []Message
}
