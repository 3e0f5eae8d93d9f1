package types

import "time"

type Sender string

const (
	SenderUser Sender = "user"
	SenderBot  Sender = "bot"
)

type MessageKind string

const (
	MessageKindText     MessageKind = "text"
	MessageKindCode     MessageKind = "code"
	MessageKindMarkdown MessageKind = "markdown"
	MessageKindImage    MessageKind = "image"
)

// DefaultConversationTitle is used for drafts and untitled conversations.
const DefaultConversationTitle = "New Chat"

type Message struct {
	ID        string      `json:"id"`
	Content   string      `json:"content"`
	Sender    Sender      `json:"sender"`
	Timestamp time.Time   `json:"timestamp"`
	Kind      MessageKind `json:"kind"`
	Pending   bool        `json:"pending,omitempty"`
}

// Conversation is a transcript with one chatbot. RemoteID is empty while the
// conversation is a draft the remote store has not acknowledged yet.
type Conversation struct {
	LocalID   string    `json:"local_id"`
	RemoteID  string    `json:"remote_id,omitempty"`
	Title     string    `json:"title"`
	Messages  []Message `json:"messages,omitempty"`
	ChatbotID string    `json:"chatbot_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (c *Conversation) IsDraft() bool {
	return c == nil || c.RemoteID == ""
}

// ID is the display id: the remote id once persisted, the local id before.
func (c *Conversation) ID() string {
	if c == nil {
		return ""
	}
	if c.RemoteID != "" {
		return c.RemoteID
	}
	return c.LocalID
}

// LastTouched is max(UpdatedAt, CreatedAt).
func (c *Conversation) LastTouched() time.Time {
	if c == nil {
		return time.Time{}
	}
	if c.UpdatedAt.After(c.CreatedAt) {
		return c.UpdatedAt
	}
	return c.CreatedAt
}

func (c *Conversation) PendingCount() int {
	if c == nil {
		return 0
	}
	count := 0
	for _, msg := range c.Messages {
		if msg.Pending {
			count++
		}
	}
	return count
}

// Summary drops the message bodies.
func (c *Conversation) Summary() Conversation {
	if c == nil {
		return Conversation{}
	}
	out := *c
	out.Messages = nil
	return out
}

func (c *Conversation) Clone() *Conversation {
	if c == nil {
		return nil
	}
	out := *c
	if c.Messages != nil {
		out.Messages = append([]Message(nil), c.Messages...)
	}
	return &out
}
