package chat

import (
	"net/url"
	"path"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"botdesk/internal/client"
	"botdesk/internal/types"
)

const fallbackTitleRunes = 25

var serverTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// parseServerTime accepts the shapes the backend has emitted for created_at
// and updated_at. Naive values are read as UTC.
func parseServerTime(raw client.Timestamp) (time.Time, bool) {
	value := strings.TrimSpace(string(raw))
	if value == "" {
		return time.Time{}, false
	}
	if n, err := strconv.ParseFloat(value, 64); err == nil && !strings.ContainsAny(value, "-:") {
		return unixTime(n), true
	}
	for _, layout := range serverTimeLayouts {
		if ts, err := time.Parse(layout, value); err == nil {
			return ts.UTC(), true
		}
	}
	return time.Time{}, false
}

// unixTime treats values past year ~2286 in seconds as milliseconds.
func unixTime(n float64) time.Time {
	if n > 1e10 {
		ms := int64(n)
		return time.UnixMilli(ms).UTC()
	}
	sec := int64(n)
	nsec := int64((n - float64(sec)) * 1e9)
	return time.Unix(sec, nsec).UTC()
}

func normalizeSender(raw string) types.Sender {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "user", "human":
		return types.SenderUser
	default:
		return types.SenderBot
	}
}

var (
	fencePattern    = regexp.MustCompile("(?m)^\\s*```")
	markdownPattern = regexp.MustCompile(`(?m)(^#{1,6}\s)|(^\s*[-*+]\s)|(^\s*\d+\.\s)|(\*\*[^*]+\*\*)|(\[[^\]]+\]\([^)]+\))|(^>\s)`)
	imageExtensions = map[string]struct{}{
		".png": {}, ".jpg": {}, ".jpeg": {}, ".gif": {}, ".webp": {}, ".svg": {},
	}
)

func inferKind(content string) types.MessageKind {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return types.MessageKindText
	}
	if isImageURL(trimmed) {
		return types.MessageKindImage
	}
	if fencePattern.MatchString(trimmed) {
		return types.MessageKindCode
	}
	if markdownPattern.MatchString(trimmed) {
		return types.MessageKindMarkdown
	}
	return types.MessageKindText
}

func isImageURL(value string) bool {
	if strings.ContainsAny(value, " \n\t") {
		return false
	}
	u, err := url.Parse(value)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return false
	}
	_, ok := imageExtensions[strings.ToLower(path.Ext(u.Path))]
	return ok
}

// cleanTitle trims the server title. An empty title falls back to the first
// line of the first user message.
func cleanTitle(raw string, messages []types.Message) string {
	if title := strings.TrimSpace(raw); title != "" {
		return title
	}
	return fallbackTitle(messages)
}

func fallbackTitle(messages []types.Message) string {
	for _, msg := range messages {
		if msg.Sender != types.SenderUser {
			continue
		}
		content := strings.TrimSpace(msg.Content)
		if content == "" {
			continue
		}
		line, _, _ := strings.Cut(content, "\n")
		line = strings.TrimSpace(line)
		if utf8.RuneCountInString(line) > fallbackTitleRunes {
			runes := []rune(line)
			return string(runes[:fallbackTitleRunes]) + "..."
		}
		if line != content {
			return line + "..."
		}
		return line
	}
	return types.DefaultConversationTitle
}

func newID() string {
	return uuid.NewString()
}

func messagesFromRemote(in []client.ChatMessage, fallback time.Time) []types.Message {
	out := make([]types.Message, 0, len(in))
	for _, raw := range in {
		ts, ok := parseServerTime(raw.CreatedAt)
		if !ok {
			ts = fallback
		}
		out = append(out, types.Message{
			ID:        newID(),
			Content:   raw.Message,
			Sender:    normalizeSender(raw.Sender),
			Timestamp: ts,
			Kind:      inferKind(raw.Message),
		})
	}
	return out
}

// conversationFromRemote converts a server chat into the local shape. A
// missing updated_at collapses to created_at.
func conversationFromRemote(chat *client.Chat, chatbotID string, now time.Time) types.Conversation {
	created, ok := parseServerTime(chat.CreatedAt)
	if !ok {
		created = now
	}
	updated, ok := parseServerTime(chat.UpdatedAt)
	if !ok || updated.Before(created) {
		updated = created
	}
	messages := messagesFromRemote(chat.Messages, created)
	return types.Conversation{
		LocalID:   newID(),
		RemoteID:  strings.TrimSpace(chat.ChatID),
		Title:     cleanTitle(chat.Title, messages),
		Messages:  messages,
		ChatbotID: chatbotID,
		CreatedAt: created,
		UpdatedAt: updated,
	}
}

// lastBotReply picks the newest bot message of a transcript.
func lastBotReply(messages []types.Message) (types.Message, bool) {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Sender == types.SenderBot {
			return messages[i], true
		}
	}
	return types.Message{}, false
}

// sortByRecency orders conversations by LastTouched, newest first. Ties keep
// server order.
func sortByRecency(list []types.Conversation) {
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].LastTouched().After(list[j].LastTouched())
	})
}
