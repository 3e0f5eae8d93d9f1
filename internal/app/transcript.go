package app

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"botdesk/internal/app/sanitizer"
	"botdesk/internal/types"
)

var (
	contentSanitizer = sanitizer.Content()
	titleSanitizer   = sanitizer.Title()
)

const (
	bubbleFrameWidth = 4
	minBubbleWidth   = 16
)

// renderTranscript lays out messages top to bottom in insertion order.
func renderTranscript(md *markdownRenderer, conv *types.Conversation, botName string, width int, pendingFrame string) string {
	if conv == nil || len(conv.Messages) == 0 {
		return chatMetaStyle.Render("Say hello to " + botName + " to start a conversation.")
	}
	bubbleWidth := max(minBubbleWidth, width-bubbleFrameWidth)
	blocks := make([]string, 0, len(conv.Messages))
	for _, msg := range conv.Messages {
		blocks = append(blocks, renderMessage(md, msg, botName, bubbleWidth, width, pendingFrame))
	}
	return strings.Join(blocks, "\n\n")
}

func renderMessage(md *markdownRenderer, msg types.Message, botName string, bubbleWidth, width int, pendingFrame string) string {
	stamp := ""
	if !msg.Timestamp.IsZero() {
		stamp = " · " + msg.Timestamp.Local().Format("15:04")
	}
	if msg.Sender == types.SenderUser {
		body := userBubbleStyle.Render(ansi.Wordwrap(contentSanitizer.Sanitize(msg.Content), bubbleWidth, " "))
		meta := chatMetaStyle.Render("You" + stamp)
		return lipgloss.PlaceHorizontal(width, lipgloss.Right, lipgloss.JoinVertical(lipgloss.Right, meta, body))
	}
	meta := chatMetaStyle.Render(botName + stamp)
	if msg.Pending {
		return lipgloss.JoinVertical(lipgloss.Left, meta, pendingBubbleStyle.Render(strings.TrimSpace(pendingFrame+" thinking…")))
	}
	body := md.RenderReply(msg.Kind, contentSanitizer.Sanitize(msg.Content), bubbleWidth)
	return lipgloss.JoinVertical(lipgloss.Left, meta, botBubbleStyle.Render(body))
}

// lastBotReply returns the newest settled bot message.
func lastBotReply(conv *types.Conversation) (string, bool) {
	if conv == nil {
		return "", false
	}
	for i := len(conv.Messages) - 1; i >= 0; i-- {
		msg := conv.Messages[i]
		if msg.Sender == types.SenderBot && !msg.Pending && strings.TrimSpace(msg.Content) != "" {
			return msg.Content, true
		}
	}
	return "", false
}
