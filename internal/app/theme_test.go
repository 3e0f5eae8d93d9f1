package app

import (
	"testing"

	"github.com/charmbracelet/lipgloss"
)

func TestChatBubbleStylesUseSharedSymmetricPadding(t *testing.T) {
	styles := []struct {
		name  string
		style lipgloss.Style
	}{
		{name: "user", style: userBubbleStyle},
		{name: "bot", style: botBubbleStyle},
		{name: "pending", style: pendingBubbleStyle},
	}

	for _, tc := range styles {
		if got := tc.style.GetPaddingTop(); got != chatBubblePaddingVertical {
			t.Fatalf("%s padding top: expected %d, got %d", tc.name, chatBubblePaddingVertical, got)
		}
		if got := tc.style.GetPaddingBottom(); got != chatBubblePaddingVertical {
			t.Fatalf("%s padding bottom: expected %d, got %d", tc.name, chatBubblePaddingVertical, got)
		}
		if got := tc.style.GetPaddingLeft(); got != chatBubblePaddingHorizontal {
			t.Fatalf("%s padding left: expected %d, got %d", tc.name, chatBubblePaddingHorizontal, got)
		}
		if got := tc.style.GetPaddingRight(); got != chatBubblePaddingHorizontal {
			t.Fatalf("%s padding right: expected %d, got %d", tc.name, chatBubblePaddingHorizontal, got)
		}
	}
}

func TestColorForTokenStripsBackgroundPrefix(t *testing.T) {
	if got := colorForToken("bg-chatbot-purple"); got != lipgloss.Color("99") {
		t.Fatalf("expected purple mapping, got %q", got)
	}
	if got := colorForToken("chatbot-teal"); got != lipgloss.Color("37") {
		t.Fatalf("expected teal mapping, got %q", got)
	}
	if got := colorForToken("bg-unknown"); got != lipgloss.Color("252") {
		t.Fatalf("expected fallback color, got %q", got)
	}
}
