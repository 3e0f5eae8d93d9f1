package chat

import (
	"strings"
	"testing"
	"time"

	"botdesk/internal/client"
	"botdesk/internal/types"
)

func TestParseServerTime(t *testing.T) {
	want := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	cases := map[string]client.Timestamp{
		"rfc3339":        "2024-05-01T08:00:00Z",
		"offset":         "2024-05-01T10:00:00+02:00",
		"naive":          "2024-05-01T08:00:00",
		"naive fraction": "2024-05-01T08:00:00.000000",
		"space":          "2024-05-01 08:00:00",
		"unix seconds":   "1714550400",
		"unix millis":    "1714550400000",
	}
	for name, raw := range cases {
		got, ok := parseServerTime(raw)
		if !ok {
			t.Fatalf("%s: expected %q to parse", name, raw)
		}
		if !got.Equal(want) {
			t.Fatalf("%s: expected %s, got %s", name, want, got)
		}
	}
	if _, ok := parseServerTime(""); ok {
		t.Fatalf("empty timestamp should not parse")
	}
	if _, ok := parseServerTime("yesterday"); ok {
		t.Fatalf("garbage should not parse")
	}
}

func TestNormalizeSender(t *testing.T) {
	for _, raw := range []string{"user", "USER", " human "} {
		if normalizeSender(raw) != types.SenderUser {
			t.Fatalf("%q should map to user", raw)
		}
	}
	for _, raw := range []string{"bot", "assistant", "ai", ""} {
		if normalizeSender(raw) != types.SenderBot {
			t.Fatalf("%q should map to bot", raw)
		}
	}
}

func TestInferKind(t *testing.T) {
	cases := []struct {
		content string
		want    types.MessageKind
	}{
		{"plain answer", types.MessageKindText},
		{"https://example.com/chart.PNG", types.MessageKindImage},
		{"see https://example.com/chart.png for details", types.MessageKindText},
		{"```go\nfmt.Println(1)\n```", types.MessageKindCode},
		{"## Steps\n1. add\n2. multiply", types.MessageKindMarkdown},
		{"this is **important**", types.MessageKindMarkdown},
	}
	for _, tc := range cases {
		if got := inferKind(tc.content); got != tc.want {
			t.Fatalf("inferKind(%q) = %q, want %q", tc.content, got, tc.want)
		}
	}
}

func TestFallbackTitle(t *testing.T) {
	msgs := func(content string) []types.Message {
		return []types.Message{
			{Sender: types.SenderBot, Content: "welcome"},
			{Sender: types.SenderUser, Content: content},
		}
	}
	if got := fallbackTitle(msgs("short question")); got != "short question" {
		t.Fatalf("unexpected title %q", got)
	}
	long := "how do I integrate by parts twice"
	if got := fallbackTitle(msgs(long)); got != long[:25]+"..." {
		t.Fatalf("unexpected truncated title %q", got)
	}
	if got := fallbackTitle(msgs("first line\nsecond line")); got != "first line..." {
		t.Fatalf("unexpected multi-line title %q", got)
	}
	if got := fallbackTitle(msgs(strings.Repeat("é", 30))); got != strings.Repeat("é", 25)+"..." {
		t.Fatalf("truncation must count runes, got %q", got)
	}
	if got := fallbackTitle(nil); got != types.DefaultConversationTitle {
		t.Fatalf("expected default title, got %q", got)
	}
	if got := cleanTitle("  Integrals  ", nil); got != "Integrals" {
		t.Fatalf("expected trimmed server title, got %q", got)
	}
}

func TestConversationFromRemoteCollapsesMissingUpdatedAt(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	conv := conversationFromRemote(&client.Chat{ChatID: " c1 ", CreatedAt: "2024-05-01T08:00:00Z"}, "chatbot-1", now)
	if conv.RemoteID != "c1" || conv.LocalID == "" {
		t.Fatalf("unexpected ids %#v", conv)
	}
	if !conv.UpdatedAt.Equal(conv.CreatedAt) {
		t.Fatalf("expected updated_at to default to created_at")
	}
	missing := conversationFromRemote(&client.Chat{ChatID: "c2"}, "chatbot-1", now)
	if !missing.CreatedAt.Equal(now) {
		t.Fatalf("expected unparseable created_at to fall back to now, got %s", missing.CreatedAt)
	}
}
