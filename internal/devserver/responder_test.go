package devserver

import (
	"strings"
	"testing"
	"time"

	"botdesk/internal/types"
)

func TestCannedResponderByCategory(t *testing.T) {
	r := CannedResponder{}
	if got := r.Reply(types.CategoryMathematics, "Solve x+1=2"); !strings.HasPrefix(got, "To solve this equation") {
		t.Fatalf("unexpected math reply %q", got)
	}
	if got := r.Reply(types.CategoryProgramming, "fix my code"); !strings.HasPrefix(got, "```") {
		t.Fatalf("expected fenced code reply, got %q", got)
	}
	if got := r.Reply(types.CategoryLaw, "anything"); !strings.Contains(got, "not legal advice") {
		t.Fatalf("unexpected law reply %q", got)
	}
}

func TestChatTitle(t *testing.T) {
	cases := map[string]string{
		"hello":                              "hello",
		"  padded  ":                         "padded",
		"first line\nsecond":                 "first line...",
		"a question that is definitely long": "a question that is defini...",
		"":                                   types.DefaultConversationTitle,
	}
	for in, want := range cases {
		if got := chatTitle(in); got != want {
			t.Fatalf("chatTitle(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestTokenIssuerRejectsExpiredAndForeignTokens(t *testing.T) {
	issuer, err := NewTokenIssuer("k1", time.Minute)
	if err != nil {
		t.Fatalf("NewTokenIssuer: %v", err)
	}
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	issuer.now = func() time.Time { return base }
	token, err := issuer.Issue("u1")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	claims, err := issuer.Verify(token)
	if err != nil || claims.UserID != "u1" || claims.TokenID == "" {
		t.Fatalf("Verify: %#v %v", claims, err)
	}

	other, _ := NewTokenIssuer("k2", time.Minute)
	other.now = issuer.now
	if _, err := other.Verify(token); err == nil {
		t.Fatalf("token signed with another key must fail")
	}

	issuer.now = func() time.Time { return base.Add(2 * time.Minute) }
	if _, err := issuer.Verify(token); err == nil {
		t.Fatalf("expired token must fail")
	}
}
