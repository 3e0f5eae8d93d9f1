package chat

import (
	"context"
	"errors"
	"net/http"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"botdesk/internal/client"
	"botdesk/internal/store"
	"botdesk/internal/types"
)

func newTestController(t *testing.T, b *fakeBackend, opts ...Option) *Controller {
	t.Helper()
	c := NewController(b.client(), opts...)
	t.Cleanup(c.Close)
	return c
}

func TestSelectChatbotStartsDraft(t *testing.T) {
	c := newTestController(t, newFakeBackend(t))
	c.SelectChatbot(testBot)

	snap := c.Snapshot()
	if snap.Chatbot == nil || snap.Chatbot.ID != testBot.ID {
		t.Fatalf("unexpected chatbot %#v", snap.Chatbot)
	}
	conv := snap.Conversation
	if conv == nil || !conv.IsDraft() || conv.LocalID == "" || len(conv.Messages) != 0 {
		t.Fatalf("expected empty draft, got %#v", conv)
	}
	if conv.Title != types.DefaultConversationTitle {
		t.Fatalf("unexpected title %q", conv.Title)
	}
}

func TestSendWithoutChatbotIsRejected(t *testing.T) {
	b := newFakeBackend(t)
	c := newTestController(t, b)
	sent, err := c.SendMessage(context.Background(), "hello")
	if sent || err != nil {
		t.Fatalf("expected silent rejection, got sent=%v err=%v", sent, err)
	}
	c.SelectChatbot(testBot)
	sent, err = c.SendMessage(context.Background(), "   ")
	if sent || err != nil {
		t.Fatalf("expected blank text rejected, got sent=%v err=%v", sent, err)
	}
	if b.count("POST /api/chat/new") != 0 {
		t.Fatalf("rejected sends must not reach the backend")
	}
}

func TestSendWhilePendingIsNoOp(t *testing.T) {
	b := newFakeBackend(t)
	gate := make(chan struct{})
	b.gate = gate
	c := newTestController(t, b)
	c.SelectChatbot(testBot)

	send, ok := c.BeginSend("first")
	if !ok {
		t.Fatalf("expected first send to begin")
	}
	if !c.Pending() {
		t.Fatalf("expected latch set")
	}
	done := make(chan error, 1)
	go func() {
		_, err := send.Commit(context.Background())
		done <- err
	}()

	for i := 0; i < 3; i++ {
		sent, err := c.SendMessage(context.Background(), "again")
		if sent || err != nil {
			t.Fatalf("send %d while pending should be a no-op, got sent=%v err=%v", i, sent, err)
		}
	}
	if got := c.Snapshot().Conversation.PendingCount(); got != 1 {
		t.Fatalf("expected exactly one placeholder, got %d", got)
	}

	close(gate)
	if err := <-done; err != nil {
		t.Fatalf("commit: %v", err)
	}
	if c.Pending() {
		t.Fatalf("latch should be released")
	}
	if b.count("POST /api/chat/new") != 1 {
		t.Fatalf("expected one create call, got %d", b.count("POST /api/chat/new"))
	}
	if len(c.Snapshot().Conversation.Messages) != 2 {
		t.Fatalf("only the first send should be processed")
	}
}

func TestFailedSendKeepsUserMessageAndDropsPlaceholder(t *testing.T) {
	b := newFakeBackend(t)
	b.failWith("POST /api/chat/new", http.StatusInternalServerError)
	c := newTestController(t, b)
	c.SelectChatbot(testBot)

	sent, err := c.SendMessage(context.Background(), "hello")
	if !sent || err == nil {
		t.Fatalf("expected attempted send with error, got sent=%v err=%v", sent, err)
	}
	if client.AsAPIError(err) == nil {
		t.Fatalf("expected api error, got %T", err)
	}
	conv := c.Snapshot().Conversation
	if len(conv.Messages) != 1 {
		t.Fatalf("expected only the user message, got %#v", conv.Messages)
	}
	msg := conv.Messages[0]
	if msg.Sender != types.SenderUser || msg.Content != "hello" || msg.Pending {
		t.Fatalf("unexpected surviving message %#v", msg)
	}
	if c.Pending() || !conv.IsDraft() {
		t.Fatalf("expected latch released and draft kept, pending=%v remote=%q", c.Pending(), conv.RemoteID)
	}
}

func TestFailedTranscriptFetchKeepsRemoteID(t *testing.T) {
	b := newFakeBackend(t)
	b.failWith("GET /api/chat/{id}", http.StatusBadGateway)
	c := newTestController(t, b)
	c.SelectChatbot(testBot)

	if _, err := c.SendMessage(context.Background(), "hello"); err == nil {
		t.Fatalf("expected error")
	}
	conv := c.Snapshot().Conversation
	if conv.RemoteID != "chat-1" {
		t.Fatalf("remote id should be adopted once created, got %q", conv.RemoteID)
	}
	if len(conv.Messages) != 1 || conv.PendingCount() != 0 {
		t.Fatalf("expected placeholder removed, got %#v", conv.Messages)
	}
}

func TestSuccessfulSendAppendsUserThenBot(t *testing.T) {
	b := newFakeBackend(t)
	c := newTestController(t, b)
	c.SelectChatbot(testBot)
	if _, err := c.SendMessage(context.Background(), "hello"); err != nil {
		t.Fatalf("first send: %v", err)
	}
	before := len(c.Snapshot().Conversation.Messages)

	send, ok := c.BeginSend("second")
	if !ok {
		t.Fatalf("expected send to begin")
	}
	reply, err := send.Commit(context.Background())
	if err != nil {
		t.Fatalf("commit: %v", err)
	}
	if reply.Content != "echo: second" || reply.ID != send.PlaceholderID() {
		t.Fatalf("unexpected reply %#v", reply)
	}

	conv := c.Snapshot().Conversation
	if len(conv.Messages) != before+2 {
		t.Fatalf("expected two new messages, got %d -> %d", before, len(conv.Messages))
	}
	user, bot := conv.Messages[before], conv.Messages[before+1]
	if user.Sender != types.SenderUser || user.Content != "second" || user.ID != send.UserMessageID() {
		t.Fatalf("unexpected user message %#v", user)
	}
	if bot.Sender != types.SenderBot || bot.Content != "echo: second" {
		t.Fatalf("unexpected bot message %#v", bot)
	}
	if conv.PendingCount() != 0 {
		t.Fatalf("no message should stay pending")
	}
	if b.count("POST /api/chat/{id}") != 1 || b.count("POST /api/chat/new") != 1 {
		t.Fatalf("unexpected calls %#v", b.calls)
	}

	if _, err := send.Commit(context.Background()); !errors.Is(err, ErrAlreadyCommitted) {
		t.Fatalf("expected second commit rejected, got %v", err)
	}
}

// steppingClock advances one minute per reading.
type steppingClock struct {
	mu   sync.Mutex
	next time.Time
}

func (s *steppingClock) now() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := s.next
	s.next = s.next.Add(time.Minute)
	return t
}

func TestSendStampsMessagesFromClock(t *testing.T) {
	base := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	clock := &steppingClock{next: base}
	c := newTestController(t, newFakeBackend(t), WithClock(clock.now))
	c.SelectChatbot(testBot)
	if _, err := c.SendMessage(context.Background(), "hello"); err != nil {
		t.Fatalf("first send: %v", err)
	}

	send, ok := c.BeginSend("again")
	if !ok {
		t.Fatalf("expected send to begin")
	}
	conv := c.Snapshot().Conversation
	if send.ConversationID() != conv.LocalID {
		t.Fatalf("pending send belongs to %q, active conversation is %q", send.ConversationID(), conv.LocalID)
	}
	user := conv.Messages[len(conv.Messages)-2]
	placeholder := conv.Messages[len(conv.Messages)-1]
	if !user.Timestamp.Equal(placeholder.Timestamp) || !conv.UpdatedAt.Equal(user.Timestamp) {
		t.Fatalf("begin should stamp one instant, user=%v placeholder=%v updated=%v", user.Timestamp, placeholder.Timestamp, conv.UpdatedAt)
	}
	if !user.Timestamp.After(base) {
		t.Fatalf("expected clock time after %v, got %v", base, user.Timestamp)
	}

	reply, err := send.Commit(context.Background())
	if err != nil {
		t.Fatalf("commit: %v", err)
	}
	if !reply.Timestamp.After(user.Timestamp) {
		t.Fatalf("reply should be stamped after the user message: %v <= %v", reply.Timestamp, user.Timestamp)
	}
	if got := c.Snapshot().Conversation.UpdatedAt; !got.After(reply.Timestamp) {
		t.Fatalf("confirm should bump updated time past the reply, got %v", got)
	}
}

func TestRemoteIDAssignedOnce(t *testing.T) {
	b := newFakeBackend(t)
	c := newTestController(t, b)
	c.SelectChatbot(testBot)

	var seen []string
	unsubscribe := c.Subscribe(func(s Snapshot) {
		if s.Conversation != nil && s.Conversation.RemoteID != "" {
			seen = append(seen, s.Conversation.RemoteID)
		}
	})
	defer unsubscribe()

	for _, text := range []string{"one", "two", "three"} {
		if _, err := c.SendMessage(context.Background(), text); err != nil {
			t.Fatalf("send %q: %v", text, err)
		}
	}
	if len(seen) == 0 {
		t.Fatalf("expected remote id observed")
	}
	for _, id := range seen {
		if id != seen[0] {
			t.Fatalf("remote id reassigned: %v", seen)
		}
	}
	if b.count("POST /api/chat/new") != 1 {
		t.Fatalf("expected one create, got %d", b.count("POST /api/chat/new"))
	}
}

func TestReplyForInactiveConversationIsDiscarded(t *testing.T) {
	b := newFakeBackend(t)
	gate := make(chan struct{})
	b.gate = gate
	c := newTestController(t, b)
	c.SelectChatbot(testBot)

	send, ok := c.BeginSend("hello")
	if !ok {
		t.Fatalf("expected send to begin")
	}
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, _ = send.Commit(context.Background())
	}()
	c.ClearCurrentChat()
	close(gate)
	wg.Wait()

	conv := c.Snapshot().Conversation
	if len(conv.Messages) != 0 || !conv.IsDraft() {
		t.Fatalf("new draft must not receive the old reply: %#v", conv)
	}
	if c.Pending() {
		t.Fatalf("latch should be released")
	}
}

func TestCloseDropsLateResolution(t *testing.T) {
	b := newFakeBackend(t)
	gate := make(chan struct{})
	b.gate = gate
	c := NewController(b.client())
	c.SelectChatbot(testBot)

	send, ok := c.BeginSend("hello")
	if !ok {
		t.Fatalf("expected send to begin")
	}
	notified := 0
	c.Subscribe(func(Snapshot) { notified++ })
	c.Close()
	close(gate)
	if _, err := send.Commit(context.Background()); err != nil {
		t.Fatalf("commit after close: %v", err)
	}
	if notified != 0 {
		t.Fatalf("closed controller must not notify, got %d", notified)
	}
	if c.Snapshot().Conversation.RemoteID != "" {
		t.Fatalf("closed controller must not adopt remote ids")
	}
}

func TestGetChatHistorySortsByLastTouched(t *testing.T) {
	b := newFakeBackend(t)
	b.history = []client.Chat{
		{ChatID: "t0", Title: "zero", CreatedAt: "2024-01-01T00:00:00Z"},
		{ChatID: "t2", Title: "two", CreatedAt: "2024-03-01T00:00:00Z"},
		{ChatID: "t1", Title: "one", CreatedAt: "2024-02-01 00:00:00"},
	}
	c := newTestController(t, b)

	got, err := c.GetChatHistory(context.Background(), types.CategoryProgramming)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	assertOrder(t, got, "t2", "t1", "t0")
	for _, conv := range got {
		if conv.Messages != nil {
			t.Fatalf("summaries must not carry messages")
		}
	}

	b.mu.Lock()
	b.history[0].UpdatedAt = "1717200000"
	b.mu.Unlock()
	got, err = c.GetChatHistory(context.Background(), types.CategoryProgramming)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	assertOrder(t, got, "t0", "t2", "t1")
}

func assertOrder(t *testing.T, got []types.Conversation, want ...string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("expected %d conversations, got %d", len(want), len(got))
	}
	for i, id := range want {
		if got[i].RemoteID != id {
			t.Fatalf("position %d: expected %q, got %q", i, id, got[i].RemoteID)
		}
	}
}

func TestHistoryCachePopulatedForActiveChatbot(t *testing.T) {
	b := newFakeBackend(t)
	b.history = []client.Chat{
		{ChatID: "a", CreatedAt: "2024-01-01T00:00:00Z"},
		{ChatID: "b", CreatedAt: "2024-01-02T00:00:00Z"},
	}
	repo := store.NewFileRepository(filepath.Join(t.TempDir(), "state.json"))
	c := newTestController(t, b, WithHistoryStore(repo.History()))

	if _, err := c.GetChatHistory(context.Background(), types.CategoryLaw); err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(c.History(context.Background(), testBot.ID)) != 0 {
		t.Fatalf("no active chatbot, cache should stay empty")
	}

	c.SelectChatbot(testBot)
	if _, err := c.GetChatHistory(context.Background(), types.CategoryProgramming); err != nil {
		t.Fatalf("history: %v", err)
	}
	cached := c.History(context.Background(), testBot.ID)
	assertOrder(t, cached, "b", "a")
	if cached[0].ChatbotID != testBot.ID {
		t.Fatalf("expected summaries tagged with chatbot, got %q", cached[0].ChatbotID)
	}

	reopened := NewController(b.client(), WithHistoryStore(repo.History()))
	defer reopened.Close()
	assertOrder(t, reopened.History(context.Background(), testBot.ID), "b", "a")
}

func TestDeleteUnknownIDLeavesCache(t *testing.T) {
	b := newFakeBackend(t)
	b.history = []client.Chat{{ChatID: "a", CreatedAt: "2024-01-01T00:00:00Z"}}
	c := newTestController(t, b)
	c.SelectChatbot(testBot)
	if _, err := c.GetChatHistory(context.Background(), types.CategoryProgramming); err != nil {
		t.Fatalf("history: %v", err)
	}

	if !c.DeleteChatByID(context.Background(), "missing") {
		t.Fatalf("expected remote success to report true")
	}
	assertOrder(t, c.History(context.Background(), testBot.ID), "a")
}

func TestDeleteActiveConversationStartsDraft(t *testing.T) {
	b := newFakeBackend(t)
	c := newTestController(t, b)
	c.SelectChatbot(testBot)
	if _, err := c.SendMessage(context.Background(), "hello"); err != nil {
		t.Fatalf("send: %v", err)
	}
	b.mu.Lock()
	b.history = []client.Chat{{ChatID: "chat-1", CreatedAt: "2024-05-01T08:00:00Z"}}
	b.mu.Unlock()
	if _, err := c.GetChatHistory(context.Background(), types.CategoryProgramming); err != nil {
		t.Fatalf("history: %v", err)
	}

	if !c.DeleteChatByID(context.Background(), "chat-1") {
		t.Fatalf("expected delete to succeed")
	}
	conv := c.Snapshot().Conversation
	if conv == nil || !conv.IsDraft() || len(conv.Messages) != 0 {
		t.Fatalf("expected fresh draft, got %#v", conv)
	}
	if len(c.History(context.Background(), testBot.ID)) != 0 {
		t.Fatalf("deleted chat should leave the cache")
	}
}

func TestDeleteFailureReportsFalse(t *testing.T) {
	b := newFakeBackend(t)
	b.failWith("DELETE /api/chat/{id}", http.StatusInternalServerError)
	c := newTestController(t, b)
	if c.DeleteChatByID(context.Background(), "chat-1") {
		t.Fatalf("expected false on remote failure")
	}
}

func TestLoadChatByIDReplacesConversation(t *testing.T) {
	b := newFakeBackend(t)
	b.seed(client.Chat{
		ChatID:    "chat-7",
		Title:     "",
		CreatedAt: "2024-05-01T08:00:00",
		Messages: []client.ChatMessage{
			{Sender: "human", Message: "what is a monad", CreatedAt: "2024-05-01T08:00:00"},
			{Sender: "ai", Message: "```haskell\nreturn x\n```", CreatedAt: "2024-05-01T08:00:02"},
		},
	})
	c := newTestController(t, b)
	c.SelectChatbot(testBot)

	conv := c.LoadChatByID(context.Background(), "chat-7")
	if conv == nil {
		t.Fatalf("expected loaded conversation")
	}
	if conv.RemoteID != "chat-7" || conv.ChatbotID != testBot.ID {
		t.Fatalf("unexpected ids %#v", conv)
	}
	if conv.Title != "what is a monad" {
		t.Fatalf("expected fallback title, got %q", conv.Title)
	}
	if conv.Messages[0].Sender != types.SenderUser || conv.Messages[1].Kind != types.MessageKindCode {
		t.Fatalf("unexpected shaping %#v", conv.Messages)
	}
	if c.Snapshot().Conversation.RemoteID != "chat-7" {
		t.Fatalf("active conversation not replaced")
	}
}

func TestLoadChatByIDMissFallsBackToDraft(t *testing.T) {
	b := newFakeBackend(t)
	c := newTestController(t, b)
	c.SelectChatbot(testBot)
	if _, err := c.SendMessage(context.Background(), "hello"); err != nil {
		t.Fatalf("send: %v", err)
	}

	if conv := c.LoadChatByID(context.Background(), "nope"); conv != nil {
		t.Fatalf("expected nil on miss, got %#v", conv)
	}
	snap := c.Snapshot()
	if snap.Conversation == nil || !snap.Conversation.IsDraft() || len(snap.Conversation.Messages) != 0 {
		t.Fatalf("expected fresh draft, got %#v", snap.Conversation)
	}
	if snap.Conversation.ChatbotID != testBot.ID {
		t.Fatalf("draft should belong to the same chatbot")
	}
}

func TestCreateNewChatSwitchesChatbotByID(t *testing.T) {
	c := newTestController(t, newFakeBackend(t))
	if c.CreateNewChat("") != nil {
		t.Fatalf("no active chatbot, expected nil")
	}
	draft := c.CreateNewChat("chatbot-1")
	if draft == nil || draft.ChatbotID != "chatbot-1" {
		t.Fatalf("expected draft for chatbot-1, got %#v", draft)
	}
	if c.Snapshot().Chatbot.Name != "MathGenius" {
		t.Fatalf("expected catalog chatbot selected")
	}
	if c.CreateNewChat("chatbot-404") != nil {
		t.Fatalf("unknown chatbot should be rejected")
	}
}

func TestResolverAcceptsNamesAndCustomBots(t *testing.T) {
	custom := types.Chatbot{ID: "bot-x", Name: "Tutor", Category: types.CategoryScience}
	resolve := func(ref string) (types.Chatbot, bool) {
		if ref == custom.ID || ref == custom.Name {
			return custom, true
		}
		return types.Chatbot{}, false
	}
	c := newTestController(t, newFakeBackend(t), WithResolver(resolve))
	if !c.SelectChatbotByID("Tutor") {
		t.Fatalf("expected resolver to accept the name")
	}
	if snap := c.Snapshot(); snap.Chatbot == nil || snap.Chatbot.ID != "bot-x" || !snap.Conversation.IsDraft() {
		t.Fatalf("unexpected snapshot %#v", snap)
	}
	if c.SelectChatbotByID("chatbot-1") {
		t.Fatalf("catalog ids should not resolve through a custom resolver")
	}
	if c.Snapshot().Chatbot.ID != "bot-x" {
		t.Fatalf("failed selection must keep the active chatbot")
	}
}

func TestScenarioSelectSendReselect(t *testing.T) {
	b := newFakeBackend(t)
	c := newTestController(t, b)
	c.SelectChatbot(testBot)

	if _, err := c.SendMessage(context.Background(), "hello"); err != nil {
		t.Fatalf("send: %v", err)
	}
	if b.count("POST /api/chat/new") != 1 || b.count("GET /api/chat/{id}") != 1 {
		t.Fatalf("unexpected calls %#v", b.calls)
	}
	conv := c.Snapshot().Conversation
	if conv.RemoteID == "" || len(conv.Messages) != 2 {
		t.Fatalf("expected persisted conversation with 2 messages, got %#v", conv)
	}
	if conv.Title != "hello title" {
		t.Fatalf("expected trimmed server title, got %q", conv.Title)
	}
	if conv.Messages[1].Content != "reply to hello" {
		t.Fatalf("unexpected bot reply %q", conv.Messages[1].Content)
	}

	c.SelectChatbot(testBot)
	c.CreateNewChat(testBot.ID)
	conv = c.Snapshot().Conversation
	if conv.RemoteID != "" || len(conv.Messages) != 0 {
		t.Fatalf("expected empty draft after reselect, got %#v", conv)
	}
}
