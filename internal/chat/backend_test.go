package chat

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"botdesk/internal/client"
	"botdesk/internal/types"
)

// fakeBackend speaks the /api/chat contract and counts calls per route.
type fakeBackend struct {
	t      *testing.T
	server *httptest.Server

	mu      sync.Mutex
	calls   map[string]int
	chats   map[string]*client.Chat
	history []client.Chat
	nextID  int
	fail    map[string]int
	gate    chan struct{}
}

func newFakeBackend(t *testing.T) *fakeBackend {
	t.Helper()
	b := &fakeBackend{
		t:     t,
		calls: map[string]int{},
		chats: map[string]*client.Chat{},
		fail:  map[string]int{},
	}
	b.server = httptest.NewServer(http.HandlerFunc(b.serve))
	t.Cleanup(b.server.Close)
	return b
}

func (b *fakeBackend) client() *client.Client {
	return client.New(b.server.URL, client.WithHTTPClient(b.server.Client()), client.WithToken("tok"))
}

func (b *fakeBackend) count(route string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls[route]
}

func (b *fakeBackend) failWith(route string, status int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.fail[route] = status
}

func (b *fakeBackend) seed(chat client.Chat) {
	b.mu.Lock()
	defer b.mu.Unlock()
	stored := chat
	b.chats[chat.ChatID] = &stored
}

func (b *fakeBackend) serve(w http.ResponseWriter, r *http.Request) {
	route := routeKey(r)
	b.mu.Lock()
	b.calls[route]++
	status := b.fail[route]
	gate := b.gate
	b.mu.Unlock()

	if gate != nil {
		<-gate
	}
	if status != 0 {
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "forced failure"})
		return
	}

	w.Header().Set("Content-Type", "application/json")
	id := strings.TrimPrefix(r.URL.Path, "/api/chat/")
	switch route {
	case "POST /api/chat/new":
		var req client.CreateChatRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		b.mu.Lock()
		b.nextID++
		chatID := fmt.Sprintf("chat-%d", b.nextID)
		b.chats[chatID] = &client.Chat{
			ChatID:    chatID,
			Title:     "  " + req.Query + " title  ",
			CreatedAt: "2024-05-01T08:00:00Z",
			Messages: []client.ChatMessage{
				{Sender: "user", Message: req.Query, CreatedAt: "2024-05-01T08:00:00Z"},
				{Sender: "assistant", Message: "reply to " + req.Query, CreatedAt: "2024-05-01T08:00:01Z"},
			},
		}
		b.mu.Unlock()
		_ = json.NewEncoder(w).Encode(client.CreateChatResponse{ChatID: chatID})
	case "GET /api/chat/history":
		b.mu.Lock()
		list := append([]client.Chat(nil), b.history...)
		b.mu.Unlock()
		_ = json.NewEncoder(w).Encode(client.ChatHistoryResponse{ChatList: list})
	case "GET /api/chat/{id}":
		b.mu.Lock()
		chat, ok := b.chats[id]
		b.mu.Unlock()
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "chat not found"})
			return
		}
		_ = json.NewEncoder(w).Encode(client.GetChatResponse{Chat: chat})
	case "POST /api/chat/{id}":
		var req client.PostMessageRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		_ = json.NewEncoder(w).Encode(client.PostMessageResponse{Response: "echo: " + req.Query})
	case "DELETE /api/chat/{id}":
		b.mu.Lock()
		delete(b.chats, id)
		b.mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	default:
		http.NotFound(w, r)
	}
}

func routeKey(r *http.Request) string {
	path := r.URL.Path
	switch {
	case path == "/api/chat/new" || path == "/api/chat/history":
		return r.Method + " " + path
	case strings.HasPrefix(path, "/api/chat/"):
		return r.Method + " /api/chat/{id}"
	default:
		return r.Method + " " + path
	}
}

var testBot = types.Chatbot{ID: "chatbot-4", Name: "CodeWizard", Category: types.CategoryProgramming}
