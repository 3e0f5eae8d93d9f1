package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"botdesk/internal/types"
)

func repositories(t *testing.T) map[string]Repository {
	t.Helper()
	dir := t.TempDir()
	bbolt, err := NewBboltRepository(filepath.Join(dir, "botdesk.db"))
	if err != nil {
		t.Fatalf("NewBboltRepository: %v", err)
	}
	t.Cleanup(func() { _ = bbolt.Close() })
	return map[string]Repository{
		RepositoryBackendBbolt: bbolt,
		RepositoryBackendFile:  NewFileRepository(filepath.Join(dir, "state.json")),
	}
}

func TestTokenRoundTripAndClear(t *testing.T) {
	ctx := context.Background()
	for name, repo := range repositories(t) {
		t.Run(name, func(t *testing.T) {
			if _, err := repo.Tokens().Load(ctx); !errors.Is(err, ErrTokenNotFound) {
				t.Fatalf("expected ErrTokenNotFound, got %v", err)
			}
			if err := repo.Tokens().Save(ctx, " tok-1 "); err != nil {
				t.Fatalf("Save: %v", err)
			}
			token, err := repo.Tokens().Load(ctx)
			if err != nil || token != "tok-1" {
				t.Fatalf("Load = %q, %v", token, err)
			}
			if err := repo.Tokens().Save(ctx, ""); err == nil {
				t.Fatalf("expected error saving empty token")
			}
			if err := repo.Tokens().Clear(ctx); err != nil {
				t.Fatalf("Clear: %v", err)
			}
			if _, err := repo.Tokens().Load(ctx); !errors.Is(err, ErrTokenNotFound) {
				t.Fatalf("expected token cleared, got %v", err)
			}
			if repo.Backend() != name {
				t.Fatalf("unexpected backend %q", repo.Backend())
			}
		})
	}
}

func TestHistoryStoresSummariesOnly(t *testing.T) {
	ctx := context.Background()
	created := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	summaries := []types.Conversation{
		{LocalID: "l1", RemoteID: "r1", Title: "First", ChatbotID: "chatbot-1", CreatedAt: created,
			Messages: []types.Message{{ID: "m1", Content: "body"}}},
		{LocalID: "l2", RemoteID: "r2", Title: "Second", ChatbotID: "chatbot-1", CreatedAt: created.Add(time.Hour)},
	}
	for name, repo := range repositories(t) {
		t.Run(name, func(t *testing.T) {
			if err := repo.History().Save(ctx, "chatbot-1", summaries); err != nil {
				t.Fatalf("Save: %v", err)
			}
			loaded, err := repo.History().Load(ctx, "chatbot-1")
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			if len(loaded) != 2 || loaded[0].RemoteID != "r1" || loaded[1].Title != "Second" {
				t.Fatalf("unexpected summaries: %#v", loaded)
			}
			if loaded[0].Messages != nil {
				t.Fatalf("message bodies should not be cached: %#v", loaded[0].Messages)
			}
			if !loaded[0].CreatedAt.Equal(created) {
				t.Fatalf("timestamp not preserved: %v", loaded[0].CreatedAt)
			}
			if err := repo.History().Delete(ctx, "chatbot-1"); err != nil {
				t.Fatalf("Delete: %v", err)
			}
			loaded, err = repo.History().Load(ctx, "chatbot-1")
			if err != nil || len(loaded) != 0 {
				t.Fatalf("expected empty history after delete, got %#v %v", loaded, err)
			}
		})
	}
}

func TestHistoryClearDropsEveryChatbot(t *testing.T) {
	ctx := context.Background()
	for name, repo := range repositories(t) {
		t.Run(name, func(t *testing.T) {
			for _, id := range []string{"chatbot-1", "chatbot-4"} {
				if err := repo.History().Save(ctx, id, []types.Conversation{{RemoteID: id + "-r1", Title: "Private"}}); err != nil {
					t.Fatalf("Save %s: %v", id, err)
				}
			}
			if err := repo.Tokens().Save(ctx, "tok-1"); err != nil {
				t.Fatalf("Save token: %v", err)
			}
			if err := repo.History().Clear(ctx); err != nil {
				t.Fatalf("Clear: %v", err)
			}
			for _, id := range []string{"chatbot-1", "chatbot-4"} {
				loaded, err := repo.History().Load(ctx, id)
				if err != nil || len(loaded) != 0 {
					t.Fatalf("expected %s cleared, got %#v %v", id, loaded, err)
				}
			}
			if token, err := repo.Tokens().Load(ctx); err != nil || token != "tok-1" {
				t.Fatalf("history clear must not touch the token, got %q %v", token, err)
			}
			if err := repo.History().Save(ctx, "chatbot-1", nil); err != nil {
				t.Fatalf("Save after clear: %v", err)
			}
		})
	}
}

func TestFileRepositoryEmptyCorruptAndMode(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "state.json")
	if err := os.WriteFile(path, []byte("  \n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	repo := NewFileRepository(path)
	if _, err := repo.Tokens().Load(ctx); !errors.Is(err, ErrTokenNotFound) {
		t.Fatalf("empty file should read as fresh state, got %v", err)
	}
	if err := repo.Tokens().Save(ctx, "tok-1"); err != nil {
		t.Fatalf("Save: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if mode := info.Mode().Perm(); mode != 0o600 {
		t.Fatalf("state file holds a token, expected 0600, got %o", mode)
	}
	entries, _ := os.ReadDir(filepath.Dir(path))
	if len(entries) != 1 {
		t.Fatalf("expected temp files cleaned up, got %d entries", len(entries))
	}

	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := repo.Tokens().Load(ctx); err == nil || errors.Is(err, ErrTokenNotFound) {
		t.Fatalf("corrupt file should surface a decode error, got %v", err)
	}
}

func TestNewRepositoryRejectsUnknownBackend(t *testing.T) {
	if _, err := NewRepository("redis", filepath.Join(t.TempDir(), "x")); err == nil {
		t.Fatalf("expected error for unknown backend")
	}
}
