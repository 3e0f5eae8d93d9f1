package store

import (
	"context"
	"errors"
	"strings"

	"botdesk/internal/types"
)

const (
	RepositoryBackendFile  = "file"
	RepositoryBackendBbolt = "bbolt"
)

// TokenKey is the well-known key the auth token is stored under.
const TokenKey = "auth_token"

var ErrTokenNotFound = errors.New("token not found")

// TokenStore persists the single auth token. The session container is its
// only writer.
type TokenStore interface {
	Load(ctx context.Context) (string, error)
	Save(ctx context.Context, token string) error
	Clear(ctx context.Context) error
}

// HistoryStore caches conversation summaries per chatbot for the signed-in
// account. Clear drops every chatbot's entry.
type HistoryStore interface {
	Load(ctx context.Context, chatbotID string) ([]types.Conversation, error)
	Save(ctx context.Context, chatbotID string, summaries []types.Conversation) error
	Delete(ctx context.Context, chatbotID string) error
	Clear(ctx context.Context) error
}

type Repository interface {
	Tokens() TokenStore
	History() HistoryStore
	Backend() string
	Close() error
}

func NewRepository(backend, path string) (Repository, error) {
	switch strings.ToLower(strings.TrimSpace(backend)) {
	case "", RepositoryBackendBbolt:
		return NewBboltRepository(path)
	case RepositoryBackendFile:
		return NewFileRepository(path), nil
	default:
		return nil, errors.New("unknown repository backend: " + backend)
	}
}

func summarize(in []types.Conversation) []types.Conversation {
	out := make([]types.Conversation, 0, len(in))
	for i := range in {
		out = append(out, in[i].Summary())
	}
	return out
}
