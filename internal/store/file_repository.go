package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"botdesk/internal/types"
)

type fileState struct {
	Token   string                          `json:"auth_token,omitempty"`
	History map[string][]types.Conversation `json:"history,omitempty"`
}

// fileRepository keeps everything in one JSON document written atomically.
type fileRepository struct {
	path string
	mu   sync.Mutex
}

func NewFileRepository(path string) Repository {
	return &fileRepository{path: strings.TrimSpace(path)}
}

func (r *fileRepository) Tokens() TokenStore {
	return fileTokenStore{repo: r}
}

func (r *fileRepository) History() HistoryStore {
	return fileHistoryStore{repo: r}
}

func (r *fileRepository) Backend() string {
	return RepositoryBackendFile
}

func (r *fileRepository) Close() error {
	return nil
}

// read treats a missing or empty file as a fresh state. An empty file is
// what a crash between create and first write leaves behind.
func (r *fileRepository) read() (*fileState, error) {
	state := &fileState{}
	data, err := os.ReadFile(r.path)
	if errors.Is(err, os.ErrNotExist) {
		return state, nil
	}
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return state, nil
	}
	if err := json.Unmarshal(data, state); err != nil {
		return nil, fmt.Errorf("decode %s: %w", r.path, err)
	}
	return state, nil
}

func (r *fileRepository) update(fn func(state *fileState)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	state, err := r.read()
	if err != nil {
		return err
	}
	fn(state)
	return r.write(state)
}

// write replaces the state file through a temp file in the same directory.
// The file holds a bearer token, so it is owner-only.
func (r *fileRepository) write(state *fileState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return err
	}
	dir := filepath.Dir(r.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(r.path)+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if err := tmp.Chmod(0o600); err != nil {
		_ = tmp.Close()
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), r.path)
}

type fileTokenStore struct {
	repo *fileRepository
}

func (s fileTokenStore) Load(ctx context.Context) (string, error) {
	s.repo.mu.Lock()
	defer s.repo.mu.Unlock()
	state, err := s.repo.read()
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(state.Token) == "" {
		return "", ErrTokenNotFound
	}
	return state.Token, nil
}

func (s fileTokenStore) Save(ctx context.Context, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return errors.New("token is required")
	}
	return s.repo.update(func(state *fileState) {
		state.Token = token
	})
}

func (s fileTokenStore) Clear(ctx context.Context) error {
	return s.repo.update(func(state *fileState) {
		state.Token = ""
	})
}

type fileHistoryStore struct {
	repo *fileRepository
}

func (s fileHistoryStore) Load(ctx context.Context, chatbotID string) ([]types.Conversation, error) {
	s.repo.mu.Lock()
	defer s.repo.mu.Unlock()
	state, err := s.repo.read()
	if err != nil {
		return nil, err
	}
	return append([]types.Conversation(nil), state.History[chatbotID]...), nil
}

func (s fileHistoryStore) Save(ctx context.Context, chatbotID string, summaries []types.Conversation) error {
	if strings.TrimSpace(chatbotID) == "" {
		return errors.New("chatbot id is required")
	}
	return s.repo.update(func(state *fileState) {
		if state.History == nil {
			state.History = map[string][]types.Conversation{}
		}
		state.History[chatbotID] = summarize(summaries)
	})
}

func (s fileHistoryStore) Delete(ctx context.Context, chatbotID string) error {
	return s.repo.update(func(state *fileState) {
		delete(state.History, chatbotID)
	})
}

func (s fileHistoryStore) Clear(ctx context.Context) error {
	return s.repo.update(func(state *fileState) {
		state.History = nil
	})
}
