package store

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	bolt "go.etcd.io/bbolt"

	"botdesk/internal/types"
)

var (
	bucketSession = []byte("session")
	bucketHistory = []byte("history")
	keyToken      = []byte(TokenKey)
)

type bboltRepository struct {
	db      *bolt.DB
	tokens  TokenStore
	history HistoryStore
}

func NewBboltRepository(path string) (Repository, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("repository db path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, err
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, err
	}
	if err := initBboltSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &bboltRepository{
		db:      db,
		tokens:  &bboltTokenStore{db: db},
		history: &bboltHistoryStore{db: db},
	}, nil
}

func (r *bboltRepository) Tokens() TokenStore {
	return r.tokens
}

func (r *bboltRepository) History() HistoryStore {
	return r.history
}

func (r *bboltRepository) Backend() string {
	return RepositoryBackendBbolt
}

func (r *bboltRepository) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}

func initBboltSchema(db *bolt.DB) error {
	return db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(bucketSession); err != nil {
			return err
		}
		if _, err := tx.CreateBucketIfNotExists(bucketHistory); err != nil {
			return err
		}
		return nil
	})
}

type bboltTokenStore struct {
	db *bolt.DB
}

func (s *bboltTokenStore) Load(ctx context.Context) (string, error) {
	var token string
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketSession)
		if b == nil {
			return nil
		}
		token = strings.TrimSpace(string(b.Get(keyToken)))
		return nil
	})
	if err != nil {
		return "", err
	}
	if token == "" {
		return "", ErrTokenNotFound
	}
	return token, nil
}

func (s *bboltTokenStore) Save(ctx context.Context, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return errors.New("token is required")
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(bucketSession)
		if err != nil {
			return err
		}
		return b.Put(keyToken, []byte(token))
	})
}

func (s *bboltTokenStore) Clear(ctx context.Context) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketSession)
		if b == nil {
			return nil
		}
		return b.Delete(keyToken)
	})
}

type bboltHistoryStore struct {
	db *bolt.DB
}

func (s *bboltHistoryStore) Load(ctx context.Context, chatbotID string) ([]types.Conversation, error) {
	var out []types.Conversation
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketHistory)
		if b == nil {
			return nil
		}
		data := b.Get([]byte(chatbotID))
		if len(data) == 0 {
			return nil
		}
		return json.Unmarshal(data, &out)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *bboltHistoryStore) Save(ctx context.Context, chatbotID string, summaries []types.Conversation) error {
	chatbotID = strings.TrimSpace(chatbotID)
	if chatbotID == "" {
		return errors.New("chatbot id is required")
	}
	data, err := json.Marshal(summarize(summaries))
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(bucketHistory)
		if err != nil {
			return err
		}
		return b.Put([]byte(chatbotID), data)
	})
}

func (s *bboltHistoryStore) Delete(ctx context.Context, chatbotID string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketHistory)
		if b == nil {
			return nil
		}
		return b.Delete([]byte(chatbotID))
	})
}

func (s *bboltHistoryStore) Clear(ctx context.Context) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		if tx.Bucket(bucketHistory) != nil {
			if err := tx.DeleteBucket(bucketHistory); err != nil {
				return err
			}
		}
		_, err := tx.CreateBucket(bucketHistory)
		return err
	})
}
