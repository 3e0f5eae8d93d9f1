package devserver

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	bolt "go.etcd.io/bbolt"
)

var (
	bucketUsers   = []byte("users")
	bucketEmails  = []byte("user_emails")
	bucketChats   = []byte("chats")
	bucketRevoked = []byte("revoked_tokens")

	errEmailTaken = errors.New("email already registered")
)

type userRecord struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	DisplayName  string    `json:"display_name"`
	AvatarURL    string    `json:"avatar_url,omitempty"`
	PasswordHash string    `json:"password_hash,omitempty"`
	Provider     string    `json:"provider,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

type messageRecord struct {
	Sender    string    `json:"sender"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

type chatRecord struct {
	ID        string          `json:"id"`
	OwnerID   string          `json:"owner_id"`
	Type      string          `json:"type"`
	Title     string          `json:"title"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
	Messages  []messageRecord `json:"messages"`
}

// Store keeps users, chats and revoked token ids in one bbolt file.
type Store struct {
	db *bolt.DB
}

func OpenStore(path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("store path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, err
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, err
	}
	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{bucketUsers, bucketEmails, bucketChats, bucketRevoked} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func emailKey(email string) []byte {
	return []byte(strings.ToLower(strings.TrimSpace(email)))
}

// CreateUser inserts rec, failing with errEmailTaken when the email is in use.
func (s *Store) CreateUser(rec *userRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		emails := tx.Bucket(bucketEmails)
		if emails.Get(emailKey(rec.Email)) != nil {
			return errEmailTaken
		}
		if err := emails.Put(emailKey(rec.Email), []byte(rec.ID)); err != nil {
			return err
		}
		return tx.Bucket(bucketUsers).Put([]byte(rec.ID), data)
	})
}

func (s *Store) PutUser(rec *userRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketUsers).Put([]byte(rec.ID), data)
	})
}

func (s *Store) UserByID(id string) (*userRecord, bool, error) {
	var rec *userRecord
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketUsers).Get([]byte(id))
		if data == nil {
			return nil
		}
		rec = &userRecord{}
		return json.Unmarshal(data, rec)
	})
	if err != nil || rec == nil {
		return nil, false, err
	}
	return rec, true, nil
}

func (s *Store) UserByEmail(email string) (*userRecord, bool, error) {
	var id string
	err := s.db.View(func(tx *bolt.Tx) error {
		id = string(tx.Bucket(bucketEmails).Get(emailKey(email)))
		return nil
	})
	if err != nil || id == "" {
		return nil, false, err
	}
	return s.UserByID(id)
}

func (s *Store) PutChat(rec *chatRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketChats).Put([]byte(rec.ID), data)
	})
}

func (s *Store) GetChat(id string) (*chatRecord, bool, error) {
	var rec *chatRecord
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketChats).Get([]byte(id))
		if data == nil {
			return nil
		}
		rec = &chatRecord{}
		return json.Unmarshal(data, rec)
	})
	if err != nil || rec == nil {
		return nil, false, err
	}
	return rec, true, nil
}

// ListChats returns ownerID's chats of chatType in key order.
func (s *Store) ListChats(ownerID, chatType string) ([]*chatRecord, error) {
	var out []*chatRecord
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketChats).ForEach(func(_, data []byte) error {
			rec := &chatRecord{}
			if err := json.Unmarshal(data, rec); err != nil {
				return err
			}
			if rec.OwnerID != ownerID {
				return nil
			}
			if chatType != "" && rec.Type != chatType {
				return nil
			}
			out = append(out, rec)
			return nil
		})
	})
	return out, err
}

func (s *Store) DeleteChat(id string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketChats).Delete([]byte(id))
	})
}

func (s *Store) RevokeToken(tokenID string, expiresAt time.Time) error {
	if tokenID == "" {
		return nil
	}
	value, err := expiresAt.UTC().MarshalText()
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketRevoked).Put([]byte(tokenID), value)
	})
}

func (s *Store) IsRevoked(tokenID string) (bool, error) {
	if tokenID == "" {
		return false, nil
	}
	revoked := false
	err := s.db.View(func(tx *bolt.Tx) error {
		revoked = tx.Bucket(bucketRevoked).Get([]byte(tokenID)) != nil
		return nil
	})
	return revoked, err
}

// PruneRevoked drops revocations whose token has expired anyway.
func (s *Store) PruneRevoked(now time.Time) (int, error) {
	removed := 0
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketRevoked)
		var stale [][]byte
		err := b.ForEach(func(k, v []byte) error {
			var exp time.Time
			if err := exp.UnmarshalText(v); err != nil || exp.Before(now) {
				stale = append(stale, append([]byte(nil), k...))
			}
			return nil
		})
		if err != nil {
			return err
		}
		for _, k := range stale {
			if err := b.Delete(k); err != nil {
				return err
			}
		}
		removed = len(stale)
		return nil
	})
	return removed, err
}
