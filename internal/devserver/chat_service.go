package devserver

import (
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"botdesk/internal/client"
	"botdesk/internal/logging"
	"botdesk/internal/types"
)

// wireTimeLayout is naive ISO-8601 in UTC with microseconds.
const wireTimeLayout = "2006-01-02T15:04:05.000000"

type ChatService struct {
	store     *Store
	responder Responder
	logger    logging.Logger
	now       func() time.Time
}

func NewChatService(store *Store, responder Responder, logger logging.Logger) *ChatService {
	if responder == nil {
		responder = CannedResponder{}
	}
	if logger == nil {
		logger = logging.Nop()
	}
	return &ChatService{store: store, responder: responder, logger: logger, now: time.Now}
}

// Create starts a chat with the opening query and the bot's first reply.
func (s *ChatService) Create(ownerID, chatType, query string) (*chatRecord, error) {
	category, ok := types.ParseCategory(chatType)
	if !ok {
		return nil, invalidError("unknown chatbot type: "+chatType, nil)
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, invalidError("query is required", nil)
	}
	now := s.now().UTC()
	rec := &chatRecord{
		ID:        uuid.NewString(),
		OwnerID:   ownerID,
		Type:      category.APIType(),
		Title:     chatTitle(query),
		CreatedAt: now,
		UpdatedAt: now,
		Messages: []messageRecord{
			{Sender: string(types.SenderUser), Message: query, CreatedAt: now},
			{Sender: string(types.SenderBot), Message: s.responder.Reply(category, query), CreatedAt: s.now().UTC()},
		},
	}
	if err := s.store.PutChat(rec); err != nil {
		return nil, unavailableError("failed to save chat", err)
	}
	s.logger.Info("chat created", logging.F("chat_id", rec.ID), logging.F("type", rec.Type))
	return rec, nil
}

func (s *ChatService) Get(ownerID, chatID string) (*chatRecord, error) {
	rec, ok, err := s.store.GetChat(chatID)
	if err != nil {
		return nil, unavailableError("failed to load chat", err)
	}
	if !ok || rec.OwnerID != ownerID {
		return nil, notFoundError("chat not found", nil)
	}
	return rec, nil
}

// Post appends the query and the bot reply, returning the reply.
func (s *ChatService) Post(ownerID, chatID, query string) (string, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return "", invalidError("query is required", nil)
	}
	rec, err := s.Get(ownerID, chatID)
	if err != nil {
		return "", err
	}
	category, _ := types.ParseCategory(rec.Type)
	reply := s.responder.Reply(category, query)
	now := s.now().UTC()
	rec.Messages = append(rec.Messages,
		messageRecord{Sender: string(types.SenderUser), Message: query, CreatedAt: now},
		messageRecord{Sender: string(types.SenderBot), Message: reply, CreatedAt: now},
	)
	rec.UpdatedAt = now
	if err := s.store.PutChat(rec); err != nil {
		return "", unavailableError("failed to save chat", err)
	}
	return reply, nil
}

func (s *ChatService) History(ownerID, chatType string) ([]*chatRecord, error) {
	chatType = strings.TrimSpace(chatType)
	if chatType != "" {
		category, ok := types.ParseCategory(chatType)
		if !ok {
			return nil, invalidError("unknown chatbot type: "+chatType, nil)
		}
		chatType = category.APIType()
	}
	list, err := s.store.ListChats(ownerID, chatType)
	if err != nil {
		return nil, unavailableError("failed to list chats", err)
	}
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].CreatedAt.Before(list[j].CreatedAt)
	})
	return list, nil
}

func (s *ChatService) Delete(ownerID, chatID string) error {
	if _, err := s.Get(ownerID, chatID); err != nil {
		return err
	}
	if err := s.store.DeleteChat(chatID); err != nil {
		return unavailableError("failed to delete chat", err)
	}
	s.logger.Info("chat deleted", logging.F("chat_id", chatID))
	return nil
}

func chatDTO(rec *chatRecord) client.Chat {
	out := client.Chat{
		ChatID:    rec.ID,
		Title:     rec.Title,
		CreatedAt: wireTime(rec.CreatedAt),
		Messages:  make([]client.ChatMessage, 0, len(rec.Messages)),
	}
	if rec.UpdatedAt.After(rec.CreatedAt) {
		out.UpdatedAt = wireTime(rec.UpdatedAt)
	}
	for _, msg := range rec.Messages {
		out.Messages = append(out.Messages, client.ChatMessage{
			Sender:    msg.Sender,
			Message:   msg.Message,
			CreatedAt: wireTime(msg.CreatedAt),
		})
	}
	return out
}

func wireTime(ts time.Time) client.Timestamp {
	return client.Timestamp(ts.UTC().Format(wireTimeLayout))
}
