// Package chat holds the conversation controller: the active chatbot, the
// active transcript, the send latch and the per-chatbot history cache.
package chat

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"botdesk/internal/catalog"
	"botdesk/internal/client"
	"botdesk/internal/logging"
	"botdesk/internal/store"
	"botdesk/internal/types"
)

var (
	ErrNoReply          = errors.New("server returned no bot reply")
	ErrAlreadyCommitted = errors.New("send already committed")
)

// ChatAPI is the remote chat store as the controller sees it.
type ChatAPI interface {
	CreateChat(ctx context.Context, category types.Category, query string) (string, error)
	GetChat(ctx context.Context, chatID string) (*client.Chat, error)
	PostMessage(ctx context.Context, chatID, query string) (string, error)
	ChatHistory(ctx context.Context, category types.Category) ([]client.Chat, error)
	DeleteChat(ctx context.Context, chatID string) error
}

// Snapshot is a copy of the controller state safe to hand to a view.
type Snapshot struct {
	Chatbot      *types.Chatbot
	Conversation *types.Conversation
	Pending      bool
}

type Option func(*Controller)

func WithHistoryStore(history store.HistoryStore) Option {
	return func(c *Controller) {
		c.history = history
	}
}

func WithLogger(logger logging.Logger) Option {
	return func(c *Controller) {
		if logger != nil {
			c.logger = logger
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(c *Controller) {
		if now != nil {
			c.now = now
		}
	}
}

// WithResolver replaces the catalog lookup used when a chatbot is named by id.
func WithResolver(resolve func(id string) (types.Chatbot, bool)) Option {
	return func(c *Controller) {
		if resolve != nil {
			c.resolve = resolve
		}
	}
}

type Controller struct {
	api     ChatAPI
	history store.HistoryStore
	logger  logging.Logger
	now     func() time.Time
	resolve func(id string) (types.Chatbot, bool)

	mu           sync.Mutex
	chatbot      *types.Chatbot
	conversation *types.Conversation
	pending      bool
	cache        map[string][]types.Conversation
	closed       bool
	observers    map[int]func(Snapshot)
	nextObs      int
}

func NewController(api ChatAPI, opts ...Option) *Controller {
	c := &Controller{
		api:       api,
		logger:    logging.Nop(),
		now:       time.Now,
		resolve:   catalog.Find,
		cache:     map[string][]types.Conversation{},
		observers: map[int]func(Snapshot){},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	c.logger = c.logger.With(logging.Component("chat"))
	return c
}

// SelectChatbot makes chatbot active with a fresh draft. Any unsaved draft
// is discarded and the chatbot's history entry is marked for refetch.
func (c *Controller) SelectChatbot(chatbot types.Chatbot) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	bot := chatbot
	c.chatbot = &bot
	c.conversation = c.newDraftLocked(bot.ID)
	delete(c.cache, bot.ID)
	snap := c.snapshotLocked()
	observers := c.observersLocked()
	c.mu.Unlock()

	c.logger.Debug("chatbot selected", logging.F("chatbot_id", bot.ID))
	notify(observers, snap)
}

// SelectChatbotByID resolves id through the catalog.
func (c *Controller) SelectChatbotByID(id string) bool {
	bot, ok := c.resolve(strings.TrimSpace(id))
	if !ok {
		return false
	}
	c.SelectChatbot(bot)
	return true
}

// CreateNewChat replaces the active conversation with a fresh draft. An empty
// chatbotID means the active chatbot; a different id switches to that
// chatbot first. Persisted conversations are left alone remotely.
func (c *Controller) CreateNewChat(chatbotID string) *types.Conversation {
	chatbotID = strings.TrimSpace(chatbotID)
	var switchTo *types.Chatbot
	c.mu.Lock()
	active := c.chatbot
	c.mu.Unlock()
	if chatbotID != "" && (active == nil || active.ID != chatbotID) {
		bot, ok := c.resolve(chatbotID)
		if !ok {
			return nil
		}
		switchTo = &bot
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	if switchTo != nil {
		c.chatbot = switchTo
	}
	if c.chatbot == nil {
		c.mu.Unlock()
		return nil
	}
	c.conversation = c.newDraftLocked(c.chatbot.ID)
	draft := c.conversation.Clone()
	snap := c.snapshotLocked()
	observers := c.observersLocked()
	c.mu.Unlock()

	notify(observers, snap)
	return draft
}

// ClearCurrentChat starts a new draft for the active chatbot.
func (c *Controller) ClearCurrentChat() *types.Conversation {
	return c.CreateNewChat("")
}

// SendMessage runs both phases of a send. It reports false with a nil error
// when the send was rejected by a precondition.
func (c *Controller) SendMessage(ctx context.Context, text string) (bool, error) {
	send, ok := c.BeginSend(text)
	if !ok {
		return false, nil
	}
	_, err := send.Commit(ctx)
	return true, err
}

// BeginSend applies the user message and the placeholder locally and takes
// the latch. The caller must Commit the returned send.
func (c *Controller) BeginSend(text string) (*PendingSend, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, false
	}
	c.mu.Lock()
	if c.closed || c.chatbot == nil || c.conversation == nil || c.pending {
		c.mu.Unlock()
		return nil, false
	}
	now := c.now()
	user := types.Message{
		ID:        newID(),
		Content:   text,
		Sender:    types.SenderUser,
		Timestamp: now,
		Kind:      inferKind(text),
	}
	placeholder := types.Message{
		ID:        newID(),
		Sender:    types.SenderBot,
		Timestamp: now,
		Kind:      types.MessageKindText,
		Pending:   true,
	}
	conv := c.conversation
	conv.Messages = append(conv.Messages, user, placeholder)
	conv.UpdatedAt = now
	c.pending = true

	send := &PendingSend{
		c:             c,
		text:          text,
		category:      c.chatbot.Category,
		chatbotID:     c.chatbot.ID,
		localID:       conv.LocalID,
		remoteID:      conv.RemoteID,
		userID:        user.ID,
		placeholderID: placeholder.ID,
	}
	snap := c.snapshotLocked()
	observers := c.observersLocked()
	c.mu.Unlock()

	notify(observers, snap)
	return send, true
}

// PendingSend is the in-flight half of a send. Commit performs the remote
// call and confirms or rolls back the placeholder by id.
type PendingSend struct {
	c             *Controller
	once          sync.Once
	text          string
	category      types.Category
	chatbotID     string
	localID       string
	remoteID      string
	userID        string
	placeholderID string
}

func (p *PendingSend) UserMessageID() string  { return p.userID }
func (p *PendingSend) PlaceholderID() string  { return p.placeholderID }
func (p *PendingSend) ConversationID() string { return p.localID }

func (p *PendingSend) Commit(ctx context.Context) (*types.Message, error) {
	var (
		reply *types.Message
		err   error
		ran   bool
	)
	p.once.Do(func() {
		ran = true
		reply, err = p.commit(ctx)
	})
	if !ran {
		return nil, ErrAlreadyCommitted
	}
	return reply, err
}

func (p *PendingSend) commit(ctx context.Context) (*types.Message, error) {
	c := p.c
	defer c.releaseLatch()
	if ctx == nil {
		ctx = context.Background()
	}

	if p.remoteID != "" {
		response, err := c.api.PostMessage(ctx, p.remoteID, p.text)
		if err != nil {
			c.rollback(p, err)
			return nil, err
		}
		reply := types.Message{
			Content:   response,
			Sender:    types.SenderBot,
			Timestamp: c.now(),
			Kind:      inferKind(response),
		}
		return c.confirm(p, reply, ""), nil
	}

	chatID, err := c.api.CreateChat(ctx, p.category, p.text)
	if err != nil {
		c.rollback(p, err)
		return nil, err
	}
	c.adoptRemoteID(p, chatID)

	chat, err := c.api.GetChat(ctx, chatID)
	if err != nil {
		c.rollback(p, err)
		return nil, err
	}
	remote := conversationFromRemote(chat, p.chatbotID, c.now())
	reply, ok := lastBotReply(remote.Messages)
	if !ok {
		c.rollback(p, ErrNoReply)
		return nil, ErrNoReply
	}
	return c.confirm(p, reply, strings.TrimSpace(chat.Title)), nil
}

// adoptRemoteID sets the remote id on the conversation that started the
// send. It is assigned once and never replaced.
func (c *Controller) adoptRemoteID(p *PendingSend, chatID string) {
	c.mu.Lock()
	if c.closed || c.conversation == nil || c.conversation.LocalID != p.localID || c.conversation.RemoteID != "" {
		c.mu.Unlock()
		return
	}
	c.conversation.RemoteID = chatID
	snap := c.snapshotLocked()
	observers := c.observersLocked()
	c.mu.Unlock()

	c.logger.Info("conversation persisted", logging.F("chat_id", chatID), logging.F("chatbot_id", p.chatbotID))
	notify(observers, snap)
}

func (c *Controller) confirm(p *PendingSend, reply types.Message, title string) *types.Message {
	reply.ID = p.placeholderID
	reply.Pending = false
	if reply.Kind == "" {
		reply.Kind = inferKind(reply.Content)
	}
	out := reply

	c.mu.Lock()
	conv := c.conversation
	if c.closed || conv == nil || conv.LocalID != p.localID {
		c.mu.Unlock()
		c.logger.Debug("reply discarded for inactive conversation", logging.F("local_id", p.localID))
		return &out
	}
	idx := indexOfMessage(conv.Messages, p.placeholderID)
	if idx < 0 {
		conv.Messages = append(conv.Messages, reply)
	} else {
		conv.Messages[idx] = reply
	}
	conv.UpdatedAt = c.now()
	switch {
	case title != "":
		conv.Title = title
	case conv.Title == "" || conv.Title == types.DefaultConversationTitle:
		conv.Title = fallbackTitle(conv.Messages)
	}
	c.upsertCacheLocked(conv)
	snap := c.snapshotLocked()
	observers := c.observersLocked()
	c.mu.Unlock()

	notify(observers, snap)
	return &out
}

func (c *Controller) rollback(p *PendingSend, cause error) {
	c.logger.Warn("send failed", logging.F("local_id", p.localID), logging.Err(cause))
	c.mu.Lock()
	conv := c.conversation
	if c.closed || conv == nil || conv.LocalID != p.localID {
		c.mu.Unlock()
		return
	}
	if idx := indexOfMessage(conv.Messages, p.placeholderID); idx >= 0 {
		conv.Messages = append(conv.Messages[:idx], conv.Messages[idx+1:]...)
	}
	conv.UpdatedAt = c.now()
	snap := c.snapshotLocked()
	observers := c.observersLocked()
	c.mu.Unlock()

	notify(observers, snap)
}

func (c *Controller) releaseLatch() {
	c.mu.Lock()
	c.pending = false
	if c.closed {
		c.mu.Unlock()
		return
	}
	snap := c.snapshotLocked()
	observers := c.observersLocked()
	c.mu.Unlock()
	notify(observers, snap)
}

// LoadChatByID replaces the active conversation with the remote transcript.
// On any failure it falls back to a fresh draft and returns nil.
func (c *Controller) LoadChatByID(ctx context.Context, remoteID string) *types.Conversation {
	remoteID = strings.TrimSpace(remoteID)
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	chatbotID := ""
	if c.chatbot != nil {
		chatbotID = c.chatbot.ID
	}
	c.mu.Unlock()

	if remoteID == "" {
		c.CreateNewChat("")
		return nil
	}
	chat, err := c.api.GetChat(ctx, remoteID)
	if err != nil {
		if client.IsNotFound(err) {
			c.logger.Info("chat not found", logging.F("chat_id", remoteID))
		} else {
			c.logger.Warn("load chat failed", logging.F("chat_id", remoteID), logging.Err(err))
		}
		c.CreateNewChat("")
		return nil
	}
	conv := conversationFromRemote(chat, chatbotID, c.now())
	if conv.RemoteID == "" {
		conv.RemoteID = remoteID
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.conversation = conv.Clone()
	out := conv.Clone()
	snap := c.snapshotLocked()
	observers := c.observersLocked()
	c.mu.Unlock()

	notify(observers, snap)
	return out
}

// GetChatHistory fetches summaries for category, newest first. When the
// active chatbot belongs to category the result also refreshes its cache
// entry.
func (c *Controller) GetChatHistory(ctx context.Context, category types.Category) ([]types.Conversation, error) {
	chats, err := c.api.ChatHistory(ctx, category)
	if err != nil {
		c.logger.Warn("history fetch failed", logging.F("category", category.APIType()), logging.Err(err))
		return nil, err
	}

	c.mu.Lock()
	chatbotID := ""
	if c.chatbot != nil && c.chatbot.Category == category {
		chatbotID = c.chatbot.ID
	}
	c.mu.Unlock()

	now := c.now()
	out := make([]types.Conversation, 0, len(chats))
	for i := range chats {
		conv := conversationFromRemote(&chats[i], chatbotID, now)
		out = append(out, conv.Summary())
	}
	sortByRecency(out)

	if chatbotID != "" {
		c.mu.Lock()
		if !c.closed && c.chatbot != nil && c.chatbot.ID == chatbotID {
			c.cache[chatbotID] = cloneList(out)
		}
		c.mu.Unlock()
		c.persist(ctx, chatbotID, out)
	}
	return cloneList(out), nil
}

// DeleteChatByID deletes the remote conversation and drops it from every
// cached list. Deleting the active conversation starts a new draft.
func (c *Controller) DeleteChatByID(ctx context.Context, remoteID string) bool {
	remoteID = strings.TrimSpace(remoteID)
	if remoteID == "" {
		return false
	}
	if err := c.api.DeleteChat(ctx, remoteID); err != nil {
		c.logger.Warn("delete chat failed", logging.F("chat_id", remoteID), logging.Err(err))
		return false
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return true
	}
	changed := map[string][]types.Conversation{}
	for chatbotID, list := range c.cache {
		filtered, removed := removeConversation(list, remoteID)
		if removed {
			c.cache[chatbotID] = filtered
			changed[chatbotID] = cloneList(filtered)
		}
	}
	active := c.conversation != nil && (c.conversation.RemoteID == remoteID ||
		(c.conversation.RemoteID == "" && c.conversation.LocalID == remoteID))
	c.mu.Unlock()

	for chatbotID, list := range changed {
		c.persist(ctx, chatbotID, list)
	}
	if active {
		c.CreateNewChat("")
	}
	c.logger.Info("chat deleted", logging.F("chat_id", remoteID))
	return true
}

// History returns the cached summaries for chatbotID. A chatbot without a
// fresh entry falls back to the persisted copy.
func (c *Controller) History(ctx context.Context, chatbotID string) []types.Conversation {
	c.mu.Lock()
	list, ok := c.cache[chatbotID]
	if ok {
		out := cloneList(list)
		c.mu.Unlock()
		return out
	}
	c.mu.Unlock()

	if c.history == nil {
		return nil
	}
	stored, err := c.history.Load(ctx, chatbotID)
	if err != nil {
		c.logger.Warn("history load failed", logging.F("chatbot_id", chatbotID), logging.Err(err))
		return nil
	}
	return stored
}

func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Controller) Pending() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pending
}

// Subscribe registers fn for every state change. The returned func removes it.
func (c *Controller) Subscribe(fn func(Snapshot)) func() {
	if fn == nil {
		return func() {}
	}
	c.mu.Lock()
	id := c.nextObs
	c.nextObs++
	c.observers[id] = fn
	c.mu.Unlock()
	return func() {
		c.mu.Lock()
		delete(c.observers, id)
		c.mu.Unlock()
	}
}

// Close detaches the controller from its view. Requests still in flight
// resolve into nothing.
func (c *Controller) Close() {
	c.mu.Lock()
	c.closed = true
	c.observers = map[int]func(Snapshot){}
	c.mu.Unlock()
}

func (c *Controller) newDraftLocked(chatbotID string) *types.Conversation {
	now := c.now()
	return &types.Conversation{
		LocalID:   newID(),
		Title:     types.DefaultConversationTitle,
		Messages:  []types.Message{},
		ChatbotID: chatbotID,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (c *Controller) upsertCacheLocked(conv *types.Conversation) {
	if conv.RemoteID == "" {
		return
	}
	list, ok := c.cache[conv.ChatbotID]
	if !ok {
		return
	}
	summary := conv.Summary()
	replaced := false
	for i := range list {
		if list[i].RemoteID == conv.RemoteID {
			list[i] = summary
			replaced = true
			break
		}
	}
	if !replaced {
		list = append(list, summary)
	}
	sortByRecency(list)
	c.cache[conv.ChatbotID] = list
}

func (c *Controller) persist(ctx context.Context, chatbotID string, list []types.Conversation) {
	if c.history == nil || chatbotID == "" {
		return
	}
	if err := c.history.Save(ctx, chatbotID, list); err != nil {
		c.logger.Warn("history persist failed", logging.F("chatbot_id", chatbotID), logging.Err(err))
	}
}

func (c *Controller) snapshotLocked() Snapshot {
	snap := Snapshot{Pending: c.pending, Conversation: c.conversation.Clone()}
	if c.chatbot != nil {
		bot := *c.chatbot
		snap.Chatbot = &bot
	}
	return snap
}

func (c *Controller) observersLocked() []func(Snapshot) {
	out := make([]func(Snapshot), 0, len(c.observers))
	for _, fn := range c.observers {
		out = append(out, fn)
	}
	return out
}

func notify(observers []func(Snapshot), snap Snapshot) {
	for _, fn := range observers {
		fn(snap)
	}
}

func indexOfMessage(messages []types.Message, id string) int {
	for i := range messages {
		if messages[i].ID == id {
			return i
		}
	}
	return -1
}

// removeConversation matches on remote id, then on local id for entries that
// never got one.
func removeConversation(list []types.Conversation, id string) ([]types.Conversation, bool) {
	out := make([]types.Conversation, 0, len(list))
	removed := false
	for _, conv := range list {
		if conv.RemoteID == id || (conv.RemoteID == "" && conv.LocalID == id) {
			removed = true
			continue
		}
		out = append(out, conv)
	}
	return out, removed
}

func cloneList(in []types.Conversation) []types.Conversation {
	if in == nil {
		return nil
	}
	out := make([]types.Conversation, len(in))
	for i := range in {
		out[i] = *in[i].Clone()
	}
	return out
}
