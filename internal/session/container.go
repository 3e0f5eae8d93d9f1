// Package session owns the authenticated identity and the persisted bearer
// token for the lifetime of the client process.
package session

import (
	"context"
	"errors"
	"strings"
	"sync"

	"botdesk/internal/auth"
	"botdesk/internal/logging"
	"botdesk/internal/store"
	"botdesk/internal/types"
)

type Status string

const (
	StatusLoading Status = "loading"
	StatusReady   Status = "ready"
)

// CredentialSink receives the token whenever it rotates. The API client
// implements it.
type CredentialSink interface {
	SetToken(token string)
}

type State struct {
	Identity *types.Identity
	Status   Status
	Error    string
}

type Option func(*Container)

// WithHistory hands the container the local history cache so a change of
// account never shows the previous account's conversations.
func WithHistory(history store.HistoryStore) Option {
	return func(c *Container) {
		c.history = history
	}
}

type Container struct {
	provider auth.Provider
	tokens   store.TokenStore
	history  store.HistoryStore
	sink     CredentialSink
	logger   logging.Logger

	mu        sync.Mutex
	identity  *types.Identity
	status    Status
	lastErr   string
	token     string
	closed    bool
	stop      func()
	ready     chan struct{}
	readyOnce sync.Once
	observers map[int]func(State)
	nextObs   int
}

// New loads the persisted token, hands it to the sink and subscribes to the
// provider. Close releases the subscription.
func New(ctx context.Context, provider auth.Provider, tokens store.TokenStore, sink CredentialSink, logger logging.Logger, opts ...Option) (*Container, error) {
	if provider == nil {
		return nil, errors.New("identity provider is required")
	}
	if tokens == nil {
		return nil, errors.New("token store is required")
	}
	if logger == nil {
		logger = logging.Nop()
	}
	c := &Container{
		provider:  provider,
		tokens:    tokens,
		sink:      sink,
		logger:    logger.With(logging.Component("session")),
		status:    StatusLoading,
		ready:     make(chan struct{}),
		observers: map[int]func(State){},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	token, err := tokens.Load(ctx)
	switch {
	case err == nil:
		c.token = token
	case errors.Is(err, store.ErrTokenNotFound):
	default:
		return nil, err
	}
	if c.sink != nil {
		c.sink.SetToken(c.token)
	}
	c.stop = provider.Watch(c.onIdentity)
	return c, nil
}

func (c *Container) onIdentity(identity *types.Identity) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	if !identity.Valid() {
		identity = nil
	}
	c.identity = types.CloneIdentity(identity)
	c.status = StatusReady
	state := c.stateLocked()
	observers := c.observersLocked()
	c.mu.Unlock()

	c.readyOnce.Do(func() { close(c.ready) })
	notify(observers, state)
}

func (c *Container) SignIn(ctx context.Context, email, password string) error {
	cred, err := c.provider.SignIn(ctx, email, password)
	if err != nil {
		return c.fail("sign in failed", err)
	}
	return c.adopt(ctx, cred)
}

func (c *Container) SignUp(ctx context.Context, email, password, displayName string) error {
	cred, err := c.provider.SignUp(ctx, email, password, displayName)
	if err != nil {
		return c.fail("sign up failed", err)
	}
	return c.adopt(ctx, cred)
}

func (c *Container) SignInWithProvider(ctx context.Context, kind auth.Kind) error {
	cred, err := c.provider.SignInWithProvider(ctx, kind)
	if err != nil {
		return c.fail("provider sign in failed", err)
	}
	return c.adopt(ctx, cred)
}

func (c *Container) SignOut(ctx context.Context) error {
	if err := c.provider.SignOut(ctx); err != nil {
		return c.fail("sign out failed", err)
	}
	err := errors.Join(c.tokens.Clear(ctx), c.clearHistory(ctx))
	c.apply(nil, "", true)
	if err != nil {
		return c.fail("clear local session failed", err)
	}
	return nil
}

// UpdateProfile replaces the identity wholesale with the provider's answer.
func (c *Container) UpdateProfile(ctx context.Context, displayName, avatarURL string) error {
	identity, err := c.provider.UpdateProfile(ctx, displayName, avatarURL)
	if err != nil {
		return c.fail("profile update failed", err)
	}
	c.mu.Lock()
	token := c.token
	c.mu.Unlock()
	c.apply(identity, token, false)
	return nil
}

func (c *Container) ChangePassword(ctx context.Context, currentPassword, newPassword string) error {
	if err := c.provider.ChangePassword(ctx, currentPassword, newPassword); err != nil {
		return c.fail("password change failed", err)
	}
	c.setError("")
	return nil
}

func (c *Container) adopt(ctx context.Context, cred *auth.Credential) error {
	if cred == nil || !cred.Identity.Valid() {
		return c.fail("sign in failed", errors.New("provider returned an incomplete identity"))
	}
	c.mu.Lock()
	previous := c.identity
	c.mu.Unlock()
	if previous == nil || previous.ID != cred.Identity.ID {
		if err := c.clearHistory(ctx); err != nil {
			c.logger.Warn("clear history failed", logging.Err(err))
		}
	}
	token := strings.TrimSpace(cred.Token)
	if token != "" {
		if err := c.tokens.Save(ctx, token); err != nil {
			c.logger.Warn("persist token failed", logging.Err(err))
		}
	}
	c.apply(cred.Identity, token, true)
	c.logger.Info("signed in", logging.F("user_id", cred.Identity.ID))
	return nil
}

func (c *Container) clearHistory(ctx context.Context) error {
	if c.history == nil {
		return nil
	}
	return c.history.Clear(ctx)
}

func (c *Container) apply(identity *types.Identity, token string, rotate bool) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.identity = types.CloneIdentity(identity)
	c.status = StatusReady
	c.lastErr = ""
	if rotate {
		c.token = token
	}
	state := c.stateLocked()
	observers := c.observersLocked()
	sink := c.sink
	c.mu.Unlock()

	if rotate && sink != nil {
		sink.SetToken(token)
	}
	c.readyOnce.Do(func() { close(c.ready) })
	notify(observers, state)
}

func (c *Container) fail(action string, err error) error {
	c.logger.Warn(action, logging.Err(err))
	c.setError(err.Error())
	return err
}

func (c *Container) setError(message string) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.lastErr = message
	state := c.stateLocked()
	observers := c.observersLocked()
	c.mu.Unlock()
	notify(observers, state)
}

func (c *Container) Identity() *types.Identity {
	c.mu.Lock()
	defer c.mu.Unlock()
	return types.CloneIdentity(c.identity)
}

// Token is the read-only accessor for the current bearer credential.
func (c *Container) Token() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token
}

func (c *Container) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stateLocked()
}

// WaitReady blocks until the provider has reported the initial identity.
func (c *Container) WaitReady(ctx context.Context) error {
	select {
	case <-c.ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Container) Subscribe(fn func(State)) func() {
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

// Close releases the provider subscription. Later notifications are dropped.
func (c *Container) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	stop := c.stop
	c.observers = map[int]func(State){}
	c.mu.Unlock()
	if stop != nil {
		stop()
	}
}

func (c *Container) stateLocked() State {
	return State{Identity: types.CloneIdentity(c.identity), Status: c.status, Error: c.lastErr}
}

func (c *Container) observersLocked() []func(State) {
	out := make([]func(State), 0, len(c.observers))
	for _, fn := range c.observers {
		out = append(out, fn)
	}
	return out
}

func notify(observers []func(State), state State) {
	for _, fn := range observers {
		fn(state)
	}
}
