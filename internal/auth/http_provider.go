package auth

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"botdesk/internal/client"
	"botdesk/internal/logging"
	"botdesk/internal/types"
)

const (
	minPasswordLength   = 6
	defaultResolveLimit = 10 * time.Second
)

var (
	ErrInvalidEmail    = errors.New("a valid email is required")
	ErrPasswordTooWeak = fmt.Errorf("password must be at least %d characters", minPasswordLength)
	ErrNotSignedIn     = errors.New("no authenticated user")
)

// API is the subset of the REST client the provider uses.
type API interface {
	SignIn(ctx context.Context, req client.SignInRequest) (*client.AuthResponse, error)
	SignUp(ctx context.Context, req client.SignUpRequest) (*client.AuthResponse, error)
	SignInWithProvider(ctx context.Context, kind string) (*client.AuthResponse, error)
	SignOut(ctx context.Context) error
	Me(ctx context.Context) (*client.AuthResponse, error)
	UpdateProfile(ctx context.Context, req client.UpdateProfileRequest) (*client.AuthResponse, error)
	ChangePassword(ctx context.Context, req client.ChangePasswordRequest) error
	Token() string
}

// HTTPProvider implements Provider against the backend's /api/auth routes.
type HTTPProvider struct {
	api          API
	logger       logging.Logger
	resolveLimit time.Duration

	mu        sync.Mutex
	current   *types.Identity
	version   uint64
	listeners map[int]Listener
	nextID    int
}

func NewHTTPProvider(api API, logger logging.Logger) *HTTPProvider {
	if logger == nil {
		logger = logging.Nop()
	}
	return &HTTPProvider{
		api:          api,
		logger:       logger.With(logging.Component("auth")),
		resolveLimit: defaultResolveLimit,
		listeners:    map[int]Listener{},
	}
}

func (p *HTTPProvider) SignIn(ctx context.Context, email, password string) (*Credential, error) {
	email = strings.TrimSpace(email)
	if !validEmail(email) {
		return nil, ErrInvalidEmail
	}
	if password == "" {
		return nil, errors.New("password is required")
	}
	resp, err := p.api.SignIn(ctx, client.SignInRequest{Email: email, Password: password})
	if err != nil {
		return nil, friendlyError(err)
	}
	return p.adopt(resp), nil
}

func (p *HTTPProvider) SignUp(ctx context.Context, email, password, displayName string) (*Credential, error) {
	email = strings.TrimSpace(email)
	displayName = strings.TrimSpace(displayName)
	if !validEmail(email) {
		return nil, ErrInvalidEmail
	}
	if len(password) < minPasswordLength {
		return nil, ErrPasswordTooWeak
	}
	if displayName == "" {
		return nil, errors.New("display name is required")
	}
	resp, err := p.api.SignUp(ctx, client.SignUpRequest{Email: email, Password: password, DisplayName: displayName})
	if err != nil {
		return nil, friendlyError(err)
	}
	if resp.User != nil && strings.TrimSpace(resp.User.AvatarURL) == "" {
		resp.User.AvatarURL = DefaultAvatarURL(displayName)
	}
	return p.adopt(resp), nil
}

func (p *HTTPProvider) SignInWithProvider(ctx context.Context, kind Kind) (*Credential, error) {
	if _, ok := ParseKind(string(kind)); !ok {
		return nil, fmt.Errorf("unsupported sign-in provider %q", kind)
	}
	resp, err := p.api.SignInWithProvider(ctx, string(kind))
	if err != nil {
		return nil, friendlyError(err)
	}
	return p.adopt(resp), nil
}

// SignOut revokes the session remotely. A session the backend already
// considers gone counts as signed out.
func (p *HTTPProvider) SignOut(ctx context.Context) error {
	if strings.TrimSpace(p.api.Token()) != "" {
		if err := p.api.SignOut(ctx); err != nil && !client.IsUnauthorized(err) {
			return friendlyError(err)
		}
	}
	p.publish(nil)
	return nil
}

func (p *HTTPProvider) UpdateProfile(ctx context.Context, displayName, avatarURL string) (*types.Identity, error) {
	if p.Current() == nil {
		return nil, ErrNotSignedIn
	}
	displayName = strings.TrimSpace(displayName)
	avatarURL = strings.TrimSpace(avatarURL)
	if displayName == "" && avatarURL == "" {
		return nil, errors.New("nothing to update")
	}
	resp, err := p.api.UpdateProfile(ctx, client.UpdateProfileRequest{DisplayName: displayName, AvatarURL: avatarURL})
	if err != nil {
		return nil, friendlyError(err)
	}
	identity := types.CloneIdentity(resp.User)
	p.publish(identity)
	return types.CloneIdentity(identity), nil
}

func (p *HTTPProvider) ChangePassword(ctx context.Context, currentPassword, newPassword string) error {
	if p.Current() == nil {
		return ErrNotSignedIn
	}
	if len(newPassword) < minPasswordLength {
		return ErrPasswordTooWeak
	}
	if err := p.api.ChangePassword(ctx, client.ChangePasswordRequest{CurrentPassword: currentPassword, NewPassword: newPassword}); err != nil {
		return friendlyError(err)
	}
	return nil
}

func (p *HTTPProvider) Current() *types.Identity {
	p.mu.Lock()
	defer p.mu.Unlock()
	return types.CloneIdentity(p.current)
}

func (p *HTTPProvider) Watch(listener Listener) func() {
	if listener == nil {
		return func() {}
	}
	p.mu.Lock()
	id := p.nextID
	p.nextID++
	p.listeners[id] = listener
	version := p.version
	p.mu.Unlock()

	go p.resolve(id, version)

	var once sync.Once
	return func() {
		once.Do(func() {
			p.mu.Lock()
			delete(p.listeners, id)
			p.mu.Unlock()
		})
	}
}

// resolve delivers the initial identity to one listener. A change published
// while resolving supersedes the lookup result.
func (p *HTTPProvider) resolve(id int, version uint64) {
	var identity *types.Identity
	if strings.TrimSpace(p.api.Token()) != "" {
		ctx, cancel := context.WithTimeout(context.Background(), p.resolveLimit)
		resp, err := p.api.Me(ctx)
		cancel()
		if err != nil {
			p.logger.Info("stored credential not accepted", logging.Err(err))
		} else {
			identity = types.CloneIdentity(resp.User)
		}
	}

	p.mu.Lock()
	listener, ok := p.listeners[id]
	if !ok {
		p.mu.Unlock()
		return
	}
	if p.version != version {
		identity = types.CloneIdentity(p.current)
	} else {
		p.current = types.CloneIdentity(identity)
	}
	p.mu.Unlock()
	listener(identity)
}

func (p *HTTPProvider) adopt(resp *client.AuthResponse) *Credential {
	identity := types.CloneIdentity(resp.User)
	p.publish(identity)
	return &Credential{Identity: types.CloneIdentity(identity), Token: resp.Token}
}

func (p *HTTPProvider) publish(identity *types.Identity) {
	p.mu.Lock()
	p.current = types.CloneIdentity(identity)
	p.version++
	listeners := make([]Listener, 0, len(p.listeners))
	for _, listener := range p.listeners {
		listeners = append(listeners, listener)
	}
	p.mu.Unlock()
	for _, listener := range listeners {
		listener(types.CloneIdentity(identity))
	}
}

// DefaultAvatarURL builds an initials avatar for accounts without a picture.
func DefaultAvatarURL(displayName string) string {
	return "https://ui-avatars.com/api/?name=" + url.QueryEscape(strings.TrimSpace(displayName)) + "&background=random"
}

func validEmail(email string) bool {
	at := strings.Index(email, "@")
	return at > 0 && at < len(email)-1 && !strings.ContainsAny(email, " \t")
}

// providerError shows the backend's message and unwraps to the API error.
type providerError struct {
	message string
	err     error
}

func (e *providerError) Error() string { return e.message }

func (e *providerError) Unwrap() error { return e.err }

func friendlyError(err error) error {
	if apiErr := client.AsAPIError(err); apiErr != nil && strings.TrimSpace(apiErr.Message) != "" {
		return &providerError{message: apiErr.Message, err: err}
	}
	return err
}
