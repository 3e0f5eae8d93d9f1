package auth

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"botdesk/internal/client"
	"botdesk/internal/types"
)

type fakeAPI struct {
	mu          sync.Mutex
	token       string
	meResp      *client.AuthResponse
	meErr       error
	signInErr   error
	signOutErr  error
	signUpCalls []client.SignUpRequest
	signOuts    int
}

func (f *fakeAPI) SignIn(ctx context.Context, req client.SignInRequest) (*client.AuthResponse, error) {
	if f.signInErr != nil {
		return nil, f.signInErr
	}
	return &client.AuthResponse{Token: "tok-" + req.Email, User: &types.Identity{ID: "u1", DisplayName: "Demo", Email: req.Email}}, nil
}

func (f *fakeAPI) SignUp(ctx context.Context, req client.SignUpRequest) (*client.AuthResponse, error) {
	f.mu.Lock()
	f.signUpCalls = append(f.signUpCalls, req)
	f.mu.Unlock()
	return &client.AuthResponse{Token: "new", User: &types.Identity{ID: "u2", DisplayName: req.DisplayName, Email: req.Email}}, nil
}

func (f *fakeAPI) SignInWithProvider(ctx context.Context, kind string) (*client.AuthResponse, error) {
	return &client.AuthResponse{Token: "oauth", User: &types.Identity{ID: kind + "-user-1", DisplayName: "OAuth", Email: kind + "@example.com"}}, nil
}

func (f *fakeAPI) SignOut(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.signOuts++
	return f.signOutErr
}

func (f *fakeAPI) Me(ctx context.Context) (*client.AuthResponse, error) {
	if f.meErr != nil {
		return nil, f.meErr
	}
	return f.meResp, nil
}

func (f *fakeAPI) UpdateProfile(ctx context.Context, req client.UpdateProfileRequest) (*client.AuthResponse, error) {
	return &client.AuthResponse{User: &types.Identity{ID: "u1", DisplayName: req.DisplayName, Email: "demo@example.com", AvatarURL: req.AvatarURL}}, nil
}

func (f *fakeAPI) ChangePassword(ctx context.Context, req client.ChangePasswordRequest) error {
	if req.CurrentPassword != "password" {
		return &client.APIError{StatusCode: http.StatusUnauthorized, Message: "current password is incorrect"}
	}
	return nil
}

func (f *fakeAPI) Token() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.token
}

func waitIdentity(t *testing.T, ch <-chan *types.Identity) *types.Identity {
	t.Helper()
	select {
	case identity := <-ch:
		return identity
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for identity notification")
		return nil
	}
}

func TestWatchDeliversInitialIdentityFromToken(t *testing.T) {
	api := &fakeAPI{token: "stored", meResp: &client.AuthResponse{User: &types.Identity{ID: "u1", DisplayName: "Demo", Email: "demo@example.com"}}}
	provider := NewHTTPProvider(api, nil)
	ch := make(chan *types.Identity, 4)
	stop := provider.Watch(func(identity *types.Identity) { ch <- identity })
	defer stop()

	identity := waitIdentity(t, ch)
	if identity == nil || identity.ID != "u1" {
		t.Fatalf("unexpected initial identity: %#v", identity)
	}
}

func TestWatchDeliversNilWithoutToken(t *testing.T) {
	provider := NewHTTPProvider(&fakeAPI{}, nil)
	ch := make(chan *types.Identity, 4)
	stop := provider.Watch(func(identity *types.Identity) { ch <- identity })
	defer stop()
	if identity := waitIdentity(t, ch); identity != nil {
		t.Fatalf("expected nil identity, got %#v", identity)
	}
}

func TestSignInPublishesAndStopReleases(t *testing.T) {
	provider := NewHTTPProvider(&fakeAPI{}, nil)
	ch := make(chan *types.Identity, 4)
	stop := provider.Watch(func(identity *types.Identity) { ch <- identity })
	waitIdentity(t, ch)

	cred, err := provider.SignIn(context.Background(), "demo@example.com", "password")
	if err != nil {
		t.Fatalf("SignIn: %v", err)
	}
	if cred.Token != "tok-demo@example.com" || cred.Identity.Email != "demo@example.com" {
		t.Fatalf("unexpected credential: %#v", cred)
	}
	if identity := waitIdentity(t, ch); identity == nil || identity.ID != "u1" {
		t.Fatalf("expected sign-in notification, got %#v", identity)
	}

	stop()
	if err := provider.SignOut(context.Background()); err != nil {
		t.Fatalf("SignOut: %v", err)
	}
	select {
	case identity := <-ch:
		t.Fatalf("listener called after stop: %#v", identity)
	default:
	}
	if provider.Current() != nil {
		t.Fatalf("expected signed out")
	}
}

func TestSignInValidationAndBackendMessage(t *testing.T) {
	api := &fakeAPI{signInErr: &client.APIError{StatusCode: http.StatusUnauthorized, Message: "Invalid email or password"}}
	provider := NewHTTPProvider(api, nil)
	if _, err := provider.SignIn(context.Background(), "not-an-email", "x"); !errors.Is(err, ErrInvalidEmail) {
		t.Fatalf("expected ErrInvalidEmail, got %v", err)
	}
	_, err := provider.SignIn(context.Background(), "demo@example.com", "wrong")
	if err == nil || err.Error() != "Invalid email or password" {
		t.Fatalf("expected backend message, got %v", err)
	}
	if !client.IsUnauthorized(err) {
		t.Fatalf("expected the API error to stay reachable, got %T", err)
	}
	if apiErr := client.AsAPIError(err); apiErr == nil || apiErr.StatusCode != http.StatusUnauthorized {
		t.Fatalf("unexpected unwrapped error %#v", apiErr)
	}
	if provider.Current() != nil {
		t.Fatalf("failed sign-in must not set identity")
	}
}

func TestSignUpFillsDefaultAvatar(t *testing.T) {
	api := &fakeAPI{}
	provider := NewHTTPProvider(api, nil)
	if _, err := provider.SignUp(context.Background(), "new@example.com", "123", "New"); !errors.Is(err, ErrPasswordTooWeak) {
		t.Fatalf("expected weak password error, got %v", err)
	}
	cred, err := provider.SignUp(context.Background(), "new@example.com", "secret1", "Jane Doe")
	if err != nil {
		t.Fatalf("SignUp: %v", err)
	}
	if cred.Identity.AvatarURL != "https://ui-avatars.com/api/?name=Jane+Doe&background=random" {
		t.Fatalf("unexpected avatar: %q", cred.Identity.AvatarURL)
	}
}

func TestSignOutFailureKeepsIdentity(t *testing.T) {
	api := &fakeAPI{token: "tok", signOutErr: errors.New("network down")}
	provider := NewHTTPProvider(api, nil)
	if _, err := provider.SignInWithProvider(context.Background(), KindGitHub); err != nil {
		t.Fatalf("SignInWithProvider: %v", err)
	}
	if err := provider.SignOut(context.Background()); err == nil {
		t.Fatalf("expected sign-out error")
	}
	if provider.Current() == nil {
		t.Fatalf("identity should survive a failed sign-out")
	}
	api.signOutErr = &client.APIError{StatusCode: http.StatusUnauthorized, Message: "expired"}
	if err := provider.SignOut(context.Background()); err != nil {
		t.Fatalf("expired session should sign out cleanly: %v", err)
	}
	if provider.Current() != nil {
		t.Fatalf("expected signed out")
	}
}

func TestProfileAndPasswordRequireSession(t *testing.T) {
	provider := NewHTTPProvider(&fakeAPI{}, nil)
	if _, err := provider.UpdateProfile(context.Background(), "X", ""); !errors.Is(err, ErrNotSignedIn) {
		t.Fatalf("expected ErrNotSignedIn, got %v", err)
	}
	if _, err := provider.SignIn(context.Background(), "demo@example.com", "password"); err != nil {
		t.Fatalf("SignIn: %v", err)
	}
	identity, err := provider.UpdateProfile(context.Background(), "Renamed", "")
	if err != nil || identity.DisplayName != "Renamed" {
		t.Fatalf("UpdateProfile = %#v, %v", identity, err)
	}
	if err := provider.ChangePassword(context.Background(), "bad", "secret99"); err == nil || err.Error() != "current password is incorrect" {
		t.Fatalf("expected backend message, got %v", err)
	} else if !client.IsUnauthorized(err) {
		t.Fatalf("expected unauthorized status to survive, got %v", err)
	}
	if err := provider.ChangePassword(context.Background(), "password", "secret99"); err != nil {
		t.Fatalf("ChangePassword: %v", err)
	}
	if _, ok := ParseKind("GitHub"); !ok {
		t.Fatalf("ParseKind should be case-insensitive")
	}
}
