// Package auth is the boundary to the identity provider. The provider issues
// credentials and reports identity changes; it never persists the token.
package auth

import (
	"context"
	"strings"

	"botdesk/internal/types"
)

type Kind string

const (
	KindGoogle Kind = "google"
	KindGitHub Kind = "github"
)

func ParseKind(raw string) (Kind, bool) {
	switch Kind(strings.ToLower(strings.TrimSpace(raw))) {
	case KindGoogle:
		return KindGoogle, true
	case KindGitHub:
		return KindGitHub, true
	default:
		return "", false
	}
}

// Credential is the result of a successful authentication.
type Credential struct {
	Identity *types.Identity
	Token    string
}

// Listener receives the current identity, or nil, on every change.
type Listener func(identity *types.Identity)

type Provider interface {
	SignIn(ctx context.Context, email, password string) (*Credential, error)
	SignUp(ctx context.Context, email, password, displayName string) (*Credential, error)
	SignInWithProvider(ctx context.Context, kind Kind) (*Credential, error)
	SignOut(ctx context.Context) error
	UpdateProfile(ctx context.Context, displayName, avatarURL string) (*types.Identity, error)
	ChangePassword(ctx context.Context, currentPassword, newPassword string) error
	// Watch delivers the current identity once resolved and again on every
	// change until stop is called.
	Watch(listener Listener) (stop func())
}
