package devserver

import (
	"errors"
	"net/mail"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"botdesk/internal/logging"
	"botdesk/internal/types"
)

const minPasswordLength = 6

var oauthProviders = map[string]string{
	"google": "Google",
	"github": "GitHub",
}

type UserService struct {
	store  *Store
	issuer *TokenIssuer
	logger logging.Logger
	now    func() time.Time
}

func NewUserService(store *Store, issuer *TokenIssuer, logger logging.Logger) *UserService {
	if logger == nil {
		logger = logging.Nop()
	}
	return &UserService{store: store, issuer: issuer, logger: logger, now: time.Now}
}

func (s *UserService) SignUp(email, password, displayName string) (*types.Identity, string, error) {
	email = strings.TrimSpace(email)
	displayName = strings.TrimSpace(displayName)
	if !validEmail(email) {
		return nil, "", invalidError("a valid email is required", nil)
	}
	if len(password) < minPasswordLength {
		return nil, "", invalidError("password must be at least 6 characters", nil)
	}
	if displayName == "" {
		return nil, "", invalidError("display name is required", nil)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", unavailableError("failed to hash password", err)
	}
	rec := &userRecord{
		ID:           uuid.NewString(),
		Email:        email,
		DisplayName:  displayName,
		AvatarURL:    avatarFor(displayName),
		PasswordHash: string(hash),
		CreatedAt:    s.now().UTC(),
	}
	if err := s.store.CreateUser(rec); err != nil {
		if errors.Is(err, errEmailTaken) {
			return nil, "", conflictError("email is already registered", err)
		}
		return nil, "", unavailableError("failed to create user", err)
	}
	s.logger.Info("user registered", logging.F("user_id", rec.ID))
	return s.issue(rec)
}

func (s *UserService) SignIn(email, password string) (*types.Identity, string, error) {
	rec, ok, err := s.store.UserByEmail(email)
	if err != nil {
		return nil, "", unavailableError("failed to load user", err)
	}
	if !ok || rec.PasswordHash == "" {
		return nil, "", unauthorizedError("invalid email or password", nil)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(rec.PasswordHash), []byte(password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return nil, "", unauthorizedError("invalid email or password", nil)
		}
		return nil, "", unavailableError("failed to verify password", err)
	}
	return s.issue(rec)
}

// SignInWithProvider stands in for an OAuth popup: each provider maps to one
// demo account, created on first use.
func (s *UserService) SignInWithProvider(kind string) (*types.Identity, string, error) {
	kind = strings.ToLower(strings.TrimSpace(kind))
	label, ok := oauthProviders[kind]
	if !ok {
		return nil, "", invalidError("unsupported provider: "+kind, nil)
	}
	email := kind + ".user@botdesk.dev"
	rec, found, err := s.store.UserByEmail(email)
	if err != nil {
		return nil, "", unavailableError("failed to load user", err)
	}
	if !found {
		name := label + " User"
		rec = &userRecord{
			ID:          uuid.NewString(),
			Email:       email,
			DisplayName: name,
			AvatarURL:   avatarFor(name),
			Provider:    kind,
			CreatedAt:   s.now().UTC(),
		}
		if err := s.store.CreateUser(rec); err != nil {
			return nil, "", unavailableError("failed to create user", err)
		}
	}
	return s.issue(rec)
}

func (s *UserService) Identity(userID string) (*types.Identity, error) {
	rec, err := s.user(userID)
	if err != nil {
		return nil, err
	}
	return identityOf(rec), nil
}

func (s *UserService) UpdateProfile(userID, displayName, avatarURL string) (*types.Identity, error) {
	rec, err := s.user(userID)
	if err != nil {
		return nil, err
	}
	if name := strings.TrimSpace(displayName); name != "" {
		rec.DisplayName = name
	}
	if avatar := strings.TrimSpace(avatarURL); avatar != "" {
		rec.AvatarURL = avatar
	}
	if err := s.store.PutUser(rec); err != nil {
		return nil, unavailableError("failed to update user", err)
	}
	return identityOf(rec), nil
}

// ChangePassword requires the current password, mirroring a re-authentication.
func (s *UserService) ChangePassword(userID, currentPassword, newPassword string) error {
	rec, err := s.user(userID)
	if err != nil {
		return err
	}
	if rec.PasswordHash == "" {
		return invalidError("account has no password", nil)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(rec.PasswordHash), []byte(currentPassword)); err != nil {
		return unauthorizedError("current password is incorrect", nil)
	}
	if len(newPassword) < minPasswordLength {
		return invalidError("password must be at least 6 characters", nil)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return unavailableError("failed to hash password", err)
	}
	rec.PasswordHash = string(hash)
	if err := s.store.PutUser(rec); err != nil {
		return unavailableError("failed to update user", err)
	}
	return nil
}

func (s *UserService) SignOut(claims Claims) error {
	if err := s.store.RevokeToken(claims.TokenID, claims.ExpiresAt); err != nil {
		return unavailableError("failed to revoke token", err)
	}
	return nil
}

func (s *UserService) user(userID string) (*userRecord, error) {
	rec, ok, err := s.store.UserByID(userID)
	if err != nil {
		return nil, unavailableError("failed to load user", err)
	}
	if !ok {
		return nil, unauthorizedError("unknown user", nil)
	}
	return rec, nil
}

func (s *UserService) issue(rec *userRecord) (*types.Identity, string, error) {
	token, err := s.issuer.Issue(rec.ID)
	if err != nil {
		return nil, "", unavailableError("failed to issue token", err)
	}
	return identityOf(rec), token, nil
}

func identityOf(rec *userRecord) *types.Identity {
	return &types.Identity{
		ID:          rec.ID,
		DisplayName: rec.DisplayName,
		Email:       rec.Email,
		AvatarURL:   rec.AvatarURL,
	}
}

func validEmail(email string) bool {
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == email
}

func avatarFor(name string) string {
	return "https://ui-avatars.com/api/?name=" + url.QueryEscape(name) + "&background=random"
}
