package types

import "strings"

// Identity is the authenticated user. A session either holds a complete
// Identity or nil.
type Identity struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Email       string `json:"email"`
	AvatarURL   string `json:"avatar_url,omitempty"`
}

// Valid reports whether the identity carries every required field.
func (i *Identity) Valid() bool {
	if i == nil {
		return false
	}
	return strings.TrimSpace(i.ID) != "" && strings.TrimSpace(i.Email) != ""
}

func CloneIdentity(in *Identity) *Identity {
	if in == nil {
		return nil
	}
	out := *in
	return &out
}
