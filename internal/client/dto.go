package client

import (
	"bytes"
	"encoding/json"
	"strings"

	"botdesk/internal/types"
)

// Timestamp keeps the server's raw created_at/updated_at value. The backend
// has sent both ISO strings and unix numbers, so both decode.
type Timestamp string

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*t = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*t = Timestamp(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*t = Timestamp(n.String())
	return nil
}

type CreateChatRequest struct {
	Type  string `json:"type"`
	Query string `json:"query"`
}

type CreateChatResponse struct {
	ChatID string `json:"chatId"`
}

type ChatMessage struct {
	Sender    string    `json:"sender"`
	Message   string    `json:"message"`
	CreatedAt Timestamp `json:"created_at"`
}

type Chat struct {
	ChatID    string        `json:"chatId"`
	Title     string        `json:"title"`
	CreatedAt Timestamp     `json:"created_at"`
	UpdatedAt Timestamp     `json:"updated_at,omitempty"`
	Messages  []ChatMessage `json:"messages"`
}

type GetChatResponse struct {
	Chat *Chat `json:"chat"`
}

type PostMessageRequest struct {
	Query string `json:"query"`
}

type PostMessageResponse struct {
	Response string `json:"response"`
}

type ChatHistoryResponse struct {
	ChatList []Chat `json:"chat_list"`
}

type SignInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type SignUpRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name"`
}

type UpdateProfileRequest struct {
	DisplayName string `json:"display_name,omitempty"`
	AvatarURL   string `json:"avatar_url,omitempty"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

type AuthResponse struct {
	Token string          `json:"token,omitempty"`
	User  *types.Identity `json:"user"`
}
