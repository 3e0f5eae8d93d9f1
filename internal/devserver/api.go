package devserver

import (
	"net/http"
	"os"
	"strings"

	"botdesk/internal/client"
	"botdesk/internal/logging"
	"botdesk/internal/types"
)

type API struct {
	Version string
	Users   *UserService
	Chats   *ChatService
	Logger  logging.Logger
}

func (a *API) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/health", a.Health)
	mux.HandleFunc("/api/auth/signin", a.SignIn)
	mux.HandleFunc("/api/auth/signup", a.SignUp)
	mux.HandleFunc("/api/auth/oauth/", a.OAuth)
	mux.HandleFunc("/api/auth/signout", a.SignOut)
	mux.HandleFunc("/api/auth/me", a.Me)
	mux.HandleFunc("/api/auth/password", a.Password)
	mux.HandleFunc("/api/chat/new", a.NewChat)
	mux.HandleFunc("/api/chat/history", a.ChatHistory)
	mux.HandleFunc("/api/chat/", a.ChatByID)
}

func (a *API) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":      true,
		"version": a.Version,
		"pid":     os.Getpid(),
	})
}

func (a *API) SignIn(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var req client.SignInRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	identity, token, err := a.Users.SignIn(req.Email, req.Password)
	a.writeAuth(w, http.StatusOK, identity, token, err)
}

func (a *API) SignUp(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var req client.SignUpRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	identity, token, err := a.Users.SignUp(req.Email, req.Password, req.DisplayName)
	a.writeAuth(w, http.StatusCreated, identity, token, err)
}

func (a *API) OAuth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	kind := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/auth/oauth/"), "/")
	identity, token, err := a.Users.SignInWithProvider(kind)
	a.writeAuth(w, http.StatusOK, identity, token, err)
}

func (a *API) SignOut(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	claims, ok := claimsFrom(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if err := a.Users.SignOut(claims); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (a *API) Me(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFrom(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	switch r.Method {
	case http.MethodGet:
		identity, err := a.Users.Identity(claims.UserID)
		a.writeAuth(w, http.StatusOK, identity, "", err)
	case http.MethodPatch:
		var req client.UpdateProfileRequest
		if err := decodeBody(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid json body")
			return
		}
		identity, err := a.Users.UpdateProfile(claims.UserID, req.DisplayName, req.AvatarURL)
		a.writeAuth(w, http.StatusOK, identity, "", err)
	default:
		methodNotAllowed(w)
	}
}

func (a *API) Password(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	claims, ok := claimsFrom(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req client.ChangePasswordRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	if err := a.Users.ChangePassword(claims.UserID, req.CurrentPassword, req.NewPassword); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (a *API) writeAuth(w http.ResponseWriter, status int, identity *types.Identity, token string, err error) {
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, status, client.AuthResponse{Token: token, User: identity})
}

func (a *API) NewChat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	claims, ok := claimsFrom(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req client.CreateChatRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	rec, err := a.Chats.Create(claims.UserID, req.Type, req.Query)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, client.CreateChatResponse{ChatID: rec.ID})
}

func (a *API) ChatHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	claims, ok := claimsFrom(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	list, err := a.Chats.History(claims.UserID, r.URL.Query().Get("chatbot_type"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	resp := client.ChatHistoryResponse{ChatList: make([]client.Chat, 0, len(list))}
	for _, rec := range list {
		resp.ChatList = append(resp.ChatList, chatDTO(rec))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (a *API) ChatByID(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFrom(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	id := strings.TrimSpace(strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/chat/"), "/"))
	if id == "" || strings.Contains(id, "/") {
		writeError(w, http.StatusNotFound, "not found")
		return
	}

	switch r.Method {
	case http.MethodGet:
		rec, err := a.Chats.Get(claims.UserID, id)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		chat := chatDTO(rec)
		writeJSON(w, http.StatusOK, client.GetChatResponse{Chat: &chat})
	case http.MethodPost:
		var req client.PostMessageRequest
		if err := decodeBody(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid json body")
			return
		}
		reply, err := a.Chats.Post(claims.UserID, id, req.Query)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, client.PostMessageResponse{Response: reply})
	case http.MethodDelete:
		if err := a.Chats.Delete(claims.UserID, id); err != nil {
			writeServiceError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		methodNotAllowed(w)
	}
}
