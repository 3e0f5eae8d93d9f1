package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"botdesk/internal/logging"
	"botdesk/internal/types"
)

const (
	defaultTimeout     = 10 * time.Second
	defaultSendTimeout = 60 * time.Second
)

// TokenSource supplies the bearer credential for each request. When set it
// takes precedence over the token stored with SetToken.
type TokenSource func() string

// Client talks to the chat REST API. It carries the current credential
// explicitly; rotate it with SetToken.
type Client struct {
	baseURL     string
	http        *http.Client
	sendTimeout time.Duration
	logger      logging.Logger

	mu          sync.RWMutex
	token       string
	tokenSource TokenSource
}

type Option func(*Client)

func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.http.Timeout = timeout
		}
	}
}

// WithSendTimeout bounds the calls that wait for a bot reply.
func WithSendTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.sendTimeout = timeout
		}
	}
}

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.http = httpClient
		}
	}
}

func WithTokenSource(source TokenSource) Option {
	return func(c *Client) {
		c.tokenSource = source
	}
}

func WithToken(token string) Option {
	return func(c *Client) {
		c.token = strings.TrimSpace(token)
	}
}

func WithLogger(logger logging.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:     strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		http:        &http.Client{Timeout: defaultTimeout},
		sendTimeout: defaultSendTimeout,
		logger:      logging.Nop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

// SetToken replaces the credential used for subsequent requests. An empty
// token clears it.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = strings.TrimSpace(token)
}

func (c *Client) Token() string {
	c.mu.RLock()
	source := c.tokenSource
	token := c.token
	c.mu.RUnlock()
	if source != nil {
		return strings.TrimSpace(source())
	}
	return token
}

func (c *Client) CreateChat(ctx context.Context, category types.Category, query string) (string, error) {
	req := CreateChatRequest{Type: category.APIType(), Query: query}
	var resp CreateChatResponse
	if err := c.doJSONWithTimeout(ctx, http.MethodPost, "/api/chat/new", req, &resp, c.sendTimeout); err != nil {
		return "", err
	}
	chatID := strings.TrimSpace(resp.ChatID)
	if chatID == "" {
		return "", errors.New("create chat: response is missing chatId")
	}
	return chatID, nil
}

func (c *Client) GetChat(ctx context.Context, chatID string) (*Chat, error) {
	chatID = strings.TrimSpace(chatID)
	if chatID == "" {
		return nil, errors.New("chat id is required")
	}
	var resp GetChatResponse
	if err := c.doJSON(ctx, http.MethodGet, "/api/chat/"+url.PathEscape(chatID), nil, &resp); err != nil {
		return nil, err
	}
	if resp.Chat == nil {
		return nil, &APIError{StatusCode: http.StatusNotFound, Message: "chat not found"}
	}
	return resp.Chat, nil
}

func (c *Client) PostMessage(ctx context.Context, chatID, query string) (string, error) {
	chatID = strings.TrimSpace(chatID)
	if chatID == "" {
		return "", errors.New("chat id is required")
	}
	var resp PostMessageResponse
	path := "/api/chat/" + url.PathEscape(chatID)
	if err := c.doJSONWithTimeout(ctx, http.MethodPost, path, PostMessageRequest{Query: query}, &resp, c.sendTimeout); err != nil {
		return "", err
	}
	return resp.Response, nil
}

func (c *Client) ChatHistory(ctx context.Context, category types.Category) ([]Chat, error) {
	query := url.Values{}
	query.Set("chatbot_type", category.APIType())
	var resp ChatHistoryResponse
	if err := c.doJSON(ctx, http.MethodGet, "/api/chat/history?"+query.Encode(), nil, &resp); err != nil {
		return nil, err
	}
	return resp.ChatList, nil
}

func (c *Client) DeleteChat(ctx context.Context, chatID string) error {
	chatID = strings.TrimSpace(chatID)
	if chatID == "" {
		return errors.New("chat id is required")
	}
	return c.doJSON(ctx, http.MethodDelete, "/api/chat/"+url.PathEscape(chatID), nil, nil)
}

func (c *Client) SignIn(ctx context.Context, req SignInRequest) (*AuthResponse, error) {
	return c.authCall(ctx, http.MethodPost, "/api/auth/signin", req)
}

func (c *Client) SignUp(ctx context.Context, req SignUpRequest) (*AuthResponse, error) {
	return c.authCall(ctx, http.MethodPost, "/api/auth/signup", req)
}

func (c *Client) SignInWithProvider(ctx context.Context, kind string) (*AuthResponse, error) {
	kind = strings.ToLower(strings.TrimSpace(kind))
	if kind == "" {
		return nil, errors.New("provider kind is required")
	}
	return c.authCall(ctx, http.MethodPost, "/api/auth/oauth/"+url.PathEscape(kind), nil)
}

func (c *Client) SignOut(ctx context.Context) error {
	return c.doJSON(ctx, http.MethodPost, "/api/auth/signout", nil, nil)
}

func (c *Client) Me(ctx context.Context) (*AuthResponse, error) {
	return c.authCall(ctx, http.MethodGet, "/api/auth/me", nil)
}

func (c *Client) UpdateProfile(ctx context.Context, req UpdateProfileRequest) (*AuthResponse, error) {
	return c.authCall(ctx, http.MethodPatch, "/api/auth/me", req)
}

func (c *Client) ChangePassword(ctx context.Context, req ChangePasswordRequest) error {
	return c.doJSON(ctx, http.MethodPost, "/api/auth/password", req, nil)
}

func (c *Client) authCall(ctx context.Context, method, path string, body any) (*AuthResponse, error) {
	var resp AuthResponse
	if err := c.doJSON(ctx, method, path, body, &resp); err != nil {
		return nil, err
	}
	if !resp.User.Valid() {
		return nil, errors.New("auth response is missing the user")
	}
	return &resp, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, body any, out any) error {
	return c.doJSONWithClient(ctx, method, path, body, out, c.http)
}

func (c *Client) doJSONWithTimeout(ctx context.Context, method, path string, body any, out any, timeout time.Duration) error {
	httpClient := c.http
	if timeout > 0 {
		httpClient = &http.Client{
			Timeout:   timeout,
			Transport: c.http.Transport,
		}
	}
	return c.doJSONWithClient(ctx, method, path, body, out, httpClient)
}

func (c *Client) doJSONWithClient(ctx context.Context, method, path string, body any, out any, httpClient *http.Client) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	started := time.Now()
	resp, err := httpClient.Do(req)
	if err != nil {
		c.logger.Warn("api request failed", logging.F("method", method), logging.F("path", path), logging.Err(err))
		return err
	}
	defer resp.Body.Close()
	c.logger.Debug("api request",
		logging.F("method", method),
		logging.F("path", path),
		logging.F("status", resp.StatusCode),
		logging.F("took", time.Since(started)),
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeAPIError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

func decodeAPIError(resp *http.Response) error {
	type errorPayload struct {
		Error   string `json:"error"`
		Message string `json:"message"`
		Detail  string `json:"detail"`
	}
	var payload errorPayload
	_ = json.NewDecoder(resp.Body).Decode(&payload)
	for _, msg := range []string{payload.Error, payload.Message, payload.Detail} {
		if strings.TrimSpace(msg) != "" {
			return &APIError{StatusCode: resp.StatusCode, Message: msg}
		}
	}
	return &APIError{StatusCode: resp.StatusCode, Message: resp.Status}
}

type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("api error (%d): %s", e.StatusCode, e.Message)
}

func AsAPIError(err error) *APIError {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	return nil
}

func IsNotFound(err error) bool {
	apiErr := AsAPIError(err)
	return apiErr != nil && apiErr.StatusCode == http.StatusNotFound
}

func IsUnauthorized(err error) bool {
	apiErr := AsAPIError(err)
	return apiErr != nil && (apiErr.StatusCode == http.StatusUnauthorized || apiErr.StatusCode == http.StatusForbidden)
}
