// Package crm talks to the CRM REST API: reference collections (accounts,
// users), contact records, and contact updates.
package crm

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
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/smileynet/crmedit/internal/contact"
)

// API paths.
const (
	AccountsPath = "/api/crm/account"
	UsersPath    = "/api/user"
	ContactsPath = "/api/crm/contacts"
)

// Sentinel errors for caller-checkable conditions.
var (
	ErrNotFound = errors.New("crm: record not found")
	ErrNoData   = errors.New("crm: empty response")
)

// maxErrorBody caps how much of an error response is read.
const maxErrorBody = 64 << 10

// APIError is a non-2xx response from the CRM API.
type APIError struct {
	Method     string
	Path       string
	StatusCode int
	// Message is the human-readable message from the response body.
	Message   string
	RequestID string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("crm: %s %s: %d %s", e.Method, e.Path, e.StatusCode, e.Message)
}

// Client calls the CRM REST API.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	log     *logrus.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithToken sends a bearer token with every request.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// WithTimeout sets the HTTP client timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.Timeout = d }
}

// WithLogger sets the request logger.
func WithLogger(l *logrus.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}

// NewClient creates a Client for the API at baseURL.
func NewClient(baseURL string, opts ...Option) *Client {
	discard := logrus.New()
	discard.SetOutput(io.Discard)
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 10 * time.Second},
		log:     discard,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Accounts fetches the account collection.
func (c *Client) Accounts(ctx context.Context) ([]contact.Account, error) {
	var accounts []contact.Account
	if err := c.getList(ctx, AccountsPath, &accounts); err != nil {
		return nil, err
	}
	return accounts, nil
}

// Users fetches the user collection.
func (c *Client) Users(ctx context.Context) ([]contact.User, error) {
	var users []contact.User
	if err := c.getList(ctx, UsersPath, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// Contact fetches a contact record and converts it into an UpdateInput.
func (c *Client) Contact(ctx context.Context, id string) (contact.UpdateInput, error) {
	if strings.TrimSpace(id) == "" {
		return contact.UpdateInput{}, fmt.Errorf("%w: empty contact id", ErrNotFound)
	}
	body, err := c.do(ctx, http.MethodGet, ContactsPath+"/"+url.PathEscape(id), nil)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
			return contact.UpdateInput{}, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return contact.UpdateInput{}, err
	}
	data, err := unwrapData(body)
	if err != nil {
		return contact.UpdateInput{}, fmt.Errorf("crm: contact %s: %w", id, err)
	}
	return contact.FromRecord(data)
}

// UpdateContact sends the update as a single PUT request.
func (c *Client) UpdateContact(ctx context.Context, in contact.UpdateInput) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("crm: marshaling contact: %w", err)
	}
	_, err = c.do(ctx, http.MethodPut, ContactsPath, payload)
	return err
}

// getList fetches a JSON array, accepting a bare array or a {"data": [...]} envelope.
func (c *Client) getList(ctx context.Context, path string, v any) error {
	body, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	data, err := unwrapData(body)
	if err != nil {
		return fmt.Errorf("crm: %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("crm: decoding %s: %w", path, err)
	}
	return nil
}

// unwrapData returns the payload of a {"data": ...} envelope, or body itself.
func unwrapData(body []byte) ([]byte, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, ErrNoData
	}
	if trimmed[0] != '{' {
		return trimmed, nil
	}
	var env struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(trimmed, &env); err == nil && len(env.Data) > 0 {
		if bytes.Equal(bytes.TrimSpace(env.Data), []byte("null")) {
			return nil, ErrNoData
		}
		return env.Data, nil
	}
	return trimmed, nil
}

// do sends one request and returns the response body of a 2xx reply.
func (c *Client) do(ctx context.Context, method, path string, payload []byte) ([]byte, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("crm: creating request: %w", err)
	}
	requestID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	entry := c.log.WithFields(logrus.Fields{
		"method":     method,
		"path":       path,
		"request_id": requestID,
	})
	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		entry.WithError(err).Warn("crm request failed")
		return nil, fmt.Errorf("crm: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()
	entry = entry.WithFields(logrus.Fields{
		"status":   resp.StatusCode,
		"duration": time.Since(start).String(),
	})

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := extractMessage(io.LimitReader(resp.Body, maxErrorBody), resp.StatusCode)
		entry.WithField("message", msg).Warn("crm request rejected")
		return nil, &APIError{
			Method:     method,
			Path:       path,
			StatusCode: resp.StatusCode,
			Message:    msg,
			RequestID:  requestID,
		}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("crm: reading %s %s: %w", method, path, err)
	}
	entry.Debug("crm request")
	return data, nil
}

// extractMessage pulls a human-readable message out of an error body: the
// "message" or "error" field of a JSON object, a JSON string, or the raw
// text. Empty bodies fall back to the HTTP status text.
func extractMessage(r io.Reader, status int) string {
	raw, _ := io.ReadAll(r)
	text := strings.TrimSpace(string(raw))
	if text == "" {
		return http.StatusText(status)
	}

	var obj struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal([]byte(text), &obj); err == nil {
		if obj.Message != "" {
			return obj.Message
		}
		if obj.Error != "" {
			return obj.Error
		}
	}
	var s string
	if err := json.Unmarshal([]byte(text), &s); err == nil && s != "" {
		return s
	}
	return text
}
