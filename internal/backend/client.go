// Package backend is the HTTP client for the assistant's REST backend.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
)

// RequestIDHeader carries a per-call correlation id.
const RequestIDHeader = "X-Request-ID"

// maxErrorBody bounds how much of an error response is read.
const maxErrorBody = 64 << 10

// Client calls the backend endpoints. It holds no session state; tokens are
// passed per call.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *slog.Logger
}

// New creates a Client for baseURL with a per-request timeout.
func New(baseURL string, timeout time.Duration, logger *slog.Logger) *Client {
	return NewWithHTTPClient(baseURL, &http.Client{Timeout: timeout}, logger)
}

// NewWithHTTPClient creates a Client using the given http.Client.
func NewWithHTTPClient(baseURL string, hc *http.Client, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if hc == nil {
		hc = http.DefaultClient
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    hc,
		logger:  logger,
	}
}

// Profile fetches the caller's profile and normalizes its role code.
func (c *Client) Profile(ctx context.Context, token string) (*Profile, error) {
	var raw json.RawMessage
	if err := c.do(ctx, "profile", http.MethodGet, "/api/user/profile", token, nil, &raw); err != nil {
		return nil, err
	}
	code, err := ParseProfileRole(raw)
	if err != nil {
		return nil, err
	}
	return &Profile{RoleCode: code}, nil
}

// Chat sends a message to the agent.
func (c *Client) Chat(ctx context.Context, token string, req ChatRequest) (*ChatResponse, error) {
	var resp ChatResponse
	if err := c.do(ctx, "agent chat", http.MethodPut, "/agent/chat", token, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GenerateUploadURL requests a signed upload descriptor for a file.
func (c *Client) GenerateUploadURL(ctx context.Context, token, fileName, contentType string) (*UploadTarget, error) {
	var target UploadTarget
	body := uploadURLRequest{FileName: fileName, ContentType: contentType}
	if err := c.do(ctx, "generate upload url", http.MethodPost, "/api/storage/generate-upload-url", token, body, &target); err != nil {
		return nil, err
	}
	if target.SignedURL == "" || target.PublicURL == "" {
		return nil, fmt.Errorf("generate upload url: %w: signedUrl and publicUrl are required", ErrInvalidResponse)
	}
	return &target, nil
}

// Upload PUTs raw bytes to a signed URL. The URL is pre-authorized, so no
// bearer token is sent.
func (c *Client) Upload(ctx context.Context, signedURL, contentType string, body io.Reader, size int64) error {
	if _, err := url.ParseRequestURI(signedURL); err != nil {
		return fmt.Errorf("upload: %w: bad signed url: %v", ErrInvalidResponse, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, signedURL, body)
	if err != nil {
		return fmt.Errorf("upload: build request: %w", err)
	}
	if size > 0 {
		req.ContentLength = size
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("upload: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return c.apiError("upload", resp)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// ListUsers returns every user known to the backend.
func (c *Client) ListUsers(ctx context.Context, token string) ([]UserRecord, error) {
	var resp userListResponse
	if err := c.do(ctx, "list users", http.MethodGet, "/management/user/", token, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Users, nil
}

// UpdateUserRole assigns a backend role code to a user.
func (c *Client) UpdateUserRole(ctx context.Context, token, userID, roleCode string) error {
	body := map[string]string{"role": roleCode}
	return c.do(ctx, "update user role", http.MethodPut, "/management/user/"+url.PathEscape(userID), token, body, nil)
}

// UpdateUserStatus sets a user's backend status code.
func (c *Client) UpdateUserStatus(ctx context.Context, token, userID, statusCode string) error {
	body := map[string]string{"status": statusCode}
	return c.do(ctx, "update user status", http.MethodPut, "/management/user/"+url.PathEscape(userID), token, body, nil)
}

// DeleteUser removes a user.
func (c *Client) DeleteUser(ctx context.Context, token, userID string) error {
	return c.do(ctx, "delete user", http.MethodDelete, "/management/user/"+url.PathEscape(userID), token, nil, nil)
}

// GoogleToken exchanges a Google credential for an application token.
func (c *Client) GoogleToken(ctx context.Context, googleToken string) (*LoginResponse, error) {
	var resp LoginResponse
	body := map[string]string{"googleToken": googleToken}
	if err := c.do(ctx, "google token exchange", http.MethodPost, "/auth/google/token", "", body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// do issues a JSON request. out may be nil; empty and 204 bodies are accepted
// when out is nil.
func (c *Client) do(ctx context.Context, op, method, path, token string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("%s: encode request: %w", op, err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("%s: build request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	requestID := uuid.NewString()
	req.Header.Set(RequestIDHeader, requestID)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("backend request failed", "op", op, "request_id", requestID, "error", err)
		return fmt.Errorf("%s: %w", op, err)
	}
	defer func() { _ = resp.Body.Close() }()

	c.logger.Debug("backend request",
		"op", op,
		"method", method,
		"path", path,
		"status", resp.StatusCode,
		"request_id", requestID,
		"duration", time.Since(start),
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return c.apiError(op, resp)
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%s: %w: empty body", op, ErrInvalidResponse)
		}
		return fmt.Errorf("%s: %w: %v", op, ErrInvalidResponse, err)
	}
	return nil
}

// apiError builds an APIError from the JSON message field or the status text.
func (c *Client) apiError(op string, resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	msg := ""
	if json.Unmarshal(raw, &payload) == nil {
		msg = payload.Message
		if msg == "" {
			msg = payload.Error
		}
	}
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}
	return &APIError{Op: op, Status: resp.StatusCode, Message: msg}
}
