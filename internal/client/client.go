// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package client is the HTTP client for the back-office category API. It
// implements manager.Repository and applies the sign-out policy: any 401
// clears the shared Session.
package client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"backoffice/internal/apierr"
	"backoffice/internal/models"
)

// DefaultTimeout bounds every API call.
const DefaultTimeout = 15 * time.Second

// Client talks to the category API on behalf of a signed-in admin.
type Client struct {
	baseURL string
	session *Session
	http    *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// New creates a client for the API rooted at baseURL (e.g.
// "http://localhost:8080").
func New(baseURL string, session *Session, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		session: session,
		http:    &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// envelope mirrors the server's response wrapper.
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

// LoginResult is returned by a successful sign-in.
type LoginResult struct {
	Token string      `json:"token"`
	User  models.User `json:"user"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Code     string `json:"code,omitempty"`
}

// Login exchanges credentials for a bearer token and stores it in the
// session. code is the TOTP code for accounts that enabled it.
func (c *Client) Login(ctx context.Context, email, password, code string) (*LoginResult, error) {
	var res LoginResult
	body := loginRequest{Email: email, Password: password, Code: code}
	if err := c.send(ctx, http.MethodPost, "/api/auth/login", body, &res, false); err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	if err := c.session.SetToken(res.Token); err != nil {
		return nil, err
	}
	return &res, nil
}

// Logout ends the server session and forgets the local token.
func (c *Client) Logout(ctx context.Context) error {
	err := c.send(ctx, http.MethodPost, "/api/auth/logout", nil, nil, false)
	c.session.SignOut()
	if err != nil && !errors.Is(err, apierr.ErrUnauthorized) {
		return fmt.Errorf("logout: %w", err)
	}
	return nil
}

// List returns every category as stored, in server order.
func (c *Client) List(ctx context.Context) ([]models.Category, error) {
	var out []models.Category
	if err := c.do(ctx, http.MethodGet, "/api/categories", nil, &out); err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return out, nil
}

// Create stores a new category and returns it with its assigned id.
func (c *Client) Create(ctx context.Context, in models.CategoryInput) (*models.Category, error) {
	var out models.Category
	if err := c.do(ctx, http.MethodPost, "/api/categories", in, &out); err != nil {
		return nil, fmt.Errorf("create category: %w", err)
	}
	return &out, nil
}

// Update replaces the editable fields of category id.
func (c *Client) Update(ctx context.Context, id uuid.UUID, in models.CategoryInput) (*models.Category, error) {
	var out models.Category
	if err := c.do(ctx, http.MethodPut, "/api/categories/"+id.String(), in, &out); err != nil {
		return nil, fmt.Errorf("update category %s: %w", id, err)
	}
	return &out, nil
}

// Delete removes category id.
func (c *Client) Delete(ctx context.Context, id uuid.UUID) error {
	if err := c.do(ctx, http.MethodDelete, "/api/categories/"+id.String(), nil, nil); err != nil {
		return fmt.Errorf("delete category %s: %w", id, err)
	}
	return nil
}

// do performs an authenticated request.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	return c.send(ctx, method, path, body, out, true)
}

// send performs one JSON request and decodes the envelope's data into out.
// When authed is set, a 401 answer clears the session.
func (c *Client) send(ctx context.Context, method, path string, body, out any, authed bool) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.session.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("http: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}

	var env envelope
	if len(respBody) > 0 {
		if err := json.Unmarshal(respBody, &env); err != nil && resp.StatusCode < 300 {
			return fmt.Errorf("unmarshal response: %w", err)
		}
	}

	if resp.StatusCode >= 300 {
		if authed && resp.StatusCode == http.StatusUnauthorized {
			c.session.Clear()
		}
		return apierr.FromStatus(resp.StatusCode, env.Error)
	}

	if out == nil || len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("unmarshal data: %w", err)
	}
	return nil
}
