// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package router tests verify the HTTP routing configuration, middleware
// chains, and the health endpoint.
package router

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"backoffice/internal/cache"
	"backoffice/internal/handlers"
	"backoffice/internal/middleware"
	"backoffice/internal/models"
	"backoffice/internal/session"
	"backoffice/internal/store"
)

// stubSessions resolves a fixed token table.
type stubSessions map[string]*session.Data

func (s stubSessions) Get(_ context.Context, token string) (*session.Data, error) {
	return s[token], nil
}

func (s stubSessions) Create(_ context.Context, _ *session.Data) (string, error) {
	return "new-token", nil
}

func (s stubSessions) Destroy(_ context.Context, token string) error {
	delete(s, token)
	return nil
}

// stubCategories answers every call with a fixed, empty store.
type stubCategories struct{}

func (stubCategories) List(context.Context) ([]models.Category, error) {
	return []models.Category{}, nil
}

func (stubCategories) Create(_ context.Context, in models.CategoryInput) (*models.Category, error) {
	return &models.Category{ID: uuid.New(), Name: in.Name}, nil
}

func (stubCategories) Update(_ context.Context, id uuid.UUID, in models.CategoryInput) (*models.Category, error) {
	return &models.Category{ID: id, Name: in.Name}, nil
}

func (stubCategories) Delete(context.Context, uuid.UUID) error { return nil }

func (stubCategories) Reorder(context.Context, []store.ReorderItem) error { return nil }

// noUsers knows no accounts, so every login fails with 401.
type noUsers struct{}

func (noUsers) FindByEmail(context.Context, string) (*models.User, error) { return nil, nil }
func (noUsers) FindByID(context.Context, uuid.UUID) (*models.User, error) { return nil, nil }
func (noUsers) SetTOTPSecret(context.Context, uuid.UUID, string) error    { return nil }
func (noUsers) EnableTOTP(context.Context, uuid.UUID) error               { return nil }
func (noUsers) CheckPassword(*models.User, string) bool                   { return false }

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()

	sessions := stubSessions{
		"admin-token":   {UserID: uuid.New(), Email: "admin@backoffice.local", Role: "admin"},
		"manager-token": {UserID: uuid.New(), Email: "manager@backoffice.local", Role: "manager"},
	}
	limiter := middleware.NewLoginLimiter(2, time.Minute)
	t.Cleanup(limiter.Stop)

	return New(Deps{
		Sessions:     sessions,
		Auth:         handlers.NewAuth(sessions, noUsers{}),
		Categories:   handlers.NewCategories(stubCategories{}, cache.NewCategoryCache(nil, 0)),
		LoginLimiter: limiter,
		CORSOrigins:  []string{"http://localhost:3000"},
	})
}

func do(h http.Handler, method, path, token, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealthHandler(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest("GET", "/health", nil)

	healthHandler(w, r)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status: got %d, want 200", resp.StatusCode)
	}

	ct := resp.Header.Get("Content-Type")
	if ct != "application/json" {
		t.Errorf("content-type: got %q, want %q", ct, "application/json")
	}

	var body map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("status field: got %q, want %q", body["status"], "ok")
	}
}

func TestRoutes(t *testing.T) {
	h := newTestRouter(t)
	id := uuid.NewString()

	tests := []struct {
		name   string
		method string
		path   string
		token  string
		body   string
		want   int
	}{
		{"health", "GET", "/health", "", "", http.StatusOK},
		{"list without session", "GET", "/api/categories", "", "", http.StatusUnauthorized},
		{"list with unknown token", "GET", "/api/categories", "stale", "", http.StatusUnauthorized},
		{"list", "GET", "/api/categories", "manager-token", "", http.StatusOK},
		{"tree", "GET", "/api/categories/tree", "manager-token", "", http.StatusOK},
		{"create", "POST", "/api/categories", "manager-token", `{"name":"Books"}`, http.StatusCreated},
		{"update", "PUT", "/api/categories/" + id, "manager-token", `{"name":"Books"}`, http.StatusOK},
		{"delete", "DELETE", "/api/categories/" + id, "manager-token", "", http.StatusOK},
		{"reorder as manager", "PUT", "/api/categories/order", "manager-token", `{"items":[{"id":"` + id + `"}]}`, http.StatusForbidden},
		{"activity as manager", "GET", "/api/categories/activity", "manager-token", "", http.StatusForbidden},
		{"activity as admin", "GET", "/api/categories/activity", "admin-token", "", http.StatusOK},
		{"reorder as admin", "PUT", "/api/categories/order", "admin-token", `{"items":[{"id":"` + id + `"}]}`, http.StatusOK},
		{"2fa setup without session", "GET", "/api/auth/2fa/setup", "", "", http.StatusUnauthorized},
		{"logout without session", "POST", "/api/auth/logout", "", "", http.StatusOK},
		{"unknown route", "GET", "/api/nope", "", "", http.StatusNotFound},
		{"wrong method", "PATCH", "/api/categories/" + id, "admin-token", "", http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(h, tt.method, tt.path, tt.token, tt.body)
			if rec.Code != tt.want {
				t.Errorf("%s %s: got %d, want %d (%s)", tt.method, tt.path, rec.Code, tt.want, rec.Body.String())
			}
		})
	}
}

func TestSecureHeadersApplied(t *testing.T) {
	rec := do(newTestRouter(t), "GET", "/health", "", "")
	if got := rec.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("X-Content-Type-Options: got %q", got)
	}
}

func TestLoginRateLimited(t *testing.T) {
	h := newTestRouter(t)
	body := `{"email":"ghost@backoffice.local","password":"x"}`

	for i := 0; i < 2; i++ {
		if rec := do(h, "POST", "/api/auth/login", "", body); rec.Code != http.StatusUnauthorized {
			t.Fatalf("attempt %d: got %d, want 401", i+1, rec.Code)
		}
	}
	if rec := do(h, "POST", "/api/auth/login", "", body); rec.Code != http.StatusTooManyRequests {
		t.Errorf("third attempt: got %d, want 429", rec.Code)
	}

	// The limit is per account, so another email from the same client still gets through.
	other := `{"email":"someone@backoffice.local","password":"x"}`
	if rec := do(h, "POST", "/api/auth/login", "", other); rec.Code != http.StatusUnauthorized {
		t.Errorf("other account: got %d, want 401", rec.Code)
	}

	// Other routes are not limited.
	if rec := do(h, "GET", "/api/categories", "admin-token", ""); rec.Code != http.StatusOK {
		t.Errorf("list after limit: got %d", rec.Code)
	}
}

func TestCORSPreflight(t *testing.T) {
	h := newTestRouter(t)

	// Browsers send Access-Control-Request-Headers lowercased.
	tests := []struct {
		name        string
		origin      string
		reqHeaders  string
		wantOrigin  string
		wantHeaders string
	}{
		{"allowed origin", "http://localhost:3000", "authorization", "http://localhost:3000", "authorization"},
		{"allowed origin with body", "http://localhost:3000", "authorization,content-type", "http://localhost:3000", "authorization,content-type"},
		{"disallowed header", "http://localhost:3000", "x-debug", "", ""},
		{"disallowed origin", "http://evil.example", "authorization", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodOptions, "/api/categories", nil)
			req.Header.Set("Origin", tt.origin)
			req.Header.Set("Access-Control-Request-Method", http.MethodPut)
			req.Header.Set("Access-Control-Request-Headers", tt.reqHeaders)
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if got := rec.Header().Get("Access-Control-Allow-Origin"); got != tt.wantOrigin {
				t.Errorf("Allow-Origin: got %q, want %q", got, tt.wantOrigin)
			}
			if got := rec.Header().Get("Access-Control-Allow-Headers"); got != tt.wantHeaders {
				t.Errorf("Allow-Headers: got %q, want %q", got, tt.wantHeaders)
			}
		})
	}
}

// failingSessions stands in for an unreachable session store.
type failingSessions struct{ stubSessions }

func (failingSessions) Get(context.Context, string) (*session.Data, error) {
	return nil, errors.New("dial tcp 127.0.0.1:6379: connect: connection refused")
}

func TestSessionStoreOutage(t *testing.T) {
	sessions := failingSessions{stubSessions{}}
	limiter := middleware.NewRateLimiter(5, time.Minute)
	t.Cleanup(limiter.Stop)

	h := New(Deps{
		Sessions:     sessions,
		Auth:         handlers.NewAuth(sessions, noUsers{}),
		Categories:   handlers.NewCategories(stubCategories{}, cache.NewCategoryCache(nil, 0)),
		LoginLimiter: limiter,
	})

	rec := do(h, "GET", "/api/categories", "admin-token", "")
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status: got %d, want 503 (%s)", rec.Code, rec.Body.String())
	}
	var env struct {
		Success bool   `json:"success"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if env.Success || !strings.Contains(env.Error, "unavailable") {
		t.Errorf("envelope: %+v", env)
	}

	// Requests without a token never reach the store.
	if rec := do(h, "GET", "/health", "", ""); rec.Code != http.StatusOK {
		t.Errorf("health during outage: got %d", rec.Code)
	}
}
