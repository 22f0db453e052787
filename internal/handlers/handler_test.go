// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// handler_test.go provides in-memory fakes and request helpers shared by the
// handler tests. Nothing here needs PostgreSQL or Valkey.
package handlers

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"backoffice/internal/apierr"
	"backoffice/internal/middleware"
	"backoffice/internal/models"
	"backoffice/internal/session"
	"backoffice/internal/store"
)

// fakeCategories is an in-memory CategoryStore.
type fakeCategories struct {
	mu    sync.Mutex
	items map[uuid.UUID]models.Category
	lists int
	err   error
}

func newFakeCategories(seed ...models.Category) *fakeCategories {
	f := &fakeCategories{items: make(map[uuid.UUID]models.Category)}
	for _, c := range seed {
		f.items[c.ID] = c
	}
	return f
}

func (f *fakeCategories) List(_ context.Context) ([]models.Category, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lists++
	if f.err != nil {
		return nil, f.err
	}
	out := make([]models.Category, 0, len(f.items))
	for _, c := range f.items {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Order != out[j].Order {
			return out[i].Order < out[j].Order
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func (f *fakeCategories) Create(_ context.Context, in models.CategoryInput) (*models.Category, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	if in.ParentID != nil {
		if _, ok := f.items[*in.ParentID]; !ok {
			return nil, apierr.New(apierr.ErrValidation, "Parent category not found.")
		}
	}
	c := models.Category{
		ID:          uuid.New(),
		Name:        in.Name,
		Description: in.Description,
		IsActive:    in.IsActive,
		ParentID:    in.ParentID,
		Order:       in.Order,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}
	f.items[c.ID] = c
	return &c, nil
}

func (f *fakeCategories) Update(_ context.Context, id uuid.UUID, in models.CategoryInput) (*models.Category, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.items[id]
	if !ok {
		return nil, apierr.New(apierr.ErrNotFound, "Category not found.")
	}
	c.Name, c.Description, c.IsActive = in.Name, in.Description, in.IsActive
	c.ParentID, c.Order = in.ParentID, in.Order
	c.UpdatedAt = time.Now()
	f.items[id] = c
	return &c, nil
}

func (f *fakeCategories) Delete(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.items[id]; !ok {
		return apierr.New(apierr.ErrNotFound, "Category not found.")
	}
	delete(f.items, id)
	for cid, c := range f.items {
		if c.ParentID != nil && *c.ParentID == id {
			c.ParentID = nil
			f.items[cid] = c
		}
	}
	return nil
}

func (f *fakeCategories) Reorder(_ context.Context, items []store.ReorderItem) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, it := range items {
		if _, ok := f.items[it.ID]; !ok {
			return apierr.New(apierr.ErrNotFound, "Category %s not found.", it.ID)
		}
	}
	for _, it := range items {
		c := f.items[it.ID]
		c.ParentID, c.Order = it.ParentID, it.Order
		f.items[it.ID] = c
	}
	return nil
}

func (f *fakeCategories) get(id uuid.UUID) (models.Category, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.items[id]
	return c, ok
}

// fakeUsers is an in-memory UserStore keyed by email.
type fakeUsers struct {
	mu    sync.Mutex
	users map[string]*models.User
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{users: make(map[string]*models.User)}
}

func (f *fakeUsers) add(t *testing.T, email, password string) *models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}
	u := &models.User{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: string(hash),
		DisplayName:  "Test User",
		Role:         models.RoleAdmin,
	}
	f.mu.Lock()
	f.users[email] = u
	f.mu.Unlock()
	return u
}

func (f *fakeUsers) FindByEmail(_ context.Context, email string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[email]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUsers) FindByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.ID == id {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeUsers) SetTOTPSecret(_ context.Context, id uuid.UUID, secret string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.ID == id {
			u.TOTPSecret = &secret
		}
	}
	return nil
}

func (f *fakeUsers) EnableTOTP(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.ID == id {
			u.TOTPEnabled = true
		}
	}
	return nil
}

func (f *fakeUsers) CheckPassword(u *models.User, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) == nil
}

// fakeSessions is an in-memory SessionStore.
type fakeSessions struct {
	mu       sync.Mutex
	data     map[string]*session.Data
	next     int
	failWith error
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{data: make(map[string]*session.Data)}
}

func (f *fakeSessions) Create(_ context.Context, d *session.Data) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return "", f.failWith
	}
	f.next++
	token := "token-" + strconv.Itoa(f.next)
	f.data[token] = d
	return token, nil
}

func (f *fakeSessions) Destroy(_ context.Context, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.data, token)
	return nil
}

func (f *fakeSessions) has(token string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.data[token]
	return ok
}

// envelope mirrors response.APIResponse with a raw data field.
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

// newRequest builds a request with an optional JSON body, session and
// chi URL parameters given as key/value pairs.
func newRequest(t *testing.T, method, target string, body any, sess *session.Data, params ...string) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if raw, ok := body.(string); ok {
			buf.WriteString(raw)
		} else if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")

	ctx := req.Context()
	if sess != nil {
		ctx = context.WithValue(ctx, middleware.SessionKey, sess)
		ctx = context.WithValue(ctx, middleware.TokenKey, "current-token")
	}
	if len(params) > 0 {
		rctx := chi.NewRouteContext()
		for i := 0; i+1 < len(params); i += 2 {
			rctx.URLParams.Add(params[i], params[i+1])
		}
		ctx = context.WithValue(ctx, chi.RouteCtxKey, rctx)
	}
	return req.WithContext(ctx)
}

// serve runs h and decodes the envelope.
func serve(t *testing.T, h http.HandlerFunc, req *http.Request) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	rec := httptest.NewRecorder()
	h(rec, req)

	var env envelope
	if ct := rec.Header().Get("Content-Type"); ct == "application/json" {
		if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
			t.Fatalf("decode envelope: %v\n%s", err, rec.Body.String())
		}
	}
	return rec, env
}

// decodeData unmarshals the envelope's data into dst.
func decodeData(t *testing.T, env envelope, dst any) {
	t.Helper()
	if err := json.Unmarshal(env.Data, dst); err != nil {
		t.Fatalf("decode data: %v\n%s", err, env.Data)
	}
}

func testSession(userID uuid.UUID, email string) *session.Data {
	return &session.Data{UserID: userID, Email: email, Role: string(models.RoleAdmin), CreatedAt: time.Now()}
}

// serveRaw runs h without decoding the body.
func serveRaw(h http.HandlerFunc, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h(rec, req)
	return rec
}
