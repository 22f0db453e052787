// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package client

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Session is the local sign-in state shared by every API call. When the
// server answers 401, the client calls Clear, which forgets the token and
// fires OnUnauthorized so the caller can send the user back to sign-in.
type Session struct {
	mu    sync.Mutex
	token string
	path  string

	// OnUnauthorized runs after the session has been cleared.
	OnUnauthorized func()
}

// NewSession returns an in-memory session holding token.
func NewSession(token string) *Session {
	return &Session{token: token}
}

// LoadSession reads a token persisted at path. A missing file yields an
// empty, signed-out session.
func LoadSession(path string) (*Session, error) {
	s := &Session{path: path}
	b, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read token file: %w", err)
	}
	s.token = strings.TrimSpace(string(b))
	return s, nil
}

// Token returns the bearer token, or "" when signed out.
func (s *Session) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

// SignedIn reports whether a token is held.
func (s *Session) SignedIn() bool {
	return s.Token() != ""
}

// SetToken stores a new token, persisting it when the session is file backed.
func (s *Session) SetToken(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.token = token
	if s.path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("create token dir: %w", err)
	}
	if err := os.WriteFile(s.path, []byte(token+"\n"), 0o600); err != nil {
		return fmt.Errorf("write token file: %w", err)
	}
	return nil
}

// Clear forgets the token, removes the token file and fires OnUnauthorized.
func (s *Session) Clear() {
	s.SignOut()

	s.mu.Lock()
	hook := s.OnUnauthorized
	s.mu.Unlock()
	if hook != nil {
		hook()
	}
}

// SignOut forgets the token without firing OnUnauthorized.
func (s *Session) SignOut() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.token = ""
	if s.path != "" {
		os.Remove(s.path)
	}
}
