// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package middleware

import (
	"bytes"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"

	"backoffice/internal/response"
)

const (
	// loginAccountsPerIP scales the per-account login limit into the ceiling
	// for one address, so spraying many emails from it still gets cut off.
	loginAccountsPerIP = 5

	// maxLoginPeek bounds how much of a login body is read to find the email.
	maxLoginPeek = 4 << 10
)

// bucket is one counter a request is charged against.
type bucket struct {
	key   string
	limit int
}

// RateLimiter counts requests in a sliding window. A plain limiter keys on
// the client address; a login limiter also keys on the account the request
// tries to sign in to.
type RateLimiter struct {
	mu     sync.Mutex
	hits   map[string][]time.Time
	window time.Duration
	now    func() time.Time

	buckets func(r *http.Request) []bucket

	stopCh chan struct{}
	once   sync.Once
}

// NewRateLimiter allows limit requests per window from each client address.
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	return newRateLimiter(window, func(r *http.Request) []bucket {
		return []bucket{{key: "ip:" + clientIP(r), limit: limit}}
	})
}

// NewLoginLimiter allows limit sign-in attempts per window for each pair of
// client address and email, and loginAccountsPerIP times that for the
// address as a whole. The email is read from the JSON body, which is left
// intact for the handler.
func NewLoginLimiter(limit int, window time.Duration) *RateLimiter {
	return newRateLimiter(window, func(r *http.Request) []bucket {
		ip := clientIP(r)
		bs := []bucket{{key: "ip:" + ip, limit: limit * loginAccountsPerIP}}
		if email := loginEmail(r); email != "" {
			bs = append(bs, bucket{key: "login:" + ip + "|" + email, limit: limit})
		}
		return bs
	})
}

func newRateLimiter(window time.Duration, buckets func(*http.Request) []bucket) *RateLimiter {
	rl := &RateLimiter{
		hits:    make(map[string][]time.Time),
		window:  window,
		now:     time.Now,
		buckets: buckets,
		stopCh:  make(chan struct{}),
	}

	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				rl.cleanup()
			case <-rl.stopCh:
				return
			}
		}
	}()

	return rl
}

// Stop terminates the background cleanup goroutine. Safe to call twice.
func (rl *RateLimiter) Stop() {
	rl.once.Do(func() { close(rl.stopCh) })
}

// take charges one hit to every bucket, or to none when any of them is
// full. On refusal it reports how long until the fullest bucket frees a slot.
func (rl *RateLimiter) take(bs []bucket) (bool, time.Duration) {
	now := rl.now()
	cutoff := now.Add(-rl.window)

	rl.mu.Lock()
	defer rl.mu.Unlock()

	var wait time.Duration
	for _, b := range bs {
		ts := prune(rl.hits[b.key], cutoff)
		rl.hits[b.key] = ts
		if b.limit <= 0 {
			wait = max(wait, rl.window)
			continue
		}
		if len(ts) >= b.limit {
			if w := ts[len(ts)-b.limit].Sub(cutoff); w > wait {
				wait = w
			}
		}
	}
	if wait > 0 {
		return false, wait
	}

	for _, b := range bs {
		rl.hits[b.key] = append(rl.hits[b.key], now)
	}
	return true, 0
}

// prune drops timestamps at or before cutoff. ts is in ascending order.
func prune(ts []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(ts) && !ts[i].After(cutoff) {
		i++
	}
	return ts[i:]
}

// cleanup forgets buckets with no hit inside the window.
func (rl *RateLimiter) cleanup() {
	cutoff := rl.now().Add(-rl.window)

	rl.mu.Lock()
	defer rl.mu.Unlock()

	for key, ts := range rl.hits {
		if len(prune(ts, cutoff)) == 0 {
			delete(rl.hits, key)
		}
	}
}

// Middleware answers 429 with a Retry-After header once a bucket is full.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ok, wait := rl.take(rl.buckets(r))
		if !ok {
			slog.Warn("rate limit exceeded", "ip", clientIP(r), "path", r.URL.Path)
			secs := int((wait + time.Second - 1) / time.Second)
			w.Header().Set("Retry-After", strconv.Itoa(max(secs, 1)))
			response.ErrorWithMessage(w, http.StatusTooManyRequests, "Too many attempts. Try again later.")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// loginEmail returns the normalised email of a login body and puts the
// bytes it read back in front of the body. Anything unreadable yields "".
func loginEmail(r *http.Request) string {
	if r.Body == nil {
		return ""
	}
	head, err := io.ReadAll(io.LimitReader(r.Body, maxLoginPeek))
	r.Body = struct {
		io.Reader
		io.Closer
	}{io.MultiReader(bytes.NewReader(head), r.Body), r.Body}
	if err != nil {
		return ""
	}

	var req struct {
		Email string `json:"email"`
	}
	if json.Unmarshal(head, &req) != nil {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(req.Email))
}

// clientIP extracts the client's IP address, checking X-Forwarded-For
// and X-Real-IP headers for proxied requests.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		// Leftmost entry is the original client.
		if idx := strings.IndexByte(xff, ','); idx != -1 {
			return strings.TrimSpace(xff[:idx])
		}
		return strings.TrimSpace(xff)
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}

	addr := r.RemoteAddr
	if idx := strings.LastIndex(addr, ":"); idx != -1 {
		return addr[:idx]
	}
	return addr
}
