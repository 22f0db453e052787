// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package session

import (
	"context"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// testValkeyClient returns a Redis client connected to the test Valkey.
// Skips the test if Valkey is unavailable.
func testValkeyClient(t *testing.T) *redis.Client {
	t.Helper()

	host := envOr("VALKEY_HOST", "localhost")
	port := envOr("VALKEY_PORT", "6379")
	password := os.Getenv("VALKEY_PASSWORD")

	client := redis.NewClient(&redis.Options{
		Addr:     host + ":" + port,
		Password: password,
		DB:       15, // Use DB 15 for tests to isolate from dev data.
	})

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		t.Skipf("skipping integration test: Valkey not reachable: %v", err)
	}

	t.Cleanup(func() {
		keys, _ := client.Keys(ctx, keyPrefix+"*").Result()
		if len(keys) > 0 {
			client.Del(ctx, keys...)
		}
		client.Close()
	})

	return client
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func TestSessionCreateAndGet(t *testing.T) {
	store := NewStore(testValkeyClient(t), 0)
	ctx := context.Background()

	userID := uuid.New()
	token, err := store.Create(ctx, &Data{
		UserID: userID, Email: "admin@shop.local", DisplayName: "Admin", Role: "admin",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if len(token) != idLength*2 {
		t.Errorf("token length: got %d, want %d", len(token), idLength*2)
	}

	data, err := store.Get(ctx, token)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if data == nil {
		t.Fatal("expected session data, got nil")
	}
	if data.UserID != userID || data.Email != "admin@shop.local" || data.Role != "admin" {
		t.Errorf("data: %+v", data)
	}
	if data.CreatedAt.IsZero() {
		t.Error("expected CreatedAt to be set")
	}
}

func TestSessionGetUnknown(t *testing.T) {
	store := NewStore(testValkeyClient(t), 0)
	ctx := context.Background()

	for _, token := range []string{"", "nonexistent-token"} {
		data, err := store.Get(ctx, token)
		if err != nil {
			t.Fatalf("Get(%q): %v", token, err)
		}
		if data != nil {
			t.Errorf("Get(%q): expected nil", token)
		}
	}
}

func TestSessionExpires(t *testing.T) {
	store := NewStore(testValkeyClient(t), time.Second)
	ctx := context.Background()

	token, err := store.Create(ctx, &Data{UserID: uuid.New()})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	ttl, err := store.client.TTL(ctx, keyPrefix+token).Result()
	if err != nil {
		t.Fatalf("TTL: %v", err)
	}
	if ttl <= 0 || ttl > time.Second {
		t.Errorf("ttl: got %v", ttl)
	}
}

func TestSessionDestroy(t *testing.T) {
	store := NewStore(testValkeyClient(t), 0)
	ctx := context.Background()

	token, err := store.Create(ctx, &Data{UserID: uuid.New()})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := store.Destroy(ctx, token); err != nil {
		t.Fatalf("Destroy: %v", err)
	}
	if data, _ := store.Get(ctx, token); data != nil {
		t.Error("session should be gone after Destroy")
	}
	if err := store.Destroy(ctx, token); err != nil {
		t.Errorf("second Destroy: %v", err)
	}
	if err := store.Destroy(ctx, ""); err != nil {
		t.Errorf("Destroy empty token: %v", err)
	}
}

func TestTokenFromRequest(t *testing.T) {
	tests := []struct {
		name   string
		header string
		want   string
	}{
		{"bearer", "Bearer abc123", "abc123"},
		{"lowercase scheme", "bearer abc123", "abc123"},
		{"extra spaces", "Bearer   abc123 ", "abc123"},
		{"missing", "", ""},
		{"basic auth", "Basic dXNlcjpwYXNz", ""},
		{"scheme only", "Bearer", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/", nil)
			if tt.header != "" {
				r.Header.Set("Authorization", tt.header)
			}
			if got := TokenFromRequest(r); got != tt.want {
				t.Errorf("TokenFromRequest(%q) = %q, want %q", tt.header, got, tt.want)
			}
		})
	}
}

func TestGenerateIDUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id, err := generateID()
		if err != nil {
			t.Fatalf("generateID: %v", err)
		}
		if seen[id] {
			t.Fatalf("duplicate id %q", id)
		}
		seen[id] = true
	}
}
