// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// activity.go records category writes for audit purposes. Each entry
// captures which category changed, how, by whom and when.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Activity actions.
const (
	ActionCreate  = "create"
	ActionUpdate  = "update"
	ActionDelete  = "delete"
	ActionReorder = "reorder"
)

// ActivityEntry is a single recorded category write.
type ActivityEntry struct {
	ID         int64     `json:"id"`
	CategoryID uuid.UUID `json:"categoryId"`
	Action     string    `json:"action"`
	Actor      string    `json:"actor"`
	RecordedAt time.Time `json:"recordedAt"`
}

// ActivityStore handles the category activity log.
type ActivityStore struct {
	db *sql.DB
}

// NewActivityStore creates a new ActivityStore.
func NewActivityStore(db *sql.DB) *ActivityStore {
	return &ActivityStore{db: db}
}

// Record stores one activity entry. Recording is best-effort: failures are
// logged and never reach the caller.
func (s *ActivityStore) Record(ctx context.Context, categoryID uuid.UUID, action, actor string) {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO category_activity (category_id, action, actor)
		VALUES ($1, $2, $3)
	`, categoryID, action, actor)
	if err != nil {
		slog.Warn("failed to record category activity",
			"category_id", categoryID,
			"action", action,
			"error", err,
		)
		return
	}
	slog.Debug("category activity recorded",
		"category_id", categoryID,
		"action", action,
		"actor", actor,
	)
}

// Recent returns the latest activity entries, newest first.
func (s *ActivityStore) Recent(ctx context.Context, limit int) ([]ActivityEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, category_id, action, actor, recorded_at
		FROM category_activity
		ORDER BY recorded_at DESC, id DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query category activity: %w", err)
	}
	defer rows.Close()

	entries := []ActivityEntry{}
	for rows.Next() {
		var e ActivityEntry
		if err := rows.Scan(&e.ID, &e.CategoryID, &e.Action, &e.Actor, &e.RecordedAt); err != nil {
			return nil, fmt.Errorf("scan category activity: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
