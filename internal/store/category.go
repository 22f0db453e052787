// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"backoffice/internal/apierr"
	"backoffice/internal/models"
	"backoffice/internal/slug"
)

// PostgreSQL error codes mapped onto the API taxonomy.
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgCheckViolation      = "23514"
)

// CategoryStore manages categories in the database.
type CategoryStore struct {
	db *sql.DB
}

// NewCategoryStore returns a new CategoryStore.
func NewCategoryStore(db *sql.DB) *CategoryStore {
	return &CategoryStore{db: db}
}

const categoryColumns = `id, name, slug, description, is_active, parent_id, sort_order, created_at, updated_at`

// scanCategory scans a row into a Category struct.
func scanCategory(scanner interface{ Scan(...any) error }) (*models.Category, error) {
	var c models.Category
	err := scanner.Scan(
		&c.ID, &c.Name, &c.Slug, &c.Description, &c.IsActive,
		&c.ParentID, &c.Order, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// List returns every category ordered by sort_order, then name. The result
// is the flat list the tree editor nests; it is never nil.
func (s *CategoryStore) List(ctx context.Context) ([]models.Category, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+categoryColumns+`
		FROM categories
		ORDER BY sort_order, name`)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	items := []models.Category{}
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		items = append(items, *c)
	}
	return items, rows.Err()
}

// FindByID retrieves a category by ID.
func (s *CategoryStore) FindByID(ctx context.Context, id uuid.UUID) (*models.Category, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+categoryColumns+` FROM categories WHERE id = $1`, id)
	c, err := scanCategory(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apierr.New(apierr.ErrNotFound, "Category not found.")
	}
	if err != nil {
		return nil, fmt.Errorf("find category by id: %w", err)
	}
	return c, nil
}

// Create inserts a new category with a unique slug derived from its name.
func (s *CategoryStore) Create(ctx context.Context, in models.CategoryInput) (*models.Category, error) {
	if err := s.checkParent(ctx, nil, in.ParentID); err != nil {
		return nil, err
	}
	sl, err := s.UniqueSlug(ctx, slug.Generate(in.Name), nil)
	if err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, `
		INSERT INTO categories (name, slug, description, is_active, parent_id, sort_order)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+categoryColumns,
		in.Name, sl, in.Description, in.IsActive, in.ParentID, in.Order,
	)
	c, err := scanCategory(row)
	if err != nil {
		return nil, fmt.Errorf("create category: %w", mapPgError(err))
	}
	return c, nil
}

// Update replaces the editable fields of category id. The slug follows the
// name; it is regenerated only when the name changes.
func (s *CategoryStore) Update(ctx context.Context, id uuid.UUID, in models.CategoryInput) (*models.Category, error) {
	current, err := s.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.checkParent(ctx, &id, in.ParentID); err != nil {
		return nil, err
	}

	sl := current.Slug
	if current.Name != in.Name {
		if sl, err = s.UniqueSlug(ctx, slug.Generate(in.Name), &id); err != nil {
			return nil, err
		}
	}

	row := s.db.QueryRowContext(ctx, `
		UPDATE categories SET
			name = $1, slug = $2, description = $3, is_active = $4,
			parent_id = $5, sort_order = $6, updated_at = NOW()
		WHERE id = $7
		RETURNING `+categoryColumns,
		in.Name, sl, in.Description, in.IsActive, in.ParentID, in.Order, id,
	)
	c, err := scanCategory(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apierr.New(apierr.ErrNotFound, "Category not found.")
	}
	if err != nil {
		return nil, fmt.Errorf("update category: %w", mapPgError(err))
	}
	return c, nil
}

// Delete removes a category by ID. Children are re-parented to the root
// (ON DELETE SET NULL).
func (s *CategoryStore) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM categories WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	if n == 0 {
		return apierr.New(apierr.ErrNotFound, "Category not found.")
	}
	return nil
}

// ReorderItem represents a single item in a reorder request.
type ReorderItem struct {
	ID       uuid.UUID  `json:"id" validate:"required"`
	ParentID *uuid.UUID `json:"parentCategory"`
	Order    int        `json:"order" validate:"gte=0"`
}

// Reorder updates sort_order and parent_id for multiple categories in one
// transaction. Either every row moves or none does.
func (s *CategoryStore) Reorder(ctx context.Context, items []ReorderItem) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		UPDATE categories SET parent_id = $1, sort_order = $2, updated_at = $3
		WHERE id = $4`)
	if err != nil {
		return fmt.Errorf("prepare reorder: %w", err)
	}
	defer stmt.Close()

	now := time.Now()
	for _, item := range items {
		res, err := stmt.ExecContext(ctx, item.ParentID, item.Order, now, item.ID)
		if err != nil {
			return fmt.Errorf("reorder category %s: %w", item.ID, mapPgError(err))
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return apierr.New(apierr.ErrNotFound, "Category %s not found.", item.ID)
		}
	}

	var tooDeep int
	err = tx.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM categories c
		JOIN categories p ON p.id = c.parent_id
		WHERE p.parent_id IS NOT NULL`).Scan(&tooDeep)
	if err != nil {
		return fmt.Errorf("check depth: %w", err)
	}
	if tooDeep > 0 {
		return apierr.New(apierr.ErrValidation, "Categories can only be nested one level deep.")
	}

	return tx.Commit()
}

// UniqueSlug returns base, or base with the lowest numeric suffix that no
// other category uses. exclude skips the category being renamed.
func (s *CategoryStore) UniqueSlug(ctx context.Context, base string, exclude *uuid.UUID) (string, error) {
	for n := 1; ; n++ {
		candidate := slug.WithSuffix(base, n)
		var taken bool
		err := s.db.QueryRowContext(ctx, `
			SELECT EXISTS (SELECT 1 FROM categories WHERE slug = $1 AND ($2::uuid IS NULL OR id <> $2))`,
			candidate, exclude,
		).Scan(&taken)
		if err != nil {
			return "", fmt.Errorf("check slug: %w", err)
		}
		if !taken {
			return candidate, nil
		}
	}
}

// checkParent enforces the two-level shape: a parent must exist, must not
// be the category itself and must be a root; a category that has children
// cannot be placed under another one.
func (s *CategoryStore) checkParent(ctx context.Context, id, parentID *uuid.UUID) error {
	if parentID == nil {
		return nil
	}
	if id != nil && *id == *parentID {
		return apierr.New(apierr.ErrValidation, "A category cannot be its own parent.")
	}

	var grandparent *uuid.UUID
	err := s.db.QueryRowContext(ctx, `SELECT parent_id FROM categories WHERE id = $1`, *parentID).Scan(&grandparent)
	if errors.Is(err, sql.ErrNoRows) {
		return apierr.New(apierr.ErrValidation, "Parent category not found.")
	}
	if err != nil {
		return fmt.Errorf("check parent: %w", err)
	}
	if grandparent != nil {
		return apierr.New(apierr.ErrValidation, "Categories can only be nested one level deep.")
	}

	if id == nil {
		return nil
	}
	var hasChildren bool
	err = s.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM categories WHERE parent_id = $1)`, *id).Scan(&hasChildren)
	if err != nil {
		return fmt.Errorf("check children: %w", err)
	}
	if hasChildren {
		return apierr.New(apierr.ErrValidation, "A category with subcategories cannot be nested.")
	}
	return nil
}

// mapPgError translates constraint violations into API errors.
func mapPgError(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case pgUniqueViolation:
		return apierr.New(apierr.ErrConflict, "A category with this slug already exists.")
	case pgForeignKeyViolation:
		return apierr.New(apierr.ErrValidation, "Parent category not found.")
	case pgCheckViolation:
		return apierr.New(apierr.ErrValidation, "Category fails a data constraint.")
	default:
		return err
	}
}
