// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package database

import (
	"database/sql"
	_ "embed"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"

	"backoffice/internal/slug"
)

//go:embed seeddata/seed.yaml
var seedYAML []byte

// SeedData is the shape of the development seed file.
type SeedData struct {
	Admin struct {
		Email       string `yaml:"email"`
		Password    string `yaml:"password"`
		DisplayName string `yaml:"display_name"`
	} `yaml:"admin"`
	Categories []SeedCategory `yaml:"categories"`
}

// SeedCategory is one category of the seed tree. Active defaults to true.
type SeedCategory struct {
	Name        string         `yaml:"name"`
	Description string         `yaml:"description"`
	Active      *bool          `yaml:"active"`
	Children    []SeedCategory `yaml:"children"`
}

// IsActive resolves the optional active flag.
func (c SeedCategory) IsActive() bool {
	return c.Active == nil || *c.Active
}

// ParseSeed decodes and checks a seed file. Categories may nest one level
// only, matching what the tree editor can display.
func ParseSeed(data []byte) (*SeedData, error) {
	var sd SeedData
	if err := yaml.Unmarshal(data, &sd); err != nil {
		return nil, fmt.Errorf("seed yaml: %w", err)
	}
	if sd.Admin.Email == "" || sd.Admin.Password == "" {
		return nil, fmt.Errorf("seed: admin email and password are required")
	}
	for _, root := range sd.Categories {
		if strings.TrimSpace(root.Name) == "" {
			return nil, fmt.Errorf("seed: category with empty name")
		}
		for _, child := range root.Children {
			if strings.TrimSpace(child.Name) == "" {
				return nil, fmt.Errorf("seed: subcategory of %q with empty name", root.Name)
			}
			if len(child.Children) > 0 {
				return nil, fmt.Errorf("seed: %q nests deeper than two levels", child.Name)
			}
		}
	}
	return &sd, nil
}

// Seed populates the database with initial development data from the
// embedded seed file. The admin user is created when no users exist; the
// category tree when the categories table is empty.
func Seed(db *sql.DB) error {
	sd, err := ParseSeed(seedYAML)
	if err != nil {
		return err
	}
	if err := seedAdmin(db, sd); err != nil {
		return err
	}
	return seedCategories(db, sd.Categories)
}

func seedAdmin(db *sql.DB, sd *SeedData) error {
	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM users").Scan(&count); err != nil {
		return fmt.Errorf("seed check users: %w", err)
	}
	if count > 0 {
		slog.Info("users already seeded, skipping")
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(sd.Admin.Password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("seed bcrypt: %w", err)
	}

	_, err = db.Exec(`
		INSERT INTO users (email, password_hash, display_name, role, totp_enabled)
		VALUES ($1, $2, $3, $4, $5)
	`, sd.Admin.Email, string(hash), sd.Admin.DisplayName, "admin", false)
	if err != nil {
		return fmt.Errorf("seed insert admin: %w", err)
	}

	slog.Info("database seeded with default admin user",
		"email", sd.Admin.Email,
		"password", sd.Admin.Password,
	)
	return nil
}

// seedCategories inserts the tree in pre-order. Each row's sort_order is
// its global pre-order position, the same numbering a tree move produces.
func seedCategories(db *sql.DB, roots []SeedCategory) error {
	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM categories").Scan(&count); err != nil {
		return fmt.Errorf("seed check categories: %w", err)
	}
	if count > 0 {
		slog.Info("categories already seeded, skipping")
		return nil
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("seed begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO categories (name, slug, description, is_active, parent_id, sort_order)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`)
	if err != nil {
		return fmt.Errorf("seed prepare: %w", err)
	}
	defer stmt.Close()

	order := 0
	insert := func(c SeedCategory, parentID *string) (string, error) {
		var id string
		err := stmt.QueryRow(c.Name, slug.Generate(c.Name), c.Description, c.IsActive(), parentID, order).Scan(&id)
		if err != nil {
			return "", fmt.Errorf("seed insert category %q: %w", c.Name, err)
		}
		order++
		return id, nil
	}

	for _, root := range roots {
		id, err := insert(root, nil)
		if err != nil {
			return err
		}
		for _, child := range root.Children {
			if _, err := insert(child, &id); err != nil {
				return err
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("seed commit: %w", err)
	}
	slog.Info("database seeded with sample categories", "count", order)
	return nil
}
