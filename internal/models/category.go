// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Category is the flat, persisted form of a store category.
// A nil ParentID places the category at the root of the tree.
type Category struct {
	ID          uuid.UUID  `json:"id"`
	Name        string     `json:"name"`
	Slug        string     `json:"slug"`
	Description string     `json:"description"`
	IsActive    bool       `json:"isActive"`
	ParentID    *uuid.UUID `json:"parentCategory"`
	Order       int        `json:"order"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// IsRoot reports whether the category has no parent.
func (c *Category) IsRoot() bool {
	return c.ParentID == nil
}

// CategoryInput is the payload accepted by create and update calls.
type CategoryInput struct {
	Name        string     `json:"name" validate:"required,max=200"`
	Description string     `json:"description" validate:"max=2000"`
	IsActive    bool       `json:"isActive"`
	ParentID    *uuid.UUID `json:"parentCategory"`
	Order       int        `json:"order" validate:"gte=0"`
}

// InputFrom builds the persistence payload for an existing category,
// overriding its placement with the given parent and order.
func InputFrom(c Category, parentID *uuid.UUID, order int) CategoryInput {
	return CategoryInput{
		Name:        c.Name,
		Description: c.Description,
		IsActive:    c.IsActive,
		ParentID:    CloneID(parentID),
		Order:       order,
	}
}

// TreeNode is the in-memory nested form of a category. It is rebuilt from
// the flat list on every fetch and never persisted directly.
type TreeNode struct {
	Category
	Children []*TreeNode `json:"children"`
}

// IsLeaf reports whether the node has no children.
func (n *TreeNode) IsLeaf() bool {
	return len(n.Children) == 0
}

// CategoryForm is the editing buffer used while a create or edit dialog is
// open. A nil ID means the form creates a new category.
type CategoryForm struct {
	ID          *uuid.UUID
	Name        string
	Description string
	IsActive    bool
	ParentID    *uuid.UUID
	Order       int
}

// IsNew reports whether saving the form creates a category.
func (f *CategoryForm) IsNew() bool {
	return f.ID == nil
}

// Input converts the buffer into the persistence payload. The name is
// trimmed; other fields are passed through unchanged.
func (f *CategoryForm) Input() CategoryInput {
	return CategoryInput{
		Name:        strings.TrimSpace(f.Name),
		Description: f.Description,
		IsActive:    f.IsActive,
		ParentID:    CloneID(f.ParentID),
		Order:       f.Order,
	}
}

// CloneID returns a copy of a nullable id so callers never share pointers.
func CloneID(id *uuid.UUID) *uuid.UUID {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}

// SameID compares two nullable ids (both nil or same value).
func SameID(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
