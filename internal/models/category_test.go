// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import (
	"testing"

	"github.com/google/uuid"
)

func TestCategoryFormInput(t *testing.T) {
	parent := uuid.New()
	f := &CategoryForm{
		Name:        "  Shoes  ",
		Description: "Footwear",
		IsActive:    true,
		ParentID:    &parent,
		Order:       4,
	}

	if !f.IsNew() {
		t.Error("form without ID should be new")
	}

	in := f.Input()
	if in.Name != "Shoes" {
		t.Errorf("name: got %q, want %q", in.Name, "Shoes")
	}
	if in.ParentID == nil || *in.ParentID != parent {
		t.Errorf("parent: got %v, want %s", in.ParentID, parent)
	}
	if in.ParentID == f.ParentID {
		t.Error("input should not share the form's parent pointer")
	}
	if in.Order != 4 || !in.IsActive || in.Description != "Footwear" {
		t.Errorf("unexpected input: %+v", in)
	}
}

func TestSameID(t *testing.T) {
	a := uuid.New()
	b := a
	c := uuid.New()

	tests := []struct {
		name string
		x, y *uuid.UUID
		want bool
	}{
		{"both nil", nil, nil, true},
		{"left nil", nil, &a, false},
		{"right nil", &a, nil, false},
		{"equal values", &a, &b, true},
		{"different values", &a, &c, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SameID(tt.x, tt.y); got != tt.want {
				t.Errorf("SameID = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestInputFrom(t *testing.T) {
	oldParent := uuid.New()
	newParent := uuid.New()
	c := Category{ID: uuid.New(), Name: "Hats", Description: "d", IsActive: false, ParentID: &oldParent, Order: 9}

	in := InputFrom(c, &newParent, 2)
	if in.Name != "Hats" || in.Description != "d" || in.IsActive {
		t.Errorf("fields not copied: %+v", in)
	}
	if in.ParentID == nil || *in.ParentID != newParent {
		t.Errorf("parent: got %v, want %s", in.ParentID, newParent)
	}
	if in.Order != 2 {
		t.Errorf("order: got %d, want 2", in.Order)
	}

	root := InputFrom(c, nil, 0)
	if root.ParentID != nil {
		t.Error("expected nil parent for root placement")
	}
}
