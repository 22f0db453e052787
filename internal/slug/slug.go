// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package slug provides URL-friendly slug generation for category names.
package slug

import (
	"strconv"
	"strings"

	gslug "github.com/gosimple/slug"
)

// MaxLength bounds a generated slug, leaving room for a numeric suffix
// within the 220-character column.
const MaxLength = 200

// Fallback is used when a name has no sluggable characters at all.
const Fallback = "category"

// Generate creates a URL-friendly slug from the given string.
// Accented letters are transliterated: "Crème Brûlée" becomes "creme-brulee".
func Generate(s string) string {
	result := gslug.Make(s)
	if len(result) > MaxLength {
		result = strings.TrimRight(result[:MaxLength], "-_")
	}
	if result == "" {
		return Fallback
	}
	return result
}

// WithSuffix returns base with a numeric suffix used to resolve a
// collision. n < 2 returns base unchanged.
func WithSuffix(base string, n int) string {
	if n < 2 {
		return base
	}
	return base + "-" + strconv.Itoa(n)
}
