// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package handlers contains the JSON HTTP handlers of the back-office API.
// Handlers are grouped by concern (categories, auth) and receive their
// dependencies through the handler struct.
package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"backoffice/internal/apierr"
	"backoffice/internal/cache"
	"backoffice/internal/categorytree"
	"backoffice/internal/middleware"
	"backoffice/internal/models"
	"backoffice/internal/response"
	"backoffice/internal/store"
)

// CategoryStore is the persistence used by the category handlers.
// *store.CategoryStore satisfies it.
type CategoryStore interface {
	List(ctx context.Context) ([]models.Category, error)
	Create(ctx context.Context, in models.CategoryInput) (*models.Category, error)
	Update(ctx context.Context, id uuid.UUID, in models.CategoryInput) (*models.Category, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Reorder(ctx context.Context, items []store.ReorderItem) error
}

// ActivityLog records category writes. *store.ActivityStore satisfies it.
type ActivityLog interface {
	Record(ctx context.Context, categoryID uuid.UUID, action, actor string)
	Recent(ctx context.Context, limit int) ([]store.ActivityEntry, error)
}

// Activity page sizes.
const (
	defaultActivityLimit = 50
	maxActivityLimit     = 200
)

// Categories groups the category CRUD handlers.
type Categories struct {
	store    CategoryStore
	cache    *cache.CategoryCache
	activity ActivityLog
}

// NewCategories creates the category handler group.
func NewCategories(s CategoryStore, c *cache.CategoryCache) *Categories {
	return &Categories{store: s, cache: c}
}

// WithActivity enables the activity log for writes and the activity route.
func (h *Categories) WithActivity(log ActivityLog) *Categories {
	h.activity = log
	return h
}

// reorderRequest is the body of PUT /api/categories/order.
type reorderRequest struct {
	Items []store.ReorderItem `json:"items" validate:"required,min=1,dive"`
}

// List answers with the flat category list, sorted by order then name.
func (h *Categories) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.cache.List(r.Context(), h.store.List)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.JSON(w, http.StatusOK, items)
}

// Tree answers with the nested form of the list.
func (h *Categories) Tree(w http.ResponseWriter, r *http.Request) {
	items, err := h.cache.List(r.Context(), h.store.List)
	if err != nil {
		response.Error(w, err)
		return
	}
	roots := categorytree.Build(items)
	if roots == nil {
		roots = []*models.TreeNode{}
	}
	response.JSON(w, http.StatusOK, roots)
}

// Create stores a new category and answers 201 with the stored record.
func (h *Categories) Create(w http.ResponseWriter, r *http.Request) {
	in, err := readInput(w, r)
	if err != nil {
		response.Error(w, err)
		return
	}

	c, err := h.store.Create(r.Context(), in)
	if err != nil {
		response.Error(w, err)
		return
	}
	h.cache.Invalidate(r.Context())
	h.record(r, c.ID, store.ActionCreate)

	slog.Info("category created", "id", c.ID, "name", c.Name, "by", actor(r))
	response.JSON(w, http.StatusCreated, c)
}

// Update replaces the editable fields of the category in the URL.
func (h *Categories) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		response.Error(w, err)
		return
	}
	in, err := readInput(w, r)
	if err != nil {
		response.Error(w, err)
		return
	}

	c, err := h.store.Update(r.Context(), id, in)
	if err != nil {
		response.Error(w, err)
		return
	}
	h.cache.Invalidate(r.Context())
	h.record(r, c.ID, store.ActionUpdate)

	slog.Info("category updated", "id", c.ID, "parent", c.ParentID, "order", c.Order, "by", actor(r))
	response.JSON(w, http.StatusOK, c)
}

// Delete removes the category in the URL. Its children become roots.
func (h *Categories) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		response.Error(w, err)
		return
	}

	if err := h.store.Delete(r.Context(), id); err != nil {
		response.Error(w, err)
		return
	}
	h.cache.Invalidate(r.Context())
	h.record(r, id, store.ActionDelete)

	slog.Info("category deleted", "id", id, "by", actor(r))
	response.JSON(w, http.StatusOK, map[string]string{"message": "Category deleted."})
}

// Reorder applies a batch of placement changes atomically.
func (h *Categories) Reorder(w http.ResponseWriter, r *http.Request) {
	var req reorderRequest
	if err := decodeJSON(w, r, &req); err != nil {
		response.Error(w, err)
		return
	}
	if err := validateStruct(&req); err != nil {
		response.Error(w, err)
		return
	}

	seen := make(map[uuid.UUID]bool, len(req.Items))
	for _, item := range req.Items {
		if seen[item.ID] {
			response.Error(w, apierr.New(apierr.ErrValidation, "Category %s appears more than once.", item.ID))
			return
		}
		seen[item.ID] = true
	}

	if err := h.store.Reorder(r.Context(), req.Items); err != nil {
		response.Error(w, err)
		return
	}
	h.cache.Invalidate(r.Context())
	for _, item := range req.Items {
		h.record(r, item.ID, store.ActionReorder)
	}

	slog.Info("categories reordered", "count", len(req.Items), "by", actor(r))
	response.JSON(w, http.StatusOK, map[string]int{"updated": len(req.Items)})
}

// Activity answers with the latest category writes, newest first.
// ?limit= caps the page (default 50, max 200).
func (h *Categories) Activity(w http.ResponseWriter, r *http.Request) {
	limit := defaultActivityLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			response.Error(w, apierr.New(apierr.ErrValidation, "limit must be a positive integer."))
			return
		}
		limit = min(n, maxActivityLimit)
	}

	if h.activity == nil {
		response.JSON(w, http.StatusOK, []store.ActivityEntry{})
		return
	}
	entries, err := h.activity.Recent(r.Context(), limit)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.JSON(w, http.StatusOK, entries)
}

// record appends to the activity log when one is configured.
func (h *Categories) record(r *http.Request, id uuid.UUID, action string) {
	if h.activity != nil {
		h.activity.Record(r.Context(), id, action, actor(r))
	}
}

// readInput decodes and validates a create/update body. The name is trimmed
// before validation so blank names are rejected.
func readInput(w http.ResponseWriter, r *http.Request) (models.CategoryInput, error) {
	var in models.CategoryInput
	if err := decodeJSON(w, r, &in); err != nil {
		return in, err
	}
	in.Name = strings.TrimSpace(in.Name)
	if err := validateStruct(&in); err != nil {
		return in, err
	}
	return in, nil
}

// pathID parses the {id} URL parameter.
func pathID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		return uuid.Nil, apierr.New(apierr.ErrNotFound, "Category not found.")
	}
	return id, nil
}

// actor names the signed-in user for audit log lines.
func actor(r *http.Request) string {
	if sess := middleware.SessionFromCtx(r.Context()); sess != nil {
		return sess.Email
	}
	return ""
}
