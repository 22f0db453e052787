// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package manager implements the category tree editor: it owns the nested
// tree built from the last fetch and the buffer of the open create/edit
// form, and turns user actions into calls on a Repository.
//
// A Manager belongs to a single editing session and is not safe for
// concurrent use. Every call that reaches the Repository takes a context and
// blocks until the call returns; nothing is retried.
package manager

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"backoffice/internal/apierr"
	"backoffice/internal/categorytree"
	"backoffice/internal/models"
)

// Repository is the persistence collaborator. client.Client implements it.
type Repository interface {
	List(ctx context.Context) ([]models.Category, error)
	Create(ctx context.Context, in models.CategoryInput) (*models.Category, error)
	Update(ctx context.Context, id uuid.UUID, in models.CategoryInput) (*models.Category, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// Notifier shows transient feedback to the user.
type Notifier interface {
	Success(msg string)
	Error(msg string)
}

// Confirmer asks the user to confirm a destructive action.
type Confirmer interface {
	Confirm(node *models.TreeNode) bool
}

// ConfirmFunc adapts a function to the Confirmer interface.
type ConfirmFunc func(node *models.TreeNode) bool

func (f ConfirmFunc) Confirm(node *models.TreeNode) bool { return f(node) }

// ErrNoForm is returned by Save when no form is open.
var ErrNoForm = errors.New("no category form is open")

// ErrDeleteDeclined is returned by Delete when the user does not confirm.
var ErrDeleteDeclined = errors.New("delete not confirmed")

// PartialMoveError reports a reconciliation batch that stopped early.
// Updates before the failing one were persisted and are not rolled back.
type PartialMoveError struct {
	Done  int
	Total int
	Node  models.Category
	Err   error
}

func (e *PartialMoveError) Error() string {
	return fmt.Sprintf("reorder stopped at %q after %d of %d updates: %v", e.Node.Name, e.Done, e.Total, e.Err)
}

func (e *PartialMoveError) Unwrap() error { return e.Err }

// Manager is the category tree editor.
type Manager struct {
	repo   Repository
	notify Notifier
	log    *slog.Logger

	tree []*models.TreeNode
	form *models.CategoryForm
}

// New creates a Manager with an empty tree. Call Refresh to load it.
func New(repo Repository, notify Notifier, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		repo:   repo,
		notify: notify,
		log:    logger,
		tree:   []*models.TreeNode{},
	}
}

// Tree returns the current roots. Callers must not mutate the nodes.
func (m *Manager) Tree() []*models.TreeNode {
	return m.tree
}

// Find returns the node with the given id in the current tree, or nil.
func (m *Manager) Find(id uuid.UUID) *models.TreeNode {
	return categorytree.Find(m.tree, id)
}

// CanDrag reports whether the UI should offer node as a drag source.
func (m *Manager) CanDrag(node *models.TreeNode) bool {
	return categorytree.CanDrag(node)
}

// Refresh fetches the flat list and replaces the tree wholesale. The latest
// fetch always wins; no attempt is made to merge with local state.
func (m *Manager) Refresh(ctx context.Context) error {
	flat, err := m.repo.List(ctx)
	if err != nil {
		m.fail("load categories", err)
		return fmt.Errorf("list categories: %w", err)
	}
	m.tree = categorytree.Build(flat)
	m.log.Debug("category tree loaded", "records", len(flat), "roots", len(m.tree))
	return nil
}

// OpenCreate opens an empty form. Order defaults to the number of nodes
// already in the tree so the new category lands last.
func (m *Manager) OpenCreate() *models.CategoryForm {
	m.form = &models.CategoryForm{
		IsActive: true,
		Order:    categorytree.Count(m.tree),
	}
	return m.form
}

// OpenEdit opens a form prefilled with node's current values.
func (m *Manager) OpenEdit(node *models.TreeNode) *models.CategoryForm {
	id := node.ID
	m.form = &models.CategoryForm{
		ID:          &id,
		Name:        node.Name,
		Description: node.Description,
		IsActive:    node.IsActive,
		ParentID:    models.CloneID(node.ParentID),
		Order:       node.Order,
	}
	return m.form
}

// Form returns the open form, or nil.
func (m *Manager) Form() *models.CategoryForm {
	return m.form
}

// Cancel discards the open form.
func (m *Manager) Cancel() {
	m.form = nil
}

// Save validates and persists the open form. A blank name is rejected
// before any call is made. On failure the form stays open so the user can
// correct it; on success it is closed, the success is announced and the tree
// reloaded. A failed reload is reported on its own and returned, but the
// write has already landed.
func (m *Manager) Save(ctx context.Context) error {
	if m.form == nil {
		return ErrNoForm
	}

	if strings.TrimSpace(m.form.Name) == "" {
		err := apierr.New(apierr.ErrValidation, "Category name is required.")
		m.notify.Error(apierr.Message(err))
		return err
	}

	in := m.form.Input()
	var err error
	if m.form.IsNew() {
		_, err = m.repo.Create(ctx, in)
	} else {
		_, err = m.repo.Update(ctx, *m.form.ID, in)
	}
	if err != nil {
		m.fail("save category", err)
		return fmt.Errorf("save category: %w", err)
	}

	if m.form.IsNew() {
		m.notify.Success(fmt.Sprintf("Category %q created.", in.Name))
	} else {
		m.notify.Success(fmt.Sprintf("Category %q updated.", in.Name))
	}
	m.form = nil
	return m.Refresh(ctx)
}

// Delete removes a single category after confirmation. Children are not
// touched; what happens to their parent reference is up to the server.
func (m *Manager) Delete(ctx context.Context, node *models.TreeNode, confirm Confirmer) error {
	if confirm == nil || !confirm.Confirm(node) {
		return ErrDeleteDeclined
	}

	if err := m.repo.Delete(ctx, node.ID); err != nil {
		m.fail("delete category", err)
		return fmt.Errorf("delete category %s: %w", node.ID, err)
	}

	m.notify.Success(fmt.Sprintf("Category %q deleted.", node.Name))
	return m.Refresh(ctx)
}

// Move reconciles a drop. roots is the complete tree as the UI shows it
// after the drop; it becomes the manager's tree immediately. Every node is
// then written back in pre-order with its new parent and its global
// pre-order rank as order, one call at a time. The first failure stops the
// batch and is returned as a *PartialMoveError.
func (m *Manager) Move(ctx context.Context, roots []*models.TreeNode) error {
	m.tree = categorytree.Clone(roots)

	entries := categorytree.Flatten(m.tree)
	for i, e := range entries {
		in := models.InputFrom(e.Node.Category, e.ParentID(), e.Index)
		if _, err := m.repo.Update(ctx, e.Node.ID, in); err != nil {
			perr := &PartialMoveError{Done: i, Total: len(entries), Node: e.Node.Category, Err: err}
			m.log.Warn("category reorder incomplete",
				"done", i,
				"total", len(entries),
				"category_id", e.Node.ID,
				"error", err,
			)
			m.fail("reorder categories", err)
			return perr
		}
		e.Node.ParentID = in.ParentID
		e.Node.Order = in.Order
	}

	m.log.Info("category tree reordered", "updates", len(entries))
	m.notify.Success("Category order saved.")
	return nil
}

// fail logs err and surfaces its message to the user.
func (m *Manager) fail(action string, err error) {
	m.log.Error(action+" failed", "error", err)
	m.notify.Error(apierr.Message(err))
}
