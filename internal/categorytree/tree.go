// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package categorytree converts between the flat category list stored by the
// API and the nested tree shown by the editor. All functions are pure: they
// never mutate their input and always return fresh nodes.
package categorytree

import (
	"errors"

	"github.com/google/uuid"

	"backoffice/internal/models"
)

var (
	// ErrNotDraggable is returned when a node with children is picked up.
	ErrNotDraggable = errors.New("category with subcategories cannot be moved")
	// ErrUnknownNode is returned when a move references a missing category.
	ErrUnknownNode = errors.New("category not found in tree")
	// ErrTooDeep is returned when a drop would nest below the second level.
	ErrTooDeep = errors.New("categories can only be nested one level deep")
)

// Entry is one step of the pre-order walk. Index is the node's position in
// the single traversal of the whole tree, not within its sibling group.
type Entry struct {
	Node   *models.TreeNode
	Parent *models.TreeNode
	Index  int
}

// ParentID returns the id of the entry's parent, or nil for roots.
func (e Entry) ParentID() *uuid.UUID {
	if e.Parent == nil {
		return nil
	}
	id := e.Parent.ID
	return &id
}

// Build nests a flat list. Nodes keep the order in which they appear in
// flat, both at the root and inside each children slice. A node whose parent
// is not present in flat is neither a root nor attached anywhere, so it is
// dropped from the result.
func Build(flat []models.Category) []*models.TreeNode {
	nodes := make([]*models.TreeNode, len(flat))
	byID := make(map[uuid.UUID]*models.TreeNode, len(flat))
	for i, c := range flat {
		c.ParentID = models.CloneID(c.ParentID)
		n := &models.TreeNode{Category: c, Children: []*models.TreeNode{}}
		nodes[i] = n
		byID[c.ID] = n
	}

	roots := []*models.TreeNode{}
	for _, n := range nodes {
		if n.ParentID == nil {
			roots = append(roots, n)
			continue
		}
		parent, ok := byID[*n.ParentID]
		if !ok || parent == n {
			continue
		}
		parent.Children = append(parent.Children, n)
	}
	return roots
}

// Flatten walks the tree depth-first, visiting each node before its children.
func Flatten(roots []*models.TreeNode) []Entry {
	var out []Entry
	var walk func(nodes []*models.TreeNode, parent *models.TreeNode)
	walk = func(nodes []*models.TreeNode, parent *models.TreeNode) {
		for _, n := range nodes {
			out = append(out, Entry{Node: n, Parent: parent, Index: len(out)})
			walk(n.Children, n)
		}
	}
	walk(roots, nil)
	return out
}

// Records returns the flat form of a tree with placement rewritten from the
// tree's shape: ParentID is the enclosing node and Order the global
// pre-order rank.
func Records(roots []*models.TreeNode) []models.Category {
	entries := Flatten(roots)
	out := make([]models.Category, 0, len(entries))
	for _, e := range entries {
		c := e.Node.Category
		c.ParentID = e.ParentID()
		c.Order = e.Index
		out = append(out, c)
	}
	return out
}

// Count returns the number of nodes in the tree, roots included.
func Count(roots []*models.TreeNode) int {
	n := 0
	for _, r := range roots {
		n += 1 + Count(r.Children)
	}
	return n
}

// CanDrag reports whether a node may be picked up by a drag gesture.
// Nodes with children are pinned, which keeps the tree two levels deep.
func CanDrag(n *models.TreeNode) bool {
	return n != nil && len(n.Children) == 0
}

// Find returns the node with the given id, or nil.
func Find(roots []*models.TreeNode, id uuid.UUID) *models.TreeNode {
	for _, e := range Flatten(roots) {
		if e.Node.ID == id {
			return e.Node
		}
	}
	return nil
}

// Clone returns a deep copy of the tree.
func Clone(roots []*models.TreeNode) []*models.TreeNode {
	out := make([]*models.TreeNode, 0, len(roots))
	for _, r := range roots {
		c := r.Category
		c.ParentID = models.CloneID(c.ParentID)
		out = append(out, &models.TreeNode{Category: c, Children: Clone(r.Children)})
	}
	return out
}

// MoveNode returns a copy of the tree in which the node id has been dropped
// at position index among the children of newParent (nil for the root
// level). Index is clamped into the destination range. The result is what a
// drop gesture reports to the manager; the node's stored ParentID and Order
// are left untouched because reconciliation derives them from the shape.
func MoveNode(roots []*models.TreeNode, id uuid.UUID, newParent *uuid.UUID, index int) ([]*models.TreeNode, error) {
	tree := Clone(roots)

	var src Entry
	found := false
	for _, e := range Flatten(tree) {
		if e.Node.ID == id {
			src, found = e, true
			break
		}
	}
	if !found {
		return nil, ErrUnknownNode
	}
	if !CanDrag(src.Node) {
		return nil, ErrNotDraggable
	}

	var target *models.TreeNode
	if newParent != nil {
		if *newParent == id {
			return nil, ErrTooDeep
		}
		for _, r := range tree {
			if r.ID == *newParent {
				target = r
				break
			}
		}
		if target == nil {
			if Find(tree, *newParent) != nil {
				return nil, ErrTooDeep
			}
			return nil, ErrUnknownNode
		}
	}

	if src.Parent == nil {
		tree = remove(tree, src.Node)
	} else {
		src.Parent.Children = remove(src.Parent.Children, src.Node)
	}

	if target == nil {
		return insert(tree, src.Node, index), nil
	}
	target.Children = insert(target.Children, src.Node, index)
	return tree, nil
}

func remove(nodes []*models.TreeNode, n *models.TreeNode) []*models.TreeNode {
	out := make([]*models.TreeNode, 0, len(nodes))
	for _, c := range nodes {
		if c != n {
			out = append(out, c)
		}
	}
	return out
}

func insert(nodes []*models.TreeNode, n *models.TreeNode, index int) []*models.TreeNode {
	index = max(0, min(index, len(nodes)))
	out := make([]*models.TreeNode, 0, len(nodes)+1)
	out = append(out, nodes[:index]...)
	out = append(out, n)
	return append(out, nodes[index:]...)
}
