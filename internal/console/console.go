// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package console provides the terminal collaborators of the tree editor:
// notifications, a tree outline and a yes/no prompt.
package console

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"backoffice/internal/categorytree"
	"backoffice/internal/models"
)

// Styles used by the console output. Plain() disables all of them.
type Styles struct {
	Success  lipgloss.Style
	Error    lipgloss.Style
	Name     lipgloss.Style
	Muted    lipgloss.Style
	Inactive lipgloss.Style
}

// DefaultStyles returns the coloured palette.
func DefaultStyles() Styles {
	return Styles{
		Success:  lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true),
		Error:    lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true),
		Name:     lipgloss.NewStyle().Bold(true),
		Muted:    lipgloss.NewStyle().Foreground(lipgloss.Color("244")),
		Inactive: lipgloss.NewStyle().Foreground(lipgloss.Color("244")).Strikethrough(true),
	}
}

// PlainStyles returns styles that render text unchanged.
func PlainStyles() Styles {
	s := lipgloss.NewStyle()
	return Styles{Success: s, Error: s, Name: s, Muted: s, Inactive: s}
}

// Notifier writes one line per notification.
type Notifier struct {
	out    io.Writer
	styles Styles
}

// NewNotifier returns a Notifier writing to out.
func NewNotifier(out io.Writer, styles Styles) *Notifier {
	return &Notifier{out: out, styles: styles}
}

func (n *Notifier) Success(msg string) {
	fmt.Fprintln(n.out, n.styles.Success.Render("✓")+" "+msg)
}

func (n *Notifier) Error(msg string) {
	fmt.Fprintln(n.out, n.styles.Error.Render("✗")+" "+msg)
}

// RenderTree writes an indented outline of roots. Each line shows the
// global rank, the name, the id and markers for inactive and pinned nodes.
func RenderTree(w io.Writer, roots []*models.TreeNode, styles Styles) {
	entries := categorytree.Flatten(roots)
	if len(entries) == 0 {
		fmt.Fprintln(w, styles.Muted.Render("(no categories)"))
		return
	}

	for _, e := range entries {
		indent := ""
		if e.Parent != nil {
			indent = "  └─ "
		}

		name := styles.Name.Render(e.Node.Name)
		if !e.Node.IsActive {
			name = styles.Inactive.Render(e.Node.Name)
		}

		var tags []string
		if !e.Node.IsActive {
			tags = append(tags, "inactive")
		}
		if !categorytree.CanDrag(e.Node) {
			tags = append(tags, "pinned")
		}
		suffix := ""
		if len(tags) > 0 {
			suffix = " " + styles.Muted.Render("["+strings.Join(tags, ", ")+"]")
		}

		fmt.Fprintf(w, "%3d %s%s %s%s\n", e.Index, indent, name, styles.Muted.Render(e.Node.ID.String()), suffix)
	}
}

// PromptConfirmer asks on out and reads the answer from in. Only "y" or
// "yes" (any case) confirms.
type PromptConfirmer struct {
	in  *bufio.Reader
	out io.Writer
}

// NewPromptConfirmer returns a confirmer reading from in.
func NewPromptConfirmer(in io.Reader, out io.Writer) *PromptConfirmer {
	return &PromptConfirmer{in: bufio.NewReader(in), out: out}
}

// Confirm implements manager.Confirmer.
func (p *PromptConfirmer) Confirm(node *models.TreeNode) bool {
	msg := fmt.Sprintf("Delete category %q?", node.Name)
	if len(node.Children) > 0 {
		msg = fmt.Sprintf("Delete category %q and detach its %d subcategories?", node.Name, len(node.Children))
	}
	fmt.Fprint(p.out, msg+" [y/N] ")

	line, err := p.in.ReadString('\n')
	if err != nil && line == "" {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	default:
		return false
	}
}
