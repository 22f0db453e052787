// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/google/uuid"

	"backoffice/internal/categorytree"
	"backoffice/internal/console"
	"backoffice/internal/manager"
	"backoffice/internal/models"
)

// newFlags returns a flag set that reports errors instead of exiting.
func (a *app) newFlags(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(a.errOut)
	return fs
}

// parse parses args and wraps flag errors as usage errors. Flags may come
// before or after the leading positional argument.
func parse(fs *flag.FlagSet, args []string) ([]string, error) {
	var positional []string
	for {
		if err := fs.Parse(args); err != nil {
			return nil, fmt.Errorf("%w: %v", errUsage, err)
		}
		if fs.NArg() == 0 {
			return positional, nil
		}
		positional = append(positional, fs.Arg(0))
		args = fs.Args()[1:]
	}
}

func (a *app) login(ctx context.Context, args []string) error {
	fs := a.newFlags("login")
	email := fs.String("email", "", "account email")
	code := fs.String("code", "", "two-factor code, when enabled")
	if _, err := parse(fs, args); err != nil {
		return err
	}

	if *email == "" {
		fmt.Fprint(a.errOut, "Email: ")
		line, err := bufio.NewReader(a.in).ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("read email: %w", err)
		}
		*email = strings.TrimSpace(line)
	}
	if *email == "" {
		return fmt.Errorf("%w: email is required", errUsage)
	}

	password, err := a.password()
	if err != nil {
		return err
	}

	res, err := a.api.Login(ctx, *email, password, *code)
	if err != nil {
		return err
	}
	a.log.Debug("signed in", "email", res.User.Email)
	a.notify.Success(fmt.Sprintf("Signed in as %s.", res.User.Email))
	return nil
}

func (a *app) logout(ctx context.Context, args []string) error {
	if _, err := parse(a.newFlags("logout"), args); err != nil {
		return err
	}
	if !a.session.SignedIn() {
		a.notify.Success("Already signed out.")
		return nil
	}
	if err := a.api.Logout(ctx); err != nil {
		return err
	}
	a.notify.Success("Signed out.")
	return nil
}

func (a *app) tree(ctx context.Context, args []string) error {
	if _, err := parse(a.newFlags("tree"), args); err != nil {
		return err
	}
	if err := a.requireSession(); err != nil {
		return err
	}
	m, err := a.newManager(ctx)
	if err != nil {
		return err
	}
	console.RenderTree(a.out, m.Tree(), a.styles)
	return nil
}

func (a *app) create(ctx context.Context, args []string) error {
	fs := a.newFlags("create")
	name := fs.String("name", "", "category name")
	description := fs.String("description", "", "category description")
	parent := fs.String("parent", "", "parent category id; empty for a root")
	inactive := fs.Bool("inactive", false, "create the category hidden")
	if _, err := parse(fs, args); err != nil {
		return err
	}
	parentID, err := optionalID(*parent)
	if err != nil {
		return err
	}
	if err := a.requireSession(); err != nil {
		return err
	}

	m, err := a.newManager(ctx)
	if err != nil {
		return err
	}
	form := m.OpenCreate()
	form.Name = *name
	form.Description = *description
	form.IsActive = !*inactive
	form.ParentID = parentID
	return shown(m.Save(ctx))
}

func (a *app) edit(ctx context.Context, args []string) error {
	fs := a.newFlags("edit")
	name := fs.String("name", "", "new name")
	description := fs.String("description", "", "new description")
	parent := fs.String("parent", "", "new parent category id")
	root := fs.Bool("root", false, "detach the category to the root level")
	active := fs.Bool("active", true, "whether the category is visible")
	pos, err := parse(fs, args)
	if err != nil {
		return err
	}
	id, err := singleID(pos)
	if err != nil {
		return err
	}
	set := visited(fs)
	if set["parent"] && *root {
		return fmt.Errorf("%w: -parent and -root are mutually exclusive", errUsage)
	}
	if err := a.requireSession(); err != nil {
		return err
	}

	m, err := a.newManager(ctx)
	if err != nil {
		return err
	}
	node, err := a.findNode(m, id)
	if err != nil {
		return err
	}

	form := m.OpenEdit(node)
	if set["name"] {
		form.Name = *name
	}
	if set["description"] {
		form.Description = *description
	}
	if set["active"] {
		form.IsActive = *active
	}
	if set["parent"] {
		if form.ParentID, err = optionalID(*parent); err != nil {
			m.Cancel()
			return err
		}
	}
	if *root {
		form.ParentID = nil
	}
	return shown(m.Save(ctx))
}

func (a *app) remove(ctx context.Context, args []string) error {
	fs := a.newFlags("delete")
	yes := fs.Bool("yes", false, "skip the confirmation prompt")
	pos, err := parse(fs, args)
	if err != nil {
		return err
	}
	id, err := singleID(pos)
	if err != nil {
		return err
	}
	if err := a.requireSession(); err != nil {
		return err
	}

	m, err := a.newManager(ctx)
	if err != nil {
		return err
	}
	node, err := a.findNode(m, id)
	if err != nil {
		return err
	}

	var confirm manager.Confirmer = console.NewPromptConfirmer(a.in, a.out)
	if *yes {
		confirm = manager.ConfirmFunc(func(*models.TreeNode) bool { return true })
	}

	err = m.Delete(ctx, node, confirm)
	if errors.Is(err, manager.ErrDeleteDeclined) {
		fmt.Fprintln(a.out, "Nothing deleted.")
		return nil
	}
	return shown(err)
}

func (a *app) move(ctx context.Context, args []string) error {
	fs := a.newFlags("move")
	parent := fs.String("parent", "", "drop under this root category")
	root := fs.Bool("root", false, "drop at the root level")
	index := fs.Int("index", -1, "position among the new siblings; -1 appends")
	pos, err := parse(fs, args)
	if err != nil {
		return err
	}
	id, err := singleID(pos)
	if err != nil {
		return err
	}
	if (*parent == "") == !*root {
		return fmt.Errorf("%w: pass exactly one of -parent or -root", errUsage)
	}
	parentID, err := optionalID(*parent)
	if err != nil {
		return err
	}
	at := *index
	if at < 0 {
		at = math.MaxInt
	}
	if err := a.requireSession(); err != nil {
		return err
	}

	m, err := a.newManager(ctx)
	if err != nil {
		return err
	}
	node, err := a.findNode(m, id)
	if err != nil {
		return err
	}
	if !m.CanDrag(node) {
		return fmt.Errorf("%q has subcategories and cannot be moved", node.Name)
	}

	roots, err := categorytree.MoveNode(m.Tree(), id, parentID, at)
	if err != nil {
		return err
	}

	err = m.Move(ctx, roots)
	var partial *manager.PartialMoveError
	if errors.As(err, &partial) {
		fmt.Fprintf(a.errOut, "%d of %d categories were saved before the failure. Run `catctl tree` to check the stored order.\n",
			partial.Done, partial.Total)
	}
	return shown(err)
}

// requireSession fails early when no token is stored.
func (a *app) requireSession() error {
	if !a.session.SignedIn() {
		return errors.New("not signed in; run `catctl login` first")
	}
	return nil
}

// findNode looks id up in the manager's freshly loaded tree.
func (a *app) findNode(m *manager.Manager, id uuid.UUID) (*models.TreeNode, error) {
	node := m.Find(id)
	if node == nil {
		return nil, fmt.Errorf("category %s not found", id)
	}
	return node, nil
}

// singleID expects exactly one positional category id.
func singleID(pos []string) (uuid.UUID, error) {
	if len(pos) != 1 {
		return uuid.Nil, fmt.Errorf("%w: expected one category id", errUsage)
	}
	id, err := uuid.Parse(pos[0])
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: invalid category id %q", errUsage, pos[0])
	}
	return id, nil
}

// optionalID parses s, treating "" as no id.
func optionalID(s string) (*uuid.UUID, error) {
	if s == "" {
		return nil, nil
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid category id %q", errUsage, s)
	}
	return &id, nil
}

// visited returns the names of the flags set on the command line.
func visited(fs *flag.FlagSet) map[string]bool {
	set := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })
	return set
}
