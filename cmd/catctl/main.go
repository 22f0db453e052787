// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Command catctl edits the category tree of the back-office API from the
// terminal. Every subcommand drives the same tree manager a graphical
// editor would: it loads the tree, applies one action and reports through
// notifications.
//
// Usage:
//
//	catctl [-v] <command> [flags] [args]
//
// Commands: login, logout, tree, create, edit, delete, move.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/term"

	"backoffice/internal/apierr"
	"backoffice/internal/client"
	"backoffice/internal/config"
	"backoffice/internal/console"
	"backoffice/internal/manager"
)

const usage = `usage: catctl [-v] <command> [flags] [args]

commands:
  login   [-email E] [-code C]            sign in and store the token
  logout                                  end the session
  tree                                    print the category tree
  create  -name N [-description D] [-parent ID] [-inactive]
  edit    ID [-name N] [-description D] [-parent ID | -root] [-active=BOOL]
  delete  ID [-yes]
  move    ID [-parent ID | -root] [-index N]
`

// errUsage marks command line mistakes; run exits with status 2.
var errUsage = errors.New("usage")

// app carries the collaborators shared by every subcommand.
type app struct {
	in       io.Reader
	out      io.Writer
	errOut   io.Writer
	styles   console.Styles
	notify   *console.Notifier
	session  *client.Session
	api      *client.Client
	log      *slog.Logger
	password func() (string, error)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	os.Exit(run(ctx, os.Args[1:]))
}

// run parses the global flags, builds the app and dispatches to a command.
// It returns the process exit status.
func run(ctx context.Context, args []string) int {
	fs := flag.NewFlagSet("catctl", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	fs.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	verbose := fs.Bool("v", false, "log API traffic at debug level")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return 2
	}

	cfg, err := config.LoadClient()
	if err != nil {
		fmt.Fprintln(os.Stderr, "catctl:", err)
		return 1
	}

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	sess, err := client.LoadSession(cfg.TokenFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, "catctl:", err)
		return 1
	}

	styles := console.DefaultStyles()
	if cfg.NoColor || !term.IsTerminal(int(os.Stdout.Fd())) {
		styles = console.PlainStyles()
	}

	a := &app{
		in:       os.Stdin,
		out:      os.Stdout,
		errOut:   os.Stderr,
		styles:   styles,
		notify:   console.NewNotifier(os.Stdout, styles),
		session:  sess,
		api:      client.New(cfg.APIURL, sess),
		log:      logger,
		password: func() (string, error) {
			if cfg.Password != "" {
				return cfg.Password, nil
			}
			return readPassword()
		},
	}
	return a.dispatch(ctx, fs.Arg(0), fs.Args()[1:])
}

// dispatch runs one command and maps its error to an exit status.
func (a *app) dispatch(ctx context.Context, name string, args []string) int {
	a.session.OnUnauthorized = func() {
		fmt.Fprintln(a.errOut, "Your session has expired. Run `catctl login` to sign in again.")
	}

	commands := map[string]func(context.Context, []string) error{
		"login":  a.login,
		"logout": a.logout,
		"tree":   a.tree,
		"create": a.create,
		"edit":   a.edit,
		"delete": a.remove,
		"move":   a.move,
	}
	cmd, ok := commands[name]
	if !ok {
		fmt.Fprintf(a.errOut, "catctl: unknown command %q\n\n%s", name, usage)
		return 2
	}

	err := cmd(ctx, args)
	var shown *shownError
	switch {
	case err == nil:
		return 0
	case errors.Is(err, errUsage):
		fmt.Fprintf(a.errOut, "catctl %s: %v\n", name, err)
		return 2
	case errors.As(err, &shown):
		a.log.Debug("command failed", "command", name, "error", shown.err)
		return 1
	default:
		a.notify.Error(apierr.Message(err))
		return 1
	}
}

// newManager returns a manager bound to the API client with a fresh tree.
func (a *app) newManager(ctx context.Context) (*manager.Manager, error) {
	m := manager.New(a.api, a.notify, a.log)
	if err := m.Refresh(ctx); err != nil {
		return nil, shown(err)
	}
	return m, nil
}

// shownError wraps an error the manager already reported to the user.
type shownError struct{ err error }

func (e *shownError) Error() string { return e.err.Error() }
func (e *shownError) Unwrap() error { return e.err }

func shown(err error) error {
	if err == nil {
		return nil
	}
	return &shownError{err: err}
}

// readPassword reads a password without echo when stdin is a terminal.
func readPassword() (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", errors.New("stdin is not a terminal; set CATCTL_PASSWORD")
	}
	fmt.Fprint(os.Stderr, "Password: ")
	b, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return string(b), nil
}
