// Package cli implements shopctl, a command-line front end to a persisted
// shopping session. Each invocation opens the session, performs one
// operation against the remote store and exits.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"

	"github.com/spf13/cobra"

	"shopsync/internal/app"
	"shopsync/internal/config"
	"shopsync/internal/model"
	"shopsync/internal/notify"
	"shopsync/internal/session"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Operation completed
	ExitFailure      = 1 // Operation failed; the reason was already printed
	ExitCommandError = 2 // Bad flags, arguments or configuration
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose   bool
	Format    string // "json" | "text"
	StatePath string
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// Opener opens the session a command runs against. The returned closer
// releases its storage.
type Opener func(ctx context.Context, opts *RootOptions, sink notify.Sink, nav notify.Navigator) (*session.Session, io.Closer, error)

// NewRootCommand creates the root command. open is called once per
// command that needs a session.
func NewRootCommand(open Opener) *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "shopctl",
		Short: "shopctl - shopping session from the terminal",
		Long: `Manage a cart, wishlist and orders synchronized with the remote store.

State is kept in a local SQLite file, so a login made with --remember is
seen by later invocations.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return usageError(fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			return nil
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.StatePath, "state-file", "", "state file (default: STATE_PATH or the user config dir)")

	r := &runner{opts: opts, open: open}

	// Add subcommands
	cmd.AddCommand(newLoginCommand(r))
	cmd.AddCommand(newLogoutCommand(r))
	cmd.AddCommand(newStatusCommand(r))
	cmd.AddCommand(newCartCommand(r))
	cmd.AddCommand(newWishlistCommand(r))
	cmd.AddCommand(newOrdersCommand(r))
	cmd.AddCommand(newOrderCommand(r))
	cmd.AddCommand(newProfileCommand(r))

	return cmd
}

// Execute runs the command tree with args and returns the exit code.
// Errors not already shown as a notification are printed to stderr.
func Execute(ctx context.Context, cmd *cobra.Command, args []string) int {
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(ctx)
	if err == nil {
		return ExitSuccess
	}

	var opErr *model.OpError
	if !errors.As(err, &opErr) {
		fmt.Fprintf(cmd.ErrOrStderr(), "error: %v\n", err)
	}
	return exitCode(err)
}

// OpenFromConfig is the production Opener: configuration comes from the
// environment (or CONFIG_FILE) and state from a SQLite file.
func OpenFromConfig(ctx context.Context, opts *RootOptions, sink notify.Sink, nav notify.Navigator) (*session.Session, io.Closer, error) {
	cfg, err := config.Load(ctx)
	if err != nil {
		return nil, nil, usageError(fmt.Errorf("loading config: %w", err))
	}

	switch {
	case opts.StatePath != "":
		cfg.StatePath = opts.StatePath
	case cfg.StatePath == "":
		dir, err := os.UserConfigDir()
		if err != nil {
			return nil, nil, usageError(fmt.Errorf("locating config dir: %w", err))
		}
		cfg.StatePath = filepath.Join(dir, "shopsync", "state.db")
	}
	if err := os.MkdirAll(filepath.Dir(cfg.StatePath), 0o700); err != nil {
		return nil, nil, fmt.Errorf("creating state dir: %w", err)
	}

	level := slog.LevelWarn
	if opts.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	a, err := app.Open(cfg, app.Options{
		Name:      "shopctl",
		Sink:      sink,
		Navigator: nav,
		Logger:    logger,
	})
	if err != nil {
		return nil, nil, err
	}
	return a.Session, a, nil
}

// commandError marks an error as a usage or configuration problem.
type commandError struct{ err error }

func (e *commandError) Error() string { return e.err.Error() }
func (e *commandError) Unwrap() error { return e.err }

func usageError(err error) error { return &commandError{err: err} }

func exitCode(err error) int {
	var cmdErr *commandError
	if errors.As(err, &cmdErr) {
		return ExitCommandError
	}
	return ExitFailure
}
