// Package app builds a session from loaded configuration. Both the daemon
// and the CLI open their state through it.
package app

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"shopsync/internal/config"
	"shopsync/internal/notify"
	"shopsync/internal/remote"
	"shopsync/internal/session"
	"shopsync/internal/storage"
	"shopsync/internal/transport"
)

// Version is reported to the store in the Session-Agent header.
const Version = "1.0.0"

// Options carries the host-specific pieces of a session.
type Options struct {
	// Name identifies the host binary in the Session-Agent header.
	Name string

	Sink      notify.Sink
	Navigator notify.Navigator

	// Registerer receives the remote call metrics. Nil disables them.
	Registerer prometheus.Registerer

	Logger *slog.Logger
}

// App is an opened session and the storage behind it.
type App struct {
	Session *session.Session

	closers []func() error
}

// Open creates the storage, HTTP client and session described by cfg.
// The persistent scope is the SQLite file at cfg.StatePath, or memory when
// unset; the ephemeral scope is always memory.
func Open(cfg *config.Config, opts Options) (*App, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	a := &App{}

	var persistent storage.KV = storage.NewMemory()
	if cfg.StatePath != "" {
		db, err := storage.OpenSQLite(cfg.StatePath)
		if err != nil {
			return nil, fmt.Errorf("opening state: %w", err)
		}
		a.closers = append(a.closers, db.Close)
		persistent = db
	}

	timeout := cfg.Store.RequestTimeout()
	rt := transport.New(transport.Options{
		Timeout:     timeout,
		Fingerprint: cfg.Store.TLSFingerprint,
	})
	// The remote client sets its own User-Agent; catalog requests inherit this one.
	httpClient := &http.Client{
		Timeout:   timeout,
		Transport: transport.WithHeader(rt, "User-Agent", userAgent(opts.Name)),
	}

	var metrics *remote.Metrics
	if opts.Registerer != nil {
		metrics = remote.NewMetrics(opts.Registerer)
	}

	sess, err := session.New(session.Options{
		Persistent: persistent,
		Ephemeral:  storage.NewMemory(),
		BaseURL:    cfg.Store.APIBaseURL,
		HTTPClient: httpClient,
		Agent: remote.Agent{
			Name:    opts.Name,
			Version: Version,
			Session: uuid.NewString(),
		},
		MinAPIVersion: cfg.Store.MinAPIVersion,
		Metrics:       metrics,
		CatalogURL:    cfg.Store.CatalogURL,
		Currency:      cfg.Store.Currency,
		DeliveryFee:   cfg.Store.DeliveryFee,
		Sink:          opts.Sink,
		Navigator:     opts.Navigator,
		Logger:        logger,
	})
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("creating session: %w", err)
	}
	a.Session = sess

	logger.Debug("session opened",
		slog.String("api_base_url", cfg.Store.APIBaseURL),
		slog.Bool("persistent_state", cfg.StatePath != ""),
		slog.Bool("tls_fingerprint", cfg.Store.TLSFingerprint),
	)
	return a, nil
}

func userAgent(name string) string {
	if name == "" {
		name = "shopsync"
	}
	return name + "/" + Version
}

// Close releases the storage behind the session.
func (a *App) Close() error {
	var first error
	for _, c := range a.closers {
		if err := c(); err != nil && first == nil {
			first = err
		}
	}
	a.closers = nil
	return first
}
