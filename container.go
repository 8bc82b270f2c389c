// Package rustlet is the embedding API: configure a Container, register
// handlers and routes, and start it. It wires together the Registry, the
// session Store and its Housekeeper, the template-page FileSource, the
// Dispatcher, and the HTTP server into the single façade an embedding
// program imports.
package rustlet

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/go-rustlet/rustlet/config"
	"github.com/go-rustlet/rustlet/core/dispatch"
	"github.com/go-rustlet/rustlet/core/handler"
	"github.com/go-rustlet/rustlet/core/registry"
	"github.com/go-rustlet/rustlet/core/server"
	"github.com/go-rustlet/rustlet/core/session"
	"github.com/go-rustlet/rustlet/core/template"
	"github.com/go-rustlet/rustlet/pkg/certprovision"
)

// ErrAlreadyStarted is returned by Start when called more than once on the
// same Container.
var ErrAlreadyStarted = errors.New("rustlet: container already started")

// ErrNotConfigured is returned by Start when no Config was ever set via
// Configure; the zero value is not a valid configuration (an embedder
// should at least see the documented defaults explicitly).
var ErrNotConfigured = errors.New("rustlet: container not configured")

// Container is the embeddable HTTP/1.1 application container façade.
// Registration methods (AddHandler, AddRoute) are safe to call before or
// after Start. Configure and Start are not safe for concurrent use with
// each other; Start runs at most once, and Configure fails once Start has
// run.
type Container struct {
	mu      sync.Mutex
	started bool

	cfg    config.Config
	hasCfg bool

	registry *registry.Registry
	store    *session.Store
	files    template.FileSource
	logger   *slog.Logger

	housekeeperCancel context.CancelFunc
	srv               *server.Server
}

// New constructs an unconfigured, unstarted Container. files is the
// document root the template-page interpreter reads pages from; pass
// &template.LocalFileSource{Root: cfg.DocumentRoot} for local disk, or an
// *template.S3FileSource for an object-storage-backed document root.
func New(files template.FileSource, opts ...Option) *Container {
	c := &Container{
		registry: registry.New(),
		store:    session.New(),
		files:    files,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Option configures a Container at construction time.
type Option func(*Container)

// WithLogger overrides the Container's logger. The default is
// slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *Container) { c.logger = logger }
}

// Configure records cfg. It does not construct or start the underlying
// server: Start builds the server from the recorded configuration, so a
// configuration the server rejects (for example unreadable TLS files) is
// reported by Start, not by Configure. Calling Configure more than once
// simply replaces the prior configuration, as long as Start has not run yet.
func (c *Container) Configure(cfg config.Config) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.started {
		return ErrAlreadyStarted
	}

	c.cfg = cfg
	c.hasCfg = true
	return nil
}

// AddHandler inserts or overwrites the handler registered under name. Safe
// to call before or after Start.
func (c *Container) AddHandler(name string, fn handler.Func) error {
	return c.registry.AddHandler(name, fn)
}

// AddRoute maps path to handler name. name need not be registered yet;
// resolution happens at dispatch time. Safe to call before or after Start.
func (c *Container) AddRoute(path, name string) error {
	return c.registry.AddRoute(path, name)
}

// Start installs the Dispatcher as the HTTP upcall, starts the session
// Housekeeper, and starts the underlying server. It blocks until ctx is
// cancelled or the server exits with an error. Start may be called at most
// once per Container.
func (c *Container) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.started {
		c.mu.Unlock()
		return ErrAlreadyStarted
	}
	if !c.hasCfg {
		c.mu.Unlock()
		return ErrNotConfigured
	}
	c.started = true

	hkCtx, cancel := context.WithCancel(ctx)
	c.housekeeperCancel = cancel

	srvCfg := c.cfg.Server
	if c.cfg.ACME.Domain != "" {
		if err := provisionTLS(ctx, c.cfg.ACME, &srvCfg); err != nil {
			c.mu.Unlock()
			cancel()
			return fmt.Errorf("rustlet: provision TLS certificate: %w", err)
		}
	}

	srv, err := server.NewFromConfig(srvCfg, server.WithLogger(c.logger))
	if err != nil {
		c.mu.Unlock()
		cancel()
		return err
	}
	c.srv = srv

	d := dispatch.New(c.registry, c.store, c.files,
		dispatch.WithLogger(c.logger),
		dispatch.WithTemplateExtension(c.cfg.TemplateExtension),
	)
	c.mu.Unlock()

	hk := session.NewHousekeeper(c.store, c.cfg.Session, c.logger)
	go hk.Run(hkCtx)

	err = srv.Start(ctx, d)
	cancel()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// provisionTLS obtains a certificate for cfg.Domain via ACME HTTP-01 and
// points srvCfg at the resulting files, so the HTTP layer picks it up the
// same way it would a statically configured certificate/key pair.
func provisionTLS(ctx context.Context, cfg config.ACMEConfig, srvCfg *server.Config) error {
	provisioner, err := certprovision.New(cfg.Domain, cfg.Email, cfg.OutputDir)
	if err != nil {
		return err
	}

	result, err := provisioner.Provision(ctx)
	if err != nil {
		return err
	}

	srvCfg.TLSCertFile = result.CertificatePath
	srvCfg.TLSKeyFile = result.PrivateKeyPath
	return nil
}

// Stop gracefully shuts down the server and stops the session Housekeeper.
// It is a no-op if Start was never called.
func (c *Container) Stop() error {
	c.mu.Lock()
	cancel := c.housekeeperCancel
	srv := c.srv
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if srv == nil {
		return nil
	}
	return srv.Stop()
}
