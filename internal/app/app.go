// Package app wires all ventavoz subsystems into a running application.
//
// The App struct owns the full lifecycle: New creates and connects all
// subsystems, Run serves HTTP until the context is cancelled, and Shutdown
// tears everything down in order.
//
// For testing, inject mock implementations via functional options
// (WithCatalogSource, WithCommandLog). When an option is not provided, New
// creates real implementations from the config.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/dquispe/ventavoz/internal/catalog"
	"github.com/dquispe/ventavoz/internal/catalog/postgres"
	"github.com/dquispe/ventavoz/internal/config"
	"github.com/dquispe/ventavoz/internal/server"
	"github.com/dquispe/ventavoz/internal/voice/brand"
	"github.com/dquispe/ventavoz/internal/voice/llmitems"
	"github.com/dquispe/ventavoz/internal/voice/match"
	"github.com/dquispe/ventavoz/internal/voice/resolver"
	"github.com/dquispe/ventavoz/pkg/provider/llm"
	"github.com/dquispe/ventavoz/pkg/provider/stt"
)

// shutdownGrace is how long Run waits for in-flight requests after the
// context is cancelled.
const shutdownGrace = 10 * time.Second

// Providers holds one interface value per provider slot. Nil means the
// provider is not configured and the corresponding endpoint is disabled.
// Populated by main.go from the config.
type Providers struct {
	LLM llm.Provider
	STT stt.Provider
}

// App owns all subsystem lifetimes and serves the voice-command API.
type App struct {
	cfg       *config.Config
	providers *Providers

	// Subsystems — initialised in New, torn down in Shutdown.
	source     catalog.Source
	commandLog catalog.CommandLog
	resolver   *resolver.Resolver
	httpSrv    *http.Server

	// closers are called in order during Shutdown.
	closers []func() error

	// stopOnce guards the Shutdown path.
	stopOnce sync.Once
}

// Option is a functional option for New. Use these to inject test doubles.
type Option func(*App)

// WithCatalogSource injects a catalog source instead of connecting to
// PostgreSQL from config.
func WithCatalogSource(s catalog.Source) Option {
	return func(a *App) { a.source = s }
}

// WithCommandLog injects a command audit log instead of using the PostgreSQL
// store.
func WithCommandLog(l catalog.CommandLog) Option {
	return func(a *App) { a.commandLog = l }
}

// New creates an App by wiring all subsystems together. The providers struct
// comes from main.go. Use Option functions to inject test doubles for the
// storage layer.
func New(ctx context.Context, cfg *config.Config, providers *Providers, opts ...Option) (*App, error) {
	if providers == nil {
		providers = &Providers{}
	}
	a := &App{
		cfg:       cfg,
		providers: providers,
	}
	for _, o := range opts {
		o(a)
	}

	if err := a.initCatalog(ctx); err != nil {
		return nil, fmt.Errorf("app: init catalog: %w", err)
	}
	if err := a.initResolver(); err != nil {
		return nil, fmt.Errorf("app: init resolver: %w", err)
	}
	if err := a.initServer(); err != nil {
		return nil, fmt.Errorf("app: init server: %w", err)
	}

	return a, nil
}

// initCatalog connects the PostgreSQL store unless test doubles were injected.
func (a *App) initCatalog(ctx context.Context) error {
	if a.source != nil {
		return nil
	}

	dsn := a.cfg.Catalog.PostgresDSN
	if dsn == "" {
		return fmt.Errorf("catalog.postgres_dsn is required when no catalog source is injected")
	}

	store, err := postgres.NewStore(ctx, dsn)
	if err != nil {
		return err
	}
	a.source = store
	if a.commandLog == nil {
		a.commandLog = store
	}
	a.closers = append(a.closers, func() error {
		store.Close()
		return nil
	})
	return nil
}

// initResolver assembles the resolution pipeline from config and providers.
func (a *App) initResolver() error {
	opts := []resolver.Option{
		resolver.WithMatcher(match.New(matcherOptions(a.cfg.Matcher)...)),
	}

	if path := a.cfg.Brand.RulesFile; path != "" {
		corrector, err := brand.Load(path)
		if err != nil {
			return fmt.Errorf("load brand rules %q: %w", path, err)
		}
		opts = append(opts, resolver.WithCorrector(corrector))
		slog.Info("loaded brand correction rules", "path", path)
	}

	if a.providers.LLM != nil {
		extractor, err := llmitems.New(a.providers.LLM)
		if err != nil {
			return fmt.Errorf("create item extractor: %w", err)
		}
		opts = append(opts, resolver.WithExtractor(extractor))
	}

	if a.commandLog != nil {
		opts = append(opts, resolver.WithCommandLog(a.commandLog))
	}

	r, err := resolver.New(a.source, opts...)
	if err != nil {
		return err
	}
	a.resolver = r
	return nil
}

// initServer builds the HTTP handler tree and the http.Server.
func (a *App) initServer() error {
	srvOpts := []server.Option{
		server.WithChecker(server.Checker{
			Name:  "database",
			Check: a.pingSource,
		}),
	}
	if a.providers.STT != nil {
		srvOpts = append(srvOpts, server.WithSTT(a.providers.STT))
	}

	srv, err := server.New(a.resolver, srvOpts...)
	if err != nil {
		return err
	}

	addr := a.cfg.Server.ListenAddr
	if addr == "" {
		addr = ":8090"
	}
	a.httpSrv = &http.Server{
		Addr:              addr,
		Handler:           srv.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return nil
}

// pingSource is the database readiness check: a cheap catalog fetch for a
// store that never exists.
func (a *App) pingSource(ctx context.Context) error {
	_, err := a.source.ActiveProducts(ctx, 0)
	return err
}

// Run serves HTTP until ctx is cancelled, then drains in-flight requests.
// TLS is used when configured; otherwise plain HTTP.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		var err error
		if tls := a.cfg.Server.TLS; tls != nil {
			err = a.httpSrv.ListenAndServeTLS(tls.CertFile, tls.KeyFile)
		} else {
			err = a.httpSrv.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	slog.Info("serving",
		"addr", a.httpSrv.Addr,
		"tls", a.cfg.Server.TLS != nil,
		"llm", a.providers.LLM != nil,
		"stt", a.providers.STT != nil,
	)

	select {
	case err := <-errCh:
		return fmt.Errorf("app: serve: %w", err)
	case <-ctx.Done():
	}

	drainCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := a.httpSrv.Shutdown(drainCtx); err != nil {
		slog.Warn("http drain incomplete", "err", err)
	}
	return ctx.Err()
}

// Shutdown tears down all subsystems in init order. It respects the context
// deadline: if ctx expires before all closers finish, remaining closers are
// skipped and the context error is returned.
func (a *App) Shutdown(ctx context.Context) error {
	var shutdownErr error
	a.stopOnce.Do(func() {
		slog.Info("shutting down", "closers", len(a.closers))

		for i, closer := range a.closers {
			select {
			case <-ctx.Done():
				slog.Warn("shutdown deadline exceeded", "remaining", len(a.closers)-i)
				shutdownErr = ctx.Err()
				return
			default:
			}
			if err := closer(); err != nil {
				slog.Warn("closer error", "index", i, "err", err)
			}
		}

		slog.Info("shutdown complete")
	})
	return shutdownErr
}

// matcherOptions converts the config block into match package options,
// passing through only values the operator actually set.
func matcherOptions(mc config.MatcherConfig) []match.Option {
	var opts []match.Option
	if mc.AcceptFloor != 0 {
		opts = append(opts, match.WithAcceptFloor(mc.AcceptFloor))
	}
	if mc.CandidateFloor != 0 {
		opts = append(opts, match.WithCandidateFloor(mc.CandidateFloor))
	}
	if mc.Margin != 0 {
		opts = append(opts, match.WithMargin(mc.Margin))
	}
	if mc.MaxOptions != 0 {
		opts = append(opts, match.WithMaxOptions(mc.MaxOptions))
	}
	if mc.FuzzyThreshold != 0 {
		opts = append(opts, match.WithFuzzyThreshold(mc.FuzzyThreshold))
	}
	return opts
}
