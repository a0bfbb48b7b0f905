// Package app wires the voiceorder subsystems into a running service.
//
// The App struct owns the full lifecycle: New opens the catalog, builds the
// resolution pipeline, connects the kitchen broker and assembles the HTTP
// API; Run serves it until the context is cancelled; Shutdown tears
// everything down in order.
//
// For testing, inject implementations via functional options
// (WithCatalogStore, WithPublisher). When an option is not provided, New
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

	"golang.org/x/sync/errgroup"

	"github.com/MrWong99/voiceorder/internal/alias"
	"github.com/MrWong99/voiceorder/internal/catalog"
	"github.com/MrWong99/voiceorder/internal/catalog/postgres"
	"github.com/MrWong99/voiceorder/internal/config"
	"github.com/MrWong99/voiceorder/internal/feedback"
	"github.com/MrWong99/voiceorder/internal/health"
	"github.com/MrWong99/voiceorder/internal/observe"
	"github.com/MrWong99/voiceorder/internal/resilience"
	"github.com/MrWong99/voiceorder/internal/resolver"
	"github.com/MrWong99/voiceorder/internal/server"
	"github.com/MrWong99/voiceorder/internal/submit"
	"github.com/MrWong99/voiceorder/internal/transcript"
	"github.com/MrWong99/voiceorder/internal/transcript/phonetic"
	"github.com/MrWong99/voiceorder/pkg/types"
)

// shutdownGrace bounds how long in-flight requests may finish once Run's
// context is cancelled.
const shutdownGrace = 10 * time.Second

// App owns all subsystem lifetimes.
type App struct {
	cfg *config.Config

	metrics        *observe.Metrics
	metricsHandler http.Handler
	level          *slog.LevelVar
	configPath     string

	// Subsystems: initialised in New, torn down in Shutdown.
	store     catalog.Store
	source    *resilience.Source
	publisher submit.Publisher
	server    *server.Server

	// mu serialises config reloads.
	mu sync.Mutex

	// closers are called in order during Shutdown.
	closers []func() error

	// stopOnce guards the Shutdown path.
	stopOnce sync.Once
}

// Option is a functional option for New. Use these to inject test doubles.
type Option func(*App)

// WithCatalogStore injects a catalog store instead of creating one from config.
// A menu file from config is still imported into it when it is empty.
func WithCatalogStore(s catalog.Store) Option {
	return func(a *App) { a.store = s }
}

// WithPublisher injects an order publisher instead of dialing the broker.
func WithPublisher(p submit.Publisher) Option {
	return func(a *App) { a.publisher = p }
}

// WithMetrics sets the metrics sink. Defaults to [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(a *App) { a.metrics = m }
}

// WithMetricsHandler overrides the /metrics handler.
func WithMetricsHandler(h http.Handler) Option {
	return func(a *App) { a.metricsHandler = h }
}

// WithLevelVar lets config reloads change the log level of the handler that
// was built with lv.
func WithLevelVar(lv *slog.LevelVar) Option {
	return func(a *App) { a.level = lv }
}

// WithConfigPath makes Run watch the config file at path and apply changes
// to the resolver and log level without a restart.
func WithConfigPath(path string) Option {
	return func(a *App) { a.configPath = path }
}

// New creates an App by wiring all subsystems together. Use Option functions
// to inject test doubles for any subsystem.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*App, error) {
	a := &App{cfg: cfg}
	for _, o := range opts {
		o(a)
	}
	if a.metrics == nil {
		a.metrics = observe.DefaultMetrics()
	}

	// ── 1. Catalog ───────────────────────────────────────────────────────
	if err := a.initCatalog(ctx); err != nil {
		a.closeAll()
		return nil, fmt.Errorf("app: init catalog: %w", err)
	}

	// ── 2. Resolution pipeline ───────────────────────────────────────────
	p, err := BuildPipeline(cfg.Resolver, a.metrics)
	if err != nil {
		a.closeAll()
		return nil, fmt.Errorf("app: build pipeline: %w", err)
	}

	// ── 3. Kitchen publisher ─────────────────────────────────────────────
	if err := a.initPublisher(); err != nil {
		a.closeAll()
		return nil, fmt.Errorf("app: init publisher: %w", err)
	}

	// ── 4. HTTP API ──────────────────────────────────────────────────────
	a.initServer(p)

	return a, nil
}

// initCatalog opens the configured store, imports the menu file and wraps
// the store for metrics and failure isolation.
func (a *App) initCatalog(ctx context.Context) error {
	if a.store == nil {
		switch a.cfg.Catalog.Source {
		case config.CatalogPostgres:
			pg, err := postgres.New(ctx, a.cfg.Catalog.PostgresDSN)
			if err != nil {
				return err
			}
			a.closers = append(a.closers, func() error { pg.Close(); return nil })
			a.store = pg
		default:
			a.store = catalog.NewMemStore()
		}
	}

	if path := a.cfg.Catalog.MenuPath; path != "" {
		if err := a.importMenu(ctx, path); err != nil {
			return err
		}
	}

	instrumented := catalog.NewInstrumented(a.store, string(a.cfg.Catalog.Source), a.metrics)
	a.source = resilience.NewSource(instrumented, resilience.Config{Name: "catalog"})
	return nil
}

// importMenu seeds an empty store from the menu file at path. A store that
// already holds dishes is left alone so restarts do not clash with edits
// made through the API.
func (a *App) importMenu(ctx context.Context, path string) error {
	existing, err := a.store.Dishes(ctx, catalog.ListOptions{IncludeUnavailable: true})
	if err != nil {
		return fmt.Errorf("inspect catalog: %w", err)
	}
	if len(existing) > 0 {
		slog.Info("catalog already populated, skipping menu import", "path", path, "dishes", len(existing))
		return nil
	}

	menu, err := catalog.LoadMenuFile(path)
	if err != nil {
		return err
	}
	n, err := catalog.ImportMenu(ctx, a.store, menu)
	if err != nil {
		return err
	}
	slog.Info("imported menu", "path", path, "restaurant", menu.Restaurant.Name, "dishes", n)
	return nil
}

// initPublisher dials the broker when submission is configured and guards
// the publisher with a circuit breaker.
func (a *App) initPublisher() error {
	if a.publisher == nil {
		if !a.cfg.Submit.Enabled() {
			slog.Info("order submission disabled, no amqp_url configured")
			return nil
		}
		pub, err := submit.DialAMQP(a.cfg.Submit.AMQPURL, a.cfg.Submit.Exchange, submit.WithMetrics(a.metrics))
		if err != nil {
			return err
		}
		a.closers = append(a.closers, pub.Close)
		slog.Info("connected to kitchen broker", "exchange", a.cfg.Submit.Exchange)
		a.publisher = pub
	}
	a.publisher = resilience.NewPublisher(a.publisher, resilience.Config{Name: "broker"})
	return nil
}

func (a *App) initServer(p *transcript.Pipeline) {
	checkers := []health.Checker{health.FromPinger("catalog", a.source)}
	opts := []server.Option{
		server.WithStore(a.store),
		server.WithMetrics(a.metrics),
		server.WithMetricsHandler(a.metricsHandler),
	}
	if a.publisher != nil {
		if p, ok := a.publisher.(health.Pinger); ok {
			checkers = append(checkers, health.FromPinger("broker", p))
		}
		opts = append(opts, server.WithPublisher(a.publisher))
	}
	if path := a.cfg.Server.FeedbackLog; path != "" {
		opts = append(opts, server.WithFeedback(feedback.NewFileStore(path)))
	}
	opts = append(opts, server.WithHealth(health.New(checkers...)))
	a.server = server.New(p, a.source, opts...)
}

// BuildPipeline constructs a resolution pipeline from resolver settings. The
// alias file, when set, is merged over the built-in alias table.
func BuildPipeline(rc config.ResolverConfig, m *observe.Metrics) (*transcript.Pipeline, error) {
	table, err := alias.WithOverrides(rc.AliasFile)
	if err != nil {
		return nil, err
	}
	for _, c := range table.Conflicts() {
		slog.Warn("alias maps to more than one dish", "alias", c.Variant, "kept", c.Kept, "dropped", c.Dropped)
	}

	ropts := []resolver.Option{resolver.WithThreshold(rc.FuzzyThreshold)}
	if rc.PhoneticEnabled() {
		ropts = append(ropts, resolver.WithPhoneticMatcher(phonetic.New(phonetic.WithThreshold(rc.PhoneticThreshold))))
	}

	return transcript.New(
		transcript.WithResolver(resolver.New(table, ropts...)),
		transcript.WithModificationScope(rc.ModificationScope.Func()),
		transcript.WithMetrics(m),
	), nil
}

// Handler returns the HTTP API.
func (a *App) Handler() http.Handler {
	return a.server
}

// Resolve resolves one transcript against the current catalog snapshot.
func (a *App) Resolve(ctx context.Context, t types.Transcript) (*transcript.Result, error) {
	dishes, err := a.source.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("app: catalog snapshot: %w", err)
	}
	if t.SpeakerID != "" {
		ctx = observe.ContextWithSpeaker(ctx, t.SpeakerID)
	}
	return a.server.Pipeline().Explain(ctx, t.Text, dishes)
}

// Run serves the HTTP API until ctx is cancelled, then drains in-flight
// requests. With [WithConfigPath] it also applies config file changes.
func (a *App) Run(ctx context.Context) error {
	a.mu.Lock()
	sc := a.cfg.Server
	a.mu.Unlock()

	srv := &http.Server{
		Addr:              sc.ListenAddr,
		Handler:           a.server,
		ReadHeaderTimeout: 10 * time.Second,
	}

	if a.configPath != "" {
		w, err := config.NewWatcher(a.configPath, a.ApplyConfig)
		if err != nil {
			return fmt.Errorf("app: watch config: %w", err)
		}
		defer w.Stop()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("http server listening", "addr", srv.Addr, "tls", sc.TLS != nil)
		var err error
		if tls := sc.TLS; tls != nil {
			err = srv.ListenAndServeTLS(tls.CertFile, tls.KeyFile)
		} else {
			err = srv.ListenAndServe()
		}
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("app: serve: %w", err)
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), shutdownGrace)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// ApplyConfig applies the live-reloadable part of next. Settings that need a
// restart are logged and otherwise ignored.
func (a *App) ApplyConfig(prev, next *config.Config) {
	a.mu.Lock()
	defer a.mu.Unlock()

	d := config.Diff(prev, next)
	if !d.Changed() {
		return
	}

	if d.LogLevelChanged && a.level != nil {
		a.level.Set(SlogLevel(d.NewLogLevel))
		slog.Info("log level changed", "level", d.NewLogLevel)
	}

	if d.ResolverChanged {
		p, err := BuildPipeline(next.Resolver, a.metrics)
		if err != nil {
			slog.Error("resolver reload failed, keeping previous settings", "err", err)
		} else {
			a.server.SetPipeline(p)
			slog.Info("resolver settings reloaded",
				"fuzzy_threshold", next.Resolver.FuzzyThreshold,
				"phonetic", next.Resolver.PhoneticEnabled(),
				"modification_scope", next.Resolver.ModificationScope,
				"alias_file_changed", d.AliasFileChanged,
			)
		}
	}

	if len(d.RestartRequired) > 0 {
		slog.Warn("config changes require a restart", "keys", d.RestartRequired)
	}
	a.cfg = next
}

// SlogLevel converts a config log level to an [slog.Level]. Unknown values
// map to info.
func SlogLevel(l config.LogLevel) slog.Level {
	switch l {
	case config.LogDebug:
		return slog.LevelDebug
	case config.LogWarn:
		return slog.LevelWarn
	case config.LogError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
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

// closeAll releases what a failed New already opened.
func (a *App) closeAll() {
	for _, c := range a.closers {
		_ = c()
	}
	a.closers = nil
}
