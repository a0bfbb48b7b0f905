// Command voiceorder turns dictated restaurant orders into structured,
// catalog-backed orders.
//
// By default it serves the HTTP API described in package server. With
// -transcript it resolves a single transcript, prints the result as JSON and
// exits.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MrWong99/voiceorder/internal/app"
	"github.com/MrWong99/voiceorder/internal/config"
	"github.com/MrWong99/voiceorder/internal/observe"
	"github.com/MrWong99/voiceorder/internal/reconcile"
	"github.com/MrWong99/voiceorder/pkg/types"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	// ── CLI flags ──────────────────────────────────────────────────────────────
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	menuPath := flag.String("menu", "", "menu file; overrides catalog.menu_path and selects the memory catalog")
	text := flag.String("transcript", "", "resolve this transcript once, print the order as JSON and exit")
	speaker := flag.String("speaker", "", "speaker id attached to a -transcript run")
	flag.Parse()

	// ── Load configuration ────────────────────────────────────────────────────
	cfg, watch, err := loadConfig(*configPath, *menuPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "voiceorder: %v\n", err)
		return 1
	}

	// ── Logger ────────────────────────────────────────────────────────────────
	var level slog.LevelVar
	level.Set(app.SlogLevel(cfg.Server.LogLevel))
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: &level})))

	// ── Signal context ────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Telemetry ─────────────────────────────────────────────────────────────
	telemetry, err := observe.InitProvider(observe.ProviderConfig{
		ServiceVersion: version,
		Restaurant:     cfg.Telemetry.Restaurant,
		Instance:       cfg.Telemetry.Instance,
		SampleRatio:    cfg.Telemetry.TraceSampleRatio,
	})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := telemetry.Shutdown(sctx); err != nil {
			slog.Warn("telemetry shutdown error", "err", err)
		}
	}()

	opts := []app.Option{
		app.WithLevelVar(&level),
		app.WithMetrics(telemetry.Metrics),
		app.WithMetricsHandler(telemetry.Handler()),
	}
	if watch {
		opts = append(opts, app.WithConfigPath(*configPath))
	}
	application, err := app.New(ctx, cfg, opts...)
	if err != nil {
		slog.Error("failed to initialise application", "err", err)
		return 1
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := application.Shutdown(sctx); err != nil {
			slog.Error("shutdown error", "err", err)
		}
	}()

	if *text != "" {
		return resolveOnce(ctx, application, types.Transcript{Text: *text, SpeakerID: *speaker})
	}

	slog.Info("voiceorder starting",
		"version", version,
		"listen_addr", cfg.Server.ListenAddr,
		"catalog", cfg.Catalog.Source,
		"submission", cfg.Submit.Enabled(),
		"restaurant", cfg.Telemetry.Restaurant,
	)
	if err := application.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("run error", "err", err)
		return 1
	}
	slog.Info("goodbye")
	return 0
}

// loadConfig reads the config file. A missing file is fine when -menu is
// given: the defaults plus the menu make a complete config. watch reports
// whether the file exists and can be hot-reloaded.
func loadConfig(path, menu string) (cfg *config.Config, watch bool, err error) {
	cfg, err = config.Load(path)
	switch {
	case err == nil:
		watch = true
	case errors.Is(err, os.ErrNotExist) && menu != "":
		cfg = &config.Config{}
		config.ApplyDefaults(cfg)
	case errors.Is(err, os.ErrNotExist):
		return nil, false, fmt.Errorf("config file %q not found; pass -menu to run from a menu file alone", path)
	default:
		return nil, false, err
	}

	if menu != "" {
		cfg.Catalog.Source = config.CatalogMemory
		cfg.Catalog.MenuPath = menu
		cfg.Catalog.PostgresDSN = ""
		// A reload would revert the override.
		watch = false
		if err := config.Validate(cfg); err != nil {
			return nil, false, err
		}
	}
	return cfg, watch, nil
}

// resolveOnce prints the explained resolution of t to stdout. Resolution
// errors are printed as JSON too and exit with status 2.
func resolveOnce(ctx context.Context, a *app.App, t types.Transcript) int {
	res, err := a.Resolve(ctx, t)

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")

	var re *reconcile.ResolutionError
	switch {
	case errors.As(err, &re):
		_ = enc.Encode(map[string]any{
			"error":      re.Error(),
			"code":       re.Code(),
			"unresolved": re.Unresolved,
			"explain":    res,
		})
		return 2
	case err != nil:
		slog.Error("resolve failed", "err", err)
		return 1
	}
	if err := enc.Encode(res); err != nil {
		slog.Error("encode result", "err", err)
		return 1
	}
	return 0
}
