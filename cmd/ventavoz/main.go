// Command ventavoz is the voice-command resolution server for bodega POS
// registers.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	anyllmlib "github.com/mozilla-ai/any-llm-go"

	"github.com/dquispe/ventavoz/internal/app"
	"github.com/dquispe/ventavoz/internal/config"
	"github.com/dquispe/ventavoz/internal/observe"
	"github.com/dquispe/ventavoz/internal/resilience"
	"github.com/dquispe/ventavoz/pkg/provider/llm"
	"github.com/dquispe/ventavoz/pkg/provider/llm/anyllm"
	oaillm "github.com/dquispe/ventavoz/pkg/provider/llm/openai"
	"github.com/dquispe/ventavoz/pkg/provider/stt"
	"github.com/dquispe/ventavoz/pkg/provider/stt/whisperapi"
)

func main() {
	os.Exit(run())
}

func run() int {
	// ── CLI flags ──────────────────────────────────────────────────────────────
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	flag.Parse()

	// ── Load configuration ────────────────────────────────────────────────────
	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "ventavoz: config file %q not found — copy configs/example.yaml to get started\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "ventavoz: %v\n", err)
		}
		return 1
	}

	// ── Logger ────────────────────────────────────────────────────────────────
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.Server.LogLevel.SlogLevel(),
	}))
	slog.SetDefault(logger)

	slog.Info("ventavoz starting",
		"config", *configPath,
		"listen_addr", cfg.Server.ListenAddr,
		"log_level", cfg.Server.LogLevel,
	)

	// ── Signal context ────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Telemetry ─────────────────────────────────────────────────────────────
	otelShutdown, err := observe.InitProvider(ctx, observe.ProviderConfig{
		ServiceName: "ventavoz",
	})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := otelShutdown(shutdownCtx); err != nil {
			slog.Warn("telemetry shutdown error", "err", err)
		}
	}()

	// ── Providers ─────────────────────────────────────────────────────────────
	providers, err := buildProviders(cfg)
	if err != nil {
		slog.Error("failed to build providers", "err", err)
		return 1
	}

	// ── Application ───────────────────────────────────────────────────────────
	application, err := app.New(ctx, cfg, providers)
	if err != nil {
		slog.Error("failed to initialise application", "err", err)
		return 1
	}

	if err := application.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("run error", "err", err)
		return 1
	}

	// ── Graceful shutdown ─────────────────────────────────────────────────────
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	slog.Info("shutdown signal received, stopping…")

	if err := application.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "err", err)
		return 1
	}
	slog.Info("goodbye")
	return 0
}

// ── Provider wiring ───────────────────────────────────────────────────────────

// buildProviders instantiates the providers named in cfg. Unset provider
// slots stay nil, which disables the corresponding endpoint.
func buildProviders(cfg *config.Config) (*app.Providers, error) {
	ps := &app.Providers{}

	if name := cfg.Providers.LLM.Name; name != "" {
		primary, err := buildLLM(name, cfg.Providers.LLM)
		if err != nil {
			return nil, fmt.Errorf("create llm provider %q: %w", name, err)
		}
		slog.Info("provider created", "kind", "llm", "name", name, "model", cfg.Providers.LLM.Model)

		// The breaker protects the register from hammering a failing model
		// API; extra entries give real failover.
		fb := resilience.NewLLMFallback(primary, name, resilience.FallbackConfig{})
		for _, entry := range cfg.Providers.LLMFallbacks {
			p, err := buildLLM(entry.Name, entry)
			if err != nil {
				return nil, fmt.Errorf("create llm fallback %q: %w", entry.Name, err)
			}
			fb.AddFallback(entry.Name, p)
			slog.Info("provider created", "kind", "llm-fallback", "name", entry.Name, "model", entry.Model)
		}
		ps.LLM = fb
	}

	if name := cfg.Providers.STT.Name; name != "" {
		primary, err := buildSTT(name, cfg.Providers.STT)
		if err != nil {
			return nil, fmt.Errorf("create stt provider %q: %w", name, err)
		}
		slog.Info("provider created", "kind", "stt", "name", name, "model", cfg.Providers.STT.Model)

		fb := resilience.NewSTTFallback(primary, name, resilience.FallbackConfig{})
		for _, entry := range cfg.Providers.STTFallbacks {
			p, err := buildSTT(entry.Name, entry)
			if err != nil {
				return nil, fmt.Errorf("create stt fallback %q: %w", entry.Name, err)
			}
			fb.AddFallback(entry.Name, p)
			slog.Info("provider created", "kind", "stt-fallback", "name", entry.Name, "model", entry.Model)
		}
		ps.STT = fb
	}

	return ps, nil
}

// buildLLM constructs the LLM provider for an entry. The native OpenAI
// client is used for "openai"; everything else goes through the any-llm
// multiplexer.
func buildLLM(name string, entry config.ProviderEntry) (llm.Provider, error) {
	if name == "openai" {
		var opts []oaillm.Option
		if entry.BaseURL != "" {
			opts = append(opts, oaillm.WithBaseURL(entry.BaseURL))
		}
		return oaillm.New(entry.APIKey, entry.Model, opts...)
	}

	var opts []anyllmlib.Option
	if entry.APIKey != "" {
		opts = append(opts, anyllmlib.WithAPIKey(entry.APIKey))
	}
	if entry.BaseURL != "" {
		opts = append(opts, anyllmlib.WithBaseURL(entry.BaseURL))
	}
	return anyllm.New(name, entry.Model, opts...)
}

// buildSTT constructs the STT provider for an entry.
func buildSTT(name string, entry config.ProviderEntry) (stt.Provider, error) {
	switch name {
	case "whisperapi":
		var opts []whisperapi.Option
		if entry.BaseURL != "" {
			opts = append(opts, whisperapi.WithBaseURL(entry.BaseURL))
		}
		if entry.Model != "" {
			opts = append(opts, whisperapi.WithModel(entry.Model))
		}
		return whisperapi.New(entry.APIKey, opts...)
	default:
		return nil, fmt.Errorf("unknown stt provider %q", name)
	}
}
