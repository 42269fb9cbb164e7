// Command speakup runs the SpeakUp practice engine server.
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

	"golang.org/x/sync/errgroup"

	"github.com/VanshJP/SpeakUp-App-sub001/internal/app"
	"github.com/VanshJP/SpeakUp-App-sub001/internal/config"
	"github.com/VanshJP/SpeakUp-App-sub001/internal/health"
	"github.com/VanshJP/SpeakUp-App-sub001/internal/httpapi"
	"github.com/VanshJP/SpeakUp-App-sub001/internal/observe"
	"github.com/VanshJP/SpeakUp-App-sub001/internal/resilience"
	"github.com/VanshJP/SpeakUp-App-sub001/pkg/provider/audio"
	"github.com/VanshJP/SpeakUp-App-sub001/pkg/provider/audio/device"
	audiomock "github.com/VanshJP/SpeakUp-App-sub001/pkg/provider/audio/mock"
	"github.com/VanshJP/SpeakUp-App-sub001/pkg/provider/transcript"
	"github.com/VanshJP/SpeakUp-App-sub001/pkg/provider/transcript/deepgram"
	transcriptmock "github.com/VanshJP/SpeakUp-App-sub001/pkg/provider/transcript/mock"
	"github.com/VanshJP/SpeakUp-App-sub001/pkg/provider/transcript/whisperserver"
)

// version is stamped at build time via -ldflags.
var version = "dev"

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
			fmt.Fprintf(os.Stderr, "speakup: config file %q not found, copy configs/example.yaml to get started\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "speakup: %v\n", err)
		}
		return 1
	}

	// ── Logger ────────────────────────────────────────────────────────────────
	levelVar := new(slog.LevelVar)
	levelVar.Set(slogLevel(cfg.Server.LogLevel))
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: levelVar}))
	slog.SetDefault(logger)

	slog.Info("speakup starting",
		"version", version,
		"config", *configPath,
		"listen_addr", cfg.Server.ListenAddr,
		"log_level", cfg.Server.LogLevel,
	)

	// ── Signal context ────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Telemetry ─────────────────────────────────────────────────────────────
	otelShutdown, err := observe.InitProvider(ctx, observe.ProviderConfig{
		ServiceName:    "speakup",
		ServiceVersion: version,
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

	// ── Provider registry ─────────────────────────────────────────────────────
	reg := config.NewRegistry()
	registerBuiltinProviders(reg)

	providers, err := buildProviders(cfg, reg)
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

	// ── Config hot reload ─────────────────────────────────────────────────────
	watcher, err := config.NewWatcher(*configPath, func(old, next *config.Config) {
		if old.Server.LogLevel != next.Server.LogLevel {
			levelVar.Set(slogLevel(next.Server.LogLevel))
			slog.Info("log level changed", "level", next.Server.LogLevel)
		}
		application.ApplyConfig(old, next)
	})
	if err != nil {
		slog.Error("failed to watch config file", "err", err)
		return 1
	}
	defer watcher.Stop()

	// ── HTTP server ───────────────────────────────────────────────────────────
	var checkers []health.Checker
	if p, ok := application.Store().(health.Pinger); ok {
		checkers = append(checkers, health.Database(p))
	}
	server := httpapi.New(cfg.Server, application, observe.DefaultMetrics(), checkers...)

	slog.Info("server ready, press Ctrl+C to shut down", "addr", cfg.Server.ListenAddr)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return server.Start(gctx) })
	g.Go(func() error { return application.Run(gctx) })

	code := 0
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("run error", "err", err)
		code = 1
	}

	// ── Graceful shutdown ─────────────────────────────────────────────────────
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout())
	defer cancel()

	slog.Info("shutdown signal received, stopping")
	if err := application.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "err", err)
		return 1
	}
	slog.Info("goodbye")
	return code
}

// ── Provider wiring ───────────────────────────────────────────────────────────

// registerBuiltinProviders wires the provider factories that ship with the
// server. The "mock" providers emit nothing until driven externally; they
// let the server come up with no capture hardware or paid transcript API.
func registerBuiltinProviders(reg *config.Registry) {
	// ── Audio ─────────────────────────────────────────────────────────────────

	reg.RegisterAudio("device", func(entry config.ProviderEntry) (audio.Source, error) {
		path := entry.BaseURL
		if path == "" {
			path = optString(entry.Options, "path")
		}
		return device.New(path)
	})

	reg.RegisterAudio("mock", func(config.ProviderEntry) (audio.Source, error) {
		return &audiomock.Source{}, nil
	})

	// ── Transcript ────────────────────────────────────────────────────────────

	reg.RegisterTranscript("deepgram", func(entry config.ProviderEntry) (transcript.Source, error) {
		var opts []deepgram.Option
		if entry.Model != "" {
			opts = append(opts, deepgram.WithModel(entry.Model))
		}
		if entry.Language != "" {
			opts = append(opts, deepgram.WithLanguage(entry.Language))
		}
		return deepgram.New(entry.APIKey, opts...)
	})

	reg.RegisterTranscript("mock", func(config.ProviderEntry) (transcript.Source, error) {
		return &transcriptmock.Source{}, nil
	})

	// ── Batch transcription ───────────────────────────────────────────────────

	reg.RegisterBatch("whisperserver", func(entry config.ProviderEntry) (transcript.BatchTranscriber, error) {
		var opts []whisperserver.Option
		if entry.Model != "" {
			opts = append(opts, whisperserver.WithModel(entry.Model))
		}
		if entry.Language != "" {
			opts = append(opts, whisperserver.WithLanguage(entry.Language))
		}
		return whisperserver.New(entry.BaseURL, opts...)
	})

	reg.RegisterBatch("mock", func(config.ProviderEntry) (transcript.BatchTranscriber, error) {
		return &transcriptmock.Batch{}, nil
	})

	for _, kind := range []string{"audio", "transcript", "batch"} {
		for _, name := range config.ValidProviderNames[kind] {
			slog.Debug("known provider", "kind", kind, "name", name)
		}
	}
}

// buildProviders instantiates the providers named in cfg using the registry
// and returns them in an [app.Providers] struct.
func buildProviders(cfg *config.Config, reg *config.Registry) (*app.Providers, error) {
	ps := &app.Providers{}

	name := cfg.Providers.Audio.Name
	if name == "" {
		return nil, errors.New("an audio provider is required (set providers.audio.name)")
	}
	p, err := reg.CreateAudio(cfg.Providers.Audio)
	if err != nil {
		return nil, fmt.Errorf("create audio provider %q: %w", name, err)
	}
	ps.Audio = p
	slog.Info("provider created", "kind", "audio", "name", name)

	if name := cfg.Providers.Transcript.Name; name != "" {
		p, err := reg.CreateTranscript(cfg.Providers.Transcript)
		if err != nil {
			return nil, fmt.Errorf("create transcript provider %q: %w", name, err)
		}
		ps.Transcript = p
		slog.Info("provider created", "kind", "transcript", "name", name)

		// An optional options.fallback entry names a second registered
		// transcript provider; both get wrapped in a breaker-backed group.
		if fb := optString(cfg.Providers.Transcript.Options, "fallback"); fb != "" {
			entry := cfg.Providers.Transcript
			entry.Name = fb
			secondary, err := reg.CreateTranscript(entry)
			if err != nil {
				return nil, fmt.Errorf("create transcript fallback %q: %w", fb, err)
			}
			group := resilience.NewTranscriptFallback(p, name, resilience.FallbackConfig{})
			group.AddFallback(fb, secondary)
			ps.Transcript = group
			slog.Info("transcript failover enabled", "primary", name, "fallback", fb)
		}
	} else {
		slog.Warn("no live transcript provider configured, sessions run level-only until batch recovery")
	}

	if name := cfg.Providers.Batch.Name; name != "" {
		p, err := reg.CreateBatch(cfg.Providers.Batch)
		if err != nil {
			return nil, fmt.Errorf("create batch provider %q: %w", name, err)
		}
		ps.Batch = p
		slog.Info("provider created", "kind", "batch", "name", name)

		if fb := optString(cfg.Providers.Batch.Options, "fallback"); fb != "" {
			entry := cfg.Providers.Batch
			entry.Name = fb
			secondary, err := reg.CreateBatch(entry)
			if err != nil {
				return nil, fmt.Errorf("create batch fallback %q: %w", fb, err)
			}
			group := resilience.NewBatchFallback(p, name, resilience.FallbackConfig{})
			group.AddFallback(fb, secondary)
			ps.Batch = group
			slog.Info("batch failover enabled", "primary", name, "fallback", fb)
		}
	}

	return ps, nil
}

// ── Logger ────────────────────────────────────────────────────────────────────

func slogLevel(level config.LogLevel) slog.Level {
	switch level {
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

// ── Helpers ───────────────────────────────────────────────────────────────────

// optString extracts a string value from a provider Options map.
// Returns "" if the map is nil, the key is absent, or the value is not a string.
func optString(opts map[string]any, key string) string {
	if opts == nil {
		return ""
	}
	s, _ := opts[key].(string)
	return s
}
