// Package app wires all SpeakUp subsystems into a running application.
//
// The App struct owns the full lifecycle: New creates and connects the store,
// the progress ledger, and the session manager; Run executes the drill
// auto-completion loop; Shutdown tears everything down in order.
//
// For testing, inject mock implementations via functional options
// (WithStore, WithClock). When an option is not provided, New creates real
// implementations from the config.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/VanshJP/SpeakUp-App-sub001/internal/config"
	"github.com/VanshJP/SpeakUp-App-sub001/internal/ledger"
	"github.com/VanshJP/SpeakUp-App-sub001/pkg/provider/audio"
	"github.com/VanshJP/SpeakUp-App-sub001/pkg/provider/transcript"
	"github.com/VanshJP/SpeakUp-App-sub001/pkg/store"
	"github.com/VanshJP/SpeakUp-App-sub001/pkg/store/memstore"
	"github.com/VanshJP/SpeakUp-App-sub001/pkg/store/postgres"
)

// Providers holds one interface value per provider slot. Nil means the
// provider is not configured. Populated by main.go via the config registry.
type Providers struct {
	Audio      audio.Source
	Transcript transcript.Source
	Batch      transcript.BatchTranscriber
}

// App owns all subsystem lifetimes for the SpeakUp server.
type App struct {
	cfg       *config.Config
	providers *Providers

	// Subsystems, initialised in New and torn down in Shutdown.
	store    store.Store
	ledger   *ledger.Ledger
	sessions *SessionManager

	clock func() time.Time

	// closers are called in reverse order during Shutdown.
	closers []func() error

	// stopOnce guards the Shutdown path.
	stopOnce sync.Once
}

// Option is a functional option for New. Use these to inject test doubles.
type Option func(*App)

// WithStore injects a store instead of creating one from config.
func WithStore(s store.Store) Option {
	return func(a *App) { a.store = s }
}

// WithClock overrides the time source, for tests.
func WithClock(clock func() time.Time) Option {
	return func(a *App) { a.clock = clock }
}

// New creates an App by wiring all subsystems together. The providers struct
// comes from main.go (populated via the config registry). Use Option
// functions to inject test doubles for any subsystem.
func New(ctx context.Context, cfg *config.Config, providers *Providers, opts ...Option) (*App, error) {
	if providers == nil || providers.Audio == nil {
		return nil, fmt.Errorf("app: an audio provider is required")
	}

	a := &App{
		cfg:       cfg,
		providers: providers,
		clock:     time.Now,
	}
	for _, o := range opts {
		o(a)
	}

	// ── 1. Store ─────────────────────────────────────────────────────────
	if err := a.initStore(ctx); err != nil {
		return nil, fmt.Errorf("app: init store: %w", err)
	}

	// ── 2. Progress ledger ───────────────────────────────────────────────
	led, err := ledger.New(ctx, a.store)
	if err != nil {
		return nil, fmt.Errorf("app: init ledger: %w", err)
	}
	a.ledger = led

	// ── 3. Session manager ───────────────────────────────────────────────
	a.sessions = NewSessionManager(SessionManagerConfig{
		AudioSource:      providers.Audio,
		TranscriptSource: providers.Transcript,
		Batch:            providers.Batch,
		Ledger:           led,
		Config:           cfg,
		Clock:            a.clock,
	})

	return a, nil
}

// initStore opens the PostgreSQL store, or falls back to the in-memory store
// when no DSN is configured.
func (a *App) initStore(ctx context.Context) error {
	if a.store != nil {
		return nil // injected
	}

	dsn := a.cfg.Store.PostgresDSN
	if dsn == "" {
		slog.Info("using in-memory store")
		a.store = memstore.New()
		return nil
	}

	st, err := postgres.New(ctx, dsn)
	if err != nil {
		return err
	}
	a.store = st
	a.closers = append(a.closers, st.Close)
	slog.Info("connected to postgres store")
	return nil
}

// Sessions returns the session manager for the HTTP layer.
func (a *App) Sessions() *SessionManager { return a.sessions }

// Ledger returns the progress ledger for the HTTP layer.
func (a *App) Ledger() *ledger.Ledger { return a.ledger }

// Store returns the persistence backend.
func (a *App) Store() store.Store { return a.store }

// ApplyConfig applies a hot-reloaded config. Analysis and drill thresholds
// take effect for the next session; a running session keeps the thresholds
// it started with.
func (a *App) ApplyConfig(old, next *config.Config) {
	d := config.Diff(old, next)
	if d.RestartRequired {
		slog.Warn("config change requires a restart to take full effect")
	}
	if d.AnalysisChanged || d.DrillsChanged {
		a.cfg.Analysis = next.Analysis
		a.cfg.Drills = next.Drills
		slog.Info("analysis thresholds updated; applies to the next session")
	}
}

// Run executes the drill auto-completion loop and blocks until ctx is
// cancelled. A drill that reaches its configured duration is stopped and
// scored without waiting for an explicit stop request.
func (a *App) Run(ctx context.Context) error {
	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	slog.Info("app running")
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			ch, ok := a.sessions.DrillExpired()
			if !ok {
				continue
			}
			select {
			case <-ch:
				a.completeExpiredDrill(ctx)
			default:
			}
		}
	}
}

// completeExpiredDrill stops the active drill session after its duration
// elapsed.
func (a *App) completeExpiredDrill(ctx context.Context) {
	out, err := a.sessions.Stop(ctx)
	if err != nil {
		slog.Error("auto-stop of expired drill failed", "err", err)
		return
	}
	if out.Drill != nil {
		slog.Info("drill completed",
			"mode", string(out.Drill.Mode),
			"score", out.Drill.Score,
			"passed", out.Drill.Passed,
		)
	}
}

// Shutdown tears down all subsystems. An active session is cancelled, not
// scored: a half-captured session must never produce a persisted record. The
// context deadline bounds the closer sequence; when it expires, remaining
// closers are skipped and the context error is returned.
func (a *App) Shutdown(ctx context.Context) error {
	var shutdownErr error
	a.stopOnce.Do(func() {
		slog.Info("shutting down", "closers", len(a.closers))

		if a.sessions.IsActive() {
			slog.Warn("cancelling active session for shutdown")
			if err := a.sessions.Cancel(ctx); err != nil {
				slog.Warn("session cancel error", "err", err)
			}
		}

		for i := len(a.closers) - 1; i >= 0; i-- {
			select {
			case <-ctx.Done():
				slog.Warn("shutdown deadline exceeded", "remaining", i+1)
				shutdownErr = ctx.Err()
				return
			default:
			}
			if err := a.closers[i](); err != nil {
				slog.Warn("closer error", "index", i, "err", err)
			}
		}

		slog.Info("shutdown complete")
	})
	return shutdownErr
}
