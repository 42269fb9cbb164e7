package app

import (
	"context"
	"testing"
	"time"

	"github.com/VanshJP/SpeakUp-App-sub001/internal/config"
	"github.com/VanshJP/SpeakUp-App-sub001/internal/drill"
	audiomock "github.com/VanshJP/SpeakUp-App-sub001/pkg/provider/audio/mock"
	transcriptmock "github.com/VanshJP/SpeakUp-App-sub001/pkg/provider/transcript/mock"
	"github.com/VanshJP/SpeakUp-App-sub001/pkg/store"
	"github.com/VanshJP/SpeakUp-App-sub001/pkg/store/memstore"
)

func newTestApp(t *testing.T, cfg *config.Config, providers *Providers, opts ...Option) *App {
	t.Helper()
	if cfg == nil {
		cfg = &config.Config{}
	}
	if providers == nil {
		providers = &Providers{
			Audio:      &audiomock.Source{},
			Transcript: &transcriptmock.Source{},
		}
	}
	a, err := New(context.Background(), cfg, providers, opts...)
	if err != nil {
		t.Fatalf("app.New: %v", err)
	}
	return a
}

func TestNew_RequiresAudioProvider(t *testing.T) {
	t.Parallel()
	_, err := New(context.Background(), &config.Config{}, &Providers{})
	if err == nil {
		t.Fatal("expected error without an audio provider")
	}
}

func TestNew_FallsBackToMemstore(t *testing.T) {
	t.Parallel()
	a := newTestApp(t, nil, nil)

	if _, ok := a.Store().(*memstore.MemStore); !ok {
		t.Errorf("store = %T, want *memstore.MemStore", a.Store())
	}
	if a.Sessions() == nil || a.Ledger() == nil {
		t.Error("subsystems not wired")
	}
}

func TestNew_UsesInjectedStore(t *testing.T) {
	t.Parallel()
	st := memstore.New()
	a := newTestApp(t, nil, nil, WithStore(st))

	if a.Store() != store.Store(st) {
		t.Error("injected store was not used")
	}
}

func TestApplyConfig_HotReloadsAnalysis(t *testing.T) {
	t.Parallel()
	old := &config.Config{}
	a := newTestApp(t, old, nil)

	next := &config.Config{}
	next.Analysis.FillerPenalty = 25
	next.Drills.DurationSeconds = 120
	a.ApplyConfig(old, next)

	if a.cfg.Analysis.FillerPenalty != 25 {
		t.Errorf("FillerPenalty = %v, want 25", a.cfg.Analysis.FillerPenalty)
	}
	if a.cfg.Drills.DurationSeconds != 120 {
		t.Errorf("DurationSeconds = %v, want 120", a.cfg.Drills.DurationSeconds)
	}
}

func TestRun_AutoStopsExpiredDrill(t *testing.T) {
	t.Parallel()
	clock := newFakeClock()
	cfg := &config.Config{}
	cfg.Drills.DurationSeconds = 1
	a := newTestApp(t, cfg, nil, WithClock(clock.Now))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = a.Run(ctx) }()

	if _, err := a.Sessions().Start(ctx, StartOptions{DrillMode: drill.ModeImpromptuSprint}); err != nil {
		t.Fatalf("Start: %v", err)
	}
	clock.Advance(2 * time.Second)

	waitFor(t, func() bool { return !a.Sessions().IsActive() })

	recs, err := a.Store().ListRecordings(ctx, store.RecordingFilter{DrillsOnly: true})
	if err != nil {
		t.Fatalf("ListRecordings: %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("drill recordings = %d, want 1", len(recs))
	}
	if recs[0].DrillMode != string(drill.ModeImpromptuSprint) {
		t.Errorf("DrillMode = %q", recs[0].DrillMode)
	}
}

func TestShutdown_CancelsActiveSession(t *testing.T) {
	t.Parallel()
	a := newTestApp(t, nil, nil)
	ctx := context.Background()

	if _, err := a.Sessions().Start(ctx, StartOptions{}); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := a.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	if a.Sessions().IsActive() {
		t.Error("session still active after Shutdown")
	}

	// Shutdown cancels rather than scores, so nothing may be persisted.
	recs, err := a.Store().ListRecordings(ctx, store.RecordingFilter{})
	if err != nil {
		t.Fatalf("ListRecordings: %v", err)
	}
	if len(recs) != 0 {
		t.Errorf("recordings = %d, want 0", len(recs))
	}
}

func TestShutdown_Idempotent(t *testing.T) {
	t.Parallel()
	a := newTestApp(t, nil, nil)

	if err := a.Shutdown(context.Background()); err != nil {
		t.Fatalf("first Shutdown: %v", err)
	}
	if err := a.Shutdown(context.Background()); err != nil {
		t.Fatalf("second Shutdown: %v", err)
	}
}
