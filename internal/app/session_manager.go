package app

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/VanshJP/SpeakUp-App-sub001/internal/config"
	"github.com/VanshJP/SpeakUp-App-sub001/internal/drill"
	"github.com/VanshJP/SpeakUp-App-sub001/internal/ingest"
	"github.com/VanshJP/SpeakUp-App-sub001/internal/ledger"
	"github.com/VanshJP/SpeakUp-App-sub001/internal/live"
	"github.com/VanshJP/SpeakUp-App-sub001/internal/observe"
	"github.com/VanshJP/SpeakUp-App-sub001/internal/score"
	"github.com/VanshJP/SpeakUp-App-sub001/pkg/provider/audio"
	"github.com/VanshJP/SpeakUp-App-sub001/pkg/provider/transcript"
	"github.com/VanshJP/SpeakUp-App-sub001/pkg/store"
)

// tickInterval drives the elapsed-time advance of the live tracker and the
// drill expiry check while a session runs.
const tickInterval = 250 * time.Millisecond

// maxAudioBuffer caps the PCM retained for batch transcript recovery.
// 16 kHz mono 16-bit is 32 KB/s, so this holds about ten minutes.
const maxAudioBuffer = 20 << 20

// Errors returned by session lifecycle methods.
var (
	ErrSessionActive = errors.New("session: a session is already active")
	ErrNoSession     = errors.New("session: no active session")
)

// SessionInfo holds metadata about an active session.
type SessionInfo struct {
	// SessionID is the unique identifier for this session.
	SessionID string

	// StartedAt is when the session was started.
	StartedAt time.Time

	// PromptID references the practice prompt answered, empty for
	// free-form sessions.
	PromptID string

	// DrillMode is set when the session is a drill, empty otherwise.
	DrillMode drill.Mode
}

// StartOptions configures a new session.
type StartOptions struct {
	// PromptID is an optional practice prompt reference.
	PromptID string

	// DrillMode turns the session into a drill when non-empty.
	DrillMode drill.Mode

	// Markers are the prompted pause timestamps for pause-practice drills.
	Markers []time.Duration
}

// Outcome is the terminal product of a stopped session.
type Outcome struct {
	Recording store.Recording
	Score     score.SpeechScore

	// Drill is set for drill sessions only.
	Drill *drill.Result
}

// activeSession bundles everything owned by one running session. It is
// created whole in Start and discarded whole in Stop or Cancel; no two
// sessions ever share any of it.
type activeSession struct {
	info    SessionInfo
	merger  *ingest.Merger
	tracker *live.Tracker
	drill   *drill.Evaluator // nil for free-form sessions

	audioHandle      audio.SessionHandle
	transcriptHandle transcript.SessionHandle // nil when no transcript provider

	cancel  context.CancelFunc
	pumps   sync.WaitGroup
	expired chan struct{} // closed once when a drill reaches its duration

	mu       sync.Mutex
	pcm      []byte // retained for batch recovery
	degraded bool
}

// markDegraded records that an upstream feed failed or went missing.
func (s *activeSession) markDegraded() {
	s.mu.Lock()
	s.degraded = true
	s.mu.Unlock()
}

// SessionManager owns the lifecycle of practice sessions. Only one session
// can be active at a time (enforced by mutex). All exported methods are safe
// for concurrent use.
type SessionManager struct {
	mu      sync.Mutex
	session *activeSession

	// Dependencies injected at construction.
	audioSrc      audio.Source
	transcriptSrc transcript.Source           // may be nil
	batch         transcript.BatchTranscriber // may be nil
	ledger        *ledger.Ledger
	cfg           *config.Config
	metrics       *observe.Metrics
	clock         func() time.Time
}

// SessionManagerConfig holds all dependencies for a [SessionManager].
type SessionManagerConfig struct {
	AudioSource      audio.Source
	TranscriptSource transcript.Source
	Batch            transcript.BatchTranscriber
	Ledger           *ledger.Ledger
	Config           *config.Config
	Metrics          *observe.Metrics

	// Clock overrides the time source, for tests.
	Clock func() time.Time
}

// NewSessionManager creates a SessionManager with the given dependencies.
func NewSessionManager(cfg SessionManagerConfig) *SessionManager {
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	metrics := cfg.Metrics
	if metrics == nil {
		metrics = observe.DefaultMetrics()
	}
	return &SessionManager{
		audioSrc:      cfg.AudioSource,
		transcriptSrc: cfg.TranscriptSource,
		batch:         cfg.Batch,
		ledger:        cfg.Ledger,
		cfg:           cfg.Config,
		metrics:       metrics,
		clock:         clock,
	}
}

// Start begins a new practice session. It opens the audio and transcript
// feeds, builds the per-session analysis pipeline, and starts the ingestion
// goroutines. Returns [ErrSessionActive] when a session is already running.
func (sm *SessionManager) Start(ctx context.Context, opts StartOptions) (SessionInfo, error) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.session != nil {
		return SessionInfo{}, fmt.Errorf("%w (id=%s)", ErrSessionActive, sm.session.info.SessionID)
	}

	now := sm.clock().UTC()
	sessionID := fmt.Sprintf("session-%s-%s", now.Format("20060102T150405Z"), shortID())

	s := &activeSession{
		info: SessionInfo{
			SessionID: sessionID,
			StartedAt: now,
			PromptID:  opts.PromptID,
			DrillMode: opts.DrillMode,
		},
		merger:  ingest.New(sm.cfg.Analysis.MergerConfig()),
		tracker: live.New(sm.cfg.Analysis.TrackerConfig()),
		expired: make(chan struct{}),
	}

	if opts.DrillMode != "" {
		params := sm.cfg.DrillParams()
		params.Markers = opts.Markers
		ev, err := drill.New(opts.DrillMode, params, s.tracker)
		if err != nil {
			return SessionInfo{}, err
		}
		s.drill = ev
	}

	// Open the upstream feeds before committing to the session.
	audioHandle, err := sm.audioSrc.Start(ctx, audio.StreamConfig{})
	if err != nil {
		return SessionInfo{}, fmt.Errorf("session: start audio feed: %w", err)
	}
	s.audioHandle = audioHandle

	if sm.transcriptSrc != nil {
		th, err := sm.transcriptSrc.StartStream(ctx, sm.transcriptStreamConfig())
		if err != nil {
			_ = audioHandle.Close()
			return SessionInfo{}, fmt.Errorf("session: start transcript feed: %w", err)
		}
		s.transcriptHandle = th
	} else {
		// No live transcript: the session still runs on audio levels and
		// scores degraded unless batch recovery fills the gap.
		s.degraded = true
	}

	if s.drill != nil {
		if err := s.drill.Start(); err != nil {
			_ = audioHandle.Close()
			if s.transcriptHandle != nil {
				_ = s.transcriptHandle.Close()
			}
			return SessionInfo{}, err
		}
	}

	// Session-scoped context for the pump goroutines. Deliberately detached
	// from the Start ctx: an HTTP request ending must not kill the session.
	sessionCtx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	s.pumps.Add(3)
	go sm.pumpAudio(sessionCtx, s)
	go sm.pumpTranscript(sessionCtx, s)
	go sm.consume(sessionCtx, s)

	sm.session = s
	sm.metrics.ActiveSessions.Add(ctx, 1)

	slog.Info("session started",
		"session_id", sessionID,
		"prompt_id", opts.PromptID,
		"drill_mode", string(opts.DrillMode),
		"live_transcript", s.transcriptHandle != nil,
	)
	return s.info, nil
}

// Stop ends the active session, scores it, persists the recording, and runs
// the progress ledger. Returns [ErrNoSession] when nothing is running.
func (sm *SessionManager) Stop(ctx context.Context) (Outcome, error) {
	sm.mu.Lock()
	s := sm.session
	sm.session = nil
	sm.mu.Unlock()

	if s == nil {
		return Outcome{}, ErrNoSession
	}

	ctx, span := observe.StartSpan(ctx, "session.stop")
	defer span.End()

	elapsed := sm.clock().UTC().Sub(s.info.StartedAt)
	sm.teardown(s)
	sm.metrics.ActiveSessions.Add(ctx, -1)

	history := s.merger.History()
	in := sm.buildInput(ctx, s, history, elapsed)
	sc := score.Score(in, sm.cfg.Analysis.ScoreConfig())

	out := Outcome{Score: sc}
	if s.drill != nil {
		res, err := s.drill.Complete()
		if err == nil {
			out.Drill = &res
			sm.metrics.RecordDrillResult(ctx, string(res.Mode), res.Passed)
		}
	}

	rec := recordingFromScore(s.info, sc, in)
	unlocksBefore := len(sm.ledger.PendingUnlocks())
	if err := sm.ledger.OnSessionComplete(ctx, rec); err != nil {
		sm.metrics.RecordSessionCompleted(ctx, "failed")
		// The computed outcome survives; the caller may retry the save.
		return out, fmt.Errorf("session: persist outcome: %w", err)
	}
	out.Recording = rec

	sm.metrics.RecordSessionCompleted(ctx, "scored")
	sm.metrics.SessionDuration.Record(ctx, in.Duration.Seconds())
	sm.metrics.SessionScore.Record(ctx, int64(sc.Overall))
	if newUnlocks := len(sm.ledger.PendingUnlocks()) - unlocksBefore; newUnlocks > 0 {
		sm.metrics.AchievementsUnlocked.Add(ctx, int64(newUnlocks))
	}

	observe.Logger(ctx).Info("session scored",
		"session_id", s.info.SessionID,
		"overall", sc.Overall,
		"wpm", sc.WordsPerMinute,
		"fillers", sc.TotalFillerCount,
		"flags", sc.Flags,
	)
	return out, nil
}

// Cancel discards the active session without scoring or persisting anything.
// Returns [ErrNoSession] when nothing is running.
func (sm *SessionManager) Cancel(ctx context.Context) error {
	sm.mu.Lock()
	s := sm.session
	sm.session = nil
	sm.mu.Unlock()

	if s == nil {
		return ErrNoSession
	}

	sm.teardown(s)
	sm.metrics.ActiveSessions.Add(ctx, -1)
	sm.metrics.RecordSessionCompleted(ctx, "cancelled")

	slog.Info("session cancelled", "session_id", s.info.SessionID)
	return nil
}

// SendAudio forwards one PCM chunk to the live transcript feed and retains a
// copy for batch recovery. Returns [ErrNoSession] when nothing is running.
func (sm *SessionManager) SendAudio(chunk []byte) error {
	sm.mu.Lock()
	s := sm.session
	sm.mu.Unlock()
	if s == nil {
		return ErrNoSession
	}

	s.mu.Lock()
	if len(s.pcm)+len(chunk) <= maxAudioBuffer {
		s.pcm = append(s.pcm, chunk...)
	}
	s.mu.Unlock()

	if s.transcriptHandle != nil {
		if err := s.transcriptHandle.SendAudio(chunk); err != nil {
			s.markDegraded()
			return fmt.Errorf("session: forward audio: %w", err)
		}
	}
	return nil
}

// IsActive reports whether a session is currently running.
func (sm *SessionManager) IsActive() bool {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	return sm.session != nil
}

// Info returns metadata about the active session, or the zero value when no
// session is active.
func (sm *SessionManager) Info() SessionInfo {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	if sm.session == nil {
		return SessionInfo{}
	}
	return sm.session.info
}

// Live returns the current metric snapshot of the active session. The second
// return is false when no session is running.
func (sm *SessionManager) Live() (*live.Snapshot, bool) {
	sm.mu.Lock()
	s := sm.session
	sm.mu.Unlock()
	if s == nil {
		return nil, false
	}
	return s.tracker.Snapshot(), true
}

// Drill returns the live drill display fields for the active drill session.
func (sm *SessionManager) Drill() (DrillStatus, bool) {
	sm.mu.Lock()
	s := sm.session
	sm.mu.Unlock()
	if s == nil || s.drill == nil {
		return DrillStatus{}, false
	}
	return DrillStatus{
		Mode:        s.drill.Mode(),
		FillerCount: s.drill.LiveFillerCount(),
		WPM:         s.drill.LiveWPM(),
		Progress:    s.drill.Progress(),
	}, true
}

// DrillStatus is the read-only live view of a running drill.
type DrillStatus struct {
	Mode        drill.Mode `json:"mode"`
	FillerCount int        `json:"filler_count"`
	WPM         float64    `json:"wpm"`
	Progress    float64    `json:"progress"`
}

// DrillExpired returns a channel closed when the active drill reaches its
// configured duration. Callers use it to trigger the automatic Stop.
func (sm *SessionManager) DrillExpired() (<-chan struct{}, bool) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	if sm.session == nil || sm.session.drill == nil {
		return nil, false
	}
	return sm.session.expired, true
}

// ── Pump goroutines ──────────────────────────────────────────────────────────

// pumpAudio copies level samples from the audio handle into the merger.
func (sm *SessionManager) pumpAudio(ctx context.Context, s *activeSession) {
	defer s.pumps.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case sample, ok := <-s.audioHandle.Samples():
			if !ok {
				return
			}
			if err := s.merger.PushAudioLevel(sample.Timestamp, sample.Decibels); err != nil {
				return
			}
		}
	}
}

// pumpTranscript copies word and pause events into the merger. The two
// channels are drained together so a pause emitted before its closing word
// keeps its stream position.
func (sm *SessionManager) pumpTranscript(ctx context.Context, s *activeSession) {
	defer s.pumps.Done()
	if s.transcriptHandle == nil {
		return
	}
	words := s.transcriptHandle.Words()
	pauses := s.transcriptHandle.Pauses()
	for words != nil || pauses != nil {
		select {
		case <-ctx.Done():
			return
		case w, ok := <-words:
			if !ok {
				words = nil
				continue
			}
			if err := s.merger.PushWord(w.Timestamp, w.Text, w.IsFillerCandidate, w.Confidence); err != nil {
				return
			}
		case p, ok := <-pauses:
			if !ok {
				pauses = nil
				continue
			}
			if err := s.merger.PushPause(p.Start, p.End); err != nil {
				return
			}
		}
	}
}

// consume drains the merged stream into the tracker and the drill, and on a
// fixed tick advances elapsed time, nudges the merger past stalled feeds, and
// marks the session degraded when an upstream feed goes quiet mid-session.
// It is the session's single writer.
func (sm *SessionManager) consume(ctx context.Context, s *activeSession) {
	defer s.pumps.Done()

	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	expiredFired := false
	stallMarked := false
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-s.merger.Events():
			if !ok {
				return
			}
			s.tracker.Apply(ev)
			if s.drill != nil {
				s.drill.Observe(ev)
			}
			sm.metrics.RecordIngestEvent(ctx, ev.Kind.String())
		case <-ticker.C:
			elapsed := sm.clock().UTC().Sub(s.info.StartedAt)
			s.tracker.Advance(elapsed)
			// Let events held back by a freshly stalled feed through.
			s.merger.Tick()
			if audioStalled, transcriptStalled := s.merger.Stalled(); !stallMarked &&
				(audioStalled || (transcriptStalled && s.transcriptHandle != nil)) {
				stallMarked = true
				s.markDegraded()
				slog.Warn("session: upstream feed stalled",
					"session_id", s.info.SessionID,
					"audio", audioStalled,
					"transcript", transcriptStalled)
			}
			if s.drill != nil && !expiredFired && s.drill.Expired() {
				expiredFired = true
				close(s.expired)
			}
		}
	}
}

// ── Internals ────────────────────────────────────────────────────────────────

// teardown closes the feeds, stops the pumps, and flushes the merger. After
// teardown the merger history is the complete session record.
func (sm *SessionManager) teardown(s *activeSession) {
	if s.transcriptHandle != nil {
		if err := s.transcriptHandle.Close(); err != nil {
			slog.Warn("session: transcript close error", "session_id", s.info.SessionID, "err", err)
			s.markDegraded()
		}
	}
	if err := s.audioHandle.Close(); err != nil {
		slog.Warn("session: audio close error", "session_id", s.info.SessionID, "err", err)
	}
	s.cancel()
	s.pumps.Wait()
	s.merger.Close()
}

// buildInput converts the merged history into scorer input, attempting batch
// transcript recovery when the live feed produced no words.
func (sm *SessionManager) buildInput(ctx context.Context, s *activeSession, history []ingest.Event, elapsed time.Duration) score.Input {
	in := score.Input{Duration: elapsed}
	for _, ev := range history {
		switch ev.Kind {
		case ingest.KindWord:
			in.Words = append(in.Words, score.Word{
				Timestamp:  ev.Timestamp,
				Text:       ev.Text,
				IsFiller:   ev.IsFillerCandidate,
				Confidence: ev.Confidence,
			})
		case ingest.KindPause:
			in.Pauses = append(in.Pauses, score.Pause{Start: ev.Timestamp, End: ev.End})
		}
	}

	s.mu.Lock()
	in.Degraded = s.degraded
	pcm := s.pcm
	s.mu.Unlock()

	if len(in.Words) == 0 && sm.batch != nil && len(pcm) > 0 {
		words, err := sm.batch.Transcribe(ctx, pcm, sm.transcriptStreamConfig())
		if err != nil {
			sm.metrics.RecordProviderError(ctx, "batch", "transcribe")
			slog.Warn("session: batch transcript recovery failed", "session_id", s.info.SessionID, "err", err)
		} else if len(words) > 0 {
			for _, w := range words {
				in.Words = append(in.Words, score.Word{
					Timestamp:  w.Timestamp,
					Text:       w.Text,
					IsFiller:   w.IsFillerCandidate,
					Confidence: w.Confidence,
				})
			}
			in.Degraded = true
			slog.Info("session: transcript recovered via batch inference",
				"session_id", s.info.SessionID, "words", len(words))
		}
	}
	return in
}

// transcriptStreamConfig derives the provider stream settings from config.
func (sm *SessionManager) transcriptStreamConfig() transcript.StreamConfig {
	return transcript.StreamConfig{
		SampleRate: 16000,
		Channels:   1,
		Language:   sm.cfg.Providers.Transcript.Language,
		MinPause:   sm.cfg.Analysis.TrackerConfig().MinPause,
	}
}

// recordingFromScore flattens a score into the persisted recording row.
func recordingFromScore(info SessionInfo, sc score.SpeechScore, in score.Input) store.Recording {
	var b strings.Builder
	for i, w := range in.Words {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(w.Text)
	}
	flags := make([]string, 0, len(sc.Flags))
	for _, f := range sc.Flags {
		flags = append(flags, string(f))
	}
	return store.Recording{
		ID:               info.SessionID,
		CreatedAt:        info.StartedAt,
		PromptID:         info.PromptID,
		DrillMode:        string(info.DrillMode),
		DurationSeconds:  in.Duration.Seconds(),
		Transcript:       b.String(),
		Overall:          sc.Overall,
		Clarity:          sc.Clarity,
		Pace:             sc.Pace,
		FillerUsage:      sc.FillerUsage,
		PauseQuality:     sc.PauseQuality,
		WordsPerMinute:   sc.WordsPerMinute,
		TotalFillerCount: sc.TotalFillerCount,
		TotalWords:       sc.TotalWords,
		PauseCount:       sc.PauseCount,
		Flags:            flags,
	}
}

// shortID produces a random 8-byte hex string using crypto/rand.
func shortID() string {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return "00000000"
	}
	return hex.EncodeToString(buf)
}
