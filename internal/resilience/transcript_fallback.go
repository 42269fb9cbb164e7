package resilience

import (
	"context"

	"github.com/VanshJP/SpeakUp-App-sub001/pkg/provider/transcript"
)

// TranscriptFallback implements [transcript.Source] with automatic failover
// across multiple transcription backends. Each backend has its own circuit
// breaker, so a Deepgram outage degrades to the configured fallback instead
// of failing every session start.
type TranscriptFallback struct {
	group *FallbackGroup[transcript.Source]
}

// Compile-time interface assertion.
var _ transcript.Source = (*TranscriptFallback)(nil)

// NewTranscriptFallback creates a [TranscriptFallback] with primary as the
// preferred backend.
func NewTranscriptFallback(primary transcript.Source, primaryName string, cfg FallbackConfig) *TranscriptFallback {
	return &TranscriptFallback{
		group: NewFallbackGroup(primary, primaryName, cfg),
	}
}

// AddFallback registers an additional transcript source as a fallback.
func (f *TranscriptFallback) AddFallback(name string, source transcript.Source) {
	f.group.AddFallback(name, source)
}

// StartStream opens a streaming session against the first healthy backend.
// Failover only happens at session start: once a handle is returned, the
// session sticks with the backend that produced it.
func (f *TranscriptFallback) StartStream(ctx context.Context, cfg transcript.StreamConfig) (transcript.SessionHandle, error) {
	return ExecuteWithResult(f.group, func(s transcript.Source) (transcript.SessionHandle, error) {
		return s.StartStream(ctx, cfg)
	})
}

// BatchFallback implements [transcript.BatchTranscriber] with the same
// per-backend breaker policy. Batch recovery runs once per degraded session,
// so an open breaker here mainly stops the stop path from waiting out the
// full HTTP timeout against a dead whisper-server.
type BatchFallback struct {
	group *FallbackGroup[transcript.BatchTranscriber]
}

// Compile-time interface assertion.
var _ transcript.BatchTranscriber = (*BatchFallback)(nil)

// NewBatchFallback creates a [BatchFallback] with primary as the preferred
// backend.
func NewBatchFallback(primary transcript.BatchTranscriber, primaryName string, cfg FallbackConfig) *BatchFallback {
	return &BatchFallback{
		group: NewFallbackGroup(primary, primaryName, cfg),
	}
}

// AddFallback registers an additional batch transcriber as a fallback.
func (f *BatchFallback) AddFallback(name string, b transcript.BatchTranscriber) {
	f.group.AddFallback(name, b)
}

// Transcribe runs the recording against the first healthy backend.
func (f *BatchFallback) Transcribe(ctx context.Context, pcm []byte, cfg transcript.StreamConfig) ([]transcript.WordEvent, error) {
	return ExecuteWithResult(f.group, func(b transcript.BatchTranscriber) ([]transcript.WordEvent, error) {
		return b.Transcribe(ctx, pcm, cfg)
	})
}
