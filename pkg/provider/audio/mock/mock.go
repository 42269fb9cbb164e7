// Package mock provides a scripted [audio.Source] for tests.
package mock

import (
	"context"
	"sync"

	"github.com/VanshJP/SpeakUp-App-sub001/pkg/provider/audio"
)

// Compile-time interface checks.
var (
	_ audio.Source        = (*Source)(nil)
	_ audio.SessionHandle = (*Handle)(nil)
)

// Source replays a fixed script of samples to every session it opens.
// The zero value opens sessions that emit nothing until fed via the handle.
type Source struct {
	// Script is copied into each new session and emitted immediately.
	Script []audio.Sample

	// StartErr, when non-nil, is returned by Start.
	StartErr error
}

// Start implements [audio.Source].
func (s *Source) Start(_ context.Context, _ audio.StreamConfig) (audio.SessionHandle, error) {
	if s.StartErr != nil {
		return nil, s.StartErr
	}
	h := NewHandle(len(s.Script) + 16)
	for _, sample := range s.Script {
		h.Emit(sample)
	}
	return h, nil
}

// Handle is a manually driven session handle. Tests push samples with Emit
// and end the stream with Close.
type Handle struct {
	mu     sync.Mutex
	ch     chan audio.Sample
	closed bool
}

// NewHandle creates a handle with the given channel capacity.
func NewHandle(buffer int) *Handle {
	return &Handle{ch: make(chan audio.Sample, buffer)}
}

// Emit delivers one sample to the subscriber. Emits after Close are dropped.
func (h *Handle) Emit(s audio.Sample) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.ch <- s
}

// Samples implements [audio.SessionHandle].
func (h *Handle) Samples() <-chan audio.Sample { return h.ch }

// Close implements [audio.SessionHandle].
func (h *Handle) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.closed {
		h.closed = true
		close(h.ch)
	}
	return nil
}
