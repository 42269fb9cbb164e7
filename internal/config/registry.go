package config

import (
	"errors"
	"fmt"
	"sync"

	"github.com/VanshJP/SpeakUp-App-sub001/pkg/provider/audio"
	"github.com/VanshJP/SpeakUp-App-sub001/pkg/provider/transcript"
)

// ErrProviderNotRegistered is returned by Create* methods when no factory has
// been registered under the requested provider name.
var ErrProviderNotRegistered = errors.New("config: provider not registered")

// Registry maps provider names to their constructor functions for each
// provider type. It is safe for concurrent use.
type Registry struct {
	mu         sync.RWMutex
	audio      map[string]func(ProviderEntry) (audio.Source, error)
	transcript map[string]func(ProviderEntry) (transcript.Source, error)
	batch      map[string]func(ProviderEntry) (transcript.BatchTranscriber, error)
}

// NewRegistry returns an empty, ready-to-use [Registry].
func NewRegistry() *Registry {
	return &Registry{
		audio:      make(map[string]func(ProviderEntry) (audio.Source, error)),
		transcript: make(map[string]func(ProviderEntry) (transcript.Source, error)),
		batch:      make(map[string]func(ProviderEntry) (transcript.BatchTranscriber, error)),
	}
}

// RegisterAudio registers an audio source factory under name.
// Subsequent calls with the same name overwrite the previous registration.
func (r *Registry) RegisterAudio(name string, factory func(ProviderEntry) (audio.Source, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.audio[name] = factory
}

// RegisterTranscript registers a transcript source factory under name.
func (r *Registry) RegisterTranscript(name string, factory func(ProviderEntry) (transcript.Source, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.transcript[name] = factory
}

// RegisterBatch registers a batch transcriber factory under name.
func (r *Registry) RegisterBatch(name string, factory func(ProviderEntry) (transcript.BatchTranscriber, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.batch[name] = factory
}

// CreateAudio instantiates an audio source using the factory registered under
// entry.Name. Returns [ErrProviderNotRegistered] if no factory has been
// registered for that name.
func (r *Registry) CreateAudio(entry ProviderEntry) (audio.Source, error) {
	r.mu.RLock()
	factory, ok := r.audio[entry.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: audio/%q", ErrProviderNotRegistered, entry.Name)
	}
	return factory(entry)
}

// CreateTranscript instantiates a transcript source using the factory
// registered under entry.Name.
func (r *Registry) CreateTranscript(entry ProviderEntry) (transcript.Source, error) {
	r.mu.RLock()
	factory, ok := r.transcript[entry.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: transcript/%q", ErrProviderNotRegistered, entry.Name)
	}
	return factory(entry)
}

// CreateBatch instantiates a batch transcriber using the factory registered
// under entry.Name.
func (r *Registry) CreateBatch(entry ProviderEntry) (transcript.BatchTranscriber, error) {
	r.mu.RLock()
	factory, ok := r.batch[entry.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: batch/%q", ErrProviderNotRegistered, entry.Name)
	}
	return factory(entry)
}
