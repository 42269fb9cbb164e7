// Package deepgram provides a Deepgram-backed transcript source using the
// streaming WebSocket API. It implements [transcript.Source].
//
// The adapter consumes Deepgram's word-level final results, classifies each
// word's filler flag through the shared disfluency classifier, and
// synthesizes [transcript.PauseEvent]s from inter-word gaps at or above the
// configured minimum pause. Pauses are emitted in stream position, before
// the word that ended them, so downstream merging stays ordered.
package deepgram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/VanshJP/SpeakUp-App-sub001/pkg/provider/transcript"
	"github.com/VanshJP/SpeakUp-App-sub001/pkg/provider/transcript/filler"
)

const (
	deepgramEndpoint  = "wss://api.deepgram.com/v1/listen"
	defaultModel      = "nova-3"
	defaultLanguage   = "en"
	defaultSampleRate = 16000
	defaultMinPause   = 500 * time.Millisecond
)

// Compile-time assertion that Provider implements transcript.Source.
var _ transcript.Source = (*Provider)(nil)

// Option is a functional option for configuring the Deepgram Provider.
type Option func(*Provider)

// WithModel sets the Deepgram model to use (e.g., "nova-3", "base").
func WithModel(model string) Option {
	return func(p *Provider) {
		p.model = model
	}
}

// WithLanguage sets the BCP-47 language code for recognition.
func WithLanguage(language string) Option {
	return func(p *Provider) {
		p.language = language
	}
}

// WithClassifier replaces the default disfluency classifier.
func WithClassifier(c *filler.Classifier) Option {
	return func(p *Provider) {
		p.classifier = c
	}
}

// Provider implements [transcript.Source] backed by the Deepgram streaming
// API.
type Provider struct {
	apiKey     string
	model      string
	language   string
	classifier *filler.Classifier
}

// New creates a new Deepgram Provider. apiKey must be non-empty.
func New(apiKey string, opts ...Option) (*Provider, error) {
	if apiKey == "" {
		return nil, errors.New("deepgram: apiKey must not be empty")
	}
	p := &Provider{
		apiKey:   apiKey,
		model:    defaultModel,
		language: defaultLanguage,
	}
	for _, o := range opts {
		o(p)
	}
	if p.classifier == nil {
		p.classifier = filler.New()
	}
	return p, nil
}

// StartStream opens a streaming transcription session with Deepgram.
func (p *Provider) StartStream(ctx context.Context, cfg transcript.StreamConfig) (transcript.SessionHandle, error) {
	wsURL, err := p.buildURL(cfg)
	if err != nil {
		return nil, fmt.Errorf("deepgram: build URL: %w", err)
	}

	headers := http.Header{}
	headers.Set("Authorization", "Token "+p.apiKey)

	conn, _, err := websocket.Dial(ctx, wsURL, &websocket.DialOptions{
		HTTPHeader: headers,
	})
	if err != nil {
		return nil, fmt.Errorf("deepgram: dial: %w", err)
	}

	minPause := cfg.MinPause
	if minPause <= 0 {
		minPause = defaultMinPause
	}

	sess := &session{
		conn:       conn,
		classifier: p.classifier,
		minPause:   minPause,
		words:      make(chan transcript.WordEvent, 64),
		pauses:     make(chan transcript.PauseEvent, 16),
		audio:      make(chan []byte, 256),
		done:       make(chan struct{}),
		lastEnd:    -1,
	}

	sess.wg.Add(2)
	go sess.readLoop(ctx)
	go sess.writeLoop(ctx)

	return sess, nil
}

// buildURL constructs the streaming endpoint URL for the given config.
func (p *Provider) buildURL(cfg transcript.StreamConfig) (string, error) {
	u, err := url.Parse(deepgramEndpoint)
	if err != nil {
		return "", err
	}

	lang := cfg.Language
	if lang == "" {
		lang = p.language
	}
	sr := cfg.SampleRate
	if sr == 0 {
		sr = defaultSampleRate
	}

	q := u.Query()
	q.Set("model", p.model)
	q.Set("language", lang)
	q.Set("encoding", "linear16")
	q.Set("sample_rate", strconv.Itoa(sr))
	q.Set("interim_results", "false")
	// Filler words must survive transcription or there is nothing to count.
	q.Set("filler_words", "true")
	q.Set("punctuate", "false")
	if cfg.Channels > 0 {
		q.Set("channels", strconv.Itoa(cfg.Channels))
	}

	u.RawQuery = q.Encode()
	return u.String(), nil
}

// deepgramResponse is the JSON structure of a Results message.
type deepgramResponse struct {
	Type    string `json:"type"`
	IsFinal bool   `json:"is_final"`
	Channel struct {
		Alternatives []struct {
			Transcript string  `json:"transcript"`
			Confidence float64 `json:"confidence"`
			Words      []struct {
				Word       string  `json:"word"`
				Start      float64 `json:"start"`
				End        float64 `json:"end"`
				Confidence float64 `json:"confidence"`
			} `json:"words"`
		} `json:"alternatives"`
	} `json:"channel"`
}

// session is a live Deepgram streaming session. It implements
// transcript.SessionHandle.
type session struct {
	conn       *websocket.Conn
	classifier *filler.Classifier
	minPause   time.Duration

	words  chan transcript.WordEvent
	pauses chan transcript.PauseEvent
	audio  chan []byte

	done chan struct{}
	once sync.Once
	wg   sync.WaitGroup

	// lastEnd is the end timestamp of the last emitted word, -1 before the
	// first word. Only touched by readLoop.
	lastEnd time.Duration
}

// SendAudio queues a PCM audio chunk for delivery to Deepgram.
func (s *session) SendAudio(chunk []byte) error {
	select {
	case <-s.done:
		return errors.New("deepgram: session is closed")
	default:
	}
	select {
	case s.audio <- chunk:
		return nil
	case <-s.done:
		return errors.New("deepgram: session is closed")
	}
}

// Words returns the channel of annotated word events.
func (s *session) Words() <-chan transcript.WordEvent { return s.words }

// Pauses returns the channel of synthesized pause events.
func (s *session) Pauses() <-chan transcript.PauseEvent { return s.pauses }

// Close terminates the session cleanly, asking Deepgram to flush pending
// audio first.
func (s *session) Close() error {
	s.once.Do(func() {
		close(s.done)
		_ = s.conn.Write(context.Background(), websocket.MessageText, []byte(`{"type":"CloseStream"}`))
		s.wg.Wait()
		s.conn.Close(websocket.StatusNormalClosure, "session closed")
	})
	return nil
}

// writeLoop reads from the audio channel and sends binary messages.
func (s *session) writeLoop(ctx context.Context) {
	defer s.wg.Done()
	for {
		select {
		case chunk, ok := <-s.audio:
			if !ok {
				return
			}
			if err := s.conn.Write(ctx, websocket.MessageBinary, chunk); err != nil {
				return
			}
		case <-s.done:
			// Drain buffered audio before exiting.
			for {
				select {
				case chunk, ok := <-s.audio:
					if !ok {
						return
					}
					_ = s.conn.Write(ctx, websocket.MessageBinary, chunk)
				default:
					return
				}
			}
		}
	}
}

// readLoop receives JSON messages from Deepgram and emits word and pause
// events for every final result.
func (s *session) readLoop(ctx context.Context) {
	defer s.wg.Done()
	defer close(s.words)
	defer close(s.pauses)

	for {
		_, msg, err := s.conn.Read(ctx)
		if err != nil {
			// Normal close or context cancellation.
			return
		}
		s.dispatch(msg)
	}
}

// dispatch parses one Results message and emits its words, preceded by any
// synthesized pauses.
func (s *session) dispatch(data []byte) {
	var resp deepgramResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return
	}
	// Interim results are disabled, but guard anyway: only finals count.
	if resp.Type != "Results" || !resp.IsFinal {
		return
	}
	if len(resp.Channel.Alternatives) == 0 {
		return
	}

	for _, w := range resp.Channel.Alternatives[0].Words {
		start := time.Duration(w.Start * float64(time.Second))
		end := time.Duration(w.End * float64(time.Second))

		if s.lastEnd >= 0 {
			if gap := start - s.lastEnd; gap >= s.minPause {
				s.emitPause(transcript.PauseEvent{Start: s.lastEnd, End: start})
			}
		}
		if end > s.lastEnd {
			s.lastEnd = end
		}

		s.emitWord(transcript.WordEvent{
			Timestamp:         start,
			Text:              w.Word,
			IsFillerCandidate: s.classifier.Classify(w.Word),
			Confidence:        w.Confidence,
		})
	}
}

func (s *session) emitWord(ev transcript.WordEvent) {
	select {
	case s.words <- ev:
	case <-s.done:
	}
}

func (s *session) emitPause(ev transcript.PauseEvent) {
	select {
	case s.pauses <- ev:
	case <-s.done:
	}
}
