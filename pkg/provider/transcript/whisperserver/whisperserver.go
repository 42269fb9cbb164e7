// Package whisperserver provides a whisper.cpp-backed batch transcriber.
//
// It connects to a running whisper-server binary (which exposes a REST API at
// POST /inference) and submits a complete recording as a single inference
// request. whisper.cpp is a batch engine, so this adapter implements
// transcript.BatchTranscriber rather than the streaming Source interface; it
// is used for post-session re-analysis and for environments where no
// streaming provider is configured.
//
// Usage:
//
//	t, err := whisperserver.New("http://localhost:8080",
//	    whisperserver.WithLanguage("en"),
//	)
//	words, err := t.Transcribe(ctx, pcm, cfg)
package whisperserver

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/VanshJP/SpeakUp-App-sub001/pkg/provider/transcript"
	"github.com/VanshJP/SpeakUp-App-sub001/pkg/provider/transcript/filler"
)

const (
	// bitsPerSample is fixed at 16 for the 16-bit signed little-endian PCM
	// audio that whisper.cpp expects.
	bitsPerSample = 16

	defaultLanguage   = "en"
	defaultSampleRate = 16000
	defaultTimeout    = 120 * time.Second
)

// Compile-time assertion that Transcriber implements transcript.BatchTranscriber.
var _ transcript.BatchTranscriber = (*Transcriber)(nil)

// Option is a functional option for configuring a Transcriber.
type Option func(*Transcriber)

// WithModel sets the model identifier forwarded to the whisper.cpp server
// (e.g., "base.en", "small"). When empty the server uses whichever model it
// was started with; this is the default.
func WithModel(model string) Option {
	return func(t *Transcriber) {
		t.model = model
	}
}

// WithLanguage sets the BCP-47 language code sent to the whisper.cpp server
// (e.g., "en", "de", "fr"). Defaults to "en".
func WithLanguage(lang string) Option {
	return func(t *Transcriber) {
		t.language = lang
	}
}

// WithTimeout sets the HTTP client timeout for a single inference request.
// Long recordings take longer to transcribe; the default of 120s accommodates
// sessions of several minutes on modest hardware.
func WithTimeout(d time.Duration) Option {
	return func(t *Transcriber) {
		t.httpClient.Timeout = d
	}
}

// WithClassifier sets the filler word classifier applied to every transcribed
// word. Defaults to filler.New() with the built-in lexicon.
func WithClassifier(c *filler.Classifier) Option {
	return func(t *Transcriber) {
		t.classifier = c
	}
}

// Transcriber implements transcript.BatchTranscriber backed by a local
// whisper.cpp HTTP server. It is safe for concurrent use.
type Transcriber struct {
	serverURL  string
	model      string
	language   string
	httpClient *http.Client
	classifier *filler.Classifier
}

// New creates a Transcriber that talks to the whisper.cpp server at serverURL
// (e.g., "http://localhost:8080"). The URL must not have a trailing slash.
func New(serverURL string, opts ...Option) (*Transcriber, error) {
	if serverURL == "" {
		return nil, errors.New("whisperserver: server URL is required")
	}
	t := &Transcriber{
		serverURL:  strings.TrimRight(serverURL, "/"),
		language:   defaultLanguage,
		httpClient: &http.Client{Timeout: defaultTimeout},
		classifier: filler.New(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

// inferenceResponse mirrors the whisper-server verbose JSON layout. Word-level
// timestamps are present when the server runs with word splitting enabled;
// otherwise only segment boundaries are available.
type inferenceResponse struct {
	Text     string `json:"text"`
	Segments []struct {
		Start float64 `json:"t0"`
		End   float64 `json:"t1"`
		Text  string  `json:"text"`
		Words []struct {
			Start       float64 `json:"t0"`
			End         float64 `json:"t1"`
			Word        string  `json:"word"`
			Probability float64 `json:"p"`
		} `json:"words"`
	} `json:"segments"`
}

// Transcribe encodes pcm as a WAV file, POSTs it to the whisper.cpp
// /inference endpoint and converts the response into timestamped word events.
// When the server does not report word-level timestamps, segment text is
// distributed evenly across the segment duration.
func (t *Transcriber) Transcribe(ctx context.Context, pcm []byte, cfg transcript.StreamConfig) ([]transcript.WordEvent, error) {
	sampleRate := cfg.SampleRate
	if sampleRate <= 0 {
		sampleRate = defaultSampleRate
	}
	channels := cfg.Channels
	if channels <= 0 {
		channels = 1
	}
	language := cfg.Language
	if language == "" {
		language = t.language
	}

	wav := encodeWAV(pcm, sampleRate, channels)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	fw, err := mw.CreateFormFile("file", "audio.wav")
	if err != nil {
		return nil, fmt.Errorf("whisperserver: create form file: %w", err)
	}
	if _, err := fw.Write(wav); err != nil {
		return nil, fmt.Errorf("whisperserver: write wav data: %w", err)
	}

	fields := map[string]string{
		"response_format": "verbose_json",
		"language":        language,
	}
	if t.model != "" {
		fields["model"] = t.model
	}
	for name, value := range fields {
		if err := mw.WriteField(name, value); err != nil {
			return nil, fmt.Errorf("whisperserver: write %s field: %w", name, err)
		}
	}

	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("whisperserver: close multipart writer: %w", err)
	}

	endpoint := t.serverURL + "/inference"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &body)
	if err != nil {
		return nil, fmt.Errorf("whisperserver: create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("whisperserver: http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("whisperserver: server returned HTTP %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("whisperserver: read response body: %w", err)
	}

	var result inferenceResponse
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("whisperserver: parse JSON response: %w", err)
	}

	return t.toWordEvents(result), nil
}

// toWordEvents flattens the server response into ordered word events with
// filler classification applied.
func (t *Transcriber) toWordEvents(result inferenceResponse) []transcript.WordEvent {
	var events []transcript.WordEvent
	for _, seg := range result.Segments {
		if len(seg.Words) > 0 {
			for _, w := range seg.Words {
				text := strings.TrimSpace(w.Word)
				if text == "" {
					continue
				}
				confidence := w.Probability
				if confidence <= 0 || confidence > 1 {
					confidence = 0
				}
				events = append(events, transcript.WordEvent{
					Timestamp:         time.Duration(w.Start * float64(time.Second)),
					Text:              text,
					IsFillerCandidate: t.classifier.Classify(text),
					Confidence:        confidence,
				})
			}
			continue
		}

		// No word timestamps: spread the segment's tokens evenly.
		tokens := strings.Fields(seg.Text)
		if len(tokens) == 0 {
			continue
		}
		span := seg.End - seg.Start
		step := span / float64(len(tokens))
		for i, tok := range tokens {
			events = append(events, transcript.WordEvent{
				Timestamp:         time.Duration((seg.Start + float64(i)*step) * float64(time.Second)),
				Text:              tok,
				IsFillerCandidate: t.classifier.Classify(tok),
			})
		}
	}
	return events
}

// encodeWAV wraps raw 16-bit signed little-endian PCM data in a standard
// RIFF/WAV container.
func encodeWAV(pcm []byte, sampleRate, channels int) []byte {
	bps := bitsPerSample
	byteRate := sampleRate * channels * bps / 8
	blockAlign := channels * bps / 8
	dataSize := len(pcm)

	buf := make([]byte, 44+dataSize)

	// RIFF chunk descriptor
	copy(buf[0:4], "RIFF")
	binary.LittleEndian.PutUint32(buf[4:8], uint32(36+dataSize))
	copy(buf[8:12], "WAVE")

	// fmt sub-chunk
	copy(buf[12:16], "fmt ")
	binary.LittleEndian.PutUint32(buf[16:20], 16)
	binary.LittleEndian.PutUint16(buf[20:22], 1)
	binary.LittleEndian.PutUint16(buf[22:24], uint16(channels))
	binary.LittleEndian.PutUint32(buf[24:28], uint32(sampleRate))
	binary.LittleEndian.PutUint32(buf[28:32], uint32(byteRate))
	binary.LittleEndian.PutUint16(buf[32:34], uint16(blockAlign))
	binary.LittleEndian.PutUint16(buf[34:36], uint16(bps))

	// data sub-chunk
	copy(buf[36:40], "data")
	binary.LittleEndian.PutUint32(buf[40:44], uint32(dataSize))
	copy(buf[44:], pcm)

	return buf
}
