package resilience

import (
	"context"
	"errors"
	"testing"

	"github.com/VanshJP/SpeakUp-App-sub001/pkg/provider/transcript"
	transcriptmock "github.com/VanshJP/SpeakUp-App-sub001/pkg/provider/transcript/mock"
)

func TestTranscriptFallback_FailsOverOnStartStream(t *testing.T) {
	t.Parallel()
	broken := &transcriptmock.Source{StartErr: errors.New("dial: connection refused")}
	healthy := &transcriptmock.Source{}

	f := NewTranscriptFallback(broken, "deepgram", FallbackConfig{
		CircuitBreaker: CircuitBreakerConfig{MaxFailures: 3},
	})
	f.AddFallback("mock", healthy)

	h, err := f.StartStream(context.Background(), transcript.StreamConfig{})
	if err != nil {
		t.Fatalf("StartStream: %v", err)
	}
	defer h.Close()
}

func TestTranscriptFallback_AllBackendsDown(t *testing.T) {
	t.Parallel()
	f := NewTranscriptFallback(&transcriptmock.Source{StartErr: errBackend}, "deepgram", FallbackConfig{})
	if _, err := f.StartStream(context.Background(), transcript.StreamConfig{}); !errors.Is(err, ErrAllFailed) {
		t.Fatalf("err = %v, want ErrAllFailed", err)
	}
}

func TestBatchFallback_UsesFallbackResult(t *testing.T) {
	t.Parallel()
	primary := &transcriptmock.Batch{Err: errors.New("server returned HTTP 500")}
	secondary := &transcriptmock.Batch{Result: []transcript.WordEvent{{Text: "recovered"}}}

	f := NewBatchFallback(primary, "whisperserver", FallbackConfig{
		CircuitBreaker: CircuitBreakerConfig{MaxFailures: 3},
	})
	f.AddFallback("mock", secondary)

	words, err := f.Transcribe(context.Background(), nil, transcript.StreamConfig{})
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if len(words) != 1 || words[0].Text != "recovered" {
		t.Fatalf("words = %+v", words)
	}
}
