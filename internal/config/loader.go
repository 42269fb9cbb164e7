package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// ValidProviderNames lists known provider names per provider kind.
// Used by [Validate] to warn about unrecognised provider names.
var ValidProviderNames = map[string][]string{
	"audio":      {"device", "mock"},
	"transcript": {"deepgram", "mock"},
	"batch":      {"whisperserver", "mock"},
}

// Load reads the YAML configuration file at path and returns a validated [Config].
// It is a convenience wrapper around [LoadFromReader] and [Validate].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r and validates the result.
// Useful in tests where configs are constructed from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	// Server
	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}
	if cfg.Server.ShutdownTimeoutSeconds < 0 {
		errs = append(errs, fmt.Errorf("server.shutdown_timeout_seconds %.2f must not be negative", cfg.Server.ShutdownTimeoutSeconds))
	}

	// Provider name validation, warn for unknown provider names.
	validateProviderName("audio", cfg.Providers.Audio.Name)
	validateProviderName("transcript", cfg.Providers.Transcript.Name)
	validateProviderName("batch", cfg.Providers.Batch.Name)

	if cfg.Providers.Transcript.Name == "" {
		slog.Warn("no transcript provider configured; sessions will carry audio levels only and score with an empty transcript")
	}
	if cfg.Store.PostgresDSN == "" {
		slog.Warn("store.postgres_dsn is empty; falling back to the in-memory store, progress is lost on restart")
	}

	// Analysis thresholds
	a := cfg.Analysis
	for _, check := range []struct {
		name  string
		value float64
	}{
		{"analysis.wpm_window_seconds", a.WPMWindowSeconds},
		{"analysis.min_pause_seconds", a.MinPauseSeconds},
		{"analysis.stall_seconds", a.StallSeconds},
		{"analysis.pace_min_wpm", a.PaceMinWPM},
		{"analysis.pace_max_wpm", a.PaceMaxWPM},
		{"analysis.pace_falloff_per_wpm", a.PaceFalloffPerWPM},
		{"analysis.filler_penalty", a.FillerPenalty},
		{"analysis.good_pause_min_seconds", a.GoodPauseMinSeconds},
		{"analysis.good_pause_max_seconds", a.GoodPauseMaxSeconds},
		{"analysis.neutral_clarity", a.NeutralClarity},
		{"analysis.min_duration_seconds", a.MinDurationSeconds},
	} {
		if check.value < 0 {
			errs = append(errs, fmt.Errorf("%s %.2f must not be negative", check.name, check.value))
		}
	}
	if a.WordsPerPause < 0 {
		errs = append(errs, fmt.Errorf("analysis.words_per_pause %d must not be negative", a.WordsPerPause))
	}
	if a.PaceMinWPM > 0 && a.PaceMaxWPM > 0 && a.PaceMinWPM >= a.PaceMaxWPM {
		errs = append(errs, fmt.Errorf("analysis.pace_min_wpm %.0f must be below analysis.pace_max_wpm %.0f", a.PaceMinWPM, a.PaceMaxWPM))
	}
	if a.GoodPauseMinSeconds > 0 && a.GoodPauseMaxSeconds > 0 && a.GoodPauseMinSeconds >= a.GoodPauseMaxSeconds {
		errs = append(errs, fmt.Errorf("analysis.good_pause_min_seconds %.2f must be below analysis.good_pause_max_seconds %.2f", a.GoodPauseMinSeconds, a.GoodPauseMaxSeconds))
	}
	if w := a.Weights; w.Clarity < 0 || w.Pace < 0 || w.FillerUsage < 0 || w.PauseQuality < 0 {
		errs = append(errs, errors.New("analysis.weights must not contain negative values"))
	}

	// Drills
	d := cfg.Drills
	for _, check := range []struct {
		name  string
		value float64
	}{
		{"drills.duration_seconds", d.DurationSeconds},
		{"drills.marker_tolerance_seconds", d.MarkerToleranceSeconds},
		{"drills.start_grace_seconds", d.StartGraceSeconds},
		{"drills.max_silence_seconds", d.MaxSilenceSeconds},
	} {
		if check.value < 0 {
			errs = append(errs, fmt.Errorf("%s %.2f must not be negative", check.name, check.value))
		}
	}
	if d.PaceMinWPM > 0 && d.PaceMaxWPM > 0 && d.PaceMinWPM >= d.PaceMaxWPM {
		errs = append(errs, fmt.Errorf("drills.pace_min_wpm %.0f must be below drills.pace_max_wpm %.0f", d.PaceMinWPM, d.PaceMaxWPM))
	}

	return errors.Join(errs...)
}

// validateProviderName logs a warning if name is non-empty and not found in
// the [ValidProviderNames] list for the given kind.
func validateProviderName(kind, name string) {
	if name == "" {
		return
	}
	known, ok := ValidProviderNames[kind]
	if !ok {
		return
	}
	if slices.Contains(known, name) {
		return
	}
	slog.Warn("unknown provider name, may be a typo or third-party provider",
		"kind", kind,
		"name", name,
		"known", known,
	)
}
