package config

import "reflect"

// ConfigDiff describes what changed between two configs.
// Only fields that can be safely hot-reloaded are tracked.
type ConfigDiff struct {
	LogLevelChanged bool
	NewLogLevel     LogLevel

	// AnalysisChanged and DrillsChanged apply to the next session only;
	// a session already running keeps the thresholds it started with.
	AnalysisChanged bool
	DrillsChanged   bool

	// RestartRequired is set when a change cannot be hot-applied
	// (provider selection, store backend, listen address).
	RestartRequired bool
}

// Diff compares old and new configs and returns what changed.
// Only tracks changes that are safe to apply without restart; everything
// else sets RestartRequired.
func Diff(old, new *Config) ConfigDiff {
	d := ConfigDiff{}

	if old.Server.LogLevel != new.Server.LogLevel {
		d.LogLevelChanged = true
		d.NewLogLevel = new.Server.LogLevel
	}

	if old.Analysis != new.Analysis {
		d.AnalysisChanged = true
	}
	if old.Drills != new.Drills {
		d.DrillsChanged = true
	}

	if old.Server.ListenAddr != new.Server.ListenAddr ||
		old.Store != new.Store ||
		!providerEntryEqual(old.Providers.Audio, new.Providers.Audio) ||
		!providerEntryEqual(old.Providers.Transcript, new.Providers.Transcript) ||
		!providerEntryEqual(old.Providers.Batch, new.Providers.Batch) {
		d.RestartRequired = true
	}

	return d
}

// providerEntryEqual compares entries field by field. The Options map keeps
// ProviderEntry from being comparable with ==, and its values may themselves
// be nested maps from the YAML decoder.
func providerEntryEqual(a, b ProviderEntry) bool {
	if a.Name != b.Name || a.APIKey != b.APIKey || a.BaseURL != b.BaseURL ||
		a.Model != b.Model || a.Language != b.Language {
		return false
	}
	return reflect.DeepEqual(a.Options, b.Options)
}
