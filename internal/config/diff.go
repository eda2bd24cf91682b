package config

// ConfigDiff describes what changed between two configs.
// Only fields that can be safely hot-reloaded are tracked; everything else
// (listen address, catalog path, draft store) requires a restart.
type ConfigDiff struct {
	LogLevelChanged bool
	NewLogLevel     LogLevel

	// VocabularyChanged is true when the shop vocabulary table differs;
	// the resolver must be rebuilt.
	VocabularyChanged bool

	// TuningChanged is true when a pipeline tuning value changed
	// (overlap tolerance, fuzzy threshold, dedup window, silence
	// timeouts, device profile).
	TuningChanged bool
}

// Empty reports whether no hot-reloadable field changed.
func (d ConfigDiff) Empty() bool {
	return !d.LogLevelChanged && !d.VocabularyChanged && !d.TuningChanged
}

// Diff compares old and new configs and returns what changed.
// Only tracks changes that are safe to apply without restart.
func Diff(old, new *Config) ConfigDiff {
	d := ConfigDiff{}

	if old.Server.LogLevel != new.Server.LogLevel {
		d.LogLevelChanged = true
		d.NewLogLevel = new.Server.LogLevel
	}

	d.VocabularyChanged = !equalVocabulary(old.Engine.Vocabulary, new.Engine.Vocabulary)

	if old.Engine.OverlapTolerance != new.Engine.OverlapTolerance ||
		old.Engine.FuzzyThreshold != new.Engine.FuzzyThreshold ||
		old.Engine.DedupWindow != new.Engine.DedupWindow ||
		old.Engine.SilenceTimeout != new.Engine.SilenceTimeout ||
		old.Engine.ConstrainedSilenceTimeout != new.Engine.ConstrainedSilenceTimeout ||
		old.Engine.ConstrainedDevice != new.Engine.ConstrainedDevice {
		d.TuningChanged = true
	}

	return d
}

// equalVocabulary compares two vocabulary tables by content.
func equalVocabulary(a, b map[string]string) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if bv, ok := b[k]; !ok || bv != v {
			return false
		}
	}
	return true
}
