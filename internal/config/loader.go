package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Load reads the YAML configuration file at path and returns a validated
// [Config] with defaults applied for unset fields. It is a convenience
// wrapper around [LoadFromReader].
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

// LoadFromReader decodes a YAML config from r, applies defaults, and
// validates the result. Useful in tests where configs are constructed from
// string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	applyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyDefaults fills unset fields from [Default].
func applyDefaults(cfg *Config) {
	def := Default()
	if cfg.Server.ListenAddr == "" {
		cfg.Server.ListenAddr = def.Server.ListenAddr
	}
	if cfg.Server.LogLevel == "" {
		cfg.Server.LogLevel = def.Server.LogLevel
	}
	if cfg.Store.SaleMode == "" {
		cfg.Store.SaleMode = def.Store.SaleMode
	}
	if cfg.Engine.OverlapTolerance == 0 {
		cfg.Engine.OverlapTolerance = def.Engine.OverlapTolerance
	}
	if cfg.Engine.FuzzyThreshold == 0 {
		cfg.Engine.FuzzyThreshold = def.Engine.FuzzyThreshold
	}
	if cfg.Engine.DedupWindow == 0 {
		cfg.Engine.DedupWindow = def.Engine.DedupWindow
	}
	if cfg.Engine.SilenceTimeout == 0 {
		cfg.Engine.SilenceTimeout = def.Engine.SilenceTimeout
	}
	if cfg.Engine.ConstrainedSilenceTimeout == 0 {
		cfg.Engine.ConstrainedSilenceTimeout = def.Engine.ConstrainedSilenceTimeout
	}
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}
	if cfg.Store.SaleMode != "" && !cfg.Store.SaleMode.IsValid() {
		errs = append(errs, fmt.Errorf("store.sale_mode %q is invalid; valid values: retail, wholesale", cfg.Store.SaleMode))
	}

	if cfg.Engine.OverlapTolerance < 0 {
		errs = append(errs, fmt.Errorf("engine.overlap_tolerance %d must not be negative", cfg.Engine.OverlapTolerance))
	}
	if cfg.Engine.FuzzyThreshold <= 0 || cfg.Engine.FuzzyThreshold > 1 {
		errs = append(errs, fmt.Errorf("engine.fuzzy_threshold %.2f is out of range (0, 1]", cfg.Engine.FuzzyThreshold))
	}
	if cfg.Engine.DedupWindow.Std() <= 0 {
		errs = append(errs, fmt.Errorf("engine.dedup_window must be positive"))
	}
	if cfg.Engine.SilenceTimeout.Std() <= 0 {
		errs = append(errs, fmt.Errorf("engine.silence_timeout must be positive"))
	}
	if cfg.Engine.ConstrainedSilenceTimeout.Std() < cfg.Engine.SilenceTimeout.Std() {
		slog.Warn("constrained silence timeout is shorter than the regular one",
			"silence_timeout", cfg.Engine.SilenceTimeout.Std(),
			"constrained_silence_timeout", cfg.Engine.ConstrainedSilenceTimeout.Std(),
		)
	}
	if cfg.Engine.DedupWindow.Std() > 30*time.Second {
		slog.Warn("dedup window is unusually long; repeated orders of the same item will be dropped",
			"dedup_window", cfg.Engine.DedupWindow.Std(),
		)
	}

	if cfg.Catalog.Path == "" {
		slog.Warn("catalog.path is empty; using the built-in demo catalog")
	}
	if cfg.Drafts.PostgresDSN == "" {
		slog.Warn("drafts.postgres_dsn is empty; cart drafts will not survive restarts")
	}

	return errors.Join(errs...)
}
