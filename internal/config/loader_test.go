package config_test

import (
	"strings"
	"testing"
	"time"

	"github.com/kiranaops/bolbill/internal/catalog"
	"github.com/kiranaops/bolbill/internal/config"
)

const sampleYAML = `
server:
  listen_addr: ":9090"
  log_level: debug

store:
  name: "Sharma Kirana"
  sale_mode: wholesale

catalog:
  path: /etc/bolbill/catalog.yaml

engine:
  overlap_tolerance: 12
  fuzzy_threshold: 0.7
  dedup_window: 5s
  silence_timeout: 3s
  constrained_silence_timeout: 6s
  constrained_device: true
  vocabulary:
    meetha: sugar

drafts:
  postgres_dsn: "postgres://localhost/bolbill"
`

func TestLoadFromReader_FullConfig(t *testing.T) {
	t.Parallel()

	cfg, err := config.LoadFromReader(strings.NewReader(sampleYAML))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.ListenAddr != ":9090" {
		t.Errorf("listen_addr: got %q, want %q", cfg.Server.ListenAddr, ":9090")
	}
	if cfg.Server.LogLevel != config.LogDebug {
		t.Errorf("log_level: got %q, want %q", cfg.Server.LogLevel, config.LogDebug)
	}
	if cfg.Store.Name != "Sharma Kirana" {
		t.Errorf("store name: got %q", cfg.Store.Name)
	}
	if cfg.Store.SaleMode != catalog.SaleWholesale {
		t.Errorf("sale_mode: got %q, want %q", cfg.Store.SaleMode, catalog.SaleWholesale)
	}
	if cfg.Engine.OverlapTolerance != 12 {
		t.Errorf("overlap_tolerance: got %d, want 12", cfg.Engine.OverlapTolerance)
	}
	if cfg.Engine.DedupWindow.Std() != 5*time.Second {
		t.Errorf("dedup_window: got %v, want 5s", cfg.Engine.DedupWindow.Std())
	}
	if !cfg.Engine.ConstrainedDevice {
		t.Error("constrained_device should be true")
	}
	if cfg.Engine.Vocabulary["meetha"] != "sugar" {
		t.Errorf("vocabulary: got %v, want meetha->sugar", cfg.Engine.Vocabulary)
	}
	if cfg.Drafts.PostgresDSN == "" {
		t.Error("postgres_dsn should be set")
	}
}

func TestLoadFromReader_EmptyInputGetsDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := config.LoadFromReader(strings.NewReader(""))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	def := config.Default()
	if cfg.Server.ListenAddr != def.Server.ListenAddr {
		t.Errorf("listen_addr: got %q, want default %q", cfg.Server.ListenAddr, def.Server.ListenAddr)
	}
	if cfg.Engine.FuzzyThreshold != def.Engine.FuzzyThreshold {
		t.Errorf("fuzzy_threshold: got %v, want default %v", cfg.Engine.FuzzyThreshold, def.Engine.FuzzyThreshold)
	}
	if cfg.Engine.SilenceTimeout != def.Engine.SilenceTimeout {
		t.Errorf("silence_timeout: got %v, want default %v", cfg.Engine.SilenceTimeout, def.Engine.SilenceTimeout)
	}
}

func TestLoadFromReader_RejectsUnknownFields(t *testing.T) {
	t.Parallel()

	_, err := config.LoadFromReader(strings.NewReader(`
server:
  listen_adr: ":8080"
`))
	if err == nil {
		t.Fatal("expected error for unknown field, got nil")
	}
}

func TestValidate_InvalidLogLevel(t *testing.T) {
	t.Parallel()

	_, err := config.LoadFromReader(strings.NewReader(`
server:
  log_level: bananas
`))
	if err == nil {
		t.Fatal("expected error for invalid log level, got nil")
	}
	if !strings.Contains(err.Error(), "log_level") {
		t.Errorf("error should mention log_level, got: %v", err)
	}
}

func TestValidate_InvalidSaleMode(t *testing.T) {
	t.Parallel()

	_, err := config.LoadFromReader(strings.NewReader(`
store:
  sale_mode: auction
`))
	if err == nil {
		t.Fatal("expected error for invalid sale mode, got nil")
	}
	if !strings.Contains(err.Error(), "sale_mode") {
		t.Errorf("error should mention sale_mode, got: %v", err)
	}
}

func TestValidate_MultipleErrors(t *testing.T) {
	t.Parallel()

	_, err := config.LoadFromReader(strings.NewReader(`
server:
  log_level: bananas
store:
  sale_mode: auction
engine:
  fuzzy_threshold: 1.5
`))
	if err == nil {
		t.Fatal("expected errors, got nil")
	}
	errStr := err.Error()
	for _, want := range []string{"log_level", "sale_mode", "fuzzy_threshold"} {
		if !strings.Contains(errStr, want) {
			t.Errorf("error should mention %s, got: %v", want, err)
		}
	}
}

func TestValidate_ThresholdOutOfRange(t *testing.T) {
	t.Parallel()

	for _, threshold := range []string{"-0.1", "1.01"} {
		_, err := config.LoadFromReader(strings.NewReader(`
engine:
  fuzzy_threshold: ` + threshold + `
`))
		if err == nil {
			t.Errorf("threshold %s: expected error, got nil", threshold)
		}
	}
}

func TestLoad_MissingFile(t *testing.T) {
	t.Parallel()

	_, err := config.Load("/nonexistent/bolbill.yaml")
	if err == nil {
		t.Fatal("expected error for missing file, got nil")
	}
}
