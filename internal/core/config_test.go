package core

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

// ─── DefaultConfig ───────────────────────────────────────────────────────────

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Server.Port != 3000 {
		t.Errorf("Server.Port = %d, want 3000", cfg.Server.Port)
	}
	if cfg.Detection.EventCapacity != 100 || cfg.Detection.Window != 10 {
		t.Errorf("Detection = %+v", cfg.Detection)
	}
	if cfg.Detection.Interval != 10*time.Second {
		t.Errorf("Detection.Interval = %s, want 10s", cfg.Detection.Interval)
	}
	if cfg.Bus.Enabled {
		t.Error("bus should be disabled by default")
	}
	if cfg.KafkaEnabled() {
		t.Error("kafka should be disabled by default")
	}
	warnings, errs := cfg.Validate()
	if len(warnings) != 0 || len(errs) != 0 {
		t.Errorf("default config should validate cleanly: %v %v", warnings, errs)
	}
}

// ─── LoadConfig ──────────────────────────────────────────────────────────────

func TestLoadConfig_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Server.Port != 3000 {
		t.Errorf("Server.Port = %d", cfg.Server.Port)
	}
}

func TestLoadConfig_OverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 8088
detection:
  window: 20
  event_capacity: 200
  interval: 2s
  default_country: USA
alerts:
  webhook_urls: ["http://hooks.local/casb"]
  webhook_backoff: 250ms
logging:
  level: DEBUG
  format: json
`)
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Server.Port != 8088 {
		t.Errorf("Server.Port = %d", cfg.Server.Port)
	}
	if cfg.Detection.Window != 20 || cfg.Detection.EventCapacity != 200 {
		t.Errorf("Detection = %+v", cfg.Detection)
	}
	if cfg.Detection.Interval != 2*time.Second {
		t.Errorf("Interval = %s", cfg.Detection.Interval)
	}
	if cfg.Alerts.WebhookBackoff != 250*time.Millisecond {
		t.Errorf("WebhookBackoff = %s", cfg.Alerts.WebhookBackoff)
	}
	if cfg.Alerts.MaxStore != DefaultMaxThreats {
		t.Errorf("unset MaxStore should keep default, got %d", cfg.Alerts.MaxStore)
	}
	if cfg.LogLevel() != "debug" {
		t.Errorf("LogLevel() = %q", cfg.LogLevel())
	}
}

func TestLoadConfig_InvalidYAML(t *testing.T) {
	path := writeConfig(t, "server: [unclosed")
	if _, err := LoadConfig(path); err == nil {
		t.Error("expected parse error")
	}
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("CASBGUARD_KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("CASBGUARD_NATS_URL", "nats://nats.internal:4222")

	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if !cfg.KafkaEnabled() || len(cfg.Kafka.Brokers) != 2 {
		t.Errorf("Kafka.Brokers = %v", cfg.Kafka.Brokers)
	}
	if !cfg.Bus.Enabled || cfg.Bus.Embedded || cfg.Bus.URL != "nats://nats.internal:4222" {
		t.Errorf("Bus = %+v", cfg.Bus)
	}
}

func TestLoadConfig_EnvServerAddress(t *testing.T) {
	t.Setenv("CASBGUARD_HOST", "127.0.0.1")
	t.Setenv("CASBGUARD_PORT", "4100")

	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Server.Host != "127.0.0.1" || cfg.Server.Port != 4100 {
		t.Errorf("Server = %+v", cfg.Server)
	}

	t.Setenv("CASBGUARD_PORT", "not-a-port")
	if _, err := LoadConfig(""); err == nil {
		t.Error("expected error for malformed CASBGUARD_PORT")
	}
}

// ─── Validate ────────────────────────────────────────────────────────────────

func TestValidate_Errors(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Server.Port = 0
	cfg.Detection.Window = 0
	cfg.Detection.DefaultCountry = ""
	cfg.Alerts.MaxStore = -1
	cfg.Kafka.Brokers = []string{"k:9092"}
	cfg.Kafka.Topic = ""

	_, errs := cfg.Validate()
	if len(errs) != 5 {
		t.Errorf("expected 5 errors, got %d: %v", len(errs), errs)
	}
}

func TestValidate_Warnings(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Detection.Window = 500
	cfg.Detection.Interval = 100 * time.Millisecond
	cfg.Logging.Level = "verbose"

	warnings, errs := cfg.Validate()
	if len(errs) != 0 {
		t.Errorf("unexpected errors: %v", errs)
	}
	if len(warnings) != 3 {
		t.Errorf("expected 3 warnings, got %v", warnings)
	}
	if !strings.Contains(strings.Join(warnings, "\n"), "exceeds event_capacity") {
		t.Errorf("missing window warning: %v", warnings)
	}
}

// ─── SaveConfig ──────────────────────────────────────────────────────────────

func TestSaveConfig_LoadsBack(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.yaml")
	cfg := DefaultConfig()
	cfg.Detection.DefaultCountry = "Germany"
	cfg.Detection.Interval = 3 * time.Second

	if err := SaveConfig(cfg, path); err != nil {
		t.Fatalf("SaveConfig: %v", err)
	}
	loaded, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if loaded.Detection.DefaultCountry != "Germany" || loaded.Detection.Interval != 3*time.Second {
		t.Errorf("loaded Detection = %+v", loaded.Detection)
	}
}
