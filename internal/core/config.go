package core

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the entire casbguard configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Bus       BusConfig       `yaml:"bus"`
	Kafka     KafkaConfig     `yaml:"kafka"`
	Alerts    AlertConfig     `yaml:"alerts"`
	Detection DetectionConfig `yaml:"detection"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// ServerConfig holds API server settings.
type ServerConfig struct {
	Host        string   `yaml:"host"`
	Port        int      `yaml:"port"`
	CORSOrigins []string `yaml:"cors_origins"`
	RateLimit   int      `yaml:"rate_limit"` // requests per second per IP, 0 disables
}

// BusConfig holds NATS event bus settings.
type BusConfig struct {
	Enabled  bool   `yaml:"enabled"`
	URL      string `yaml:"url"`
	Embedded bool   `yaml:"embedded"`
	DataDir  string `yaml:"data_dir"`
	Port     int    `yaml:"port"`
}

// KafkaConfig holds the optional threat export sink.
type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

// AlertConfig holds threat store and delivery settings.
type AlertConfig struct {
	MaxStore          int           `yaml:"max_store"`
	WebhookURLs       []string      `yaml:"webhook_urls"`
	WebhookMaxRetries int           `yaml:"webhook_max_retries"`
	WebhookBackoff    time.Duration `yaml:"webhook_backoff"`
	WebhookWorkers    int           `yaml:"webhook_workers"`
	EnableConsole     bool          `yaml:"enable_console"`
}

// DetectionConfig holds anomaly pipeline settings.
type DetectionConfig struct {
	EventCapacity  int           `yaml:"event_capacity"`
	Window         int           `yaml:"window"`
	Interval       time.Duration `yaml:"interval"`
	DefaultCountry string        `yaml:"default_country"`
	Seed           bool          `yaml:"seed"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// DefaultConfig returns a Config that runs a self-contained demo.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:      "0.0.0.0",
			Port:      3000,
			RateLimit: 100,
		},
		Bus: BusConfig{
			Enabled:  false,
			URL:      "nats://127.0.0.1:4222",
			Embedded: true,
			DataDir:  "./data/nats",
			Port:     4222,
		},
		Kafka: KafkaConfig{
			Topic: "casb.threats",
		},
		Alerts: AlertConfig{
			MaxStore:          DefaultMaxThreats,
			WebhookMaxRetries: 3,
			WebhookBackoff:    time.Second,
			WebhookWorkers:    2,
			EnableConsole:     true,
		},
		Detection: DetectionConfig{
			EventCapacity:  DefaultEventCapacity,
			Window:         DefaultDetectionWindow,
			Interval:       DefaultTickInterval,
			DefaultCountry: "India",
			Seed:           true,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// LoadConfig loads configuration from a YAML file, falling back to defaults,
// then applies environment overrides.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parsing config file: %w", err)
			}
		case !os.IsNotExist(err):
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overlays the CASBGUARD_* environment on a loaded config.
func applyEnv(cfg *Config) error {
	if env := os.Getenv("CASBGUARD_HOST"); env != "" {
		cfg.Server.Host = env
	}
	if env := os.Getenv("CASBGUARD_PORT"); env != "" {
		port, err := strconv.Atoi(env)
		if err != nil {
			return fmt.Errorf("parsing CASBGUARD_PORT %q: %w", env, err)
		}
		cfg.Server.Port = port
	}
	if len(cfg.Kafka.Brokers) == 0 {
		if env := os.Getenv("CASBGUARD_KAFKA_BROKERS"); env != "" {
			cfg.Kafka.Brokers = strings.Split(env, ",")
		}
	}
	if env := os.Getenv("CASBGUARD_NATS_URL"); env != "" {
		cfg.Bus.Enabled = true
		cfg.Bus.Embedded = false
		cfg.Bus.URL = env
	}
	return nil
}

// SaveConfig writes the configuration to a YAML file.
func SaveConfig(cfg *Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}

// Validate reports configuration problems. Warnings are survivable; errors
// should stop startup.
func (c *Config) Validate() (warnings []string, errs []error) {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}
	if c.Detection.EventCapacity <= 0 {
		errs = append(errs, fmt.Errorf("detection.event_capacity must be positive, got %d", c.Detection.EventCapacity))
	}
	if c.Detection.Window <= 0 {
		errs = append(errs, fmt.Errorf("detection.window must be positive, got %d", c.Detection.Window))
	}
	if c.Detection.Window > c.Detection.EventCapacity {
		warnings = append(warnings, fmt.Sprintf("detection.window %d exceeds event_capacity %d; scans will cover the whole store",
			c.Detection.Window, c.Detection.EventCapacity))
	}
	if c.Detection.Interval < time.Second {
		warnings = append(warnings, fmt.Sprintf("detection.interval %s is very short", c.Detection.Interval))
	}
	if c.Detection.DefaultCountry == "" {
		errs = append(errs, fmt.Errorf("detection.default_country must be set"))
	}
	if c.Alerts.MaxStore <= 0 {
		errs = append(errs, fmt.Errorf("alerts.max_store must be positive, got %d", c.Alerts.MaxStore))
	}
	if c.Alerts.WebhookMaxRetries < 0 {
		errs = append(errs, fmt.Errorf("alerts.webhook_max_retries must not be negative, got %d", c.Alerts.WebhookMaxRetries))
	}
	if len(c.Kafka.Brokers) > 0 && c.Kafka.Topic == "" {
		errs = append(errs, fmt.Errorf("kafka.topic is required when kafka.brokers is set"))
	}
	switch c.LogLevel() {
	case "debug", "info", "warn", "error":
	default:
		warnings = append(warnings, fmt.Sprintf("unknown logging.level %q, using info", c.Logging.Level))
	}
	return warnings, errs
}

// LogLevel returns the parsed log level string.
func (c *Config) LogLevel() string {
	return strings.ToLower(c.Logging.Level)
}

// KafkaEnabled returns true if a Kafka threat sink is configured.
func (c *Config) KafkaEnabled() bool {
	return len(c.Kafka.Brokers) > 0
}
