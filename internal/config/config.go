package config

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sells-group/wms-ingest/internal/model"
)

// Config holds the full application configuration.
type Config struct {
	Database   DatabaseConfig   `yaml:"database" mapstructure:"database"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
	Ingest     IngestConfig     `yaml:"ingest" mapstructure:"ingest"`
	Promote    PromoteConfig    `yaml:"promote" mapstructure:"promote"`
	Monitoring MonitoringConfig `yaml:"monitoring" mapstructure:"monitoring"`
}

// DatabaseConfig configures the Postgres connection pool.
type DatabaseConfig struct {
	URL      string `yaml:"url" mapstructure:"url"`
	MaxConns int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// IngestConfig configures the file watcher and staging loader.
type IngestConfig struct {
	PollIntervalSecs int            `yaml:"poll_interval_secs" mapstructure:"poll_interval_secs"`
	ParseWorkers     int            `yaml:"parse_workers" mapstructure:"parse_workers"`
	StatePath        string         `yaml:"state_path" mapstructure:"state_path"`
	Archive          bool           `yaml:"archive" mapstructure:"archive"`
	Retry            RetryConfig    `yaml:"retry" mapstructure:"retry"`
	FTP              FTPConfig      `yaml:"ftp" mapstructure:"ftp"`
	Sources          []SourceConfig `yaml:"sources" mapstructure:"sources"`
}

// RetryConfig configures retries of staging loads and remote pulls.
type RetryConfig struct {
	MaxAttempts      int `yaml:"max_attempts" mapstructure:"max_attempts"`
	InitialBackoffMs int `yaml:"initial_backoff_ms" mapstructure:"initial_backoff_ms"`
	MaxBackoffMs     int `yaml:"max_backoff_ms" mapstructure:"max_backoff_ms"`
}

// FTPConfig configures remote pulls.
type FTPConfig struct {
	TimeoutSecs int  `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	DeleteAfter bool `yaml:"delete_after" mapstructure:"delete_after"`
}

// SourceConfig describes one inbox directory feeding a single document type.
type SourceConfig struct {
	Name       string `yaml:"name" mapstructure:"name"`
	DocType    string `yaml:"doc_type" mapstructure:"doc_type"`
	Dir        string `yaml:"dir" mapstructure:"dir"`
	ArchiveDir string `yaml:"archive_dir" mapstructure:"archive_dir"`
	RemoteURL  string `yaml:"remote_url" mapstructure:"remote_url"`
	Pattern    string `yaml:"pattern" mapstructure:"pattern"`
}

// PromoteConfig configures the promotion engine.
type PromoteConfig struct {
	// Lock serializes promotions of the same document type across processes.
	Lock bool `yaml:"lock" mapstructure:"lock"`
}

// MonitoringConfig configures failure alerting.
type MonitoringConfig struct {
	WebhookURL           string  `yaml:"webhook_url" mapstructure:"webhook_url"`
	FailureRateThreshold float64 `yaml:"failure_rate_threshold" mapstructure:"failure_rate_threshold"`
	LookbackWindowHours  int     `yaml:"lookback_window_hours" mapstructure:"lookback_window_hours"`
	CheckIntervalSecs    int     `yaml:"check_interval_secs" mapstructure:"check_interval_secs"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("WMS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("database.url", "")
	v.SetDefault("database.max_conns", 4)
	v.SetDefault("database.min_conns", 1)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("ingest.poll_interval_secs", 60)
	v.SetDefault("ingest.parse_workers", 4)
	v.SetDefault("ingest.state_path", "wms-ingest.db")
	v.SetDefault("ingest.archive", true)
	v.SetDefault("ingest.retry.max_attempts", 3)
	v.SetDefault("ingest.retry.initial_backoff_ms", 250)
	v.SetDefault("ingest.retry.max_backoff_ms", 10000)
	v.SetDefault("ingest.ftp.timeout_secs", 30)
	v.SetDefault("ingest.ftp.delete_after", false)
	v.SetDefault("promote.lock", true)
	v.SetDefault("monitoring.webhook_url", "")
	v.SetDefault("monitoring.failure_rate_threshold", 0.2)
	v.SetDefault("monitoring.lookback_window_hours", 24)
	v.SetDefault("monitoring.check_interval_secs", 300)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	for i := range cfg.Ingest.Sources {
		if cfg.Ingest.Sources[i].Pattern == "" {
			cfg.Ingest.Sources[i].Pattern = "*.txt"
		}
	}

	return &cfg, nil
}

// Validate checks the settings a command mode depends on. Modes: migrate,
// promote, ingest, status, purge, reset.
func (c *Config) Validate(mode string) error {
	var errs []string

	switch mode {
	case "migrate", "promote", "status", "purge":
		errs = append(errs, c.validateDatabase()...)
	case "reset":
		errs = append(errs, c.validateDatabase()...)
		if c.Ingest.StatePath == "" {
			errs = append(errs, "ingest.state_path is required")
		}
	case "ingest":
		errs = append(errs, c.validateDatabase()...)
		errs = append(errs, c.validateIngest()...)
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if c.Monitoring.FailureRateThreshold < 0 || c.Monitoring.FailureRateThreshold > 1 {
		errs = append(errs, "monitoring.failure_rate_threshold must be between 0 and 1")
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}

func (c *Config) validateDatabase() []string {
	var errs []string
	if c.Database.URL == "" {
		errs = append(errs, "database.url is required")
	}
	if c.Database.MaxConns < 1 {
		errs = append(errs, "database.max_conns must be >= 1")
	}
	if c.Database.MinConns > c.Database.MaxConns {
		errs = append(errs, "database.min_conns must be <= max_conns")
	}
	return errs
}

func (c *Config) validateIngest() []string {
	var errs []string
	if c.Ingest.ParseWorkers < 1 || c.Ingest.ParseWorkers > 32 {
		errs = append(errs, "ingest.parse_workers must be between 1 and 32")
	}
	if c.Ingest.StatePath == "" {
		errs = append(errs, "ingest.state_path is required")
	}
	if len(c.Ingest.Sources) == 0 {
		errs = append(errs, "ingest.sources must not be empty")
	}

	seen := make(map[string]bool, len(c.Ingest.Sources))
	for i, s := range c.Ingest.Sources {
		label := s.Name
		if label == "" {
			label = fmt.Sprintf("#%d", i)
			errs = append(errs, fmt.Sprintf("ingest.sources[%d].name is required", i))
		}
		if seen[s.Name] {
			errs = append(errs, fmt.Sprintf("ingest.sources %s: duplicate name", label))
		}
		seen[s.Name] = true
		if _, err := model.ParseDocType(s.DocType); err != nil {
			errs = append(errs, fmt.Sprintf("ingest.sources %s: unknown doc_type %q", label, s.DocType))
		}
		if s.Dir == "" {
			errs = append(errs, fmt.Sprintf("ingest.sources %s: dir is required", label))
		}
		if s.RemoteURL != "" && !strings.HasPrefix(s.RemoteURL, "ftp://") {
			errs = append(errs, fmt.Sprintf("ingest.sources %s: remote_url must be an ftp:// URL", label))
		}
	}
	return errs
}

// Source returns the configured source with the given name.
func (c *Config) Source(name string) (SourceConfig, bool) {
	for _, s := range c.Ingest.Sources {
		if s.Name == name {
			return s, true
		}
	}
	return SourceConfig{}, false
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
