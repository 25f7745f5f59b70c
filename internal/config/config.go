// Package config loads the daemon configuration file.
//
// The file is YAML with ${VAR} expansion; .env and .env.local in the working
// directory are loaded into the environment first. Missing keys take the values
// from Default.
package config

import (
	"fmt"
	"net/url"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/contextfocus/internal/foundation"
	"git.home.luguber.info/inful/contextfocus/internal/foundation/errors"
	"git.home.luguber.info/inful/contextfocus/internal/kvstore"
)

// CurrentVersion is the only configuration version understood by Load.
const CurrentVersion = "1"

// Config is the root configuration document.
type Config struct {
	Version        string         `yaml:"version"`
	Server         ServerConfig   `yaml:"server"`
	Storage        StorageConfig  `yaml:"storage"`
	NATS           NATSConfig     `yaml:"nats"`
	BlockedPageURL string         `yaml:"blocked_page_url"`
	Schedule       ScheduleConfig `yaml:"schedule"`
	Logging        LoggingConfig  `yaml:"logging"`
	History        HistoryConfig  `yaml:"history"`
}

// ServerConfig configures the HTTP listener that also hosts the browser bridge.
type ServerConfig struct {
	Listen string `yaml:"listen"`
	// AllowedOrigins lists Origin header values accepted on /ws. Empty accepts
	// extension origins and same-host requests.
	AllowedOrigins []string `yaml:"allowed_origins,omitempty"`
}

// StorageConfig selects the settings/stats backend.
type StorageConfig struct {
	Backend kvstore.Backend `yaml:"backend"`
	Path    string          `yaml:"path"`
}

// NATSConfig enables the optional NATS transport. An empty URL disables it.
type NATSConfig struct {
	URL           string `yaml:"url"`
	SubjectPrefix string `yaml:"subject_prefix"`
	KVBucket      string `yaml:"kv_bucket"`
}

// Enabled reports whether a NATS connection should be made.
func (n NATSConfig) Enabled() bool { return n.URL != "" }

// ScheduleConfig sets the tick intervals.
type ScheduleConfig struct {
	AccrualInterval  time.Duration `yaml:"accrual_interval"`
	RolloverInterval time.Duration `yaml:"rollover_interval"`
}

// LoggingConfig configures the slog handler.
type LoggingConfig struct {
	Level  LogLevel  `yaml:"level"`
	Format LogFormat `yaml:"format"`
}

// HistoryConfig configures the focus session history store.
type HistoryConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
	// Limit caps the number of sessions returned by the history projection.
	Limit int `yaml:"limit"`
}

// Default returns the configuration used when no file or key is given.
func Default() Config {
	return Config{
		Version: CurrentVersion,
		Server: ServerConfig{
			Listen: "127.0.0.1:7420",
		},
		Storage: StorageConfig{
			Backend: kvstore.BackendSQLite,
			Path:    "./contextfocus-data/state.db",
		},
		NATS: NATSConfig{
			SubjectPrefix: "contextfocus",
			KVBucket:      "contextfocus",
		},
		Schedule: ScheduleConfig{
			AccrualInterval:  time.Minute,
			RolloverInterval: time.Hour,
		},
		Logging: LoggingConfig{
			Level:  LogLevelInfo,
			Format: LogFormatText,
		},
		History: HistoryConfig{
			Enabled: true,
			Path:    "./contextfocus-data/history.db",
			Limit:   50,
		},
	}
}

// Load reads configPath. An empty path yields Default after env loading.
func Load(configPath string) (*Config, error) {
	if err := loadEnvFiles(); err != nil {
		fmt.Fprintf(os.Stderr, "Note: .env file couldn't be loaded: %v\n", err)
	}

	cfg := Default()
	if configPath == "" {
		return &cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.ConfigError("configuration file not found").
				WithContext("path", configPath).
				UserAction().
				Build()
		}
		return nil, errors.WrapError(err, errors.CategoryConfig, "read config file").
			WithContext("path", configPath).
			Build()
	}

	if err := Parse(data, &cfg); err != nil {
		return nil, errors.WrapError(err, errors.CategoryConfig, "load config").
			WithContext("path", configPath).
			Build()
	}
	return &cfg, nil
}

// Parse expands environment references in data and decodes it over cfg,
// then normalizes and validates the result.
func Parse(data []byte, cfg *Config) error {
	expanded := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return errors.WrapError(err, errors.CategoryConfig, "unmarshal config").Build()
	}
	if cfg.Version == "" {
		cfg.Version = CurrentVersion
	}
	if cfg.Version != CurrentVersion {
		return errors.ConfigError("unsupported configuration version").
			WithContext("version", cfg.Version).
			WithContext("expected", CurrentVersion).
			Build()
	}
	normalize(cfg)
	return cfg.Validate()
}

func normalize(cfg *Config) {
	cfg.Logging.Level = NormalizeLogLevel(string(cfg.Logging.Level))
	cfg.Logging.Format = NormalizeLogFormat(string(cfg.Logging.Format))
	cfg.Storage.Backend = NormalizeBackend(string(cfg.Storage.Backend))
	if cfg.History.Limit <= 0 {
		cfg.History.Limit = Default().History.Limit
	}
}

var configValidator = foundation.NewValidatorChain[*Config](
	foundation.Field(func(c *Config) string { return c.Server.Listen }, foundation.NotBlank("server.listen")),
	foundation.Field(func(c *Config) kvstore.Backend { return c.Storage.Backend },
		foundation.OneOf("storage.backend", []kvstore.Backend{kvstore.BackendSQLite, kvstore.BackendNATS, kvstore.BackendMemory})),
	foundation.Field(func(c *Config) string { return c.NATS.SubjectPrefix }, foundation.NotBlank("nats.subject_prefix")),
	foundation.Field(func(c *Config) time.Duration { return c.Schedule.AccrualInterval }, positiveDuration("schedule.accrual_interval")),
	foundation.Field(func(c *Config) time.Duration { return c.Schedule.RolloverInterval }, positiveDuration("schedule.rollover_interval")),
	validateStorage,
	validateBlockedPage,
	validateHistory,
)

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	return configValidator.Validate(c).ToError()
}

func positiveDuration(field string) foundation.Validator[time.Duration] {
	return func(d time.Duration) foundation.ValidationResult {
		if d <= 0 {
			return foundation.Invalid(foundation.FieldError{Field: field, Code: "range", Message: "must be a positive duration"})
		}
		return foundation.Valid()
	}
}

func validateStorage(c *Config) foundation.ValidationResult {
	switch c.Storage.Backend {
	case kvstore.BackendSQLite:
		return foundation.NotBlank("storage.path")(c.Storage.Path)
	case kvstore.BackendNATS:
		if !c.NATS.Enabled() {
			return foundation.Invalid(foundation.FieldError{Field: "nats.url", Code: "required", Message: "required by storage.backend nats"})
		}
		return foundation.NotBlank("nats.kv_bucket")(c.NATS.KVBucket)
	}
	return foundation.Valid()
}

func validateBlockedPage(c *Config) foundation.ValidationResult {
	if c.BlockedPageURL == "" {
		return foundation.Valid()
	}
	u, err := url.Parse(c.BlockedPageURL)
	if err != nil || u.Scheme == "" {
		return foundation.Invalid(foundation.FieldError{Field: "blocked_page_url", Code: "format", Message: "must be an absolute URL"})
	}
	return foundation.Valid()
}

func validateHistory(c *Config) foundation.ValidationResult {
	if !c.History.Enabled {
		return foundation.Valid()
	}
	return foundation.NotBlank("history.path")(c.History.Path)
}

// Init writes a default configuration file.
func Init(configPath string, force bool) error {
	if _, err := os.Stat(configPath); err == nil && !force {
		return errors.ConfigError("configuration file already exists (use --force to overwrite)").
			WithContext("path", configPath).
			UserAction().
			Build()
	}

	cfg := Default()
	cfg.NATS.URL = "${CONTEXTFOCUS_NATS_URL}"
	data, err := yaml.Marshal(&cfg)
	if err != nil {
		return errors.WrapError(err, errors.CategoryInternal, "marshal config").Build()
	}
	if err := os.WriteFile(configPath, data, 0o600); err != nil {
		return errors.WrapError(err, errors.CategoryConfig, "write config file").
			WithContext("path", configPath).
			Build()
	}
	return nil
}
