package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	derrors "git.home.luguber.info/inful/echopipe/internal/foundation/errors"
)

// CurrentVersion is the configuration format version written by Init.
const CurrentVersion = "1.0"

// DefaultPath is the configuration file looked up when none is given.
const DefaultPath = "echopipe.yaml"

// Config represents the echopipe configuration file.
type Config struct {
	Version     string            `yaml:"version"`
	Generator   GeneratorConfig   `yaml:"generator"`
	Transformer TransformerConfig `yaml:"transformer"`
	Validator   ValidatorConfig   `yaml:"validator"`
	Formatter   FormatterConfig   `yaml:"formatter"`
	Monitor     MonitorConfig     `yaml:"monitor"`
	Pipeline    PipelineConfig    `yaml:"pipeline"`
	Logging     LoggingConfig     `yaml:"logging"`
}

// GeneratorConfig holds content generation parameters. Model, MaxTokens and
// Temperature are recorded in metadata only; generation is deterministic.
type GeneratorConfig struct {
	Model       string  `yaml:"model"`
	MaxTokens   int     `yaml:"max_tokens"`
	Temperature float64 `yaml:"temperature"`
	Truncation  string  `yaml:"truncation"` // structural|raw
}

// TransformerConfig lists the formats every run renders.
type TransformerConfig struct {
	Formats []string `yaml:"formats"`
}

// ValidatorConfig configures quality scoring.
type ValidatorConfig struct {
	QualityThreshold float64       `yaml:"quality_threshold"`
	ConsistencyCheck bool          `yaml:"consistency_check"`
	Scoring          ScoringConfig `yaml:"scoring"`
}

// ScoringConfig holds the heuristic scoring constants.
type ScoringConfig struct {
	Base                 float64 `yaml:"base"`
	MinLength            int     `yaml:"min_length"`
	ShortPenalty         float64 `yaml:"short_penalty"`
	MaxLength            int     `yaml:"max_length"`
	LongPenalty          float64 `yaml:"long_penalty"`
	UnknownFormat        float64 `yaml:"unknown_format_penalty"`
	MissingHeading       float64 `yaml:"missing_heading_penalty"`
	MissingBold          float64 `yaml:"missing_bold_penalty"`
	InvalidHTMLStructure float64 `yaml:"invalid_html_penalty"`
	MissingHTMLHeading   float64 `yaml:"missing_html_heading_penalty"`
	InvalidJSONLD        float64 `yaml:"invalid_jsonld_penalty"`
	Irrelevant           float64 `yaml:"irrelevant_penalty"`
}

// FormatterConfig configures where renderings are written.
type FormatterConfig struct {
	OutputDir        string   `yaml:"output_dir"`
	NamingConvention string   `yaml:"naming_convention"`
	S3               S3Config `yaml:"s3"`
}

// S3Config configures the optional S3 compatible mirror of output sets.
type S3Config struct {
	Enabled   bool   `yaml:"enabled"`
	Endpoint  string `yaml:"endpoint"`
	Region    string `yaml:"region,omitempty"`
	AccessKey string `yaml:"access_key,omitempty"`
	SecretKey string `yaml:"secret_key,omitempty"`
	Bucket    string `yaml:"bucket"`
	Prefix    string `yaml:"prefix,omitempty"`
	UseSSL    bool   `yaml:"use_ssl"`
}

// MonitorConfig configures execution history persistence.
type MonitorConfig struct {
	Backend      MonitorBackend `yaml:"backend"`
	MetricsDir   string         `yaml:"metrics_dir"`
	DSN          string         `yaml:"dsn,omitempty"`
	HistoryLimit int            `yaml:"history_limit"`
	CacheSize    int            `yaml:"cache_size"`
	MetricsAddr  string         `yaml:"metrics_addr,omitempty"`
	NATS         NATSConfig     `yaml:"nats"`
}

// NATSConfig configures the optional execution record publisher.
type NATSConfig struct {
	Enabled bool          `yaml:"enabled"`
	URL     string        `yaml:"url"`
	Subject string        `yaml:"subject"`
	Stream  string        `yaml:"stream,omitempty"`
	Timeout time.Duration `yaml:"timeout"`
}

// PipelineConfig configures the orchestrator.
type PipelineConfig struct {
	StageLatency time.Duration `yaml:"stage_latency"`
	InboxDir     string        `yaml:"inbox_dir"`
	OutputRetry  RetryConfig   `yaml:"output_retry"`
}

// LoggingConfig configures the process logger.
type LoggingConfig struct {
	Level  LogLevel  `yaml:"level"`
	Format LogFormat `yaml:"format"`
	File   string    `yaml:"file,omitempty"`
}

// Load reads the configuration at configPath. A missing file yields the
// defaults. Environment variables are expanded before decoding and the
// result is validated.
func Load(configPath string) (*Config, error) {
	loadEnvFiles()

	cfg := Default()
	data, err := os.ReadFile(configPath)
	switch {
	case errors.Is(err, os.ErrNotExist):
		slog.Debug("Configuration file not found, using defaults", slog.String("path", configPath))
	case err != nil:
		return nil, derrors.WrapError(err, derrors.CategoryFileSystem, "failed to read config file").
			WithContext("path", configPath).
			Build()
	default:
		expanded := os.ExpandEnv(string(data))
		if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
			return nil, derrors.WrapError(err, derrors.CategoryConfig, "failed to parse config file").
				WithContext("path", configPath).
				Fatal().
				Build()
		}
	}

	if err := applyDefaults(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Init writes the default configuration to configPath.
func Init(configPath string, force bool) error {
	if _, err := os.Stat(configPath); err == nil && !force {
		return derrors.ConfigError(fmt.Sprintf("configuration file already exists: %s (use --force to overwrite)", configPath)).
			WithContext("path", configPath).
			Build()
	}
	if dir := filepath.Dir(configPath); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return derrors.WrapError(err, derrors.CategoryFileSystem, "failed to create config directory").
				WithContext("path", dir).
				Build()
		}
	}

	data, err := yaml.Marshal(Default())
	if err != nil {
		return derrors.WrapError(err, derrors.CategoryInternal, "failed to marshal default config").Build()
	}
	header := "# echopipe configuration\n# Values support ${VAR} expansion; .env and .env.local are loaded first.\n"
	if err := os.WriteFile(configPath, append([]byte(header), data...), 0o600); err != nil {
		return derrors.WrapError(err, derrors.CategoryFileSystem, "failed to write config file").
			WithContext("path", configPath).
			Build()
	}
	return nil
}
