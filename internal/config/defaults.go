package config

import (
	"path/filepath"
	"strings"
	"time"

	"git.home.luguber.info/inful/echopipe/internal/quality"
)

// Default values mirrored by Default and the per-domain appliers.
const (
	DefaultModel            = "default"
	DefaultMaxTokens        = 1000
	DefaultTemperature      = 0.7
	DefaultTruncation       = "structural"
	DefaultQualityThreshold = 0.8
	DefaultOutputDir        = "content"
	DefaultNamingConvention = "iteration-{iteration}"
	DefaultMetricsDir       = "metrics"
	DefaultHistoryLimit     = 1000
	DefaultCacheSize        = 256
	DefaultNATSSubject      = "echopipe.executions"
	DefaultNATSTimeout      = 5 * time.Second
	DefaultInboxDir         = "inbox"
	DefaultRetryInitial     = 100 * time.Millisecond
	DefaultRetryMax         = 2 * time.Second
	DefaultRetryMaxRetries  = 2
	sqliteFileName          = "monitor.db"
)

// DefaultFormats are rendered when transformer.formats is empty.
var DefaultFormats = []string{"markdown", "html", "jsonld"}

// Default returns a fully populated configuration.
func Default() *Config {
	return &Config{
		Version: CurrentVersion,
		Generator: GeneratorConfig{
			Model:       DefaultModel,
			MaxTokens:   DefaultMaxTokens,
			Temperature: DefaultTemperature,
			Truncation:  DefaultTruncation,
		},
		Transformer: TransformerConfig{Formats: append([]string(nil), DefaultFormats...)},
		Validator: ValidatorConfig{
			QualityThreshold: DefaultQualityThreshold,
			ConsistencyCheck: true,
			Scoring:          DefaultScoring(),
		},
		Formatter: FormatterConfig{
			OutputDir:        DefaultOutputDir,
			NamingConvention: DefaultNamingConvention,
		},
		Monitor: MonitorConfig{
			Backend:      MonitorBackendFile,
			MetricsDir:   DefaultMetricsDir,
			HistoryLimit: DefaultHistoryLimit,
			CacheSize:    DefaultCacheSize,
			NATS: NATSConfig{
				Subject: DefaultNATSSubject,
				Timeout: DefaultNATSTimeout,
			},
		},
		Pipeline: PipelineConfig{
			InboxDir: DefaultInboxDir,
			OutputRetry: RetryConfig{
				Mode:       RetryBackoffLinear,
				Initial:    DefaultRetryInitial,
				Max:        DefaultRetryMax,
				MaxRetries: DefaultRetryMaxRetries,
			},
		},
		Logging: LoggingConfig{
			Level:  LogLevelInfo,
			Format: LogFormatText,
		},
	}
}

// DefaultScoring returns the stock scoring constants.
func DefaultScoring() ScoringConfig {
	return ScoringFromPolicy(quality.DefaultScoring())
}

// DefaultApplier applies defaults for a specific configuration domain.
type DefaultApplier interface {
	ApplyDefaults(cfg *Config) error
	Domain() string
}

var defaultAppliers = []DefaultApplier{
	&GeneratorDefaultApplier{},
	&TransformerDefaultApplier{},
	&FormatterDefaultApplier{},
	&MonitorDefaultApplier{},
	&PipelineDefaultApplier{},
	&LoggingDefaultApplier{},
}

func applyDefaults(cfg *Config) error {
	if cfg.Version == "" {
		cfg.Version = CurrentVersion
	}
	for _, a := range defaultAppliers {
		if err := a.ApplyDefaults(cfg); err != nil {
			return err
		}
	}
	return nil
}

// GeneratorDefaultApplier handles generator defaults.
type GeneratorDefaultApplier struct{}

func (g *GeneratorDefaultApplier) Domain() string { return "generator" }

func (g *GeneratorDefaultApplier) ApplyDefaults(cfg *Config) error {
	if strings.TrimSpace(cfg.Generator.Model) == "" {
		cfg.Generator.Model = DefaultModel
	}
	if cfg.Generator.MaxTokens == 0 {
		cfg.Generator.MaxTokens = DefaultMaxTokens
	}
	cfg.Generator.Truncation = strings.ToLower(strings.TrimSpace(cfg.Generator.Truncation))
	if cfg.Generator.Truncation == "" {
		cfg.Generator.Truncation = DefaultTruncation
	}
	return nil
}

// TransformerDefaultApplier normalizes the configured format list.
type TransformerDefaultApplier struct{}

func (t *TransformerDefaultApplier) Domain() string { return "transformer" }

func (t *TransformerDefaultApplier) ApplyDefaults(cfg *Config) error {
	seen := make(map[string]bool, len(cfg.Transformer.Formats))
	formats := make([]string, 0, len(cfg.Transformer.Formats))
	for _, f := range cfg.Transformer.Formats {
		f = strings.ToLower(strings.TrimSpace(f))
		if f == "" || seen[f] {
			continue
		}
		seen[f] = true
		formats = append(formats, f)
	}
	if len(formats) == 0 {
		formats = append(formats, DefaultFormats...)
	}
	cfg.Transformer.Formats = formats
	return nil
}

// FormatterDefaultApplier handles output location defaults.
type FormatterDefaultApplier struct{}

func (f *FormatterDefaultApplier) Domain() string { return "formatter" }

func (f *FormatterDefaultApplier) ApplyDefaults(cfg *Config) error {
	if strings.TrimSpace(cfg.Formatter.OutputDir) == "" {
		cfg.Formatter.OutputDir = DefaultOutputDir
	}
	if strings.TrimSpace(cfg.Formatter.NamingConvention) == "" {
		cfg.Formatter.NamingConvention = DefaultNamingConvention
	}
	return nil
}

// MonitorDefaultApplier handles execution history defaults.
type MonitorDefaultApplier struct{}

func (m *MonitorDefaultApplier) Domain() string { return "monitor" }

func (m *MonitorDefaultApplier) ApplyDefaults(cfg *Config) error {
	mc := &cfg.Monitor
	if mc.Backend == "" {
		mc.Backend = MonitorBackendFile
	} else if b := NormalizeMonitorBackend(string(mc.Backend)); b != "" {
		mc.Backend = b
	}
	if strings.TrimSpace(mc.MetricsDir) == "" {
		mc.MetricsDir = DefaultMetricsDir
	}
	if mc.Backend == MonitorBackendSQLite && strings.TrimSpace(mc.DSN) == "" {
		mc.DSN = filepath.Join(mc.MetricsDir, sqliteFileName)
	}
	if mc.HistoryLimit <= 0 {
		mc.HistoryLimit = DefaultHistoryLimit
	}
	if mc.CacheSize <= 0 {
		mc.CacheSize = DefaultCacheSize
	}
	if mc.NATS.Subject == "" {
		mc.NATS.Subject = DefaultNATSSubject
	}
	if mc.NATS.Timeout <= 0 {
		mc.NATS.Timeout = DefaultNATSTimeout
	}
	return nil
}

// PipelineDefaultApplier handles orchestrator defaults.
type PipelineDefaultApplier struct{}

func (p *PipelineDefaultApplier) Domain() string { return "pipeline" }

func (p *PipelineDefaultApplier) ApplyDefaults(cfg *Config) error {
	if strings.TrimSpace(cfg.Pipeline.InboxDir) == "" {
		cfg.Pipeline.InboxDir = DefaultInboxDir
	}
	r := &cfg.Pipeline.OutputRetry
	if r.Mode == "" {
		r.Mode = RetryBackoffLinear
	} else if m := NormalizeRetryBackoff(string(r.Mode)); m != "" {
		r.Mode = m
	}
	if r.Initial <= 0 {
		r.Initial = DefaultRetryInitial
	}
	if r.Max <= 0 {
		r.Max = DefaultRetryMax
	}
	return nil
}

// LoggingDefaultApplier normalizes level and format.
type LoggingDefaultApplier struct{}

func (l *LoggingDefaultApplier) Domain() string { return "logging" }

func (l *LoggingDefaultApplier) ApplyDefaults(cfg *Config) error {
	cfg.Logging.Level = NormalizeLogLevel(string(cfg.Logging.Level))
	cfg.Logging.Format = NormalizeLogFormat(string(cfg.Logging.Format))
	return nil
}
