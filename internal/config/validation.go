package config

import (
	"fmt"
	"strings"

	derrors "git.home.luguber.info/inful/echopipe/internal/foundation/errors"
)

// Validate checks the configuration and returns a config-category
// ClassifiedError describing the first problem found.
func (c *Config) Validate() error {
	return newConfigurationValidator(c).validate()
}

// configurationValidator coordinates validation across all configuration domains.
type configurationValidator struct {
	config *Config
}

func newConfigurationValidator(config *Config) *configurationValidator {
	return &configurationValidator{config: config}
}

func (cv *configurationValidator) validate() error {
	for _, check := range []func() error{
		cv.validateGenerator,
		cv.validateTransformer,
		cv.validateValidator,
		cv.validateFormatter,
		cv.validateMonitor,
		cv.validatePipeline,
	} {
		if err := check(); err != nil {
			return err
		}
	}
	return nil
}

func invalid(field, format string, args ...any) error {
	return derrors.ConfigError(fmt.Sprintf(format, args...)).
		WithContext("field", field).
		Build()
}

func (cv *configurationValidator) validateGenerator() error {
	g := cv.config.Generator
	if g.MaxTokens < 0 {
		return invalid("generator.max_tokens", "generator.max_tokens must not be negative: %d", g.MaxTokens)
	}
	if g.Temperature < 0 || g.Temperature > 2 {
		return invalid("generator.temperature", "generator.temperature must be between 0 and 2: %g", g.Temperature)
	}
	switch g.Truncation {
	case "structural", "raw":
	default:
		return invalid("generator.truncation", "unsupported generator.truncation: %s (want structural or raw)", g.Truncation)
	}
	return nil
}

func (cv *configurationValidator) validateTransformer() error {
	if len(cv.config.Transformer.Formats) == 0 {
		return invalid("transformer.formats", "transformer.formats must list at least one format")
	}
	return nil
}

func (cv *configurationValidator) validateValidator() error {
	v := cv.config.Validator
	if v.QualityThreshold < 0 || v.QualityThreshold > 1 {
		return invalid("validator.quality_threshold", "validator.quality_threshold must be between 0 and 1: %g", v.QualityThreshold)
	}
	s := v.Scoring
	if s.Base < 0 || s.Base > 1 {
		return invalid("validator.scoring.base", "validator.scoring.base must be between 0 and 1: %g", s.Base)
	}
	if s.MinLength < 0 || s.MaxLength <= 0 || s.MinLength > s.MaxLength {
		return invalid("validator.scoring.min_length", "validator.scoring length bounds are invalid: min=%d max=%d", s.MinLength, s.MaxLength)
	}
	penalties := []struct {
		name  string
		value float64
	}{
		{"short_penalty", s.ShortPenalty},
		{"long_penalty", s.LongPenalty},
		{"unknown_format_penalty", s.UnknownFormat},
		{"missing_heading_penalty", s.MissingHeading},
		{"missing_bold_penalty", s.MissingBold},
		{"invalid_html_penalty", s.InvalidHTMLStructure},
		{"missing_html_heading_penalty", s.MissingHTMLHeading},
		{"invalid_jsonld_penalty", s.InvalidJSONLD},
		{"irrelevant_penalty", s.Irrelevant},
	}
	for _, p := range penalties {
		if p.value < 0 {
			return invalid("validator.scoring."+p.name, "validator.scoring.%s must not be negative: %g", p.name, p.value)
		}
	}
	return nil
}

func (cv *configurationValidator) validateFormatter() error {
	f := cv.config.Formatter
	if strings.ContainsAny(f.NamingConvention, `/\`) {
		return invalid("formatter.naming_convention", "formatter.naming_convention must be a single path segment: %s", f.NamingConvention)
	}
	if f.S3.Enabled {
		if f.S3.Endpoint == "" {
			return invalid("formatter.s3.endpoint", "formatter.s3.endpoint is required when the mirror is enabled")
		}
		if f.S3.Bucket == "" {
			return invalid("formatter.s3.bucket", "formatter.s3.bucket is required when the mirror is enabled")
		}
	}
	return nil
}

func (cv *configurationValidator) validateMonitor() error {
	m := cv.config.Monitor
	switch m.Backend {
	case MonitorBackendMemory, MonitorBackendFile, MonitorBackendSQLite:
	case MonitorBackendPostgres:
		if strings.TrimSpace(m.DSN) == "" {
			return invalid("monitor.dsn", "monitor.dsn is required for the postgres backend")
		}
	default:
		return invalid("monitor.backend", "unsupported monitor.backend: %s (valid: %s)",
			m.Backend, strings.Join(monitorBackends.ValidKeys(), ", "))
	}
	if m.NATS.Enabled && strings.TrimSpace(m.NATS.URL) == "" {
		return invalid("monitor.nats.url", "monitor.nats.url is required when publishing is enabled")
	}
	return nil
}

func (cv *configurationValidator) validatePipeline() error {
	p := cv.config.Pipeline
	if p.StageLatency < 0 {
		return invalid("pipeline.stage_latency", "pipeline.stage_latency must not be negative: %s", p.StageLatency)
	}
	if NormalizeRetryBackoff(string(p.OutputRetry.Mode)) == "" {
		return invalid("pipeline.output_retry.mode", "unsupported pipeline.output_retry.mode: %s", p.OutputRetry.Mode)
	}
	if p.OutputRetry.MaxRetries < 0 {
		return invalid("pipeline.output_retry.max_retries", "pipeline.output_retry.max_retries must not be negative: %d", p.OutputRetry.MaxRetries)
	}
	return nil
}
