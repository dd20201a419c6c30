package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	derrors "git.home.luguber.info/inful/echopipe/internal/foundation/errors"
	"git.home.luguber.info/inful/echopipe/internal/quality"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "echopipe.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, CurrentVersion, cfg.Version)
	assert.Equal(t, []string{"markdown", "html", "jsonld"}, cfg.Transformer.Formats)
	assert.InDelta(t, 0.8, cfg.Validator.QualityThreshold, 1e-12)
	assert.True(t, cfg.Validator.ConsistencyCheck)
	assert.Equal(t, quality.DefaultScoring(), cfg.Validator.Scoring.Policy())
	assert.Equal(t, "iteration-{iteration}", cfg.Formatter.NamingConvention)
	assert.Equal(t, MonitorBackendFile, cfg.Monitor.Backend)
	assert.Equal(t, DefaultHistoryLimit, cfg.Monitor.HistoryLimit)
	assert.Equal(t, LogLevelInfo, cfg.Logging.Level)
}

func TestLoadPartialOverridesKeepDefaults(t *testing.T) {
	path := writeConfig(t, `
generator:
  model: echo-small
  truncation: RAW
transformer:
  formats: [HTML, markdown, html, ""]
validator:
  quality_threshold: 0.6
  scoring:
    base: 0.9
    missing_bold_penalty: 0
monitor:
  backend: SQLite
  metrics_dir: /var/lib/echopipe
pipeline:
  stage_latency: 250ms
logging:
  level: DEBUG
  format: json
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "echo-small", cfg.Generator.Model)
	assert.Equal(t, DefaultMaxTokens, cfg.Generator.MaxTokens)
	assert.Equal(t, "raw", cfg.Generator.Truncation)
	assert.Equal(t, []string{"html", "markdown"}, cfg.Transformer.Formats)
	assert.InDelta(t, 0.6, cfg.Validator.QualityThreshold, 1e-12)
	assert.InDelta(t, 0.9, cfg.Validator.Scoring.Base, 1e-12)
	assert.Zero(t, cfg.Validator.Scoring.MissingBold)
	assert.InDelta(t, 0.3, cfg.Validator.Scoring.MissingHeading, 1e-12)
	assert.Equal(t, MonitorBackendSQLite, cfg.Monitor.Backend)
	assert.Equal(t, filepath.Join("/var/lib/echopipe", "monitor.db"), cfg.Monitor.DSN)
	assert.Equal(t, 250*time.Millisecond, cfg.Pipeline.StageLatency)
	assert.Equal(t, LogLevelDebug, cfg.Logging.Level)
	assert.Equal(t, LogFormatJSON, cfg.Logging.Format)
}

func TestLoadExpandsEnvironment(t *testing.T) {
	t.Setenv("ECHOPIPE_TEST_BUCKET", "renderings")
	path := writeConfig(t, `
formatter:
  s3:
    enabled: true
    endpoint: localhost:9000
    bucket: ${ECHOPIPE_TEST_BUCKET}
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "renderings", cfg.Formatter.S3.Bucket)
}

func TestLoadEnvFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile(".env", []byte("ECHOPIPE_TEST_MODEL=from-dotenv\n"), 0o600))
	t.Cleanup(func() { _ = os.Unsetenv("ECHOPIPE_TEST_MODEL") })
	require.NoError(t, os.WriteFile("echopipe.yaml", []byte("generator:\n  model: ${ECHOPIPE_TEST_MODEL}\n"), 0o600))

	cfg, err := Load("echopipe.yaml")
	require.NoError(t, err)
	assert.Equal(t, "from-dotenv", cfg.Generator.Model)
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "generator: [unterminated"))
	require.Error(t, err)
	assert.True(t, derrors.HasCategory(err, derrors.CategoryConfig))
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"threshold above one", func(c *Config) { c.Validator.QualityThreshold = 1.5 }, "validator.quality_threshold"},
		{"negative penalty", func(c *Config) { c.Validator.Scoring.Irrelevant = -0.1 }, "validator.scoring.irrelevant_penalty"},
		{"inverted length bounds", func(c *Config) { c.Validator.Scoring.MinLength = 9000 }, "validator.scoring.min_length"},
		{"bad truncation", func(c *Config) { c.Generator.Truncation = "chop" }, "generator.truncation"},
		{"temperature", func(c *Config) { c.Generator.Temperature = 3 }, "generator.temperature"},
		{"no formats", func(c *Config) { c.Transformer.Formats = nil }, "transformer.formats"},
		{"nested naming", func(c *Config) { c.Formatter.NamingConvention = "runs/{iteration}" }, "formatter.naming_convention"},
		{"s3 without bucket", func(c *Config) { c.Formatter.S3 = S3Config{Enabled: true, Endpoint: "minio:9000"} }, "formatter.s3.bucket"},
		{"unknown backend", func(c *Config) { c.Monitor.Backend = "redis" }, "monitor.backend"},
		{"postgres without dsn", func(c *Config) { c.Monitor.Backend = MonitorBackendPostgres }, "monitor.dsn"},
		{"nats without url", func(c *Config) { c.Monitor.NATS.Enabled = true }, "monitor.nats.url"},
		{"negative latency", func(c *Config) { c.Pipeline.StageLatency = -time.Second }, "pipeline.stage_latency"},
		{"unknown backoff", func(c *Config) { c.Pipeline.OutputRetry.Mode = "random" }, "pipeline.output_retry.mode"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.True(t, derrors.HasCategory(err, derrors.CategoryConfig))
			var ce *derrors.ClassifiedError
			require.ErrorAs(t, err, &ce)
			field, ok := ce.Context().GetString("field")
			require.True(t, ok)
			assert.Equal(t, tc.field, field)
		})
	}

	require.NoError(t, Default().Validate())
}

func TestInitWritesLoadableDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conf", "echopipe.yaml")
	require.NoError(t, Init(path, false))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)

	err = Init(path, false)
	require.Error(t, err)
	assert.True(t, derrors.HasCategory(err, derrors.CategoryConfig))
	require.NoError(t, Init(path, true))
}

func TestNormalizers(t *testing.T) {
	assert.Equal(t, MonitorBackendPostgres, NormalizeMonitorBackend("PostgreSQL"))
	assert.Equal(t, MonitorBackendFile, NormalizeMonitorBackend(" file "))
	assert.Empty(t, NormalizeMonitorBackend("redis"))
	assert.Equal(t, LogLevelWarn, NormalizeLogLevel("warning"))
	assert.Equal(t, LogLevelInfo, NormalizeLogLevel("verbose"))
	assert.Equal(t, LogFormatText, NormalizeLogFormat("xml"))
}
