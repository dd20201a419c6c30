package errors

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifiedError(t *testing.T) {
	t.Run("Basic error creation", func(t *testing.T) {
		err := NewError(CategoryConfig, "invalid configuration").
			WithSeverity(SeverityFatal).
			WithContext("file", "echopipe.yaml").
			Build()

		assert.Equal(t, CategoryConfig, err.Category())
		assert.Equal(t, SeverityFatal, err.Severity())
		assert.Equal(t, "invalid configuration", err.Message())

		file, ok := err.Context().GetString("file")
		require.True(t, ok)
		assert.Equal(t, "echopipe.yaml", file)
		assert.Equal(t, "[config:fatal] invalid configuration (file=echopipe.yaml)", err.Error())
	})

	t.Run("Wrapped cause is reachable", func(t *testing.T) {
		cause := errors.New("disk full")
		err := WrapError(cause, CategoryOutput, "write rendering").Build()

		assert.ErrorIs(t, err, cause)
		assert.Contains(t, err.Error(), "disk full")
	})

	t.Run("Classification survives fmt wrapping", func(t *testing.T) {
		inner := GenerationError("template failed").Build()
		wrapped := fmt.Errorf("run 7: %w", inner)

		assert.True(t, IsClassified(wrapped))
		assert.True(t, HasCategory(wrapped, CategoryGeneration))
		assert.Equal(t, CategoryGeneration, GetCategory(wrapped))
		assert.Equal(t, SeverityFatal, GetSeverity(wrapped))
	})

	t.Run("Sentinel matching ignores context", func(t *testing.T) {
		sentinel := NotFoundError("record not found").Build()
		err := sentinel.WithContext("name", "execution_x.json")

		assert.ErrorIs(t, err, sentinel)
		_, hadName := sentinel.Context().Get("name")
		assert.False(t, hadName, "WithContext must not mutate the sentinel")
	})

	t.Run("Unclassified defaults", func(t *testing.T) {
		err := errors.New("plain")
		assert.Equal(t, CategoryInternal, GetCategory(err))
		assert.Equal(t, SeverityError, GetSeverity(err))
		assert.False(t, HasCategory(err, CategoryConfig))
	})
}

func TestErrorBuilderConvenience(t *testing.T) {
	assert.False(t, ConfigError("x").Build().CanRetry())
	assert.True(t, ConfigError("x").Build().IsFatal())
	assert.True(t, StorageError("x").Build().CanRetry())
	assert.False(t, MonitorError("x").Build().IsFatal())
}

func TestErrorContextMerge(t *testing.T) {
	a := ErrorContext{"a": 1, "b": 2}
	b := ErrorContext{"b": 3}

	merged := a.Merge(b)
	assert.Equal(t, 1, merged["a"])
	assert.Equal(t, 3, merged["b"])
	assert.Equal(t, 2, a["b"])

	var nilCtx ErrorContext
	assert.Equal(t, b, nilCtx.Merge(b))
}

func TestCLIErrorAdapter(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))

	cases := []struct {
		err  error
		code int
	}{
		{nil, 0},
		{errors.New("plain"), 1},
		{ValidationError("bad request").Build(), 2},
		{ConfigError("bad").Build(), 7},
		{StorageError("db down").Build(), 8},
		{InternalError("boom").Build(), 10},
		{OutputError("write").Build(), 11},
		{MonitorError("record").Build(), 12},
	}
	adapter := NewCLIErrorAdapter(false, logger)
	for _, tc := range cases {
		assert.Equal(t, tc.code, adapter.ExitCodeFor(tc.err), "%v", tc.err)
	}

	assert.Equal(t, "Configuration error: bad", adapter.FormatError(ConfigError("bad").Build()))
	assert.Equal(t, "Internal error occurred (use -v for details)", adapter.FormatError(InternalError("boom").Build()))

	var out bytes.Buffer
	exitCode := -1
	adapter.out = &out
	adapter.exit = func(code int) { exitCode = code }
	adapter.HandleError(OutputError("write rendering").WithCause(errors.New("denied")).Build())

	assert.Equal(t, 11, exitCode)
	assert.Equal(t, "Error (output): write rendering: denied\n", out.String())
	assert.Contains(t, logs.String(), "write rendering")
}
