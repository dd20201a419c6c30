package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/echopipe/internal/config"
)

func TestDefaultPolicy(t *testing.T) {
	p := DefaultPolicy()
	assert.Equal(t, config.RetryBackoffLinear, p.Mode)
	assert.Equal(t, 100*time.Millisecond, p.Initial)
	assert.Equal(t, 2*time.Second, p.Max)
	assert.Equal(t, 2, p.MaxRetries)
	require.NoError(t, p.Validate())
}

func TestFromConfigClampsInitial(t *testing.T) {
	p := FromConfig(config.RetryConfig{Mode: "FIXED", Initial: 5 * time.Second, Max: 2 * time.Second, MaxRetries: 5})
	assert.Equal(t, config.RetryBackoffFixed, p.Mode)
	assert.Equal(t, 2*time.Second, p.Initial)
	assert.Equal(t, 5, p.MaxRetries)

	unknown := FromConfig(config.RetryConfig{Mode: "random", MaxRetries: -1})
	assert.Equal(t, DefaultPolicy(), unknown)
}

func TestDelayModes(t *testing.T) {
	fixed := Policy{Mode: config.RetryBackoffFixed, Initial: 100 * time.Millisecond, Max: 500 * time.Millisecond}
	linear := Policy{Mode: config.RetryBackoffLinear, Initial: 100 * time.Millisecond, Max: 250 * time.Millisecond}
	exp := Policy{Mode: config.RetryBackoffExponential, Initial: 100 * time.Millisecond, Max: 350 * time.Millisecond}

	assert.Zero(t, fixed.Delay(0))
	assert.Equal(t, 100*time.Millisecond, fixed.Delay(3))
	assert.Equal(t, 200*time.Millisecond, linear.Delay(2))
	assert.Equal(t, 250*time.Millisecond, linear.Delay(3))
	assert.Equal(t, 200*time.Millisecond, exp.Delay(2))
	assert.Equal(t, 350*time.Millisecond, exp.Delay(3))
	assert.Equal(t, 350*time.Millisecond, exp.Delay(80), "overflow is capped")
}

func TestDoRetriesRetryableErrors(t *testing.T) {
	p := Policy{Mode: config.RetryBackoffFixed, Initial: time.Millisecond, Max: time.Millisecond, MaxRetries: 3}
	transient := errors.New("transient")
	calls := 0
	err := p.Do(t.Context(), "write", func(error) bool { return true }, func(context.Context) error {
		calls++
		if calls < 3 {
			return transient
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDoStopsOnPermanentError(t *testing.T) {
	p := Policy{Mode: config.RetryBackoffFixed, Initial: time.Millisecond, Max: time.Millisecond, MaxRetries: 3}
	permanent := errors.New("permanent")
	calls := 0
	err := p.Do(t.Context(), "write", func(error) bool { return false }, func(context.Context) error {
		calls++
		return permanent
	})
	require.ErrorIs(t, err, permanent)
	assert.Equal(t, 1, calls)
}

func TestDoExhaustsRetries(t *testing.T) {
	p := Policy{Mode: config.RetryBackoffFixed, Initial: time.Millisecond, Max: time.Millisecond, MaxRetries: 2}
	calls := 0
	err := p.Do(t.Context(), "write", func(error) bool { return true }, func(context.Context) error {
		calls++
		return errors.New("still failing")
	})
	require.Error(t, err)
	assert.Equal(t, 3, calls)
}

func TestDoHonoursCancellation(t *testing.T) {
	p := Policy{Mode: config.RetryBackoffFixed, Initial: time.Hour, Max: time.Hour, MaxRetries: 5}
	ctx, cancel := context.WithCancel(t.Context())
	calls := 0
	err := p.Do(ctx, "write", func(error) bool { return true }, func(context.Context) error {
		calls++
		cancel()
		return errors.New("fail")
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}
