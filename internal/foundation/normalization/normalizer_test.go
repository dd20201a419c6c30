package normalization

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type color string

const (
	red   color = "red"
	green color = "green"
)

func newColors() *Normalizer[color] {
	return NewNormalizer(map[string]color{
		"red":     red,
		"crimson": red,
		"Green":   green,
	}, "")
}

func TestNormalize(t *testing.T) {
	n := newColors()
	tests := []struct {
		input string
		want  color
	}{
		{"red", red},
		{"  RED ", red},
		{"crimson", red},
		{"green", green},
		{"blue", ""},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, n.Normalize(tt.input))
		})
	}
}

func TestNormalizeWithError(t *testing.T) {
	n := newColors()
	v, err := n.NormalizeWithError("Crimson")
	require.NoError(t, err)
	assert.Equal(t, red, v)

	_, err = n.NormalizeWithError("blue")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "crimson, green, red")
}

func TestValidKeysIsACopy(t *testing.T) {
	n := newColors()
	keys := n.ValidKeys()
	keys[0] = "mutated"
	assert.Equal(t, []string{"crimson", "green", "red"}, n.ValidKeys())
}
