package buttons

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLine(t *testing.T) {
	tests := []struct {
		line string
		want Press
	}{
		{"P1:+1", Press{Key: "P1", Delta: 1}},
		{"P4:-1", Press{Key: "P4", Delta: -1}},
		{"  p2:-1\r", Press{Key: "P2", Delta: -1}},
		{"P3: 1", Press{Key: "P3", Delta: 1}},
	}

	for _, tc := range tests {
		t.Run(tc.line, func(t *testing.T) {
			got, err := ParseLine(tc.line)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestParseLine_Rejects(t *testing.T) {
	for _, line := range []string{"", "P1", "P1:+2", "P1:0", "X1:+1", "P:+1", "Pa:+1", "P1:up", "booting..."} {
		_, err := ParseLine(line)
		assert.ErrorIs(t, err, ErrMalformed, "line %q", line)
	}
}

func TestPressString(t *testing.T) {
	assert.Equal(t, "P1:+1", Press{Key: "P1", Delta: 1}.String())
	assert.Equal(t, "P2:-1", Press{Key: "P2", Delta: -1}.String())
}
