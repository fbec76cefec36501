package tokenize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEstimate(t *testing.T) {
	tests := []struct {
		name string
		text string
		want int
	}{
		{"empty", "", 0},
		{"whitespace only", "   \n\t", 0},
		{"short word", "id", 1},
		{"four chars", "name", 1},
		{"five chars", "total", 2},
		{"words and punctuation", "a := b;", 1 + 2 + 1 + 1}, // a, :, =, b, ; -> :=; counts 3 punct
		{"sql line", "SELECT id FROM t;", 2 + 1 + 1 + 1 + 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Estimate(tt.text)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEstimate_Deterministic(t *testing.T) {
	text := "BEGIN\n  UPDATE accounts SET balance = balance - 10;\nEND;"
	a, err := Estimate(text)
	require.NoError(t, err)
	b, err := Estimate(text)
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Positive(t, a)
}
