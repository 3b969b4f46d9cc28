package connection

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackoffGrowsExponentially(t *testing.T) {
	b := NewBackoffWithConfig(BackoffConfig{
		Initial:    100 * time.Millisecond,
		Max:        1 * time.Second,
		Multiplier: 2.0,
		Jitter:     0, // deterministic
	})

	assert.Equal(t, 100*time.Millisecond, b.Next())
	assert.Equal(t, 200*time.Millisecond, b.Next())
	assert.Equal(t, 400*time.Millisecond, b.Next())
	assert.Equal(t, 800*time.Millisecond, b.Next())
	// Capped at Max from here on.
	assert.Equal(t, 1*time.Second, b.Next())
	assert.Equal(t, 1*time.Second, b.Next())
	assert.Equal(t, 6, b.Attempts())
}

func TestBackoffReset(t *testing.T) {
	b := NewBackoffWithConfig(BackoffConfig{
		Initial: 50 * time.Millisecond,
		Jitter:  0,
	})

	b.Next()
	b.Next()
	require.Equal(t, 2, b.Attempts())

	b.Reset()
	assert.Equal(t, 0, b.Attempts())
	assert.Equal(t, 50*time.Millisecond, b.Next())
}

func TestBackoffPeekDoesNotAdvance(t *testing.T) {
	b := NewBackoffWithConfig(BackoffConfig{
		Initial: 50 * time.Millisecond,
		Jitter:  0,
	})

	assert.Equal(t, 50*time.Millisecond, b.Peek())
	assert.Equal(t, 50*time.Millisecond, b.Peek())
	assert.Equal(t, 0, b.Attempts())
	assert.Equal(t, 50*time.Millisecond, b.Next())
}

func TestBackoffJitterStaysInRange(t *testing.T) {
	b := NewBackoffWithConfig(BackoffConfig{
		Initial: 100 * time.Millisecond,
		Jitter:  0.25,
	})

	for i := 0; i < 50; i++ {
		d := b.Peek()
		assert.GreaterOrEqual(t, d, 100*time.Millisecond)
		assert.LessOrEqual(t, d, 125*time.Millisecond)
	}
}

func TestBackoffDefaults(t *testing.T) {
	b := NewBackoff()
	assert.Equal(t, InitialBackoff, b.Current())
	assert.Equal(t, 0, b.Attempts())
}
