package queue

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDefaultRetryPolicy(t *testing.T) {
	p := DefaultRetryPolicy()

	assert.Equal(t, 3, p.MaxAttempts)
	assert.Equal(t, time.Second, p.BaseDelay)
	assert.Equal(t, float64(2), p.Multiplier)
}

func TestMaxRetry(t *testing.T) {
	assert.Equal(t, 2, RetryPolicy{MaxAttempts: 3}.MaxRetry())
	assert.Equal(t, 0, RetryPolicy{MaxAttempts: 1}.MaxRetry())
	assert.Equal(t, 0, RetryPolicy{MaxAttempts: 0}.MaxRetry())
}

func TestDelayDoublesEachRetry(t *testing.T) {
	p := RetryPolicy{MaxAttempts: 5, BaseDelay: time.Second, Multiplier: 2}

	assert.Equal(t, time.Second, p.Delay(1))
	assert.Equal(t, 2*time.Second, p.Delay(2))
	assert.Equal(t, 4*time.Second, p.Delay(3))
	assert.Equal(t, 8*time.Second, p.Delay(4))
}

func TestDelayClampsInvalidRetry(t *testing.T) {
	p := RetryPolicy{MaxAttempts: 3, BaseDelay: 500 * time.Millisecond, Multiplier: 2}

	assert.Equal(t, p.Delay(1), p.Delay(0))
	assert.Equal(t, p.Delay(1), p.Delay(-4))
}
