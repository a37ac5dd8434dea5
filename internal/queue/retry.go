package queue

import "time"

// RetryPolicy controls how failed job executions are redelivered: up to
// MaxAttempts total executions, with an exponentially growing delay between
// them.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	Multiplier  float64
}

// DefaultRetryPolicy matches the reference configuration: 3 attempts with a
// base delay doubling each retry.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		BaseDelay:   time.Second,
		Multiplier:  2,
	}
}

// MaxRetry converts the attempt ceiling into a redelivery count (the first
// execution is not a retry).
func (p RetryPolicy) MaxRetry() int {
	if p.MaxAttempts < 1 {
		return 0
	}
	return p.MaxAttempts - 1
}

// Delay returns the backoff before the given retry. retry counts from 1 for
// the first redelivery.
func (p RetryPolicy) Delay(retry int) time.Duration {
	if retry < 1 {
		retry = 1
	}

	d := p.BaseDelay
	for i := 1; i < retry; i++ {
		d = time.Duration(float64(d) * p.Multiplier)
	}
	return d
}
