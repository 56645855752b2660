package tasks

import "time"

// RetryPolicy controls how many times a verification task runs and how long to
// wait between attempts.
type RetryPolicy struct {
	MaxAttempts int
	BackoffBase time.Duration
	MaxBackoff  time.Duration
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		BackoffBase: 2 * time.Second,
		MaxBackoff:  time.Minute,
	}
}

// Delay returns the backoff before the attempt following `attempt` (1-based):
// base, 2*base, 4*base, ... capped at MaxBackoff.
func (p RetryPolicy) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := p.BackoffBase << (attempt - 1)
	if p.MaxBackoff > 0 && d > p.MaxBackoff {
		d = p.MaxBackoff
	}
	return d
}
