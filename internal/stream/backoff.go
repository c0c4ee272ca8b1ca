package stream

import "time"

// Backoff computes reconnect delays: min(Base * 2^(attempt-1), Cap).
type Backoff struct {
	Base time.Duration
	Cap  time.Duration

	// MaxAttempts is how many reconnects are tried after a failure before
	// the client gives up. Zero means retry forever.
	MaxAttempts int
}

// DefaultBackoff matches the dashboard's historical behavior.
var DefaultBackoff = Backoff{
	Base:        time.Second,
	Cap:         30 * time.Second,
	MaxAttempts: 10,
}

// Delay returns the wait before reconnect attempt n (1-based).
func (b Backoff) Delay(n int) time.Duration {
	if n < 1 {
		n = 1
	}
	if b.Base <= 0 {
		return 0
	}

	d := b.Base
	for i := 1; i < n; i++ {
		d *= 2
		if b.Cap > 0 && d >= b.Cap {
			return b.Cap
		}
		if d <= 0 {
			// overflow
			return b.Cap
		}
	}
	if b.Cap > 0 && d > b.Cap {
		return b.Cap
	}
	return d
}

// Exhausted reports whether failure number n is past the retry budget.
func (b Backoff) Exhausted(n int) bool {
	return b.MaxAttempts > 0 && n > b.MaxAttempts
}
