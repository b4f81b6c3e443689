package retry

import (
	"math/rand"
	"time"

	"github.com/vvka-141/pgingest/pkg/pgingest"
)

// Backoff spaces out retries: Initial grows by Factor on every attempt up
// to Max, then Jitter spreads the result by up to that fraction either way.
type Backoff struct {
	Initial time.Duration
	Max     time.Duration
	Factor  float64
	Jitter  float64

	// random returns values in [0, 1); nil means math/rand.
	random func() float64
}

// ConnectBackoff is the schedule used between connection attempts.
func ConnectBackoff() Backoff {
	return Backoff{
		Initial: pgingest.DefaultRetryInitialDelay,
		Max:     pgingest.DefaultRetryMaxDelay,
		Factor:  2,
		Jitter:  0.1,
	}
}

// Delay returns the pause before retry number attempt (zero-based).
func (b Backoff) Delay(attempt int) time.Duration {
	d := float64(b.Initial)
	limit := float64(b.Max)
	for i := 0; i < attempt && (limit <= 0 || d < limit); i++ {
		d *= b.Factor
	}
	if limit > 0 && d > limit {
		d = limit
	}

	if b.Jitter > 0 {
		random := b.random
		if random == nil {
			random = rand.Float64
		}
		d *= 1 + b.Jitter*(2*random()-1)
	}
	return time.Duration(d)
}
