// Package clock abstracts time so countdown and reporting loops can run on a
// virtual clock in tests.
package clock

import "time"

// Ticker delivers ticks on C until stopped.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// Clock is a monotonic time source that can mint tickers.
type Clock interface {
	Now() time.Time
	NewTicker(d time.Duration) Ticker
}

// New returns a Clock backed by the wall clock.
func New() Clock {
	return &realClock{}
}

type realClock struct{}

func (*realClock) Now() time.Time { return time.Now() }

func (*realClock) NewTicker(d time.Duration) Ticker {
	return &realTicker{t: time.NewTicker(d)}
}

type realTicker struct {
	t *time.Ticker
}

func (r *realTicker) C() <-chan time.Time { return r.t.C }
func (r *realTicker) Stop()               { r.t.Stop() }
