package clock

import (
	"sync"
	"time"
)

// Mock is a Clock whose time only moves when Advance is called. Tickers fire
// synchronously, in chronological order, as the virtual time passes their
// deadlines.
type Mock struct {
	mu      sync.Mutex
	now     time.Time
	tickers []*mockTicker
}

// NewMock returns a Mock starting at a fixed, arbitrary instant.
func NewMock() *Mock {
	return &Mock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

// Now returns the current virtual time.
func (m *Mock) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// Tickers reports how many live tickers are registered. Tests use it to wait
// until a goroutine has armed its ticker before advancing time.
func (m *Mock) Tickers() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tickers)
}

// NewTicker creates a ticker driven by Advance.
func (m *Mock) NewTicker(d time.Duration) Ticker {
	m.mu.Lock()
	defer m.mu.Unlock()
	t := &mockTicker{
		clock:    m,
		interval: d,
		next:     m.now.Add(d),
		ch:       make(chan time.Time, 64),
	}
	m.tickers = append(m.tickers, t)
	return t
}

// Advance moves the virtual clock forward, delivering every tick that falls
// within the window before returning. A brief yield gives tick consumers a
// chance to run between deliveries.
func (m *Mock) Advance(d time.Duration) {
	m.mu.Lock()
	target := m.now.Add(d)
	m.mu.Unlock()

	for {
		m.mu.Lock()
		var due *mockTicker
		for _, t := range m.tickers {
			if t.stopped {
				continue
			}
			if !t.next.After(target) && (due == nil || t.next.Before(due.next)) {
				due = t
			}
		}
		if due == nil {
			m.now = target
			m.mu.Unlock()
			break
		}
		m.now = due.next
		due.next = due.next.Add(due.interval)
		fireAt := m.now
		ch := due.ch
		m.mu.Unlock()

		select {
		case ch <- fireAt:
		default: // consumer is behind, matching time.Ticker drop semantics
		}
		time.Sleep(time.Millisecond)
	}
	time.Sleep(time.Millisecond)
}

func (m *Mock) removeTicker(t *mockTicker) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t.stopped = true
	kept := m.tickers[:0]
	for _, other := range m.tickers {
		if other != t {
			kept = append(kept, other)
		}
	}
	m.tickers = kept
}

type mockTicker struct {
	clock    *Mock
	interval time.Duration
	next     time.Time
	ch       chan time.Time
	stopped  bool
}

func (t *mockTicker) C() <-chan time.Time { return t.ch }
func (t *mockTicker) Stop()               { t.clock.removeTicker(t) }
