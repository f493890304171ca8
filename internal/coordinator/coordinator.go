// Package coordinator owns the single process-wide slot for the currently
// active trip. It is the bridge between offer acceptance and the dashboard:
// whoever lands a trip writes it here, and every subscriber observes the
// replacement.
package coordinator

import (
	"log/slog"
	"sync"

	"driverapp/internal/domain"
)

// Coordinator is the single source of truth for the active trip. Writes are
// last-writer-wins; the slot carries no merge logic.
type Coordinator struct {
	mu      sync.Mutex
	current *domain.ActiveTrip
	subs    map[int]*Subscription
	nextID  int
	logger  *slog.Logger
}

// New creates an empty Coordinator.
func New(logger *slog.Logger) *Coordinator {
	return &Coordinator{
		subs:   make(map[int]*Subscription),
		logger: logger,
	}
}

// Current returns the trip in the slot, or nil. The returned value is the
// coordinator's own copy; controllers read and write through it rather than
// holding independent snapshots.
func (c *Coordinator) Current() *domain.ActiveTrip {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// StartNewTrip unconditionally replaces the slot. Replacing a live trip is
// not prevented here; that hazard is the caller's to manage.
func (c *Coordinator) StartNewTrip(trip *domain.ActiveTrip) {
	c.mu.Lock()
	if c.current != nil {
		c.logger.Warn("replacing active trip in coordinator slot",
			"old_trip_id", c.current.TripID, "new_trip_id", trip.TripID)
	}
	c.current = trip
	c.notifyLocked(trip)
	c.mu.Unlock()
}

// EndCurrentTrip clears the slot.
func (c *Coordinator) EndCurrentTrip() {
	c.mu.Lock()
	c.current = nil
	c.notifyLocked(nil)
	c.mu.Unlock()
}

// Subscribe registers an observer. Every replacement after this call is
// delivered on the subscription channel in order, including no-op
// replacements with an unchanged trip ID; delivery is at-least-once, never
// change-filtered. Callers must Unsubscribe when done.
func (c *Coordinator) Subscribe() *Subscription {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.nextID++
	sub := &Subscription{
		id:   c.nextID,
		ch:   make(chan *domain.ActiveTrip),
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
	c.subs[sub.id] = sub
	go sub.pump()
	return sub
}

// Unsubscribe tears down a subscription and closes its channel.
func (c *Coordinator) Unsubscribe(sub *Subscription) {
	c.mu.Lock()
	delete(c.subs, sub.id)
	c.mu.Unlock()
	sub.stop()
}

func (c *Coordinator) notifyLocked(trip *domain.ActiveTrip) {
	for _, sub := range c.subs {
		sub.enqueue(trip)
	}
}

// Subscription delivers slot replacements to one observer. Order is
// preserved per subscriber and the queue is unbounded, so a slow observer
// delays its own delivery but never loses an update.
type Subscription struct {
	id   int
	mu   sync.Mutex
	buf  []*domain.ActiveTrip
	ch   chan *domain.ActiveTrip
	wake chan struct{}
	done chan struct{}
}

// C is the delivery channel. A nil value means the slot was cleared.
func (s *Subscription) C() <-chan *domain.ActiveTrip { return s.ch }

func (s *Subscription) enqueue(trip *domain.ActiveTrip) {
	s.mu.Lock()
	s.buf = append(s.buf, trip)
	s.mu.Unlock()
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *Subscription) pump() {
	defer close(s.ch)
	for {
		s.mu.Lock()
		for len(s.buf) > 0 {
			trip := s.buf[0]
			s.buf = s.buf[1:]
			s.mu.Unlock()
			select {
			case s.ch <- trip:
			case <-s.done:
				return
			}
			s.mu.Lock()
		}
		s.mu.Unlock()

		select {
		case <-s.wake:
		case <-s.done:
			return
		}
	}
}

func (s *Subscription) stop() {
	select {
	case <-s.done:
	default:
		close(s.done)
	}
}
