// Package offer manages one live offer: a countdown racing against the
// driver's accept or reject.
package offer

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"driverapp/internal/clock"
	"driverapp/internal/domain"
)

// CountdownSeconds is how long a driver has to act on an offer.
const CountdownSeconds = 45

// Phase is the controller's lifecycle phase.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseCounting
	PhaseResolved
)

// OutcomeKind tags the terminal resolution of an offer.
type OutcomeKind int

const (
	OutcomeAccepted OutcomeKind = iota
	OutcomeRejected
	OutcomeTimedOut
	OutcomeError
)

// Outcome is the terminal result of an offer. Exactly one outcome wins;
// accept, reject and timeout are mutually exclusive.
type Outcome struct {
	Kind   OutcomeKind
	Trip   *domain.ActiveTrip // set for OutcomeAccepted
	Reason string             // set for OutcomeError
}

// State is an observable snapshot of the controller.
type State struct {
	Phase            Phase
	SecondsRemaining int
	Outcome          *Outcome
}

// Resolved reports whether a terminal outcome has been reached. The offer
// screen closes as soon as this is true, whatever the outcome.
func (s State) Resolved() bool { return s.Outcome != nil }

// Dispatcher is the slice of the API client the controller needs.
type Dispatcher interface {
	AcceptOffer(ctx context.Context, bookingID string) (*domain.ActiveTrip, error)
	RejectOffer(ctx context.Context, bookingID string) error
}

// TripSink receives the trip landed by a successful accept.
type TripSink interface {
	StartNewTrip(trip *domain.ActiveTrip)
}

// Controller runs the accept/reject/timeout race for a single offer.
type Controller struct {
	clk    clock.Clock
	api    Dispatcher
	trips  TripSink
	logger *slog.Logger

	mu        sync.Mutex
	state     State
	stopTimer chan struct{}
	listener  func(State)
}

// NewController creates an idle Controller.
func NewController(clk clock.Clock, api Dispatcher, trips TripSink, logger *slog.Logger) *Controller {
	return &Controller{
		clk:    clk,
		api:    api,
		trips:  trips,
		logger: logger,
		state:  State{Phase: PhaseIdle},
	}
}

// SetListener registers a callback invoked on every observable state update,
// including each countdown tick.
func (c *Controller) SetListener(fn func(State)) {
	c.mu.Lock()
	c.listener = fn
	c.mu.Unlock()
}

// State returns the current snapshot.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// StartCountdown begins (or restarts) the countdown. A running timer is
// cancelled first, so restarting is idempotent. When the counter reaches zero
// with no prior resolution the offer times out.
func (c *Controller) StartCountdown() {
	c.mu.Lock()
	c.cancelTimerLocked()
	c.state = State{Phase: PhaseCounting, SecondsRemaining: CountdownSeconds}
	stop := make(chan struct{})
	c.stopTimer = stop
	c.mu.Unlock()
	c.emit()

	go c.run(stop)
}

func (c *Controller) run(stop chan struct{}) {
	ticker := c.clk.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C():
			c.mu.Lock()
			// A cancelled timer must never surface another tick.
			if c.stopTimer != stop || c.state.Phase != PhaseCounting {
				c.mu.Unlock()
				return
			}
			c.state.SecondsRemaining--
			if c.state.SecondsRemaining <= 0 {
				c.state.SecondsRemaining = 0
				c.resolveLocked(&Outcome{Kind: OutcomeTimedOut})
				c.mu.Unlock()
				c.emit()
				return
			}
			c.mu.Unlock()
			c.emit()
		}
	}
}

// Accept cancels the timer and asks the platform for the trip. On success the
// trip is written into the coordinator and the offer resolves accepted; on
// failure it resolves with an error so the screen still closes. A resolution
// that lost the race is discarded. Duplicate taps issue duplicate requests;
// only the state transition is guarded.
func (c *Controller) Accept(ctx context.Context, bookingID string) State {
	c.mu.Lock()
	c.cancelTimerLocked()
	c.mu.Unlock()

	trip, err := c.api.AcceptOffer(ctx, bookingID)

	c.mu.Lock()
	defer func() {
		c.mu.Unlock()
		c.emit()
	}()
	if c.state.Resolved() {
		c.logger.Debug("accept lost the resolution race", "booking_id", bookingID)
		return c.state
	}
	if err != nil {
		c.logger.Error("accepting offer failed", "booking_id", bookingID, "error", err)
		c.resolveLocked(&Outcome{Kind: OutcomeError, Reason: err.Error()})
		return c.state
	}
	c.trips.StartNewTrip(trip)
	c.resolveLocked(&Outcome{Kind: OutcomeAccepted, Trip: trip})
	return c.state
}

// Reject cancels the timer and declines the offer. The server call is
// best-effort: a failed reject is swallowed and the offer still resolves
// rejected so the driver is never stuck on a dead offer screen.
func (c *Controller) Reject(ctx context.Context, bookingID string) State {
	c.mu.Lock()
	c.cancelTimerLocked()
	c.mu.Unlock()

	if err := c.api.RejectOffer(ctx, bookingID); err != nil {
		c.logger.Warn("rejecting offer failed, resolving anyway", "booking_id", bookingID, "error", err)
	}

	c.mu.Lock()
	defer func() {
		c.mu.Unlock()
		c.emit()
	}()
	if !c.state.Resolved() {
		c.resolveLocked(&Outcome{Kind: OutcomeRejected})
	}
	return c.state
}

// Close cancels any running timer; used on screen teardown.
func (c *Controller) Close() {
	c.mu.Lock()
	c.cancelTimerLocked()
	c.mu.Unlock()
}

func (c *Controller) resolveLocked(out *Outcome) {
	if c.state.Outcome != nil {
		return
	}
	c.cancelTimerLocked()
	c.state.Phase = PhaseResolved
	c.state.Outcome = out
}

func (c *Controller) cancelTimerLocked() {
	if c.stopTimer != nil {
		close(c.stopTimer)
		c.stopTimer = nil
	}
}

func (c *Controller) emit() {
	c.mu.Lock()
	fn := c.listener
	snapshot := c.state
	c.mu.Unlock()
	if fn != nil {
		fn(snapshot)
	}
}
