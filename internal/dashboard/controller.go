// Package dashboard owns the driver's operating state machine:
// Offline -> Searching -> InTrip and back.
package dashboard

import (
	"context"
	"log/slog"
	"sync"

	"driverapp/internal/coordinator"
	"driverapp/internal/domain"
)

// Phase is the dashboard's current mode.
type Phase int

const (
	PhaseOffline Phase = iota
	PhaseSearching
	PhaseInTrip
)

// State is an observable snapshot of the dashboard. Trip points at the
// coordinator's copy while InTrip and is nil otherwise.
type State struct {
	Phase Phase
	Trip  *domain.ActiveTrip
}

// OfferAlert is a new-offer notice surfaced while the dashboard is open,
// including while already InTrip. Acting on it routes through the offer
// controller; this layer does not block acceptance during a trip.
type OfferAlert struct {
	BookingID string
	Text      string
}

// API is the slice of the API client the dashboard needs.
type API interface {
	UpdateStatus(ctx context.Context, driverID int, status domain.DriverStatus) error
	CompletePickup(ctx context.Context, bookingID int) error
	CompleteTrip(ctx context.Context, tripID int) error
}

// Identity exposes the logged-in driver, if any.
type Identity interface {
	DriverID() int
}

// PermissionGate reports whether the OS location permission is granted.
type PermissionGate interface {
	LocationGranted() bool
}

// TrackingControl starts and stops the background location reporter.
type TrackingControl interface {
	Start()
	Stop()
}

// Controller runs the dashboard state machine.
type Controller struct {
	api      API
	sess     Identity
	trips    *coordinator.Coordinator
	perms    PermissionGate
	tracking TrackingControl
	logger   *slog.Logger

	mu       sync.Mutex
	state    State
	lastErr  string
	alert    *OfferAlert
	listener func(State)

	sub  *coordinator.Subscription
	done chan struct{}
}

// NewController creates a Controller in the Offline phase.
func NewController(api API, sess Identity, trips *coordinator.Coordinator, perms PermissionGate, tracking TrackingControl, logger *slog.Logger) *Controller {
	return &Controller{
		api:      api,
		sess:     sess,
		trips:    trips,
		perms:    perms,
		tracking: tracking,
		logger:   logger,
		state:    State{Phase: PhaseOffline},
	}
}

// Start subscribes to the trip coordinator. Whenever the slot becomes
// non-empty the dashboard moves to InTrip without any direct call; this is
// how acceptance elsewhere in the app surfaces here.
func (c *Controller) Start() {
	c.mu.Lock()
	if c.sub != nil {
		c.mu.Unlock()
		return
	}
	c.sub = c.trips.Subscribe()
	c.done = make(chan struct{})
	sub, done := c.sub, c.done
	c.mu.Unlock()

	go func() {
		for {
			select {
			case trip, ok := <-sub.C():
				if !ok {
					return
				}
				if trip == nil {
					continue
				}
				c.mu.Lock()
				c.state = State{Phase: PhaseInTrip, Trip: trip}
				c.mu.Unlock()
				c.emit()
			case <-done:
				return
			}
		}
	}()
}

// Close tears down the coordinator subscription.
func (c *Controller) Close() {
	c.mu.Lock()
	sub, done := c.sub, c.done
	c.sub, c.done = nil, nil
	c.mu.Unlock()
	if done != nil {
		close(done)
	}
	if sub != nil {
		c.trips.Unsubscribe(sub)
	}
}

// SetListener registers a callback invoked on every phase change.
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

// ErrorMessage returns the last user-visible error, or "".
func (c *Controller) ErrorMessage() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// SetOnlineStatus toggles Offline <-> Searching. Going online requires the
// location permission and a successful AKTIF status call, and then starts
// location tracking; going offline requires a successful NONAKTIF call and
// then stops tracking. On any failure the phase does not move and the error
// is surfaced, so a failed offline request leaves the driver Searching.
func (c *Controller) SetOnlineStatus(ctx context.Context, online bool) error {
	c.mu.Lock()
	c.lastErr = ""
	phase := c.state.Phase
	c.mu.Unlock()

	if online && phase != PhaseOffline {
		return ErrInvalidTransition
	}
	if !online && phase != PhaseSearching {
		return ErrInvalidTransition
	}

	driverID := c.sess.DriverID()
	if driverID == domain.NoDriverID {
		return c.fail(ErrNotLoggedIn)
	}
	if online && !c.perms.LocationGranted() {
		return c.fail(ErrLocationPermissionDenied)
	}

	status := domain.DriverStatusInactive
	if online {
		status = domain.DriverStatusActive
	}
	if err := c.api.UpdateStatus(ctx, driverID, status); err != nil {
		c.logger.Error("status update failed", "status", status, "error", err)
		return c.fail(err)
	}

	c.mu.Lock()
	if online {
		c.state = State{Phase: PhaseSearching}
	} else {
		c.state = State{Phase: PhaseOffline}
	}
	c.mu.Unlock()
	c.emit()

	if online {
		c.tracking.Start()
	} else {
		c.tracking.Stop()
	}
	c.logger.Info("driver status updated", "status", status)
	return nil
}

// CompletePickupTask marks one pickup of the active trip as done. On success
// the task's completed flag flips in place on the coordinator's copy; it is
// monotonic and never reverts. RemainingCapacity is left untouched; it is
// only refreshed when the server returns a new trip.
func (c *Controller) CompletePickupTask(ctx context.Context, bookingID int) error {
	c.mu.Lock()
	c.lastErr = ""
	trip := c.state.Trip
	inTrip := c.state.Phase == PhaseInTrip
	c.mu.Unlock()

	if !inTrip || trip == nil {
		return ErrNoActiveTrip
	}

	if err := c.api.CompletePickup(ctx, bookingID); err != nil {
		c.logger.Error("pickup completion failed", "booking_id", bookingID, "error", err)
		return c.fail(err)
	}

	c.mu.Lock()
	trip.CompleteTask(bookingID)
	c.mu.Unlock()
	c.emit()
	return nil
}

// FinishTrip completes the active trip. Task completion is a UI-enforced
// precondition: a premature call still fires and the server decides. On
// success the coordinator slot is cleared and the dashboard returns to
// Searching; on failure both stay as they were.
func (c *Controller) FinishTrip(ctx context.Context) error {
	c.mu.Lock()
	c.lastErr = ""
	trip := c.state.Trip
	inTrip := c.state.Phase == PhaseInTrip
	c.mu.Unlock()

	if !inTrip || trip == nil {
		return ErrNoActiveTrip
	}

	if err := c.api.CompleteTrip(ctx, trip.TripID); err != nil {
		c.logger.Error("trip completion failed", "trip_id", trip.TripID, "error", err)
		return c.fail(err)
	}

	c.trips.EndCurrentTrip()
	c.mu.Lock()
	c.state = State{Phase: PhaseSearching}
	c.mu.Unlock()
	c.emit()
	c.logger.Info("trip completed", "trip_id", trip.TripID)
	return nil
}

// ForceFinishTrip is the driver-initiated emergency exit: it clears the
// coordinator and returns to Searching unconditionally, regardless of task
// state. No server call is made, so the backend may still believe the trip
// is live.
func (c *Controller) ForceFinishTrip() {
	c.trips.EndCurrentTrip()
	c.mu.Lock()
	c.state = State{Phase: PhaseSearching}
	c.mu.Unlock()
	c.emit()
	c.logger.Warn("trip force-finished locally, server not notified")
}

// ShowOfferAlert surfaces a new-offer notice in any phase.
func (c *Controller) ShowOfferAlert(bookingID, text string) {
	c.mu.Lock()
	c.alert = &OfferAlert{BookingID: bookingID, Text: text}
	c.mu.Unlock()
}

// DismissOfferAlert clears the current notice.
func (c *Controller) DismissOfferAlert() {
	c.mu.Lock()
	c.alert = nil
	c.mu.Unlock()
}

// CurrentOfferAlert returns the surfaced notice, or nil.
func (c *Controller) CurrentOfferAlert() *OfferAlert {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.alert
}

func (c *Controller) fail(err error) error {
	c.mu.Lock()
	c.lastErr = err.Error()
	c.mu.Unlock()
	return err
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
