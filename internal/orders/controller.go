// Package orders lets an online driver take work without a pushed offer:
// claimable schedules and on-the-spot bookings.
package orders

import (
	"context"
	"log/slog"
	"strconv"

	"driverapp/internal/domain"
)

// API is the slice of the API client this controller needs.
type API interface {
	Schedules(ctx context.Context) ([]domain.Schedule, error)
	ClaimSchedule(ctx context.Context, scheduleID int) (*domain.ActiveTrip, error)
	AvailableBookings(ctx context.Context) ([]domain.AvailableOrder, error)
	AcceptOffer(ctx context.Context, bookingID string) (*domain.ActiveTrip, error)
}

// TripSink receives a claimed or accepted trip.
type TripSink interface {
	StartNewTrip(trip *domain.ActiveTrip)
}

// ClaimResult is the tagged outcome of a schedule claim.
type ClaimResult struct {
	Claimed bool
	Trip    *domain.ActiveTrip
	Message string // user-visible reason when not claimed
}

// Controller fetches and claims non-pushed work.
type Controller struct {
	api    API
	trips  TripSink
	logger *slog.Logger
}

// NewController creates a Controller.
func NewController(api API, trips TripSink, logger *slog.Logger) *Controller {
	return &Controller{api: api, trips: trips, logger: logger}
}

// FetchSchedules lists claimable departures.
func (c *Controller) FetchSchedules(ctx context.Context) ([]domain.Schedule, error) {
	return c.api.Schedules(ctx)
}

// ClaimSchedule claims a departure. A successful claim lands the trip in the
// coordinator exactly like an accepted offer; a failed claim is reported as
// a user-visible message, not a crash.
func (c *Controller) ClaimSchedule(ctx context.Context, scheduleID int) ClaimResult {
	trip, err := c.api.ClaimSchedule(ctx, scheduleID)
	if err != nil {
		c.logger.Warn("claiming schedule failed", "schedule_id", scheduleID, "error", err)
		return ClaimResult{Message: "schedule no longer available"}
	}
	c.trips.StartNewTrip(trip)
	return ClaimResult{Claimed: true, Trip: trip}
}

// FetchAvailableOrders lists on-the-spot bookings.
func (c *Controller) FetchAvailableOrders(ctx context.Context) ([]domain.AvailableOrder, error) {
	return c.api.AvailableBookings(ctx)
}

// AcceptAvailableOrder takes an on-the-spot booking through the same accept
// path a pushed offer uses.
func (c *Controller) AcceptAvailableOrder(ctx context.Context, bookingID int) (*domain.ActiveTrip, error) {
	trip, err := c.api.AcceptOffer(ctx, strconv.Itoa(bookingID))
	if err != nil {
		return nil, err
	}
	c.trips.StartNewTrip(trip)
	return trip, nil
}
