package tests

import (
	"context"
	"testing"

	"driverapp/internal/coordinator"
	"driverapp/internal/domain"
	"driverapp/internal/orders"
)

// ──────────────────────────────────────────────
// SCHEDULES AND AVAILABLE ORDERS
// ──────────────────────────────────────────────

func TestOrders_ClaimedScheduleLandsLikeAnAcceptedOffer(t *testing.T) {
	t.Parallel()

	api := NewMockOrdersAPI()
	api.ClaimTrip = sampleTrip(70)
	trips := coordinator.New(discardLogger())
	ctrl := orders.NewController(api, trips, discardLogger())

	res := ctrl.ClaimSchedule(context.Background(), 3)
	if !res.Claimed {
		t.Fatalf("expected claim to succeed: %+v", res)
	}
	if api.LastScheduleID != 3 {
		t.Errorf("expected schedule 3 claimed, got %d", api.LastScheduleID)
	}
	current := trips.Current()
	if current == nil || current.TripID != 70 {
		t.Error("claimed trip not in coordinator slot")
	}
}

func TestOrders_FailedClaimIsAMessageNotACrash(t *testing.T) {
	t.Parallel()

	api := NewMockOrdersAPI()
	api.ClaimError = ErrMockRejected
	trips := coordinator.New(discardLogger())
	ctrl := orders.NewController(api, trips, discardLogger())

	res := ctrl.ClaimSchedule(context.Background(), 3)
	if res.Claimed {
		t.Fatal("expected claim to fail")
	}
	if res.Message == "" {
		t.Error("failed claim should carry a user-visible message")
	}
	if trips.Current() != nil {
		t.Error("failed claim must not land a trip")
	}
}

func TestOrders_FetchSchedulesPassesThrough(t *testing.T) {
	t.Parallel()

	api := NewMockOrdersAPI()
	api.ScheduleList = []domain.Schedule{{ScheduleID: 1, Destination: "Indralaya", Capacity: 7, Passengers: 3}}
	ctrl := orders.NewController(api, coordinator.New(discardLogger()), discardLogger())

	schedules, err := ctrl.FetchSchedules(context.Background())
	if err != nil {
		t.Fatalf("fetching schedules failed: %v", err)
	}
	if len(schedules) != 1 || schedules[0].Destination != "Indralaya" {
		t.Errorf("unexpected schedules: %+v", schedules)
	}
}

func TestOrders_AcceptAvailableOrderUsesOfferAcceptPath(t *testing.T) {
	t.Parallel()

	api := NewMockOrdersAPI()
	api.AcceptTrip = sampleTrip(71)
	trips := coordinator.New(discardLogger())
	ctrl := orders.NewController(api, trips, discardLogger())

	trip, err := ctrl.AcceptAvailableOrder(context.Background(), 201)
	if err != nil {
		t.Fatalf("accepting order failed: %v", err)
	}
	// The booking ID travels as a string through the shared accept endpoint.
	if api.LastBookingID != "201" {
		t.Errorf("expected booking \"201\" sent, got %q", api.LastBookingID)
	}
	if trip.TripID != 71 {
		t.Errorf("unexpected trip: %+v", trip)
	}
	if current := trips.Current(); current == nil || current.TripID != 71 {
		t.Error("accepted order not in coordinator slot")
	}
}

func TestOrders_AcceptFailureLandsNothing(t *testing.T) {
	t.Parallel()

	api := NewMockOrdersAPI()
	api.AcceptError = ErrMockRejected
	trips := coordinator.New(discardLogger())
	ctrl := orders.NewController(api, trips, discardLogger())

	if _, err := ctrl.AcceptAvailableOrder(context.Background(), 201); err == nil {
		t.Fatal("expected accept to fail")
	}
	if trips.Current() != nil {
		t.Error("failed accept must not land a trip")
	}
}
