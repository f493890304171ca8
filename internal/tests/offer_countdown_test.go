package tests

import (
	"context"
	"sync"
	"testing"
	"time"

	"driverapp/internal/clock"
	"driverapp/internal/coordinator"
	"driverapp/internal/offer"
)

// ──────────────────────────────────────────────
// OFFER COUNTDOWN AND RESOLUTION RACE
// ──────────────────────────────────────────────

type offerFixture struct {
	clk        *clock.Mock
	dispatcher *MockDispatcher
	trips      *coordinator.Coordinator
	ctrl       *offer.Controller
}

func newOfferFixture(t *testing.T) *offerFixture {
	t.Helper()
	f := &offerFixture{
		clk:        clock.NewMock(),
		dispatcher: NewMockDispatcher(),
		trips:      coordinator.New(discardLogger()),
	}
	f.ctrl = offer.NewController(f.clk, f.dispatcher, f.trips, discardLogger())
	return f
}

// startCounting kicks off the countdown and waits for the timer goroutine to
// arm its ticker so Advance cannot outrun it.
func (f *offerFixture) startCounting(t *testing.T) {
	t.Helper()
	f.ctrl.StartCountdown()
	waitFor(t, time.Second, func() bool { return f.clk.Tickers() == 1 }, "countdown ticker armed")
}

func TestOffer_StartsAtFullCountdown(t *testing.T) {
	t.Parallel()

	f := newOfferFixture(t)
	f.startCounting(t)

	st := f.ctrl.State()
	if st.Phase != offer.PhaseCounting {
		t.Fatalf("expected counting phase, got %v", st.Phase)
	}
	if st.SecondsRemaining != offer.CountdownSeconds {
		t.Errorf("expected %d seconds, got %d", offer.CountdownSeconds, st.SecondsRemaining)
	}
	if st.Resolved() {
		t.Error("fresh countdown must not be resolved")
	}
}

func TestOffer_TimesOutWhenCountdownExpires(t *testing.T) {
	t.Parallel()

	f := newOfferFixture(t)
	f.startCounting(t)

	f.clk.Advance(44 * time.Second)
	waitFor(t, time.Second, func() bool { return f.ctrl.State().SecondsRemaining == 1 }, "one second left")
	if f.ctrl.State().Resolved() {
		t.Fatal("offer resolved before the countdown expired")
	}

	f.clk.Advance(time.Second)
	waitFor(t, time.Second, func() bool { return f.ctrl.State().Resolved() }, "offer resolved")

	st := f.ctrl.State()
	if st.Outcome.Kind != offer.OutcomeTimedOut {
		t.Errorf("expected timeout outcome, got %v", st.Outcome.Kind)
	}
	if st.SecondsRemaining != 0 {
		t.Errorf("expected 0 seconds remaining, got %d", st.SecondsRemaining)
	}
	if f.dispatcher.AcceptCallCount != 0 || f.dispatcher.RejectCallCount != 0 {
		t.Error("timeout must not call the platform")
	}
}

func TestOffer_NoStateChangeAfterResolution(t *testing.T) {
	t.Parallel()

	f := newOfferFixture(t)
	f.startCounting(t)

	f.clk.Advance(45 * time.Second)
	waitFor(t, time.Second, func() bool { return f.ctrl.State().Resolved() }, "offer resolved")
	resolved := f.ctrl.State()

	// Time keeps moving; the resolved offer must not.
	f.clk.Advance(30 * time.Second)
	after := f.ctrl.State()
	if after != resolved {
		t.Errorf("state changed after resolution: %+v -> %+v", resolved, after)
	}
}

func TestOffer_AcceptWinsAndLandsTrip(t *testing.T) {
	t.Parallel()

	f := newOfferFixture(t)
	f.dispatcher.Trip = sampleTrip(77)
	f.startCounting(t)

	// Accept deep into the countdown.
	f.clk.Advance(44 * time.Second)
	waitFor(t, time.Second, func() bool { return f.ctrl.State().SecondsRemaining == 1 }, "one second left")

	st := f.ctrl.Accept(context.Background(), "b-77")
	if st.Outcome == nil || st.Outcome.Kind != offer.OutcomeAccepted {
		t.Fatalf("expected accepted outcome, got %+v", st.Outcome)
	}
	if st.Outcome.Trip == nil || st.Outcome.Trip.TripID != 77 {
		t.Error("accepted outcome should carry the trip")
	}
	if f.dispatcher.LastBookingID != "b-77" {
		t.Errorf("expected booking b-77 sent, got %q", f.dispatcher.LastBookingID)
	}

	// The trip is in the coordinator slot.
	current := f.trips.Current()
	if current == nil || current.TripID != 77 {
		t.Error("accepted trip not in coordinator slot")
	}

	// The cancelled timer must never produce a late timeout.
	f.clk.Advance(60 * time.Second)
	if f.ctrl.State().Outcome.Kind != offer.OutcomeAccepted {
		t.Error("outcome changed after acceptance")
	}
}

func TestOffer_AcceptFailureResolvesWithError(t *testing.T) {
	t.Parallel()

	f := newOfferFixture(t)
	f.dispatcher.AcceptError = ErrMockTimeout
	f.startCounting(t)

	st := f.ctrl.Accept(context.Background(), "b-1")
	if st.Outcome == nil || st.Outcome.Kind != offer.OutcomeError {
		t.Fatalf("expected error outcome, got %+v", st.Outcome)
	}
	if st.Outcome.Reason == "" {
		t.Error("error outcome should carry a reason")
	}
	if !st.Resolved() {
		t.Error("failed accept must still resolve so the offer screen closes")
	}
	if f.trips.Current() != nil {
		t.Error("failed accept must not land a trip")
	}
}

func TestOffer_RejectResolvesEvenWhenServerFails(t *testing.T) {
	t.Parallel()

	f := newOfferFixture(t)
	f.dispatcher.RejectError = ErrMockTimeout
	f.startCounting(t)

	st := f.ctrl.Reject(context.Background(), "b-1")
	if st.Outcome == nil || st.Outcome.Kind != offer.OutcomeRejected {
		t.Fatalf("expected rejected outcome, got %+v", st.Outcome)
	}
	if f.dispatcher.RejectCallCount != 1 {
		t.Errorf("expected 1 reject call, got %d", f.dispatcher.RejectCallCount)
	}
}

func TestOffer_AcceptAfterTimeoutLosesRace(t *testing.T) {
	t.Parallel()

	f := newOfferFixture(t)
	f.dispatcher.Trip = sampleTrip(88)
	f.startCounting(t)

	f.clk.Advance(45 * time.Second)
	waitFor(t, time.Second, func() bool { return f.ctrl.State().Resolved() }, "offer timed out")

	// The tap still issues a request; only the state transition is guarded.
	st := f.ctrl.Accept(context.Background(), "b-88")
	if st.Outcome.Kind != offer.OutcomeTimedOut {
		t.Errorf("timeout should hold as the winning outcome, got %v", st.Outcome.Kind)
	}
	if f.dispatcher.AcceptCallCount != 1 {
		t.Errorf("expected the late accept to still reach the platform, got %d calls", f.dispatcher.AcceptCallCount)
	}
	if f.trips.Current() != nil {
		t.Error("a losing accept must not land a trip")
	}
}

func TestOffer_ConcurrentAcceptAndRejectHaveOneWinner(t *testing.T) {
	t.Parallel()

	f := newOfferFixture(t)
	f.dispatcher.Trip = sampleTrip(90)
	f.startCounting(t)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		f.ctrl.Accept(context.Background(), "b-90")
	}()
	go func() {
		defer wg.Done()
		f.ctrl.Reject(context.Background(), "b-90")
	}()
	wg.Wait()

	st := f.ctrl.State()
	if st.Outcome == nil {
		t.Fatal("race finished without a terminal outcome")
	}
	switch st.Outcome.Kind {
	case offer.OutcomeAccepted:
		if current := f.trips.Current(); current == nil || current.TripID != 90 {
			t.Error("accept won but trip not in coordinator slot")
		}
	case offer.OutcomeRejected:
		// The losing accept's trip must be discarded.
		if f.trips.Current() != nil {
			t.Error("reject won but the losing accept still landed a trip")
		}
	default:
		t.Errorf("unexpected outcome %v", st.Outcome.Kind)
	}

	// The winner is final; nothing mutates it afterwards.
	f.clk.Advance(60 * time.Second)
	if after := f.ctrl.State(); after.Outcome.Kind != st.Outcome.Kind {
		t.Error("terminal outcome changed after the race")
	}
}

func TestOffer_RestartResetsCountdown(t *testing.T) {
	t.Parallel()

	f := newOfferFixture(t)
	f.startCounting(t)

	f.clk.Advance(10 * time.Second)
	waitFor(t, time.Second, func() bool { return f.ctrl.State().SecondsRemaining == 35 }, "ten ticks consumed")

	f.ctrl.StartCountdown()
	waitFor(t, time.Second, func() bool {
		return f.ctrl.State().SecondsRemaining == offer.CountdownSeconds
	}, "countdown reset")

	// Only the fresh timer survives.
	waitFor(t, time.Second, func() bool { return f.clk.Tickers() == 1 }, "old ticker stopped")
	f.clk.Advance(time.Second)
	waitFor(t, time.Second, func() bool {
		return f.ctrl.State().SecondsRemaining == offer.CountdownSeconds-1
	}, "fresh countdown ticking")
}

func TestOffer_ListenerSeesEveryTick(t *testing.T) {
	t.Parallel()

	f := newOfferFixture(t)

	var mu seen
	f.ctrl.SetListener(func(st offer.State) {
		mu.record(st.SecondsRemaining)
	})

	f.startCounting(t)
	f.clk.Advance(3 * time.Second)
	waitFor(t, time.Second, func() bool { return mu.has(42) }, "third tick observed")

	for _, want := range []int{45, 44, 43, 42} {
		if !mu.has(want) {
			t.Errorf("listener missed tick at %d seconds", want)
		}
	}
}

// seen is a tiny concurrent set of observed countdown values.
type seen struct {
	mu     sync.Mutex
	values map[int]bool
}

func (s *seen) record(v int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.values == nil {
		s.values = make(map[int]bool)
	}
	s.values[v] = true
}

func (s *seen) has(v int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.values[v]
}
