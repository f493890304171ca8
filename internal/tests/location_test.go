package tests

import (
	"testing"
	"time"

	"driverapp/internal/clock"
	"driverapp/internal/domain"
	"driverapp/internal/location"
)

// ──────────────────────────────────────────────
// PERIODIC LOCATION REPORTING
// ──────────────────────────────────────────────

type reporterFixture struct {
	clk      *clock.Mock
	src      *MockLocationSource
	api      *MockLocationAPI
	sess     *MockSession
	reporter *location.Reporter
}

func newReporterFixture(t *testing.T, interval time.Duration) *reporterFixture {
	t.Helper()
	f := &reporterFixture{
		clk:  clock.NewMock(),
		src:  NewMockLocationSource(-2.9761, 104.7754),
		api:  NewMockLocationAPI(),
		sess: NewLoggedInSession(7, "Pak Dedi", "token-7"),
	}
	f.reporter = location.NewReporter(f.clk, interval, f.src, f.api, f.sess, discardLogger())
	t.Cleanup(f.reporter.Stop)
	return f
}

func (f *reporterFixture) start(t *testing.T) {
	t.Helper()
	f.reporter.Start()
	waitFor(t, time.Second, func() bool { return f.clk.Tickers() == 1 }, "reporter ticker armed")
}

func TestReporter_SendsOneUpdatePerTick(t *testing.T) {
	t.Parallel()

	f := newReporterFixture(t, 15*time.Second)
	f.start(t)

	f.clk.Advance(45 * time.Second)
	waitFor(t, time.Second, func() bool { return f.api.UpdateCount() == 3 }, "three updates sent")

	if f.api.Updates[0].Latitude != -2.9761 {
		t.Errorf("unexpected latitude reported: %f", f.api.Updates[0].Latitude)
	}
}

func TestReporter_SkipsWhenLoggedOut(t *testing.T) {
	t.Parallel()

	f := newReporterFixture(t, 15*time.Second)
	f.sess.ID = domain.NoDriverID
	f.start(t)

	f.clk.Advance(60 * time.Second)
	time.Sleep(20 * time.Millisecond)

	// No identity, no GPS read, no round trip.
	if f.src.CallCount != 0 {
		t.Errorf("expected no GPS reads, got %d", f.src.CallCount)
	}
	if f.api.UpdateCount() != 0 {
		t.Errorf("expected no updates, got %d", f.api.UpdateCount())
	}
	if !f.reporter.Running() {
		t.Error("reporter should keep running while logged out")
	}
}

func TestReporter_FailuresAreSwallowed(t *testing.T) {
	t.Parallel()

	f := newReporterFixture(t, 15*time.Second)
	f.api.SetError(ErrMockTimeout)
	f.start(t)

	f.clk.Advance(30 * time.Second)
	waitFor(t, time.Second, func() bool { return f.src.CallCount == 2 }, "two attempts made")

	// The next scheduled tick is the only retry; the loop never dies.
	if !f.reporter.Running() {
		t.Error("reporter stopped on a send failure")
	}

	f.api.SetError(nil)
	f.clk.Advance(15 * time.Second)
	waitFor(t, time.Second, func() bool { return f.api.UpdateCount() == 1 }, "recovered on next tick")
}

func TestReporter_StopHaltsTicks(t *testing.T) {
	t.Parallel()

	f := newReporterFixture(t, 15*time.Second)
	f.start(t)

	f.clk.Advance(15 * time.Second)
	waitFor(t, time.Second, func() bool { return f.api.UpdateCount() == 1 }, "first update sent")

	f.reporter.Stop()
	f.clk.Advance(60 * time.Second)
	time.Sleep(20 * time.Millisecond)

	if got := f.api.UpdateCount(); got != 1 {
		t.Errorf("expected no updates after stop, got %d", got)
	}
	if f.reporter.Running() {
		t.Error("reporter still running after stop")
	}
}

func TestReporter_StartAndStopAreIdempotent(t *testing.T) {
	t.Parallel()

	f := newReporterFixture(t, 15*time.Second)
	f.start(t)
	f.reporter.Start() // no-op

	waitFor(t, time.Second, func() bool { return f.clk.Tickers() == 1 }, "single ticker for double start")

	f.reporter.Stop()
	f.reporter.Stop() // no-op
	if f.reporter.Running() {
		t.Error("reporter running after stop")
	}
}
