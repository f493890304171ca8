// Package location reports periodic GPS samples to the platform while the
// driver is online.
package location

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"driverapp/internal/clock"
	"driverapp/internal/domain"
)

// Position is one GPS sample.
type Position struct {
	Latitude  float64
	Longitude float64
}

// Source supplies GPS samples; the actual positioning stack lives outside
// this client.
type Source interface {
	Current(ctx context.Context) (Position, error)
}

// API is the slice of the API client the reporter needs.
type API interface {
	UpdateLocation(ctx context.Context, driverID int, lat, lng float64) error
}

// Identity exposes the logged-in driver, if any.
type Identity interface {
	DriverID() int
}

// Reporter sends one location update per tick. Failures are logged and
// swallowed; the next scheduled tick is the only retry. It satisfies the
// dashboard's TrackingControl.
type Reporter struct {
	clk      clock.Clock
	interval time.Duration
	src      Source
	api      API
	sess     Identity
	logger   *slog.Logger

	mu   sync.Mutex
	stop chan struct{}
}

// NewReporter creates a stopped Reporter ticking at interval once started.
func NewReporter(clk clock.Clock, interval time.Duration, src Source, api API, sess Identity, logger *slog.Logger) *Reporter {
	return &Reporter{
		clk:      clk,
		interval: interval,
		src:      src,
		api:      api,
		sess:     sess,
		logger:   logger,
	}
}

// Start begins periodic reporting. Starting a running reporter is a no-op.
func (r *Reporter) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stop != nil {
		return
	}
	stop := make(chan struct{})
	r.stop = stop
	go r.run(stop)
	r.logger.Info("location reporting started", "interval", r.interval)
}

// Stop halts reporting. No tick is observable after Stop returns.
func (r *Reporter) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stop == nil {
		return
	}
	close(r.stop)
	r.stop = nil
	r.logger.Info("location reporting stopped")
}

// Running reports whether the reporter is active.
func (r *Reporter) Running() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stop != nil
}

func (r *Reporter) run(stop chan struct{}) {
	ticker := r.clk.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C():
			r.mu.Lock()
			cancelled := r.stop != stop
			r.mu.Unlock()
			if cancelled {
				return
			}
			r.report()
		}
	}
}

func (r *Reporter) report() {
	driverID := r.sess.DriverID()
	if driverID == domain.NoDriverID {
		// No identity, no round trip.
		r.logger.Debug("skipping location update, driver not logged in")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pos, err := r.src.Current(ctx)
	if err != nil {
		r.logger.Warn("reading position failed", "error", err)
		return
	}
	if err := r.api.UpdateLocation(ctx, driverID, pos.Latitude, pos.Longitude); err != nil {
		r.logger.Warn("sending location failed", "error", err)
		return
	}
	r.logger.Debug("location reported", "lat", pos.Latitude, "lng", pos.Longitude)
}
