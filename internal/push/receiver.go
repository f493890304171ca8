// Package push receives offer notifications from the dispatch platform and
// turns them into in-app offers.
package push

import (
	"context"
	"encoding/json"
	"log/slog"

	"driverapp/internal/domain"
	"driverapp/internal/notify"
)

// Source is a transport delivering raw push payloads.
type Source interface {
	// Run reads messages and passes each raw payload to handle until ctx is
	// cancelled or the transport fails.
	Run(ctx context.Context, handle func([]byte)) error
}

// OfferSink receives decoded offers, typically routing them to the offer
// controller and the dashboard alert.
type OfferSink interface {
	HandleOffer(offer domain.Offer)
}

type payload struct {
	BookingID string `json:"bookingId"`
	Route     string `json:"route"`
	Fare      string `json:"fare"`
	Distance  string `json:"distance"`
}

// Receiver decodes pushed payloads and forwards valid offers to the notifier
// and the sink. A payload without a bookingId is discarded silently.
type Receiver struct {
	src      Source
	notifier notify.Notifier
	sink     OfferSink
	logger   *slog.Logger
}

// NewReceiver creates a Receiver on top of src.
func NewReceiver(src Source, notifier notify.Notifier, sink OfferSink, logger *slog.Logger) *Receiver {
	return &Receiver{
		src:      src,
		notifier: notifier,
		sink:     sink,
		logger:   logger,
	}
}

// Run consumes the source until ctx is cancelled or the transport fails.
func (r *Receiver) Run(ctx context.Context) error {
	return r.src.Run(ctx, r.handleMessage)
}

func (r *Receiver) handleMessage(data []byte) {
	var p payload
	if err := json.Unmarshal(data, &p); err != nil {
		r.logger.Warn("discarding undecodable push payload", "error", err)
		return
	}
	if p.BookingID == "" {
		r.logger.Debug("discarding push payload without bookingId")
		return
	}

	offer := domain.Offer{
		BookingID: p.BookingID,
		Route:     p.Route,
		Fare:      p.Fare,
		Distance:  p.Distance,
	}
	r.notifier.NotifyOffer(offer)
	r.sink.HandleOffer(offer)
}
