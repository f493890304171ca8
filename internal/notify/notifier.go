// Package notify is the outbound notification edge: how a surfaced offer
// reaches the driver's attention outside the dashboard.
package notify

import (
	"log/slog"

	"driverapp/internal/domain"
)

// Notifier presents a pushed offer to the driver.
type Notifier interface {
	NotifyOffer(offer domain.Offer)
}

// LogNotifier writes the notification to the log. In a real deployment this
// would hand off to the OS notification layer.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier creates a LogNotifier.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// NotifyOffer logs the offer.
func (n *LogNotifier) NotifyOffer(offer domain.Offer) {
	n.logger.Info("new booking offer",
		"booking_id", offer.BookingID,
		"route", offer.Route,
		"fare", offer.Fare,
		"distance", offer.Distance,
	)
}
