package tests

import (
	"context"
	"testing"

	"driverapp/internal/push"
)

// ──────────────────────────────────────────────
// PUSH PAYLOAD HANDLING
// ──────────────────────────────────────────────

func TestPush_DecodedOfferReachesNotifierAndSink(t *testing.T) {
	t.Parallel()

	src := &ScriptedPushSource{Payloads: [][]byte{
		[]byte(`{"bookingId":"b-301","route":"Bukit - Indralaya","fare":"35000","distance":"4.2km"}`),
	}}
	notifier := NewMockNotifier()
	sink := NewMockOfferSink()
	receiver := push.NewReceiver(src, notifier, sink, discardLogger())

	if err := receiver.Run(context.Background()); err != nil {
		t.Fatalf("running receiver failed: %v", err)
	}

	if sink.OfferCount() != 1 {
		t.Fatalf("expected 1 offer, got %d", sink.OfferCount())
	}
	offer := sink.FirstOffer()
	if offer.BookingID != "b-301" || offer.Route != "Bukit - Indralaya" ||
		offer.Fare != "35000" || offer.Distance != "4.2km" {
		t.Errorf("offer fields mangled: %+v", offer)
	}
	if notifier.NotifyCallCount != 1 {
		t.Errorf("expected 1 notification, got %d", notifier.NotifyCallCount)
	}
}

func TestPush_BlankBookingIDDiscarded(t *testing.T) {
	t.Parallel()

	src := &ScriptedPushSource{Payloads: [][]byte{
		[]byte(`{"bookingId":"","route":"Bukit - Indralaya","fare":"35000","distance":"4.2km"}`),
		[]byte(`{"route":"no booking at all"}`),
	}}
	sink := NewMockOfferSink()
	receiver := push.NewReceiver(src, NewMockNotifier(), sink, discardLogger())

	if err := receiver.Run(context.Background()); err != nil {
		t.Fatalf("running receiver failed: %v", err)
	}
	if sink.OfferCount() != 0 {
		t.Errorf("payloads without a booking must be discarded, got %d offers", sink.OfferCount())
	}
}

func TestPush_UndecodablePayloadDiscarded(t *testing.T) {
	t.Parallel()

	src := &ScriptedPushSource{Payloads: [][]byte{
		[]byte(`%%% not json %%%`),
		[]byte(`{"bookingId":"b-1"}`),
	}}
	sink := NewMockOfferSink()
	receiver := push.NewReceiver(src, NewMockNotifier(), sink, discardLogger())

	if err := receiver.Run(context.Background()); err != nil {
		t.Fatalf("running receiver failed: %v", err)
	}
	// Garbage is dropped; the valid payload after it still goes through.
	if sink.OfferCount() != 1 {
		t.Fatalf("expected 1 offer, got %d", sink.OfferCount())
	}
	if sink.FirstOffer().BookingID != "b-1" {
		t.Errorf("wrong offer delivered: %+v", sink.FirstOffer())
	}
}
