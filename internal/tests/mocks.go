package tests

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"driverapp/internal/domain"
	"driverapp/internal/location"
)

// ──────────────────────────────────────────────
// MOCK OFFER DISPATCHER
// ──────────────────────────────────────────────

// MockDispatcher is a mock implementation of the offer dispatcher.
type MockDispatcher struct {
	mu   sync.Mutex
	Trip *domain.ActiveTrip

	// Counters for verification
	AcceptCallCount int32
	RejectCallCount int32

	// Error injection
	AcceptError error
	RejectError error

	// Recorded arguments
	LastBookingID string
}

// NewMockDispatcher creates a new mock dispatcher.
func NewMockDispatcher() *MockDispatcher {
	return &MockDispatcher{}
}

func (m *MockDispatcher) AcceptOffer(ctx context.Context, bookingID string) (*domain.ActiveTrip, error) {
	atomic.AddInt32(&m.AcceptCallCount, 1)
	m.mu.Lock()
	m.LastBookingID = bookingID
	trip, err := m.Trip, m.AcceptError
	m.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return trip, nil
}

func (m *MockDispatcher) RejectOffer(ctx context.Context, bookingID string) error {
	atomic.AddInt32(&m.RejectCallCount, 1)
	m.mu.Lock()
	m.LastBookingID = bookingID
	err := m.RejectError
	m.mu.Unlock()
	return err
}

// ──────────────────────────────────────────────
// MOCK DASHBOARD PLATFORM
// ──────────────────────────────────────────────

// MockPlatform is a mock implementation of the dashboard's API slice.
type MockPlatform struct {
	mu sync.Mutex

	// Counters for verification
	UpdateStatusCallCount   int32
	CompletePickupCallCount int32
	CompleteTripCallCount   int32

	// Error injection
	UpdateStatusError   error
	CompletePickupError error
	CompleteTripError   error

	// Recorded arguments
	LastStatus    domain.DriverStatus
	LastBookingID int
	LastTripID    int
}

// NewMockPlatform creates a new mock platform.
func NewMockPlatform() *MockPlatform {
	return &MockPlatform{}
}

func (m *MockPlatform) UpdateStatus(ctx context.Context, driverID int, status domain.DriverStatus) error {
	atomic.AddInt32(&m.UpdateStatusCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.UpdateStatusError != nil {
		return m.UpdateStatusError
	}
	m.LastStatus = status
	return nil
}

func (m *MockPlatform) CompletePickup(ctx context.Context, bookingID int) error {
	atomic.AddInt32(&m.CompletePickupCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.CompletePickupError != nil {
		return m.CompletePickupError
	}
	m.LastBookingID = bookingID
	return nil
}

func (m *MockPlatform) CompleteTrip(ctx context.Context, tripID int) error {
	atomic.AddInt32(&m.CompleteTripCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.CompleteTripError != nil {
		return m.CompleteTripError
	}
	m.LastTripID = tripID
	return nil
}

// SetUpdateStatusError injects a status update failure.
func (m *MockPlatform) SetUpdateStatusError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.UpdateStatusError = err
}

// ──────────────────────────────────────────────
// MOCK SESSION
// ──────────────────────────────────────────────

// MockSession is an in-memory session store.
type MockSession struct {
	mu    sync.RWMutex
	Token string
	ID    int
	Name  string
}

// NewMockSession creates a logged-out session.
func NewMockSession() *MockSession {
	return &MockSession{ID: domain.NoDriverID}
}

// NewLoggedInSession creates a session already carrying an identity.
func NewLoggedInSession(id int, name, token string) *MockSession {
	return &MockSession{ID: id, Name: name, Token: token}
}

func (m *MockSession) AuthToken() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.Token
}

func (m *MockSession) DriverID() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.ID
}

func (m *MockSession) DriverName() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.Name
}

func (m *MockSession) SaveAuthToken(token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Token = token
	return nil
}

func (m *MockSession) SaveDriverInfo(driverID int, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ID = driverID
	m.Name = name
	return nil
}

func (m *MockSession) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Token = ""
	m.ID = domain.NoDriverID
	m.Name = ""
	return nil
}

// ──────────────────────────────────────────────
// MOCK PERMISSIONS AND TRACKING
// ──────────────────────────────────────────────

// MockPermissions is a mock permission gate.
type MockPermissions struct {
	Granted bool
}

func (m *MockPermissions) LocationGranted() bool { return m.Granted }

// MockTracking is a mock tracking control.
type MockTracking struct {
	StartCallCount int32
	StopCallCount  int32
}

// NewMockTracking creates a new mock tracking control.
func NewMockTracking() *MockTracking {
	return &MockTracking{}
}

func (m *MockTracking) Start() { atomic.AddInt32(&m.StartCallCount, 1) }
func (m *MockTracking) Stop()  { atomic.AddInt32(&m.StopCallCount, 1) }

// ──────────────────────────────────────────────
// MOCK LOCATION SOURCE AND SINK
// ──────────────────────────────────────────────

// MockLocationSource returns a fixed position.
type MockLocationSource struct {
	mu  sync.Mutex
	Pos location.Position
	Err error

	CallCount int32
}

// NewMockLocationSource creates a source at the given coordinates.
func NewMockLocationSource(lat, lng float64) *MockLocationSource {
	return &MockLocationSource{Pos: location.Position{Latitude: lat, Longitude: lng}}
}

func (m *MockLocationSource) Current(ctx context.Context) (location.Position, error) {
	atomic.AddInt32(&m.CallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return location.Position{}, m.Err
	}
	return m.Pos, nil
}

// MockLocationAPI records reported positions.
type MockLocationAPI struct {
	mu      sync.Mutex
	Updates []location.Position

	UpdateLocationError error
}

// NewMockLocationAPI creates a new mock location API.
func NewMockLocationAPI() *MockLocationAPI {
	return &MockLocationAPI{}
}

func (m *MockLocationAPI) UpdateLocation(ctx context.Context, driverID int, lat, lng float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.UpdateLocationError != nil {
		return m.UpdateLocationError
	}
	m.Updates = append(m.Updates, location.Position{Latitude: lat, Longitude: lng})
	return nil
}

// SetError injects (or clears) a send failure.
func (m *MockLocationAPI) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.UpdateLocationError = err
}

// UpdateCount returns the number of accepted updates.
func (m *MockLocationAPI) UpdateCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Updates)
}

// ──────────────────────────────────────────────
// MOCK LOGIN API
// ──────────────────────────────────────────────

// MockLoginAPI is a mock implementation of the login flow's API slice.
type MockLoginAPI struct {
	mu     sync.Mutex
	Result *domain.LoginResult

	// Counters for verification
	RequestOTPCallCount        int32
	VerifyOTPCallCount         int32
	RegisterPushTokenCallCount int32

	// Error injection
	RequestOTPError        error
	VerifyOTPError         error
	RegisterPushTokenError error

	// Recorded arguments
	LastWhatsapp  string
	LastOTP       string
	LastPushToken string
}

// NewMockLoginAPI creates a new mock login API.
func NewMockLoginAPI() *MockLoginAPI {
	return &MockLoginAPI{}
}

func (m *MockLoginAPI) RequestOTP(ctx context.Context, whatsapp string) error {
	atomic.AddInt32(&m.RequestOTPCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.RequestOTPError != nil {
		return m.RequestOTPError
	}
	m.LastWhatsapp = whatsapp
	return nil
}

func (m *MockLoginAPI) VerifyOTP(ctx context.Context, whatsapp, otp string) (*domain.LoginResult, error) {
	atomic.AddInt32(&m.VerifyOTPCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.VerifyOTPError != nil {
		return nil, m.VerifyOTPError
	}
	m.LastWhatsapp = whatsapp
	m.LastOTP = otp
	return m.Result, nil
}

func (m *MockLoginAPI) RegisterPushToken(ctx context.Context, driverID int, token string) error {
	atomic.AddInt32(&m.RegisterPushTokenCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.RegisterPushTokenError != nil {
		return m.RegisterPushTokenError
	}
	m.LastPushToken = token
	return nil
}

// ──────────────────────────────────────────────
// MOCK ORDERS API
// ──────────────────────────────────────────────

// MockOrdersAPI is a mock implementation of the orders API slice.
type MockOrdersAPI struct {
	mu sync.Mutex

	ScheduleList  []domain.Schedule
	AvailableList []domain.AvailableOrder
	ClaimTrip     *domain.ActiveTrip
	AcceptTrip    *domain.ActiveTrip

	// Error injection
	ClaimError  error
	AcceptError error

	// Recorded arguments
	LastScheduleID int
	LastBookingID  string
}

// NewMockOrdersAPI creates a new mock orders API.
func NewMockOrdersAPI() *MockOrdersAPI {
	return &MockOrdersAPI{}
}

func (m *MockOrdersAPI) Schedules(ctx context.Context) ([]domain.Schedule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ScheduleList, nil
}

func (m *MockOrdersAPI) ClaimSchedule(ctx context.Context, scheduleID int) (*domain.ActiveTrip, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LastScheduleID = scheduleID
	if m.ClaimError != nil {
		return nil, m.ClaimError
	}
	return m.ClaimTrip, nil
}

func (m *MockOrdersAPI) AvailableBookings(ctx context.Context) ([]domain.AvailableOrder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.AvailableList, nil
}

func (m *MockOrdersAPI) AcceptOffer(ctx context.Context, bookingID string) (*domain.ActiveTrip, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LastBookingID = bookingID
	if m.AcceptError != nil {
		return nil, m.AcceptError
	}
	return m.AcceptTrip, nil
}

// ──────────────────────────────────────────────
// MOCK PUSH PIECES
// ──────────────────────────────────────────────

// MockOfferSink records offers handed to it.
type MockOfferSink struct {
	mu     sync.Mutex
	Offers []domain.Offer
}

// NewMockOfferSink creates a new mock offer sink.
func NewMockOfferSink() *MockOfferSink {
	return &MockOfferSink{}
}

func (m *MockOfferSink) HandleOffer(offer domain.Offer) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Offers = append(m.Offers, offer)
}

// OfferCount returns how many offers the sink received.
func (m *MockOfferSink) OfferCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Offers)
}

// FirstOffer returns the first received offer.
func (m *MockOfferSink) FirstOffer() domain.Offer {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Offers[0]
}

// MockNotifier counts notifications.
type MockNotifier struct {
	NotifyCallCount int32
}

// NewMockNotifier creates a new mock notifier.
func NewMockNotifier() *MockNotifier {
	return &MockNotifier{}
}

func (m *MockNotifier) NotifyOffer(offer domain.Offer) {
	atomic.AddInt32(&m.NotifyCallCount, 1)
}

// ScriptedPushSource delivers a fixed set of raw payloads and returns.
type ScriptedPushSource struct {
	Payloads [][]byte
}

func (s *ScriptedPushSource) Run(ctx context.Context, handle func([]byte)) error {
	for _, p := range s.Payloads {
		handle(p)
	}
	return nil
}

// ──────────────────────────────────────────────
// HELPERS
// ──────────────────────────────────────────────

var (
	ErrMockTimeout  = errors.New("mock: operation timeout")
	ErrMockRejected = errors.New("mock: request rejected")
)

// discardLogger returns a logger that drops everything.
func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// sampleTrip builds a two-pickup trip for assertions.
func sampleTrip(tripID int) *domain.ActiveTrip {
	return &domain.ActiveTrip{
		TripID:            tripID,
		FinalDestination:  "Indralaya",
		RemainingCapacity: 5,
		TotalCapacity:     7,
		Tasks: []domain.PickupTask{
			{BookingID: 1, PassengerName: "Andi", Location: "Gerbang Utama", PassengerContact: "+628111"},
			{BookingID: 2, PassengerName: "Budi", Location: "Pasar Bukit", PassengerContact: "+628222"},
		},
	}
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, timeout time.Duration, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("condition not met within %v: %s", timeout, msg)
}
