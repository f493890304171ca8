package devserver

import (
	"errors"
	"fmt"
	"strconv"
	"sync"

	"driverapp/internal/domain"
)

var (
	errUnknownDriver   = errors.New("driver not registered")
	errBadOTP          = errors.New("invalid otp")
	errUnknownBooking  = errors.New("booking not found")
	errUnknownTrip     = errors.New("trip not found")
	errUnknownSchedule = errors.New("schedule not found")
)

// devOTP is the fixed code the stub accepts; printed on request-otp.
const devOTP = "123456"

type driverRecord struct {
	ID     int
	Phone  string
	Name   string
	Status domain.DriverStatus
}

// memoryStore is the stub's whole world: drivers, trips, schedules and
// on-the-spot orders, all in memory.
type memoryStore struct {
	mu           sync.Mutex
	drivers      map[string]*driverRecord
	otps         map[string]string
	trips        map[int]*domain.ActiveTrip
	schedules    map[int]domain.Schedule
	available    map[int]domain.AvailableOrder
	nextDriverID int
	nextTripID   int
	nextTaskID   int
}

func newMemoryStore() *memoryStore {
	s := &memoryStore{
		drivers:      make(map[string]*driverRecord),
		otps:         make(map[string]string),
		trips:        make(map[int]*domain.ActiveTrip),
		schedules:    make(map[int]domain.Schedule),
		available:    make(map[int]domain.AvailableOrder),
		nextDriverID: 1000,
		nextTripID:   5000,
		nextTaskID:   9000,
	}
	s.seed()
	return s
}

// seed gives the dev loop something to claim right away.
func (s *memoryStore) seed() {
	s.schedules[1] = domain.Schedule{
		ScheduleID:      1,
		Destination:     "Indralaya",
		DepartureTime:   "07:30",
		EstimatedIncome: 150000,
		Passengers:      3,
		Capacity:        7,
	}
	s.available[201] = domain.AvailableOrder{
		BookingID:      201,
		Route:          "Bukit - Indralaya",
		Fare:           35000,
		PassengerCount: 1,
		PickupPoint:    "Gerbang Utama",
	}
}

func (s *memoryStore) requestOTP(phone string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.drivers[phone]; !ok {
		s.nextDriverID++
		s.drivers[phone] = &driverRecord{
			ID:     s.nextDriverID,
			Phone:  phone,
			Name:   "Driver " + phone,
			Status: domain.DriverStatusInactive,
		}
	}
	s.otps[phone] = devOTP
}

func (s *memoryStore) verifyOTP(phone, otp string) (*driverRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	want, ok := s.otps[phone]
	if !ok || want != otp {
		return nil, errBadOTP
	}
	delete(s.otps, phone)
	driver, ok := s.drivers[phone]
	if !ok {
		return nil, errUnknownDriver
	}
	return driver, nil
}

func (s *memoryStore) setStatus(driverID int, status domain.DriverStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, d := range s.drivers {
		if d.ID == driverID {
			d.Status = status
			return nil
		}
	}
	return errUnknownDriver
}

// acceptBooking builds a trip for the booking. An on-the-spot order gets a
// trip shaped from its listing; any other booking ID gets a synthesized
// single-pickup trip so pushed dev offers are always acceptable.
func (s *memoryStore) acceptBooking(bookingID string) (*domain.ActiveTrip, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, err := strconv.Atoi(bookingID)
	if err != nil {
		return nil, errUnknownBooking
	}

	route := "Bukit - Indralaya"
	pickup := "Gerbang Utama"
	if order, ok := s.available[id]; ok {
		route = order.Route
		pickup = order.PickupPoint
		delete(s.available, id)
	}

	s.nextTripID++
	trip := &domain.ActiveTrip{
		TripID:            s.nextTripID,
		FinalDestination:  route,
		RemainingCapacity: 6,
		TotalCapacity:     7,
		Tasks: []domain.PickupTask{
			{
				BookingID:        id,
				PassengerName:    fmt.Sprintf("Passenger %d", id),
				Location:         pickup,
				PassengerContact: "+620000000000",
			},
		},
	}
	s.trips[trip.TripID] = trip
	return trip, nil
}

func (s *memoryStore) claimSchedule(scheduleID int) (*domain.ActiveTrip, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sched, ok := s.schedules[scheduleID]
	if !ok {
		return nil, errUnknownSchedule
	}
	delete(s.schedules, scheduleID)

	s.nextTripID++
	trip := &domain.ActiveTrip{
		TripID:            s.nextTripID,
		FinalDestination:  sched.Destination,
		RemainingCapacity: sched.Capacity - sched.Passengers,
		TotalCapacity:     sched.Capacity,
	}
	for i := 0; i < sched.Passengers; i++ {
		s.nextTaskID++
		trip.Tasks = append(trip.Tasks, domain.PickupTask{
			BookingID:        s.nextTaskID,
			PassengerName:    fmt.Sprintf("Passenger %d", s.nextTaskID),
			Location:         fmt.Sprintf("Stop %d", i+1),
			PassengerContact: "+620000000000",
		})
	}
	s.trips[trip.TripID] = trip
	return trip, nil
}

func (s *memoryStore) completePickup(bookingID int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, trip := range s.trips {
		if trip.CompleteTask(bookingID) {
			return nil
		}
	}
	return errUnknownBooking
}

func (s *memoryStore) completeTrip(tripID int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.trips[tripID]; !ok {
		return errUnknownTrip
	}
	delete(s.trips, tripID)
	return nil
}

func (s *memoryStore) listSchedules() []domain.Schedule {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Schedule, 0, len(s.schedules))
	for _, sched := range s.schedules {
		out = append(out, sched)
	}
	return out
}

func (s *memoryStore) listAvailable() []domain.AvailableOrder {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.AvailableOrder, 0, len(s.available))
	for _, order := range s.available {
		out = append(out, order)
	}
	return out
}
