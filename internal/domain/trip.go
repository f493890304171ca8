package domain

// PickupTask is one passenger pickup within a trip. Identity (BookingID) is
// immutable; Completed moves false to true exactly once and never reverts.
type PickupTask struct {
	BookingID        int    `json:"bookingId"`
	PassengerName    string `json:"passengerName"`
	Location         string `json:"location"`
	PassengerContact string `json:"passengerContact"`
	Completed        bool   `json:"completed"`
}

// ActiveTrip is a claimed unit of work: ordered pickups ending at a final
// destination. Tasks are in display/priority order; the first incomplete task
// is the current one. Invariant: 0 <= RemainingCapacity <= TotalCapacity.
type ActiveTrip struct {
	TripID            int          `json:"tripId"`
	FinalDestination  string       `json:"finalDestination"`
	RemainingCapacity int          `json:"remainingCapacity"`
	TotalCapacity     int          `json:"totalCapacity"`
	Tasks             []PickupTask `json:"tasks"`
}

// CurrentTask returns the first incomplete task, or nil when every pickup is
// done.
func (t *ActiveTrip) CurrentTask() *PickupTask {
	for i := range t.Tasks {
		if !t.Tasks[i].Completed {
			return &t.Tasks[i]
		}
	}
	return nil
}

// AllTasksCompleted reports whether every pickup has been completed.
func (t *ActiveTrip) AllTasksCompleted() bool {
	return t.CurrentTask() == nil
}

// CompleteTask marks the task with the given booking ID as completed.
// Completing an already-completed task is a no-op; the flag is monotonic.
// It reports whether the booking ID belongs to this trip.
func (t *ActiveTrip) CompleteTask(bookingID int) bool {
	for i := range t.Tasks {
		if t.Tasks[i].BookingID == bookingID {
			t.Tasks[i].Completed = true
			return true
		}
	}
	return false
}
