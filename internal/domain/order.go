package domain

// Schedule is a scheduled departure a driver can claim ahead of time.
type Schedule struct {
	ScheduleID      int    `json:"scheduleId"`
	Destination     string `json:"destination"`
	DepartureTime   string `json:"departureTime"`
	EstimatedIncome int    `json:"estimatedIncome"`
	Passengers      int    `json:"passengers"`
	Capacity        int    `json:"capacity"`
}

// AvailableOrder is an on-the-spot booking listed for any online driver to
// take without waiting for a pushed offer.
type AvailableOrder struct {
	BookingID      int    `json:"bookingId"`
	Route          string `json:"route"`
	Fare           int    `json:"fare"`
	PassengerCount int    `json:"passengerCount"`
	PickupPoint    string `json:"pickupPoint"`
}
