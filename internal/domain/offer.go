package domain

// Offer is a time-boxed proposal of a single booking pushed to a driver.
// It is ephemeral: created on push receipt, consumed by accept, reject or
// timeout, never persisted.
type Offer struct {
	BookingID string `json:"bookingId"`
	Route     string `json:"route"`
	Fare      string `json:"fare"`
	Distance  string `json:"distance"`
}
