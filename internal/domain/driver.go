package domain

// DriverStatus is the availability status reported to the dispatch platform.
type DriverStatus string

const (
	DriverStatusActive   DriverStatus = "AKTIF"
	DriverStatusInactive DriverStatus = "NONAKTIF"
)

// NoDriverID marks an absent driver identity in a session.
const NoDriverID = -1

// DriverSession holds the authenticated driver identity for the process.
// It is mutated only by login and logout.
type DriverSession struct {
	AuthToken  string `json:"auth_token"`
	DriverID   int    `json:"driver_id"`
	DriverName string `json:"driver_name"`
}

// LoggedIn reports whether the session carries a usable driver identity.
func (s DriverSession) LoggedIn() bool {
	return s.DriverID > 0 && s.AuthToken != ""
}

// LoginResult is the identity returned by a successful OTP verification.
type LoginResult struct {
	Token    string `json:"token"`
	DriverID int    `json:"driverId"`
	Name     string `json:"name"`
}
