package dashboard

import "errors"

var (
	// ErrNotLoggedIn is returned when an operation needs a driver identity
	// and the session has none. No network call is made.
	ErrNotLoggedIn = errors.New("driver not logged in")

	// ErrLocationPermissionDenied is returned when going online without a
	// location permission grant.
	ErrLocationPermissionDenied = errors.New("location permission not granted")

	// ErrNoActiveTrip is returned for trip operations outside InTrip.
	ErrNoActiveTrip = errors.New("no active trip")

	// ErrInvalidTransition is returned when an online/offline toggle does not
	// apply to the current phase.
	ErrInvalidTransition = errors.New("invalid dashboard transition")
)
