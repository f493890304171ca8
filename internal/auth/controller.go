// Package auth runs the driver's OTP login flow and owns the session
// lifecycle.
package auth

import (
	"context"
	"errors"
	"log/slog"

	"driverapp/internal/domain"
	"driverapp/internal/session"
)

// ErrNoPendingLogin is returned when verifying an OTP with no prior request.
var ErrNoPendingLogin = errors.New("no pending login")

// Step is the current stage of the login flow.
type Step int

const (
	StepPhoneEntry Step = iota
	StepOTPVerification
)

// API is the slice of the API client the login flow needs.
type API interface {
	RequestOTP(ctx context.Context, whatsapp string) error
	VerifyOTP(ctx context.Context, whatsapp, otp string) (*domain.LoginResult, error)
	RegisterPushToken(ctx context.Context, driverID int, token string) error
}

// Controller drives request-otp -> verify-otp -> session persist.
type Controller struct {
	api       API
	sess      session.Store
	pushToken string
	logger    *slog.Logger

	step     Step
	whatsapp string
}

// NewController creates a Controller at the phone-entry step. pushToken is
// the device token registered after a successful login; it may be empty.
func NewController(api API, sess session.Store, pushToken string, logger *slog.Logger) *Controller {
	return &Controller{
		api:       api,
		sess:      sess,
		pushToken: pushToken,
		logger:    logger,
		step:      StepPhoneEntry,
	}
}

// Step returns the current login stage.
func (c *Controller) Step() Step { return c.step }

// LoggedIn reports whether the session already carries an identity.
func (c *Controller) LoggedIn() bool {
	return c.sess.DriverID() != domain.NoDriverID && c.sess.AuthToken() != ""
}

// RequestOTP asks the platform to send a code to the WhatsApp number and
// advances to the verification step.
func (c *Controller) RequestOTP(ctx context.Context, whatsapp string) error {
	if err := c.api.RequestOTP(ctx, whatsapp); err != nil {
		return err
	}
	c.whatsapp = whatsapp
	c.step = StepOTPVerification
	return nil
}

// VerifyOTP exchanges the code for a token, persists the session and
// registers the push token. Push-token registration is best-effort; its
// failure never fails the login.
func (c *Controller) VerifyOTP(ctx context.Context, otp string) error {
	if c.step != StepOTPVerification || c.whatsapp == "" {
		return ErrNoPendingLogin
	}

	res, err := c.api.VerifyOTP(ctx, c.whatsapp, otp)
	if err != nil {
		return err
	}
	if err := c.sess.SaveAuthToken(res.Token); err != nil {
		return err
	}
	if err := c.sess.SaveDriverInfo(res.DriverID, res.Name); err != nil {
		return err
	}
	c.logger.Info("driver logged in", "driver_id", res.DriverID, "name", res.Name)

	c.registerPushToken(ctx, res.DriverID)
	c.step = StepPhoneEntry
	c.whatsapp = ""
	return nil
}

// RefreshPushToken re-registers the device token, used on token rotation.
func (c *Controller) RefreshPushToken(ctx context.Context, token string) {
	c.pushToken = token
	if id := c.sess.DriverID(); id != domain.NoDriverID {
		c.registerPushToken(ctx, id)
	} else {
		c.logger.Warn("push token rotated before login, will register after login")
	}
}

// Logout clears the session.
func (c *Controller) Logout() error {
	if err := c.sess.Clear(); err != nil {
		return err
	}
	c.logger.Info("driver logged out")
	return nil
}

func (c *Controller) registerPushToken(ctx context.Context, driverID int) {
	if c.pushToken == "" {
		return
	}
	if err := c.api.RegisterPushToken(ctx, driverID, c.pushToken); err != nil {
		c.logger.Warn("registering push token failed", "error", err)
		return
	}
	c.logger.Debug("push token registered")
}
