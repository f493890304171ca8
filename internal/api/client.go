// Package api is the typed client for the dispatch platform's REST surface.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"driverapp/internal/domain"
)

// TokenSource supplies the bearer token attached to authenticated requests.
type TokenSource interface {
	AuthToken() string
}

// Client calls the dispatch platform. Every method attaches
// "Authorization: Bearer <token>" when the token source holds one; requests
// proceed without the header otherwise and the server is left to reject them.
type Client struct {
	baseURL string
	http    *http.Client
	tokens  TokenSource
}

// NewClient creates a Client against baseURL.
func NewClient(baseURL string, timeout time.Duration, tokens TokenSource) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		tokens:  tokens,
	}
}

type otpRequest struct {
	Whatsapp string `json:"whatsapp"`
}

type otpVerifyRequest struct {
	Whatsapp string `json:"whatsapp"`
	OTP      string `json:"otp"`
}

type statusUpdateRequest struct {
	DriverProfileID int    `json:"driverProfileId"`
	Status          string `json:"status"`
}

type locationUpdateRequest struct {
	DriverProfileID int     `json:"driverProfileId"`
	Latitude        float64 `json:"latitude"`
	Longitude       float64 `json:"longitude"`
}

type fcmTokenRequest struct {
	DriverProfileID int    `json:"driverProfileId"`
	FcmToken        string `json:"fcmToken"`
}

type bookingRequest struct {
	BookingID string `json:"bookingId"`
}

type claimScheduleRequest struct {
	ScheduleID int `json:"scheduleId"`
}

// RequestOTP asks the platform to send an OTP to the driver's WhatsApp number.
func (c *Client) RequestOTP(ctx context.Context, whatsapp string) error {
	return c.do(ctx, http.MethodPost, "/api/drivers/login/request-otp", otpRequest{Whatsapp: whatsapp}, nil)
}

// VerifyOTP exchanges the OTP for a token and driver identity.
func (c *Client) VerifyOTP(ctx context.Context, whatsapp, otp string) (*domain.LoginResult, error) {
	var res domain.LoginResult
	if err := c.do(ctx, http.MethodPost, "/api/drivers/login/verify-otp", otpVerifyRequest{Whatsapp: whatsapp, OTP: otp}, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// UpdateStatus reports the driver's availability (AKTIF/NONAKTIF).
func (c *Client) UpdateStatus(ctx context.Context, driverID int, status domain.DriverStatus) error {
	return c.do(ctx, http.MethodPost, "/api/drivers/status", statusUpdateRequest{DriverProfileID: driverID, Status: string(status)}, nil)
}

// UpdateLocation reports a GPS sample.
func (c *Client) UpdateLocation(ctx context.Context, driverID int, lat, lng float64) error {
	return c.do(ctx, http.MethodPost, "/api/drivers/location", locationUpdateRequest{DriverProfileID: driverID, Latitude: lat, Longitude: lng}, nil)
}

// RegisterPushToken registers the device push token for offer delivery.
func (c *Client) RegisterPushToken(ctx context.Context, driverID int, token string) error {
	return c.do(ctx, http.MethodPost, "/api/drivers/fcm-token", fcmTokenRequest{DriverProfileID: driverID, FcmToken: token}, nil)
}

// AcceptOffer accepts a pushed offer and returns the resulting trip.
func (c *Client) AcceptOffer(ctx context.Context, bookingID string) (*domain.ActiveTrip, error) {
	var trip domain.ActiveTrip
	if err := c.do(ctx, http.MethodPost, "/api/trips/accept", bookingRequest{BookingID: bookingID}, &trip); err != nil {
		return nil, err
	}
	return &trip, nil
}

// RejectOffer declines a pushed offer.
func (c *Client) RejectOffer(ctx context.Context, bookingID string) error {
	return c.do(ctx, http.MethodPost, "/api/trips/reject", bookingRequest{BookingID: bookingID}, nil)
}

// CompletePickup marks one pickup task of the active trip as done.
func (c *Client) CompletePickup(ctx context.Context, bookingID int) error {
	return c.do(ctx, http.MethodPost, fmt.Sprintf("/api/bookings/%d/complete-pickup", bookingID), nil, nil)
}

// CompleteTrip finishes the active trip.
func (c *Client) CompleteTrip(ctx context.Context, tripID int) error {
	return c.do(ctx, http.MethodPost, fmt.Sprintf("/api/trips/%d/complete", tripID), nil, nil)
}

// Schedules lists claimable scheduled departures.
func (c *Client) Schedules(ctx context.Context) ([]domain.Schedule, error) {
	var schedules []domain.Schedule
	if err := c.do(ctx, http.MethodGet, "/api/schedules", nil, &schedules); err != nil {
		return nil, err
	}
	return schedules, nil
}

// ClaimSchedule claims a scheduled departure and returns the resulting trip.
func (c *Client) ClaimSchedule(ctx context.Context, scheduleID int) (*domain.ActiveTrip, error) {
	var trip domain.ActiveTrip
	if err := c.do(ctx, http.MethodPost, "/api/schedules/claim", claimScheduleRequest{ScheduleID: scheduleID}, &trip); err != nil {
		return nil, err
	}
	return &trip, nil
}

// AvailableBookings lists on-the-spot orders open for any driver.
func (c *Client) AvailableBookings(ctx context.Context) ([]domain.AvailableOrder, error) {
	var orders []domain.AvailableOrder
	if err := c.do(ctx, http.MethodGet, "/api/bookings/available", nil, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshaling request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.tokens.AuthToken(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &Error{StatusCode: resp.StatusCode, Message: errorMessage(data)}
	}

	if out != nil && len(data) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("unmarshaling response: %w", err)
		}
	}
	return nil
}

func errorMessage(data []byte) string {
	var body struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(data, &body); err == nil {
		if body.Error != "" {
			return body.Error
		}
		if body.Message != "" {
			return body.Message
		}
	}
	return strings.TrimSpace(string(data))
}
