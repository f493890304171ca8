// Package devserver is an in-memory dispatch stub implementing the
// platform's REST contract plus a websocket push channel. It exists for
// local development and integration tests; it is not the real backend.
package devserver

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"driverapp/internal/domain"
)

// ErrorResponse is the error body every failing endpoint returns.
type ErrorResponse struct {
	Error string `json:"error"`
}

// Server is the dispatch stub.
type Server struct {
	engine *gin.Engine
	store  *memoryStore
	hub    *pushHub
	secret []byte
	logger *slog.Logger
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// New creates a stub signing tokens with secret.
func New(secret string, logger *slog.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)
	s := &Server{
		engine: gin.New(),
		store:  newMemoryStore(),
		hub:    newPushHub(logger),
		secret: []byte(secret),
		logger: logger,
	}
	s.routes()
	return s
}

// Handler exposes the stub as an http.Handler.
func (s *Server) Handler() http.Handler { return s.engine }

func (s *Server) routes() {
	r := s.engine
	r.Use(gin.Recovery())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.POST("/api/drivers/login/request-otp", s.requestOTP)
	r.POST("/api/drivers/login/verify-otp", s.verifyOTP)

	authed := r.Group("/api", bearerAuth(s.secret))
	{
		authed.POST("/drivers/status", s.updateStatus)
		authed.POST("/drivers/location", s.updateLocation)
		authed.POST("/drivers/fcm-token", s.registerPushToken)
		authed.POST("/trips/accept", s.acceptOffer)
		authed.POST("/trips/reject", s.rejectOffer)
		authed.POST("/bookings/:bookingId/complete-pickup", s.completePickup)
		authed.POST("/trips/:tripId/complete", s.completeTrip)
		authed.GET("/schedules", s.listSchedules)
		authed.POST("/schedules/claim", s.claimSchedule)
		authed.GET("/bookings/available", s.listAvailable)
	}

	r.GET("/ws/drivers/:driverId", s.driverSocket)
	r.POST("/admin/offers", s.injectOffer)
}

type otpRequest struct {
	Whatsapp string `json:"whatsapp" binding:"required"`
}

func (s *Server) requestOTP(c *gin.Context) {
	var req otpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}
	s.store.requestOTP(req.Whatsapp)
	s.logger.Info("otp issued", "whatsapp", req.Whatsapp, "otp", devOTP)
	c.Status(http.StatusNoContent)
}

type otpVerifyRequest struct {
	Whatsapp string `json:"whatsapp" binding:"required"`
	OTP      string `json:"otp" binding:"required"`
}

func (s *Server) verifyOTP(c *gin.Context) {
	var req otpVerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	driver, err := s.store.verifyOTP(req.Whatsapp, req.OTP)
	if err != nil {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "invalid otp"})
		return
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  driver.ID,
		"name": driver.Name,
		"exp":  time.Now().Add(24 * time.Hour).Unix(),
	})
	signed, err := token.SignedString(s.secret)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "signing token"})
		return
	}

	c.JSON(http.StatusOK, domain.LoginResult{
		Token:    signed,
		DriverID: driver.ID,
		Name:     driver.Name,
	})
}

type statusUpdateRequest struct {
	DriverProfileID int    `json:"driverProfileId" binding:"required"`
	Status          string `json:"status" binding:"required"`
}

func (s *Server) updateStatus(c *gin.Context) {
	var req statusUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}
	status := domain.DriverStatus(req.Status)
	if status != domain.DriverStatusActive && status != domain.DriverStatusInactive {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "unknown status"})
		return
	}
	if err := s.store.setStatus(req.DriverProfileID, status); err != nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

type locationUpdateRequest struct {
	DriverProfileID int     `json:"driverProfileId" binding:"required"`
	Latitude        float64 `json:"latitude"`
	Longitude       float64 `json:"longitude"`
}

func (s *Server) updateLocation(c *gin.Context) {
	var req locationUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}
	s.logger.Debug("location received",
		"driver_id", req.DriverProfileID, "lat", req.Latitude, "lng", req.Longitude)
	c.Status(http.StatusNoContent)
}

type fcmTokenRequest struct {
	DriverProfileID int    `json:"driverProfileId" binding:"required"`
	FcmToken        string `json:"fcmToken" binding:"required"`
}

func (s *Server) registerPushToken(c *gin.Context) {
	var req fcmTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}
	s.logger.Debug("push token registered", "driver_id", req.DriverProfileID)
	c.Status(http.StatusNoContent)
}

type bookingRequest struct {
	BookingID string `json:"bookingId" binding:"required"`
}

func (s *Server) acceptOffer(c *gin.Context) {
	var req bookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}
	trip, err := s.store.acceptBooking(req.BookingID)
	if err != nil {
		c.JSON(http.StatusConflict, ErrorResponse{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, trip)
}

func (s *Server) rejectOffer(c *gin.Context) {
	var req bookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}
	s.logger.Debug("offer rejected", "booking_id", req.BookingID)
	c.Status(http.StatusNoContent)
}

func (s *Server) completePickup(c *gin.Context) {
	bookingID, err := strconv.Atoi(c.Param("bookingId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid booking id"})
		return
	}
	if err := s.store.completePickup(bookingID); err != nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) completeTrip(c *gin.Context) {
	tripID, err := strconv.Atoi(c.Param("tripId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid trip id"})
		return
	}
	if err := s.store.completeTrip(tripID); err != nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) listSchedules(c *gin.Context) {
	c.JSON(http.StatusOK, s.store.listSchedules())
}

type claimScheduleRequest struct {
	ScheduleID int `json:"scheduleId" binding:"required"`
}

func (s *Server) claimSchedule(c *gin.Context) {
	var req claimScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}
	trip, err := s.store.claimSchedule(req.ScheduleID)
	if err != nil {
		c.JSON(http.StatusConflict, ErrorResponse{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, trip)
}

func (s *Server) listAvailable(c *gin.Context) {
	c.JSON(http.StatusOK, s.store.listAvailable())
}

func (s *Server) driverSocket(c *gin.Context) {
	driverID, err := strconv.Atoi(c.Param("driverId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid driver id"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}
	s.hub.register(driverID, conn)

	// Reads only serve to detect disconnect; drivers never send anything.
	go func() {
		defer s.hub.unregister(driverID, conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

type injectOfferRequest struct {
	DriverID  int    `json:"driverId" binding:"required"`
	BookingID string `json:"bookingId"`
	Route     string `json:"route"`
	Fare      string `json:"fare"`
	Distance  string `json:"distance"`
}

// injectOffer pushes an offer payload to a connected driver, standing in for
// the platform's dispatch pipeline.
func (s *Server) injectOffer(c *gin.Context) {
	var req injectOfferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	payload := gin.H{
		"offerId":   uuid.New().String(),
		"bookingId": req.BookingID,
		"route":     req.Route,
		"fare":      req.Fare,
		"distance":  req.Distance,
	}
	if err := s.hub.pushOffer(req.DriverID, payload); err != nil {
		c.JSON(http.StatusConflict, ErrorResponse{Error: err.Error()})
		return
	}
	c.JSON(http.StatusAccepted, payload)
}
