package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"driverapp/internal/api"
	"driverapp/internal/auth"
	"driverapp/internal/clock"
	"driverapp/internal/config"
	"driverapp/internal/coordinator"
	"driverapp/internal/dashboard"
	"driverapp/internal/domain"
	"driverapp/internal/location"
	"driverapp/internal/logging"
	"driverapp/internal/notify"
	"driverapp/internal/offer"
	"driverapp/internal/push"
	"driverapp/internal/session"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.Log.Level, os.Stdout)

	store, err := newSessionStore(cfg, logger)
	if err != nil {
		logger.Error("failed to open session store", "error", err)
		os.Exit(1)
	}

	client := api.NewClient(cfg.API.BaseURL, cfg.API.Timeout, store)
	login := auth.NewController(client, store, cfg.Push.DeviceToken, logger)

	switch command() {
	case "login":
		if err := runLogin(login); err != nil {
			logger.Error("login failed", "error", err)
			os.Exit(1)
		}
	case "logout":
		if err := login.Logout(); err != nil {
			logger.Error("logout failed", "error", err)
			os.Exit(1)
		}
	case "run":
		if err := runAgent(cfg, store, client, logger); err != nil {
			logger.Error("agent exited", "error", err)
			os.Exit(1)
		}
	default:
		fmt.Fprintln(os.Stderr, "usage: agent [login <whatsapp> | logout | run]")
		os.Exit(2)
	}
}

func command() string {
	if len(os.Args) < 2 {
		return "run"
	}
	return os.Args[1]
}

func newSessionStore(cfg *config.Config, logger *slog.Logger) (session.Store, error) {
	if cfg.Session.Backend == "redis" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		store, err := session.NewRedisStore(ctx, client)
		if err != nil {
			return nil, err
		}
		logger.Info("session store: redis", "addr", cfg.Redis.Addr)
		return store, nil
	}
	return session.NewFileStore(cfg.Session.File)
}

// runLogin walks the OTP flow on the terminal.
func runLogin(login *auth.Controller) error {
	if len(os.Args) < 3 {
		return fmt.Errorf("usage: agent login <whatsapp>")
	}
	whatsapp := os.Args[2]

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if err := login.RequestOTP(ctx, whatsapp); err != nil {
		return fmt.Errorf("requesting otp: %w", err)
	}

	fmt.Print("OTP: ")
	reader := bufio.NewReader(os.Stdin)
	otp, err := reader.ReadString('\n')
	if err != nil {
		return fmt.Errorf("reading otp: %w", err)
	}

	if err := login.VerifyOTP(ctx, strings.TrimSpace(otp)); err != nil {
		return fmt.Errorf("verifying otp: %w", err)
	}
	fmt.Println("logged in")
	return nil
}

// runAgent brings the driver online and serves offers until interrupted.
func runAgent(cfg *config.Config, store session.Store, client *api.Client, logger *slog.Logger) error {
	if store.DriverID() < 0 || store.AuthToken() == "" {
		return fmt.Errorf("not logged in, run: agent login <whatsapp>")
	}
	if session.TokenExpired(store.AuthToken(), time.Now()) {
		return fmt.Errorf("session expired, run: agent login <whatsapp>")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	clk := clock.New()
	trips := coordinator.New(logger)
	notifier := notify.NewLogNotifier(logger)

	reporter := location.NewReporter(
		clk,
		cfg.Location.Interval,
		location.NewSimulatedSource(-2.9761, 104.7754),
		client,
		store,
		logger,
	)

	dash := dashboard.NewController(client, store, trips, grantedPermissions{}, reporter, logger)
	dash.SetListener(func(st dashboard.State) {
		if st.Phase == dashboard.PhaseInTrip && st.Trip != nil {
			logger.Info("dashboard in trip",
				"trip_id", st.Trip.TripID,
				"destination", st.Trip.FinalDestination)
		}
	})
	dash.Start()
	defer dash.Close()

	offerCtrl := offer.NewController(clk, client, trips, logger)
	sink := &offerSink{
		ctrl:       offerCtrl,
		dash:       dash,
		autoAccept: cfg.Push.AutoAccept,
		logger:     logger,
	}

	receiver := push.NewReceiver(newPushSource(cfg, store, logger), notifier, sink, logger)
	go consumePush(ctx, receiver, logger)

	if err := dash.SetOnlineStatus(ctx, true); err != nil {
		return fmt.Errorf("going online: %w", err)
	}
	logger.Info("agent online", "driver_id", store.DriverID(), "name", store.DriverName())

	<-ctx.Done()
	logger.Info("shutting down")

	offerCtrl.Close()
	reporter.Stop()

	// Best-effort offline notice; the signal context is already gone.
	offCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if dash.State().Phase == dashboard.PhaseSearching {
		if err := dash.SetOnlineStatus(offCtx, false); err != nil {
			logger.Warn("going offline failed", "error", err)
		}
	}
	return nil
}

func newPushSource(cfg *config.Config, store session.Store, logger *slog.Logger) push.Source {
	if cfg.Push.Transport == "amqp" {
		return push.NewAMQPSource(cfg.Push.AMQPURL, cfg.Push.AMQPQueue, logger)
	}
	url := fmt.Sprintf("%s/%d", strings.TrimRight(cfg.Push.WebsocketURL, "/"), store.DriverID())
	return push.NewWebsocketSource(url, store, logger)
}

func consumePush(ctx context.Context, receiver *push.Receiver, logger *slog.Logger) {
	for ctx.Err() == nil {
		if err := receiver.Run(ctx); err != nil && ctx.Err() == nil {
			logger.Warn("push transport dropped, reconnecting", "error", err)
			select {
			case <-time.After(5 * time.Second):
			case <-ctx.Done():
			}
		}
	}
}

// offerSink routes a pushed offer into the offer lifecycle and the dashboard
// alert.
type offerSink struct {
	ctrl       *offer.Controller
	dash       *dashboard.Controller
	autoAccept bool
	logger     *slog.Logger
}

func (s *offerSink) HandleOffer(o domain.Offer) {
	s.dash.ShowOfferAlert(o.BookingID, fmt.Sprintf("%s | %s | %s", o.Route, o.Fare, o.Distance))
	s.ctrl.StartCountdown()

	if s.autoAccept {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			state := s.ctrl.Accept(ctx, o.BookingID)
			if state.Outcome != nil && state.Outcome.Kind == offer.OutcomeAccepted {
				s.dash.DismissOfferAlert()
			}
		}()
	}
}

// grantedPermissions is the agent's stand-in for the OS permission gate; a
// headless process has no permission dialog to fail.
type grantedPermissions struct{}

func (grantedPermissions) LocationGranted() bool { return true }
