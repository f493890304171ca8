package tests

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt"

	"driverapp/internal/auth"
	"driverapp/internal/domain"
	"driverapp/internal/session"
)

// ──────────────────────────────────────────────
// OTP LOGIN FLOW
// ──────────────────────────────────────────────

func TestLogin_FullFlowPersistsSession(t *testing.T) {
	t.Parallel()

	api := NewMockLoginAPI()
	api.Result = &domain.LoginResult{Token: "jwt-abc", DriverID: 42, Name: "Pak Dedi"}
	sess := NewMockSession()
	login := auth.NewController(api, sess, "device-token-1", discardLogger())

	ctx := context.Background()
	if err := login.RequestOTP(ctx, "+628111222333"); err != nil {
		t.Fatalf("requesting otp failed: %v", err)
	}
	if login.Step() != auth.StepOTPVerification {
		t.Fatal("expected verification step after otp request")
	}

	if err := login.VerifyOTP(ctx, "123456"); err != nil {
		t.Fatalf("verifying otp failed: %v", err)
	}

	if sess.AuthToken() != "jwt-abc" {
		t.Errorf("token not persisted, got %q", sess.AuthToken())
	}
	if sess.DriverID() != 42 || sess.DriverName() != "Pak Dedi" {
		t.Errorf("identity not persisted: id=%d name=%q", sess.DriverID(), sess.DriverName())
	}
	if api.LastWhatsapp != "+628111222333" || api.LastOTP != "123456" {
		t.Errorf("wrong credentials sent: %q / %q", api.LastWhatsapp, api.LastOTP)
	}
	if api.LastPushToken != "device-token-1" {
		t.Errorf("push token not registered, got %q", api.LastPushToken)
	}
	if !login.LoggedIn() {
		t.Error("controller should report logged in")
	}
}

func TestLogin_VerifyWithoutRequestRejected(t *testing.T) {
	t.Parallel()

	api := NewMockLoginAPI()
	login := auth.NewController(api, NewMockSession(), "", discardLogger())

	err := login.VerifyOTP(context.Background(), "123456")
	if !errors.Is(err, auth.ErrNoPendingLogin) {
		t.Fatalf("expected ErrNoPendingLogin, got %v", err)
	}
	if api.VerifyOTPCallCount != 0 {
		t.Error("verification must not reach the platform without a pending login")
	}
}

func TestLogin_BadOTPLeavesSessionEmpty(t *testing.T) {
	t.Parallel()

	api := NewMockLoginAPI()
	api.VerifyOTPError = ErrMockRejected
	sess := NewMockSession()
	login := auth.NewController(api, sess, "", discardLogger())

	ctx := context.Background()
	if err := login.RequestOTP(ctx, "+628111"); err != nil {
		t.Fatalf("requesting otp failed: %v", err)
	}
	if err := login.VerifyOTP(ctx, "000000"); err == nil {
		t.Fatal("expected verification to fail")
	}
	if sess.AuthToken() != "" || sess.DriverID() != domain.NoDriverID {
		t.Error("failed verification must not persist anything")
	}
}

func TestLogin_PushTokenFailureDoesNotFailLogin(t *testing.T) {
	t.Parallel()

	api := NewMockLoginAPI()
	api.Result = &domain.LoginResult{Token: "jwt-abc", DriverID: 42, Name: "Pak Dedi"}
	api.RegisterPushTokenError = ErrMockTimeout
	sess := NewMockSession()
	login := auth.NewController(api, sess, "device-token-1", discardLogger())

	ctx := context.Background()
	if err := login.RequestOTP(ctx, "+628111"); err != nil {
		t.Fatalf("requesting otp failed: %v", err)
	}
	if err := login.VerifyOTP(ctx, "123456"); err != nil {
		t.Fatalf("login failed on push token registration: %v", err)
	}
	if sess.DriverID() != 42 {
		t.Error("session not persisted")
	}
}

func TestLogin_LogoutClearsSession(t *testing.T) {
	t.Parallel()

	sess := NewLoggedInSession(42, "Pak Dedi", "jwt-abc")
	login := auth.NewController(NewMockLoginAPI(), sess, "", discardLogger())

	if err := login.Logout(); err != nil {
		t.Fatalf("logout failed: %v", err)
	}
	if sess.AuthToken() != "" || sess.DriverID() != domain.NoDriverID {
		t.Error("session survived logout")
	}
	if login.LoggedIn() {
		t.Error("controller still reports logged in")
	}
}

// ──────────────────────────────────────────────
// SESSION PERSISTENCE
// ──────────────────────────────────────────────

func TestSession_FileStoreSurvivesRestart(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "session.json")

	store, err := session.NewFileStore(path)
	if err != nil {
		t.Fatalf("opening store failed: %v", err)
	}
	if store.DriverID() != domain.NoDriverID {
		t.Error("fresh store should carry no identity")
	}
	if err := store.SaveAuthToken("jwt-abc"); err != nil {
		t.Fatalf("saving token failed: %v", err)
	}
	if err := store.SaveDriverInfo(42, "Pak Dedi"); err != nil {
		t.Fatalf("saving identity failed: %v", err)
	}

	// A new store on the same path sees the persisted session.
	reopened, err := session.NewFileStore(path)
	if err != nil {
		t.Fatalf("reopening store failed: %v", err)
	}
	if reopened.AuthToken() != "jwt-abc" {
		t.Errorf("token lost across restart, got %q", reopened.AuthToken())
	}
	if reopened.DriverID() != 42 || reopened.DriverName() != "Pak Dedi" {
		t.Errorf("identity lost across restart: id=%d name=%q", reopened.DriverID(), reopened.DriverName())
	}

	if err := reopened.Clear(); err != nil {
		t.Fatalf("clearing failed: %v", err)
	}
	cleared, err := session.NewFileStore(path)
	if err != nil {
		t.Fatalf("reopening cleared store failed: %v", err)
	}
	if cleared.AuthToken() != "" || cleared.DriverID() != domain.NoDriverID {
		t.Error("session survived clear")
	}
}

func TestSession_TokenExpiry(t *testing.T) {
	t.Parallel()

	now := time.Now()
	signed := func(exp time.Time) string {
		token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"exp": exp.Unix()})
		s, err := token.SignedString([]byte("test-secret"))
		if err != nil {
			t.Fatalf("signing token failed: %v", err)
		}
		return s
	}

	if !session.TokenExpired(signed(now.Add(-time.Hour)), now) {
		t.Error("expired token reported as live")
	}
	if session.TokenExpired(signed(now.Add(time.Hour)), now) {
		t.Error("live token reported as expired")
	}
	// Opaque tokens are left to the server.
	if session.TokenExpired("not-a-jwt", now) {
		t.Error("opaque token must not be reported as expired")
	}
}
