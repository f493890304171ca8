// Package session persists the driver's authenticated identity across agent
// restarts.
package session

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/golang-jwt/jwt"

	"driverapp/internal/domain"
)

// Store holds the process-wide driver session.
type Store interface {
	// AuthToken returns the bearer token, or "" when logged out.
	AuthToken() string
	// DriverID returns the driver identity, or domain.NoDriverID.
	DriverID() int
	// DriverName returns the driver's display name, or "".
	DriverName() string
	SaveAuthToken(token string) error
	SaveDriverInfo(driverID int, name string) error
	// Clear destroys the session on logout.
	Clear() error
}

// TokenExpired probes the exp claim of a JWT bearer token without verifying
// its signature. Opaque (non-JWT) tokens and tokens without an exp claim are
// reported as not expired; the server remains the authority either way.
func TokenExpired(token string, now time.Time) bool {
	claims := jwt.MapClaims{}
	parser := &jwt.Parser{}
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return false
	}
	exp, ok := claims["exp"].(float64)
	if !ok {
		return false
	}
	return now.After(time.Unix(int64(exp), 0))
}

// FileStore keeps the session in a local JSON file, the default backend for
// a single-driver agent.
type FileStore struct {
	mu   sync.RWMutex
	path string
	cur  domain.DriverSession
}

// NewFileStore opens (or initializes) the session file at path.
func NewFileStore(path string) (*FileStore, error) {
	s := &FileStore{
		path: path,
		cur:  domain.DriverSession{DriverID: domain.NoDriverID},
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading session file: %w", err)
	}
	if err := json.Unmarshal(data, &s.cur); err != nil {
		return nil, fmt.Errorf("decoding session file: %w", err)
	}
	return s, nil
}

// AuthToken returns the stored bearer token.
func (s *FileStore) AuthToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cur.AuthToken
}

// DriverID returns the stored driver identity.
func (s *FileStore) DriverID() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.cur.DriverID == 0 {
		return domain.NoDriverID
	}
	return s.cur.DriverID
}

// DriverName returns the stored driver name.
func (s *FileStore) DriverName() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cur.DriverName
}

// SaveAuthToken persists the bearer token.
func (s *FileStore) SaveAuthToken(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cur.AuthToken = token
	return s.flushLocked()
}

// SaveDriverInfo persists the driver identity.
func (s *FileStore) SaveDriverInfo(driverID int, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cur.DriverID = driverID
	s.cur.DriverName = name
	return s.flushLocked()
}

// Clear destroys the session.
func (s *FileStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cur = domain.DriverSession{DriverID: domain.NoDriverID}
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing session file: %w", err)
	}
	return nil
}

func (s *FileStore) flushLocked() error {
	data, err := json.Marshal(s.cur)
	if err != nil {
		return err
	}
	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return fmt.Errorf("writing session file: %w", err)
	}
	return nil
}
