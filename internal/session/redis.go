package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"driverapp/internal/domain"
)

const sessionKey = "driver:session"

const redisOpTimeout = 3 * time.Second

// RedisStore keeps the session in Redis, for deployments where the agent's
// local filesystem is ephemeral but a Redis instance survives restarts.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore verifies the connection and loads nothing eagerly; reads go
// to Redis on demand.
func NewRedisStore(ctx context.Context, client *redis.Client) (*RedisStore, error) {
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return &RedisStore{client: client}, nil
}

func (s *RedisStore) load() domain.DriverSession {
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()

	cur := domain.DriverSession{DriverID: domain.NoDriverID}
	data, err := s.client.Get(ctx, sessionKey).Bytes()
	if err != nil {
		return cur
	}
	if err := json.Unmarshal(data, &cur); err != nil {
		return domain.DriverSession{DriverID: domain.NoDriverID}
	}
	if cur.DriverID == 0 {
		cur.DriverID = domain.NoDriverID
	}
	return cur
}

func (s *RedisStore) save(cur domain.DriverSession) error {
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()

	data, err := json.Marshal(cur)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, sessionKey, data, 0).Err()
}

// AuthToken returns the stored bearer token.
func (s *RedisStore) AuthToken() string { return s.load().AuthToken }

// DriverID returns the stored driver identity.
func (s *RedisStore) DriverID() int { return s.load().DriverID }

// DriverName returns the stored driver name.
func (s *RedisStore) DriverName() string { return s.load().DriverName }

// SaveAuthToken persists the bearer token.
func (s *RedisStore) SaveAuthToken(token string) error {
	cur := s.load()
	cur.AuthToken = token
	return s.save(cur)
}

// SaveDriverInfo persists the driver identity.
func (s *RedisStore) SaveDriverInfo(driverID int, name string) error {
	cur := s.load()
	cur.DriverID = driverID
	cur.DriverName = name
	return s.save(cur)
}

// Clear destroys the session.
func (s *RedisStore) Clear() error {
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()
	return s.client.Del(ctx, sessionKey).Err()
}
