package location

import (
	"context"
	"math/rand"
	"sync"
)

// SimulatedSource is a random-walk GPS stand-in for environments without a
// positioning stack.
type SimulatedSource struct {
	mu  sync.Mutex
	pos Position
}

// NewSimulatedSource starts the walk at the given coordinates.
func NewSimulatedSource(lat, lng float64) *SimulatedSource {
	return &SimulatedSource{pos: Position{Latitude: lat, Longitude: lng}}
}

// Current drifts the position slightly and returns it.
func (s *SimulatedSource) Current(_ context.Context) (Position, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pos.Latitude += (rand.Float64() - 0.5) / 1000
	s.pos.Longitude += (rand.Float64() - 0.5) / 1000
	return s.pos, nil
}
