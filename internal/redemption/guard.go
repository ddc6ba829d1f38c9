package redemption

import (
	"context"
	"sync"

	"github.com/nexothsav/hackportal/internal/models"
)

// Guard marks keys as in flight. TryAcquire never blocks waiting for a holder: it either takes the
// key (acquired=true, release must be called exactly once) or reports it taken.
type Guard interface {
	TryAcquire(ctx context.Context, key string) (release func(), acquired bool, err error)
}

// Key is the in-flight key of a (participant, meal session) pair.
func Key(userID string, meal models.MealType) string {
	return userID + ":" + meal.Key()
}

// InFlight is a Guard local to one process. It does not protect against other server instances
// or survive restarts; use RedisGuard when more than one instance serves the scanner.
type InFlight struct {
	mu   sync.Mutex
	keys map[string]struct{}
}

// NewInFlight creates an empty in-process guard registry.
func NewInFlight() *InFlight {
	return &InFlight{keys: make(map[string]struct{})}
}

var _ Guard = (*InFlight)(nil)

// TryAcquire takes key if no one holds it.
func (g *InFlight) TryAcquire(_ context.Context, key string) (func(), bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, held := g.keys[key]; held {
		return nil, false, nil
	}
	g.keys[key] = struct{}{}
	var once sync.Once
	release := func() {
		once.Do(func() {
			g.mu.Lock()
			delete(g.keys, key)
			g.mu.Unlock()
		})
	}
	return release, true, nil
}

// Len returns the number of keys currently held.
func (g *InFlight) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.keys)
}
