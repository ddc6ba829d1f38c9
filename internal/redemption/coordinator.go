// Package redemption serializes meal redemption attempts per (participant, meal session) and
// exposes the scanner endpoint.
package redemption

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/nexothsav/hackportal/internal/entitlement"
	"github.com/nexothsav/hackportal/internal/models"
)

// Consumer performs one unguarded redemption.
type Consumer interface {
	TryConsume(ctx context.Context, userID string, meal models.MealType) (entitlement.Result, error)
}

// ResultHandler observes every non-busy redemption result (scanner feed, notification jobs).
type ResultHandler func(ctx context.Context, participantID string, res entitlement.Result)

// Coordinator guarantees that two overlapping attempts for the same pair never both reach the
// engine: the later one gets OutcomeBusy. Different pairs never contend.
type Coordinator struct {
	engine   Consumer
	guard    Guard
	logger   *zap.Logger
	mu       sync.RWMutex
	handlers []ResultHandler
}

// NewCoordinator creates a coordinator owning its guard registry.
func NewCoordinator(engine Consumer, guard Guard, logger *zap.Logger) *Coordinator {
	if guard == nil {
		guard = NewInFlight()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Coordinator{engine: engine, guard: guard, logger: logger}
}

// AddResultHandler registers an observer. Handlers run after the in-flight key is released.
func (c *Coordinator) AddResultHandler(fn ResultHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers = append(c.handlers, fn)
}

// Redeem runs one guarded redemption. A non-nil error means the store or the guard backend failed.
func (c *Coordinator) Redeem(ctx context.Context, participantID string, meal models.MealType) (entitlement.Result, error) {
	res, err := c.consume(ctx, participantID, meal)
	if err != nil {
		c.logger.Error("meal redemption failed",
			zap.String("participant_id", participantID), zap.String("meal", meal.Key()), zap.Error(err))
		return entitlement.Result{}, err
	}

	c.logger.Info("meal redemption",
		zap.String("participant_id", participantID),
		zap.String("meal", meal.Key()),
		zap.String("outcome", string(res.Outcome)),
	)
	if res.Outcome == entitlement.OutcomeBusy {
		return res, nil
	}

	c.mu.RLock()
	handlers := c.handlers
	c.mu.RUnlock()
	for _, h := range handlers {
		h(ctx, participantID, res)
	}
	return res, nil
}

func (c *Coordinator) consume(ctx context.Context, participantID string, meal models.MealType) (entitlement.Result, error) {
	release, acquired, err := c.guard.TryAcquire(ctx, Key(participantID, meal))
	if err != nil {
		return entitlement.Result{}, fmt.Errorf("acquire in-flight key: %w", err)
	}
	if !acquired {
		return entitlement.BusyResult(meal), nil
	}
	defer release()

	return c.engine.TryConsume(ctx, participantID, meal)
}
