// Package entitlement decides whether a participant may redeem a meal session and performs the
// single state transition when they may.
package entitlement

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/nexothsav/hackportal/internal/models"
	"github.com/nexothsav/hackportal/internal/store"
)

// ErrInvalidMealType is returned for a meal type outside breakfast/lunch/dinner.
var ErrInvalidMealType = errors.New("invalid meal type")

// UserStore is the part of the store the engine reads and writes.
type UserStore interface {
	GetUser(ctx context.Context, id string) (*models.User, error)
	ConsumeMeal(ctx context.Context, userID string, meal models.MealType, at time.Time) (bool, error)
}

// Engine evaluates and applies meal redemptions.
//
// The check-then-write in TryConsume is not guarded here; concurrent attempts on the same
// (user, meal) pair must be serialized by the caller (see package redemption).
type Engine struct {
	users  UserStore
	now    func() time.Time
	logger *zap.Logger
}

// NewEngine creates an entitlement engine over a user store.
func NewEngine(users UserStore, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{users: users, now: time.Now, logger: logger}
}

// TryConsume checks, in order: user exists, payment is PAID, the session is eligible, the session
// is not yet consumed. The first failing check decides the result. When all pass the session is
// marked consumed at the current time.
//
// Business denials are returned as a Result with a nil error. A non-nil error means the store failed.
func (e *Engine) TryConsume(ctx context.Context, userID string, meal models.MealType) (Result, error) {
	if _, err := models.ParseMealType(string(meal)); err != nil {
		return Result{}, fmt.Errorf("%w: %q", ErrInvalidMealType, meal)
	}

	user, err := e.users.GetUser(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return Result{Outcome: OutcomeUserNotFound, Message: MsgUserNotFound}, nil
	}
	if err != nil {
		return Result{}, fmt.Errorf("load user %s: %w", userID, err)
	}

	if user.PaymentStatus != models.PaymentPaid {
		return Result{Outcome: OutcomePaymentRequired, Message: MsgPaymentRequired, UserName: user.Name}, nil
	}

	status := user.Meals.Get(meal)
	if !status.Eligible {
		return Result{Outcome: OutcomeNotEligible, Message: MsgNotEligible, MealType: meal, UserName: user.Name}, nil
	}
	if status.Consumed {
		return e.alreadyConsumed(meal, user.Name, status.ConsumedAt), nil
	}

	at := e.now()
	ok, err := e.users.ConsumeMeal(ctx, userID, meal, at)
	if errors.Is(err, store.ErrNotFound) {
		return Result{Outcome: OutcomeUserNotFound, Message: MsgUserNotFound}, nil
	}
	if err != nil {
		return Result{}, fmt.Errorf("consume %s for %s: %w", meal.Key(), userID, err)
	}
	if !ok {
		// Another writer flipped the flag between our read and write.
		e.logger.Warn("meal consumed by concurrent writer",
			zap.String("participant_id", userID), zap.String("meal", meal.Key()))
		return e.alreadyConsumed(meal, user.Name, nil), nil
	}

	return Result{
		Success:    true,
		Outcome:    OutcomeApproved,
		Message:    MsgApproved,
		MealType:   meal,
		UserName:   user.Name,
		ConsumedAt: &at,
	}, nil
}

func (e *Engine) alreadyConsumed(meal models.MealType, name string, at *time.Time) Result {
	return Result{
		Outcome:    OutcomeAlreadyConsumed,
		Message:    MsgAlreadyConsumed,
		MealType:   meal,
		UserName:   name,
		ConsumedAt: at,
	}
}

// Meals returns the meal sessions of a user.
func (e *Engine) Meals(ctx context.Context, userID string) (models.Meals, error) {
	user, err := e.users.GetUser(ctx, userID)
	if err != nil {
		return models.Meals{}, err
	}
	return user.Meals, nil
}

// CurrentSession returns the meal being served at t: breakfast from 06:00, lunch from 11:00,
// dinner from 16:00 until 06:00 the next day.
func CurrentSession(t time.Time) models.MealType {
	switch h := t.Hour(); {
	case h >= 6 && h < 11:
		return models.MealBreakfast
	case h >= 11 && h < 16:
		return models.MealLunch
	default:
		return models.MealDinner
	}
}
