package entitlement

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/nexothsav/hackportal/internal/models"
	"github.com/nexothsav/hackportal/internal/store"
)

func seedUser(t *testing.T, ms *store.Memory, id string, payment models.PaymentStatus, mutate func(*models.Meals)) {
	t.Helper()
	meals := models.DefaultMeals()
	if mutate != nil {
		mutate(&meals)
	}
	u := &models.User{
		ID:            id,
		Name:          "Name " + id,
		Email:         id + "@hack.com",
		Role:          models.RoleParticipant,
		PaymentStatus: payment,
		Meals:         meals,
	}
	if err := ms.CreateUser(context.Background(), u); err != nil {
		t.Fatalf("seed %s: %v", id, err)
	}
}

func TestTryConsume_DecisionOrder(t *testing.T) {
	consumedAt := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	tests := []struct {
		name    string
		payment models.PaymentStatus
		mutate  func(*models.Meals)
		userID  string
		want    Outcome
		wantMsg string
	}{
		{"missing user", models.PaymentPaid, nil, "ghost", OutcomeUserNotFound, MsgUserNotFound},
		{"pending payment wins over ineligible", models.PaymentPending, func(m *models.Meals) {
			m.Lunch.Eligible = false
		}, "u", OutcomePaymentRequired, MsgPaymentRequired},
		{"failed payment wins over consumed", models.PaymentFailed, func(m *models.Meals) {
			m.Lunch = models.MealStatus{Eligible: true, Consumed: true, ConsumedAt: &consumedAt}
		}, "u", OutcomePaymentRequired, MsgPaymentRequired},
		{"ineligible wins over consumed", models.PaymentPaid, func(m *models.Meals) {
			m.Lunch = models.MealStatus{Eligible: false, Consumed: true, ConsumedAt: &consumedAt}
		}, "u", OutcomeNotEligible, MsgNotEligible},
		{"already consumed", models.PaymentPaid, func(m *models.Meals) {
			m.Lunch = models.MealStatus{Eligible: true, Consumed: true, ConsumedAt: &consumedAt}
		}, "u", OutcomeAlreadyConsumed, MsgAlreadyConsumed},
		{"approved", models.PaymentPaid, nil, "u", OutcomeApproved, MsgApproved},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ms := store.NewMemory()
			seedUser(t, ms, "u", tt.payment, tt.mutate)
			e := NewEngine(ms, nil)

			res, err := e.TryConsume(context.Background(), tt.userID, models.MealLunch)
			if err != nil {
				t.Fatalf("TryConsume failed: %v", err)
			}
			if res.Outcome != tt.want || res.Message != tt.wantMsg {
				t.Errorf("Expected %s %q, got %s %q", tt.want, tt.wantMsg, res.Outcome, res.Message)
			}
			if res.Success != (tt.want == OutcomeApproved) {
				t.Errorf("Success flag %v does not match outcome %s", res.Success, res.Outcome)
			}
		})
	}
}

func TestTryConsume_ApprovedThenAlreadyConsumed(t *testing.T) {
	ms := store.NewMemory()
	seedUser(t, ms, "u1", models.PaymentPaid, nil)
	e := NewEngine(ms, nil)
	fixed := time.Date(2026, 3, 1, 13, 0, 0, 0, time.UTC)
	e.now = func() time.Time { return fixed }
	ctx := context.Background()

	first, err := e.TryConsume(ctx, "u1", models.MealDinner)
	if err != nil || !first.Success {
		t.Fatalf("Expected approval, got %+v, %v", first, err)
	}
	if first.UserName != "Name u1" || first.MealType != models.MealDinner {
		t.Errorf("Expected name and meal echoed, got %+v", first)
	}
	if first.ConsumedAt == nil || !first.ConsumedAt.Equal(fixed) {
		t.Errorf("Expected consumed_at %v, got %v", fixed, first.ConsumedAt)
	}

	for i := 0; i < 5; i++ {
		again, err := e.TryConsume(ctx, "u1", models.MealDinner)
		if err != nil {
			t.Fatalf("TryConsume failed: %v", err)
		}
		if again.Success || again.Outcome != OutcomeAlreadyConsumed {
			t.Fatalf("Attempt %d: expected ALREADY_CONSUMED, got %+v", i, again)
		}
		if !strings.Contains(again.Message, "already") {
			t.Errorf("Expected message mentioning already, got %q", again.Message)
		}
	}

	meals, err := e.Meals(ctx, "u1")
	if err != nil {
		t.Fatalf("Meals failed: %v", err)
	}
	if !meals.Dinner.Consumed || meals.Lunch.Consumed || meals.Breakfast.Consumed {
		t.Errorf("Expected only dinner consumed, got %+v", meals)
	}
}

func TestTryConsume_PaymentRequiredForEveryMeal(t *testing.T) {
	ms := store.NewMemory()
	seedUser(t, ms, "p", models.PaymentPending, nil)
	e := NewEngine(ms, nil)
	for _, meal := range models.MealTypes {
		res, err := e.TryConsume(context.Background(), "p", meal)
		if err != nil {
			t.Fatalf("TryConsume failed: %v", err)
		}
		if res.Outcome != OutcomePaymentRequired {
			t.Errorf("%s: expected PAYMENT_REQUIRED, got %s", meal, res.Outcome)
		}
	}
	meals, _ := e.Meals(context.Background(), "p")
	if meals != models.DefaultMeals() {
		t.Errorf("Denials must not change state, got %+v", meals)
	}
}

func TestTryConsume_InvalidMeal(t *testing.T) {
	e := NewEngine(store.NewMemory(), nil)
	_, err := e.TryConsume(context.Background(), "u", models.MealType("SNACK"))
	if !errors.Is(err, ErrInvalidMealType) {
		t.Errorf("Expected ErrInvalidMealType, got %v", err)
	}
}

type failingStore struct {
	user       *models.User
	getErr     error
	consumeOK  bool
	consumeErr error
}

func (f *failingStore) GetUser(context.Context, string) (*models.User, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.user.Clone(), nil
}

func (f *failingStore) ConsumeMeal(context.Context, string, models.MealType, time.Time) (bool, error) {
	return f.consumeOK, f.consumeErr
}

func paidUser() *models.User {
	return &models.User{ID: "u", Name: "U", PaymentStatus: models.PaymentPaid, Meals: models.DefaultMeals()}
}

func TestTryConsume_StorageFailuresSurfaceAsErrors(t *testing.T) {
	boom := errors.New("disk on fire")

	e := NewEngine(&failingStore{getErr: boom}, nil)
	if _, err := e.TryConsume(context.Background(), "u", models.MealLunch); !errors.Is(err, boom) {
		t.Errorf("Expected read failure to surface, got %v", err)
	}

	e = NewEngine(&failingStore{user: paidUser(), consumeErr: boom}, nil)
	if _, err := e.TryConsume(context.Background(), "u", models.MealLunch); !errors.Is(err, boom) {
		t.Errorf("Expected write failure to surface, got %v", err)
	}
}

func TestTryConsume_LostWriteRaceIsAlreadyConsumed(t *testing.T) {
	e := NewEngine(&failingStore{user: paidUser(), consumeOK: false}, nil)
	res, err := e.TryConsume(context.Background(), "u", models.MealLunch)
	if err != nil {
		t.Fatalf("TryConsume failed: %v", err)
	}
	if res.Outcome != OutcomeAlreadyConsumed {
		t.Errorf("Expected ALREADY_CONSUMED when the conditional write loses, got %s", res.Outcome)
	}
}

func TestCurrentSession(t *testing.T) {
	day := func(h int) time.Time { return time.Date(2026, 3, 1, h, 30, 0, 0, time.UTC) }
	tests := []struct {
		hour int
		want models.MealType
	}{
		{5, models.MealDinner},
		{6, models.MealBreakfast},
		{10, models.MealBreakfast},
		{11, models.MealLunch},
		{15, models.MealLunch},
		{16, models.MealDinner},
		{23, models.MealDinner},
	}
	for _, tt := range tests {
		if got := CurrentSession(day(tt.hour)); got != tt.want {
			t.Errorf("hour %d: expected %s, got %s", tt.hour, tt.want, got)
		}
	}
}
