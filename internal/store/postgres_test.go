package store

import (
	"context"
	"errors"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nexothsav/hackportal/internal/models"
	"github.com/nexothsav/hackportal/pkg/database"
)

// newTestPostgres connects to DATABASE_URL and migrates it. Tests skip without one.
func newTestPostgres(t *testing.T) *Postgres {
	t.Helper()
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set")
	}
	ctx := context.Background()
	pool, err := database.NewPostgresPool(ctx, dsn, 8, zap.NewNop())
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(pool.Close)
	if err := database.Migrate(ctx, pool, zap.NewNop()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return NewPostgres(pool)
}

// createTestUser inserts a user with a unique ID and removes it when the test ends.
func createTestUser(t *testing.T, p *Postgres, mutate func(*models.User)) *models.User {
	t.Helper()
	id := "test-" + uuid.NewString()
	u := newUser(id, id+"@hack.com")
	if mutate != nil {
		mutate(u)
	}
	ctx := context.Background()
	if err := p.CreateUser(ctx, u); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	t.Cleanup(func() { _, _ = p.pool.Exec(context.Background(), `DELETE FROM users WHERE id = $1`, id) })
	return u
}

func TestPostgres_ConsumeMealOnce(t *testing.T) {
	p := newTestPostgres(t)
	ctx := context.Background()
	u := createTestUser(t, p, nil)
	at := time.Now().UTC().Truncate(time.Millisecond)

	if ok, err := p.ConsumeMeal(ctx, u.ID, models.MealLunch, at); err != nil || !ok {
		t.Fatalf("Expected first consume to apply, got %v, %v", ok, err)
	}
	if ok, err := p.ConsumeMeal(ctx, u.ID, models.MealLunch, at.Add(time.Minute)); err != nil || ok {
		t.Errorf("Expected second consume refused without error, got %v, %v", ok, err)
	}
	got, err := p.GetUser(ctx, u.ID)
	if err != nil {
		t.Fatalf("GetUser: %v", err)
	}
	lunch := got.Meals.Get(models.MealLunch)
	if !lunch.Consumed || lunch.ConsumedAt == nil || !lunch.ConsumedAt.Equal(at) {
		t.Errorf("Expected lunch consumed at %v, got %+v", at, lunch)
	}
	if got.Meals.Get(models.MealDinner).Consumed || got.Meals.Get(models.MealBreakfast).Consumed {
		t.Errorf("Other sessions must stay untouched, got %+v", got.Meals)
	}

	if _, err := p.ConsumeMeal(ctx, "test-missing-"+uuid.NewString(), models.MealLunch, at); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound for a missing user, got %v", err)
	}
}

func TestPostgres_ConcurrentConsumeApprovesOnce(t *testing.T) {
	p := newTestPostgres(t)
	u := createTestUser(t, p, nil)

	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := p.ConsumeMeal(context.Background(), u.ID, models.MealDinner, time.Now())
			if err != nil {
				t.Errorf("ConsumeMeal: %v", err)
			}
			if ok {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()
	if wins.Load() != 1 {
		t.Errorf("Expected exactly one winner, got %d", wins.Load())
	}
}

func TestPostgres_MarkPaidKeepsConsumedFlags(t *testing.T) {
	p := newTestPostgres(t)
	ctx := context.Background()
	u := createTestUser(t, p, func(u *models.User) {
		u.Meals.Set(models.MealBreakfast, models.MealStatus{Eligible: false})
	})
	if _, err := p.ConsumeMeal(ctx, u.ID, models.MealLunch, time.Now()); err != nil {
		t.Fatalf("ConsumeMeal: %v", err)
	}

	if ok, err := p.MarkPaid(ctx, u.ID, time.Now()); err != nil || !ok {
		t.Fatalf("Expected MarkPaid to apply, got %v, %v", ok, err)
	}
	got, _ := p.GetUser(ctx, u.ID)
	if got.PaymentStatus != models.PaymentPaid || got.ParticipantQRData != u.ID {
		t.Errorf("Unexpected payment state %s %q", got.PaymentStatus, got.ParticipantQRData)
	}
	if !got.Meals.Get(models.MealBreakfast).Eligible || !got.Meals.Get(models.MealLunch).Consumed {
		t.Errorf("Expected breakfast eligible and lunch still consumed, got %+v", got.Meals)
	}

	if ok, err := p.MarkPaid(ctx, u.ID, time.Now()); err != nil || ok {
		t.Errorf("Expected second MarkPaid refused without error, got %v, %v", ok, err)
	}
	if _, err := p.MarkPaid(ctx, "test-missing-"+uuid.NewString(), time.Now()); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestPostgres_SetAndClearUserTeam(t *testing.T) {
	p := newTestPostgres(t)
	ctx := context.Background()
	u := createTestUser(t, p, nil)

	if ok, err := p.SetUserTeam(ctx, u.ID, "t1", time.Now()); err != nil || !ok {
		t.Fatalf("Expected link to apply, got %v, %v", ok, err)
	}
	if ok, err := p.SetUserTeam(ctx, u.ID, "t2", time.Now()); err != nil || ok {
		t.Errorf("Expected second link refused, got %v, %v", ok, err)
	}
	if ok, err := p.ClearUserTeam(ctx, u.ID, "t2", time.Now()); err != nil || ok {
		t.Errorf("Expected clear for another team refused, got %v, %v", ok, err)
	}
	if ok, err := p.ClearUserTeam(ctx, u.ID, "t1", time.Now()); err != nil || !ok {
		t.Fatalf("Expected clear to apply, got %v, %v", ok, err)
	}
	got, _ := p.GetUser(ctx, u.ID)
	if got.TeamID != "" {
		t.Errorf("Expected no team, got %q", got.TeamID)
	}
	if _, err := p.SetUserTeam(ctx, "test-missing-"+uuid.NewString(), "t1", time.Now()); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}
