package stats

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/nexothsav/hackportal/internal/models"
	"github.com/nexothsav/hackportal/internal/store"
)

func addUser(t *testing.T, ms *store.Memory, id string, role models.Role, pay models.PaymentStatus, consumed ...models.MealType) {
	t.Helper()
	at := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	meals := models.DefaultMeals()
	for _, m := range consumed {
		meals.Set(m, models.MealStatus{Eligible: true, Consumed: true, ConsumedAt: &at})
	}
	u := &models.User{ID: id, Name: id, Email: id + "@hack.com", Role: role, PaymentStatus: pay, Meals: meals}
	if err := ms.CreateUser(context.Background(), u); err != nil {
		t.Fatalf("create %s: %v", id, err)
	}
}

func TestGetStats_EmptyStoreHasZeroRates(t *testing.T) {
	s, err := NewAggregator(store.NewMemory(), 500, "INR").GetStats(context.Background())
	if err != nil {
		t.Fatalf("GetStats failed: %v", err)
	}
	for name, v := range map[string]float64{
		"payment":    s.PaymentRate,
		"breakfast":  s.MealRates.Breakfast,
		"lunch":      s.MealRates.Lunch,
		"dinner":     s.MealRates.Dinner,
		"redemption": s.RedemptionRate,
	} {
		if v != 0 || math.IsNaN(v) {
			t.Errorf("%s rate: expected 0, got %v", name, v)
		}
	}
}

func TestGetStats_NoPaidParticipants(t *testing.T) {
	ms := store.NewMemory()
	addUser(t, ms, "p1", models.RoleParticipant, models.PaymentPending)
	addUser(t, ms, "p2", models.RoleParticipant, models.PaymentFailed)

	s, err := NewAggregator(ms, 500, "INR").GetStats(context.Background())
	if err != nil {
		t.Fatalf("GetStats failed: %v", err)
	}
	if s.TotalParticipants != 2 || s.PaidParticipants != 0 {
		t.Errorf("Expected 2 participants, 0 paid, got %+v", s)
	}
	if s.MealRates.Lunch != 0 || s.RedemptionRate != 0 || s.PaymentRate != 0 {
		t.Errorf("Expected zero rates, got %+v", s)
	}
}

func TestGetStats_Rollup(t *testing.T) {
	ms := store.NewMemory()
	addUser(t, ms, "admin", models.RoleAdmin, models.PaymentPaid, models.MealLunch)
	addUser(t, ms, "org", models.RoleOrganizer, models.PaymentPending)
	addUser(t, ms, "a", models.RoleParticipant, models.PaymentPaid, models.MealBreakfast, models.MealLunch)
	addUser(t, ms, "b", models.RoleParticipant, models.PaymentPaid, models.MealLunch)
	addUser(t, ms, "c", models.RoleParticipant, models.PaymentPending)
	// Unpaid consumption never counts.
	addUser(t, ms, "d", models.RoleParticipant, models.PaymentFailed, models.MealDinner)
	if err := ms.CreateTeam(context.Background(), &models.Team{ID: "t1", Name: "T", InviteCode: "ABC234", LeaderID: "a", Members: []string{"a"}}); err != nil {
		t.Fatalf("create team: %v", err)
	}

	s, err := NewAggregator(ms, 500, "INR").GetStats(context.Background())
	if err != nil {
		t.Fatalf("GetStats failed: %v", err)
	}
	if s.TotalUsers != 6 || s.TotalParticipants != 4 || s.PaidParticipants != 2 || s.TotalTeams != 1 {
		t.Errorf("Unexpected totals: %+v", s)
	}
	want := MealCounts{Breakfast: 1, Lunch: 2, Dinner: 0}
	if s.MealsConsumed != want {
		t.Errorf("Expected meals %+v, got %+v", want, s.MealsConsumed)
	}
	if s.TotalMealsServed != 3 {
		t.Errorf("Expected 3 meals served, got %d", s.TotalMealsServed)
	}
	if s.PaymentRate != 50 {
		t.Errorf("Expected payment rate 50, got %v", s.PaymentRate)
	}
	if s.MealRates.Lunch != 100 || s.MealRates.Breakfast != 50 || s.MealRates.Dinner != 0 {
		t.Errorf("Unexpected meal rates %+v", s.MealRates)
	}
	if s.RedemptionRate != 50 {
		t.Errorf("Expected redemption rate 50, got %v", s.RedemptionRate)
	}
	if s.Revenue != 1000 || s.Currency != "INR" {
		t.Errorf("Expected revenue 1000 INR, got %d %s", s.Revenue, s.Currency)
	}
}

type brokenSource struct{}

func (brokenSource) ListUsers(context.Context) ([]*models.User, error) {
	return nil, errors.New("db down")
}

func (brokenSource) ListTeams(context.Context) ([]*models.Team, error) { return nil, nil }

func TestHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	ms := store.NewMemory()
	addUser(t, ms, "a", models.RoleParticipant, models.PaymentPaid, models.MealDinner)

	r := gin.New()
	r.GET("/admin/stats", NewHandler(NewAggregator(ms, 500, "INR"), nil).Get)
	r.GET("/broken", NewHandler(NewAggregator(brokenSource{}, 500, "INR"), nil).Get)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/admin/stats", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	var body struct {
		Success bool  `json:"success"`
		Data    Stats `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !body.Success || body.Data.MealsConsumed.Dinner != 1 || body.Data.TotalMealsServed != 1 {
		t.Errorf("Unexpected body %+v", body)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/broken", nil))
	if w.Code != http.StatusInternalServerError {
		t.Errorf("Expected 500 on store failure, got %d", w.Code)
	}
}
