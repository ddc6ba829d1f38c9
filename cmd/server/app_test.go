package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/nexothsav/hackportal/config"
	"github.com/nexothsav/hackportal/internal/store"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	s := store.NewMemory()
	if err := store.SeedDemo(context.Background(), s, time.Now()); err != nil {
		t.Fatalf("seed: %v", err)
	}
	cfg := &config.Config{
		JWT:    config.JWTConfig{Secret: "test-secret", ExpireHours: 1},
		Event:  config.EventConfig{EntryFee: 500, Currency: "INR"},
		Guard:  config.GuardConfig{Backend: config.GuardMemory, TTLSec: 10},
		Server: config.ServerConfig{CORSAllowedOrigins: "*"},
	}
	return newApp(cfg, s, nil, nil).routes()
}

func do(t *testing.T, r *gin.Engine, method, path, token string, body interface{}) (int, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	var env envelope
	_ = json.Unmarshal(w.Body.Bytes(), &env)
	return w.Code, env
}

func login(t *testing.T, r *gin.Engine, email string) string {
	t.Helper()
	code, env := do(t, r, http.MethodPost, "/auth/login", "", map[string]string{"email": email})
	if code != http.StatusOK && code != http.StatusCreated {
		t.Fatalf("login %s: %d %s", email, code, env.Error)
	}
	var data struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil || data.Token == "" {
		t.Fatalf("login %s: no token (%v)", email, err)
	}
	return data.Token
}

func TestRoutes_MealDay(t *testing.T) {
	r := newTestRouter(t)
	admin := login(t, r, "admin@hack.com")
	alice := login(t, r, "alice@hack.com")

	if code, _ := do(t, r, http.MethodGet, "/health", "", nil); code != http.StatusOK {
		t.Errorf("health: expected 200, got %d", code)
	}
	if code, _ := do(t, r, http.MethodGet, "/me/meals", "", nil); code != http.StatusUnauthorized {
		t.Errorf("Expected 401 without token, got %d", code)
	}
	if code, _ := do(t, r, http.MethodPost, "/meals/redeem", alice, map[string]string{"participant_id": "u1", "meal_type": "LUNCH"}); code != http.StatusForbidden {
		t.Errorf("Participants must not redeem, got %d", code)
	}

	tests := []struct {
		participant string
		success     bool
		outcome     string
	}{
		{"u1", true, "APPROVED"},
		{"u1", false, "ALREADY_CONSUMED"},
		{"u2", false, "PAYMENT_REQUIRED"},
		{"nobody", false, "USER_NOT_FOUND"},
	}
	for _, tt := range tests {
		code, env := do(t, r, http.MethodPost, "/meals/redeem", admin, map[string]string{"participant_id": tt.participant, "meal_type": "LUNCH"})
		if code != http.StatusOK || env.Success != tt.success {
			t.Errorf("%s: expected 200/%v, got %d/%v", tt.participant, tt.success, code, env.Success)
			continue
		}
		var res struct {
			Outcome string `json:"outcome"`
		}
		_ = json.Unmarshal(env.Data, &res)
		if res.Outcome != tt.outcome {
			t.Errorf("%s: expected %s, got %s", tt.participant, tt.outcome, res.Outcome)
		}
	}

	code, env := do(t, r, http.MethodGet, "/admin/stats", admin, nil)
	if code != http.StatusOK {
		t.Fatalf("stats: expected 200, got %d", code)
	}
	var st struct {
		PaidParticipants int `json:"paid_participants"`
		TotalMealsServed int `json:"total_meals_served"`
	}
	if err := json.Unmarshal(env.Data, &st); err != nil {
		t.Fatalf("decode stats: %v", err)
	}
	if st.PaidParticipants != 1 || st.TotalMealsServed != 1 {
		t.Errorf("Unexpected stats %+v", st)
	}
	if code, _ := do(t, r, http.MethodGet, "/admin/stats", alice, nil); code != http.StatusForbidden {
		t.Errorf("Expected 403 for participant stats, got %d", code)
	}
}

func TestRoutes_PaymentThenRedeem(t *testing.T) {
	r := newTestRouter(t)
	admin := login(t, r, "admin@hack.com")
	bob := login(t, r, "bob@hack.com")

	if code, env := do(t, r, http.MethodPost, "/payments", bob, nil); code != http.StatusOK || !env.Success {
		t.Fatalf("pay: %d %s", code, env.Error)
	}
	code, env := do(t, r, http.MethodPost, "/meals/redeem", admin, map[string]string{"participant_id": "u2", "meal_type": "DINNER"})
	if code != http.StatusOK || !env.Success {
		t.Errorf("Expected approval after payment, got %d %+v", code, env)
	}
	if code, _ := do(t, r, http.MethodGet, "/no/such/route", "", nil); code != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", code)
	}
}
