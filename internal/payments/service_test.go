package payments

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/nexothsav/hackportal/internal/auth"
	"github.com/nexothsav/hackportal/internal/entitlement"
	"github.com/nexothsav/hackportal/internal/middleware"
	"github.com/nexothsav/hackportal/internal/models"
	"github.com/nexothsav/hackportal/internal/redemption"
	"github.com/nexothsav/hackportal/internal/store"
	"github.com/nexothsav/hackportal/pkg/queue"
)

type fakeQueue struct {
	mu   sync.Mutex
	jobs []queue.PaymentReceiptPayload
	err  error
}

func (f *fakeQueue) EnqueuePaymentReceipt(_ context.Context, p queue.PaymentReceiptPayload) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.jobs = append(f.jobs, p)
	return nil
}

func pendingStore(t *testing.T, ids ...string) *store.Memory {
	t.Helper()
	ms := store.NewMemory()
	for _, id := range ids {
		u := &models.User{ID: id, Name: "Name " + id, Email: id + "@hack.com", Role: models.RoleParticipant,
			PaymentStatus: models.PaymentPending, Meals: models.DefaultMeals()}
		if err := ms.CreateUser(context.Background(), u); err != nil {
			t.Fatalf("create %s: %v", id, err)
		}
	}
	return ms
}

func TestProcessPayment(t *testing.T) {
	ms := pendingStore(t, "u1")
	q := &fakeQueue{}
	svc := NewService(ms, 500, "INR", q, nil)
	ctx := context.Background()

	res, err := svc.ProcessPayment(ctx, "u1")
	if err != nil {
		t.Fatalf("ProcessPayment failed: %v", err)
	}
	if !res.Success || res.Message != "Payment of ₹500 successful!" || res.QRData != "u1" {
		t.Errorf("Unexpected result %+v", res)
	}
	if len(q.jobs) != 1 || q.jobs[0].RecipientEmail != "u1@hack.com" || q.jobs[0].Amount != 500 {
		t.Errorf("Expected one receipt job, got %+v", q.jobs)
	}

	again, err := svc.ProcessPayment(ctx, "u1")
	if err != nil || !again.Success || again.Message != MsgAlreadyPaid {
		t.Errorf("Expected already paid, got %+v, %v", again, err)
	}
	if len(q.jobs) != 1 {
		t.Errorf("Repeat payment must not send another receipt, got %d", len(q.jobs))
	}

	status, err := svc.GetPaymentStatus(ctx, "u1")
	if err != nil || status != models.PaymentPaid {
		t.Errorf("Expected PAID, got %s, %v", status, err)
	}
	status, err = svc.GetPaymentStatus(ctx, "ghost")
	if err != nil || status != models.PaymentPending {
		t.Errorf("Expected PENDING for unknown user, got %s, %v", status, err)
	}

	if _, err := svc.ProcessPayment(ctx, "ghost"); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("Expected ErrUserNotFound, got %v", err)
	}
}

func TestProcessPayment_QueueFailureDoesNotFailPayment(t *testing.T) {
	ms := pendingStore(t, "u1")
	svc := NewService(ms, 500, "INR", &fakeQueue{err: errors.New("redis down")}, nil)
	res, err := svc.ProcessPayment(context.Background(), "u1")
	if err != nil || !res.Success {
		t.Errorf("Expected payment to succeed, got %+v, %v", res, err)
	}
}

func TestProcessPayment_NilQueue(t *testing.T) {
	svc := NewService(pendingStore(t, "u1"), 10, "USD", nil, nil)
	res, err := svc.ProcessPayment(context.Background(), "u1")
	if err != nil || res.Message != "Payment of $10 successful!" {
		t.Errorf("Unexpected result %+v, %v", res, err)
	}
}

func TestPaymentUnlocksMeals(t *testing.T) {
	ms := pendingStore(t, "u1")
	coord := redemption.NewCoordinator(entitlement.NewEngine(ms, nil), redemption.NewInFlight(), nil)
	svc := NewService(ms, 500, "INR", nil, nil)
	ctx := context.Background()

	before, err := coord.Redeem(ctx, "u1", models.MealLunch)
	if err != nil {
		t.Fatalf("Redeem failed: %v", err)
	}
	if before.Success || !strings.Contains(before.Message, "Payment required") {
		t.Fatalf("Expected payment required, got %+v", before)
	}

	if _, err := svc.ProcessPayment(ctx, "u1"); err != nil {
		t.Fatalf("ProcessPayment failed: %v", err)
	}

	approved, err := coord.Redeem(ctx, "u1", models.MealLunch)
	if err != nil || !approved.Success {
		t.Fatalf("Expected approval after payment, got %+v, %v", approved, err)
	}
	repeat, err := coord.Redeem(ctx, "u1", models.MealLunch)
	if err != nil {
		t.Fatalf("Redeem failed: %v", err)
	}
	if repeat.Success || !strings.Contains(strings.ToLower(repeat.Message), "already") {
		t.Errorf("Expected already redeemed, got %+v", repeat)
	}

	// Paying again never resets a redeemed session.
	if _, err := svc.ProcessPayment(ctx, "u1"); err != nil {
		t.Fatalf("ProcessPayment failed: %v", err)
	}
	u, _ := ms.GetUser(ctx, "u1")
	if !u.Meals.Lunch.Consumed {
		t.Error("Expected lunch to stay consumed")
	}
}

func TestHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewHandler(NewService(pendingStore(t, "u1"), 500, "INR", nil, nil), nil)
	as := func(id string) gin.HandlerFunc {
		return func(c *gin.Context) {
			middleware.SetClaims(c, &auth.Claims{UserID: id, Role: models.RoleParticipant})
		}
	}
	r := gin.New()
	r.POST("/u1/payments", as("u1"), h.Pay)
	r.POST("/ghost/payments", as("ghost"), h.Pay)
	r.GET("/u1/payments/status", as("u1"), h.Status)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/u1/payments", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	var body struct {
		Data Result `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Data.Status != models.PaymentPaid {
		t.Errorf("Expected PAID, got %+v", body.Data)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/ghost/payments", nil))
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for unknown user, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/u1/payments/status", nil))
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"PAID"`) {
		t.Errorf("Expected PAID status, got %d %s", w.Code, w.Body.String())
	}
}
