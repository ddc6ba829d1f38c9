package redemption

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/nexothsav/hackportal/internal/entitlement"
	"github.com/nexothsav/hackportal/internal/middleware"
	"github.com/nexothsav/hackportal/internal/models"
	"github.com/nexothsav/hackportal/internal/store"
	"github.com/nexothsav/hackportal/pkg/response"
)

// busyRetryAfter is how long a scanner should wait before retrying a busy pair.
const busyRetryAfter = time.Second

// MealReader reads a participant's meal sessions.
type MealReader interface {
	Meals(ctx context.Context, userID string) (models.Meals, error)
}

// Handler handles meal HTTP endpoints.
type Handler struct {
	coord  *Coordinator
	meals  MealReader
	now    func() time.Time
	logger *zap.Logger
}

// NewHandler creates a meals handler.
func NewHandler(coord *Coordinator, meals MealReader, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{coord: coord, meals: meals, now: time.Now, logger: logger}
}

// RedeemRequest is the body for POST /meals/redeem. ParticipantID is the scanned QR payload.
type RedeemRequest struct {
	ParticipantID string `json:"participant_id" binding:"required"`
	MealType      string `json:"meal_type" binding:"required"`
}

// Redeem handles POST /meals/redeem (staff). Every business outcome is 200 with the result in
// data; a pair already in flight is 409 with Retry-After.
func (h *Handler) Redeem(c *gin.Context) {
	var body RedeemRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "participant_id and meal_type required")
		return
	}
	participantID := strings.TrimSpace(body.ParticipantID)
	if participantID == "" {
		response.BadRequest(c, "participant_id required")
		return
	}
	meal, err := models.ParseMealType(body.MealType)
	if err != nil {
		response.BadRequest(c, "meal_type must be BREAKFAST, LUNCH or DINNER")
		return
	}

	res, err := h.coord.Redeem(c.Request.Context(), participantID, meal)
	if err != nil {
		h.logger.Error("redeem meal", zap.String("scanned_by", middleware.UserID(c)), zap.Error(err))
		response.Internal(c, "failed to redeem meal")
		return
	}
	switch {
	case res.Outcome == entitlement.OutcomeBusy:
		response.Busy(c, busyRetryAfter, res, res.Message)
	case res.Success:
		response.OK(c, res)
	default:
		response.Denied(c, res, res.Message)
	}
}

// MyMeals handles GET /me/meals.
func (h *Handler) MyMeals(c *gin.Context) {
	meals, err := h.meals.Meals(c.Request.Context(), middleware.UserID(c))
	if errors.Is(err, store.ErrNotFound) {
		response.NotFound(c, "user not found")
		return
	}
	if err != nil {
		response.Internal(c, "failed to load meals")
		return
	}
	response.OK(c, meals)
}

// CurrentMeal handles GET /meals/current.
func (h *Handler) CurrentMeal(c *gin.Context) {
	response.OK(c, gin.H{"meal_type": entitlement.CurrentSession(h.now())})
}
