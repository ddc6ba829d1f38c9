package payments

import (
	"errors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/nexothsav/hackportal/internal/middleware"
	"github.com/nexothsav/hackportal/pkg/response"
)

// Handler handles payment HTTP endpoints.
type Handler struct {
	svc    *Service
	logger *zap.Logger
}

// NewHandler creates a payments handler.
func NewHandler(svc *Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{svc: svc, logger: logger}
}

// Pay handles POST /payments. Pays the caller's own entry fee.
func (h *Handler) Pay(c *gin.Context) {
	res, err := h.svc.ProcessPayment(c.Request.Context(), middleware.UserID(c))
	if errors.Is(err, ErrUserNotFound) {
		response.NotFound(c, err.Error())
		return
	}
	if err != nil {
		h.logger.Error("process payment", zap.Error(err))
		response.Internal(c, "payment failed")
		return
	}
	response.OK(c, res)
}

// Status handles GET /payments/status.
func (h *Handler) Status(c *gin.Context) {
	status, err := h.svc.GetPaymentStatus(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		h.logger.Error("payment status", zap.Error(err))
		response.Internal(c, "failed to load payment status")
		return
	}
	response.OK(c, gin.H{"payment_status": status})
}
