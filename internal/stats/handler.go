package stats

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/nexothsav/hackportal/pkg/response"
)

// Handler handles GET /admin/stats.
type Handler struct {
	agg    *Aggregator
	logger *zap.Logger
}

// NewHandler creates a stats handler.
func NewHandler(agg *Aggregator, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{agg: agg, logger: logger}
}

// Get handles GET /admin/stats. Staff only (enforced by route middleware).
func (h *Handler) Get(c *gin.Context) {
	s, err := h.agg.GetStats(c.Request.Context())
	if err != nil {
		h.logger.Error("load stats", zap.Error(err))
		response.Internal(c, "failed to load stats")
		return
	}
	response.OK(c, s)
}
