package announcements

import (
	"errors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/nexothsav/hackportal/internal/middleware"
	"github.com/nexothsav/hackportal/pkg/response"
)

// Handler handles announcement HTTP endpoints.
type Handler struct {
	svc    *Service
	logger *zap.Logger
}

// NewHandler creates an announcements handler.
func NewHandler(svc *Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{svc: svc, logger: logger}
}

// CreateRequest is the body for POST /announcements.
type CreateRequest struct {
	Title   string `json:"title" binding:"required"`
	Message string `json:"message" binding:"required"`
	Author  string `json:"author"`
}

// List handles GET /announcements.
func (h *Handler) List(c *gin.Context) {
	list, err := h.svc.List(c.Request.Context())
	if err != nil {
		h.logger.Error("list announcements", zap.Error(err))
		response.Internal(c, "failed to load announcements")
		return
	}
	response.OK(c, list)
}

// Create handles POST /announcements (staff). Author defaults to the caller's email.
func (h *Handler) Create(c *gin.Context) {
	var body CreateRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "title and message required")
		return
	}
	author := body.Author
	if author == "" {
		author = c.GetString(middleware.ContextUserEmail)
	}
	a, err := h.svc.Create(c.Request.Context(), body.Title, body.Message, author)
	if errors.Is(err, ErrTitleRequired) || errors.Is(err, ErrMessageRequired) {
		response.BadRequest(c, err.Error())
		return
	}
	if err != nil {
		h.logger.Error("create announcement", zap.Error(err))
		response.Internal(c, "failed to post announcement")
		return
	}
	response.Created(c, a)
}
