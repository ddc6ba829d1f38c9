package auth

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/nexothsav/hackportal/internal/models"
	"github.com/nexothsav/hackportal/pkg/response"
)

// ContextUserID mirrors the key the JWT middleware stores the caller's ID under.
const ContextUserID = "user_id"

// LoginRequest is the body for POST /auth/login. Login is by email only; unknown addresses are registered.
type LoginRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// TokenResponse is the auth response with JWT.
type TokenResponse struct {
	Token   string       `json:"token"`
	User    *models.User `json:"user"`
	Created bool         `json:"created"`
}

// Handler handles auth and user HTTP endpoints.
type Handler struct {
	svc    *Service
	jwt    *JWTService
	logger *zap.Logger
}

// NewHandler creates an auth handler.
func NewHandler(svc *Service, jwt *JWTService, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{svc: svc, jwt: jwt, logger: logger}
}

// Login handles POST /auth/login.
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	user, created, err := h.svc.FindOrCreateUser(c.Request.Context(), req.Email)
	if errors.Is(err, ErrInvalidEmail) {
		response.BadRequest(c, "invalid email")
		return
	}
	if err != nil {
		h.logger.Error("login", zap.Error(err))
		response.Internal(c, "failed to sign in")
		return
	}

	token, err := h.jwt.Generate(user)
	if err != nil {
		response.Internal(c, "failed to generate token")
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.JSON(status, response.Body{Success: true, Data: TokenResponse{Token: token, User: user, Created: created}})
}

// Me handles GET /me.
func (h *Handler) Me(c *gin.Context) {
	h.writeUser(c, c.GetString(ContextUserID))
}

// GetUser handles GET /admin/users/:id (staff).
func (h *Handler) GetUser(c *gin.Context) {
	h.writeUser(c, c.Param("id"))
}

func (h *Handler) writeUser(c *gin.Context, id string) {
	user, err := h.svc.GetUser(c.Request.Context(), id)
	if errors.Is(err, ErrUserNotFound) {
		response.NotFound(c, "user not found")
		return
	}
	if err != nil {
		h.logger.Error("get user", zap.String("user_id", id), zap.Error(err))
		response.Internal(c, "failed to load user")
		return
	}
	response.OK(c, user)
}

// List handles GET /admin/users (staff).
func (h *Handler) List(c *gin.Context) {
	list, err := h.svc.ListUsers(c.Request.Context())
	if err != nil {
		h.logger.Error("list users", zap.Error(err))
		response.Internal(c, "failed to list users")
		return
	}
	response.OK(c, list)
}
