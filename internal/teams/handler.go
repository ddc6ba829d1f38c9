package teams

import (
	"errors"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/nexothsav/hackportal/internal/middleware"
	"github.com/nexothsav/hackportal/pkg/response"
)

const maxNameLen = 100

// Handler handles team HTTP endpoints.
type Handler struct {
	svc    *Service
	logger *zap.Logger
}

// NewHandler creates a teams handler.
func NewHandler(svc *Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{svc: svc, logger: logger}
}

// CreateTeamRequest is the body for POST /teams.
type CreateTeamRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
}

// JoinTeamRequest is the body for POST /teams/join.
type JoinTeamRequest struct {
	InviteCode string `json:"invite_code" binding:"required"`
}

// SubmitProjectRequest is the body for POST /teams/:id/submission.
type SubmitProjectRequest struct {
	GitHubURL       string `json:"github_url" binding:"required"`
	PresentationURL string `json:"presentation_url" binding:"required"`
}

// CreateTeam handles POST /teams. The caller becomes the leader.
func (h *Handler) CreateTeam(c *gin.Context) {
	var body CreateTeamRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "name required")
		return
	}
	if utf8.RuneCountInString(body.Name) > maxNameLen {
		response.BadRequest(c, "name must be at most 100 characters")
		return
	}
	team, err := h.svc.CreateTeam(c.Request.Context(), body.Name, body.Description, middleware.UserID(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Created(c, team)
}

// JoinTeam handles POST /teams/join.
func (h *Handler) JoinTeam(c *gin.Context) {
	var body JoinTeamRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "invite_code required")
		return
	}
	team, err := h.svc.JoinTeamByCode(c.Request.Context(), body.InviteCode, middleware.UserID(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, team)
}

// GetTeam handles GET /teams/:id.
func (h *Handler) GetTeam(c *gin.Context) {
	team, err := h.svc.GetTeam(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, team)
}

// ListMembers handles GET /teams/:id/members.
func (h *Handler) ListMembers(c *gin.Context) {
	members, err := h.svc.Members(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, members)
}

// SubmitProject handles POST /teams/:id/submission. Leader only.
func (h *Handler) SubmitProject(c *gin.Context) {
	var body SubmitProjectRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "github_url and presentation_url required")
		return
	}
	team, err := h.svc.SubmitProject(c.Request.Context(), c.Param("id"), middleware.UserID(c), body.GitHubURL, body.PresentationURL)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, team)
}

func (h *Handler) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrUserNotFound), errors.Is(err, ErrTeamNotFound):
		response.NotFound(c, err.Error())
	case errors.Is(err, ErrInvalidInviteCode), errors.Is(err, ErrNameRequired),
		errors.Is(err, ErrInvalidGitHubURL), errors.Is(err, ErrInvalidPresentationURL):
		response.BadRequest(c, err.Error())
	case errors.Is(err, ErrAlreadyOnTeam), errors.Is(err, ErrTeamFull), errors.Is(err, ErrAlreadyMember):
		response.Conflict(c, err.Error())
	case errors.Is(err, ErrNotLeader):
		response.Forbidden(c, err.Error())
	default:
		h.logger.Error("team operation", zap.String("path", c.FullPath()), zap.Error(err))
		response.Internal(c, "team operation failed")
	}
}
