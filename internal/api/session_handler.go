package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/khabaznak/gym-tracker/internal/domain"
	"github.com/khabaznak/gym-tracker/internal/service"
)

type SessionHandler struct {
	sessionService service.SessionService
}

func NewSessionHandler(sessionService service.SessionService) *SessionHandler {
	return &SessionHandler{sessionService: sessionService}
}

// CreateSessionResponse mirrors the session tracker's expectations: the
// session, its workouts with nested sets, and every set flattened.
type CreateSessionResponse struct {
	Session  *domain.Session         `json:"session"`
	Workouts []domain.SessionWorkout `json:"workouts"`
	Sets     []domain.SessionSet     `json:"sets"`
}

// POST /sessions
func (h *SessionHandler) CreateSession(c *gin.Context) {
	payload, ok := payloadOrAbort(c)
	if !ok {
		return
	}
	session, err := h.sessionService.CreateSession(c.Request.Context(), payload)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	sets := []domain.SessionSet{}
	for _, w := range session.Workouts {
		sets = append(sets, w.Sets...)
	}
	c.JSON(http.StatusCreated, CreateSessionResponse{
		Session:  session,
		Workouts: session.Workouts,
		Sets:     sets,
	})
}

// GET /sessions/:id
func (h *SessionHandler) GetSession(c *gin.Context) {
	session, err := h.sessionService.GetSession(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, session)
}

// PATCH /sessions/:id/complete
func (h *SessionHandler) CompleteSession(c *gin.Context) {
	payload, ok := payloadOrAbort(c)
	if !ok {
		return
	}
	result, err := h.sessionService.CompleteSession(c.Request.Context(), c.Param("id"), payload)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"session":      result.Session,
		"sets_updated": result.SetsUpdated,
		"sets_skipped": result.SetsSkipped,
	})
}

// PATCH /sessions/:id/abort
func (h *SessionHandler) AbortSession(c *gin.Context) {
	session, err := h.sessionService.AbortSession(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, session)
}
