package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/khabaznak/gym-tracker/internal/service"
)

type PlanHandler struct {
	planService service.PlanService
}

func NewPlanHandler(planService service.PlanService) *PlanHandler {
	return &PlanHandler{planService: planService}
}

// POST /plans
func (h *PlanHandler) CreatePlan(c *gin.Context) {
	payload, ok := payloadOrAbort(c)
	if !ok {
		return
	}
	plan, err := h.planService.CreatePlan(c.Request.Context(), payload)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, plan)
}

// PUT /plans/:id
func (h *PlanHandler) UpdatePlan(c *gin.Context) {
	payload, ok := payloadOrAbort(c)
	if !ok {
		return
	}
	plan, err := h.planService.UpdatePlan(c.Request.Context(), c.Param("id"), payload)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, plan)
}

// DELETE /plans/:id
func (h *PlanHandler) DeletePlan(c *gin.Context) {
	if err := h.planService.DeletePlan(c.Request.Context(), c.Param("id")); err != nil {
		handleServiceError(c, err)
		return
	}
	respondDeleted(c)
}

// GET /plans?limit=N
func (h *PlanHandler) ListPlans(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	plans, err := h.planService.ListPlans(c.Request.Context(), limit)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"plans": plans})
}

// GET /plans/:id
func (h *PlanHandler) GetPlan(c *gin.Context) {
	plan, err := h.planService.GetPlan(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, plan)
}

// GET /plans/active answers {"plan": null} when no plan is active.
func (h *PlanHandler) GetActivePlan(c *gin.Context) {
	plan, err := h.planService.GetActivePlan(c.Request.Context())
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"plan": plan})
}

// GET /plans/:id/edit
func (h *PlanHandler) GetPlanEditor(c *gin.Context) {
	editor, err := h.planService.GetPlanEditor(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, editor)
}

// GET /plans/tracker
func (h *PlanHandler) GetTracker(c *gin.Context) {
	tracker, err := h.planService.GetTracker(c.Request.Context())
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, tracker)
}
