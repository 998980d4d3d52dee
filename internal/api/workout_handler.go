package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/khabaznak/gym-tracker/internal/service"
)

type WorkoutHandler struct {
	workoutService service.WorkoutService
}

func NewWorkoutHandler(workoutService service.WorkoutService) *WorkoutHandler {
	return &WorkoutHandler{workoutService: workoutService}
}

// POST /workouts
func (h *WorkoutHandler) CreateWorkout(c *gin.Context) {
	payload, ok := payloadOrAbort(c)
	if !ok {
		return
	}
	workout, err := h.workoutService.CreateWorkout(c.Request.Context(), payload)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, workout)
}

// PUT /workouts/:id
func (h *WorkoutHandler) UpdateWorkout(c *gin.Context) {
	payload, ok := payloadOrAbort(c)
	if !ok {
		return
	}
	workout, err := h.workoutService.UpdateWorkout(c.Request.Context(), c.Param("id"), payload)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, workout)
}

// DELETE /workouts/:id
func (h *WorkoutHandler) DeleteWorkout(c *gin.Context) {
	if err := h.workoutService.DeleteWorkout(c.Request.Context(), c.Param("id")); err != nil {
		handleServiceError(c, err)
		return
	}
	respondDeleted(c)
}

// GET /workouts?limit=N
func (h *WorkoutHandler) ListWorkouts(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	workouts, err := h.workoutService.ListWorkouts(c.Request.Context(), limit)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"workouts": workouts})
}

// GET /workouts/options
func (h *WorkoutHandler) ListWorkoutOptions(c *gin.Context) {
	options, err := h.workoutService.ListWorkoutOptions(c.Request.Context())
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"workouts": options})
}

// GET /workouts/:id
func (h *WorkoutHandler) GetWorkout(c *gin.Context) {
	workout, err := h.workoutService.GetWorkout(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, workout)
}

// GET /workouts/:id/edit
func (h *WorkoutHandler) GetWorkoutEditor(c *gin.Context) {
	editor, err := h.workoutService.GetWorkoutEditor(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, editor)
}
