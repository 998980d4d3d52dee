package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/khabaznak/gym-tracker/internal/service"
)

var validate = validator.New()

// ExerciseHandler holds the exercise service dependency.
type ExerciseHandler struct {
	exerciseService service.ExerciseService
}

// NewExerciseHandler creates a new ExerciseHandler.
func NewExerciseHandler(exerciseService service.ExerciseService) *ExerciseHandler {
	return &ExerciseHandler{exerciseService: exerciseService}
}

// --- DTOs for API (Data Transfer Objects) ---

// VideoUploadRequest asks for a presigned upload of an exercise demo video.
type VideoUploadRequest struct {
	FileName    string `json:"file_name" form:"file_name" validate:"required,max=255"`
	ContentType string `json:"content_type" form:"content_type" validate:"omitempty,startswith=video/"`
}

// --- Handler Methods ---

// POST /exercises
func (h *ExerciseHandler) CreateExercise(c *gin.Context) {
	payload, ok := payloadOrAbort(c)
	if !ok {
		return
	}
	exercise, err := h.exerciseService.CreateExercise(c.Request.Context(), payload)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, exercise)
}

// GET /exercises
func (h *ExerciseHandler) ListExercises(c *gin.Context) {
	exercises, err := h.exerciseService.ListExercises(c.Request.Context())
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"exercises": exercises})
}

// GET /exercises/options
func (h *ExerciseHandler) ListExerciseOptions(c *gin.Context) {
	options, err := h.exerciseService.ListExerciseOptions(c.Request.Context())
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"exercises": options})
}

// GET /exercises/:id
func (h *ExerciseHandler) GetExercise(c *gin.Context) {
	exercise, err := h.exerciseService.GetExercise(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, exercise)
}

// DELETE /exercises/:id
func (h *ExerciseHandler) DeleteExercise(c *gin.Context) {
	if err := h.exerciseService.DeleteExercise(c.Request.Context(), c.Param("id")); err != nil {
		handleServiceError(c, err)
		return
	}
	respondDeleted(c)
}

// POST /exercises/:id/video-upload
func (h *ExerciseHandler) CreateVideoUpload(c *gin.Context) {
	var req VideoUploadRequest
	if err := c.ShouldBind(&req); err != nil {
		respondError(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		respondError(c, http.StatusBadRequest, "A video file name is required and the content type must be a video format.")
		return
	}

	upload, err := h.exerciseService.CreateVideoUpload(c.Request.Context(), c.Param("id"), req.FileName, req.ContentType)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, upload)
}
