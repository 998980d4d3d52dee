package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/khabaznak/gym-tracker/internal/metrics"
	"github.com/khabaznak/gym-tracker/internal/service"
)

// Services bundles what the routes call into.
type Services struct {
	Exercises service.ExerciseService
	Workouts  service.WorkoutService
	Plans     service.PlanService
	Sessions  service.SessionService
}

// NewRouter builds the gin engine with middleware and every route.
// gatherer may be nil, in which case /metrics is not served.
func NewRouter(services Services, m *metrics.Manager, gatherer prometheus.Gatherer) *gin.Engine {
	router := gin.New()
	router.Use(RequestID(), PanicRecovery(m), RequestLogger(), RequestMetrics(m))
	router.NoRoute(func(c *gin.Context) {
		respondError(c, http.StatusNotFound, "Not found")
	})

	SetupRoutes(router, services, gatherer)
	return router
}

func SetupRoutes(router *gin.Engine, services Services, gatherer prometheus.Gatherer) {
	exerciseHandler := NewExerciseHandler(services.Exercises)
	workoutHandler := NewWorkoutHandler(services.Workouts)
	planHandler := NewPlanHandler(services.Plans)
	sessionHandler := NewSessionHandler(services.Sessions)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if gatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}

	// --- Exercise Routes ---
	exerciseGroup := router.Group("/exercises")
	{
		exerciseGroup.GET("", exerciseHandler.ListExercises)
		exerciseGroup.POST("", exerciseHandler.CreateExercise)
		exerciseGroup.GET("/options", exerciseHandler.ListExerciseOptions)
		exerciseGroup.GET("/:id", exerciseHandler.GetExercise)
		exerciseGroup.DELETE("/:id", exerciseHandler.DeleteExercise)
		exerciseGroup.POST("/:id/video-upload", exerciseHandler.CreateVideoUpload)
	}

	// --- Workout Routes ---
	workoutGroup := router.Group("/workouts")
	{
		workoutGroup.GET("", workoutHandler.ListWorkouts)
		workoutGroup.POST("", workoutHandler.CreateWorkout)
		workoutGroup.GET("/options", workoutHandler.ListWorkoutOptions)
		workoutGroup.GET("/:id", workoutHandler.GetWorkout)
		workoutGroup.PUT("/:id", workoutHandler.UpdateWorkout)
		workoutGroup.DELETE("/:id", workoutHandler.DeleteWorkout)
		workoutGroup.GET("/:id/edit", workoutHandler.GetWorkoutEditor)
	}

	// --- Plan Routes ---
	planGroup := router.Group("/plans")
	{
		planGroup.GET("", planHandler.ListPlans)
		planGroup.POST("", planHandler.CreatePlan)
		planGroup.GET("/active", planHandler.GetActivePlan)
		planGroup.GET("/tracker", planHandler.GetTracker)
		planGroup.GET("/:id", planHandler.GetPlan)
		planGroup.PUT("/:id", planHandler.UpdatePlan)
		planGroup.DELETE("/:id", planHandler.DeletePlan)
		planGroup.GET("/:id/edit", planHandler.GetPlanEditor)
	}

	// --- Session Routes ---
	sessionGroup := router.Group("/sessions")
	{
		sessionGroup.POST("", sessionHandler.CreateSession)
		sessionGroup.GET("/:id", sessionHandler.GetSession)
		sessionGroup.PATCH("/:id/complete", sessionHandler.CompleteSession)
		sessionGroup.PATCH("/:id/abort", sessionHandler.AbortSession)
	}
}
