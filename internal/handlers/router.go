package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/chalk-edu/chalk/internal/models"
	"github.com/chalk-edu/chalk/internal/services"
	"github.com/chalk-edu/chalk/internal/utils"
	"github.com/chalk-edu/chalk/internal/validator"
)

type HandlerManager struct {
	exerciseHandler   *ExerciseHandler
	testHandler       *TestHandler
	draftHandler      *DraftHandler
	courseHandler     *CourseHandler
	resolutionHandler *ResolutionHandler
	rubricHandler     *RubricHandler
	sessionHandler    *SessionHandler
	authMiddleware    *AuthMiddleware
	serviceManager    services.ServiceManager
}

func NewHandlerManager(
	serviceManager services.ServiceManager,
	validator *validator.Validator,
	logger utils.Logger,
	authMiddleware *AuthMiddleware,
) *HandlerManager {
	return &HandlerManager{
		exerciseHandler:   NewExerciseHandler(serviceManager.Exercise(), serviceManager.ImportExport(), logger),
		testHandler:       NewTestHandler(serviceManager.Test(), logger),
		draftHandler:      NewDraftHandler(serviceManager.Draft(), logger),
		courseHandler:     NewCourseHandler(serviceManager.Course(), logger),
		resolutionHandler: NewResolutionHandler(serviceManager.Resolution(), logger),
		rubricHandler:     NewRubricHandler(serviceManager.ImportExport(), validator, logger),
		sessionHandler:    NewSessionHandler(serviceManager.Session(), logger),
		authMiddleware:    authMiddleware,
		serviceManager:    serviceManager,
	}
}

// SetupRoutes sets up all API routes
func (hm *HandlerManager) SetupRoutes(router *gin.Engine) {
	specialistOnly := hm.authMiddleware.RequireRole(models.RoleSpecialist)

	// Public reads; a valid token widens what is visible
	public := router.Group("/api/v1")
	public.Use(hm.authMiddleware.OptionalAuth())
	{
		public.GET("/exercises", hm.exerciseHandler.ListExercises)
		public.GET("/exercises/:id", hm.exerciseHandler.GetExercise)
		public.GET("/tests", hm.testHandler.ListTests)
		public.GET("/tests/:id", hm.testHandler.GetTest)
		public.GET("/labels", hm.sessionHandler.GetLabels)

		rubrics := public.Group("/rubrics")
		{
			rubrics.GET("/criteria/template", hm.rubricHandler.CriteriaTemplate)
			rubrics.POST("/validate", hm.rubricHandler.ValidateRubric)
			rubrics.POST("/export", hm.rubricHandler.ExportRubric)
			rubrics.POST("/import", hm.rubricHandler.ImportRubric)
		}
	}

	v1 := router.Group("/api/v1")
	v1.Use(hm.authMiddleware.RequireAuth())
	{
		v1.GET("/session", hm.sessionHandler.GetSession)

		exercises := v1.Group("/exercises")
		{
			exercises.POST("", specialistOnly, hm.exerciseHandler.CreateExercise)
			exercises.POST("/import", specialistOnly, hm.exerciseHandler.ImportExercises)
			exercises.DELETE("/:id", hm.exerciseHandler.DeleteExercise)
		}

		tests := v1.Group("/tests")
		{
			tests.POST("", specialistOnly, hm.testHandler.CreateTest)
			tests.DELETE("/:id", hm.testHandler.DeleteTest)
			tests.GET("/:id/resolutions", hm.resolutionHandler.ListByTest)
			tests.GET("/:id/resolutions/count", hm.resolutionHandler.CountForStudent)
			tests.GET("/:id/resolutions/last", hm.resolutionHandler.LastForStudent)
		}

		drafts := v1.Group("/drafts")
		drafts.Use(specialistOnly)
		{
			drafts.POST("", hm.draftHandler.CreateDraft)
			drafts.GET("", hm.draftHandler.ListDrafts)
			drafts.GET("/:id", hm.draftHandler.GetDraft)
			drafts.POST("/:id/actions", hm.draftHandler.DispatchAction)
			drafts.POST("/:id/submit", hm.draftHandler.SubmitDraft)
			drafts.DELETE("/:id", hm.draftHandler.DiscardDraft)
		}

		courses := v1.Group("/courses")
		{
			courses.POST("", hm.authMiddleware.RequireRole(models.RoleSpecialist, models.RoleInstitutionManager), hm.courseHandler.CreateCourse)
			courses.GET("/mine", hm.courseHandler.ListMyCourses)
			courses.GET("/:id", hm.courseHandler.GetCourse)
			courses.POST("/:id/members", hm.courseHandler.AddMember)
			courses.DELETE("/:id/members/:user_id", hm.courseHandler.RemoveMember)
		}

		v1.POST("/resolutions", hm.resolutionHandler.CreateResolution)
	}

	router.GET("/health", hm.health)

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, ErrorResponse{Message: "Cannot " + c.Request.Method + " " + c.Request.URL.Path})
	})
}

func (hm *HandlerManager) health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if err := hm.serviceManager.HealthCheck(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":  "unhealthy",
			"service": "chalk-api",
			"error":   err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "chalk-api",
	})
}
