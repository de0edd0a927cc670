package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/chalk-edu/chalk/internal/models"
	"github.com/chalk-edu/chalk/internal/utils"
	"github.com/chalk-edu/chalk/internal/validator"
)

const claimsKey = "auth_claims"

// errorBody is the JSON shape of every failed answer
type errorBody struct {
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

type server struct {
	svc    *Service
	logger utils.Logger
}

// NewRouter builds the Chalk-Auth HTTP surface. Unknown paths answer 404 and
// handler panics answer 500; neither stops the server.
func NewRouter(svc *Service, logger utils.Logger) *gin.Engine {
	s := &server{svc: svc, logger: logger}

	router := gin.New()
	router.Use(utils.RequestIDMiddleware())
	router.Use(utils.ContextLogger(logger))
	router.Use(utils.LoggerMiddleware(logger))
	router.Use(gin.CustomRecovery(s.recover))

	router.GET("/", s.index)
	router.GET("/health", s.health)

	users := router.Group("/users")
	{
		users.POST("/register", s.register)
		users.POST("/login", s.login)

		authed := users.Group("")
		authed.Use(s.authenticate)
		authed.POST("/logout", s.logout)
		authed.GET("/me", s.me)
		authed.GET("/me/preferences", s.preferences)
		authed.PUT("/me/preferences", s.updatePreferences)
	}

	router.NoRoute(func(c *gin.Context) {
		s.fail(c, &NotFoundError{Method: c.Request.Method, Path: c.Request.URL.Path})
	})
	return router
}

func (s *server) index(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"service": "chalk-auth",
		"routes":  []string{"/health", "/users"},
	})
}

func (s *server) health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if err := s.svc.Ping(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "healthy", "service": "chalk-auth"})
}

func (s *server) register(c *gin.Context) {
	var req models.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.fail(c, badRequest("Invalid request payload", err))
		return
	}
	user, err := s.svc.Register(c.Request.Context(), &req)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, user)
}

func (s *server) login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.fail(c, badRequest("Invalid request payload", err))
		return
	}
	resp, err := s.svc.Login(c.Request.Context(), &req)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *server) logout(c *gin.Context) {
	if err := s.svc.Logout(c.Request.Context(), claimsOf(c)); err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *server) me(c *gin.Context) {
	user, err := s.svc.Me(c.Request.Context(), claimsOf(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (s *server) preferences(c *gin.Context) {
	prefs, err := s.svc.Preferences(c.Request.Context(), claimsOf(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, prefs)
}

func (s *server) updatePreferences(c *gin.Context) {
	var req models.PreferencesUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.fail(c, badRequest("Invalid request payload", err))
		return
	}
	prefs, err := s.svc.UpdatePreferences(c.Request.Context(), claimsOf(c), &req)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, prefs)
}

func (s *server) authenticate(c *gin.Context) {
	claims, err := s.svc.Authenticate(c.Request.Context(), BearerToken(c.GetHeader("Authorization")))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.Set(claimsKey, claims)
	c.Next()
}

func claimsOf(c *gin.Context) *Claims {
	claims, _ := c.MustGet(claimsKey).(*Claims)
	return claims
}

// BearerToken extracts the token from an Authorization header value
func BearerToken(header string) string {
	parts := strings.SplitN(strings.TrimSpace(header), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// fail answers err as JSON and aborts the chain
func (s *server) fail(c *gin.Context, err error) {
	var (
		reqErr   *RequestError
		notFound *NotFoundError
	)
	switch {
	case errors.As(err, &notFound):
		c.AbortWithStatusJSON(http.StatusNotFound, errorBody{Message: notFound.Error()})
	case errors.As(err, &reqErr):
		if reqErr.Status >= http.StatusInternalServerError {
			utils.GetLogger(c, s.logger).Error(reqErr.Message, "error", reqErr.Err)
			c.AbortWithStatusJSON(reqErr.Status, errorBody{Message: reqErr.Message})
			return
		}
		body := errorBody{Message: reqErr.Message}
		if reqErr.Err != nil {
			body.Details = detailsOf(reqErr.Err)
		}
		c.AbortWithStatusJSON(reqErr.Status, body)
	default:
		utils.GetLogger(c, s.logger).Error("Unexpected error", "error", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, errorBody{Message: "Internal server error"})
	}
}

// detailsOf keeps structured validation errors and flattens the rest
func detailsOf(err error) interface{} {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		return verrs
	}
	return err.Error()
}

func (s *server) recover(c *gin.Context, recovered any) {
	utils.GetLogger(c, s.logger).Error("Handler panicked", "panic", fmt.Sprint(recovered), "path", c.Request.URL.Path)
	c.AbortWithStatusJSON(http.StatusInternalServerError, errorBody{Message: "Internal server error"})
}
