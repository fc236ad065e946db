package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/etraincon/learning-service/internal/services"
	"github.com/etraincon/learning-service/internal/sessions"
	"github.com/etraincon/learning-service/internal/utils"
)

const serviceName = "learning-service"

// HandlerConfig carries the HTTP-facing settings.
type HandlerConfig struct {
	AppName                 string
	LoginURL                string
	AllowTestIdentityHeader bool
}

type HandlerManager struct {
	authHandler    *AuthHandler
	profileHandler *ProfileHandler
	quizHandler    *QuizHandler
	authMiddleware *AuthMiddleware
	health         func(ctx context.Context) error
}

func NewHandlerManager(
	serviceManager services.ServiceManager,
	sessionManager *sessions.Manager,
	logger utils.Logger,
	config HandlerConfig,
) *HandlerManager {
	if config.AppName == "" {
		config.AppName = "Etraincon"
	}

	return &HandlerManager{
		authHandler:    NewAuthHandler(serviceManager.Auth(), sessionManager, logger, config.AppName, config.LoginURL),
		profileHandler: NewProfileHandler(serviceManager.Profile(), logger),
		quizHandler:    NewQuizHandler(serviceManager.Quiz(), logger),
		authMiddleware: NewAuthMiddleware(sessionManager, config.AllowTestIdentityHeader),
		health:         serviceManager.HealthCheck,
	}
}

// SetupRoutes sets up all API routes
func (hm *HandlerManager) SetupRoutes(router *gin.Engine) {
	router.SetHTMLTemplate(pageTemplates)

	router.HandleMethodNotAllowed = true
	router.NoMethod(func(c *gin.Context) {
		respondError(c, http.StatusMethodNotAllowed, CodeMethodNotAllowed, "Method not allowed")
	})
	router.NoRoute(func(c *gin.Context) {
		respondError(c, http.StatusNotFound, CodeNotFound, "Not found")
	})

	v1 := router.Group("/api/v1")
	{
		auth := v1.Group("/auth")
		{
			auth.POST("/login", hm.authHandler.Login)
			auth.POST("/logout", hm.authHandler.Logout)
			auth.POST("/register", hm.authHandler.Register)
			auth.GET("/me", hm.authMiddleware.RequireUser(), hm.authHandler.Me)

			// Linked from emails; these render HTML.
			auth.GET("/verify", hm.authHandler.Verify)
			auth.POST("/forgot-password", hm.authHandler.ForgotPassword)
			auth.GET("/reset-password", hm.authHandler.ResetPasswordForm)
			auth.POST("/reset-password", hm.authHandler.ResetPassword)
		}

		profile := v1.Group("/profile")
		profile.Use(hm.authMiddleware.RequireUser())
		{
			profile.GET("", hm.profileHandler.GetProfile)
			profile.POST("", hm.profileHandler.SaveProfile)
		}

		quizzes := v1.Group("/quizzes")
		{
			quizzes.GET("/generate", hm.quizHandler.GenerateQuiz)
			quizzes.POST("/generate", hm.quizHandler.GenerateQuiz)
		}
	}

	router.GET("/health", hm.healthCheck)
}

func (hm *HandlerManager) healthCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	if err := hm.health(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":  "unhealthy",
			"service": serviceName,
			"error":   err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": serviceName,
	})
}
