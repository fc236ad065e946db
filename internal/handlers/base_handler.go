package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/etraincon/learning-service/internal/models"
	"github.com/etraincon/learning-service/internal/services"
	"github.com/etraincon/learning-service/internal/utils"
	"github.com/etraincon/learning-service/internal/validator"
)

// Error codes carried in the "code" field of the error envelope.
const (
	CodeInvalidArgument  = "INVALID_ARGUMENT"
	CodeUnauthenticated  = "UNAUTHENTICATED"
	CodeUnverified       = "UNVERIFIED"
	CodeNotFound         = "NOT_FOUND"
	CodeConflict         = "CONFLICT"
	CodeUpstream         = "UPSTREAM_ERROR"
	CodeInternal         = "INTERNAL"
	CodeMethodNotAllowed = "METHOD_NOT_ALLOWED"
)

const contextUserID = "user_id"

type BaseHandler struct {
	logger utils.Logger
}

func NewBaseHandler(logger utils.Logger) BaseHandler {
	return BaseHandler{logger: logger}
}

func (h *BaseHandler) LogRequest(c *gin.Context, msg string, args ...any) {
	utils.LoggerFromContext(c, h.logger).Info(msg, args...)
}

func (h *BaseHandler) LogError(c *gin.Context, err error, msg string, args ...any) {
	args = append(args, "error", err)
	utils.LoggerFromContext(c, h.logger).Error(msg, args...)
}

func respondError(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, models.ErrorResponse{OK: false, Error: message, Code: code})
}

// userID returns the identity set by RequireUser.
func userID(c *gin.Context) uint {
	return c.GetUint(contextUserID)
}

func (h *BaseHandler) handleServiceError(c *gin.Context, err error) {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		msg := "Invalid request"
		if len(validationErrors) > 0 {
			msg = validationErrors[0].Message
		}
		respondError(c, http.StatusBadRequest, CodeInvalidArgument, msg)
		return
	}

	var unverified *services.UnverifiedError
	if errors.As(err, &unverified) {
		c.AbortWithStatusJSON(http.StatusForbidden, models.ErrorResponse{
			OK:    false,
			Error: "Account not verified",
			Code:  CodeUnverified,
			Email: unverified.Email,
		})
		return
	}

	switch {
	case errors.Is(err, services.ErrInvalidCredentials):
		respondError(c, http.StatusUnauthorized, CodeUnauthenticated, "Invalid email or password")
	case errors.Is(err, services.ErrEmailTaken):
		respondError(c, http.StatusConflict, CodeConflict, "This email address is already registered.")
	case errors.Is(err, services.ErrVerificationMailFailed):
		respondError(c, http.StatusInternalServerError, CodeInternal, "Registration succeeded, but verification email could not be sent.")
	case errors.Is(err, services.ErrMissingToken):
		respondError(c, http.StatusBadRequest, CodeInvalidArgument, "No reset token provided. Please check your link.")
	case errors.Is(err, services.ErrInvalidToken):
		respondError(c, http.StatusBadRequest, CodeInvalidArgument, "This password reset link is invalid or has expired. Please request a new one.")
	case errors.Is(err, services.ErrUserNotFound):
		respondError(c, http.StatusNotFound, CodeNotFound, "User not found")
	case errors.Is(err, services.ErrCourseNotFound):
		respondError(c, http.StatusNotFound, CodeNotFound, "Course not found")
	case errors.Is(err, services.ErrSourceFileMissing):
		respondError(c, http.StatusNotFound, CodeNotFound, "PDF file not found")
	case errors.Is(err, services.ErrUpstream):
		h.LogError(c, err, "Quiz generator call failed")
		respondError(c, http.StatusBadGateway, CodeUpstream, "ML API request failed")
	case errors.Is(err, services.ErrInvalidQuizData):
		h.LogError(c, err, "Quiz generator returned invalid data")
		respondError(c, http.StatusBadGateway, CodeUpstream, "Invalid quiz data from ML API")
	case errors.Is(err, services.ErrQuizPersist):
		h.LogError(c, err, "Quiz insert failed")
		respondError(c, http.StatusInternalServerError, CodeInternal, "Failed to save generated quiz")
	case errors.Is(err, services.ErrDatabase):
		h.LogError(c, err, "Database error")
		respondError(c, http.StatusInternalServerError, CodeInternal, "Database error. Please try again.")
	default:
		h.LogError(c, err, "Unexpected service error")
		respondError(c, http.StatusInternalServerError, CodeInternal, "Internal server error")
	}
}
