package services

import (
	"errors"

	"github.com/etraincon/learning-service/internal/validator"
)

// Service errors. Handlers map these to status codes and user-facing messages.
var (
	ErrInvalidCredentials     = errors.New("invalid email or password")
	ErrEmailTaken             = errors.New("email already registered")
	ErrVerificationMailFailed = errors.New("verification email could not be sent")
	ErrMissingToken           = errors.New("token missing")
	ErrInvalidToken           = errors.New("token invalid or expired")
	ErrUserNotFound           = errors.New("user not found")
	ErrCourseNotFound         = errors.New("course not found")
	ErrSourceFileMissing      = errors.New("course file not found")
	ErrUpstream               = errors.New("quiz generator unavailable")
	ErrInvalidQuizData        = errors.New("quiz generator returned invalid data")
	ErrQuizPersist            = errors.New("failed to store generated quiz")
	ErrDatabase               = errors.New("database error")
)

// UnverifiedError is returned by Login for a correct password on an unverified account.
type UnverifiedError struct {
	Email string
}

func (e *UnverifiedError) Error() string {
	return "account not verified: " + e.Email
}

// invalidArgument builds a single-message validation error.
func invalidArgument(field, message string) error {
	return validator.ValidationErrors{{Field: field, Tag: "invalid", Message: message}}
}
