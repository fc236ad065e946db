package services

import (
	"context"
	"io"
	"time"

	"github.com/etraincon/learning-service/internal/models"
	"github.com/etraincon/learning-service/internal/quizgen"
	"github.com/etraincon/learning-service/internal/validator"
)

// ===== REQUEST DTOs =====

type RegisterRequest = validator.RegisterRequest
type ResetPasswordRequest = validator.ResetPasswordRequest

// ===== OUTCOMES =====

// VerifyOutcome is the result of following an email verification link.
type VerifyOutcome int

const (
	VerifySuccess VerifyOutcome = iota
	VerifyMissingToken
	VerifyInvalid
	VerifyError
)

// ===== SERVICE INTERFACES =====

type AuthService interface {
	Login(ctx context.Context, email, password string) (*models.User, error)
	Register(ctx context.Context, req *RegisterRequest) (*models.User, error)
	Verify(ctx context.Context, token string) VerifyOutcome
	RequestPasswordReset(ctx context.Context, email string) error
	CheckResetToken(ctx context.Context, token string) error
	ResetPassword(ctx context.Context, token string, req *ResetPasswordRequest) error
	CurrentUser(ctx context.Context, userID uint) (*models.User, error)
}

type ProfileService interface {
	Get(ctx context.Context, userID uint) (*models.ProfileEnvelope, error)
	Save(ctx context.Context, userID uint, fields map[string]any) (*models.ProfileEnvelope, error)
}

type QuizService interface {
	Generate(ctx context.Context, courseID int64) (*models.GeneratedQuiz, error)
}

// ===== COLLABORATORS =====

// QuizGenerator turns a course document into questions.
type QuizGenerator interface {
	Generate(ctx context.Context, file quizgen.File) (*quizgen.Result, error)
}

// CourseFiles reads course documents by their stored path.
type CourseFiles interface {
	Exists(relPath string) (bool, error)
	Open(relPath string) (io.ReadCloser, error)
}

// Clock returns the current time.
type Clock func() time.Time

// ===== SERVICE MANAGER =====

type ServiceManager interface {
	Auth() AuthService
	Profile() ProfileService
	Quiz() QuizService

	Initialize(ctx context.Context) error
	HealthCheck(ctx context.Context) error
	Shutdown(ctx context.Context) error
}
