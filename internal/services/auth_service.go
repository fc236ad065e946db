package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/etraincon/learning-service/internal/events"
	"github.com/etraincon/learning-service/internal/mail"
	"github.com/etraincon/learning-service/internal/models"
	"github.com/etraincon/learning-service/internal/repositories"
	"github.com/etraincon/learning-service/internal/validator"
)

const (
	verificationTokenBytes = 50
	resetTokenBytes        = 32
	DefaultResetTokenTTL   = time.Hour
)

type authService struct {
	repo       repositories.Repository
	mailer     mail.Mailer
	publisher  events.EventPublisher
	validator  *validator.Validator
	logger     *slog.Logger
	siteURL    string
	resetTTL   time.Duration
	bcryptCost int
	now        Clock

	// dummyHash is compared against when the email is unknown so both paths cost a bcrypt.
	dummyHash []byte
}

func NewAuthService(repo repositories.Repository, mailer mail.Mailer, publisher events.EventPublisher,
	v *validator.Validator, logger *slog.Logger, cfg ServiceManagerConfig) AuthService {
	cost := cfg.BcryptCost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	ttl := cfg.ResetTokenTTL
	if ttl == 0 {
		ttl = DefaultResetTokenTTL
	}
	now := cfg.Clock
	if now == nil {
		now = time.Now
	}
	dummy, _ := bcrypt.GenerateFromPassword([]byte("not-a-real-password"), cost)

	return &authService{
		repo:       repo,
		mailer:     mailer,
		publisher:  publisher,
		validator:  v,
		logger:     logger,
		siteURL:    cfg.SiteURL,
		resetTTL:   ttl,
		bcryptCost: cost,
		now:        now,
		dummyHash:  dummy,
	}
}

// ===== LOGIN =====

func (s *authService) Login(ctx context.Context, email, password string) (*models.User, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, invalidArgument("email", "Email and password are required")
	}

	user, err := s.repo.User().GetByEmail(ctx, nil, email)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(password))
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	if !user.IsVerified {
		return nil, &UnverifiedError{Email: user.Email}
	}

	s.logger.InfoContext(ctx, "User logged in", "user_id", user.ID)
	return user, nil
}

// ===== REGISTRATION =====

func (s *authService) Register(ctx context.Context, req *RegisterRequest) (*models.User, error) {
	in := RegisterRequest{
		Email:    strings.TrimSpace(req.Email),
		Username: strings.TrimSpace(req.Username),
		Password: strings.TrimSpace(req.Password),
	}

	if err := s.validator.Validate(&in); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && verrs.HasTag("required") {
			return nil, invalidArgument("", "Please fill in all fields.")
		}
		if len(verrs) > 0 {
			return nil, verrs[:1]
		}
		return nil, err
	}

	if _, err := s.repo.User().GetByEmail(ctx, nil, in.Email); err == nil {
		return nil, ErrEmailTaken
	} else if !repositories.IsNotFoundError(err) {
		return nil, fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	token, err := randomHex(verificationTokenBytes)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Username:          in.Username,
		Email:             in.Email,
		Password:          string(hash),
		VerificationToken: &token,
	}
	if err := s.repo.User().Create(ctx, nil, user); err != nil {
		if repositories.IsDuplicateError(err, repositories.UserEmailConstraint) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	s.logger.InfoContext(ctx, "User registered", "user_id", user.ID)
	s.publish(ctx, events.TopicUserRegistered, events.UserRegistered{
		UserID:   user.ID,
		Username: user.Username,
		Email:    user.Email,
	})

	body, err := mail.VerificationBody(user.Username, mail.VerificationLink(s.siteURL, token))
	if err != nil {
		return nil, err
	}
	if err := s.mailer.SendTo(ctx, mail.VerificationSubject, body, user.Email); err != nil {
		s.logger.ErrorContext(ctx, "Failed to send verification email", "user_id", user.ID, "error", err)
		return user, fmt.Errorf("%w: %v", ErrVerificationMailFailed, err)
	}

	return user, nil
}

// ===== VERIFICATION =====

func (s *authService) Verify(ctx context.Context, token string) VerifyOutcome {
	if token == "" {
		return VerifyMissingToken
	}

	user, err := s.repo.User().GetByVerificationToken(ctx, nil, token)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return VerifyInvalid
		}
		s.logger.ErrorContext(ctx, "Verification lookup failed", "error", err)
		return VerifyError
	}

	if err := s.repo.User().MarkVerified(ctx, nil, user.ID); err != nil {
		if repositories.IsNotFoundError(err) {
			return VerifyInvalid
		}
		s.logger.ErrorContext(ctx, "Failed to mark user verified", "user_id", user.ID, "error", err)
		return VerifyError
	}

	s.logger.InfoContext(ctx, "User verified", "user_id", user.ID)
	s.publish(ctx, events.TopicUserVerified, events.UserVerified{UserID: user.ID})
	return VerifySuccess
}

// ===== PASSWORD RESET =====

// RequestPasswordReset never reports whether the email belongs to an account.
func (s *authService) RequestPasswordReset(ctx context.Context, email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return invalidArgument("email", "Please enter your email address.")
	}

	user, err := s.repo.User().GetByEmail(ctx, nil, email)
	if err != nil {
		if !repositories.IsNotFoundError(err) {
			s.logger.ErrorContext(ctx, "Password reset lookup failed", "error", err)
		}
		return nil
	}

	token, err := randomHex(resetTokenBytes)
	if err != nil {
		return err
	}
	expiry := s.now().Add(s.resetTTL)
	if err := s.repo.User().SetResetToken(ctx, nil, user.ID, token, expiry); err != nil {
		s.logger.ErrorContext(ctx, "Failed to store reset token", "user_id", user.ID, "error", err)
		return nil
	}

	s.publish(ctx, events.TopicPasswordResetRequested, events.PasswordResetRequested{
		UserID:    user.ID,
		Username:  user.Username,
		Email:     user.Email,
		Token:     token,
		ExpiresAt: expiry,
	})
	return nil
}

func (s *authService) CheckResetToken(ctx context.Context, token string) error {
	_, err := s.userForResetToken(ctx, token)
	return err
}

func (s *authService) ResetPassword(ctx context.Context, token string, req *ResetPasswordRequest) error {
	user, err := s.userForResetToken(ctx, token)
	if err != nil {
		return err
	}

	if err := s.validator.Validate(req); err != nil {
		var verrs validator.ValidationErrors
		errors.As(err, &verrs)
		switch {
		case verrs.HasTag("required"):
			return invalidArgument("password", "Please fill in both password fields.")
		case verrs.HasTag("eqfield"):
			return invalidArgument("confirm_password", "The passwords do not match. Please try again.")
		case len(verrs) > 0:
			return verrs[:1]
		}
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.bcryptCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	if err := s.repo.User().UpdatePasswordAndClearReset(ctx, nil, user.ID, token, string(hash)); err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrInvalidToken
		}
		return fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	s.logger.InfoContext(ctx, "Password reset", "user_id", user.ID)
	return nil
}

func (s *authService) userForResetToken(ctx context.Context, token string) (*models.User, error) {
	if token == "" {
		return nil, ErrMissingToken
	}
	user, err := s.repo.User().GetByResetToken(ctx, nil, token, s.now())
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrInvalidToken
		}
		return nil, fmt.Errorf("%w: %v", ErrDatabase, err)
	}
	return user, nil
}

// ===== SESSION =====

func (s *authService) CurrentUser(ctx context.Context, userID uint) (*models.User, error) {
	user, err := s.repo.User().GetByID(ctx, nil, userID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrDatabase, err)
	}
	return user, nil
}

// publish logs event failures without failing the caller.
func (s *authService) publish(ctx context.Context, topic string, data any) {
	if err := s.publisher.Publish(ctx, topic, data); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish event", "topic", topic, "error", err)
	}
}

func randomHex(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return hex.EncodeToString(b), nil
}
