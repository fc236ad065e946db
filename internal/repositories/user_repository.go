package repositories

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/etraincon/learning-service/internal/models"
)

// UserEmailConstraint is the unique index on users.email.
const UserEmailConstraint = "users_email_key"

// UserRepository owns credentials and the single-use verification/reset tokens.
type UserRepository interface {
	Create(ctx context.Context, tx *gorm.DB, user *models.User) error
	GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.User, error)
	GetByEmail(ctx context.Context, tx *gorm.DB, email string) (*models.User, error)

	// Verification
	GetByVerificationToken(ctx context.Context, tx *gorm.DB, token string) (*models.User, error)
	// MarkVerified clears the token; it returns ErrNotFound if the user was already verified.
	MarkVerified(ctx context.Context, tx *gorm.DB, id uint) error

	// Password reset
	SetResetToken(ctx context.Context, tx *gorm.DB, id uint, token string, expiry time.Time) error
	GetByResetToken(ctx context.Context, tx *gorm.DB, token string, now time.Time) (*models.User, error)
	// UpdatePasswordAndClearReset only succeeds while the user still holds token.
	UpdatePasswordAndClearReset(ctx context.Context, tx *gorm.DB, id uint, token, passwordHash string) error
}

// ProfileRepository reads and upserts the one-to-one profile row.
type ProfileRepository interface {
	// GetWithUser returns the user and its profile, which is nil when none exists.
	GetWithUser(ctx context.Context, tx *gorm.DB, userID uint) (*models.User, *models.Profile, error)
	Upsert(ctx context.Context, tx *gorm.DB, profile *models.Profile) error
}
