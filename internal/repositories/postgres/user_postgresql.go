package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/etraincon/learning-service/internal/models"
	"github.com/etraincon/learning-service/internal/repositories"
)

type UserPostgreSQL struct {
	db *gorm.DB
}

func NewUserPostgreSQL(db *gorm.DB) repositories.UserRepository {
	return &UserPostgreSQL{db: db}
}

func (u *UserPostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return u.db
}

// Create inserts a user; a taken email surfaces as repositories.ErrDuplicate.
func (u *UserPostgreSQL) Create(ctx context.Context, tx *gorm.DB, user *models.User) error {
	db := u.getDB(tx)
	if err := db.WithContext(ctx).Create(user).Error; err != nil {
		if repositories.IsDuplicateError(err, repositories.UserEmailConstraint) {
			return fmt.Errorf("failed to create user: %w", repositories.ErrDuplicate)
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (u *UserPostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.User, error) {
	return u.first(ctx, tx, "id = ?", id)
}

func (u *UserPostgreSQL) GetByEmail(ctx context.Context, tx *gorm.DB, email string) (*models.User, error) {
	return u.first(ctx, tx, "email = ?", email)
}

func (u *UserPostgreSQL) GetByVerificationToken(ctx context.Context, tx *gorm.DB, token string) (*models.User, error) {
	return u.first(ctx, tx, "verification_token = ? AND is_verified = ?", token, false)
}

func (u *UserPostgreSQL) MarkVerified(ctx context.Context, tx *gorm.DB, id uint) error {
	db := u.getDB(tx)
	result := db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ? AND is_verified = ?", id, false).
		Updates(map[string]interface{}{
			"is_verified":        true,
			"verification_token": nil,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to verify user: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return repositories.ErrNotFound
	}
	return nil
}

func (u *UserPostgreSQL) SetResetToken(ctx context.Context, tx *gorm.DB, id uint, token string, expiry time.Time) error {
	db := u.getDB(tx)
	result := db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"reset_token":        token,
			"reset_token_expiry": expiry,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to set reset token: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return repositories.ErrNotFound
	}
	return nil
}

func (u *UserPostgreSQL) GetByResetToken(ctx context.Context, tx *gorm.DB, token string, now time.Time) (*models.User, error) {
	return u.first(ctx, tx, "reset_token = ? AND reset_token_expiry > ?", token, now)
}

func (u *UserPostgreSQL) UpdatePasswordAndClearReset(ctx context.Context, tx *gorm.DB, id uint, token, passwordHash string) error {
	db := u.getDB(tx)
	result := db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ? AND reset_token = ?", id, token).
		Updates(map[string]interface{}{
			"password":           passwordHash,
			"reset_token":        nil,
			"reset_token_expiry": nil,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to update password: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return repositories.ErrNotFound
	}
	return nil
}

func (u *UserPostgreSQL) first(ctx context.Context, tx *gorm.DB, query string, args ...interface{}) (*models.User, error) {
	db := u.getDB(tx)
	var user models.User
	if err := db.WithContext(ctx).Where(query, args...).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repositories.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}
