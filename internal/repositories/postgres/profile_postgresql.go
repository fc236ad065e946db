package postgres

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/etraincon/learning-service/internal/models"
	"github.com/etraincon/learning-service/internal/repositories"
)

type ProfilePostgreSQL struct {
	db *gorm.DB
}

func NewProfilePostgreSQL(db *gorm.DB) repositories.ProfileRepository {
	return &ProfilePostgreSQL{db: db}
}

func (p *ProfilePostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return p.db
}

func (p *ProfilePostgreSQL) GetWithUser(ctx context.Context, tx *gorm.DB, userID uint) (*models.User, *models.Profile, error) {
	db := p.getDB(tx)
	var user models.User
	err := db.WithContext(ctx).
		Preload("Profile").
		First(&user, userID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, repositories.ErrNotFound
		}
		return nil, nil, fmt.Errorf("failed to get profile: %w", err)
	}
	profile := user.Profile
	user.Profile = nil
	return &user, profile, nil
}

// Upsert writes every whitelisted column, so absent fields become NULL (last writer wins).
func (p *ProfilePostgreSQL) Upsert(ctx context.Context, tx *gorm.DB, profile *models.Profile) error {
	db := p.getDB(tx)
	err := db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns(append(models.ProfileWritableColumns(), "updated_at")),
		}).
		Create(profile).Error
	if err != nil {
		return fmt.Errorf("failed to save profile: %w", err)
	}
	return nil
}
