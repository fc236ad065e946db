package repositories

import (
	"context"

	"gorm.io/gorm"

	"github.com/etraincon/learning-service/internal/models"
)

type CourseRepository interface {
	GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Course, error)
}

type QuizRepository interface {
	// InsertGenerated stores one generation batch atomically and returns exactly the
	// rows it created, ordered by id.
	InsertGenerated(ctx context.Context, courseID uint, questions []*models.QuizQuestion) ([]models.QuizQuestion, error)
}
