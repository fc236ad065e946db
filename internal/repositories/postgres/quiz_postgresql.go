package postgres

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/etraincon/learning-service/internal/models"
	"github.com/etraincon/learning-service/internal/repositories"
)

// quizLockSpace keeps quiz generation locks apart from other advisory lock users.
const quizLockSpace int64 = 0x5155495a // "QUIZ"

type QuizPostgreSQL struct {
	db *gorm.DB
}

func NewQuizPostgreSQL(db *gorm.DB) repositories.QuizRepository {
	return &QuizPostgreSQL{db: db}
}

func quizLockKey(courseID uint) int64 {
	return quizLockSpace<<32 | int64(uint32(courseID))
}

// InsertGenerated holds a per-course advisory lock for the whole transaction, so the
// high-water mark read before the insert cannot be overtaken by another batch for the
// same course.
func (q *QuizPostgreSQL) InsertGenerated(ctx context.Context, courseID uint, questions []*models.QuizQuestion) ([]models.QuizQuestion, error) {
	var created []models.QuizQuestion

	err := q.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("SELECT pg_advisory_xact_lock(?)", quizLockKey(courseID)).Error; err != nil {
			return fmt.Errorf("failed to lock course quizzes: %w", err)
		}

		var highWater int64
		err := tx.Raw("SELECT COALESCE(MAX(id), 0) FROM quizzes WHERE course_id = ?", courseID).
			Scan(&highWater).Error
		if err != nil {
			return fmt.Errorf("failed to read quiz high-water mark: %w", err)
		}

		if len(questions) > 0 {
			for _, question := range questions {
				question.CourseID = courseID
			}
			if err := tx.CreateInBatches(questions, 100).Error; err != nil {
				return fmt.Errorf("failed to insert quizzes: %w", err)
			}
		}

		err = tx.Where("course_id = ? AND id > ?", courseID, highWater).
			Order("id ASC").
			Find(&created).Error
		if err != nil {
			return fmt.Errorf("failed to read inserted quizzes: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return created, nil
}
