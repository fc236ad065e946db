package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

type QuestionType string

const (
	MultipleChoice QuestionType = "multiple_choice"
	OpenEnded      QuestionType = "open_ended"
)

func (t QuestionType) IsValid() bool {
	return t == MultipleChoice || t == OpenEnded
}

// QuizQuestion is a generated question. Rows are created in bulk per generation and never
// updated.
type QuizQuestion struct {
	ID            uint           `json:"id" gorm:"primaryKey"`
	CourseID      uint           `json:"course_id" gorm:"not null;index"`
	QuestionType  QuestionType   `json:"question_type" gorm:"not null;size:20"`
	Question      string         `json:"question" gorm:"type:text;not null"`
	Options       datatypes.JSON `json:"options,omitempty" gorm:"type:jsonb"` // []string, multiple choice only
	CorrectAnswer *string        `json:"correct_answer,omitempty" gorm:"type:text"`
	Explanation   *string        `json:"explanation,omitempty" gorm:"type:text"`
	CreatedAt     time.Time      `json:"created_at"`
}

func (QuizQuestion) TableName() string {
	return "quizzes"
}

// OptionList decodes the stored options. Null or malformed JSON yields no options.
func (q *QuizQuestion) OptionList() []string {
	if len(q.Options) == 0 {
		return nil
	}
	var opts []string
	if err := json.Unmarshal(q.Options, &opts); err != nil {
		return nil
	}
	return opts
}
