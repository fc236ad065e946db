package quizsession

import (
	"math"
	"strings"
	"time"

	"github.com/etraincon/learning-service/internal/models"
)

// Band is the performance label shown with a score.
type Band string

const (
	BandExcellent        Band = "excellent"
	BandGood             Band = "good"
	BandFair             Band = "fair"
	BandNeedsImprovement Band = "needs_improvement"
)

// CertificateScore is the minimum final exam score that earns a certificate.
const CertificateScore = 80

// Results is the summary of one submitted attempt.
type Results struct {
	CourseID         uint                 `json:"course_id"`
	QuizType         QuizType             `json:"quiz_type"`
	Score            int                  `json:"score"`
	Correct          int                  `json:"correct"`
	TotalScored      int                  `json:"total_scored"`
	TotalQuestions   int                  `json:"total_questions"`
	TimeUsed         int                  `json:"time_used"` // seconds
	Answers          []string             `json:"answers"`
	Questions        []models.QuizPayload `json:"questions"`
	FlaggedQuestions []int                `json:"flagged_questions"`
	SubmittedAt      time.Time            `json:"submitted_at"`
	AutoSubmitted    bool                 `json:"auto_submitted"`
}

func (r *Results) Band() Band {
	switch {
	case r.Score >= 90:
		return BandExcellent
	case r.Score >= 80:
		return BandGood
	case r.Score >= 70:
		return BandFair
	default:
		return BandNeedsImprovement
	}
}

func (r *Results) CertificateEligible() bool {
	return r.QuizType == Final && r.Score >= CertificateScore
}

// Score counts a multiple-choice question as correct when it has any non-blank answer.
// The answer key is never sent to the client, so correctness cannot be checked here.
// Open-ended questions are left for manual review and excluded from the score.
func Score(questions []models.QuizPayload, answers []string) (correct, totalScored, score int) {
	for i, q := range questions {
		if q.QuestionType != models.MultipleChoice {
			continue
		}
		totalScored++
		if i < len(answers) && strings.TrimSpace(answers[i]) != "" {
			correct++
		}
	}
	if totalScored == 0 {
		return correct, 0, 0
	}
	return correct, totalScored, int(math.Round(100 * float64(correct) / float64(totalScored)))
}
