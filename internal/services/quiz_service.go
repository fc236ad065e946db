package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"gorm.io/datatypes"

	"github.com/etraincon/learning-service/internal/events"
	"github.com/etraincon/learning-service/internal/models"
	"github.com/etraincon/learning-service/internal/quizgen"
	"github.com/etraincon/learning-service/internal/repositories"
	"github.com/etraincon/learning-service/internal/validator"
)

type quizService struct {
	repo      repositories.Repository
	generator QuizGenerator
	files     CourseFiles
	publisher events.EventPublisher
	validator *validator.Validator
	logger    *slog.Logger
}

func NewQuizService(repo repositories.Repository, generator QuizGenerator, files CourseFiles,
	publisher events.EventPublisher, v *validator.Validator, logger *slog.Logger) QuizService {
	return &quizService{
		repo:      repo,
		generator: generator,
		files:     files,
		publisher: publisher,
		validator: v,
		logger:    logger,
	}
}

// Generate sends the course document to the generator, stores the questions it returns
// and hands back only that batch, without answers.
func (s *quizService) Generate(ctx context.Context, courseID int64) (*models.GeneratedQuiz, error) {
	if err := s.validator.Validate(&validator.GenerateQuizRequest{CourseID: courseID}); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return nil, verrs[:1]
		}
		return nil, err
	}
	id := uint(courseID)

	course, err := s.repo.Course().GetByID(ctx, nil, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrCourseNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	result, err := s.callGenerator(ctx, course)
	if err != nil {
		return nil, err
	}

	rows, err := s.repo.Quiz().InsertGenerated(ctx, id, buildQuestions(result))
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to store generated quiz", "course_id", id, "error", err)
		return nil, fmt.Errorf("%w: %v", ErrQuizPersist, err)
	}

	out := &models.GeneratedQuiz{
		OK:       true,
		Status:   "success",
		CourseID: id,
		Counts: models.QuizCounts{
			MultipleChoice: len(result.MultipleChoice),
			OpenEnded:      len(result.OpenEnded),
		},
		Quizzes: make([]models.QuizPayload, 0, len(rows)),
	}
	questionIDs := make([]uint, 0, len(rows))
	for i := range rows {
		out.Quizzes = append(out.Quizzes, toPayload(&rows[i]))
		questionIDs = append(questionIDs, rows[i].ID)
	}

	s.logger.InfoContext(ctx, "Quiz generated",
		"course_id", id,
		"multiple_choice", out.Counts.MultipleChoice,
		"open_ended", out.Counts.OpenEnded)

	if err := s.publisher.Publish(ctx, events.TopicQuizGenerated, events.QuizGenerated{
		CourseID:       id,
		MultipleChoice: out.Counts.MultipleChoice,
		OpenEnded:      out.Counts.OpenEnded,
		QuestionIDs:    questionIDs,
	}); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish event", "topic", events.TopicQuizGenerated, "error", err)
	}

	return out, nil
}

func (s *quizService) callGenerator(ctx context.Context, course *models.Course) (*quizgen.Result, error) {
	exists, err := s.files.Exists(course.FilePath)
	if err != nil || !exists {
		s.logger.WarnContext(ctx, "Course file missing", "course_id", course.ID, "file_path", course.FilePath, "error", err)
		return nil, ErrSourceFileMissing
	}

	f, err := s.files.Open(course.FilePath)
	if err != nil {
		s.logger.WarnContext(ctx, "Course file unreadable", "course_id", course.ID, "error", err)
		return nil, ErrSourceFileMissing
	}
	defer f.Close()

	result, err := s.generator.Generate(ctx, quizgen.File{Name: course.FilePath, Content: f})
	if err != nil {
		s.logger.ErrorContext(ctx, "Quiz generation failed", "course_id", course.ID, "error", err)
		if errors.Is(err, quizgen.ErrInvalidResponse) {
			return nil, fmt.Errorf("%w: %v", ErrInvalidQuizData, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	return result, nil
}

// buildQuestions keeps the generator's order: multiple choice first, then open ended.
func buildQuestions(result *quizgen.Result) []*models.QuizQuestion {
	questions := make([]*models.QuizQuestion, 0, len(result.MultipleChoice)+len(result.OpenEnded))
	for _, mcq := range result.MultipleChoice {
		options := mcq.Options
		if options == nil {
			options = []string{}
		}
		raw, _ := json.Marshal(options)
		questions = append(questions, &models.QuizQuestion{
			QuestionType:  models.MultipleChoice,
			Question:      mcq.Question,
			Options:       datatypes.JSON(raw),
			CorrectAnswer: mcq.CorrectAnswer,
			Explanation:   mcq.Explanation,
		})
	}
	for _, q := range result.OpenEnded {
		questions = append(questions, &models.QuizQuestion{
			QuestionType:  models.OpenEnded,
			Question:      q.Question,
			CorrectAnswer: q.Answer,
		})
	}
	return questions
}

func toPayload(q *models.QuizQuestion) models.QuizPayload {
	p := models.QuizPayload{
		ID:           q.ID,
		QuestionType: q.QuestionType,
		Question:     q.Question,
	}
	if q.QuestionType == models.MultipleChoice {
		p.Options = NormalizeOptions(q.OptionList())
	}
	return p
}
