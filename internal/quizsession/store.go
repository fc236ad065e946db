package quizsession

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/etraincon/learning-service/internal/models"
)

const (
	keyQuizData    = "quizData"
	keyQuizResults = "quizResults"
	keyUser        = "user"

	// StalenessWindow is how long generated questions stay usable.
	StalenessWindow = time.Hour
)

var (
	ErrQuizDataNotFound = errors.New("no quiz found for this course and quiz type")
	ErrQuizDataExpired  = errors.New("stored quiz has expired")
	ErrNoResults        = errors.New("no quiz results available")
	ErrNotLoggedIn      = errors.New("not logged in")
)

// QuizType selects the time limit and certificate rules of an attempt.
type QuizType string

const (
	Trial QuizType = "trial"
	Final QuizType = "final"
)

func (t QuizType) IsValid() bool {
	return t == Trial || t == Final
}

// TimeLimit is 15 minutes for a trial quiz and 45 for a final exam.
func TimeLimit(t QuizType) time.Duration {
	if t == Final {
		return 45 * time.Minute
	}
	return 15 * time.Minute
}

// QuizData is a generated question set saved for one course and quiz type.
type QuizData struct {
	CourseID  uint                 `json:"course_id"`
	QuizType  QuizType             `json:"quiz_type"`
	Questions []models.QuizPayload `json:"questions"`
	SavedAt   time.Time            `json:"saved_at"`
}

// Store is the typed view over a Backend.
type Store struct {
	backend Backend
}

func NewStore(backend Backend) *Store {
	return &Store{backend: backend}
}

func (s *Store) SaveQuizData(data *QuizData) error {
	return s.put(keyQuizData, data)
}

// LoadQuizData returns the stored quiz only when it was saved for courseID and quizType
// within the staleness window ending at now.
func (s *Store) LoadQuizData(courseID uint, quizType QuizType, now time.Time) (*QuizData, error) {
	var data QuizData
	if err := s.get(keyQuizData, &data); err != nil {
		if errors.Is(err, ErrKeyNotFound) {
			return nil, ErrQuizDataNotFound
		}
		return nil, err
	}
	if data.CourseID != courseID || data.QuizType != quizType {
		return nil, ErrQuizDataNotFound
	}
	if now.Sub(data.SavedAt) >= StalenessWindow {
		return nil, ErrQuizDataExpired
	}
	return &data, nil
}

func (s *Store) ClearQuizData() error {
	return s.backend.Delete(keyQuizData)
}

func (s *Store) SaveResults(r *Results) error {
	return s.put(keyQuizResults, r)
}

// TakeResults returns the saved results and removes them.
func (s *Store) TakeResults() (*Results, error) {
	var r Results
	if err := s.get(keyQuizResults, &r); err != nil {
		if errors.Is(err, ErrKeyNotFound) {
			return nil, ErrNoResults
		}
		return nil, err
	}
	if err := s.backend.Delete(keyQuizResults); err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *Store) SaveUser(u *models.UserSummary) error {
	return s.put(keyUser, u)
}

func (s *Store) User() (*models.UserSummary, error) {
	var u models.UserSummary
	if err := s.get(keyUser, &u); err != nil {
		if errors.Is(err, ErrKeyNotFound) {
			return nil, ErrNotLoggedIn
		}
		return nil, err
	}
	return &u, nil
}

func (s *Store) ClearUser() error {
	return s.backend.Delete(keyUser)
}

func (s *Store) put(key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}
	return s.backend.Set(key, data)
}

// get treats an undecodable value like a missing one.
func (s *Store) get(key string, dest any) error {
	data, err := s.backend.Get(key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return ErrKeyNotFound
	}
	return nil
}
