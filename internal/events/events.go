package events

import (
	"encoding/json"
	"fmt"
	"time"
)

const (
	TopicUserRegistered         = "user.registered"
	TopicUserVerified           = "user.verified"
	TopicPasswordResetRequested = "password_reset.requested"
	TopicQuizGenerated          = "quiz.generated"

	eventSource  = "learning-service"
	eventVersion = "1.0"
)

// AllTopics lists every topic the service publishes.
var AllTopics = []string{
	TopicUserRegistered,
	TopicUserVerified,
	TopicPasswordResetRequested,
	TopicQuizGenerated,
}

// Event is the envelope carried in every message payload.
type Event struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	Source    string          `json:"source"`
	Version   string          `json:"version"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

// DecodeData unmarshals the event data into v.
func (e *Event) DecodeData(v any) error {
	if err := json.Unmarshal(e.Data, v); err != nil {
		return fmt.Errorf("failed to decode %s event data: %w", e.Type, err)
	}
	return nil
}

type UserRegistered struct {
	UserID   uint   `json:"user_id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

type UserVerified struct {
	UserID uint `json:"user_id"`
}

// PasswordResetRequested carries the reset token to the mail worker.
type PasswordResetRequested struct {
	UserID    uint      `json:"user_id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

type QuizGenerated struct {
	CourseID       uint   `json:"course_id"`
	MultipleChoice int    `json:"multiple_choice"`
	OpenEnded      int    `json:"open_ended"`
	QuestionIDs    []uint `json:"question_ids"`
}

func newEvent(topic string, data any) (*Event, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s event data: %w", topic, err)
	}
	return &Event{
		Type:      topic,
		Source:    eventSource,
		Version:   eventVersion,
		Timestamp: time.Now().UTC(),
		Data:      raw,
	}, nil
}
