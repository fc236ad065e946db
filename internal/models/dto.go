package models

import (
	"encoding/json"
	"time"
)

// ===== ERROR RESPONSES =====

// ErrorResponse is the single failure envelope used by every endpoint.
type ErrorResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
	Email string `json:"email,omitempty"`
}

// ===== AUTH =====

type UserSummary struct {
	ID       uint   `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

type LoginResponse struct {
	OK   bool        `json:"ok"`
	User UserSummary `json:"user"`
}

type MessageResponse struct {
	OK      bool   `json:"ok"`
	Message string `json:"message,omitempty"`
}

// ===== PROFILE =====

type ProfileUser struct {
	ID         uint      `json:"id"`
	Username   string    `json:"username"`
	Email      string    `json:"email"`
	IsVerified bool      `json:"is_verified"`
	CreatedAt  time.Time `json:"created_at"`
}

// ProfileView is the read projection of a profile; counters are never null here.
type ProfileView struct {
	Name               *string   `json:"name"`
	Title              *string   `json:"title"`
	Company            *string   `json:"company"`
	Location           *string   `json:"location"`
	Experience         *string   `json:"experience"`
	ProfilePictureURL  *string   `json:"profile_picture_url"`
	Phone              *string   `json:"phone"`
	LinkedInURL        *string   `json:"linkedin_url"`
	ProfessionalBio    *string   `json:"professional_bio"`
	AreasOfInterest    *string   `json:"areas_of_interest"`
	CoursesEnrolled    int       `json:"courses_enrolled"`
	CertificatesEarned int       `json:"certificates_earned"`
	StudyHours         int       `json:"study_hours"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

type ProfileEnvelope struct {
	OK         bool         `json:"ok"`
	User       ProfileUser  `json:"user"`
	HasProfile bool         `json:"has_profile"`
	Profile    *ProfileView `json:"profile"`
}

// NewProfileView projects a stored profile, defaulting null counters to zero.
func NewProfileView(p *Profile) *ProfileView {
	if p == nil {
		return nil
	}
	return &ProfileView{
		Name:               p.Name,
		Title:              p.Title,
		Company:            p.Company,
		Location:           p.Location,
		Experience:         p.Experience,
		ProfilePictureURL:  p.ProfilePictureURL,
		Phone:              p.Phone,
		LinkedInURL:        p.LinkedInURL,
		ProfessionalBio:    p.ProfessionalBio,
		AreasOfInterest:    p.AreasOfInterest,
		CoursesEnrolled:    intOrZero(p.CoursesEnrolled),
		CertificatesEarned: intOrZero(p.CertificatesEarned),
		StudyHours:         intOrZero(p.StudyHours),
		CreatedAt:          p.CreatedAt,
		UpdatedAt:          p.UpdatedAt,
	}
}

func intOrZero(v *int) int {
	if v == nil {
		return 0
	}
	return *v
}

// ===== QUIZ =====

// QuizPayload is a question as shown to learners: no answer key, no explanation.
// Multiple-choice questions always carry an options array; open-ended ones never do.
type QuizPayload struct {
	ID           uint         `json:"id"`
	QuestionType QuestionType `json:"question_type"`
	Question     string       `json:"question"`
	Options      []string     `json:"options,omitempty"`
}

func (q QuizPayload) MarshalJSON() ([]byte, error) {
	if q.QuestionType != MultipleChoice {
		type openEnded struct {
			ID           uint         `json:"id"`
			QuestionType QuestionType `json:"question_type"`
			Question     string       `json:"question"`
		}
		return json.Marshal(openEnded{ID: q.ID, QuestionType: q.QuestionType, Question: q.Question})
	}
	options := q.Options
	if options == nil {
		options = []string{}
	}
	type multipleChoice struct {
		ID           uint         `json:"id"`
		QuestionType QuestionType `json:"question_type"`
		Question     string       `json:"question"`
		Options      []string     `json:"options"`
	}
	return json.Marshal(multipleChoice{ID: q.ID, QuestionType: q.QuestionType, Question: q.Question, Options: options})
}

type QuizCounts struct {
	MultipleChoice int `json:"multiple_choice"`
	OpenEnded      int `json:"open_ended"`
}

type GeneratedQuiz struct {
	OK       bool          `json:"ok"`
	Status   string        `json:"status"`
	CourseID uint          `json:"course_id"`
	Counts   QuizCounts    `json:"counts"`
	Quizzes  []QuizPayload `json:"quizzes"`
}
