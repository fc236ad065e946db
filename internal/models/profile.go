package models

import (
	"time"
)

// Profile is the one-to-one extension of User. Text fields are nullable; counters are
// nullable and read back as zero.
type Profile struct {
	ID                 uint      `json:"-" gorm:"primaryKey"`
	UserID             uint      `json:"user_id" gorm:"uniqueIndex;not null"`
	Name               *string   `json:"name" gorm:"size:100"`
	Title              *string   `json:"title" gorm:"size:100"`
	Company            *string   `json:"company" gorm:"size:100"`
	Location           *string   `json:"location" gorm:"size:100"`
	Experience         *string   `json:"experience" gorm:"size:50"`
	ProfilePictureURL  *string   `json:"profile_picture_url" gorm:"size:500"`
	Phone              *string   `json:"phone" gorm:"size:30"`
	LinkedInURL        *string   `json:"linkedin_url" gorm:"column:linkedin_url;size:255"`
	ProfessionalBio    *string   `json:"professional_bio" gorm:"type:text"`
	AreasOfInterest    *string   `json:"areas_of_interest" gorm:"type:text"`
	CoursesEnrolled    *int      `json:"courses_enrolled"`
	CertificatesEarned *int      `json:"certificates_earned"`
	StudyHours         *int      `json:"study_hours"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

func (Profile) TableName() string {
	return "profiles"
}

// ProfileTextFields are the writable text columns, keyed by their JSON/column name.
var ProfileTextFields = []string{
	"name",
	"title",
	"company",
	"location",
	"experience",
	"profile_picture_url",
	"phone",
	"linkedin_url",
	"professional_bio",
	"areas_of_interest",
}

// ProfileCounterFields are the writable integer columns.
var ProfileCounterFields = []string{
	"courses_enrolled",
	"certificates_earned",
	"study_hours",
}

// ProfileWritableColumns lists every column an upsert may touch besides timestamps.
func ProfileWritableColumns() []string {
	cols := make([]string, 0, len(ProfileTextFields)+len(ProfileCounterFields))
	cols = append(cols, ProfileTextFields...)
	return append(cols, ProfileCounterFields...)
}
