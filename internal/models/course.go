package models

import "time"

// Course is owned by the course catalogue; this service only reads it.
type Course struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	Title     string    `json:"title" gorm:"size:255"`
	FilePath  string    `json:"file_path" gorm:"not null;size:500"`
	CreatedAt time.Time `json:"created_at"`
}

func (Course) TableName() string {
	return "courses"
}
