package models

import (
	"time"
)

type User struct {
	ID                uint       `json:"id" gorm:"primaryKey"`
	Username          string     `json:"username" gorm:"not null;size:50"`
	Email             string     `json:"email" gorm:"uniqueIndex:users_email_key;not null;size:255"`
	Password          string     `json:"-" gorm:"not null;size:255"`
	IsVerified        bool       `json:"is_verified" gorm:"not null;default:false"`
	VerificationToken *string    `json:"-" gorm:"size:100;index"`
	ResetToken        *string    `json:"-" gorm:"size:64;index"`
	ResetTokenExpiry  *time.Time `json:"-"`
	CreatedAt         time.Time  `json:"created_at"`

	Profile *Profile `json:"-" gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
}

func (User) TableName() string {
	return "users"
}

// Summary is the identity returned after login.
func (u *User) Summary() UserSummary {
	return UserSummary{ID: u.ID, Username: u.Username, Email: u.Email}
}
