package models

import "time"

// Student is the owner of subject and term results.
type Student struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	InstitutionID uint      `gorm:"not null;index" json:"institution_id"`
	Name          string    `gorm:"size:255;not null" json:"name"`
	Email         string    `gorm:"size:255;uniqueIndex" json:"email"`
	ClassID       uint      `gorm:"not null;index" json:"class_id"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}
