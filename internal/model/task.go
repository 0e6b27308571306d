package model

import "time"

type Task struct {
	ID          string    `gorm:"primaryKey;size:16" json:"id"`
	Description string    `gorm:"not null" json:"description"`
	Completed   bool      `gorm:"not null;default:false" json:"completed"`
	OwnerID     string    `gorm:"index;not null" json:"owner"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}
