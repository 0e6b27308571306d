// Package model defines database models
package model

import "time"

type User struct {
	ID           string    `gorm:"primaryKey;size:16" json:"id"`
	Name         string    `gorm:"not null" json:"name"`
	Email        string    `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash string    `gorm:"not null" json:"-"`
	Age          int       `gorm:"not null;default:0" json:"age"`
	Avatar       []byte    `json:"-"` // Normalized PNG, only used by the db avatar storage
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`

	// Password carries a new plaintext password until the store hashes it.
	// It is never persisted.
	Password string `gorm:"-" json:"-"`
}
