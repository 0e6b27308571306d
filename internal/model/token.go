package model

import "time"

// Token is one active session of a user. A signed token is only accepted
// while its row exists, so deleting rows revokes sessions.
type Token struct {
	ID        uint   `gorm:"primaryKey;autoIncrement"`
	UserID    string `gorm:"index;not null"`
	Token     string `gorm:"uniqueIndex;not null"`
	CreatedAt time.Time
}
