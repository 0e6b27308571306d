// Package store is the persistence layer for users, their session tokens
// and their tasks. Every task read or write is scoped to an owner.
package store

import (
	"errors"
	"strings"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"gorm.io/gorm"
)

const idCharset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

var (
	ErrNotFound           = errors.New("record not found")
	ErrEmailTaken         = errors.New("email is already registered")
	ErrInvalidCredentials = errors.New("unable to login")
)

// Hasher is the one-way password hashing scheme
type Hasher interface {
	Hash(p string) (string, error)
	Verify(p, encoded string) (bool, error)
}

type Store struct {
	DB     *gorm.DB
	Hasher Hasher
}

func New(db *gorm.DB, h Hasher) *Store {
	return &Store{DB: db, Hasher: h}
}

func newID() (string, error) {
	return gonanoid.Generate(idCharset, 16)
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}

	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "23505")
}
