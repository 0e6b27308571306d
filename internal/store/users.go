package store

import (
	"bitwise74/task-api/internal/model"
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
)

// prepare normalizes u and hashes a pending plaintext password. A user
// without a pending password keeps its stored hash.
func (s *Store) prepare(u *model.User) error {
	u.Name = strings.TrimSpace(u.Name)
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))

	if u.Password == "" {
		return nil
	}

	hash, err := s.Hasher.Hash(u.Password)
	if err != nil {
		return fmt.Errorf("failed to hash password, %w", err)
	}

	u.PasswordHash = hash
	u.Password = ""

	return nil
}

func (s *Store) emailTaken(ctx context.Context, email, exceptID string) (bool, error) {
	var n int64

	err := s.DB.WithContext(ctx).
		Model(model.User{}).
		Where("email = ? AND id <> ?", email, exceptID).
		Count(&n).
		Error
	if err != nil {
		return false, fmt.Errorf("failed to check if email is registered, %w", err)
	}

	return n > 0, nil
}

// CreateUser hashes the pending password of u and inserts it
func (s *Store) CreateUser(ctx context.Context, u *model.User) error {
	if err := s.prepare(u); err != nil {
		return err
	}

	if u.PasswordHash == "" {
		return errors.New("user has no password")
	}

	if u.ID == "" {
		id, err := newID()
		if err != nil {
			return fmt.Errorf("failed to generate user ID, %w", err)
		}
		u.ID = id
	}

	taken, err := s.emailTaken(ctx, u.Email, u.ID)
	if err != nil {
		return err
	}

	if taken {
		return ErrEmailTaken
	}

	if err := s.DB.WithContext(ctx).Create(u).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrEmailTaken
		}

		return fmt.Errorf("failed to create user, %w", err)
	}

	return nil
}

// SaveUser persists the profile fields of u. The password is re-hashed only
// when u.Password was set. The avatar column is never touched here.
func (s *Store) SaveUser(ctx context.Context, u *model.User) error {
	if err := s.prepare(u); err != nil {
		return err
	}

	taken, err := s.emailTaken(ctx, u.Email, u.ID)
	if err != nil {
		return err
	}

	if taken {
		return ErrEmailTaken
	}

	r := s.DB.WithContext(ctx).
		Model(u).
		Select("name", "email", "password_hash", "age").
		Updates(u)
	if r.Error != nil {
		if isUniqueViolation(r.Error) {
			return ErrEmailTaken
		}

		return fmt.Errorf("failed to update user, %w", r.Error)
	}

	if r.RowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

// UserByID loads a user without the avatar blob
func (s *Store) UserByID(ctx context.Context, id string) (*model.User, error) {
	var u model.User

	err := s.DB.WithContext(ctx).
		Omit("avatar").
		Where("id = ?", id).
		First(&u).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}

		return nil, fmt.Errorf("failed to fetch user, %w", err)
	}

	return &u, nil
}

// UserByToken returns the user with the given ID only while token is still
// one of its active sessions.
func (s *Store) UserByToken(ctx context.Context, id, token string) (*model.User, error) {
	var u model.User

	err := s.DB.WithContext(ctx).
		Omit("avatar").
		Where("id = ?", id).
		Where("EXISTS (?)", s.DB.
			Model(model.Token{}).
			Select("1").
			Where("tokens.user_id = users.id AND tokens.token = ?", token),
		).
		First(&u).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}

		return nil, fmt.Errorf("failed to fetch user by token, %w", err)
	}

	return &u, nil
}

// FindByCredentials looks a user up by exact email and checks the password.
// A missing user and a wrong password both yield ErrInvalidCredentials.
func (s *Store) FindByCredentials(ctx context.Context, email, password string) (*model.User, error) {
	var u model.User

	err := s.DB.WithContext(ctx).
		Omit("avatar").
		Where("email = ?", strings.ToLower(strings.TrimSpace(email))).
		First(&u).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}

		return nil, fmt.Errorf("failed to fetch user, %w", err)
	}

	ok, err := s.Hasher.Verify(password, u.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("failed to verify password, %w", err)
	}

	if !ok {
		return nil, ErrInvalidCredentials
	}

	return &u, nil
}

// DeleteUser removes a user together with its tasks and sessions. Dependents
// go first so a failure never leaves tasks pointing at a missing owner.
func (s *Store) DeleteUser(ctx context.Context, id string) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("owner_id = ?", id).Delete(&model.Task{}).Error; err != nil {
			return fmt.Errorf("failed to delete user tasks, %w", err)
		}

		if err := tx.Where("user_id = ?", id).Delete(&model.Token{}).Error; err != nil {
			return fmt.Errorf("failed to delete user tokens, %w", err)
		}

		r := tx.Where("id = ?", id).Delete(&model.User{})
		if r.Error != nil {
			return fmt.Errorf("failed to delete user, %w", r.Error)
		}

		if r.RowsAffected == 0 {
			return ErrNotFound
		}

		return nil
	})
}

// SetAvatar stores data as the avatar of the user. Empty data clears it.
func (s *Store) SetAvatar(ctx context.Context, id string, data []byte) error {
	var value any = data
	if len(data) == 0 {
		value = nil
	}

	err := s.DB.WithContext(ctx).
		Model(model.User{}).
		Where("id = ?", id).
		Update("avatar", value).
		Error
	if err != nil {
		return fmt.Errorf("failed to update avatar, %w", err)
	}

	return nil
}

// AvatarOf returns the stored avatar, ErrNotFound if the user or the avatar is missing
func (s *Store) AvatarOf(ctx context.Context, id string) ([]byte, error) {
	var u model.User

	err := s.DB.WithContext(ctx).
		Select("avatar").
		Where("id = ?", id).
		First(&u).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}

		return nil, fmt.Errorf("failed to fetch avatar, %w", err)
	}

	if len(u.Avatar) == 0 {
		return nil, ErrNotFound
	}

	return u.Avatar, nil
}
