package store

import (
	"bitwise74/task-api/internal/model"
	"context"
	"fmt"
)

// AppendToken records token as a new active session of the user
func (s *Store) AppendToken(ctx context.Context, userID, token string) error {
	err := s.DB.WithContext(ctx).
		Create(&model.Token{UserID: userID, Token: token}).
		Error
	if err != nil {
		return fmt.Errorf("failed to save token, %w", err)
	}

	return nil
}

// RemoveToken ends exactly one session. Other sessions of the user stay valid.
func (s *Store) RemoveToken(ctx context.Context, userID, token string) error {
	err := s.DB.WithContext(ctx).
		Where("user_id = ? AND token = ?", userID, token).
		Delete(&model.Token{}).
		Error
	if err != nil {
		return fmt.Errorf("failed to remove token, %w", err)
	}

	return nil
}

// ClearTokens ends every session of the user
func (s *Store) ClearTokens(ctx context.Context, userID string) error {
	err := s.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Delete(&model.Token{}).
		Error
	if err != nil {
		return fmt.Errorf("failed to clear tokens, %w", err)
	}

	return nil
}

// TokensOf returns the active tokens of a user, oldest first
func (s *Store) TokensOf(ctx context.Context, userID string) ([]string, error) {
	tokens := []string{}

	err := s.DB.WithContext(ctx).
		Model(model.Token{}).
		Where("user_id = ?", userID).
		Order("id asc").
		Pluck("token", &tokens).
		Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch tokens, %w", err)
	}

	return tokens, nil
}
