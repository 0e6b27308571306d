// Package service holds the application logic shared by the handlers and
// the background jobs
package service

import (
	"bitwise74/task-api/internal/model"
	"bitwise74/task-api/internal/store"
	"bitwise74/task-api/pkg/security"
	"context"
	"errors"
	"fmt"
)

// ErrUnauthenticated covers every reason a token is refused. Callers must not
// tell the reasons apart.
var ErrUnauthenticated = errors.New("please authenticate")

// Sessions issues and revokes the bearer tokens of users. A token is honored
// only while it verifies and is still stored for its user.
type Sessions struct {
	Store  *store.Store
	Tokens *security.TokenIssuer
}

func NewSessions(s *store.Store, t *security.TokenIssuer) *Sessions {
	return &Sessions{Store: s, Tokens: t}
}

// Issue signs a new token for the user and records it as an active session
func (s *Sessions) Issue(ctx context.Context, userID string) (string, error) {
	token, err := s.Tokens.Sign(userID)
	if err != nil {
		return "", err
	}

	if err := s.Store.AppendToken(ctx, userID, token); err != nil {
		return "", err
	}

	return token, nil
}

// Revoke ends the session of token
func (s *Sessions) Revoke(ctx context.Context, userID, token string) error {
	return s.Store.RemoveToken(ctx, userID, token)
}

// RevokeAll ends every session of the user
func (s *Sessions) RevokeAll(ctx context.Context, userID string) error {
	return s.Store.ClearTokens(ctx, userID)
}

// Resolve returns the user owning token. Any failure other than a store
// error yields ErrUnauthenticated.
func (s *Sessions) Resolve(ctx context.Context, token string) (*model.User, error) {
	if token == "" {
		return nil, ErrUnauthenticated
	}

	userID, err := s.Tokens.Parse(token)
	if err != nil {
		return nil, ErrUnauthenticated
	}

	u, err := s.Store.UserByToken(ctx, userID, token)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrUnauthenticated
		}

		return nil, fmt.Errorf("failed to resolve session, %w", err)
	}

	return u, nil
}

// Login checks the credentials and opens a new session
func (s *Sessions) Login(ctx context.Context, email, password string) (*model.User, string, error) {
	u, err := s.Store.FindByCredentials(ctx, email, password)
	if err != nil {
		return nil, "", err
	}

	token, err := s.Issue(ctx, u.ID)
	if err != nil {
		return nil, "", err
	}

	return u, token, nil
}
