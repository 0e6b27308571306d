package store

import (
	"bitwise74/task-api/internal/model"
	"context"
	"fmt"
)

// DeleteOrphans removes tasks and tokens whose owner no longer exists
func (s *Store) DeleteOrphans(ctx context.Context) (tasks, tokens int64, err error) {
	users := s.DB.Model(model.User{}).Select("id")

	r := s.DB.WithContext(ctx).
		Where("owner_id NOT IN (?)", users).
		Delete(&model.Task{})
	if r.Error != nil {
		return 0, 0, fmt.Errorf("failed to delete orphaned tasks, %w", r.Error)
	}
	tasks = r.RowsAffected

	r = s.DB.WithContext(ctx).
		Where("user_id NOT IN (?)", users).
		Delete(&model.Token{})
	if r.Error != nil {
		return tasks, 0, fmt.Errorf("failed to delete orphaned tokens, %w", r.Error)
	}

	return tasks, r.RowsAffected, nil
}
