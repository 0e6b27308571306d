package store

import (
	"bitwise74/task-api/internal/model"
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
)

// CreateTask inserts t. The caller sets OwnerID.
func (s *Store) CreateTask(ctx context.Context, t *model.Task) error {
	if t.OwnerID == "" {
		return errors.New("task has no owner")
	}

	t.Description = strings.TrimSpace(t.Description)

	id, err := newID()
	if err != nil {
		return fmt.Errorf("failed to generate task ID, %w", err)
	}
	t.ID = id

	// Completed is selected explicitly so false isn't swapped for the column default
	err = s.DB.WithContext(ctx).
		Select("id", "description", "completed", "owner_id", "created_at", "updated_at").
		Create(t).
		Error
	if err != nil {
		return fmt.Errorf("failed to create task, %w", err)
	}

	return nil
}

// TaskOf returns the task only if it belongs to ownerID. A task of another
// owner is reported as ErrNotFound, same as a missing one.
func (s *Store) TaskOf(ctx context.Context, id, ownerID string) (*model.Task, error) {
	var t model.Task

	err := s.DB.WithContext(ctx).
		Where("id = ? AND owner_id = ?", id, ownerID).
		First(&t).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}

		return nil, fmt.Errorf("failed to fetch task, %w", err)
	}

	return &t, nil
}

// TasksOf lists the tasks of ownerID. The owner scope can't be overridden by q.
func (s *Store) TasksOf(ctx context.Context, ownerID string, q TaskQuery) ([]model.Task, error) {
	tasks := []model.Task{}

	err := q.apply(s.DB.WithContext(ctx).Where("owner_id = ?", ownerID)).
		Find(&tasks).
		Error
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks, %w", err)
	}

	return tasks, nil
}

// SaveTask persists the mutable fields of a task loaded through TaskOf
func (s *Store) SaveTask(ctx context.Context, t *model.Task) error {
	t.Description = strings.TrimSpace(t.Description)

	r := s.DB.WithContext(ctx).
		Model(t).
		Where("owner_id = ?", t.OwnerID).
		Select("description", "completed").
		Updates(t)
	if r.Error != nil {
		return fmt.Errorf("failed to update task, %w", r.Error)
	}

	if r.RowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

// DeleteTask removes the task of ownerID and returns it
func (s *Store) DeleteTask(ctx context.Context, id, ownerID string) (*model.Task, error) {
	var t model.Task

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("id = ? AND owner_id = ?", id, ownerID).First(&t).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}

			return fmt.Errorf("failed to fetch task, %w", err)
		}

		if err := tx.Delete(&t).Error; err != nil {
			return fmt.Errorf("failed to delete task, %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return &t, nil
}
