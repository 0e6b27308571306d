package service

import (
	"bitwise74/task-api/internal/store"
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// OrphanCleanup schedules SweepOrphans on the cron spec (e.g. "@daily" or
// "@every 6h"). The returned scheduler is already running, Stop it on shutdown.
func OrphanCleanup(spec string, s *store.Store) (*cron.Cron, error) {
	c := cron.New()

	_, err := c.AddFunc(spec, func() {
		SweepOrphans(context.Background(), s)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to schedule orphan cleanup, %w", err)
	}

	c.Start()
	zap.L().Debug("Orphan cleanup attached", zap.String("schedule", spec))

	return c, nil
}

// SweepOrphans runs a single cleanup pass
func SweepOrphans(ctx context.Context, s *store.Store) {
	tasks, tokens, err := s.DeleteOrphans(ctx)
	if err != nil {
		zap.L().Error("Failed to clean up orphaned records", zap.Error(err))
		return
	}

	if tasks > 0 || tokens > 0 {
		zap.L().Info("Cleaned up orphaned records",
			zap.Int64("tasks", tasks),
			zap.Int64("tokens", tokens),
		)
	}
}
