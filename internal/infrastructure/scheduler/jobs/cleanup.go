package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/queue-hub/queue-manager/internal/application/service"
	"github.com/queue-hub/queue-manager/internal/domain/event"
)

// ══════════════════════════════════════════════════════════════════════════════
// CLEANUP JOB
// Safety net that runs every few hours: reconciles group event indexes by
// dropping references to events that no longer exist. Such strays appear
// when the worker dies between deleting an event and updating the index.
// ══════════════════════════════════════════════════════════════════════════════

// CleanupJob reconciles group event indexes.
type CleanupJob struct {
	uowFactory service.UnitOfWorkFactory
	logger     *slog.Logger
}

// NewCleanupJob creates a new cleanup job.
func NewCleanupJob(uowFactory service.UnitOfWorkFactory, logger *slog.Logger) *CleanupJob {
	if logger == nil {
		logger = slog.Default()
	}

	return &CleanupJob{
		uowFactory: uowFactory,
		logger:     logger,
	}
}

// Name returns the job name.
func (j *CleanupJob) Name() string {
	return "cleanup_group_indexes"
}

// Description returns a human-readable description.
func (j *CleanupJob) Description() string {
	return "Removes dangling event references from group indexes"
}

// Run executes one reconciliation pass.
func (j *CleanupJob) Run(ctx context.Context) error {
	uow, err := j.uowFactory.Begin(ctx)
	if err != nil {
		return fmt.Errorf("cleanup job: begin unit of work: %w", err)
	}
	defer uow.Rollback(ctx)

	groups, err := uow.Groups().List(ctx)
	if err != nil {
		return fmt.Errorf("cleanup job: list groups: %w", err)
	}

	removed := 0
	for _, g := range groups {
		dirty := false
		for _, eventID := range g.EventIDs() {
			_, err := uow.Events().GetByID(ctx, eventID)
			if err == nil {
				continue
			}
			if !errors.Is(err, event.ErrEventNotFound) {
				return fmt.Errorf("cleanup job: check event %s: %w", eventID, err)
			}
			g.RemoveEvent(eventID)
			dirty = true
			removed++
		}
		if dirty {
			if err := uow.Groups().Update(ctx, g); err != nil {
				return fmt.Errorf("cleanup job: update group %s: %w", g.ID, err)
			}
		}
	}

	if err := uow.Commit(ctx); err != nil {
		return fmt.Errorf("cleanup job: commit: %w", err)
	}

	if removed > 0 {
		j.logger.Info("dangling event references removed", "count", removed)
	}

	return nil
}
