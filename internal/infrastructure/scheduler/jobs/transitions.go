// Package jobs contains implementations of scheduled jobs for the queue
// manager worker.
package jobs

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/queue-hub/queue-manager/internal/application/service"
	"github.com/queue-hub/queue-manager/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// TRANSITIONS JOB
// Runs one lifecycle scan cycle: events whose notification, formation or
// deletion threshold has passed get their transition applied.
// ══════════════════════════════════════════════════════════════════════════════

// TransitionsJob drives the event phase state machine.
type TransitionsJob struct {
	lifecycle *service.LifecycleService
	clock     timeutil.Clock
	logger    *slog.Logger
}

// NewTransitionsJob creates a new transitions job.
func NewTransitionsJob(lifecycle *service.LifecycleService, clock timeutil.Clock, logger *slog.Logger) *TransitionsJob {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &TransitionsJob{
		lifecycle: lifecycle,
		clock:     clock,
		logger:    logger,
	}
}

// Name returns the job name.
func (j *TransitionsJob) Name() string {
	return "event_transitions"
}

// Description returns a human-readable description.
func (j *TransitionsJob) Description() string {
	return "Applies due notification, formation and deletion transitions to events"
}

// Run executes one scan cycle.
func (j *TransitionsJob) Run(ctx context.Context) error {
	report, err := j.lifecycle.Tick(ctx, j.clock.Now())
	if err != nil {
		return fmt.Errorf("transitions job: %w", err)
	}

	if failed := report.Failed(); failed > 0 {
		return fmt.Errorf("transitions job: %d of %d events failed", failed, len(report.Outcomes))
	}

	return nil
}
