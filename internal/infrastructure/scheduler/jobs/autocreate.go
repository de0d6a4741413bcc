package jobs

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/queue-hub/queue-manager/internal/application/service"
	"github.com/queue-hub/queue-manager/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// AUTOCREATE JOB
// Daily feeder run: matches today's schedule facts against auto-create
// categories and creates events for the matches.
// ══════════════════════════════════════════════════════════════════════════════

// AutoCreateJob runs the schedule feeder once a day.
type AutoCreateJob struct {
	feeder *service.AutoCreateService
	clock  timeutil.Clock
	logger *slog.Logger
}

// NewAutoCreateJob creates a new autocreate job.
func NewAutoCreateJob(feeder *service.AutoCreateService, clock timeutil.Clock, logger *slog.Logger) *AutoCreateJob {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &AutoCreateJob{
		feeder: feeder,
		clock:  clock,
		logger: logger,
	}
}

// Name returns the job name.
func (j *AutoCreateJob) Name() string {
	return "auto_create_events"
}

// Description returns a human-readable description.
func (j *AutoCreateJob) Description() string {
	return "Creates events from the external schedule for auto-create categories"
}

// Run executes one feeder pass for the current Almaty day.
func (j *AutoCreateJob) Run(ctx context.Context) error {
	date := timeutil.StartOfDay(j.clock.Now())

	result, err := j.feeder.Run(ctx, date)
	if err != nil {
		return fmt.Errorf("autocreate job: %w", err)
	}

	j.logger.Debug("autocreate pass finished",
		"date", timeutil.FormatDateStr(date),
		"created", result.Created,
		"skipped", result.Skipped,
	)

	return nil
}
