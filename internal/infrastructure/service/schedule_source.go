package service

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	appservice "github.com/queue-hub/queue-manager/internal/application/service"
	"github.com/queue-hub/queue-manager/internal/domain/user"
	"github.com/queue-hub/queue-manager/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// FILE SCHEDULE SOURCE
// The external timetable is exported to a JSON file by an out-of-band
// process. The feeder reads the file on every pass, so timetable edits do
// not require a restart.
// ══════════════════════════════════════════════════════════════════════════════

// scheduleRecord is the wire format of one timetable line.
type scheduleRecord struct {
	SubjectName    string    `json:"subject_name"`
	GroupCode      string    `json:"group_code"`
	SubgroupNumber *int      `json:"subgroup_number,omitempty"`
	OccurredOn     time.Time `json:"occurred_on"`
}

// FileScheduleSource implements service.ScheduleSource over a JSON file.
type FileScheduleSource struct {
	path string
}

// NewFileScheduleSource creates a new FileScheduleSource.
func NewFileScheduleSource(path string) *FileScheduleSource {
	return &FileScheduleSource{path: path}
}

// Entries returns the timetable facts falling on the given date.
// Days are compared in Almaty time, matching how the timetable is written.
func (s *FileScheduleSource) Entries(ctx context.Context, date time.Time) ([]appservice.ScheduleEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return []appservice.ScheduleEntry{}, nil
		}
		return nil, fmt.Errorf("schedule source: read %s: %w", s.path, err)
	}

	var records []scheduleRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("schedule source: parse %s: %w", s.path, err)
	}

	entries := make([]appservice.ScheduleEntry, 0, len(records))
	for _, rec := range records {
		if !timeutil.IsSameDay(rec.OccurredOn, date) {
			continue
		}
		entries = append(entries, appservice.ScheduleEntry{
			SubjectName:    rec.SubjectName,
			GroupCode:      user.GroupCode(rec.GroupCode),
			SubgroupNumber: rec.SubgroupNumber,
			OccurredOn:     rec.OccurredOn.UTC(),
		})
	}

	return entries, nil
}
