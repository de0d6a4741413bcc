package service

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/queue-hub/queue-manager/internal/domain/category"
	"github.com/queue-hub/queue-manager/internal/domain/event"
	"github.com/queue-hub/queue-manager/internal/domain/group"
	"github.com/queue-hub/queue-manager/internal/domain/user"
)

type autocreateFixture struct {
	store   *memStore
	source  *memScheduleSource
	service *AutoCreateService
}

func newAutocreateFixture(t *testing.T) *autocreateFixture {
	t.Helper()

	store := newMemStore()

	g, err := group.NewGroup("group-1", "SE-2301", []int{1, 2})
	require.NoError(t, err)
	store.putGroup(g)

	cat, err := category.NewCategory("category-1", "Algorithms", "SE-2301", true)
	require.NoError(t, err)
	store.putCategory(cat)

	source := &memScheduleSource{}
	svc := NewAutoCreateService(
		&memUowFactory{store: store},
		source,
		event.DefaultTimeOffsets(),
		slog.Default(),
		nil,
	)

	return &autocreateFixture{store: store, source: source, service: svc}
}

func lessonAt(subject, groupCode string, occurredOn time.Time) ScheduleEntry {
	return ScheduleEntry{
		SubjectName: subject,
		GroupCode:   user.GroupCode(groupCode),
		OccurredOn:  occurredOn,
	}
}

func TestAutoCreate_CreatesEventForMatchingCategory(t *testing.T) {
	f := newAutocreateFixture(t)
	occurredOn := testNow.Add(72 * time.Hour)
	f.source.entries = []ScheduleEntry{lessonAt("Algorithms", "SE-2301", occurredOn)}

	result, err := f.service.Run(context.Background(), testNow)

	require.NoError(t, err)
	assert.Equal(t, 1, result.Created)
	assert.Equal(t, 0, result.Skipped)

	require.Len(t, f.store.events, 1)
	for _, ev := range f.store.events {
		assert.Equal(t, "category-1", ev.CategoryID)
		assert.True(t, ev.OccurredOn.Equal(occurredOn))
		assert.Equal(t, event.PhaseCreated, ev.Phase)
		// The new event is indexed on its group.
		assert.Contains(t, f.store.groupByCode("SE-2301").EventIDs(), ev.ID)
	}
}

func TestAutoCreate_SkipsUnknownGroup(t *testing.T) {
	f := newAutocreateFixture(t)
	f.source.entries = []ScheduleEntry{lessonAt("Algorithms", "SE-9999", testNow)}

	result, err := f.service.Run(context.Background(), testNow)

	require.NoError(t, err)
	assert.Equal(t, 0, result.Created)
	assert.Equal(t, 1, result.Skipped)
	assert.Empty(t, f.store.events)
}

func TestAutoCreate_SkipsUnknownSubject(t *testing.T) {
	f := newAutocreateFixture(t)
	f.source.entries = []ScheduleEntry{lessonAt("Chemistry", "SE-2301", testNow)}

	result, err := f.service.Run(context.Background(), testNow)

	require.NoError(t, err)
	assert.Equal(t, 0, result.Created)
	assert.Equal(t, 1, result.Skipped)
}

func TestAutoCreate_SkipsDisabledCategory(t *testing.T) {
	f := newAutocreateFixture(t)
	cat, err := category.NewCategory("category-2", "History", "SE-2301", false)
	require.NoError(t, err)
	f.store.putCategory(cat)

	f.source.entries = []ScheduleEntry{lessonAt("History", "SE-2301", testNow)}

	result, err := f.service.Run(context.Background(), testNow)

	require.NoError(t, err)
	assert.Equal(t, 0, result.Created)
	assert.Equal(t, 1, result.Skipped)
}

func TestAutoCreate_SkipsMissingSubgroup(t *testing.T) {
	f := newAutocreateFixture(t)
	subgroup := 5
	entry := lessonAt("Algorithms", "SE-2301", testNow.Add(72*time.Hour))
	entry.SubgroupNumber = &subgroup
	f.source.entries = []ScheduleEntry{entry}

	result, err := f.service.Run(context.Background(), testNow)

	require.NoError(t, err)
	assert.Equal(t, 0, result.Created)
	assert.Equal(t, 1, result.Skipped)
}

func TestAutoCreate_MatchingSubgroupCreates(t *testing.T) {
	f := newAutocreateFixture(t)
	subgroup := 2
	entry := lessonAt("Algorithms", "SE-2301", testNow.Add(72*time.Hour))
	entry.SubgroupNumber = &subgroup
	f.source.entries = []ScheduleEntry{entry}

	result, err := f.service.Run(context.Background(), testNow)

	require.NoError(t, err)
	assert.Equal(t, 1, result.Created)
}

func TestAutoCreate_DuplicateRunIsIdempotent(t *testing.T) {
	f := newAutocreateFixture(t)
	occurredOn := testNow.Add(72 * time.Hour)
	f.source.entries = []ScheduleEntry{lessonAt("Algorithms", "SE-2301", occurredOn)}

	_, err := f.service.Run(context.Background(), testNow)
	require.NoError(t, err)

	result, err := f.service.Run(context.Background(), testNow)
	require.NoError(t, err)

	assert.Equal(t, 0, result.Created)
	assert.Equal(t, 1, result.Skipped)
	assert.Len(t, f.store.events, 1)
}

func TestAutoCreate_SourceErrorAbortsRun(t *testing.T) {
	f := newAutocreateFixture(t)
	f.source.err = assert.AnError

	_, err := f.service.Run(context.Background(), testNow)

	assert.Error(t, err)
}

func TestAutoCreate_DerivedThresholdsUseOffsets(t *testing.T) {
	f := newAutocreateFixture(t)
	occurredOn := testNow.Add(72 * time.Hour)
	f.source.entries = []ScheduleEntry{lessonAt("Algorithms", "SE-2301", occurredOn)}

	_, err := f.service.Run(context.Background(), testNow)
	require.NoError(t, err)

	for _, ev := range f.store.events {
		assert.True(t, ev.NotificationTime.Equal(occurredOn.Add(-48*time.Hour)))
		assert.True(t, ev.FormationTime.Equal(occurredOn.Add(-24*time.Hour)))
		assert.True(t, ev.DeletionTime.Equal(occurredOn.Add(24*time.Hour)))
	}
}
