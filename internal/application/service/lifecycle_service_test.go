package service

import (
	"context"
	"fmt"
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

var testNow = time.Date(2026, 3, 9, 9, 0, 0, 0, time.UTC)

type lifecycleFixture struct {
	store    *memStore
	notifier *memNotifier
	service  *LifecycleService
}

func newLifecycleFixture(t *testing.T) *lifecycleFixture {
	t.Helper()

	store := newMemStore()

	g, err := group.NewGroup("group-1", "SE-2301", []int{1, 2})
	require.NoError(t, err)
	store.putGroup(g)

	cat, err := category.NewCategory("category-1", "Algorithms", "SE-2301", true)
	require.NoError(t, err)
	store.putCategory(cat)

	notifier := &memNotifier{}
	factory := &memUowFactory{store: store}

	svc := NewLifecycleService(
		factory,
		&memEventRepo{store: store},
		notifier,
		slog.Default(),
		nil,
		DefaultLifecycleConfig(),
	)

	return &lifecycleFixture{store: store, notifier: notifier, service: svc}
}

// putEvent кладёт событие с нужной фазой и порогами относительно testNow.
func (f *lifecycleFixture) putEvent(id string, phase event.Phase, notifyIn, formIn, deleteIn time.Duration, participants ...user.TelegramID) {
	prefs := make([]event.Preference, len(participants))
	for i := range prefs {
		prefs[i] = event.PreferenceNone
	}

	ev := event.Restore(event.RestoreParams{
		ID:               id,
		CategoryID:       "category-1",
		GroupCode:        "SE-2301",
		OccurredOn:       testNow.Add(deleteIn - 24*time.Hour),
		NotificationTime: testNow.Add(notifyIn),
		FormationTime:    testNow.Add(formIn),
		DeletionTime:     testNow.Add(deleteIn),
		Phase:            phase,
		Participants:     participants,
		Preferences:      prefs,
		CreatedAt:        testNow.Add(-72 * time.Hour),
		UpdatedAt:        testNow.Add(-72 * time.Hour),
	})
	f.store.putEvent(ev)

	g := f.store.groupByCode("SE-2301")
	g.AddEvent(id)
	f.store.putGroup(g)
}

func (f *lifecycleFixture) putUser(t *testing.T, tgID user.TelegramID, avg float64, count int) {
	t.Helper()

	u, err := user.NewUser(user.NewUserParams{
		ID:         fmt.Sprintf("user-%d", tgID),
		TelegramID: tgID,
		FullName:   "Participant",
		GroupCodes: []user.GroupCode{"SE-2301"},
	})
	require.NoError(t, err)
	u.AveragePosition = avg
	u.ParticipationCount = count
	f.store.putUser(u)
}

func TestTick_NotifiesDueEvents(t *testing.T) {
	f := newLifecycleFixture(t)
	f.putEvent("event-1", event.PhaseCreated, -time.Hour, 23*time.Hour, 48*time.Hour)

	report, err := f.service.Tick(context.Background(), testNow)

	require.NoError(t, err)
	assert.Equal(t, 1, report.Count(event.PhaseNotified))
	assert.Equal(t, 0, report.Failed())
	assert.Equal(t, 1, f.notifier.callCount())
	assert.Equal(t, event.PhaseNotified, f.store.eventByID("event-1").Phase)
}

func TestTick_NoDueEventsIsNoOp(t *testing.T) {
	f := newLifecycleFixture(t)
	f.putEvent("event-1", event.PhaseCreated, time.Hour, 25*time.Hour, 49*time.Hour)

	report, err := f.service.Tick(context.Background(), testNow)

	require.NoError(t, err)
	assert.Empty(t, report.Outcomes)
	assert.Equal(t, 0, f.notifier.callCount())
}

func TestTick_SecondRunIsIdempotent(t *testing.T) {
	f := newLifecycleFixture(t)
	f.putEvent("event-1", event.PhaseCreated, -time.Hour, 23*time.Hour, 48*time.Hour)

	_, err := f.service.Tick(context.Background(), testNow)
	require.NoError(t, err)

	report, err := f.service.Tick(context.Background(), testNow)
	require.NoError(t, err)

	assert.Empty(t, report.Outcomes)
	assert.Equal(t, 1, f.notifier.callCount())
}

func TestTick_FormsQueueWithCarryOverAndFairness(t *testing.T) {
	f := newLifecycleFixture(t)
	f.putUser(t, 1, 1.0, 3)
	f.putUser(t, 2, 5.0, 3)
	f.putUser(t, 3, 9.0, 3)

	// Participant 3 carries debt from the previous queue.
	cat := category.Restore("category-1", "Algorithms", "SE-2301", true,
		[]user.TelegramID{3}, testNow, testNow)
	f.store.putCategory(cat)

	f.putEvent("event-1", event.PhaseNotified, -25*time.Hour, -time.Hour, 23*time.Hour, 1, 2, 3)

	report, err := f.service.Tick(context.Background(), testNow)

	require.NoError(t, err)
	assert.Equal(t, 1, report.Count(event.PhaseFormed))

	formed := f.store.eventByID("event-1")
	assert.Equal(t, event.PhaseFormed, formed.Phase)
	assert.Equal(t, []user.TelegramID{3, 1, 2}, formed.Participants())

	// Carry-over is consumed exactly once.
	assert.Empty(t, f.store.categories["category-1"].CarryOver())

	// Fairness statistics were updated with the new positions.
	u3 := f.store.users[3]
	assert.Equal(t, 4, u3.ParticipationCount)
	assert.InDelta(t, (9.0*3+1)/4, u3.AveragePosition, 1e-9)

	u2 := f.store.users[2]
	assert.Equal(t, 4, u2.ParticipationCount)
	assert.InDelta(t, (5.0*3+3)/4, u2.AveragePosition, 1e-9)
}

func TestTick_MissedNotificationGoesStraightToFormed(t *testing.T) {
	f := newLifecycleFixture(t)
	f.putUser(t, 1, 0, 0)
	// Both thresholds passed, deletion still ahead: formation wins.
	f.putEvent("event-1", event.PhaseCreated, -25*time.Hour, -time.Hour, 23*time.Hour, 1)

	report, err := f.service.Tick(context.Background(), testNow)

	require.NoError(t, err)
	assert.Equal(t, 1, report.Count(event.PhaseFormed))
	assert.Equal(t, 0, report.Count(event.PhaseNotified))
	assert.Equal(t, event.PhaseFormed, f.store.eventByID("event-1").Phase)
}

func TestTick_DeletesExpiredEvents(t *testing.T) {
	f := newLifecycleFixture(t)
	f.putEvent("event-1", event.PhaseFormed, -73*time.Hour, -49*time.Hour, -time.Hour)

	report, err := f.service.Tick(context.Background(), testNow)

	require.NoError(t, err)
	assert.Equal(t, 1, report.Count(event.PhaseDeleted))
	assert.Nil(t, f.store.eventByID("event-1"))
	assert.Empty(t, f.store.groupByCode("SE-2301").EventIDs())
}

func TestTick_AbandonedEventDeletedWithoutForming(t *testing.T) {
	f := newLifecycleFixture(t)
	// Created, never notified or formed, deletion threshold passed.
	f.putEvent("event-1", event.PhaseCreated, -73*time.Hour, -49*time.Hour, -time.Hour)

	report, err := f.service.Tick(context.Background(), testNow)

	require.NoError(t, err)
	assert.Equal(t, 1, report.Count(event.PhaseDeleted))
	assert.Equal(t, 0, report.Count(event.PhaseFormed))
	assert.Equal(t, 0, f.notifier.callCount())
	assert.Nil(t, f.store.eventByID("event-1"))
}

func TestTick_ErrorIsolation(t *testing.T) {
	f := newLifecycleFixture(t)
	f.putUser(t, 1, 0, 0)

	// Healthy formation-due event.
	f.putEvent("event-1", event.PhaseNotified, -25*time.Hour, -time.Hour, 23*time.Hour, 1)

	// Broken event: references a category that does not exist.
	broken := event.Restore(event.RestoreParams{
		ID:               "event-2",
		CategoryID:       "missing",
		GroupCode:        "SE-2301",
		OccurredOn:       testNow,
		NotificationTime: testNow.Add(-25 * time.Hour),
		FormationTime:    testNow.Add(-time.Hour),
		DeletionTime:     testNow.Add(23 * time.Hour),
		Phase:            event.PhaseNotified,
	})
	f.store.putEvent(broken)

	report, err := f.service.Tick(context.Background(), testNow)

	require.NoError(t, err)
	assert.Equal(t, 1, report.Failed())
	assert.Equal(t, event.PhaseFormed, f.store.eventByID("event-1").Phase)
	// The broken event stays for the operator, not silently dropped.
	assert.NotNil(t, f.store.eventByID("event-2"))
}

func TestTick_NotifierFailureDoesNotRevertTransition(t *testing.T) {
	f := newLifecycleFixture(t)
	f.notifier.err = assert.AnError
	f.putEvent("event-1", event.PhaseCreated, -time.Hour, 23*time.Hour, 48*time.Hour)

	report, err := f.service.Tick(context.Background(), testNow)

	require.NoError(t, err)
	assert.Equal(t, 0, report.Failed())
	assert.Equal(t, event.PhaseNotified, f.store.eventByID("event-1").Phase)
}

func TestTick_FormationIsIdempotentForFairness(t *testing.T) {
	f := newLifecycleFixture(t)
	f.putUser(t, 1, 0, 0)
	f.putEvent("event-1", event.PhaseNotified, -25*time.Hour, -time.Hour, 23*time.Hour, 1)

	_, err := f.service.Tick(context.Background(), testNow)
	require.NoError(t, err)
	_, err = f.service.Tick(context.Background(), testNow)
	require.NoError(t, err)

	// Statistics recorded exactly once despite the second pass.
	assert.Equal(t, 1, f.store.users[1].ParticipationCount)
}
