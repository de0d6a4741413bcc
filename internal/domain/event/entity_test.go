package event

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/queue-hub/queue-manager/internal/domain/user"
)

func TestNewEvent_DerivesThresholds(t *testing.T) {
	occurredOn := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	ev, err := NewEvent(NewEventParams{
		ID:         "event-1",
		CategoryID: "category-1",
		GroupCode:  "SE-2301",
		OccurredOn: occurredOn,
	})
	require.NoError(t, err)

	assert.Equal(t, occurredOn.Add(-48*time.Hour), ev.NotificationTime)
	assert.Equal(t, occurredOn.Add(-24*time.Hour), ev.FormationTime)
	assert.Equal(t, occurredOn.Add(24*time.Hour), ev.DeletionTime)
	assert.Equal(t, PhaseCreated, ev.Phase)
}

func TestNewEvent_CustomOffsets(t *testing.T) {
	occurredOn := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	ev, err := NewEvent(NewEventParams{
		ID:         "event-1",
		CategoryID: "category-1",
		GroupCode:  "SE-2301",
		OccurredOn: occurredOn,
		Offsets: TimeOffsets{
			Notification: 12 * time.Hour,
			Formation:    6 * time.Hour,
			Deletion:     time.Hour,
		},
	})
	require.NoError(t, err)

	assert.Equal(t, occurredOn.Add(-12*time.Hour), ev.NotificationTime)
	assert.Equal(t, occurredOn.Add(-6*time.Hour), ev.FormationTime)
	assert.Equal(t, occurredOn.Add(time.Hour), ev.DeletionTime)
}

func TestNewEvent_Validation(t *testing.T) {
	base := NewEventParams{
		ID:         "event-1",
		CategoryID: "category-1",
		GroupCode:  "SE-2301",
		OccurredOn: time.Now(),
	}

	missingCategory := base
	missingCategory.CategoryID = ""
	_, err := NewEvent(missingCategory)
	assert.ErrorIs(t, err, ErrMissingCategory)

	badGroup := base
	badGroup.GroupCode = "x"
	_, err = NewEvent(badGroup)
	assert.ErrorIs(t, err, ErrInvalidGroupCode)

	zeroTime := base
	zeroTime.OccurredOn = time.Time{}
	_, err = NewEvent(zeroTime)
	assert.ErrorIs(t, err, ErrInvalidOccurredOn)
}

func TestEnroll_RejectsDuplicates(t *testing.T) {
	ev := newTestEvent(t)

	require.NoError(t, ev.Enroll(1, PreferenceNone))
	err := ev.Enroll(1, PreferenceStart)

	assert.ErrorIs(t, err, ErrAlreadyEnrolled)
	assert.Equal(t, []user.TelegramID{1}, ev.Participants())
}

func TestEnroll_RejectsInvalidPreference(t *testing.T) {
	ev := newTestEvent(t)

	err := ev.Enroll(1, Preference("middle"))

	assert.ErrorIs(t, err, ErrInvalidPreference)
	assert.False(t, ev.IsEnrolled(1))
}

func TestEnroll_RejectedAfterFormation(t *testing.T) {
	ev := newTestEvent(t)
	require.NoError(t, ev.Enroll(1, PreferenceNone))
	_, formed := ev.Form(nil, nil)
	require.True(t, formed)

	err := ev.Enroll(2, PreferenceNone)

	assert.ErrorIs(t, err, ErrAlreadyFormed)
}

func TestWithdraw_KeepsEnrollmentOrder(t *testing.T) {
	ev := newTestEvent(t)
	require.NoError(t, ev.Enroll(1, PreferenceNone))
	require.NoError(t, ev.Enroll(2, PreferenceNone))
	require.NoError(t, ev.Enroll(3, PreferenceNone))

	require.NoError(t, ev.Withdraw(2))

	assert.Equal(t, []user.TelegramID{1, 3}, ev.Participants())
	assert.False(t, ev.IsEnrolled(2))
}

func TestWithdraw_Errors(t *testing.T) {
	ev := newTestEvent(t)

	assert.ErrorIs(t, ev.Withdraw(1), ErrNotEnrolled)

	require.NoError(t, ev.Enroll(1, PreferenceNone))
	_, formed := ev.Form(nil, nil)
	require.True(t, formed)

	assert.ErrorIs(t, ev.Withdraw(1), ErrAlreadyFormed)
}

func TestMarkNotified_Idempotent(t *testing.T) {
	ev := newTestEvent(t)

	ev.MarkNotified()
	assert.Equal(t, PhaseNotified, ev.Phase)

	ev.MarkNotified()
	assert.Equal(t, PhaseNotified, ev.Phase)
}

func TestDuePredicates(t *testing.T) {
	ev := newTestEvent(t)

	before := ev.NotificationTime.Add(-time.Minute)
	assert.False(t, ev.NotificationDue(before))
	assert.True(t, ev.NotificationDue(ev.NotificationTime))
	assert.True(t, ev.FormationDue(ev.FormationTime))
	assert.False(t, ev.DeletionDue(ev.OccurredOn))
	assert.True(t, ev.DeletionDue(ev.DeletionTime))

	ev.MarkNotified()
	assert.False(t, ev.NotificationDue(ev.NotificationTime))

	_, formed := ev.Form(nil, nil)
	require.True(t, formed)
	assert.False(t, ev.FormationDue(ev.FormationTime))
	// Deletion stays due regardless of phase.
	assert.True(t, ev.DeletionDue(ev.DeletionTime))
}

func TestRestore_CoIndexedPreferences(t *testing.T) {
	ev := Restore(RestoreParams{
		ID:           "event-1",
		CategoryID:   "category-1",
		GroupCode:    "SE-2301",
		Phase:        PhaseNotified,
		Participants: []user.TelegramID{1, 2, 3},
		Preferences:  []Preference{PreferenceStart, PreferenceEnd},
	})

	assert.Equal(t, []user.TelegramID{1, 2, 3}, ev.Participants())

	p, ok := ev.PreferenceOf(1)
	assert.True(t, ok)
	assert.Equal(t, PreferenceStart, p)

	// Missing preference defaults to none.
	p, ok = ev.PreferenceOf(3)
	assert.True(t, ok)
	assert.Equal(t, PreferenceNone, p)

	assert.Equal(t, []Preference{PreferenceStart, PreferenceEnd, PreferenceNone}, ev.Preferences())
}

func TestRestore_InvalidPhaseFallsBackToCreated(t *testing.T) {
	ev := Restore(RestoreParams{
		ID:    "event-1",
		Phase: Phase("deleted"),
	})

	assert.Equal(t, PhaseCreated, ev.Phase)
}

func TestPreferenceRank(t *testing.T) {
	assert.Equal(t, 0, PreferenceStart.Rank())
	assert.Equal(t, 1, PreferenceNone.Rank())
	assert.Equal(t, 1, Preference("").Rank())
	assert.Equal(t, 2, PreferenceEnd.Rank())
}
