package event

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/queue-hub/queue-manager/internal/domain/user"
)

func fixedLookup(stats map[user.TelegramID]float64) FairnessLookup {
	return func(id user.TelegramID) (float64, bool) {
		avg, ok := stats[id]
		return avg, ok
	}
}

func TestFormOrder_SortsByPreferenceThenAverage(t *testing.T) {
	participants := []user.TelegramID{10, 20, 30, 40}
	prefs := map[user.TelegramID]Preference{
		10: PreferenceEnd,
		20: PreferenceNone,
		30: PreferenceStart,
		40: PreferenceNone,
	}
	stats := map[user.TelegramID]float64{
		10: 1.0,
		20: 5.0,
		30: 9.0,
		40: 2.0,
	}

	result := FormOrder(participants, prefs, nil, fixedLookup(stats))

	// Start first regardless of a bad average, then None ordered by
	// average ascending, End last.
	assert.Equal(t, []user.TelegramID{30, 40, 20, 10}, result.FinalOrder)
}

func TestFormOrder_MissingFairnessReadsAsZero(t *testing.T) {
	participants := []user.TelegramID{1, 2}
	prefs := map[user.TelegramID]Preference{
		1: PreferenceNone,
		2: PreferenceNone,
	}
	stats := map[user.TelegramID]float64{1: 3.5}

	result := FormOrder(participants, prefs, nil, fixedLookup(stats))

	// Participant 2 has no fairness record: treated as 0.0, top priority.
	assert.Equal(t, []user.TelegramID{2, 1}, result.FinalOrder)
}

func TestFormOrder_StableForEqualKeys(t *testing.T) {
	participants := []user.TelegramID{5, 6, 7}
	prefs := map[user.TelegramID]Preference{
		5: PreferenceNone,
		6: PreferenceNone,
		7: PreferenceNone,
	}
	stats := map[user.TelegramID]float64{5: 2.0, 6: 2.0, 7: 2.0}

	result := FormOrder(participants, prefs, nil, fixedLookup(stats))

	// Equal keys keep enrollment order.
	assert.Equal(t, []user.TelegramID{5, 6, 7}, result.FinalOrder)
}

func TestFormOrder_CarryOverPrefix(t *testing.T) {
	participants := []user.TelegramID{1, 2, 3, 4}
	prefs := map[user.TelegramID]Preference{
		1: PreferenceNone,
		2: PreferenceNone,
		3: PreferenceNone,
		4: PreferenceNone,
	}
	stats := map[user.TelegramID]float64{1: 1.0, 2: 2.0, 3: 3.0, 4: 4.0}

	result := FormOrder(participants, prefs, []user.TelegramID{4, 3}, fixedLookup(stats))

	// Carry-over keeps its own order at the head, the rest follow sorted.
	assert.Equal(t, []user.TelegramID{4, 3, 1, 2}, result.FinalOrder)
	assert.Equal(t, []user.TelegramID{4, 3}, result.CarriedOver)
}

func TestFormOrder_CarryOverSkipsNotEnrolled(t *testing.T) {
	participants := []user.TelegramID{1, 2}
	prefs := map[user.TelegramID]Preference{
		1: PreferenceNone,
		2: PreferenceNone,
	}

	result := FormOrder(participants, prefs, []user.TelegramID{99, 2}, nil)

	assert.Equal(t, []user.TelegramID{2, 1}, result.FinalOrder)
	assert.Equal(t, []user.TelegramID{2}, result.CarriedOver)
}

func TestFormOrder_EndPreferenceCancelsCarryOver(t *testing.T) {
	participants := []user.TelegramID{1, 2}
	prefs := map[user.TelegramID]Preference{
		1: PreferenceNone,
		2: PreferenceEnd,
	}

	result := FormOrder(participants, prefs, []user.TelegramID{2}, nil)

	// 2 asked for the end: the carried-over debt burns.
	assert.Equal(t, []user.TelegramID{1, 2}, result.FinalOrder)
	assert.Empty(t, result.CarriedOver)
}

func TestFormOrder_CarryOverDuplicatesIgnored(t *testing.T) {
	participants := []user.TelegramID{1, 2}
	prefs := map[user.TelegramID]Preference{
		1: PreferenceNone,
		2: PreferenceNone,
	}

	result := FormOrder(participants, prefs, []user.TelegramID{2, 2, 2}, nil)

	assert.Equal(t, []user.TelegramID{2, 1}, result.FinalOrder)
	assert.Equal(t, []user.TelegramID{2}, result.CarriedOver)
}

func TestFormOrder_PositionsAreOneBased(t *testing.T) {
	participants := []user.TelegramID{7, 8, 9}
	prefs := map[user.TelegramID]Preference{
		7: PreferenceNone,
		8: PreferenceNone,
		9: PreferenceNone,
	}

	result := FormOrder(participants, prefs, nil, nil)

	require.Len(t, result.FinalOrder, 3)
	for i, id := range result.FinalOrder {
		assert.Equal(t, i+1, result.Positions[id])
	}
}

func TestFormOrder_EmptyParticipants(t *testing.T) {
	result := FormOrder(nil, nil, []user.TelegramID{1, 2}, nil)

	assert.Empty(t, result.FinalOrder)
	assert.Empty(t, result.CarriedOver)
	assert.Empty(t, result.Positions)
}

func TestEventForm_FixesOrderAndPhase(t *testing.T) {
	ev := newTestEvent(t)
	require.NoError(t, ev.Enroll(1, PreferenceNone))
	require.NoError(t, ev.Enroll(2, PreferenceStart))

	result, formed := ev.Form(nil, nil)

	require.True(t, formed)
	assert.Equal(t, PhaseFormed, ev.Phase)
	assert.Equal(t, result.FinalOrder, ev.Participants())
	assert.Equal(t, []user.TelegramID{2, 1}, ev.Participants())
}

func TestEventForm_SecondCallIsNoOp(t *testing.T) {
	ev := newTestEvent(t)
	require.NoError(t, ev.Enroll(1, PreferenceNone))

	_, formed := ev.Form(nil, nil)
	require.True(t, formed)

	_, formed = ev.Form([]user.TelegramID{1}, nil)
	assert.False(t, formed)
	assert.Equal(t, []user.TelegramID{1}, ev.Participants())
}

func newTestEvent(t *testing.T) *Event {
	t.Helper()

	ev, err := NewEvent(NewEventParams{
		ID:         "event-1",
		CategoryID: "category-1",
		GroupCode:  "SE-2301",
		OccurredOn: time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	return ev
}
