package habit_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/habituo/habit-engine/habit"
	"github.com/habituo/habit-engine/habit/store"
)

type brokenLoader struct{ habit.Store }

func (brokenLoader) LoadHabit(context.Context, habit.HabitID) (habit.Habit, error) {
	return habit.Habit{}, errors.New("upstream unreachable")
}

func trackerAt(s habit.Store, day string, rule habit.StreakRule) *habit.Tracker {
	now := habit.MustParseDay(day).Time().Add(10 * time.Hour)
	return habit.NewTracker(s, habit.TrackerConfig{Rule: rule, Clock: habit.FixedClock(now)})
}

func TestTracker_Load_DerivesView(t *testing.T) {
	mem := store.NewMemory()
	newPublicHabit(t, mem, "h1", run(alice, june3, 7)...)

	v, err := trackerAt(mem, "2024-06-03", habit.RuleStrict).Load(context.Background(), "h1", alice)

	require.NoError(t, err)
	assert.Equal(t, 7, v.State.CurrentStreak)
	assert.True(t, v.State.TodayCompleted)
	assert.Equal(t, habit.TierMedium, v.State.Tier)
	assert.Equal(t, 7, v.Rollup.Total)
	assert.Equal(t, 23, v.Rollup.MonthlyProgressPercent)
}

func TestTracker_Load_FailureIsLoadError(t *testing.T) {
	tr := trackerAt(brokenLoader{}, "2024-06-03", habit.RuleStrict)

	v, err := tr.Load(context.Background(), "h1", alice)

	assert.ErrorIs(t, err, habit.ErrLoadFailure)
	var le *habit.LoadError
	assert.ErrorAs(t, err, &le)
	assert.Equal(t, habit.View{}, v, "nothing derived on failure")
}

func TestTracker_Load_NotFound(t *testing.T) {
	_, err := trackerAt(store.NewMemory(), "2024-06-03", habit.RuleStrict).Load(context.Background(), "missing", alice)
	assert.ErrorIs(t, err, habit.ErrLoadFailure)
	assert.True(t, habit.IsNotFound(err))
}

func TestTracker_MarkComplete_UsesClockDay(t *testing.T) {
	mem := store.NewMemory()
	newPublicHabit(t, mem, "h1")
	tr := trackerAt(mem, "2024-06-03", habit.RuleStrict)

	out, err := tr.MarkComplete(context.Background(), "h1", alice)
	require.NoError(t, err)
	assert.Equal(t, "2024-06-03", out.Entry.Date.String())

	again, err := tr.MarkComplete(context.Background(), "h1", alice)
	require.NoError(t, err)
	assert.Equal(t, habit.StatusAlreadyCompletedToday, again.Status)
}

func TestTracker_LegacyRule(t *testing.T) {
	mem := store.NewMemory()
	newPublicHabit(t, mem, "h1", entries(alice, "2024-06-03", "2024-06-01")...)

	strict, err := trackerAt(mem, "2024-06-03", habit.RuleStrict).Load(context.Background(), "h1", alice)
	require.NoError(t, err)
	legacy, err := trackerAt(mem, "2024-06-03", habit.RuleLegacy).Load(context.Background(), "h1", alice)
	require.NoError(t, err)

	assert.Equal(t, 1, strict.State.CurrentStreak)
	assert.Equal(t, 2, legacy.State.CurrentStreak)
}
