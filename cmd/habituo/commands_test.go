package main

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/habituo/habit-engine/config"
)

func newTestApp(t *testing.T) (*App, *bytes.Buffer) {
	t.Helper()
	var out bytes.Buffer
	return &App{
		Config: &config.Config{
			StoreBackend: "sqlite",
			StoreDSN:     filepath.Join(t.TempDir(), "habituo.db"),
			TimeZone:     "UTC",
			StreakRule:   "strict",
		},
		Logger: zap.NewNop(),
		Out:    &out,
	}, &out
}

func TestCommands_SeedThenComplete(t *testing.T) {
	// GIVEN: The community scenario seeded into a SQLite file
	app, out := newTestApp(t)
	require.NoError(t, (&SeedCmd{Scenario: "community"}).Run(app))
	assert.Contains(t, out.String(), "Loaded scenario community")

	// WHEN: Bob, whose run ended yesterday, completes today and again
	out.Reset()
	require.NoError(t, (&CompleteCmd{HabitID: "pub-run", User: "Bob@example.com"}).Run(app))
	first := out.String()
	out.Reset()
	require.NoError(t, (&CompleteCmd{HabitID: "pub-run", User: "bob@example.com"}).Run(app))
	second := out.String()

	// THEN: The run continues and the second call is a no-op
	assert.Contains(t, first, "Marked complete")
	assert.Contains(t, first, "Current streak: 5 day(s), base tier")
	assert.Contains(t, second, "Already completed today")
	assert.Contains(t, second, "Current streak: 5 day(s)")
}

func TestCommands_Status(t *testing.T) {
	app, out := newTestApp(t)
	require.NoError(t, (&SeedCmd{Scenario: "streak-tiers"}).Run(app))
	out.Reset()

	require.NoError(t, (&StatusCmd{HabitID: "tier-high", User: "alice@example.com"}).Run(app))

	assert.Contains(t, out.String(), "Current streak: 16 day(s), high tier")
	assert.Contains(t, out.String(), "completed: true")
}

func TestCommands_StatusUnknownHabit(t *testing.T) {
	app, _ := newTestApp(t)

	err := (&StatusCmd{HabitID: "missing", User: "alice@example.com"}).Run(app)

	assert.Error(t, err)
}

func TestCommands_Analytics(t *testing.T) {
	app, out := newTestApp(t)
	require.NoError(t, (&SeedCmd{Scenario: "community"}).Run(app))
	out.Reset()

	require.NoError(t, (&AnalyticsCmd{}).Run(app))

	assert.Contains(t, out.String(), "Users:             4")
	assert.Contains(t, out.String(), "Total completions: 56")
}

func TestCommands_SeedList(t *testing.T) {
	app, out := newTestApp(t)

	require.NoError(t, (&SeedCmd{List: true}).Run(app))

	assert.Contains(t, out.String(), "streak-tiers")
	assert.Contains(t, out.String(), "community")
}

func TestApp_OpenStore_UnknownBackend(t *testing.T) {
	app, _ := newTestApp(t)
	app.Config.StoreBackend = "cassandra"

	_, _, err := app.OpenStore()

	assert.Error(t, err)
}

func TestApp_OpenStore_RemoteNeedsURL(t *testing.T) {
	app, _ := newTestApp(t)
	app.Config.StoreBackend = "remote"

	_, _, err := app.OpenStore()

	assert.Error(t, err)
}
