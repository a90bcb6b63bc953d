/*
handlers_test.go - HTTP tests for the habit API

Tests for:
- Habit creation and validation
- Mark complete (recorded, already completed, ownership, failures)
- Catalog paging and featured shelf
- My habits, analytics, activity log
- Capability checks on partial stores
*/
package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/habituo/habit-engine/api"
	"github.com/habituo/habit-engine/habit"
	"github.com/habituo/habit-engine/habit/store"
)

var testNow = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

func testToday() habit.Day { return habit.DayOf(testNow, time.UTC) }

type testServer struct {
	t      *testing.T
	mem    *store.Memory
	h      *api.Handler
	router http.Handler
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	return newTestServerWith(t, store.NewMemory(), api.RouterOptions{EnableScenarios: true})
}

func newTestServerWith(t *testing.T, s habit.Store, opts api.RouterOptions) *testServer {
	t.Helper()
	tracker := habit.NewTracker(s, habit.TrackerConfig{Clock: habit.FixedClock(testNow)})
	h := api.NewHandler(s, tracker, nil)
	mem, _ := s.(*store.Memory)
	return &testServer{t: t, mem: mem, h: h, router: api.NewRouter(h, opts)}
}

func (ts *testServer) do(method, path, user string, body any) *httptest.ResponseRecorder {
	ts.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(ts.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if user != "" {
		req.Header.Set(api.UserHeader, user)
	}
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	return rec
}

func (ts *testServer) seedHabit(h habit.Habit) {
	ts.t.Helper()
	require.NoError(ts.t, ts.mem.CreateHabit(context.Background(), h))
}

func (ts *testServer) seedUser(email string, role habit.Role) {
	ts.t.Helper()
	require.NoError(ts.t, ts.mem.CreateUser(context.Background(), habit.User{Email: habit.UserID(email), Role: role}))
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

// run returns k consecutive entries for user ending on end.
func run(user habit.UserID, end habit.Day, k int) habit.Ledger {
	var l habit.Ledger
	for i := k - 1; i >= 0; i-- {
		l.Append(habit.CompletionEntry{User: user, Date: end.AddDays(-i)})
	}
	return l
}

// =============================================================================
// CREATE
// =============================================================================

func TestHandler_CreateHabit_CallerIsOwner(t *testing.T) {
	// GIVEN: An identified caller
	ts := newTestServer(t)

	// WHEN: Creating a personal habit
	rec := ts.do(http.MethodPost, "/api/habits", "Alice@Example.com", api.CreateHabitRequest{
		Name:         "Read 20 pages",
		Category:     "Study",
		ReminderTime: "21:00",
		Visibility:   "personal",
	})

	// THEN: It is owned by the caller with an empty ledger
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	got := decode[api.HabitDTO](t, rec)
	assert.NotEmpty(t, got.ID)
	assert.Equal(t, "alice@example.com", got.UserEmail)
	assert.Equal(t, "personal", got.Visibility)
	assert.Empty(t, got.CompletionHistory)
	assert.NotEmpty(t, got.CreateDate)
}

func TestHandler_CreateHabit_RequiresUser(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodPost, "/api/habits", "", api.CreateHabitRequest{
		Name: "Stretch", Category: "Morning", Visibility: "public",
	})

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHandler_CreateHabit_ValidationError(t *testing.T) {
	// GIVEN: A body with no name, a bad reminder time and bad visibility
	ts := newTestServer(t)

	// WHEN: Creating the habit
	rec := ts.do(http.MethodPost, "/api/habits", "alice@example.com", api.CreateHabitRequest{
		Category:     "Morning",
		ReminderTime: "9am",
		Visibility:   "secret",
	})

	// THEN: 400 with per-field details keyed by JSON name
	require.Equal(t, http.StatusBadRequest, rec.Code)
	var body struct {
		Error   string            `json:"error"`
		Details map[string]string `json:"details"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Contains(t, body.Details, "habitName")
	assert.Contains(t, body.Details, "reminderTime")
	assert.Contains(t, body.Details, "visibility")
}

func TestHandler_CreateHabit_MalformedBody(t *testing.T) {
	ts := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/habits", bytes.NewBufferString("{"))
	req.Header.Set(api.UserHeader, "alice@example.com")
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// =============================================================================
// MARK COMPLETE
// =============================================================================

func TestHandler_MarkComplete_TwiceSameDay(t *testing.T) {
	// GIVEN: A public habit with an empty ledger
	ts := newTestServer(t)
	ts.seedHabit(habit.Habit{ID: "h1", Name: "Morning run", Visibility: habit.VisibilityPublic})

	// WHEN: The same user completes it twice today
	first := ts.do(http.MethodPost, "/api/habits/h1/complete", "alice@example.com", nil)
	second := ts.do(http.MethodPost, "/api/habits/h1/complete", "alice@example.com", nil)

	// THEN: The first records, the second is a no-op
	require.Equal(t, http.StatusCreated, first.Code, first.Body.String())
	got := decode[api.CompleteResponse](t, first)
	assert.Equal(t, "recorded", got.Status)
	require.NotNil(t, got.Entry)
	assert.Equal(t, testToday().String(), got.Entry.Date)
	assert.Equal(t, 1, got.View.Streak.CurrentStreak)
	assert.True(t, got.View.Streak.TodayCompleted)
	assert.Equal(t, "base", got.View.Streak.Tier)

	require.Equal(t, http.StatusOK, second.Code, second.Body.String())
	again := decode[api.CompleteResponse](t, second)
	assert.Equal(t, "already_completed_today", again.Status)
	assert.Nil(t, again.Entry)
	assert.Len(t, again.View.Habit.CompletionHistory, 1)

	stored, err := ts.mem.LoadHabit(context.Background(), "h1")
	require.NoError(t, err)
	assert.Equal(t, 1, stored.History.Len())
}

func TestHandler_MarkComplete_ExtendsStreakIntoMediumTier(t *testing.T) {
	// GIVEN: Six consecutive days ending yesterday
	ts := newTestServer(t)
	ts.seedHabit(habit.Habit{
		ID:         "h1",
		Owner:      "alice@example.com",
		Visibility: habit.VisibilityPersonal,
		History:    run("alice@example.com", testToday().AddDays(-1), 6),
	})

	// WHEN: Completing today
	rec := ts.do(http.MethodPost, "/api/habits/h1/complete", "alice@example.com", nil)

	// THEN: The streak reaches seven and the medium tier
	require.Equal(t, http.StatusCreated, rec.Code)
	got := decode[api.CompleteResponse](t, rec)
	assert.Equal(t, 7, got.View.Streak.CurrentStreak)
	assert.Equal(t, "medium", got.View.Streak.Tier)
	assert.Equal(t, 7, got.View.Rollup.TotalCompletions)
	assert.Equal(t, 23, got.View.Rollup.MonthlyProgressPercent)
}

func TestHandler_MarkComplete_PersonalHabitOfAnotherUser(t *testing.T) {
	ts := newTestServer(t)
	ts.seedHabit(habit.Habit{ID: "h1", Owner: "alice@example.com", Visibility: habit.VisibilityPersonal})

	rec := ts.do(http.MethodPost, "/api/habits/h1/complete", "bob@example.com", nil)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestHandler_MarkComplete_UnknownHabit(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodPost, "/api/habits/missing/complete", "alice@example.com", nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandler_MarkComplete_RequiresUser(t *testing.T) {
	ts := newTestServer(t)
	ts.seedHabit(habit.Habit{ID: "h1", Visibility: habit.VisibilityPublic})

	rec := ts.do(http.MethodPost, "/api/habits/h1/complete", "", nil)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

type failingAppendStore struct {
	*store.Memory
}

func (failingAppendStore) AppendCompletion(context.Context, habit.HabitID, habit.CompletionEntry) (habit.Ledger, error) {
	return habit.Ledger{}, errors.New("disk full")
}

func TestHandler_MarkComplete_PersistenceFailure(t *testing.T) {
	// GIVEN: A store whose writes fail
	mem := store.NewMemory()
	require.NoError(t, mem.CreateHabit(context.Background(), habit.Habit{ID: "h1", Visibility: habit.VisibilityPublic}))
	ts := newTestServerWith(t, failingAppendStore{mem}, api.RouterOptions{})

	// WHEN: Completing the habit
	rec := ts.do(http.MethodPost, "/api/habits/h1/complete", "alice@example.com", nil)

	// THEN: 503, retryable, ledger untouched
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))
	stored, err := mem.LoadHabit(context.Background(), "h1")
	require.NoError(t, err)
	assert.Equal(t, 0, stored.History.Len())
}

func TestHandler_MarkComplete_RateLimited(t *testing.T) {
	// GIVEN: A limit of one completion request per caller
	mem := store.NewMemory()
	require.NoError(t, mem.CreateHabit(context.Background(), habit.Habit{ID: "h1", Visibility: habit.VisibilityPublic}))
	ts := newTestServerWith(t, mem, api.RouterOptions{CompleteRate: 0.001, CompleteBurst: 1})

	// WHEN: The caller submits twice and another caller once
	first := ts.do(http.MethodPost, "/api/habits/h1/complete", "alice@example.com", nil)
	second := ts.do(http.MethodPost, "/api/habits/h1/complete", "alice@example.com", nil)
	other := ts.do(http.MethodPost, "/api/habits/h1/complete", "bob@example.com", nil)

	// THEN: Only the caller's second request is rejected
	assert.Equal(t, http.StatusCreated, first.Code)
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.Equal(t, http.StatusCreated, other.Code)
}

// =============================================================================
// READ / DELETE
// =============================================================================

func TestHandler_GetHabit_ViewForCaller(t *testing.T) {
	// GIVEN: A public habit completed by two users
	ts := newTestServer(t)
	ledger := run("alice@example.com", testToday(), 3)
	ledger.Append(habit.CompletionEntry{User: "bob@example.com", Date: testToday()})
	ts.seedHabit(habit.Habit{ID: "h1", Visibility: habit.VisibilityPublic, History: ledger})

	// WHEN: Bob views it
	rec := ts.do(http.MethodGet, "/api/habits/h1", "bob@example.com", nil)

	// THEN: Streak is Bob's, community total is everyone's
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[api.HabitViewDTO](t, rec)
	assert.Equal(t, testToday().String(), got.Today)
	assert.Equal(t, 1, got.Streak.CurrentStreak)
	assert.Equal(t, 4, got.Rollup.TotalCompletions)
	assert.Equal(t, 1, got.Rollup.UserCompletions)
}

func TestHandler_GetHabit_PersonalVisibleToOwnerAndAdmin(t *testing.T) {
	ts := newTestServer(t)
	ts.seedUser("admin@example.com", habit.RoleAdmin)
	ts.seedHabit(habit.Habit{ID: "h1", Owner: "alice@example.com", Visibility: habit.VisibilityPersonal})

	assert.Equal(t, http.StatusOK, ts.do(http.MethodGet, "/api/habits/h1", "alice@example.com", nil).Code)
	assert.Equal(t, http.StatusOK, ts.do(http.MethodGet, "/api/habits/h1", "admin@example.com", nil).Code)
	assert.Equal(t, http.StatusForbidden, ts.do(http.MethodGet, "/api/habits/h1", "bob@example.com", nil).Code)
	assert.Equal(t, http.StatusForbidden, ts.do(http.MethodGet, "/api/habits/h1", "", nil).Code)
}

func TestHandler_DeleteHabit_OwnerOnly(t *testing.T) {
	// GIVEN: A public habit owned by Alice
	ts := newTestServer(t)
	ts.seedHabit(habit.Habit{ID: "h1", Owner: "alice@example.com", Visibility: habit.VisibilityPublic})

	// WHEN: Bob then Alice delete it
	byBob := ts.do(http.MethodDelete, "/api/habits/h1", "bob@example.com", nil)
	byAlice := ts.do(http.MethodDelete, "/api/habits/h1", "alice@example.com", nil)

	// THEN: Only Alice succeeds and the habit is gone
	assert.Equal(t, http.StatusForbidden, byBob.Code)
	assert.Equal(t, http.StatusNoContent, byAlice.Code)
	assert.Equal(t, http.StatusNotFound, ts.do(http.MethodGet, "/api/habits/h1", "alice@example.com", nil).Code)
}

// =============================================================================
// CATALOG
// =============================================================================

func seedCatalog(ts *testServer, n int) {
	for i := 0; i < n; i++ {
		category := "Fitness"
		if i%2 == 1 {
			category = "Study"
		}
		ts.seedHabit(habit.Habit{
			ID:         habit.HabitID(fmt.Sprintf("pub-%d", i)),
			Name:       fmt.Sprintf("Habit %d", i),
			Category:   category,
			Owner:      "admin@example.com",
			Visibility: habit.VisibilityPublic,
			Featured:   i < 3,
			CreatedAt:  testNow.Add(time.Duration(i) * time.Hour),
		})
	}
	ts.seedHabit(habit.Habit{ID: "private", Owner: "alice@example.com", Visibility: habit.VisibilityPersonal, Category: "Fitness"})
}

func TestHandler_ListPublicHabits_LoadMore(t *testing.T) {
	// GIVEN: Eight public habits and one personal habit
	ts := newTestServer(t)
	seedCatalog(ts, 8)

	// WHEN: Reading the first two pages
	p1 := decode[api.CatalogPageDTO](t, ts.do(http.MethodGet, "/api/habits", "", nil))
	p2 := decode[api.CatalogPageDTO](t, ts.do(http.MethodGet, "/api/habits?page=2", "", nil))

	// THEN: Pages grow by six, newest first, personal habits excluded
	assert.Equal(t, 8, p1.Total)
	assert.Len(t, p1.Habits, 6)
	assert.True(t, p1.HasMore)
	assert.Equal(t, "pub-7", p1.Habits[0].ID)

	assert.Len(t, p2.Habits, 8)
	assert.False(t, p2.HasMore)
	for _, h := range p2.Habits {
		assert.Equal(t, "public", h.Visibility)
	}
}

func TestHandler_ListPublicHabits_Filters(t *testing.T) {
	ts := newTestServer(t)
	seedCatalog(ts, 8)

	byCategory := decode[api.CatalogPageDTO](t, ts.do(http.MethodGet, "/api/habits?category=study", "", nil))
	bySearch := decode[api.CatalogPageDTO](t, ts.do(http.MethodGet, "/api/habits?search=habit%203", "", nil))

	assert.Equal(t, 4, byCategory.Total)
	require.Equal(t, 1, bySearch.Total)
	assert.Equal(t, "pub-3", bySearch.Habits[0].ID)
}

func TestHandler_ListPublicHabits_BadPage(t *testing.T) {
	ts := newTestServer(t)

	assert.Equal(t, http.StatusBadRequest, ts.do(http.MethodGet, "/api/habits?page=0", "", nil).Code)
	assert.Equal(t, http.StatusBadRequest, ts.do(http.MethodGet, "/api/habits?page=x", "", nil).Code)
}

func TestHandler_ListPublicHabits_HugePage(t *testing.T) {
	// GIVEN: Eight public habits
	ts := newTestServer(t)
	seedCatalog(ts, 8)

	// WHEN: Asking for a page far past the end
	rec := ts.do(http.MethodGet, "/api/habits?page=1537228672809129302", "", nil)

	// THEN: Every match is returned, nothing more to load
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	got := decode[api.CatalogPageDTO](t, rec)
	assert.Len(t, got.Habits, 8)
	assert.False(t, got.HasMore)
}

func TestHandler_ListFeaturedHabits(t *testing.T) {
	ts := newTestServer(t)
	seedCatalog(ts, 8)

	rec := ts.do(http.MethodGet, "/api/habits/featured", "", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[[]api.HabitDTO](t, rec)
	require.Len(t, got, 3)
	assert.Equal(t, "pub-2", got[0].ID)
	for _, h := range got {
		assert.True(t, h.Featured)
	}
}

// =============================================================================
// USERS
// =============================================================================

func TestHandler_CreateUser_Duplicate(t *testing.T) {
	ts := newTestServer(t)
	req := api.CreateUserRequest{Email: "Alice@example.com", Name: "Alice"}

	first := ts.do(http.MethodPost, "/api/users", "", req)
	second := ts.do(http.MethodPost, "/api/users", "", req)

	require.Equal(t, http.StatusCreated, first.Code, first.Body.String())
	got := decode[api.UserDTO](t, first)
	assert.Equal(t, "alice@example.com", got.Email)
	assert.Equal(t, "user", got.Role)
	assert.Equal(t, http.StatusConflict, second.Code)
}

func TestHandler_CreateUser_InvalidEmail(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodPost, "/api/users", "", api.CreateUserRequest{Email: "not-an-email"})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandler_GetUser_NotFound(t *testing.T) {
	ts := newTestServer(t)

	assert.Equal(t, http.StatusNotFound, ts.do(http.MethodGet, "/api/users/nobody@example.com", "", nil).Code)
}

func TestHandler_ListUserHabits_WithStreaks(t *testing.T) {
	// GIVEN: Alice has two personal habits and one public habit
	ts := newTestServer(t)
	alice := habit.UserID("alice@example.com")
	ts.seedHabit(habit.Habit{ID: "a1", Owner: alice, Visibility: habit.VisibilityPersonal,
		CreatedAt: testNow, History: run(alice, testToday(), 16)})
	ts.seedHabit(habit.Habit{ID: "a2", Owner: alice, Visibility: habit.VisibilityPersonal,
		CreatedAt: testNow.Add(time.Hour), History: run(alice, testToday().AddDays(-1), 4)})
	ts.seedHabit(habit.Habit{ID: "p1", Owner: alice, Visibility: habit.VisibilityPublic})

	// WHEN: Alice lists her habits
	rec := ts.do(http.MethodGet, "/api/users/alice@example.com/habits", string(alice), nil)

	// THEN: Only personal habits, newest first, with derived streaks
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	got := decode[[]api.HabitViewDTO](t, rec)
	require.Len(t, got, 2)
	assert.Equal(t, "a2", got[0].Habit.ID)
	assert.Equal(t, 0, got[0].Streak.CurrentStreak, "run ended yesterday")
	assert.False(t, got[0].Streak.TodayCompleted)
	assert.Equal(t, "a1", got[1].Habit.ID)
	assert.Equal(t, 16, got[1].Streak.CurrentStreak)
	assert.Equal(t, "high", got[1].Streak.Tier)
}

func TestHandler_ListUserHabits_OtherUserForbidden(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodGet, "/api/users/alice@example.com/habits", "bob@example.com", nil)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

// =============================================================================
// ADMIN
// =============================================================================

func TestHandler_GetAnalytics(t *testing.T) {
	// GIVEN: Two users, two public and one personal habit, five completions
	ts := newTestServer(t)
	ts.seedUser("alice@example.com", habit.RoleUser)
	ts.seedUser("bob@example.com", habit.RoleUser)
	ts.seedHabit(habit.Habit{ID: "p1", Visibility: habit.VisibilityPublic, History: run("alice@example.com", testToday(), 3)})
	ts.seedHabit(habit.Habit{ID: "p2", Visibility: habit.VisibilityPublic})
	ts.seedHabit(habit.Habit{ID: "m1", Owner: "bob@example.com", Visibility: habit.VisibilityPersonal,
		History: run("bob@example.com", testToday(), 2)})

	// WHEN: Reading analytics
	rec := ts.do(http.MethodGet, "/api/analytics", "", nil)

	// THEN: Counters match the store
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[api.AnalyticsDTO](t, rec)
	assert.Equal(t, 2, got.TotalUsers)
	assert.Equal(t, 2, got.PublicHabits)
	assert.Equal(t, 1, got.TotalPersonalHabits)
	assert.Equal(t, 5, got.TotalCompletions)
	assert.False(t, got.RefreshedAt.IsZero())
}

func TestHandler_ListActivity_AdminOnly(t *testing.T) {
	// GIVEN: A habit created and completed through the API
	ts := newTestServer(t)
	ts.seedUser("admin@example.com", habit.RoleAdmin)
	created := ts.do(http.MethodPost, "/api/habits", "alice@example.com", api.CreateHabitRequest{
		Name: "Stretch", Category: "Morning", Visibility: "public",
	})
	require.Equal(t, http.StatusCreated, created.Code)
	id := decode[api.HabitDTO](t, created).ID
	require.Equal(t, http.StatusCreated, ts.do(http.MethodPost, "/api/habits/"+id+"/complete", "bob@example.com", nil).Code)

	// WHEN: A user and an admin read the log
	asUser := ts.do(http.MethodGet, "/api/admin/activity", "alice@example.com", nil)
	asAdmin := ts.do(http.MethodGet, "/api/admin/activity?habitId="+id, "admin@example.com", nil)
	filtered := ts.do(http.MethodGet, "/api/admin/activity?action=completion_recorded", "admin@example.com", nil)

	// THEN: Only the admin sees entries, newest first
	assert.Equal(t, http.StatusForbidden, asUser.Code)
	require.Equal(t, http.StatusOK, asAdmin.Code)
	entries := decode[[]api.ActivityDTO](t, asAdmin)
	require.Len(t, entries, 2)
	assert.Equal(t, "completion_recorded", entries[0].Action)
	assert.Equal(t, "bob@example.com", entries[0].Actor)
	assert.Equal(t, "habit_created", entries[1].Action)

	only := decode[[]api.ActivityDTO](t, filtered)
	require.Len(t, only, 1)
	assert.Equal(t, "completion_recorded", only[0].Action)
}

// =============================================================================
// CAPABILITIES
// =============================================================================

// completionOnlyStore has the completion path and nothing else, like the
// remote client.
type completionOnlyStore struct {
	inner *store.Memory
}

func (s completionOnlyStore) LoadHabit(ctx context.Context, id habit.HabitID) (habit.Habit, error) {
	return s.inner.LoadHabit(ctx, id)
}

func (s completionOnlyStore) AppendCompletion(ctx context.Context, id habit.HabitID, e habit.CompletionEntry) (habit.Ledger, error) {
	return s.inner.AppendCompletion(ctx, id, e)
}

func TestHandler_PartialStore_Unsupported(t *testing.T) {
	// GIVEN: A store with only load and append
	mem := store.NewMemory()
	require.NoError(t, mem.CreateHabit(context.Background(), habit.Habit{ID: "h1", Visibility: habit.VisibilityPublic}))
	ts := newTestServerWith(t, completionOnlyStore{mem}, api.RouterOptions{EnableScenarios: true})

	// THEN: Completion works, everything else is 501
	assert.Equal(t, http.StatusCreated, ts.do(http.MethodPost, "/api/habits/h1/complete", "alice@example.com", nil).Code)
	assert.Equal(t, http.StatusNotImplemented, ts.do(http.MethodGet, "/api/habits", "", nil).Code)
	assert.Equal(t, http.StatusNotImplemented, ts.do(http.MethodPost, "/api/users", "", api.CreateUserRequest{Email: "a@b.co"}).Code)
	assert.Equal(t, http.StatusNotImplemented, ts.do(http.MethodGet, "/api/admin/activity", "alice@example.com", nil).Code)
	assert.Equal(t, http.StatusNotImplemented, ts.do(http.MethodPost, "/api/scenarios/reset", "", nil).Code)
}

func TestHandler_Health(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodGet, "/healthz", "", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRouter_UnknownRoute(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodGet, "/api/nope", "", nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "Route not found")
}
