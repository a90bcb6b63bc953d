// Package store provides in-memory Store implementations.
package store

import (
	"context"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/habituo/habit-engine/habit"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu       sync.RWMutex
	habits   map[habit.HabitID]*record
	order    []habit.HabitID
	users    map[habit.UserID]habit.User
	activity []habit.ActivityEntry
	now      func() time.Time
}

type record struct {
	habit habit.Habit
	days  map[dayKey]bool
}

type dayKey struct {
	User habit.UserID
	Day  string
}

func NewMemory() *Memory {
	return &Memory{
		habits: make(map[habit.HabitID]*record),
		users:  make(map[habit.UserID]habit.User),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// CreateHabit stores h with an empty ledger unless h already carries one
// (seeding and imports).
func (m *Memory) CreateHabit(_ context.Context, h habit.Habit) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if h.ID == "" {
		h.ID = habit.NewHabitID()
	}
	if _, exists := m.habits[h.ID]; exists {
		return habit.ErrDuplicateHabit
	}
	if h.CreatedAt.IsZero() {
		h.CreatedAt = m.now()
	}
	rec := &record{habit: h.Clone(), days: make(map[dayKey]bool)}
	if h.IsPersonal() {
		rec.habit.History = rec.habit.History.Attribute(h.Owner)
	}
	for e := range rec.habit.History.All() {
		rec.days[dayKey{User: e.User, Day: e.Date.String()}] = true
	}
	m.order = append(m.order, h.ID)
	m.habits[h.ID] = rec
	m.activity = append(m.activity, habit.NewActivity(habit.ActivityHabitCreated, h.Owner, h.ID, h.Name))
	return nil
}

func (m *Memory) LoadHabit(_ context.Context, id habit.HabitID) (habit.Habit, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.habits[id]
	if !ok {
		return habit.Habit{}, habit.ErrHabitNotFound
	}
	return rec.habit.Clone(), nil
}

// AppendCompletion adds one entry. Append-only; (user, day) is unique.
func (m *Memory) AppendCompletion(_ context.Context, id habit.HabitID, entry habit.CompletionEntry) (habit.Ledger, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.habits[id]
	if !ok {
		return habit.Ledger{}, habit.ErrHabitNotFound
	}
	if entry.User == "" && rec.habit.IsPersonal() {
		entry.User = rec.habit.Owner
	}
	k := dayKey{User: entry.User, Day: entry.Date.String()}
	if rec.days[k] {
		return habit.Ledger{}, habit.ErrDuplicateCompletion
	}
	rec.days[k] = true
	rec.habit.History.Append(entry)
	m.activity = append(m.activity, habit.NewActivity(habit.ActivityCompletionRecorded, entry.User, id, entry.Date.String()))
	return rec.habit.History.Clone(), nil
}

func (m *Memory) ListHabits(_ context.Context, q habit.HabitQuery) ([]habit.Habit, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []habit.Habit
	for _, id := range m.order {
		rec, ok := m.habits[id]
		if !ok {
			continue
		}
		if q.Visibility != "" && rec.habit.Visibility != q.Visibility {
			continue
		}
		if q.Owner != "" && rec.habit.Owner != q.Owner {
			continue
		}
		out = append(out, rec.habit.Clone())
	}
	// Newest first, like the upstream collections.
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *Memory) DeleteHabit(_ context.Context, id habit.HabitID, actor habit.UserID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.habits[id]
	if !ok {
		return habit.ErrHabitNotFound
	}
	delete(m.habits, id)
	m.order = slices.DeleteFunc(m.order, func(x habit.HabitID) bool { return x == id })
	m.activity = append(m.activity, habit.NewActivity(habit.ActivityHabitDeleted, actor, id, rec.habit.Name))
	return nil
}

// =============================================================================
// USERS
// =============================================================================

func (m *Memory) CreateUser(_ context.Context, u habit.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := habit.UserID(strings.ToLower(string(u.Email)))
	if _, exists := m.users[key]; exists {
		return habit.ErrDuplicateUser
	}
	if u.Role == "" {
		u.Role = habit.RoleUser
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = m.now()
	}
	m.users[key] = u
	return nil
}

func (m *Memory) GetUser(_ context.Context, email habit.UserID) (habit.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	u, ok := m.users[habit.UserID(strings.ToLower(string(email)))]
	if !ok {
		return habit.User{}, habit.ErrUserNotFound
	}
	return u, nil
}

func (m *Memory) CountUsers(_ context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.users), nil
}

// =============================================================================
// ACTIVITY LOG
// =============================================================================

func (m *Memory) AppendActivity(_ context.Context, entry habit.ActivityEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.activity = append(m.activity, entry)
	return nil
}

func (m *Memory) QueryActivity(_ context.Context, f habit.ActivityFilter) ([]habit.ActivityEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []habit.ActivityEntry
	for i := len(m.activity) - 1; i >= 0; i-- {
		e := m.activity[i]
		if f.HabitID != "" && e.HabitID != f.HabitID {
			continue
		}
		if f.Actor != "" && e.Actor != f.Actor {
			continue
		}
		if len(f.Actions) > 0 && !slices.Contains(f.Actions, e.Action) {
			continue
		}
		out = append(out, e)
		if f.Limit > 0 && len(out) == f.Limit {
			break
		}
	}
	return out, nil
}

// Reset drops every habit, user and activity entry.
func (m *Memory) Reset(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.habits = make(map[habit.HabitID]*record)
	m.order = nil
	m.users = make(map[habit.UserID]habit.User)
	m.activity = nil
	return nil
}
