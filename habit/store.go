/*
store.go - Persistence interfaces for habits and their ledgers

KEY INTERFACES:
  Store:           what the completion path needs (load + append)
  HabitStore:      habit CRUD on top of Store
  UserStore:       minimal user records
  ActivityLog:     append-only record of ledger transitions
  AnalyticsSource: precomputed global counts

APPEND-ONLY CONTRACT:
  AppendCompletion is the only write to a ledger. There is no method to
  edit or remove a single entry; DeleteHabit drops the whole ledger.

UNIQUENESS:
  Implementations must reject a second entry for (habit, user, day) with
  ErrDuplicateCompletion. This is what resolves two devices racing past the
  Gate's precondition check.

IMPLEMENTATIONS:
  - habit/store: in-memory
  - store/sqlstore: SQLite and PostgreSQL
  - remote: the upstream REST API (Store + AnalyticsSource only)
*/
package habit

import "context"

// Store is the persistence boundary of the completion path.
type Store interface {
	// LoadHabit returns the habit with its full ledger, or ErrHabitNotFound.
	LoadHabit(ctx context.Context, id HabitID) (Habit, error)

	// AppendCompletion durably records entry and returns the authoritative
	// ledger after the write.
	AppendCompletion(ctx context.Context, id HabitID, entry CompletionEntry) (Ledger, error)
}

// HabitQuery filters ListHabits. Empty fields match everything.
type HabitQuery struct {
	Visibility Visibility
	Owner      UserID
}

type HabitStore interface {
	Store

	CreateHabit(ctx context.Context, h Habit) error
	ListHabits(ctx context.Context, q HabitQuery) ([]Habit, error)

	// DeleteHabit removes the habit and its whole ledger.
	DeleteHabit(ctx context.Context, id HabitID, actor UserID) error
}

type UserStore interface {
	CreateUser(ctx context.Context, u User) error
	GetUser(ctx context.Context, email UserID) (User, error)
	CountUsers(ctx context.Context) (int, error)
}

type ActivityFilter struct {
	HabitID HabitID
	Actor   UserID
	Actions []ActivityAction
	Limit   int // 0 = no limit
}

// ActivityLog stores activity entries, newest first on Query. Append-only.
type ActivityLog interface {
	AppendActivity(ctx context.Context, entry ActivityEntry) error
	QueryActivity(ctx context.Context, filter ActivityFilter) ([]ActivityEntry, error)
}

type AnalyticsSource interface {
	GlobalAnalytics(ctx context.Context) (GlobalAnalytics, error)
}
