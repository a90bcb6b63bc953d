/*
Package habit provides the completion engine behind the habit tracker.

PURPOSE:
  A habit owns a ledger of completion entries. Everything the app shows
  about a habit (current streak, "done today", total completions, monthly
  progress) is derived from that ledger. Nothing derived is stored.

KEY CONCEPTS IN THIS FILE (types.go):
  - Habit: identity, display attributes, and its completion ledger
  - Visibility: personal habits are completed by their owner only,
    public habits collect completions from the whole community
  - User: the minimal profile record the analytics count

DESIGN PRINCIPLES:
  1. Append-only: completion entries are never edited or removed one by one
  2. Single mutation path: only Gate.MarkComplete appends to a ledger
  3. Derived on read: streaks and rollups are recomputed on every load

SEE ALSO:
  - ledger.go: CompletionEntry and Ledger
  - streak.go: Streak rules and tiers
  - gate.go: The one-completion-per-day gate
  - rollup.go: Totals, progress, global analytics
*/
package habit

import (
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type HabitID string

// UserID identifies a user. The app keys users by email address.
type UserID string

func NewHabitID() HabitID { return HabitID(uuid.NewString()) }

// =============================================================================
// HABIT
// =============================================================================

type Visibility string

const (
	VisibilityPersonal Visibility = "personal"
	VisibilityPublic   Visibility = "public"
)

func (v Visibility) Valid() bool {
	return v == VisibilityPersonal || v == VisibilityPublic
}

type Habit struct {
	ID               HabitID
	Name             string
	ShortDescription string
	FullDescription  string
	Category         string
	ReminderTime     string // "HH:MM", display only
	ImageURL         string
	CreatorName      string
	Owner            UserID
	Visibility       Visibility
	Featured         bool
	CreatedAt        time.Time

	History Ledger
}

// Clone returns a copy whose ledger does not share storage with h.
func (h Habit) Clone() Habit {
	c := h
	c.History = h.History.Clone()
	return c
}

// IsPersonal reports whether only the owner may complete the habit.
func (h Habit) IsPersonal() bool { return h.Visibility == VisibilityPersonal }

// CreationDay is the calendar day the habit was created (UTC).
func (h Habit) CreationDay() Day { return DayOf(h.CreatedAt, time.UTC) }

// =============================================================================
// USER - Minimal profile record (no credentials live here)
// =============================================================================

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

type User struct {
	Email     UserID
	Name      string
	PhotoURL  string
	Role      Role
	CreatedAt time.Time
}

// =============================================================================
// ACTIVITY - Append-only record of ledger transitions
// =============================================================================

type ActivityAction string

const (
	ActivityHabitCreated       ActivityAction = "habit_created"
	ActivityHabitDeleted       ActivityAction = "habit_deleted"
	ActivityCompletionRecorded ActivityAction = "completion_recorded"
)

type ActivityEntry struct {
	ID      string
	At      time.Time
	Actor   UserID
	Action  ActivityAction
	HabitID HabitID
	Detail  string
}

func NewActivity(action ActivityAction, actor UserID, habitID HabitID, detail string) ActivityEntry {
	return ActivityEntry{
		ID:      uuid.NewString(),
		At:      time.Now().UTC(),
		Actor:   actor,
		Action:  action,
		HabitID: habitID,
		Detail:  detail,
	}
}
