/*
ledger.go - Append-only completion history of one habit

PURPOSE:
  The Ledger is the source of truth for "who completed this habit, when".
  Streaks and rollups are always computed by walking it; there is no
  cached streak that can drift from the history.

INVARIANTS:
  1. APPEND-ONLY: no update, no per-entry delete
  2. AT MOST ONE entry per (user, day), enforced by the Gate and by the
     store's unique index, never by the ledger itself
  3. ORDER IS IRRELEVANT: consumers sort what they need

SCOPING:
  Public habits collect entries from many users. EntriesFor(user) restricts
  the walk to a single user; All() walks the whole community.

SEE ALSO:
  - gate.go: the only code path that appends
  - streak.go: walks EntriesFor(user)
*/
package habit

import (
	"iter"
	"slices"
)

// CompletionEntry records that User completed the habit on Date.
// An empty User on a personal habit means the owner.
type CompletionEntry struct {
	User UserID
	Date Day
}

// Ledger is the completion history of one habit.
type Ledger struct {
	entries []CompletionEntry
}

// NewLedger copies entries into a new ledger.
func NewLedger(entries ...CompletionEntry) Ledger {
	return Ledger{entries: slices.Clone(entries)}
}

// Append adds an entry. Uniqueness is the Gate's job, not the ledger's.
func (l *Ledger) Append(e CompletionEntry) {
	l.entries = append(l.entries, e)
}

func (l Ledger) Len() int { return len(l.entries) }

// Entries returns a copy of every entry.
func (l Ledger) Entries() []CompletionEntry { return slices.Clone(l.entries) }

func (l Ledger) Clone() Ledger { return Ledger{entries: slices.Clone(l.entries)} }

// All yields every entry. Ranging over it again restarts from the first entry.
func (l Ledger) All() iter.Seq[CompletionEntry] {
	return func(yield func(CompletionEntry) bool) {
		for _, e := range l.entries {
			if !yield(e) {
				return
			}
		}
	}
}

// EntriesFor yields the entries recorded by user.
func (l Ledger) EntriesFor(user UserID) iter.Seq[CompletionEntry] {
	return func(yield func(CompletionEntry) bool) {
		for _, e := range l.entries {
			if e.User != user {
				continue
			}
			if !yield(e) {
				return
			}
		}
	}
}

// Has reports whether user already has an entry on day.
func (l Ledger) Has(user UserID, day Day) bool {
	for e := range l.EntriesFor(user) {
		if e.Date.Equal(day) {
			return true
		}
	}
	return false
}

// Attribute returns a copy where entries without a user belong to owner.
// Stores call it when loading personal habits.
func (l Ledger) Attribute(owner UserID) Ledger {
	out := l.Clone()
	for i := range out.entries {
		if out.entries[i].User == "" {
			out.entries[i].User = owner
		}
	}
	return out
}
