package habit

import (
	"fmt"
	"iter"
	"slices"
)

// =============================================================================
// STREAK RULES
// =============================================================================

// Streak returns the length of the unbroken run of completion days ending
// on asOf. Repeated dates count once, dates after asOf are ignored, and the
// first missing day ends the run. No completion on asOf means 0.
func Streak(history iter.Seq[CompletionEntry], asOf Day) int {
	days := distinctDays(history)
	if len(days) == 0 {
		return 0
	}
	slices.SortFunc(days, func(a, b Day) int { return b.Compare(a) })

	cursor := asOf
	streak := 0
	for _, d := range days {
		diff := DaysBetween(d, cursor)
		if diff < 0 {
			continue
		}
		if diff > 0 {
			break
		}
		streak++
		cursor = cursor.AddDays(-1)
	}
	return streak
}

// LegacyStreak reproduces the walk the web client shipped with: every
// entry (duplicates included) sorted newest first, accepted while its
// distance to a cursor that moves back one day per step is <= the streak
// so far. It agrees with Streak on gap-free, duplicate-free histories but
// bridges a single missing day and double-counts repeated dates.
func LegacyStreak(history iter.Seq[CompletionEntry], asOf Day) int {
	var days []Day
	for e := range history {
		days = append(days, e.Date)
	}
	if len(days) == 0 {
		return 0
	}
	slices.SortStableFunc(days, func(a, b Day) int { return b.Compare(a) })

	cursor := asOf
	streak := 0
	for _, d := range days {
		if DaysBetween(d, cursor) > streak {
			break
		}
		streak++
		cursor = cursor.AddDays(-1)
	}
	return streak
}

func distinctDays(history iter.Seq[CompletionEntry]) []Day {
	seen := make(map[int64]struct{})
	var days []Day
	for e := range history {
		if e.Date.IsZero() {
			continue
		}
		key := e.Date.Time().Unix()
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		days = append(days, e.Date)
	}
	return days
}

// StreakRule selects the streak walk.
type StreakRule string

const (
	RuleStrict StreakRule = "strict"
	RuleLegacy StreakRule = "legacy"
)

func ParseStreakRule(s string) (StreakRule, error) {
	switch StreakRule(s) {
	case "", RuleStrict:
		return RuleStrict, nil
	case RuleLegacy:
		return RuleLegacy, nil
	}
	return "", fmt.Errorf("unknown streak rule %q (want %q or %q)", s, RuleStrict, RuleLegacy)
}

func (r StreakRule) Count(history iter.Seq[CompletionEntry], asOf Day) int {
	if r == RuleLegacy {
		return LegacyStreak(history, asOf)
	}
	return Streak(history, asOf)
}

// State derives the per-user streak state of a ledger on today.
func (r StreakRule) State(l Ledger, user UserID, today Day) StreakState {
	n := r.Count(l.EntriesFor(user), today)
	return StreakState{
		CurrentStreak:  n,
		TodayCompleted: l.Has(user, today),
		Tier:           TierFor(n),
	}
}

// StreakState is recomputed on every load, never stored.
type StreakState struct {
	CurrentStreak  int
	TodayCompleted bool
	Tier           Tier
}

// =============================================================================
// TIERS
// =============================================================================

type Tier string

const (
	TierBase   Tier = "base"
	TierMedium Tier = "medium"
	TierHigh   Tier = "high"
)

const (
	HighTierStreak   = 15
	MediumTierStreak = 7
)

func TierFor(streak int) Tier {
	switch {
	case streak >= HighTierStreak:
		return TierHigh
	case streak >= MediumTierStreak:
		return TierMedium
	default:
		return TierBase
	}
}
