package habit

import (
	"context"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// =============================================================================
// HABIT ROLLUPS - Read-only derivations for display
// =============================================================================

// ProgressTarget is the flat "monthly" target. It is an all-time count
// against a constant, not a calendar month.
const ProgressTarget = 30

var hundred = decimal.NewFromInt(100)

// TotalCompletions counts every entry of every user.
func TotalCompletions(l Ledger) int { return l.Len() }

// TotalCompletionsFor counts the entries of one user.
func TotalCompletionsFor(l Ledger, user UserID) int {
	n := 0
	for range l.EntriesFor(user) {
		n++
	}
	return n
}

// MonthlyProgressPercent is min(floor(total / ProgressTarget * 100), 100).
func MonthlyProgressPercent(total int) int {
	if total <= 0 {
		return 0
	}
	pct := decimal.NewFromInt(int64(total)).
		Mul(hundred).
		Div(decimal.NewFromInt(ProgressTarget)).
		Floor()
	if pct.GreaterThan(hundred) {
		return 100
	}
	return int(pct.IntPart())
}

type Rollup struct {
	Total                  int
	UserTotal              int
	MonthlyProgressPercent int
}

// RollupFor derives the rollups of h for user. Progress follows the
// community-wide total, the way the detail page always showed it.
func RollupFor(h Habit, user UserID) Rollup {
	total := TotalCompletions(h.History)
	return Rollup{
		Total:                  total,
		UserTotal:              TotalCompletionsFor(h.History, user),
		MonthlyProgressPercent: MonthlyProgressPercent(total),
	}
}

// =============================================================================
// GLOBAL ANALYTICS
// =============================================================================

type GlobalAnalytics struct {
	TotalUsers       int
	PublicHabits     int
	PersonalHabits   int
	TotalCompletions int
}

// ComputeAnalytics counts habits and completions locally when no
// AnalyticsSource is available.
func ComputeAnalytics(habits []Habit, users int) GlobalAnalytics {
	a := GlobalAnalytics{TotalUsers: users}
	for _, h := range habits {
		switch h.Visibility {
		case VisibilityPublic:
			a.PublicHabits++
		case VisibilityPersonal:
			a.PersonalHabits++
		}
		a.TotalCompletions += TotalCompletions(h.History)
	}
	return a
}

// AnalyticsFrom returns src's counts unmodified when src is an
// AnalyticsSource, otherwise computes them from the habits and users it holds.
func AnalyticsFrom(ctx context.Context, src any) (GlobalAnalytics, error) {
	if as, ok := src.(AnalyticsSource); ok {
		return as.GlobalAnalytics(ctx)
	}
	hs, ok := src.(HabitStore)
	if !ok {
		return GlobalAnalytics{}, ErrUnsupported
	}
	var (
		habits []Habit
		users  int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		habits, err = hs.ListHabits(gctx, HabitQuery{})
		return err
	})
	if us, ok := src.(UserStore); ok {
		g.Go(func() error {
			var err error
			users, err = us.CountUsers(gctx)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return GlobalAnalytics{}, err
	}
	return ComputeAnalytics(habits, users), nil
}
