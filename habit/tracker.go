package habit

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// View is what a client displays for one habit and one user.
type View struct {
	Habit  Habit
	State  StreakState
	Rollup Rollup
}

type TrackerConfig struct {
	Rule     StreakRule
	Location *time.Location // calendar used to decide "today"; nil = UTC
	Clock    Clock
	Logger   *zap.Logger
}

// Tracker wires a Store, a Gate and a clock for request handlers and the CLI.
type Tracker struct {
	store  Store
	gate   *Gate
	rule   StreakRule
	loc    *time.Location
	clock  Clock
	logger *zap.Logger
}

func NewTracker(store Store, cfg TrackerConfig) *Tracker {
	if cfg.Rule == "" {
		cfg.Rule = RuleStrict
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.Clock == nil {
		cfg.Clock = SystemClock{}
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Tracker{
		store:  store,
		gate:   NewGate(store, WithStreakRule(cfg.Rule), WithGateLogger(cfg.Logger)),
		rule:   cfg.Rule,
		loc:    cfg.Location,
		clock:  cfg.Clock,
		logger: cfg.Logger,
	}
}

func (t *Tracker) Today() Day { return DayOf(t.clock.Now(), t.loc) }

func (t *Tracker) Rule() StreakRule { return t.rule }

// Load fetches a habit and derives its view for user. On failure nothing is
// derived and the error is a *LoadError.
func (t *Tracker) Load(ctx context.Context, id HabitID, user UserID) (View, error) {
	h, err := t.store.LoadHabit(ctx, id)
	if err != nil {
		t.logger.Warn("habit load failed", zap.String("habit_id", string(id)), zap.Error(err))
		return View{}, &LoadError{HabitID: id, Err: err}
	}
	return t.Evaluate(h, user), nil
}

// Evaluate derives the view of an already loaded habit.
func (t *Tracker) Evaluate(h Habit, user UserID) View {
	return View{
		Habit:  h,
		State:  t.rule.State(h.History, user, t.Today()),
		Rollup: RollupFor(h, user),
	}
}

// MarkComplete loads the habit and runs it through the Gate for today.
func (t *Tracker) MarkComplete(ctx context.Context, id HabitID, user UserID) (Outcome, error) {
	h, err := t.store.LoadHabit(ctx, id)
	if err != nil {
		return Outcome{}, &LoadError{HabitID: id, Err: err}
	}
	return t.gate.MarkComplete(ctx, h, user, t.Today())
}
