/*
gate.go - The only mutation path into a ledger

PURPOSE:
  MarkComplete enforces one completion per (habit, user, day) and returns
  the new ledger with its recomputed streak state as one logical step.

FLOW:
  1. Owner check for personal habits
  2. Precondition: (user, today) already in the ledger -> no-op, no write
  3. Exactly one Store.AppendCompletion call
  4. Store answers ErrDuplicateCompletion (another device won the race)
     -> reload and report the same no-op outcome
  5. Any other failure -> PersistenceError, caller's Habit untouched

IN-FLIGHT COLLAPSE:
  Concurrent calls for the same key inside this process share one write
  through singleflight. A double tap from one client records once. Only
  the caller that ran the write sees StatusRecorded; the others see
  StatusAlreadyCompletedToday. The shared write runs detached from the
  caller's cancellation, bounded by the gate's write timeout.

CONFIRMED WRITES:
  The outcome holds the ledger the store returned, never a locally
  appended copy. Nothing is committed before the store confirms.
*/
package habit

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Status tells the caller what MarkComplete did.
type Status string

const (
	StatusRecorded              Status = "recorded"
	StatusAlreadyCompletedToday Status = "already_completed_today"
)

type Outcome struct {
	Status Status
	Habit  Habit
	State  StreakState
	Entry  CompletionEntry // zero unless Status == StatusRecorded
}

// DefaultWriteTimeout bounds one shared store write.
const DefaultWriteTimeout = 30 * time.Second

// Gate validates and records completions.
type Gate struct {
	store        Store
	rule         StreakRule
	logger       *zap.Logger
	writeTimeout time.Duration
	flight       singleflight.Group
}

type GateOption func(*Gate)

func WithStreakRule(r StreakRule) GateOption {
	return func(g *Gate) { g.rule = r }
}

func WithGateLogger(l *zap.Logger) GateOption {
	return func(g *Gate) { g.logger = l }
}

// WithWriteTimeout sets how long a shared write may run once detached
// from the callers' contexts.
func WithWriteTimeout(d time.Duration) GateOption {
	return func(g *Gate) {
		if d > 0 {
			g.writeTimeout = d
		}
	}
}

func NewGate(store Store, opts ...GateOption) *Gate {
	g := &Gate{
		store:        store,
		rule:         RuleStrict,
		logger:       zap.NewNop(),
		writeTimeout: DefaultWriteTimeout,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// MarkComplete records that user completed h on today.
func (g *Gate) MarkComplete(ctx context.Context, h Habit, user UserID, today Day) (Outcome, error) {
	if user == "" {
		return Outcome{}, ErrMissingUser
	}
	if today.IsZero() {
		return Outcome{}, ErrInvalidDay
	}
	if h.IsPersonal() && h.Owner != "" && user != h.Owner {
		return Outcome{}, ErrNotOwner
	}
	if h.History.Has(user, today) {
		return g.alreadyCompleted(h, user, today), nil
	}

	if err := ctx.Err(); err != nil {
		return Outcome{}, &PersistenceError{HabitID: h.ID, User: user, Day: today, Err: err}
	}

	key := string(h.ID) + "\x00" + string(user) + "\x00" + today.String()
	leader := false
	v, err, shared := g.flight.Do(key, func() (any, error) {
		leader = true
		wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), g.writeTimeout)
		defer cancel()
		return g.record(wctx, h, user, today)
	})
	if err != nil {
		return Outcome{}, err
	}
	out := v.(Outcome)
	if shared {
		out.Habit = out.Habit.Clone()
		if !leader && out.Status == StatusRecorded {
			g.logger.Debug("completion shared with in-flight call",
				zap.String("habit_id", string(h.ID)),
				zap.String("user", string(user)))
			out.Status = StatusAlreadyCompletedToday
			out.Entry = CompletionEntry{}
		}
	}
	return out, nil
}

func (g *Gate) record(ctx context.Context, h Habit, user UserID, today Day) (Outcome, error) {
	entry := CompletionEntry{User: user, Date: today}

	ledger, err := g.store.AppendCompletion(ctx, h.ID, entry)
	if errors.Is(err, ErrDuplicateCompletion) {
		fresh, lerr := g.store.LoadHabit(ctx, h.ID)
		if lerr != nil {
			return Outcome{}, &PersistenceError{HabitID: h.ID, User: user, Day: today, Err: lerr}
		}
		g.logger.Info("completion already recorded by another client",
			zap.String("habit_id", string(h.ID)),
			zap.String("user", string(user)),
			zap.Stringer("day", today))
		return g.alreadyCompleted(fresh, user, today), nil
	}
	if err != nil {
		g.logger.Warn("completion write failed",
			zap.String("habit_id", string(h.ID)),
			zap.String("user", string(user)),
			zap.Error(err))
		return Outcome{}, &PersistenceError{HabitID: h.ID, User: user, Day: today, Err: err}
	}

	if h.IsPersonal() {
		ledger = ledger.Attribute(h.Owner)
	}
	updated := h.Clone()
	updated.History = ledger

	g.logger.Debug("completion recorded",
		zap.String("habit_id", string(h.ID)),
		zap.String("user", string(user)),
		zap.Stringer("day", today),
		zap.Int("ledger_len", ledger.Len()))

	return Outcome{
		Status: StatusRecorded,
		Habit:  updated,
		State:  g.rule.State(ledger, user, today),
		Entry:  entry,
	}, nil
}

func (g *Gate) alreadyCompleted(h Habit, user UserID, today Day) Outcome {
	return Outcome{
		Status: StatusAlreadyCompletedToday,
		Habit:  h,
		State:  g.rule.State(h.History, user, today),
	}
}
