/*
errors.go - Centralized error types for the completion engine

ERROR CATEGORIES:
  1. Load errors - the habit could not be fetched (LoadError)
  2. Persistence errors - a completion could not be written (PersistenceError)
  3. Client errors - invalid input or a rule violation
  4. Store errors - sentinels returned by Store implementations

NOT AN ERROR:
  Completing a habit twice on the same day is reported through
  Outcome.Status (StatusAlreadyCompletedToday), never as an error.

USAGE:
  if errors.Is(err, habit.ErrPersistenceFailure) {
      // nothing changed locally, the call may be retried
  }
*/
package habit

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrHabitNotFound is returned by stores when the habit id is unknown.
	ErrHabitNotFound = errors.New("habit not found")

	// ErrUserNotFound is returned by stores when the user is unknown.
	ErrUserNotFound = errors.New("user not found")

	// ErrDuplicateHabit is returned when a habit id is already taken.
	// Ledgers are only ever replaced through DeleteHabit.
	ErrDuplicateHabit = errors.New("habit already exists")

	// ErrDuplicateUser is returned when a user record already exists.
	ErrDuplicateUser = errors.New("user already exists")

	// ErrDuplicateCompletion is returned by stores when (habit, user, day)
	// already has an entry. The Gate turns it into an already-completed outcome.
	ErrDuplicateCompletion = errors.New("completion already recorded for this day")

	// ErrPersistenceFailure marks every failed completion write.
	ErrPersistenceFailure = errors.New("persistence failure")

	// ErrLoadFailure marks every failed habit fetch.
	ErrLoadFailure = errors.New("load failure")

	// ErrNotOwner is returned when someone other than the owner completes a
	// personal habit.
	ErrNotOwner = errors.New("personal habit can only be completed by its owner")

	// ErrMissingUser is returned when a completion has no user.
	ErrMissingUser = errors.New("user identifier required")

	ErrInvalidDay = errors.New("invalid day")

	// ErrUnsupported is returned by stores that only cover part of an interface.
	ErrUnsupported = errors.New("operation not supported by this store")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// PersistenceError reports a completion that was not recorded.
// The caller's Habit is unchanged when this is returned.
type PersistenceError struct {
	HabitID HabitID
	User    UserID
	Day     Day
	Err     error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("record completion of %s by %s on %s: %v", e.HabitID, e.User, e.Day, e.Err)
}

func (e *PersistenceError) Unwrap() []error {
	return []error{ErrPersistenceFailure, e.Err}
}

// LoadError reports a habit that could not be fetched. Streaks and rollups
// are unknown, not zero, when this is returned.
type LoadError struct {
	HabitID HabitID
	Err     error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load habit %s: %v", e.HabitID, e.Err)
}

func (e *LoadError) Unwrap() []error {
	return []error{ErrLoadFailure, e.Err}
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

func IsNotFound(err error) bool {
	return errors.Is(err, ErrHabitNotFound) || errors.Is(err, ErrUserNotFound)
}

// IsClientError returns true if the error is due to invalid caller input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrNotOwner) ||
		errors.Is(err, ErrMissingUser) ||
		errors.Is(err, ErrInvalidDay) ||
		errors.Is(err, ErrDuplicateUser)
}

// IsRetryable returns true if re-invoking the operation may succeed.
func IsRetryable(err error) bool {
	if IsNotFound(err) || IsClientError(err) {
		return false
	}
	return errors.Is(err, ErrPersistenceFailure) || errors.Is(err, ErrLoadFailure)
}
