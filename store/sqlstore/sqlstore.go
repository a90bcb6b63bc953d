/*
Package sqlstore provides a SQL-backed implementation of the habit storage
interfaces.

PURPOSE:
  Implements habit.HabitStore, habit.UserStore and habit.ActivityLog on
  SQLite (github.com/mattn/go-sqlite3) or PostgreSQL (github.com/lib/pq).
  The schema and queries are shared; only placeholders and constraint error
  codes differ between dialects.

KEY TABLES:
  habits:        habit records (display attributes, owner, visibility)
  completions:   the ledger, PRIMARY KEY (habit_id, user_id, day)
  users:         minimal profile records
  activity_log:  append-only ledger transitions

APPEND-ONLY ENFORCEMENT:
  - No UPDATE statements on completions
  - No per-row DELETE on completions; rows go only with their habit
  - The primary key rejects a second (habit, user, day) entry, which the
    store reports as habit.ErrDuplicateCompletion

ATOMICITY:
  AppendCompletion inserts the entry, its activity row, and reads back the
  ledger in one transaction. Callers see one write per completion.

USAGE:
  store, err := sqlstore.Open(sqlstore.SQLite, "./habits.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

MIGRATION:
  Schema is auto-migrated on Open with CREATE ... IF NOT EXISTS.
*/
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"

	"github.com/habituo/habit-engine/habit"
)

type Dialect string

const (
	SQLite   Dialect = "sqlite3"
	Postgres Dialect = "postgres"
)

func ParseDialect(s string) (Dialect, error) {
	switch strings.ToLower(s) {
	case "sqlite", "sqlite3":
		return SQLite, nil
	case "postgres", "postgresql", "pg":
		return Postgres, nil
	}
	return "", fmt.Errorf("unknown SQL dialect %q", s)
}

// timeLayout is fixed-width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Store implements the habit storage interfaces on database/sql.
type Store struct {
	db      *sql.DB
	dialect Dialect
	now     func() time.Time
}

// queryer is satisfied by *sql.DB and *sql.Tx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Open connects and migrates. For SQLite, dsn is a file path or ":memory:".
func Open(dialect Dialect, dsn string) (*Store, error) {
	var (
		db  *sql.DB
		err error
	)
	switch dialect {
	case SQLite:
		sep := "?"
		if strings.Contains(dsn, "?") {
			sep = "&"
		}
		db, err = sql.Open(string(SQLite), dsn+sep+"_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000")
		if err == nil {
			// One connection: SQLite has a single writer and ":memory:" is
			// per-connection.
			db.SetMaxOpenConns(1)
		}
	case Postgres:
		db, err = sql.Open(string(Postgres), dsn)
	default:
		return nil, fmt.Errorf("unsupported dialect %q", dialect)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &Store{db: db, dialect: dialect, now: func() time.Time { return time.Now().UTC() }}
	if err := s.migrate(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) Dialect() Dialect { return s.dialect }

// Ping checks the connection.
func (s *Store) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

func (s *Store) migrate(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		email TEXT PRIMARY KEY,
		name TEXT NOT NULL DEFAULT '',
		photo_url TEXT NOT NULL DEFAULT '',
		role TEXT NOT NULL DEFAULT 'user',
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS habits (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		short_description TEXT NOT NULL DEFAULT '',
		full_description TEXT NOT NULL DEFAULT '',
		category TEXT NOT NULL DEFAULT '',
		reminder_time TEXT NOT NULL DEFAULT '',
		image_url TEXT NOT NULL DEFAULT '',
		creator_name TEXT NOT NULL DEFAULT '',
		owner TEXT NOT NULL DEFAULT '',
		visibility TEXT NOT NULL,
		featured BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_habits_visibility ON habits(visibility);
	CREATE INDEX IF NOT EXISTS idx_habits_owner ON habits(owner);

	-- The ledger. One row per (habit, user, day), enforced by the key.
	CREATE TABLE IF NOT EXISTS completions (
		habit_id TEXT NOT NULL REFERENCES habits(id) ON DELETE CASCADE,
		user_id TEXT NOT NULL,
		day TEXT NOT NULL,
		created_at TEXT NOT NULL,
		PRIMARY KEY (habit_id, user_id, day)
	);

	CREATE INDEX IF NOT EXISTS idx_completions_user_day ON completions(user_id, day);

	CREATE TABLE IF NOT EXISTS activity_log (
		id TEXT PRIMARY KEY,
		at TEXT NOT NULL,
		actor TEXT NOT NULL DEFAULT '',
		action TEXT NOT NULL,
		habit_id TEXT NOT NULL DEFAULT '',
		detail TEXT NOT NULL DEFAULT ''
	);

	CREATE INDEX IF NOT EXISTS idx_activity_at ON activity_log(at);
	CREATE INDEX IF NOT EXISTS idx_activity_habit ON activity_log(habit_id);
	`
	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// =============================================================================
// LEDGER (habit.Store interface)
// =============================================================================

func (s *Store) LoadHabit(ctx context.Context, id habit.HabitID) (habit.Habit, error) {
	rows, err := s.db.QueryContext(ctx, s.q(selectHabits+` WHERE id = ?`), id)
	if err != nil {
		return habit.Habit{}, fmt.Errorf("failed to query habit: %w", err)
	}
	habits, err := scanHabits(rows)
	if err != nil {
		return habit.Habit{}, err
	}
	if len(habits) == 0 {
		return habit.Habit{}, habit.ErrHabitNotFound
	}

	h := habits[0]
	ledger, err := s.loadLedger(ctx, s.db, id)
	if err != nil {
		return habit.Habit{}, err
	}
	h.History = ledger
	if h.IsPersonal() {
		h.History = h.History.Attribute(h.Owner)
	}
	return h, nil
}

// AppendCompletion records one entry and returns the ledger after the write.
func (s *Store) AppendCompletion(ctx context.Context, id habit.HabitID, entry habit.CompletionEntry) (habit.Ledger, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return habit.Ledger{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var owner, visibility string
	err = tx.QueryRowContext(ctx, s.q(`SELECT owner, visibility FROM habits WHERE id = ?`), id).Scan(&owner, &visibility)
	if errors.Is(err, sql.ErrNoRows) {
		return habit.Ledger{}, habit.ErrHabitNotFound
	}
	if err != nil {
		return habit.Ledger{}, fmt.Errorf("failed to read habit: %w", err)
	}
	if entry.User == "" && habit.Visibility(visibility) == habit.VisibilityPersonal {
		entry.User = habit.UserID(owner)
	}

	now := s.now()
	_, err = tx.ExecContext(ctx,
		s.q(`INSERT INTO completions (habit_id, user_id, day, created_at) VALUES (?, ?, ?, ?)`),
		id, entry.User, entry.Date.String(), now.Format(timeLayout))
	if err != nil {
		if isUniqueViolation(err) {
			return habit.Ledger{}, habit.ErrDuplicateCompletion
		}
		return habit.Ledger{}, fmt.Errorf("failed to append completion: %w", err)
	}

	act := habit.NewActivity(habit.ActivityCompletionRecorded, entry.User, id, entry.Date.String())
	if err := s.appendActivity(ctx, tx, act); err != nil {
		return habit.Ledger{}, err
	}

	ledger, err := s.loadLedger(ctx, tx, id)
	if err != nil {
		return habit.Ledger{}, err
	}
	if err := tx.Commit(); err != nil {
		return habit.Ledger{}, fmt.Errorf("failed to commit completion: %w", err)
	}
	if habit.Visibility(visibility) == habit.VisibilityPersonal {
		ledger = ledger.Attribute(habit.UserID(owner))
	}
	return ledger, nil
}

func (s *Store) loadLedger(ctx context.Context, db queryer, id habit.HabitID) (habit.Ledger, error) {
	rows, err := db.QueryContext(ctx,
		s.q(`SELECT user_id, day FROM completions WHERE habit_id = ? ORDER BY day ASC, created_at ASC`), id)
	if err != nil {
		return habit.Ledger{}, fmt.Errorf("failed to query completions: %w", err)
	}
	defer rows.Close()

	var ledger habit.Ledger
	for rows.Next() {
		var user, day string
		if err := rows.Scan(&user, &day); err != nil {
			return habit.Ledger{}, err
		}
		d, err := habit.ParseDay(day)
		if err != nil {
			return habit.Ledger{}, err
		}
		ledger.Append(habit.CompletionEntry{User: habit.UserID(user), Date: d})
	}
	return ledger, rows.Err()
}

// =============================================================================
// HABITS (habit.HabitStore interface)
// =============================================================================

const selectHabits = `
	SELECT id, name, short_description, full_description, category, reminder_time,
	       image_url, creator_name, owner, visibility, featured, created_at
	FROM habits`

// CreateHabit inserts h. Entries already on h (seeds, imports) are kept.
func (s *Store) CreateHabit(ctx context.Context, h habit.Habit) error {
	if h.ID == "" {
		h.ID = habit.NewHabitID()
	}
	if h.CreatedAt.IsZero() {
		h.CreatedAt = s.now()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, s.q(`
		INSERT INTO habits
		(id, name, short_description, full_description, category, reminder_time,
		 image_url, creator_name, owner, visibility, featured, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		h.ID, h.Name, h.ShortDescription, h.FullDescription, h.Category, h.ReminderTime,
		h.ImageURL, h.CreatorName, h.Owner, h.Visibility, h.Featured, h.CreatedAt.UTC().Format(timeLayout))
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("insert habit %s: %w", h.ID, habit.ErrDuplicateHabit)
		}
		return fmt.Errorf("failed to insert habit: %w", err)
	}

	history := h.History
	if h.IsPersonal() {
		history = history.Attribute(h.Owner)
	}
	for e := range history.All() {
		_, err := tx.ExecContext(ctx,
			s.q(`INSERT INTO completions (habit_id, user_id, day, created_at) VALUES (?, ?, ?, ?)`),
			h.ID, e.User, e.Date.String(), h.CreatedAt.UTC().Format(timeLayout))
		if err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("seed ledger of %s: %w", h.ID, habit.ErrDuplicateCompletion)
			}
			return fmt.Errorf("failed to seed completion: %w", err)
		}
	}

	if err := s.appendActivity(ctx, tx, habit.NewActivity(habit.ActivityHabitCreated, h.Owner, h.ID, h.Name)); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *Store) ListHabits(ctx context.Context, q habit.HabitQuery) ([]habit.Habit, error) {
	var (
		where []string
		args  []any
	)
	if q.Visibility != "" {
		where = append(where, "visibility = ?")
		args = append(args, q.Visibility)
	}
	if q.Owner != "" {
		where = append(where, "owner = ?")
		args = append(args, q.Owner)
	}
	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	rows, err := s.db.QueryContext(ctx, s.q(selectHabits+clause+` ORDER BY created_at DESC, id ASC`), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list habits: %w", err)
	}
	habits, err := scanHabits(rows)
	if err != nil {
		return nil, err
	}
	if len(habits) == 0 {
		return habits, nil
	}

	// One pass over the ledgers of every listed habit.
	index := make(map[habit.HabitID]int, len(habits))
	for i, h := range habits {
		index[h.ID] = i
	}
	crows, err := s.db.QueryContext(ctx, s.q(`
		SELECT c.habit_id, c.user_id, c.day
		FROM completions c JOIN habits h ON h.id = c.habit_id`+
		strings.ReplaceAll(clause, "visibility", "h.visibility")+
		` ORDER BY c.day ASC, c.created_at ASC`), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list completions: %w", err)
	}
	defer crows.Close()
	for crows.Next() {
		var id, user, day string
		if err := crows.Scan(&id, &user, &day); err != nil {
			return nil, err
		}
		i, ok := index[habit.HabitID(id)]
		if !ok {
			continue
		}
		d, err := habit.ParseDay(day)
		if err != nil {
			return nil, err
		}
		habits[i].History.Append(habit.CompletionEntry{User: habit.UserID(user), Date: d})
	}
	if err := crows.Err(); err != nil {
		return nil, err
	}
	for i := range habits {
		if habits[i].IsPersonal() {
			habits[i].History = habits[i].History.Attribute(habits[i].Owner)
		}
	}
	return habits, nil
}

// DeleteHabit removes a habit and its whole ledger.
func (s *Store) DeleteHabit(ctx context.Context, id habit.HabitID, actor habit.UserID) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var name string
	err = tx.QueryRowContext(ctx, s.q(`SELECT name FROM habits WHERE id = ?`), id).Scan(&name)
	if errors.Is(err, sql.ErrNoRows) {
		return habit.ErrHabitNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to read habit: %w", err)
	}
	if _, err := tx.ExecContext(ctx, s.q(`DELETE FROM completions WHERE habit_id = ?`), id); err != nil {
		return fmt.Errorf("failed to delete ledger: %w", err)
	}
	if _, err := tx.ExecContext(ctx, s.q(`DELETE FROM habits WHERE id = ?`), id); err != nil {
		return fmt.Errorf("failed to delete habit: %w", err)
	}
	if err := s.appendActivity(ctx, tx, habit.NewActivity(habit.ActivityHabitDeleted, actor, id, name)); err != nil {
		return err
	}
	return tx.Commit()
}

func scanHabits(rows *sql.Rows) ([]habit.Habit, error) {
	defer rows.Close()

	var habits []habit.Habit
	for rows.Next() {
		var (
			h          habit.Habit
			owner      string
			visibility string
			createdAt  string
		)
		if err := rows.Scan(&h.ID, &h.Name, &h.ShortDescription, &h.FullDescription, &h.Category,
			&h.ReminderTime, &h.ImageURL, &h.CreatorName, &owner, &visibility, &h.Featured, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan habit: %w", err)
		}
		h.Owner = habit.UserID(owner)
		h.Visibility = habit.Visibility(visibility)
		t, err := time.Parse(timeLayout, createdAt)
		if err != nil {
			return nil, fmt.Errorf("failed to parse created_at of habit %s: %w", h.ID, err)
		}
		h.CreatedAt = t
		habits = append(habits, h)
	}
	return habits, rows.Err()
}

// =============================================================================
// USERS (habit.UserStore interface)
// =============================================================================

func (s *Store) CreateUser(ctx context.Context, u habit.User) error {
	if u.Role == "" {
		u.Role = habit.RoleUser
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = s.now()
	}
	_, err := s.db.ExecContext(ctx,
		s.q(`INSERT INTO users (email, name, photo_url, role, created_at) VALUES (?, ?, ?, ?, ?)`),
		strings.ToLower(string(u.Email)), u.Name, u.PhotoURL, u.Role, u.CreatedAt.UTC().Format(timeLayout))
	if err != nil {
		if isUniqueViolation(err) {
			return habit.ErrDuplicateUser
		}
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

func (s *Store) GetUser(ctx context.Context, email habit.UserID) (habit.User, error) {
	var (
		u         habit.User
		mail      string
		role      string
		createdAt string
	)
	err := s.db.QueryRowContext(ctx,
		s.q(`SELECT email, name, photo_url, role, created_at FROM users WHERE email = ?`),
		strings.ToLower(string(email))).Scan(&mail, &u.Name, &u.PhotoURL, &role, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return habit.User{}, habit.ErrUserNotFound
	}
	if err != nil {
		return habit.User{}, fmt.Errorf("failed to get user: %w", err)
	}
	u.Email = habit.UserID(mail)
	u.Role = habit.Role(role)
	u.CreatedAt, err = time.Parse(timeLayout, createdAt)
	if err != nil {
		return habit.User{}, fmt.Errorf("failed to parse created_at of user %s: %w", mail, err)
	}
	return u, nil
}

func (s *Store) CountUsers(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n)
	return n, err
}

// =============================================================================
// ACTIVITY LOG (habit.ActivityLog interface)
// =============================================================================

func (s *Store) AppendActivity(ctx context.Context, entry habit.ActivityEntry) error {
	return s.appendActivity(ctx, s.db, entry)
}

func (s *Store) appendActivity(ctx context.Context, db queryer, e habit.ActivityEntry) error {
	_, err := db.ExecContext(ctx,
		s.q(`INSERT INTO activity_log (id, at, actor, action, habit_id, detail) VALUES (?, ?, ?, ?, ?, ?)`),
		e.ID, e.At.UTC().Format(timeLayout), e.Actor, e.Action, e.HabitID, e.Detail)
	if err != nil {
		return fmt.Errorf("failed to append activity: %w", err)
	}
	return nil
}

func (s *Store) QueryActivity(ctx context.Context, f habit.ActivityFilter) ([]habit.ActivityEntry, error) {
	var (
		where []string
		args  []any
	)
	if f.HabitID != "" {
		where = append(where, "habit_id = ?")
		args = append(args, f.HabitID)
	}
	if f.Actor != "" {
		where = append(where, "actor = ?")
		args = append(args, f.Actor)
	}
	if len(f.Actions) > 0 {
		marks := make([]string, len(f.Actions))
		for i, a := range f.Actions {
			marks[i] = "?"
			args = append(args, a)
		}
		where = append(where, "action IN ("+strings.Join(marks, ", ")+")")
	}
	query := `SELECT id, at, actor, action, habit_id, detail FROM activity_log`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += ` ORDER BY at DESC, id DESC`
	if f.Limit > 0 {
		query += " LIMIT " + strconv.Itoa(f.Limit)
	}

	rows, err := s.db.QueryContext(ctx, s.q(query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query activity: %w", err)
	}
	defer rows.Close()

	var out []habit.ActivityEntry
	for rows.Next() {
		var (
			e                      habit.ActivityEntry
			at, actor, action, hid string
		)
		if err := rows.Scan(&e.ID, &at, &actor, &action, &hid, &e.Detail); err != nil {
			return nil, err
		}
		t, err := time.Parse(timeLayout, at)
		if err != nil {
			return nil, fmt.Errorf("failed to parse activity %s timestamp: %w", e.ID, err)
		}
		e.At = t
		e.Actor = habit.UserID(actor)
		e.Action = habit.ActivityAction(action)
		e.HabitID = habit.HabitID(hid)
		out = append(out, e)
	}
	return out, rows.Err()
}

// =============================================================================
// ADMIN
// =============================================================================

// Reset clears all data. Used by demo scenarios.
func (s *Store) Reset(ctx context.Context) error {
	for _, table := range []string{"completions", "activity_log", "habits", "users"} {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("failed to reset %s: %w", table, err)
		}
	}
	return nil
}

// =============================================================================
// HELPERS
// =============================================================================

// q rewrites "?" placeholders for the dialect. Queries never contain a
// literal question mark.
func (s *Store) q(query string) string {
	if s.dialect != Postgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func isUniqueViolation(err error) bool {
	var se sqlite3.Error
	if errors.As(err, &se) {
		return se.ExtendedCode == sqlite3.ErrConstraintUnique ||
			se.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	var pe *pq.Error
	if errors.As(err, &pe) {
		return pe.Code == "23505" // unique_violation
	}
	return false
}
