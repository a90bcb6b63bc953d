package habit

import (
	"fmt"
	"strings"
	"time"
)

// =============================================================================
// DAY - Calendar date with no time-of-day (the ledger key)
// =============================================================================

// DayLayout is the wire and storage form of a Day.
const DayLayout = "2006-01-02"

// Day is a calendar date. The zero value is "no day".
// Internally it is midnight UTC so that day arithmetic never sees DST.
type Day struct {
	t time.Time
}

// NewDay builds a Day from its parts. Out-of-range parts normalize the way
// time.Date does (Feb 30 -> Mar 2).
func NewDay(year int, month time.Month, day int) Day {
	return Day{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DayOf returns the calendar date of t as seen in loc.
// A nil loc means UTC, which is what the upstream app used.
func DayOf(t time.Time, loc *time.Location) Day {
	if loc == nil {
		loc = time.UTC
	}
	local := t.In(loc)
	return NewDay(local.Year(), local.Month(), local.Day())
}

// ParseDay parses "YYYY-MM-DD". A full ISO timestamp is accepted and its
// date part kept, because older records carried toISOString() values.
func ParseDay(s string) (Day, error) {
	s = strings.TrimSpace(s)
	if len(s) > len(DayLayout) && s[len(DayLayout)] == 'T' {
		s = s[:len(DayLayout)]
	}
	t, err := time.Parse(DayLayout, s)
	if err != nil {
		return Day{}, fmt.Errorf("%w: %q", ErrInvalidDay, s)
	}
	return Day{t: t}, nil
}

// MustParseDay is ParseDay for literals in tests and seeds.
func MustParseDay(s string) Day {
	d, err := ParseDay(s)
	if err != nil {
		panic(err)
	}
	return d
}

// Comparison
func (d Day) Before(other Day) bool  { return d.t.Before(other.t) }
func (d Day) After(other Day) bool   { return d.t.After(other.t) }
func (d Day) Equal(other Day) bool   { return d.t.Equal(other.t) }
func (d Day) Compare(other Day) int  { return d.t.Compare(other.t) }
func (d Day) IsZero() bool           { return d.t.IsZero() }
func (d Day) AddDays(n int) Day      { return Day{t: d.t.AddDate(0, 0, n)} }
func (d Day) Time() time.Time        { return d.t }
func (d Day) Year() int              { return d.t.Year() }
func (d Day) Month() time.Month      { return d.t.Month() }

func (d Day) String() string {
	if d.IsZero() {
		return ""
	}
	return d.t.Format(DayLayout)
}

func (d Day) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Day) UnmarshalText(b []byte) error {
	if len(b) == 0 {
		*d = Day{}
		return nil
	}
	parsed, err := ParseDay(string(b))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// DaysBetween returns to - from in whole days. Negative when to is earlier.
func DaysBetween(from, to Day) int {
	return int(to.t.Sub(from.t) / (24 * time.Hour))
}

// =============================================================================
// CLOCK - Injected "now" so callers decide what today is
// =============================================================================

type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// FixedClock always reports the same instant.
type FixedClock time.Time

func (c FixedClock) Now() time.Time { return time.Time(c) }
