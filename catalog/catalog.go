// Package catalog implements browsing over public habits: category and
// name filtering, "load more" pagination, and the featured shelf.
package catalog

import (
	"cmp"
	"slices"
	"strings"

	"github.com/habituo/habit-engine/habit"
)

const (
	// PageSize is the number of habits each "load more" step reveals.
	PageSize = 6

	// FeaturedLimit caps the featured shelf.
	FeaturedLimit = 6

	// AllCategories disables the category filter.
	AllCategories = "All"
)

// Categories offered by the browse UI. Other values are accepted but never
// suggested.
var Categories = []string{"Morning", "Work", "Fitness", "Evening", "Study"}

// Filter narrows a catalog. Zero value matches everything.
type Filter struct {
	Category string // "" or "All" matches every category
	Search   string // case-insensitive substring of the habit name
}

func (f Filter) Match(h habit.Habit) bool {
	if f.Category != "" && f.Category != AllCategories && !strings.EqualFold(h.Category, f.Category) {
		return false
	}
	if f.Search == "" {
		return true
	}
	return strings.Contains(strings.ToLower(h.Name), strings.ToLower(f.Search))
}

// Apply returns the habits that match f, in input order.
func (f Filter) Apply(habits []habit.Habit) []habit.Habit {
	out := make([]habit.Habit, 0, len(habits))
	for _, h := range habits {
		if f.Match(h) {
			out = append(out, h)
		}
	}
	return out
}

// Page is one "load more" window. It always starts at the first match.
type Page struct {
	Habits  []habit.Habit
	Total   int // matches before paging
	HasMore bool
}

// Browse filters habits and reveals the first page*PageSize matches.
// Pages below 1 are treated as 1.
func Browse(habits []habit.Habit, f Filter, page int) Page {
	if page < 1 {
		page = 1
	}
	matched := f.Apply(habits)
	n := len(matched)
	if page <= n/PageSize {
		n = page * PageSize
	}
	return Page{
		Habits:  matched[:n],
		Total:   len(matched),
		HasMore: n < len(matched),
	}
}

// Featured returns at most FeaturedLimit featured habits, newest first.
func Featured(habits []habit.Habit) []habit.Habit {
	var out []habit.Habit
	for _, h := range habits {
		if h.Featured {
			out = append(out, h)
		}
	}
	slices.SortStableFunc(out, func(a, b habit.Habit) int {
		return cmp.Compare(b.CreatedAt.UnixNano(), a.CreatedAt.UnixNano())
	})
	if len(out) > FeaturedLimit {
		out = out[:FeaturedLimit]
	}
	return out
}
