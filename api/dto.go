/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the habit model from the wire contract; dates are always "YYYY-MM-DD".

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Complex response wrappers

TYPES:
  Habit:
    HabitDTO, CompletionEntryDTO, StreakDTO, RollupDTO, HabitViewDTO,
    CreateHabitRequest, CatalogPageDTO

  Completion:
    CompleteResponse

  Users and admin:
    UserDTO, CreateUserRequest, AnalyticsDTO, ActivityDTO

  Scenarios:
    ScenarioDTO, LoadScenarioRequest

VALIDATION:
  Request types carry validator/v10 tags, checked in handlers before any
  store call.

SEE ALSO:
  - handlers.go: Uses these types
  - validate.go: Tag validation
*/
package api

import (
	"time"

	"github.com/habituo/habit-engine/catalog"
	"github.com/habituo/habit-engine/habit"
)

// =============================================================================
// HABITS
// =============================================================================

type CompletionEntryDTO struct {
	UserEmail string `json:"userEmail,omitempty"`
	Date      string `json:"date"`
}

// HabitDTO represents a habit with its full ledger.
type HabitDTO struct {
	ID                string               `json:"id"`
	Name              string               `json:"habitName"`
	ShortDescription  string               `json:"shortDescription"`
	FullDescription   string               `json:"fullDescription"`
	Category          string               `json:"category"`
	ReminderTime      string               `json:"reminderTime"`
	ImageURL          string               `json:"imageURL"`
	CreatorName       string               `json:"creatorName"`
	UserEmail         string               `json:"userEmail"`
	Visibility        string               `json:"visibility"`
	Featured          bool                 `json:"isFeatured"`
	CreateDate        string               `json:"createDate"`
	CompletionHistory []CompletionEntryDTO `json:"completionHistory"`
}

// StreakDTO is the derived per-user streak state.
type StreakDTO struct {
	CurrentStreak  int    `json:"currentStreak"`
	TodayCompleted bool   `json:"todayCompleted"`
	Tier           string `json:"tier"`
}

type RollupDTO struct {
	TotalCompletions       int `json:"totalCompletions"`
	UserCompletions        int `json:"userCompletions"`
	MonthlyProgressPercent int `json:"monthlyProgressPercent"`
}

// HabitViewDTO is a habit plus everything derived for one viewer.
type HabitViewDTO struct {
	Habit  HabitDTO  `json:"habit"`
	Today  string    `json:"today"`
	Streak StreakDTO `json:"streak"`
	Rollup RollupDTO `json:"rollup"`
}

// CreateHabitRequest is the body of POST /api/habits.
type CreateHabitRequest struct {
	Name             string `json:"habitName" validate:"required,max=120"`
	ShortDescription string `json:"shortDescription" validate:"max=280"`
	FullDescription  string `json:"fullDescription" validate:"max=4000"`
	Category         string `json:"category" validate:"required,max=40"`
	ReminderTime     string `json:"reminderTime" validate:"omitempty,datetime=15:04"`
	ImageURL         string `json:"imageURL" validate:"omitempty,url"`
	CreatorName      string `json:"creatorName" validate:"max=120"`
	Visibility       string `json:"visibility" validate:"required,oneof=personal public"`
	Featured         bool   `json:"isFeatured"`
}

type CatalogPageDTO struct {
	Habits  []HabitDTO `json:"habits"`
	Page    int        `json:"page"`
	Total   int        `json:"total"`
	HasMore bool       `json:"hasMore"`
}

// =============================================================================
// COMPLETION
// =============================================================================

// CompleteResponse is returned by POST /api/habits/{id}/complete.
type CompleteResponse struct {
	Status string              `json:"status"` // "recorded" or "already_completed_today"
	Entry  *CompletionEntryDTO `json:"entry,omitempty"`
	View   HabitViewDTO        `json:"view"`
}

// =============================================================================
// USERS, ANALYTICS, ACTIVITY
// =============================================================================

type UserDTO struct {
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	PhotoURL  string    `json:"photoURL"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
}

type CreateUserRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Name     string `json:"name" validate:"max=120"`
	PhotoURL string `json:"photoURL" validate:"omitempty,url"`
	Role     string `json:"role" validate:"omitempty,oneof=user admin"`
}

type AnalyticsDTO struct {
	TotalUsers          int       `json:"totalUsers"`
	PublicHabits        int       `json:"publicHabits"`
	TotalPersonalHabits int       `json:"totalPersonalHabits"`
	TotalCompletions    int       `json:"totalCompletions"`
	RefreshedAt         time.Time `json:"refreshedAt"`
}

type ActivityDTO struct {
	ID      string    `json:"id"`
	At      time.Time `json:"at"`
	Actor   string    `json:"actor"`
	Action  string    `json:"action"`
	HabitID string    `json:"habitId,omitempty"`
	Detail  string    `json:"detail,omitempty"`
}

// =============================================================================
// SCENARIOS
// =============================================================================

type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id" validate:"required"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}

// =============================================================================
// CONVERSIONS
// =============================================================================

func toHabitDTO(h habit.Habit) HabitDTO {
	history := make([]CompletionEntryDTO, 0, h.History.Len())
	for e := range h.History.All() {
		history = append(history, CompletionEntryDTO{UserEmail: string(e.User), Date: e.Date.String()})
	}
	dto := HabitDTO{
		ID:                string(h.ID),
		Name:              h.Name,
		ShortDescription:  h.ShortDescription,
		FullDescription:   h.FullDescription,
		Category:          h.Category,
		ReminderTime:      h.ReminderTime,
		ImageURL:          h.ImageURL,
		CreatorName:       h.CreatorName,
		UserEmail:         string(h.Owner),
		Visibility:        string(h.Visibility),
		Featured:          h.Featured,
		CompletionHistory: history,
	}
	if !h.CreatedAt.IsZero() {
		dto.CreateDate = h.CreatedAt.UTC().Format(time.RFC3339)
	}
	return dto
}

func toHabitDTOs(habits []habit.Habit) []HabitDTO {
	out := make([]HabitDTO, len(habits))
	for i, h := range habits {
		out[i] = toHabitDTO(h)
	}
	return out
}

func toStreakDTO(s habit.StreakState) StreakDTO {
	return StreakDTO{CurrentStreak: s.CurrentStreak, TodayCompleted: s.TodayCompleted, Tier: string(s.Tier)}
}

func toViewDTO(v habit.View, today habit.Day) HabitViewDTO {
	return HabitViewDTO{
		Habit:  toHabitDTO(v.Habit),
		Today:  today.String(),
		Streak: toStreakDTO(v.State),
		Rollup: RollupDTO{
			TotalCompletions:       v.Rollup.Total,
			UserCompletions:        v.Rollup.UserTotal,
			MonthlyProgressPercent: v.Rollup.MonthlyProgressPercent,
		},
	}
}

func toCatalogPageDTO(p catalog.Page, page int) CatalogPageDTO {
	return CatalogPageDTO{Habits: toHabitDTOs(p.Habits), Page: page, Total: p.Total, HasMore: p.HasMore}
}

func (r CreateHabitRequest) toHabit(owner habit.UserID) habit.Habit {
	return habit.Habit{
		Name:             r.Name,
		ShortDescription: r.ShortDescription,
		FullDescription:  r.FullDescription,
		Category:         r.Category,
		ReminderTime:     r.ReminderTime,
		ImageURL:         r.ImageURL,
		CreatorName:      r.CreatorName,
		Owner:            owner,
		Visibility:       habit.Visibility(r.Visibility),
		Featured:         r.Featured,
	}
}

func toUserDTO(u habit.User) UserDTO {
	return UserDTO{Email: string(u.Email), Name: u.Name, PhotoURL: u.PhotoURL, Role: string(u.Role), CreatedAt: u.CreatedAt}
}

func toActivityDTO(e habit.ActivityEntry) ActivityDTO {
	return ActivityDTO{
		ID:      e.ID,
		At:      e.At,
		Actor:   string(e.Actor),
		Action:  string(e.Action),
		HabitID: string(e.HabitID),
		Detail:  e.Detail,
	}
}
