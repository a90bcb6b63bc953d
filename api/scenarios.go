/*
scenarios.go - Demo scenario loaders for development and demonstrations

PURPOSE:

	Provides pre-built scenarios that populate the store with realistic
	data. Each scenario creates users and habits and seeds their ledgers
	relative to the day it is loaded, so streaks shown in the UI are live.

AVAILABLE SCENARIOS (scenarios.yaml):

	fresh-start:    Personal habits with empty ledgers
	streak-tiers:   One habit per streak tier (base, medium, high)
	broken-streak:  A gap yesterday resets the streak
	community:      Public habits completed by several users, featured picks

	A run that ends yesterday shows a streak of 0 until the user completes
	the habit today, then continues from the run.

HOW SCENARIOS WORK:
 1. Reset store (clear all data)
 2. Create users
 3. Create habits, with ledgers seeded from "streak" runs and "daysAgo" lists

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "community"}

ADDING NEW SCENARIOS:
 1. Add an entry to scenarios.yaml

NOTE:

	Scenarios reset the store. Only use in development/demo environments.

SEE ALSO:
  - handlers.go: Handler
  - cmd/habituo: serve --scenario
*/
package api

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/habituo/habit-engine/habit"
)

//go:embed scenarios.yaml
var scenariosYAML []byte

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

type scenario struct {
	ID          string          `yaml:"id"`
	Name        string          `yaml:"name"`
	Description string          `yaml:"description"`
	Users       []scenarioUser  `yaml:"users"`
	Habits      []scenarioHabit `yaml:"habits"`
}

type scenarioUser struct {
	Email string `yaml:"email"`
	Name  string `yaml:"name"`
	Role  string `yaml:"role"`
}

type scenarioHabit struct {
	ID               string              `yaml:"id"`
	Name             string              `yaml:"name"`
	ShortDescription string              `yaml:"shortDescription"`
	Category         string              `yaml:"category"`
	ReminderTime     string              `yaml:"reminderTime"`
	Owner            string              `yaml:"owner"`
	CreatorName      string              `yaml:"creatorName"`
	Visibility       string              `yaml:"visibility"`
	Featured         bool                `yaml:"featured"`
	CreatedDaysAgo   int                 `yaml:"createdDaysAgo"`
	Completions      []scenarioCompletes `yaml:"completions"`
}

// scenarioCompletes is either a consecutive run ("streak" days ending
// "endingDaysAgo") or an explicit "daysAgo" list.
type scenarioCompletes struct {
	User          string `yaml:"user"`
	Streak        int    `yaml:"streak"`
	EndingDaysAgo int    `yaml:"endingDaysAgo"`
	DaysAgo       []int  `yaml:"daysAgo"`
}

var (
	scenariosOnce sync.Once
	scenarioList  []scenario
	scenariosErr  error
)

func loadScenarioDefinitions() ([]scenario, error) {
	scenariosOnce.Do(func() {
		var file struct {
			Scenarios []scenario `yaml:"scenarios"`
		}
		if err := yaml.Unmarshal(scenariosYAML, &file); err != nil {
			scenariosErr = fmt.Errorf("parse scenarios: %w", err)
			return
		}
		scenarioList = file.Scenarios
	})
	return scenarioList, scenariosErr
}

// Scenarios lists the available demo scenarios.
func Scenarios() []ScenarioDTO {
	defs, _ := loadScenarioDefinitions()
	out := make([]ScenarioDTO, len(defs))
	for i, s := range defs {
		out[i] = ScenarioDTO{ID: s.ID, Name: s.Name, Description: s.Description}
	}
	return out
}

// Resetter is a store that can drop all of its data.
type Resetter interface {
	Reset(ctx context.Context) error
}

// SeedStore is what loading a scenario needs from a store.
type SeedStore interface {
	habit.HabitStore
	habit.UserStore
	Resetter
}

// LoadScenario resets store and seeds scenario id relative to today.
func LoadScenario(ctx context.Context, store SeedStore, id string, today habit.Day) error {
	defs, err := loadScenarioDefinitions()
	if err != nil {
		return err
	}
	var sc *scenario
	for i := range defs {
		if defs[i].ID == id {
			sc = &defs[i]
			break
		}
	}
	if sc == nil {
		return fmt.Errorf("unknown scenario %q", id)
	}

	if err := store.Reset(ctx); err != nil {
		return fmt.Errorf("failed to reset store: %w", err)
	}
	for _, u := range sc.Users {
		err := store.CreateUser(ctx, habit.User{
			Email: habit.UserID(u.Email),
			Name:  u.Name,
			Role:  habit.Role(u.Role),
		})
		if err != nil {
			return fmt.Errorf("create user %s: %w", u.Email, err)
		}
	}
	for _, sh := range sc.Habits {
		if err := store.CreateHabit(ctx, sh.toHabit(today)); err != nil {
			return fmt.Errorf("create habit %s: %w", sh.ID, err)
		}
	}
	return nil
}

func (sh scenarioHabit) toHabit(today habit.Day) habit.Habit {
	var ledger habit.Ledger
	for _, c := range sh.Completions {
		user := habit.UserID(c.User)
		for i := 0; i < c.Streak; i++ {
			ledger.Append(habit.CompletionEntry{User: user, Date: today.AddDays(-(c.EndingDaysAgo + c.Streak - 1 - i))})
		}
		for _, ago := range c.DaysAgo {
			ledger.Append(habit.CompletionEntry{User: user, Date: today.AddDays(-ago)})
		}
	}
	return habit.Habit{
		ID:               habit.HabitID(sh.ID),
		Name:             sh.Name,
		ShortDescription: sh.ShortDescription,
		Category:         sh.Category,
		ReminderTime:     sh.ReminderTime,
		CreatorName:      sh.CreatorName,
		Owner:            habit.UserID(sh.Owner),
		Visibility:       habit.Visibility(sh.Visibility),
		Featured:         sh.Featured,
		CreatedAt:        today.AddDays(-sh.CreatedDaysAgo).Time().Add(9 * time.Hour),
		History:          ledger,
	}
}

// =============================================================================
// HANDLERS
// =============================================================================

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	if _, err := loadScenarioDefinitions(); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to read scenarios", err)
		return
	}
	writeJSON(w, http.StatusOK, Scenarios())
}

// GetCurrentScenario returns the currently loaded scenario, if any.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	h.scenarioMu.Lock()
	current := h.currentScenario
	h.scenarioMu.Unlock()

	if current == "" {
		writeJSON(w, http.StatusOK, nil)
		return
	}
	for _, s := range Scenarios() {
		if s.ID == current {
			writeJSON(w, http.StatusOK, s)
			return
		}
	}
	writeJSON(w, http.StatusOK, ScenarioDTO{ID: current, Name: current})
}

// LoadScenario resets the store and loads a predefined scenario.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	store, ok := h.Store.(SeedStore)
	if !ok {
		h.writeDomainError(w, "Scenarios are not available", habit.ErrUnsupported)
		return
	}
	var req LoadScenarioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if err := h.validate.Validate(req); err != nil {
		h.writeDomainError(w, "Invalid request", err)
		return
	}
	known := false
	for _, s := range Scenarios() {
		known = known || s.ID == req.ScenarioID
	}
	if !known {
		writeError(w, http.StatusBadRequest, "Unknown scenario", nil)
		return
	}

	h.scenarioMu.Lock()
	defer h.scenarioMu.Unlock()

	h.currentScenario = ""
	if err := LoadScenario(r.Context(), store, req.ScenarioID, h.Tracker.Today()); err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to load scenario: %v", err), err)
		return
	}
	h.currentScenario = req.ScenarioID
	h.Analytics.Invalidate()

	writeJSON(w, http.StatusOK, map[string]string{"status": "loaded", "scenario": req.ScenarioID})
}

// ResetDatabase clears all data.
func (h *Handler) ResetDatabase(w http.ResponseWriter, r *http.Request) {
	store, ok := h.Store.(Resetter)
	if !ok {
		h.writeDomainError(w, "Reset is not available", habit.ErrUnsupported)
		return
	}

	h.scenarioMu.Lock()
	defer h.scenarioMu.Unlock()

	if err := store.Reset(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset database", err)
		return
	}
	h.currentScenario = ""
	h.Analytics.Invalidate()

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
