package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/habituo/habit-engine/api"
	"github.com/habituo/habit-engine/habit"
)

type StatusCmd struct {
	HabitID string `arg:"" help:"Habit id."`
	User    string `help:"User email." required:"" env:"HABITUO_USER"`
}

func (c *StatusCmd) Run(app *App) error {
	s, closeStore, err := app.OpenStore()
	if err != nil {
		return err
	}
	defer closeStore()
	tracker, err := app.Tracker(s)
	if err != nil {
		return err
	}

	view, err := tracker.Load(context.Background(), habit.HabitID(c.HabitID), userID(c.User))
	if err != nil {
		return err
	}
	printView(app, view, tracker.Today())
	return nil
}

type CompleteCmd struct {
	HabitID string `arg:"" help:"Habit id."`
	User    string `help:"User email." required:"" env:"HABITUO_USER"`
}

func (c *CompleteCmd) Run(app *App) error {
	s, closeStore, err := app.OpenStore()
	if err != nil {
		return err
	}
	defer closeStore()
	tracker, err := app.Tracker(s)
	if err != nil {
		return err
	}

	user := userID(c.User)
	out, err := tracker.MarkComplete(context.Background(), habit.HabitID(c.HabitID), user)
	if err != nil {
		return err
	}
	switch out.Status {
	case habit.StatusRecorded:
		fmt.Fprintf(app.Out, "Marked complete for %s\n", out.Entry.Date)
	case habit.StatusAlreadyCompletedToday:
		fmt.Fprintln(app.Out, "Already completed today")
	}
	printView(app, habit.View{Habit: out.Habit, State: out.State, Rollup: habit.RollupFor(out.Habit, user)}, tracker.Today())
	return nil
}

type AnalyticsCmd struct{}

func (c *AnalyticsCmd) Run(app *App) error {
	s, closeStore, err := app.OpenStore()
	if err != nil {
		return err
	}
	defer closeStore()

	a, err := habit.AnalyticsFrom(context.Background(), s)
	if err != nil {
		return err
	}
	fmt.Fprintf(app.Out, "Users:             %d\n", a.TotalUsers)
	fmt.Fprintf(app.Out, "Public habits:     %d\n", a.PublicHabits)
	fmt.Fprintf(app.Out, "Personal habits:   %d\n", a.PersonalHabits)
	fmt.Fprintf(app.Out, "Total completions: %d\n", a.TotalCompletions)
	return nil
}

type SeedCmd struct {
	Scenario string `arg:"" optional:"" help:"Scenario id." default:"community"`
	List     bool   `help:"List scenarios instead of loading one."`
}

func (c *SeedCmd) Run(app *App) error {
	if c.List {
		for _, sc := range api.Scenarios() {
			fmt.Fprintf(app.Out, "%-14s %s\n", sc.ID, sc.Description)
		}
		return nil
	}

	s, closeStore, err := app.OpenStore()
	if err != nil {
		return err
	}
	defer closeStore()
	seed, ok := s.(api.SeedStore)
	if !ok {
		return fmt.Errorf("store backend %s cannot load scenarios", app.Config.StoreBackend)
	}
	tracker, err := app.Tracker(s)
	if err != nil {
		return err
	}
	if err := api.LoadScenario(context.Background(), seed, c.Scenario, tracker.Today()); err != nil {
		return err
	}
	fmt.Fprintf(app.Out, "Loaded scenario %s\n", c.Scenario)
	return nil
}

func userID(email string) habit.UserID {
	return habit.UserID(strings.ToLower(strings.TrimSpace(email)))
}

func printView(app *App, v habit.View, today habit.Day) {
	h := v.Habit
	fmt.Fprintf(app.Out, "%s (%s)\n", h.Name, h.ID)
	fmt.Fprintf(app.Out, "  Today:          %s (completed: %t)\n", today, v.State.TodayCompleted)
	fmt.Fprintf(app.Out, "  Current streak: %d day(s), %s tier\n", v.State.CurrentStreak, v.State.Tier)
	fmt.Fprintf(app.Out, "  Completions:    %d total, %d yours\n", v.Rollup.Total, v.Rollup.UserTotal)
	fmt.Fprintf(app.Out, "  Monthly:        %d%%\n", v.Rollup.MonthlyProgressPercent)
}
