/*
handlers.go - HTTP API handlers for the habit engine

PURPOSE:
  Exposes the completion engine via REST API. Handles HTTP request/response,
  JSON serialization, and delegates to the habit package.

ENDPOINTS:
  Habits:
    GET    /api/habits                 Public catalog (?category=&search=&page=)
    GET    /api/habits/featured        Featured shelf
    POST   /api/habits                 Create habit (caller becomes owner)
    GET    /api/habits/{id}            Habit with streak and rollup for caller
    DELETE /api/habits/{id}            Delete habit and its ledger
    POST   /api/habits/{id}/complete   Mark complete for today

  Users:
    POST   /api/users                  Create user record
    GET    /api/users/{email}          Get user record
    GET    /api/users/{email}/habits   "My habits" with streaks

  Admin:
    GET    /api/analytics              Global counters (refreshed snapshot)
    GET    /api/admin/activity         Activity log (?habitId=&actor=&action=&limit=)

  Scenarios (only with RouterOptions.EnableScenarios):
    GET    /api/scenarios              List demo scenarios
    GET    /api/scenarios/current      Currently loaded scenario
    POST   /api/scenarios/load         Load a demo scenario
    POST   /api/scenarios/reset        Drop all data

IDENTITY:
  The caller is taken from the X-User-Email header (see middleware.go).
  Mutating endpoints require it.

CAPABILITIES:
  The handler works on any habit.Store. Endpoints that need more (listing,
  users, activity) check for the richer interface and answer 501 when the
  backend does not provide it.

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input
  - 401: Missing caller identity
  - 403: Not the owner / not an admin
  - 404: Habit or user not found
  - 409: Duplicate user
  - 429: Completion rate limit exceeded
  - 501: Backend lacks the capability
  - 502: Upstream load failure
  - 503: Completion could not be persisted
  - 500: Internal errors

SEE ALSO:
  - dto.go: Request/response data structures
  - scenarios.go: Demo scenario loaders
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/habituo/habit-engine/catalog"
	"github.com/habituo/habit-engine/habit"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store     habit.Store
	Tracker   *habit.Tracker
	Analytics *AnalyticsRefresher
	Logger    *zap.Logger

	validate *Validator

	// Track currently loaded scenario
	scenarioMu      sync.Mutex
	currentScenario string
}

// NewHandler creates a handler for store. The tracker decides today and the
// streak rule.
func NewHandler(store habit.Store, tracker *habit.Tracker, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		Store:     store,
		Tracker:   tracker,
		Analytics: NewAnalyticsRefresher(store, logger),
		Logger:    logger,
		validate:  NewValidator(),
	}
}

func (h *Handler) habitStore() (habit.HabitStore, error) {
	hs, ok := h.Store.(habit.HabitStore)
	if !ok {
		return nil, habit.ErrUnsupported
	}
	return hs, nil
}

func (h *Handler) userStore() (habit.UserStore, error) {
	us, ok := h.Store.(habit.UserStore)
	if !ok {
		return nil, habit.ErrUnsupported
	}
	return us, nil
}

func (h *Handler) isAdmin(ctx context.Context, user habit.UserID) bool {
	us, err := h.userStore()
	if err != nil {
		return false
	}
	u, err := us.GetUser(ctx, user)
	return err == nil && u.Role == habit.RoleAdmin
}

// =============================================================================
// HABIT HANDLERS
// =============================================================================

// ListPublicHabits returns one "load more" page of the public catalog.
func (h *Handler) ListPublicHabits(w http.ResponseWriter, r *http.Request) {
	hs, err := h.habitStore()
	if err != nil {
		h.writeDomainError(w, "Listing habits is not available", err)
		return
	}
	page := 1
	if raw := r.URL.Query().Get("page"); raw != "" {
		page, err = strconv.Atoi(raw)
		if err != nil || page < 1 {
			writeError(w, http.StatusBadRequest, "page must be a positive integer", nil)
			return
		}
	}

	habits, err := hs.ListHabits(r.Context(), habit.HabitQuery{Visibility: habit.VisibilityPublic})
	if err != nil {
		h.writeDomainError(w, "Failed to list habits", err)
		return
	}
	filter := catalog.Filter{
		Category: r.URL.Query().Get("category"),
		Search:   r.URL.Query().Get("search"),
	}
	writeJSON(w, http.StatusOK, toCatalogPageDTO(catalog.Browse(habits, filter, page), page))
}

// ListFeaturedHabits returns the newest featured public habits.
func (h *Handler) ListFeaturedHabits(w http.ResponseWriter, r *http.Request) {
	hs, err := h.habitStore()
	if err != nil {
		h.writeDomainError(w, "Listing habits is not available", err)
		return
	}
	habits, err := hs.ListHabits(r.Context(), habit.HabitQuery{Visibility: habit.VisibilityPublic})
	if err != nil {
		h.writeDomainError(w, "Failed to list habits", err)
		return
	}
	writeJSON(w, http.StatusOK, toHabitDTOs(catalog.Featured(habits)))
}

// CreateHabit adds a habit owned by the caller with an empty ledger.
func (h *Handler) CreateHabit(w http.ResponseWriter, r *http.Request) {
	hs, err := h.habitStore()
	if err != nil {
		h.writeDomainError(w, "Creating habits is not available", err)
		return
	}
	var req CreateHabitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if err := h.validate.Validate(req); err != nil {
		h.writeDomainError(w, "Invalid habit", err)
		return
	}

	caller := UserFrom(r.Context())
	hb := req.toHabit(caller)
	hb.ID = habit.NewHabitID()
	if err := hs.CreateHabit(r.Context(), hb); err != nil {
		h.writeDomainError(w, "Failed to create habit", err)
		return
	}
	created, err := hs.LoadHabit(r.Context(), hb.ID)
	if err != nil {
		h.writeDomainError(w, "Failed to load created habit", err)
		return
	}

	h.Logger.Info("habit created",
		zap.String("habit_id", string(hb.ID)),
		zap.String("owner", string(caller)),
		zap.String("visibility", string(hb.Visibility)))
	writeJSON(w, http.StatusCreated, toHabitDTO(created))
}

// GetHabit returns the habit with the caller's streak and the rollups.
func (h *Handler) GetHabit(w http.ResponseWriter, r *http.Request) {
	id := habit.HabitID(chi.URLParam(r, "id"))
	caller := UserFrom(r.Context())

	view, err := h.Tracker.Load(r.Context(), id, caller)
	if err != nil {
		h.writeDomainError(w, "Failed to load habit", err)
		return
	}
	if view.Habit.IsPersonal() && view.Habit.Owner != caller && !h.isAdmin(r.Context(), caller) {
		h.writeDomainError(w, "Personal habit", habit.ErrNotOwner)
		return
	}
	writeJSON(w, http.StatusOK, toViewDTO(view, h.Tracker.Today()))
}

// DeleteHabit removes a habit and its whole ledger. Owner or admin only.
func (h *Handler) DeleteHabit(w http.ResponseWriter, r *http.Request) {
	hs, err := h.habitStore()
	if err != nil {
		h.writeDomainError(w, "Deleting habits is not available", err)
		return
	}
	id := habit.HabitID(chi.URLParam(r, "id"))
	caller := UserFrom(r.Context())

	existing, err := hs.LoadHabit(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, "Failed to load habit", err)
		return
	}
	if existing.Owner != caller && !h.isAdmin(r.Context(), caller) {
		h.writeDomainError(w, "Only the owner or an admin can delete a habit", habit.ErrNotOwner)
		return
	}
	if err := hs.DeleteHabit(r.Context(), id, caller); err != nil {
		h.writeDomainError(w, "Failed to delete habit", err)
		return
	}

	h.Logger.Info("habit deleted", zap.String("habit_id", string(id)), zap.String("actor", string(caller)))
	w.WriteHeader(http.StatusNoContent)
}

// MarkComplete records today's completion for the caller.
//
// A second call on the same day is not an error: it answers 200 with status
// "already_completed_today" and performs no write.
func (h *Handler) MarkComplete(w http.ResponseWriter, r *http.Request) {
	id := habit.HabitID(chi.URLParam(r, "id"))
	caller := UserFrom(r.Context())

	out, err := h.Tracker.MarkComplete(r.Context(), id, caller)
	if err != nil {
		h.writeDomainError(w, "Failed to mark habit complete", err)
		return
	}

	today := h.Tracker.Today()
	resp := CompleteResponse{
		Status: string(out.Status),
		View: toViewDTO(habit.View{
			Habit:  out.Habit,
			State:  out.State,
			Rollup: habit.RollupFor(out.Habit, caller),
		}, today),
	}
	status := http.StatusOK
	if out.Status == habit.StatusRecorded {
		resp.Entry = &CompletionEntryDTO{UserEmail: string(out.Entry.User), Date: out.Entry.Date.String()}
		status = http.StatusCreated
	}
	writeJSON(w, status, resp)
}

// =============================================================================
// USER HANDLERS
// =============================================================================

func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	us, err := h.userStore()
	if err != nil {
		h.writeDomainError(w, "User records are not available", err)
		return
	}
	var req CreateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if err := h.validate.Validate(req); err != nil {
		h.writeDomainError(w, "Invalid user", err)
		return
	}
	u := habit.User{
		Email:    habit.UserID(strings.ToLower(req.Email)),
		Name:     req.Name,
		PhotoURL: req.PhotoURL,
		Role:     habit.Role(req.Role),
	}
	if err := us.CreateUser(r.Context(), u); err != nil {
		h.writeDomainError(w, "Failed to create user", err)
		return
	}
	created, err := us.GetUser(r.Context(), u.Email)
	if err != nil {
		h.writeDomainError(w, "Failed to load created user", err)
		return
	}
	writeJSON(w, http.StatusCreated, toUserDTO(created))
}

func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	us, err := h.userStore()
	if err != nil {
		h.writeDomainError(w, "User records are not available", err)
		return
	}
	u, err := us.GetUser(r.Context(), habit.UserID(chi.URLParam(r, "email")))
	if err != nil {
		h.writeDomainError(w, "Failed to get user", err)
		return
	}
	writeJSON(w, http.StatusOK, toUserDTO(u))
}

// ListUserHabits returns the personal habits of a user with streaks.
func (h *Handler) ListUserHabits(w http.ResponseWriter, r *http.Request) {
	hs, err := h.habitStore()
	if err != nil {
		h.writeDomainError(w, "Listing habits is not available", err)
		return
	}
	owner := habit.UserID(strings.ToLower(chi.URLParam(r, "email")))
	caller := UserFrom(r.Context())
	if owner != caller && !h.isAdmin(r.Context(), caller) {
		h.writeDomainError(w, "Only the owner can list personal habits", habit.ErrNotOwner)
		return
	}

	habits, err := hs.ListHabits(r.Context(), habit.HabitQuery{Owner: owner, Visibility: habit.VisibilityPersonal})
	if err != nil {
		h.writeDomainError(w, "Failed to list habits", err)
		return
	}
	today := h.Tracker.Today()
	views := make([]HabitViewDTO, len(habits))
	for i, hb := range habits {
		views[i] = toViewDTO(h.Tracker.Evaluate(hb, owner), today)
	}
	writeJSON(w, http.StatusOK, views)
}

// =============================================================================
// ADMIN HANDLERS
// =============================================================================

// GetAnalytics returns the global counters from the refresher's snapshot.
func (h *Handler) GetAnalytics(w http.ResponseWriter, r *http.Request) {
	snap, err := h.Analytics.Snapshot(r.Context())
	if err != nil {
		h.writeDomainError(w, "Failed to compute analytics", err)
		return
	}
	writeJSON(w, http.StatusOK, AnalyticsDTO{
		TotalUsers:          snap.TotalUsers,
		PublicHabits:        snap.PublicHabits,
		TotalPersonalHabits: snap.PersonalHabits,
		TotalCompletions:    snap.TotalCompletions,
		RefreshedAt:         snap.RefreshedAt,
	})
}

// ListActivity returns the activity log, newest first. Admin only.
func (h *Handler) ListActivity(w http.ResponseWriter, r *http.Request) {
	activity, ok := h.Store.(habit.ActivityLog)
	if !ok {
		h.writeDomainError(w, "Activity log is not available", habit.ErrUnsupported)
		return
	}
	if !h.isAdmin(r.Context(), UserFrom(r.Context())) {
		writeError(w, http.StatusForbidden, "Admin role required", nil)
		return
	}

	q := r.URL.Query()
	filter := habit.ActivityFilter{
		HabitID: habit.HabitID(q.Get("habitId")),
		Actor:   habit.UserID(q.Get("actor")),
		Limit:   100,
	}
	for _, a := range q["action"] {
		filter.Actions = append(filter.Actions, habit.ActivityAction(a))
	}
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer", nil)
			return
		}
		filter.Limit = n
	}

	entries, err := activity.QueryActivity(r.Context(), filter)
	if err != nil {
		h.writeDomainError(w, "Failed to query activity", err)
		return
	}
	dtos := make([]ActivityDTO, len(entries))
	for i, e := range entries {
		dtos[i] = toActivityDTO(e)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// Health reports whether the handler is serving.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if p, ok := h.Store.(interface{ Ping(context.Context) error }); ok {
		if err := p.Ping(r.Context()); err != nil {
			writeError(w, http.StatusServiceUnavailable, "Store unreachable", err)
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// statusFor maps domain errors to HTTP statuses. Order matters: a
// persistence failure caused by a deleted habit is a 404.
func statusFor(err error) int {
	var ve *ValidationError
	switch {
	case errors.As(err, &ve):
		return http.StatusBadRequest
	case errors.Is(err, habit.ErrNotOwner):
		return http.StatusForbidden
	case habit.IsNotFound(err):
		return http.StatusNotFound
	case errors.Is(err, habit.ErrDuplicateUser), errors.Is(err, habit.ErrDuplicateCompletion),
		errors.Is(err, habit.ErrDuplicateHabit):
		return http.StatusConflict
	case errors.Is(err, habit.ErrMissingUser), errors.Is(err, habit.ErrInvalidDay):
		return http.StatusBadRequest
	case errors.Is(err, habit.ErrUnsupported):
		return http.StatusNotImplemented
	case errors.Is(err, habit.ErrPersistenceFailure):
		return http.StatusServiceUnavailable
	case errors.Is(err, habit.ErrLoadFailure):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) writeDomainError(w http.ResponseWriter, message string, err error) {
	status := statusFor(err)
	if status >= 500 {
		h.Logger.Error(message, zap.Int("status", status), zap.Error(err))
	}
	resp := ErrorResponse{Error: message, Details: err.Error()}
	var ve *ValidationError
	if errors.As(err, &ve) {
		resp.Details = ve.Fields
	}
	if habit.IsRetryable(err) {
		w.Header().Set("Retry-After", "1")
	}
	writeJSON(w, status, resp)
}
