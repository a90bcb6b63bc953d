/*
Package remote talks to the upstream habit REST service.

PURPOSE:
  Lets the engine run against the hosted service instead of a local
  database. Client implements habit.Store and habit.AnalyticsSource, so the
  Tracker and Gate work unchanged on top of it.

ENDPOINTS:
  GET   {base}/{collection}/{id}                 one habit with its ledger
  PATCH {base}/publicHabits/{id}/markComplete    body {completionHistory}
                                                 -> {completionHistory}
  PATCH {base}/syncMarkComplete/{id}             body {userEmail}
                                                 -> the updated habit
  GET   {base}/global-analytics                  authoritative counters

  Public habits live in "publicHabits", personal ones in "myhabit". A habit
  of unknown collection is looked up in the public collection first.

COMPLETION:
  The public endpoint replaces the whole ledger, so the client reloads the
  habit, appends the entry and sends the result. The personal endpoint
  stamps the day server-side. Both paths check the fresh ledger first and
  return habit.ErrDuplicateCompletion when (user, day) is already there.

STATUS MAPPING:
  404 -> habit.ErrHabitNotFound
  409 -> habit.ErrDuplicateCompletion
  other non-2xx -> *StatusError
*/
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/habituo/habit-engine/habit"
)

const (
	PublicCollection   = "publicHabits"
	PersonalCollection = "myhabit"

	personalCompletePath = "syncMarkComplete"
)

// StatusError is an unexpected response from the upstream service.
type StatusError struct {
	Method string
	URL    string
	Code   int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.URL, e.Code, e.Body)
}

type Config struct {
	BaseURL       string
	RatePerSecond float64 // outbound requests per second, 0 = unlimited
	Burst         int
	Timeout       time.Duration
	HTTPClient    *http.Client // overrides Timeout when set
	Logger        *zap.Logger
}

// Client provides access to the upstream habit service.
type Client struct {
	base        *url.URL
	httpClient  *http.Client
	rateLimiter *rate.Limiter
	logger      *zap.Logger

	// collection each habit was found in
	collections sync.Map // habit.HabitID -> string
}

func NewClient(cfg Config) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid remote base URL %q", cfg.BaseURL)
	}
	hc := cfg.HTTPClient
	if hc == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		hc = &http.Client{Timeout: timeout}
	}
	limit := rate.Inf
	if cfg.RatePerSecond > 0 {
		limit = rate.Limit(cfg.RatePerSecond)
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		base:        base,
		httpClient:  hc,
		rateLimiter: rate.NewLimiter(limit, burst),
		logger:      logger.Named("remote"),
	}, nil
}

// =============================================================================
// WIRE FORMAT
// =============================================================================

type wireEntry struct {
	UserEmail string `json:"userEmail,omitempty"`
	Date      string `json:"date"`
}

type wireHabit struct {
	ID                string      `json:"_id"`
	HabitName         string      `json:"habitName"`
	ShortDescription  string      `json:"shortDescription"`
	FullDescription   string      `json:"fullDescription"`
	Category          string      `json:"category"`
	ReminderTime      string      `json:"reminderTime"`
	ImageURL          string      `json:"imageURL"`
	CreatorName       string      `json:"creatorName"`
	UserEmail         string      `json:"userEmail"`
	IsFeatured        bool        `json:"isFeatured"`
	CreateDate        string      `json:"createDate"`
	CompletionHistory []wireEntry `json:"completionHistory"`
}

type wireAnalytics struct {
	TotalUsers          int `json:"totalUsers"`
	PublicHabits        int `json:"publicHabits"`
	TotalPersonalHabits int `json:"totalPersonalHabits"`
	TotalCompletions    int `json:"totalCompletions"`
}

func decodeLedger(in []wireEntry) (habit.Ledger, error) {
	var l habit.Ledger
	for _, e := range in {
		d, err := habit.ParseDay(e.Date)
		if err != nil {
			return habit.Ledger{}, err
		}
		l.Append(habit.CompletionEntry{User: habit.UserID(e.UserEmail), Date: d})
	}
	return l, nil
}

func (c *Client) toHabit(w wireHabit, collection string) (habit.Habit, error) {
	ledger, err := decodeLedger(w.CompletionHistory)
	if err != nil {
		return habit.Habit{}, fmt.Errorf("habit %s: %w", w.ID, err)
	}
	h := habit.Habit{
		ID:               habit.HabitID(w.ID),
		Name:             w.HabitName,
		ShortDescription: w.ShortDescription,
		FullDescription:  w.FullDescription,
		Category:         w.Category,
		ReminderTime:     w.ReminderTime,
		ImageURL:         w.ImageURL,
		CreatorName:      w.CreatorName,
		Owner:            habit.UserID(w.UserEmail),
		Visibility:       habit.VisibilityPublic,
		Featured:         w.IsFeatured,
		History:          ledger,
	}
	if collection == PersonalCollection {
		h.Visibility = habit.VisibilityPersonal
		h.History = h.History.Attribute(h.Owner)
	}
	if w.CreateDate != "" {
		created, err := time.Parse(time.RFC3339, w.CreateDate)
		if err != nil {
			c.logger.Warn("unparseable createDate",
				zap.String("habit_id", w.ID),
				zap.String("createDate", w.CreateDate),
				zap.Error(err))
		} else {
			h.CreatedAt = created
		}
	}
	return h, nil
}

// =============================================================================
// habit.Store
// =============================================================================

func (c *Client) LoadHabit(ctx context.Context, id habit.HabitID) (habit.Habit, error) {
	for _, coll := range c.lookupOrder(id) {
		var w wireHabit
		err := c.do(ctx, http.MethodGet, c.endpoint(coll, string(id)), nil, &w)
		if errors.Is(err, habit.ErrHabitNotFound) {
			continue
		}
		if err != nil {
			return habit.Habit{}, err
		}
		c.collections.Store(id, coll)
		return c.toHabit(w, coll)
	}
	return habit.Habit{}, habit.ErrHabitNotFound
}

func (c *Client) AppendCompletion(ctx context.Context, id habit.HabitID, entry habit.CompletionEntry) (habit.Ledger, error) {
	h, err := c.LoadHabit(ctx, id)
	if err != nil {
		return habit.Ledger{}, err
	}
	if h.IsPersonal() {
		return c.completePersonal(ctx, h, entry)
	}
	return c.completePublic(ctx, h, entry)
}

func (c *Client) completePublic(ctx context.Context, h habit.Habit, entry habit.CompletionEntry) (habit.Ledger, error) {
	if h.History.Has(entry.User, entry.Date) {
		return habit.Ledger{}, habit.ErrDuplicateCompletion
	}
	history := make([]wireEntry, 0, h.History.Len()+1)
	for e := range h.History.All() {
		history = append(history, wireEntry{UserEmail: string(e.User), Date: e.Date.String()})
	}
	history = append(history, wireEntry{UserEmail: string(entry.User), Date: entry.Date.String()})

	req := struct {
		CompletionHistory []wireEntry `json:"completionHistory"`
	}{history}
	var resp struct {
		CompletionHistory []wireEntry `json:"completionHistory"`
	}
	if err := c.do(ctx, http.MethodPatch, c.endpoint(PublicCollection, string(h.ID), "markComplete"), req, &resp); err != nil {
		return habit.Ledger{}, err
	}
	return decodeLedger(resp.CompletionHistory)
}

func (c *Client) completePersonal(ctx context.Context, h habit.Habit, entry habit.CompletionEntry) (habit.Ledger, error) {
	user := entry.User
	if user == "" {
		user = h.Owner
	}
	if h.History.Has(user, entry.Date) {
		return habit.Ledger{}, habit.ErrDuplicateCompletion
	}

	req := struct {
		UserEmail string `json:"userEmail"`
	}{string(user)}
	var resp wireHabit
	if err := c.do(ctx, http.MethodPatch, c.endpoint(personalCompletePath, string(h.ID)), req, &resp); err != nil {
		return habit.Ledger{}, err
	}
	updated, err := c.toHabit(resp, PersonalCollection)
	if err != nil {
		return habit.Ledger{}, err
	}
	if !updated.History.Has(user, entry.Date) {
		c.logger.Warn("upstream recorded a different day",
			zap.String("habit_id", string(h.ID)),
			zap.Stringer("day", entry.Date))
	}
	return updated.History.Attribute(user), nil
}

// GlobalAnalytics returns the upstream counters unchanged.
func (c *Client) GlobalAnalytics(ctx context.Context) (habit.GlobalAnalytics, error) {
	var w wireAnalytics
	if err := c.do(ctx, http.MethodGet, c.endpoint("global-analytics"), nil, &w); err != nil {
		return habit.GlobalAnalytics{}, err
	}
	return habit.GlobalAnalytics{
		TotalUsers:       w.TotalUsers,
		PublicHabits:     w.PublicHabits,
		PersonalHabits:   w.TotalPersonalHabits,
		TotalCompletions: w.TotalCompletions,
	}, nil
}

// =============================================================================
// HELPERS
// =============================================================================

func (c *Client) lookupOrder(id habit.HabitID) []string {
	if coll, ok := c.collections.Load(id); ok {
		return []string{coll.(string)}
	}
	return []string{PublicCollection, PersonalCollection}
}

func (c *Client) endpoint(parts ...string) string {
	u := *c.base
	escaped := make([]string, len(parts))
	for i, p := range parts {
		escaped[i] = url.PathEscape(p)
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/" + strings.Join(escaped, "/")
	return u.String()
}

// wait blocks until rate limiter allows a request.
func (c *Client) wait(ctx context.Context) error {
	return c.rateLimiter.Wait(ctx)
}

func (c *Client) do(ctx context.Context, method, endpoint string, in, out any) error {
	if err := c.wait(ctx); err != nil {
		return err
	}

	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, endpoint, err)
	}
	defer resp.Body.Close()

	c.logger.Debug("upstream call",
		zap.String("method", method),
		zap.String("url", endpoint),
		zap.Int("status", resp.StatusCode),
		zap.Duration("took", time.Since(start)))

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return habit.ErrHabitNotFound
	case resp.StatusCode == http.StatusConflict:
		return habit.ErrDuplicateCompletion
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &StatusError{Method: method, URL: endpoint, Code: resp.StatusCode, Body: strings.TrimSpace(string(snippet))}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, endpoint, err)
	}
	return nil
}
