package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/habituo/habit-engine/habit"
)

// UserHeader carries the caller's email. Authentication happens upstream.
const UserHeader = "X-User-Email"

type ctxKey int

const userKey ctxKey = iota

// Identity stores the caller from UserHeader in the request context.
func Identity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		email := strings.ToLower(strings.TrimSpace(r.Header.Get(UserHeader)))
		if email != "" {
			r = r.WithContext(WithUser(r.Context(), habit.UserID(email)))
		}
		next.ServeHTTP(w, r)
	})
}

func WithUser(ctx context.Context, user habit.UserID) context.Context {
	return context.WithValue(ctx, userKey, user)
}

// UserFrom returns the caller, or "" for anonymous requests.
func UserFrom(ctx context.Context) habit.UserID {
	u, _ := ctx.Value(userKey).(habit.UserID)
	return u
}

// RequireUser rejects anonymous requests with 401.
func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if UserFrom(r.Context()) == "" {
			writeError(w, http.StatusUnauthorized, "Missing "+UserHeader+" header", habit.ErrMissingUser)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequestLogger logs one line per request.
func RequestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			defer func() {
				logger.Info("http request",
					zap.String("request_id", middleware.GetReqID(r.Context())),
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.Int("status", ww.Status()),
					zap.Int("bytes", ww.BytesWritten()),
					zap.Duration("took", time.Since(start)))
			}()
			next.ServeHTTP(ww, r)
		})
	}
}
