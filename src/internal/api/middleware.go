package api

import (
	"context"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/ce-fello/bug-tracker-service/src/internal/api/apiErrors"
	"github.com/ce-fello/bug-tracker-service/src/internal/model"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type ctxKey int

const (
	requestIDKey ctxKey = iota
	userKey
)

// Authenticator resolves a bearer token to the calling user.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (model.User, error)
}

func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-Id")
		if id == "" {
			id = uuid.New().String()
		}
		w.Header().Set("X-Request-Id", id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey, id)))
	})
}

func requestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

func LoggerMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			logger.Info("request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", requestID(r.Context())),
			)
		})
	}
}

func Recoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.Error("panic", zap.Any("recovered", rec), zap.String("request_id", requestID(r.Context())))
					writeError(w, http.StatusInternalServerError, apiErrors.InternalError, "internal error")
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

func withTimeout(d time.Duration) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), d)
			defer cancel()
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Authenticate requires a valid bearer token and stores the resolved user in
// the request context.
func Authenticate(a Authenticator) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || strings.TrimSpace(token) == "" {
				writeError(w, http.StatusUnauthorized, apiErrors.Unauthorized, "no token provided")
				return
			}
			u, err := a.Authenticate(r.Context(), strings.TrimSpace(token))
			if err != nil {
				handleSvcError(w, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userKey, u)))
		})
	}
}

// RequireRole lets through only users holding one of roles.
func RequireRole(roles ...model.Role) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			u, ok := currentUser(r)
			if !ok {
				writeError(w, http.StatusUnauthorized, apiErrors.Unauthorized, "not authenticated")
				return
			}
			if !slices.Contains(roles, u.Role) {
				writeError(w, http.StatusForbidden, apiErrors.Forbidden, "forbidden")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func currentUser(r *http.Request) (model.User, bool) {
	u, ok := r.Context().Value(userKey).(model.User)
	return u, ok
}
