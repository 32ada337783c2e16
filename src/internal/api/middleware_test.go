package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ce-fello/bug-tracker-service/src/internal/api/apiErrors"
	"github.com/ce-fello/bug-tracker-service/src/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubAuthenticator struct {
	users map[string]model.User
}

func (s stubAuthenticator) Authenticate(_ context.Context, token string) (model.User, error) {
	u, ok := s.users[token]
	if !ok {
		return model.User{}, apiErrors.NewUnauthorized("invalid token")
	}
	return u, nil
}

func okHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func TestAuthenticate(t *testing.T) {
	dev := model.User{ID: "u1", Role: model.RoleDeveloper}
	var seen model.User
	h := Authenticate(stubAuthenticator{users: map[string]model.User{"good": dev}})(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seen, _ = currentUser(r)
			okHandler(w, r)
		}))

	tests := []struct {
		name   string
		header string
		status int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic good", http.StatusUnauthorized},
		{"empty bearer", "Bearer   ", http.StatusUnauthorized},
		{"unknown token", "Bearer bad", http.StatusUnauthorized},
		{"valid token", "Bearer good", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, tt.status, rec.Code)
		})
	}
	assert.Equal(t, "u1", seen.ID)
}

func TestRequireRole(t *testing.T) {
	h := RequireRole(model.RoleAdmin, model.RoleDeveloper)(http.HandlerFunc(okHandler))

	serve := func(u *model.User) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if u != nil {
			req = req.WithContext(context.WithValue(req.Context(), userKey, *u))
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusUnauthorized, serve(nil))
	assert.Equal(t, http.StatusForbidden, serve(&model.User{Role: model.RoleTester}))
	assert.Equal(t, http.StatusOK, serve(&model.User{Role: model.RoleDeveloper}))
	assert.Equal(t, http.StatusOK, serve(&model.User{Role: model.RoleAdmin}))
}

func TestRequestIDMiddleware(t *testing.T) {
	var fromCtx string
	h := RequestIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fromCtx = requestID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-Id", "abc-123")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", rec.Header().Get("X-Request-Id"))
	assert.Equal(t, "abc-123", fromCtx)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Len(t, rec.Header().Get("X-Request-Id"), 36)
	assert.Equal(t, rec.Header().Get("X-Request-Id"), fromCtx)
}

func TestRecoverer(t *testing.T) {
	h := Recoverer(zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	require.NotPanics(t, func() {
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":{"code":"INTERNAL_ERROR","message":"internal error"}}`, rec.Body.String())
}

func TestWithTimeout(t *testing.T) {
	var deadline time.Time
	var ok bool
	h := withTimeout(50 * time.Millisecond)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		deadline, ok = r.Context().Deadline()
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	require.True(t, ok)
	assert.WithinDuration(t, time.Now().Add(50*time.Millisecond), deadline, time.Second)
}

func TestHandleSvcError(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   string
	}{
		{apiErrors.NewNotFound("x"), http.StatusNotFound, "NOT_FOUND"},
		{apiErrors.NewValidation("x"), http.StatusBadRequest, "VALIDATION"},
		{apiErrors.NewConflict("x"), http.StatusConflict, "CONFLICT"},
		{apiErrors.NewUnauthorized("x"), http.StatusUnauthorized, "UNAUTHORIZED"},
		{apiErrors.NewForbidden("x"), http.StatusForbidden, "FORBIDDEN"},
		{errors.New("db exploded"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			rec := httptest.NewRecorder()
			handleSvcError(rec, tt.err)
			assert.Equal(t, tt.status, rec.Code)
			body := decodeError(t, rec)
			assert.Equal(t, tt.code, body.Error.Code)
			assert.NotContains(t, body.Error.Message, "db exploded")
		})
	}
}

func TestQueryTime(t *testing.T) {
	parse := func(raw string) (*time.Time, error) {
		req := httptest.NewRequest(http.MethodGet, "/?from="+raw, nil)
		return queryTime(req, "from")
	}

	got, err := parse("")
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = parse("2025-03-01")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), *got)

	got, err = parse("2025-03-01T10:00:00Z")
	require.NoError(t, err)
	assert.Equal(t, 10, got.Hour())

	_, err = parse("yesterday")
	var apiErr apiErrors.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, apiErrors.Validation, apiErr.Code)
}

func TestPagination(t *testing.T) {
	p := pagination(httptest.NewRequest(http.MethodGet, "/?page=3&limit=5", nil), defaultPageLimit)
	assert.Equal(t, model.Pagination{Page: 3, Limit: 5}, p)

	p = pagination(httptest.NewRequest(http.MethodGet, "/?page=abc", nil), defaultIssueLimit)
	assert.Equal(t, model.Pagination{Page: 1, Limit: defaultIssueLimit}, p)
}
