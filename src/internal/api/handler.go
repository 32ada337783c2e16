package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/ce-fello/bug-tracker-service/src/internal/api/apiErrors"
	"github.com/ce-fello/bug-tracker-service/src/internal/model"
	"github.com/ce-fello/bug-tracker-service/src/internal/service"

	"go.uber.org/zap"

	"github.com/go-chi/chi/v5"
)

const (
	defaultIssueLimit = 10
	defaultPageLimit  = 20
)

type Handler struct {
	svc     *service.Service
	log     *zap.Logger
	timeout time.Duration
}

func NewHandler(svc *service.Service, logger *zap.Logger, timeout time.Duration) *Handler {
	return &Handler{svc: svc, log: logger, timeout: timeout}
}

func RegisterRoutes(r chi.Router, h *Handler) {
	health := func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
	}
	r.Get("/health", health)

	r.Route("/api", func(r chi.Router) {
		r.Use(withTimeout(h.timeout))
		r.Get("/health", health)

		r.Post("/auth/register", h.register)
		r.Post("/auth/login", h.login)

		r.Group(func(r chi.Router) {
			r.Use(Authenticate(h.svc))

			r.Get("/me", h.getMe)
			r.Patch("/me", h.updateMe)
			r.Patch("/me/password", h.changePassword)

			r.Post("/issues", h.createIssue)
			r.Get("/issues", h.listIssues)
			r.Get("/issues/{id}", h.getIssue)
			r.Delete("/issues/{id}", h.deleteIssue)

			r.Get("/projects/mine", h.myProjects)

			r.Route("/dev", func(r chi.Router) {
				r.Use(RequireRole(model.RoleDeveloper))
				r.Get("/history", h.devHistory)
				r.Get("/issues", h.devListIssues)
				r.Get("/issues/history", h.devHistory)
				r.Get("/issues/{id}", h.devGetIssue)
				r.Patch("/issues/{id}", h.devPatchIssue)
			})

			r.Route("/admin", func(r chi.Router) {
				r.Use(RequireRole(model.RoleAdmin))
				r.Get("/stats", h.getStats)

				r.Get("/users", h.listUsers)
				r.Patch("/users/{id}/role", h.setUserRole)
				r.Patch("/users/{id}/state", h.setUserState)

				r.Get("/projects", h.listProjects)
				r.Post("/projects", h.createProject)
				r.Patch("/projects/{id}", h.updateProject)
				r.Delete("/projects/{id}", h.deleteProject)
				r.Post("/projects/{id}/members", h.addProjectMember)
				r.Delete("/projects/{id}/members/{userId}", h.removeProjectMember)

				r.Get("/issues", h.adminListIssues)
				r.Post("/issues/bulk", h.adminBulkPatch)
				r.Get("/issues/{id}", h.getIssue)
				r.Patch("/issues/{id}", h.adminPatchIssue)
				r.Delete("/issues/{id}", h.adminDeleteIssue)

				r.Get("/tags", h.listTags)
				r.Post("/tags", h.createTag)
				r.Patch("/tags/{id}", h.updateTag)
				r.Delete("/tags/{id}", h.deleteTag)

				r.Get("/sla", h.getSLA)
				r.Patch("/sla", h.updateSLA)
			})
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, apiErrors.NotFound, "route not found")
	})
}

// decodeJSON reads the request body into v. An empty body leaves v untouched.
func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func queryInt(r *http.Request, key string) int {
	n, _ := strconv.Atoi(r.URL.Query().Get(key))
	return n
}

func pagination(r *http.Request, defaultLimit int) model.Pagination {
	return model.NewPagination(queryInt(r, "page"), queryInt(r, "limit"), defaultLimit)
}

// queryTime parses an RFC 3339 timestamp or a plain date. Empty yields nil.
func queryTime(r *http.Request, key string) (*time.Time, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339, time.DateOnly} {
		if t, err := time.Parse(layout, raw); err == nil {
			return &t, nil
		}
	}
	return nil, apiErrors.NewValidation("invalid " + key + " date")
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, code int, errCode apiErrors.ErrorCode, message string) {
	writeJSON(w, code, map[string]any{
		"error": map[string]any{"code": errCode, "message": message},
	})
}

func writeBadBody(w http.ResponseWriter) {
	writeError(w, http.StatusBadRequest, apiErrors.Validation, "invalid body")
}

var statusByCode = map[apiErrors.ErrorCode]int{
	apiErrors.NotFound:     http.StatusNotFound,
	apiErrors.Validation:   http.StatusBadRequest,
	apiErrors.Conflict:     http.StatusConflict,
	apiErrors.Unauthorized: http.StatusUnauthorized,
	apiErrors.Forbidden:    http.StatusForbidden,
}

func handleSvcError(w http.ResponseWriter, err error) {
	var e apiErrors.APIError
	if errors.As(err, &e) {
		if status, ok := statusByCode[e.Code]; ok {
			writeError(w, status, e.Code, e.Message)
			return
		}
	}
	writeError(w, http.StatusInternalServerError, apiErrors.InternalError, "internal error")
}

// fail logs unexpected errors before answering.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	var e apiErrors.APIError
	if !errors.As(err, &e) {
		h.log.Error("request failed", zap.String("method", r.Method), zap.String("path", r.URL.Path),
			zap.String("request_id", requestID(r.Context())), zap.Error(err))
	}
	handleSvcError(w, err)
}

func (h *Handler) getStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.GetStats(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
