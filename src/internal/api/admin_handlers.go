package api

import (
	"net/http"

	"github.com/ce-fello/bug-tracker-service/src/internal/model"
	"github.com/ce-fello/bug-tracker-service/src/internal/service"
	"github.com/ce-fello/bug-tracker-service/src/internal/store"

	"github.com/go-chi/chi/v5"
)

func (h *Handler) listUsers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := store.UserFilter{
		Query:      q.Get("q"),
		Role:       model.Role(q.Get("role")),
		Pagination: pagination(r, defaultPageLimit),
	}
	switch q.Get("active") {
	case "true":
		v := true
		f.Active = &v
	case "false":
		v := false
		f.Active = &v
	}
	switch q.Get("includeAdmins") {
	case "1", "true":
		f.IncludeAdmins = true
	}
	page, err := h.svc.ListUsers(r.Context(), f)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (h *Handler) setUserRole(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Role model.Role `json:"role"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeBadBody(w)
		return
	}
	u, err := h.svc.SetUserRole(r.Context(), chi.URLParam(r, "id"), req.Role)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (h *Handler) setUserState(w http.ResponseWriter, r *http.Request) {
	var req struct {
		IsActive *bool `json:"isActive"`
	}
	if err := decodeJSON(r, &req); err != nil || req.IsActive == nil {
		writeBadBody(w)
		return
	}
	u, err := h.svc.SetUserIsActive(r.Context(), chi.URLParam(r, "id"), *req.IsActive)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (h *Handler) listProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := h.svc.ListProjects(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, projects)
}

func (h *Handler) myProjects(w http.ResponseWriter, r *http.Request) {
	me, _ := currentUser(r)
	projects, err := h.svc.MyProjects(r.Context(), me)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, projects)
}

func (h *Handler) createProject(w http.ResponseWriter, r *http.Request) {
	var req service.NewProject
	if err := decodeJSON(r, &req); err != nil {
		writeBadBody(w)
		return
	}
	p, err := h.svc.CreateProject(r.Context(), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (h *Handler) updateProject(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name        *string `json:"name"`
		Key         *string `json:"key"`
		Description *string `json:"description"`
		URL         *string `json:"url"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeBadBody(w)
		return
	}
	p, err := h.svc.UpdateProject(r.Context(), chi.URLParam(r, "id"), model.ProjectPatch{
		Name: req.Name, Key: req.Key, Description: req.Description, URL: req.URL,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *Handler) deleteProject(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteProject(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (h *Handler) addProjectMember(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeBadBody(w)
		return
	}
	p, err := h.svc.AddProjectMember(r.Context(), chi.URLParam(r, "id"), req.Email)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *Handler) removeProjectMember(w http.ResponseWriter, r *http.Request) {
	p, err := h.svc.RemoveProjectMember(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "userId"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *Handler) adminListIssues(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := store.IssueFilter{
		Query:      q.Get("q"),
		Status:     model.Status(q.Get("status")),
		Severity:   model.Severity(q.Get("severity")),
		Priority:   model.Priority(q.Get("priority")),
		ProjectID:  q.Get("projectId"),
		ReporterID: q.Get("reporterId"),
		Sort:       "-createdAt",
		Pagination: pagination(r, defaultPageLimit),
	}
	if a := q.Get("assigneeId"); a == "null" {
		f.Unassigned = true
	} else {
		f.AssigneeID = a
	}
	page, err := h.svc.ListIssues(r.Context(), f)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (h *Handler) adminPatchIssue(w http.ResponseWriter, r *http.Request) {
	var req model.AdminPatchRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadBody(w)
		return
	}
	issue, err := h.svc.AdminPatchIssue(r.Context(), chi.URLParam(r, "id"), req.Sanitize())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, issue)
}

func (h *Handler) adminBulkPatch(w http.ResponseWriter, r *http.Request) {
	var req struct {
		IDs   []string                `json:"ids"`
		Patch model.AdminPatchRequest `json:"patch"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeBadBody(w)
		return
	}
	res, err := h.svc.BulkPatchIssues(r.Context(), req.IDs, req.Patch.Sanitize())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) adminDeleteIssue(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.AdminDeleteIssue(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (h *Handler) listTags(w http.ResponseWriter, r *http.Request) {
	tags, err := h.svc.ListTags(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tags)
}

func (h *Handler) createTag(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name  string `json:"name"`
		Color string `json:"color"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeBadBody(w)
		return
	}
	t, err := h.svc.CreateTag(r.Context(), req.Name, req.Color)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

func (h *Handler) updateTag(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name  *string `json:"name"`
		Color *string `json:"color"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeBadBody(w)
		return
	}
	t, err := h.svc.UpdateTag(r.Context(), chi.URLParam(r, "id"), req.Name, req.Color)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (h *Handler) deleteTag(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteTag(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (h *Handler) getSLA(w http.ResponseWriter, r *http.Request) {
	sla, err := h.svc.GetSLA(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sla)
}

func (h *Handler) updateSLA(w http.ResponseWriter, r *http.Request) {
	incoming := map[string]any{}
	if err := decodeJSON(r, &incoming); err != nil {
		writeBadBody(w)
		return
	}
	sla, err := h.svc.UpdateSLA(r.Context(), incoming)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sla)
}
