package api

import (
	"net/http"

	"github.com/ce-fello/bug-tracker-service/src/internal/model"
	"github.com/ce-fello/bug-tracker-service/src/internal/service"
	"github.com/ce-fello/bug-tracker-service/src/internal/store"

	"github.com/go-chi/chi/v5"
)

func (h *Handler) createIssue(w http.ResponseWriter, r *http.Request) {
	var req service.NewIssue
	if err := decodeJSON(r, &req); err != nil {
		writeBadBody(w)
		return
	}
	me, _ := currentUser(r)
	issue, err := h.svc.CreateIssue(r.Context(), me, req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, issue)
}

func (h *Handler) listIssues(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	me, _ := currentUser(r)

	f := store.IssueFilter{
		Query:      q.Get("q"),
		SearchTags: true,
		Status:     model.Status(q.Get("status")),
		Severity:   model.Severity(q.Get("severity")),
		ProjectID:  q.Get("projectId"),
		Sort:       q.Get("sort"),
		Pagination: pagination(r, defaultIssueLimit),
	}
	switch q.Get("mine") {
	case "reported":
		f.ReporterID = me.ID
	case "assigned":
		f.AssigneeID = me.ID
	}
	// an explicit assignee wins over mine=assigned
	if a := q.Get("assignee"); a != "" {
		f.AssigneeID = a
	}
	var err error
	if f.CreatedFrom, err = queryTime(r, "from"); err != nil {
		h.fail(w, r, err)
		return
	}
	if f.CreatedTo, err = queryTime(r, "to"); err != nil {
		h.fail(w, r, err)
		return
	}

	page, err := h.svc.ListIssues(r.Context(), f)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (h *Handler) getIssue(w http.ResponseWriter, r *http.Request) {
	issue, err := h.svc.GetIssue(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, issue)
}

func (h *Handler) deleteIssue(w http.ResponseWriter, r *http.Request) {
	me, _ := currentUser(r)
	if err := h.svc.DeleteIssue(r.Context(), me, chi.URLParam(r, "id")); err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (h *Handler) devListIssues(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	me, _ := currentUser(r)
	f := store.IssueFilter{
		Query:      q.Get("q"),
		Status:     model.Status(q.Get("status")),
		Pagination: pagination(r, defaultPageLimit),
	}
	// a malformed project filter is ignored on the developer list
	if p := q.Get("projectId"); model.ValidID(p) {
		f.ProjectID = p
	}
	page, err := h.svc.ListAssigned(r.Context(), me.ID, f)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (h *Handler) devGetIssue(w http.ResponseWriter, r *http.Request) {
	me, _ := currentUser(r)
	issue, err := h.svc.GetAssigned(r.Context(), me.ID, chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, issue)
}

func (h *Handler) devPatchIssue(w http.ResponseWriter, r *http.Request) {
	var req model.DevPatchRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadBody(w)
		return
	}
	me, _ := currentUser(r)
	issue, err := h.svc.ApplyDeveloperPatch(r.Context(), chi.URLParam(r, "id"), me.ID, req.Sanitize())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, issue)
}

func (h *Handler) devHistory(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	me, _ := currentUser(r)
	page, err := h.svc.QueryHistory(r.Context(), me.ID, model.HistoryQuery{
		Action:     model.HistoryAction(q.Get("action")),
		ProjectID:  q.Get("projectId"),
		Q:          q.Get("q"),
		Pagination: pagination(r, defaultPageLimit),
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}
