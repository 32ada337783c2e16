package api

import (
	"net/http"

	"github.com/ce-fello/bug-tracker-service/src/internal/model"
)

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name     string     `json:"name"`
		Email    string     `json:"email"`
		Password string     `json:"password"`
		Role     model.Role `json:"role"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeBadBody(w)
		return
	}
	res, err := h.svc.Register(r.Context(), req.Name, req.Email, req.Password, req.Role)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeBadBody(w)
		return
	}
	res, err := h.svc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) getMe(w http.ResponseWriter, r *http.Request) {
	me, _ := currentUser(r)
	u, err := h.svc.Me(r.Context(), me.ID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (h *Handler) updateMe(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name  *string `json:"name"`
		Email *string `json:"email"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeBadBody(w)
		return
	}
	me, _ := currentUser(r)
	res, err := h.svc.UpdateProfile(r.Context(), me.ID, req.Name, req.Email)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) changePassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CurrentPassword string `json:"currentPassword"`
		NewPassword     string `json:"newPassword"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeBadBody(w)
		return
	}
	me, _ := currentUser(r)
	if err := h.svc.ChangePassword(r.Context(), me.ID, req.CurrentPassword, req.NewPassword); err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "password updated"})
}
