package handler

import (
	"net/http"

	"github.com/webshop/backend/internal/account"
)

type AccountHandler struct {
	svc account.Service
}

func NewAccountHandler(svc account.Service) *AccountHandler {
	return &AccountHandler{svc: svc}
}

func (h *AccountHandler) Register(w http.ResponseWriter, r *http.Request) {
	var input account.RegisterInput
	if !decodeJSON(w, r, &input) {
		return
	}

	u, err := h.svc.Register(r.Context(), input)
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, u)
}

func (h *AccountHandler) Me(w http.ResponseWriter, r *http.Request) {
	u, err := h.svc.GetByID(r.Context(), UserID(r.Context()))
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, u)
}

type updateProfileRequest struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone,omitempty"`
}

func (h *AccountHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req updateProfileRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	u, err := h.svc.UpdateProfile(r.Context(), UserID(r.Context()), req.FirstName, req.LastName, req.Phone)
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, u)
}
