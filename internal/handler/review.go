package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/gofrs/uuid"

	"github.com/webshop/backend/internal/apperr"
	"github.com/webshop/backend/internal/catalog"
	"github.com/webshop/backend/internal/review"
)

type ReviewHandler struct {
	svc     review.Service
	catalog catalog.Service
}

func NewReviewHandler(svc review.Service, catalogSvc catalog.Service) *ReviewHandler {
	return &ReviewHandler{svc: svc, catalog: catalogSvc}
}

func (h *ReviewHandler) ListProductReviews(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	page := 1
	if raw := r.URL.Query().Get("page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			respondValidation(w, "invalid filters", map[string]string{"page": "must be a positive integer"})
			return
		}
		page = n
	}

	result, err := h.svc.ListByProductSlug(r.Context(), slug, page)
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, result)
}

type createReviewRequest struct {
	Rating  int    `json:"rating"`
	Title   string `json:"title"`
	Content string `json:"content"`
}

func (h *ReviewHandler) CreateReview(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	product, err := h.catalog.GetProductBySlug(r.Context(), slug)
	if err != nil {
		respondWithError(w, r, err)
		return
	}

	var req createReviewRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	rev := &review.Review{
		UserID:    UserID(r.Context()),
		ProductID: product.ID,
		Rating:    req.Rating,
		Title:     req.Title,
		Content:   req.Content,
	}
	if err := h.svc.Create(r.Context(), rev); err != nil {
		respondWithError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, rev)
}

func (h *ReviewHandler) ReviewSummary(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	summary, err := h.svc.SummaryByProductSlug(r.Context(), slug)
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, summary)
}

func (h *ReviewHandler) GetReview(w http.ResponseWriter, r *http.Request) {
	reviewID, err := uuid.FromString(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, r, apperr.Validation("invalid review id", nil))
		return
	}

	rev, err := h.svc.GetByID(r.Context(), reviewID)
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, rev)
}

func (h *ReviewHandler) ToggleHelpful(w http.ResponseWriter, r *http.Request) {
	reviewID, err := uuid.FromString(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, r, apperr.Validation("invalid review id", nil))
		return
	}

	state, err := h.svc.ToggleHelpful(r.Context(), UserID(r.Context()), reviewID)
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, state)
}
