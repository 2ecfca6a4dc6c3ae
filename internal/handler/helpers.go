package handler

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/webshop/backend/internal/apperr"
)

// errorResponse is the error envelope returned by every endpoint.
type errorResponse struct {
	Error      string            `json:"error"`
	Message    string            `json:"message"`
	Details    map[string]string `json:"details,omitempty"`
	StatusCode int               `json:"status_code"`
}

func respondWithJSON(w http.ResponseWriter, code int, payload any) {
	body, err := json.Marshal(payload)
	if err != nil {
		log.Error().Err(err).Msg("handler: failed to marshal response")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"internal","message":"failed to encode response","status_code":500}`))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if _, err := w.Write(body); err != nil {
		log.Error().Err(err).Msg("handler: failed to write response")
	}
}

func statusForKind(kind apperr.Kind) int {
	switch kind {
	case apperr.KindValidation:
		return http.StatusBadRequest
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindUnauthorized:
		return http.StatusUnauthorized
	case apperr.KindForbidden:
		return http.StatusForbidden
	case apperr.KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// respondWithError maps err onto the taxonomy envelope. Internal causes are
// logged and withheld from the caller.
func respondWithError(w http.ResponseWriter, r *http.Request, err error) {
	kind := apperr.KindOf(err)
	status := statusForKind(kind)

	resp := errorResponse{
		Error:      kind.String(),
		StatusCode: status,
	}
	if ae := apperr.AsError(err); ae != nil && kind != apperr.KindInternal {
		resp.Message = ae.Message
		resp.Details = ae.Fields
	} else {
		resp.Message = "internal server error"
		log.Error().Err(err).Str("path", r.URL.Path).Msg("handler: internal error")
	}

	respondWithJSON(w, status, resp)
}

func respondValidation(w http.ResponseWriter, message string, fields map[string]string) {
	respondWithJSON(w, http.StatusBadRequest, errorResponse{
		Error:      apperr.KindValidation.String(),
		Message:    message,
		Details:    fields,
		StatusCode: http.StatusBadRequest,
	})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		respondValidation(w, "invalid request body", nil)
		return false
	}
	return true
}
