package handler

import (
	"context"
	"net/http"

	"github.com/gofrs/uuid"

	"github.com/webshop/backend/internal/account"
	"github.com/webshop/backend/internal/apperr"
)

type contextKey string

const userIDKey contextKey = "user_id"

// userIDHeader carries the authenticated user identity injected by the
// upstream gateway. Token issuance and verification live outside this
// service.
const userIDHeader = "X-User-ID"

// WithUser resolves the gateway-supplied user header into the request
// context. Requests without the header pass through anonymous.
func WithUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if raw := r.Header.Get(userIDHeader); raw != "" {
			id, err := uuid.FromString(raw)
			if err != nil {
				respondWithError(w, r, apperr.New(apperr.KindUnauthorized, "invalid user identity"))
				return
			}
			r = r.WithContext(context.WithValue(r.Context(), userIDKey, id))
		}
		next.ServeHTTP(w, r)
	})
}

// UserID returns the authenticated user id, or uuid.Nil for anonymous
// requests.
func UserID(ctx context.Context) uuid.UUID {
	if id, ok := ctx.Value(userIDKey).(uuid.UUID); ok {
		return id
	}
	return uuid.Nil
}

// RequireAuth rejects anonymous requests.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if UserID(r.Context()) == uuid.Nil {
			respondWithError(w, r, apperr.New(apperr.KindUnauthorized, "authentication required"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireStaff rejects requests from non-staff users.
func RequireStaff(accounts account.Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := UserID(r.Context())
			if id == uuid.Nil {
				respondWithError(w, r, apperr.New(apperr.KindUnauthorized, "authentication required"))
				return
			}
			u, err := accounts.GetByID(r.Context(), id)
			if err != nil {
				respondWithError(w, r, apperr.New(apperr.KindForbidden, "staff access required"))
				return
			}
			if !u.IsStaff {
				respondWithError(w, r, apperr.New(apperr.KindForbidden, "staff access required"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
