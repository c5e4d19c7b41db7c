package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/merchantops/gridview/internal/auth"
)

// UserHeader is the header carrying the upstream-authenticated user id.
const UserHeader = "X-User-Id"

// Authenticate extracts the upstream-resolved user id and stores it on the
// request context. Requests without a valid id are rejected.
func Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := r.Header.Get(UserHeader)
		id, err := uuid.Parse(raw)
		if err != nil || id == uuid.Nil {
			http.Error(w, "missing or invalid user identity", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r.WithContext(auth.ContextWithUserID(r.Context(), id)))
	})
}
