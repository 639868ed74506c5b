package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/Harshitk-cp/concord/internal/domain"
)

type contextKey string

const (
	// UserIDHeader names the caller whose knowledge snapshot a request reads
	// or writes.
	UserIDHeader = "X-User-ID"
	userIDKey    = contextKey("user_id")

	maxUserIDLength = 128
)

// UserIDFromContext returns the caller's user id, or the guest id when the
// request did not pass through Identity.
func UserIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(userIDKey).(string); ok && id != "" {
		return id
	}
	return domain.GuestUserID
}

// Identity reads X-User-ID into the request context. Requests without the
// header act as the guest user.
func Identity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := strings.TrimSpace(r.Header.Get(UserIDHeader))
		if len(userID) > maxUserIDLength {
			writeError(w, http.StatusBadRequest, "user id too long")
			return
		}
		if userID == "" {
			userID = domain.GuestUserID
		}

		ctx := context.WithValue(r.Context(), userIDKey, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
