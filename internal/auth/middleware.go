package auth

import (
	"context"
	"net/http"

	"github.com/gorilla/sessions"
)

type ctxKey struct{}

// WithSessionUser attaches the session's user id to the request context when a
// valid session cookie is present. Requests without one pass through untouched.
func WithSessionUser(store sessions.Store) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			session, err := store.Get(r, SessionName)
			if err != nil || session == nil {
				next.ServeHTTP(w, r)
				return
			}
			userID, ok := session.Values[sessionUserID].(string)
			if !ok || userID == "" {
				next.ServeHTTP(w, r)
				return
			}
			ctx := context.WithValue(r.Context(), ctxKey{}, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func UserIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(ctxKey{}).(string)
	return id, ok && id != ""
}
