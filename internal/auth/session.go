package auth

import (
	"net/http"

	"github.com/gorilla/securecookie"
	"github.com/gorilla/sessions"
)

const (
	SessionName   = "tile_session"
	sessionUserID = "user_id"
	sessionMaxAge = 86400 * 30
)

// NewSessionStore returns a signed cookie store. An empty secret gets a random
// key, so sessions do not survive a restart.
func NewSessionStore(secret string, secure bool) *sessions.CookieStore {
	key := []byte(secret)
	if secret == "" {
		key = securecookie.GenerateRandomKey(32)
	}
	store := sessions.NewCookieStore(key)
	store.MaxAge(sessionMaxAge)
	store.Options.Path = "/"
	store.Options.HttpOnly = true
	store.Options.Secure = secure
	return store
}

// SaveUser records the signed-in user in the session cookie.
func SaveUser(w http.ResponseWriter, r *http.Request, store sessions.Store, userID string) error {
	session, err := store.Get(r, SessionName)
	if err != nil && session == nil {
		return err
	}
	session.Values[sessionUserID] = userID
	return session.Save(r, w)
}

// ClearUser expires the session cookie.
func ClearUser(w http.ResponseWriter, r *http.Request, store sessions.Store) error {
	session, err := store.Get(r, SessionName)
	if err != nil && session == nil {
		return err
	}
	delete(session.Values, sessionUserID)
	opts := *session.Options
	opts.MaxAge = -1
	session.Options = &opts
	return session.Save(r, w)
}
