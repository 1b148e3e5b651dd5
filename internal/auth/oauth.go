package auth

import (
	"github.com/gorilla/sessions"
	"github.com/markbates/goth"
	"github.com/markbates/goth/gothic"
	"github.com/markbates/goth/providers/google"
)

const GoogleProvider = "google"

// UseGoogle registers Google as the only OAuth provider and points gothic at
// the application's cookie store.
func UseGoogle(key, secret, callbackURL string, store sessions.Store) {
	goth.UseProviders(google.New(key, secret, callbackURL, "email"))
	gothic.Store = store
}
