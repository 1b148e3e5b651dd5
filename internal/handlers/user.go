package handlers

import (
	"errors"
	"net/http"
	"net/mail"
	"strings"

	"github.com/markbates/goth/gothic"
	"github.com/petermazzocco/tile-studio-api/internal/auth"
	"github.com/petermazzocco/tile-studio-api/internal/store"
	"github.com/petermazzocco/tile-studio-api/models"
)

const (
	minPasswordLength = 6
	// bcrypt rejects longer input.
	maxPasswordLength = 72
)

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func validEmail(email string) bool {
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == email
}

func (h *Handlers) Register(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "/register")

	var in credentials
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	in.Email = strings.TrimSpace(in.Email)
	if in.Email == "" || in.Password == "" {
		writeError(w, http.StatusBadRequest, "Email and password are required")
		return
	}
	if !validEmail(in.Email) {
		writeError(w, http.StatusBadRequest, "Invalid email format")
		return
	}
	if len(in.Password) < minPasswordLength {
		writeError(w, http.StatusBadRequest, "Password must be at least 6 characters")
		return
	}
	if len(in.Password) > maxPasswordLength {
		writeError(w, http.StatusBadRequest, "Password must be at most 72 bytes")
		return
	}

	// Check-then-insert is not atomic; a concurrent duplicate fails in Create
	// on the unique index and is reported as a 500.
	_, err := h.Users.FindByEmail(r.Context(), in.Email)
	switch {
	case err == nil:
		writeError(w, http.StatusBadRequest, "Email already exists")
		return
	case !errors.Is(err, store.ErrUserNotFound):
		log.WithError(err).Error("lookup user failed")
		writeError(w, http.StatusInternalServerError, "Database error")
		return
	}

	hash, err := h.Passwords.Hash(in.Password)
	if err != nil {
		log.WithError(err).Error("hash password failed")
		writeError(w, http.StatusInternalServerError, "Failed to create user")
		return
	}
	if _, err := h.Users.Create(r.Context(), in.Email, hash); err != nil {
		log.WithError(err).WithField("email", in.Email).Error("create user failed")
		writeError(w, http.StatusInternalServerError, "Failed to create user")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{"message": "User registered successfully"})
}

func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "/login")

	var in credentials
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	in.Email = strings.TrimSpace(in.Email)
	if in.Email == "" || in.Password == "" {
		writeError(w, http.StatusBadRequest, "Email and password are required")
		return
	}

	user, err := h.Users.FindByEmail(r.Context(), in.Email)
	if errors.Is(err, store.ErrUserNotFound) {
		// 400 rather than 404; existing clients depend on it.
		writeError(w, http.StatusBadRequest, "User not found")
		return
	}
	if err != nil {
		log.WithError(err).Error("lookup user failed")
		writeError(w, http.StatusInternalServerError, "Database error")
		return
	}
	if !h.Passwords.Verify(in.Password, user.PasswordHash) {
		writeError(w, http.StatusUnauthorized, "Invalid password")
		return
	}

	if err := auth.SaveUser(w, r, h.Sessions, user.ID); err != nil {
		log.WithError(err).Warn("save session failed")
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Login successful",
		"user":    map[string]any{"id": user.ID, "email": user.Email},
	})
}

// GetUser returns the account behind the session cookie.
func (h *Handlers) GetUser(w http.ResponseWriter, r *http.Request) {
	id, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Not Authorized")
		return
	}

	user, err := h.Users.FindByID(r.Context(), id)
	if errors.Is(err, store.ErrUserNotFound) {
		writeError(w, http.StatusNotFound, "User not found")
		return
	}
	if err != nil {
		h.logger(r, "/api/user").WithError(err).Error("lookup user failed")
		writeError(w, http.StatusInternalServerError, "Database error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": user.ID, "email": user.Email})
}

func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	if err := auth.ClearUser(w, r, h.Sessions); err != nil {
		h.logger(r, "/logout").WithError(err).Warn("clear session failed")
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "Logged out"})
}

func withGoogleProvider(r *http.Request) *http.Request {
	q := r.URL.Query()
	q.Set("provider", auth.GoogleProvider)
	r.URL.RawQuery = q.Encode()
	return r
}

func (h *Handlers) GoogleBegin(w http.ResponseWriter, r *http.Request) {
	gothic.BeginAuthHandler(w, withGoogleProvider(r))
}

// GoogleCallback signs in, creating a password-less user on first visit.
func (h *Handlers) GoogleCallback(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "/auth/google/callback")

	gu, err := gothic.CompleteUserAuth(w, withGoogleProvider(r))
	if err != nil {
		log.WithError(err).Warn("complete oauth failed")
		writeError(w, http.StatusUnauthorized, "Google sign-in failed")
		return
	}
	if gu.Email == "" {
		writeError(w, http.StatusBadRequest, "Google account has no email")
		return
	}

	var user *models.User
	user, err = h.Users.FindByEmail(r.Context(), gu.Email)
	if errors.Is(err, store.ErrUserNotFound) {
		user, err = h.Users.Create(r.Context(), gu.Email, "")
	}
	if err != nil {
		log.WithError(err).WithField("email", gu.Email).Error("oauth user failed")
		writeError(w, http.StatusInternalServerError, "Database error")
		return
	}

	if err := auth.SaveUser(w, r, h.Sessions, user.ID); err != nil {
		log.WithError(err).Error("save session failed")
		writeError(w, http.StatusInternalServerError, "Failed to save session")
		return
	}
	http.Redirect(w, r, "/", http.StatusTemporaryRedirect)
}
