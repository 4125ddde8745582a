package handlers

import (
	"context"
	"html/template"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"expense-manager/internal/auth"
	"expense-manager/internal/models"
	"expense-manager/internal/storage"
)

// Context key type to avoid collisions.
type contextKey string

const (
	// UserContextKey is the context key for the authenticated user.
	UserContextKey contextKey = "user"
	// SessionCookieName is the name of the session cookie.
	SessionCookieName = "session"
)

// Handlers holds dependencies for HTTP handlers.
type Handlers struct {
	db              *storage.DB
	templateDir     string
	secureCookie    bool
	sessionDuration time.Duration
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(db *storage.DB, templateDir string, secureCookie bool, sessionDuration time.Duration) *Handlers {
	return &Handlers{
		db:              db,
		templateDir:     templateDir,
		secureCookie:    secureCookie,
		sessionDuration: sessionDuration,
	}
}

// GetUserFromContext retrieves the authenticated user from request context.
func GetUserFromContext(r *http.Request) *models.User {
	if user, ok := r.Context().Value(UserContextKey).(*models.User); ok {
		return user
	}
	return nil
}

// AuthMiddleware wraps handlers to require authentication. Requests without a
// valid session are redirected to the login page. Sessions past the halfway
// point of their lifetime are renewed on use.
func (h *Handlers) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(SessionCookieName)
		if err != nil || cookie.Value == "" {
			http.Redirect(w, r, "/login", http.StatusFound)
			return
		}

		sessionInfo, err := h.db.ValidateSessionWithInfo(cookie.Value)
		if err != nil {
			// Invalid or expired session, clear the cookie
			h.clearSessionCookie(w)
			http.Redirect(w, r, "/login", http.StatusFound)
			return
		}

		// Rolling session: keeps active users logged in while still
		// expiring inactive ones
		now := time.Now()
		if sessionInfo.ExpiresAt.Sub(now) < h.sessionDuration/2 {
			newExpiresAt := now.Add(h.sessionDuration)
			if err := h.db.RenewSession(cookie.Value, newExpiresAt); err == nil {
				h.setSessionCookie(w, cookie.Value)
			}
			// If renewal fails, just continue with the current session
		}

		ctx := context.WithValue(r.Context(), UserContextKey, sessionInfo.User)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Home redirects to the listing when authenticated, otherwise to login.
func (h *Handlers) Home(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(SessionCookieName); err == nil && cookie.Value != "" {
		if _, err := h.db.ValidateSession(cookie.Value); err == nil {
			http.Redirect(w, r, "/view", http.StatusFound)
			return
		}
	}
	http.Redirect(w, r, "/login", http.StatusFound)
}

// AuthViewModel holds data for the login and register pages.
type AuthViewModel struct {
	Error    string
	Username string
}

// LoginForm renders the login page.
func (h *Handlers) LoginForm(w http.ResponseWriter, r *http.Request) {
	// If already logged in, skip straight to the listing
	if cookie, err := r.Cookie(SessionCookieName); err == nil && cookie.Value != "" {
		if _, err := h.db.ValidateSession(cookie.Value); err == nil {
			http.Redirect(w, r, "/view", http.StatusFound)
			return
		}
	}
	h.render(w, "login.html", AuthViewModel{})
}

// Login handles the login form submission.
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.render(w, "login.html", AuthViewModel{Error: "Invalid form submission"})
		return
	}

	username := strings.TrimSpace(r.FormValue("username"))
	password := r.FormValue("password")

	if username == "" || password == "" {
		h.render(w, "login.html", AuthViewModel{Error: "Username and password are required"})
		return
	}

	user, err := h.db.GetUserByUsername(username)
	if err != nil || !auth.CheckPassword(password, user.PasswordHash) {
		h.render(w, "login.html", AuthViewModel{Error: "Invalid username or password", Username: username})
		return
	}

	token, err := auth.GenerateSessionToken()
	if err != nil {
		slog.Error("generate session token", "error", err)
		h.render(w, "login.html", AuthViewModel{Error: "An error occurred. Please try again."})
		return
	}

	if err := h.db.CreateSession(token, user.ID, time.Now().Add(h.sessionDuration)); err != nil {
		slog.Error("create session", "error", err, "user", username)
		h.render(w, "login.html", AuthViewModel{Error: "An error occurred. Please try again."})
		return
	}

	h.setSessionCookie(w, token)
	http.Redirect(w, r, "/view", http.StatusFound)
}

// RegisterForm renders the registration page.
func (h *Handlers) RegisterForm(w http.ResponseWriter, r *http.Request) {
	h.render(w, "register.html", AuthViewModel{})
}

// Register handles the registration form submission. A taken username yields
// a generic duplicate-account message with no further detail.
func (h *Handlers) Register(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.render(w, "register.html", AuthViewModel{Error: "Invalid form submission"})
		return
	}

	username := strings.TrimSpace(r.FormValue("username"))
	password := r.FormValue("password")

	if username == "" || password == "" {
		h.render(w, "register.html", AuthViewModel{Error: "Username and password are required"})
		return
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		slog.Error("hash password", "error", err)
		h.render(w, "register.html", AuthViewModel{Error: "An error occurred. Please try again."})
		return
	}

	if _, err := h.db.CreateUser(username, hash); err != nil {
		// The unique constraint is the only expected failure here
		h.render(w, "register.html", AuthViewModel{Error: "User already exists.", Username: username})
		return
	}

	http.Redirect(w, r, "/login", http.StatusFound)
}

// Logout deletes the session and clears the cookie.
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(SessionCookieName); err == nil {
		if err := h.db.DeleteSession(cookie.Value); err != nil {
			slog.Error("delete session", "error", err)
		}
	}
	h.clearSessionCookie(w)
	http.Redirect(w, r, "/login", http.StatusFound)
}

func (h *Handlers) setSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(h.sessionDuration.Seconds()),
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *Handlers) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}

// render composes the base shell around the named page template. All
// interpolated values go through html/template's contextual escaping.
func (h *Handlers) render(w http.ResponseWriter, viewName string, data any) {
	tmpl, err := template.ParseFiles(
		filepath.Join(h.templateDir, "base.html"),
		filepath.Join(h.templateDir, viewName),
	)
	if err != nil {
		slog.Error("parse templates", "error", err, "view", viewName)
		http.Error(w, "Template error", http.StatusInternalServerError)
		return
	}
	if err := tmpl.ExecuteTemplate(w, "base.html", data); err != nil {
		slog.Error("execute template", "error", err, "view", viewName)
	}
}
