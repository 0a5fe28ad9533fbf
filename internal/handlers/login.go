package handlers

import (
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/shkkonda/eml-viewer/internal/auth"
)

// ShowLogin renders the login page. Already-authenticated visitors are
// sent straight to the dashboard.
func (h *Handlers) ShowLogin(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(auth.CookieName); err == nil {
		if _, ok := h.sessions.Get(cookie.Value); ok {
			http.Redirect(w, r, "/", http.StatusSeeOther)
			return
		}
	}

	h.renderLogin(w, "", http.StatusOK)
}

// HandleLogin processes the login form.
func (h *Handlers) HandleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form", http.StatusBadRequest)
		return
	}

	username := strings.TrimSpace(r.PostFormValue("username"))
	password := r.PostFormValue("password")

	if username == "" || password == "" {
		h.renderLogin(w, "Username and password are required", http.StatusBadRequest)
		return
	}

	if !h.creds.Check(username, password) {
		h.logger.Warn("failed login attempt", zap.String("username", username))
		h.renderLogin(w, "Invalid username or password", http.StatusUnauthorized)
		return
	}

	sess := h.sessions.Create(username)
	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    sess.Token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// Logout ends the current session and clears the cookie.
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(auth.CookieName); err == nil {
		h.sessions.Delete(cookie.Value)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})

	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

func (h *Handlers) renderLogin(w http.ResponseWriter, errMsg string, status int) {
	data := map[string]interface{}{
		"PageTitle": "Login - EML Viewer",
		"Error":     errMsg,
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := h.templates.ExecuteTemplate(w, "login.html", data); err != nil {
		h.logger.Error("template error", zap.Error(err))
	}
}
