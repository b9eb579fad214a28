// Package adapthttp implements the HTTP adapter for the application.
package adapthttp

import (
	"errors"
	"log"
	"net/http"

	"accounts/internal/app"
	"accounts/internal/domain"
)

const sessionCookieName = "session"

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		Username        string `json:"username"`
		Email           string `json:"email"`
		Password        string `json:"password"`
		ConfirmPassword string `json:"confirmPassword"`
	}
	if err := parseJSON(r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, false, "Invalid request")
		return
	}

	if req.Username == "" || req.Email == "" || req.Password == "" || req.ConfirmPassword == "" {
		writeMessage(w, http.StatusBadRequest, false, "All fields are required")
		return
	}
	if req.Password != req.ConfirmPassword {
		writeMessage(w, http.StatusBadRequest, false, "Passwords do not match")
		return
	}
	if len(req.Password) < 6 {
		writeMessage(w, http.StatusBadRequest, false, "Password must be at least 6 characters")
		return
	}

	_, err := s.auth.Register(r.Context(), req.Username, req.Email, req.Password)
	var verr *app.ValidationError
	switch {
	case errors.As(err, &verr):
		writeMessage(w, http.StatusBadRequest, false, verr.Message)
	case errors.Is(err, domain.ErrDuplicateIdentity):
		writeMessage(w, http.StatusBadRequest, false, "Username or email already exists")
	case err != nil:
		log.Printf("register: %v", err)
		writeMessage(w, http.StatusInternalServerError, false, "Registration failed. Please try again.")
	default:
		writeMessage(w, http.StatusOK, true, "Registration successful! Please login.")
	}
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := parseJSON(r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, false, "Invalid request")
		return
	}
	if req.Username == "" || req.Password == "" {
		writeMessage(w, http.StatusBadRequest, false, "Username and password are required")
		return
	}

	session, err := s.auth.Login(r.Context(), req.Username, req.Password)
	// Same response for an unknown user and a wrong password so the login
	// form cannot be used to enumerate usernames.
	if errors.Is(err, app.ErrUserNotFound) || errors.Is(err, app.ErrInvalidCredentials) {
		writeMessage(w, http.StatusUnauthorized, false, "Invalid username or password")
		return
	}
	if err != nil {
		log.Printf("login: %v", err)
		writeMessage(w, http.StatusInternalServerError, false, "Login failed. Please try again.")
		return
	}

	s.setSessionCookie(w, session.Token)
	writeJSON(w, http.StatusOK, map[string]any{
		"success":    true,
		"message":    "Login successful!",
		"redirectTo": "/welcome",
	})
}

func (s *Server) handleCurrentUser(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	session, err := s.sessionFromRequest(r)
	if errors.Is(err, http.ErrNoCookie) || errors.Is(err, app.ErrSessionNotFound) || errors.Is(err, app.ErrSessionExpired) {
		writeMessage(w, http.StatusUnauthorized, false, "Not logged in")
		return
	}
	if err != nil {
		log.Printf("current user: %v", err)
		writeMessage(w, http.StatusInternalServerError, false, "Something went wrong")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"user": map[string]any{
			"id":       session.UserID,
			"username": session.Username,
		},
	})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	if cookie, err := r.Cookie(sessionCookieName); err == nil {
		if err := s.auth.Logout(r.Context(), cookie.Value); err != nil {
			log.Printf("logout: %v", err)
			writeMessage(w, http.StatusInternalServerError, false, "Logout failed")
			return
		}
	}

	s.clearSessionCookie(w)
	writeMessage(w, http.StatusOK, true, "Logged out successfully")
}

// sessionFromRequest resolves the session cookie to a live session.
func (s *Server) sessionFromRequest(r *http.Request) (*domain.Session, error) {
	cookie, err := r.Cookie(sessionCookieName)
	if err != nil {
		return nil, err
	}
	return s.auth.CurrentSession(r.Context(), cookie.Value)
}

func (s *Server) setSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.cookieSecure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   s.cookieMaxAge,
	})
}

func (s *Server) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   s.cookieSecure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
}
