package http

import (
	"errors"
	"net/http"
	"time"

	"fintrack/internal/auth"
	"fintrack/internal/services"
	"fintrack/internal/storage"
)

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	p := NewRequestBodyParser(w, r)
	if err := p.Parse(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	sess, err := s.svc.Accounts.Register(r.Context(), services.RegisterInput{
		Name:     p.Get("name"),
		Email:    p.Get("email"),
		Password: p.Get("password"),
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	setSessionCookie(w, r, sess)
	writeMessage(w, http.StatusCreated, "User registered successfully", map[string]any{
		"token":      sess.Token,
		"expires_at": sess.ExpiresAt.UTC().Format(time.RFC3339),
		"user":       newUserView(sess.User),
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	p := NewRequestBodyParser(w, r)
	if err := p.Parse(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	email, password := p.Get("email"), p.Get("password")
	if email == "" || password == "" {
		writeError(w, http.StatusBadRequest, "Missing email or password")
		return
	}

	sess, err := s.svc.Accounts.Login(r.Context(), email, password)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	setSessionCookie(w, r, sess)
	writeMessage(w, http.StatusOK, "Login successful", map[string]any{
		"token":      sess.Token,
		"expires_at": sess.ExpiresAt.UTC().Format(time.RFC3339),
		"user":       newUserView(sess.User),
	})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	clearSessionCookie(w, r)
	writeMessage(w, http.StatusOK, "Logged out", nil)
}

func clearSessionCookie(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())
	u, err := s.svc.Accounts.Me(r.Context(), uid)
	if errors.Is(err, storage.ErrNotFound) {
		// token outlived its account
		writeServiceError(w, r, auth.ErrUnauthorized)
		return
	}
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": newUserView(u)})
}

func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())
	p := NewRequestBodyParser(w, r)
	if err := p.Parse(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	upd := services.ProfileUpdate{
		Name:           p.Optional("name"),
		Email:          p.Optional("email"),
		ProfilePicture: p.Optional("profile_picture"),
	}
	// an empty password means "keep the current one"
	if pw := p.Get("password"); pw != "" {
		upd.Password = &pw
	}

	u, err := s.svc.Accounts.UpdateProfile(r.Context(), uid, upd)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "Profile updated successfully", map[string]any{"user": newUserView(u)})
}

func (s *Server) handleDeleteProfile(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())
	if err := s.svc.Accounts.DeleteAccount(r.Context(), uid); err != nil {
		writeServiceError(w, r, err)
		return
	}
	clearSessionCookie(w, r)
	writeMessage(w, http.StatusOK, "Account deleted successfully", nil)
}

func setSessionCookie(w http.ResponseWriter, r *http.Request, sess services.Session) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    sess.Token,
		Path:     "/",
		Expires:  sess.ExpiresAt,
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
}
