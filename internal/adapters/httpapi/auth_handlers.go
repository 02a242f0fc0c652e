package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"github.com/shoplist-app/shoplist-api/internal/app/auth"
	"github.com/shoplist-app/shoplist-api/internal/domain"
)

type loginRequest struct {
	Email      string `json:"email" validate:"required,email,max=255"`
	Password   string `json:"password" validate:"required,max=72"`
	RememberMe bool   `json:"rememberMe"`
}

func (r *loginRequest) normalize() { r.Email = domain.NormalizeEmail(r.Email) }

type registerRequest struct {
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

func (r *registerRequest) normalize() { r.Email = domain.NormalizeEmail(r.Email) }

type requestResetRequest struct {
	Email string `json:"email" validate:"required,email,max=255"`
}

func (r *requestResetRequest) normalize() { r.Email = domain.NormalizeEmail(r.Email) }

type resetPasswordRequest struct {
	Token    string `json:"token" validate:"required"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

func (r *resetPasswordRequest) normalize() { r.Token = strings.TrimSpace(r.Token) }

var errAuthNotConfigured = errors.New("auth service not configured")

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if s.Auth == nil {
		writeInternal(w, r, s.Log, errAuthNotConfigured)
		return
	}
	sess, err := s.Auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeAuthError(w, r, s.Log, err)
		return
	}
	s.Cookies.setSession(w, sess, req.RememberMe)
	writeJSON(w, http.StatusOK, sessionUserDTO{ID: string(sess.User.ID), Email: sess.User.Email})
}

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if s.Auth == nil {
		writeInternal(w, r, s.Log, errAuthNotConfigured)
		return
	}
	u, err := s.Auth.Register(r.Context(), req.Email, req.Password)
	if err != nil {
		writeAuthError(w, r, s.Log, err)
		return
	}
	writeJSON(w, http.StatusCreated, sessionUserDTO{ID: string(u.ID), Email: u.Email})
}

// logout answers 204 whatever the provider says; session cookies are always cleared.
func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	if s.Auth == nil {
		writeInternal(w, r, s.Log, errAuthNotConfigured)
		return
	}
	creds := credentialsFromRequest(r)
	if err := s.Auth.Logout(r.Context(), creds.AccessToken); err != nil {
		s.Log.WarnContext(r.Context(), "provider sign out failed", "err", err)
	}
	s.Cookies.clearSession(w)
	w.WriteHeader(http.StatusNoContent)
}

type messageResponse struct {
	Message string `json:"message"`
}

func (s *Server) requestReset(w http.ResponseWriter, r *http.Request) {
	var req requestResetRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if s.Auth == nil {
		writeInternal(w, r, s.Log, errAuthNotConfigured)
		return
	}
	s.Auth.RequestPasswordReset(r.Context(), req.Email)
	writeJSON(w, http.StatusOK, messageResponse{Message: auth.MsgResetRequested})
}

func (s *Server) resetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if s.Auth == nil {
		writeInternal(w, r, s.Log, errAuthNotConfigured)
		return
	}
	if err := s.Auth.CompletePasswordReset(r.Context(), req.Token, req.Password); err != nil {
		writeAuthError(w, r, s.Log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) me(w http.ResponseWriter, r *http.Request) {
	ra, ok := AuthFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "", msgAuthRequired, nil)
		return
	}
	writeJSON(w, http.StatusOK, userFromDomain(ra.User))
}
