package server

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/jrsteele09/go-user-auth/auth"
	"github.com/pkg/errors"
)

// RegisterHandler creates a user and opens a session: both tokens are
// returned in the envelope and attached as cookies.
func (s *Server) RegisterHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req auth.RegisterRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeStatus(w, http.StatusBadRequest)
			return
		}

		session, err := s.auth.Register(r.Context(), req)
		if err != nil {
			var verr *auth.ValidationError
			if errors.As(err, &verr) {
				writeJSON(w, http.StatusBadRequest, verr.Fields)
				return
			}
			s.log.Error().Err(err).Msg("register failed")
			writeStatus(w, http.StatusInternalServerError)
			return
		}

		s.setSessionCookies(w, r, session.AccessToken, session.RefreshToken)
		writeJSON(w, http.StatusOK, sessionResponse{
			User:    session.User,
			Message: "register success",
			Token:   tokenPayload{Access: session.AccessToken, Refresh: session.RefreshToken},
		})
	}
}

// LoginHandler authenticates email and password. Unknown email and
// wrong password produce the identical generic failure.
func (s *Server) LoginHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Email    string `json:"email"`
			Password string `json:"password"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeStatus(w, http.StatusBadRequest)
			return
		}

		session, err := s.auth.Login(r.Context(), req.Email, req.Password)
		if err != nil {
			if errors.Is(err, auth.InvalidCredentialsErr) {
				writeStatus(w, http.StatusBadRequest)
				return
			}
			s.log.Error().Err(err).Msg("login failed")
			writeStatus(w, http.StatusInternalServerError)
			return
		}

		s.setSessionCookies(w, r, session.AccessToken, session.RefreshToken)
		writeJSON(w, http.StatusOK, sessionResponse{
			User:    session.User,
			Message: "login success",
			Token:   tokenPayload{Access: session.AccessToken, Refresh: session.RefreshToken},
		})
	}
}

// IntrospectHandler resolves the user behind the session cookies. When
// the access token has expired but the refresh token is valid, both
// cookies are rewritten with a freshly minted pair.
func (s *Server) IntrospectHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		accessToken := cookieValue(r, accessCookieName)
		refreshToken := cookieValue(r, refreshCookieName)

		result, err := s.auth.Introspect(r.Context(), accessToken, refreshToken)
		if err != nil {
			switch {
			case errors.Is(err, auth.NoSessionErr), errors.Is(err, auth.InvalidTokenErr):
				writeStatus(w, http.StatusBadRequest)
			case errors.Is(err, auth.UserNotFoundErr):
				writeStatus(w, http.StatusNotFound)
			default:
				s.log.Error().Err(err).Msg("introspect failed")
				writeStatus(w, http.StatusInternalServerError)
			}
			return
		}

		if result.Refreshed {
			s.setSessionCookies(w, r, result.AccessToken, result.RefreshToken)
		}
		writeJSON(w, http.StatusOK, result.User)
	}
}

// LogoutHandler unconditionally clears both cookies. There is no
// server-side invalidation: tokens are stateless and expire on their
// own.
func (s *Server) LogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.clearSessionCookies(w, r)
		writeJSON(w, http.StatusAccepted, messageResponse{Message: "Logout success"})
	}
}

// RefreshHandler rotates a submitted refresh token into a new pair. The
// token is read from the body, falling back to the refresh cookie.
func (s *Server) RefreshHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Refresh string `json:"refresh"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.Refresh == "" {
			req.Refresh = cookieValue(r, refreshCookieName)
		}

		pair, err := s.auth.Refresh(r.Context(), req.Refresh)
		if err != nil {
			if errors.Is(err, auth.InvalidTokenErr) {
				writeStatus(w, http.StatusBadRequest)
				return
			}
			s.log.Error().Err(err).Msg("refresh failed")
			writeStatus(w, http.StatusInternalServerError)
			return
		}

		s.setSessionCookies(w, r, pair.Access, pair.Refresh)
		writeJSON(w, http.StatusOK, pair)
	}
}

// ListUsersHandler is the authenticated diagnostic listing. The bearer
// middleware has already resolved the caller.
func (s *Server) ListUsersHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		offset, err := strconv.Atoi(r.URL.Query().Get("offset"))
		if err != nil || offset < 0 {
			offset = 0
		}
		limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
		if err != nil || limit <= 0 {
			limit = 50
		}

		if caller, ok := UserFromContext(r.Context()); ok {
			s.log.Debug().Str("caller_id", caller.ID).Msg("user listing requested")
		}

		list, err := s.auth.ListUsers(r.Context(), offset, limit)
		if err != nil {
			s.log.Error().Err(err).Msg("list users failed")
			writeStatus(w, http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}
