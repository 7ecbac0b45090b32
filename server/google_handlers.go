package server

import (
	"net/http"

	"github.com/jrsteele09/go-user-auth/social"
	"github.com/pkg/errors"
)

// GoogleLoginHandler redirects the client to Google's authorization
// endpoint with client_id, redirect_uri, scope and response_type=code.
func (s *Server) GoogleLoginHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, s.google.AuthCodeURL(), http.StatusFound)
	}
}

// GoogleCallbackHandler receives the provider redirect: it validates
// the echoed state, exchanges the single-use code, finds or creates the
// local user and opens a session exactly as native login does.
func (s *Server) GoogleCallbackHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if errorParam := r.FormValue("error"); errorParam != "" {
			s.log.Warn().Str("error", errorParam).Msg("google authorization rejected")
			writeStatus(w, http.StatusBadRequest)
			return
		}

		code := r.FormValue("code")
		state := r.FormValue("state")
		if code == "" || !s.google.ValidState(state) {
			writeStatus(w, http.StatusBadRequest)
			return
		}

		session, err := s.google.Login(r.Context(), code)
		if err != nil {
			switch {
			case errors.Is(err, social.ExchangeFailedErr):
				writeStatus(w, http.StatusBadGateway)
			case errors.Is(err, social.UnverifiedEmailErr):
				writeStatus(w, http.StatusForbidden)
			default:
				s.log.Error().Err(err).Msg("google login failed")
				writeStatus(w, http.StatusInternalServerError)
			}
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
