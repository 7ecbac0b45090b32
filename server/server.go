package server

import (
	"net/http"
	"strings"

	"github.com/jrsteele09/go-user-auth/auth"
	"github.com/jrsteele09/go-user-auth/internal/config"
	"github.com/jrsteele09/go-user-auth/social"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

type Server struct {
	env    string // Environment (e.g., "DEV", "production")
	mux    *http.ServeMux
	routes []string
	config config.Config
	auth   *auth.Service
	google *social.GoogleAuthenticator // nil when social login is not configured
	log    zerolog.Logger
}

func New(cfg config.Config, authService *auth.Service, google *social.GoogleAuthenticator, logger zerolog.Logger) (*Server, error) {
	if authService == nil {
		return nil, errors.New("[Server New] auth service is required")
	}

	s := &Server{
		mux:    http.NewServeMux(),
		config: cfg,
		auth:   authService,
		google: google,
		log:    logger,
	}
	s.env = cfg.GetEnv()

	s.initRoutes()
	s.logRoutes()

	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) RegisterRouteHandler(pattern string, handler http.Handler) {
	s.routes = append(s.routes, pattern)
	s.mux.Handle(pattern, handler)
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return // Skip logging in non-development environments
	}
	for _, route := range s.routes {
		parts := strings.SplitN(route, " ", 2)
		if len(parts) > 1 {
			s.log.Debug().Str("method", parts[0]).Str("path", parts[1]).Msg("route registered")
		} else {
			s.log.Debug().Str("path", parts[0]).Msg("route registered")
		}
	}
}

// Helper function to determine the scheme (http/https)
func getScheme(r *http.Request) string {
	if r.TLS != nil {
		return "https"
	}
	if scheme := r.Header.Get("X-Forwarded-Proto"); scheme != "" {
		return scheme
	}
	return "http"
}
