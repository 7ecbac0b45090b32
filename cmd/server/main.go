package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/jrsteele09/go-user-auth/auth"
	"github.com/jrsteele09/go-user-auth/internal/config"
	"github.com/jrsteele09/go-user-auth/server"
	"github.com/jrsteele09/go-user-auth/social"
	"github.com/jrsteele09/go-user-auth/token"
	"github.com/jrsteele09/go-user-auth/users"
	"github.com/jrsteele09/go-user-auth/users/repofake"
	"github.com/jrsteele09/go-user-auth/users/sqliterepo"
	"github.com/rs/zerolog"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error running server: %s\n", err)
		os.Exit(1)
	}
}

func run() error {
	c := config.New()

	logger := newLogger(c)
	displayAppname(c.GetAppName())

	secret := c.GetSigningSecret()
	if secret == "" {
		return fmt.Errorf("SECRET_KEY must be set")
	}

	userRepo, cleanup, err := newUserRepo(c, logger)
	if err != nil {
		return fmt.Errorf("user repo: %w", err)
	}
	defer cleanup()

	codec := token.NewCodec([]byte(secret), c.GetAccessTokenExpiry(), c.GetRefreshTokenExpiry())

	authService, err := auth.NewService(userRepo, codec)
	if err != nil {
		return fmt.Errorf("auth service: %w", err)
	}

	var google *social.GoogleAuthenticator
	if c.GoogleLoginEnabled() {
		google, err = social.NewGoogleAuthenticator(
			c.GetGoogleClientID(),
			c.GetGoogleClientSecret(),
			c.GetGoogleOAuthState(),
			c.GetBaseURL()+server.RouteGoogleCallback,
			authService,
			userRepo,
		)
		if err != nil {
			return fmt.Errorf("google authenticator: %w", err)
		}
	} else {
		logger.Warn().Msg("google social login disabled: credentials not configured")
	}

	srv, err := server.New(c, authService, google, logger)
	if err != nil {
		return fmt.Errorf("server: %w", err)
	}

	httpServer := &http.Server{Addr: c.GetPort(), Handler: srv}
	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", httpServer.Addr).Msg("server listening")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-stopSignal():
	}

	return shutdown(httpServer)
}

func newLogger(c config.Config) zerolog.Logger {
	if c.GetEnv() == "DEV" {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stderr).With().Timestamp().Logger()
}

// newUserRepo selects the SQLite store when a data folder is
// configured, falling back to the in-memory store.
func newUserRepo(c config.Config, logger zerolog.Logger) (users.UserRepo, func(), error) {
	folder := c.GetDataFolder()
	if folder == "" {
		logger.Warn().Msg("no data folder configured: users are stored in memory")
		return repofake.NewFakeUserRepo(), func() {}, nil
	}

	if err := os.MkdirAll(folder, 0o755); err != nil {
		return nil, nil, err
	}

	repo, err := sqliterepo.Open(filepath.Join(folder, "users.db"))
	if err != nil {
		return nil, nil, err
	}
	return repo, func() { _ = repo.Close() }, nil
}

func stopSignal() <-chan os.Signal {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	return stop
}

func shutdown(server *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
