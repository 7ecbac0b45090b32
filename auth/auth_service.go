package auth

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jrsteele09/go-user-auth/token"
	"github.com/jrsteele09/go-user-auth/users"
	"github.com/pkg/errors"
)

// RegisterRequest holds candidate user fields for registration.
type RegisterRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// Session is the artifact of a successful register or login: the user
// record plus a freshly issued token pair. The pair is carried by the
// client as cookies; no server-side session table exists.
type Session struct {
	User         *users.User
	AccessToken  string
	RefreshToken string
}

// TokenPair is the result of a standalone refresh.
type TokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// IntrospectionResult reports the outcome of inspecting a session's
// cookies. Refreshed is true when the access token was expired and a
// new pair was minted from the refresh token; both cookies must then be
// rewritten by the caller.
type IntrospectionResult struct {
	User         *users.User
	Refreshed    bool
	AccessToken  string
	RefreshToken string
}

// Service orchestrates the register/login/introspect/refresh/logout
// lifecycle around the user store and token codec.
type Service struct {
	userRepo users.UserRepo
	codec    *token.Codec
	nowTime  func() time.Time // nowTime function (injectable for testing)
}

type ServiceOption func(*Service)

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) ServiceOption {
	return func(s *Service) {
		s.nowTime = nowFunc
	}
}

func NewService(userRepo users.UserRepo, codec *token.Codec, options ...ServiceOption) (*Service, error) {
	if userRepo == nil {
		return nil, errors.New("[NewService] user repo is required")
	}
	if codec == nil {
		return nil, errors.New("[NewService] token codec is required")
	}

	s := &Service{
		userRepo: userRepo,
		codec:    codec,
		nowTime:  time.Now,
	}

	for _, opt := range options {
		opt(s)
	}

	return s, nil
}

// Register validates the candidate fields, persists the user and issues
// a fresh token pair. Duplicate emails surface as a field-level
// ValidationError, including the create/create race.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*Session, error) {
	if verr := ValidateRegistration(req); verr != nil {
		return nil, verr
	}

	passwordHash, err := users.HashPassword(req.Password)
	if err != nil {
		return nil, errors.Wrap(err, "[Service.Register] HashPassword")
	}

	user := &users.User{
		ID:           uuid.New().String(),
		Email:        users.NormalizeEmail(req.Email),
		PasswordHash: passwordHash,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		DateJoined:   s.nowTime().UTC(),
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, users.ErrEmailTaken) {
			return nil, &ValidationError{Fields: map[string]string{"email": "email already registered"}}
		}
		return nil, errors.Wrap(err, "[Service.Register] userRepo.Create")
	}

	return s.IssueSession(ctx, user)
}

// Login authenticates email and password. Unknown email and wrong
// password are indistinguishable to the caller: both return
// InvalidCredentialsErr.
func (s *Service) Login(ctx context.Context, email, password string) (*Session, error) {
	user, err := s.userRepo.GetByEmail(ctx, users.NormalizeEmail(email))
	if err != nil {
		return nil, InvalidCredentialsErr
	}

	if !users.CheckPasswordHash(password, user.PasswordHash) {
		return nil, InvalidCredentialsErr
	}

	return s.IssueSession(ctx, user)
}

// IssueSession stamps the user's last login and issues a fresh token
// pair. Used by native login/registration and by social login once the
// provider has vouched for the user.
func (s *Service) IssueSession(ctx context.Context, user *users.User) (*Session, error) {
	now := s.nowTime().UTC()
	if err := s.userRepo.SetLastLogin(ctx, user.ID, now); err != nil {
		return nil, errors.Wrap(err, "[Service.IssueSession] SetLastLogin")
	}
	user.LastLogin = now

	access, err := s.codec.IssueAccess(user.ID)
	if err != nil {
		return nil, errors.Wrap(err, "[Service.IssueSession] IssueAccess")
	}
	refresh, err := s.codec.IssueRefresh(user.ID)
	if err != nil {
		return nil, errors.Wrap(err, "[Service.IssueSession] IssueRefresh")
	}

	return &Session{User: user, AccessToken: access, RefreshToken: refresh}, nil
}

// Introspect resolves the user behind a session's cookies.
//
// A valid access token resolves directly. An expired access token
// enters the refresh sub-flow: if the refresh token verifies, a new
// pair is minted (the refresh token is genuinely rotated, not re-derived
// from the access claim) and Refreshed is set so the caller rewrites
// both cookies. Any other token failure is terminal.
func (s *Service) Introspect(ctx context.Context, accessToken, refreshToken string) (*IntrospectionResult, error) {
	if strings.TrimSpace(accessToken) == "" {
		return nil, NoSessionErr
	}

	claims, err := s.codec.Verify(accessToken)
	switch {
	case err == nil:
		if claims.TokenType != token.TypeAccess {
			return nil, InvalidTokenErr
		}
		user, err := s.userRepo.GetByID(ctx, claims.UserID)
		if err != nil {
			return nil, UserNotFoundErr
		}
		return &IntrospectionResult{User: user}, nil

	case errors.Is(err, token.ExpiredErr):
		return s.refreshSession(ctx, refreshToken)

	default:
		return nil, InvalidTokenErr
	}
}

// refreshSession handles the expired-but-refreshable state: it mints a
// new token pair from a valid refresh token.
func (s *Service) refreshSession(ctx context.Context, refreshToken string) (*IntrospectionResult, error) {
	pair, userID, err := s.rotate(refreshToken)
	if err != nil {
		return nil, err
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, UserNotFoundErr
	}

	return &IntrospectionResult{
		User:         user,
		Refreshed:    true,
		AccessToken:  pair.Access,
		RefreshToken: pair.Refresh,
	}, nil
}

// Refresh mints a new token pair from a submitted refresh token.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	pair, _, err := s.rotate(refreshToken)
	return pair, err
}

func (s *Service) rotate(refreshToken string) (*TokenPair, string, error) {
	if strings.TrimSpace(refreshToken) == "" {
		return nil, "", InvalidTokenErr
	}

	claims, err := s.codec.Verify(refreshToken)
	if err != nil || claims.TokenType != token.TypeRefresh {
		return nil, "", InvalidTokenErr
	}

	access, err := s.codec.IssueAccess(claims.UserID)
	if err != nil {
		return nil, "", errors.Wrap(err, "[Service.rotate] IssueAccess")
	}
	refresh, err := s.codec.IssueRefresh(claims.UserID)
	if err != nil {
		return nil, "", errors.Wrap(err, "[Service.rotate] IssueRefresh")
	}

	return &TokenPair{Access: access, Refresh: refresh}, claims.UserID, nil
}

// UserFromAccessToken resolves a bearer access token to its user.
func (s *Service) UserFromAccessToken(ctx context.Context, rawToken string) (*users.User, error) {
	if strings.TrimSpace(rawToken) == "" {
		return nil, NoSessionErr
	}

	claims, err := s.codec.Verify(rawToken)
	if err != nil || claims.TokenType != token.TypeAccess {
		return nil, InvalidTokenErr
	}

	user, err := s.userRepo.GetByID(ctx, claims.UserID)
	if err != nil {
		return nil, UserNotFoundErr
	}
	return user, nil
}

// ListUsers returns a page of users for the authenticated diagnostic
// listing.
func (s *Service) ListUsers(ctx context.Context, offset, limit int) ([]*users.User, error) {
	list, err := s.userRepo.List(ctx, offset, limit)
	if err != nil {
		return nil, errors.Wrap(err, "[Service.ListUsers] userRepo.List")
	}
	return list, nil
}
