package social

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"sync"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/jrsteele09/go-user-auth/auth"
	"github.com/jrsteele09/go-user-auth/users"
	"github.com/pkg/errors"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const (
	// googleIssuer is the OIDC issuer for Google accounts.
	googleIssuer = "https://accounts.google.com"
	// exchangeTimeout bounds every outbound call to the provider.
	exchangeTimeout = 10 * time.Second
)

var (
	ExchangeFailedErr  = errors.New("authorization code exchange failed")
	UnverifiedEmailErr = errors.New("provider email not verified")
)

// Profile is the provider-verified identity extracted from a Google ID
// token.
type Profile struct {
	Subject       string
	Email         string
	EmailVerified bool
	GivenName     string
	FamilyName    string
}

// GoogleAuthenticator exchanges an authorization code with Google and
// maps the resulting profile onto a local user, producing the same
// session artifacts as native login.
type GoogleAuthenticator struct {
	oauthConfig *oauth2.Config
	state       string
	authService *auth.Service
	userRepo    users.UserRepo

	providerLock sync.Mutex
	verifier     *oidc.IDTokenVerifier
}

// NewGoogleAuthenticator wires the provider credentials configured at
// process start. redirectURL must be the absolute callback URL.
func NewGoogleAuthenticator(clientID, clientSecret, state, redirectURL string, authService *auth.Service, userRepo users.UserRepo) (*GoogleAuthenticator, error) {
	if clientID == "" || clientSecret == "" {
		return nil, errors.New("[NewGoogleAuthenticator] client id and secret are required")
	}
	if state == "" {
		return nil, errors.New("[NewGoogleAuthenticator] state value is required")
	}
	if authService == nil {
		return nil, errors.New("[NewGoogleAuthenticator] auth service is required")
	}
	if userRepo == nil {
		return nil, errors.New("[NewGoogleAuthenticator] user repo is required")
	}

	return &GoogleAuthenticator{
		oauthConfig: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			Endpoint:     google.Endpoint,
			RedirectURL:  redirectURL,
			Scopes:       []string{oidc.ScopeOpenID, "email", "profile"},
		},
		state:       state,
		authService: authService,
		userRepo:    userRepo,
	}, nil
}

// AuthCodeURL returns the provider authorization endpoint the client is
// redirected to: client_id, redirect_uri, scope, response_type=code and
// the configured state.
func (g *GoogleAuthenticator) AuthCodeURL() string {
	return g.oauthConfig.AuthCodeURL(g.state)
}

// ValidState reports whether the state echoed back by the provider
// matches the configured anti-CSRF value.
func (g *GoogleAuthenticator) ValidState(state string) bool {
	return subtle.ConstantTimeCompare([]byte(state), []byte(g.state)) == 1
}

// Exchange swaps the single-use authorization code for a provider
// access token and returns the verified profile from the ID token.
func (g *GoogleAuthenticator) Exchange(ctx context.Context, code string) (*Profile, error) {
	ctx, cancel := context.WithTimeout(ctx, exchangeTimeout)
	defer cancel()

	oauth2Token, err := g.oauthConfig.Exchange(ctx, code)
	if err != nil {
		return nil, ExchangeFailedErr
	}

	rawIDToken, ok := oauth2Token.Extra("id_token").(string)
	if !ok {
		return nil, ExchangeFailedErr
	}

	verifier, err := g.idTokenVerifier(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "[GoogleAuthenticator.Exchange] idTokenVerifier")
	}

	idToken, err := verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return nil, ExchangeFailedErr
	}

	var claims struct {
		Email         string `json:"email"`
		EmailVerified bool   `json:"email_verified"`
		GivenName     string `json:"given_name"`
		FamilyName    string `json:"family_name"`
	}
	if err := idToken.Claims(&claims); err != nil {
		return nil, errors.Wrap(err, "[GoogleAuthenticator.Exchange] extract claims")
	}

	return &Profile{
		Subject:       idToken.Subject,
		Email:         claims.Email,
		EmailVerified: claims.EmailVerified,
		GivenName:     claims.GivenName,
		FamilyName:    claims.FamilyName,
	}, nil
}

// Login performs the full callback sequence: exchange the code, find or
// create the local user keyed by the provider-verified email, then
// issue the same token pair as native login.
func (g *GoogleAuthenticator) Login(ctx context.Context, code string) (*auth.Session, error) {
	profile, err := g.Exchange(ctx, code)
	if err != nil {
		return nil, err
	}

	return g.SessionFromProfile(ctx, profile)
}

// SessionFromProfile maps a provider-verified profile onto a local user
// and issues the same session artifacts as native login. The profile
// email must be verified by the provider.
func (g *GoogleAuthenticator) SessionFromProfile(ctx context.Context, profile *Profile) (*auth.Session, error) {
	if !profile.EmailVerified {
		return nil, UnverifiedEmailErr
	}

	user, err := g.findOrCreateUser(ctx, profile)
	if err != nil {
		return nil, err
	}

	return g.authService.IssueSession(ctx, user)
}

func (g *GoogleAuthenticator) findOrCreateUser(ctx context.Context, profile *Profile) (*users.User, error) {
	// Providers may report the email with different casing than the
	// user registered with; canonicalize before lookup so one identity
	// stays one record.
	email := users.NormalizeEmail(profile.Email)

	user, err := g.userRepo.GetByEmail(ctx, email)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, users.ErrNotFound) {
		return nil, errors.Wrap(err, "[GoogleAuthenticator.findOrCreateUser] GetByEmail")
	}

	// Provider-created accounts get an unusable random password; they
	// can only authenticate through the provider until a reset.
	passwordHash, err := users.HashPassword(randomSecret())
	if err != nil {
		return nil, errors.Wrap(err, "[GoogleAuthenticator.findOrCreateUser] HashPassword")
	}

	user = &users.User{
		Email:        email,
		PasswordHash: passwordHash,
		FirstName:    profile.GivenName,
		LastName:     profile.FamilyName,
		Provider:     users.ProviderGoogle,
		DateJoined:   time.Now().UTC(),
	}

	if err := g.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, users.ErrEmailTaken) {
			// Lost a first-login race; the record now exists.
			return g.userRepo.GetByEmail(ctx, email)
		}
		return nil, errors.Wrap(err, "[GoogleAuthenticator.findOrCreateUser] Create")
	}
	return user, nil
}

// idTokenVerifier lazily constructs the Google OIDC verifier so process
// start does not depend on provider reachability.
func (g *GoogleAuthenticator) idTokenVerifier(ctx context.Context) (*oidc.IDTokenVerifier, error) {
	g.providerLock.Lock()
	defer g.providerLock.Unlock()

	if g.verifier != nil {
		return g.verifier, nil
	}

	provider, err := oidc.NewProvider(ctx, googleIssuer)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create OIDC provider")
	}

	g.verifier = provider.Verifier(&oidc.Config{ClientID: g.oauthConfig.ClientID})
	return g.verifier, nil
}

// randomSecret creates a random base64url string
func randomSecret() string {
	b := make([]byte, 32)
	rand.Read(b)
	return base64.RawURLEncoding.EncodeToString(b)
}
