package config

type GoogleConfig interface {
	GetGoogleClientID() string
	GetGoogleClientSecret() string
	GetGoogleOAuthState() string
	GoogleLoginEnabled() bool
}

type Google struct{}

var _ GoogleConfig = Google{}

func (Google) GetGoogleClientID() string {
	return GetEnv("SOCIAL_AUTH_GOOGLE_CLIENT_ID", "")
}

func (Google) GetGoogleClientSecret() string {
	return GetEnv("SOCIAL_AUTH_GOOGLE_SECRET", "")
}

// GetGoogleOAuthState returns the anti-CSRF state value echoed through
// the provider round trip, configured at process start.
func (Google) GetGoogleOAuthState() string {
	return GetEnv("STATE", "")
}

func (g Google) GoogleLoginEnabled() bool {
	return g.GetGoogleClientID() != "" && g.GetGoogleClientSecret() != "" && g.GetGoogleOAuthState() != ""
}
