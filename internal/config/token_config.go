package config

import "time"

type TokenConfig interface {
	GetSigningSecret() string
	GetAccessTokenExpiry() time.Duration
	GetRefreshTokenExpiry() time.Duration
}

type Tokens struct{}

var _ TokenConfig = Tokens{}

// GetSigningSecret returns the symmetric signing key for the token
// codec. It has no default: an empty value must fail startup.
func (Tokens) GetSigningSecret() string {
	return GetEnv("SECRET_KEY", "")
}

func (Tokens) GetAccessTokenExpiry() time.Duration {
	return getDuration("ACCESS_TOKEN_EXPIRY", 30*time.Minute)
}

func (Tokens) GetRefreshTokenExpiry() time.Duration {
	return getDuration("REFRESH_TOKEN_EXPIRY", 7*24*time.Hour)
}

func getDuration(envVar string, defaultValue time.Duration) time.Duration {
	raw := GetEnv(envVar, "")
	if raw == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return defaultValue
	}
	return d
}
