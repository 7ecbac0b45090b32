package token

import (
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// Token types carried in the token_type claim.
const (
	TypeAccess  = "access"
	TypeRefresh = "refresh"
)

var (
	// ExpiredErr is returned when a token's signature is valid but its
	// expiry has passed. Callers treat this as recoverable via the
	// refresh flow.
	ExpiredErr = errors.New("token expired")
	// InvalidTokenErr is returned for malformed tokens, signature
	// mismatches and wrong signing algorithms. Terminal.
	InvalidTokenErr = errors.New("invalid token")
)

// Claims is the decoded payload of a verified token.
type Claims struct {
	UserID    string
	TokenType string
	IssuedAt  time.Time
	ExpiresAt time.Time
	ID        string // jti
}

// Codec signs and verifies claim tokens with a symmetric key. It holds
// no other state; verification is a pure function of signature and
// expiry.
type Codec struct {
	signingKey []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	nowFunc    func() time.Time
}

type CodecOption func(*Codec)

// WithNowFunc sets the now time function (primarily for testing)
func WithNowFunc(now func() time.Time) CodecOption {
	return func(c *Codec) {
		c.nowFunc = now
	}
}

func NewCodec(signingKey []byte, accessTTL, refreshTTL time.Duration, options ...CodecOption) *Codec {
	c := &Codec{
		signingKey: signingKey,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		nowFunc:    time.Now,
	}

	for _, opt := range options {
		opt(c)
	}

	if c.accessTTL == 0 {
		c.accessTTL = 30 * time.Minute
	}
	if c.refreshTTL == 0 {
		c.refreshTTL = 7 * 24 * time.Hour
	}
	return c
}

// IssueAccess creates a short-lived access token bound to userID.
func (c *Codec) IssueAccess(userID string) (string, error) {
	return c.issue(userID, TypeAccess, c.accessTTL)
}

// IssueRefresh creates a longer-lived refresh token bound to userID.
func (c *Codec) IssueRefresh(userID string) (string, error) {
	return c.issue(userID, TypeRefresh, c.refreshTTL)
}

func (c *Codec) issue(userID, tokenType string, ttl time.Duration) (string, error) {
	now := c.nowFunc()
	claims := jwtlib.MapClaims{
		"user_id":    userID,              // Subject of the token
		"token_type": tokenType,           // Distinguishes access from refresh
		"iat":        now.Unix(),          // Issued At
		"exp":        now.Add(ttl).Unix(), // Expiry
		"jti":        uuid.New().String(), // Unique token ID
	}

	signed, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims).SignedString(c.signingKey)
	if err != nil {
		return "", errors.Wrap(err, "[Codec.issue] failed to sign token")
	}
	return signed, nil
}

// Verify checks the signature and expiry of raw and returns its decoded
// claims. An expired but otherwise valid token returns ExpiredErr; any
// other failure returns InvalidTokenErr.
func (c *Codec) Verify(raw string) (*Claims, error) {
	parsed, err := jwtlib.Parse(raw,
		func(t *jwtlib.Token) (any, error) { return c.signingKey, nil },
		jwtlib.WithValidMethods([]string{jwtlib.SigningMethodHS256.Alg()}),
		jwtlib.WithTimeFunc(c.nowFunc),
		jwtlib.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwtlib.ErrTokenExpired) {
			return nil, ExpiredErr
		}
		return nil, InvalidTokenErr
	}

	mapClaims, ok := parsed.Claims.(jwtlib.MapClaims)
	if !ok || !parsed.Valid {
		return nil, InvalidTokenErr
	}

	userID, _ := mapClaims["user_id"].(string)
	if userID == "" {
		return nil, InvalidTokenErr
	}
	tokenType, _ := mapClaims["token_type"].(string)
	jti, _ := mapClaims["jti"].(string)
	iat, _ := mapClaims["iat"].(float64)
	exp, _ := mapClaims["exp"].(float64)

	return &Claims{
		UserID:    userID,
		TokenType: tokenType,
		IssuedAt:  time.Unix(int64(iat), 0),
		ExpiresAt: time.Unix(int64(exp), 0),
		ID:        jti,
	}, nil
}
