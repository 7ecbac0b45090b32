package auth_test

import (
	"context"
	"testing"
	"time"

	"github.com/jrsteele09/go-user-auth/auth"
	"github.com/jrsteele09/go-user-auth/token"
	"github.com/jrsteele09/go-user-auth/users"
	"github.com/jrsteele09/go-user-auth/users/repofake"
	"github.com/stretchr/testify/require"
)

const (
	testUserEmail    = "john.doe@example.com"
	testUserPassword = "Password123"
	accessTTL        = 30 * time.Minute
	refreshTTL       = 7 * 24 * time.Hour
)

// testFixture holds all test dependencies plus a movable clock.
type testFixture struct {
	userRepo *repofake.FakeUserRepo
	codec    *token.Codec
	service  *auth.Service
	now      time.Time
}

func setupTestFixture(t *testing.T) *testFixture {
	t.Helper()

	f := &testFixture{
		userRepo: repofake.NewFakeUserRepo(),
		now:      time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}

	nowFunc := func() time.Time { return f.now }
	f.codec = token.NewCodec([]byte("test-secret"), accessTTL, refreshTTL, token.WithNowFunc(nowFunc))

	service, err := auth.NewService(f.userRepo, f.codec, auth.WithNowTime(nowFunc))
	require.NoError(t, err)
	f.service = service

	return f
}

func (f *testFixture) register(t *testing.T) *auth.Session {
	t.Helper()

	session, err := f.service.Register(context.Background(), auth.RegisterRequest{
		Email:     testUserEmail,
		Password:  testUserPassword,
		FirstName: "John",
		LastName:  "Doe",
	})
	require.NoError(t, err)
	return session
}

func TestRegisterIssuesSession(t *testing.T) {
	f := setupTestFixture(t)

	session := f.register(t)
	require.Equal(t, testUserEmail, session.User.Email)
	require.NotEmpty(t, session.User.ID)
	require.NotEmpty(t, session.AccessToken)
	require.NotEmpty(t, session.RefreshToken)
	require.NotEqual(t, session.AccessToken, session.RefreshToken)

	stored, err := f.userRepo.GetByEmail(context.Background(), testUserEmail)
	require.NoError(t, err)
	require.True(t, users.CheckPasswordHash(testUserPassword, stored.PasswordHash))
	require.Equal(t, f.now, stored.LastLogin)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	f := setupTestFixture(t)
	f.register(t)

	session, err := f.service.Register(context.Background(), auth.RegisterRequest{
		Email:    testUserEmail,
		Password: testUserPassword,
	})
	require.Nil(t, session)

	var verr *auth.ValidationError
	require.ErrorAs(t, err, &verr)
	require.Contains(t, verr.Fields, "email")
}

func TestRegisterInvalidFields(t *testing.T) {
	f := setupTestFixture(t)

	session, err := f.service.Register(context.Background(), auth.RegisterRequest{
		Email:    "not-an-email",
		Password: "weak",
	})
	require.Nil(t, session)

	var verr *auth.ValidationError
	require.ErrorAs(t, err, &verr)
	require.Contains(t, verr.Fields, "email")
	require.Contains(t, verr.Fields, "password")
}

func TestLoginSuccess(t *testing.T) {
	f := setupTestFixture(t)
	f.register(t)

	session, err := f.service.Login(context.Background(), testUserEmail, testUserPassword)
	require.NoError(t, err)
	require.Equal(t, testUserEmail, session.User.Email)
	require.NotEmpty(t, session.AccessToken)
	require.NotEmpty(t, session.RefreshToken)
}

func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	f := setupTestFixture(t)
	f.register(t)

	_, wrongPasswordErr := f.service.Login(context.Background(), testUserEmail, "WrongPassword1")
	_, unknownEmailErr := f.service.Login(context.Background(), "nobody@example.com", testUserPassword)

	require.ErrorIs(t, wrongPasswordErr, auth.InvalidCredentialsErr)
	require.ErrorIs(t, unknownEmailErr, auth.InvalidCredentialsErr)
	require.Equal(t, wrongPasswordErr.Error(), unknownEmailErr.Error())
}

func TestIntrospectValidAccessToken(t *testing.T) {
	f := setupTestFixture(t)
	session := f.register(t)

	result, err := f.service.Introspect(context.Background(), session.AccessToken, session.RefreshToken)
	require.NoError(t, err)
	require.Equal(t, testUserEmail, result.User.Email)
	require.False(t, result.Refreshed)
	require.Empty(t, result.AccessToken)
	require.Empty(t, result.RefreshToken)
}

func TestIntrospectRefreshesExpiredSession(t *testing.T) {
	f := setupTestFixture(t)
	session := f.register(t)

	// Past the access TTL but well within the refresh TTL.
	f.now = f.now.Add(accessTTL + time.Minute)

	result, err := f.service.Introspect(context.Background(), session.AccessToken, session.RefreshToken)
	require.NoError(t, err)
	require.True(t, result.Refreshed)
	require.Equal(t, testUserEmail, result.User.Email)
	require.NotEmpty(t, result.AccessToken)
	require.NotEqual(t, session.AccessToken, result.AccessToken)

	// The refresh token is genuinely rotated, not re-derived from the
	// access claim.
	require.NotEmpty(t, result.RefreshToken)
	require.NotEqual(t, session.RefreshToken, result.RefreshToken)
	claims, err := f.codec.Verify(result.RefreshToken)
	require.NoError(t, err)
	require.Equal(t, token.TypeRefresh, claims.TokenType)
}

func TestIntrospectExpiredWithMissingRefresh(t *testing.T) {
	f := setupTestFixture(t)
	session := f.register(t)

	f.now = f.now.Add(accessTTL + time.Minute)

	result, err := f.service.Introspect(context.Background(), session.AccessToken, "")
	require.Nil(t, result)
	require.ErrorIs(t, err, auth.InvalidTokenErr)
}

func TestIntrospectExpiredWithExpiredRefresh(t *testing.T) {
	f := setupTestFixture(t)
	session := f.register(t)

	f.now = f.now.Add(refreshTTL + time.Minute)

	result, err := f.service.Introspect(context.Background(), session.AccessToken, session.RefreshToken)
	require.Nil(t, result)
	require.ErrorIs(t, err, auth.InvalidTokenErr)
}

func TestIntrospectRejectsGarbageToken(t *testing.T) {
	f := setupTestFixture(t)
	f.register(t)

	_, err := f.service.Introspect(context.Background(), "not-a-token", "")
	require.ErrorIs(t, err, auth.InvalidTokenErr)
}

func TestIntrospectMissingCookie(t *testing.T) {
	f := setupTestFixture(t)

	_, err := f.service.Introspect(context.Background(), "", "")
	require.ErrorIs(t, err, auth.NoSessionErr)
}

func TestIntrospectRejectsRefreshTokenAsAccess(t *testing.T) {
	f := setupTestFixture(t)
	session := f.register(t)

	_, err := f.service.Introspect(context.Background(), session.RefreshToken, "")
	require.ErrorIs(t, err, auth.InvalidTokenErr)
}

func TestIntrospectUserDeleted(t *testing.T) {
	f := setupTestFixture(t)

	// A token for a user the store no longer knows about.
	access, err := f.codec.IssueAccess("deleted-user-id")
	require.NoError(t, err)

	_, err = f.service.Introspect(context.Background(), access, "")
	require.ErrorIs(t, err, auth.UserNotFoundErr)
}

func TestRefreshRotatesPair(t *testing.T) {
	f := setupTestFixture(t)
	session := f.register(t)

	pair, err := f.service.Refresh(context.Background(), session.RefreshToken)
	require.NoError(t, err)
	require.NotEmpty(t, pair.Access)
	require.NotEmpty(t, pair.Refresh)
	require.NotEqual(t, session.RefreshToken, pair.Refresh)
}

func TestRefreshRejectsAccessToken(t *testing.T) {
	f := setupTestFixture(t)
	session := f.register(t)

	_, err := f.service.Refresh(context.Background(), session.AccessToken)
	require.ErrorIs(t, err, auth.InvalidTokenErr)
}

func TestUserFromAccessToken(t *testing.T) {
	f := setupTestFixture(t)
	session := f.register(t)

	user, err := f.service.UserFromAccessToken(context.Background(), session.AccessToken)
	require.NoError(t, err)
	require.Equal(t, testUserEmail, user.Email)

	_, err = f.service.UserFromAccessToken(context.Background(), session.RefreshToken)
	require.ErrorIs(t, err, auth.InvalidTokenErr)
}
