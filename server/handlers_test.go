package server_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jrsteele09/go-user-auth/auth"
	"github.com/jrsteele09/go-user-auth/internal/config"
	"github.com/jrsteele09/go-user-auth/server"
	"github.com/jrsteele09/go-user-auth/token"
	"github.com/jrsteele09/go-user-auth/users/repofake"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

const (
	testEmail    = "a@x.com"
	testPassword = "Password1"
	accessTTL    = 30 * time.Minute
	refreshTTL   = 7 * 24 * time.Hour
)

type testFixture struct {
	server *server.Server
	now    time.Time
}

func setupTestFixture(t *testing.T) *testFixture {
	t.Helper()

	f := &testFixture{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	nowFunc := func() time.Time { return f.now }

	codec := token.NewCodec([]byte("test-secret"), accessTTL, refreshTTL, token.WithNowFunc(nowFunc))
	authService, err := auth.NewService(repofake.NewFakeUserRepo(), codec, auth.WithNowTime(nowFunc))
	require.NoError(t, err)

	srv, err := server.New(config.New(), authService, nil, zerolog.Nop())
	require.NoError(t, err)
	f.server = srv
	return f
}

func (f *testFixture) do(t *testing.T, method, path string, body any, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()

	var reqBody bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&reqBody).Encode(body))
	}
	req := httptest.NewRequest(method, path, &reqBody)
	for _, c := range cookies {
		req.AddCookie(c)
	}

	w := httptest.NewRecorder()
	f.server.ServeHTTP(w, req)
	return w
}

func (f *testFixture) register(t *testing.T) (sessionCookies map[string]*http.Cookie, envelope map[string]any) {
	t.Helper()

	w := f.do(t, http.MethodPost, server.RouteRegister, map[string]string{
		"email":      testEmail,
		"password":   testPassword,
		"first_name": "Ada",
	})
	require.Equal(t, http.StatusOK, w.Code)

	envelope = decodeBody(t, w)
	return cookiesByName(w), envelope
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func cookiesByName(w *httptest.ResponseRecorder) map[string]*http.Cookie {
	byName := make(map[string]*http.Cookie)
	for _, c := range w.Result().Cookies() {
		byName[c.Name] = c
	}
	return byName
}

func TestRegisterSetsCookiesAndEnvelope(t *testing.T) {
	f := setupTestFixture(t)

	cookies, envelope := f.register(t)

	require.Contains(t, cookies, "access")
	require.Contains(t, cookies, "refresh")
	require.True(t, cookies["access"].HttpOnly)
	require.True(t, cookies["refresh"].HttpOnly)
	require.NotEqual(t, cookies["access"].Value, cookies["refresh"].Value)

	require.Equal(t, "register success", envelope["message"])
	user := envelope["user"].(map[string]any)
	require.Equal(t, testEmail, user["email"])
	tok := envelope["token"].(map[string]any)
	require.Equal(t, cookies["access"].Value, tok["access"])
	require.Equal(t, cookies["refresh"].Value, tok["refresh"])
}

func TestRegisterValidationFailure(t *testing.T) {
	f := setupTestFixture(t)

	w := f.do(t, http.MethodPost, server.RouteRegister, map[string]string{
		"email":    "not-an-email",
		"password": "weak",
	})
	require.Equal(t, http.StatusBadRequest, w.Code)

	fields := decodeBody(t, w)
	require.Contains(t, fields, "email")
	require.Contains(t, fields, "password")
	require.Empty(t, cookiesByName(w))
}

func TestRegisterDuplicateEmailIssuesNoTokens(t *testing.T) {
	f := setupTestFixture(t)
	f.register(t)

	w := f.do(t, http.MethodPost, server.RouteRegister, map[string]string{
		"email":    testEmail,
		"password": testPassword,
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Contains(t, decodeBody(t, w), "email")
	require.Empty(t, cookiesByName(w))
}

func TestLoginSuccess(t *testing.T) {
	f := setupTestFixture(t)
	f.register(t)

	w := f.do(t, http.MethodPost, server.RouteAuth, map[string]string{
		"email":    testEmail,
		"password": testPassword,
	})
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "login success", decodeBody(t, w)["message"])
	cookies := cookiesByName(w)
	require.Contains(t, cookies, "access")
	require.Contains(t, cookies, "refresh")
}

func TestLoginFailuresShareShape(t *testing.T) {
	f := setupTestFixture(t)
	f.register(t)

	wrongPassword := f.do(t, http.MethodPost, server.RouteAuth, map[string]string{
		"email":    testEmail,
		"password": "WrongPassword1",
	})
	unknownEmail := f.do(t, http.MethodPost, server.RouteAuth, map[string]string{
		"email":    "nobody@x.com",
		"password": testPassword,
	})

	require.Equal(t, http.StatusBadRequest, wrongPassword.Code)
	require.Equal(t, http.StatusBadRequest, unknownEmail.Code)
	require.Equal(t, wrongPassword.Body.String(), unknownEmail.Body.String())
	require.Empty(t, cookiesByName(wrongPassword))
	require.Empty(t, cookiesByName(unknownEmail))
}

func TestIntrospectWithValidAccessToken(t *testing.T) {
	f := setupTestFixture(t)
	cookies, _ := f.register(t)

	w := f.do(t, http.MethodGet, server.RouteAuth, nil, cookies["access"], cookies["refresh"])
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, testEmail, decodeBody(t, w)["email"])
	// No cookie mutation on a plain introspect.
	require.Empty(t, cookiesByName(w))
}

func TestIntrospectRefreshesExpiredAccessToken(t *testing.T) {
	f := setupTestFixture(t)
	cookies, _ := f.register(t)

	f.now = f.now.Add(accessTTL + time.Minute)

	w := f.do(t, http.MethodGet, server.RouteAuth, nil, cookies["access"], cookies["refresh"])
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, testEmail, decodeBody(t, w)["email"])

	rewritten := cookiesByName(w)
	require.Contains(t, rewritten, "access")
	require.Contains(t, rewritten, "refresh")
	require.NotEqual(t, cookies["access"].Value, rewritten["access"].Value)
	require.NotEqual(t, cookies["refresh"].Value, rewritten["refresh"].Value)
}

func TestIntrospectExpiredAccessWithBadRefresh(t *testing.T) {
	f := setupTestFixture(t)
	cookies, _ := f.register(t)

	f.now = f.now.Add(accessTTL + time.Minute)

	// Missing refresh cookie
	w := f.do(t, http.MethodGet, server.RouteAuth, nil, cookies["access"])
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Empty(t, cookiesByName(w))

	// Tampered refresh cookie
	w = f.do(t, http.MethodGet, server.RouteAuth, nil, cookies["access"],
		&http.Cookie{Name: "refresh", Value: "tampered"})
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Empty(t, cookiesByName(w))
}

func TestIntrospectWithoutCookies(t *testing.T) {
	f := setupTestFixture(t)

	w := f.do(t, http.MethodGet, server.RouteAuth, nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLogoutClearsCookies(t *testing.T) {
	f := setupTestFixture(t)

	// Logout succeeds even when no session existed.
	w := f.do(t, http.MethodDelete, server.RouteAuth, nil)
	require.Equal(t, http.StatusAccepted, w.Code)
	require.Equal(t, "Logout success", decodeBody(t, w)["message"])

	cleared := cookiesByName(w)
	require.Contains(t, cleared, "access")
	require.Contains(t, cleared, "refresh")
	for _, name := range []string{"access", "refresh"} {
		require.Empty(t, cleared[name].Value)
		require.Negative(t, cleared[name].MaxAge)
	}
}

func TestRefreshEndpointRotatesPair(t *testing.T) {
	f := setupTestFixture(t)
	cookies, _ := f.register(t)

	w := f.do(t, http.MethodPost, server.RouteAuthRefresh, map[string]string{
		"refresh": cookies["refresh"].Value,
	})
	require.Equal(t, http.StatusOK, w.Code)

	body := decodeBody(t, w)
	require.NotEmpty(t, body["access"])
	require.NotEmpty(t, body["refresh"])
	require.NotEqual(t, cookies["refresh"].Value, body["refresh"])

	rewritten := cookiesByName(w)
	require.Equal(t, body["access"], rewritten["access"].Value)
	require.Equal(t, body["refresh"], rewritten["refresh"].Value)
}

func TestRefreshEndpointRejectsAccessToken(t *testing.T) {
	f := setupTestFixture(t)
	cookies, _ := f.register(t)

	w := f.do(t, http.MethodPost, server.RouteAuthRefresh, map[string]string{
		"refresh": cookies["access"].Value,
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListRequiresBearerToken(t *testing.T) {
	f := setupTestFixture(t)
	cookies, _ := f.register(t)

	w := f.do(t, http.MethodGet, server.RouteUserList, nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)

	req := httptest.NewRequest(http.MethodGet, server.RouteUserList, nil)
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", cookies["access"].Value))
	rec := httptest.NewRecorder()
	f.server.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var list []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 1)
	require.Equal(t, testEmail, list[0]["email"])
}

func TestListToleratesBadPagination(t *testing.T) {
	f := setupTestFixture(t)
	cookies, _ := f.register(t)

	for _, query := range []string{"?offset=-1", "?offset=-1&limit=-5", "?offset=junk&limit=junk"} {
		req := httptest.NewRequest(http.MethodGet, server.RouteUserList+query, nil)
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", cookies["access"].Value))
		rec := httptest.NewRecorder()
		f.server.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, query)

		var list []map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
		require.Len(t, list, 1, query)
	}
}

// Full lifecycle: register, introspect, expire, refresh via introspect,
// logout, and a final anonymous introspect.
func TestSessionLifecycle(t *testing.T) {
	f := setupTestFixture(t)

	cookies, envelope := f.register(t)
	tok := envelope["token"].(map[string]any)
	require.NotEqual(t, tok["access"], tok["refresh"])

	w := f.do(t, http.MethodGet, server.RouteAuth, nil, cookies["access"], cookies["refresh"])
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, testEmail, decodeBody(t, w)["email"])

	f.now = f.now.Add(accessTTL + time.Minute)

	w = f.do(t, http.MethodGet, server.RouteAuth, nil, cookies["access"], cookies["refresh"])
	require.Equal(t, http.StatusOK, w.Code)
	refreshed := cookiesByName(w)
	require.NotEqual(t, cookies["access"].Value, refreshed["access"].Value)

	w = f.do(t, http.MethodDelete, server.RouteAuth, nil, refreshed["access"], refreshed["refresh"])
	require.Equal(t, http.StatusAccepted, w.Code)

	w = f.do(t, http.MethodGet, server.RouteAuth, nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
}
