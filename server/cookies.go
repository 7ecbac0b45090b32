package server

import "net/http"

const (
	// accessCookieName holds the short-lived access token.
	accessCookieName = "access"
	// refreshCookieName holds the longer-lived refresh token.
	refreshCookieName = "refresh"
)

// setSessionCookies attaches the token pair as HttpOnly cookies so the
// session survives without any server-side state. Secure is set when
// the request arrived over https (X-Forwarded-Proto aware).
func (s *Server) setSessionCookies(w http.ResponseWriter, r *http.Request, access, refresh string) {
	isSecure := getScheme(r) == "https"

	http.SetCookie(w, &http.Cookie{
		Name:     accessCookieName,
		Value:    access,
		Path:     "/",
		HttpOnly: true,
		Secure:   isSecure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(s.config.GetAccessTokenExpiry().Seconds()),
	})
	http.SetCookie(w, &http.Cookie{
		Name:     refreshCookieName,
		Value:    refresh,
		Path:     "/",
		HttpOnly: true,
		Secure:   isSecure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(s.config.GetRefreshTokenExpiry().Seconds()),
	})
}

// clearSessionCookies expires both cookies. Logout is purely
// client-side: issued tokens stay valid until expiry.
func (s *Server) clearSessionCookies(w http.ResponseWriter, r *http.Request) {
	isSecure := getScheme(r) == "https"

	for _, name := range []string{accessCookieName, refreshCookieName} {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			HttpOnly: true,
			Secure:   isSecure,
			SameSite: http.SameSiteLaxMode,
			MaxAge:   -1,
		})
	}
}

// cookieValue returns the named cookie's value or "" when absent.
func cookieValue(r *http.Request, name string) string {
	c, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return c.Value
}
