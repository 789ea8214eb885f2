package httputil

import (
	"net/http"
	"time"

	"knowledgestack/internal/domain/services"
)

const (
	AccessCookie  = "ks_access"
	RefreshCookie = "ks_refresh"
)

// CookieConfig controls the attributes of session cookies. In production
// the frontend lives on another subdomain, so cookies must be
// SameSite=None and therefore Secure.
type CookieConfig struct {
	Domain string
	Prod   bool
}

func (c CookieConfig) cookie(name, value string, expires time.Time) *http.Cookie {
	cookie := &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Domain:   c.Domain,
		Expires:  expires,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	if c.Prod {
		cookie.SameSite = http.SameSiteNoneMode
		cookie.Secure = true
	}
	return cookie
}

// SetSessionCookies writes the access and refresh cookies for sess
func SetSessionCookies(w http.ResponseWriter, c CookieConfig, sess *services.Session) {
	http.SetCookie(w, c.cookie(AccessCookie, sess.AccessToken, sess.AccessExpiresAt))
	http.SetCookie(w, c.cookie(RefreshCookie, sess.RefreshToken, sess.RefreshExpiresAt))
}

// ClearSessionCookies expires both session cookies
func ClearSessionCookies(w http.ResponseWriter, c CookieConfig) {
	for _, name := range []string{AccessCookie, RefreshCookie} {
		cookie := c.cookie(name, "", time.Unix(0, 0))
		cookie.MaxAge = -1
		http.SetCookie(w, cookie)
	}
}

// CookieValue returns the named cookie's value or ""
func CookieValue(r *http.Request, name string) string {
	cookie, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return cookie.Value
}
