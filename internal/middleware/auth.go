package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"knowledgestack/internal/auth"
	"knowledgestack/internal/domain/repositories"
	"knowledgestack/internal/httputil"
)

// Authenticate identifies the user from a bearer token or the access
// cookie. Requests without a valid token continue anonymously; handlers
// decide whether a user is required.
func Authenticate(verifier auth.JWTVerifier, users repositories.UserRepository, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := tokenFromRequest(r)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			claims, err := verifier.VerifyToken(token)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}

			userID := claims.GetUserID()
			if claims.Issuer != auth.Issuer {
				// Identity provider tokens name the user by email
				user, err := users.GetByLogin(r.Context(), claims.Email)
				if err != nil {
					logger.Debug("SSO user not found", "email", claims.Email, "error", err)
					next.ServeHTTP(w, r)
					return
				}
				userID = user.ID
			}

			next.ServeHTTP(w, httputil.WithUserID(r, userID))
		})
	}
}

// tokenFromRequest prefers the Authorization header over the cookie
func tokenFromRequest(r *http.Request) string {
	if header := r.Header.Get("Authorization"); header != "" {
		if token, ok := strings.CutPrefix(header, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
		return ""
	}
	return httputil.CookieValue(r, httputil.AccessCookie)
}
