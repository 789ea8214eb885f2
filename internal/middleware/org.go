package middleware

import (
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strings"

	"knowledgestack/internal/domain"
	"knowledgestack/internal/domain/services"
	"knowledgestack/internal/httputil"
)

// OrgHeader names the organization when no subdomain is used
const OrgHeader = "X-Org-Slug"

// ResolveOrg finds the request's organization and, for authenticated
// users, their actor within it. Unknown orgs answer 404 and users without
// a membership answer 403.
func ResolveOrg(orgs services.OrgService, baseDomain string, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			slug := orgSlugFromRequest(r, baseDomain)
			if slug == "" {
				next.ServeHTTP(w, r)
				return
			}

			org, err := orgs.GetOrganizationBySlug(r.Context(), slug)
			if err != nil {
				if errors.Is(err, domain.ErrNotFound) {
					httputil.RespondError(w, http.StatusNotFound, "organization not found")
					return
				}
				logger.Error("resolve organization", "slug", slug, "error", err)
				httputil.RespondError(w, http.StatusInternalServerError, "internal server error")
				return
			}
			r = httputil.WithOrg(r, org)

			if userID := httputil.GetUserID(r); userID != "" {
				actor, err := orgs.ResolveActor(r.Context(), org, userID)
				if err != nil {
					if errors.Is(err, domain.ErrForbidden) {
						httputil.RespondError(w, http.StatusForbidden, err.Error())
						return
					}
					logger.Error("resolve actor", "org_id", org.ID, "user_id", userID, "error", err)
					httputil.RespondError(w, http.StatusInternalServerError, "internal server error")
					return
				}
				r = httputil.WithActor(r, actor)
			}

			next.ServeHTTP(w, r)
		})
	}
}

// orgSlugFromRequest checks the subdomain of baseDomain, then the
// X-Org-Slug header, then the ?org= query parameter.
func orgSlugFromRequest(r *http.Request, baseDomain string) string {
	if sub := subdomain(r.Host, baseDomain); sub != "" {
		return sub
	}
	if slug := strings.TrimSpace(r.Header.Get(OrgHeader)); slug != "" {
		return strings.ToLower(slug)
	}
	return strings.ToLower(strings.TrimSpace(r.URL.Query().Get("org")))
}

func subdomain(host, baseDomain string) string {
	if baseDomain == "" {
		return ""
	}
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	host = strings.ToLower(host)
	suffix := "." + strings.ToLower(strings.TrimPrefix(baseDomain, "."))

	sub, ok := strings.CutSuffix(host, suffix)
	if !ok || sub == "" || sub == "www" || strings.Contains(sub, ".") {
		return ""
	}
	return sub
}
