package models

import "github.com/golang-jwt/jwt/v5"

// AccessClaims are the claims carried by access tokens issued by this
// service. Tokens from an external identity provider are parsed into the
// same struct; for those, Email identifies the local user.
type AccessClaims struct {
	jwt.RegisteredClaims        // sub, iss, exp, iat, jti
	Email                string `json:"email,omitempty"`
	Username             string `json:"username,omitempty"`
}

// GetUserID returns the user ID from the subject claim.
func (c *AccessClaims) GetUserID() string {
	return c.Subject
}
