package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"knowledgestack/internal/domain"
	"knowledgestack/internal/domain/models"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"
)

// SSOVerifier implements JWTVerifier for tokens from an external identity
// provider, using the provider's JWKS endpoint. Such tokens name the user
// by email; the middleware maps that to a local user.
type SSOVerifier struct {
	jwks   keyfunc.Keyfunc
	logger *slog.Logger
}

// NewSSOVerifier creates a verifier that fetches public keys from jwksURL.
// The JWKS keys are cached and refreshed by keyfunc.
func NewSSOVerifier(ctx context.Context, jwksURL string, logger *slog.Logger) (*SSOVerifier, error) {
	if jwksURL == "" {
		return nil, errors.New("JWKS URL cannot be empty")
	}

	jwks, err := keyfunc.NewDefaultCtx(ctx, []string{jwksURL})
	if err != nil {
		return nil, fmt.Errorf("failed to create JWKS client: %w", err)
	}

	logger.Info("SSO verifier initialized", "jwks_url", jwksURL)

	return &SSOVerifier{
		jwks:   jwks,
		logger: logger,
	}, nil
}

// VerifyToken validates an identity provider token.
func (v *SSOVerifier) VerifyToken(tokenString string) (*models.AccessClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &models.AccessClaims{}, v.jwks.Keyfunc)
	if err != nil {
		v.logger.Debug("SSO token parse failed", "error", err.Error())
		return nil, domain.ErrUnauthorized
	}
	if !token.Valid {
		return nil, domain.ErrUnauthorized
	}

	// Prevent algorithm confusion attacks - allow only RS256 or ES256
	switch token.Method.Alg() {
	case "RS256", "ES256":
	default:
		v.logger.Warn("SSO token uses unexpected algorithm", "algorithm", token.Method.Alg(), "allowed", []string{"RS256", "ES256"})
		return nil, domain.ErrUnauthorized
	}

	claims, ok := token.Claims.(*models.AccessClaims)
	if !ok {
		v.logger.Error("Failed to extract claims from SSO token")
		return nil, domain.ErrUnauthorized
	}
	if claims.Email == "" {
		v.logger.Debug("SSO token missing email claim", "sub", claims.Subject)
		return nil, domain.ErrUnauthorized
	}

	return claims, nil
}

// Close releases resources held by the verifier. keyfunc v3 manages its
// own refresh goroutine, so this is a no-op.
func (v *SSOVerifier) Close() error {
	v.logger.Info("SSO verifier closed")
	return nil
}

// ChainVerifier tries each verifier in order and returns the first success.
type ChainVerifier struct {
	verifiers []JWTVerifier
}

// NewChainVerifier combines verifiers; nil entries are skipped.
func NewChainVerifier(verifiers ...JWTVerifier) *ChainVerifier {
	c := &ChainVerifier{}
	for _, v := range verifiers {
		if v != nil {
			c.verifiers = append(c.verifiers, v)
		}
	}
	return c
}

func (c *ChainVerifier) VerifyToken(tokenString string) (*models.AccessClaims, error) {
	for _, v := range c.verifiers {
		if claims, err := v.VerifyToken(tokenString); err == nil {
			return claims, nil
		}
	}
	return nil, domain.ErrUnauthorized
}

func (c *ChainVerifier) Close() error {
	var errs []error
	for _, v := range c.verifiers {
		if err := v.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
