package hackloud

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/me/hackloud/pkg/model"
)

// TokenClaims holds the fields of a Hackloud session token that the client
// can read without the signing key.
type TokenClaims struct {
	UserID    string
	Role      model.UserRole
	ExpiresAt time.Time // zero when the token carries no expiry
}

// IsExpired reports whether the claims carry an expiry that is before now.
func (c *TokenClaims) IsExpired(now time.Time) bool {
	return !c.ExpiresAt.IsZero() && now.After(c.ExpiresAt)
}

// ParseTokenClaims decodes a JWT without verifying its signature. Only the
// backend can verify tokens; the client uses the claims for display and to
// skip requests with a token that has already expired.
func ParseTokenClaims(raw string) (*TokenClaims, error) {
	raw = strings.TrimSpace(strings.TrimPrefix(raw, "Bearer "))
	if raw == "" {
		return nil, ErrNoToken
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	out := &TokenClaims{}
	if id, ok := claims["id"]; ok {
		out.UserID = fmt.Sprint(id)
	} else if sub, err := claims.GetSubject(); err == nil {
		out.UserID = sub
	}
	if role, ok := claims["role"].(string); ok {
		out.Role = model.UserRole(role)
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		out.ExpiresAt = exp.Time
	}
	return out, nil
}

// checkToken rejects an empty token and a JWT whose expiry has passed.
// Opaque (non-JWT) tokens are left to the backend.
func (c *Client) checkToken(op, token string) error {
	if token == "" {
		return WrapError(op, ErrNoToken)
	}
	claims, err := ParseTokenClaims(token)
	if err != nil {
		return nil
	}
	if claims.IsExpired(c.now()) {
		return WrapError(op, ErrTokenExpired)
	}
	return nil
}

// Login exchanges credentials for a session token.
func (c *Client) Login(ctx context.Context, creds model.Credentials) (string, error) {
	r, err := jsonRequest("Login", http.MethodPost, "/users/login", "", creds)
	if err != nil {
		return "", err
	}
	var out model.TokenResponse
	if err := c.call(ctx, r, &out); err != nil {
		return "", err
	}
	if out.Token == "" {
		return "", NewError("Login", KindAuth, "backend returned an empty token")
	}
	return out.Token, nil
}

// Register creates a new account.
func (c *Client) Register(ctx context.Context, reg model.Registration) (string, error) {
	r, err := jsonRequest("Register", http.MethodPost, "/users/register", "", reg)
	if err != nil {
		return "", err
	}
	var out model.IDResponse
	if err := c.call(ctx, r, &out); err != nil {
		return "", err
	}
	return out.ID, nil
}
