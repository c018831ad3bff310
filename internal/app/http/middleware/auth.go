package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	ierr "focus-billing/internal/errors"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// ContextUserID is the gin context key holding the authenticated user id.
const ContextUserID = "user_id"

// Authenticator resolves an opaque user id from a bearer token.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (string, error)
}

// JWTAuthenticator accepts HS256 tokens signed with a shared secret. The
// user id is the sub claim, or user_id for older tokens.
type JWTAuthenticator struct {
	key []byte
}

func NewJWTAuthenticator(secret string) *JWTAuthenticator {
	return &JWTAuthenticator{key: []byte(secret)}
}

func (a *JWTAuthenticator) Authenticate(_ context.Context, tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return a.key, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return "", ierr.WithError(err).WithMessage("invalid token").Mark(ierr.ErrUnauthorized)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", ierr.NewError("invalid token claims").Mark(ierr.ErrUnauthorized)
	}
	if sub, err := claims.GetSubject(); err == nil && sub != "" {
		return sub, nil
	}
	switch v := claims["user_id"].(type) {
	case string:
		if v != "" {
			return v, nil
		}
	case float64:
		return fmt.Sprintf("%.0f", v), nil
	}
	return "", ierr.NewError("token has no subject").Mark(ierr.ErrUnauthorized)
}

// OIDCAuthenticator verifies ID tokens from an OpenID Connect issuer.
type OIDCAuthenticator struct {
	verifier *oidc.IDTokenVerifier
}

// NewOIDCAuthenticator performs issuer discovery.
func NewOIDCAuthenticator(ctx context.Context, issuer, clientID string) (*OIDCAuthenticator, error) {
	provider, err := oidc.NewProvider(ctx, issuer)
	if err != nil {
		return nil, ierr.WithError(err).
			WithMessagef("oidc discovery for %s", issuer).
			Mark(ierr.ErrInternal)
	}
	return &OIDCAuthenticator{verifier: provider.Verifier(&oidc.Config{ClientID: clientID})}, nil
}

func (a *OIDCAuthenticator) Authenticate(ctx context.Context, raw string) (string, error) {
	tok, err := a.verifier.Verify(ctx, raw)
	if err != nil {
		return "", ierr.WithError(err).WithMessage("invalid id token").Mark(ierr.ErrUnauthorized)
	}
	if tok.Subject == "" {
		return "", ierr.NewError("id token has no subject").Mark(ierr.ErrUnauthorized)
	}
	return tok.Subject, nil
}

func AuthMiddleware(auth Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header missing"})
			return
		}

		tokenString := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
		if tokenString == authHeader || tokenString == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Bearer token malformed"})
			return
		}

		userID, err := auth.Authenticate(c.Request.Context(), tokenString)
		if err != nil {
			_ = c.Error(err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			return
		}

		c.Set(ContextUserID, userID)
		c.Next()
	}
}
