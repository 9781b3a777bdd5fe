package api

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// Claims are the bearer token claims the identity provider issues. The
// caller identity is user_id, falling back to sub.
type Claims struct {
	UserID string `json:"user_id,omitempty"`
	jwt.RegisteredClaims
}

func (c *Claims) identity() string {
	if c.UserID != "" {
		return c.UserID
	}
	return c.Subject
}

type userKey struct{}

// UserID returns the authenticated caller stored by the auth middleware.
func UserID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(userKey{}).(string)
	return id, ok && id != ""
}

// WithUserID returns ctx carrying an authenticated caller identity.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userKey{}, userID)
}

// NewAuthMiddleware verifies HS256 bearer tokens signed with secret. When
// issuer is set the iss claim must match it.
func NewAuthMiddleware(secret []byte, issuer string) func(http.Handler) http.Handler {
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	keyFunc := func(*jwt.Token) (interface{}, error) { return secret, nil }

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				writeError(w, http.StatusUnauthorized, codeUnauthorized, "missing authorization header")
				return
			}
			scheme, raw, ok := strings.Cut(header, " ")
			if !ok || !strings.EqualFold(scheme, "Bearer") || raw == "" {
				writeError(w, http.StatusUnauthorized, codeUnauthorized, "authorization header must be a bearer token")
				return
			}

			claims := &Claims{}
			if _, err := parser.ParseWithClaims(raw, claims, keyFunc); err != nil {
				writeError(w, http.StatusUnauthorized, codeUnauthorized, tokenMessage(err))
				return
			}
			if issuer != "" && !claims.VerifyIssuer(issuer, true) {
				writeError(w, http.StatusUnauthorized, codeUnauthorized, "invalid token issuer")
				return
			}
			id := claims.identity()
			if id == "" {
				writeError(w, http.StatusUnauthorized, codeUnauthorized, "token has no subject")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), id)))
		})
	}
}

func tokenMessage(err error) string {
	var verr *jwt.ValidationError
	if errors.As(err, &verr) && verr.Errors&jwt.ValidationErrorExpired != 0 {
		return "token expired"
	}
	return "invalid token"
}

// SignToken issues an HS256 token for userID. The CLI uses it to talk to a
// local server; production tokens come from the identity provider.
func SignToken(secret []byte, issuer, userID string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}
