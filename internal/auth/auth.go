// Package auth turns bearer tokens issued by the account service into the
// acting identity. Credentials are never checked here.
package auth

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	jwt "github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/AbdullaK123/book-api/internal/domain"
)

type ctxKeyIdentity struct{}

// IdentityFromContext returns the identity injected by Middleware.
func IdentityFromContext(ctx context.Context) (domain.Identity, bool) {
	v, ok := ctx.Value(ctxKeyIdentity{}).(domain.Identity)
	return v, ok
}

// WithIdentity injects an identity into ctx. Useful for testing.
func WithIdentity(ctx context.Context, id domain.Identity) context.Context {
	return context.WithValue(ctx, ctxKeyIdentity{}, id)
}

// Claims carries the user id in the subject and the role alongside.
type Claims struct {
	jwt.RegisteredClaims
	Role string `json:"role"`
}

// JWTVerifier validates HS256 tokens.
type JWTVerifier struct {
	Secret []byte
}

func (v JWTVerifier) Parse(tokenString string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if token.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, errors.New("unexpected signing method")
		}
		return v.Secret, nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

// Identity parses tokenString into the acting identity.
func (v JWTVerifier) Identity(tokenString string) (domain.Identity, error) {
	claims, err := v.Parse(tokenString)
	if err != nil {
		return domain.Identity{}, err
	}
	uid, err := strconv.ParseInt(strings.TrimSpace(claims.Subject), 10, 64)
	if err != nil || uid <= 0 {
		return domain.Identity{}, errors.New("token subject is not a user id")
	}
	return domain.Identity{UserID: uid, Role: strings.ToLower(strings.TrimSpace(claims.Role))}, nil
}

// Middleware injects the identity of a valid bearer token. Requests without
// an Authorization header pass through anonymously; malformed or invalid
// tokens are rejected with 401.
func Middleware(verifier JWTVerifier, log *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authz := strings.TrimSpace(r.Header.Get("Authorization"))
			if authz == "" {
				next.ServeHTTP(w, r)
				return
			}
			parts := strings.SplitN(authz, " ", 2)
			if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			id, err := verifier.Identity(strings.TrimSpace(parts[1]))
			if err != nil {
				log.Debug("rejected bearer token", zap.Error(err))
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		})
	}
}
