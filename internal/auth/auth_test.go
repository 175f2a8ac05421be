package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/AbdullaK123/book-api/internal/domain"
)

var secret = []byte("test-secret")

func sign(t *testing.T, method jwt.SigningMethod, key any, subject, role string, exp time.Time) string {
	t.Helper()
	token := jwt.NewWithClaims(method, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(exp),
		},
		Role: role,
	})
	s, err := token.SignedString(key)
	require.NoError(t, err)
	return s
}

func serve(t *testing.T, header string) (*httptest.ResponseRecorder, *domain.Identity) {
	t.Helper()
	var seen *domain.Identity
	h := Middleware(JWTVerifier{Secret: secret}, zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id, ok := IdentityFromContext(r.Context()); ok {
			seen = &id
		}
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodPost, "/query", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec, seen
}

func TestMiddleware_ValidToken(t *testing.T) {
	token := sign(t, jwt.SigningMethodHS256, secret, "42", "Admin", time.Now().Add(time.Hour))

	rec, id := serve(t, "Bearer "+token)
	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, id)
	assert.Equal(t, int64(42), id.UserID)
	assert.Equal(t, domain.RoleAdmin, id.Role)
	assert.True(t, id.IsAdmin())
}

func TestMiddleware_Anonymous(t *testing.T) {
	rec, id := serve(t, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, id)
}

func TestMiddleware_Rejects(t *testing.T) {
	cases := map[string]string{
		"wrong scheme":   "Basic abc",
		"garbage":        "Bearer not-a-token",
		"expired":        "Bearer " + sign(t, jwt.SigningMethodHS256, secret, "1", "", time.Now().Add(-time.Hour)),
		"wrong secret":   "Bearer " + sign(t, jwt.SigningMethodHS256, []byte("other"), "1", "", time.Now().Add(time.Hour)),
		"wrong alg":      "Bearer " + sign(t, jwt.SigningMethodHS512, secret, "1", "", time.Now().Add(time.Hour)),
		"non-numeric id": "Bearer " + sign(t, jwt.SigningMethodHS256, secret, "alice", "", time.Now().Add(time.Hour)),
	}
	for name, header := range cases {
		t.Run(name, func(t *testing.T) {
			rec, id := serve(t, header)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Nil(t, id)
		})
	}
}
