package auth

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"moviemania/internal/apperr"
)

var testSecret = []byte("test-secret-0123456789abcdef")

func TestIssueAndVerify(t *testing.T) {
	iss := NewIssuer(testSecret, 2*time.Hour)

	token, exp, err := iss.Issue(Identity{Username: "root", Role: "owner"})
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(2*time.Hour), exp, 5*time.Second)

	id, err := iss.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, Identity{Username: "root", Role: "owner"}, id)
}

func TestTokenLifecycle(t *testing.T) {
	issuedAt := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)
	iss := NewIssuer(testSecret, 2*time.Hour).WithClock(func() time.Time { return issuedAt })

	token, _, err := iss.Issue(Identity{Username: "root"})
	require.NoError(t, err)

	before := iss.WithClock(func() time.Time { return issuedAt.Add(2*time.Hour - time.Second) })
	_, err = before.Verify(token)
	require.NoError(t, err, "valid until the TTL elapses")

	after := iss.WithClock(func() time.Time { return issuedAt.Add(2*time.Hour + time.Second) })
	_, err = after.Verify(token)
	require.Error(t, err)
	assert.Equal(t, apperr.Forbidden, apperr.KindOf(err))
}

func TestVerifyRejects(t *testing.T) {
	iss := NewIssuer(testSecret, time.Hour)
	good, _, err := iss.Issue(Identity{Username: "root"})
	require.NoError(t, err)

	other, _, err := NewIssuer([]byte("another-secret"), time.Hour).Issue(Identity{Username: "root"})
	require.NoError(t, err)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{Username: "root"})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
		kind  apperr.Kind
	}{
		{"empty", "", apperr.Unauthenticated},
		{"garbage", "not-a-jwt", apperr.Forbidden},
		{"wrong secret", other, apperr.Forbidden},
		{"tampered", tamper(good), apperr.Forbidden},
		{"alg none", unsigned, apperr.Forbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := iss.Verify(tt.token)
			require.Error(t, err)
			assert.Equal(t, tt.kind, apperr.KindOf(err))
		})
	}
}

// tamper flips one character in the middle of the payload segment.
func tamper(token string) string {
	parts := strings.Split(token, ".")
	p := []byte(parts[1])
	mid := len(p) / 2
	if p[mid] == 'A' {
		p[mid] = 'B'
	} else {
		p[mid] = 'A'
	}
	parts[1] = string(p)
	return strings.Join(parts, ".")
}

func TestExtractToken(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/api/admins?token=from-query", nil)
	assert.Equal(t, "from-query", ExtractToken(r, true))
	assert.Equal(t, "", ExtractToken(r, false))

	r.Header.Set("Authorization", "Bearer from-header")
	assert.Equal(t, "from-header", ExtractToken(r, true), "header wins over query")

	r.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
	assert.Equal(t, "from-query", ExtractToken(r, true))
}

func TestRequireJWT(t *testing.T) {
	gin.SetMode(gin.TestMode)
	iss := NewIssuer(testSecret, time.Hour)
	token, _, err := iss.Issue(Identity{Username: "root", Role: "owner"})
	require.NoError(t, err)

	r := gin.New()
	reached := false
	r.GET("/private", RequireJWT(iss, true), func(c *gin.Context) {
		reached = true
		id, ok := IdentityFrom(c)
		require.True(t, ok)
		c.String(http.StatusOK, id.Username)
	})

	do := func(setup func(*http.Request)) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/private", nil)
		if setup != nil {
			setup(req)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	w := do(nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Bearer", w.Header().Get("WWW-Authenticate"))
	assert.False(t, reached)

	w = do(func(req *http.Request) { req.Header.Set("Authorization", "Bearer junk") })
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.False(t, reached)

	w = do(func(req *http.Request) { req.Header.Set("Authorization", "Bearer "+token) })
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "root", w.Body.String())

	reached = false
	w = do(func(req *http.Request) { req.URL.RawQuery = "token=" + token })
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, reached)
}

func TestHasher(t *testing.T) {
	h := Hasher{Cost: 4}
	hash, err := h.Hash("pw")
	require.NoError(t, err)
	assert.NotEqual(t, "pw", hash)

	ok, err := h.Compare(hash, "pw")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = h.Compare(hash, "wrong")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = h.Compare("not-a-bcrypt-hash", "pw")
	assert.Error(t, err)
}
