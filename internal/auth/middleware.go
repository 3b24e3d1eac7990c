package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"moviemania/internal/apperr"
)

const CtxIdentityKey = "identity"

// ExtractToken reads "Authorization: Bearer <token>", falling back to the
// ?token= query parameter when allowQuery is set.
func ExtractToken(r *http.Request, allowQuery bool) string {
	if h := r.Header.Get("Authorization"); h != "" {
		scheme, token, ok := strings.Cut(h, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			if t := strings.TrimSpace(token); t != "" {
				return t
			}
		}
	}
	if allowQuery {
		return r.URL.Query().Get("token")
	}
	return ""
}

// RequireJWT aborts with 401 when no token is supplied and 403 when the
// token does not verify. On success the identity is stored on the context.
func RequireJWT(issuer *Issuer, allowQuery bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := issuer.Verify(ExtractToken(c.Request, allowQuery))
		if err != nil {
			if apperr.KindOf(err) == apperr.Unauthenticated {
				c.Header("WWW-Authenticate", "Bearer")
			}
			c.AbortWithStatusJSON(apperr.HTTPStatus(err), gin.H{"error": apperr.Message(err)})
			return
		}
		c.Set(CtxIdentityKey, id)
		c.Next()
	}
}

// IdentityFrom returns the identity RequireJWT stored on c.
func IdentityFrom(c *gin.Context) (Identity, bool) {
	v, ok := c.Get(CtxIdentityKey)
	if !ok {
		return Identity{}, false
	}
	id, ok := v.(Identity)
	return id, ok
}
