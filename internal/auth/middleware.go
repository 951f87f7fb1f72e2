package auth

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// TokenFromRequest reads the session token from the cookie first, then from
// an Authorization: Bearer header.
func TokenFromRequest(c *gin.Context, cookieName string) string {
	if cookieName != "" {
		if v, err := c.Cookie(cookieName); err == nil && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	h := strings.TrimSpace(c.GetHeader("Authorization"))
	if len(h) > 7 && strings.EqualFold(h[:7], "Bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

// RequireUser rejects requests without a valid session and stores the
// Identity on the request context.
func RequireUser(j JWT, cookieName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := TokenFromRequest(c, cookieName)
		if token == "" {
			abort(c, http.StatusUnauthorized, "not authenticated")
			return
		}
		claims, err := j.Verify(token)
		if err != nil {
			abort(c, http.StatusUnauthorized, "invalid or expired session")
			return
		}
		c.Request = c.Request.WithContext(WithIdentity(c.Request.Context(), Identity{UserID: claims.UserID, Email: claims.Email}))
		c.Next()
	}
}

// RequireAdminToken guards operator endpoints with a static bearer token.
// An empty token disables them.
func RequireAdminToken(token string) gin.HandlerFunc {
	token = strings.TrimSpace(token)
	return func(c *gin.Context) {
		if token == "" {
			abort(c, http.StatusForbidden, "admin endpoints disabled")
			return
		}
		got := TokenFromRequest(c, "")
		if subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
			abort(c, http.StatusUnauthorized, "missing or invalid admin token")
			return
		}
		c.Next()
	}
}

func abort(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, gin.H{
		"code":    status,
		"message": msg,
		"data":    nil,
	})
}
