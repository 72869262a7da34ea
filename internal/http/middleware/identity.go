// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file resolves caller identity. Chat users are identified by the
// X-User-ID header forwarded by the chat bridge; admin routes additionally
// require X-Admin-Token to match the configured token.
package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-storefront/internal/utils"
)

const (
	// HeaderUserID carries the chat user identity (signed 64-bit integer).
	HeaderUserID = "X-User-ID"
	// HeaderAdminToken carries the shared admin secret.
	HeaderAdminToken = "X-Admin-Token"

	userIDKey = "userID"
)

// UserIdentity requires a well-formed X-User-ID header and stores the parsed
// id in the Gin context under "userID" (int64). Requests without one are
// rejected with 401.
func UserIdentity() gin.HandlerFunc {
	return func(c *gin.Context) {
		uid, err := utils.ParseUserID(c.GetHeader(HeaderUserID))
		if err != nil {
			abortJSON(c, http.StatusUnauthorized, "unauthorized", "X-User-ID header must be a non-zero integer")
			return
		}
		c.Set(userIDKey, uid)
		c.Next()
	}
}

// UserIDFrom returns the identity stored by UserIdentity.
func UserIDFrom(c *gin.Context) (int64, bool) {
	v, ok := c.Get(userIDKey)
	if !ok {
		return 0, false
	}
	uid, ok := v.(int64)
	return uid, ok && uid != 0
}

// AdminOnly rejects requests whose X-Admin-Token does not match token. An
// empty token disables the admin surface entirely.
func AdminOnly(token string) gin.HandlerFunc {
	want := []byte(token)
	return func(c *gin.Context) {
		if len(want) == 0 {
			abortJSON(c, http.StatusForbidden, "forbidden", "admin access is disabled")
			return
		}
		got := []byte(c.GetHeader(HeaderAdminToken))
		if subtle.ConstantTimeCompare(got, want) != 1 {
			abortJSON(c, http.StatusForbidden, "forbidden", "invalid admin token")
			return
		}
		c.Next()
	}
}

// abortJSON writes the standard error envelope without importing handlers.
func abortJSON(c *gin.Context, status int, code, msg string) {
	c.AbortWithStatusJSON(status, gin.H{
		"request_id": c.Writer.Header().Get(requestIDHeader),
		"code":       code,
		"message":    msg,
	})
}
