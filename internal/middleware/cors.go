package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const (
	corsMethods = "GET, POST, PUT, PATCH, DELETE, OPTIONS"
	// X-Request-ID is allowed inbound and exposed outbound so clients can
	// carry the correlation id across retries.
	corsHeaders = "Authorization, Content-Type, X-Request-ID"
)

// CORS answers preflight requests and stamps the allow headers on every
// response. Origins are not restricted: auth rides in the JWT header, never
// in cookies, so there is no ambient credential to protect.
func CORS() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", corsMethods)
		c.Header("Access-Control-Allow-Headers", corsHeaders)
		c.Header("Access-Control-Expose-Headers", "X-Request-ID")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
