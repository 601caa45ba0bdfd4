package middlewares

import (
	"github.com/gin-gonic/gin"
)

const (
	apiCSP = "default-src 'none'; frame-ancestors 'none'"
	// uploaded images are served back from the same origin
	storageCSP = "default-src 'none'; img-src 'self'"
)

func SecurityHeaders(storagePrefix string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("Referrer-Policy", "no-referrer")
		c.Header("X-XSS-Protection", "0")
		if storagePrefix != "" && hasPathPrefix(c.Request.URL.Path, storagePrefix) {
			c.Header("Content-Security-Policy", storageCSP)
		} else {
			c.Header("Content-Security-Policy", apiCSP)
		}
		c.Next()
	}
}

func hasPathPrefix(path, prefix string) bool {
	return path == prefix || len(path) > len(prefix) && path[:len(prefix)] == prefix && path[len(prefix)] == '/'
}
