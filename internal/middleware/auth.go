package middleware

import (
	"crypto/subtle"
	"net"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/promptstash/promptstash/internal/common"
)

// APIKeyAuth authenticates requests with "Authorization: Bearer <key>"
// against the configured key. Loopback clients bypass the check when
// allowLocalhostBypass is set, so the CLI works out of the box on the
// same machine.
func APIKeyAuth(apiKey string, allowLocalhostBypass bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		if allowLocalhostBypass && isLoopback(c.ClientIP()) {
			c.Next()
			return
		}

		header := c.GetHeader("Authorization")
		if header == "" {
			common.ErrorResponse(c, http.StatusUnauthorized,
				"Missing API key. Provide 'Authorization: Bearer <key>' header.", nil)
			c.Abort()
			return
		}

		key := strings.TrimPrefix(header, "Bearer ")
		if subtle.ConstantTimeCompare([]byte(key), []byte(apiKey)) != 1 {
			common.ErrorResponse(c, http.StatusUnauthorized, "Invalid API key.", nil)
			c.Abort()
			return
		}
		c.Next()
	}
}

func isLoopback(clientIP string) bool {
	ip := net.ParseIP(clientIP)
	return ip != nil && ip.IsLoopback()
}
