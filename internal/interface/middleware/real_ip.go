package middleware

import (
	"net"
	"strings"

	"github.com/gin-gonic/gin"
)

// RealIP resolves the client IP behind proxies into the Gin context
// (key: "real_ip"). CF-Connecting-IP wins, then the left-most
// X-Forwarded-For entry, then Gin's own resolution.
func RealIP() gin.HandlerFunc {
	return func(c *gin.Context) {
		if cf := strings.TrimSpace(c.GetHeader("CF-Connecting-IP")); cf != "" {
			if ip := net.ParseIP(cf); ip != nil {
				c.Set("real_ip", ip.String())
				c.Next()
				return
			}
		}
		if xff := c.GetHeader("X-Forwarded-For"); xff != "" {
			first := strings.TrimSpace(strings.Split(xff, ",")[0])
			if ip := net.ParseIP(first); ip != nil {
				c.Set("real_ip", ip.String())
				c.Next()
				return
			}
		}
		c.Set("real_ip", c.ClientIP())
		c.Next()
	}
}

func ipFromCtx(c *gin.Context) string {
	if ip := c.GetString("real_ip"); ip != "" {
		return ip
	}
	if ip := c.ClientIP(); ip != "" {
		return ip
	}
	return "unknown"
}
