package middleware

import (
	"github.com/gin-gonic/gin"
)

// forwardingHeaders are read in order, and only when the socket peer is a trusted proxy.
var forwardingHeaders = []string{"CF-Connecting-IP", "X-Forwarded-For", "X-Real-IP"}

// TrustProxies limits which peers may name the client through forwarding headers.
// With no proxies the socket address is the client, whatever the headers say.
func TrustProxies(r *gin.Engine, proxies []string) error {
	r.ForwardedByClientIP = true
	r.RemoteIPHeaders = forwardingHeaders
	return r.SetTrustedProxies(proxies)
}

// RealIP stores the caller address under "real_ip".
func RealIP() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("real_ip", c.ClientIP())
		c.Next()
	}
}

func clientIP(c *gin.Context) string {
	if ip := c.GetString("real_ip"); ip != "" {
		return ip
	}
	return c.ClientIP()
}
