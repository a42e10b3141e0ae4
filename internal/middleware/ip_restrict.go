package middleware

import (
	"net"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// IPRestrict middleware - only allow localhost or whitelisted IPs access.
// Used for the ops surface (metrics, queue stats) that should not face the
// public internet.
type IPRestrict struct {
	logger     *logrus.Logger
	allowedIPs []string // allowed IP addresses or CIDR ranges
}

// NewIPRestrict creates an IP restriction middleware. An empty whitelist
// means localhost-only.
func NewIPRestrict(logger *logrus.Logger, allowedIPs []string) *IPRestrict {
	return &IPRestrict{
		logger:     logger,
		allowedIPs: allowedIPs,
	}
}

// Restrict rejects requests from addresses outside the whitelist
func (m *IPRestrict) Restrict() gin.HandlerFunc {
	return func(c *gin.Context) {
		clientIP := c.ClientIP()
		remoteIP, _, _ := net.SplitHostPort(c.Request.RemoteAddr)

		if m.isAllowed(clientIP) || isLoopback(remoteIP) {
			c.Next()
			return
		}

		m.logger.WithFields(logrus.Fields{
			"client_ip": clientIP,
			"remote_ip": remoteIP,
			"path":      c.Request.URL.Path,
			"method":    c.Request.Method,
		}).Warn("Reject non-whitelisted access to ops API")

		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
			"error": "This API is only accessible from allowed IP addresses",
			"code":  "IP_NOT_ALLOWED",
		})
	}
}

func (m *IPRestrict) isAllowed(ip string) bool {
	if isLoopback(ip) {
		return true
	}
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return false
	}
	for _, allowed := range m.allowedIPs {
		allowed = strings.TrimSpace(allowed)
		if allowed == "" {
			continue
		}
		if strings.Contains(allowed, "/") {
			if _, cidr, err := net.ParseCIDR(allowed); err == nil && cidr.Contains(parsed) {
				return true
			}
			continue
		}
		if allowed == ip {
			return true
		}
	}
	return false
}

func isLoopback(ip string) bool {
	if ip == "localhost" {
		return true
	}
	parsed := net.ParseIP(ip)
	return parsed != nil && parsed.IsLoopback()
}
