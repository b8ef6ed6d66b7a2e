package security

import (
	"net/http"
	"strings"
	"time"

	"gold-monitor/src/ratelimit"
	"gold-monitor/src/utils"

	"github.com/gin-gonic/gin"
)

// -----------------------------------------------------------------------------
// Request gate. Runs once per inbound request, short-circuiting on the first
// match: ban check, rate limit (unless whitelisted), suspicious-path scan.
// -----------------------------------------------------------------------------

const html429 = "<!DOCTYPE html><html><head><title>429</title></head><body><h1>Too Many Requests</h1></body></html>"

// -----------------------------------------------------------------------------

// ClientIP resolves the client identity from trusted-proxy headers: first
// entry of X-Forwarded-For, else X-Real-IP, else "unknown". Deliberately not
// cryptographically verified.
func ClientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if first, _, _ := strings.Cut(fwd, ","); strings.TrimSpace(first) != "" {
			return strings.TrimSpace(first)
		}
	}
	if real := strings.TrimSpace(r.Header.Get("X-Real-Ip")); real != "" {
		return real
	}
	return "unknown"
}

// -----------------------------------------------------------------------------

// isWhitelisted exempts the read surface and the control prefix from the
// rate limiter.
func isWhitelisted(path, lowerPath string) bool {
	return path == "/" || path == "/health" || path == "/api/state" || path == "/ws" ||
		strings.HasPrefix(lowerPath, utils.ControlPathPrefix)
}

// -----------------------------------------------------------------------------

// IsSuspicious matches the path against the denylist fragments. The control
// prefix is exempt so the system's own control surface is never self-denied.
func IsSuspicious(lowerPath string) bool {
	if strings.HasPrefix(lowerPath, utils.ControlPathPrefix) {
		return false
	}
	for _, fragment := range utils.SuspiciousPaths {
		if strings.Contains(lowerPath, fragment) {
			return true
		}
	}
	return false
}

// -----------------------------------------------------------------------------

// Middleware builds the gin security gate over the guard and limiter.
func Middleware(guard *AbuseGuard, limiter *ratelimit.RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := ClientIP(c.Request)
		path := c.Request.URL.Path
		lowerPath := strings.ToLower(path)

		if guard.IsBlocked(ip) {
			reject429(c)
			return
		}

		if !isWhitelisted(path, lowerPath) {
			count, verdict := limiter.Check(ip)
			switch verdict {
			case ratelimit.VerdictBlocked:
				guard.Logger.Warning("Rate limit exceeded hard ceiling for %s (%d requests), banning", ip, count)
				guard.BlockIP(ip, utils.EscalatedBlockSecs*time.Second)
				reject429(c)
				return
			case ratelimit.VerdictLimited:
				reject429(c)
				return
			}
		}

		if IsSuspicious(lowerPath) {
			guard.Logger.Warning("Suspicious path %q from %s", path, ip)
			guard.RecordFailedAttempt(ip, utils.WeightSuspiciousPath)
			c.Data(http.StatusForbidden, "application/json", []byte(`{"error":"forbidden"}`))
			c.Abort()
			return
		}

		c.Next()
	}
}

// -----------------------------------------------------------------------------

func reject429(c *gin.Context) {
	c.Header("Retry-After", "60")
	c.Data(http.StatusTooManyRequests, "text/html", []byte(html429))
	c.Abort()
}
