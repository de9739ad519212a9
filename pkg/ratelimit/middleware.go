package ratelimit

import (
	"net"
	"net/http"
	"strconv"
	"strings"

	"eventhub/internal/shared/utils/response"
	"eventhub/pkg/logger"

	"github.com/gin-gonic/gin"
)

// Middleware rejects requests over the budget of their route's limit type.
// Redis failures are logged and the request is let through.
func Middleware(rateLimiter *RateLimiter, l *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		clientIP := getClientIP(c)
		limitType := getRateLimitType(c.Request.Method, c.FullPath())

		result, err := rateLimiter.IsAllowed(c.Request.Context(), clientIP, limitType)
		if err != nil {
			l.ErrorWithContext(c.Request.Context(), "rate limit check failed", err, map[string]interface{}{
				"ip":    clientIP,
				"limit": string(limitType),
			})
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(result.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(result.ResetTime, 10))

		if !result.Allowed {
			l.LogRateLimitExceeded(c.Request.Context(), clientIP, c.FullPath())
			response.RespondJSON(c, "error", http.StatusTooManyRequests,
				"Rate limit exceeded", nil, map[string]interface{}{
					"limit":      result.Limit,
					"reset_time": result.ResetTime,
				})
			c.Abort()
			return
		}

		c.Next()
	}
}

func getRateLimitType(method, path string) RateLimitType {
	switch {
	case strings.HasPrefix(path, "/health"),
		strings.HasPrefix(path, "/ping"),
		strings.HasPrefix(path, "/status"):
		return RateLimitTypeHealth

	// seat-moving writes
	case strings.HasSuffix(path, "/bookings") && method == http.MethodPost,
		strings.HasSuffix(path, "/bookings/:id") && method == http.MethodDelete:
		return RateLimitTypeBookingCritical

	// self-service routes, even when they mention events or bookings
	case strings.Contains(path, "/users/"):
		return RateLimitTypeUser

	case strings.Contains(path, "/events/") && strings.HasSuffix(path, "/bookings"):
		return RateLimitTypeOrganizer

	case strings.Contains(path, "/bookings"):
		return RateLimitTypeBooking

	case strings.Contains(path, "/events") && method == http.MethodPost:
		return RateLimitTypeOrganizer

	case strings.Contains(path, "/events"):
		return RateLimitTypePublic

	default:
		return RateLimitTypeDefault
	}
}

// extracts real client IP
func getClientIP(c *gin.Context) string {
	xForwardedFor := c.GetHeader("X-Forwarded-For")
	if xForwardedFor != "" {
		ips := strings.Split(xForwardedFor, ",")
		if len(ips) > 0 {
			ip := strings.TrimSpace(ips[0])
			if net.ParseIP(ip) != nil {
				return ip
			}
		}
	}

	xRealIP := c.GetHeader("X-Real-IP")
	if xRealIP != "" {
		if net.ParseIP(xRealIP) != nil {
			return xRealIP
		}
	}

	ip, _, err := net.SplitHostPort(c.Request.RemoteAddr)
	if err != nil {
		return c.Request.RemoteAddr
	}

	return ip
}
