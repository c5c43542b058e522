package server

import (
	"context"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/gamepasses/internal/observability/logger"
	"go.uber.org/zap"
)

const (
	rateLimitReasonClientRate   = "client-rate"
	rateLimitReasonUserInFlight = "user-in-flight"
)

// LookupRateLimit throttles lookups per client address and rejects a second
// lookup of a user while one is still running.
func (s *Server) LookupRateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.limiter.Enabled() {
			c.Next()
			return
		}

		endpoint := normalizeRateLimitEndpoint(c)
		ctx := c.Request.Context()

		res, err := s.limiter.AllowClient(ctx, c.ClientIP())
		if err != nil {
			logger.FromContext(ctx).Warn("lookup rate limit check failed", zap.Error(err))
			AbortWithError(c, ErrServiceUnavailable)
			return
		}
		if !res.Allowed {
			s.denyLookup(c, endpoint, rateLimitReasonClientRate, res.RetryAfter)
			return
		}

		if userID, err := parseUserID(c.Param("userId")); err == nil {
			token, locked, err := s.limiter.TryLockUser(ctx, userID)
			if err != nil {
				logger.FromContext(ctx).Warn("lookup lock failed", zap.Error(err))
				AbortWithError(c, ErrServiceUnavailable)
				return
			}
			if !locked {
				s.denyLookup(c, endpoint, rateLimitReasonUserInFlight, time.Second)
				return
			}
			defer func() {
				if err := s.limiter.ReleaseUser(context.WithoutCancel(ctx), userID, token); err != nil {
					logger.FromContext(ctx).Warn("lookup unlock failed", zap.Error(err))
				}
			}()
		}

		s.obsMetrics.RecordRateLimitAllowed(ctx, endpoint)
		c.Next()
	}
}

func (s *Server) denyLookup(c *gin.Context, endpoint, reason string, retryAfter time.Duration) {
	ctx := c.Request.Context()
	logger.FromContext(ctx).Warn("lookup rate limit exceeded",
		zap.String("reason", reason),
		zap.String("endpoint", endpoint),
	)
	s.obsMetrics.RecordRateLimitDenied(ctx, endpoint, reason)

	c.Header("Retry-After", retryAfterSeconds(retryAfter))
	c.Header("X-Rate-Limited-Reason", reason)
	AbortWithError(c, ErrRateLimited)
}

func retryAfterSeconds(d time.Duration) string {
	seconds := int(math.Ceil(d.Seconds()))
	if seconds < 1 {
		seconds = 1
	}
	return strconv.Itoa(seconds)
}

func normalizeRateLimitEndpoint(c *gin.Context) string {
	endpoint := strings.TrimSpace(c.FullPath())
	if endpoint == "" {
		endpoint = strings.TrimSpace(c.Request.URL.Path)
	}
	if endpoint == "" {
		endpoint = "unknown"
	}
	return endpoint
}
