package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	obslogger "github.com/goghstudio/gogh-backend/internal/observability/logger"
	obsmetrics "github.com/goghstudio/gogh-backend/internal/observability/metrics"
	"go.uber.org/zap"
)

const (
	rateLimitReasonUserRate        = "user-rate"
	rateLimitReasonItemConcurrency = "item-concurrency"
)

type generateRateLimitKey struct {
	CalendarItemID string `json:"calendarItemId"`
}

// GenerateRateLimit throttles generation per user and holds a short
// per-item lock so concurrent runs against the same calendar item do
// not double-charge. Limiter failures deny conservatively; an absent
// limiter never blocks.
func (s *Server) GenerateRateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.generateLimiter == nil || !s.generateLimiter.Enabled() {
			c.Next()
			return
		}

		userID, ok := currentUserID(c)
		if !ok {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		ctx := c.Request.Context()
		endpoint := normalizeRateLimitEndpoint(c)

		result, err := s.generateLimiter.AllowUser(ctx, userID)
		if err != nil {
			obslogger.FromContext(ctx).Warn("generate rate limit check failed", zap.Error(err))
			denyGenerate(c, endpoint, rateLimitReasonUserRate, s.obsMetrics)
			return
		}
		if !result.Allowed {
			retryAfter := strconv.Itoa(max(int(result.RetryAfter.Seconds()), 1))
			c.Header("Retry-After", retryAfter)
			denyGenerate(c, endpoint, rateLimitReasonUserRate, s.obsMetrics)
			return
		}

		itemID, err := readGenerateItemID(c)
		if err != nil {
			AbortWithError(c, ErrInvalidRequest)
			return
		}

		if itemID > 0 {
			token, locked, err := s.generateLimiter.TryLockItem(ctx, itemID)
			if err != nil {
				obslogger.FromContext(ctx).Warn("generate item lock failed", zap.Error(err))
				denyGenerate(c, endpoint, rateLimitReasonItemConcurrency, s.obsMetrics)
				return
			}
			if !locked {
				c.Header("Retry-After", "1")
				denyGenerate(c, endpoint, rateLimitReasonItemConcurrency, s.obsMetrics)
				return
			}
			defer func() {
				if err := s.generateLimiter.ReleaseItem(ctx, itemID, token); err != nil {
					obslogger.FromContext(ctx).Warn("generate item unlock failed", zap.Error(err))
				}
			}()
		}

		c.Next()
	}
}

func denyGenerate(c *gin.Context, endpoint, reason string, metrics *obsmetrics.Metrics) {
	ctx := c.Request.Context()
	obslogger.FromContext(ctx).Warn("generate rate limit exceeded",
		zap.String("reason", reason),
		zap.String("endpoint", endpoint),
	)
	recordRateLimitDenied(ctx, endpoint, reason, metrics)

	c.Header("X-Rate-Limited-Reason", reason)
	AbortWithError(c, ErrRateLimited)
}

func recordRateLimitDenied(ctx context.Context, endpoint, reason string, metrics *obsmetrics.Metrics) {
	if metrics == nil {
		return
	}
	metrics.RecordRateLimitDenied(ctx, endpoint, reason)
}

// readGenerateItemID peeks the calendar item id from the request body
// and restores the body for the handler.
func readGenerateItemID(c *gin.Context) (int64, error) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		return 0, err
	}
	c.Request.Body = io.NopCloser(bytes.NewBuffer(body))
	if len(body) == 0 {
		return 0, nil
	}

	var payload generateRateLimitKey
	if err := json.Unmarshal(body, &payload); err != nil {
		return 0, nil
	}

	itemID, err := strconv.ParseInt(strings.TrimSpace(payload.CalendarItemID), 10, 64)
	if err != nil {
		return 0, nil
	}
	return itemID, nil
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
