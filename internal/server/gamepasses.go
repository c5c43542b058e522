package server

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	aggregatedomain "github.com/smallbiznis/gamepasses/internal/aggregate/domain"
	"github.com/smallbiznis/gamepasses/internal/observability/logger"
	obstracing "github.com/smallbiznis/gamepasses/internal/observability/tracing"
	universedomain "github.com/smallbiznis/gamepasses/internal/universe/domain"
	"github.com/smallbiznis/gamepasses/internal/upstream"
	"go.uber.org/zap"
)

func (s *Server) GetUserGamepasses(c *gin.Context) {
	res, ok := s.aggregate(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) GetUserGamepassesHTML(c *gin.Context) {
	res, failure := s.aggregateOrFailure(c)
	if failure == nil && res == nil {
		return
	}
	if failure != nil {
		status, message := htmlFailureMessage(failure)
		c.Data(status, "text/plain; charset=utf-8", []byte(message))
		return
	}
	c.HTML(http.StatusOK, gamepassesTemplate, newGamepassesPage(res))
}

func (s *Server) aggregate(c *gin.Context) (*aggregatedomain.Result, bool) {
	res, failure := s.aggregateOrFailure(c)
	if failure != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": jsonFailureCode(failure)})
		return nil, false
	}
	return res, res != nil
}

// aggregateOrFailure returns (nil, nil) when the request was already aborted.
func (s *Server) aggregateOrFailure(c *gin.Context) (*aggregatedomain.Result, error) {
	userID, err := parseUserID(c.Param("userId"))
	if err != nil {
		AbortWithError(c, err)
		return nil, nil
	}

	ctx := c.Request.Context()
	res, err := s.aggregator.Aggregate(ctx, userID)
	if err != nil {
		logger.WithUser(logger.FromContext(ctx), userID).Warn("gamepass lookup failed", zap.Error(err))
		obstracing.AnnotateLookup(ctx, obstracing.Lookup{FailureClass: failureClass(err)})
		_ = c.Error(err)
		return nil, err
	}
	obstracing.AnnotateLookup(ctx, lookupSummary(res))
	return res, nil
}

func lookupSummary(res *aggregatedomain.Result) obstracing.Lookup {
	if res == nil {
		return obstracing.Lookup{}
	}
	summary := obstracing.Lookup{Universes: len(res.Universes), Total: res.Total}
	for _, rec := range res.Passes {
		if rec.Error != "" {
			summary.FailedUniverses++
		}
	}
	return summary
}

func failureClass(err error) string {
	if _, ok := upstream.StatusCode(err); ok {
		return "http_error"
	}
	return "request_exception"
}

func parseUserID(raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0, newValidationError("userId", "invalid_user_id", "userId must be a positive integer")
	}
	return id, nil
}

func jsonFailureCode(err error) string {
	if status, ok := upstream.StatusCode(err); ok {
		return fmt.Sprintf("http_error:%d", status)
	}
	return "request_exception:" + failureMessage(err)
}

func htmlFailureMessage(err error) (int, string) {
	if status, ok := upstream.StatusCode(err); ok {
		return http.StatusBadGateway, fmt.Sprintf("HTTP error %d", status)
	}
	return http.StatusBadGateway, "Request error: " + failureMessage(err)
}

// failureMessage reports the root cause without the aggregate and discovery
// wrapping.
func failureMessage(err error) string {
	var transportErr *upstream.TransportError
	switch {
	case errors.As(err, &transportErr):
		return transportErr.Error()
	case errors.Is(err, universedomain.ErrPageLimitExceeded):
		return universedomain.ErrPageLimitExceeded.Error()
	}
	if failure, ok := aggregatedomain.AsFailure(err); ok && failure.Err != nil {
		return failure.Err.Error()
	}
	return err.Error()
}
