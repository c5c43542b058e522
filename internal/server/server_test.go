package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang/mock/gomock"
	aggregatedomain "github.com/smallbiznis/gamepasses/internal/aggregate/domain"
	aggregatemocks "github.com/smallbiznis/gamepasses/internal/aggregate/mocks"
	"github.com/smallbiznis/gamepasses/internal/config"
	gamepassdomain "github.com/smallbiznis/gamepasses/internal/gamepass/domain"
	"github.com/smallbiznis/gamepasses/internal/observability"
	obsmetrics "github.com/smallbiznis/gamepasses/internal/observability/metrics"
	universedomain "github.com/smallbiznis/gamepasses/internal/universe/domain"
	"github.com/smallbiznis/gamepasses/internal/upstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) (*Server, *aggregatemocks.MockService) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	registry := obsmetrics.NewRegistry()
	httpMetrics, err := obsmetrics.NewHTTPMetrics(registry)
	require.NoError(t, err)

	engine := NewEngine(observability.Config{Environment: "test"}, httpMetrics, registry)
	aggregator := aggregatemocks.NewMockService(gomock.NewController(t))

	srv := NewServer(ServerParams{
		Gin:        engine,
		Cfg:        config.Config{},
		Aggregator: aggregator,
	})
	return srv, aggregator
}

func serve(srv *Server, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	srv.Engine().ServeHTTP(rec, req)
	return rec
}

func sampleResult() *aggregatedomain.Result {
	id := int64(10)
	name := "VIP <b>"
	price := 99.5
	link := "https://www.roblox.com/game-pass/10/VIP%20%3Cb%3E"
	return &aggregatedomain.Result{
		UserID:    42,
		Universes: []universedomain.UniverseID{1, 2, 3},
		Total:     1,
		Passes: []gamepassdomain.Record{
			{UniverseID: 1, ID: &id, Name: &name, Price: &price, Link: &link},
			gamepassdomain.PlaceholderRecord(2),
			gamepassdomain.ErrorRecord(3, gamepassdomain.CodeCanceled),
		},
	}
}

func TestGetUserGamepassesJSON(t *testing.T) {
	srv, aggregator := newTestServer(t)
	aggregator.EXPECT().Aggregate(gomock.Any(), int64(42)).Return(sampleResult(), nil)

	rec := serve(srv, "/user/42/gamepasses")

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, float64(42), body["userId"])
	assert.Equal(t, []any{float64(1), float64(2), float64(3)}, body["universes"])
	assert.Equal(t, float64(1), body["total"])

	passes := body["passes"].([]any)
	require.Len(t, passes, 3)
	placeholder := passes[1].(map[string]any)
	assert.Nil(t, placeholder["id"])
	assert.Nil(t, placeholder["link"])
	assert.NotContains(t, placeholder, "error")
	assert.Equal(t, "universe_fetch_failed:canceled", passes[2].(map[string]any)["error"])
}

func TestGetUserGamepassesJSONEmptyArrays(t *testing.T) {
	srv, aggregator := newTestServer(t)
	aggregator.EXPECT().Aggregate(gomock.Any(), int64(5)).Return(&aggregatedomain.Result{
		UserID:    5,
		Universes: []universedomain.UniverseID{},
		Passes:    []gamepassdomain.Record{},
	}, nil)

	rec := serve(srv, "/user/5/gamepasses")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"userId":5,"universes":[],"total":0,"passes":[]}`, rec.Body.String())
}

func TestGetUserGamepassesUpstreamStatus(t *testing.T) {
	srv, aggregator := newTestServer(t)
	aggregator.EXPECT().Aggregate(gomock.Any(), int64(42)).
		Return(nil, &aggregatedomain.Failure{Err: &upstream.HTTPError{Status: http.StatusServiceUnavailable}})

	rec := serve(srv, "/user/42/gamepasses")

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.JSONEq(t, `{"error":"http_error:503"}`, rec.Body.String())
}

func TestGetUserGamepassesTransportFailure(t *testing.T) {
	srv, aggregator := newTestServer(t)
	aggregator.EXPECT().Aggregate(gomock.Any(), int64(42)).
		Return(nil, &aggregatedomain.Failure{Err: &upstream.TransportError{Cause: errors.New("connection refused")}})

	rec := serve(srv, "/user/42/gamepasses")

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.JSONEq(t, `{"error":"request_exception:connection refused"}`, rec.Body.String())
}

func TestGetUserGamepassesRejectsInvalidUserID(t *testing.T) {
	for _, path := range []string{"/user/abc/gamepasses", "/user/0/gamepasses", "/user/-3/gamepasses.html"} {
		srv, _ := newTestServer(t)

		rec := serve(srv, path)

		assert.Equal(t, http.StatusBadRequest, rec.Code, path)
		var body errorResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "validation_error", body.Error.Type)
		require.Len(t, body.Error.Errors, 1)
		assert.Equal(t, "userId", body.Error.Errors[0].Field)
	}
}

func TestGetUserGamepassesHTML(t *testing.T) {
	srv, aggregator := newTestServer(t)
	aggregator.EXPECT().Aggregate(gomock.Any(), int64(42)).Return(sampleResult(), nil)

	rec := serve(srv, "/user/42/gamepasses.html")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")

	html := rec.Body.String()
	assert.Contains(t, html, "<h1>Gamepasses for 42</h1>")
	assert.Contains(t, html, "<th>Universe ID</th><th>Pass ID</th><th>Name</th><th>Price</th><th>Link</th>")
	assert.Contains(t, html, "<td>1</td><td>10</td><td>VIP &lt;b&gt;</td><td>99.5</td>")
	assert.Contains(t, html, `<a href="https://www.roblox.com/game-pass/10/VIP%20%3Cb%3E" target="_blank" rel="noopener">open</a>`)
	assert.Contains(t, html, "<tr><td>2</td><td></td><td></td><td></td><td></td></tr>")
	assert.Contains(t, html, "<td>universe_fetch_failed:canceled</td>")
	assert.NotContains(t, html, "No results")
	assert.Equal(t, 3, strings.Count(html, "<tr><td>"))
}

func TestGetUserGamepassesHTMLNoResults(t *testing.T) {
	srv, aggregator := newTestServer(t)
	aggregator.EXPECT().Aggregate(gomock.Any(), int64(7)).Return(&aggregatedomain.Result{
		UserID:    7,
		Universes: []universedomain.UniverseID{},
		Passes:    []gamepassdomain.Record{},
	}, nil)

	rec := serve(srv, "/user/7/gamepasses.html")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `<tr><td colspan="5">No results</td></tr>`)
}

func TestGetUserGamepassesHTMLFailures(t *testing.T) {
	srv, aggregator := newTestServer(t)
	aggregator.EXPECT().Aggregate(gomock.Any(), int64(1)).
		Return(nil, &aggregatedomain.Failure{Err: &upstream.HTTPError{Status: http.StatusNotFound}})
	aggregator.EXPECT().Aggregate(gomock.Any(), int64(2)).
		Return(nil, &aggregatedomain.Failure{Err: fmt.Errorf("user %d: %w", 2, universedomain.ErrPageLimitExceeded)})

	rec := serve(srv, "/user/1/gamepasses.html")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, "text/plain; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Equal(t, "HTTP error 404", rec.Body.String())

	rec = serve(srv, "/user/2/gamepasses.html")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, "Request error: discovery_page_limit_exceeded", rec.Body.String())
}

func TestGetUserGamepassesReportsRootCause(t *testing.T) {
	srv, aggregator := newTestServer(t)
	aggregator.EXPECT().Aggregate(gomock.Any(), int64(3)).
		Return(nil, &aggregatedomain.Failure{Err: fmt.Errorf("user %d: %w", 3, universedomain.ErrPageLimitExceeded)})
	aggregator.EXPECT().Aggregate(gomock.Any(), int64(4)).
		Return(nil, &aggregatedomain.Failure{Err: fmt.Errorf("discover universes for user %d: %w", 4,
			&upstream.TransportError{Cause: errors.New("dial tcp: connection refused")})})

	rec := serve(srv, "/user/3/gamepasses")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.JSONEq(t, `{"error":"request_exception:discovery_page_limit_exceeded"}`, rec.Body.String())

	rec = serve(srv, "/user/4/gamepasses")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.JSONEq(t, `{"error":"request_exception:dial tcp: connection refused"}`, rec.Body.String())
}

func TestHealthEndpoints(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := serve(srv, "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"ok":true}`, rec.Body.String())

	rec = serve(srv, "/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestMetricsEndpointExposesHTTPMetrics(t *testing.T) {
	srv, _ := newTestServer(t)

	serve(srv, "/healthz")
	rec := serve(srv, "/metrics")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
	assert.Contains(t, rec.Body.String(), `route="/healthz"`)
}

func TestUnknownRouteIsNotFound(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := serve(srv, "/nope")

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":{"type":"not_found","message":"not found"}}`, rec.Body.String())
}

func TestMapErrorRateLimited(t *testing.T) {
	status, payload := mapError(ErrRateLimited)
	assert.Equal(t, http.StatusTooManyRequests, status)
	assert.Equal(t, "rate_limited", payload.Type)
}

func TestClassifyErrorForLog(t *testing.T) {
	errType, code := classifyErrorForLog(&aggregatedomain.Failure{Err: &upstream.HTTPError{Status: 503}})
	assert.Equal(t, "upstream_error", errType)
	assert.Equal(t, "http_error_503", code)

	errType, _ = classifyErrorForLog(newValidationError("userId", "invalid_user_id", "bad"))
	assert.Equal(t, "validation_error", errType)
}

func TestRetryAfterSeconds(t *testing.T) {
	assert.Equal(t, "1", retryAfterSeconds(0))
	assert.Equal(t, "1", retryAfterSeconds(500*time.Millisecond))
	assert.Equal(t, "3", retryAfterSeconds(2100*time.Millisecond))
}
