package upstream

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	obsmetrics "github.com/smallbiznis/gamepasses/internal/observability/metrics"
	obstracing "github.com/smallbiznis/gamepasses/internal/observability/tracing"
	"go.uber.org/zap"
)

const maxBodyBytes = 8 << 20

// Options configures a Client. Zero timeouts fall back to the policy defaults.
type Options struct {
	UserAgent      string
	ConnectTimeout time.Duration
	ReadTimeout    time.Duration
}

const (
	defaultConnectTimeout = 5 * time.Second
	defaultReadTimeout    = 20 * time.Second
)

// Client issues GET requests against the catalog APIs and decodes JSON bodies.
// It is immutable after construction and safe for concurrent use.
type Client struct {
	http        *http.Client
	userAgent   string
	callTimeout time.Duration
	log         *zap.Logger
	metrics     *obsmetrics.Metrics
}

func NewClient(opts Options, log *zap.Logger, metrics *obsmetrics.Metrics) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	connect := opts.ConnectTimeout
	if connect <= 0 || connect > defaultConnectTimeout {
		connect = defaultConnectTimeout
	}
	read := opts.ReadTimeout
	if read <= 0 || read > defaultReadTimeout {
		read = defaultReadTimeout
	}

	dialer := &net.Dialer{Timeout: connect, KeepAlive: 30 * time.Second}
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		TLSHandshakeTimeout:   connect,
		ResponseHeaderTimeout: read,
		MaxIdleConns:          64,
		MaxIdleConnsPerHost:   16,
		IdleConnTimeout:       90 * time.Second,
	}

	return &Client{
		http:        obstracing.WrapHTTPClient(&http.Client{Transport: transport}),
		userAgent:   opts.UserAgent,
		callTimeout: connect + read,
		log:         log.Named("upstream.client"),
		metrics:     metrics,
	}
}

// GetJSON fetches rawURL and decodes the JSON body into out.
// endpoint is a low-cardinality label used for logs and metrics.
func (c *Client) GetJSON(ctx context.Context, endpoint, rawURL string, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.callTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return &TransportError{Cause: err}
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.metrics.RecordUpstreamRequest(ctx, endpoint, 0)
		c.log.Debug("upstream request failed",
			zap.String("endpoint", endpoint),
			zap.String("url", rawURL),
			zap.Int64("duration_ms", time.Since(start).Milliseconds()),
			zap.Error(err),
		)
		return &TransportError{Cause: err}
	}
	defer resp.Body.Close()

	c.metrics.RecordUpstreamRequest(ctx, endpoint, resp.StatusCode)
	c.log.Debug("upstream request",
		zap.String("endpoint", endpoint),
		zap.String("url", rawURL),
		zap.Int("status", resp.StatusCode),
		zap.Int64("duration_ms", time.Since(start).Milliseconds()),
	)

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
		return &HTTPError{Status: resp.StatusCode, URL: rawURL}
	}

	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(out); err != nil {
		return &TransportError{Cause: fmt.Errorf("decode %s: %w", endpoint, err)}
	}
	return nil
}
