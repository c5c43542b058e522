package upstream

import (
	"errors"
	"fmt"
)

// HTTPError reports a non-2xx response from an upstream call.
type HTTPError struct {
	Status int
	URL    string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("upstream %s returned status %d", e.URL, e.Status)
}

// TransportError reports a failure before a usable response was obtained:
// connection, DNS, timeout or an undecodable body.
type TransportError struct {
	Cause error
}

func (e *TransportError) Error() string {
	if e.Cause == nil {
		return "upstream transport error"
	}
	return e.Cause.Error()
}

func (e *TransportError) Unwrap() error {
	return e.Cause
}

// StatusCode returns the upstream status carried by err, if any.
func StatusCode(err error) (int, bool) {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.Status, true
	}
	return 0, false
}

// IsUpstreamError reports whether err came out of the upstream client.
func IsUpstreamError(err error) bool {
	var httpErr *HTTPError
	var transportErr *TransportError
	return errors.As(err, &httpErr) || errors.As(err, &transportErr)
}
