package domain

import (
	"errors"

	"github.com/smallbiznis/gamepasses/internal/upstream"
)

// Failure reports that discovery could not complete, so no result exists.
type Failure struct {
	Err error
}

func (f *Failure) Error() string {
	if f == nil || f.Err == nil {
		return "aggregate failed"
	}
	return "aggregate failed: " + f.Err.Error()
}

func (f *Failure) Unwrap() error {
	if f == nil {
		return nil
	}
	return f.Err
}

// StatusCode returns the upstream HTTP status behind the failure, if any.
func (f *Failure) StatusCode() (int, bool) {
	if f == nil {
		return 0, false
	}
	return upstream.StatusCode(f.Err)
}

// IsHTTP reports whether discovery ended on a non-2xx upstream response.
func (f *Failure) IsHTTP() bool {
	_, ok := f.StatusCode()
	return ok
}

// AsFailure extracts a *Failure from err.
func AsFailure(err error) (*Failure, bool) {
	var f *Failure
	if errors.As(err, &f) {
		return f, true
	}
	return nil, false
}
