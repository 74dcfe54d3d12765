package xero

import (
	"errors"
	"fmt"
)

// Stage identifies which of the two report documents an error belongs to.
type Stage string

const (
	StageJanNov   Stage = "Jan-Nov"
	StageDecember Stage = "Dec"
)

// ErrUnauthenticated is returned when no access token or tenant is available.
var ErrUnauthenticated = errors.New("not authenticated with Xero")

// UpstreamError reports a failed call to the Xero reporting API.
// StatusCode is zero when no response was received (timeout, transport error).
type UpstreamError struct {
	Stage      Stage
	StatusCode int
	Body       string
	Err        error
}

func (e *UpstreamError) Error() string {
	if e.StatusCode == 0 && e.Err != nil {
		return fmt.Sprintf("Xero API error (%s): %v", e.Stage, e.Err)
	}
	return fmt.Sprintf("Xero API error (%s): %s", e.Stage, e.Body)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// ParseError reports a report document that does not have the expected
// nested row shape.
type ParseError struct {
	Stage Stage
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s report: %v", e.Stage, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }
