package etl

import (
	"errors"

	"github.com/stockpulse/stockpulse/internal/marketdata"
)

// Kind labels the stage-level failure classes recorded in a run result.
type Kind string

const (
	KindTransport   Kind = "transport"
	KindRateLimit   Kind = "rate_limit"
	KindMalformed   Kind = "malformed_response"
	KindEmptyResult Kind = "empty_result"
	KindStorage     Kind = "storage"
)

// ErrEmptyResult is returned by Transform when zero valid date entries
// remain after filtering.
var ErrEmptyResult = errors.New("no valid entries in payload")

// ErrRunInProgress is returned by Pipeline.Run when a previous run has not
// reached its Completed state yet. Runs never overlap.
var ErrRunInProgress = errors.New("pipeline run already in progress")

// classifyFetch maps a client error onto the taxonomy. Anything the client
// does not mark explicitly is a transport failure.
func classifyFetch(err error) Kind {
	switch {
	case errors.Is(err, marketdata.ErrRateLimited):
		return KindRateLimit
	case errors.Is(err, marketdata.ErrMalformedResponse):
		return KindMalformed
	default:
		return KindTransport
	}
}

// classifyTransform maps a transformer error onto the taxonomy.
func classifyTransform(err error) Kind {
	if errors.Is(err, ErrEmptyResult) {
		return KindEmptyResult
	}
	return KindMalformed
}
