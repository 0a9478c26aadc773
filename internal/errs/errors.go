// Package errs defines the engine-wide error taxonomy.
//
// Every component surfaces typed failures classified into one of the
// ErrorClass buckets so callers — and the orchestra's cycle boundary —
// can branch on severity without string matching.
package errs

import "errors"

// ErrorClass buckets a failure by how the orchestra should react to it.
type ErrorClass string

const (
	// ClassTransient covers network, rate-limit, and timeout errors.
	// Retried with exponential backoff; surfaced only after the retry
	// budget is exhausted.
	ClassTransient ErrorClass = "transient"
	// ClassProtocol covers malformed venue payloads. Logged, the
	// symbol's update is skipped, and a counter increments; the symbol
	// circuit-breaks after too many consecutive failures.
	ClassProtocol ErrorClass = "protocol"
	// ClassValidation covers bad presets or malformed order requests.
	// Raised immediately to the caller; never retried.
	ClassValidation ErrorClass = "validation"
	// ClassRiskRefusal is not an error in the failure sense: a gate
	// denied the action, a diagnostics row is recorded, and the
	// orchestra returns to SCANNING.
	ClassRiskRefusal ErrorClass = "risk_refusal"
	// ClassInvariant covers FSM-impossible transitions or quantity
	// mismatches. Fatal to the affected position; the orchestra keeps
	// running.
	ClassInvariant ErrorClass = "invariant"
	// ClassCatastrophic covers kill-switch trips and unrecoverable
	// venue state. The orchestra moves to EMERGENCY: flat-all, refuse
	// new entries.
	ClassCatastrophic ErrorClass = "catastrophic"
)

// ClassifiedError wraps an error with its ErrorClass so the cycle
// boundary can decide whether to retry, drop, or escalate.
type ClassifiedError struct {
	Class ErrorClass
	Err   error
}

func (e *ClassifiedError) Error() string { return e.Err.Error() }
func (e *ClassifiedError) Unwrap() error { return e.Err }

// Classify wraps err with the given class.
func Classify(class ErrorClass, err error) error {
	if err == nil {
		return nil
	}
	return &ClassifiedError{Class: class, Err: err}
}

// ClassOf extracts the ErrorClass from err, if any was attached.
func ClassOf(err error) (ErrorClass, bool) {
	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce.Class, true
	}
	return "", false
}

// Sentinel errors named by the venue-client taxonomy (§4.1, §7).
var (
	ErrRateLimitExceeded = errors.New("venue: rate limit exceeded")
	ErrNetwork           = errors.New("venue: network error")
	ErrAuth              = errors.New("venue: authentication error")
	ErrBadRequest        = errors.New("venue: bad request")
	ErrOrderBookGap      = errors.New("orderbook: sequence gap, resync required")
	ErrKillSwitchActive  = errors.New("risk: kill switch active, new entries refused")
	ErrSignalRejected    = errors.New("risk: signal rejected by gate")
)
