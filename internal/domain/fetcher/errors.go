package fetcher

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// Kind classifies an upstream failure for retry decisions.
type Kind int

const (
	KindUnknown Kind = iota
	// KindTransient covers lost connections, timeouts, and 5xx responses.
	KindTransient
	// KindNotFound is a 404: the upstream has no data for the request.
	KindNotFound
	// KindRejected is any other 4xx.
	KindRejected
	// KindDataContract means a response arrived but could not be read,
	// decoded, or validated.
	KindDataContract
	// KindCanceled means the caller's context ended.
	KindCanceled
)

func (k Kind) String() string {
	switch k {
	case KindTransient:
		return "transient"
	case KindNotFound:
		return "not_found"
	case KindRejected:
		return "rejected"
	case KindDataContract:
		return "data_contract"
	case KindCanceled:
		return "canceled"
	default:
		return "unknown"
	}
}

// Retryable reports whether another attempt could succeed.
func (k Kind) Retryable() bool {
	return k == KindTransient
}

// StatusError is returned by sources for non-2xx HTTP responses.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("unexpected status %d", e.StatusCode)
	}
	return fmt.Sprintf("unexpected status %d: %s", e.StatusCode, e.Body)
}

// DataContractError wraps a failure to turn a received response into a
// domain record.
type DataContractError struct {
	Op  string
	Err error
}

func (e *DataContractError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *DataContractError) Unwrap() error {
	return e.Err
}

// Contract marks err as a data contract failure for op.
func Contract(op string, err error) error {
	return &DataContractError{Op: op, Err: err}
}

// Classify maps an error returned by a source onto a Kind.
func Classify(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	if errors.Is(err, context.Canceled) {
		return KindCanceled
	}
	// A deadline can expire while the body is still streaming, so timeouts
	// win over the data contract wrapping.
	if isTimeout(err) {
		return KindTransient
	}

	var contract *DataContractError
	if errors.As(err, &contract) {
		return KindDataContract
	}

	var status *StatusError
	if errors.As(err, &status) {
		switch {
		case status.StatusCode == http.StatusNotFound:
			return KindNotFound
		case status.StatusCode >= http.StatusInternalServerError:
			return KindTransient
		case status.StatusCode >= http.StatusBadRequest:
			return KindRejected
		default:
			return KindUnknown
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return KindTransient
	}
	return KindUnknown
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// RetryError reports how a retried call finally failed.
type RetryError struct {
	Kind      Kind
	Attempts  int
	Exhausted bool
	Err       error
}

func (e *RetryError) Error() string {
	if e.Exhausted {
		return fmt.Sprintf("gave up after %d attempts: %v", e.Attempts, e.Err)
	}
	return fmt.Sprintf("%s failure on attempt %d: %v", e.Kind, e.Attempts, e.Err)
}

func (e *RetryError) Unwrap() error {
	return e.Err
}
