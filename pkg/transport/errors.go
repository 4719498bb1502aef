package transport

import (
	"errors"
	"fmt"
)

// ErrorClass represents a classification of transport failures.
type ErrorClass string

const (
	// ErrorClassNetwork represents connection-level failures.
	ErrorClassNetwork ErrorClass = "network"

	// ErrorClassTimeout represents requests that got no response within the timeout.
	ErrorClassTimeout ErrorClass = "timeout"

	// ErrorClassClient represents 4xx client errors.
	ErrorClassClient ErrorClass = "client"

	// ErrorClassServer represents 5xx server errors.
	ErrorClassServer ErrorClass = "server"

	// ErrorClassRateLimit represents 429 responses.
	// The status is only classified, no limit state is tracked.
	ErrorClassRateLimit ErrorClass = "rate_limit"
)

// NetworkError is the single error type returned by PerformRequest.
type NetworkError struct {
	URL        string
	StatusCode int
	ErrorClass ErrorClass
	Message    string
	Err        error
}

// Error implements the error interface.
func (e *NetworkError) Error() string {
	if e.StatusCode == 0 {
		if e.Err != nil {
			return fmt.Sprintf("%s error: GET %s: %s: %v", e.ErrorClass, e.URL, e.Message, e.Err)
		}
		return fmt.Sprintf("%s error: GET %s: %s", e.ErrorClass, e.URL, e.Message)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s error (status %d): GET %s: %s: %v",
			e.ErrorClass, e.StatusCode, e.URL, e.Message, e.Err)
	}
	return fmt.Sprintf("%s error (status %d): GET %s: %s",
		e.ErrorClass, e.StatusCode, e.URL, e.Message)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *NetworkError) Unwrap() error {
	return e.Err
}

// Timeout reports whether the request ran out of time.
func (e *NetworkError) Timeout() bool {
	return e.ErrorClass == ErrorClassTimeout
}

// IsTimeout reports whether err is a NetworkError of the timeout class.
func IsTimeout(err error) bool {
	var netErr *NetworkError
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}
	return false
}

// ClassOf returns the ErrorClass of err, or "" if err is not a NetworkError.
func ClassOf(err error) ErrorClass {
	var netErr *NetworkError
	if errors.As(err, &netErr) {
		return netErr.ErrorClass
	}
	return ""
}

// classifyStatus maps a non-2xx status code to its error class.
func classifyStatus(statusCode int) ErrorClass {
	switch {
	case statusCode == 429:
		return ErrorClassRateLimit
	case statusCode >= 400 && statusCode < 500:
		return ErrorClassClient
	case statusCode >= 500:
		return ErrorClassServer
	default:
		// 1xx/3xx that made it past the redirect policy
		return ErrorClassNetwork
	}
}
