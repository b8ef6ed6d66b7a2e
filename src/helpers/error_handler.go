package helpers

import (
	"fmt"
	"time"

	"gold-monitor/src/logger"
)

// -----------------------------------------------------------------------------
// Custom Error Types
// -----------------------------------------------------------------------------

type GoldMonitorError struct {
	Message string
	Cause   error
}

func (e *GoldMonitorError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *GoldMonitorError) Unwrap() error {
	return e.Cause
}

// Distinct error types for type assertions.
// UpstreamError: producer connect/parse failure, retried, never fatal.
// ProtocolError: malformed client frame or idle timeout, drops one connection.
// AbuseError: rate-limit/ban/suspicious-path rejection.
// ValidationError: bad value on the privileged endpoint.
// CapacityError: admission refused at the connection ceiling.
type UpstreamError struct{ GoldMonitorError }
type ProtocolError struct{ GoldMonitorError }
type AbuseError struct{ GoldMonitorError }
type ValidationError struct{ GoldMonitorError }
type CapacityError struct{ GoldMonitorError }

// -----------------------------------------------------------------------------

func NewUpstreamError(message string, cause error) *UpstreamError {
	return &UpstreamError{GoldMonitorError{Message: message, Cause: cause}}
}

func NewProtocolError(message string, cause error) *ProtocolError {
	return &ProtocolError{GoldMonitorError{Message: message, Cause: cause}}
}

func NewAbuseError(message string) *AbuseError {
	return &AbuseError{GoldMonitorError{Message: message}}
}

func NewValidationError(message string) *ValidationError {
	return &ValidationError{GoldMonitorError{Message: message}}
}

func NewCapacityError(message string) *CapacityError {
	return &CapacityError{GoldMonitorError{Message: message}}
}

// -----------------------------------------------------------------------------
// Retry Logic
// -----------------------------------------------------------------------------

// RetryWithBackoff attempts to execute the operation up to maxRetries times
// with exponential backoff.
func RetryWithBackoff(log *logger.Logger, operation string, maxRetries int, baseDelay time.Duration, fn func() error) error {
	var lastErr error

	for attempt := 0; attempt < maxRetries; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}

		lastErr = err
		if attempt == maxRetries-1 {
			break
		}

		delay := baseDelay * (1 << attempt)
		log.Warning("Attempt %d/%d failed for %s: %v. Retrying in %v", attempt+1, maxRetries, operation, err, delay)
		time.Sleep(delay)
	}

	return NewUpstreamError(fmt.Sprintf("%s failed after %d attempts", operation, maxRetries), lastErr)
}
