package helpers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"nifty-dashboard/src/logger"
)

// -----------------------------------------------------------------------------
// Custom Error Types
// -----------------------------------------------------------------------------

var (
	ErrDataUnavailable = errors.New("data unavailable")
	ErrEmptySeries     = errors.New("empty series")
	ErrUnknownTicker   = errors.New("unknown ticker")
)

type DashboardError struct {
	Message string
	Cause   error
}

func (e *DashboardError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *DashboardError) Unwrap() error {
	return e.Cause
}

// Helper to define distinct error types for type assertions if needed
type ConfigurationError struct{ DashboardError }
type NetworkError struct{ DashboardError }
type DatabaseError struct{ DashboardError }
type ValidationError struct{ DashboardError }

// -----------------------------------------------------------------------------

// DataUnavailableError reports an upstream fetch that failed or came back empty.
type DataUnavailableError struct {
	DashboardError
	Ticker string
	Empty  bool
}

func (e *DataUnavailableError) Is(target error) bool {
	return target == ErrDataUnavailable || (e.Empty && target == ErrEmptySeries)
}

// NewDataUnavailable wraps cause unless it already is a DataUnavailableError.
func NewDataUnavailable(ticker, message string, cause error) *DataUnavailableError {
	var existing *DataUnavailableError
	if errors.As(cause, &existing) {
		return existing
	}
	return &DataUnavailableError{
		DashboardError: DashboardError{Message: message, Cause: cause},
		Ticker:         ticker,
	}
}

// NewEmptySeries reports a successful fetch without any rows.
func NewEmptySeries(ticker, period string) *DataUnavailableError {
	return &DataUnavailableError{
		DashboardError: DashboardError{Message: fmt.Sprintf("no price data for %s (%s)", ticker, period)},
		Ticker:         ticker,
		Empty:          true,
	}
}

// -----------------------------------------------------------------------------

// UnknownTickerError rejects a selection missing from the symbol directory.
type UnknownTickerError struct {
	DashboardError
	Ticker string
}

func (e *UnknownTickerError) Is(target error) bool {
	return target == ErrUnknownTicker
}

func NewUnknownTicker(ticker string) *UnknownTickerError {
	return &UnknownTickerError{
		DashboardError: DashboardError{Message: fmt.Sprintf("unknown ticker %q", ticker)},
		Ticker:         ticker,
	}
}

// -----------------------------------------------------------------------------

func NewValidationError(format string, args ...interface{}) *ValidationError {
	return &ValidationError{DashboardError{Message: fmt.Sprintf(format, args...)}}
}

func NewConfigurationError(message string, cause error) *ConfigurationError {
	return &ConfigurationError{DashboardError{Message: message, Cause: cause}}
}

func NewNetworkError(message string, cause error) *NetworkError {
	return &NetworkError{DashboardError{Message: message, Cause: cause}}
}

func NewDatabaseError(message string, cause error) *DatabaseError {
	return &DatabaseError{DashboardError{Message: message, Cause: cause}}
}

// -----------------------------------------------------------------------------
// Retry Logic
// -----------------------------------------------------------------------------

// RetryWithBackoff attempts to execute the operation up to maxRetries times with exponential backoff.
func RetryWithBackoff[T any](ctx context.Context, operation string, maxRetries int, baseDelay time.Duration, log *logger.Logger, fn func() (T, error)) (T, error) {
	var zero T
	var lastErr error

	if maxRetries < 1 {
		maxRetries = 1
	}

	for attempt := 0; attempt < maxRetries; attempt++ {
		res, err := fn()
		if err == nil {
			return res, nil
		}

		lastErr = err
		if attempt == maxRetries-1 {
			break
		}

		delay := baseDelay * (1 << attempt)
		if log != nil {
			log.Warning("Attempt %d/%d failed for %s: %v. Retrying in %v", attempt+1, maxRetries, operation, err, delay)
		}

		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(delay):
		}
	}

	return zero, fmt.Errorf("%s failed after %d attempts: %w", operation, maxRetries, lastErr)
}
