package price

import (
	"errors"

	"github.com/wonny/trendcast/internal/pkg/config"
)

// Domain errors
var (
	// ErrConfiguration is shared with the config package so callers can match either.
	ErrConfiguration = config.ErrConfiguration

	// Fetch errors: transport failure, non-2xx status, timeout, provider throttling
	ErrNetwork = errors.New("network error")

	// Payload or artifact does not have the expected shape
	ErrDataShape = errors.New("unexpected data shape")

	// Database unreachable or write/read failure
	ErrPersistence = errors.New("persistence error")

	// Too few bars for the requested window
	ErrInsufficientHistory = errors.New("insufficient history")
)

// Kind returns the taxonomy name of err, or "Unknown" when it matches none.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrConfiguration):
		return "ConfigurationError"
	case errors.Is(err, ErrNetwork):
		return "NetworkError"
	case errors.Is(err, ErrDataShape):
		return "DataShapeError"
	case errors.Is(err, ErrPersistence):
		return "PersistenceError"
	case errors.Is(err, ErrInsufficientHistory):
		return "InsufficientHistoryError"
	default:
		return "Unknown"
	}
}
