package common

import (
	"errors"
	"fmt"
)

var (
	// Repository-level errors.
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("already exists")

	// ErrStorage wraps failed transactions. There is no recovery below the
	// storage layer, callers just propagate it.
	ErrStorage = errors.New("storage failure")

	// ErrNetwork marks transient transport failures (offline, DNS, reset).
	// Submissions fall back to the offline queue when they see it.
	ErrNetwork = errors.New("network failure")

	// ErrNoCredential means no foreground context and no snapshot could
	// supply a bearer token.
	ErrNoCredential = errors.New("no credential available")

	// Push / notification capability errors.
	ErrUnsupported      = errors.New("unsupported")
	ErrPermissionDenied = errors.New("permission denied")

	// Validation errors (input rejected before any I/O).
	ErrValidation = errors.New("validation error")

	ErrInvalidToken = errors.New("invalid token")
)

// ServerRejection is a non-2xx API response that carried a body. Message is
// the server's own text and is shown to the user verbatim.
type ServerRejection struct {
	StatusCode int
	Message    string
}

func (e *ServerRejection) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server rejected request with status %d", e.StatusCode)
	}
	return e.Message
}

// IsServerRejection reports whether err carries a *ServerRejection and returns it.
func IsServerRejection(err error) (*ServerRejection, bool) {
	var rej *ServerRejection
	if errors.As(err, &rej) {
		return rej, true
	}
	return nil, false
}
