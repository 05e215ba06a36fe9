package barbershop

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
)

var (
	// ErrUnavailable marks failures to reach the backend at all.
	ErrUnavailable = errors.New("barbershop backend unavailable")
	// ErrUnauthorized marks staff calls rejected for missing or expired credentials.
	ErrUnauthorized = errors.New("barbershop staff credentials rejected")
	// ErrNotFound marks lookups of a client or barber the backend does not know.
	ErrNotFound = errors.New("not found")
)

// StatusError is a non-2xx response. Message comes from the backend's
// {"error": "..."} body when present.
type StatusError struct {
	Method  string
	Path    string
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.Code, e.Message)
	}
	return fmt.Sprintf("%s %s: status %d", e.Method, e.Path, e.Code)
}

// Is lets callers match status classes with the package sentinels.
func (e *StatusError) Is(target error) bool {
	switch target {
	case ErrUnauthorized:
		return e.Code == http.StatusUnauthorized || e.Code == http.StatusForbidden
	case ErrNotFound:
		return e.Code == http.StatusNotFound
	case ErrUnavailable:
		return e.Code == http.StatusBadGateway || e.Code == http.StatusServiceUnavailable || e.Code == http.StatusGatewayTimeout
	}
	return false
}

// IsUnavailable reports whether err means the backend could not be reached.
func IsUnavailable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrUnavailable) {
		return true
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Err != nil {
		err = urlErr.Err
	}
	var opErr *net.OpError
	return errors.As(err, &opErr)
}
