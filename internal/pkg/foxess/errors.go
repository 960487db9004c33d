package foxess

import (
	"errors"
	"fmt"
)

var (
	ErrAuth              = errors.New("authentication failed")
	ErrBadCredentials    = fmt.Errorf("%w: bad credentials", ErrAuth)
	ErrTokenExpired      = errors.New("token expired")
	ErrTransport         = errors.New("transport error")
	ErrMalformedResponse = errors.New("malformed response")
	ErrAPI               = errors.New("api error")
	ErrUnsupported       = errors.New("not supported by api generation")
)

// Vendor errno values.
const (
	ErrnoSuccess        = 0
	ErrnoRateLimited    = 40400
	ErrnoBadCredentials = 41807
	ErrnoTokenExpired   = 41808
	ErrnoTokenInvalid   = 41809
)

// APIError is a response that decoded cleanly but carried a non-zero errno.
type APIError struct {
	Path  string
	Errno int
	Msg   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: errno %d: %s", e.Path, e.Errno, e.Msg)
}

func (e *APIError) Unwrap() error {
	switch e.Errno {
	case ErrnoBadCredentials:
		return ErrBadCredentials
	case ErrnoTokenExpired, ErrnoTokenInvalid:
		return ErrTokenExpired
	case ErrnoRateLimited:
		return ErrTransport
	default:
		return ErrAPI
	}
}
