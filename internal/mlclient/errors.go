package mlclient

import (
	"errors"
	"fmt"
	"net"
)

var (
	// ErrTimeout is returned when the ml-model service does not answer in time.
	ErrTimeout = errors.New("ml service timeout")
	// ErrUnavailable is returned when the ml-model service cannot be reached.
	ErrUnavailable     = errors.New("ml service unavailable")
	ErrInvalidResponse = errors.New("invalid response from ml service")
)

// StatusError is returned when the ml-model service answers with a non-200 status.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("ml service returned status %d: %s", e.StatusCode, e.Body)
}

// isRetryable accepts 5xx answers and failures to reach the service. A
// timeout is not retried: the attempt already used the whole budget.
func isRetryable(err error) bool {
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode >= 500
	}
	return errors.Is(err, ErrUnavailable)
}

// isConnectError reports whether the request never reached the service.
func isConnectError(err error) bool {
	var opErr *net.OpError
	return errors.As(err, &opErr) && opErr.Op == "dial"
}

func classifyTransportError(err error) error {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	return fmt.Errorf("%w: %w", ErrUnavailable, err)
}
