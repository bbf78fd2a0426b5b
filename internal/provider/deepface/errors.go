package deepface

import (
	"errors"
	"fmt"
)

var (
	ErrDeepFaceUnavailable = errors.New("deepface service unavailable")
	ErrInvalidResponse     = errors.New("invalid response from deepface")
	ErrUnexpectedDimension = errors.New("unexpected embedding dimension")
)

// StatusError is returned when DeepFace answers with a non-2xx status.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("deepface returned status %d: %s", e.StatusCode, e.Body)
}

// IsClientError reports whether the request was rejected with a 4xx status.
func (e *StatusError) IsClientError() bool {
	return e.StatusCode >= 400 && e.StatusCode < 500
}

func isClientError(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.IsClientError()
}
