// Package biometrics implements the face authentication decision: liveness
// gate, face encoding and identity matching.
package biometrics

import "errors"

var (
	ErrNilImage           = errors.New("input image cannot be nil")
	ErrNilKnownEmbeddings = errors.New("known face embeddings cannot be nil")
	ErrInvalidLogits      = errors.New("classification output must have exactly 2 classes")
	// ErrAuthentication wraps any failure while processing an authentication
	// attempt. It is distinct from a negative result.
	ErrAuthentication = errors.New("error in authentication")
)
