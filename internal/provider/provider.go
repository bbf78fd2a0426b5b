package provider

import (
	"context"
	"errors"
	"image"

	"github.com/saturnino-fabrica-de-software/faceauth/internal/domain"
	"github.com/saturnino-fabrica-de-software/faceauth/internal/imaging"
)

var (
	// ErrModelNotFound is returned when a model file is missing at startup.
	ErrModelNotFound = errors.New("model file not found")
	// ErrInvalidModel is returned when a model file fails validation.
	ErrInvalidModel = errors.New("model failed validation")
	// ErrInference wraps failures of a model invocation.
	ErrInference = errors.New("inference failed")
)

// FaceRecognizer locates every face in an image and encodes each one into a
// descriptor. Faces are returned in detector order.
type FaceRecognizer interface {
	Recognize(ctx context.Context, img *imaging.Image) ([]Face, error)
	Close() error
}

// Face is a located face with its identity descriptor.
type Face struct {
	Box        image.Rectangle   `json:"box"`
	Descriptor domain.Descriptor `json:"descriptor"`
}

// DepthModel runs the anti-spoofing network on a preprocessed NCHW batch and
// returns the estimated depth map and the two-class logits.
type DepthModel interface {
	Predict(ctx context.Context, input Tensor) (depth Tensor, logits Tensor, err error)
	Close() error
}

// Tensor is a dense row-major float32 tensor.
type Tensor struct {
	Shape []int64
	Data  []float32
}

// Elements returns the element count implied by the shape.
func (t Tensor) Elements() int64 {
	if len(t.Shape) == 0 {
		return 0
	}
	n := int64(1)
	for _, d := range t.Shape {
		n *= d
	}
	return n
}
