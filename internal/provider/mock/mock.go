// Package mock provides deterministic backends for development and tests.
package mock

import (
	"context"
	"crypto/sha256"
	"math"

	"github.com/saturnino-fabrica-de-software/faceauth/internal/domain"
	"github.com/saturnino-fabrica-de-software/faceauth/internal/imaging"
	"github.com/saturnino-fabrica-de-software/faceauth/internal/provider"
)

// Recognizer reports one face for any non-uniform image, with a descriptor
// derived from the pixel hash. Uniform images contain no face.
type Recognizer struct{}

// NewRecognizer creates a mock recognizer
func NewRecognizer() *Recognizer {
	return &Recognizer{}
}

// Recognize returns a single full-frame face with a deterministic descriptor.
func (r *Recognizer) Recognize(ctx context.Context, img *imaging.Image) ([]provider.Face, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := img.Validate(); err != nil {
		return nil, err
	}

	if isUniform(img.Pix) {
		return []provider.Face{}, nil
	}

	return []provider.Face{
		{
			Box:        img.Bounds(),
			Descriptor: GenerateDescriptor(img.Pix),
		},
	}, nil
}

// Close is a no-op
func (r *Recognizer) Close() error {
	return nil
}

// GenerateDescriptor derives a unit-length descriptor from the sha256 of data.
func GenerateDescriptor(data []byte) domain.Descriptor {
	var d domain.Descriptor
	seed := sha256.Sum256(data)

	block := seed
	for i := 0; i < domain.DescriptorSize; i++ {
		if i > 0 && i%len(block) == 0 {
			block = sha256.Sum256(block[:])
		}
		d[i] = (float64(block[i%len(block)])/255.0)*2 - 1
	}

	var norm float64
	for _, v := range d {
		norm += v * v
	}
	norm = math.Sqrt(norm)
	if norm == 0 {
		return d
	}
	for i := range d {
		d[i] /= norm
	}
	return d
}

func isUniform(pix []uint8) bool {
	if len(pix) < 3 {
		return true
	}
	r, g, b := pix[0], pix[1], pix[2]
	for i := 3; i+2 < len(pix); i += 3 {
		if pix[i] != r || pix[i+1] != g || pix[i+2] != b {
			return false
		}
	}
	return true
}

// DepthModel returns a fixed verdict for every input.
type DepthModel struct {
	Real bool
}

// NewDepthModel creates a mock anti-spoofing model
func NewDepthModel(real bool) *DepthModel {
	return &DepthModel{Real: real}
}

// Predict returns a zero depth map and logits favouring the configured class.
func (m *DepthModel) Predict(ctx context.Context, input provider.Tensor) (provider.Tensor, provider.Tensor, error) {
	if err := ctx.Err(); err != nil {
		return provider.Tensor{}, provider.Tensor{}, err
	}
	if len(input.Shape) != 4 {
		return provider.Tensor{}, provider.Tensor{}, provider.ErrInference
	}

	h, w := input.Shape[2]/8, input.Shape[3]/8
	if h < 1 {
		h = 1
	}
	if w < 1 {
		w = 1
	}
	depth := provider.Tensor{
		Shape: []int64{input.Shape[0], 1, h, w},
		Data:  make([]float32, input.Shape[0]*h*w),
	}

	logits := provider.Tensor{Shape: []int64{input.Shape[0], 2}}
	for i := int64(0); i < input.Shape[0]; i++ {
		if m.Real {
			logits.Data = append(logits.Data, -1, 1)
		} else {
			logits.Data = append(logits.Data, 1, -1)
		}
	}

	return depth, logits, nil
}

// Close is a no-op
func (m *DepthModel) Close() error {
	return nil
}

var (
	_ provider.FaceRecognizer = (*Recognizer)(nil)
	_ provider.DepthModel     = (*DepthModel)(nil)
)
