package deepface

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"strings"

	"github.com/saturnino-fabrica-de-software/faceauth/internal/domain"
	"github.com/saturnino-fabrica-de-software/faceauth/internal/imaging"
	"github.com/saturnino-fabrica-de-software/faceauth/internal/provider"
)

const jpegQuality = 95

// Recognizer implements provider.FaceRecognizer using the DeepFace API.
type Recognizer struct {
	client *Client
}

// NewRecognizer creates a new DeepFace recognizer
func NewRecognizer(config Config) *Recognizer {
	return &Recognizer{client: NewClient(config)}
}

// Recognize uploads the image and converts every returned representation.
func (r *Recognizer) Recognize(ctx context.Context, img *imaging.Image) ([]provider.Face, error) {
	data, err := img.EncodeJPEG(jpegQuality)
	if err != nil {
		return nil, fmt.Errorf("prepare image: %w", err)
	}

	resp, err := r.client.Represent(ctx, base64.StdEncoding.EncodeToString(data))
	if err != nil {
		if isNoFaceError(err) {
			return []provider.Face{}, nil
		}
		return nil, fmt.Errorf("represent: %w", err)
	}

	faces := make([]provider.Face, 0, len(resp.Results))
	for _, result := range resp.Results {
		descriptor, err := domain.NewDescriptor(result.Embedding)
		if err != nil {
			return nil, fmt.Errorf("%w: got %d values", ErrUnexpectedDimension, len(result.Embedding))
		}

		area := result.FacialArea
		faces = append(faces, provider.Face{
			Box:        image.Rect(area.X, area.Y, area.X+area.W, area.Y+area.H),
			Descriptor: descriptor,
		})
	}

	return faces, nil
}

// Close is a no-op; the HTTP client holds no resources.
func (r *Recognizer) Close() error {
	return nil
}

// DeepFace rejects frames without a face when detection is enforced.
func isNoFaceError(err error) bool {
	var se *StatusError
	if !errors.As(err, &se) || !se.IsClientError() {
		return false
	}
	return strings.Contains(strings.ToLower(se.Body), "could not be detected")
}

var _ provider.FaceRecognizer = (*Recognizer)(nil)
