package biometrics

import (
	"context"
	"log/slog"

	"github.com/saturnino-fabrica-de-software/faceauth/internal/domain"
	"github.com/saturnino-fabrica-de-software/faceauth/internal/imaging"
	"github.com/saturnino-fabrica-de-software/faceauth/internal/provider"
)

// Extractor produces the enrollment descriptor for an image.
type Extractor struct {
	recognizer provider.FaceRecognizer
	pool       *Pool
	logger     *slog.Logger
}

func NewExtractor(recognizer provider.FaceRecognizer, pool *Pool, logger *slog.Logger) *Extractor {
	return &Extractor{recognizer: recognizer, pool: pool, logger: logger}
}

// Extract returns the descriptor of the first detected face, or nil when no
// face is found. Recognition failures are logged and read as no face; only a
// nil image or a canceled wait for a worker returns an error.
func (e *Extractor) Extract(ctx context.Context, img *imaging.Image) (*domain.Descriptor, error) {
	if img == nil {
		return nil, ErrNilImage
	}
	if err := img.Validate(); err != nil {
		e.logger.WarnContext(ctx, "embedding extraction skipped", slog.String("error", err.Error()))
		return nil, nil
	}

	var faces []provider.Face
	err := e.pool.Do(ctx, func() error {
		var recErr error
		faces, recErr = e.recognizer.Recognize(ctx, img)
		return recErr
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		e.logger.WarnContext(ctx, "embedding extraction failed", slog.String("error", err.Error()))
		return nil, nil
	}

	if len(faces) == 0 {
		e.logger.DebugContext(ctx, "no face detected")
		return nil, nil
	}
	if len(faces) > 1 {
		e.logger.DebugContext(ctx, "multiple faces detected, using the first", slog.Int("faces", len(faces)))
	}

	d := faces[0].Descriptor
	return &d, nil
}
