package biometrics

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/saturnino-fabrica-de-software/faceauth/internal/imaging"
	"github.com/saturnino-fabrica-de-software/faceauth/internal/provider"
)

// DefaultLivenessSize is the square input edge of the depth model.
const DefaultLivenessSize = 252

// Verdict is the anti-spoofing class index.
type Verdict int

const (
	VerdictSpoof Verdict = 0
	VerdictReal  Verdict = 1
)

func (v Verdict) String() string {
	switch v {
	case VerdictReal:
		return "real"
	case VerdictSpoof:
		return "spoof"
	default:
		return fmt.Sprintf("Verdict(%d)", int(v))
	}
}

// LivenessResult is the classifier output. DepthMap is never persisted.
type LivenessResult struct {
	DepthMap provider.Tensor
	Verdict  Verdict
}

func (r LivenessResult) IsLive() bool {
	return r.Verdict == VerdictReal
}

// LivenessClassifier runs the depth-map anti-spoofing model.
type LivenessClassifier struct {
	model  provider.DepthModel
	size   int
	logger *slog.Logger
}

func NewLivenessClassifier(model provider.DepthModel, size int, logger *slog.Logger) *LivenessClassifier {
	if size <= 0 {
		size = DefaultLivenessSize
	}
	return &LivenessClassifier{model: model, size: size, logger: logger}
}

// Classify preprocesses img and runs one inference. Model errors are
// returned to the caller.
func (c *LivenessClassifier) Classify(ctx context.Context, img *imaging.Image) (LivenessResult, error) {
	if img == nil {
		return LivenessResult{}, ErrNilImage
	}
	if err := img.Validate(); err != nil {
		return LivenessResult{}, err
	}

	depth, logits, err := c.model.Predict(ctx, Preprocess(img, c.size))
	if err != nil {
		return LivenessResult{}, fmt.Errorf("liveness inference: %w", err)
	}

	verdict, err := argmax(logits)
	if err != nil {
		return LivenessResult{}, err
	}

	c.logger.DebugContext(ctx, "liveness classified",
		slog.String("verdict", verdict.String()),
		slog.Any("logits", logits.Data[:2]),
	)

	return LivenessResult{DepthMap: depth, Verdict: verdict}, nil
}

// Preprocess resizes img to size x size with Lanczos resampling, scales
// channels to [0,1] and lays them out as a 1x3xHxW RGB batch.
func Preprocess(img *imaging.Image, size int) provider.Tensor {
	resized := img
	if img.Width != size || img.Height != size {
		resized = imaging.Resize(img, size, size)
	}

	plane := size * size
	data := make([]float32, 3*plane)
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			r, g, b := resized.RGB(x, y)
			i := y*size + x
			data[i] = float32(r) / 255.0
			data[plane+i] = float32(g) / 255.0
			data[2*plane+i] = float32(b) / 255.0
		}
	}

	return provider.Tensor{
		Shape: []int64{1, 3, int64(size), int64(size)},
		Data:  data,
	}
}

// argmax picks the class of the first batch element.
func argmax(logits provider.Tensor) (Verdict, error) {
	shape := logits.Shape
	if len(shape) == 0 || shape[len(shape)-1] != 2 || len(logits.Data) < 2 {
		return 0, fmt.Errorf("%w: shape %v", ErrInvalidLogits, shape)
	}
	if logits.Data[1] > logits.Data[0] {
		return VerdictReal, nil
	}
	return VerdictSpoof, nil
}
