package biometrics

import (
	"context"
	"io"
	"log/slog"

	"github.com/stretchr/testify/mock"

	"github.com/saturnino-fabrica-de-software/faceauth/internal/domain"
	"github.com/saturnino-fabrica-de-software/faceauth/internal/imaging"
	"github.com/saturnino-fabrica-de-software/faceauth/internal/provider"
)

type MockRecognizer struct {
	mock.Mock
}

func (m *MockRecognizer) Recognize(ctx context.Context, img *imaging.Image) ([]provider.Face, error) {
	args := m.Called(ctx, img)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]provider.Face), args.Error(1)
}

func (m *MockRecognizer) Close() error {
	return nil
}

type MockDepthModel struct {
	mock.Mock
}

func (m *MockDepthModel) Predict(ctx context.Context, input provider.Tensor) (provider.Tensor, provider.Tensor, error) {
	args := m.Called(ctx, input)
	return args.Get(0).(provider.Tensor), args.Get(1).(provider.Tensor), args.Error(2)
}

func (m *MockDepthModel) Close() error {
	return nil
}

type MockLiveness struct {
	mock.Mock
}

func (m *MockLiveness) Classify(ctx context.Context, img *imaging.Image) (LivenessResult, error) {
	args := m.Called(ctx, img)
	return args.Get(0).(LivenessResult), args.Error(1)
}

type MockMatcher struct {
	mock.Mock
}

func (m *MockMatcher) Match(ctx context.Context, img *imaging.Image, known *KnownEmbeddings, tolerance float64) (string, bool) {
	args := m.Called(ctx, img, known, tolerance)
	return args.String(0), args.Bool(1)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testImage(w, h int) *imaging.Image {
	img := imaging.New(w, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGB(x, y, uint8(x*16), uint8(y*16), 128)
		}
	}
	return img
}

// descriptor returns a descriptor with every element set to v.
func descriptor(v float64) domain.Descriptor {
	var d domain.Descriptor
	for i := range d {
		d[i] = v
	}
	return d
}

// shifted moves d by dist along its first axis.
func shifted(d domain.Descriptor, dist float64) domain.Descriptor {
	d[0] += dist
	return d
}

func realLogits() provider.Tensor {
	return provider.Tensor{Shape: []int64{1, 2}, Data: []float32{-2.5, 3.1}}
}

func spoofLogits() provider.Tensor {
	return provider.Tensor{Shape: []int64{1, 2}, Data: []float32{4.0, -1.0}}
}
