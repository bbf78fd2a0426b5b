// Package dlib implements provider.FaceRecognizer with dlib through go-face.
//
// The models directory must contain:
//   - shape_predictor_5_face_landmarks.dat
//   - dlib_face_recognition_resnet_model_v1.dat
//   - mmod_human_face_detector.dat (only for the CNN detector)
package dlib

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/Kagami/go-face"

	"github.com/saturnino-fabrica-de-software/faceauth/internal/domain"
	"github.com/saturnino-fabrica-de-software/faceauth/internal/imaging"
	"github.com/saturnino-fabrica-de-software/faceauth/internal/provider"
)

const (
	DetectorHOG = "hog"
	DetectorCNN = "cnn"
)

// Config holds the recognizer settings.
type Config struct {
	ModelsDir string
	Detector  string
	// Jitters is the number of re-sampled passes averaged per encoding.
	Jitters int
	// Size and Padding control the face chip extracted before encoding.
	Size        int
	Padding     float32
	JPEGQuality int
}

// DefaultConfig mirrors dlib's reference encoding settings.
func DefaultConfig(modelsDir string) Config {
	return Config{
		ModelsDir:   modelsDir,
		Detector:    DetectorHOG,
		Jitters:     1,
		Size:        150,
		Padding:     0.25,
		JPEGQuality: 100,
	}
}

// Recognizer wraps a go-face recognizer. go-face recognizers are not safe
// for concurrent use, so calls are serialized.
type Recognizer struct {
	mu      sync.Mutex
	rec     *face.Recognizer
	cnn     bool
	quality int
}

// New loads the dlib models.
func New(cfg Config) (*Recognizer, error) {
	if _, err := os.Stat(cfg.ModelsDir); err != nil {
		return nil, fmt.Errorf("%w: %s", provider.ErrModelNotFound, cfg.ModelsDir)
	}

	rec, err := face.NewRecognizerWithConfig(cfg.ModelsDir, cfg.Size, cfg.Padding, cfg.Jitters)
	if err != nil {
		return nil, fmt.Errorf("%w: load dlib models: %v", provider.ErrInvalidModel, err)
	}

	quality := cfg.JPEGQuality
	if quality <= 0 || quality > 100 {
		quality = 100
	}

	return &Recognizer{
		rec:     rec,
		cnn:     cfg.Detector == DetectorCNN,
		quality: quality,
	}, nil
}

// Recognize detects faces and encodes each of them.
func (r *Recognizer) Recognize(ctx context.Context, img *imaging.Image) ([]provider.Face, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := img.EncodeJPEG(r.quality)
	if err != nil {
		return nil, fmt.Errorf("prepare image: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.rec == nil {
		return nil, fmt.Errorf("recognize: recognizer closed")
	}

	var faces []face.Face
	if r.cnn {
		faces, err = r.rec.RecognizeCNN(data)
	} else {
		faces, err = r.rec.Recognize(data)
	}
	if err != nil {
		return nil, fmt.Errorf("recognize: %w", err)
	}

	result := make([]provider.Face, 0, len(faces))
	for _, f := range faces {
		result = append(result, provider.Face{
			Box:        f.Rectangle,
			Descriptor: toDescriptor(f.Descriptor),
		})
	}
	return result, nil
}

// Close releases the dlib models.
func (r *Recognizer) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.rec != nil {
		r.rec.Close()
		r.rec = nil
	}
	return nil
}

func toDescriptor(d face.Descriptor) domain.Descriptor {
	var out domain.Descriptor
	for i, v := range d {
		out[i] = float64(v)
	}
	return out
}

var _ provider.FaceRecognizer = (*Recognizer)(nil)
