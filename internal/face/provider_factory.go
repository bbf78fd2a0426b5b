package face

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/saturnino-fabrica-de-software/faceauth/internal/config"
	"github.com/saturnino-fabrica-de-software/faceauth/internal/provider"
	"github.com/saturnino-fabrica-de-software/faceauth/internal/provider/deepface"
	"github.com/saturnino-fabrica-de-software/faceauth/internal/provider/dlib"
	"github.com/saturnino-fabrica-de-software/faceauth/internal/provider/mock"
	"github.com/saturnino-fabrica-de-software/faceauth/internal/provider/onnx"
)

// ProviderType defines supported face recognition backends
type ProviderType string

const (
	// ProviderTypeDlib runs dlib in-process through go-face
	ProviderTypeDlib ProviderType = "dlib"
	// ProviderTypeDeepFace delegates to a DeepFace API using its Dlib model
	ProviderTypeDeepFace ProviderType = "deepface"
	// ProviderTypeMock is deterministic, for dev/test
	ProviderTypeMock ProviderType = "mock"
)

// Recognizers holds the encoder used for enrollment and the one used for
// probe images. They are the same instance when both use the same settings.
type Recognizers struct {
	Enroll provider.FaceRecognizer
	Probe  provider.FaceRecognizer
}

// Close releases both recognizers once.
func (r *Recognizers) Close() error {
	var errs []error
	if r.Enroll != nil {
		errs = append(errs, r.Enroll.Close())
	}
	if r.Probe != nil && r.Probe != r.Enroll {
		errs = append(errs, r.Probe.Close())
	}
	return errors.Join(errs...)
}

// NewRecognizers creates the face encoders selected by FACE_BACKEND.
//
// Environment variables:
//   - FACE_BACKEND: "dlib", "deepface" or "mock" (default: "dlib")
//   - DLIB_MODELS_DIR: directory with the dlib .dat models
//   - FACE_DETECTOR: "hog" or "cnn"
//   - ENROLL_JITTERS / PROBE_JITTERS: re-sampling passes per encoding
//   - DEEPFACE_URL: DeepFace API URL
func NewRecognizers(cfg *config.ModelConfig) (*Recognizers, error) {
	switch ProviderType(cfg.FaceBackend) {
	case ProviderTypeDlib, "":
		return createDlibRecognizers(cfg)

	case ProviderTypeDeepFace:
		rec := createDeepFaceRecognizer(cfg)
		return &Recognizers{Enroll: rec, Probe: rec}, nil

	case ProviderTypeMock:
		rec := mock.NewRecognizer()
		return &Recognizers{Enroll: rec, Probe: rec}, nil

	default:
		return nil, fmt.Errorf("unknown face backend: %s (supported: %s, %s, %s)",
			cfg.FaceBackend, ProviderTypeDlib, ProviderTypeDeepFace, ProviderTypeMock)
	}
}

func createDlibRecognizers(cfg *config.ModelConfig) (*Recognizers, error) {
	base := dlib.DefaultConfig(cfg.DlibModelsDir)
	base.Detector = cfg.FaceDetector

	enrollCfg := base
	enrollCfg.Jitters = cfg.EnrollJitters
	enroll, err := dlib.New(enrollCfg)
	if err != nil {
		return nil, fmt.Errorf("create enrollment recognizer: %w", err)
	}

	if cfg.ProbeJitters == cfg.EnrollJitters {
		return &Recognizers{Enroll: enroll, Probe: enroll}, nil
	}

	probeCfg := base
	probeCfg.Jitters = cfg.ProbeJitters
	probe, err := dlib.New(probeCfg)
	if err != nil {
		_ = enroll.Close()
		return nil, fmt.Errorf("create probe recognizer: %w", err)
	}

	return &Recognizers{Enroll: enroll, Probe: probe}, nil
}

// createDeepFaceRecognizer uses defaults for fields other than the URL
func createDeepFaceRecognizer(cfg *config.ModelConfig) provider.FaceRecognizer {
	deepfaceConfig := deepface.DefaultConfig()
	if cfg.DeepFaceURL != "" {
		deepfaceConfig.BaseURL = cfg.DeepFaceURL
	}
	return deepface.NewRecognizer(deepfaceConfig)
}

// NewDepthModel creates the anti-spoofing model selected by LIVENESS_BACKEND.
func NewDepthModel(cfg *config.ModelConfig, logger *slog.Logger) (provider.DepthModel, error) {
	switch cfg.LivenessBackend {
	case "onnx", "":
		return onnx.Open(onnx.Config{
			ModelPath:         cfg.ModelPath(),
			LibraryPath:       cfg.ONNXRuntimeLib,
			ExecutionProvider: cfg.ExecutionProvider,
		}, logger)

	case "mock":
		logger.Warn("using mock liveness backend: every frame is classified as real")
		return mock.NewDepthModel(true), nil

	default:
		return nil, fmt.Errorf("unknown liveness backend: %s (supported: onnx, mock)", cfg.LivenessBackend)
	}
}

// ExecutionProvider reports the device the depth model runs on. Backends
// without a device report "none".
func ExecutionProvider(model provider.DepthModel) string {
	if m, ok := model.(interface{ ExecutionProvider() string }); ok {
		return m.ExecutionProvider()
	}
	return "none"
}
