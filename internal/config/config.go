package config

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/saturnino-fabrica-de-software/faceauth/internal/domain"
)

// Server settings shared by both services.
type Server struct {
	Port        int    `envconfig:"PORT"`
	Environment string `envconfig:"ENV" default:"development"`
}

func (s Server) IsDevelopment() bool {
	return s.Environment == "development"
}

func (s Server) IsProduction() bool {
	return s.Environment == "production"
}

// ModelConfig configures the ml-model service.
type ModelConfig struct {
	Server

	// Liveness
	LivenessBackend   string `envconfig:"LIVENESS_BACKEND" default:"onnx"`
	ModelsFolder      string `envconfig:"MODELS_FOLDER" default:"models"`
	ModelFileName     string `envconfig:"MODEL_FILE_NAME" default:"anti_spoofing_quantized.onnx"`
	ONNXRuntimeLib    string `envconfig:"ONNXRUNTIME_LIB"`
	ExecutionProvider string `envconfig:"EXECUTION_PROVIDER" default:"cpu"`
	LivenessImageSize int    `envconfig:"LIVENESS_IMAGE_SIZE" default:"252"`

	// Face recognition
	FaceBackend   string `envconfig:"FACE_BACKEND" default:"dlib"`
	DlibModelsDir string `envconfig:"DLIB_MODELS_DIR" default:"models/dlib"`
	FaceDetector  string `envconfig:"FACE_DETECTOR" default:"hog"`
	EnrollJitters int    `envconfig:"ENROLL_JITTERS" default:"2"`
	ProbeJitters  int    `envconfig:"PROBE_JITTERS" default:"1"`
	DeepFaceURL   string `envconfig:"DEEPFACE_URL" default:"http://localhost:5005"`

	// Matching
	MatchTolerance float64 `envconfig:"MATCH_TOLERANCE" default:"0.6"`
	MatchPolicy    string  `envconfig:"MATCH_POLICY" default:"first"`
	WorkerPoolSize int     `envconfig:"WORKER_POOL_SIZE"`
}

// ModelPath is the full path of the anti-spoofing model file.
func (c *ModelConfig) ModelPath() string {
	return filepath.Join(c.ModelsFolder, c.ModelFileName)
}

// Validate rejects values the pipeline cannot run with.
func (c *ModelConfig) Validate() error {
	if c.LivenessImageSize <= 0 {
		return fmt.Errorf("LIVENESS_IMAGE_SIZE must be positive, got %d", c.LivenessImageSize)
	}
	if !domain.ValidTolerance(c.MatchTolerance) {
		return fmt.Errorf("MATCH_TOLERANCE must be a non-negative number, got %v", c.MatchTolerance)
	}
	if c.EnrollJitters < 1 || c.ProbeJitters < 1 {
		return fmt.Errorf("ENROLL_JITTERS and PROBE_JITTERS must be at least 1")
	}
	if c.WorkerPoolSize < 0 {
		return fmt.Errorf("WORKER_POOL_SIZE must be non-negative, got %d", c.WorkerPoolSize)
	}
	if err := oneOf("LIVENESS_BACKEND", c.LivenessBackend, "onnx", "mock"); err != nil {
		return err
	}
	if err := oneOf("FACE_BACKEND", c.FaceBackend, "dlib", "deepface", "mock"); err != nil {
		return err
	}
	if err := oneOf("FACE_DETECTOR", c.FaceDetector, "hog", "cnn"); err != nil {
		return err
	}
	if err := oneOf("EXECUTION_PROVIDER", c.ExecutionProvider, "cpu", "cuda"); err != nil {
		return err
	}
	return oneOf("MATCH_POLICY", c.MatchPolicy, "first", "best")
}

// DatabaseConfig configures the Database service.
type DatabaseConfig struct {
	Server

	// Store
	StoreBackend      string `envconfig:"STORE_BACKEND" default:"postgres"`
	DatabaseURL       string `envconfig:"DATABASE_URL"`
	DBConnectAttempts int    `envconfig:"DB_CONNECT_ATTEMPTS" default:"5"`

	// ML service
	MLServiceURL string        `envconfig:"ML_SERVICE_URL" default:"http://ml-model:8000"`
	MLTimeout    time.Duration `envconfig:"ML_TIMEOUT" default:"30s"`
	MLRetryCount int           `envconfig:"ML_RETRY_COUNT" default:"2"`

	// Authentication
	DefaultThreshold float64 `envconfig:"AUTH_DEFAULT_THRESHOLD" default:"0.6"`
	RateLimitMax     int     `envconfig:"RATE_LIMIT_MAX" default:"60"`
}

func (c *DatabaseConfig) Validate() error {
	if err := oneOf("STORE_BACKEND", c.StoreBackend, "postgres", "memory"); err != nil {
		return err
	}
	if c.StoreBackend == "postgres" && c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required when STORE_BACKEND=postgres")
	}
	if !domain.ValidTolerance(c.DefaultThreshold) {
		return fmt.Errorf("AUTH_DEFAULT_THRESHOLD must be a non-negative number, got %v", c.DefaultThreshold)
	}
	if c.DBConnectAttempts < 1 {
		return fmt.Errorf("DB_CONNECT_ATTEMPTS must be at least 1, got %d", c.DBConnectAttempts)
	}
	return nil
}

// LoadModel reads the ml-model service configuration from the environment.
func LoadModel() (*ModelConfig, error) {
	var cfg ModelConfig
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if cfg.Port == 0 {
		cfg.Port = 8000
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return &cfg, nil
}

// LoadDatabase reads the Database service configuration from the environment.
func LoadDatabase() (*DatabaseConfig, error) {
	var cfg DatabaseConfig
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if cfg.Port == 0 {
		cfg.Port = 8001
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return &cfg, nil
}

func oneOf(name, value string, allowed ...string) error {
	for _, a := range allowed {
		if value == a {
			return nil
		}
	}
	return fmt.Errorf("%s: unsupported value %q (supported: %v)", name, value, allowed)
}
