// Package onnx runs the depth-map anti-spoofing network with ONNX Runtime.
package onnx

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"sync"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/saturnino-fabrica-de-software/faceauth/internal/provider"
)

const (
	ProviderCPU  = "cpu"
	ProviderCUDA = "cuda"
)

// Config holds the session settings.
type Config struct {
	ModelPath string
	// LibraryPath points at the onnxruntime shared library. Empty uses the
	// platform default lookup.
	LibraryPath       string
	ExecutionProvider string
	IntraOpThreads    int
}

var (
	envMu    sync.Mutex
	envUsers int
)

// acquireEnvironment initializes the process-wide runtime on first use.
func acquireEnvironment(libraryPath string) error {
	envMu.Lock()
	defer envMu.Unlock()

	if envUsers == 0 && !ort.IsInitialized() {
		if libraryPath != "" {
			ort.SetSharedLibraryPath(libraryPath)
		}
		if err := ort.InitializeEnvironment(); err != nil {
			return fmt.Errorf("initialize onnxruntime: %w", err)
		}
	}
	envUsers++
	return nil
}

func releaseEnvironment() error {
	envMu.Lock()
	defer envMu.Unlock()

	if envUsers == 0 {
		return nil
	}
	envUsers--
	if envUsers == 0 && ort.IsInitialized() {
		return ort.DestroyEnvironment()
	}
	return nil
}

// Model is a loaded depth-map network. Run is safe for concurrent use.
type Model struct {
	session    *ort.DynamicAdvancedSession
	inputName  string
	depthName  string
	logitsName string
	provider   string

	closeOnce sync.Once
	closeErr  error
}

// Open validates the model file and creates an inference session. A CUDA
// request that cannot be satisfied falls back to the CPU provider.
func Open(cfg Config, logger *slog.Logger) (*Model, error) {
	if _, err := os.Stat(cfg.ModelPath); err != nil {
		return nil, fmt.Errorf("%w: %s", provider.ErrModelNotFound, cfg.ModelPath)
	}

	if err := acquireEnvironment(cfg.LibraryPath); err != nil {
		return nil, err
	}

	m, err := open(cfg, logger)
	if err != nil {
		_ = releaseEnvironment()
		return nil, err
	}
	return m, nil
}

func open(cfg Config, logger *slog.Logger) (*Model, error) {
	inputs, outputs, err := ort.GetInputOutputInfo(cfg.ModelPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", provider.ErrInvalidModel, err)
	}
	if err := validateSignature(inputs, outputs); err != nil {
		return nil, err
	}

	inputNames := []string{inputs[0].Name}
	outputNames := []string{outputs[0].Name, outputs[1].Name}

	session, used, err := newSession(cfg, inputNames, outputNames, logger)
	if err != nil {
		return nil, err
	}

	logger.Info("anti-spoofing model loaded",
		slog.String("path", cfg.ModelPath),
		slog.String("execution_provider", used),
		slog.String("input", inputNames[0]),
		slog.Any("outputs", outputNames),
	)

	return &Model{
		session:    session,
		inputName:  inputNames[0],
		depthName:  outputNames[0],
		logitsName: outputNames[1],
		provider:   used,
	}, nil
}

// validateSignature requires one image input and the (depth, logits) pair.
func validateSignature(inputs, outputs []ort.InputOutputInfo) error {
	if len(inputs) != 1 {
		return fmt.Errorf("%w: expected 1 input, found %d", provider.ErrInvalidModel, len(inputs))
	}
	if len(outputs) != 2 {
		return fmt.Errorf("%w: expected 2 outputs (depth map, logits), found %d", provider.ErrInvalidModel, len(outputs))
	}
	if dims := inputs[0].Dimensions; len(dims) != 4 {
		return fmt.Errorf("%w: input %q must be NCHW, got %v", provider.ErrInvalidModel, inputs[0].Name, dims)
	}
	return nil
}

func newSession(cfg Config, inputNames, outputNames []string, logger *slog.Logger) (*ort.DynamicAdvancedSession, string, error) {
	if cfg.ExecutionProvider == ProviderCUDA {
		session, err := createSession(cfg, inputNames, outputNames, true)
		if err == nil {
			return session, ProviderCUDA, nil
		}
		logger.Warn("CUDA execution provider unavailable, falling back to CPU", slog.String("error", err.Error()))
	}

	session, err := createSession(cfg, inputNames, outputNames, false)
	if err != nil {
		return nil, "", fmt.Errorf("%w: create session: %v", provider.ErrInvalidModel, err)
	}
	return session, ProviderCPU, nil
}

func createSession(cfg Config, inputNames, outputNames []string, cuda bool) (*ort.DynamicAdvancedSession, error) {
	options, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("session options: %w", err)
	}
	defer func() {
		_ = options.Destroy()
	}()

	threads := cfg.IntraOpThreads
	if threads <= 0 {
		threads = runtime.NumCPU()
	}
	if err := options.SetIntraOpNumThreads(threads); err != nil {
		return nil, fmt.Errorf("set intra-op threads: %w", err)
	}

	if cuda {
		cudaOptions, err := ort.NewCUDAProviderOptions()
		if err != nil {
			return nil, fmt.Errorf("cuda options: %w", err)
		}
		defer func() {
			_ = cudaOptions.Destroy()
		}()
		if err := options.AppendExecutionProviderCUDA(cudaOptions); err != nil {
			return nil, fmt.Errorf("append cuda provider: %w", err)
		}
	}

	return ort.NewDynamicAdvancedSession(cfg.ModelPath, inputNames, outputNames, options)
}

// ExecutionProvider reports the provider the session runs on.
func (m *Model) ExecutionProvider() string {
	return m.provider
}

// Predict runs the network on one NCHW batch.
func (m *Model) Predict(ctx context.Context, input provider.Tensor) (provider.Tensor, provider.Tensor, error) {
	if err := ctx.Err(); err != nil {
		return provider.Tensor{}, provider.Tensor{}, err
	}
	if int64(len(input.Data)) != input.Elements() || input.Elements() == 0 {
		return provider.Tensor{}, provider.Tensor{}, fmt.Errorf("%w: shape %v does not match %d values",
			provider.ErrInference, input.Shape, len(input.Data))
	}

	in, err := ort.NewTensor(ort.NewShape(input.Shape...), input.Data)
	if err != nil {
		return provider.Tensor{}, provider.Tensor{}, fmt.Errorf("%w: input tensor: %v", provider.ErrInference, err)
	}
	defer func() {
		_ = in.Destroy()
	}()

	outputs := []ort.Value{nil, nil}
	if err := m.session.Run([]ort.Value{in}, outputs); err != nil {
		return provider.Tensor{}, provider.Tensor{}, fmt.Errorf("%w: %v", provider.ErrInference, err)
	}
	defer func() {
		for _, o := range outputs {
			if o != nil {
				_ = o.Destroy()
			}
		}
	}()

	depth, err := copyTensor(outputs[0], m.depthName)
	if err != nil {
		return provider.Tensor{}, provider.Tensor{}, err
	}
	logits, err := copyTensor(outputs[1], m.logitsName)
	if err != nil {
		return provider.Tensor{}, provider.Tensor{}, err
	}
	return depth, logits, nil
}

// copyTensor detaches output data from runtime-owned memory.
func copyTensor(v ort.Value, name string) (provider.Tensor, error) {
	t, ok := v.(*ort.Tensor[float32])
	if !ok {
		return provider.Tensor{}, fmt.Errorf("%w: output %q is not a float32 tensor", provider.ErrInference, name)
	}
	data := t.GetData()
	out := provider.Tensor{
		Shape: append([]int64(nil), t.GetShape()...),
		Data:  make([]float32, len(data)),
	}
	copy(out.Data, data)
	return out, nil
}

// Close destroys the session and releases the runtime when unused.
func (m *Model) Close() error {
	m.closeOnce.Do(func() {
		if err := m.session.Destroy(); err != nil {
			m.closeErr = err
		}
		if err := releaseEnvironment(); err != nil && m.closeErr == nil {
			m.closeErr = err
		}
	})
	return m.closeErr
}

var _ provider.DepthModel = (*Model)(nil)
