package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/saturnino-fabrica-de-software/faceauth/internal/api"
	"github.com/saturnino-fabrica-de-software/faceauth/internal/api/handler"
	"github.com/saturnino-fabrica-de-software/faceauth/internal/audit"
	"github.com/saturnino-fabrica-de-software/faceauth/internal/biometrics"
	"github.com/saturnino-fabrica-de-software/faceauth/internal/config"
	"github.com/saturnino-fabrica-de-software/faceauth/internal/face"
	"github.com/saturnino-fabrica-de-software/faceauth/internal/service"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadModel()
	if err != nil {
		return err
	}

	logger := config.NewLogger(cfg.Environment, "ml-model")
	slog.SetDefault(logger)

	policy, err := biometrics.ParsePolicy(cfg.MatchPolicy)
	if err != nil {
		return err
	}

	recognizers, err := face.NewRecognizers(cfg)
	if err != nil {
		return fmt.Errorf("load face recognizer: %w", err)
	}
	defer func() {
		if err := recognizers.Close(); err != nil {
			logger.Error("close face recognizer", "error", err)
		}
	}()

	depthModel, err := face.NewDepthModel(cfg, logger)
	if err != nil {
		return fmt.Errorf("load anti-spoofing model: %w", err)
	}
	defer func() {
		if err := depthModel.Close(); err != nil {
			logger.Error("close anti-spoofing model", "error", err)
		}
	}()

	pool := biometrics.NewPool(cfg.WorkerPoolSize)
	extractor := biometrics.NewExtractor(recognizers.Enroll, pool, logger)
	liveness := biometrics.NewLivenessClassifier(depthModel, cfg.LivenessImageSize, logger)
	matcher := biometrics.NewMatcher(recognizers.Probe, policy, logger)
	authenticator := biometrics.NewAuthenticator(liveness, matcher, pool, logger)

	svc := service.NewRecognitionService(extractor, authenticator, audit.NewSlogLogger(logger), logger).
		WithThreshold(cfg.MatchTolerance)

	health := handler.NewHealthHandler("ML model service is running", map[string]string{
		"model_path":         cfg.ModelPath(),
		"liveness_backend":   cfg.LivenessBackend,
		"execution_provider": face.ExecutionProvider(depthModel),
		"face_backend":       cfg.FaceBackend,
		"match_policy":       string(policy),
		"workers":            strconv.Itoa(pool.Size()),
	}, nil)

	router := api.NewModelRouter(logger, &api.ModelDependencies{
		Recognition: svc,
		Health:      health,
	})
	router.Setup()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errChan := make(chan error, 1)
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Port)
		logger.Info("starting ml-model server",
			"addr", addr,
			"env", cfg.Environment,
			"face_backend", cfg.FaceBackend,
			"liveness_backend", cfg.LivenessBackend,
			"execution_provider", face.ExecutionProvider(depthModel),
		)
		errChan <- router.Listen(addr)
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down server...")
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- router.Shutdown() }()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("shutdown error: %w", err)
		}
	case <-shutdownCtx.Done():
		return fmt.Errorf("shutdown timed out")
	}

	logger.Info("server stopped gracefully")
	return nil
}
