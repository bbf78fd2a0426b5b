package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/saturnino-fabrica-de-software/faceauth/internal/audit"
	"github.com/saturnino-fabrica-de-software/faceauth/internal/biometrics"
	"github.com/saturnino-fabrica-de-software/faceauth/internal/domain"
	"github.com/saturnino-fabrica-de-software/faceauth/internal/imaging"
)

type EmbeddingExtractor interface {
	Extract(ctx context.Context, img *imaging.Image) (*domain.Descriptor, error)
}

type FaceAuthenticator interface {
	Authenticate(ctx context.Context, img *imaging.Image, known *biometrics.KnownEmbeddings, tolerance float64) (domain.AuthResult, error)
	CheckLiveness(ctx context.Context, img *imaging.Image) (biometrics.LivenessResult, error)
}

// EmbeddingResult is the response body of POST /getEmbedding.
type EmbeddingResult struct {
	Message   string    `json:"message"`
	UserName  string    `json:"user_name"`
	IsSaved   bool      `json:"is_saved"`
	Embedding []float64 `json:"embedding"`
}

// LivenessReport is the response body of POST /checkLiveness.
type LivenessReport struct {
	IsLive  bool   `json:"is_live"`
	Verdict string `json:"verdict"`
}

// RecognitionService serves the ml-model endpoints.
type RecognitionService struct {
	extractor     EmbeddingExtractor
	authenticator FaceAuthenticator
	audit         audit.Logger
	logger        *slog.Logger
	threshold     float64
}

func NewRecognitionService(
	extractor EmbeddingExtractor,
	authenticator FaceAuthenticator,
	auditLogger audit.Logger,
	logger *slog.Logger,
) *RecognitionService {
	if auditLogger == nil {
		auditLogger = &audit.NoOpLogger{}
	}
	return &RecognitionService{
		extractor:     extractor,
		authenticator: authenticator,
		audit:         auditLogger,
		logger:        logger,
		threshold:     biometrics.DefaultTolerance,
	}
}

func (s *RecognitionService) WithThreshold(threshold float64) *RecognitionService {
	s.threshold = threshold
	return s
}

// Threshold is the tolerance used when a request does not carry one.
func (s *RecognitionService) Threshold() float64 {
	return s.threshold
}

// GetEmbedding computes the enrollment descriptor of an uploaded image. An
// image without a detectable face yields IsSaved=false, not an error.
func (s *RecognitionService) GetEmbedding(ctx context.Context, userName, contentType string, data []byte) (*EmbeddingResult, error) {
	if !strings.HasPrefix(contentType, "image/") {
		return nil, domain.ErrValidationFailed.WithError(errors.New("File must be an image"))
	}

	name, err := domain.NormalizeUserName(userName)
	if err != nil {
		return nil, err
	}

	img, err := imaging.Decode(data)
	if err != nil {
		return nil, domain.ErrInvalidImage.WithError(err)
	}

	descriptor, err := s.extractor.Extract(ctx, img)
	if err != nil {
		return nil, fmt.Errorf("extract embedding: %w", err)
	}

	if descriptor == nil {
		return &EmbeddingResult{
			Message:  "Failed to generate embeddings - no face detected or invalid image",
			UserName: name,
		}, nil
	}

	return &EmbeddingResult{
		Message:   fmt.Sprintf("User '%s' added successfully", name),
		UserName:  name,
		IsSaved:   true,
		Embedding: descriptor.Slice(),
	}, nil
}

// Authenticate runs the liveness gate and identity match for a base64 probe
// against the known embeddings JSON object. A nil threshold uses the default.
func (s *RecognitionService) Authenticate(ctx context.Context, imageBase64, knownJSON string, threshold *float64) (domain.AuthResult, error) {
	tolerance := s.threshold
	if threshold != nil {
		tolerance = *threshold
	}
	if !domain.ValidTolerance(tolerance) {
		return domain.Rejected(), domain.ErrInvalidThreshold
	}

	known, err := biometrics.ParseKnownEmbeddings([]byte(knownJSON))
	if err != nil {
		return domain.Rejected(), domain.ErrInvalidEmbeddings.WithError(err)
	}

	img, err := imaging.DecodeBase64(imageBase64)
	if err != nil {
		return domain.Rejected(), domain.ErrInvalidImage.WithError(err)
	}

	result, err := s.authenticator.Authenticate(ctx, img, known, tolerance)

	event := audit.Event{
		EventType: audit.EventUserAuthenticated,
		Success:   result.IsAuthenticated,
		Metadata: map[string]string{
			"threshold":   strconv.FormatFloat(tolerance, 'f', -1, 64),
			"known_users": strconv.Itoa(known.Len()),
		},
	}
	if result.UserName != nil {
		event.UserName = *result.UserName
	}
	if err != nil {
		event.Error = err.Error()
	}
	s.logAudit(ctx, event)

	if err != nil {
		if ctx.Err() != nil {
			return domain.Rejected(), ctx.Err()
		}
		return domain.Rejected(), domain.ErrAuthentication.WithError(err)
	}
	return result, nil
}

// CheckLiveness classifies a base64 probe as real or spoof.
func (s *RecognitionService) CheckLiveness(ctx context.Context, imageBase64 string) (*LivenessReport, error) {
	img, err := imaging.DecodeBase64(imageBase64)
	if err != nil {
		return nil, domain.ErrInvalidImage.WithError(err)
	}

	result, err := s.authenticator.CheckLiveness(ctx, img)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, domain.ErrAuthentication.WithError(err)
	}

	s.logAudit(ctx, audit.Event{
		EventType: audit.EventLivenessChecked,
		Success:   result.IsLive(),
		Metadata:  map[string]string{"verdict": result.Verdict.String()},
	})

	return &LivenessReport{IsLive: result.IsLive(), Verdict: result.Verdict.String()}, nil
}

func (s *RecognitionService) logAudit(ctx context.Context, event audit.Event) {
	event.Service = "ml-model"
	if err := s.audit.Log(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "audit log failed", slog.Any("error", err))
	}
}
