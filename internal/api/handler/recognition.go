package handler

import (
	"context"
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"github.com/saturnino-fabrica-de-software/faceauth/internal/domain"
	"github.com/saturnino-fabrica-de-software/faceauth/internal/service"
)

// RecognitionService interface for the ml-model service
type RecognitionService interface {
	GetEmbedding(ctx context.Context, userName, contentType string, data []byte) (*service.EmbeddingResult, error)
	Authenticate(ctx context.Context, imageBase64, knownJSON string, threshold *float64) (domain.AuthResult, error)
	CheckLiveness(ctx context.Context, imageBase64 string) (*service.LivenessReport, error)
}

// RecognitionHandler serves the ml-model endpoints
type RecognitionHandler struct {
	service RecognitionService
	logger  *slog.Logger
}

func NewRecognitionHandler(service RecognitionService, logger *slog.Logger) *RecognitionHandler {
	return &RecognitionHandler{
		service: service,
		logger:  logger,
	}
}

// GetEmbedding POST /getEmbedding
func (h *RecognitionHandler) GetEmbedding(c *fiber.Ctx) error {
	image, err := readUpload(c, "image")
	if err != nil {
		return err
	}

	result, err := h.service.GetEmbedding(c.Context(), c.FormValue("user_name"), image.ContentType, image.Data)
	if err != nil {
		return err
	}

	h.logger.Debug("embedding request processed",
		slog.String("user_name", result.UserName),
		slog.Bool("is_saved", result.IsSaved),
	)

	return c.JSON(result)
}

// Authenticate POST /authenticate
func (h *RecognitionHandler) Authenticate(c *fiber.Ctx) error {
	image, err := requiredForm(c, "image")
	if err != nil {
		return err
	}

	known, err := requiredForm(c, "known_face_embeddings")
	if err != nil {
		return err
	}

	threshold, err := parseThreshold(c)
	if err != nil {
		return err
	}

	result, err := h.service.Authenticate(c.Context(), image, known, threshold)
	if err != nil {
		return err
	}

	return c.JSON(result)
}

// CheckLiveness POST /checkLiveness
func (h *RecognitionHandler) CheckLiveness(c *fiber.Ctx) error {
	image, err := requiredForm(c, "image")
	if err != nil {
		return err
	}

	report, err := h.service.CheckLiveness(c.Context(), image)
	if err != nil {
		return err
	}

	return c.JSON(report)
}
