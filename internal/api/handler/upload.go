package handler

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/saturnino-fabrica-de-software/faceauth/internal/domain"
)

const (
	maxImageSize = 10 * 1024 * 1024 // 10MB
)

// upload is an image file read from a multipart form.
type upload struct {
	Filename    string
	ContentType string
	Data        []byte
}

// readUpload reads the multipart file field. Content type is checked by the
// services, which answer differently for non-image files.
func readUpload(c *fiber.Ctx, field string) (*upload, error) {
	file, err := c.FormFile(field)
	if err != nil {
		return nil, domain.ErrValidationFailed.WithError(errors.New(field + " file is required"))
	}

	if file.Size > maxImageSize {
		return nil, domain.ErrInvalidImage.WithError(errors.New("image exceeds 10MB"))
	}

	f, err := file.Open()
	if err != nil {
		return nil, domain.ErrInvalidImage.WithError(err)
	}
	defer func() {
		_ = f.Close()
	}()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, domain.ErrInvalidImage.WithError(err)
	}

	return &upload{
		Filename:    file.Filename,
		ContentType: file.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}

// requiredForm returns a non-empty form value.
func requiredForm(c *fiber.Ctx, field string) (string, error) {
	value := c.FormValue(field)
	if strings.TrimSpace(value) == "" {
		return "", domain.ErrValidationFailed.WithError(errors.New(field + " is required"))
	}
	return value, nil
}

// parseThreshold reads the optional threshold form field. Absent means nil.
func parseThreshold(c *fiber.Ctx) (*float64, error) {
	raw := strings.TrimSpace(c.FormValue("threshold"))
	if raw == "" {
		return nil, nil
	}

	threshold, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, domain.ErrInvalidThreshold.WithError(err)
	}
	if !domain.ValidTolerance(threshold) {
		return nil, domain.ErrInvalidThreshold.WithError(fmt.Errorf("got %v", threshold))
	}
	return &threshold, nil
}
