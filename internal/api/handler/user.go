package handler

import (
	"context"
	"log/slog"
	"net/url"

	"github.com/gofiber/fiber/v2"

	"github.com/saturnino-fabrica-de-software/faceauth/internal/domain"
	"github.com/saturnino-fabrica-de-software/faceauth/internal/mlclient"
	"github.com/saturnino-fabrica-de-software/faceauth/internal/service"
)

// UserService interface for the Database service
type UserService interface {
	ListUsers(ctx context.Context) ([]string, error)
	AddUser(ctx context.Context, userName string, image mlclient.ImageFile) (*service.AddUserResult, error)
	Authenticate(ctx context.Context, imageBase64 string, threshold *float64) (domain.AuthResult, error)
	DeleteUser(ctx context.Context, userName string) (*service.DeleteUserResult, error)
}

// UserHandler serves the Database service endpoints
type UserHandler struct {
	service UserService
	logger  *slog.Logger
}

func NewUserHandler(service UserService, logger *slog.Logger) *UserHandler {
	return &UserHandler{
		service: service,
		logger:  logger,
	}
}

// UserNamesResponse response for GET /getAllUsers
type UserNamesResponse struct {
	UserNames []string `json:"user_names"`
}

// GetAllUsers GET /getAllUsers
func (h *UserHandler) GetAllUsers(c *fiber.Ctx) error {
	names, err := h.service.ListUsers(c.Context())
	if err != nil {
		return err
	}

	return c.JSON(UserNamesResponse{UserNames: names})
}

// AddUser POST /addUser
func (h *UserHandler) AddUser(c *fiber.Ctx) error {
	image, err := readUpload(c, "image")
	if err != nil {
		return err
	}

	result, err := h.service.AddUser(c.Context(), c.FormValue("user_name"), mlclient.ImageFile{
		Filename:    image.Filename,
		ContentType: image.ContentType,
		Data:        image.Data,
	})
	if err != nil {
		return err
	}

	return c.JSON(result)
}

// Authenticate POST /authenticate
func (h *UserHandler) Authenticate(c *fiber.Ctx) error {
	image, err := requiredForm(c, "image")
	if err != nil {
		return err
	}

	threshold, err := parseThreshold(c)
	if err != nil {
		return err
	}

	result, err := h.service.Authenticate(c.Context(), image, threshold)
	if err != nil {
		return err
	}

	return c.JSON(result)
}

// DeleteUser DELETE /deleteUser/:user_name
func (h *UserHandler) DeleteUser(c *fiber.Ctx) error {
	name, err := url.PathUnescape(c.Params("user_name"))
	if err != nil {
		return domain.ErrValidationFailed.WithError(err)
	}

	result, err := h.service.DeleteUser(c.Context(), name)
	if err != nil {
		return err
	}

	return c.JSON(result)
}
