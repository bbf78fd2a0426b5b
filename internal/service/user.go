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
	"github.com/saturnino-fabrica-de-software/faceauth/internal/mlclient"
)

const auditService = "database"

type UserRepositoryInterface interface {
	Exists(ctx context.Context, name string) (bool, error)
	Insert(ctx context.Context, user *domain.User) error
	FetchAll(ctx context.Context) ([]domain.User, error)
	ListNames(ctx context.Context) ([]string, error)
	Delete(ctx context.Context, name string) error
	Ping(ctx context.Context) error
}

type MLClientInterface interface {
	GetEmbedding(ctx context.Context, image mlclient.ImageFile, userName string) (*mlclient.EmbeddingResponse, error)
	Authenticate(ctx context.Context, imageBase64 string, known *biometrics.KnownEmbeddings, threshold float64) (*domain.AuthResult, error)
	Health(ctx context.Context) error
}

// AddUserResult is the response body of the add-user flow.
type AddUserResult struct {
	Message  string `json:"message"`
	UserName string `json:"user_name"`
	IsSaved  bool   `json:"is_saved"`
}

// DeleteUserResult is the response body of the delete-user flow.
type DeleteUserResult struct {
	Message   string `json:"message"`
	UserName  string `json:"user_name"`
	IsDeleted bool   `json:"is_deleted"`
}

// UserService orchestrates the embedding store and the ml-model service.
type UserService struct {
	users     UserRepositoryInterface
	ml        MLClientInterface
	audit     audit.Logger
	logger    *slog.Logger
	threshold float64
}

func NewUserService(
	users UserRepositoryInterface,
	ml MLClientInterface,
	auditLogger audit.Logger,
	logger *slog.Logger,
) *UserService {
	if auditLogger == nil {
		auditLogger = &audit.NoOpLogger{}
	}
	return &UserService{
		users:     users,
		ml:        ml,
		audit:     auditLogger,
		logger:    logger,
		threshold: biometrics.DefaultTolerance,
	}
}

func (s *UserService) WithThreshold(threshold float64) *UserService {
	s.threshold = threshold
	return s
}

// Threshold is the tolerance used when a request does not carry one.
func (s *UserService) Threshold() float64 {
	return s.threshold
}

// ListUsers returns enrolled names in insertion order.
func (s *UserService) ListUsers(ctx context.Context) ([]string, error) {
	names, err := s.users.ListNames(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	if names == nil {
		names = []string{}
	}
	return names, nil
}

// AddUser enrols a user. Failures of the ml-model service or of the insert are
// reported through IsSaved rather than as errors; only an invalid name or a
// store read failure returns an error.
func (s *UserService) AddUser(ctx context.Context, userName string, image mlclient.ImageFile) (*AddUserResult, error) {
	name, err := domain.NormalizeUserName(userName)
	if err != nil {
		return nil, err
	}

	result, err := s.addUser(ctx, name, image)
	if err != nil {
		return nil, err
	}

	s.logAudit(ctx, audit.Event{
		EventType: audit.EventUserEnrolled,
		UserName:  name,
		Success:   result.IsSaved,
		Error:     failureMessage(result.IsSaved, result.Message),
	})
	return result, nil
}

func (s *UserService) addUser(ctx context.Context, name string, image mlclient.ImageFile) (*AddUserResult, error) {
	notSaved := func(msg string) (*AddUserResult, error) {
		return &AddUserResult{Message: msg, UserName: name}, nil
	}

	if !strings.HasPrefix(image.ContentType, "image/") {
		return notSaved("Invalid file type. Please upload an image file.")
	}

	exists, err := s.users.Exists(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("check user %s: %w", name, err)
	}
	if exists {
		return notSaved(fmt.Sprintf("User '%s' already exists", name))
	}

	resp, err := s.ml.GetEmbedding(ctx, image, name)
	if err != nil {
		return notSaved(mlFailureMessage(err))
	}

	if !resp.IsSaved || len(resp.Embedding) == 0 {
		msg := resp.Message
		if msg == "" {
			msg = "Failed to generate embeddings - no face detected or invalid image"
		}
		return notSaved(msg)
	}

	embedding, err := domain.NewDescriptor(resp.Embedding)
	if err != nil {
		s.logger.WarnContext(ctx, "invalid embedding from ml service",
			slog.String("user_name", name),
			slog.Int("length", len(resp.Embedding)),
		)
		return notSaved("Invalid embedding format received from ML service")
	}

	user := &domain.User{Name: name, Embedding: embedding}
	if err := s.users.Insert(ctx, user); err != nil {
		if errors.Is(err, domain.ErrUserExists) {
			return notSaved(fmt.Sprintf("User '%s' already exists", name))
		}
		s.logger.ErrorContext(ctx, "insert user", slog.String("user_name", name), slog.Any("error", err))
		return notSaved(fmt.Sprintf("Failed to save user '%s' to database", name))
	}

	return &AddUserResult{
		Message:  fmt.Sprintf("User '%s' added successfully", name),
		UserName: name,
		IsSaved:  true,
	}, nil
}

// Authenticate matches a base64 probe against every enrolled user through
// the ml-model service. An unreachable or failing ml-model degrades to a
// rejection.
func (s *UserService) Authenticate(ctx context.Context, imageBase64 string, threshold *float64) (domain.AuthResult, error) {
	tolerance := s.threshold
	if threshold != nil {
		tolerance = *threshold
	}
	if !domain.ValidTolerance(tolerance) {
		return domain.Rejected(), domain.ErrInvalidThreshold
	}

	users, err := s.users.FetchAll(ctx)
	if err != nil {
		return domain.Rejected(), fmt.Errorf("fetch users: %w", err)
	}
	if len(users) == 0 {
		return domain.Rejected(), domain.ErrNoRegisteredUsers
	}

	known := biometrics.KnownEmbeddingsFromUsers(users)

	result := domain.Rejected()
	resp, err := s.ml.Authenticate(ctx, imageBase64, known, tolerance)
	if err != nil {
		s.logger.WarnContext(ctx, "ml authenticate failed", slog.Any("error", err))
	} else {
		result = *resp
	}

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

	return result, nil
}

// DeleteUser removes a user. A missing user is reported through IsDeleted.
func (s *UserService) DeleteUser(ctx context.Context, userName string) (*DeleteUserResult, error) {
	name, err := domain.NormalizeUserName(userName)
	if err != nil {
		return nil, err
	}

	err = s.users.Delete(ctx, name)
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrUserNotFound):
		return &DeleteUserResult{
			Message:  fmt.Sprintf("User '%s' not found", name),
			UserName: name,
		}, nil
	default:
		return nil, fmt.Errorf("delete user %s: %w", name, err)
	}

	s.logAudit(ctx, audit.Event{
		EventType: audit.EventUserDeleted,
		UserName:  name,
		Success:   true,
	})

	return &DeleteUserResult{
		Message:   fmt.Sprintf("User '%s' deleted successfully", name),
		UserName:  name,
		IsDeleted: true,
	}, nil
}

// Health pings the store. An unreachable ml-model service is reported in
// the details but does not make the Database service unhealthy.
func (s *UserService) Health(ctx context.Context) (map[string]string, error) {
	if err := s.users.Ping(ctx); err != nil {
		return nil, err
	}

	details := map[string]string{"ml_service": "reachable"}
	if err := s.ml.Health(ctx); err != nil {
		s.logger.WarnContext(ctx, "ml service health check failed", slog.Any("error", err))
		details["ml_service"] = "unreachable"
	}
	return details, nil
}

func (s *UserService) logAudit(ctx context.Context, event audit.Event) {
	event.Service = auditService
	if err := s.audit.Log(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "audit log failed", slog.Any("error", err))
	}
}

func mlFailureMessage(err error) string {
	var statusErr *mlclient.StatusError
	switch {
	case errors.As(err, &statusErr):
		return fmt.Sprintf("ML service error: %d", statusErr.StatusCode)
	case errors.Is(err, mlclient.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return "Request timeout - ML service took too long to respond"
	default:
		detail := strings.TrimPrefix(err.Error(), mlclient.ErrUnavailable.Error()+": ")
		return fmt.Sprintf("ML service unavailable: %s", detail)
	}
}

func failureMessage(ok bool, msg string) string {
	if ok {
		return ""
	}
	return msg
}
