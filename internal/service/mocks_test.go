package service

import (
	"context"
	"io"
	"log/slog"

	"github.com/stretchr/testify/mock"

	"github.com/saturnino-fabrica-de-software/faceauth/internal/audit"
	"github.com/saturnino-fabrica-de-software/faceauth/internal/biometrics"
	"github.com/saturnino-fabrica-de-software/faceauth/internal/domain"
	"github.com/saturnino-fabrica-de-software/faceauth/internal/imaging"
	"github.com/saturnino-fabrica-de-software/faceauth/internal/mlclient"
)

type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Exists(ctx context.Context, name string) (bool, error) {
	args := m.Called(ctx, name)
	return args.Bool(0), args.Error(1)
}

func (m *MockUserRepository) Insert(ctx context.Context, user *domain.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) FetchAll(ctx context.Context) ([]domain.User, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.User), args.Error(1)
}

func (m *MockUserRepository) ListNames(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockUserRepository) Delete(ctx context.Context, name string) error {
	args := m.Called(ctx, name)
	return args.Error(0)
}

func (m *MockUserRepository) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

type MockMLClient struct {
	mock.Mock
}

func (m *MockMLClient) GetEmbedding(ctx context.Context, image mlclient.ImageFile, userName string) (*mlclient.EmbeddingResponse, error) {
	args := m.Called(ctx, image, userName)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*mlclient.EmbeddingResponse), args.Error(1)
}

func (m *MockMLClient) Authenticate(ctx context.Context, imageBase64 string, known *biometrics.KnownEmbeddings, threshold float64) (*domain.AuthResult, error) {
	args := m.Called(ctx, imageBase64, known, threshold)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.AuthResult), args.Error(1)
}

func (m *MockMLClient) Health(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

type MockExtractor struct {
	mock.Mock
}

func (m *MockExtractor) Extract(ctx context.Context, img *imaging.Image) (*domain.Descriptor, error) {
	args := m.Called(ctx, img)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Descriptor), args.Error(1)
}

type MockAuthenticator struct {
	mock.Mock
}

func (m *MockAuthenticator) Authenticate(ctx context.Context, img *imaging.Image, known *biometrics.KnownEmbeddings, tolerance float64) (domain.AuthResult, error) {
	args := m.Called(ctx, img, known, tolerance)
	return args.Get(0).(domain.AuthResult), args.Error(1)
}

func (m *MockAuthenticator) CheckLiveness(ctx context.Context, img *imaging.Image) (biometrics.LivenessResult, error) {
	args := m.Called(ctx, img)
	return args.Get(0).(biometrics.LivenessResult), args.Error(1)
}

type MockAuditLogger struct {
	mock.Mock
}

func (m *MockAuditLogger) Log(ctx context.Context, event audit.Event) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func descriptorOf(v float64) domain.Descriptor {
	var d domain.Descriptor
	for i := range d {
		d[i] = v
	}
	return d
}
