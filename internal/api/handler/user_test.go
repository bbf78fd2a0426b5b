package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"math"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/saturnino-fabrica-de-software/faceauth/internal/domain"
	"github.com/saturnino-fabrica-de-software/faceauth/internal/mlclient"
	"github.com/saturnino-fabrica-de-software/faceauth/internal/service"
)

type MockUserService struct {
	mock.Mock
}

func (m *MockUserService) ListUsers(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockUserService) AddUser(ctx context.Context, userName string, image mlclient.ImageFile) (*service.AddUserResult, error) {
	args := m.Called(ctx, userName, image)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.AddUserResult), args.Error(1)
}

func (m *MockUserService) Authenticate(ctx context.Context, imageBase64 string, threshold *float64) (domain.AuthResult, error) {
	args := m.Called(ctx, imageBase64, threshold)
	return args.Get(0).(domain.AuthResult), args.Error(1)
}

func (m *MockUserService) DeleteUser(ctx context.Context, userName string) (*service.DeleteUserResult, error) {
	args := m.Called(ctx, userName)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.DeleteUserResult), args.Error(1)
}

func TestUserHandler_GetAllUsers(t *testing.T) {
	tests := []struct {
		name           string
		setupMock      func(*MockUserService)
		expectedStatus int
		expectedBody   string
	}{
		{
			name: "lists names",
			setupMock: func(m *MockUserService) {
				m.On("ListUsers", mock.Anything).Return([]string{"alice", "bob"}, nil)
			},
			expectedStatus: 200,
			expectedBody:   `{"user_names":["alice","bob"]}`,
		},
		{
			name: "empty store",
			setupMock: func(m *MockUserService) {
				m.On("ListUsers", mock.Anything).Return([]string{}, nil)
			},
			expectedStatus: 200,
			expectedBody:   `{"user_names":[]}`,
		},
		{
			name: "store unavailable",
			setupMock: func(m *MockUserService) {
				m.On("ListUsers", mock.Anything).Return(nil, domain.ErrStoreUnavailable)
			},
			expectedStatus: 503,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := &MockUserService{}
			tt.setupMock(mockService)

			handler := NewUserHandler(mockService, testLogger())
			app := createTestApp()
			app.Get("/getAllUsers", handler.GetAllUsers)

			resp, err := app.Test(httptest.NewRequest("GET", "/getAllUsers", nil))
			require.NoError(t, err)
			assert.Equal(t, tt.expectedStatus, resp.StatusCode)

			if tt.expectedBody != "" {
				body, _ := io.ReadAll(resp.Body)
				assert.JSONEq(t, tt.expectedBody, string(body))
			}
		})
	}
}

func TestUserHandler_AddUser(t *testing.T) {
	tests := []struct {
		name           string
		userName       string
		imageContent   []byte
		contentType    string
		setupMock      func(*MockUserService)
		expectedStatus int
		expectedBody   string
	}{
		{
			name:         "saved",
			userName:     "Alice",
			imageContent: []byte("jpeg"),
			contentType:  "image/jpeg",
			setupMock: func(m *MockUserService) {
				m.On("AddUser", mock.Anything, "Alice", mlclient.ImageFile{
					Filename:    "face.jpg",
					ContentType: "image/jpeg",
					Data:        []byte("jpeg"),
				}).Return(&service.AddUserResult{Message: "User 'alice' added successfully", UserName: "alice", IsSaved: true}, nil)
			},
			expectedStatus: 200,
			expectedBody:   `{"message":"User 'alice' added successfully","user_name":"alice","is_saved":true}`,
		},
		{
			name:         "not saved is still 200",
			userName:     "bob",
			imageContent: []byte("txt"),
			contentType:  "text/plain",
			setupMock: func(m *MockUserService) {
				m.On("AddUser", mock.Anything, "bob", mock.Anything).Return(&service.AddUserResult{
					Message:  "Invalid file type. Please upload an image file.",
					UserName: "bob",
				}, nil)
			},
			expectedStatus: 200,
			expectedBody:   `{"message":"Invalid file type. Please upload an image file.","user_name":"bob","is_saved":false}`,
		},
		{
			name:         "empty user name",
			imageContent: []byte("jpeg"),
			contentType:  "image/jpeg",
			setupMock: func(m *MockUserService) {
				m.On("AddUser", mock.Anything, "", mock.Anything).
					Return(nil, domain.ErrValidationFailed.WithError(errors.New("User name cannot be empty")))
			},
			expectedStatus: 400,
		},
		{
			name:           "missing image",
			userName:       "bob",
			setupMock:      func(*MockUserService) {},
			expectedStatus: 400,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := &MockUserService{}
			tt.setupMock(mockService)

			handler := NewUserHandler(mockService, testLogger())
			app := createTestApp()
			app.Post("/addUser", handler.AddUser)

			body, contentType, _ := createMultipartRequest(tt.userName, tt.imageContent, tt.contentType)
			req := httptest.NewRequest("POST", "/addUser", body)
			req.Header.Set("Content-Type", contentType)

			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.expectedStatus, resp.StatusCode)

			if tt.expectedBody != "" {
				respBody, _ := io.ReadAll(resp.Body)
				assert.JSONEq(t, tt.expectedBody, string(respBody))
			}

			mockService.AssertExpectations(t)
		})
	}
}

func TestUserHandler_Authenticate(t *testing.T) {
	tests := []struct {
		name           string
		form           url.Values
		setupMock      func(*MockUserService)
		expectedStatus int
		expectedBody   string
		expectedCode   string
	}{
		{
			name: "authenticated",
			form: url.Values{"image": {"aGk="}},
			setupMock: func(m *MockUserService) {
				m.On("Authenticate", mock.Anything, "aGk=", (*float64)(nil)).Return(domain.Authenticated("alice"), nil)
			},
			expectedStatus: 200,
			expectedBody:   `{"is_authenticated":true,"user_name":"alice"}`,
		},
		{
			name: "no registered users",
			form: url.Values{"image": {"aGk="}, "threshold": {"0.5"}},
			setupMock: func(m *MockUserService) {
				m.On("Authenticate", mock.Anything, "aGk=", mock.MatchedBy(func(th *float64) bool {
					return th != nil && *th == 0.5
				})).Return(domain.Rejected(), domain.ErrNoRegisteredUsers)
			},
			expectedStatus: 404,
		},
		{
			name:           "missing image",
			form:           url.Values{},
			setupMock:      func(*MockUserService) {},
			expectedStatus: 400,
		},
		{
			name:           "threshold NaN",
			form:           url.Values{"image": {"aGk="}, "threshold": {"nan"}},
			setupMock:      func(*MockUserService) {},
			expectedStatus: 400,
			expectedCode:   "INVALID_THRESHOLD",
		},
		{
			name: "threshold infinity accepted",
			form: url.Values{"image": {"aGk="}, "threshold": {"+Inf"}},
			setupMock: func(m *MockUserService) {
				m.On("Authenticate", mock.Anything, "aGk=", mock.MatchedBy(func(th *float64) bool {
					return th != nil && math.IsInf(*th, 1)
				})).Return(domain.Authenticated("alice"), nil)
			},
			expectedStatus: 200,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := &MockUserService{}
			tt.setupMock(mockService)

			handler := NewUserHandler(mockService, testLogger())
			app := createTestApp()
			app.Post("/authenticate", handler.Authenticate)

			resp, err := app.Test(newFormRequest("/authenticate", tt.form))
			require.NoError(t, err)
			assert.Equal(t, tt.expectedStatus, resp.StatusCode)

			if tt.expectedBody != "" {
				body, _ := io.ReadAll(resp.Body)
				assert.JSONEq(t, tt.expectedBody, string(body))
			}

			if tt.expectedCode != "" {
				var errResp struct {
					Error struct {
						Code string `json:"code"`
					} `json:"error"`
				}
				require.NoError(t, json.NewDecoder(resp.Body).Decode(&errResp))
				assert.Equal(t, tt.expectedCode, errResp.Error.Code)
			}

			mockService.AssertExpectations(t)
		})
	}
}

func TestUserHandler_DeleteUser(t *testing.T) {
	tests := []struct {
		name           string
		path           string
		setupMock      func(*MockUserService)
		expectedStatus int
		expectedBody   string
	}{
		{
			name: "deleted",
			path: "/deleteUser/Alice",
			setupMock: func(m *MockUserService) {
				m.On("DeleteUser", mock.Anything, "Alice").Return(&service.DeleteUserResult{
					Message: "User 'alice' deleted successfully", UserName: "alice", IsDeleted: true,
				}, nil)
			},
			expectedStatus: 200,
			expectedBody:   `{"message":"User 'alice' deleted successfully","user_name":"alice","is_deleted":true}`,
		},
		{
			name: "escaped name",
			path: "/deleteUser/mary%20ann",
			setupMock: func(m *MockUserService) {
				m.On("DeleteUser", mock.Anything, "mary ann").Return(&service.DeleteUserResult{
					Message: "User 'mary ann' not found", UserName: "mary ann",
				}, nil)
			},
			expectedStatus: 200,
			expectedBody:   `{"message":"User 'mary ann' not found","user_name":"mary ann","is_deleted":false}`,
		},
		{
			name: "store failure",
			path: "/deleteUser/alice",
			setupMock: func(m *MockUserService) {
				m.On("DeleteUser", mock.Anything, "alice").Return(nil, errors.New("connection reset"))
			},
			expectedStatus: 500,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := &MockUserService{}
			tt.setupMock(mockService)

			handler := NewUserHandler(mockService, testLogger())
			app := createTestApp()
			app.Delete("/deleteUser/:user_name", handler.DeleteUser)

			resp, err := app.Test(httptest.NewRequest("DELETE", tt.path, nil))
			require.NoError(t, err)
			assert.Equal(t, tt.expectedStatus, resp.StatusCode)

			if tt.expectedBody != "" {
				body, _ := io.ReadAll(resp.Body)
				assert.JSONEq(t, tt.expectedBody, string(body))
			}

			mockService.AssertExpectations(t)
		})
	}
}
