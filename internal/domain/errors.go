package domain

import (
	"fmt"
)

type AppError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"-"`
	Err        error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Is matches any AppError carrying the same code, so catalogue entries
// decorated through WithError still satisfy errors.Is.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

func (e *AppError) WithError(err error) *AppError {
	return &AppError{
		Code:       e.Code,
		Message:    e.Message,
		StatusCode: e.StatusCode,
		Err:        err,
	}
}

// Pre-defined errors
var (
	ErrInternal = &AppError{
		Code:       "INTERNAL_ERROR",
		Message:    "An unexpected error occurred",
		StatusCode: 500,
	}

	ErrBadRequest = &AppError{
		Code:       "BAD_REQUEST",
		Message:    "Invalid request",
		StatusCode: 400,
	}

	ErrNotFound = &AppError{
		Code:       "NOT_FOUND",
		Message:    "Resource not found",
		StatusCode: 404,
	}

	ErrValidationFailed = &AppError{
		Code:       "VALIDATION_FAILED",
		Message:    "Request validation failed",
		StatusCode: 400,
	}

	ErrInvalidImage = &AppError{
		Code:       "INVALID_IMAGE",
		Message:    "Invalid image data",
		StatusCode: 400,
	}

	ErrInvalidEmbeddings = &AppError{
		Code:       "INVALID_EMBEDDINGS",
		Message:    "Invalid format. Expected JSON dictionary with user_name:embedding pairs",
		StatusCode: 400,
	}

	ErrInvalidThreshold = &AppError{
		Code:       "INVALID_THRESHOLD",
		Message:    "Threshold must be a non-negative number",
		StatusCode: 400,
	}

	ErrUserNotFound = &AppError{
		Code:       "USER_NOT_FOUND",
		Message:    "User not found",
		StatusCode: 404,
	}

	ErrNoRegisteredUsers = &AppError{
		Code:       "NO_REGISTERED_USERS",
		Message:    "No registered users found. Please register users first.",
		StatusCode: 404,
	}

	ErrUserExists = &AppError{
		Code:       "USER_ALREADY_EXISTS",
		Message:    "User already exists",
		StatusCode: 409,
	}

	ErrRateLimitExceeded = &AppError{
		Code:       "RATE_LIMIT_EXCEEDED",
		Message:    "Rate limit exceeded, please try again later",
		StatusCode: 429,
	}

	ErrAuthentication = &AppError{
		Code:       "AUTHENTICATION_ERROR",
		Message:    "An error occurred during authentication",
		StatusCode: 500,
	}

	ErrModelUnavailable = &AppError{
		Code:       "MODEL_UNAVAILABLE",
		Message:    "Inference model is not available",
		StatusCode: 500,
	}

	ErrMLServiceUnavailable = &AppError{
		Code:       "ML_SERVICE_UNAVAILABLE",
		Message:    "ML service unavailable",
		StatusCode: 503,
	}

	ErrStoreUnavailable = &AppError{
		Code:       "STORE_UNAVAILABLE",
		Message:    "Database not initialized",
		StatusCode: 503,
	}
)
