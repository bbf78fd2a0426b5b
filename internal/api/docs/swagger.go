package docs

import (
	"github.com/go-swagno/swagno"
	"github.com/go-swagno/swagno/components/endpoint"
	"github.com/go-swagno/swagno/components/http/response"
	"github.com/go-swagno/swagno/components/mime"
	"github.com/go-swagno/swagno/components/parameter"
)

// EmbeddingResponse represents the response of POST /getEmbedding
type EmbeddingResponse struct {
	Message   string    `json:"message" example:"User 'alice' added successfully"`
	UserName  string    `json:"user_name" example:"alice"`
	IsSaved   bool      `json:"is_saved" example:"true"`
	Embedding []float64 `json:"embedding"`
}

// AuthenticateResponse represents the outcome of an authentication attempt
type AuthenticateResponse struct {
	IsAuthenticated bool   `json:"is_authenticated" example:"true"`
	UserName        string `json:"user_name" example:"alice"`
}

// LivenessResponse represents the response of POST /checkLiveness
type LivenessResponse struct {
	IsLive  bool   `json:"is_live" example:"true"`
	Verdict string `json:"verdict" example:"real"`
}

// AddUserResponse represents the response of POST /addUser
type AddUserResponse struct {
	Message  string `json:"message" example:"User 'alice' added successfully"`
	UserName string `json:"user_name" example:"alice"`
	IsSaved  bool   `json:"is_saved" example:"true"`
}

// UserNamesResponse represents the response of GET /getAllUsers
type UserNamesResponse struct {
	UserNames []string `json:"user_names" example:"alice,bob"`
}

// DeleteUserResponse represents the response of DELETE /deleteUser/{user_name}
type DeleteUserResponse struct {
	Message   string `json:"message" example:"User 'alice' deleted successfully"`
	UserName  string `json:"user_name" example:"alice"`
	IsDeleted bool   `json:"is_deleted" example:"true"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status  string `json:"status" example:"healthy"`
	Message string `json:"message" example:"Database service is running"`
}

// ErrorResponse represents a standard error response
type ErrorResponse struct {
	Code    string `json:"code" example:"VALIDATION_FAILED"`
	Message string `json:"message" example:"Request validation failed"`
}

var internalError = response.New(ErrorResponse{Code: "INTERNAL_ERROR", Message: "An unexpected error occurred"}, "500", "Internal Server Error")

func healthEndpoints() []*endpoint.EndPoint {
	return []*endpoint.EndPoint{
		endpoint.New(
			endpoint.GET,
			"/health",
			endpoint.WithTags("Health"),
			endpoint.WithSummary("Service health"),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(HealthResponse{}, "200", "Health status"),
			}),
		),
		endpoint.New(
			endpoint.GET,
			"/ready",
			endpoint.WithTags("Health"),
			endpoint.WithSummary("Readiness probe"),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(HealthResponse{Status: "ready"}, "200", "Ready"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(HealthResponse{Status: "not_ready"}, "503", "Service Unavailable"),
			}),
		),
	}
}

// NewModelSwagger documents the ml-model service.
func NewModelSwagger() *swagno.Swagger {
	sw := swagno.New(swagno.Config{
		Title:       "Anti Spoofing API",
		Version:     "v1.0.0",
		Description: "Face embedding extraction, liveness detection and identity matching",
		Host:        "localhost:8000",
	})

	endpoints := []*endpoint.EndPoint{
		// POST /getEmbedding
		endpoint.New(
			endpoint.POST,
			"/getEmbedding",
			endpoint.WithTags("Recognition"),
			endpoint.WithSummary("Compute the 128-d face embedding of an image"),
			endpoint.WithDescription("Multipart form with an image file field `image` and a `user_name` field. An image without a detectable face answers is_saved=false."),
			endpoint.WithConsume([]mime.MIME{mime.MIME("multipart/form-data")}),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(EmbeddingResponse{}, "200", "Embedding computed or no face found"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(ErrorResponse{Code: "VALIDATION_FAILED", Message: "File must be an image"}, "400", "Bad Request"),
				response.New(ErrorResponse{Code: "INVALID_IMAGE", Message: "Invalid image data"}, "400", "Bad Request"),
				internalError,
			}),
		),

		// POST /authenticate
		endpoint.New(
			endpoint.POST,
			"/authenticate",
			endpoint.WithTags("Recognition"),
			endpoint.WithSummary("Authenticate a probe image against known embeddings"),
			endpoint.WithDescription("Form fields: `image` (base64, data URL prefix allowed), `known_face_embeddings` (JSON object user_name to 128 numbers), `threshold` (default 0.6). A spoof is rejected before matching."),
			endpoint.WithConsume([]mime.MIME{mime.MIME("application/x-www-form-urlencoded"), mime.MIME("multipart/form-data")}),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(AuthenticateResponse{}, "200", "Authentication decided"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(ErrorResponse{Code: "INVALID_EMBEDDINGS", Message: "Invalid format. Expected JSON dictionary with user_name:embedding pairs"}, "400", "Bad Request"),
				response.New(ErrorResponse{Code: "INVALID_IMAGE", Message: "Invalid image data"}, "400", "Bad Request"),
				response.New(ErrorResponse{Code: "INVALID_THRESHOLD", Message: "Threshold must be a non-negative number"}, "400", "Bad Request"),
				response.New(ErrorResponse{Code: "AUTHENTICATION_ERROR", Message: "An error occurred during authentication"}, "500", "Internal Server Error"),
			}),
		),

		// POST /checkLiveness
		endpoint.New(
			endpoint.POST,
			"/checkLiveness",
			endpoint.WithTags("Recognition"),
			endpoint.WithSummary("Classify a probe image as real or spoof"),
			endpoint.WithDescription("Form field `image` (base64)."),
			endpoint.WithConsume([]mime.MIME{mime.MIME("application/x-www-form-urlencoded")}),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(LivenessResponse{}, "200", "Liveness classified"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(ErrorResponse{Code: "INVALID_IMAGE", Message: "Invalid image data"}, "400", "Bad Request"),
				response.New(ErrorResponse{Code: "AUTHENTICATION_ERROR", Message: "An error occurred during authentication"}, "500", "Internal Server Error"),
			}),
		),
	}

	sw.AddEndpoints(append(endpoints, healthEndpoints()...))

	return sw
}

// NewDatabaseSwagger documents the Database service.
func NewDatabaseSwagger() *swagno.Swagger {
	sw := swagno.New(swagno.Config{
		Title:       "API for interfacing UI, DB and ML model",
		Version:     "v1.0.0",
		Description: "API for managing users and face recognition",
		Host:        "localhost:8001",
	})

	endpoints := []*endpoint.EndPoint{
		// GET /getAllUsers
		endpoint.New(
			endpoint.GET,
			"/getAllUsers",
			endpoint.WithTags("Users"),
			endpoint.WithSummary("List enrolled user names"),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(UserNamesResponse{}, "200", "User names in enrollment order"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(ErrorResponse{Code: "STORE_UNAVAILABLE", Message: "Database not initialized"}, "503", "Service Unavailable"),
				internalError,
			}),
		),

		// POST /addUser
		endpoint.New(
			endpoint.POST,
			"/addUser",
			endpoint.WithTags("Users"),
			endpoint.WithSummary("Enrol a user from a face image"),
			endpoint.WithDescription("Multipart form with an image file field `image` and a `user_name` field. Failures of the ML service are reported with is_saved=false."),
			endpoint.WithConsume([]mime.MIME{mime.MIME("multipart/form-data")}),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(AddUserResponse{}, "200", "Enrollment outcome"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(ErrorResponse{Code: "VALIDATION_FAILED", Message: "User name cannot be empty"}, "400", "Bad Request"),
				internalError,
			}),
		),

		// POST /authenticate
		endpoint.New(
			endpoint.POST,
			"/authenticate",
			endpoint.WithTags("Users"),
			endpoint.WithSummary("Authenticate a probe image against every enrolled user"),
			endpoint.WithDescription("Form fields: `image` (base64) and optional `threshold`. An unreachable ML service yields is_authenticated=false."),
			endpoint.WithConsume([]mime.MIME{mime.MIME("application/x-www-form-urlencoded"), mime.MIME("multipart/form-data")}),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(AuthenticateResponse{}, "200", "Authentication decided"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(ErrorResponse{Code: "INVALID_THRESHOLD", Message: "Threshold must be a non-negative number"}, "400", "Bad Request"),
				response.New(ErrorResponse{Code: "NO_REGISTERED_USERS", Message: "No registered users found. Please register users first."}, "404", "Not Found"),
				response.New(ErrorResponse{Code: "RATE_LIMIT_EXCEEDED", Message: "Rate limit exceeded, please try again later"}, "429", "Too Many Requests"),
				internalError,
			}),
		),

		// DELETE /deleteUser/{user_name}
		endpoint.New(
			endpoint.DELETE,
			"/deleteUser/{user_name}",
			endpoint.WithTags("Users"),
			endpoint.WithSummary("Delete an enrolled user"),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithParams(
				parameter.StrParam("user_name", parameter.Path, parameter.WithDescription("User name, case-insensitive")),
			),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(DeleteUserResponse{}, "200", "Deletion outcome"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(ErrorResponse{Code: "VALIDATION_FAILED", Message: "User name cannot be empty"}, "400", "Bad Request"),
				internalError,
			}),
		),
	}

	sw.AddEndpoints(append(endpoints, healthEndpoints()...))

	return sw
}
