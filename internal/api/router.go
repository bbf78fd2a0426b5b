package api

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/requestid"

	"github.com/go-swagno/swagno"
	swagger "github.com/go-swagno/swagno-fiber/swagger"
	"github.com/saturnino-fabrica-de-software/faceauth/internal/api/docs"
	"github.com/saturnino-fabrica-de-software/faceauth/internal/api/handler"
	"github.com/saturnino-fabrica-de-software/faceauth/internal/api/middleware"
)

const bodyLimit = 16 * 1024 * 1024

// ModelDependencies wires the ml-model service routes.
type ModelDependencies struct {
	Recognition handler.RecognitionService
	Health      *handler.HealthHandler
}

// DatabaseDependencies wires the Database service routes.
type DatabaseDependencies struct {
	Users     handler.UserService
	Health    *handler.HealthHandler
	RateLimit middleware.RateLimiterConfig
}

type Router struct {
	app         *fiber.App
	logger      *slog.Logger
	model       *ModelDependencies
	database    *DatabaseDependencies
	rateLimiter *middleware.RateLimiter
}

func newRouter(logger *slog.Logger, appName string) *Router {
	app := fiber.New(fiber.Config{
		ErrorHandler: middleware.ErrorHandler(logger),
		AppName:      appName,
		BodyLimit:    bodyLimit,
	})

	return &Router{
		app:    app,
		logger: logger,
	}
}

// NewModelRouter serves /getEmbedding, /authenticate and /checkLiveness.
func NewModelRouter(logger *slog.Logger, deps *ModelDependencies) *Router {
	r := newRouter(logger, "faceauth ml-model")
	r.model = deps
	return r
}

// NewDatabaseRouter serves the user management endpoints.
func NewDatabaseRouter(logger *slog.Logger, deps *DatabaseDependencies) *Router {
	r := newRouter(logger, "faceauth database")
	r.database = deps
	return r
}

func (r *Router) Setup() {
	// Global middlewares
	r.app.Use(requestid.New())
	r.app.Use(middleware.Recover(r.logger))
	r.app.Use(middleware.Logger(r.logger))
	r.app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept",
	}))

	var sw *swagno.Swagger
	health := handler.NewHealthHandler("ok", nil, nil)

	switch {
	case r.model != nil:
		sw = docs.NewModelSwagger()
		if r.model.Health != nil {
			health = r.model.Health
		}
		r.setupModelRoutes()
	case r.database != nil:
		sw = docs.NewDatabaseSwagger()
		if r.database.Health != nil {
			health = r.database.Health
		}
		r.setupDatabaseRoutes()
	}

	if sw != nil {
		swagger.SwaggerHandler(r.app, sw.MustToJson())
	}

	r.app.Get("/health", health.Health)
	r.app.Get("/ready", health.Ready)
}

func (r *Router) setupModelRoutes() {
	recognitionHandler := handler.NewRecognitionHandler(r.model.Recognition, r.logger)

	r.app.Post("/getEmbedding", recognitionHandler.GetEmbedding)
	r.app.Post("/authenticate", recognitionHandler.Authenticate)
	r.app.Post("/checkLiveness", recognitionHandler.CheckLiveness)
}

func (r *Router) setupDatabaseRoutes() {
	userHandler := handler.NewUserHandler(r.database.Users, r.logger)

	// Per client IP, authentication only
	r.rateLimiter = middleware.NewRateLimiter(r.database.RateLimit)

	r.app.Get("/getAllUsers", userHandler.GetAllUsers)
	r.app.Post("/addUser", userHandler.AddUser)
	r.app.Post("/authenticate", r.rateLimiter.Handler(), userHandler.Authenticate)
	r.app.Delete("/deleteUser/:user_name", userHandler.DeleteUser)
}

func (r *Router) App() *fiber.App {
	return r.app
}

func (r *Router) Listen(addr string) error {
	return r.app.Listen(addr)
}

func (r *Router) Shutdown() error {
	// Stop rate limiter cleanup goroutine
	if r.rateLimiter != nil {
		r.rateLimiter.Stop()
	}

	return r.app.Shutdown()
}
