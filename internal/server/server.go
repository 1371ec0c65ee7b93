package server

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"

	"github.com/addyspiller/prisere/internal/async"
	"github.com/addyspiller/prisere/internal/auth"
	"github.com/addyspiller/prisere/internal/common"
	"github.com/addyspiller/prisere/internal/export"
	"github.com/addyspiller/prisere/internal/repository"
	"github.com/addyspiller/prisere/internal/storage"
)

// Deps are the collaborators the HTTP surface needs.
type Deps struct {
	Jobs       repository.AnalysisJobRepository
	Results    repository.AnalysisResultRepository
	Blobs      storage.BlobStore
	Dispatcher *async.Dispatcher
	Provider   auth.Provider
	Exporter   *export.Service
	HealthPing func(ctx context.Context) error
	Storage    common.StorageConfig
	Logger     *slog.Logger
}

// Server wires the Fiber app around the service dependencies.
type Server struct {
	app      *fiber.App
	deps     Deps
	validate *validator.Validate
	log      *slog.Logger
}

func New(deps Deps, serverCfg common.ServerConfig) *Server {
	log := deps.Logger
	if log == nil {
		log = slog.Default()
	}

	app := fiber.New(fiber.Config{
		AppName:               "prisere",
		DisableStartupMessage: true,
		BodyLimit:             4 << 20, // uploads bypass the API via presigned URLs
	})

	s := &Server{
		app:      app,
		deps:     deps,
		validate: validator.New(),
		log:      log,
	}

	app.Use(cors.New(cors.Config{
		AllowOrigins: strings.Join(serverCfg.CORSOrigins(), ","),
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET, POST, DELETE, OPTIONS",
	}))
	app.Use(RequestLogger(log))

	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.app.Get("/health", s.Health)

	v1 := s.app.Group("/v1", Authenticate(s.deps.Provider, s.log))

	v1.Post("/analyses", s.CreateAnalysis)
	v1.Get("/analyses", s.ListAnalyses)
	v1.Get("/analyses/export", s.ExportAnalyses)
	v1.Get("/analyses/:id/status", s.GetAnalysisStatus)
	v1.Get("/analyses/:id/result", s.GetAnalysisResult)
	v1.Delete("/analyses/:id", s.DeleteAnalysis)

	v1.Post("/uploads/init", s.InitUpload)
	v1.Get("/uploads/verify/+", s.VerifyUpload)
	v1.Delete("/uploads/+", s.DeleteUpload)
}

// App exposes the underlying Fiber app; tests drive it via app.Test.
func (s *Server) App() *fiber.App { return s.app }

func (s *Server) Listen(addr string) error {
	s.log.Info("server.listen", "addr", addr)
	return s.app.Listen(addr)
}

func (s *Server) Shutdown(timeout time.Duration) error {
	return s.app.ShutdownWithTimeout(timeout)
}

// Health reports liveness plus a database ping.
func (s *Server) Health(c *fiber.Ctx) error {
	if s.deps.HealthPing != nil {
		if err := s.deps.HealthPing(c.UserContext()); err != nil {
			s.log.Error("health.db_ping.failed", "error", err)
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"status":   "error",
				"database": "unreachable",
			})
		}
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status":   "ok",
		"database": "ok",
	})
}
