// Package server exposes the portfolio advisor over HTTP.
package server

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"

	"github.com/dyike/BondCortex/internal/portfolio"
	"github.com/dyike/BondCortex/models"
)

// Config is the HTTP server configuration.
type Config struct {
	// ListenAddr is the address to listen on (e.g., ":8000")
	ListenAddr string
	// AllowOrigins is a comma separated CORS origin list, "*" for any.
	AllowOrigins string
	// RequestTimeout bounds a single advisor run.
	RequestTimeout time.Duration
}

// Advisor runs one conversation against a dataset.
type Advisor interface {
	Run(ctx context.Context, history []*schema.Message, dataset *models.BondDataset) (*portfolio.Result, error)
}

type backend struct {
	advisor Advisor
	dataset *models.BondDataset
}

// Server is the HTTP boundary of the advisor.
type Server struct {
	config  Config
	backend atomic.Pointer[backend]
	logger  *zap.Logger
	app     *fiber.App
}

// NewServer creates a server. The advisor and dataset are shared by all
// requests and can be replaced later with Swap.
func NewServer(config Config, advisor Advisor, dataset *models.BondDataset, logger *zap.Logger) *Server {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})

	allowOrigins := config.AllowOrigins
	if allowOrigins == "" {
		allowOrigins = "*"
	}
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: allowOrigins,
		AllowMethods: "GET,POST,PUT,PATCH,DELETE,HEAD,OPTIONS",
	}))

	s := &Server{
		config: config,
		logger: logger,
		app:    app,
	}
	s.Swap(advisor, dataset)

	app.Get("/ping", s.handlePing)
	app.Get("/bonds", s.handleBonds)
	app.Post("/chat", s.handleChat)

	return s
}

// Swap replaces the advisor and dataset used by subsequent requests.
// Requests already running finish with the previous pair.
func (s *Server) Swap(advisor Advisor, dataset *models.BondDataset) {
	s.backend.Store(&backend{advisor: advisor, dataset: dataset})
}

// Run starts the HTTP server on the configured address.
func (s *Server) Run() error {
	s.logger.Info("starting API server",
		zap.String("listen", s.config.ListenAddr),
	)
	return s.app.Listen(s.config.ListenAddr)
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}
