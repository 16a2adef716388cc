// Package server wires the HTTP surface of the memory store.
package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/memora/memora/internal/profile"
	"github.com/memora/memora/server/ai"
	apimiddleware "github.com/memora/memora/server/middleware"
	apiv1 "github.com/memora/memora/server/router/api/v1"
	"github.com/memora/memora/server/service/memory"
	"github.com/memora/memora/store"
)

type Server struct {
	Profile *profile.Profile
	Store   *store.Store

	echoServer *echo.Echo
}

func NewServer(ctx context.Context, p *profile.Profile, st *store.Store) (*Server, error) {
	echoServer := echo.New()
	echoServer.HideBanner = true
	echoServer.HidePort = true

	echoServer.Use(middleware.Recover())
	echoServer.Use(middleware.CORS())
	echoServer.Use(apimiddleware.NewRateLimiter(20, 40).Middleware())
	echoServer.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:    true,
		LogStatus: true,
		LogMethod: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			slog.Info("http request",
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status)
			return nil
		},
	}))

	s := &Server{
		Profile:    p,
		Store:      st,
		echoServer: echoServer,
	}

	embedder, err := newEmbedder(p)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create embedding service")
	}
	memoryService := memory.NewService(st, embedder)
	apiV1Service := apiv1.NewAPIV1Service(p, st, memoryService, ai.NewHintAnalyzer())
	apiV1Service.RegisterRoutes(echoServer)

	echoServer.GET("/healthz", s.healthz)

	// Warm the collection up front so the first user request does not pay
	// the bootstrap cost. Failure here is not fatal; every operation
	// retries the bootstrap.
	if err := st.EnsureCollection(ctx); err != nil {
		slog.Warn("collection bootstrap deferred", "error", err)
	}

	return s, nil
}

// newEmbedder picks the mock embedder in demo mode and the remote provider
// otherwise.
func newEmbedder(p *profile.Profile) (ai.EmbeddingService, error) {
	if p.IsDemo() || p.AIAPIKey == "" {
		slog.Info("using deterministic mock embedder", "mode", p.Mode)
		return ai.NewMockEmbedder(), nil
	}
	return ai.NewProvider(ai.NewConfigFromProfile(p))
}

// HealthResponse reports liveness and which storage tier is serving.
type HealthResponse struct {
	Status    string `json:"status"`
	StoreMode string `json:"storeMode"`
	Version   string `json:"version"`
}

func (s *Server) healthz(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{
		Status:    "ok",
		StoreMode: s.Store.Mode().String(),
		Version:   s.Profile.Version,
	})
}

func (s *Server) Start(_ context.Context) error {
	address := s.Profile.ListenAddr()
	slog.Info("server started", "address", address, "mode", s.Profile.Mode)
	if err := s.echoServer.Start(address); err != nil && err != http.ErrServerClosed {
		return errors.Wrap(err, "failed to start server")
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := s.echoServer.Shutdown(ctx); err != nil {
		slog.Error("failed to shut down server", "error", err)
	}
	if err := s.Store.Close(); err != nil {
		slog.Error("failed to close store", "error", err)
	}
	slog.Info("server shut down")
}
