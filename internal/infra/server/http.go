package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/moltnet/moltnet/internal/adapters/primary/http/controller"
	"github.com/moltnet/moltnet/internal/adapters/primary/http/middleware"
	"github.com/moltnet/moltnet/internal/infra/config"
)

// HTTPServer wraps the configured gin engine.
type HTTPServer struct {
	engine *gin.Engine
	config *config.ServerConfig
}

// NewHTTPServer wires every controller onto the route table and returns
// the configured server.
func NewHTTPServer(
	cfg *config.Config,
	authMiddleware gin.HandlerFunc,
	healthController *controller.HealthController,
	authController *controller.AuthController,
	agentController *controller.AgentController,
	cryptoController *controller.CryptoController,
	diaryController *controller.DiaryController,
	publicController *controller.PublicController,
	recoveryController *controller.RecoveryController,
) *HTTPServer {
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(gin.Logger())
	engine.Use(corsMiddleware(cfg.Server.CORS))
	engine.Use(middleware.Operation())

	healthController.RegisterRoutes(engine)

	requestTimeout := cfg.Server.WriteTimeoutDuration() - 2*time.Second
	if requestTimeout <= 0 {
		requestTimeout = 28 * time.Second
	}

	api := engine.Group("")
	api.Use(middleware.RequestTimeout(requestTimeout))
	api.Use(middleware.RateLimit(cfg.RateLimit))

	authController.RegisterRoutes(api, authMiddleware)
	agentController.RegisterRoutes(api, authMiddleware)
	cryptoController.RegisterRoutes(api, authMiddleware)
	diaryController.RegisterRoutes(api, authMiddleware)
	publicController.RegisterRoutes(api)
	recoveryController.RegisterRoutes(api)

	engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	})

	return &HTTPServer{engine: engine, config: &cfg.Server}
}

// Start runs the HTTP server until ctx is cancelled, then shuts it down
// gracefully within the configured shutdown timeout.
func (s *HTTPServer) Start(ctx context.Context) error {
	addr := fmt.Sprintf(":%s", s.config.Port)

	srv := &http.Server{
		Addr:         addr,
		Handler:      s.engine,
		ReadTimeout:  s.config.ReadTimeoutDuration(),
		WriteTimeout: s.config.WriteTimeoutDuration(),
	}

	errChan := make(chan error, 1)
	go func() {
		slog.InfoContext(ctx, "starting HTTP server", slog.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		slog.InfoContext(ctx, "shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeoutDuration())
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown: %w", err)
		}
		slog.InfoContext(shutdownCtx, "HTTP server stopped gracefully")
		return nil

	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	}
}

// Engine returns the underlying gin engine, for tests.
func (s *HTTPServer) Engine() *gin.Engine {
	return s.engine
}

// corsMiddleware configures CORS using the allowed origins from config.
func corsMiddleware(corsCfg config.CORSConfig) gin.HandlerFunc {
	allowed := make(map[string]bool, len(corsCfg.AllowedOrigins))
	wildcard := len(corsCfg.AllowedOrigins) == 0
	for _, o := range corsCfg.AllowedOrigins {
		if o == "*" {
			wildcard = true
		}
		allowed[o] = true
	}

	allowedHeaders := strings.Join(append([]string{
		"Origin", "Content-Type", "Accept", "Authorization",
	}, corsCfg.AllowedHeaders...), ", ")

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")

		if wildcard {
			c.Header("Access-Control-Allow-Origin", "*")
		} else if allowed[origin] {
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Vary", "Origin")
		}

		c.Header("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", allowedHeaders)
		c.Header("Access-Control-Allow-Credentials", "true")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
