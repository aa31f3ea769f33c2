// Package health serves the liveness endpoint and the Telegram webhook.
package health

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/smith3v/tg-word-keeper/pkg/logger"
)

const (
	HealthyText  = "OK - Bot and DB are alive"
	DegradedText = "OK - Bot alive, DB error"

	ShutdownTimeout = 5 * time.Second
)

// SchemaChecker verifies the database is reachable and its schema current.
type SchemaChecker interface {
	EnsureSchema(ctx context.Context) error
}

// NewRouter builds the HTTP routes. The webhook route is only added when
// webhook is non-nil; its path is never logged.
func NewRouter(store SchemaChecker, webhookPath string, webhook http.Handler) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(webhookPath))

	check := healthHandler(store)
	router.GET("/", check)
	router.HEAD("/", check)
	if webhook != nil {
		router.POST(webhookPath, gin.WrapH(webhook))
	}
	return router
}

// healthHandler always answers 200 so the platform keeps the bot running
// while the database recovers.
func healthHandler(store SchemaChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := store.EnsureSchema(c.Request.Context()); err != nil {
			logger.Error("health check database error", "error", err)
			c.String(http.StatusOK, DegradedText)
			return
		}
		c.String(http.StatusOK, HealthyText)
	}
}

func requestLogger(webhookPath string) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.Request.URL.Path
		if webhookPath != "" && path == webhookPath {
			path = "/<webhook>"
		}
		logger.Debug("http request",
			"method", c.Request.Method,
			"path", path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}

type Server struct {
	srv *http.Server
}

func NewServer(addr string, handler http.Handler) *Server {
	return &Server{
		srv: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

// Run serves until ctx is cancelled and then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", "addr", s.srv.Addr)
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()
	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	logger.Info("http server stopped")
	return nil
}
