package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"docqa/internal/config"
	"docqa/internal/metrics"
	"docqa/internal/session"
)

const shutdownTimeout = 10 * time.Second

// Server is the HTTP surface over the session manager.
type Server struct {
	cfg      config.ServerConfig
	sessions *session.Manager
	metrics  *metrics.Recorder
	router   *gin.Engine
}

func New(cfg config.ServerConfig, sessions *session.Manager, rec *metrics.Recorder) *Server {
	s := &Server{cfg: cfg, sessions: sessions, metrics: rec}
	s.router = s.routes()
	return s
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger())

	r.GET("/healthz", healthz)
	r.GET("/metrics", gin.WrapH(s.metrics.Handler()))

	api := r.Group("/api/sessions")
	api.POST("", s.createSession)
	api.GET("/:id", s.getSession)
	api.DELETE("/:id", s.endSession)
	api.POST("/:id/documents", s.uploadDocument)
	api.POST("/:id/questions", s.askQuestion)
	return r
}

func (s *Server) Handler() http.Handler { return s.router }

// Run serves until ctx is done, then shuts down gracefully. Idle sessions are
// swept in the background for the same lifetime.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go s.sessions.Run(ctx)

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", s.cfg.Addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	log.Info().Msg("Shutting down HTTP server")
	return srv.Shutdown(shutdownCtx)
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Debug().
			Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Int("status", c.Writer.Status()).
			Dur("duration", time.Since(start)).
			Msg("HTTP request")
	}
}
