// Package api exposes watermark embedding, verification, and leak
// scanning over HTTP.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/tracemark/tracemark/internal/config"
	"github.com/tracemark/tracemark/internal/store"
)

// Server wires the HTTP handlers to their storage and configuration.
type Server struct {
	cfg    *config.Config
	store  *store.Store
	logger *zap.Logger
}

// NewServer builds a Server. The store may be nil in tests that never
// touch session endpoints.
func NewServer(cfg *config.Config, st *store.Store, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{cfg: cfg, store: st, logger: logger}
}

// Router builds the gin engine with all routes registered.
func (s *Server) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLog())
	r.MaxMultipartMemory = s.cfg.Server.MaxUploadMB << 20

	r.GET("/healthz", s.handleHealth)
	r.POST("/watermark/embed", s.handleEmbed)
	r.POST("/verify", s.handleVerify)
	r.POST("/scan", s.handleScan)
	r.GET("/download/:filename", s.handleDownload)

	api := r.Group("/api")
	{
		api.GET("/history", s.handleHistory)
		api.GET("/detections", s.handleDetections)
	}
	return r
}

// Run serves HTTP until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Server.Addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", zap.String("addr", srv.Addr))
		errc <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errc:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}

func (s *Server) requestLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("elapsed", time.Since(start)))
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
	})
}
