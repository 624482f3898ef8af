package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/santiagomed/quill/core"
	"github.com/santiagomed/quill/llm"
	"github.com/santiagomed/quill/logger"
)

type Options struct {
	Addr           string
	AllowedOrigins []string
	RequestTimeout time.Duration
	Defaults       llm.ProviderConfig
	Logger         logger.Logger
}

// NewRouter builds the gin engine serving the drafting API.
func NewRouter(w core.Writer, opts Options) *gin.Engine {
	if opts.Logger == nil {
		opts.Logger = logger.NewNullLogger()
	}
	h := NewHandler(w, opts.Defaults, opts.RequestTimeout, opts.Logger)

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(RequestID())
	engine.Use(AccessLog(opts.Logger))
	engine.Use(corsMiddleware(opts.AllowedOrigins))
	engine.Use(Metrics())

	engine.GET("/healthz", h.Health)
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := engine.Group("/v1")
	v1.GET("/presets", h.Presets)
	v1.POST("/connection/test", h.TestConnection)
	v1.POST("/outlines", h.GenerateOutlines)
	v1.POST("/chapters/points", h.GenerateChapterPoints)
	v1.POST("/chapters/content", h.GenerateChapterContent)
	v1.POST("/refine", h.Refine)

	sessions := v1.Group("/sessions")
	sessions.POST("", h.CreateSession)
	sessions.GET("/:id", h.GetSession)
	sessions.DELETE("/:id", h.DeleteSession)
	sessions.POST("/:id/outlines", h.SessionOutlines)
	sessions.PUT("/:id/outline", h.SelectOutline)
	sessions.POST("/:id/chapters/:n/points", h.SessionGeneratePoints)
	sessions.PUT("/:id/chapters/:n/points", h.SessionSetPoints)
	sessions.POST("/:id/chapters/:n/content", h.SessionGenerateContent)
	sessions.PUT("/:id/chapters/:n/content", h.SessionSetContent)
	sessions.POST("/:id/chapters/:n/refine", h.SessionRefine)
	sessions.POST("/:id/next", h.Next)
	sessions.POST("/:id/back", h.Back)
	sessions.POST("/:id/reset", h.Reset)
	sessions.GET("/:id/document", h.Document)

	return engine
}

func corsMiddleware(origins []string) gin.HandlerFunc {
	cfg := cors.DefaultConfig()
	cfg.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cors.New(cfg)
}

// Run serves until ctx is cancelled, then shuts down within timeout.
func Run(ctx context.Context, handler http.Handler, addr string, timeout time.Duration, l logger.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		l.Info(fmt.Sprintf("Listening on %s", addr))
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

	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	l.Info("Shutting down server")
	return srv.Shutdown(shutdownCtx)
}
