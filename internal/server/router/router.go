package router

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/koreanssam/docmark/internal/server/handler"
	"github.com/koreanssam/docmark/internal/server/middleware"
)

// WebHandler defines the browser-facing routes.
type WebHandler interface {
	Index(c *gin.Context)
	Extract(c *gin.Context)
	Download(c *gin.Context)
	Clear(c *gin.Context)
}

// APIHandler defines the JSON API routes.
type APIHandler interface {
	Extract(c *gin.Context)
	ListJobs(c *gin.Context)
	ExportJobs(c *gin.Context)
}

type Options struct {
	APIKey         string
	MaxUploadBytes int64
	Logger         *slog.Logger
}

// New wires up handlers to the Gin engine.
func New(opts Options, web WebHandler, api APIHandler) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestContext(opts.Logger))
	r.SetHTMLTemplate(handler.Templates())

	// Health check endpoint (no middleware)
	r.GET("/healthz", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})

	limit := middleware.BodyLimit(opts.MaxUploadBytes)

	r.GET("/", web.Index)
	r.POST("/extract", limit, web.Extract)
	r.GET("/result/download", web.Download)
	r.POST("/result/clear", web.Clear)

	v1 := r.Group("/api/v1", middleware.WithAPIKey(opts.APIKey))
	{
		v1.POST("/extract", limit, api.Extract)
		v1.GET("/jobs", api.ListJobs)
		v1.GET("/jobs/export", api.ExportJobs)
	}

	return r
}
