// Package http exposes the pipeline as a JSON API.
package http

import (
	"log/slog"

	"github.com/Veraticus/tollgate-risk/internal/engine"
	"github.com/Veraticus/tollgate-risk/internal/http/handlers"
	"github.com/Veraticus/tollgate-risk/internal/http/middleware"
	"github.com/Veraticus/tollgate-risk/internal/risk"
	"github.com/Veraticus/tollgate-risk/internal/service"
	"github.com/gin-gonic/gin"
)

// DefaultMaxUploadBytes caps multipart uploads held in memory.
const DefaultMaxUploadBytes = 32 << 20

// RouterDeps are the services the API is built on.
type RouterDeps struct {
	Engine         *engine.Engine
	Repository     service.Repository
	Logger         *slog.Logger
	Thresholds     risk.Thresholds
	MaxUploadBytes int64
	// UploadsPerMinute limits scoring requests per client. Zero disables it.
	UploadsPerMinute int
}

// NewRouter registers every route on a fresh gin engine.
func NewRouter(deps RouterDeps) *gin.Engine {
	r := gin.New()
	r.Use(middleware.Recovery(deps.Logger), middleware.Logging(deps.Logger))
	r.MaxMultipartMemory = deps.MaxUploadBytes
	if r.MaxMultipartMemory <= 0 {
		r.MaxMultipartMemory = DefaultMaxUploadBytes
	}

	analyses := handlers.NewAnalysisHandler(deps.Engine, deps.Repository, deps.Thresholds)
	api := r.Group("/api")
	scoring := []gin.HandlerFunc{}
	if deps.UploadsPerMinute > 0 {
		scoring = append(scoring, middleware.RateLimit(middleware.NewRateLimiter(deps.UploadsPerMinute)))
	}

	api.POST("/analyses", append(scoring, analyses.Create)...)
	api.GET("/analyses", analyses.List)
	api.GET("/analyses/:id", analyses.Get)
	api.DELETE("/analyses/:id", analyses.Delete)
	api.POST("/analyses/:id/evaluate", append(scoring, analyses.Evaluate)...)

	reference := handlers.NewReferenceHandler(deps.Engine.Network(), deps.Thresholds)
	api.GET("/thresholds", reference.Thresholds)
	api.GET("/gates", reference.Gates)

	r.GET("/health", handlers.Health)

	return r
}
