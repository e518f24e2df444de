// Package httpapi binds the gateway's REST surface onto its internal
// components: it owns no state of its own beyond what the gin.Engine
// needs, dispatching every route straight into session.Manager,
// pool.Manager, collector.Runner, sampler.Manager, aicontext.Buffer, and
// the ai.Client.
package httpapi

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mantis/gatewayd/internal/ai"
	"github.com/mantis/gatewayd/internal/aicontext"
	"github.com/mantis/gatewayd/internal/collector"
	"github.com/mantis/gatewayd/internal/driver"
	"github.com/mantis/gatewayd/internal/executor"
	"github.com/mantis/gatewayd/internal/pool"
	"github.com/mantis/gatewayd/internal/sampler"
	"github.com/mantis/gatewayd/internal/session"
)

// Server holds every collaborator a route handler needs. It is
// constructed once by cmd/gatewayd and never mutated afterward.
type Server struct {
	sessions   *session.Manager
	pools      *pool.Manager
	drivers    *driver.Registry
	collectors *collector.Registry
	runner     *collector.Runner
	samplers   *sampler.Manager
	aiCtx      *aicontext.Buffer
	aiClient   *ai.Client
	log        *zap.Logger
}

// New constructs a Server. aiClient may be nil when the AI gateway is not
// configured, in which case /v1/ai/generate always answers UpstreamError.
func New(
	sessions *session.Manager,
	pools *pool.Manager,
	drivers *driver.Registry,
	collectors *collector.Registry,
	runner *collector.Runner,
	samplers *sampler.Manager,
	aiCtx *aicontext.Buffer,
	aiClient *ai.Client,
	log *zap.Logger,
) *Server {
	return &Server{
		sessions:   sessions,
		pools:      pools,
		drivers:    drivers,
		collectors: collectors,
		runner:     runner,
		samplers:   samplers,
		aiCtx:      aiCtx,
		aiClient:   aiClient,
		log:        log,
	}
}

// Router builds the gin.Engine binding every /v1 route.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.traceMiddleware())

	v1 := r.Group("/v1")
	{
		v1.POST("/connect", s.handleConnect)
		v1.POST("/disconnect", s.handleDisconnect)
		v1.POST("/execute", s.handleExecute)

		meta := v1.Group("/meta")
		{
			meta.GET("/conninfo", s.handleConnInfo)
			meta.GET("/describe", s.handleDescribe)
			meta.GET("/list", s.handleMetaList)
			meta.POST("/explain", s.handleExplain)
			meta.GET("/completions", s.handleCompletions)
			meta.GET("/drivers", s.handleDriversList)
			meta.POST("/drivers/reload", s.handleDriversReload)
		}

		collectors := v1.Group("/collectors")
		{
			collectors.GET("/list", s.handleCollectorsList)
			collectors.GET("/queries", s.handleCollectorsQueries)
			collectors.POST("/run", s.handleCollectorsRun)
		}

		samplers := v1.Group("/sessions/:sid/samplers")
		{
			samplers.GET("", s.handleSamplersList)
			samplers.PUT("/:id", s.handleSamplerPut)
			samplers.GET("/:id", s.handleSamplerGet)
			samplers.DELETE("/:id", s.handleSamplerDelete)
			samplers.GET("/:id/snapshot", s.handleSamplerSnapshot)
		}

		aiRoutes := v1.Group("/ai")
		{
			aiRoutes.POST("/generate", s.handleAIGenerate)
			aiRoutes.GET("/context", s.handleAIContext)
			aiRoutes.POST("/context/clear", s.handleAIContextClear)
		}
	}
	return r
}

// executorOptions normalizes an omitted executeOptions into the
// "unlimited, no fetch-size hint, no timeout" default.
func executorOptions(opts *executeOptions) executor.Options {
	if opts == nil {
		return executor.Options{}
	}
	return executor.Options{
		Limit:          opts.Limit,
		FetchSize:      opts.FetchSize,
		QueryTimeoutMs: opts.QueryTimeoutMs,
	}
}

func connectTimeout(ms int) time.Duration {
	if ms <= 0 {
		return 5 * time.Second
	}
	return time.Duration(ms) * time.Millisecond
}
