// api/router.go
package api

import (
	"github.com/devadigapratham/printd/api/handlers"
	"github.com/devadigapratham/printd/raft"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Options are the optional parts of the router
type Options struct {
	// Gatherer is served on /metrics when set
	Gatherer prometheus.Gatherer
	// Transport is mounted on /raft when settings are replicated
	Transport *raft.Transport
}

// SetupRouter sets up the API routes
func SetupRouter(handler *handlers.Handler, opts Options) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), handler.RequestLogger())

	api := router.Group("/v0")
	{
		// Axis endpoints
		api.GET("/axis/position", handler.GetPositions)
		api.GET("/axis/:id/position", handler.GetPosition)
		api.GET("/axis/:id/settings", handler.GetSettings)
		api.PUT("/axis/:id/settings", handler.UpdateSettings)

		// Gcode endpoints
		api.GET("/gcode", handler.GetStatus)
		api.POST("/gcode/start", handler.StartJob)
		api.POST("/gcode/stop", handler.StopJob)
		api.POST("/gcode/pause", handler.PauseJob)
		api.POST("/gcode/continue", handler.ContinueJob)
		api.GET("/gcode/history", handler.GetHistory)
		api.GET("/gcode/stream", handler.StreamStatus)
		api.POST("/stop", handler.StopJob)
		api.POST("/pause", handler.PauseJob)
		api.POST("/continue", handler.ContinueJob)
		api.POST("/estop", handler.EStop)

		// Error endpoints
		api.GET("/errors", handler.ListErrors)
		api.GET("/error/last", handler.GetLastError)
		api.GET("/error/:id", handler.GetError)
	}

	router.GET("/status", handler.NodeStatus)

	if opts.Gatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{})))
	}
	if opts.Transport != nil {
		raftHandler := gin.WrapH(opts.Transport.RaftHandler())
		router.POST("/raft/join", raftHandler)
		router.POST("/raft/leave", raftHandler)
	}

	return router
}
