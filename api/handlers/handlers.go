package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/devadigapratham/printd/axis"
	"github.com/devadigapratham/printd/errlog"
	"github.com/devadigapratham/printd/gcode"
	"github.com/devadigapratham/printd/raft"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/hashicorp/go-hclog"
)

// StatusIOFailure is returned when a gcode source cannot be opened
const StatusIOFailure = 512

// Handler represents the API handlers
type Handler struct {
	Axes   *axis.Controller
	Engine *gcode.Engine
	Errors *errlog.Registry
	Logger hclog.Logger

	// Node is set when settings are replicated with raft
	Node *raft.Node
	// Backend names the settings store for /status
	Backend string
	// StreamInterval is how often the status stream polls the engine
	StreamInterval time.Duration

	upgrader websocket.Upgrader
}

// NewHandler creates a new Handler
func NewHandler(axes *axis.Controller, engine *gcode.Engine, errs *errlog.Registry, logger hclog.Logger) *Handler {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Handler{
		Axes:           axes,
		Engine:         engine,
		Errors:         errs,
		Logger:         logger.Named("api"),
		StreamInterval: 100 * time.Millisecond,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// RequestLogger logs every request through the handler logger
func (h *Handler) RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		args := []interface{}{
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", status,
			"duration", time.Since(start),
		}
		if status >= http.StatusInternalServerError {
			h.Logger.Warn("request", args...)
			return
		}
		h.Logger.Debug("request", args...)
	}
}

// respondError maps err to a status code and a gin.H body
func (h *Handler) respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, axis.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, axis.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, gcode.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, gcode.ErrOpenFailed):
		c.JSON(StatusIOFailure, h.Errors.Insert(err))
	case errors.Is(err, raft.ErrNotLeader):
		body := gin.H{"error": err.Error()}
		if h.Node != nil {
			body["leader"] = h.Node.LeaderAddress()
		}
		c.JSON(http.StatusConflict, body)
	default:
		h.Logger.Error("request failed", "path", c.Request.URL.Path, "error", err)
		c.JSON(http.StatusInternalServerError, h.Errors.Insert(err))
	}
}

// NodeStatus reports the storage backend and, with raft, the cluster role
func (h *Handler) NodeStatus(c *gin.Context) {
	body := gin.H{
		"storage": h.Backend,
		"engine":  h.Engine.Status().State,
	}
	if h.Node != nil {
		body["node_id"] = h.Node.ID()
		body["is_leader"] = h.Node.Leader()
		body["leader_addr"] = h.Node.LeaderAddress()
		body["state"] = h.Node.State().String()
	}
	c.JSON(http.StatusOK, body)
}
