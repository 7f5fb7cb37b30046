package handlers

import (
	"net/http"

	"github.com/devadigapratham/printd/api/models"
	"github.com/gin-gonic/gin"
)

// GetStatus returns the engine status
func (h *Handler) GetStatus(c *gin.Context) {
	c.JSON(http.StatusOK, models.NewStatus(h.Engine.Status()))
}

// StartJob starts executing the file named in the body
func (h *Handler) StartJob(c *gin.Context) {
	var req models.StartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.Engine.Start(req.Path); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusAccepted)
}

// StopJob stops the current job, if any
func (h *Handler) StopJob(c *gin.Context) {
	if err := h.Engine.Stop(); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusAccepted)
}

// EStop halts motion and stops the current job
func (h *Handler) EStop(c *gin.Context) {
	if err := h.Engine.EStop(); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusAccepted)
}

// PauseJob pauses a printing job
func (h *Handler) PauseJob(c *gin.Context) {
	if err := h.Engine.Pause(); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusAccepted)
}

// ContinueJob resumes a paused job
func (h *Handler) ContinueJob(c *gin.Context) {
	if err := h.Engine.Continue(); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusAccepted)
}

// GetHistory returns finished jobs, oldest first
func (h *Handler) GetHistory(c *gin.Context) {
	c.JSON(http.StatusOK, h.Engine.History())
}
