package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/devadigapratham/printd/api/models"
	"github.com/devadigapratham/printd/axis"
	"github.com/gin-gonic/gin"
)

// GetPositions returns the position of every axis
func (h *Handler) GetPositions(c *gin.Context) {
	positions := h.Axes.Positions()

	body := make(map[axis.ID]models.Position, len(positions))
	for id, pos := range positions {
		body[id] = models.Position{Position: models.Millimeters(pos)}
	}
	c.JSON(http.StatusOK, body)
}

// GetPosition returns the position of one axis
func (h *Handler) GetPosition(c *gin.Context) {
	id, err := axis.ParseID(c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}

	pos, err := h.Axes.Position(id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.Position{Position: models.Millimeters(pos)})
}

// GetSettings returns the settings of one axis
func (h *Handler) GetSettings(c *gin.Context) {
	id, err := axis.ParseID(c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}

	settings, err := h.Axes.Settings(id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, settings)
}

// UpdateSettings applies a partial settings update and returns the result
func (h *Handler) UpdateSettings(c *gin.Context) {
	id, err := axis.ParseID(c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}

	var update axis.Update
	// an empty body is an update naming no field
	if err := c.ShouldBindJSON(&update); err != nil && !errors.Is(err, io.EOF) {
		h.respondError(c, fmt.Errorf("%w: %v", axis.ErrValidation, err))
		return
	}

	settings, err := h.Axes.UpdateSettings(c.Request.Context(), id, update)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, settings)
}
