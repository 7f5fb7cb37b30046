package handlers

import (
	"net/http"
	"strconv"

	"github.com/devadigapratham/printd/api/models"
	"github.com/gin-gonic/gin"
)

const errorsPerPage = 10

// ListErrors returns one page of recorded errors, oldest first
func (h *Handler) ListErrors(c *gin.Context) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "0"))
	if err != nil || page < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "page must be a non-negative integer"})
		return
	}

	c.JSON(http.StatusOK, models.ErrorPage{
		Page:   page,
		Errors: h.Errors.Page(page, errorsPerPage),
	})
}

// GetLastError returns the newest recorded error, or 204 when there is none
func (h *Handler) GetLastError(c *gin.Context) {
	entry, ok := h.Errors.Last()
	if !ok {
		c.Status(http.StatusNoContent)
		return
	}
	c.JSON(http.StatusOK, entry)
}

// GetError returns a recorded error by id
func (h *Handler) GetError(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid error id"})
		return
	}

	entry, ok := h.Errors.Get(id)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "error not found"})
		return
	}
	c.JSON(http.StatusOK, entry)
}
