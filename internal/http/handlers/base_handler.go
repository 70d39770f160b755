// Package handlers implements the HTTP API endpoints.
package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/Veraticus/tollgate-risk/internal/common"
	"github.com/Veraticus/tollgate-risk/internal/engine"
	"github.com/gin-gonic/gin"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(c *gin.Context, status int, v any) {
	c.JSON(status, v)
}

func writeError(c *gin.Context, status int, msg string) {
	writeJSON(c, status, errorResponse{Error: msg})
}

// writePipelineError maps pipeline failures onto status codes.
func writePipelineError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, common.ErrUnsupportedFormat):
		writeError(c, http.StatusBadRequest, common.AsUserError(err).Error())
	case errors.Is(err, common.ErrEmptyResult):
		writeError(c, http.StatusUnprocessableEntity, common.AsUserError(err).Error())
	case errors.Is(err, common.ErrInvalidConfig):
		writeError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, common.ErrNotFound):
		writeError(c, http.StatusNotFound, "analysis not found")
	case errors.Is(err, engine.ErrIncompleteSession):
		writeError(c, http.StatusConflict, "analysis was not saved completely")
	default:
		slog.Error("Request failed", "path", c.Request.URL.Path, "error", err)
		writeError(c, http.StatusInternalServerError, "internal error")
	}
}
