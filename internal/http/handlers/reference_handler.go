package handlers

import (
	"net/http"

	"github.com/Veraticus/tollgate-risk/internal/risk"
	"github.com/Veraticus/tollgate-risk/internal/tollnet"
	"github.com/gin-gonic/gin"
)

// ReferenceHandler serves read-only reference data.
type ReferenceHandler struct {
	network    *tollnet.Network
	thresholds risk.Thresholds
}

// NewReferenceHandler creates the handler.
func NewReferenceHandler(network *tollnet.Network, th risk.Thresholds) *ReferenceHandler {
	return &ReferenceHandler{network: network, thresholds: th}
}

// Thresholds returns the thresholds new uploads are scored with.
func (h *ReferenceHandler) Thresholds(c *gin.Context) {
	writeJSON(c, http.StatusOK, h.thresholds)
}

// Gates returns the toll network reference.
func (h *ReferenceHandler) Gates(c *gin.Context) {
	writeJSON(c, http.StatusOK, gin.H{"gates": h.network.Gates()})
}

// Health reports liveness.
func Health(c *gin.Context) {
	writeJSON(c, http.StatusOK, gin.H{"status": "ok"})
}
