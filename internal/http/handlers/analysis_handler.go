package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/Veraticus/tollgate-risk/internal/common"
	"github.com/Veraticus/tollgate-risk/internal/engine"
	"github.com/Veraticus/tollgate-risk/internal/risk"
	"github.com/Veraticus/tollgate-risk/internal/service"
	"github.com/gin-gonic/gin"
)

// AnalysisHandler serves upload, retrieval and re-evaluation of analyses.
type AnalysisHandler struct {
	engine     *engine.Engine
	repo       service.Repository
	thresholds risk.Thresholds
}

// NewAnalysisHandler creates the handler. New uploads are scored with th.
func NewAnalysisHandler(e *engine.Engine, repo service.Repository, th risk.Thresholds) *AnalysisHandler {
	return &AnalysisHandler{engine: e, repo: repo, thresholds: th}
}

// Create ingests a multipart "file" upload, scores it and saves the session.
func (h *AnalysisHandler) Create(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		writeError(c, http.StatusBadRequest, "multipart field \"file\" is required")
		return
	}
	f, err := fh.Open()
	if err != nil {
		writeError(c, http.StatusBadRequest, "unreadable upload")
		return
	}
	defer func() { _ = f.Close() }()

	a, err := h.engine.Analyze(c.Request.Context(), fh.Filename, f, h.thresholds)
	if err != nil {
		writePipelineError(c, err)
		return
	}
	if err := h.engine.Save(c.Request.Context(), h.repo, a); err != nil {
		writePipelineError(c, err)
		return
	}

	c.Header("Location", "/api/analyses/"+a.SessionID)
	writeJSON(c, http.StatusCreated, a)
}

// Get returns a stored analysis re-scored with its stored thresholds.
func (h *AnalysisHandler) Get(c *gin.Context) {
	a, err := h.engine.Resume(c.Request.Context(), h.repo, c.Param("id"), nil)
	if err != nil {
		writePipelineError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, a)
}

// List returns the stored sessions, most recent first.
func (h *AnalysisHandler) List(c *gin.Context) {
	sessions, err := h.repo.ListSessions(c.Request.Context())
	if err != nil {
		writePipelineError(c, err)
		return
	}
	if sessions == nil {
		sessions = []service.SessionInfo{}
	}
	writeJSON(c, http.StatusOK, gin.H{"sessions": sessions})
}

// Delete removes a stored session.
func (h *AnalysisHandler) Delete(c *gin.Context) {
	if err := h.repo.DeleteSession(c.Request.Context(), c.Param("id")); err != nil {
		writePipelineError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Evaluate re-scores a stored analysis. The JSON body overlays the session's
// stored thresholds; the merged thresholds are saved with the session.
func (h *AnalysisHandler) Evaluate(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")

	th, err := h.engine.StoredThresholds(ctx, h.repo, id)
	if err != nil {
		writePipelineError(c, err)
		return
	}

	body, err := c.GetRawData()
	if err != nil {
		writeError(c, http.StatusBadRequest, "unreadable body")
		return
	}
	if len(bytes.TrimSpace(body)) > 0 {
		dec := json.NewDecoder(bytes.NewReader(body))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&th); err != nil {
			writePipelineError(c, fmt.Errorf("%w: thresholds body: %w", common.ErrInvalidConfig, err))
			return
		}
	}

	a, err := h.engine.Resume(ctx, h.repo, id, &th)
	if err != nil {
		writePipelineError(c, err)
		return
	}
	if err := h.engine.Save(ctx, h.repo, a); err != nil {
		writePipelineError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, a)
}
