package api

import (
	"errors"
	"kaizencoach/plan-service/internal/domain"
	"kaizencoach/plan-service/internal/logger"
	"kaizencoach/plan-service/internal/service"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

// ArchiveHandler exposes the plan archive and rollback.
type ArchiveHandler struct {
	archiveService service.ArchiveService
	planService    service.PlanService
	log            *logger.Logger
}

func NewArchiveHandler(archiveService service.ArchiveService, planService service.PlanService, log *logger.Logger) *ArchiveHandler {
	return &ArchiveHandler{archiveService: archiveService, planService: planService, log: log}
}

// ArchiveEntryResponse is the list view of an archive entry; snapshots are fetched by restore or download.
type ArchiveEntryResponse struct {
	ID            string    `json:"id"`
	Index         int       `json:"index"`
	Reason        string    `json:"reason"`
	Timestamp     time.Time `json:"timestamp"`
	SnapshotBytes int       `json:"snapshotBytes"`
	Offloaded     bool      `json:"offloaded"`
	Weeks         int       `json:"weeks,omitempty"`
	Sessions      int       `json:"sessions,omitempty"`
}

func MapArchiveEntryToResponse(e *domain.PlanArchiveEntry) ArchiveEntryResponse {
	resp := ArchiveEntryResponse{
		ID:            e.ID.Hex(),
		Index:         e.Index,
		Reason:        e.Reason,
		Timestamp:     e.Timestamp,
		SnapshotBytes: e.SnapshotBytes,
		Offloaded:     e.Offloaded(),
	}
	if e.Snapshot != nil {
		resp.Weeks = len(e.Snapshot.Weeks)
		resp.Sessions = e.Snapshot.SessionCount()
	}
	return resp
}

// ListArchive handles GET /athletes/:athleteId/plan/archive (oldest first).
func (h *ArchiveHandler) ListArchive(c *gin.Context) {
	entries, err := h.archiveService.List(c.Request.Context(), c.Param("athleteId"))
	if err != nil {
		h.log.Error("failed to list archive", "athlete_id", c.Param("athleteId"), "error", err)
		abortWithError(c, http.StatusInternalServerError, "Failed to list plan archive.")
		return
	}
	resp := make([]ArchiveEntryResponse, 0, len(entries))
	for i := range entries {
		resp = append(resp, MapArchiveEntryToResponse(&entries[i]))
	}
	c.JSON(http.StatusOK, resp)
}

// RestoreArchive handles POST /athletes/:athleteId/plan/archive/:index/restore
func (h *ArchiveHandler) RestoreArchive(c *gin.Context) {
	index, ok := parseIndex(c)
	if !ok {
		return
	}
	outcome, err := h.planService.RestoreArchive(c.Request.Context(), c.Param("athleteId"), index)
	if err != nil {
		h.abortArchiveError(c, err)
		return
	}
	c.JSON(http.StatusOK, outcome)
}

// DownloadSnapshot handles GET /athletes/:athleteId/plan/archive/:index/download
func (h *ArchiveHandler) DownloadSnapshot(c *gin.Context) {
	index, ok := parseIndex(c)
	if !ok {
		return
	}
	url, err := h.archiveService.DownloadURL(c.Request.Context(), c.Param("athleteId"), index)
	if err != nil {
		h.abortArchiveError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"downloadUrl": url})
}

func (h *ArchiveHandler) abortArchiveError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrArchiveEntryNotFound):
		abortWithError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrSnapshotNotOffloaded):
		abortWithError(c, http.StatusConflict, err.Error())
	case errors.Is(err, service.ErrConcurrencyConflict), errors.Is(err, service.ErrUpdateInProgress):
		abortWithError(c, http.StatusConflict, err.Error())
	default:
		h.log.Error("archive request failed", "athlete_id", c.Param("athleteId"), "error", err)
		abortWithError(c, http.StatusInternalServerError, "Archive request failed.")
	}
}

func parseIndex(c *gin.Context) (int, bool) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil || index < 0 {
		abortWithError(c, http.StatusBadRequest, "Archive index must be a non-negative integer.")
		return 0, false
	}
	return index, true
}
