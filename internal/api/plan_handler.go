package api

import (
	"errors"
	"io"
	"kaizencoach/plan-service/internal/domain"
	"kaizencoach/plan-service/internal/logger"
	"kaizencoach/plan-service/internal/metrics"
	"kaizencoach/plan-service/internal/plan"
	"kaizencoach/plan-service/internal/service"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// maxCandidateBytes bounds validation request bodies.
const maxCandidateBytes = 2 << 20

// PlanHandler serves the live plan, updates and validation.
type PlanHandler struct {
	planService service.PlanService
	metrics     *metrics.Metrics
	log         *logger.Logger
}

func NewPlanHandler(planService service.PlanService, m *metrics.Metrics, log *logger.Logger) *PlanHandler {
	return &PlanHandler{planService: planService, metrics: m, log: log}
}

// --- DTOs ---

// ApplyUpdateRequest carries raw generator output for one athlete.
type ApplyUpdateRequest struct {
	RawOutput     *string `json:"rawOutput" binding:"required"` // may be empty, but must be present
	TriggerReason string  `json:"triggerReason"`
}

// ValidateResponse lists every violation, or the normalized plan when valid.
type ValidateResponse struct {
	Valid      bool                 `json:"valid"`
	Violations []plan.Violation     `json:"violations,omitempty"`
	Plan       *domain.TrainingPlan `json:"plan,omitempty"`
}

// GetLivePlan handles GET /athletes/:athleteId/plan
func (h *PlanHandler) GetLivePlan(c *gin.Context) {
	live, err := h.planService.GetLivePlan(c.Request.Context(), c.Param("athleteId"))
	if err != nil {
		if errors.Is(err, service.ErrLivePlanNotFound) {
			abortWithError(c, http.StatusNotFound, err.Error())
			return
		}
		h.log.Error("failed to load live plan", "athlete_id", c.Param("athleteId"), "error", err)
		abortWithError(c, http.StatusInternalServerError, "Failed to load live plan.")
		return
	}
	c.JSON(http.StatusOK, live)
}

// ApplyUpdate handles POST /athletes/:athleteId/plan/updates
func (h *PlanHandler) ApplyUpdate(c *gin.Context) {
	var req ApplyUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	outcome, err := h.planService.ApplyUpdate(c.Request.Context(), c.Param("athleteId"), *req.RawOutput, req.TriggerReason)
	if err != nil {
		var mErr *plan.MergeError
		switch {
		case errors.As(err, &mErr):
			c.JSON(http.StatusUnprocessableEntity, outcome)
		case errors.Is(err, service.ErrConcurrencyConflict), errors.Is(err, service.ErrUpdateInProgress):
			abortWithError(c, http.StatusConflict, err.Error())
		default:
			h.log.Error("plan update failed", "athlete_id", c.Param("athleteId"), "error", err)
			abortWithError(c, http.StatusInternalServerError, "Failed to apply plan update.")
		}
		return
	}
	c.JSON(http.StatusOK, outcome)
}

// ValidatePlan handles POST /plans/validate?schedule_disciplined=bool
func (h *PlanHandler) ValidatePlan(c *gin.Context) {
	disciplined := false
	if raw := c.Query("schedule_disciplined"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			abortWithError(c, http.StatusBadRequest, "schedule_disciplined must be a boolean")
			return
		}
		disciplined = v
	}

	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxCandidateBytes))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Failed to read request body.")
		return
	}

	validated, err := plan.Validate(body, plan.ValidateOptions{ScheduleDisciplined: disciplined})
	if err != nil {
		var vErr *plan.ValidationError
		if !errors.As(err, &vErr) {
			abortWithError(c, http.StatusBadRequest, "Candidate is not valid JSON: "+err.Error())
			return
		}
		h.metrics.IncValidation(false)
		c.JSON(http.StatusUnprocessableEntity, ValidateResponse{Valid: false, Violations: vErr.Violations})
		return
	}
	h.metrics.IncValidation(true)
	c.JSON(http.StatusOK, ValidateResponse{Valid: true, Plan: validated})
}
