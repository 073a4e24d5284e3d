package api

import (
	"kaizencoach/plan-service/internal/domain"
	"kaizencoach/plan-service/internal/logger"
	"kaizencoach/plan-service/internal/service"
	"net/http"

	"github.com/gin-gonic/gin"
)

// AthleteHandler serves the athlete profile that drives plan validation.
type AthleteHandler struct {
	athleteService service.AthleteService
	log            *logger.Logger
}

func NewAthleteHandler(athleteService service.AthleteService, log *logger.Logger) *AthleteHandler {
	return &AthleteHandler{athleteService: athleteService, log: log}
}

// UpsertProfileRequest is the admin payload for PUT /athletes/:athleteId/profile.
type UpsertProfileRequest struct {
	AthleteType         domain.AthleteType `json:"athleteType" binding:"omitempty,oneof=disciplinarian improviser minimalist"`
	ScheduleDisciplined bool               `json:"scheduleDisciplined"`
	Goal                string             `json:"goal"`
	VDOT                float64            `json:"vdot" binding:"omitempty,gte=0"`
	HRZones             map[string]string  `json:"hrZones"`
	PaceZones           map[string]string  `json:"paceZones"`
}

// GetProfile handles GET /athletes/:athleteId/profile
func (h *AthleteHandler) GetProfile(c *gin.Context) {
	profile, err := h.athleteService.GetProfile(c.Request.Context(), c.Param("athleteId"))
	if err != nil {
		h.log.Error("failed to load profile", "athlete_id", c.Param("athleteId"), "error", err)
		abortWithError(c, http.StatusInternalServerError, "Failed to load athlete profile.")
		return
	}
	c.JSON(http.StatusOK, profile)
}

// UpsertProfile handles PUT /athletes/:athleteId/profile
func (h *AthleteHandler) UpsertProfile(c *gin.Context) {
	var req UpsertProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	profile, err := h.athleteService.UpsertProfile(c.Request.Context(), &domain.AthleteProfile{
		AthleteID:           c.Param("athleteId"),
		AthleteType:         req.AthleteType,
		ScheduleDisciplined: req.ScheduleDisciplined,
		Goal:                req.Goal,
		VDOT:                req.VDOT,
		HRZones:             req.HRZones,
		PaceZones:           req.PaceZones,
	})
	if err != nil {
		h.log.Error("failed to save profile", "athlete_id", c.Param("athleteId"), "error", err)
		abortWithError(c, http.StatusInternalServerError, "Failed to save athlete profile.")
		return
	}
	c.JSON(http.StatusOK, profile)
}
