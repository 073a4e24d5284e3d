package api

import (
	"kaizencoach/plan-service/internal/domain"
	"kaizencoach/plan-service/internal/logger"
	"kaizencoach/plan-service/internal/metrics"
	"kaizencoach/plan-service/internal/service"
	"net/http"

	"github.com/gin-gonic/gin"
)

func SetupRoutes(
	router *gin.Engine,
	jwtSecret string,
	planService service.PlanService,
	archiveService service.ArchiveService,
	athleteService service.AthleteService,
	m *metrics.Metrics,
	log *logger.Logger,
) {
	planHandler := NewPlanHandler(planService, m, log)
	archiveHandler := NewArchiveHandler(archiveService, planService, log)
	athleteHandler := NewAthleteHandler(athleteService, log)

	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})
	router.GET("/metrics", gin.WrapH(m.Handler()))

	protected := router.Group("/api/v1")
	protected.Use(AuthMiddleware(jwtSecret))
	{
		protected.GET("/me", func(c *gin.Context) {
			userID, err := getUserIDFromContext(c)
			if err != nil {
				abortWithError(c, http.StatusInternalServerError, "Failed to get user ID from token")
				return
			}
			role, _ := getUserRoleFromContext(c)
			c.JSON(http.StatusOK, gin.H{"userId": userID, "role": role})
		})

		// POST /api/v1/plans/validate
		protected.POST("/plans/validate", planHandler.ValidatePlan)

		athleteGroup := protected.Group("/athletes/:athleteId")
		athleteGroup.Use(AthleteAccessMiddleware())
		{
			athleteGroup.GET("/profile", athleteHandler.GetProfile)
			athleteGroup.PUT("/profile", RoleMiddleware(domain.RoleAdmin), athleteHandler.UpsertProfile)

			athleteGroup.GET("/plan", planHandler.GetLivePlan)
			athleteGroup.POST("/plan/updates", planHandler.ApplyUpdate)

			athleteGroup.GET("/plan/archive", archiveHandler.ListArchive)
			athleteGroup.POST("/plan/archive/:index/restore", RoleMiddleware(domain.RoleAdmin), archiveHandler.RestoreArchive)
			athleteGroup.GET("/plan/archive/:index/download", archiveHandler.DownloadSnapshot)
		}
	}
}
