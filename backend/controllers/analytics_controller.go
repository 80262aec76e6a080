package controllers

import (
	"catprep/backend/services"
	"catprep/backend/utils"

	"github.com/gofiber/fiber/v2"
)

type AnalyticsController struct {
	Stats *services.StatsService
}

func NewAnalyticsController(stats *services.StatsService) *AnalyticsController {
	return &AnalyticsController{Stats: stats}
}

// GetAdminStats godoc
// @Summary Platform counters
// @Description Students, questions and active attempts
// @Tags admin
// @Produce json
// @Success 200 {object} utils.SuccessResponse
// @Failure 403 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /admin/stats [get]
func (ac *AnalyticsController) GetAdminStats(c *fiber.Ctx) error {
	stats, err := ac.Stats.Admin(c.UserContext())
	if err != nil {
		return utils.ErrorFrom(c, err)
	}
	return utils.Success(c, fiber.StatusOK, stats)
}
