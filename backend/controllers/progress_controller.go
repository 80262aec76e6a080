package controllers

import (
	"catprep/backend/services"
	"catprep/backend/utils"

	"github.com/gofiber/fiber/v2"
)

type ProgressController struct {
	Stats *services.StatsService
}

func NewProgressController(stats *services.StatsService) *ProgressController {
	return &ProgressController{Stats: stats}
}

// GetProgressOverview godoc
// @Summary Get progress overview
// @Description Tests taken, accuracy and per-subject breakdown of the caller's attempts
// @Tags progress
// @Produce json
// @Success 200 {object} utils.SuccessResponse
// @Failure 401 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /progress/overview [get]
func (pc *ProgressController) GetProgressOverview(c *fiber.Ctx) error {
	who, err := identity(c)
	if err != nil {
		return utils.ErrorFrom(c, err)
	}

	overview, err := pc.Stats.Overview(c.UserContext(), who)
	if err != nil {
		return utils.ErrorFrom(c, err)
	}
	return utils.Success(c, fiber.StatusOK, overview)
}
