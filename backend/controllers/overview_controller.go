package controllers

import (
	"catprep/backend/services"
	"catprep/backend/utils"

	"github.com/gofiber/fiber/v2"
)

// OverviewController serves the catalog a student browses before starting a test.
type OverviewController struct {
	Catalog *services.CatalogService
}

func NewOverviewController(catalog *services.CatalogService) *OverviewController {
	return &OverviewController{Catalog: catalog}
}

// ListSubjects godoc
// @Summary List subjects
// @Tags catalog
// @Produce json
// @Success 200 {object} utils.SuccessResponse
// @Security ApiKeyAuth
// @Router /subjects [get]
func (oc *OverviewController) ListSubjects(c *fiber.Ctx) error {
	subjects, err := oc.Catalog.ListSubjects(c.UserContext())
	if err != nil {
		return utils.ErrorFrom(c, err)
	}
	return utils.Success(c, fiber.StatusOK, subjects)
}

// ListTopics godoc
// @Summary List topics of a subject
// @Tags catalog
// @Produce json
// @Param id path string true "Subject ID"
// @Success 200 {object} utils.SuccessResponse
// @Failure 404 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /subjects/{id}/topics [get]
func (oc *OverviewController) ListTopics(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return utils.ErrorFrom(c, err)
	}

	topics, err := oc.Catalog.ListTopics(c.UserContext(), id)
	if err != nil {
		return utils.ErrorFrom(c, err)
	}
	return utils.Success(c, fiber.StatusOK, topics)
}
