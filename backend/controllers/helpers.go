package controllers

import (
	"catprep/backend/middleware"
	"catprep/backend/models"
	"catprep/backend/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

func identity(c *fiber.Ctx) (models.Identity, error) {
	who, ok := middleware.IdentityFrom(c)
	if !ok {
		return models.Identity{}, utils.Unauthorizedf("Unauthorized")
	}
	return who, nil
}

func paramID(c *fiber.Ctx, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params(name))
	if err != nil {
		return uuid.Nil, utils.Validationf("invalid %s", name)
	}
	return id, nil
}
