package middleware

import (
	"catprep/backend/config"
	"catprep/backend/models"
	"catprep/backend/utils"

	"github.com/gofiber/fiber/v2"
)

const identityKey = "identity"

func AuthMiddleware(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		identity, err := utils.ParseJWTToken(c.Get(fiber.HeaderAuthorization), cfg)
		if err != nil {
			return utils.ErrorFrom(c, err)
		}
		c.Locals(identityKey, identity)
		return c.Next()
	}
}

// AdminMiddleware must run after AuthMiddleware.
func AdminMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		identity, ok := IdentityFrom(c)
		if !ok {
			return utils.ErrorFrom(c, utils.Unauthorizedf("missing identity"))
		}
		if !identity.IsAdmin() {
			return utils.ErrorFrom(c, utils.Forbiddenf("admin access required"))
		}
		return c.Next()
	}
}

func IdentityFrom(c *fiber.Ctx) (models.Identity, bool) {
	identity, ok := c.Locals(identityKey).(models.Identity)
	return identity, ok
}
