package controllers

import (
	"catprep/backend/models"
	"catprep/backend/services"
	"catprep/backend/utils"

	"github.com/gofiber/fiber/v2"
)

type UserController struct {
	Users *services.UserService
}

func NewUserController(users *services.UserService) *UserController {
	return &UserController{Users: users}
}

// GetProfile godoc
// @Summary Get user profile
// @Description Returns authenticated user's profile data
// @Tags users
// @Produce json
// @Success 200 {object} utils.SuccessResponse
// @Failure 401 {object} utils.ErrorResponse
// @Failure 404 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /user/profile [get]
func (uc *UserController) GetProfile(c *fiber.Ctx) error {
	who, err := identity(c)
	if err != nil {
		return utils.ErrorFrom(c, err)
	}

	user, err := uc.Users.Profile(c.UserContext(), who)
	if err != nil {
		return utils.ErrorFrom(c, err)
	}
	return utils.Success(c, fiber.StatusOK, user)
}

// ListUsers godoc
// @Summary List users
// @Tags admin
// @Produce json
// @Success 200 {object} utils.SuccessResponse
// @Security ApiKeyAuth
// @Router /admin/users [get]
func (uc *UserController) ListUsers(c *fiber.Ctx) error {
	users, err := uc.Users.List(c.UserContext())
	if err != nil {
		return utils.ErrorFrom(c, err)
	}
	return utils.Success(c, fiber.StatusOK, users, fiber.Map{"total": len(users)})
}

func (uc *UserController) DeleteUser(c *fiber.Ctx) error {
	who, err := identity(c)
	if err != nil {
		return utils.ErrorFrom(c, err)
	}
	id, err := paramID(c, "id")
	if err != nil {
		return utils.ErrorFrom(c, err)
	}

	if err := uc.Users.Delete(c.UserContext(), who, id); err != nil {
		return utils.ErrorFrom(c, err)
	}
	return utils.NoContent(c)
}

// BulkImportUsers godoc
// @Summary Import users
// @Description Creates accounts for every row whose email is new. Rows without email or password are skipped.
// @Tags admin
// @Accept json
// @Produce json
// @Param users body []models.UserImport true "Users"
// @Success 200 {object} utils.SuccessResponse
// @Security ApiKeyAuth
// @Router /admin/users/bulk [post]
func (uc *UserController) BulkImportUsers(c *fiber.Ctx) error {
	var rows []models.UserImport
	if err := c.BodyParser(&rows); err != nil {
		return utils.BadRequest(c, "cannot parse JSON")
	}

	result, err := uc.Users.BulkImport(c.UserContext(), rows)
	if err != nil {
		return utils.ErrorFrom(c, err)
	}
	return utils.Success(c, fiber.StatusOK, result)
}
