package controllers

import (
	"catprep/backend/models"
	"catprep/backend/services"
	"catprep/backend/utils"

	"github.com/gofiber/fiber/v2"
)

type AuthController struct {
	Users *services.UserService
}

func NewAuthController(users *services.UserService) *AuthController {
	return &AuthController{Users: users}
}

// [+] Register godoc
// @Summary Register a new user
// @Description Creates a student account and returns a token
// @Tags auth
// @Accept json
// @Produce json
// @Param user body models.RegisterRequest true "User registration data"
// @Success 201 {object} utils.SuccessResponse
// @Failure 400 {object} utils.ErrorResponse
// @Failure 409 {object} utils.ErrorResponse
// @Router /auth/signup [post]
func (ac *AuthController) Register(c *fiber.Ctx) error {
	var req models.RegisterRequest
	if err := utils.ParseBody(c, &req); err != nil {
		return utils.ErrorFrom(c, err)
	}

	result, err := ac.Users.Register(c.UserContext(), req)
	if err != nil {
		return utils.ErrorFrom(c, err)
	}
	return utils.Created(c, result)
}

// [+] Login godoc
// @Summary User login
// @Description Authenticate user and return JWT token
// @Tags auth
// @Accept json
// @Produce json
// @Param credentials body models.LoginRequest true "Login credentials"
// @Success 200 {object} utils.SuccessResponse
// @Failure 400 {object} utils.ErrorResponse
// @Failure 401 {object} utils.ErrorResponse
// @Router /auth/login [post]
func (ac *AuthController) Login(c *fiber.Ctx) error {
	var req models.LoginRequest
	if err := utils.ParseBody(c, &req); err != nil {
		return utils.ErrorFrom(c, err)
	}

	result, err := ac.Users.Login(c.UserContext(), req)
	if err != nil {
		return utils.ErrorFrom(c, err)
	}
	return utils.Success(c, fiber.StatusOK, result)
}
