package controllers

import (
	"catprep/backend/models"
	"catprep/backend/services"
	"catprep/backend/utils"

	"github.com/gofiber/fiber/v2"
)

type TestsController struct {
	Attempts *services.AttemptService
}

func NewTestsController(attempts *services.AttemptService) *TestsController {
	return &TestsController{Attempts: attempts}
}

// StartTest godoc
// @Summary Start a test attempt
// @Description Draws a random question set and opens an attempt. Correct answers are hidden until submission.
// @Tags tests
// @Accept json
// @Produce json
// @Param config body models.StartRequest true "Attempt configuration"
// @Success 201 {object} utils.SuccessResponse
// @Failure 400 {object} utils.ErrorResponse
// @Failure 404 {object} utils.ErrorResponse
// @Failure 422 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /tests/start [post]
func (tc *TestsController) StartTest(c *fiber.Ctx) error {
	who, err := identity(c)
	if err != nil {
		return utils.ErrorFrom(c, err)
	}
	var req models.StartRequest
	if err := utils.ParseBody(c, &req); err != nil {
		return utils.ErrorFrom(c, err)
	}

	attempt, err := tc.Attempts.Start(c.UserContext(), who, req)
	if err != nil {
		return utils.ErrorFrom(c, err)
	}
	return utils.Created(c, attempt)
}

// GetHistory godoc
// @Summary Attempt history
// @Tags tests
// @Produce json
// @Success 200 {object} utils.SuccessResponse
// @Security ApiKeyAuth
// @Router /tests/history [get]
func (tc *TestsController) GetHistory(c *fiber.Ctx) error {
	who, err := identity(c)
	if err != nil {
		return utils.ErrorFrom(c, err)
	}

	history, err := tc.Attempts.History(c.UserContext(), who)
	if err != nil {
		return utils.ErrorFrom(c, err)
	}
	return utils.Success(c, fiber.StatusOK, history)
}

// GetTest godoc
// @Summary Get an attempt
// @Description Returns the attempt with its questions. While in progress, correct answers and solutions are omitted.
// @Tags tests
// @Produce json
// @Param id path string true "Attempt ID"
// @Success 200 {object} utils.SuccessResponse
// @Failure 403 {object} utils.ErrorResponse
// @Failure 404 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /tests/{id} [get]
func (tc *TestsController) GetTest(c *fiber.Ctx) error {
	who, err := identity(c)
	if err != nil {
		return utils.ErrorFrom(c, err)
	}
	id, err := paramID(c, "id")
	if err != nil {
		return utils.ErrorFrom(c, err)
	}

	attempt, err := tc.Attempts.Get(c.UserContext(), who, id)
	if err != nil {
		return utils.ErrorFrom(c, err)
	}
	return utils.Success(c, fiber.StatusOK, attempt)
}

// SaveProgress godoc
// @Summary Save attempt progress
// @Description Upserts answers by question id. Safe to repeat.
// @Tags tests
// @Accept json
// @Produce json
// @Param id path string true "Attempt ID"
// @Param progress body models.ProgressUpdate true "Progress"
// @Success 200 {object} utils.SuccessResponse
// @Failure 403 {object} utils.ErrorResponse
// @Failure 409 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /tests/{id}/progress [post]
func (tc *TestsController) SaveProgress(c *fiber.Ctx) error {
	who, err := identity(c)
	if err != nil {
		return utils.ErrorFrom(c, err)
	}
	id, err := paramID(c, "id")
	if err != nil {
		return utils.ErrorFrom(c, err)
	}
	var update models.ProgressUpdate
	if err := utils.ParseBody(c, &update); err != nil {
		return utils.ErrorFrom(c, err)
	}

	result, err := tc.Attempts.SaveProgress(c.UserContext(), who, id, update)
	if err != nil {
		return utils.ErrorFrom(c, err)
	}
	return utils.Success(c, fiber.StatusOK, result)
}

// SubmitTest godoc
// @Summary Submit an attempt
// @Description Scores the attempt (+3 correct, -1 incorrect) and completes it. Only the first submission counts.
// @Tags tests
// @Accept json
// @Produce json
// @Param id path string true "Attempt ID"
// @Param answers body models.SubmitRequest true "Final answers"
// @Success 200 {object} utils.SuccessResponse
// @Failure 403 {object} utils.ErrorResponse
// @Failure 409 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /tests/{id}/submit [post]
func (tc *TestsController) SubmitTest(c *fiber.Ctx) error {
	who, err := identity(c)
	if err != nil {
		return utils.ErrorFrom(c, err)
	}
	id, err := paramID(c, "id")
	if err != nil {
		return utils.ErrorFrom(c, err)
	}
	var req models.SubmitRequest
	if err := utils.ParseBody(c, &req); err != nil {
		return utils.ErrorFrom(c, err)
	}

	result, err := tc.Attempts.Submit(c.UserContext(), who, id, req.Answers)
	if err != nil {
		return utils.ErrorFrom(c, err)
	}
	return utils.Success(c, fiber.StatusOK, result)
}

func (tc *TestsController) RetakeTest(c *fiber.Ctx) error {
	who, err := identity(c)
	if err != nil {
		return utils.ErrorFrom(c, err)
	}
	id, err := paramID(c, "id")
	if err != nil {
		return utils.ErrorFrom(c, err)
	}

	attempt, err := tc.Attempts.Retake(c.UserContext(), who, id)
	if err != nil {
		return utils.ErrorFrom(c, err)
	}
	return utils.Created(c, attempt)
}

func (tc *TestsController) AbortTest(c *fiber.Ctx) error {
	who, err := identity(c)
	if err != nil {
		return utils.ErrorFrom(c, err)
	}
	id, err := paramID(c, "id")
	if err != nil {
		return utils.ErrorFrom(c, err)
	}

	if err := tc.Attempts.Abort(c.UserContext(), who, id); err != nil {
		return utils.ErrorFrom(c, err)
	}
	return utils.NoContent(c)
}

func (tc *TestsController) DeleteTest(c *fiber.Ctx) error {
	who, err := identity(c)
	if err != nil {
		return utils.ErrorFrom(c, err)
	}
	id, err := paramID(c, "id")
	if err != nil {
		return utils.ErrorFrom(c, err)
	}

	if err := tc.Attempts.Delete(c.UserContext(), who, id); err != nil {
		return utils.ErrorFrom(c, err)
	}
	return utils.NoContent(c)
}
