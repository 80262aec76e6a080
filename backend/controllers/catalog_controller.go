package controllers

import (
	"catprep/backend/models"
	"catprep/backend/services"
	"catprep/backend/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type CatalogController struct {
	Catalog *services.CatalogService
}

func NewCatalogController(catalog *services.CatalogService) *CatalogController {
	return &CatalogController{Catalog: catalog}
}

// GenerateQuestions godoc
// @Summary Preview a question set
// @Description Draws questions the way a new test would, without creating an attempt
// @Tags questions
// @Accept json
// @Produce json
// @Param request body models.GenerateRequest true "Selection"
// @Success 200 {object} utils.SuccessResponse
// @Failure 422 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /questions/generate [post]
func (cc *CatalogController) GenerateQuestions(c *fiber.Ctx) error {
	var req models.GenerateRequest
	if err := utils.ParseBody(c, &req); err != nil {
		return utils.ErrorFrom(c, err)
	}

	questions, err := cc.Catalog.Generate(c.UserContext(), req)
	if err != nil {
		return utils.ErrorFrom(c, err)
	}
	return utils.Success(c, fiber.StatusOK, questions, fiber.Map{"count": len(questions)})
}

// ValidateAnswer godoc
// @Summary Check a single answer
// @Tags questions
// @Accept json
// @Produce json
// @Param request body models.ValidateAnswerRequest true "Answer"
// @Success 200 {object} utils.SuccessResponse
// @Failure 404 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /questions/validate [post]
func (cc *CatalogController) ValidateAnswer(c *fiber.Ctx) error {
	var req models.ValidateAnswerRequest
	if err := utils.ParseBody(c, &req); err != nil {
		return utils.ErrorFrom(c, err)
	}

	result, err := cc.Catalog.ValidateAnswer(c.UserContext(), req)
	if err != nil {
		return utils.ErrorFrom(c, err)
	}
	return utils.Success(c, fiber.StatusOK, result)
}

func (cc *CatalogController) CreateSubject(c *fiber.Ctx) error {
	var in models.SubjectInput
	if err := utils.ParseBody(c, &in); err != nil {
		return utils.ErrorFrom(c, err)
	}

	subject, err := cc.Catalog.CreateSubject(c.UserContext(), in)
	if err != nil {
		return utils.ErrorFrom(c, err)
	}
	return utils.Created(c, subject)
}

func (cc *CatalogController) CreateTopic(c *fiber.Ctx) error {
	var in models.TopicInput
	if err := utils.ParseBody(c, &in); err != nil {
		return utils.ErrorFrom(c, err)
	}

	topic, err := cc.Catalog.CreateTopic(c.UserContext(), in)
	if err != nil {
		return utils.ErrorFrom(c, err)
	}
	return utils.Created(c, topic)
}

// ListQuestions godoc
// @Summary List questions
// @Description Question bank with subject and topic names. Filters: subjectId, topicId, difficulty.
// @Tags admin
// @Produce json
// @Param subjectId query string false "Subject ID"
// @Param topicId query string false "Topic ID"
// @Param difficulty query string false "easy, medium or hard"
// @Success 200 {object} utils.SuccessResponse
// @Security ApiKeyAuth
// @Router /admin/questions [get]
func (cc *CatalogController) ListQuestions(c *fiber.Ctx) error {
	var filter services.QuestionFilter
	if raw := c.Query("subjectId"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return utils.BadRequest(c, "invalid subjectId")
		}
		filter.SubjectID = &id
	}
	if raw := c.Query("topicId"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return utils.BadRequest(c, "invalid topicId")
		}
		filter.TopicID = &id
	}
	filter.Difficulty = models.Difficulty(c.Query("difficulty"))
	if filter.Difficulty != "" && !filter.Difficulty.ValidFilter() {
		return utils.BadRequest(c, "invalid difficulty")
	}

	questions, err := cc.Catalog.ListQuestions(c.UserContext(), filter)
	if err != nil {
		return utils.ErrorFrom(c, err)
	}
	return utils.Success(c, fiber.StatusOK, questions, fiber.Map{"total": len(questions)})
}

func (cc *CatalogController) CreateQuestion(c *fiber.Ctx) error {
	var in models.QuestionInput
	if err := utils.ParseBody(c, &in); err != nil {
		return utils.ErrorFrom(c, err)
	}

	question, err := cc.Catalog.CreateQuestion(c.UserContext(), in)
	if err != nil {
		return utils.ErrorFrom(c, err)
	}
	return utils.Created(c, question)
}

func (cc *CatalogController) UpdateQuestion(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return utils.ErrorFrom(c, err)
	}
	var in models.QuestionInput
	if err := utils.ParseBody(c, &in); err != nil {
		return utils.ErrorFrom(c, err)
	}

	question, err := cc.Catalog.UpdateQuestion(c.UserContext(), id, in)
	if err != nil {
		return utils.ErrorFrom(c, err)
	}
	return utils.Success(c, fiber.StatusOK, question)
}

func (cc *CatalogController) DeleteQuestion(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return utils.ErrorFrom(c, err)
	}

	if err := cc.Catalog.DeleteQuestion(c.UserContext(), id); err != nil {
		return utils.ErrorFrom(c, err)
	}
	return utils.NoContent(c)
}

// BulkImportQuestions godoc
// @Summary Import questions
// @Description Rows reference subject and topic by name. One bad row rejects the batch; details list every bad row.
// @Tags admin
// @Accept json
// @Produce json
// @Param questions body []models.QuestionImport true "Questions"
// @Success 200 {object} utils.SuccessResponse
// @Failure 400 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /admin/questions/bulk [post]
func (cc *CatalogController) BulkImportQuestions(c *fiber.Ctx) error {
	var rows []models.QuestionImport
	if err := c.BodyParser(&rows); err != nil {
		return utils.BadRequest(c, "cannot parse JSON")
	}

	result, err := cc.Catalog.ImportQuestions(c.UserContext(), rows)
	if err != nil {
		return utils.ErrorFrom(c, err)
	}
	return utils.Success(c, fiber.StatusOK, result)
}
