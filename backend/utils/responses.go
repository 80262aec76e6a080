package utils

import (
	"net/http"

	"github.com/gofiber/fiber/v2"
)

// SuccessResponse структура для успешных ответов
type SuccessResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Meta    interface{} `json:"meta,omitempty"`
}

// ErrorResponse структура для ошибок
type ErrorResponse struct {
	Success bool        `json:"success"`
	Error   string      `json:"error"`
	Message string      `json:"message,omitempty"`
	Code    Kind        `json:"code,omitempty"`
	Details interface{} `json:"details,omitempty"`
}

// Success создает успешный JSON ответ
func Success(c *fiber.Ctx, status int, data interface{}, meta ...interface{}) error {
	response := SuccessResponse{
		Success: true,
		Data:    data,
	}

	if len(meta) > 0 {
		response.Meta = meta[0]
	}

	return c.Status(status).JSON(response)
}

// Error создает JSON ответ с ошибкой
func Error(c *fiber.Ctx, status int, err error, details ...interface{}) error {
	response := ErrorResponse{
		Success: false,
		Error:   http.StatusText(status),
		Message: err.Error(),
		Code:    KindOf(err),
	}

	if len(details) > 0 {
		response.Details = details[0]
	}

	return c.Status(status).JSON(response)
}

// ErrorFrom выбирает статус по виду ошибки. Внутренние ошибки не
// раскрываются клиенту.
func ErrorFrom(c *fiber.Ctx, err error) error {
	status := HTTPStatus(err)
	if status == http.StatusInternalServerError {
		// причина остается для логгера запросов
		c.Locals(LocalsError, err)
		return c.Status(status).JSON(ErrorResponse{
			Success: false,
			Error:   http.StatusText(status),
			Message: "internal error",
			Code:    KindInternal,
		})
	}
	if details := DetailsOf(err); details != nil {
		return Error(c, status, err, details)
	}
	return Error(c, status, err)
}

// LocalsError ключ fiber.Ctx, под которым хранится скрытая внутренняя ошибка.
const LocalsError = "handlerError"

// Created отправляет ответ 201 Created
func Created(c *fiber.Ctx, data interface{}) error {
	return Success(c, fiber.StatusCreated, data)
}

// NoContent отправляет ответ 204 No Content
func NoContent(c *fiber.Ctx) error {
	return c.SendStatus(fiber.StatusNoContent)
}

// BadRequest отправляет ответ 400 Bad Request
func BadRequest(c *fiber.Ctx, message string) error {
	return Error(c, fiber.StatusBadRequest, Validationf("%s", message))
}
