package utils

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate runs the struct's validate tags. Failures come back as a
// ValidationError whose Details maps field to failed rule.
func Validate(v interface{}) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return &AppError{Kind: KindValidation, Message: "invalid request", Err: err}
	}
	details := make(map[string]string, len(fieldErrs))
	for _, fe := range fieldErrs {
		details[fieldPath(fe.Namespace())] = fe.Tag()
	}
	return &AppError{Kind: KindValidation, Message: "invalid request", Details: details}
}

// ParseBody decodes the JSON body into dst and validates it.
func ParseBody(c *fiber.Ctx, dst interface{}) error {
	if err := c.BodyParser(dst); err != nil {
		return Validationf("cannot parse JSON")
	}
	return Validate(dst)
}

// fieldPath drops the top-level struct name: "ProgressUpdate.Answers[0].TimeTaken"
// becomes "Answers[0].TimeTaken".
func fieldPath(ns string) string {
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}
