package middleware

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/bilgisen/tldrit/internal/logger"
)

const (
	validatedKey   = "validated"
	queryParamsKey = "queryParams"
)

var validate = validator.New()

// Validate checks s against its validate struct tags.
func Validate(s any) error {
	return validate.Struct(s)
}

// fieldErrors maps each failing field to the tag it failed.
func fieldErrors(err error) map[string]string {
	fields := make(map[string]string)
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, fe := range verrs {
			fields[fe.Field()] = fe.Tag()
		}
	}
	return fields
}

// ValidateRequest parses the JSON body into a fresh T for every request and
// validates it. An empty body is treated as {}. Handlers read it back with
// Body.
func ValidateRequest[T any]() fiber.Handler {
	return func(c *fiber.Ctx) error {
		req := new(T)
		if len(c.Body()) > 0 {
			if err := c.BodyParser(req); err != nil {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
					"error": "Invalid request body",
					"msg":   err.Error(),
				})
			}
		}

		if err := Validate(req); err != nil {
			return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
				"error":  "Validation failed",
				"fields": fieldErrors(err),
			})
		}

		c.Locals(validatedKey, req)
		return c.Next()
	}
}

// ValidateQueryParams parses and validates query parameters into a fresh T.
// Handlers read it back with Query.
func ValidateQueryParams[T any]() fiber.Handler {
	return func(c *fiber.Ctx) error {
		params := new(T)
		if err := c.QueryParser(params); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid query parameters",
				"msg":   err.Error(),
			})
		}

		if err := Validate(params); err != nil {
			return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
				"error":  "Invalid query parameters",
				"fields": fieldErrors(err),
			})
		}

		c.Locals(queryParamsKey, params)
		return c.Next()
	}
}

// Body returns the request body stored by ValidateRequest.
func Body[T any](c *fiber.Ctx) *T {
	v, _ := c.Locals(validatedKey).(*T)
	return v
}

// Query returns the parameters stored by ValidateQueryParams.
func Query[T any](c *fiber.Ctx) *T {
	v, _ := c.Locals(queryParamsKey).(*T)
	return v
}

// ErrorHandler renders every error as {"error": message}. A *fiber.Error keeps
// its code and message; anything else becomes a 500 without details.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
		message = fe.Message
	}

	log := logger.Component("http")
	event := log.Warn()
	if code >= fiber.StatusInternalServerError {
		event = log.Error()
	}
	event.
		Err(err).
		Str("method", c.Method()).
		Str("path", c.Path()).
		Int("status", code).
		Msg("HTTP error")

	return c.Status(code).JSON(fiber.Map{
		"error": message,
	})
}
