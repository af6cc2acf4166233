package apperror

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/tubtip/tubtip/internal/pkg/logger"
)

// Envelope is the JSON body of every error response.
type Envelope struct {
	Timestamp string       `json:"timestamp"`
	Status    int          `json:"status"`
	Errors    []FieldError `json:"errors"`
	Path      string       `json:"path"`
}

// ErrorHandler renders errors as an Envelope. Internal details are only
// exposed when dev is set.
func ErrorHandler(dev bool) fiber.ErrorHandler {
	log := logger.WithComponent("http")
	return func(c *fiber.Ctx, err error) error {
		var (
			status int
			items  []FieldError
		)

		var fe *fiber.Error
		var ve validator.ValidationErrors
		switch {
		case errors.As(err, &fe):
			status = fe.Code
			items = []FieldError{{Message: fe.Message}}
		case errors.As(err, &ve):
			appErr := FromValidator(ve)
			status = appErr.Status()
			items = appErr.Fields
		default:
			appErr := From(err)
			status = appErr.Status()
			switch {
			case len(appErr.Fields) > 0:
				items = appErr.Fields
			case appErr.Kind == KindInternal && dev && appErr.Err != nil:
				items = []FieldError{{Message: appErr.Err.Error()}}
			default:
				items = []FieldError{{Message: appErr.Message}}
			}
			if appErr.Kind == KindInternal {
				log.Error().Err(err).Str("path", c.Path()).Str("method", c.Method()).Msg("request failed")
			}
		}

		return c.Status(status).JSON(Envelope{
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Status:    status,
			Errors:    items,
			Path:      c.Path(),
		})
	}
}

// FromValidator converts validator errors into a FieldValidation error that
// lists every offending field.
func FromValidator(err error) *Error {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return InvalidPayload("", err)
	}
	fields := make([]FieldError, 0, len(ve))
	for _, fe := range ve {
		fields = append(fields, FieldError{
			Field:   toSnake(fe.Field()),
			Message: validationMessage(fe),
		})
	}
	return Validation(fields)
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "field required"
	case "email":
		return "value is not a valid email address"
	case "min":
		return fmt.Sprintf("must be at least %s characters", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "gte":
		return fmt.Sprintf("must be greater than or equal to %s", fe.Param())
	case "lte":
		return fmt.Sprintf("must be less than or equal to %s", fe.Param())
	case "eqfield":
		return fmt.Sprintf("must match %s", toSnake(fe.Param()))
	case "oneof":
		return fmt.Sprintf("must be one of: %s", fe.Param())
	case "username":
		return "may only contain lowercase letters, digits, '.', '_' and '-'"
	default:
		return fmt.Sprintf("failed on %s", fe.Tag())
	}
}

func toSnake(s string) string {
	var b strings.Builder
	for i, r := range s {
		if r >= 'A' && r <= 'Z' {
			if i > 0 && !(s[i-1] >= 'A' && s[i-1] <= 'Z') {
				b.WriteByte('_')
			}
			b.WriteRune(r + ('a' - 'A'))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
