package services

import (
	"errors"
	"fmt"
	"sync"

	"moneytrace/internal/core"

	"github.com/go-playground/validator/v10"
)

var (
	validateOnce    sync.Once
	structValidator *validator.Validate
)

// validateStruct checks the `validate` tags of v and reports every failing
// field as a detail of one validation error.
func validateStruct(what string, v any) error {
	validateOnce.Do(func() {
		structValidator = validator.New(validator.WithRequiredStructEnabled())
	})

	err := structValidator.Struct(v)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return validation(what, err)
	}
	details := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		details = append(details, fieldMessage(fe))
	}
	return core.Validation("invalid "+what, details...)
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("'%s' is required", fe.Field())
	case "max":
		return fmt.Sprintf("'%s' must be at most %s characters", fe.Field(), fe.Param())
	case "email":
		return fmt.Sprintf("'%s' must be a valid email address", fe.Field())
	case "timezone":
		return fmt.Sprintf("'%s' must be an IANA time zone name", fe.Field())
	default:
		return fmt.Sprintf("'%s' failed on '%s'", fe.Field(), fe.Tag())
	}
}
