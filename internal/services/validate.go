package services

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	return v
}

// validateStruct runs struct-tag validation and reports the first failure as
// an ErrValidation.
func validateStruct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return validationf("invalid input")
	}

	fe := fieldErrs[0]
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return validationf("%s is required", field)
	case "email":
		return validationf("%s must be a valid email", field)
	case "min":
		return validationf("%s must be at least %s", field, fe.Param())
	case "max":
		return validationf("%s must be at most %s", field, fe.Param())
	case "gte", "lte", "gt", "lt":
		return validationf("%s is out of range", field)
	case "oneof":
		return validationf("%s must be one of: %s", field, fe.Param())
	default:
		return validationf("%s is invalid", field)
	}
}

// ParseID parses a path or body identifier.
func ParseID(value, field string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(value))
	if err != nil || id == uuid.Nil {
		return uuid.Nil, validationf("invalid %s", field)
	}
	return id, nil
}
