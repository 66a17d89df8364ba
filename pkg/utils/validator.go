// Package utils provides request validation helpers for the key registry.
package utils

import (
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/turtacn/keyreg/pkg/constants"
	"github.com/turtacn/keyreg/pkg/errors"
)

var defaultValidator *validator.Validate

var (
	matchFirstCap = regexp.MustCompile("(.)([A-Z][a-z]+)")
	matchAllCap   = regexp.MustCompile("([a-z0-9])([A-Z])")
)

func init() {
	defaultValidator = validator.New()
	defaultValidator.RegisterTagNameFunc(jsonFieldName)
	_ = defaultValidator.RegisterValidation("lifecycle_action", validateLifecycleAction)
	_ = defaultValidator.RegisterValidation("algorithm", validateAlgorithm)
	_ = defaultValidator.RegisterValidation("purpose", validatePurpose)
	_ = defaultValidator.RegisterValidation("key_status", validateKeyStatus)
	_ = defaultValidator.RegisterValidation("audit_outcome", validateAuditOutcome)
}

// ValidateStruct validates s against its `validate` tags. The first failing field is
// reported as a ValidationError; every failure is attached as metadata.
func ValidateStruct(s interface{}) error {
	err := defaultValidator.Struct(s)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return errors.ErrValidation("request", err.Error())
	}

	first := fieldErrs[0]
	verr := errors.ErrValidation(fieldName(first), formatValidationError(first))
	if len(fieldErrs) > 1 {
		details := make(map[string]string, len(fieldErrs))
		for _, fe := range fieldErrs {
			details[fieldName(fe)] = formatValidationError(fe)
		}
		verr = verr.WithMetadata("fields", details)
	}
	return verr
}

func validateLifecycleAction(fl validator.FieldLevel) bool {
	return constants.LifecycleAction(fl.Field().String()).IsValid()
}

func validateAlgorithm(fl validator.FieldLevel) bool {
	return constants.Algorithm(fl.Field().String()).IsValid()
}

func validatePurpose(fl validator.FieldLevel) bool {
	return constants.Purpose(fl.Field().String()).IsValid()
}

func validateKeyStatus(fl validator.FieldLevel) bool {
	return constants.KeyStatus(fl.Field().String()).IsValid()
}

func validateAuditOutcome(fl validator.FieldLevel) bool {
	return constants.AuditOutcome(fl.Field().String()).IsValid()
}

// formatValidationError creates a user-friendly message for a validation error.
func formatValidationError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "oneof":
		return fmt.Sprintf("must be one of: %s", fe.Param())
	case "min":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "gtfield":
		return fmt.Sprintf("must be after %s", toSnakeCase(fe.Param()))
	case "lifecycle_action", "algorithm", "purpose", "key_status", "audit_outcome":
		return fmt.Sprintf("unknown %s %v", strings.ReplaceAll(fe.Tag(), "_", " "), fe.Value())
	default:
		return fmt.Sprintf("failed on the '%s' tag", fe.Tag())
	}
}

func fieldName(fe validator.FieldError) string {
	if name := fe.Field(); name != "" {
		return name
	}
	return toSnakeCase(fe.StructField())
}

// jsonFieldName reports fields by their JSON name.
func jsonFieldName(f reflect.StructField) string {
	name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
	switch name {
	case "-":
		return ""
	case "":
		return toSnakeCase(f.Name)
	}
	return name
}

// toSnakeCase converts CamelCase to snake_case.
func toSnakeCase(str string) string {
	snake := matchFirstCap.ReplaceAllString(str, "${1}_${2}")
	snake = matchAllCap.ReplaceAllString(snake, "${1}_${2}")
	return strings.ToLower(snake)
}
