// Package validator wraps go-playground/validator/v10 with the custom
// validation rules the gateway's plan-request DTOs need.
package validator

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/fieldplan/allocator/pkg/dto"
)

var (
	defaultValidator *validator.Validate

	// validObjectives mirrors core.Objective's recognized values.
	validObjectives = []string{"maximize_profit", "minimize_cost"}

	minAreaM2       = float64(1.0)
	maxAreaM2       = float64(1_000_000.0)
	fractionFloor   = float64(0.0)
	fractionCeiling = float64(1.0)
)

// CustomValidator wraps the validator package with planning-domain
// validation rules.
type CustomValidator struct {
	validator   *validator.Validate
	customRules map[string]ValidationRule
}

// ValidationRule defines a named custom validation rule.
type ValidationRule struct {
	Validate func(interface{}) error
	Message  string
}

// NewValidator creates and configures a validator instance with the
// registered custom rules.
func NewValidator() *CustomValidator {
	if defaultValidator == nil {
		defaultValidator = validator.New()
	}

	cv := &CustomValidator{
		validator:   defaultValidator,
		customRules: make(map[string]ValidationRule),
	}

	cv.registerCustomValidations()
	return cv
}

func (cv *CustomValidator) registerCustomValidations() {
	cv.validator.RegisterValidation("field_area", cv.validateFieldArea)
	cv.validator.RegisterValidation("objective", cv.validateObjective)
	cv.validator.RegisterValidation("fraction", cv.validateFraction)
}

// ValidateFieldArea validates a field's area against the accepted range.
func (cv *CustomValidator) ValidateFieldArea(areaM2 float64) error {
	if areaM2 <= 0 {
		return &dto.ValidationError{
			Field:   "area_m2",
			Message: "field area must be a positive value",
			Value:   fmt.Sprintf("%.2f", areaM2),
		}
	}
	if areaM2 < minAreaM2 || areaM2 > maxAreaM2 {
		return &dto.ValidationError{
			Field:   "area_m2",
			Message: fmt.Sprintf("field area must be between %.2f and %.2f square meters", minAreaM2, maxAreaM2),
			Value:   fmt.Sprintf("%.2f", areaM2),
		}
	}
	return nil
}

// ValidateObjective validates an optimization objective against the
// recognized set.
func (cv *CustomValidator) ValidateObjective(objective string) error {
	if objective == "" {
		return &dto.ValidationError{
			Field:   "objective",
			Message: "objective cannot be empty",
			Value:   objective,
		}
	}
	for _, valid := range validObjectives {
		if strings.EqualFold(objective, valid) {
			return nil
		}
	}
	return &dto.ValidationError{
		Field:   "objective",
		Message: fmt.Sprintf("objective must be one of: %s", strings.Join(validObjectives, ", ")),
		Value:   objective,
	}
}

// ValidateFraction validates a value lies within the closed [0, 1] range,
// used for area fractions and removal rates.
func (cv *CustomValidator) ValidateFraction(value float64) error {
	if value < fractionFloor || value > fractionCeiling {
		return &dto.ValidationError{
			Field:   "fraction",
			Message: fmt.Sprintf("value must be between %.2f and %.2f", fractionFloor, fractionCeiling),
			Value:   fmt.Sprintf("%.4f", value),
		}
	}
	return nil
}

func (cv *CustomValidator) validateFieldArea(fl validator.FieldLevel) bool {
	field := fl.Field()
	if field.Kind() != reflect.Float64 {
		return false
	}
	value := field.Float()
	return value >= minAreaM2 && value <= maxAreaM2
}

func (cv *CustomValidator) validateObjective(fl validator.FieldLevel) bool {
	field := fl.Field()
	if field.Kind() != reflect.String {
		return false
	}
	value := field.String()
	for _, valid := range validObjectives {
		if strings.EqualFold(value, valid) {
			return true
		}
	}
	return false
}

func (cv *CustomValidator) validateFraction(fl validator.FieldLevel) bool {
	field := fl.Field()
	if field.Kind() != reflect.Float64 {
		return false
	}
	value := field.Float()
	return value >= fractionFloor && value <= fractionCeiling
}

// ValidateStruct validates a struct using the registered tag rules.
func (cv *CustomValidator) ValidateStruct(s interface{}) error {
	if s == nil {
		return errors.New("nil struct cannot be validated")
	}

	err := cv.validator.Struct(s)
	if err == nil {
		return nil
	}

	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		messages := make([]string, 0, len(validationErrors))
		for _, e := range validationErrors {
			messages = append(messages, fmt.Sprintf(
				"validation failed for field '%s': %s",
				e.Field(),
				e.Tag(),
			))
		}
		return &dto.ValidationError{
			Field:   "struct",
			Message: strings.Join(messages, "; "),
			Err:     err,
		}
	}

	return err
}
