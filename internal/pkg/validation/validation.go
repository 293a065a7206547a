// Package validation checks request payloads against their struct tags.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"edushare/internal/domain"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
	errValidate  error
)

func initValidator() (*validator.Validate, error) {
	vld := validator.New(validator.WithRequiredStructEnabled())

	vld.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return field.Name
		}
		return name
	})

	if err := vld.RegisterValidation("nonnegative_decimal", func(fl validator.FieldLevel) bool {
		value, ok := fl.Field().Interface().(decimal.Decimal)
		if !ok {
			return false
		}
		return !value.IsNegative()
	}); err != nil {
		return nil, fmt.Errorf("register 'nonnegative_decimal': %w", err)
	}

	return vld, nil
}

func get() (*validator.Validate, error) {
	validateOnce.Do(func() {
		validate, errValidate = initValidator()
	})
	return validate, errValidate
}

// Struct validates payload and returns the first failure wrapped in domain.ErrValidation.
func Struct(payload any) error {
	vld, err := get()
	if err != nil {
		return err
	}

	if err := vld.Struct(payload); err != nil {
		var fieldErrors validator.ValidationErrors
		if errors.As(err, &fieldErrors) && len(fieldErrors) > 0 {
			return formatFieldError(fieldErrors[0])
		}
		return fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	return nil
}

func formatFieldError(fe validator.FieldError) error {
	field := fe.Field()

	switch fe.Tag() {
	case "required":
		return domain.Validationf("'%s' is required", field)
	case "min":
		return domain.Validationf("'%s' must be at least %s characters", field, fe.Param())
	case "max":
		return domain.Validationf("'%s' must be at most %s characters", field, fe.Param())
	case "oneof":
		return domain.Validationf("'%s' must be one of [%s]", field, fe.Param())
	case "nonnegative_decimal":
		return domain.Validationf("'%s' must not be negative", field)
	default:
		return domain.Validationf("'%s' failed on '%s'", field, fe.Tag())
	}
}
