// Package validation checks record structs against their `validate` tags and
// reports failures as apperr.InvalidInput errors.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"moviemania/internal/apperr"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// Validator returns the shared validator instance. Field names in errors are
// taken from the json tag so messages match the wire format.
func Validator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(f reflect.StructField) string {
			name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
			if name == "-" {
				return ""
			}
			if name == "" {
				return f.Name
			}
			return name
		})
	})
	return validate
}

var messages = map[string]string{
	"required": "%s is required",
	"oneof":    "%s must be one of: %s",
	"max":      "%s must be at most %s characters",
	"min":      "%s must be at least %s characters",
}

// Struct validates s. The first failing field decides the message.
func Struct(s any) error {
	err := Validator().Struct(s)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return apperr.Wrap(apperr.InvalidInput, err, "invalid input")
	}
	return apperr.New(apperr.InvalidInput, translate(fieldErrs[0]))
}

// Var validates a single value against tag, naming it field in the error.
func Var(field string, value any, tag string) error {
	err := Validator().Var(value, tag)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return apperr.Wrap(apperr.InvalidInput, err, "invalid "+field)
	}
	fe := fieldErrs[0]
	return apperr.New(apperr.InvalidInput, format(field, fe.Tag(), fe.Param()))
}

func translate(fe validator.FieldError) string {
	return format(fe.Field(), fe.Tag(), fe.Param())
}

func format(field, tag, param string) string {
	tmpl, ok := messages[tag]
	if !ok {
		return fmt.Sprintf("%s is invalid", field)
	}
	if strings.Count(tmpl, "%s") == 2 {
		return fmt.Sprintf(tmpl, field, param)
	}
	return fmt.Sprintf(tmpl, field)
}
