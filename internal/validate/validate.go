// Package validate wraps go-playground/validator for request payloads and
// plugs it into echo as e.Validator.
package validate

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
)

var v = newValidate()

func newValidate() *validator.Validate {
	vv := validator.New(validator.WithRequiredStructEnabled())
	// "required" accepts "   "; notblank does not
	if err := vv.RegisterValidation("notblank", validators.NotBlank); err != nil {
		panic(err)
	}
	// report fields under their JSON names
	vv.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return f.Name
		}
		return name
	})
	return vv
}

// Echo satisfies echo.Validator.
type Echo struct{}

// Validate runs struct validation; failures are validator.ValidationErrors.
func (Echo) Validate(i any) error { return v.Struct(i) }

// Struct validates s with the shared validator.
func Struct(s any) error { return v.Struct(s) }

// Fields turns a validation error into a field->message map.  It returns nil
// when err carries no field errors.
func Fields(err error) map[string]string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}
	m := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		m[fe.Field()] = messageFor(fe)
	}
	return m
}

func messageFor(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "notblank":
		return "must not be blank"
	case "min":
		return fmt.Sprintf("must be at least %s characters", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "gte":
		return fmt.Sprintf("must be >= %s", fe.Param())
	case "lte":
		return fmt.Sprintf("must be <= %s", fe.Param())
	case "url":
		return "must be a valid URL"
	case "datetime":
		return fmt.Sprintf("must match layout %s", fe.Param())
	default:
		return fe.Error()
	}
}
