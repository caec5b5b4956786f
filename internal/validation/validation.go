// internal/validation/validation.go
package validation

import (
	"fmt"
	"net/url"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"fanplatform.dk/internal/auth"
)

var validate *validator.Validate

func init() {
	validate = validator.New()
	validate.RegisterValidation("complex_password", validateComplexPassword)

	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
}

// ValidateStruct returns field errors keyed by JSON field name, or nil.
func ValidateStruct(data interface{}) url.Values {
	err := validate.Struct(data)
	if err != nil {
		return formatValidationErrors(err)
	}
	return nil
}

func formatValidationErrors(err error) url.Values {
	errorsMap := url.Values{}
	if validationErrs, ok := err.(validator.ValidationErrors); ok {
		for _, fieldErr := range validationErrs {
			errorsMap.Add(fieldErr.Field(), getErrorMessage(fieldErr))
		}
	} else {
		errorsMap.Add("general", "Validation error: "+err.Error())
	}
	return errorsMap
}

func getErrorMessage(err validator.FieldError) string {
	switch err.Tag() {
	case "required":
		return "This field is required."
	case "email":
		return "Enter a valid email address."
	case "min":
		return fmt.Sprintf("Must be at least %s characters.", err.Param())
	case "max":
		return fmt.Sprintf("Must be at most %s characters.", err.Param())
	case "gte", "lte":
		return fmt.Sprintf("Value is out of range (%s %s).", err.Tag(), err.Param())
	case "oneof":
		return fmt.Sprintf("Choose one of: %s.", err.Param())
	case "url":
		return "Enter a valid URL."
	case "hexcolor":
		return "Enter a hex color such as #1F4ED8."
	case "complex_password":
		return "Password must contain letters, digits and symbols."
	default:
		return fmt.Sprintf("Invalid value for %s (%s).", err.Field(), err.Tag())
	}
}

func validateComplexPassword(fl validator.FieldLevel) bool {
	password := fl.Field().String()
	if password == "" {
		return true
	}
	return auth.IsPasswordComplex(password)
}
