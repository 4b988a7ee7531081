package middleware

import (
	"errors"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// SetupValidator makes validation errors name fields by their query or uri
// parameter instead of the Go field name.
func SetupValidator() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterTagNameFunc(paramName)
	}
}

func paramName(fld reflect.StructField) string {
	for _, tag := range []string{"form", "uri", "json"} {
		name := strings.SplitN(fld.Tag.Get(tag), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name != "" {
			return name
		}
	}
	return fld.Name
}

// ValidationDetails lists one "field: message" entry per failed rule. Errors
// that are not validator errors (malformed numbers) yield their text.
func ValidationDetails(err error) []string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []string{err.Error()}
	}
	details := make([]string, 0, len(verrs))
	for _, e := range verrs {
		details = append(details, e.Field()+": "+validationMessage(e))
	}
	return details
}

func validationMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "обязательный параметр"
	case "min":
		if e.Kind() == reflect.String {
			return "не короче " + e.Param() + " символов"
		}
		return "не меньше " + e.Param()
	case "max":
		if e.Kind() == reflect.String {
			return "не длиннее " + e.Param() + " символов"
		}
		return "не больше " + e.Param()
	case "oneof":
		return "одно из значений: " + e.Param()
	case "datetime":
		return "дата в формате ГГГГ-ММ-ДД"
	default:
		return "некорректное значение"
	}
}
