// Package validate checks request structs and reports failures as
// friendly messages keyed by the JSON field name.
package validate

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(fieldName)
	return v
}

// fieldName returns the JSON name of a struct field. Fields hidden from JSON
// fall back to the lower-camel Go name.
func fieldName(f reflect.StructField) string {
	name := strings.Split(f.Tag.Get("json"), ",")[0]
	if name == "" || name == "-" {
		r := []rune(f.Name)
		r[0] = unicode.ToLower(r[0])
		return string(r)
	}
	return name
}

// messages maps validation tags to message templates. Templates take the
// field name and, when they have a second verb, the tag parameter.
var messages = map[string]string{
	"required": "The field '%s' is required.",
	"email":    "The field '%s' must be a valid email address.",
	"min":      "The field '%s' must be at least %s characters long.",
	"max":      "The field '%s' must be no longer than %s characters.",
	"lte":      "The field '%s' must be less than or equal to %s.",
	"gte":      "The field '%s' must be greater than or equal to %s.",
	"alphanum": "The field '%s' may only contain letters and digits.",
	"eqfield":  "The field '%s' must match '%s'.",
	"nefield":  "The field '%s' must differ from '%s'.",
	"oneof":    "The field '%s' must be one of %s.",
}

// message builds the friendly text for one failure. Cross-field tags name
// the other field by its JSON name too.
func message(t reflect.Type, e validator.FieldError) string {
	tmpl, ok := messages[e.Tag()]
	if !ok {
		return fmt.Sprintf("Field '%s' is invalid: %s", e.Field(), e.Tag())
	}
	if strings.Count(tmpl, "%s") == 1 {
		return fmt.Sprintf(tmpl, e.Field())
	}
	param := e.Param()
	if e.Tag() == "eqfield" || e.Tag() == "nefield" {
		if f, ok := t.FieldByName(param); ok {
			param = fieldName(f)
		}
	}
	return fmt.Sprintf(tmpl, e.Field(), param)
}

// Struct validates s and returns a map of JSON field names to messages.
// The map is empty when s is valid.
func Struct(s any) map[string]string {
	out := make(map[string]string)
	err := validate.Struct(s)
	if err == nil {
		return out
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		out["_"] = err.Error()
		return out
	}
	t := reflect.TypeOf(s)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	for _, e := range verrs {
		out[e.Field()] = message(t, e)
	}
	return out
}

// Var validates a single value against tag, reporting failures under name.
func Var(name string, value any, tag string) map[string]string {
	out := make(map[string]string)
	err := validate.Var(value, tag)
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return out
	}
	for _, e := range verrs {
		tmpl, ok := messages[e.Tag()]
		switch {
		case !ok:
			out[name] = fmt.Sprintf("Field '%s' is invalid: %s", name, e.Tag())
		case strings.Count(tmpl, "%s") == 1:
			out[name] = fmt.Sprintf(tmpl, name)
		default:
			out[name] = fmt.Sprintf(tmpl, name, e.Param())
		}
	}
	return out
}
