package http

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

var (
	validate = newValidator()
	asinRe   = regexp.MustCompile(`^[A-Z0-9]{10}$`)
)

// newValidator reports fields by their json (or query) name and knows the
// "asin" tag: ten uppercase letters or digits.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		for _, tag := range []string{"json", "query"} {
			name, _, _ := strings.Cut(f.Tag.Get(tag), ",")
			if name != "" && name != "-" {
				return name
			}
		}
		return f.Name
	})
	_ = v.RegisterValidation("asin", func(fl validator.FieldLevel) bool {
		return asinRe.MatchString(strings.ToUpper(fl.Field().String()))
	})
	return v
}

// ReadAndValidateRequest binds the body/query into req, applies `default`
// tags and validates. A non-nil result is a []ValidationError ready for
// BadRequestResponse.
func ReadAndValidateRequest(c echo.Context, req interface{}) interface{} {
	if err := c.Bind(req); err != nil {
		return toValidationErrors(err)
	}
	return ValidateStruct(c, req)
}

// ValidateStruct applies defaults and validation to an already populated request.
func ValidateStruct(c echo.Context, req interface{}) interface{} {
	if err := defaults.Set(req); err != nil {
		return toValidationErrors(err)
	}
	if err := validate.StructCtx(c.Request().Context(), req); err != nil {
		return toValidationErrors(err)
	}
	return nil
}

func toValidationErrors(err error) []ValidationError {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		out := make([]ValidationError, 0, len(verrs))
		for _, fe := range verrs {
			out = append(out, ValidationError{
				Code:    "ERR_" + strings.ToUpper(fe.Tag()),
				Field:   fe.Field(),
				Message: fieldMessage(fe),
				Params:  fieldParams(fe),
			})
		}
		return out
	}
	msg := err.Error()
	var he *echo.HTTPError
	if errors.As(err, &he) {
		msg = fmt.Sprint(he.Message)
	}
	return []ValidationError{{Code: "ERR_UNKNOWN", Message: msg}}
}

// messages are keyed by tag; %[1]s is the field, %[2]s the tag parameter.
var messages = map[string]string{
	"required":         "%[1]s is required",
	"required_without": "%[1]s is required when %[2]s is empty",
	"url":              "%[1]s must be a valid URL",
	"len":              "%[1]s must be exactly %[2]s characters",
	"alphanum":         "%[1]s must contain only letters and digits",
	"asin":             "%[1]s must be a 10 character ASIN",
	"oneof":            "%[1]s must be one of: %[2]s",
	"gt":               "%[1]s must be greater than %[2]s",
	"gte":              "%[1]s must be greater than or equal to %[2]s",
	"lt":               "%[1]s must be less than %[2]s",
	"lte":              "%[1]s must be less than or equal to %[2]s",
}

func fieldMessage(fe validator.FieldError) string {
	param := fe.Param()
	switch fe.Tag() {
	case "min", "max":
		bound := "at least"
		if fe.Tag() == "max" {
			bound = "at most"
		}
		switch fe.Kind() {
		case reflect.String:
			return fmt.Sprintf("%s must be %s %s characters", fe.Field(), bound, param)
		case reflect.Slice, reflect.Map:
			return fmt.Sprintf("%s must have %s %s items", fe.Field(), bound, param)
		}
		return fmt.Sprintf("%s must be %s %s", fe.Field(), bound, param)
	case "oneof":
		param = strings.ReplaceAll(param, " ", ", ")
	}
	if tmpl, ok := messages[fe.Tag()]; ok {
		return fmt.Sprintf(tmpl, fe.Field(), param)
	}
	return fmt.Sprintf("%s failed validation: %s", fe.Field(), fe.Tag())
}

func fieldParams(fe validator.FieldError) map[string]interface{} {
	switch fe.Tag() {
	case "min", "gte":
		return map[string]interface{}{"min": fe.Param()}
	case "max", "lte":
		return map[string]interface{}{"max": fe.Param()}
	case "gt", "lt", "len":
		return map[string]interface{}{"value": fe.Param()}
	case "oneof":
		return map[string]interface{}{"options": strings.Fields(fe.Param())}
	}
	return nil
}
