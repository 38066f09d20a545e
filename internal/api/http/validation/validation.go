// Package validation registers the custom binding tags and turns binding
// errors into 422 responses with a per-field detail.
package validation

import (
	"encoding/json"
	"errors"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/toolsascode/restorm/internal/apperrors"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// Locations of a validated value
const (
	LocBody  = "body"
	LocQuery = "query"
	LocPath  = "path"
)

// Message is the response message of every validation error
const Message = "Validation error!"

var (
	registerOnce sync.Once
	registerErr  error

	nameChars = regexp.MustCompile(`^[a-zA-Z0-9_\- .]+$`)
)

// Register adds the custom tags to gin's validator:
//
//	name_chars     letters, digits, space, '_', '-' and '.'
//	multiple_of=N  integer divisible by N
func Register() error {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			registerErr = errors.New("unexpected binding validator engine")
			return
		}

		v.RegisterTagNameFunc(fieldName)
		if err := v.RegisterValidation("name_chars", func(fl validator.FieldLevel) bool {
			return nameChars.MatchString(fl.Field().String())
		}); err != nil {
			registerErr = err
			return
		}
		registerErr = v.RegisterValidation("multiple_of", func(fl validator.FieldLevel) bool {
			n, err := strconv.ParseInt(fl.Param(), 10, 64)
			if err != nil || n == 0 {
				return false
			}
			return fl.Field().Int()%n == 0
		})
	})
	return registerErr
}

// fieldName reports fields by their json, form or uri name
func fieldName(f reflect.StructField) string {
	for _, tag := range []string{"json", "form", "uri"} {
		name := strings.SplitN(f.Tag.Get(tag), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name != "" {
			return name
		}
	}
	return f.Name
}

// FieldError is one entry of the error detail
type FieldError struct {
	Loc  []string          `json:"loc"`
	Msg  string            `json:"msg"`
	Type string            `json:"type"`
	Ctx  map[string]string `json:"ctx,omitempty"`
}

// Detail converts a binding error into field errors
func Detail(loc string, err error) []FieldError {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		out := make([]FieldError, 0, len(verrs))
		for _, fe := range verrs {
			entry := FieldError{
				Loc:  []string{loc, fe.Field()},
				Msg:  fieldMessage(fe),
				Type: "value_error." + fe.Tag(),
			}
			if fe.Param() != "" {
				entry.Ctx = map[string]string{"constraint": fe.Param()}
			}
			out = append(out, entry)
		}
		return out
	}

	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	switch {
	case errors.As(err, &typeErr):
		return []FieldError{{Loc: []string{loc, typeErr.Field}, Msg: "Invalid value type, expected " + typeErr.Type.String() + ".", Type: "type_error"}}
	case errors.As(err, &syntaxErr):
		return []FieldError{{Loc: []string{loc}, Msg: "Invalid JSON: " + syntaxErr.Error(), Type: "value_error.jsondecode"}}
	}
	return []FieldError{{Loc: []string{loc}, Msg: err.Error(), Type: "value_error"}}
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "Field required."
	case "min":
		if fe.Kind() == reflect.String {
			return "Ensure this value has at least " + fe.Param() + " characters."
		}
		return "Ensure this value is greater than or equal to " + fe.Param() + "."
	case "max":
		if fe.Kind() == reflect.String {
			return "Ensure this value has at most " + fe.Param() + " characters."
		}
		return "Ensure this value is less than or equal to " + fe.Param() + "."
	case "name_chars":
		return "Only letters, digits, spaces, '_', '-' and '.' are allowed."
	case "multiple_of":
		return "Value must be a multiple of " + fe.Param() + "!"
	}
	return "Invalid value (" + fe.Tag() + ")."
}

// NewError builds the 422 error of a binding failure at loc
func NewError(loc string, err error) *apperrors.Error {
	return apperrors.Newf(apperrors.UnprocessableEntity, Message).
		WithDescription(err.Error()).
		WithDetail(Detail(loc, err))
}
