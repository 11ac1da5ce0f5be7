// Package validator wraps go-playground/validator with JSON field names and
// client-readable failure messages.
package validator

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	once     sync.Once
	validate *validator.Validate
)

// ValidationError is one failed rule on one field.
type ValidationError struct {
	Field string `json:"field"`
	Tag   string `json:"tag"`
	Param string `json:"param"`
}

// Message renders the failure for API clients.
func (e ValidationError) Message() string {
	field := strings.ReplaceAll(e.Field, "_", " ")
	switch e.Tag {
	case "required", "notblank":
		return field + " is required"
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, e.Param)
	case "gte":
		return fmt.Sprintf("%s must be at least %s", field, e.Param)
	case "lte":
		return fmt.Sprintf("%s must be at most %s", field, e.Param)
	}
	if e.Param == "" {
		return fmt.Sprintf("%s failed on %s", field, e.Tag)
	}
	return fmt.Sprintf("%s failed on %s=%s", field, e.Tag, e.Param)
}

// ValidationErrors collects every failure of one struct.
type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return "validation failed"
	}
	return strings.Join(v.Messages(), "; ")
}

// Messages returns the client messages in field order.
func (v ValidationErrors) Messages() []string {
	out := make([]string, len(v))
	for i, failure := range v {
		out[i] = failure.Message()
	}
	return out
}

// Fields lists the names of the failing fields in order.
func (v ValidationErrors) Fields() []string {
	out := make([]string, len(v))
	for i, failure := range v {
		out[i] = failure.Field
	}
	return out
}

// ValidateStruct runs the struct's validate tags. Rule failures come back as
// ValidationErrors; anything else (such as a non-struct argument) is returned as is.
func ValidateStruct(s interface{}) error {
	err := instance().Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}

	failures := make(ValidationErrors, len(fieldErrs))
	for i, fe := range fieldErrs {
		failures[i] = ValidationError{Field: fe.Field(), Tag: fe.Tag(), Param: fe.Param()}
	}
	return failures
}

// RegisterValidation adds a custom rule to the shared validator.
func RegisterValidation(tag string, fn validator.Func) error {
	return instance().RegisterValidation(tag, fn)
}

// notBlank rejects strings made only of whitespace; "required" alone accepts them.
func notBlank(fl validator.FieldLevel) bool {
	field := fl.Field()
	if field.Kind() != reflect.String {
		return !field.IsZero()
	}
	return strings.TrimSpace(field.String()) != ""
}

func jsonName(fld reflect.StructField) string {
	name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
	if name == "" || name == "-" {
		return fld.Name
	}
	return name
}

func instance() *validator.Validate {
	once.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(jsonName)
		if err := validate.RegisterValidation("notblank", notBlank); err != nil {
			panic(err)
		}
	})
	return validate
}
