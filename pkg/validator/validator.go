package validator

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/jwalitptl/clinic-api/internal/model"
)

// Rules maps custom tags to their validation functions.
var Rules = map[string]validator.Func{
	"weekday":   validWeekday,
	"timeofday": validTimeOfDay,
	"sex":       validSex,
}

// Register installs the custom rules and reports field names by their json tag.
func Register(v *validator.Validate) error {
	for tag, fn := range Rules {
		if err := v.RegisterValidation(tag, fn); err != nil {
			return fmt.Errorf("failed to register %q validator: %w", tag, err)
		}
	}

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	return nil
}

// New returns a validator reading `binding` tags, like gin's, with the custom
// rules registered.
func New() *validator.Validate {
	v := validator.New()
	v.SetTagName("binding")
	if err := Register(v); err != nil {
		panic(err)
	}
	return v
}

func validWeekday(fl validator.FieldLevel) bool {
	switch fl.Field().Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return model.Weekday(fl.Field().Int()).Valid()
	}
	return false
}

func validTimeOfDay(fl validator.FieldLevel) bool {
	switch fl.Field().Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return model.TimeOfDay(fl.Field().Int()).Valid()
	case reflect.String:
		_, err := model.ParseTimeOfDay(fl.Field().String())
		return err == nil
	}
	return false
}

func validSex(fl validator.FieldLevel) bool {
	return fl.Field().Kind() == reflect.String && model.Sex(fl.Field().String()).Valid()
}

// FieldError is one failed rule, keyed by json field name.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

var messages = map[string]string{
	"required":  "is required",
	"email":     "must be a valid email address",
	"url":       "must be a valid URL",
	"min":       "is too short or too small",
	"max":       "is too long or too large",
	"weekday":   "must be a weekday between 0 (Sunday) and 6 (Saturday)",
	"timeofday": "must be a time of day in HH:MM",
	"sex":       "must be male or female",
}

// Describe flattens validator.ValidationErrors; other errors yield nil.
func Describe(err error) []FieldError {
	var errs validator.ValidationErrors
	if !errors.As(err, &errs) {
		return nil
	}
	out := make([]FieldError, 0, len(errs))
	for _, e := range errs {
		msg, ok := messages[e.Tag()]
		if !ok {
			msg = fmt.Sprintf("failed %q validation", e.Tag())
		}
		out = append(out, FieldError{Field: e.Field(), Message: msg})
	}
	return out
}
