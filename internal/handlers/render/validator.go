package render

import (
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

func configureValidator(validate *validator.Validate) {
	_ = validate.RegisterValidation("pastdate", validatePastDate)
	validate.RegisterTagNameFunc(useJSONTagNames)
}

func useJSONTagNames(fld reflect.StructField) string {
	name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
	// skip if tag key says it should be ignored
	if name == "-" {
		return ""
	}
	return name
}

// A date formatted as 2006-01-02 that is not in the future
// Birthdays can not be ahead of today
func validatePastDate(fl validator.FieldLevel) bool {
	value := fl.Field().String()

	date, err := time.Parse("2006-01-02", value)
	if err != nil {
		return false
	}

	return !date.After(time.Now())
}
