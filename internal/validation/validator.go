// Package validation holds the shared request validator.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/tripplanner/backend/internal/forensics"
)

var (
	instance *validator.Validate
	once     sync.Once
)

// Get returns the process-wide validator with the custom tags registered.
func Get() *validator.Validate {
	once.Do(func() {
		instance = validator.New(validator.WithRequiredStructEnabled())
		instance.RegisterTagNameFunc(jsonFieldName)
		mustRegister(instance, "audit_source", validateAuditSource)
	})
	return instance
}

func Validate(s any) error {
	return Get().Struct(s)
}

// Describe flattens validation errors into one client-facing message,
// e.g. "date_from must be an RFC3339 timestamp; sources[0] must be admin or user".
func Describe(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, describeField(fe))
	}
	return strings.Join(msgs, "; ")
}

func describeField(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "datetime":
		return field + " must be an RFC3339 timestamp"
	case "audit_source":
		return field + " must be admin or user"
	case "max":
		if fe.Kind().String() == "slice" {
			return fmt.Sprintf("%s accepts at most %s values", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	default:
		return fmt.Sprintf("%s failed %s", field, fe.Tag())
	}
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic("failed to register validator " + tag + ": " + err.Error())
	}
}

func validateAuditSource(fl validator.FieldLevel) bool {
	return forensics.Source(fl.Field().String()).Valid()
}

// jsonFieldName reports fields under their wire names so messages match
// what clients sent.
func jsonFieldName(fld reflect.StructField) string {
	for _, tag := range []string{"json", "query"} {
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
