package validation

import (
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// emailRe matches /^[^\s@]+@[^\s@]+\.[^\s@]+$/
var emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Person names: letters (any script), spaces, hyphens, apostrophes.
var nameRe = regexp.MustCompile(`^[\p{L}\s\-']+$`)

var (
	once     sync.Once
	validate *validator.Validate
)

func IsValidEmail(email string) bool {
	return emailRe.MatchString(email)
}

func IsValidName(name string) bool {
	return strings.TrimSpace(name) != "" && nameRe.MatchString(name)
}

// FieldError is a single field validation failure.
type FieldError struct {
	Field string `json:"field"`
	Tag   string `json:"tag"`
	Param string `json:"param,omitempty"`
}

// Errors collects field failures; it is returned by Struct.
type Errors []FieldError

func (v Errors) Error() string {
	if len(v) == 0 {
		return "validation failed"
	}
	parts := make([]string, len(v))
	for i, e := range v {
		if e.Param != "" {
			parts[i] = e.Field + " failed on " + e.Tag + "=" + e.Param
		} else {
			parts[i] = e.Field + " failed on " + e.Tag
		}
	}
	return strings.Join(parts, "; ")
}

// Struct validates s against its `validate` tags. Field names in the
// returned Errors are the json names.
func Struct(s interface{}) error {
	err := get().Struct(s)
	if err == nil {
		return nil
	}
	if ve, ok := err.(validator.ValidationErrors); ok {
		out := make(Errors, 0, len(ve))
		for _, fe := range ve {
			out = append(out, FieldError{Field: fe.Field(), Tag: fe.Tag(), Param: fe.Param()})
		}
		return out
	}
	return err
}

func get() *validator.Validate {
	once.Do(func() {
		validate = validator.New()
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := fld.Tag.Get("json")
			if i := strings.Index(name, ","); i != -1 {
				name = name[:i]
			}
			if name == "" || name == "-" {
				return fld.Name
			}
			return name
		})
		_ = validate.RegisterValidation("personname", func(fl validator.FieldLevel) bool {
			return IsValidName(fl.Field().String())
		})
		_ = validate.RegisterValidation("loose_email", func(fl validator.FieldLevel) bool {
			return IsValidEmail(fl.Field().String())
		})
	})
	return validate
}
