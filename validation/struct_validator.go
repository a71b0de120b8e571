package validation

import (
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/kbukum/prefkit/errors"
)

var (
	validate *validator.Validate
	once     sync.Once

	// configNamePattern accepts file base names such as "settings" or "launch".
	configNamePattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)
	// configPathPattern accepts a single hidden or plain directory name such as ".vscode".
	configPathPattern = regexp.MustCompile(`^\.?[A-Za-z0-9_-]+$`)
)

// getValidator returns the singleton validator instance.
func getValidator() *validator.Validate {
	once.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())

		// Field names in messages follow the mapstructure (config file) key.
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("mapstructure"), ",", 2)[0]
			if name == "-" || name == "" {
				return toSnakeCase(fld.Name)
			}
			return name
		})
		_ = validate.RegisterValidation("configname", func(fl validator.FieldLevel) bool {
			return configNamePattern.MatchString(fl.Field().String())
		})
		_ = validate.RegisterValidation("configpath", func(fl validator.FieldLevel) bool {
			return configPathPattern.MatchString(fl.Field().String())
		})
		_ = validate.RegisterValidation("fileext", func(fl validator.FieldLevel) bool {
			ext := fl.Field().String()
			return len(ext) > 1 && ext[0] == '.' && !strings.ContainsAny(ext[1:], "./\\")
		})
	})
	return validate
}

// Validate validates a struct using its `validate` tags and returns an
// INVALID_CONFIG AppError listing every failing field.
func Validate(s any) error {
	err := getValidator().Struct(s)
	if err == nil {
		return nil
	}

	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		return errors.InvalidConfig("validation failed").WithCause(err)
	}

	fieldErrors := make([]FieldError, 0, len(validationErrors))
	messages := make([]string, 0, len(validationErrors))
	for _, e := range validationErrors {
		field := fieldPath(e.Namespace())
		message := formatValidationError(e)
		fieldErrors = append(fieldErrors, FieldError{Field: field, Message: message})
		messages = append(messages, field+": "+message)
	}

	return errors.InvalidConfig(strings.Join(messages, "; ")).WithDetail("fields", fieldErrors)
}

// fieldPath drops the root struct name from a validator namespace.
func fieldPath(ns string) string {
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	return ns
}

func formatValidationError(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "is required"
	case "min":
		return "must be at least " + e.Param()
	case "max":
		return "must be at most " + e.Param()
	case "oneof":
		return "must be one of: " + e.Param()
	case "hostname_port", "hostname":
		return "must be a valid host"
	case "configname":
		return "must be a plain file base name"
	case "configpath":
		return "must be a single directory name"
	case "fileext":
		return "must be a file extension starting with a dot"
	case "unique":
		return "must not contain duplicates"
	default:
		return "is invalid"
	}
}

// toSnakeCase converts a field name to snake_case.
func toSnakeCase(s string) string {
	var result strings.Builder
	for i, r := range s {
		if i > 0 && r >= 'A' && r <= 'Z' {
			result.WriteRune('_')
		}
		if r >= 'A' && r <= 'Z' {
			result.WriteRune(r + 32)
		} else {
			result.WriteRune(r)
		}
	}
	return result.String()
}
