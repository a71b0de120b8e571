package validation

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/kbukum/prefkit/errors"
	"github.com/kbukum/prefkit/uri"
)

// Validator collects validation errors for request input.
type Validator struct {
	errors []FieldError
}

// FieldError represents a validation error for a specific field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// New creates a new Validator.
func New() *Validator {
	return &Validator{}
}

// AddError adds a field error.
func (v *Validator) AddError(field, message string) {
	v.errors = append(v.errors, FieldError{Field: field, Message: message})
}

// HasErrors returns true if there are validation errors.
func (v *Validator) HasErrors() bool {
	return len(v.errors) > 0
}

// Errors returns all validation errors.
func (v *Validator) Errors() []FieldError {
	return v.errors
}

// Validate returns an INVALID_INPUT AppError if any check failed, nil otherwise.
func (v *Validator) Validate() *errors.AppError {
	if !v.HasErrors() {
		return nil
	}
	messages := make([]string, len(v.errors))
	for i, e := range v.errors {
		messages[i] = fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return errors.InvalidInput("", strings.Join(messages, "; ")).WithDetail("fields", v.errors)
}

// Required checks if a string is non-empty.
func (v *Validator) Required(field, value string) *Validator {
	if strings.TrimSpace(value) == "" {
		v.AddError(field, "is required")
	}
	return v
}

// PreferenceName checks that value is a usable preference name: non-empty,
// no whitespace, no empty dotted segments.
func (v *Validator) PreferenceName(field, value string) *Validator {
	if value == "" {
		v.AddError(field, "is required")
		return v
	}
	if strings.IndexFunc(value, unicode.IsSpace) >= 0 {
		v.AddError(field, "must not contain whitespace")
		return v
	}
	for _, segment := range strings.Split(value, ".") {
		if segment == "" {
			v.AddError(field, "must not contain empty segments")
			return v
		}
	}
	return v
}

// ResourceURI checks that a non-empty value parses as an absolute URI.
func (v *Validator) ResourceURI(field, value string) *Validator {
	if value == "" {
		return v
	}
	if _, err := uri.Parse(value); err != nil {
		v.AddError(field, "must be an absolute file URI or path")
	}
	return v
}
