// Package validation checks settings structs with go-playground/validator
// and request input with a small fluent Validator.
//
// Custom struct tags:
//
//	configname  plain file base name ("settings")
//	configpath  single directory name (".vscode")
//	fileext     extension with a leading dot (".json")
package validation
