package config

import (
	"fmt"
	"net/url"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	// Path is the YAML path to the invalid field
	Path string

	// Message describes the validation error
	Message string
}

// Error returns the error message.
func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

// Validate checks the settings the client depends on and returns a slice
// of validation errors. An empty slice indicates the settings are valid.
//
// Example:
//
//	if errs := config.Validate(settings); len(errs) > 0 {
//	    for _, err := range errs {
//	        log.Printf("Validation error: %s", err)
//	    }
//	}
func Validate(settings *Settings) []ValidationError {
	var errors []ValidationError

	if settings.API.BaseURL == "" {
		errors = append(errors, ValidationError{
			Path:    "api.base_url",
			Message: "base_url is required",
		})
	} else if u, err := url.Parse(settings.API.BaseURL); err != nil {
		errors = append(errors, ValidationError{
			Path:    "api.base_url",
			Message: fmt.Sprintf("invalid url: %v", err),
		})
	} else {
		if u.Scheme != "http" && u.Scheme != "https" {
			errors = append(errors, ValidationError{
				Path:    "api.base_url",
				Message: fmt.Sprintf("unsupported scheme: %q", u.Scheme),
			})
		}
		if u.Host == "" {
			errors = append(errors, ValidationError{
				Path:    "api.base_url",
				Message: "host is required",
			})
		}
	}

	if settings.API.Timeout < 0 {
		errors = append(errors, ValidationError{
			Path:    "api.timeout",
			Message: "timeout cannot be negative",
		})
	}

	for key := range settings.API.Headers {
		if key == "" {
			errors = append(errors, ValidationError{
				Path:    "api.headers",
				Message: "header name cannot be empty",
			})
		}
	}

	return errors
}
