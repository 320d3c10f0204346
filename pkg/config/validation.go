package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// ValidationError represents a configuration validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	switch len(e) {
	case 0:
		return ""
	case 1:
		return e[0].Error()
	}

	var b strings.Builder
	b.WriteString("configuration validation failed:")
	for _, err := range e {
		b.WriteString("\n  - ")
		b.WriteString(err.Error())
	}
	return b.String()
}

// HasErrors returns true if there are any validation errors
func (e ValidationErrors) HasErrors() bool {
	return len(e) > 0
}

// Validator is a function that validates configuration and returns errors
type Validator func() ValidationErrors

// Validate runs multiple validators and combines their errors
func Validate(validators ...Validator) error {
	var all ValidationErrors
	for _, v := range validators {
		all = append(all, v()...)
	}
	if all.HasErrors() {
		return all
	}
	return nil
}

var validate = validator.New()

// checks accumulates problems for one config section; every failed check
// adds an entry keyed by the environment variable name.
type checks struct {
	errs ValidationErrors
}

func (c *checks) fail(field, format string, args ...any) {
	c.errs = append(c.errs, ValidationError{Field: field, Message: fmt.Sprintf(format, args...)})
}

func (c *checks) required(field, value string) {
	if strings.TrimSpace(value) == "" {
		c.fail(field, "is required")
	}
}

func (c *checks) port(field string, value uint16) {
	if value == 0 {
		c.fail(field, "port must be between 1 and 65535")
	}
}

func (c *checks) between(field string, value, lo, hi int) {
	if value < lo || value > hi {
		c.fail(field, "must be between %d and %d, got %d", lo, hi, value)
	}
}

func (c *checks) atLeast(field string, value, lo int) {
	if value < lo {
		c.fail(field, "must be at least %d, got %d", lo, value)
	}
}

func (c *checks) positiveRate(field string, value float64) {
	if value <= 0 {
		c.fail(field, "must be positive, got %g", value)
	}
}

func (c *checks) positiveDuration(field string, value time.Duration) {
	if value <= 0 {
		c.fail(field, "must be positive, got %v", value)
	}
}

func (c *checks) email(field, value string) {
	if value == "" {
		c.fail(field, "is required")
		return
	}
	if err := validate.Var(value, "email"); err != nil {
		c.fail(field, "invalid email format")
	}
}

func (c *checks) oneOf(field, value string, allowed ...string) {
	for _, a := range allowed {
		if value == a {
			return
		}
	}
	c.fail(field, "must be one of %v, got %q", allowed, value)
}

func (c *checks) result() ValidationErrors {
	return c.errs
}
