package apiutil

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/codr1/courtledger/internal/models"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate runs the struct's validate tags. Failures unwrap to validator.ValidationErrors.
func Validate(v any) error {
	return validate.Struct(v)
}

// PathID parses a positive integer path value.
func PathID(r *http.Request, name string) (int64, error) {
	return ParsePositiveInt64Field(r.PathValue(name), name)
}

func ParsePositiveInt64Field(raw string, field string) (int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, models.Invalid(field, "is required")
	}
	value, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || value <= 0 {
		return 0, models.Invalid(field, "must be greater than 0")
	}
	return value, nil
}

// QueryInt reads an optional positive integer query parameter.
func QueryInt(r *http.Request, name string, fallback int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value <= 0 {
		return 0, models.Invalid(name, "must be a positive integer")
	}
	return value, nil
}
