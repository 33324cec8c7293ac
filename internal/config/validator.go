package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var storeSchemes = []string{"sqlite://", "bolt://"}

// validateStoreDSN accepts "sqlite://<path>" or "bolt://<path>"
func validateStoreDSN(fl validator.FieldLevel) bool {
	dsn := fl.Field().String()
	for _, scheme := range storeSchemes {
		if strings.HasPrefix(dsn, scheme) && len(dsn) > len(scheme) {
			return true
		}
	}
	return false
}

// Validate checks struct tags and the provider cross-field rules
func (c *Config) Validate() error {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.RegisterValidation("store_dsn", validateStoreDSN); err != nil {
		return fmt.Errorf("failed to register store_dsn validator: %w", err)
	}

	if err := v.Struct(c); err != nil {
		return formatValidationErrors(err)
	}

	if c.Provider != BackendOllama && c.ProviderAPIKey == "" {
		return fmt.Errorf("provider_api_key is required for provider %s", c.Provider)
	}
	if c.Provider == BackendAzure {
		if c.ProviderEndpoint == "" {
			return errors.New("provider_endpoint is required for provider azure")
		}
		if c.ProviderModel == "" {
			return errors.New("provider_model (deployment name) is required for provider azure")
		}
	}
	return nil
}

func formatValidationErrors(err error) error {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return err
	}
	messages := make([]string, 0, len(validationErrors))
	for _, e := range validationErrors {
		messages = append(messages, formatSingleValidationError(e))
	}
	return errors.New(strings.Join(messages, "; "))
}

func formatSingleValidationError(e validator.FieldError) string {
	field := e.Namespace()
	switch e.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, e.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, e.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, e.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, e.Param())
	case "url":
		return fmt.Sprintf("%s must be a valid URL", field)
	case "store_dsn":
		return fmt.Sprintf("%s must be sqlite://<path> or bolt://<path>", field)
	default:
		return fmt.Sprintf("%s failed validation: %s", field, e.Tag())
	}
}
