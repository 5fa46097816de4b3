package core

import (
	"errors"
	"fmt"
)

// ConfigError represents a configuration-related error with actionable instructions.
type ConfigError struct {
	Code    string // Error code for programmatic handling
	Message string // Human-readable error message
	Action  string // Actionable instruction for resolution
}

func (e *ConfigError) Error() string {
	if e.Action != "" {
		return fmt.Sprintf("%s. %s", e.Message, e.Action)
	}
	return e.Message
}

// Error codes for configuration errors
const (
	ErrCodeMissingAuth     = "MISSING_AUTH"
	ErrCodeMissingConfig   = "MISSING_CONFIG"
	ErrCodeInvalidProvider = "INVALID_PROVIDER"
	ErrCodeInvalidValue    = "INVALID_VALUE"
	ErrCodePolicyFile      = "POLICY_FILE"
)

// ErrMissingAuth returns an error for missing provider credentials
func ErrMissingAuth(provider string) *ConfigError {
	var action string
	switch provider {
	case ProviderAnthropic:
		action = "Set ANTHROPIC_API_KEY in your .env file"
	case ProviderOpenAI:
		action = "Set OPENAI_API_KEY in your .env file (or point BASE_LLM_URL at a local server)"
	default:
		action = fmt.Sprintf("Set the required API key for %s in your .env file", provider)
	}
	return &ConfigError{
		Code:    ErrCodeMissingAuth,
		Message: fmt.Sprintf("Missing authentication credentials for %s", provider),
		Action:  action,
	}
}

// ErrMissingConfig returns an error for missing required configuration
func ErrMissingConfig(varName string) *ConfigError {
	return &ConfigError{
		Code:    ErrCodeMissingConfig,
		Message: fmt.Sprintf("Missing required configuration: %s", varName),
		Action:  fmt.Sprintf("Set %s in your .env file", varName),
	}
}

// ErrInvalidProvider returns an error for an unknown LLM_PROVIDER
func ErrInvalidProvider(provider string) *ConfigError {
	return &ConfigError{
		Code:    ErrCodeInvalidProvider,
		Message: fmt.Sprintf("Unknown LLM_PROVIDER '%s'", provider),
		Action:  fmt.Sprintf("Set LLM_PROVIDER to %q or %q", ProviderOpenAI, ProviderAnthropic),
	}
}

// ErrInvalidValue returns an error for an out-of-range setting
func ErrInvalidValue(varName, value, reason string) *ConfigError {
	return &ConfigError{
		Code:    ErrCodeInvalidValue,
		Message: fmt.Sprintf("Invalid %s '%s': %s", varName, value, reason),
		Action:  fmt.Sprintf("Fix %s in your .env file or policy file", varName),
	}
}

// ErrPolicyFile returns an error for an unreadable summary policy file
func ErrPolicyFile(path, reason string) *ConfigError {
	return &ConfigError{
		Code:    ErrCodePolicyFile,
		Message: fmt.Sprintf("Cannot load SUMMARY_POLICY_FILE %s: %s", path, reason),
		Action:  "Fix the YAML file or unset SUMMARY_POLICY_FILE",
	}
}

// IsConfigError checks if an error is, or wraps, a ConfigError and returns it if so
func IsConfigError(err error) (*ConfigError, bool) {
	var configErr *ConfigError
	if errors.As(err, &configErr) {
		return configErr, true
	}
	return nil, false
}

// GetErrorCode extracts the error code from an error if it's a ConfigError
func GetErrorCode(err error) string {
	if configErr, ok := IsConfigError(err); ok {
		return configErr.Code
	}
	return ""
}
