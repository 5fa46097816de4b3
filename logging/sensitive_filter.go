package logging

import (
	"regexp"
	"strings"
)

// RedactedPlaceholder replaces sensitive values in log output.
const RedactedPlaceholder = "[REDACTED]"

// sensitivePatterns match credentials that may appear inside free text,
// e.g. an upstream error message echoing a request header.
var sensitivePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(sk-ant-[a-zA-Z0-9_-]{20,})`),    // Anthropic keys
	regexp.MustCompile(`(?i)(sk-[a-zA-Z0-9_-]{20,})`),        // OpenAI keys, legacy and project-scoped
	regexp.MustCompile(`(?i)(bearer\s+[a-zA-Z0-9._-]{20,})`), // Authorization headers
	regexp.MustCompile(`(?i)(x-api-key\s*[:=]\s*[^\s,;]{8,})`),
	regexp.MustCompile(`(?i)(api_key\s*[:=]\s*[^\s,;]{8,})`),
	regexp.MustCompile(`(?i)(apikey\s*[:=]\s*[^\s,;]{8,})`),
	regexp.MustCompile(`(?i)(token\s*[:=]\s*[^\s,;]{8,})`),
}

// sensitiveFieldNames are substrings of field or env var names whose values
// are always redacted.
var sensitiveFieldNames = []string{
	"OPENAI_API_KEY",
	"ANTHROPIC_API_KEY",
	"API_KEY",
	"APIKEY",
	"SECRET",
	"TOKEN",
	"PASSWORD",
}

// RedactSensitiveData replaces every credential-looking substring of value.
//
// Example:
//
//	RedactSensitiveData("key sk-abc123def456ghi789jkl012") // "key [REDACTED]"
func RedactSensitiveData(value string) string {
	if value == "" {
		return value
	}

	result := value
	for _, pattern := range sensitivePatterns {
		result = pattern.ReplaceAllString(result, RedactedPlaceholder)
	}
	return result
}

// IsSensitiveField reports whether a field name indicates a secret.
//
//	IsSensitiveField("anthropic_api_key") // true
//	IsSensitiveField("model")             // false
func IsSensitiveField(fieldName string) bool {
	upperName := strings.ToUpper(fieldName)
	for _, name := range sensitiveFieldNames {
		if strings.Contains(upperName, name) {
			return true
		}
	}
	return false
}
