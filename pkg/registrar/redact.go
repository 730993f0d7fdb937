package registrar

import "strings"

// RedactedValue replaces sensitive values in logged parameters.
const RedactedValue = "[REDACTED]"

// sensitiveKeyParts are matched as substrings against lowercased key names.
// Auth codes and credentials must never reach logs.
var sensitiveKeyParts = []string{ //nolint: gochecknoglobals
	"password",
	"secret",
	"token",
	"apikey",
	"api_key",
	"api-key",
	"authcode",
	"auth_code",
	"auth-code",
	"credential",
}

// SensitiveKey reports whether a parameter key names a credential or secret.
func SensitiveKey(key string) bool {
	k := strings.ToLower(key)
	for _, part := range sensitiveKeyParts {
		if strings.Contains(k, part) {
			return true
		}
	}

	return false
}

// Redact returns a deep copy of params with every value under a sensitive
// key replaced. Nested maps and slices are redacted recursively; the input
// is never modified.
func Redact(params map[string]any) map[string]any {
	if params == nil {
		return nil
	}

	out := make(map[string]any, len(params))
	for k, v := range params {
		if SensitiveKey(k) {
			out[k] = RedactedValue

			continue
		}
		out[k] = redactValue(v)
	}

	return out
}

func redactValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return Redact(t)
	case map[string]string:
		out := make(map[string]string, len(t))
		for k, s := range t {
			if SensitiveKey(k) {
				out[k] = RedactedValue
			} else {
				out[k] = s
			}
		}

		return out
	case []any:
		out := make([]any, len(t))
		for i := range t {
			out[i] = redactValue(t[i])
		}

		return out
	default:
		return v
	}
}
