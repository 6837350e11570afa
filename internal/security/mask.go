// Package security provides masking helpers that keep credentials out of logs and tool output.
package security

import (
	"net/url"
	"regexp"
	"strings"
)

const redacted = "***REDACTED***"

// MaskAPIKey keeps the first and last four characters of a key. Keys of
// eight characters or fewer are hidden entirely.
func MaskAPIKey(apiKey string) string {
	switch {
	case apiKey == "":
		return ""
	case len(apiKey) <= 8:
		return "***"
	}
	return apiKey[:4] + "..." + apiKey[len(apiKey)-4:]
}

// Lowercase header names whose values are never logged.
var sensitiveHeaders = map[string]struct{}{ // pragma: allowlist secret
	"authorization": {},
	"x-api-key":     {},
	"apikey":        {}, // pragma: allowlist secret
	"cookie":        {},
	"set-cookie":    {},
}

// MaskSensitiveHeaders flattens headers for logging with credential values
// redacted. Multi-valued headers show the first value followed by "...".
func MaskSensitiveHeaders(headers map[string][]string) map[string]string {
	masked := make(map[string]string, len(headers))
	for key, values := range headers {
		if _, ok := sensitiveHeaders[strings.ToLower(key)]; ok {
			masked[key] = redacted
			continue
		}
		switch len(values) {
		case 0:
		case 1:
			masked[key] = values[0]
		default:
			masked[key] = values[0] + "..."
		}
	}
	return masked
}

// SensitivePatterns contains regex patterns for sensitive data
var SensitivePatterns = []*regexp.Regexp{
	// Authorization header values (ApiKey, Bearer, Basic schemes)
	regexp.MustCompile(`(?i)((?:apikey|bearer|basic)\s+)([a-zA-Z0-9_.=+/:-]{8,})`),
	// api_key=... style assignments
	regexp.MustCompile(`(?i)(api[_-]?key[=:]\s*["']?)([a-zA-Z0-9_=+/-]{8,})`),
	// Passwords in URLs or config
	regexp.MustCompile(`(?i)(password[=:]\s*["']?)([^"'\s&]+)`),
}

// MaskSensitiveData redacts every SensitivePatterns match, keeping the
// scheme or key name in front of the secret.
func MaskSensitiveData(data string) string {
	for _, pattern := range SensitivePatterns {
		data = pattern.ReplaceAllString(data, "${1}"+redacted)
	}
	return data
}

// MaskURL removes user info from a URL so that endpoints configured with
// inline credentials can be logged.
func MaskURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.User == nil {
		return rawURL
	}
	u.User = url.User(redacted)
	return u.String()
}

// SanitizeError is MaskSensitiveData over err's message. A nil error gives
// an empty string.
func SanitizeError(err error) string {
	if err == nil {
		return ""
	}
	return MaskSensitiveData(err.Error())
}
