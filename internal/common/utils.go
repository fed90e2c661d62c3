package common

import (
	"crypto/sha256"
	"fmt"
	"net/url"
	"strings"
)

// ContentHash computes SHA256 hash of content and returns hex string.
func ContentHash(data []byte) string {
	hash := sha256.Sum256(data)
	return fmt.Sprintf("%x", hash)
}

// IsURL reports whether an input names a remote http(s) resource.
func IsURL(input string) bool {
	return strings.HasPrefix(input, "http://") || strings.HasPrefix(input, "https://")
}

// SanitizeInput performs basic cleanup on an input path or URL to handle
// common copy-paste issues: surrounding whitespace, quotes and brackets.
func SanitizeInput(raw string) string {
	cleaned := strings.TrimSpace(raw)

	// Trailing comma from comma-separated lists
	cleaned = strings.TrimSpace(strings.TrimSuffix(cleaned, ","))

	// Example: "'corpus/a.txt'" -> "corpus/a.txt"
	for _, pair := range []string{`""`, "''", "<>", "()", "[]"} {
		if len(cleaned) >= 2 && cleaned[0] == pair[0] && cleaned[len(cleaned)-1] == pair[1] {
			cleaned = cleaned[1 : len(cleaned)-1]
		}
	}

	return strings.TrimSpace(cleaned)
}

// SanitizeInputs sanitizes all inputs and returns (sanitized, invalid).
// Repeated inputs are kept and read once per occurrence, as Hadoop does
// for repeated input paths. URLs must be http or https with a host.
func SanitizeInputs(inputs []string) ([]string, []string) {
	sanitized := make([]string, 0, len(inputs))
	var invalid []string

	for _, raw := range inputs {
		cleaned := SanitizeInput(raw)

		if cleaned == "" {
			invalid = append(invalid, raw)
			continue
		}

		if strings.Contains(cleaned, "://") {
			parsed, err := url.Parse(cleaned)
			if err != nil || !IsURL(cleaned) || parsed.Host == "" {
				invalid = append(invalid, raw)
				continue
			}
			if strings.ContainsAny(parsed.Host, "{}[]<>\"' ") {
				invalid = append(invalid, raw)
				continue
			}
		}

		sanitized = append(sanitized, cleaned)
	}

	return sanitized, invalid
}
