package util

import (
	"regexp"
	"strings"
)

// MaxSanitizeLength bounds sanitized log strings.
const MaxSanitizeLength = 2048

var sensitivePatterns = []struct {
	pattern     *regexp.Regexp
	replacement string
}{
	{regexp.MustCompile(`(?i)(password|passwd|pwd)[\s:=]+[^\s\n]+`), "$1=REDACTED"},
	{regexp.MustCompile(`(?i)(token|auth|authorization)[\s:=]+[^\s\n]+`), "$1=REDACTED"},
	{regexp.MustCompile(`(?i)(api[_-]?key|apikey)[\s:=]+[^\s\n]+`), "$1=REDACTED"},
	{regexp.MustCompile(`(?i)bearer\s+[a-zA-Z0-9_\-.]+`), "bearer REDACTED"},
	{regexp.MustCompile(`eyJ[a-zA-Z0-9_\-]+\.eyJ[a-zA-Z0-9_\-]+\.[a-zA-Z0-9_\-]+`), "REDACTED_JWT"},
}

// SanitizeLogValue strips newlines and credential-shaped substrings from a
// value before it reaches the logs. Event payloads are attacker-controlled,
// so anything echoed into log lines goes through here.
func SanitizeLogValue(s string) string {
	if s == "" {
		return ""
	}
	if len(s) > MaxSanitizeLength {
		s = s[:MaxSanitizeLength] + "... [truncated]"
	}

	s = strings.ReplaceAll(s, "\n", "\\n")
	s = strings.ReplaceAll(s, "\r", "\\r")

	for _, p := range sensitivePatterns {
		s = p.pattern.ReplaceAllString(s, p.replacement)
	}
	return s
}

// SanitizeError renders an error for logging, nil-safe.
func SanitizeError(err error) string {
	if err == nil {
		return ""
	}
	return SanitizeLogValue(err.Error())
}
