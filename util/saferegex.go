package util

import (
	"fmt"
	"regexp"
	"strings"
	"sync"
)

// MaxRegexLength is the maximum allowed rule-condition pattern length.
const MaxRegexLength = 500

// ValidateRegexPattern validates a rule-authored regex pattern before use.
// Rule conditions come from operator-edited records, so patterns are
// bounded and screened for pathological repetition before compiling.
func ValidateRegexPattern(pattern string) error {
	if pattern == "" {
		return fmt.Errorf("regex pattern cannot be empty")
	}
	if len(pattern) > MaxRegexLength {
		return fmt.Errorf("regex pattern too long: %d characters (max %d)", len(pattern), MaxRegexLength)
	}

	// Nested quantifiers like (a+)+ are the classic ReDoS shape. Go's RE2
	// engine is linear-time, but rejecting them keeps rule packs portable.
	nested := []string{"(.*)*", "(.*)+", "(.+)*", "(.+)+", "(\\w+)*", "(\\w+)+"}
	for _, p := range nested {
		if strings.Contains(pattern, p) {
			return fmt.Errorf("regex pattern contains nested quantifier: %s", p)
		}
	}

	if strings.Count(pattern, "|") > 50 {
		return fmt.Errorf("regex pattern has too many alternations")
	}

	return nil
}

// SafeCompile validates and compiles a pattern. Invalid patterns return an
// error; callers treat that as a non-match (fail closed), never a panic.
func SafeCompile(pattern string) (*regexp.Regexp, error) {
	if err := ValidateRegexPattern(pattern); err != nil {
		return nil, err
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("failed to compile regex: %w", err)
	}
	return re, nil
}

// regexCache memoizes compiled condition patterns within a process. Rule
// sets are small, so an unbounded map keyed by pattern is fine.
var regexCache sync.Map

// MatchCaseInsensitive reports whether input matches pattern with
// case-insensitive semantics. Invalid patterns fail closed.
func MatchCaseInsensitive(pattern, input string) bool {
	key := "(?i)" + pattern
	if cached, ok := regexCache.Load(key); ok {
		if re, ok := cached.(*regexp.Regexp); ok && re != nil {
			return re.MatchString(input)
		}
		return false
	}

	re, err := SafeCompile(key)
	if err != nil {
		// Cache the failure so repeated evaluation of a broken rule
		// does not re-validate per event.
		regexCache.Store(key, (*regexp.Regexp)(nil))
		return false
	}
	regexCache.Store(key, re)
	return re.MatchString(input)
}
