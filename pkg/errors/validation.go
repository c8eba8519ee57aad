package errors

import (
	"regexp"
	"strings"
	"unicode"
)

// ValidateSearchTerm validates an account search term.
// Terms are matched as substrings against profile names, so they only need
// to be non-empty, reasonably short and free of control characters.
func ValidateSearchTerm(term string) error {
	if term == "" {
		return New(ErrCodeInvalidInput, "account search term cannot be empty")
	}

	if len(term) > 128 {
		return New(ErrCodeInvalidInput, "account search term too long (max 128 characters)")
	}

	for _, r := range term {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidInput, "account search term contains invalid control characters")
		}
	}

	// Terms become part of the output file name
	if strings.ContainsAny(term, "/\\") || strings.Contains(term, "..") {
		return New(ErrCodeInvalidInput, "account search term contains path characters: %q", term)
	}

	return nil
}

// regionRegex matches AWS region codes such as us-east-1, ap-southeast-2
// or us-gov-west-1.
var regionRegex = regexp.MustCompile(`^[a-z]{2}(-[a-z]+)+-\d$`)

// ValidateRegion validates a region code.
func ValidateRegion(region string) error {
	if region == "" {
		return New(ErrCodeInvalidRegion, "region cannot be empty")
	}
	if !regionRegex.MatchString(region) {
		return New(ErrCodeInvalidRegion, "invalid region code: %q", region)
	}
	return nil
}
