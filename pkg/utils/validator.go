package utils

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// MaxRemarkLength bounds approver remarks, in runes
const MaxRemarkLength = 1000

var (
	emailRegex   = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
	userIDRegex  = regexp.MustCompile(`^[a-zA-Z0-9._@\-]{1,64}$`)
	controlRegex = regexp.MustCompile(`[\x00-\x08\x0b-\x1f\x7f]`)
)

// ValidateEmail validates an email address
func ValidateEmail(email string) error {
	if !emailRegex.MatchString(email) {
		return fmt.Errorf("invalid email format: %s", email)
	}
	return nil
}

// ValidateUserID validates a directory user identifier
func ValidateUserID(id string) error {
	if !userIDRegex.MatchString(id) {
		return fmt.Errorf("invalid user id: %q", id)
	}
	return nil
}

// SanitizeString removes control characters other than tab and newline
func SanitizeString(s string) string {
	return controlRegex.ReplaceAllString(s, "")
}

// SanitizeRemark cleans an approver remark and rejects oversized input
func SanitizeRemark(s string) (string, error) {
	s = strings.TrimSpace(SanitizeString(s))
	if n := utf8.RuneCountInString(s); n > MaxRemarkLength {
		return "", fmt.Errorf("remark too long: %d characters, max %d", n, MaxRemarkLength)
	}
	return s, nil
}
