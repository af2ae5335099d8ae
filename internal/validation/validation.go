package validation

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	usernameRegex = regexp.MustCompile(`^[a-zA-Z0-9]$|^[a-zA-Z0-9][a-zA-Z0-9_-]*[a-zA-Z0-9]$`)
	emailRegex    = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

	upperRegex   = regexp.MustCompile(`[A-Z]`)
	lowerRegex   = regexp.MustCompile(`[a-z]`)
	digitRegex   = regexp.MustCompile(`[0-9]`)
	specialRegex = regexp.MustCompile(`[!@#$%^&*(),.?":{}|<>]`)

	htmlTagRegex = regexp.MustCompile(`<[^>]*>`)
)

// Username validates the username format: 3-20 characters from
// [a-zA-Z0-9_-], not starting or ending with an underscore or hyphen.
func Username(username string) error {
	if username == "" {
		return fmt.Errorf("username is required")
	}
	if len(username) < 3 || len(username) > 20 {
		return fmt.Errorf("username must be 3-20 characters")
	}
	if !usernameRegex.MatchString(username) {
		return fmt.Errorf("username can only contain letters, numbers, underscores and hyphens, and cannot start or end with underscore or hyphen")
	}
	return nil
}

// Email validates the email format and returns its normalized
// (lowercased, trimmed) form.
func Email(email string) (string, error) {
	if email == "" {
		return "", fmt.Errorf("email is required")
	}
	normalized := strings.ToLower(strings.TrimSpace(email))
	if !emailRegex.MatchString(normalized) {
		return "", fmt.Errorf("invalid email address")
	}
	return normalized, nil
}

// Password validates password strength: at least 8 characters with an
// uppercase letter, a lowercase letter, a number and a special character.
func Password(password string) error {
	if password == "" {
		return fmt.Errorf("password is required")
	}
	if len(password) < 8 {
		return fmt.Errorf("password must be at least 8 characters")
	}
	if !upperRegex.MatchString(password) {
		return fmt.Errorf("password must contain at least one uppercase letter")
	}
	if !lowerRegex.MatchString(password) {
		return fmt.Errorf("password must contain at least one lowercase letter")
	}
	if !digitRegex.MatchString(password) {
		return fmt.Errorf("password must contain at least one number")
	}
	if !specialRegex.MatchString(password) {
		return fmt.Errorf("password must contain at least one special character")
	}
	return nil
}

// SanitizeString strips HTML tags and truncates overly long input.
func SanitizeString(s string) string {
	sanitized := htmlTagRegex.ReplaceAllString(s, "")
	if len(sanitized) > 500 {
		sanitized = sanitized[:500]
	}
	return sanitized
}
