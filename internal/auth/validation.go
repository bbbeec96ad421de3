package auth

import (
	"regexp"
	"strings"
	"unicode"
)

const (
	minUsernameLen = 3
	maxUsernameLen = 32
	minPasswordLen = 8
	// bcrypt ignores input past 72 bytes
	maxPasswordLen = 72
)

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

// ValidateRegistration checks a username and password against the account
// rules and reports the first problem per field.
func ValidateRegistration(username, password string) error {
	verr := &ValidationError{}

	username = strings.TrimSpace(username)
	switch {
	case username == "":
		verr.add("username", "Username is required")
	case len(username) < minUsernameLen || len(username) > maxUsernameLen:
		verr.add("username", "Username must be between 3 and 32 characters")
	case !usernamePattern.MatchString(username):
		verr.add("username", "Username may only contain letters, numbers and underscores")
	}

	if msg := passwordProblem(password); msg != "" {
		verr.add("password", msg)
	}

	return verr.orNil()
}

func passwordProblem(password string) string {
	if password == "" {
		return "Password is required"
	}
	if len(password) < minPasswordLen {
		return "Password must be at least 8 characters long"
	}
	if len(password) > maxPasswordLen {
		return "Password must be at most 72 bytes long"
	}

	var hasUpper, hasLower, hasDigit, hasSpecial bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			hasSpecial = true
		}
	}

	switch {
	case !hasUpper:
		return "Password must contain an uppercase letter"
	case !hasLower:
		return "Password must contain a lowercase letter"
	case !hasDigit:
		return "Password must contain a number"
	case !hasSpecial:
		return "Password must contain a special character"
	}
	return ""
}
