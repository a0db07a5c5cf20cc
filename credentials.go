package tenantauth

import (
	"errors"
	"regexp"
	"strings"
	"unicode/utf8"

	validation "github.com/go-ozzo/ozzo-validation"
)

// MinPasswordLength is the shortest password accepted at signup.
const MinPasswordLength = 8

var (
	emailShape = regexp.MustCompile(`^\S+@[^\s@]+\.[^\s@]+$`)
	upperCase  = regexp.MustCompile(`[A-Z]`)
	digit      = regexp.MustCompile(`[0-9]`)
)

// Credentials is the signup payload shared by the direct and OTP registration paths.
type Credentials struct {
	Name     string
	Email    string
	Password string
}

// NormalizeEmail trims and lowercases an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

type credentialCheck struct {
	field string
	value string
	code  string
	rule  validation.Rule
}

// ValidateCredentials applies the signup rules in their fixed order and
// returns the first failure. Clients match on the message, so the order and
// wording here are part of the API.
func ValidateCredentials(creds Credentials) *AuthError {
	name := strings.TrimSpace(creds.Name)
	email := creds.Email
	password := creds.Password

	checks := []credentialCheck{
		{"name", name, ErrCodeEmptyField, validation.Required.Error("Name is required")},
		{"email", email, ErrCodeEmptyField, validation.Required.Error("Email is required")},
		{"email", email, ErrCodeInvalidFormat, validation.Match(emailShape).Error("Invalid email format")},
		{"password", password, ErrCodeEmptyField, validation.Required.Error("Password is required")},
		{"password", password, ErrCodeTooShort, validation.By(minRunes(MinPasswordLength, "Password must be at least 8 characters"))},
		{"password", password, ErrCodeMissingUppercase, validation.Match(upperCase).Error("Password must contain an uppercase letter")},
		{"password", password, ErrCodeMissingDigit, validation.Match(digit).Error("Password must contain a number")},
	}

	for _, check := range checks {
		if err := validation.Validate(check.value, check.rule); err != nil {
			return NewAuthError(check.code, err.Error(), check.field)
		}
	}
	return nil
}

// minRunes counts characters, not bytes.
func minRunes(min int, message string) validation.RuleFunc {
	return func(value interface{}) error {
		s, _ := value.(string)
		if utf8.RuneCountInString(s) < min {
			return errors.New(message)
		}
		return nil
	}
}
