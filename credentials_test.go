package tenantauth_test

import (
	"testing"

	oa "github.com/panyam/tenantauth"
)

func TestValidateCredentials(t *testing.T) {
	tests := []struct {
		name    string
		creds   oa.Credentials
		message string
		code    string
		field   string
	}{
		{"valid", oa.Credentials{Name: "Ann", Email: "ann@example.com", Password: "Secret123"}, "", "", ""},
		{"blank name", oa.Credentials{Name: "   ", Email: "ann@example.com", Password: "Secret123"}, "Name is required", oa.ErrCodeEmptyField, "name"},
		{"name checked first", oa.Credentials{}, "Name is required", oa.ErrCodeEmptyField, "name"},
		{"missing email", oa.Credentials{Name: "Ann", Password: "Secret123"}, "Email is required", oa.ErrCodeEmptyField, "email"},
		{"no at sign", oa.Credentials{Name: "Ann", Email: "ann.example.com", Password: "Secret123"}, "Invalid email format", oa.ErrCodeInvalidFormat, "email"},
		{"no dot in domain", oa.Credentials{Name: "Ann", Email: "ann@example", Password: "Secret123"}, "Invalid email format", oa.ErrCodeInvalidFormat, "email"},
		{"email before password", oa.Credentials{Name: "Ann", Email: "bad", Password: ""}, "Invalid email format", oa.ErrCodeInvalidFormat, "email"},
		{"missing password", oa.Credentials{Name: "Ann", Email: "ann@example.com"}, "Password is required", oa.ErrCodeEmptyField, "password"},
		{"short password", oa.Credentials{Name: "Ann", Email: "ann@example.com", Password: "Sec1"}, "Password must be at least 8 characters", oa.ErrCodeTooShort, "password"},
		{"length before uppercase", oa.Credentials{Name: "Ann", Email: "ann@example.com", Password: "abc"}, "Password must be at least 8 characters", oa.ErrCodeTooShort, "password"},
		{"no uppercase", oa.Credentials{Name: "Ann", Email: "ann@example.com", Password: "secret123"}, "Password must contain an uppercase letter", oa.ErrCodeMissingUppercase, "password"},
		{"no digit", oa.Credentials{Name: "Ann", Email: "ann@example.com", Password: "SecretPass"}, "Password must contain a number", oa.ErrCodeMissingDigit, "password"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := oa.ValidateCredentials(tt.creds)
			if tt.message == "" {
				if err != nil {
					t.Fatalf("expected no error, got %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("expected %q, got nil", tt.message)
			}
			if err.Message != tt.message {
				t.Errorf("message = %q, want %q", err.Message, tt.message)
			}
			if err.Code != tt.code {
				t.Errorf("code = %q, want %q", err.Code, tt.code)
			}
			if err.Field != tt.field {
				t.Errorf("field = %q, want %q", err.Field, tt.field)
			}
			if err.StatusCode() != 400 {
				t.Errorf("status = %d, want 400", err.StatusCode())
			}
		})
	}
}

func TestNormalizeEmail(t *testing.T) {
	if got := oa.NormalizeEmail("  Ann@Example.COM "); got != "ann@example.com" {
		t.Errorf("NormalizeEmail = %q", got)
	}
}
