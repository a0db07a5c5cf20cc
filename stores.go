package tenantauth

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// PendingRegistration is a signup awaiting OTP confirmation, keyed by email.
// Password is held as received so the account-sync event can forward it.
type PendingRegistration struct {
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Password  string    `json:"password"`
	Phone     string    `json:"phone,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Validate rejects records that are missing required fields.
func (p *PendingRegistration) Validate() error {
	if p == nil {
		return fmt.Errorf("%w: nil pending registration", ErrCorruptState)
	}
	if p.Email == "" || p.Name == "" || p.Password == "" || p.CreatedAt.IsZero() {
		return fmt.Errorf("%w: pending registration %q is missing required fields", ErrCorruptState, p.Email)
	}
	return nil
}

// PendingOtp is the single live one-time code for an email.
type PendingOtp struct {
	Email     string    `json:"email"`
	Code      string    `json:"otp"`
	ExpiresAt time.Time `json:"expires_at"`
}

// IsExpired reports whether the code is past its expiry at the given time.
func (o *PendingOtp) IsExpired(now time.Time) bool {
	return now.After(o.ExpiresAt)
}

// Validate rejects codes that are not six ASCII digits or have no expiry.
func (o *PendingOtp) Validate() error {
	if o == nil {
		return fmt.Errorf("%w: nil pending otp", ErrCorruptState)
	}
	if o.Email == "" || o.ExpiresAt.IsZero() || !IsOTPFormat(o.Code) {
		return fmt.Errorf("%w: pending otp for %q is malformed", ErrCorruptState, o.Email)
	}
	return nil
}

// User is a confirmed account. Roles are not stored; see RoleResolver.
type User struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"password_hash"`
	CreatedAt    time.Time `json:"created_at"`
}

// Validate rejects user records without an id, email or password hash.
func (u *User) Validate() error {
	if u == nil {
		return fmt.Errorf("%w: nil user", ErrCorruptState)
	}
	if u.ID == 0 || u.Email == "" || u.PasswordHash == "" {
		return fmt.Errorf("%w: user %q is missing required fields", ErrCorruptState, u.Email)
	}
	if u.Email != strings.ToLower(u.Email) {
		return fmt.Errorf("%w: user email %q is not normalized", ErrCorruptState, u.Email)
	}
	return nil
}

// PendingRegistrationStore holds unconfirmed signups.
type PendingRegistrationStore interface {
	// PutPendingRegistration creates or replaces the pending registration for p.Email
	PutPendingRegistration(ctx context.Context, p *PendingRegistration) error

	// GetPendingRegistration returns ErrNotFound when there is none
	GetPendingRegistration(ctx context.Context, email string) (*PendingRegistration, error)

	// DeletePendingRegistration is a no-op when there is none
	DeletePendingRegistration(ctx context.Context, email string) error
}

// OtpStore holds the live one-time codes.
type OtpStore interface {
	PutPendingOtp(ctx context.Context, otp *PendingOtp) error
	GetPendingOtp(ctx context.Context, email string) (*PendingOtp, error)
	DeletePendingOtp(ctx context.Context, email string) error
}

// UserStore is the source of truth for "does this email have an account".
type UserStore interface {
	// CreateUser returns ErrEmailTaken if a user with the same email exists
	CreateUser(ctx context.Context, user *User) error

	// GetUserByEmail returns ErrNotFound when there is no such user
	GetUserByEmail(ctx context.Context, email string) (*User, error)

	// DeleteUser is a no-op when there is no such user
	DeleteUser(ctx context.Context, email string) error
}

// RegistrationStore combines the stores the Registrar needs.
type RegistrationStore interface {
	PendingRegistrationStore
	OtpStore
	UserStore

	// PromotePendingRegistration creates user and removes the pending
	// registration and OTP for user.Email as one atomic step.
	PromotePendingRegistration(ctx context.Context, user *User) error
}
