//go:build !wasm
// +build !wasm

package gae

import (
	"time"

	"cloud.google.com/go/datastore"
	oa "github.com/panyam/tenantauth"
)

// UserEntity is the Datastore entity for users. Key name is the normalized email.
type UserEntity struct {
	Key          *datastore.Key `datastore:"__key__"`
	ID           int64          `datastore:"id"`
	Name         string         `datastore:"name,noindex"`
	PasswordHash string         `datastore:"password_hash,noindex"`
	CreatedAt    time.Time      `datastore:"created_at"`
}

func (e *UserEntity) ToUser() *oa.User {
	return &oa.User{
		ID:           e.ID,
		Name:         e.Name,
		Email:        e.Key.Name,
		PasswordHash: e.PasswordHash,
		CreatedAt:    e.CreatedAt,
	}
}

func UserToEntity(u *oa.User, key *datastore.Key) *UserEntity {
	return &UserEntity{
		Key:          key,
		ID:           u.ID,
		Name:         u.Name,
		PasswordHash: u.PasswordHash,
		CreatedAt:    u.CreatedAt,
	}
}

// PendingRegistrationEntity is the Datastore entity for unconfirmed signups
type PendingRegistrationEntity struct {
	Key       *datastore.Key `datastore:"__key__"`
	Name      string         `datastore:"name,noindex"`
	Password  string         `datastore:"password,noindex"`
	Phone     string         `datastore:"phone,noindex"`
	CreatedAt time.Time      `datastore:"created_at"`
}

func (e *PendingRegistrationEntity) ToPendingRegistration() *oa.PendingRegistration {
	return &oa.PendingRegistration{
		Name:      e.Name,
		Email:     e.Key.Name,
		Password:  e.Password,
		Phone:     e.Phone,
		CreatedAt: e.CreatedAt,
	}
}

// PendingOtpEntity is the Datastore entity for live one-time codes
type PendingOtpEntity struct {
	Key       *datastore.Key `datastore:"__key__"`
	Code      string         `datastore:"otp,noindex"`
	ExpiresAt time.Time      `datastore:"expires_at"`
}

func (e *PendingOtpEntity) ToPendingOtp() *oa.PendingOtp {
	return &oa.PendingOtp{Email: e.Key.Name, Code: e.Code, ExpiresAt: e.ExpiresAt}
}

// AdminEntity marks an email as an admin. Only the key matters.
type AdminEntity struct {
	Key       *datastore.Key `datastore:"__key__"`
	CreatedAt time.Time      `datastore:"created_at"`
}
