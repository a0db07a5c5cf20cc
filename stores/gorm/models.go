//go:build !wasm
// +build !wasm

package gorm

import (
	"time"

	oa "github.com/panyam/tenantauth"
)

// UserModel is the GORM model for confirmed users
type UserModel struct {
	ID           int64     `gorm:"primaryKey;autoIncrement:false"`
	Name         string    `gorm:"size:255"`
	Email        string    `gorm:"size:255;uniqueIndex"`
	PasswordHash string    `gorm:"size:255"`
	CreatedAt    time.Time `gorm:"autoCreateTime"`
}

func (UserModel) TableName() string {
	return "users"
}

func (m *UserModel) ToUser() *oa.User {
	return &oa.User{
		ID:           m.ID,
		Name:         m.Name,
		Email:        m.Email,
		PasswordHash: m.PasswordHash,
		CreatedAt:    m.CreatedAt,
	}
}

func FromUser(u *oa.User) *UserModel {
	return &UserModel{
		ID:           u.ID,
		Name:         u.Name,
		Email:        oa.NormalizeEmail(u.Email),
		PasswordHash: u.PasswordHash,
		CreatedAt:    u.CreatedAt,
	}
}

// PendingRegistrationModel is the GORM model for unconfirmed signups
type PendingRegistrationModel struct {
	Email     string `gorm:"primaryKey;size:255"`
	Name      string `gorm:"size:255"`
	Password  string `gorm:"size:255"`
	Phone     string `gorm:"size:32"`
	CreatedAt time.Time
}

func (PendingRegistrationModel) TableName() string {
	return "pending_registrations"
}

func (m *PendingRegistrationModel) ToPendingRegistration() *oa.PendingRegistration {
	return &oa.PendingRegistration{
		Name:      m.Name,
		Email:     m.Email,
		Password:  m.Password,
		Phone:     m.Phone,
		CreatedAt: m.CreatedAt,
	}
}

// PendingOtpModel is the GORM model for live one-time codes
type PendingOtpModel struct {
	Email     string    `gorm:"primaryKey;size:255"`
	Code      string    `gorm:"size:6"`
	ExpiresAt time.Time `gorm:"index"`
}

func (PendingOtpModel) TableName() string {
	return "pending_otps"
}

func (m *PendingOtpModel) ToPendingOtp() *oa.PendingOtp {
	return &oa.PendingOtp{Email: m.Email, Code: m.Code, ExpiresAt: m.ExpiresAt}
}

// AdminModel is one row of the admin allow-list
type AdminModel struct {
	Email     string    `gorm:"primaryKey;size:255"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

func (AdminModel) TableName() string {
	return "admins"
}
