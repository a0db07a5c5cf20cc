//go:build !wasm
// +build !wasm

package gorm

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	oa "github.com/panyam/tenantauth"
)

// AutoMigrate runs database migrations for all tenantauth tables
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&UserModel{},
		&PendingRegistrationModel{},
		&PendingOtpModel{},
		&AdminModel{},
	)
}

// Store implements oa.RegistrationStore and oa.AdminList with one row per key.
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return oa.ErrNotFound
	}
	return err
}

// =============================================================================
// PendingRegistrationStore
// =============================================================================

func (s *Store) PutPendingRegistration(ctx context.Context, p *oa.PendingRegistration) error {
	model := &PendingRegistrationModel{
		Email:     oa.NormalizeEmail(p.Email),
		Name:      p.Name,
		Password:  p.Password,
		Phone:     p.Phone,
		CreatedAt: p.CreatedAt,
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(model).Error
}

func (s *Store) GetPendingRegistration(ctx context.Context, email string) (*oa.PendingRegistration, error) {
	var model PendingRegistrationModel
	if err := s.db.WithContext(ctx).First(&model, "email = ?", oa.NormalizeEmail(email)).Error; err != nil {
		return nil, notFound(err)
	}
	p := model.ToPendingRegistration()
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Store) DeletePendingRegistration(ctx context.Context, email string) error {
	return s.db.WithContext(ctx).Delete(&PendingRegistrationModel{}, "email = ?", oa.NormalizeEmail(email)).Error
}

// =============================================================================
// OtpStore
// =============================================================================

func (s *Store) PutPendingOtp(ctx context.Context, otp *oa.PendingOtp) error {
	model := &PendingOtpModel{
		Email:     oa.NormalizeEmail(otp.Email),
		Code:      otp.Code,
		ExpiresAt: otp.ExpiresAt,
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(model).Error
}

func (s *Store) GetPendingOtp(ctx context.Context, email string) (*oa.PendingOtp, error) {
	var model PendingOtpModel
	if err := s.db.WithContext(ctx).First(&model, "email = ?", oa.NormalizeEmail(email)).Error; err != nil {
		return nil, notFound(err)
	}
	otp := model.ToPendingOtp()
	if err := otp.Validate(); err != nil {
		return nil, err
	}
	return otp, nil
}

func (s *Store) DeletePendingOtp(ctx context.Context, email string) error {
	return s.db.WithContext(ctx).Delete(&PendingOtpModel{}, "email = ?", oa.NormalizeEmail(email)).Error
}

// =============================================================================
// UserStore
// =============================================================================

func (s *Store) CreateUser(ctx context.Context, user *oa.User) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return createUser(tx, user)
	})
}

func createUser(tx *gorm.DB, user *oa.User) error {
	model := FromUser(user)
	var count int64
	if err := tx.Model(&UserModel{}).Where("email = ?", model.Email).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return oa.ErrEmailTaken
	}
	if err := tx.Create(model).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return oa.ErrEmailTaken
		}
		return err
	}
	return nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*oa.User, error) {
	var model UserModel
	if err := s.db.WithContext(ctx).First(&model, "email = ?", oa.NormalizeEmail(email)).Error; err != nil {
		return nil, notFound(err)
	}
	u := model.ToUser()
	if err := u.Validate(); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *Store) DeleteUser(ctx context.Context, email string) error {
	return s.db.WithContext(ctx).Delete(&UserModel{}, "email = ?", oa.NormalizeEmail(email)).Error
}

// PromotePendingRegistration creates the user and clears the pending rows in
// one transaction.
func (s *Store) PromotePendingRegistration(ctx context.Context, user *oa.User) error {
	email := oa.NormalizeEmail(user.Email)
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := createUser(tx, user); err != nil {
			return err
		}
		if err := tx.Delete(&PendingRegistrationModel{}, "email = ?", email).Error; err != nil {
			return fmt.Errorf("failed to delete pending registration: %w", err)
		}
		if err := tx.Delete(&PendingOtpModel{}, "email = ?", email).Error; err != nil {
			return fmt.Errorf("failed to delete pending otp: %w", err)
		}
		return nil
	})
}

// =============================================================================
// AdminList
// =============================================================================

func (s *Store) AdminEmails(ctx context.Context) ([]string, error) {
	var emails []string
	if err := s.db.WithContext(ctx).Model(&AdminModel{}).Order("email").Pluck("email", &emails).Error; err != nil {
		return nil, err
	}
	return emails, nil
}

func (s *Store) AddAdmin(ctx context.Context, email string) error {
	email = oa.NormalizeEmail(email)
	if email == "" {
		return fmt.Errorf("admin email is required")
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&AdminModel{Email: email}).Error
}

func (s *Store) RemoveAdmin(ctx context.Context, email string) error {
	return s.db.WithContext(ctx).Delete(&AdminModel{}, "email = ?", oa.NormalizeEmail(email)).Error
}
