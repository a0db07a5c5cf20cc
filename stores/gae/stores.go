//go:build !wasm
// +build !wasm

package gae

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/datastore"
	"google.golang.org/api/iterator"

	oa "github.com/panyam/tenantauth"
)

// Kind constants for Datastore entities
const (
	KindUser                = "User"
	KindPendingRegistration = "PendingRegistration"
	KindPendingOtp          = "PendingOtp"
	KindAdmin               = "Admin"
)

// Store implements oa.RegistrationStore and oa.AdminList using Google Cloud
// Datastore. Every entity is keyed by normalized email, so email uniqueness
// falls out of the key space.
type Store struct {
	client    *datastore.Client
	namespace string
}

// NewStore creates a Datastore-backed store in the given namespace ("" for default)
func NewStore(client *datastore.Client, namespace string) *Store {
	return &Store{client: client, namespace: namespace}
}

func (s *Store) namespacedKey(kind, name string) *datastore.Key {
	key := datastore.NameKey(kind, name, nil)
	key.Namespace = s.namespace
	return key
}

func (s *Store) emailKey(kind, email string) *datastore.Key {
	return s.namespacedKey(kind, oa.NormalizeEmail(email))
}

func notFound(err error) error {
	if errors.Is(err, datastore.ErrNoSuchEntity) {
		return oa.ErrNotFound
	}
	return err
}

// ============================================================================
// PendingRegistrationStore
// ============================================================================

func (s *Store) PutPendingRegistration(ctx context.Context, p *oa.PendingRegistration) error {
	key := s.emailKey(KindPendingRegistration, p.Email)
	entity := &PendingRegistrationEntity{
		Key:       key,
		Name:      p.Name,
		Password:  p.Password,
		Phone:     p.Phone,
		CreatedAt: p.CreatedAt,
	}
	_, err := s.client.Put(ctx, key, entity)
	return err
}

func (s *Store) GetPendingRegistration(ctx context.Context, email string) (*oa.PendingRegistration, error) {
	var entity PendingRegistrationEntity
	if err := s.client.Get(ctx, s.emailKey(KindPendingRegistration, email), &entity); err != nil {
		return nil, notFound(err)
	}
	p := entity.ToPendingRegistration()
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Store) DeletePendingRegistration(ctx context.Context, email string) error {
	return s.client.Delete(ctx, s.emailKey(KindPendingRegistration, email))
}

// ============================================================================
// OtpStore
// ============================================================================

func (s *Store) PutPendingOtp(ctx context.Context, otp *oa.PendingOtp) error {
	key := s.emailKey(KindPendingOtp, otp.Email)
	_, err := s.client.Put(ctx, key, &PendingOtpEntity{Key: key, Code: otp.Code, ExpiresAt: otp.ExpiresAt})
	return err
}

func (s *Store) GetPendingOtp(ctx context.Context, email string) (*oa.PendingOtp, error) {
	var entity PendingOtpEntity
	if err := s.client.Get(ctx, s.emailKey(KindPendingOtp, email), &entity); err != nil {
		return nil, notFound(err)
	}
	otp := entity.ToPendingOtp()
	if err := otp.Validate(); err != nil {
		return nil, err
	}
	return otp, nil
}

func (s *Store) DeletePendingOtp(ctx context.Context, email string) error {
	return s.client.Delete(ctx, s.emailKey(KindPendingOtp, email))
}

// ============================================================================
// UserStore
// ============================================================================

func createUserTx(tx *datastore.Transaction, key *datastore.Key, user *oa.User) error {
	var existing UserEntity
	err := tx.Get(key, &existing)
	if err == nil {
		return oa.ErrEmailTaken
	}
	if !errors.Is(err, datastore.ErrNoSuchEntity) {
		return err
	}
	_, err = tx.Put(key, UserToEntity(user, key))
	return err
}

func (s *Store) CreateUser(ctx context.Context, user *oa.User) error {
	key := s.emailKey(KindUser, user.Email)
	_, err := s.client.RunInTransaction(ctx, func(tx *datastore.Transaction) error {
		return createUserTx(tx, key, user)
	})
	return err
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*oa.User, error) {
	var entity UserEntity
	if err := s.client.Get(ctx, s.emailKey(KindUser, email), &entity); err != nil {
		return nil, notFound(err)
	}
	u := entity.ToUser()
	if err := u.Validate(); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *Store) DeleteUser(ctx context.Context, email string) error {
	return s.client.Delete(ctx, s.emailKey(KindUser, email))
}

// PromotePendingRegistration creates the user and removes the pending
// entities in one transaction.
func (s *Store) PromotePendingRegistration(ctx context.Context, user *oa.User) error {
	userKey := s.emailKey(KindUser, user.Email)
	pendingKey := s.emailKey(KindPendingRegistration, user.Email)
	otpKey := s.emailKey(KindPendingOtp, user.Email)
	_, err := s.client.RunInTransaction(ctx, func(tx *datastore.Transaction) error {
		if err := createUserTx(tx, userKey, user); err != nil {
			return err
		}
		if err := tx.DeleteMulti([]*datastore.Key{pendingKey, otpKey}); err != nil {
			return fmt.Errorf("failed to delete pending entities: %w", err)
		}
		return nil
	})
	return err
}

// ============================================================================
// AdminList
// ============================================================================

func (s *Store) AdminEmails(ctx context.Context) ([]string, error) {
	q := datastore.NewQuery(KindAdmin).Namespace(s.namespace).KeysOnly()
	it := s.client.Run(ctx, q)
	var emails []string
	for {
		key, err := it.Next(nil)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, err
		}
		emails = append(emails, key.Name)
	}
	return emails, nil
}

func (s *Store) AddAdmin(ctx context.Context, email string) error {
	if oa.NormalizeEmail(email) == "" {
		return fmt.Errorf("admin email is required")
	}
	key := s.emailKey(KindAdmin, email)
	_, err := s.client.Put(ctx, key, &AdminEntity{Key: key, CreatedAt: time.Now()})
	return err
}

func (s *Store) RemoveAdmin(ctx context.Context, email string) error {
	return s.client.Delete(ctx, s.emailKey(KindAdmin, email))
}
