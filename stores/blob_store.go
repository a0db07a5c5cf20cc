package stores

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	oa "github.com/panyam/tenantauth"
)

// Blob names. Each holds one whole table.
const (
	TableUsers   = "users"
	TablePending = "pending"
	TableOtps    = "otps"
	TableAdmins  = "admins"
)

// tables are always locked in this order
var tableOrder = []string{TableUsers, TablePending, TableOtps, TableAdmins}

const defaultMaxRetries = 5

// errNoChange short-circuits an update that would write the same table back.
var errNoChange = errors.New("no change")

// BlobStore implements oa.RegistrationStore and oa.AdminList with one blob
// per table. Every read-modify-write holds the table's mutex and is retried
// when the backend reports a concurrent write from another process.
type BlobStore struct {
	Backend Backend

	// MaxRetries bounds optimistic retries per write. Defaults to 5
	MaxRetries int

	locks map[string]*sync.Mutex
}

func NewBlobStore(backend Backend) *BlobStore {
	s := &BlobStore{Backend: backend, locks: map[string]*sync.Mutex{}}
	for _, t := range tableOrder {
		s.locks[t] = &sync.Mutex{}
	}
	return s
}

// NewFSBlobStore stores tables as JSON files under storagePath.
func NewFSBlobStore(storagePath string) *BlobStore {
	return NewBlobStore(NewFSBackend(storagePath))
}

// lock acquires the named table locks in tableOrder and returns the release func.
func (s *BlobStore) lock(tables ...string) func() {
	var held []*sync.Mutex
	for _, name := range tableOrder {
		for _, t := range tables {
			if t == name {
				mu := s.locks[name]
				mu.Lock()
				held = append(held, mu)
				break
			}
		}
	}
	return func() {
		for i := len(held) - 1; i >= 0; i-- {
			held[i].Unlock()
		}
	}
}

func (s *BlobStore) maxRetries() int {
	if s.MaxRetries > 0 {
		return s.MaxRetries
	}
	return defaultMaxRetries
}

// update runs fn against the current contents of table and writes the
// result back, retrying on version conflicts. The caller holds the lock.
func (s *BlobStore) update(ctx context.Context, table string, fn func(data []byte) ([]byte, error)) error {
	for attempt := 0; attempt < s.maxRetries(); attempt++ {
		data, version, err := s.Backend.Read(ctx, table)
		if err != nil {
			return err
		}
		out, err := fn(data)
		if errors.Is(err, errNoChange) {
			return nil
		} else if err != nil {
			return err
		}
		err = s.Backend.Write(ctx, table, out, version)
		if err == nil {
			return nil
		}
		if !errors.Is(err, oa.ErrConflict) {
			return err
		}
	}
	return fmt.Errorf("%w: %s still contended after %d attempts", oa.ErrConflict, table, s.maxRetries())
}

// decodeTable parses a stored table strictly. An absent blob is an empty table.
func decodeTable(table string, data []byte, dst any) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil
	}
	// null would decode to a nil map that later writes cannot fill
	if bytes.Equal(trimmed, []byte("null")) {
		return fmt.Errorf("%w: %s table is null", oa.ErrCorruptState, table)
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: %s table: %v", oa.ErrCorruptState, table, err)
	}
	return nil
}

func encodeTable(v any) ([]byte, error) {
	return json.MarshalIndent(v, "", "  ")
}

func decodePending(data []byte) (map[string]*oa.PendingRegistration, error) {
	out := map[string]*oa.PendingRegistration{}
	if err := decodeTable(TablePending, data, &out); err != nil {
		return nil, err
	}
	for key, p := range out {
		if err := p.Validate(); err != nil {
			return nil, err
		}
		if oa.NormalizeEmail(p.Email) != key {
			return nil, fmt.Errorf("%w: pending key %q does not match %q", oa.ErrCorruptState, key, p.Email)
		}
	}
	return out, nil
}

func decodeOtps(data []byte) (map[string]*oa.PendingOtp, error) {
	out := map[string]*oa.PendingOtp{}
	if err := decodeTable(TableOtps, data, &out); err != nil {
		return nil, err
	}
	for key, o := range out {
		if err := o.Validate(); err != nil {
			return nil, err
		}
		if oa.NormalizeEmail(o.Email) != key {
			return nil, fmt.Errorf("%w: otp key %q does not match %q", oa.ErrCorruptState, key, o.Email)
		}
	}
	return out, nil
}

func decodeUsers(data []byte) ([]*oa.User, error) {
	var out []*oa.User
	if err := decodeTable(TableUsers, data, &out); err != nil {
		return nil, err
	}
	seen := map[string]bool{}
	for _, u := range out {
		if err := u.Validate(); err != nil {
			return nil, err
		}
		if seen[u.Email] {
			return nil, fmt.Errorf("%w: duplicate user %q", oa.ErrCorruptState, u.Email)
		}
		seen[u.Email] = true
	}
	return out, nil
}

func (s *BlobStore) readTable(ctx context.Context, table string) ([]byte, error) {
	data, _, err := s.Backend.Read(ctx, table)
	return data, err
}

// Pending registrations

func (s *BlobStore) PutPendingRegistration(ctx context.Context, p *oa.PendingRegistration) error {
	defer s.lock(TablePending)()
	record := *p
	record.Email = oa.NormalizeEmail(p.Email)
	return s.update(ctx, TablePending, func(data []byte) ([]byte, error) {
		table, err := decodePending(data)
		if err != nil {
			return nil, err
		}
		table[record.Email] = &record
		return encodeTable(table)
	})
}

func (s *BlobStore) GetPendingRegistration(ctx context.Context, email string) (*oa.PendingRegistration, error) {
	data, err := s.readTable(ctx, TablePending)
	if err != nil {
		return nil, err
	}
	table, err := decodePending(data)
	if err != nil {
		return nil, err
	}
	p, ok := table[oa.NormalizeEmail(email)]
	if !ok {
		return nil, oa.ErrNotFound
	}
	return p, nil
}

func (s *BlobStore) DeletePendingRegistration(ctx context.Context, email string) error {
	defer s.lock(TablePending)()
	return s.deletePending(ctx, oa.NormalizeEmail(email))
}

func (s *BlobStore) deletePending(ctx context.Context, email string) error {
	return s.update(ctx, TablePending, func(data []byte) ([]byte, error) {
		table, err := decodePending(data)
		if err != nil {
			return nil, err
		}
		if _, ok := table[email]; !ok {
			return nil, errNoChange
		}
		delete(table, email)
		return encodeTable(table)
	})
}

// OTPs

func (s *BlobStore) PutPendingOtp(ctx context.Context, otp *oa.PendingOtp) error {
	defer s.lock(TableOtps)()
	record := *otp
	record.Email = oa.NormalizeEmail(otp.Email)
	return s.update(ctx, TableOtps, func(data []byte) ([]byte, error) {
		table, err := decodeOtps(data)
		if err != nil {
			return nil, err
		}
		table[record.Email] = &record
		return encodeTable(table)
	})
}

func (s *BlobStore) GetPendingOtp(ctx context.Context, email string) (*oa.PendingOtp, error) {
	data, err := s.readTable(ctx, TableOtps)
	if err != nil {
		return nil, err
	}
	table, err := decodeOtps(data)
	if err != nil {
		return nil, err
	}
	otp, ok := table[oa.NormalizeEmail(email)]
	if !ok {
		return nil, oa.ErrNotFound
	}
	return otp, nil
}

func (s *BlobStore) DeletePendingOtp(ctx context.Context, email string) error {
	defer s.lock(TableOtps)()
	return s.deleteOtp(ctx, oa.NormalizeEmail(email))
}

func (s *BlobStore) deleteOtp(ctx context.Context, email string) error {
	return s.update(ctx, TableOtps, func(data []byte) ([]byte, error) {
		table, err := decodeOtps(data)
		if err != nil {
			return nil, err
		}
		if _, ok := table[email]; !ok {
			return nil, errNoChange
		}
		delete(table, email)
		return encodeTable(table)
	})
}

// Users

func (s *BlobStore) CreateUser(ctx context.Context, user *oa.User) error {
	defer s.lock(TableUsers)()
	return s.createUser(ctx, user)
}

func (s *BlobStore) createUser(ctx context.Context, user *oa.User) error {
	record := *user
	record.Email = oa.NormalizeEmail(user.Email)
	return s.update(ctx, TableUsers, func(data []byte) ([]byte, error) {
		users, err := decodeUsers(data)
		if err != nil {
			return nil, err
		}
		for _, u := range users {
			if strings.EqualFold(u.Email, record.Email) {
				return nil, oa.ErrEmailTaken
			}
		}
		return encodeTable(append(users, &record))
	})
}

func (s *BlobStore) GetUserByEmail(ctx context.Context, email string) (*oa.User, error) {
	data, err := s.readTable(ctx, TableUsers)
	if err != nil {
		return nil, err
	}
	users, err := decodeUsers(data)
	if err != nil {
		return nil, err
	}
	email = oa.NormalizeEmail(email)
	for _, u := range users {
		if strings.EqualFold(u.Email, email) {
			return u, nil
		}
	}
	return nil, oa.ErrNotFound
}

func (s *BlobStore) DeleteUser(ctx context.Context, email string) error {
	defer s.lock(TableUsers)()
	email = oa.NormalizeEmail(email)
	return s.update(ctx, TableUsers, func(data []byte) ([]byte, error) {
		users, err := decodeUsers(data)
		if err != nil {
			return nil, err
		}
		kept := users[:0]
		for _, u := range users {
			if !strings.EqualFold(u.Email, email) {
				kept = append(kept, u)
			}
		}
		if len(kept) == len(users) {
			return nil, errNoChange
		}
		return encodeTable(kept)
	})
}

// PromotePendingRegistration holds the users, pending and otps locks for the
// whole step. The user write is the commit point; the two deletes after it
// are idempotent and retried independently.
func (s *BlobStore) PromotePendingRegistration(ctx context.Context, user *oa.User) error {
	defer s.lock(TableUsers, TablePending, TableOtps)()
	email := oa.NormalizeEmail(user.Email)
	if err := s.createUser(ctx, user); err != nil {
		return err
	}
	if err := s.deletePending(ctx, email); err != nil {
		return fmt.Errorf("user %s created but pending registration not cleared: %w", email, err)
	}
	if err := s.deleteOtp(ctx, email); err != nil {
		return fmt.Errorf("user %s created but otp not cleared: %w", email, err)
	}
	return nil
}

// Admin allow-list

// AdminEmails implements oa.AdminList.
func (s *BlobStore) AdminEmails(ctx context.Context) ([]string, error) {
	data, err := s.readTable(ctx, TableAdmins)
	if err != nil {
		return nil, err
	}
	var admins []string
	if err := decodeTable(TableAdmins, data, &admins); err != nil {
		return nil, err
	}
	return admins, nil
}

// AddAdmin adds email to the stored allow-list.
func (s *BlobStore) AddAdmin(ctx context.Context, email string) error {
	defer s.lock(TableAdmins)()
	email = oa.NormalizeEmail(email)
	if email == "" {
		return fmt.Errorf("admin email is required")
	}
	return s.update(ctx, TableAdmins, func(data []byte) ([]byte, error) {
		var admins []string
		if err := decodeTable(TableAdmins, data, &admins); err != nil {
			return nil, err
		}
		for _, a := range admins {
			if strings.EqualFold(a, email) {
				return nil, errNoChange
			}
		}
		return encodeTable(append(admins, email))
	})
}

// RemoveAdmin removes email from the stored allow-list.
func (s *BlobStore) RemoveAdmin(ctx context.Context, email string) error {
	defer s.lock(TableAdmins)()
	email = oa.NormalizeEmail(email)
	return s.update(ctx, TableAdmins, func(data []byte) ([]byte, error) {
		var admins []string
		if err := decodeTable(TableAdmins, data, &admins); err != nil {
			return nil, err
		}
		kept := admins[:0]
		for _, a := range admins {
			if !strings.EqualFold(a, email) {
				kept = append(kept, a)
			}
		}
		if len(kept) == len(admins) {
			return nil, errNoChange
		}
		return encodeTable(kept)
	})
}
