package tenantauth_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	oa "github.com/panyam/tenantauth"
	"github.com/panyam/tenantauth/stores"
)

// recordingDispatcher remembers the last code per destination
type recordingDispatcher struct {
	mu      sync.Mutex
	emails  map[string]string
	texts   map[string]string
	failAll bool
}

func newRecordingDispatcher() *recordingDispatcher {
	return &recordingDispatcher{emails: map[string]string{}, texts: map[string]string{}}
}

func (d *recordingDispatcher) SendEmailOTP(ctx context.Context, email, code string) oa.Delivery {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.failAll {
		return oa.Failed(errors.New("smtp unavailable"))
	}
	d.emails[email] = code
	return oa.Delivered
}

func (d *recordingDispatcher) SendSMSOTP(ctx context.Context, phone, code string) oa.Delivery {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.failAll {
		return oa.Failed(errors.New("sms unavailable"))
	}
	d.texts[phone] = code
	return oa.Delivered
}

func (d *recordingDispatcher) emailCode(email string) string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.emails[email]
}

func (d *recordingDispatcher) textCode(phone string) string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.texts[phone]
}

type recordingSyncer struct {
	mu     sync.Mutex
	events []oa.AccountCreated
	err    error
}

func (s *recordingSyncer) EnqueueAccountCreated(ctx context.Context, event oa.AccountCreated) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return s.err
}

func (s *recordingSyncer) all() []oa.AccountCreated {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]oa.AccountCreated(nil), s.events...)
}

// testClock is a settable time source
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type testEnv struct {
	registrar  *oa.Registrar
	store      *stores.BlobStore
	dir        string
	dispatcher *recordingDispatcher
	syncer     *recordingSyncer
	clock      *testClock
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()
	env := &testEnv{
		store:      stores.NewFSBlobStore(dir),
		dir:        dir,
		dispatcher: newRecordingDispatcher(),
		syncer:     &recordingSyncer{},
		clock:      &testClock{now: time.Date(2024, 4, 5, 10, 0, 0, 0, time.UTC)},
	}
	env.registrar = &oa.Registrar{
		Store:      env.store,
		Dispatcher: env.dispatcher,
		Syncer:     env.syncer,
		Clock:      env.clock.Now,
	}
	return env
}

// failingStore injects errors into selected operations
type failingStore struct {
	oa.RegistrationStore
	putPendingErr error
	promoteErr    error
}

func (s *failingStore) PutPendingRegistration(ctx context.Context, p *oa.PendingRegistration) error {
	if s.putPendingErr != nil {
		return s.putPendingErr
	}
	return s.RegistrationStore.PutPendingRegistration(ctx, p)
}

func (s *failingStore) PromotePendingRegistration(ctx context.Context, u *oa.User) error {
	if s.promoteErr != nil {
		return s.promoteErr
	}
	return s.RegistrationStore.PromotePendingRegistration(ctx, u)
}

// authCode extracts the code of an *AuthError, or "" when err is not one
func authCode(err error) string {
	var authErr *oa.AuthError
	if errors.As(err, &authErr) {
		return authErr.Code
	}
	return ""
}
