// Package client is a Go client for the tenantauth HTTP endpoints. It keeps
// the session cookie per server in a CredentialStore and replays it on
// later requests.
package client

import (
	"sort"
	"sync"
	"time"
)

// ServerCredential holds the session issued by one server
type ServerCredential struct {
	// Session is the raw cookie value as the server set it
	Session   string    `json:"session"`
	Email     string    `json:"email,omitempty"`
	Role      string    `json:"role,omitempty"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

// IsExpired returns true if the session cookie has expired
func (c *ServerCredential) IsExpired() bool {
	return !c.ExpiresAt.IsZero() && time.Now().After(c.ExpiresAt)
}

// CredentialStore defines the interface for storing and retrieving credentials
type CredentialStore interface {
	// GetCredential retrieves a credential for a server URL
	// Returns nil, nil if no credential exists for the server
	GetCredential(serverURL string) (*ServerCredential, error)

	// SetCredential stores a credential for a server URL
	SetCredential(serverURL string, cred *ServerCredential) error

	// RemoveCredential removes a credential for a server URL
	RemoveCredential(serverURL string) error

	// ListServers returns all server URLs with stored credentials
	ListServers() ([]string, error)

	// Save persists any pending changes (for stores that batch writes)
	Save() error
}

// MemoryCredentialStore keeps credentials for the life of the process
type MemoryCredentialStore struct {
	mu    sync.Mutex
	creds map[string]*ServerCredential
}

func NewMemoryCredentialStore() *MemoryCredentialStore {
	return &MemoryCredentialStore{creds: make(map[string]*ServerCredential)}
}

func (m *MemoryCredentialStore) GetCredential(serverURL string) (*ServerCredential, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.creds[serverURL], nil
}

func (m *MemoryCredentialStore) SetCredential(serverURL string, cred *ServerCredential) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.creds[serverURL] = cred
	return nil
}

func (m *MemoryCredentialStore) RemoveCredential(serverURL string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.creds, serverURL)
	return nil
}

func (m *MemoryCredentialStore) ListServers() ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.creds))
	for k := range m.creds {
		out = append(out, k)
	}
	sort.Strings(out)
	return out, nil
}

func (m *MemoryCredentialStore) Save() error { return nil }
