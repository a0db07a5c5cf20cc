package stores

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	oa "github.com/panyam/tenantauth"
)

// Backend stores whole named blobs with a version token for optimistic
// concurrency.
type Backend interface {
	// Read returns the blob and its version. A missing blob is (nil, "", nil).
	Read(ctx context.Context, name string) (data []byte, version string, err error)

	// Write replaces the blob only if its current version is ifVersion, where
	// "" means the blob must not exist yet. Otherwise it returns oa.ErrConflict.
	Write(ctx context.Context, name string, data []byte, ifVersion string) error
}

// FSBackend keeps each blob as <Root>/<name>.json. The version check and
// rename are atomic only within one process, so a data directory must not
// be shared by several servers; use S3Backend for that.
type FSBackend struct {
	Root string

	// serializes the compare and rename within this process
	mu sync.Mutex
}

func NewFSBackend(root string) *FSBackend {
	return &FSBackend{Root: root}
}

func (b *FSBackend) path(name string) string {
	return filepath.Join(b.Root, name+".json")
}

func (b *FSBackend) Read(ctx context.Context, name string) ([]byte, string, error) {
	data, err := os.ReadFile(b.path(name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, "", nil
		}
		return nil, "", fmt.Errorf("failed to read %s: %w", name, err)
	}
	return data, contentVersion(data), nil
}

func (b *FSBackend) Write(ctx context.Context, name string, data []byte, ifVersion string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	_, current, err := b.Read(ctx, name)
	if err != nil {
		return err
	}
	if current != ifVersion {
		return fmt.Errorf("%w: %s changed since read", oa.ErrConflict, name)
	}
	if err := os.MkdirAll(b.Root, 0755); err != nil {
		return err
	}
	return writeAtomicFile(b.path(name), data)
}
