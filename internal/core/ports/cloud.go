package ports

import (
	"context"

	"github.com/vulpemventures/keeper/internal/core/domain"
)

// CloudCredential is what the authenticator hands out for an account. Secret
// is provider specific (ie. a password) and must never be logged.
type CloudCredential struct {
	AccountID string
	Username  string
	Secret    string
}

// CloudAuthenticator obtains the credential to access the cloud storage of
// an account.
type CloudAuthenticator interface {
	Authenticate(ctx context.Context, account domain.Account) (*CloudCredential, error)
}

// CloudObjectStore is the capability set required from a cloud storage
// provider. Paths are slash separated and relative to the account namespace.
type CloudObjectStore interface {
	// Ping returns an error if the provider is not reachable.
	Ping(ctx context.Context) error
	Exists(ctx context.Context, path string) (bool, error)
	Read(ctx context.Context, path string) ([]byte, error)
	// Write must be atomic, a concurrent or later reader sees either the
	// previous or the new content.
	Write(ctx context.Context, path string, data []byte) error
	Mkdir(ctx context.Context, path string) error
	// Sync refreshes the local view of the given path. Best-effort.
	Sync(ctx context.Context, path string) error
	Close() error
}

// CloudObjectStoreFactory returns a store scoped to the account of the given
// credential.
type CloudObjectStoreFactory interface {
	Provider() string
	NewStore(ctx context.Context, cred *CloudCredential) (CloudObjectStore, error)
}
