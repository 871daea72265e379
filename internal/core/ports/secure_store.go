package ports

import (
	"context"

	"github.com/vulpemventures/keeper/internal/core/domain"
)

// SecureStore is the device-local encrypted storage of wallet identities,
// keyed by address.
type SecureStore interface {
	// Get returns nil with no error if there's no record for the address.
	Get(ctx context.Context, address string) (*domain.WalletIdentity, error)
	// Set inserts or replaces the record for the wallet's address.
	Set(ctx context.Context, wallet *domain.WalletIdentity) error
	List(ctx context.Context) ([]*domain.WalletIdentity, error)
	Close()
}
