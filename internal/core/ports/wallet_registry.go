package ports

import (
	"context"

	"github.com/vulpemventures/keeper/internal/core/domain"
)

// WalletMetadata is the optional info attached to a wallet when linked.
type WalletMetadata struct {
	Label string
}

// WalletRegistry is the server-side list of wallets linked to an account.
// It is the source of truth for backup status.
type WalletRegistry interface {
	ListLinkedWallets(
		ctx context.Context, account domain.Account,
	) ([]domain.LinkedWallet, error)
	// GetLinkedWallet returns nil with no error if the wallet is not linked.
	GetLinkedWallet(
		ctx context.Context, account domain.Account, address string,
	) (*domain.LinkedWallet, error)
	// CreateWalletRecord links the wallet to the account. Linking an already
	// linked wallet is a no-op returning the existing record.
	CreateWalletRecord(
		ctx context.Context, account domain.Account, address string,
		metadata WalletMetadata,
	) (*domain.LinkedWallet, error)
	// MarkBackup records a confirmed backup of the given kind.
	// Returns domain.ErrWalletNotPreviouslyLinked if not linked.
	MarkBackup(
		ctx context.Context, account domain.Account, address string,
		kind domain.BackupKind,
	) (*domain.LinkedWallet, error)
	Close()
}
