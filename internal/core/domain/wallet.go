package domain

import (
	"fmt"
	"strings"

	"github.com/vulpemventures/keeper/pkg/wallet/mnemonic"
)

type BackupKind int

const (
	BackupLocal BackupKind = iota
	BackupCloud
)

func (k BackupKind) String() string {
	switch k {
	case BackupLocal:
		return "local"
	case BackupCloud:
		return "cloud"
	default:
		return "unknown"
	}
}

// Account is the authenticated user account wallets are linked to.
type Account struct {
	ID string
}

func (a Account) Validate() error {
	if a.ID == "" {
		return ErrMissingAccount
	}
	return nil
}

// LinkedWallet is the server-side record of a wallet linked to an account.
// Timestamps are unix seconds, zero means never.
type LinkedWallet struct {
	Address       string
	Label         string
	CreatedAt     int64
	LocalBackupAt int64
	CloudBackupAt int64
}

// WalletIdentity is the unit being backed up and recovered.
// An empty Seed means the wallet was imported read-only.
// Timestamps are unix seconds of the last known backup confirmations, zero
// means none.
type WalletIdentity struct {
	Address       string `json:"address"`
	Seed          string `json:"seed,omitempty"`
	LocalBackupAt int64  `json:"localBackupAt,omitempty"`
	CloudBackupAt int64  `json:"cloudBackupAt,omitempty"`
}

// NewWalletIdentity returns a new identity after making sure the seed is a
// valid mnemonic that derives the given address.
func NewWalletIdentity(
	address, seed string, deriver IAddressDeriver,
) (*WalletIdentity, error) {
	if address == "" {
		return nil, ErrMissingAddress
	}

	w, err := NewWalletIdentityFromMnemonic(strings.Fields(seed), deriver)
	if err != nil {
		return nil, err
	}
	if w.Address != address {
		return nil, ErrInvalidWalletIdentity
	}
	return w, nil
}

// NewWalletIdentityFromMnemonic returns the identity of the wallet whose
// address is derived from the given words.
func NewWalletIdentityFromMnemonic(
	words []string, deriver IAddressDeriver,
) (*WalletIdentity, error) {
	words = mnemonic.Normalize(words)
	if err := mnemonic.Validate(words); err != nil {
		return nil, err
	}

	address, err := deriver.DeriveAddress(words)
	if err != nil {
		return nil, fmt.Errorf("failed to derive wallet address: %w", err)
	}
	if address == "" {
		return nil, ErrMissingAddress
	}

	return &WalletIdentity{
		Address: address,
		Seed:    strings.Join(words, " "),
	}, nil
}

// NewReadOnlyWalletIdentity returns an identity without seed.
func NewReadOnlyWalletIdentity(address string) (*WalletIdentity, error) {
	if address == "" {
		return nil, ErrMissingAddress
	}
	return &WalletIdentity{Address: address}, nil
}

func (w *WalletIdentity) IsReadOnly() bool {
	return w.Seed == ""
}

func (w *WalletIdentity) Mnemonic() []string {
	if w.IsReadOnly() {
		return nil
	}
	return strings.Split(w.Seed, " ")
}

func (w *WalletIdentity) HasLocalBackup() bool {
	return w.LocalBackupAt > 0
}

func (w *WalletIdentity) HasCloudBackup() bool {
	return w.CloudBackupAt > 0
}

// MergeBackupStatus replaces the backup timestamps with the ones of the
// registry record, which is the source of truth for backup status.
func (w *WalletIdentity) MergeBackupStatus(linked LinkedWallet) error {
	if linked.Address != w.Address {
		return ErrWalletAddressMismatch
	}
	w.LocalBackupAt = linked.LocalBackupAt
	w.CloudBackupAt = linked.CloudBackupAt
	return nil
}

// Copy returns a deep copy of the identity.
func (w *WalletIdentity) Copy() *WalletIdentity {
	c := *w
	return &c
}
