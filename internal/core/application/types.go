package application

import (
	"github.com/vulpemventures/keeper/internal/core/domain"
	"github.com/vulpemventures/keeper/pkg/envelope"
)

const (
	RecoverySourceCloud RecoverySource = iota
	RecoverySourceMnemonic
)

const (
	CloudBackupUnknown CloudBackupAvailability = iota
	CloudBackupAvailable
	CloudBackupMissing
)

type RecoverySource int

func (s RecoverySource) String() string {
	switch s {
	case RecoverySourceCloud:
		return "cloud"
	case RecoverySourceMnemonic:
		return "mnemonic"
	default:
		return "unknown"
	}
}

type CloudBackupAvailability int

func (a CloudBackupAvailability) String() string {
	switch a {
	case CloudBackupAvailable:
		return "available"
	case CloudBackupMissing:
		return "missing"
	default:
		return "unknown"
	}
}

// RecoveryRequest holds either an envelope with its password, or the words
// typed by the user, plus the address of the wallet being recovered.
type RecoveryRequest struct {
	ExpectedAddress string
	Envelope        *envelope.Envelope
	Password        string
	TypedWords      []string
}

func (r RecoveryRequest) validate() error {
	if r.ExpectedAddress == "" {
		return domain.ErrMissingAddress
	}
	hasEnvelope := r.Envelope != nil
	hasWords := len(r.TypedWords) > 0
	if hasEnvelope == hasWords {
		return ErrInvalidRecoveryRequest
	}
	if hasEnvelope && len(r.Password) <= 0 {
		return domain.ErrMissingPassword
	}
	return nil
}

func (r RecoveryRequest) source() RecoverySource {
	if r.Envelope != nil {
		return RecoverySourceCloud
	}
	return RecoverySourceMnemonic
}

// RecoveryResult is a reconciled wallet, not yet persisted to the secure
// store.
type RecoveryResult struct {
	Wallet *domain.WalletIdentity
	Source RecoverySource
	Linked domain.LinkedWallet
}

// RecoverableWallet is a wallet linked to the account but not present on
// the device.
type RecoverableWallet struct {
	domain.LinkedWallet
	CloudBackup CloudBackupAvailability
}

type BackupStatus struct {
	Address       string
	LocalBackupAt int64
	CloudBackupAt int64
}

func (s BackupStatus) HasLocalBackup() bool {
	return s.LocalBackupAt > 0
}

func (s BackupStatus) HasCloudBackup() bool {
	return s.CloudBackupAt > 0
}
