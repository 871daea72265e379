package domain

import (
	"errors"
	"fmt"

	"github.com/vulpemventures/keeper/pkg/envelope"
	"github.com/vulpemventures/keeper/pkg/wallet/mnemonic"
)

var (
	ErrIncorrectPassword   = envelope.ErrIncorrectPassword
	ErrUnsupportedEnvelope = envelope.ErrUnsupportedEnvelope
	ErrMissingPassword     = envelope.ErrMissingPassword
	ErrInvalidPhraseLength = mnemonic.ErrInvalidPhraseLength
	ErrInvalidMnemonic     = mnemonic.ErrInvalidMnemonic

	ErrCloudUnavailable          = fmt.Errorf("cloud storage unavailable")
	ErrBackupNotFound            = fmt.Errorf("backup not found")
	ErrWalletAddressMismatch     = fmt.Errorf("recovered wallet does not match the expected address")
	ErrWalletNotPreviouslyLinked = fmt.Errorf("wallet is not linked to the account")
	ErrInvalidWalletIdentity     = fmt.Errorf("seed does not derive the wallet address")
	ErrMissingAddress            = fmt.Errorf("missing wallet address")
	ErrInvalidAddress            = fmt.Errorf("wallet address must be alphanumeric")
	ErrMissingAccount            = fmt.Errorf("missing account")
	ErrWalletReadOnly            = fmt.Errorf("wallet is read-only")
	ErrWalletNotFound            = fmt.Errorf("wallet not found")
	ErrConfirmationIncomplete    = fmt.Errorf("confirmation is incomplete")
	ErrConfirmationMismatch      = fmt.Errorf("words are not in the right order")
	ErrConfirmationCommitted     = fmt.Errorf("confirmation already committed")
)

const (
	ErrCodeInternal                  = "internal"
	ErrCodeIncorrectPassword         = "incorrect_password"
	ErrCodeUnsupportedEnvelope       = "unsupported_envelope"
	ErrCodeCloudUnavailable          = "cloud_unavailable"
	ErrCodeBackupNotFound            = "backup_not_found"
	ErrCodeWalletAddressMismatch     = "wallet_address_mismatch"
	ErrCodeWalletNotPreviouslyLinked = "wallet_not_previously_linked"
	ErrCodeInvalidPhraseLength       = "invalid_phrase_length"
	ErrCodeInvalidMnemonic           = "invalid_mnemonic"
	ErrCodeInvalidWalletIdentity     = "invalid_wallet_identity"
	ErrCodeInvalidArgument           = "invalid_argument"
	ErrCodeWalletReadOnly            = "wallet_read_only"
	ErrCodeWalletNotFound            = "wallet_not_found"
	ErrCodeConfirmationIncomplete    = "confirmation_incomplete"
	ErrCodeConfirmationMismatch      = "confirmation_mismatch"
	ErrCodeConfirmationCommitted     = "confirmation_committed"
)

var errCodes = []struct {
	err  error
	code string
}{
	{ErrIncorrectPassword, ErrCodeIncorrectPassword},
	{ErrUnsupportedEnvelope, ErrCodeUnsupportedEnvelope},
	{ErrCloudUnavailable, ErrCodeCloudUnavailable},
	{ErrBackupNotFound, ErrCodeBackupNotFound},
	{ErrWalletAddressMismatch, ErrCodeWalletAddressMismatch},
	{ErrWalletNotPreviouslyLinked, ErrCodeWalletNotPreviouslyLinked},
	{ErrInvalidPhraseLength, ErrCodeInvalidPhraseLength},
	{ErrInvalidMnemonic, ErrCodeInvalidMnemonic},
	{ErrInvalidWalletIdentity, ErrCodeInvalidWalletIdentity},
	{ErrMissingAddress, ErrCodeInvalidArgument},
	{ErrInvalidAddress, ErrCodeInvalidArgument},
	{ErrMissingAccount, ErrCodeInvalidArgument},
	{ErrMissingPassword, ErrCodeInvalidArgument},
	{ErrWalletReadOnly, ErrCodeWalletReadOnly},
	{ErrWalletNotFound, ErrCodeWalletNotFound},
	{ErrConfirmationIncomplete, ErrCodeConfirmationIncomplete},
	{ErrConfirmationMismatch, ErrCodeConfirmationMismatch},
	{ErrConfirmationCommitted, ErrCodeConfirmationCommitted},
}

// ErrorCode returns the stable code of the kind of the given error, or
// ErrCodeInternal if it's not a known one. Returns an empty string for a nil
// error.
func ErrorCode(err error) string {
	if err == nil {
		return ""
	}
	for _, e := range errCodes {
		if errors.Is(err, e.err) {
			return e.code
		}
	}
	return ErrCodeInternal
}
