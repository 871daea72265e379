package application

import (
	"context"
	"fmt"
	"sort"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/vulpemventures/keeper/internal/core/domain"
	"github.com/vulpemventures/keeper/internal/core/ports"
	"github.com/vulpemventures/keeper/pkg/metrics"
)

// RecoveryService restores wallets on a device, either from their cloud
// backup or from the mnemonic typed by the user.
//
// Recovery is split in two phases: Reconcile and its variants only read and
// never touch the secure store, while Commit persists a reconciled wallet.
type RecoveryService struct {
	store    ports.SecureStore
	registry ports.WalletRegistry
	codec    ports.EnvelopeCodec
	channel  *CloudBackupChannel
	deriver  domain.IAddressDeriver
	recorder metrics.Recorder
}

func NewRecoveryService(
	store ports.SecureStore, registry ports.WalletRegistry,
	codec ports.EnvelopeCodec, channel *CloudBackupChannel,
	deriver domain.IAddressDeriver, recorder metrics.Recorder,
) *RecoveryService {
	if recorder == nil {
		recorder = metrics.NewNoopRecorder()
	}
	return &RecoveryService{store, registry, codec, channel, deriver, recorder}
}

// Reconcile returns the recovered wallet after making sure it's the one
// expected and that it was previously linked to the account. The backup
// status of the result is the one of the registry.
func (s *RecoveryService) Reconcile(
	ctx context.Context, account domain.Account, req RecoveryRequest,
) (res *RecoveryResult, err error) {
	defer s.observe("reconcile", time.Now(), &err)

	if err := account.Validate(); err != nil {
		return nil, err
	}
	if err := req.validate(); err != nil {
		return nil, err
	}

	source := req.source()
	var candidate *domain.WalletIdentity
	if source == RecoverySourceCloud {
		candidate, err = s.codec.Decrypt(req.Password, req.Envelope)
	} else {
		candidate, err = domain.NewWalletIdentityFromMnemonic(
			req.TypedWords, s.deriver,
		)
	}
	if err != nil {
		return nil, err
	}

	if candidate.Address != req.ExpectedAddress {
		s.logFn(
			"%s recovery produced a wallet other than the expected %s",
			source, req.ExpectedAddress,
		)
		return nil, domain.ErrWalletAddressMismatch
	}

	linked, err := s.registry.GetLinkedWallet(ctx, account, candidate.Address)
	if err != nil {
		return nil, fmt.Errorf("failed to get linked wallet: %w", err)
	}
	if linked == nil {
		s.logFn(
			"wallet %s is not linked to account %s", candidate.Address, account.ID,
		)
		return nil, domain.ErrWalletNotPreviouslyLinked
	}

	if err := candidate.MergeBackupStatus(*linked); err != nil {
		return nil, err
	}

	s.logFn("reconciled wallet %s from %s", candidate.Address, source)
	return &RecoveryResult{
		Wallet: candidate,
		Source: source,
		Linked: *linked,
	}, nil
}

// RecoverFromCloud downloads the backup of the expected wallet and
// reconciles it.
func (s *RecoveryService) RecoverFromCloud(
	ctx context.Context, account domain.Account,
	expectedAddress, password string,
) (*RecoveryResult, error) {
	if len(password) <= 0 {
		return nil, domain.ErrMissingPassword
	}

	env, err := s.channel.Read(ctx, account, expectedAddress)
	if err != nil {
		return nil, err
	}
	return s.Reconcile(ctx, account, RecoveryRequest{
		ExpectedAddress: expectedAddress,
		Envelope:        env,
		Password:        password,
	})
}

func (s *RecoveryService) RecoverFromMnemonic(
	ctx context.Context, account domain.Account,
	expectedAddress string, words []string,
) (*RecoveryResult, error) {
	if len(words) <= 0 {
		return nil, domain.ErrInvalidPhraseLength
	}
	return s.Reconcile(ctx, account, RecoveryRequest{
		ExpectedAddress: expectedAddress,
		TypedWords:      words,
	})
}

// Commit stores the reconciled wallet on the device, replacing any previous
// record with the same address.
func (s *RecoveryService) Commit(
	ctx context.Context, result *RecoveryResult,
) (err error) {
	defer s.observe("commit_recovery", time.Now(), &err)

	if result == nil || result.Wallet == nil {
		return ErrMissingRecoveryResult
	}
	if err := s.store.Set(ctx, result.Wallet); err != nil {
		return fmt.Errorf("failed to store wallet: %w", err)
	}

	s.logFn("committed recovery of wallet %s", result.Wallet.Address)
	return nil
}

// ListRecoverableWallets returns the wallets linked to the account that are
// either missing on the device or stored read-only. Failing to reach the
// cloud storage only downgrades the availability of the backups to unknown.
func (s *RecoveryService) ListRecoverableWallets(
	ctx context.Context, account domain.Account,
) (list []RecoverableWallet, err error) {
	defer s.observe("list_recoverable_wallets", time.Now(), &err)

	if err := account.Validate(); err != nil {
		return nil, err
	}

	linked, err := s.registry.ListLinkedWallets(ctx, account)
	if err != nil {
		return nil, fmt.Errorf("failed to list linked wallets: %w", err)
	}

	list = make([]RecoverableWallet, 0, len(linked))
	addresses := make([]string, 0, len(linked))
	for _, l := range linked {
		stored, err := s.store.Get(ctx, l.Address)
		if err != nil {
			return nil, fmt.Errorf("failed to get wallet from store: %w", err)
		}
		if stored != nil && !stored.IsReadOnly() {
			continue
		}
		list = append(list, RecoverableWallet{LinkedWallet: l})
		addresses = append(addresses, l.Address)
	}
	if len(list) <= 0 {
		return list, nil
	}

	found, err := s.channel.ExistsMany(ctx, account, addresses)
	if err != nil {
		log.WithError(err).Warn(
			"recovery service: failed to check cloud backups, availability unknown",
		)
	} else {
		for i := range list {
			list[i].CloudBackup = CloudBackupMissing
			if found[list[i].Address] {
				list[i].CloudBackup = CloudBackupAvailable
			}
		}
	}

	sort.SliceStable(list, func(i, j int) bool {
		return list[i].CreatedAt < list[j].CreatedAt
	})
	return list, nil
}

func (s *RecoveryService) observe(operation string, start time.Time, err *error) {
	s.recorder.Observe(operation, start, *err)
}

func (s *RecoveryService) logFn(format string, a ...interface{}) {
	format = fmt.Sprintf("recovery service: %s", format)
	log.Debugf(format, a...)
}
