package application

import (
	"context"
	"fmt"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/vulpemventures/keeper/internal/core/domain"
	"github.com/vulpemventures/keeper/internal/core/ports"
	"github.com/vulpemventures/keeper/pkg/metrics"
	"github.com/vulpemventures/keeper/pkg/wallet/mnemonic"
)

const defaultNumOfWords = 24

// BackupService drives the creation of wallets and their backup, either
// locally by making the user confirm the mnemonic, or in the cloud as a
// password protected envelope.
type BackupService struct {
	store    ports.SecureStore
	registry ports.WalletRegistry
	codec    ports.EnvelopeCodec
	channel  *CloudBackupChannel
	deriver  domain.IAddressDeriver
	shuffler domain.IShuffler
	recorder metrics.Recorder
}

func NewBackupService(
	store ports.SecureStore, registry ports.WalletRegistry,
	codec ports.EnvelopeCodec, channel *CloudBackupChannel,
	deriver domain.IAddressDeriver, shuffler domain.IShuffler,
	recorder metrics.Recorder,
) *BackupService {
	if shuffler == nil {
		shuffler = domain.NewCryptoShuffler()
	}
	if recorder == nil {
		recorder = metrics.NewNoopRecorder()
	}
	return &BackupService{
		store, registry, codec, channel, deriver, shuffler, recorder,
	}
}

func (s *BackupService) GenerateMnemonic(
	ctx context.Context, numOfWords int,
) (words []string, err error) {
	defer s.observe("generate_mnemonic", time.Now(), &err)

	if numOfWords == 0 {
		numOfWords = defaultNumOfWords
	}
	entropySize, err := mnemonic.EntropySizeForLength(numOfWords)
	if err != nil {
		return nil, err
	}
	return mnemonic.NewMnemonic(mnemonic.NewMnemonicArgs{
		EntropySize: entropySize,
	})
}

// CreateWallet links the wallet restored from the given mnemonic to the
// account and stores it on the device.
func (s *BackupService) CreateWallet(
	ctx context.Context, account domain.Account, words []string, label string,
) (w *domain.WalletIdentity, err error) {
	defer s.observe("create_wallet", time.Now(), &err)

	if err := account.Validate(); err != nil {
		return nil, err
	}

	wallet, err := domain.NewWalletIdentityFromMnemonic(words, s.deriver)
	if err != nil {
		return nil, err
	}

	linked, err := s.registry.CreateWalletRecord(
		ctx, account, wallet.Address, ports.WalletMetadata{Label: label},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to link wallet: %w", err)
	}
	if err := wallet.MergeBackupStatus(*linked); err != nil {
		return nil, err
	}

	if err := s.store.Set(ctx, wallet); err != nil {
		return nil, fmt.Errorf("failed to store wallet: %w", err)
	}

	s.logFn("created wallet %s for account %s", wallet.Address, account.ID)
	return wallet.Copy(), nil
}

// ImportReadOnlyWallet links and stores a wallet known only by its address.
// An already stored wallet is never downgraded to read-only.
func (s *BackupService) ImportReadOnlyWallet(
	ctx context.Context, account domain.Account, address, label string,
) (w *domain.WalletIdentity, err error) {
	defer s.observe("import_read_only_wallet", time.Now(), &err)

	if err := account.Validate(); err != nil {
		return nil, err
	}

	wallet, err := domain.NewReadOnlyWalletIdentity(address)
	if err != nil {
		return nil, err
	}
	stored, err := s.store.Get(ctx, address)
	if err != nil {
		return nil, fmt.Errorf("failed to get wallet from store: %w", err)
	}
	if stored != nil {
		wallet = stored
	}

	linked, err := s.registry.CreateWalletRecord(
		ctx, account, address, ports.WalletMetadata{Label: label},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to link wallet: %w", err)
	}
	if err := wallet.MergeBackupStatus(*linked); err != nil {
		return nil, err
	}

	if err := s.store.Set(ctx, wallet); err != nil {
		return nil, fmt.Errorf("failed to store wallet: %w", err)
	}

	s.logFn("imported wallet %s for account %s", address, account.ID)
	return wallet.Copy(), nil
}

// BackupToCloud encrypts the stored wallet with the given password and
// uploads the envelope to the cloud storage of the account.
func (s *BackupService) BackupToCloud(
	ctx context.Context, account domain.Account, address, password string,
) (w *domain.WalletIdentity, err error) {
	defer s.observe("backup_to_cloud", time.Now(), &err)

	if err := account.Validate(); err != nil {
		return nil, err
	}

	wallet, err := s.getFullWallet(ctx, address)
	if err != nil {
		return nil, err
	}

	env, err := s.codec.Encrypt(password, wallet)
	if err != nil {
		return nil, err
	}
	if err := s.channel.Write(ctx, account, address, env); err != nil {
		return nil, err
	}

	return s.markBackup(ctx, account, wallet, domain.BackupCloud)
}

// StartLocalBackup returns a new confirmation for the mnemonic of the stored
// wallet.
func (s *BackupService) StartLocalBackup(
	ctx context.Context, address string,
) (c *domain.MnemonicConfirmation, err error) {
	defer s.observe("start_local_backup", time.Now(), &err)

	wallet, err := s.getFullWallet(ctx, address)
	if err != nil {
		return nil, err
	}
	return domain.NewMnemonicConfirmation(
		wallet.Address, wallet.Mnemonic(), s.shuffler,
	)
}

// ConfirmLocalBackup records the local backup of the wallet once the user
// successfully reordered its mnemonic.
func (s *BackupService) ConfirmLocalBackup(
	ctx context.Context, account domain.Account,
	confirmation *domain.MnemonicConfirmation,
) (w *domain.WalletIdentity, err error) {
	defer s.observe("confirm_local_backup", time.Now(), &err)

	if err := account.Validate(); err != nil {
		return nil, err
	}
	if confirmation == nil {
		return nil, ErrMissingConfirmation
	}

	phrase, err := confirmation.ConfirmedPhrase()
	if err != nil {
		return nil, err
	}

	wallet, err := s.getFullWallet(ctx, confirmation.Address())
	if err != nil {
		return nil, err
	}
	if strings.Join(phrase, " ") != wallet.Seed {
		return nil, domain.ErrConfirmationMismatch
	}

	return s.markBackup(ctx, account, wallet, domain.BackupLocal)
}

func (s *BackupService) GetWallet(
	ctx context.Context, address string,
) (*domain.WalletIdentity, error) {
	if address == "" {
		return nil, domain.ErrMissingAddress
	}
	wallet, err := s.store.Get(ctx, address)
	if err != nil {
		return nil, fmt.Errorf("failed to get wallet from store: %w", err)
	}
	if wallet == nil {
		return nil, domain.ErrWalletNotFound
	}
	return wallet, nil
}

// GetBackupStatus returns the backup status of the wallet as known by the
// registry.
func (s *BackupService) GetBackupStatus(
	ctx context.Context, account domain.Account, address string,
) (*BackupStatus, error) {
	if err := account.Validate(); err != nil {
		return nil, err
	}
	if address == "" {
		return nil, domain.ErrMissingAddress
	}

	linked, err := s.registry.GetLinkedWallet(ctx, account, address)
	if err != nil {
		return nil, fmt.Errorf("failed to get linked wallet: %w", err)
	}
	if linked == nil {
		return nil, domain.ErrWalletNotPreviouslyLinked
	}
	return &BackupStatus{
		Address:       linked.Address,
		LocalBackupAt: linked.LocalBackupAt,
		CloudBackupAt: linked.CloudBackupAt,
	}, nil
}

func (s *BackupService) getFullWallet(
	ctx context.Context, address string,
) (*domain.WalletIdentity, error) {
	wallet, err := s.GetWallet(ctx, address)
	if err != nil {
		return nil, err
	}
	if wallet.IsReadOnly() {
		return nil, domain.ErrWalletReadOnly
	}
	return wallet, nil
}

func (s *BackupService) markBackup(
	ctx context.Context, account domain.Account, wallet *domain.WalletIdentity,
	kind domain.BackupKind,
) (*domain.WalletIdentity, error) {
	linked, err := s.registry.MarkBackup(ctx, account, wallet.Address, kind)
	if err != nil {
		return nil, fmt.Errorf("failed to mark %s backup: %w", kind, err)
	}
	if err := wallet.MergeBackupStatus(*linked); err != nil {
		return nil, err
	}
	if err := s.store.Set(ctx, wallet); err != nil {
		return nil, fmt.Errorf("failed to store wallet: %w", err)
	}

	s.logFn("%s backup of wallet %s confirmed", kind, wallet.Address)
	return wallet.Copy(), nil
}

func (s *BackupService) observe(operation string, start time.Time, err *error) {
	s.recorder.Observe(operation, start, *err)
}

func (s *BackupService) logFn(format string, a ...interface{}) {
	format = fmt.Sprintf("backup service: %s", format)
	log.Debugf(format, a...)
}
