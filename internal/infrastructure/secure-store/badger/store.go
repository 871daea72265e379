package storebadger

import (
	"context"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
	log "github.com/sirupsen/logrus"
	"github.com/timshannon/badgerhold/v4"
	"github.com/vulpemventures/keeper/internal/core/domain"
	"github.com/vulpemventures/keeper/internal/core/ports"
)

const (
	gcInterval     = 30 * time.Minute
	indexCacheSize = 32 << 20
)

var ErrInvalidEncryptionKeyLen = fmt.Errorf(
	"encryption key must be 16, 24 or 32 bytes long",
)

type StoreOpts struct {
	// Datadir is where the db files are created. If empty, the store is kept
	// in memory, to be used only for testing purposes.
	Datadir string
	// EncryptionKey is the hex encoded AES key used to encrypt the db at rest.
	EncryptionKey string
	Logger        badger.Logger
}

func (o StoreOpts) encryptionKey() ([]byte, error) {
	key, err := hex.DecodeString(o.EncryptionKey)
	if err != nil {
		return nil, fmt.Errorf("invalid encryption key: %w", err)
	}
	switch len(key) {
	case 16, 24, 32:
		return key, nil
	default:
		return nil, ErrInvalidEncryptionKeyLen
	}
}

type walletRecord struct {
	Address       string
	Seed          string
	LocalBackupAt int64
	CloudBackupAt int64
}

type secureStore struct {
	store *badgerhold.Store
	lock  *sync.Mutex
	stop  chan struct{}

	log func(format string, a ...interface{})
}

// NewSecureStore returns a badger implementation of ports.SecureStore,
// encrypted at rest with the given key.
func NewSecureStore(opts StoreOpts) (ports.SecureStore, error) {
	key, err := opts.encryptionKey()
	if err != nil {
		return nil, err
	}

	isInMemory := len(opts.Datadir) <= 0

	badgerOpts := badger.DefaultOptions(opts.Datadir).
		WithEncryptionKey(key).
		WithIndexCacheSize(indexCacheSize)
	badgerOpts.Logger = opts.Logger
	if isInMemory {
		badgerOpts.InMemory = true
	} else {
		badgerOpts.Compression = options.ZSTD
	}

	store, err := badgerhold.Open(badgerhold.Options{
		Encoder:          badgerhold.DefaultEncode,
		Decoder:          badgerhold.DefaultDecode,
		SequenceBandwith: 100,
		Options:          badgerOpts,
	})
	if err != nil {
		return nil, fmt.Errorf("opening secure store db: %w", err)
	}

	logFn := func(format string, a ...interface{}) {
		format = fmt.Sprintf("secure store: %s", format)
		log.Debugf(format, a...)
	}
	s := &secureStore{store, &sync.Mutex{}, make(chan struct{}), logFn}

	if !isInMemory {
		go s.runValueLogGC()
	}

	return s, nil
}

func (s *secureStore) Get(
	ctx context.Context, address string,
) (*domain.WalletIdentity, error) {
	if address == "" {
		return nil, domain.ErrMissingAddress
	}

	var record walletRecord
	if err := s.store.Get(address, &record); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, nil
		}
		return nil, err
	}
	return record.toDomain(), nil
}

func (s *secureStore) Set(
	ctx context.Context, wallet *domain.WalletIdentity,
) error {
	if wallet == nil || wallet.Address == "" {
		return domain.ErrMissingAddress
	}

	s.lock.Lock()
	defer s.lock.Unlock()

	if err := s.store.Upsert(wallet.Address, newWalletRecord(wallet)); err != nil {
		return err
	}
	s.log("stored wallet %s", wallet.Address)
	return nil
}

func (s *secureStore) List(ctx context.Context) ([]*domain.WalletIdentity, error) {
	var records []walletRecord
	if err := s.store.Find(&records, nil); err != nil {
		return nil, err
	}

	wallets := make([]*domain.WalletIdentity, 0, len(records))
	for _, r := range records {
		wallets = append(wallets, r.toDomain())
	}
	return wallets, nil
}

func (s *secureStore) Close() {
	close(s.stop)
	s.store.Close()
}

func (s *secureStore) runValueLogGC() {
	ticker := time.NewTicker(gcInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := s.store.Badger().RunValueLogGC(0.5); err != nil && err != badger.ErrNoRewrite {
				log.Warnf("secure store: garbage collector: %s", err)
			}
		case <-s.stop:
			return
		}
	}
}

func newWalletRecord(w *domain.WalletIdentity) walletRecord {
	return walletRecord{
		Address:       w.Address,
		Seed:          w.Seed,
		LocalBackupAt: w.LocalBackupAt,
		CloudBackupAt: w.CloudBackupAt,
	}
}

func (r walletRecord) toDomain() *domain.WalletIdentity {
	return &domain.WalletIdentity{
		Address:       r.Address,
		Seed:          r.Seed,
		LocalBackupAt: r.LocalBackupAt,
		CloudBackupAt: r.CloudBackupAt,
	}
}
