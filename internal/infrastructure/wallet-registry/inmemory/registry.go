package registryinmemory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/lightningnetwork/lnd/clock"
	"github.com/vulpemventures/keeper/internal/core/domain"
	"github.com/vulpemventures/keeper/internal/core/ports"
)

type walletRegistry struct {
	walletsByAccount map[string]map[string]domain.LinkedWallet
	clock            clock.Clock
	lock             *sync.RWMutex
}

// NewWalletRegistry returns an in-memory implementation of
// ports.WalletRegistry. Timestamps are taken from the given clock.
func NewWalletRegistry(clk clock.Clock) ports.WalletRegistry {
	if clk == nil {
		clk = clock.NewDefaultClock()
	}
	return &walletRegistry{
		walletsByAccount: make(map[string]map[string]domain.LinkedWallet),
		clock:            clk,
		lock:             &sync.RWMutex{},
	}
}

func (r *walletRegistry) ListLinkedWallets(
	_ context.Context, account domain.Account,
) ([]domain.LinkedWallet, error) {
	if err := account.Validate(); err != nil {
		return nil, err
	}

	r.lock.RLock()
	defer r.lock.RUnlock()

	wallets := make([]domain.LinkedWallet, 0, len(r.walletsByAccount[account.ID]))
	for _, w := range r.walletsByAccount[account.ID] {
		wallets = append(wallets, w)
	}
	sort.Slice(wallets, func(i, j int) bool {
		if wallets[i].CreatedAt == wallets[j].CreatedAt {
			return wallets[i].Address < wallets[j].Address
		}
		return wallets[i].CreatedAt < wallets[j].CreatedAt
	})
	return wallets, nil
}

func (r *walletRegistry) GetLinkedWallet(
	_ context.Context, account domain.Account, address string,
) (*domain.LinkedWallet, error) {
	if err := validateArgs(account, address); err != nil {
		return nil, err
	}

	r.lock.RLock()
	defer r.lock.RUnlock()

	w, ok := r.walletsByAccount[account.ID][address]
	if !ok {
		return nil, nil
	}
	return &w, nil
}

func (r *walletRegistry) CreateWalletRecord(
	_ context.Context, account domain.Account, address string,
	metadata ports.WalletMetadata,
) (*domain.LinkedWallet, error) {
	if err := validateArgs(account, address); err != nil {
		return nil, err
	}

	r.lock.Lock()
	defer r.lock.Unlock()

	wallets, ok := r.walletsByAccount[account.ID]
	if !ok {
		wallets = make(map[string]domain.LinkedWallet)
		r.walletsByAccount[account.ID] = wallets
	}
	if w, ok := wallets[address]; ok {
		return &w, nil
	}

	w := domain.LinkedWallet{
		Address:   address,
		Label:     metadata.Label,
		CreatedAt: r.clock.Now().Unix(),
	}
	wallets[address] = w
	return &w, nil
}

func (r *walletRegistry) MarkBackup(
	_ context.Context, account domain.Account, address string,
	kind domain.BackupKind,
) (*domain.LinkedWallet, error) {
	if err := validateArgs(account, address); err != nil {
		return nil, err
	}

	r.lock.Lock()
	defer r.lock.Unlock()

	w, ok := r.walletsByAccount[account.ID][address]
	if !ok {
		return nil, domain.ErrWalletNotPreviouslyLinked
	}

	now := r.clock.Now().Unix()
	switch kind {
	case domain.BackupLocal:
		w.LocalBackupAt = now
	case domain.BackupCloud:
		w.CloudBackupAt = now
	default:
		return nil, fmt.Errorf("unknown backup kind %d", kind)
	}
	r.walletsByAccount[account.ID][address] = w
	return &w, nil
}

func (r *walletRegistry) Close() {}

func validateArgs(account domain.Account, address string) error {
	if err := account.Validate(); err != nil {
		return err
	}
	if address == "" {
		return domain.ErrMissingAddress
	}
	return nil
}
