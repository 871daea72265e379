package storeinmemory

import (
	"context"
	"sort"
	"sync"

	"github.com/vulpemventures/keeper/internal/core/domain"
	"github.com/vulpemventures/keeper/internal/core/ports"
)

type secureStore struct {
	wallets map[string]domain.WalletIdentity
	lock    *sync.RWMutex
}

// NewSecureStore returns an in-memory implementation of ports.SecureStore.
// Records are copied in and out, so callers can't alter the stored ones.
func NewSecureStore() ports.SecureStore {
	return &secureStore{
		wallets: make(map[string]domain.WalletIdentity),
		lock:    &sync.RWMutex{},
	}
}

func (s *secureStore) Get(
	_ context.Context, address string,
) (*domain.WalletIdentity, error) {
	if address == "" {
		return nil, domain.ErrMissingAddress
	}

	s.lock.RLock()
	defer s.lock.RUnlock()

	w, ok := s.wallets[address]
	if !ok {
		return nil, nil
	}
	return &w, nil
}

func (s *secureStore) Set(
	_ context.Context, wallet *domain.WalletIdentity,
) error {
	if wallet == nil || wallet.Address == "" {
		return domain.ErrMissingAddress
	}

	s.lock.Lock()
	defer s.lock.Unlock()

	s.wallets[wallet.Address] = *wallet
	return nil
}

func (s *secureStore) List(_ context.Context) ([]*domain.WalletIdentity, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	wallets := make([]*domain.WalletIdentity, 0, len(s.wallets))
	for _, w := range s.wallets {
		w := w
		wallets = append(wallets, &w)
	}
	sort.Slice(wallets, func(i, j int) bool {
		return wallets[i].Address < wallets[j].Address
	})
	return wallets, nil
}

func (s *secureStore) Close() {}
