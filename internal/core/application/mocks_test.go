package application_test

import (
	"context"

	"github.com/stretchr/testify/mock"
	"github.com/vulpemventures/keeper/internal/core/domain"
	"github.com/vulpemventures/keeper/internal/core/ports"
)

type mockSecureStore struct {
	mock.Mock
}

func (m *mockSecureStore) Get(
	ctx context.Context, address string,
) (*domain.WalletIdentity, error) {
	args := m.Called(ctx, address)
	var res *domain.WalletIdentity
	if a := args.Get(0); a != nil {
		res = a.(*domain.WalletIdentity)
	}
	return res, args.Error(1)
}

func (m *mockSecureStore) Set(
	ctx context.Context, wallet *domain.WalletIdentity,
) error {
	args := m.Called(ctx, wallet)
	return args.Error(0)
}

func (m *mockSecureStore) List(
	ctx context.Context,
) ([]*domain.WalletIdentity, error) {
	args := m.Called(ctx)
	var res []*domain.WalletIdentity
	if a := args.Get(0); a != nil {
		res = a.([]*domain.WalletIdentity)
	}
	return res, args.Error(1)
}

func (m *mockSecureStore) Close() {}

type mockWalletRegistry struct {
	mock.Mock
}

func (m *mockWalletRegistry) ListLinkedWallets(
	ctx context.Context, account domain.Account,
) ([]domain.LinkedWallet, error) {
	args := m.Called(ctx, account)
	var res []domain.LinkedWallet
	if a := args.Get(0); a != nil {
		res = a.([]domain.LinkedWallet)
	}
	return res, args.Error(1)
}

func (m *mockWalletRegistry) GetLinkedWallet(
	ctx context.Context, account domain.Account, address string,
) (*domain.LinkedWallet, error) {
	args := m.Called(ctx, account, address)
	var res *domain.LinkedWallet
	if a := args.Get(0); a != nil {
		res = a.(*domain.LinkedWallet)
	}
	return res, args.Error(1)
}

func (m *mockWalletRegistry) CreateWalletRecord(
	ctx context.Context, account domain.Account, address string,
	metadata ports.WalletMetadata,
) (*domain.LinkedWallet, error) {
	args := m.Called(ctx, account, address, metadata)
	var res *domain.LinkedWallet
	if a := args.Get(0); a != nil {
		res = a.(*domain.LinkedWallet)
	}
	return res, args.Error(1)
}

func (m *mockWalletRegistry) MarkBackup(
	ctx context.Context, account domain.Account, address string,
	kind domain.BackupKind,
) (*domain.LinkedWallet, error) {
	args := m.Called(ctx, account, address, kind)
	var res *domain.LinkedWallet
	if a := args.Get(0); a != nil {
		res = a.(*domain.LinkedWallet)
	}
	return res, args.Error(1)
}

func (m *mockWalletRegistry) Close() {}

type mockCloudAuthenticator struct {
	mock.Mock
}

func (m *mockCloudAuthenticator) Authenticate(
	ctx context.Context, account domain.Account,
) (*ports.CloudCredential, error) {
	args := m.Called(ctx, account)
	var res *ports.CloudCredential
	if a := args.Get(0); a != nil {
		res = a.(*ports.CloudCredential)
	}
	return res, args.Error(1)
}

type mockCloudStoreFactory struct {
	store ports.CloudObjectStore
}

func (m mockCloudStoreFactory) Provider() string {
	return "mock"
}

func (m mockCloudStoreFactory) NewStore(
	_ context.Context, _ *ports.CloudCredential,
) (ports.CloudObjectStore, error) {
	return m.store, nil
}

type mockCloudObjectStore struct {
	mock.Mock
}

func (m *mockCloudObjectStore) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *mockCloudObjectStore) Exists(
	ctx context.Context, path string,
) (bool, error) {
	args := m.Called(ctx, path)
	return args.Bool(0), args.Error(1)
}

func (m *mockCloudObjectStore) Read(
	ctx context.Context, path string,
) ([]byte, error) {
	args := m.Called(ctx, path)
	var res []byte
	if a := args.Get(0); a != nil {
		res = a.([]byte)
	}
	return res, args.Error(1)
}

func (m *mockCloudObjectStore) Write(
	ctx context.Context, path string, data []byte,
) error {
	args := m.Called(ctx, path, data)
	return args.Error(0)
}

func (m *mockCloudObjectStore) Mkdir(ctx context.Context, path string) error {
	args := m.Called(ctx, path)
	return args.Error(0)
}

func (m *mockCloudObjectStore) Sync(ctx context.Context, path string) error {
	args := m.Called(ctx, path)
	return args.Error(0)
}

func (m *mockCloudObjectStore) Close() error {
	return nil
}
