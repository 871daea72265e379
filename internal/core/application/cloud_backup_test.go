package application_test

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/vulpemventures/keeper/internal/core/application"
	"github.com/vulpemventures/keeper/internal/core/domain"
	"github.com/vulpemventures/keeper/internal/core/ports"
	"github.com/vulpemventures/keeper/pkg/envelope"
)

var errTest = fmt.Errorf("test error")

func TestCloudBackupChannel(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	address := env.address(t, seed)
	encrypted := newTestEnvelope(t, env)

	found, err := env.channel.Exists(ctx, account, address)
	require.NoError(t, err)
	require.False(t, found)

	got, err := env.channel.Read(ctx, account, address)
	require.ErrorIs(t, err, domain.ErrBackupNotFound)
	require.Nil(t, got)

	for i := 0; i < 2; i++ {
		require.NoError(t, env.channel.Write(ctx, account, address, encrypted))
	}

	found, err = env.channel.Exists(ctx, account, address)
	require.NoError(t, err)
	require.True(t, found)

	got, err = env.channel.Read(ctx, account, address)
	require.NoError(t, err)
	require.Equal(t, encrypted, got)

	require.Equal(t, "backups/"+address+".json", application.BackupPath(address))
}

func TestCloudBackupChannelInvalid(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	encrypted := newTestEnvelope(t, env)

	for address, expectedErr := range map[string]error{
		"":            domain.ErrMissingAddress,
		"../escape":   domain.ErrInvalidAddress,
		"ex1q/nested": domain.ErrInvalidAddress,
	} {
		err := env.channel.Write(ctx, account, address, encrypted)
		require.ErrorIs(t, err, expectedErr)

		_, err = env.channel.Read(ctx, account, address)
		require.ErrorIs(t, err, expectedErr)
	}

	err := env.channel.Write(ctx, account, env.address(t, seed), nil)
	require.ErrorIs(t, err, domain.ErrUnsupportedEnvelope)

	err = env.channel.Write(ctx, domain.Account{}, env.address(t, seed), encrypted)
	require.ErrorIs(t, err, domain.ErrMissingAccount)
}

func TestCloudBackupChannelUnavailable(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	address := env.address(t, seed)
	encrypted := newTestEnvelope(t, env)
	cred := &ports.CloudCredential{AccountID: account.ID}

	t.Run("authentication failure", func(t *testing.T) {
		authenticator := &mockCloudAuthenticator{}
		authenticator.On("Authenticate", mock.Anything, account).
			Return(nil, errTest)
		channel := application.NewCloudBackupChannel(
			authenticator, mockCloudStoreFactory{},
		)

		err := channel.Write(ctx, account, address, encrypted)
		require.ErrorIs(t, err, domain.ErrCloudUnavailable)

		_, err = channel.Read(ctx, account, address)
		require.ErrorIs(t, err, domain.ErrCloudUnavailable)
	})

	t.Run("provider unreachable", func(t *testing.T) {
		store := &mockCloudObjectStore{}
		store.On("Ping", mock.Anything).Return(errTest)
		channel := newMockChannel(cred, store)

		err := channel.Write(ctx, account, address, encrypted)
		require.ErrorIs(t, err, domain.ErrCloudUnavailable)

		_, err = channel.Read(ctx, account, address)
		require.ErrorIs(t, err, domain.ErrCloudUnavailable)

		_, err = channel.Exists(ctx, account, address)
		require.ErrorIs(t, err, domain.ErrCloudUnavailable)

		store.AssertNotCalled(t, "Write", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("write failure", func(t *testing.T) {
		store := &mockCloudObjectStore{}
		store.On("Ping", mock.Anything).Return(nil)
		store.On("Exists", mock.Anything, "backups").Return(false, nil)
		store.On("Mkdir", mock.Anything, "backups").Return(nil)
		store.On(
			"Write", mock.Anything, application.BackupPath(address), mock.Anything,
		).Return(errTest)
		channel := newMockChannel(cred, store)

		err := channel.Write(ctx, account, address, encrypted)
		require.ErrorIs(t, err, domain.ErrCloudUnavailable)
		store.AssertExpectations(t)
	})
}

func TestCloudBackupChannelRead(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	address := env.address(t, seed)
	encrypted := newTestEnvelope(t, env)
	serialized, err := encrypted.Serialize()
	require.NoError(t, err)
	cred := &ports.CloudCredential{AccountID: account.ID}
	backupPath := application.BackupPath(address)

	t.Run("sync failure is ignored", func(t *testing.T) {
		store := &mockCloudObjectStore{}
		store.On("Ping", mock.Anything).Return(nil)
		store.On("Sync", mock.Anything, mock.Anything).Return(errTest)
		store.On("Exists", mock.Anything, backupPath).Return(true, nil)
		store.On("Read", mock.Anything, backupPath).Return(serialized, nil)
		channel := newMockChannel(cred, store)

		got, err := channel.Read(ctx, account, address)
		require.NoError(t, err)
		require.Equal(t, encrypted, got)
		store.AssertNumberOfCalls(t, "Sync", 2)
	})

	t.Run("malformed backup", func(t *testing.T) {
		store := &mockCloudObjectStore{}
		store.On("Ping", mock.Anything).Return(nil)
		store.On("Sync", mock.Anything, mock.Anything).Return(nil)
		store.On("Exists", mock.Anything, backupPath).Return(true, nil)
		store.On("Read", mock.Anything, backupPath).
			Return([]byte(`{"version":1}`), nil)
		channel := newMockChannel(cred, store)

		got, err := channel.Read(ctx, account, address)
		require.ErrorIs(t, err, domain.ErrUnsupportedEnvelope)
		require.Nil(t, got)
	})

	t.Run("read failure", func(t *testing.T) {
		store := &mockCloudObjectStore{}
		store.On("Ping", mock.Anything).Return(nil)
		store.On("Sync", mock.Anything, mock.Anything).Return(nil)
		store.On("Exists", mock.Anything, backupPath).Return(true, nil)
		store.On("Read", mock.Anything, backupPath).Return(nil, errTest)
		channel := newMockChannel(cred, store)

		got, err := channel.Read(ctx, account, address)
		require.ErrorIs(t, err, domain.ErrCloudUnavailable)
		require.Nil(t, got)
	})
}

func newMockChannel(
	cred *ports.CloudCredential, store ports.CloudObjectStore,
) *application.CloudBackupChannel {
	authenticator := &mockCloudAuthenticator{}
	authenticator.On("Authenticate", mock.Anything, mock.Anything).
		Return(cred, nil)
	return application.NewCloudBackupChannel(
		authenticator, mockCloudStoreFactory{store},
	)
}

func newTestEnvelope(t *testing.T, env *testEnv) *envelope.Envelope {
	wallet, err := domain.NewWalletIdentityFromMnemonic(
		strings.Fields(seed), env.deriver,
	)
	require.NoError(t, err)
	encrypted, err := env.codec.Encrypt(password, wallet)
	require.NoError(t, err)
	return encrypted
}
