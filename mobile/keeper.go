// Package mobile exposes the backup and recovery services to mobile apps
// through gomobile. Only basic types cross the boundary: words are space
// separated and structured results are JSON documents.
package mobile

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"

	log "github.com/sirupsen/logrus"
	appconfig "github.com/vulpemventures/keeper/internal/app-config"
	"github.com/vulpemventures/keeper/internal/config"
	"github.com/vulpemventures/keeper/internal/core/application"
	"github.com/vulpemventures/keeper/internal/core/domain"
	cloudetcd "github.com/vulpemventures/keeper/internal/infrastructure/cloud-store/etcd"
	storebadger "github.com/vulpemventures/keeper/internal/infrastructure/secure-store/badger"
	registrypostgres "github.com/vulpemventures/keeper/internal/infrastructure/wallet-registry/postgres"
	"github.com/vulpemventures/keeper/pkg/metrics"
)

// SetConfig overrides a configuration value otherwise read from the KEEPER_*
// environment variables. Must be called before NewKeeper.
func SetConfig(key, value string) {
	config.Set(key, value)
}

// Keeper holds the services of the signed-in account. Confirmations and
// reconciled recoveries in progress are kept in memory, keyed by address,
// until validated or committed.
type Keeper struct {
	account  domain.Account
	cfg      *appconfig.AppConfig
	recorder *metrics.PrometheusRecorder
	datadir  string

	lock          *sync.Mutex
	confirmations map[string]*domain.MnemonicConfirmation
	recoveries    map[string]*application.RecoveryResult
}

func NewKeeper(accountID string) (*Keeper, error) {
	account := domain.Account{ID: accountID}
	if err := account.Validate(); err != nil {
		return nil, toError(err)
	}
	if err := config.Validate(); err != nil {
		return nil, invalidArgument(err.Error())
	}

	log.SetLevel(log.Level(config.GetInt(config.LogLevelKey)))

	var recorder *metrics.PrometheusRecorder
	if !config.GetBool(config.NoMetricsKey) {
		r, err := metrics.NewRecorder(metrics.RecorderOpts{
			Classify: domain.ErrorCode,
		})
		if err != nil {
			return nil, toError(err)
		}
		recorder = r
	}

	datadir := config.GetDatadir()
	argon2Cost := config.GetArgon2Cost()
	cfg := &appconfig.AppConfig{
		Network:             config.GetNetwork(),
		RootPath:            config.GetRootPath(),
		SecureStoreType:     config.GetString(config.SecureStoreTypeKey),
		SecureStoreConfig:   secureStoreConfig(datadir),
		RegistryType:        config.GetString(config.RegistryTypeKey),
		RegistryConfig:      registryConfig(),
		CloudProvider:       config.GetString(config.CloudProviderKey),
		CloudProviderConfig: cloudProviderConfig(),
		CloudUsername:       config.GetString(config.CloudUsernameKey),
		CloudPassword:       config.GetString(config.CloudPasswordKey),
		EnvelopeVersion:     config.GetInt(config.EnvelopeVersionKey),
		Argon2Cost:          &argon2Cost,
	}
	if recorder != nil {
		cfg.Recorder = recorder
	}
	if err := cfg.Validate(); err != nil {
		return nil, toError(err)
	}

	return &Keeper{
		account:       account,
		cfg:           cfg,
		recorder:      recorder,
		datadir:       datadir,
		lock:          &sync.Mutex{},
		confirmations: make(map[string]*domain.MnemonicConfirmation),
		recoveries:    make(map[string]*application.RecoveryResult),
	}, nil
}

// GenerateMnemonic returns a new space separated mnemonic of 12 or 24 words.
func (k *Keeper) GenerateMnemonic(numOfWords int) (string, error) {
	words, err := k.cfg.BackupService().GenerateMnemonic(
		context.Background(), numOfWords,
	)
	if err != nil {
		return "", toError(err)
	}
	return strings.Join(words, " "), nil
}

func (k *Keeper) CreateWallet(mnemonic, label string) (string, error) {
	w, err := k.cfg.BackupService().CreateWallet(
		context.Background(), k.account, strings.Fields(mnemonic), label,
	)
	if err != nil {
		return "", toError(err)
	}
	return toJSON(newWalletView(w))
}

func (k *Keeper) ImportReadOnlyWallet(address, label string) (string, error) {
	w, err := k.cfg.BackupService().ImportReadOnlyWallet(
		context.Background(), k.account, address, label,
	)
	if err != nil {
		return "", toError(err)
	}
	return toJSON(newWalletView(w))
}

func (k *Keeper) GetBackupStatus(address string) (string, error) {
	status, err := k.cfg.BackupService().GetBackupStatus(
		context.Background(), k.account, address,
	)
	if err != nil {
		return "", toError(err)
	}
	return toJSON(backupStatusView{
		Address:       status.Address,
		LocalBackupAt: status.LocalBackupAt,
		CloudBackupAt: status.CloudBackupAt,
	})
}

func (k *Keeper) BackupToCloud(address, password string) (string, error) {
	w, err := k.cfg.BackupService().BackupToCloud(
		context.Background(), k.account, address, password,
	)
	if err != nil {
		return "", toError(err)
	}
	return toJSON(newWalletView(w))
}

// StartConfirmation starts, or restarts, the local backup confirmation of
// the wallet and returns its state.
func (k *Keeper) StartConfirmation(address string) (string, error) {
	c, err := k.cfg.BackupService().StartLocalBackup(
		context.Background(), address,
	)
	if err != nil {
		return "", toError(err)
	}

	k.lock.Lock()
	defer k.lock.Unlock()

	k.confirmations[address] = c
	return toJSON(newConfirmationView(c))
}

func (k *Keeper) PlaceWord(
	address, word string, poolIndex int,
) (string, error) {
	k.lock.Lock()
	defer k.lock.Unlock()

	c, err := k.getConfirmation(address)
	if err != nil {
		return "", err
	}
	if err := c.Place(word, poolIndex); err != nil {
		return "", toError(err)
	}
	return toJSON(newConfirmationView(c))
}

func (k *Keeper) RemoveWord(address string, slotIndex int) (string, error) {
	k.lock.Lock()
	defer k.lock.Unlock()

	c, err := k.getConfirmation(address)
	if err != nil {
		return "", err
	}
	if err := c.Remove(slotIndex); err != nil {
		return "", toError(err)
	}
	return toJSON(newConfirmationView(c))
}

// ValidateConfirmation checks the order of the placed words. A wrong order
// is not an error: the returned state has status "retry" and the words are
// reshuffled. A right order records the local backup and returns the state
// with status "committed".
// If recording the backup fails, the confirmation stays committed and
// calling this again retries only the recording.
func (k *Keeper) ValidateConfirmation(address string) (string, error) {
	k.lock.Lock()
	defer k.lock.Unlock()

	c, err := k.getConfirmation(address)
	if err != nil {
		return "", err
	}
	if !c.IsCommitted() {
		if err := c.Validate(); err != nil {
			if errors.Is(err, domain.ErrConfirmationMismatch) {
				return toJSON(newConfirmationView(c))
			}
			return "", toError(err)
		}
	}

	if _, err := k.cfg.BackupService().ConfirmLocalBackup(
		context.Background(), k.account, c,
	); err != nil {
		return "", toError(err)
	}
	delete(k.confirmations, address)
	return toJSON(newConfirmationView(c))
}

func (k *Keeper) ListRecoverableWallets() (string, error) {
	list, err := k.cfg.RecoveryService().ListRecoverableWallets(
		context.Background(), k.account,
	)
	if err != nil {
		return "", toError(err)
	}
	return toJSON(newRecoverableWalletViews(list))
}

// RecoverFromCloud downloads and reconciles the backup of the wallet. Nothing
// is stored on the device until CommitRecovery is called.
func (k *Keeper) RecoverFromCloud(address, password string) (string, error) {
	res, err := k.cfg.RecoveryService().RecoverFromCloud(
		context.Background(), k.account, address, password,
	)
	if err != nil {
		return "", toError(err)
	}
	return k.addRecovery(res)
}

// RecoverFromMnemonic reconciles the wallet restored from the typed words.
// Nothing is stored on the device until CommitRecovery is called.
func (k *Keeper) RecoverFromMnemonic(address, mnemonic string) (string, error) {
	res, err := k.cfg.RecoveryService().RecoverFromMnemonic(
		context.Background(), k.account, address, strings.Fields(mnemonic),
	)
	if err != nil {
		return "", toError(err)
	}
	return k.addRecovery(res)
}

func (k *Keeper) CommitRecovery(address string) (string, error) {
	k.lock.Lock()
	defer k.lock.Unlock()

	res, ok := k.recoveries[address]
	if !ok {
		return "", invalidArgument("no pending recovery for wallet " + address)
	}
	if err := k.cfg.RecoveryService().Commit(context.Background(), res); err != nil {
		return "", toError(err)
	}
	delete(k.recoveries, address)
	return toJSON(newWalletView(res.Wallet))
}

// Close releases the stores and, if enabled, dumps the collected metrics to
// the datadir.
func (k *Keeper) Close() {
	k.lock.Lock()
	defer k.lock.Unlock()

	if k.recorder != nil {
		dir := filepath.Join(k.datadir, config.MetricsLocation)
		if err := k.recorder.DumpToFile(dir); err != nil {
			log.WithError(err).Warn("keeper: failed to dump metrics")
		}
	}
	clear(k.confirmations)
	clear(k.recoveries)
	k.cfg.Close()
}

func (k *Keeper) getConfirmation(
	address string,
) (*domain.MnemonicConfirmation, error) {
	c, ok := k.confirmations[address]
	if !ok {
		return nil, invalidArgument("no confirmation started for wallet " + address)
	}
	return c, nil
}

func (k *Keeper) addRecovery(res *application.RecoveryResult) (string, error) {
	k.lock.Lock()
	defer k.lock.Unlock()

	k.recoveries[res.Wallet.Address] = res
	return toJSON(recoveryView{
		walletView: newWalletView(res.Wallet),
		Source:     res.Source.String(),
	})
}

func secureStoreConfig(datadir string) interface{} {
	if config.GetString(config.SecureStoreTypeKey) != "badger" {
		return nil
	}
	return storebadger.StoreOpts{
		Datadir:       filepath.Join(datadir, config.DbLocation),
		EncryptionKey: config.GetString(config.SecureStoreEncryptionKeyKey),
		Logger:        log.New(),
	}
}

func registryConfig() interface{} {
	if config.GetString(config.RegistryTypeKey) != "postgres" {
		return nil
	}
	return registrypostgres.DbConfig{
		DbUser:             config.GetString(config.DbUserKey),
		DbPassword:         config.GetString(config.DbPassKey),
		DbHost:             config.GetString(config.DbHostKey),
		DbPort:             config.GetInt(config.DbPortKey),
		DbName:             config.GetString(config.DbNameKey),
		MigrationSourceURL: config.GetString(config.DbMigrationPath),
	}
}

func cloudProviderConfig() interface{} {
	if config.GetString(config.CloudProviderKey) == cloudetcd.ProviderName {
		return cloudetcd.StoreFactoryOpts{
			Endpoints:   config.GetStringSlice(config.CloudEndpointsKey),
			DialTimeout: config.GetCloudDialTimeout(),
		}
	}
	return config.GetCloudRootDir()
}
