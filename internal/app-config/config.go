package appconfig

import (
	"fmt"

	"github.com/lightningnetwork/lnd/clock"
	log "github.com/sirupsen/logrus"
	"github.com/vulpemventures/keeper/internal/config"
	"github.com/vulpemventures/keeper/internal/core/application"
	"github.com/vulpemventures/keeper/internal/core/domain"
	"github.com/vulpemventures/keeper/internal/core/ports"
	cloudauth "github.com/vulpemventures/keeper/internal/infrastructure/cloud-auth/static"
	cloudetcd "github.com/vulpemventures/keeper/internal/infrastructure/cloud-store/etcd"
	cloudfs "github.com/vulpemventures/keeper/internal/infrastructure/cloud-store/filesystem"
	envelopecodec "github.com/vulpemventures/keeper/internal/infrastructure/envelope-codec"
	storebadger "github.com/vulpemventures/keeper/internal/infrastructure/secure-store/badger"
	storeinmemory "github.com/vulpemventures/keeper/internal/infrastructure/secure-store/inmemory"
	registryinmemory "github.com/vulpemventures/keeper/internal/infrastructure/wallet-registry/inmemory"
	registrypostgres "github.com/vulpemventures/keeper/internal/infrastructure/wallet-registry/postgres"
	"github.com/vulpemventures/keeper/pkg/envelope"
	"github.com/vulpemventures/keeper/pkg/metrics"
	singlesig "github.com/vulpemventures/keeper/pkg/wallet/single-sig"
)

// AppConfig is the struct holding all configuration options for the backup
// and recovery application services.
// This data structure acts also as a factory of the mentioned application
// services and the portable services used by them.
// Public config args:
//   - Network - (required) The network wallet addresses are derived for.
//   - RootPath - (optional) Wallet root HD path (defaults to the BIP-84 one of the network).
//   - SecureStoreType - (required) One of the supported secure store types.
//   - SecureStoreConfig - (optional) Custom config args for the secure store based on its type.
//   - RegistryType - (required) One of the supported wallet registry types.
//   - RegistryConfig - (optional) Custom config args for the registry based on its type.
//   - CloudProvider - (required) One of the supported cloud storage providers.
//   - CloudProviderConfig - (required) Custom config args for the cloud provider based on its type.
//   - CloudUsername, CloudPassword - (optional) Credentials for the cloud provider.
//   - EnvelopeVersion, Argon2Cost - (optional) Format and cost of the new backups.
//   - Recorder - (optional) Metrics recorder, no-op if not defined.
//   - Clock - (optional) Clock used by the in-memory registry.
type AppConfig struct {
	Network  string
	RootPath string

	SecureStoreType     string
	SecureStoreConfig   interface{}
	RegistryType        string
	RegistryConfig      interface{}
	CloudProvider       string
	CloudProviderConfig interface{}
	CloudUsername       string
	CloudPassword       string

	EnvelopeVersion int
	Argon2Cost      *envelope.Argon2Cost

	Recorder metrics.Recorder
	Clock    clock.Clock

	store       ports.SecureStore
	registry    ports.WalletRegistry
	deriver     domain.IAddressDeriver
	codec       ports.EnvelopeCodec
	channel     *application.CloudBackupChannel
	backupSvc   *application.BackupService
	recoverySvc *application.RecoveryService
}

func (c *AppConfig) Validate() error {
	if c.Network == "" {
		return fmt.Errorf("missing network")
	}
	if len(c.SecureStoreType) == 0 {
		return fmt.Errorf("missing secure store type")
	}
	if _, ok := config.SupportedSecureStores[c.SecureStoreType]; !ok {
		return fmt.Errorf(
			"secure store type not supported, must be one of: %s",
			config.SupportedSecureStores,
		)
	}
	if len(c.RegistryType) == 0 {
		return fmt.Errorf("missing registry type")
	}
	if _, ok := config.SupportedRegistries[c.RegistryType]; !ok {
		return fmt.Errorf(
			"registry type not supported, must be one of: %s",
			config.SupportedRegistries,
		)
	}
	if len(c.CloudProvider) == 0 {
		return fmt.Errorf("missing cloud provider")
	}
	if _, ok := config.SupportedCloudProviders[c.CloudProvider]; !ok {
		return fmt.Errorf(
			"cloud provider not supported, must be one of: %s",
			config.SupportedCloudProviders,
		)
	}
	if _, err := c.addressDeriver(); err != nil {
		return err
	}
	if _, err := c.envelopeCodec(); err != nil {
		return err
	}
	if _, err := c.cloudChannel(); err != nil {
		return err
	}
	if _, err := c.secureStore(); err != nil {
		return err
	}
	if _, err := c.walletRegistry(); err != nil {
		c.closeStore()
		return err
	}

	return nil
}

func (c *AppConfig) SecureStore() ports.SecureStore {
	return c.store
}

func (c *AppConfig) WalletRegistry() ports.WalletRegistry {
	return c.registry
}

func (c *AppConfig) BackupService() *application.BackupService {
	return c.backupService()
}

func (c *AppConfig) RecoveryService() *application.RecoveryService {
	return c.recoveryService()
}

// Close releases the stores. To be called only after a successful Validate.
func (c *AppConfig) Close() {
	c.closeStore()
	if c.registry != nil {
		c.registry.Close()
		c.registry = nil
	}
}

func (c *AppConfig) closeStore() {
	if c.store != nil {
		c.store.Close()
		c.store = nil
	}
}

func (c *AppConfig) addressDeriver() (domain.IAddressDeriver, error) {
	if c.deriver != nil {
		return c.deriver, nil
	}

	deriver, err := singlesig.NewAddressDeriver(singlesig.NewAddressDeriverArgs{
		Network:  c.Network,
		RootPath: c.RootPath,
	})
	if err != nil {
		return nil, err
	}
	c.deriver = deriver
	return c.deriver, nil
}

func (c *AppConfig) envelopeCodec() (ports.EnvelopeCodec, error) {
	if c.codec != nil {
		return c.codec, nil
	}

	deriver, err := c.addressDeriver()
	if err != nil {
		return nil, err
	}
	codec, err := envelopecodec.NewCodec(envelopecodec.CodecOpts{
		Version:    c.EnvelopeVersion,
		Argon2Cost: c.Argon2Cost,
		Deriver:    deriver,
	})
	if err != nil {
		return nil, err
	}
	c.codec = codec
	return c.codec, nil
}

func (c *AppConfig) cloudChannel() (*application.CloudBackupChannel, error) {
	if c.channel != nil {
		return c.channel, nil
	}

	var (
		factory ports.CloudObjectStoreFactory
		err     error
	)
	switch c.CloudProvider {
	case cloudfs.ProviderName:
		rootDir, ok := c.CloudProviderConfig.(string)
		if !ok {
			return nil, fmt.Errorf(
				"invalid cloud provider config type, must be string",
			)
		}
		factory, err = cloudfs.NewStoreFactory(rootDir)
	case cloudetcd.ProviderName:
		opts, ok := c.CloudProviderConfig.(cloudetcd.StoreFactoryOpts)
		if !ok {
			return nil, fmt.Errorf(
				"invalid cloud provider config type, must be " +
					"cloudetcd.StoreFactoryOpts",
			)
		}
		factory, err = cloudetcd.NewStoreFactory(opts)
	default:
		return nil, fmt.Errorf("unknown cloud provider")
	}
	if err != nil {
		return nil, err
	}

	authenticator := cloudauth.NewAuthenticator(c.CloudUsername, c.CloudPassword)
	c.channel = application.NewCloudBackupChannel(authenticator, factory)
	return c.channel, nil
}

func (c *AppConfig) secureStore() (ports.SecureStore, error) {
	if c.store != nil {
		return c.store, nil
	}

	switch c.SecureStoreType {
	case "inmemory":
		c.store = storeinmemory.NewSecureStore()
		return c.store, nil
	case "badger":
		if c.SecureStoreConfig == nil {
			return nil, fmt.Errorf("missing secure store config args")
		}
		opts, ok := c.SecureStoreConfig.(storebadger.StoreOpts)
		if !ok {
			return nil, fmt.Errorf(
				"invalid secure store config type, must be storebadger.StoreOpts",
			)
		}
		if opts.Logger == nil {
			opts.Logger = log.New()
		}
		store, err := storebadger.NewSecureStore(opts)
		if err != nil {
			return nil, err
		}
		c.store = store
		return c.store, nil
	default:
		return nil, fmt.Errorf("unknown secure store type")
	}
}

func (c *AppConfig) walletRegistry() (ports.WalletRegistry, error) {
	if c.registry != nil {
		return c.registry, nil
	}

	switch c.RegistryType {
	case "inmemory":
		c.registry = registryinmemory.NewWalletRegistry(c.Clock)
		return c.registry, nil
	case "postgres":
		dbConfig, ok := c.RegistryConfig.(registrypostgres.DbConfig)
		if !ok {
			return nil, fmt.Errorf(
				"invalid registry config type, must be registrypostgres.DbConfig",
			)
		}

		registry, err := registrypostgres.NewWalletRegistry(dbConfig, c.Clock)
		if err != nil {
			return nil, err
		}
		c.registry = registry
		return c.registry, nil
	default:
		return nil, fmt.Errorf("unknown registry type")
	}
}

func (c *AppConfig) backupService() *application.BackupService {
	if c.backupSvc != nil {
		return c.backupSvc
	}

	store, _ := c.secureStore()
	registry, _ := c.walletRegistry()
	codec, _ := c.envelopeCodec()
	channel, _ := c.cloudChannel()
	deriver, _ := c.addressDeriver()
	c.backupSvc = application.NewBackupService(
		store, registry, codec, channel, deriver, nil, c.Recorder,
	)
	return c.backupSvc
}

func (c *AppConfig) recoveryService() *application.RecoveryService {
	if c.recoverySvc != nil {
		return c.recoverySvc
	}

	store, _ := c.secureStore()
	registry, _ := c.walletRegistry()
	codec, _ := c.envelopeCodec()
	channel, _ := c.cloudChannel()
	deriver, _ := c.addressDeriver()
	c.recoverySvc = application.NewRecoveryService(
		store, registry, codec, channel, deriver, c.Recorder,
	)
	return c.recoverySvc
}
