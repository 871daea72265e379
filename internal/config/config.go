package config

import (
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/spf13/viper"
	"github.com/vulpemventures/keeper/pkg/envelope"
	path "github.com/vulpemventures/keeper/pkg/wallet/derivation-path"
	singlesig "github.com/vulpemventures/keeper/pkg/wallet/single-sig"
)

const (
	// DatadirKey is the key to customize the keeper datadir.
	DatadirKey = "DATADIR"
	// NetworkKey is the key to customize the network wallet addresses are
	// derived for.
	NetworkKey = "NETWORK"
	// RootPathKey is the key to use a custom root path for the wallet,
	// instead of the default BIP-84 one of the network.
	RootPathKey = "ROOT_PATH"
	// LogLevelKey is the key to customize the log level to catch more specific
	// or more high level logs.
	LogLevelKey = "LOG_LEVEL"
	// SecureStoreTypeKey is the key to customize the type of the device
	// local store of wallets.
	SecureStoreTypeKey = "SECURE_STORE_TYPE"
	// SecureStoreEncryptionKeyKey is the hex encoded key used to encrypt the
	// secure store at rest.
	SecureStoreEncryptionKeyKey = "SECURE_STORE_ENCRYPTION_KEY"
	// RegistryTypeKey is the key to customize the type of wallet registry.
	RegistryTypeKey = "REGISTRY_TYPE"
	// DbUserKey is user used to connect to db
	DbUserKey = "DB_USER"
	// DbPassKey is password used to connect to db
	DbPassKey = "DB_PASS"
	// DbHostKey is host where db is installed
	DbHostKey = "DB_HOST"
	// DbPortKey is port on which db is listening
	DbPortKey = "DB_PORT"
	// DbNameKey is name of database
	DbNameKey = "DB_NAME"
	// DbMigrationPath is the path to migration files
	DbMigrationPath = "DB_MIGRATION_PATH"
	// CloudProviderKey is the key to customize the cloud storage provider.
	CloudProviderKey = "CLOUD_PROVIDER"
	// CloudRootDirKey is the synced folder used by the filesystem provider.
	CloudRootDirKey = "CLOUD_ROOT_DIR"
	// CloudEndpointsKey is the list of endpoints of the etcd provider.
	CloudEndpointsKey = "CLOUD_ENDPOINTS"
	// CloudUsernameKey and CloudPasswordKey are the credentials handed out
	// to access the cloud storage.
	CloudUsernameKey = "CLOUD_USERNAME"
	CloudPasswordKey = "CLOUD_PASSWORD"
	// CloudDialTimeoutKey is the timeout in seconds to connect to the etcd
	// provider.
	CloudDialTimeoutKey = "CLOUD_DIAL_TIMEOUT"
	// EnvelopeVersionKey is the version of the newly created backups.
	EnvelopeVersionKey = "ENVELOPE_VERSION"
	// KdfTimeKey, KdfMemoryKey and KdfThreadsKey customize the argon2id cost
	// of the newly created backups.
	KdfTimeKey    = "KDF_TIME"
	KdfMemoryKey  = "KDF_MEMORY_KB"
	KdfThreadsKey = "KDF_THREADS"
	// NoMetricsKey is the key to disable Prometheus metrics.
	NoMetricsKey = "NO_METRICS"

	// DbLocation is the folder inside the datadir containing db files.
	DbLocation = "db"
	// CloudLocation is the folder inside the datadir used as cloud root dir
	// if not customized.
	CloudLocation = "cloud"
	// MetricsLocation is the folder inside the datadir containing metrics
	// dumps.
	MetricsLocation = "stats"
)

var (
	vip *viper.Viper

	defaultDatadir         = btcutil.AppDataDir("keeper", false)
	defaultNetwork         = singlesig.NetworkLiquid
	defaultLogLevel        = 4
	defaultSecureStoreType = "badger"
	defaultRegistryType    = "postgres"
	defaultCloudProvider   = "filesystem"
	defaultDialTimeout     = 5
	defaultEnvelopeVersion = envelope.DefaultVersion

	SupportedSecureStores = supportedType{
		"badger":   {},
		"inmemory": {},
	}
	SupportedRegistries = supportedType{
		"inmemory": {},
		"postgres": {},
	}
	SupportedCloudProviders = supportedType{
		"filesystem": {},
		"etcd":       {},
	}
)

func init() {
	vip = viper.New()
	vip.SetEnvPrefix("KEEPER")
	vip.AutomaticEnv()

	vip.SetDefault(DatadirKey, defaultDatadir)
	vip.SetDefault(NetworkKey, defaultNetwork)
	vip.SetDefault(LogLevelKey, defaultLogLevel)
	vip.SetDefault(SecureStoreTypeKey, defaultSecureStoreType)
	vip.SetDefault(RegistryTypeKey, defaultRegistryType)
	vip.SetDefault(CloudProviderKey, defaultCloudProvider)
	vip.SetDefault(CloudDialTimeoutKey, defaultDialTimeout)
	vip.SetDefault(EnvelopeVersionKey, defaultEnvelopeVersion)
	vip.SetDefault(KdfTimeKey, envelope.DefaultArgon2Cost.Time)
	vip.SetDefault(KdfMemoryKey, envelope.DefaultArgon2Cost.Memory)
	vip.SetDefault(KdfThreadsKey, envelope.DefaultArgon2Cost.Threads)
	vip.SetDefault(NoMetricsKey, false)
	vip.SetDefault(DbUserKey, "root")
	vip.SetDefault(DbPassKey, "secret")
	vip.SetDefault(DbHostKey, "127.0.0.1")
	vip.SetDefault(DbPortKey, 5432)
	vip.SetDefault(DbNameKey, "keeper-db")
	vip.SetDefault(
		DbMigrationPath,
		"file://internal/infrastructure/wallet-registry/postgres/migration",
	)
}

// Validate checks the current configuration and creates the datadir.
// Unlike a daemon, the embedding app must be able to recover from an invalid
// config, that's why this is not done at init.
func Validate() error {
	if err := validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if err := initDatadir(); err != nil {
		return fmt.Errorf("error while creating datadir: %w", err)
	}
	return nil
}

func validate() error {
	datadir := GetString(DatadirKey)
	if len(datadir) <= 0 {
		return fmt.Errorf("datadir must not be null")
	}

	net := GetString(NetworkKey)
	if len(net) == 0 {
		return fmt.Errorf("network must not be null")
	}
	if _, err := singlesig.DefaultRootPath(net); err != nil {
		return fmt.Errorf(
			"unknown network, must be one of: %s",
			strings.Join(singlesig.SupportedNetworks(), " | "),
		)
	}
	if rootPath := GetString(RootPathKey); rootPath != "" {
		if _, err := path.ParseRootDerivationPath(rootPath); err != nil {
			return fmt.Errorf("invalid root path: %w", err)
		}
	}

	storeType := GetString(SecureStoreTypeKey)
	if _, ok := SupportedSecureStores[storeType]; !ok {
		return fmt.Errorf(
			"unsupported secure store type, must be one of %s",
			SupportedSecureStores,
		)
	}
	if storeType == "badger" {
		key, err := hex.DecodeString(GetString(SecureStoreEncryptionKeyKey))
		if err != nil {
			return fmt.Errorf("invalid secure store encryption key format, must be hex")
		}
		if l := len(key); l != 16 && l != 24 && l != 32 {
			return fmt.Errorf(
				"invalid secure store encryption key length, must be 16, 24 or " +
					"32 bytes in hex string format",
			)
		}
	}

	registryType := GetString(RegistryTypeKey)
	if _, ok := SupportedRegistries[registryType]; !ok {
		return fmt.Errorf(
			"unsupported registry type, must be one of %s", SupportedRegistries,
		)
	}

	provider := GetString(CloudProviderKey)
	if _, ok := SupportedCloudProviders[provider]; !ok {
		return fmt.Errorf(
			"unsupported cloud provider, must be one of %s", SupportedCloudProviders,
		)
	}
	if provider == "etcd" {
		if len(GetStringSlice(CloudEndpointsKey)) <= 0 {
			return fmt.Errorf("cloud endpoints list must not be empty")
		}
	}

	version := GetInt(EnvelopeVersionKey)
	if version != envelope.VersionScryptAESGCM &&
		version != envelope.VersionArgon2XChaCha {
		return fmt.Errorf("unsupported envelope version %d", version)
	}
	if GetInt(KdfTimeKey) <= 0 || GetInt(KdfMemoryKey) <= 0 ||
		GetInt(KdfThreadsKey) <= 0 || GetInt(KdfThreadsKey) > 255 {
		return fmt.Errorf("kdf time, memory and threads must be positive")
	}

	return nil
}

func GetDatadir() string {
	return filepath.Join(GetString(DatadirKey), GetString(NetworkKey))
}

func GetNetwork() string {
	return GetString(NetworkKey)
}

func GetRootPath() string {
	rootPath := GetString(RootPathKey)
	if rootPath != "" {
		return rootPath
	}

	rootPath, _ = singlesig.DefaultRootPath(GetNetwork())
	return rootPath
}

func GetCloudRootDir() string {
	if dir := GetString(CloudRootDirKey); dir != "" {
		return dir
	}
	return filepath.Join(GetDatadir(), CloudLocation)
}

func GetCloudDialTimeout() time.Duration {
	return time.Duration(GetInt(CloudDialTimeoutKey)) * time.Second
}

func GetArgon2Cost() envelope.Argon2Cost {
	return envelope.Argon2Cost{
		Time:    uint32(GetInt(KdfTimeKey)),
		Memory:  uint32(GetInt(KdfMemoryKey)),
		Threads: uint8(GetInt(KdfThreadsKey)),
	}
}

func GetString(key string) string {
	return vip.GetString(key)
}

func GetInt(key string) int {
	return vip.GetInt(key)
}

func GetBool(key string) bool {
	return vip.GetBool(key)
}

func GetStringSlice(key string) []string {
	return vip.GetStringSlice(key)
}

func Set(key string, val interface{}) {
	vip.Set(key, val)
}

func Unset(key string) {
	vip.Set(key, nil)
}

func IsSet(key string) bool {
	return vip.IsSet(key)
}

func initDatadir() error {
	datadir := GetDatadir()
	if GetString(SecureStoreTypeKey) == "badger" {
		if err := makeDirectoryIfNotExists(filepath.Join(datadir, DbLocation)); err != nil {
			return err
		}
	}

	if !GetBool(NoMetricsKey) {
		if err := makeDirectoryIfNotExists(filepath.Join(datadir, MetricsLocation)); err != nil {
			return err
		}
	}

	if GetString(CloudProviderKey) == "filesystem" {
		return makeDirectoryIfNotExists(GetCloudRootDir())
	}
	return nil
}

func makeDirectoryIfNotExists(dir string) error {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return os.MkdirAll(dir, os.ModeDir|0700)
	}
	return nil
}

type supportedType map[string]struct{}

func (t supportedType) String() string {
	types := make([]string, 0, len(t))
	for tt := range t {
		types = append(types, tt)
	}
	sort.Strings(types)
	return strings.Join(types, " | ")
}
