package application

import (
	"context"
	"fmt"
	"path"

	log "github.com/sirupsen/logrus"
	"github.com/vulpemventures/keeper/internal/core/domain"
	"github.com/vulpemventures/keeper/internal/core/ports"
	"github.com/vulpemventures/keeper/pkg/envelope"
)

const (
	backupRoot      = "backups"
	backupExtension = ".json"
)

// BackupPath returns the path of the envelope of the given wallet, relative
// to the account namespace of the cloud storage.
func BackupPath(address string) string {
	return path.Join(backupRoot, address+backupExtension)
}

// CloudBackupChannel moves wallet envelopes to and from the cloud storage of
// an account. It never retries: every failure to reach the provider is
// reported as domain.ErrCloudUnavailable and left to the caller.
type CloudBackupChannel struct {
	authenticator ports.CloudAuthenticator
	storeFactory  ports.CloudObjectStoreFactory
}

func NewCloudBackupChannel(
	authenticator ports.CloudAuthenticator,
	storeFactory ports.CloudObjectStoreFactory,
) *CloudBackupChannel {
	return &CloudBackupChannel{authenticator, storeFactory}
}

func (c *CloudBackupChannel) Write(
	ctx context.Context, account domain.Account, address string,
	env *envelope.Envelope,
) error {
	if err := validateBackupAddress(address); err != nil {
		return err
	}
	if env == nil {
		return fmt.Errorf("%w: missing envelope", envelope.ErrUnsupportedEnvelope)
	}
	buf, err := env.Serialize()
	if err != nil {
		return err
	}

	store, err := c.openStore(ctx, account)
	if err != nil {
		return err
	}
	defer store.Close()

	found, err := store.Exists(ctx, backupRoot)
	if err != nil {
		return cloudUnavailable(err)
	}
	if !found {
		if err := store.Mkdir(ctx, backupRoot); err != nil {
			return cloudUnavailable(err)
		}
		c.logFn("created backup folder for account %s", account.ID)
	}

	backupPath := BackupPath(address)
	if err := store.Write(ctx, backupPath, buf); err != nil {
		return cloudUnavailable(err)
	}

	c.logFn(
		"stored backup of wallet %s on %s", address, c.storeFactory.Provider(),
	)
	return nil
}

func (c *CloudBackupChannel) Read(
	ctx context.Context, account domain.Account, address string,
) (*envelope.Envelope, error) {
	if err := validateBackupAddress(address); err != nil {
		return nil, err
	}

	store, err := c.openStore(ctx, account)
	if err != nil {
		return nil, err
	}
	defer store.Close()

	backupPath := BackupPath(address)
	for _, p := range []string{backupRoot, backupPath} {
		if err := store.Sync(ctx, p); err != nil {
			c.warnFn(err, "failed to sync %s, going on with local view", p)
		}
	}

	found, err := store.Exists(ctx, backupPath)
	if err != nil {
		return nil, cloudUnavailable(err)
	}
	if !found {
		return nil, domain.ErrBackupNotFound
	}

	buf, err := store.Read(ctx, backupPath)
	if err != nil {
		return nil, cloudUnavailable(err)
	}

	env, err := envelope.Parse(buf)
	if err != nil {
		c.warnFn(err, "backup of wallet %s is malformed", address)
		return nil, err
	}
	return env, nil
}

func (c *CloudBackupChannel) Exists(
	ctx context.Context, account domain.Account, address string,
) (bool, error) {
	found, err := c.ExistsMany(ctx, account, []string{address})
	if err != nil {
		return false, err
	}
	return found[address], nil
}

// ExistsMany checks the presence of the backups of many wallets with a single
// connection to the provider.
func (c *CloudBackupChannel) ExistsMany(
	ctx context.Context, account domain.Account, addresses []string,
) (map[string]bool, error) {
	for _, addr := range addresses {
		if err := validateBackupAddress(addr); err != nil {
			return nil, err
		}
	}

	store, err := c.openStore(ctx, account)
	if err != nil {
		return nil, err
	}
	defer store.Close()

	if err := store.Sync(ctx, backupRoot); err != nil {
		c.warnFn(err, "failed to sync %s, going on with local view", backupRoot)
	}

	found := make(map[string]bool, len(addresses))
	for _, addr := range addresses {
		ok, err := store.Exists(ctx, BackupPath(addr))
		if err != nil {
			return nil, cloudUnavailable(err)
		}
		found[addr] = ok
	}
	return found, nil
}

func (c *CloudBackupChannel) openStore(
	ctx context.Context, account domain.Account,
) (ports.CloudObjectStore, error) {
	if err := account.Validate(); err != nil {
		return nil, err
	}

	cred, err := c.authenticator.Authenticate(ctx, account)
	if err != nil {
		return nil, cloudUnavailable(err)
	}
	store, err := c.storeFactory.NewStore(ctx, cred)
	if err != nil {
		return nil, cloudUnavailable(err)
	}
	if err := store.Ping(ctx); err != nil {
		store.Close()
		return nil, cloudUnavailable(err)
	}
	return store, nil
}

func (c *CloudBackupChannel) logFn(format string, a ...interface{}) {
	format = fmt.Sprintf("cloud backup: %s", format)
	log.Debugf(format, a...)
}

func (c *CloudBackupChannel) warnFn(err error, format string, a ...interface{}) {
	format = fmt.Sprintf("cloud backup: %s", format)
	log.WithError(err).Warnf(format, a...)
}

func cloudUnavailable(err error) error {
	return fmt.Errorf("%w: %s", domain.ErrCloudUnavailable, err)
}

// validateBackupAddress makes sure the address can be safely used as a file
// name. Both bech32 and base58 addresses are alphanumeric.
func validateBackupAddress(address string) error {
	if address == "" {
		return domain.ErrMissingAddress
	}
	for _, r := range address {
		isAlnum := (r >= '0' && r <= '9') ||
			(r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
		if !isAlnum {
			return domain.ErrInvalidAddress
		}
	}
	return nil
}
