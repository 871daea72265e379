package registrypostgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/lightningnetwork/lnd/clock"
	log "github.com/sirupsen/logrus"
	"github.com/vulpemventures/keeper/internal/core/domain"
	"github.com/vulpemventures/keeper/internal/core/ports"

	_ "github.com/golang-migrate/migrate/v4/source/file"
)

const (
	postgresDriver             = "pgx"
	insecureDataSourceTemplate = "postgresql://%s:%s@%s:%d/%s?sslmode=disable"
	// uniqueViolation is a postgres error code for unique constraint violation
	uniqueViolation = "23505"

	walletColumns = "address, label, created_at, local_backup_at, cloud_backup_at"

	insertWalletQuery = `INSERT INTO linked_wallet
		(account_id, address, label, created_at) VALUES ($1, $2, $3, $4)
		RETURNING ` + walletColumns
	selectWalletQuery = `SELECT ` + walletColumns + ` FROM linked_wallet
		WHERE account_id = $1 AND address = $2`
	selectWalletsQuery = `SELECT ` + walletColumns + ` FROM linked_wallet
		WHERE account_id = $1 ORDER BY created_at, address`
	updateLocalBackupQuery = `UPDATE linked_wallet SET local_backup_at = $3
		WHERE account_id = $1 AND address = $2 RETURNING ` + walletColumns
	updateCloudBackupQuery = `UPDATE linked_wallet SET cloud_backup_at = $3
		WHERE account_id = $1 AND address = $2 RETURNING ` + walletColumns
)

type DbConfig struct {
	DbUser             string
	DbPassword         string
	DbHost             string
	DbPort             int
	DbName             string
	MigrationSourceURL string
}

type walletRegistry struct {
	pgxPool *pgxpool.Pool
	clock   clock.Clock

	log func(format string, a ...interface{})
}

// NewWalletRegistry connects to the db, applies any pending migration and
// returns a postgres implementation of ports.WalletRegistry.
func NewWalletRegistry(
	dbConfig DbConfig, clk clock.Clock,
) (ports.WalletRegistry, error) {
	if clk == nil {
		clk = clock.NewDefaultClock()
	}
	dataSource := insecureDataSourceStr(dbConfig)

	pgxPool, err := connect(dataSource)
	if err != nil {
		return nil, fmt.Errorf("connecting to registry db: %w", err)
	}

	if err = migrateDb(dataSource, dbConfig.MigrationSourceURL); err != nil {
		pgxPool.Close()
		return nil, fmt.Errorf("migrating registry db: %w", err)
	}

	logFn := func(format string, a ...interface{}) {
		format = fmt.Sprintf("wallet registry: %s", format)
		log.Debugf(format, a...)
	}
	return &walletRegistry{pgxPool, clk, logFn}, nil
}

func (r *walletRegistry) ListLinkedWallets(
	ctx context.Context, account domain.Account,
) ([]domain.LinkedWallet, error) {
	if err := account.Validate(); err != nil {
		return nil, err
	}

	rows, err := r.pgxPool.Query(ctx, selectWalletsQuery, account.ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	wallets := make([]domain.LinkedWallet, 0)
	for rows.Next() {
		w, err := scanWallet(rows)
		if err != nil {
			return nil, err
		}
		wallets = append(wallets, *w)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return wallets, nil
}

func (r *walletRegistry) GetLinkedWallet(
	ctx context.Context, account domain.Account, address string,
) (*domain.LinkedWallet, error) {
	if err := validateArgs(account, address); err != nil {
		return nil, err
	}

	w, err := scanWallet(
		r.pgxPool.QueryRow(ctx, selectWalletQuery, account.ID, address),
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return w, nil
}

func (r *walletRegistry) CreateWalletRecord(
	ctx context.Context, account domain.Account, address string,
	metadata ports.WalletMetadata,
) (*domain.LinkedWallet, error) {
	if err := validateArgs(account, address); err != nil {
		return nil, err
	}

	w, err := scanWallet(r.pgxPool.QueryRow(
		ctx, insertWalletQuery,
		account.ID, address, metadata.Label, r.clock.Now().Unix(),
	))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			r.log("wallet %s already linked", address)
			return r.GetLinkedWallet(ctx, account, address)
		}
		return nil, err
	}

	r.log("linked wallet %s", address)
	return w, nil
}

func (r *walletRegistry) MarkBackup(
	ctx context.Context, account domain.Account, address string,
	kind domain.BackupKind,
) (*domain.LinkedWallet, error) {
	if err := validateArgs(account, address); err != nil {
		return nil, err
	}

	var query string
	switch kind {
	case domain.BackupLocal:
		query = updateLocalBackupQuery
	case domain.BackupCloud:
		query = updateCloudBackupQuery
	default:
		return nil, fmt.Errorf("unknown backup kind %d", kind)
	}

	w, err := scanWallet(r.pgxPool.QueryRow(
		ctx, query, account.ID, address, r.clock.Now().Unix(),
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrWalletNotPreviouslyLinked
		}
		return nil, err
	}

	r.log("marked %s backup for wallet %s", kind, address)
	return w, nil
}

func (r *walletRegistry) Close() {
	r.pgxPool.Close()
}

func scanWallet(row pgx.Row) (*domain.LinkedWallet, error) {
	var w domain.LinkedWallet
	if err := row.Scan(
		&w.Address, &w.Label, &w.CreatedAt, &w.LocalBackupAt, &w.CloudBackupAt,
	); err != nil {
		return nil, err
	}
	return &w, nil
}

func validateArgs(account domain.Account, address string) error {
	if err := account.Validate(); err != nil {
		return err
	}
	if address == "" {
		return domain.ErrMissingAddress
	}
	return nil
}

func connect(dataSource string) (*pgxpool.Pool, error) {
	return pgxpool.Connect(context.Background(), dataSource)
}

func migrateDb(dataSource, migrationSourceUrl string) error {
	pg := postgres.Postgres{}

	d, err := pg.Open(dataSource)
	if err != nil {
		return err
	}

	m, err := migrate.NewWithDatabaseInstance(
		migrationSourceUrl,
		postgresDriver,
		d,
	)
	if err != nil {
		return err
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return err
	}

	return nil
}

// insecureDataSourceStr converts database configuration params to connection string
func insecureDataSourceStr(dbConfig DbConfig) string {
	return fmt.Sprintf(
		insecureDataSourceTemplate,
		dbConfig.DbUser,
		dbConfig.DbPassword,
		dbConfig.DbHost,
		dbConfig.DbPort,
		dbConfig.DbName,
	)
}
