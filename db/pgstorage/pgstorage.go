package pgstorage

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/starkex-recovery/disbursal-service/etherman"
	"github.com/starkex-recovery/disbursal-service/log"
	"github.com/starkex-recovery/disbursal-service/utils/gerror"
)

// RootName identifies one of the committed roots.
type RootName string

const (
	// VaultRootName is the committed vault root entry.
	VaultRootName = RootName("vault_root")
	// AccountRootName is the committed account root entry.
	AccountRootName = RootName("account_root")
)

// uniqueViolationCode is the postgres error code of a unique constraint violation.
const uniqueViolationCode = "23505"

// execQuerier restricts the query surface shared by the pool and an open tx.
type execQuerier interface {
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

// PostgresStorage implements the db.Storage interface
type PostgresStorage struct {
	*pgxpool.Pool
}

// NewPostgresStorage creates a new Storage DB
func NewPostgresStorage(cfg Config) (*PostgresStorage, error) {
	config, err := pgxpool.ParseConfig(fmt.Sprintf("postgres://%s:%s@%s:%s/%s?pool_max_conns=%d", cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Name, cfg.MaxConns))
	if err != nil {
		log.Errorf("unable to parse DB config: %v", err)
		return nil, err
	}
	db, err := pgxpool.ConnectConfig(context.Background(), config)
	if err != nil {
		log.Errorf("unable to connect to database: %v", err)
		return nil, err
	}
	return &PostgresStorage{db}, nil
}

// getExecQuerier determines which execQuerier to use, dbTx or the main pgxpool
func (p *PostgresStorage) getExecQuerier(dbTx pgx.Tx) execQuerier {
	if dbTx != nil {
		return dbTx
	}
	return p
}

// BeginDBTransaction starts a transaction block.
func (p *PostgresStorage) BeginDBTransaction(ctx context.Context) (pgx.Tx, error) {
	return p.Begin(ctx)
}

// Commit commits a db transaction.
func (p *PostgresStorage) Commit(ctx context.Context, dbTx pgx.Tx) error {
	if dbTx != nil {
		return dbTx.Commit(ctx)
	}
	return gerror.ErrNilDBTransaction
}

// Rollback rollbacks a db transaction.
func (p *PostgresStorage) Rollback(ctx context.Context, dbTx pgx.Tx) error {
	if dbTx != nil {
		return dbTx.Rollback(ctx)
	}
	return gerror.ErrNilDBTransaction
}

// GetRoot gets a committed root by name.
func (p *PostgresStorage) GetRoot(ctx context.Context, name RootName, dbTx pgx.Tx) ([]byte, error) {
	var value []byte
	const getRootSQL = "SELECT value FROM disbursal.committed_root WHERE name = $1"

	e := p.getExecQuerier(dbTx)
	err := e.QueryRow(ctx, getRootSQL, string(name)).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, gerror.ErrStorageNotFound
	} else if err != nil {
		return nil, err
	}
	return value, nil
}

// SetRoot stores a committed root. Overwrites are allowed here; the
// commit-once rule is enforced by the admin manager.
func (p *PostgresStorage) SetRoot(ctx context.Context, name RootName, value []byte, dbTx pgx.Tx) error {
	const setRootSQL = "INSERT INTO disbursal.committed_root (name, value) VALUES ($1, $2) ON CONFLICT (name) DO UPDATE SET value = excluded.value"

	e := p.getExecQuerier(dbTx)
	_, err := e.Exec(ctx, setRootSQL, string(name), value)
	return err
}

// IsFinalized returns whether the admin surface was finalized.
func (p *PostgresStorage) IsFinalized(ctx context.Context, dbTx pgx.Tx) (bool, error) {
	var finalized bool
	const isFinalizedSQL = "SELECT finalized FROM disbursal.admin_state"

	e := p.getExecQuerier(dbTx)
	err := e.QueryRow(ctx, isFinalizedSQL).Scan(&finalized)
	return finalized, err
}

// SetFinalized marks the admin surface as finalized. There is no way back.
func (p *PostgresStorage) SetFinalized(ctx context.Context, dbTx pgx.Tx) error {
	const setFinalizedSQL = "UPDATE disbursal.admin_state SET finalized = TRUE"

	e := p.getExecQuerier(dbTx)
	_, err := e.Exec(ctx, setFinalizedSQL)
	return err
}

// AddTokenAssociation stores a new token mapping.
func (p *PostgresStorage) AddTokenAssociation(ctx context.Context, association *etherman.TokenAssociation, dbTx pgx.Tx) error {
	const addTokenAssociationSQL = "INSERT INTO disbursal.token_association (asset_id, quantum, destination) VALUES ($1, $2, $3)"

	e := p.getExecQuerier(dbTx)
	_, err := e.Exec(ctx, addTokenAssociationSQL, association.AssetID.String(), association.Quantum.String(), association.Destination)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
		return gerror.ErrAssetAlreadyRegistered
	}
	return err
}

// GetTokenAssociation gets the token mapping of the asset id.
func (p *PostgresStorage) GetTokenAssociation(ctx context.Context, assetID *big.Int, dbTx pgx.Tx) (*etherman.TokenAssociation, error) {
	var (
		rawAssetID  string
		rawQuantum  string
		destination common.Address
	)
	const getTokenAssociationSQL = "SELECT asset_id, quantum, destination FROM disbursal.token_association WHERE asset_id = $1"

	e := p.getExecQuerier(dbTx)
	err := e.QueryRow(ctx, getTokenAssociationSQL, assetID.String()).Scan(&rawAssetID, &rawQuantum, &destination)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, gerror.ErrStorageNotFound
	} else if err != nil {
		return nil, err
	}
	return parseTokenAssociation(rawAssetID, rawQuantum, destination)
}

func parseTokenAssociation(rawAssetID, rawQuantum string, destination common.Address) (*etherman.TokenAssociation, error) {
	id, ok := new(big.Int).SetString(rawAssetID, 10) //nolint:gomnd
	if !ok {
		return nil, fmt.Errorf("malformed asset id in storage: %q", rawAssetID)
	}
	quantum, ok := new(big.Int).SetString(rawQuantum, 10) //nolint:gomnd
	if !ok {
		return nil, fmt.Errorf("malformed quantum in storage: %q", rawQuantum)
	}
	return &etherman.TokenAssociation{AssetID: id, Quantum: quantum, Destination: destination}, nil
}

// IsClaimed returns whether the claim key is present in the ledger.
func (p *PostgresStorage) IsClaimed(ctx context.Context, key [32]byte, dbTx pgx.Tx) (bool, error) {
	var count int
	const isClaimedSQL = "SELECT count(*) FROM disbursal.claim WHERE key = $1"

	e := p.getExecQuerier(dbTx)
	err := e.QueryRow(ctx, isClaimedSQL, key[:]).Scan(&count)
	return count > 0, err
}

// AddClaim inserts the claim key. A second insert of the same key fails with
// gerror.ErrAlreadyClaimed.
func (p *PostgresStorage) AddClaim(ctx context.Context, key [32]byte, ownerKey, assetID *big.Int, dbTx pgx.Tx) error {
	const addClaimSQL = "INSERT INTO disbursal.claim (key, owner_key, asset_id) VALUES ($1, $2, $3)"

	e := p.getExecQuerier(dbTx)
	_, err := e.Exec(ctx, addClaimSQL, key[:], ownerKey.String(), assetID.String())
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
		return gerror.ErrAlreadyClaimed
	}
	return err
}

// AddDisbursement stores the audit record of a completed payout.
func (p *PostgresStorage) AddDisbursement(ctx context.Context, disbursement *etherman.Disbursement, dbTx pgx.Tx) error {
	const addDisbursementSQL = "INSERT INTO disbursal.disbursement (owner_key, asset_id, destination, amount, tx_hash, created_at) VALUES ($1, $2, $3, $4, $5, $6)"

	e := p.getExecQuerier(dbTx)
	_, err := e.Exec(ctx, addDisbursementSQL, disbursement.OwnerKey.String(), disbursement.AssetID.String(), disbursement.Destination, disbursement.Amount.String(), disbursement.TxHash, disbursement.Time)
	return err
}

// GetDisbursements returns completed payouts, newest first.
func (p *PostgresStorage) GetDisbursements(ctx context.Context, limit, offset uint, dbTx pgx.Tx) ([]*etherman.Disbursement, error) {
	const getDisbursementsSQL = "SELECT owner_key, asset_id, destination, amount, tx_hash, created_at FROM disbursal.disbursement ORDER BY id DESC LIMIT $1 OFFSET $2"

	e := p.getExecQuerier(dbTx)
	rows, err := e.Query(ctx, getDisbursementsSQL, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var disbursements []*etherman.Disbursement
	for rows.Next() {
		var (
			d          etherman.Disbursement
			rawOwner   string
			rawAssetID string
			rawAmount  string
		)
		err = rows.Scan(&rawOwner, &rawAssetID, &d.Destination, &rawAmount, &d.TxHash, &d.Time)
		if err != nil {
			return nil, err
		}
		if d.OwnerKey, err = parseDecimal(rawOwner); err != nil {
			return nil, err
		}
		if d.AssetID, err = parseDecimal(rawAssetID); err != nil {
			return nil, err
		}
		if d.Amount, err = parseDecimal(rawAmount); err != nil {
			return nil, err
		}
		disbursements = append(disbursements, &d)
	}
	return disbursements, rows.Err()
}

func parseDecimal(s string) (*big.Int, error) {
	v, ok := new(big.Int).SetString(s, 10) //nolint:gomnd
	if !ok {
		return nil, fmt.Errorf("malformed decimal in storage: %q", s)
	}
	return v, nil
}
