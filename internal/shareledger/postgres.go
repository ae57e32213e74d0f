package shareledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// advisoryLockKey serialises concurrent Append calls across instances.
const advisoryLockKey = int64(1_402_417_113)

const entryColumns = `idx, timestamp, action, bundle_id, publisher_org, requesting_org,
	objects, excluded, data_hash, prev_hash, hash`

// PostgresLedger persists the share chain in the share_ledger table. The
// genesis row is inserted by migration 001.
type PostgresLedger struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewPostgresLedger creates a PostgresLedger backed by pool.
func NewPostgresLedger(pool *pgxpool.Pool, logger *zap.Logger) *PostgresLedger {
	return &PostgresLedger{pool: pool, logger: logger}
}

// Append implements Ledger. The tail read and insert run in one
// transaction under an advisory lock.
func (l *PostgresLedger) Append(ctx context.Context, s *Share) (*Entry, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("marshal share: %w", err)
	}

	tx, err := l.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx, "SELECT pg_advisory_xact_lock($1)", advisoryLockKey); err != nil {
		return nil, fmt.Errorf("acquire advisory lock: %w", err)
	}

	var prevIdx int
	var prevHash string
	if err := tx.QueryRow(ctx,
		"SELECT idx, hash FROM share_ledger ORDER BY idx DESC LIMIT 1",
	).Scan(&prevIdx, &prevHash); err != nil {
		return nil, fmt.Errorf("read ledger tail: %w", err)
	}

	e := newEntry(prevIdx, prevHash, s, data)
	if _, err := tx.Exec(ctx,
		`INSERT INTO share_ledger (`+entryColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		e.Index, e.Timestamp, e.Action, e.BundleID, e.PublisherOrg, e.RequestingOrg,
		e.Objects, e.Excluded, e.DataHash, e.PrevHash, e.Hash,
	); err != nil {
		return nil, fmt.Errorf("insert ledger entry: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit ledger tx: %w", err)
	}

	l.logger.Debug("share recorded",
		zap.Int("idx", e.Index),
		zap.String("bundle_id", e.BundleID),
		zap.String("requesting_org", e.RequestingOrg),
	)
	return e, nil
}

// Get implements Ledger.
func (l *PostgresLedger) Get(ctx context.Context, index int) (*Entry, error) {
	row := l.pool.QueryRow(ctx, `SELECT `+entryColumns+` FROM share_ledger WHERE idx = $1`, index)
	e, err := scanEntry(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("index %d: %w", index, ErrNotFound)
		}
		return nil, fmt.Errorf("get ledger entry %d: %w", index, err)
	}
	return e, nil
}

// Recent implements Ledger.
func (l *PostgresLedger) Recent(ctx context.Context, limit int) ([]*Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := l.pool.Query(ctx,
		`SELECT `+entryColumns+` FROM share_ledger ORDER BY idx DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("query ledger: %w", err)
	}
	defer rows.Close()

	var out []*Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan ledger row: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Len implements Ledger.
func (l *PostgresLedger) Len(ctx context.Context) (int, error) {
	var n int
	if err := l.pool.QueryRow(ctx, "SELECT COUNT(*) FROM share_ledger").Scan(&n); err != nil {
		return 0, fmt.Errorf("count ledger entries: %w", err)
	}
	return n, nil
}

// Verify implements Ledger. It streams every row in index order.
func (l *PostgresLedger) Verify(ctx context.Context) error {
	rows, err := l.pool.Query(ctx, `SELECT `+entryColumns+` FROM share_ledger ORDER BY idx ASC`)
	if err != nil {
		return fmt.Errorf("query ledger: %w", err)
	}
	defer rows.Close()

	var prev *Entry
	for rows.Next() {
		curr, err := scanEntry(rows)
		if err != nil {
			return fmt.Errorf("scan ledger row: %w", err)
		}
		if prev == nil {
			if curr.Hash != GenesisHash {
				return fmt.Errorf("%w: genesis hash %q", ErrChainBroken, curr.Hash)
			}
		} else if err := checkLink(prev, curr); err != nil {
			return err
		}
		prev = curr
	}
	return rows.Err()
}

// Root implements Ledger.
func (l *PostgresLedger) Root(ctx context.Context) (string, error) {
	var hash string
	if err := l.pool.QueryRow(ctx,
		"SELECT hash FROM share_ledger ORDER BY idx DESC LIMIT 1",
	).Scan(&hash); err != nil {
		return "", fmt.Errorf("get ledger root: %w", err)
	}
	return hash, nil
}

func scanEntry(row pgx.Row) (*Entry, error) {
	e := &Entry{}
	err := row.Scan(
		&e.Index, &e.Timestamp, &e.Action, &e.BundleID, &e.PublisherOrg, &e.RequestingOrg,
		&e.Objects, &e.Excluded, &e.DataHash, &e.PrevHash, &e.Hash,
	)
	if err != nil {
		return nil, err
	}
	return e, nil
}
