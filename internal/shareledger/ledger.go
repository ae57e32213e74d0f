package shareledger

import "context"

// Ledger is the append-only share audit log. MemoryLedger and
// PostgresLedger implement it.
type Ledger interface {
	// Append records a delivered bundle, chained to the previous entry.
	Append(ctx context.Context, s *Share) (*Entry, error)

	// Get returns the entry at the given zero-based index.
	Get(ctx context.Context, index int) (*Entry, error)

	// Recent returns up to limit entries, newest first.
	Recent(ctx context.Context, limit int) ([]*Entry, error)

	// Len returns the number of entries including genesis.
	Len(ctx context.Context) (int, error)

	// Verify walks the chain and returns an error wrapping ErrChainBroken
	// at the first inconsistency.
	Verify(ctx context.Context) error

	// Root returns the hash of the newest entry.
	Root(ctx context.Context) (string, error)
}
