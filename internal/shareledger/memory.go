package shareledger

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// MemoryLedger is an in-memory Ledger for tests and single-process
// deployments.
type MemoryLedger struct {
	mu      sync.RWMutex
	entries []*Entry
}

// New creates a MemoryLedger holding only the genesis entry.
func New() *MemoryLedger {
	return &MemoryLedger{entries: []*Entry{genesisEntry()}}
}

// Append implements Ledger.
func (l *MemoryLedger) Append(_ context.Context, s *Share) (*Entry, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("marshal share: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	prev := l.entries[len(l.entries)-1]
	e := newEntry(prev.Index, prev.Hash, s, data)
	l.entries = append(l.entries, e)
	return e, nil
}

// Get implements Ledger.
func (l *MemoryLedger) Get(_ context.Context, index int) (*Entry, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if index < 0 || index >= len(l.entries) {
		return nil, fmt.Errorf("index %d: %w", index, ErrNotFound)
	}
	e := *l.entries[index]
	return &e, nil
}

// Recent implements Ledger.
func (l *MemoryLedger) Recent(_ context.Context, limit int) ([]*Entry, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if limit <= 0 || limit > len(l.entries) {
		limit = len(l.entries)
	}
	out := make([]*Entry, 0, limit)
	for i := len(l.entries) - 1; i >= 0 && len(out) < limit; i-- {
		e := *l.entries[i]
		out = append(out, &e)
	}
	return out, nil
}

// Len implements Ledger.
func (l *MemoryLedger) Len(_ context.Context) (int, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries), nil
}

// Verify implements Ledger.
func (l *MemoryLedger) Verify(_ context.Context) error {
	l.mu.RLock()
	defer l.mu.RUnlock()

	for i, curr := range l.entries {
		if i == 0 {
			if curr.Hash != GenesisHash {
				return fmt.Errorf("%w: genesis hash %q", ErrChainBroken, curr.Hash)
			}
			continue
		}
		if err := checkLink(l.entries[i-1], curr); err != nil {
			return err
		}
	}
	return nil
}

// Root implements Ledger.
func (l *MemoryLedger) Root(_ context.Context) (string, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.entries[len(l.entries)-1].Hash, nil
}

