package shareledger

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"
)

// GenesisHash is the fixed hash of entry 0.
const GenesisHash = "0000000000000000000000000000000000000000000000000000000000000000"

const (
	ActionGenesis = "genesis"
	ActionShare   = "share"

	systemActor = "intelshare-system"
)

var (
	ErrNotFound    = errors.New("ledger entry not found")
	ErrChainBroken = errors.New("ledger chain broken")
)

// Share describes one delivered bundle. It is hashed into the entry's
// DataHash; only the summary fields are stored alongside the chain.
type Share struct {
	BundleID      string            `json:"bundle_id"`
	PublisherOrg  string            `json:"publisher_org"`
	RequestingOrg string            `json:"requesting_org"`
	ObjectIDs     []string          `json:"object_ids"`
	Excluded      []string          `json:"excluded,omitempty"`
	Levels        map[string]string `json:"levels"` // source org → anonymization level
}

// Entry is a single audit record.
type Entry struct {
	Index         int       `json:"index"`
	Timestamp     time.Time `json:"timestamp"`
	Action        string    `json:"action"`
	BundleID      string    `json:"bundle_id,omitempty"`
	PublisherOrg  string    `json:"publisher_org,omitempty"`
	RequestingOrg string    `json:"requesting_org"`
	Objects       int       `json:"objects"`
	Excluded      int       `json:"excluded"`
	DataHash      string    `json:"data_hash"`
	PrevHash      string    `json:"prev_hash"`
	Hash          string    `json:"hash"`
}

func genesisEntry() *Entry {
	return &Entry{
		Index:         0,
		Timestamp:     time.Now().UTC(),
		Action:        ActionGenesis,
		RequestingOrg: systemActor,
		DataHash:      GenesisHash,
		PrevHash:      GenesisHash,
		Hash:          GenesisHash,
	}
}

// newEntry builds the entry that follows prev for s. DataHash is the
// SHA-256 of the share's JSON encoding.
func newEntry(prevIndex int, prevHash string, s *Share, data []byte) *Entry {
	e := &Entry{
		Index:         prevIndex + 1,
		Timestamp:     time.Now().UTC().Truncate(time.Microsecond),
		Action:        ActionShare,
		BundleID:      s.BundleID,
		PublisherOrg:  s.PublisherOrg,
		RequestingOrg: s.RequestingOrg,
		Objects:       len(s.ObjectIDs),
		Excluded:      len(s.Excluded),
		DataHash:      sha256Sum(data),
		PrevHash:      prevHash,
	}
	e.Hash = hashEntry(e)
	return e
}

// hashEntry computes the SHA-256 over an entry's fields. Never call it on
// the genesis entry. Timestamps are hashed in UTC at microsecond precision,
// which is what Postgres stores.
func hashEntry(e *Entry) string {
	h := sha256.New()
	fmt.Fprintf(h, "%d|%s|%s|%s|%s|%s|%d|%d|%s|%s",
		e.Index, e.Timestamp.UTC().Format(time.RFC3339Nano),
		e.Action, e.BundleID, e.PublisherOrg, e.RequestingOrg,
		e.Objects, e.Excluded, e.DataHash, e.PrevHash,
	)
	return hex.EncodeToString(h.Sum(nil))
}

func sha256Sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// checkLink validates curr against its predecessor.
func checkLink(prev, curr *Entry) error {
	if curr.PrevHash != prev.Hash {
		return fmt.Errorf("%w at index %d", ErrChainBroken, curr.Index)
	}
	if curr.Hash != hashEntry(curr) {
		return fmt.Errorf("%w: entry %d has invalid hash", ErrChainBroken, curr.Index)
	}
	return nil
}
