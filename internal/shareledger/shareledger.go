// Package shareledger is an append-only, hash-chained audit log of bundles
// delivered to requesting organizations.
//
// The chain starts with a genesis entry whose Hash is GenesisHash. Each
// later entry commits to its predecessor's hash and to the SHA-256 of the
// share it records, so Verify detects any rewritten or dropped entry.
package shareledger
