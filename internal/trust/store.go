package trust

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned by stores when an organization or relationship
	// does not exist.
	ErrNotFound = errors.New("not found")

	// ErrMalformedRelationship reports a relationship whose score is not a
	// number in [0, 1].
	ErrMalformedRelationship = errors.New("malformed trust relationship")
)

// Organization kinds used by the default score table.
const (
	KindUniversity = "university"
	KindGovernment = "government"
	KindCommercial = "commercial"
	KindNonProfit  = "nonprofit"
)

// Organization is a participant in the sharing community.
type Organization struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Kind       string    `json:"kind"`
	IdentityID string    `json:"identity_id,omitempty"` // STIX identity id; derived when empty
	CreatedAt  time.Time `json:"created_at"`
}

// RelationshipStatus is the lifecycle state of an explicit relationship.
type RelationshipStatus string

const (
	StatusPending RelationshipStatus = "pending"
	StatusActive  RelationshipStatus = "active"
	StatusRevoked RelationshipStatus = "revoked"
)

// Relationship is a directed trust grant from SourceOrg to TargetOrg. Only
// relationships that are both active and explicit are effective; others fall
// through to the default table.
type Relationship struct {
	SourceOrg string             `json:"source_org"`
	TargetOrg string             `json:"target_org"`
	Score     float64            `json:"score"`
	Explicit  bool               `json:"explicit"`
	Status    RelationshipStatus `json:"status"`
	UpdatedAt time.Time          `json:"updated_at"`
}

// Store is the read-only view of organization and trust data the resolver
// consumes. Implementations return ErrNotFound (possibly wrapped) for
// missing rows.
type Store interface {
	Organization(ctx context.Context, id string) (*Organization, error)
	Relationship(ctx context.Context, sourceOrg, targetOrg string) (*Relationship, error)
}
