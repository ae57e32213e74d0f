package trust

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore reads organizations and trust relationships from PostgreSQL.
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore creates a PostgresStore backed by the given pool.
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

// Organization implements Store.
func (s *PostgresStore) Organization(ctx context.Context, id string) (*Organization, error) {
	o := &Organization{}
	err := s.db.QueryRow(ctx,
		`SELECT id, name, kind, identity_id, created_at FROM organizations WHERE id = $1`, id,
	).Scan(&o.ID, &o.Name, &o.Kind, &o.IdentityID, &o.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("organization %q: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("get organization %q: %w", id, err)
	}
	return o, nil
}

// Relationship implements Store.
func (s *PostgresStore) Relationship(ctx context.Context, sourceOrg, targetOrg string) (*Relationship, error) {
	r := &Relationship{}
	err := s.db.QueryRow(ctx,
		`SELECT source_org, target_org, score, explicit, status, updated_at
		 FROM trust_relationships
		 WHERE source_org = $1 AND target_org = $2`, sourceOrg, targetOrg,
	).Scan(&r.SourceOrg, &r.TargetOrg, &r.Score, &r.Explicit, &r.Status, &r.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("relationship %s→%s: %w", sourceOrg, targetOrg, ErrNotFound)
		}
		return nil, fmt.Errorf("get relationship %s→%s: %w", sourceOrg, targetOrg, err)
	}
	return r, nil
}

// UpsertOrganization inserts an organization or updates its name and kind.
func (s *PostgresStore) UpsertOrganization(ctx context.Context, o *Organization) error {
	if o.CreatedAt.IsZero() {
		o.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.Exec(ctx, `
		INSERT INTO organizations (id, name, kind, identity_id, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE
		SET name = EXCLUDED.name, kind = EXCLUDED.kind, identity_id = EXCLUDED.identity_id`,
		o.ID, o.Name, o.Kind, o.IdentityID, o.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert organization %q: %w", o.ID, err)
	}
	return nil
}

// UpsertRelationship inserts or replaces the relationship for its pair.
// Scores outside [0, 1] are rejected before reaching the database.
func (s *PostgresStore) UpsertRelationship(ctx context.Context, r *Relationship) error {
	if !validScore(r.Score) {
		return fmt.Errorf("relationship %s→%s score %v: %w", r.SourceOrg, r.TargetOrg, r.Score, ErrMalformedRelationship)
	}
	r.UpdatedAt = time.Now().UTC()
	_, err := s.db.Exec(ctx, `
		INSERT INTO trust_relationships (source_org, target_org, score, explicit, status, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (source_org, target_org) DO UPDATE
		SET score = EXCLUDED.score, explicit = EXCLUDED.explicit,
		    status = EXCLUDED.status, updated_at = EXCLUDED.updated_at`,
		r.SourceOrg, r.TargetOrg, r.Score, r.Explicit, r.Status, r.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert relationship %s→%s: %w", r.SourceOrg, r.TargetOrg, err)
	}
	return nil
}
