package trust

import (
	"encoding/json"
	"fmt"
	"io"
)

// Fixture is a JSON document of organizations and relationships, used to
// populate a MemoryStore for the CLI and for local runs.
type Fixture struct {
	Organizations []Organization `json:"organizations"`
	Relationships []Relationship `json:"relationships"`
}

// LoadFixture decodes a fixture and checks it for dangling organization ids
// and out-of-range scores. Relationships without a status are active.
func LoadFixture(r io.Reader) (*Fixture, error) {
	var f Fixture
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("decode fixture: %w", err)
	}

	known := make(map[string]bool, len(f.Organizations))
	for _, o := range f.Organizations {
		if o.ID == "" {
			return nil, fmt.Errorf("fixture: organization without id")
		}
		known[o.ID] = true
	}
	for i := range f.Relationships {
		rel := &f.Relationships[i]
		if !known[rel.SourceOrg] || !known[rel.TargetOrg] {
			return nil, fmt.Errorf("fixture: relationship %s→%s: %w", rel.SourceOrg, rel.TargetOrg, ErrNotFound)
		}
		if !validScore(rel.Score) {
			return nil, fmt.Errorf("fixture: relationship %s→%s score %v: %w", rel.SourceOrg, rel.TargetOrg, rel.Score, ErrMalformedRelationship)
		}
		if rel.Status == "" {
			rel.Status = StatusActive
		}
	}
	return &f, nil
}

// MemoryStore returns a store holding the fixture's contents.
func (f *Fixture) MemoryStore() *MemoryStore {
	s := NewMemoryStore()
	for _, o := range f.Organizations {
		s.AddOrganization(o)
	}
	for _, r := range f.Relationships {
		s.SetRelationship(r)
	}
	return s
}
