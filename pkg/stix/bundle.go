package stix

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// SpecVersion is the STIX version stamped on objects generated by this package.
const SpecVersion = "2.1"

// identityNamespace seeds deterministic identity identifiers so that the same
// organization always publishes under the same identity id.
var identityNamespace = uuid.NameSpaceURL

// Bundle is a STIX bundle: an envelope around an ordered list of objects.
type Bundle struct {
	Type    string   `json:"type"`
	ID      string   `json:"id"`
	Objects []Object `json:"objects"`
}

// NewBundle returns an empty bundle with a fresh random identifier.
func NewBundle() *Bundle {
	return &Bundle{
		Type:    "bundle",
		ID:      "bundle--" + uuid.NewString(),
		Objects: []Object{},
	}
}

// ParseBundle decodes a bundle and checks the envelope type.
func ParseBundle(data []byte) (*Bundle, error) {
	var b Bundle
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("decode stix bundle: %w", err)
	}
	if b.Type != "bundle" {
		return nil, fmt.Errorf("decode stix bundle: unexpected type %q", b.Type)
	}
	return &b, nil
}

// IDs returns the identifiers of every object in the bundle, in order.
func (b *Bundle) IDs() []string {
	ids := make([]string, 0, len(b.Objects))
	for _, o := range b.Objects {
		ids = append(ids, o.ID())
	}
	return ids
}

// IdentityID derives the deterministic STIX identity id for an organization key.
func IdentityID(orgKey string) string {
	return "identity--" + uuid.NewSHA1(identityNamespace, []byte(orgKey)).String()
}

// NewIdentity builds an organization identity object. id may be empty, in
// which case one is derived from orgKey.
func NewIdentity(id, orgKey, name string, created time.Time) Object {
	if id == "" {
		id = IdentityID(orgKey)
	}
	ts := created.UTC().Format("2006-01-02T15:04:05.000Z")
	return Object{
		"type":           "identity",
		"spec_version":   SpecVersion,
		"id":             id,
		"created":        ts,
		"modified":       ts,
		"name":           name,
		"identity_class": "organization",
	}
}
