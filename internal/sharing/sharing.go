// Package sharing assembles outbound STIX bundles for a requesting
// organization, anonymizing each record according to the trust its source
// organization places in the requester.
//
// Assembly fails closed: a record that cannot be anonymized is left out of
// the bundle and reported in Outcome.Excluded.
package sharing

import (
	"errors"

	"github.com/jmerrifield20/intelshare/internal/anonymize"
	"github.com/jmerrifield20/intelshare/pkg/stix"
)

// ErrUnknownOrganization is returned when the requesting or publishing
// organization does not exist. It fails the whole request.
var ErrUnknownOrganization = errors.New("unknown organization")

// Record is one object offered for sharing together with the organization
// that contributed it.
type Record struct {
	SourceOrg string      `json:"source_org"`
	Object    stix.Object `json:"object"`
}

// Request asks for the given records to be delivered to RequestingOrg in a
// bundle published by PublisherOrg.
type Request struct {
	RequestingOrg string   `json:"requesting_org"`
	PublisherOrg  string   `json:"publisher_org"`
	Records       []Record `json:"records"`
}

// Exclusion reports a record left out of the bundle.
type Exclusion struct {
	Index     int    `json:"index"`
	ObjectID  string `json:"object_id,omitempty"`
	SourceOrg string `json:"source_org,omitempty"`
	Reason    string `json:"reason"`
}

// Outcome is the result of a successful assembly.
type Outcome struct {
	Bundle   *stix.Bundle               `json:"bundle"`
	Excluded []Exclusion                `json:"excluded"`
	Warnings []string                   `json:"warnings"`
	Levels   map[string]anonymize.Level `json:"levels"` // source org → applied level
}
