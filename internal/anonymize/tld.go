package anonymize

import (
	"strings"

	"golang.org/x/net/idna"
)

// TLD categories used by the HIGH level of the domain, email and URL
// strategies.
const (
	TLDCommercial   = "commercial"
	TLDEducational  = "educational"
	TLDGovernment   = "government"
	TLDOrganization = "organization"
	TLDOther        = "other"
)

// TLDTable maps a top-level domain label to its category. Only the final
// label of a domain is consulted, so multi-label suffixes such as "ac.uk"
// resolve through "uk".
type TLDTable struct {
	categories map[string]string
}

var defaultTLDCategories = map[string]string{
	"com":  TLDCommercial,
	"net":  TLDCommercial,
	"biz":  TLDCommercial,
	"info": TLDCommercial,
	"io":   TLDCommercial,
	"co":   TLDCommercial,
	"edu":  TLDEducational,
	"gov":  TLDGovernment,
	"mil":  TLDGovernment,
	"int":  TLDGovernment,
	"org":  TLDOrganization,
	"ngo":  TLDOrganization,
}

// DefaultTLDTable returns the built-in TLD classification.
func DefaultTLDTable() TLDTable {
	return NewTLDTable(nil)
}

// NewTLDTable returns the default classification with overrides applied on
// top. Override keys are TLD labels (a leading dot is ignored); values must
// be one of the TLD* category names, anything else maps to TLDOther.
func NewTLDTable(overrides map[string]string) TLDTable {
	m := make(map[string]string, len(defaultTLDCategories)+len(overrides))
	for k, v := range defaultTLDCategories {
		m[k] = v
	}
	for k, v := range overrides {
		key := strings.ToLower(strings.TrimPrefix(strings.TrimSpace(k), "."))
		if key == "" {
			continue
		}
		m[key] = normalizeTLDCategory(v)
	}
	return TLDTable{categories: m}
}

func normalizeTLDCategory(v string) string {
	switch c := strings.ToLower(strings.TrimSpace(v)); c {
	case TLDCommercial, TLDEducational, TLDGovernment, TLDOrganization:
		return c
	}
	return TLDOther
}

// Category returns the category of the last label of domain.
func (t TLDTable) Category(domain string) string {
	labels := strings.Split(strings.TrimSuffix(strings.ToLower(domain), "."), ".")
	tld := labels[len(labels)-1]
	if c, ok := t.categories[tld]; ok {
		return c
	}
	return TLDOther
}

// normalizeDomain lowercases domain, strips a trailing root dot and converts
// internationalized labels to their ASCII form.
func normalizeDomain(domain string) (string, bool) {
	d := strings.TrimSuffix(strings.ToLower(strings.TrimSpace(domain)), ".")
	if d == "" {
		return "", false
	}
	ascii, err := idna.Lookup.ToASCII(d)
	if err != nil {
		// idna rejects underscores and some legacy labels that still show
		// up in threat data; fall back to the plain lowercase form.
		ascii = d
	}
	if !isDomainName(ascii) {
		return "", false
	}
	return ascii, true
}

// isDomainName reports whether s is at least two dot-separated LDH labels.
func isDomainName(s string) bool {
	s = strings.TrimSuffix(s, ".")
	if len(s) == 0 || len(s) > 253 {
		return false
	}
	labels := strings.Split(s, ".")
	if len(labels) < 2 {
		return false
	}
	for _, l := range labels {
		if len(l) == 0 || len(l) > 63 {
			return false
		}
		if l[0] == '-' || l[len(l)-1] == '-' {
			return false
		}
		for _, r := range l {
			ok := (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') ||
				(r >= '0' && r <= '9') || r == '-' || r == '_' || r >= 0x80
			if !ok {
				return false
			}
		}
	}
	return true
}
