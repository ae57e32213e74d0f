package anonymize

import (
	"fmt"
	"slices"
	"strings"

	"github.com/jmerrifield20/intelshare/pkg/stix"
)

// DefaultPlatform is the provenance key namespace used when none is configured.
const DefaultPlatform = "intelshare"

// textFields are the top-level free-text properties scanned for embedded
// addresses, domains, emails and URLs.
var textFields = []string{"name", "description"}

// nestedFields hold lists of embedded objects whose string properties are
// scanned the same way. "objects" is the observed-data map of
// cyber-observables keyed by index.
var nestedFields = []string{"indicators", "ttps", "observables", "objects"}

// nestedSkip are structural properties of embedded objects that are never
// scanned.
var nestedSkip = map[string]struct{}{
	"id": {}, "type": {}, "spec_version": {}, "created": {}, "modified": {},
	"valid_from": {}, "valid_until": {}, "first_seen": {}, "last_seen": {},
	"pattern_type": {}, "pattern_version": {},
}

// observableValueCategory fixes the category of the "value" property of
// cyber-observable objects, so that malformed values still get the
// placeholder of the right category.
var observableValueCategory = map[string]Category{
	"ipv4-addr":   CategoryIPAddress,
	"ipv6-addr":   CategoryIPAddress,
	"domain-name": CategoryDomain,
	"url":         CategoryURL,
	"email-addr":  CategoryEmail,
}

// requiredFields lists, per object type, groups of properties of which at
// least one must survive anonymization if the input had one.
var requiredFields = map[string][][]string{
	"indicator":      {{"pattern"}, {"labels", "indicator_types"}},
	"malware":        {{"name"}},
	"identity":       {{"name"}},
	"threat-actor":   {{"name"}},
	"intrusion-set":  {{"name"}},
	"campaign":       {{"name"}},
	"tool":           {{"name"}},
	"attack-pattern": {{"name"}},
	"relationship":   {{"source_ref"}, {"target_ref"}, {"relationship_type"}},
	"sighting":       {{"sighting_of_ref"}},
}

// ProvenanceKeys are the custom property names stamped on anonymized
// objects. They are part of the output contract.
type ProvenanceKeys struct {
	Anonymized string
	Level      string
	TrustLevel string
	SourceOrg  string
	OriginalID string
}

// NewProvenanceKeys derives the keys for a platform name, e.g. "intelshare"
// gives x_intelshare_anonymized.
func NewProvenanceKeys(platform string) ProvenanceKeys {
	p := sanitizePlatform(platform)
	prefix := "x_" + p + "_"
	return ProvenanceKeys{
		Anonymized: prefix + "anonymized",
		Level:      prefix + "anonymization_level",
		TrustLevel: prefix + "trust_level",
		SourceOrg:  prefix + "source_org",
		OriginalID: prefix + "original_id",
	}
}

func sanitizePlatform(platform string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(platform)) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	if b.Len() == 0 {
		return DefaultPlatform
	}
	return b.String()
}

// Options configures an Anonymizer.
type Options struct {
	// Platform names the provenance key namespace.
	Platform string

	// StrictPatterns turns an unparseable indicator pattern into an
	// AnonymizationError. When false the pattern is kept verbatim and a
	// warning is attached to the Result.
	StrictPatterns bool
}

// Provenance describes why and how an object is being anonymized.
type Provenance struct {
	Level         Level
	TrustScore    float64
	SourceOrgName string
}

// Result is a successfully anonymized object.
type Result struct {
	Object   stix.Object
	Warnings []string
}

// Anonymizer transforms whole STIX objects. It is safe for concurrent use.
type Anonymizer struct {
	table  *Table
	keys   ProvenanceKeys
	strict bool
}

// New creates an Anonymizer over the given strategy table.
func New(table *Table, opts Options) *Anonymizer {
	if table == nil {
		table = NewTable(DefaultTLDTable())
	}
	return &Anonymizer{
		table:  table,
		keys:   NewProvenanceKeys(opts.Platform),
		strict: opts.StrictPatterns,
	}
}

// Table returns the strategy table.
func (a *Anonymizer) Table() *Table { return a.table }

// Keys returns the provenance property names.
func (a *Anonymizer) Keys() ProvenanceKeys { return a.keys }

// Anonymize returns a transformed copy of obj. The input is never modified.
//
// Identifiers and reference properties are copied unchanged. At LevelNone
// the copy is returned as is, without provenance properties. Any failure is
// reported as *AnonymizationError and the object must then not be shared.
func (a *Anonymizer) Anonymize(obj stix.Object, p Provenance) (res *Result, err error) {
	id := obj.ID()
	if !p.Level.IsBase() {
		return nil, &AnonymizationError{ObjectID: id, Err: fmt.Errorf("%w: %s", ErrInvalidLevel, p.Level)}
	}
	if id == "" {
		return nil, &AnonymizationError{Field: "id", Err: ErrMissingRequiredField}
	}
	if obj.Type() == "" {
		return nil, &AnonymizationError{ObjectID: id, Field: "type", Err: ErrMissingRequiredField}
	}

	out := obj.Clone()
	if p.Level == LevelNone {
		return &Result{Object: out}, nil
	}

	defer func() {
		if r := recover(); r != nil {
			res = nil
			err = &AnonymizationError{ObjectID: id, Err: fmt.Errorf("transform panicked: %v", r)}
		}
	}()

	res = &Result{Object: out}

	if pattern, ok := out.String("pattern"); ok {
		anon, perr := a.anonymizePattern(pattern, p.Level)
		switch {
		case perr == nil:
			out["pattern"] = anon
		case a.strict:
			return nil, &AnonymizationError{ObjectID: id, Field: "pattern", Err: perr}
		default:
			res.Warnings = append(res.Warnings, fmt.Sprintf("pattern left unchanged: %v", perr))
		}
	}

	if c, ok := observableValueCategory[out.Type()]; ok {
		if v, ok := out.String("value"); ok {
			anon, aerr := a.table.Anonymize(c, v, p.Level)
			if aerr != nil {
				return nil, &AnonymizationError{ObjectID: id, Field: "value", Err: aerr}
			}
			out["value"] = anon
		}
	}

	if hashes, ok := out["hashes"].(map[string]any); ok {
		for algo, v := range hashes {
			s, ok := v.(string)
			if !ok {
				continue
			}
			anon, aerr := a.table.Anonymize(CategoryFileHash, s, p.Level)
			if aerr != nil {
				return nil, &AnonymizationError{ObjectID: id, Field: "hashes." + algo, Err: aerr}
			}
			hashes[algo] = anon
		}
	}

	for _, f := range textFields {
		if s, ok := out.String(f); ok {
			out[f] = a.table.scanText(s, p.Level)
		}
	}

	for _, f := range nestedFields {
		if v, ok := out[f]; ok {
			nested, nerr := a.walkNested(v, p.Level)
			if nerr != nil {
				return nil, &AnonymizationError{ObjectID: id, Field: f, Err: nerr}
			}
			out[f] = nested
		}
	}

	if err := checkStructure(obj, out); err != nil {
		return nil, &AnonymizationError{ObjectID: id, Err: err}
	}

	out[a.keys.Anonymized] = true
	out[a.keys.Level] = p.Level.String()
	out[a.keys.TrustLevel] = p.TrustScore
	out[a.keys.SourceOrg] = p.SourceOrgName
	out[a.keys.OriginalID] = id
	return res, nil
}

// anonymizePattern transforms every comparison literal of an indicator
// pattern. Literals are substituted back to front so earlier spans stay valid.
func (a *Anonymizer) anonymizePattern(pattern string, level Level) (string, error) {
	literals, err := ExtractLiterals(pattern)
	if err != nil {
		return "", err
	}
	out := pattern
	for i := len(literals) - 1; i >= 0; i-- {
		lit := literals[i]
		anon, _, err := a.table.AnonymizeValue(lit.Value, level)
		if err != nil {
			return "", err
		}
		if anon == lit.Value {
			continue
		}
		out, err = Substitute(out, lit.Span, anon)
		if err != nil {
			return "", err
		}
	}
	return out, nil
}

// walkNested scans every string inside an embedded list or object, skipping
// identifiers, types and references. Nested patterns are parsed as patterns.
func (a *Anonymizer) walkNested(v any, level Level) (any, error) {
	switch t := v.(type) {
	case map[string]any:
		typ, _ := t["type"].(string)
		c, typed := observableValueCategory[typ]
		for k, val := range t {
			if _, skip := nestedSkip[k]; skip || stix.IsReferenceKey(k) {
				continue
			}
			if s, ok := val.(string); ok && typed && k == "value" {
				anon, err := a.table.Anonymize(c, s, level)
				if err != nil {
					return nil, err
				}
				t[k] = anon
				continue
			}
			if s, ok := val.(string); ok && k == "pattern" {
				anon, err := a.anonymizePattern(s, level)
				if err != nil {
					return nil, fmt.Errorf("nested pattern: %w", err)
				}
				t[k] = anon
				continue
			}
			nv, err := a.walkNested(val, level)
			if err != nil {
				return nil, err
			}
			t[k] = nv
		}
		return t, nil
	case []any:
		for i, val := range t {
			nv, err := a.walkNested(val, level)
			if err != nil {
				return nil, err
			}
			t[i] = nv
		}
		return t, nil
	case string:
		if !strings.ContainsAny(t, " \t\r\n") {
			c := Detect(t)
			if c != CategoryOther && (c != CategoryDomain || a.table.domain.Validate(t)) {
				anon, err := a.table.Anonymize(c, t, level)
				if err != nil {
					return nil, err
				}
				return anon, nil
			}
		}
		return a.table.scanText(t, level), nil
	}
	return v, nil
}

// checkStructure verifies that the transformation kept the object's
// identity, references and required properties.
func checkStructure(in, out stix.Object) error {
	if out.ID() != in.ID() {
		return fmt.Errorf("%w: id changed", ErrMissingRequiredField)
	}
	if out.Type() != in.Type() {
		return fmt.Errorf("%w: type changed", ErrMissingRequiredField)
	}
	if !slices.Equal(in.References(), out.References()) {
		return fmt.Errorf("%w: references changed", ErrMissingRequiredField)
	}
	for _, group := range requiredFields[in.Type()] {
		if !anyPresent(in, group) {
			continue
		}
		if !anyPresent(out, group) {
			return fmt.Errorf("%w: %s", ErrMissingRequiredField, strings.Join(group, "|"))
		}
	}
	return nil
}

func anyPresent(o stix.Object, keys []string) bool {
	for _, k := range keys {
		if o.Has(k) {
			return true
		}
	}
	return false
}
