// Package stix provides a minimal, schema-agnostic representation of STIX 2.x
// objects and bundles.
//
// Objects are kept as generic JSON maps so that unknown and custom (x_*)
// properties survive a round-trip untouched. Helpers expose the handful of
// properties the sharing engine needs: the identifier, the type and the
// reference properties that link objects into a graph.
package stix

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Object is a single STIX domain, relationship or cyber-observable object.
type Object map[string]any

// ID returns the object's "id" property, or "" when absent.
func (o Object) ID() string {
	s, _ := o["id"].(string)
	return s
}

// Type returns the object's "type" property, or "" when absent.
func (o Object) Type() string {
	s, _ := o["type"].(string)
	return s
}

// String returns a string-valued property.
func (o Object) String(key string) (string, bool) {
	s, ok := o[key].(string)
	return s, ok
}

// Has reports whether the property is present and non-empty.
func (o Object) Has(key string) bool {
	v, ok := o[key]
	if !ok || v == nil {
		return false
	}
	switch t := v.(type) {
	case string:
		return t != ""
	case []any:
		return len(t) > 0
	case []string:
		return len(t) > 0
	case map[string]any:
		return len(t) > 0
	}
	return true
}

// Clone returns a deep copy of the object. Nested maps and slices are copied;
// scalar values are shared.
func (o Object) Clone() Object {
	if o == nil {
		return nil
	}
	return cloneValue(map[string]any(o)).(map[string]any)
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case Object:
		return Object(cloneValue(map[string]any(t)).(map[string]any))
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = cloneValue(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = cloneValue(val)
		}
		return out
	case []string:
		out := make([]string, len(t))
		copy(out, t)
		return out
	default:
		return v
	}
}

// IsReferenceKey reports whether a property name holds identifiers of other
// objects. Reference properties end in "_ref" or "_refs" by STIX convention.
func IsReferenceKey(key string) bool {
	return strings.HasSuffix(key, "_ref") || strings.HasSuffix(key, "_refs")
}

// References returns every identifier this object points at through its
// top-level and nested reference properties, sorted and de-duplicated.
func (o Object) References() []string {
	seen := make(map[string]struct{})
	collectRefs(map[string]any(o), seen)
	refs := make([]string, 0, len(seen))
	for r := range seen {
		refs = append(refs, r)
	}
	sort.Strings(refs)
	return refs
}

func collectRefs(v any, seen map[string]struct{}) {
	switch t := v.(type) {
	case map[string]any:
		for k, val := range t {
			if IsReferenceKey(k) {
				switch r := val.(type) {
				case string:
					seen[r] = struct{}{}
				case []any:
					for _, item := range r {
						if s, ok := item.(string); ok {
							seen[s] = struct{}{}
						}
					}
				case []string:
					for _, s := range r {
						seen[s] = struct{}{}
					}
				}
				continue
			}
			collectRefs(val, seen)
		}
	case Object:
		collectRefs(map[string]any(t), seen)
	case []any:
		for _, item := range t {
			collectRefs(item, seen)
		}
	}
}

// ParseObject decodes a single JSON object.
func ParseObject(data []byte) (Object, error) {
	var o Object
	if err := json.Unmarshal(data, &o); err != nil {
		return nil, fmt.Errorf("decode stix object: %w", err)
	}
	if o == nil {
		return nil, fmt.Errorf("decode stix object: null")
	}
	return o, nil
}
