package anonymize_test

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/jmerrifield20/intelshare/internal/anonymize"
	"github.com/jmerrifield20/intelshare/pkg/stix"
)

const identityRef = "identity--0f4c6e43-9a43-4ad6-8d1e-3a6c1b2e5d11"

func newIndicator() stix.Object {
	return stix.Object{
		"type":                "indicator",
		"spec_version":        "2.1",
		"id":                  "indicator--8e2e2d2b-17d4-4cbf-938f-98ee46b3cd3f",
		"created":             "2024-03-01T10:00:00.000Z",
		"modified":            "2024-03-01T10:00:00.000Z",
		"created_by_ref":      identityRef,
		"object_marking_refs": []any{"marking-definition--613f2e26-407d-48c7-9eca-b8e91df99dc9"},
		"name":                "C2 beacon 10.0.0.5",
		"description":         "Beacon to evil.example.com from 10.0.0.5, reported by soc@victim.example.org.",
		"pattern":             "[ipv4-addr:value = '192.168.1.100']",
		"pattern_type":        "stix",
		"labels":              []any{"malicious-activity"},
		"valid_from":          "2024-03-01T10:00:00.000Z",
	}
}

func newAnonymizer(strict bool) *anonymize.Anonymizer {
	return anonymize.New(anonymize.NewTable(anonymize.DefaultTLDTable()), anonymize.Options{
		Platform:       "intelshare",
		StrictPatterns: strict,
	})
}

func TestAnonymize_none(t *testing.T) {
	a := newAnonymizer(false)
	in := newIndicator()

	res, err := a.Anonymize(in, anonymize.Provenance{Level: anonymize.LevelNone, TrustScore: 0.95, SourceOrgName: "ACME"})
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(res.Object, in) {
		t.Errorf("none level must return the object unchanged:\n got %v\nwant %v", res.Object, in)
	}
	if _, ok := res.Object[a.Keys().Anonymized]; ok {
		t.Error("none level must not stamp provenance")
	}
}

func TestAnonymize_high(t *testing.T) {
	a := newAnonymizer(false)
	in := newIndicator()
	orig := in.Clone()

	res, err := a.Anonymize(in, anonymize.Provenance{Level: anonymize.LevelHigh, TrustScore: 0.4, SourceOrgName: "ACME"})
	if err != nil {
		t.Fatal(err)
	}
	out := res.Object

	if got, want := out["pattern"], "[ipv4-addr:value = '192.x.x.x']"; got != want {
		t.Errorf("pattern: got %q, want %q", got, want)
	}
	if got, want := out["name"], "C2 beacon 10.x.x.x"; got != want {
		t.Errorf("name: got %q, want %q", got, want)
	}
	if got, want := out["description"], "Beacon to *.commercial from 10.x.x.x, reported by user@*.organization."; got != want {
		t.Errorf("description: got %q, want %q", got, want)
	}

	if out.ID() != orig.ID() {
		t.Errorf("id changed: %q", out.ID())
	}
	if out["created_by_ref"] != identityRef {
		t.Errorf("created_by_ref changed: %v", out["created_by_ref"])
	}
	if !reflect.DeepEqual(out["object_marking_refs"], orig["object_marking_refs"]) {
		t.Errorf("object_marking_refs changed: %v", out["object_marking_refs"])
	}
	if out["valid_from"] != orig["valid_from"] {
		t.Errorf("valid_from changed: %v", out["valid_from"])
	}

	keys := a.Keys()
	if out[keys.Anonymized] != true {
		t.Errorf("%s: got %v", keys.Anonymized, out[keys.Anonymized])
	}
	if out[keys.Level] != "high" {
		t.Errorf("%s: got %v", keys.Level, out[keys.Level])
	}
	if out[keys.TrustLevel] != 0.4 {
		t.Errorf("%s: got %v", keys.TrustLevel, out[keys.TrustLevel])
	}
	if out[keys.SourceOrg] != "ACME" {
		t.Errorf("%s: got %v", keys.SourceOrg, out[keys.SourceOrg])
	}
	if out[keys.OriginalID] != orig.ID() {
		t.Errorf("%s: got %v", keys.OriginalID, out[keys.OriginalID])
	}

	if !reflect.DeepEqual(in, orig) {
		t.Error("input object was mutated")
	}
}

func TestProvenanceKeys(t *testing.T) {
	keys := anonymize.NewProvenanceKeys("Threat Share")
	want := anonymize.ProvenanceKeys{
		Anonymized: "x_threat_share_anonymized",
		Level:      "x_threat_share_anonymization_level",
		TrustLevel: "x_threat_share_trust_level",
		SourceOrg:  "x_threat_share_source_org",
		OriginalID: "x_threat_share_original_id",
	}
	if keys != want {
		t.Errorf("got %+v, want %+v", keys, want)
	}
	if got := anonymize.NewProvenanceKeys("").Anonymized; got != "x_intelshare_anonymized" {
		t.Errorf("default platform: got %q", got)
	}
}

func TestAnonymize_observables(t *testing.T) {
	a := newAnonymizer(false)
	p := anonymize.Provenance{Level: anonymize.LevelMedium, TrustScore: 0.6, SourceOrgName: "ACME"}

	cases := []struct {
		obj  stix.Object
		key  string
		want string
	}{
		{stix.Object{"type": "ipv4-addr", "id": "ipv4-addr--1", "value": "198.51.100.23"}, "value", "198.51.x.x"},
		{stix.Object{"type": "domain-name", "id": "domain-name--1", "value": "c2.evil.example.com"}, "value", "*.com"},
		{stix.Object{"type": "url", "id": "url--1", "value": "https://evil.example.com/payload.bin"}, "value", "https://*.com"},
		{stix.Object{"type": "domain-name", "id": "domain-name--2", "value": "not a domain"}, "value", "invalid-domain-" + digest8("not a domain") + ".example"},
	}
	for _, tc := range cases {
		res, err := a.Anonymize(tc.obj, p)
		if err != nil {
			t.Fatalf("%s: %v", tc.obj.ID(), err)
		}
		if got := res.Object[tc.key]; got != tc.want {
			t.Errorf("%s: got %q, want %q", tc.obj.ID(), got, tc.want)
		}
	}

	file := stix.Object{
		"type": "file",
		"id":   "file--1",
		"name": "dropper.exe",
		"hashes": map[string]any{
			"MD5": "d41d8cd98f00b204e9800998ecf8427e",
		},
	}
	res, err := a.Anonymize(file, p)
	if err != nil {
		t.Fatal(err)
	}
	hashes := res.Object["hashes"].(map[string]any)
	if got, want := hashes["MD5"], "d41d8cd9"+strings.Repeat("X", 24); got != want {
		t.Errorf("hash: got %q, want %q", got, want)
	}
	if file["hashes"].(map[string]any)["MD5"] != "d41d8cd98f00b204e9800998ecf8427e" {
		t.Error("input hashes mutated")
	}
}

func TestAnonymize_nested(t *testing.T) {
	a := newAnonymizer(false)
	obj := stix.Object{
		"type": "report",
		"id":   "report--1",
		"name": "Weekly",
		"indicators": []any{
			map[string]any{
				"id":      "indicator--nested",
				"pattern": "[domain-name:value = 'evil.example.com']",
				"created": "2024-03-01T10:00:00.000Z",
			},
			"203.0.113.9",
		},
		"observables": []any{
			map[string]any{"value": "https://evil.example.com/x", "note": "seen at 203.0.113.9 twice"},
		},
		"object_refs": []any{"indicator--nested"},
	}

	res, err := a.Anonymize(obj, anonymize.Provenance{Level: anonymize.LevelLow, TrustScore: 0.8})
	if err != nil {
		t.Fatal(err)
	}
	inds := res.Object["indicators"].([]any)
	first := inds[0].(map[string]any)
	if first["pattern"] != "[domain-name:value = '*.example.com']" {
		t.Errorf("nested pattern: got %q", first["pattern"])
	}
	if first["id"] != "indicator--nested" {
		t.Errorf("nested id changed: %q", first["id"])
	}
	if first["created"] != "2024-03-01T10:00:00.000Z" {
		t.Errorf("nested timestamp changed: %q", first["created"])
	}
	if inds[1] != "203.0.113.x" {
		t.Errorf("nested ip: got %q", inds[1])
	}
	obs := res.Object["observables"].([]any)[0].(map[string]any)
	if obs["value"] != "https://*.example.com/[path-removed]" {
		t.Errorf("nested url: got %q", obs["value"])
	}
	if obs["note"] != "seen at 203.0.113.x twice" {
		t.Errorf("nested text: got %q", obs["note"])
	}
}

func TestAnonymize_unparseablePattern(t *testing.T) {
	obj := newIndicator()
	obj["pattern"] = "ipv4-addr:value = '192.168.1.100'"

	lenient := newAnonymizer(false)
	res, err := lenient.Anonymize(obj, anonymize.Provenance{Level: anonymize.LevelHigh})
	if err != nil {
		t.Fatalf("lenient mode should not fail: %v", err)
	}
	if res.Object["pattern"] != obj["pattern"] {
		t.Errorf("pattern should be left unchanged, got %q", res.Object["pattern"])
	}
	if len(res.Warnings) != 1 {
		t.Errorf("expected one warning, got %v", res.Warnings)
	}

	strict := newAnonymizer(true)
	_, err = strict.Anonymize(obj, anonymize.Provenance{Level: anonymize.LevelHigh})
	var aerr *anonymize.AnonymizationError
	if !errors.As(err, &aerr) {
		t.Fatalf("expected AnonymizationError, got %v", err)
	}
	if aerr.Field != "pattern" || !errors.Is(err, anonymize.ErrUnsupportedPattern) {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestAnonymize_errors(t *testing.T) {
	a := newAnonymizer(false)

	_, err := a.Anonymize(stix.Object{"type": "indicator"}, anonymize.Provenance{Level: anonymize.LevelLow})
	if !errors.Is(err, anonymize.ErrMissingRequiredField) {
		t.Errorf("missing id: expected ErrMissingRequiredField, got %v", err)
	}

	_, err = a.Anonymize(stix.Object{"id": "x--1"}, anonymize.Provenance{Level: anonymize.LevelLow})
	if !errors.Is(err, anonymize.ErrMissingRequiredField) {
		t.Errorf("missing type: expected ErrMissingRequiredField, got %v", err)
	}

	_, err = a.Anonymize(newIndicator(), anonymize.Provenance{Level: anonymize.LevelCustom})
	if !errors.Is(err, anonymize.ErrInvalidLevel) {
		t.Errorf("custom level: expected ErrInvalidLevel, got %v", err)
	}
}

func TestAnonymize_everyLevelKeepsStructure(t *testing.T) {
	a := newAnonymizer(true)
	in := newIndicator()
	for _, l := range anonymize.Levels() {
		res, err := a.Anonymize(in, anonymize.Provenance{Level: l, TrustScore: 0.5})
		if err != nil {
			t.Fatalf("%s: %v", l, err)
		}
		for _, k := range []string{"id", "type", "pattern", "labels", "created_by_ref"} {
			if !res.Object.Has(k) {
				t.Errorf("%s: %s missing", l, k)
			}
		}
		if !reflect.DeepEqual(res.Object.References(), in.References()) {
			t.Errorf("%s: references changed", l)
		}
	}
}

func TestAnonymize_freeText(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		level anonymize.Level
		want  string
	}{
		{"ipv6 trailing compression", "from 2001:db8:: today", anonymize.LevelHigh, "from 2001:db8:0:0:x:x:x:x today"},
		{"ipv4 mapped ipv6", "from ::ffff:10.1.2.3 today", anonymize.LevelHigh, "from 10.x.x.x today"},
		{"ipv4 after letters", "seen on host10.0.0.1", anonymize.LevelHigh, "seen on host10.x.x.x"},
		{"ipv4 before letters", "seen on 10.0.0.1abc", anonymize.LevelHigh, "seen on 10.x.x.xabc"},
		{"clock time before ipv4", "at 12:30:10.1.2.3", anonymize.LevelHigh, "at 12:30:10.x.x.x"},
		{"host with path high", "visit evil.example.com/login?u=admin.", anonymize.LevelHigh, "visit *.commercial."},
		{"host with path medium", "visit evil.example.com/login", anonymize.LevelMedium, "visit *.com"},
		{"host with path low", "visit evil.example.com/login?u=admin", anonymize.LevelLow, "visit *.example.com/[path-removed]"},
		{"defanged scheme", "fetch hxxp://bad.example.org/x now", anonymize.LevelHigh, "fetch http://*.organization now"},
		{"defanged domain", "resolves evil[.]com", anonymize.LevelHigh, "resolves *.commercial"},
		{"defanged ipv4", "beacon 10.0.0[.]1", anonymize.LevelHigh, "beacon 10.x.x.x"},
		{"clock time kept", "at 10:30:00 UTC", anonymize.LevelHigh, "at 10:30:00 UTC"},
		{"scoped name kept", "calls std::string", anonymize.LevelHigh, "calls std::string"},
	}
	a := newAnonymizer(false)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := newIndicator()
			in["description"] = tt.text
			res, err := a.Anonymize(in, anonymize.Provenance{Level: tt.level})
			if err != nil {
				t.Fatal(err)
			}
			if got := res.Object["description"]; got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAnonymize_observedData(t *testing.T) {
	a := newAnonymizer(false)
	obj := stix.Object{
		"type":            "observed-data",
		"id":              "observed-data--b67d30ff-02ac-498a-92f9-32f845f448cf",
		"first_observed":  "2024-03-01T10:00:00.000Z",
		"last_observed":   "2024-03-01T10:00:00.000Z",
		"number_observed": float64(3),
		"objects": map[string]any{
			"0": map[string]any{"type": "ipv4-addr", "value": "198.51.100.7"},
			"1": map[string]any{"type": "domain-name", "value": "evil.example.com", "resolves_to_refs": []any{"0"}},
			"2": map[string]any{"type": "ipv4-addr", "value": "not-an-address"},
		},
	}

	res, err := a.Anonymize(obj, anonymize.Provenance{Level: anonymize.LevelHigh})
	if err != nil {
		t.Fatal(err)
	}
	objects := res.Object["objects"].(map[string]any)
	ip := objects["0"].(map[string]any)
	if ip["value"] != "198.x.x.x" {
		t.Errorf("ipv4-addr value: got %q", ip["value"])
	}
	if ip["type"] != "ipv4-addr" {
		t.Errorf("type changed: %q", ip["type"])
	}
	dom := objects["1"].(map[string]any)
	if dom["value"] != "*.commercial" {
		t.Errorf("domain-name value: got %q", dom["value"])
	}
	if !reflect.DeepEqual(dom["resolves_to_refs"], []any{"0"}) {
		t.Errorf("refs changed: %v", dom["resolves_to_refs"])
	}
	bad := objects["2"].(map[string]any)["value"].(string)
	if !strings.HasPrefix(bad, "invalid-ip-") {
		t.Errorf("malformed ipv4-addr value: got %q", bad)
	}
	if res.Object["number_observed"] != float64(3) {
		t.Errorf("number_observed changed: %v", res.Object["number_observed"])
	}

	orig := obj["objects"].(map[string]any)["0"].(map[string]any)
	if orig["value"] != "198.51.100.7" {
		t.Error("input object was mutated")
	}
}
