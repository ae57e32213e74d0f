package trust_test

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/jmerrifield20/intelshare/internal/anonymize"
	"github.com/jmerrifield20/intelshare/internal/trust"
)

func TestLevelForScore(t *testing.T) {
	cases := []struct {
		score float64
		want  anonymize.Level
	}{
		{1.0, anonymize.LevelNone},
		{0.9, anonymize.LevelNone},
		{0.89, anonymize.LevelLow},
		{0.7, anonymize.LevelLow},
		{0.69, anonymize.LevelMedium},
		{0.6, anonymize.LevelMedium},
		{0.5, anonymize.LevelMedium},
		{0.49, anonymize.LevelHigh},
		{0.4, anonymize.LevelHigh},
		{0.3, anonymize.LevelHigh},
		{0.29, anonymize.LevelFull},
		{0.15, anonymize.LevelFull},
		{0.0, anonymize.LevelFull},
		{math.NaN(), anonymize.LevelFull},
	}
	for _, tc := range cases {
		if got := trust.LevelForScore(tc.score); got != tc.want {
			t.Errorf("LevelForScore(%v) = %s, want %s", tc.score, got, tc.want)
		}
	}
}

func TestLevelForScore_monotonic(t *testing.T) {
	prev := trust.LevelForScore(0)
	for i := 1; i <= 100; i++ {
		l := trust.LevelForScore(float64(i) / 100)
		if l > prev {
			t.Fatalf("level increased from %s to %s at score %v", prev, l, float64(i)/100)
		}
		prev = l
	}
}

// newStore returns a store with a university, a second university, a
// government agency and an organization of unknown kind.
func newStore() *trust.MemoryStore {
	s := trust.NewMemoryStore()
	s.AddOrganization(trust.Organization{ID: "uni-a", Name: "University A", Kind: trust.KindUniversity})
	s.AddOrganization(trust.Organization{ID: "uni-b", Name: "University B", Kind: trust.KindUniversity})
	s.AddOrganization(trust.Organization{ID: "gov", Name: "Agency", Kind: trust.KindGovernment})
	s.AddOrganization(trust.Organization{ID: "anon", Name: "Unknown Co"})
	return s
}

func newResolver(s trust.Store, ttl time.Duration) *trust.Resolver {
	return trust.NewResolver(s, trust.Config{Defaults: trust.StandardDefaults(), CacheTTL: ttl}, zap.NewNop())
}

func TestResolve(t *testing.T) {
	s := newStore()
	s.SetRelationship(trust.Relationship{SourceOrg: "uni-a", TargetOrg: "gov", Score: 0.6, Explicit: true, Status: trust.StatusActive})
	s.SetRelationship(trust.Relationship{SourceOrg: "gov", TargetOrg: "uni-a", Score: 0.15, Explicit: true, Status: trust.StatusActive})
	s.SetRelationship(trust.Relationship{SourceOrg: "uni-b", TargetOrg: "uni-a", Score: 0.95, Explicit: true, Status: trust.StatusRevoked})
	s.SetRelationship(trust.Relationship{SourceOrg: "gov", TargetOrg: "uni-b", Score: 1.5, Explicit: true, Status: trust.StatusActive})
	s.SetRelationship(trust.Relationship{SourceOrg: "uni-b", TargetOrg: "gov", Score: math.NaN(), Explicit: true, Status: trust.StatusActive})
	s.SetRelationship(trust.Relationship{SourceOrg: "anon", TargetOrg: "uni-a", Score: 0.95, Explicit: false, Status: trust.StatusActive})
	r := newResolver(s, 0)

	cases := []struct {
		name     string
		src, tgt string
		score    float64
		level    anonymize.Level
		basis    trust.Basis
	}{
		{"same org", "uni-a", "uni-a", 1.0, anonymize.LevelNone, trust.BasisSameOrg},
		{"explicit medium", "uni-a", "gov", 0.6, anonymize.LevelMedium, trust.BasisExplicit},
		{"explicit full", "gov", "uni-a", 0.15, anonymize.LevelFull, trust.BasisExplicit},
		{"peer default", "uni-a", "uni-b", 0.6, anonymize.LevelMedium, trust.BasisDefault},
		{"revoked falls back to default", "uni-b", "uni-a", 0.6, anonymize.LevelMedium, trust.BasisDefault},
		{"unknown kind default", "gov", "anon", 0.2, anonymize.LevelFull, trust.BasisDefault},
		{"non-explicit relationship ignored", "anon", "uni-a", 0.2, anonymize.LevelFull, trust.BasisDefault},
		{"out of range score", "gov", "uni-b", 0, anonymize.LevelFull, trust.BasisFallback},
		{"nan score", "uni-b", "gov", 0, anonymize.LevelFull, trust.BasisFallback},
		{"unknown source", "ghost", "uni-a", 0, anonymize.LevelFull, trust.BasisFallback},
		{"unknown target", "uni-a", "ghost", 0, anonymize.LevelFull, trust.BasisFallback},
		{"empty source", "", "uni-a", 0, anonymize.LevelFull, trust.BasisFallback},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := r.Resolve(context.Background(), tc.src, tc.tgt)
			if res.Score != tc.score {
				t.Errorf("score: got %v, want %v", res.Score, tc.score)
			}
			if res.Level != tc.level {
				t.Errorf("level: got %s, want %s", res.Level, tc.level)
			}
			if res.Basis != tc.basis {
				t.Errorf("basis: got %s, want %s", res.Basis, tc.basis)
			}
			if (res.Basis == trust.BasisFallback) != (res.Err != nil) {
				t.Errorf("err: got %v for basis %s", res.Err, res.Basis)
			}
		})
	}
}

func TestResolve_crossKind(t *testing.T) {
	r := newResolver(newStore(), 0)
	res := r.Resolve(context.Background(), "uni-a", "gov")
	if res.Score != 0.4 || res.Level != anonymize.LevelHigh {
		t.Errorf("got %v/%s, want 0.4/high", res.Score, res.Level)
	}
}

func TestResolve_sameOrgSkipsStore(t *testing.T) {
	s := newStore()
	r := newResolver(s, 0)
	r.Resolve(context.Background(), "ghost", "ghost")
	if n := s.Calls("organization"); n != 0 {
		t.Errorf("store consulted %d times for same-org resolution", n)
	}
}

// failingStore fails every lookup until healed.
type failingStore struct {
	*trust.MemoryStore
	mu     sync.Mutex
	broken bool
}

var errUnavailable = errors.New("database unavailable")

func (f *failingStore) Organization(ctx context.Context, id string) (*trust.Organization, error) {
	f.mu.Lock()
	broken := f.broken
	f.mu.Unlock()
	if broken {
		return nil, errUnavailable
	}
	return f.MemoryStore.Organization(ctx, id)
}

func (f *failingStore) heal() {
	f.mu.Lock()
	f.broken = false
	f.mu.Unlock()
}

func TestResolve_storeError(t *testing.T) {
	s := &failingStore{MemoryStore: newStore(), broken: true}
	r := newResolver(s, time.Minute)

	res := r.Resolve(context.Background(), "uni-a", "uni-b")
	if res.Level != anonymize.LevelFull || res.Score != 0 {
		t.Errorf("got %v/%s, want 0/full", res.Score, res.Level)
	}
	if !errors.Is(res.Err, errUnavailable) {
		t.Errorf("err: got %v", res.Err)
	}

	// fallbacks are not cached
	s.heal()
	res = r.Resolve(context.Background(), "uni-a", "uni-b")
	if res.Basis != trust.BasisDefault {
		t.Errorf("after recovery: basis %s, want default", res.Basis)
	}
}

func TestResolve_cache(t *testing.T) {
	s := newStore()
	r := newResolver(s, time.Minute)
	ctx := context.Background()

	r.Resolve(ctx, "uni-a", "gov")
	r.Resolve(ctx, "uni-a", "gov")
	if n := s.Calls("relationship"); n != 1 {
		t.Errorf("relationship lookups: got %d, want 1", n)
	}
	if r.CacheStats() != 1 {
		t.Errorf("cache size: got %d, want 1", r.CacheStats())
	}

	s.SetRelationship(trust.Relationship{SourceOrg: "uni-a", TargetOrg: "gov", Score: 0.95, Explicit: true, Status: trust.StatusActive})
	r.Invalidate("gov")
	if res := r.Resolve(ctx, "uni-a", "gov"); res.Level != anonymize.LevelNone {
		t.Errorf("after invalidate: got %s, want none", res.Level)
	}
}

func TestSession_resolvesOncePerPair(t *testing.T) {
	s := newStore()
	r := newResolver(s, 0)
	sess := r.NewSession()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sess.Resolve(ctx, "uni-a", "gov")
		}()
	}
	wg.Wait()

	if n := s.Calls("relationship"); n != 1 {
		t.Errorf("relationship lookups: got %d, want 1", n)
	}
	if sess.Len() != 1 {
		t.Errorf("session pairs: got %d, want 1", sess.Len())
	}
}

func TestSession_stableWithinRequest(t *testing.T) {
	s := newStore()
	r := newResolver(s, 0)
	sess := r.NewSession()
	ctx := context.Background()

	first := sess.Resolve(ctx, "uni-a", "gov")
	s.SetRelationship(trust.Relationship{SourceOrg: "uni-a", TargetOrg: "gov", Score: 0.95, Explicit: true, Status: trust.StatusActive})
	second := sess.Resolve(ctx, "uni-a", "gov")

	if first != second {
		t.Errorf("resolution changed within session: %+v then %+v", first, second)
	}
	if fresh := r.NewSession().Resolve(ctx, "uni-a", "gov"); fresh.Level != anonymize.LevelNone {
		t.Errorf("new session should see the update, got %s", fresh.Level)
	}
}

func TestDefaultTable(t *testing.T) {
	d := trust.StandardDefaults()
	d.Kinds = map[string]float64{"government/government": 0.8}

	cases := []struct {
		src, tgt string
		want     float64
	}{
		{trust.KindUniversity, trust.KindUniversity, 0.6},
		{trust.KindUniversity, trust.KindCommercial, 0.4},
		{trust.KindGovernment, trust.KindGovernment, 0.8},
		{"", trust.KindGovernment, 0.2},
	}
	for _, tc := range cases {
		if got := d.DefaultScore(tc.src, tc.tgt); got != tc.want {
			t.Errorf("DefaultScore(%q, %q) = %v, want %v", tc.src, tc.tgt, got, tc.want)
		}
	}

	if err := d.Validate(); err != nil {
		t.Errorf("valid table rejected: %v", err)
	}
	d.Cross = 1.2
	if err := d.Validate(); !errors.Is(err, trust.ErrMalformedRelationship) {
		t.Errorf("expected ErrMalformedRelationship, got %v", err)
	}
}
