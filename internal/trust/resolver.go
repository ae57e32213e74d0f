package trust

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// pairKey identifies a directed (source, target) organization pair.
type pairKey struct {
	source string
	target string
}

func (k pairKey) String() string { return k.source + "→" + k.target }

// Config holds resolver configuration.
type Config struct {
	Defaults DefaultTable
	CacheTTL time.Duration // 0 disables the process-wide cache
}

// Resolver turns (source org, target org) pairs into trust resolutions.
// It is safe for concurrent use.
type Resolver struct {
	store    Store
	defaults DefaultTable
	cache    *scoreCache
	group    singleflight.Group
	logger   *zap.Logger
}

// NewResolver creates a Resolver reading from store.
func NewResolver(store Store, cfg Config, logger *zap.Logger) *Resolver {
	r := &Resolver{
		store:    store,
		defaults: cfg.Defaults,
		logger:   logger,
	}
	if cfg.CacheTTL > 0 {
		r.cache = newScoreCache(cfg.CacheTTL)
	}
	return r
}

// Resolve returns the trust resolution for data published by sourceOrg and
// requested by targetOrg. It never returns an error: failures resolve to
// score 0 at the full level with Basis set to BasisFallback.
func (r *Resolver) Resolve(ctx context.Context, sourceOrg, targetOrg string) Resolution {
	if sourceOrg != "" && sourceOrg == targetOrg {
		return sameOrg()
	}
	key := pairKey{source: sourceOrg, target: targetOrg}

	if r.cache != nil {
		if res, ok := r.cache.get(key); ok {
			cacheLookups.WithLabelValues("hit").Inc()
			return res
		}
		cacheLookups.WithLabelValues("miss").Inc()
	}

	v, _, _ := r.group.Do(key.String(), func() (any, error) {
		return r.lookup(ctx, key), nil
	})
	res := v.(Resolution)

	resolutions.WithLabelValues(string(res.Basis), res.Level.String()).Inc()
	if res.Basis == BasisFallback {
		r.logger.Warn("trust lookup failed, using most restrictive level",
			zap.String("source_org", sourceOrg),
			zap.String("target_org", targetOrg),
			zap.Error(res.Err),
		)
		return res
	}

	if r.cache != nil {
		r.cache.set(key, res)
	}
	r.logger.Debug("trust resolved",
		zap.String("source_org", sourceOrg),
		zap.String("target_org", targetOrg),
		zap.Float64("score", res.Score),
		zap.String("level", res.Level.String()),
		zap.String("basis", string(res.Basis)),
	)
	return res
}

func (r *Resolver) lookup(ctx context.Context, key pairKey) Resolution {
	if key.source == "" || key.target == "" {
		return fallback(fmt.Errorf("empty organization id: %w", ErrNotFound))
	}

	src, err := r.store.Organization(ctx, key.source)
	if err != nil {
		return fallback(err)
	}
	tgt, err := r.store.Organization(ctx, key.target)
	if err != nil {
		return fallback(err)
	}

	rel, err := r.store.Relationship(ctx, key.source, key.target)
	switch {
	case errors.Is(err, ErrNotFound):
		// no explicit grant
	case err != nil:
		return fallback(err)
	case rel.Status == StatusActive && rel.Explicit:
		if !validScore(rel.Score) {
			return fallback(fmt.Errorf("%s score %v: %w", key, rel.Score, ErrMalformedRelationship))
		}
		return resolved(rel.Score, BasisExplicit)
	}

	score := r.defaults.DefaultScore(src.Kind, tgt.Kind)
	if !validScore(score) {
		return fallback(fmt.Errorf("default score %v for %s/%s: %w", score, src.Kind, tgt.Kind, ErrMalformedRelationship))
	}
	return resolved(score, BasisDefault)
}

// Invalidate drops cached resolutions involving org. Call it after an
// organization or one of its relationships changes.
func (r *Resolver) Invalidate(org string) {
	if r.cache == nil {
		return
	}
	if n := r.cache.invalidate(org); n > 0 {
		r.logger.Debug("trust cache invalidated", zap.String("org", org), zap.Int("entries", n))
	}
}

// CacheStats returns the current cache size.
func (r *Resolver) CacheStats() int {
	if r.cache == nil {
		return 0
	}
	return r.cache.len()
}

// StartCacheEviction starts a background goroutine that periodically evicts
// expired cache entries until ctx is cancelled.
func (r *Resolver) StartCacheEviction(ctx context.Context, interval time.Duration) {
	if r.cache == nil {
		return
	}
	if interval == 0 {
		interval = time.Minute
	}
	go func() {
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				if n := r.cache.evict(); n > 0 {
					r.logger.Debug("trust cache eviction", zap.Int("evicted", n))
				}
			}
		}
	}()
}

// ── Session ───────────────────────────────────────────────────────────────────

// Session memoizes resolutions for the lifetime of a single request so every
// record from the same source organization sees the same level, even if the
// underlying store changes mid-request.
type Session struct {
	r       *Resolver
	mu      sync.Mutex
	entries map[pairKey]*sessionEntry
}

type sessionEntry struct {
	once sync.Once
	res  Resolution
}

// NewSession starts a request-scoped resolution session.
func (r *Resolver) NewSession() *Session {
	return &Session{r: r, entries: make(map[pairKey]*sessionEntry)}
}

// Resolve returns the resolution for the pair, consulting the resolver at
// most once per distinct pair within the session.
func (s *Session) Resolve(ctx context.Context, sourceOrg, targetOrg string) Resolution {
	key := pairKey{source: sourceOrg, target: targetOrg}

	s.mu.Lock()
	e, ok := s.entries[key]
	if !ok {
		e = &sessionEntry{}
		s.entries[key] = e
	}
	s.mu.Unlock()

	e.once.Do(func() {
		e.res = s.r.Resolve(ctx, sourceOrg, targetOrg)
	})
	return e.res
}

// Len returns the number of distinct pairs resolved in the session.
func (s *Session) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
