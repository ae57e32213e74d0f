package sharing

import (
	"context"
	"errors"
	"fmt"
	"runtime"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/jmerrifield20/intelshare/internal/anonymize"
	"github.com/jmerrifield20/intelshare/internal/shareledger"
	"github.com/jmerrifield20/intelshare/internal/trust"
	"github.com/jmerrifield20/intelshare/pkg/stix"
)

// Config holds assembler configuration.
type Config struct {
	Workers int // bounded record fan-out; 0 means GOMAXPROCS
}

// Service assembles bundles. It is safe for concurrent use; all per-request
// state lives in the call to Assemble.
type Service struct {
	orgs       trust.Store
	resolver   *trust.Resolver
	anonymizer *anonymize.Anonymizer
	ledger     shareledger.Ledger
	workers    int
	logger     *zap.Logger
}

// New creates a Service. ledger may be nil to disable share auditing.
func New(orgs trust.Store, resolver *trust.Resolver, anonymizer *anonymize.Anonymizer, ledger shareledger.Ledger, cfg Config, logger *zap.Logger) *Service {
	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &Service{
		orgs:       orgs,
		resolver:   resolver,
		anonymizer: anonymizer,
		ledger:     ledger,
		workers:    workers,
		logger:     logger,
	}
}

// source is the per-request view of one contributing organization.
type source struct {
	name string
	res  trust.Resolution
}

// slot holds the processing result of one input record.
type slot struct {
	obj      stix.Object
	warnings []string
	excluded *Exclusion
}

// Assemble builds the bundle for req. It returns an error only for
// whole-request failures: an unknown requesting or publishing organization,
// a store failure while checking them, or ctx cancellation. Individual
// records that cannot be anonymized are excluded and reported.
func (s *Service) Assemble(ctx context.Context, req Request) (*Outcome, error) {
	requester, err := s.organization(ctx, req.RequestingOrg)
	if err != nil {
		bundlesTotal.WithLabelValues("rejected").Inc()
		return nil, fmt.Errorf("requesting org: %w", err)
	}
	publisher, err := s.organization(ctx, req.PublisherOrg)
	if err != nil {
		bundlesTotal.WithLabelValues("rejected").Inc()
		return nil, fmt.Errorf("publisher org: %w", err)
	}

	sources, err := s.resolveSources(ctx, requester.ID, req.Records)
	if err != nil {
		bundlesTotal.WithLabelValues("failed").Inc()
		return nil, err
	}

	slots := make([]slot, len(req.Records))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i, rec := range req.Records {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			slots[i] = s.process(i, rec, requester.ID, sources[rec.SourceOrg])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		bundlesTotal.WithLabelValues("failed").Inc()
		return nil, fmt.Errorf("assemble bundle: %w", err)
	}

	out := &Outcome{
		Bundle:   stix.NewBundle(),
		Excluded: []Exclusion{},
		Warnings: []string{},
		Levels:   make(map[string]anonymize.Level, len(sources)),
	}
	for org, src := range sources {
		out.Levels[org] = src.res.Level
	}

	out.Bundle.Objects = append(out.Bundle.Objects,
		stix.NewIdentity(publisher.IdentityID, publisher.ID, publisher.Name, publisher.CreatedAt))
	for _, sl := range slots {
		if sl.excluded != nil {
			out.Excluded = append(out.Excluded, *sl.excluded)
			continue
		}
		out.Bundle.Objects = append(out.Bundle.Objects, sl.obj)
		out.Warnings = append(out.Warnings, sl.warnings...)
	}

	s.audit(ctx, req, out)
	bundlesTotal.WithLabelValues("assembled").Inc()

	s.logger.Info("bundle assembled",
		zap.String("bundle_id", out.Bundle.ID),
		zap.String("requesting_org", requester.ID),
		zap.String("publisher_org", publisher.ID),
		zap.Int("objects", len(out.Bundle.Objects)),
		zap.Int("excluded", len(out.Excluded)),
	)
	return out, nil
}

// organization loads an organization that must exist for the request to
// proceed.
func (s *Service) organization(ctx context.Context, id string) (*trust.Organization, error) {
	if id == "" {
		return nil, fmt.Errorf("empty id: %w", ErrUnknownOrganization)
	}
	o, err := s.orgs.Organization(ctx, id)
	if err != nil {
		if errors.Is(err, trust.ErrNotFound) {
			return nil, fmt.Errorf("%q: %w", id, ErrUnknownOrganization)
		}
		return nil, fmt.Errorf("load organization %q: %w", id, err)
	}
	return o, nil
}

// resolveSources resolves trust once for every distinct source organization
// in records, concurrently and bounded by the worker limit.
func (s *Service) resolveSources(ctx context.Context, requesting string, records []Record) (map[string]*source, error) {
	sources := make(map[string]*source)
	for _, rec := range records {
		if rec.SourceOrg == "" {
			continue
		}
		if _, ok := sources[rec.SourceOrg]; !ok {
			sources[rec.SourceOrg] = &source{}
		}
	}

	sess := s.resolver.NewSession()
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for org, src := range sources {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			src.res = sess.Resolve(gctx, org, requesting)
			src.name = org
			if src.res.Basis == trust.BasisFallback {
				return nil
			}
			if o, err := s.orgs.Organization(gctx, org); err == nil && o.Name != "" {
				src.name = o.Name
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("resolve trust: %w", err)
	}
	return sources, nil
}

// process transforms one record. It never fails: problems become an
// exclusion.
func (s *Service) process(i int, rec Record, requesting string, src *source) slot {
	exclude := func(reason string) slot {
		recordObject(false, "n/a")
		s.logger.Warn("record excluded",
			zap.Int("index", i),
			zap.String("object_id", rec.Object.ID()),
			zap.String("source_org", rec.SourceOrg),
			zap.String("reason", reason),
		)
		return slot{excluded: &Exclusion{
			Index:     i,
			ObjectID:  rec.Object.ID(),
			SourceOrg: rec.SourceOrg,
			Reason:    reason,
		}}
	}

	if rec.SourceOrg == "" || src == nil {
		return exclude("missing source organization")
	}
	if rec.Object.ID() == "" || rec.Object.Type() == "" {
		return exclude("object has no id or type")
	}
	if rec.SourceOrg == requesting {
		recordObject(true, anonymize.LevelNone.String())
		return slot{obj: rec.Object}
	}

	res, err := s.anonymizer.Anonymize(rec.Object, anonymize.Provenance{
		Level:         src.res.Level,
		TrustScore:    src.res.Score,
		SourceOrgName: src.name,
	})
	if err != nil {
		return exclude(err.Error())
	}
	recordObject(true, src.res.Level.String())
	return slot{obj: res.Object, warnings: res.Warnings}
}

// audit appends the delivered bundle to the share ledger. Failures are
// logged; the bundle is still returned.
func (s *Service) audit(ctx context.Context, req Request, out *Outcome) {
	if s.ledger == nil {
		return
	}
	share := &shareledger.Share{
		BundleID:      out.Bundle.ID,
		PublisherOrg:  req.PublisherOrg,
		RequestingOrg: req.RequestingOrg,
		ObjectIDs:     out.Bundle.IDs(),
		Levels:        make(map[string]string, len(out.Levels)),
	}
	for _, ex := range out.Excluded {
		share.Excluded = append(share.Excluded, ex.ObjectID)
	}
	for org, l := range out.Levels {
		share.Levels[org] = l.String()
	}
	if _, err := s.ledger.Append(ctx, share); err != nil {
		ledgerFailuresTotal.Inc()
		s.logger.Warn("share ledger append failed",
			zap.String("bundle_id", out.Bundle.ID),
			zap.Error(err),
		)
	}
}
