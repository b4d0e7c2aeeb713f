package timeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ALEXSANDER2002/aritana/internal/analysis"
	"github.com/ALEXSANDER2002/aritana/internal/cache"
	"github.com/ALEXSANDER2002/aritana/internal/gateway"
	"github.com/ALEXSANDER2002/aritana/internal/store"
	"github.com/ALEXSANDER2002/aritana/internal/telemetry"
	"github.com/ALEXSANDER2002/aritana/pkg/models"
	"golang.org/x/sync/errgroup"
)

// Defaults applied to zero Options fields.
const (
	DefaultPageSize   = 20
	DefaultMaxPage    = 100
	DefaultCatalogTTL = 10 * time.Minute
	DefaultListingTTL = 5 * time.Minute
	DefaultStatsTTL   = 5 * time.Minute
)

// localHistoryLimit bounds how many local records one history request reads.
const localHistoryLimit = 1000

// Options tunes page sizes and cache lifetimes.
type Options struct {
	DefaultPageSize int
	MaxPageSize     int
	CatalogTTL      time.Duration
	ListingTTL      time.Duration
	StatsTTL        time.Duration
	// RemoteZone is the zone of catalog timestamps without an offset. Defaults to UTC.
	RemoteZone *time.Location
}

func (o Options) withDefaults() Options {
	if o.DefaultPageSize <= 0 {
		o.DefaultPageSize = DefaultPageSize
	}
	if o.MaxPageSize <= 0 {
		o.MaxPageSize = DefaultMaxPage
	}
	if o.DefaultPageSize > o.MaxPageSize {
		o.DefaultPageSize = o.MaxPageSize
	}
	if o.CatalogTTL <= 0 {
		o.CatalogTTL = DefaultCatalogTTL
	}
	if o.ListingTTL <= 0 {
		o.ListingTTL = DefaultListingTTL
	}
	if o.StatsTTL <= 0 {
		o.StatsTTL = DefaultStatsTTL
	}
	if o.RemoteZone == nil {
		o.RemoteZone = time.UTC
	}
	return o
}

// Query selects one page of the history feed.
type Query struct {
	Page           int
	PageSize       int
	Classification string
	Region         string
	Search         string
}

// Service serves the merged history feed and the catalog statistics.
type Service struct {
	gateway gateway.Client
	store   store.Store
	cache   cache.Cache
	opts    Options
	metrics *telemetry.Provider
}

// Option configures a Service.
type Option func(*Service)

func WithMetrics(p *telemetry.Provider) Option {
	return func(s *Service) {
		s.metrics = p
	}
}

// NewService creates a Service. A nil cache disables caching.
func NewService(gw gateway.Client, st store.Store, ca cache.Cache, opts Options, options ...Option) *Service {
	s := &Service{
		gateway: gw,
		store:   st,
		cache:   ca,
		opts:    opts.withDefaults(),
	}
	for _, o := range options {
		o(s)
	}
	return s
}

// Normalize clamps page and page size into range and trims the filters.
func (s *Service) Normalize(q Query) Query {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PageSize < 1 {
		q.PageSize = s.opts.DefaultPageSize
	}
	if q.PageSize > s.opts.MaxPageSize {
		q.PageSize = s.opts.MaxPageSize
	}
	q.Classification = strings.TrimSpace(q.Classification)
	q.Region = strings.TrimSpace(q.Region)
	q.Search = strings.TrimSpace(q.Search)
	return q
}

// List returns one page of the merged feed. A catalog failure degrades to local entries
// and is never returned; degraded pages are not cached. Only a store failure is an error.
func (s *Service) List(ctx context.Context, q Query) (*Page, error) {
	q = s.Normalize(q)
	key := cache.TimelineKey(q.Page, q.PageSize, q.Classification, q.Region, q.Search)

	if cached, ok := cache.Load[*Page](ctx, s.cache, key); ok && cached != nil {
		s.metrics.RecordCacheLookup("timeline", true)
		return cached, nil
	}
	s.metrics.RecordCacheLookup("timeline", false)

	var (
		remote     []models.RemoteRecord
		local      []*models.JobRecord
		catalogErr error
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		remote, catalogErr = s.catalog(gctx)
		return nil
	})
	g.Go(func() error {
		var err error
		local, err = s.store.ListJobs(gctx, store.JobFilter{Limit: localHistoryLimit})
		if err != nil {
			return fmt.Errorf("listing local records: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if catalogErr != nil {
		slog.Warn("catalog unavailable, serving local history only", "error", catalogErr)
		remote = nil
	}

	entries := Filter(MergeIn(remote, local, s.opts.RemoteZone), q.Classification, q.Region, q.Search)
	page := Paginate(entries, q.Page, q.PageSize)
	page.Degraded = catalogErr != nil

	if !page.Degraded {
		cache.Save(ctx, s.cache, key, page, s.opts.ListingTTL)
	}
	return page, nil
}

// Stats returns legality counts per region computed from the catalog.
func (s *Service) Stats(ctx context.Context) (*models.RegionalStats, error) {
	stats, hit, err := cache.Fetch(ctx, s.cache, cache.StatsKey(), s.opts.StatsTTL,
		func(ctx context.Context) (*models.RegionalStats, error) {
			records, err := s.catalog(ctx)
			if err != nil {
				return nil, err
			}
			st := analysis.RegionalStats(records)
			return &st, nil
		})
	s.metrics.RecordCacheLookup("stats", hit)
	if err != nil {
		return nil, fmt.Errorf("computing regional stats: %w", err)
	}
	return stats, nil
}

// Regions lists the distinct catalog regions, for filter drop-downs.
func (s *Service) Regions(ctx context.Context) ([]string, error) {
	stats, err := s.Stats(ctx)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(stats.Regions))
	for _, r := range stats.Regions {
		names = append(names, r.Name)
	}
	return names, nil
}

// Invalidate drops cached data for scope.
func (s *Service) Invalidate(ctx context.Context, scope Scope) error {
	return Invalidate(ctx, s.cache, scope)
}

func (s *Service) catalog(ctx context.Context) ([]models.RemoteRecord, error) {
	records, hit, err := cache.Fetch(ctx, s.cache, cache.CatalogKey(), s.opts.CatalogTTL, s.gateway.ListCatalog)
	s.metrics.RecordCacheLookup("catalog", hit)
	return records, err
}
