package timeline

import (
	"context"
	"fmt"

	"github.com/ALEXSANDER2002/aritana/internal/cache"
)

// Scope selects what Invalidate drops.
type Scope int

const (
	// ScopeListings drops every cached history page.
	ScopeListings Scope = iota
	// ScopeAll also drops the catalog and the statistics derived from it.
	ScopeAll
)

func (s Scope) String() string {
	if s == ScopeAll {
		return "all"
	}
	return "listings"
}

// Invalidate is the single place that decides which cache keys a change affects.
// A nil cache is a no-op.
func Invalidate(ctx context.Context, c cache.Cache, scope Scope) error {
	if c == nil {
		return nil
	}
	if err := c.Invalidate(ctx, cache.TimelinePattern()); err != nil {
		return fmt.Errorf("invalidating history pages: %w", err)
	}
	if scope == ScopeAll {
		if err := c.Delete(ctx, cache.CatalogKey(), cache.StatsKey()); err != nil {
			return fmt.Errorf("invalidating catalog: %w", err)
		}
	}
	return nil
}
