package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

const (
	catalogKey      = "catalog:all"
	statsKey        = "stats:regional"
	timelinePrefix  = "timeline:"
	rateLimitPrefix = "ratelimit:"
)

// CatalogKey holds the full gateway catalog.
func CatalogKey() string {
	return catalogKey
}

// StatsKey holds the regional statistics derived from the catalog.
func StatsKey() string {
	return statsKey
}

// TimelineKey identifies one rendered history page. Filter values are normalized the same way
// the timeline compares them, so "Norte" and " norte" share an entry.
func TimelineKey(page, pageSize int, classification, region, search string) string {
	filters := strings.Join([]string{
		normalize(classification),
		normalize(region),
		normalize(search),
	}, "\x1f")
	sum := sha256.Sum256([]byte(filters))
	return fmt.Sprintf("%sp%d:s%d:%s", timelinePrefix, page, pageSize, hex.EncodeToString(sum[:8]))
}

// TimelinePattern matches every cached history page.
func TimelinePattern() string {
	return timelinePrefix + "*"
}

func RateLimitKey(client string) string {
	return fmt.Sprintf("%s%s", rateLimitPrefix, client)
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
