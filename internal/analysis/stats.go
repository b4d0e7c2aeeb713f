package analysis

import (
	"math"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/ALEXSANDER2002/aritana/pkg/models"
)

// UnknownRegion labels catalog records that carry no region.
const UnknownRegion = "Desconhecida"

const maxRegionNameBytes = 120

// RegionalStats counts legal and illegal classifications overall and per region.
// Labels are compared case-insensitively; records with any other label count towards
// Total only. Regions are sorted by (Total DESC, Name ASC).
// Returns an empty, non-nil region slice for empty input.
func RegionalStats(records []models.RemoteRecord) models.RegionalStats {
	stats := models.RegionalStats{Regions: []models.RegionCount{}}
	if len(records) == 0 {
		return stats
	}

	groups := make(map[string]*models.RegionCount)
	order := make([]string, 0)

	for _, rec := range records {
		name := NormalizeRegion(rec.Region)
		key := strings.ToLower(name)
		rc, exists := groups[key]
		if !exists {
			rc = &models.RegionCount{Name: name}
			groups[key] = rc
			order = append(order, key)
		}

		rc.Total++
		stats.Total++
		switch {
		case models.IsLegal(rec.Classification):
			rc.Legal++
			stats.Legality.Legal++
		case models.IsIllegal(rec.Classification):
			rc.Illegal++
			stats.Legality.Illegal++
		}
	}

	for _, key := range order {
		stats.Regions = append(stats.Regions, *groups[key])
	}
	sort.SliceStable(stats.Regions, func(i, j int) bool {
		if stats.Regions[i].Total != stats.Regions[j].Total {
			return stats.Regions[i].Total > stats.Regions[j].Total
		}
		return stats.Regions[i].Name < stats.Regions[j].Name
	})

	stats.LegalRate = percent(stats.Legality.Legal, stats.Total, 2)
	stats.Distribution = models.LegalityPercentage{
		Legal:     percent(stats.Legality.Legal, stats.Total, 1),
		Irregular: percent(stats.Legality.Illegal, stats.Total, 1),
	}

	return stats
}

// percent returns part/total*100 rounded half away from zero to the given decimals.
// Zero when total is zero.
func percent(part, total, decimals int) float64 {
	if total == 0 {
		return 0
	}
	scale := math.Pow(10, float64(decimals))
	return math.Round(float64(part)*100/float64(total)*scale) / scale
}

// NormalizeRegion trims and collapses whitespace, bounds the length, and substitutes
// UnknownRegion for empty names.
func NormalizeRegion(region string) string {
	region = strings.Join(strings.Fields(region), " ")
	if region == "" {
		return UnknownRegion
	}
	return truncateString(region, maxRegionNameBytes)
}

// truncateString truncates s to maxBytes without splitting UTF-8 runes.
func truncateString(s string, maxBytes int) string {
	if len(s) <= maxBytes {
		return s
	}
	for maxBytes > 0 && !utf8.RuneStart(s[maxBytes]) {
		maxBytes--
	}
	return s[:maxBytes]
}
