// Package vesselquery builds the paths and query strings of the vessel classification API.
package vesselquery

import (
	"net/url"
	"strconv"
	"strings"
)

const (
	// VesselsPath is the collection of classified vessels; POST submits, GET lists or looks up.
	VesselsPath = "/embarcacoes"
	// JobsPath prefixes job status lookups.
	JobsPath = "/jobs"
	// PingPath is the liveness probe.
	PingPath = "/ping"

	defaultPageSize = 100
)

// Builder constructs gateway request targets.
// All methods are pure functions with no side effects.
// Zero value is ready to use.
type Builder struct{}

// CatalogParams selects one page of the catalog.
type CatalogParams struct {
	Limit int
	Skip  int
}

// CatalogPage returns the path and query for one catalog page, e.g. /embarcacoes?limit=100&skip=200.
func (b Builder) CatalogPage(p CatalogParams) string {
	limit := p.Limit
	if limit <= 0 {
		limit = defaultPageSize
	}
	skip := p.Skip
	if skip < 0 {
		skip = 0
	}
	q := url.Values{
		"limit": {strconv.Itoa(limit)},
		"skip":  {strconv.Itoa(skip)},
	}
	return VesselsPath + "?" + q.Encode()
}

// ResourceLookup returns the path and query that fetch one finalized record by its resource id.
func (b Builder) ResourceLookup(resourceID string) string {
	q := url.Values{"id": {strings.TrimSpace(resourceID)}}
	return VesselsPath + "?" + q.Encode()
}

// JobStatus returns the status path reconstructed from a job id.
func (b Builder) JobStatus(jobID string) string {
	return JobsPath + "/" + url.PathEscape(strings.TrimSpace(jobID))
}

// Join appends a path produced by the builder to a base URL, tolerating trailing slashes.
func (b Builder) Join(baseURL, target string) string {
	return strings.TrimRight(baseURL, "/") + target
}
