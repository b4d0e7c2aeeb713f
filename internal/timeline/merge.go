package timeline

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/ALEXSANDER2002/aritana/pkg/models"
)

// Merge builds the history feed from the remote catalog and local records.
//
// Remote entries whose id matches a local resource id carry the local tracking fields so
// a finished upload keeps its progress when it moves into the catalog view. Local analyzed
// records already present in the catalog are dropped. The result is ordered newest first
// by registration time; entries without a parseable timestamp come last in input order.
// Remote timestamps without a zone are read as UTC.
func Merge(remote []models.RemoteRecord, local []*models.JobRecord) []models.TimelineEntry {
	return MergeIn(remote, local, time.UTC)
}

// MergeIn is Merge with remote timestamps that carry no zone read in loc. Local entries
// always carry an explicit offset.
func MergeIn(remote []models.RemoteRecord, local []*models.JobRecord, loc *time.Location) []models.TimelineEntry {
	byResource := make(map[string]*models.JobRecord, len(local))
	for _, job := range local {
		if job != nil && job.ResourceID != nil && *job.ResourceID != "" {
			byResource[*job.ResourceID] = job
		}
	}

	inCatalog := make(map[string]bool, len(remote))
	remoteEntries := make([]models.TimelineEntry, 0, len(remote))
	for _, rec := range remote {
		inCatalog[rec.ID] = true
		remoteEntries = append(remoteEntries, remoteEntry(rec, byResource[rec.ID]))
	}

	entries := make([]models.TimelineEntry, 0, len(local)+len(remoteEntries))
	for _, job := range local {
		if job == nil {
			continue
		}
		if job.State == models.JobStateAnalyzed && job.ResourceID != nil && inCatalog[*job.ResourceID] {
			continue
		}
		entries = append(entries, localEntry(job))
	}
	entries = append(entries, remoteEntries...)

	sortNewestFirst(entries, loc)
	return entries
}

func remoteEntry(rec models.RemoteRecord, job *models.JobRecord) models.TimelineEntry {
	e := models.TimelineEntry{
		ID:                rec.ID,
		Origin:            models.OriginRemote,
		Locality:          rec.Locality,
		Classification:    rec.Classification,
		Region:            rec.Region,
		RegisteredAt:      rec.RegisteredAt,
		PhotoTakenAt:      rec.PhotoTakenAt,
		Latitude:          models.Finite(rec.Latitude),
		Longitude:         models.Finite(rec.Longitude),
		ImageURL:          rec.ImageURL,
		ProcessedImageURL: rec.ProcessedImageURL,
		Title:             rec.Title,
		Description:       rec.Description,
		Confidence:        models.Finite(rec.Confidence),
	}

	if job != nil {
		e.JobID = job.JobID
		e.Progress = job.Progress
		e.StatusMessage = job.StatusMessage
		e.LocalStatus = job.State.DisplayStatus()
		e.ResourceID = job.ResourceID
		return e
	}

	if rec.Classified() {
		e.Progress = 100
		e.LocalStatus = models.DisplayAnalyzed
	} else {
		e.LocalStatus = models.DisplayProcessing
	}
	id := rec.ID
	e.ResourceID = &id
	return e
}

func localEntry(job *models.JobRecord) models.TimelineEntry {
	e := models.TimelineEntry{
		ID:             job.ID.String(),
		Origin:         models.OriginLocal,
		Locality:       job.Locality,
		Classification: job.State.DisplayStatus(),
		Region:         job.Region,
		RegisteredAt:   models.FormatTimestamp(job.UploadedAt),
		Latitude:       models.Finite(job.Latitude),
		Longitude:      models.Finite(job.Longitude),
		JobID:          job.JobID,
		Progress:       job.Progress,
		LocalStatus:    job.State.DisplayStatus(),
		StatusMessage:  job.StatusMessage,
		ResourceID:     job.ResourceID,
		Title:          job.Title,
		Description:    job.Description,
		Confidence:     models.Finite(job.Confidence),
	}
	if job.UploadedAt.IsZero() {
		e.RegisteredAt = ""
	}
	if job.PhotoTakenAt != nil {
		e.PhotoTakenAt = models.FormatTimestamp(*job.PhotoTakenAt)
	}

	if result := job.Result(); result != nil {
		if result.Classified() {
			e.Classification = result.Classification
		}
		e.ImageURL = result.ImageURL
		e.ProcessedImageURL = result.ProcessedImageURL
		if e.Confidence == nil {
			e.Confidence = models.Finite(result.Confidence)
		}
	}
	return e
}

func sortNewestFirst(entries []models.TimelineEntry, loc *time.Location) {
	type keyed struct {
		ok   bool
		unix int64
	}
	keys := make(map[int]keyed, len(entries))
	idx := make([]int, len(entries))
	for i := range entries {
		idx[i] = i
		if t, ok := models.ParseTimestampIn(entries[i].RegisteredAt, loc); ok {
			keys[i] = keyed{ok: true, unix: t.UnixNano()}
		}
	}

	sort.SliceStable(idx, func(a, b int) bool {
		ka, kb := keys[idx[a]], keys[idx[b]]
		if ka.ok != kb.ok {
			return ka.ok
		}
		return ka.unix > kb.unix
	})

	sorted := make([]models.TimelineEntry, len(entries))
	for i, j := range idx {
		sorted[i] = entries[j]
	}
	copy(entries, sorted)
}

// Filter keeps entries matching every non-empty criterion. Classification and region are
// case-insensitive exact matches; search is a case-insensitive substring of the locality,
// title, description or id.
func Filter(entries []models.TimelineEntry, classification, region, search string) []models.TimelineEntry {
	classification = strings.TrimSpace(classification)
	region = strings.TrimSpace(region)
	search = strings.ToLower(strings.TrimSpace(search))

	out := make([]models.TimelineEntry, 0, len(entries))
	for _, e := range entries {
		if classification != "" && !strings.EqualFold(e.Classification, classification) {
			continue
		}
		if region != "" && !strings.EqualFold(e.Region, region) {
			continue
		}
		if search != "" && !matchesSearch(e, search) {
			continue
		}
		out = append(out, e)
	}
	return out
}

func matchesSearch(e models.TimelineEntry, needle string) bool {
	for _, field := range []string{e.Locality, e.Title, e.Description, e.ID} {
		if strings.Contains(strings.ToLower(field), needle) {
			return true
		}
	}
	return false
}

// Page is one page of the history feed.
type Page struct {
	Entries      []models.TimelineEntry `json:"embarcacoes"`
	TotalCount   int                    `json:"total_count"`
	Page         int                    `json:"page"`
	PageSize     int                    `json:"page_size"`
	TotalPages   int                    `json:"total_pages"`
	HasPrevious  bool                   `json:"has_previous"`
	HasNext      bool                   `json:"has_next"`
	StartIndex   int                    `json:"start_index"`
	EndIndex     int                    `json:"end_index"`
	TotalLegal   int                    `json:"total_legais"`
	TotalIllegal int                    `json:"total_ilegais"`
	// Degraded is set when the catalog could not be loaded and only local entries are shown.
	Degraded bool `json:"catalogo_indisponivel,omitempty"`
}

// Paginate slices entries into a page. The page number is clamped into [1, TotalPages];
// indices are 1-based and zero for an empty feed. Legal and illegal totals cover every
// entry, not just the page.
func Paginate(entries []models.TimelineEntry, page, pageSize int) *Page {
	if pageSize < 1 {
		pageSize = 1
	}
	total := len(entries)
	totalPages := int(math.Ceil(float64(total) / float64(pageSize)))
	if totalPages < 1 {
		totalPages = 1
	}
	if page < 1 {
		page = 1
	}
	if page > totalPages {
		page = totalPages
	}

	start := (page - 1) * pageSize
	end := start + pageSize
	if end > total {
		end = total
	}

	p := &Page{
		Entries:     make([]models.TimelineEntry, 0, end-start),
		TotalCount:  total,
		Page:        page,
		PageSize:    pageSize,
		TotalPages:  totalPages,
		HasPrevious: page > 1,
		HasNext:     page < totalPages,
	}
	p.Entries = append(p.Entries, entries[start:end]...)
	if total > 0 {
		p.StartIndex = start + 1
		p.EndIndex = end
	}

	for _, e := range entries {
		switch {
		case models.IsLegal(e.Classification):
			p.TotalLegal++
		case models.IsIllegal(e.Classification):
			p.TotalIllegal++
		}
	}
	return p
}
