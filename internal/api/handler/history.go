package handler

import (
	"context"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ALEXSANDER2002/aritana/internal/api/response"
	"github.com/ALEXSANDER2002/aritana/internal/timeline"
	"github.com/ALEXSANDER2002/aritana/pkg/models"
)

// TimelineReader serves pages of the merged history feed.
type TimelineReader interface {
	List(ctx context.Context, q timeline.Query) (*timeline.Page, error)
}

// StatsReader serves figures derived from the gateway catalog.
type StatsReader interface {
	Stats(ctx context.Context) (*models.RegionalStats, error)
	Regions(ctx context.Context) ([]string, error)
}

type historyView struct {
	*timeline.Page
	LoadTime float64 `json:"load_time"`
}

// NewHistoryHandler returns GET /api/v1/history. Query parameters: page, page_size,
// tipo (classification), regiao and busca. Malformed numbers fall back to the defaults.
func NewHistoryHandler(tl TimelineReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		q := r.URL.Query()
		page, err := tl.List(r.Context(), timeline.Query{
			Page:           intParam(q.Get("page")),
			PageSize:       intParam(q.Get("page_size")),
			Classification: q.Get("tipo"),
			Region:         q.Get("regiao"),
			Search:         q.Get("busca"),
		})
		if err != nil {
			response.Internal(w, r, err)
			return
		}
		response.JSON(w, historyView{
			Page:     page,
			LoadTime: math.Round(time.Since(start).Seconds()*1000) / 1000,
		})
	}
}

// NewStatsHandler returns GET /api/v1/stats.
func NewStatsHandler(sr StatsReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats, err := sr.Stats(r.Context())
		if err != nil {
			catalogUnavailable(w, r, err)
			return
		}
		response.JSON(w, stats)
	}
}

// NewRegionsHandler returns GET /api/v1/regions, the catalog regions for filter menus.
func NewRegionsHandler(sr StatsReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		regions, err := sr.Regions(r.Context())
		if err != nil {
			catalogUnavailable(w, r, err)
			return
		}
		response.JSON(w, map[string]any{"regioes": regions})
	}
}

func catalogUnavailable(w http.ResponseWriter, r *http.Request, err error) {
	slog.Warn("catalog unavailable", "path", r.URL.Path, "error", err)
	response.Error(w, http.StatusServiceUnavailable, response.CodeUnavailable,
		"Catálogo de embarcações indisponível no momento", nil)
}

func intParam(raw string) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0
	}
	return n
}
