package reconcile

import (
	"context"
	"log/slog"

	"github.com/ALEXSANDER2002/aritana/internal/store"
	"github.com/ALEXSANDER2002/aritana/pkg/models"
)

// Summary reports the outcome of one PollInFlight pass.
type Summary struct {
	Polled   int `json:"polled"`
	Analyzed int `json:"analyzed"`
	Errored  int `json:"errored"`
	Failed   int `json:"failed"`
}

// PollInFlight polls every submitted or processing record once, oldest last. A record that
// cannot be polled is counted in Failed and the pass continues. Only listing the records
// or a cancelled context stops the pass early.
func (e *Engine) PollInFlight(ctx context.Context) (Summary, error) {
	var sum Summary
	jobs, err := e.store.ListJobs(ctx, store.JobFilter{
		States: []models.JobState{models.JobStateSubmitted, models.JobStateProcessing},
	})
	if err != nil {
		return sum, err
	}

	for _, job := range jobs {
		if err := e.sweep.Wait(ctx); err != nil {
			return sum, err
		}
		updated, err := e.Poll(ctx, job.ID)
		if err != nil {
			sum.Failed++
			slog.Warn("poll failed during sweep", "id", job.ID, "error", err)
			continue
		}
		sum.Polled++
		switch updated.State {
		case models.JobStateAnalyzed:
			sum.Analyzed++
		case models.JobStateError:
			sum.Errored++
		}
	}

	slog.Info("in-flight sweep finished", "polled", sum.Polled, "analyzed", sum.Analyzed,
		"errored", sum.Errored, "failed", sum.Failed)
	return sum, nil
}
