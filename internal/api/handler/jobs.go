package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/ALEXSANDER2002/aritana/internal/api/response"
	"github.com/ALEXSANDER2002/aritana/internal/reconcile"
	"github.com/ALEXSANDER2002/aritana/internal/store"
	"github.com/ALEXSANDER2002/aritana/pkg/models"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

const inFlightListLimit = 100

// JobLister reads stored job records.
type JobLister interface {
	ListJobs(ctx context.Context, filter store.JobFilter) ([]*models.JobRecord, error)
}

// StatusPoller reconciles a job with the gateway and returns the updated record.
type StatusPoller interface {
	PollByJobID(ctx context.Context, jobID string) (*models.JobRecord, error)
}

type jobSummary struct {
	ID         uuid.UUID `json:"id"`
	JobID      *string   `json:"job_id"`
	Status     string    `json:"status_analise"`
	Progress   int       `json:"progresso"`
	Message    string    `json:"mensagem"`
	Title      string    `json:"titulo"`
	Region     string    `json:"regiao"`
	UploadedAt string    `json:"data_upload"`
}

// NewListJobsHandler returns GET /api/v1/jobs: the records still awaiting a result.
func NewListJobsHandler(jobs JobLister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		records, err := jobs.ListJobs(r.Context(), store.JobFilter{
			States: []models.JobState{models.JobStatePending, models.JobStateSubmitted, models.JobStateProcessing},
			Limit:  inFlightListLimit,
		})
		if err != nil {
			response.Internal(w, r, err)
			return
		}

		out := make([]jobSummary, 0, len(records))
		for _, j := range records {
			out = append(out, jobSummary{
				ID:         j.ID,
				JobID:      j.JobID,
				Status:     j.State.DisplayStatus(),
				Progress:   j.Progress,
				Message:    j.StatusMessage,
				Title:      j.Title,
				Region:     j.Region,
				UploadedAt: models.FormatTimestamp(j.UploadedAt),
			})
		}
		response.JSON(w, map[string]any{"jobs": out})
	}
}

// NewJobStatusHandler returns GET /api/v1/jobs/{jobID}/status. Each call polls the gateway
// once; gateway failures are absorbed by the reconciliation and never surface here.
func NewJobStatusHandler(poller StatusPoller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		jobID := strings.TrimSpace(chi.URLParam(r, "jobID"))
		if jobID == "" {
			response.Error(w, http.StatusBadRequest, response.CodeInvalidRequest, "job_id é obrigatório", nil)
			return
		}

		job, err := poller.PollByJobID(r.Context(), jobID)
		if errors.Is(err, store.ErrNotFound) {
			response.Error(w, http.StatusNotFound, response.CodeNotFound, "Job não encontrado", nil)
			return
		}
		if err != nil {
			response.Internal(w, r, err)
			return
		}
		response.JSON(w, reconcile.StatusView(job))
	}
}
