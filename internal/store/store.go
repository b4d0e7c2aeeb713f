package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ALEXSANDER2002/aritana/pkg/models"
	"github.com/google/uuid"
)

var ErrNotFound = errors.New("resource not found")
var ErrDuplicateKey = errors.New("duplicate key violation")
var ErrInvalidTransition = errors.New("invalid job state transition")
var ErrInvalidUpdate = errors.New("invalid job update")

// MaxInFlightProgress caps the progress of a record that has not been analyzed yet.
const MaxInFlightProgress = 99

// Store is the data access interface. All database operations go through here.
type Store interface {
	Ping(ctx context.Context) error

	CreateJob(ctx context.Context, job *models.JobRecord) error
	GetJob(ctx context.Context, id uuid.UUID) (*models.JobRecord, error)
	GetJobByJobID(ctx context.Context, jobID string) (*models.JobRecord, error)
	ListJobs(ctx context.Context, filter JobFilter) ([]*models.JobRecord, error)

	// AttachJob records the gateway acknowledgement and moves a pending record to submitted.
	AttachJob(ctx context.Context, id uuid.UUID, sub Attachment) (*models.JobRecord, error)
	// RecordPollAttempt increments the poll counter and returns the new value.
	RecordPollAttempt(ctx context.Context, id uuid.UUID) (int, error)
	ResetPollAttempts(ctx context.Context, id uuid.UUID) error
	UpdateJob(ctx context.Context, id uuid.UUID, state models.JobState, opts ...JobUpdateOption) (*models.JobRecord, error)
}

// JobFilter selects records for ListJobs. Results are ordered newest upload first.
type JobFilter struct {
	States []models.JobState
	Limit  int
}

// Attachment is what the gateway returned for an accepted submission.
type Attachment struct {
	JobID     string
	StatusURL string
	ResultURL string
}

type jobUpdateParams struct {
	Progress       *int
	StatusMessage  *string
	ResourceID     *string
	AnalysisResult json.RawMessage
	Confidence     *float64
}

type JobUpdateOption func(*jobUpdateParams)

// WithProgress raises the stored progress. Progress never decreases.
func WithProgress(p int) JobUpdateOption {
	return func(params *jobUpdateParams) {
		params.Progress = &p
	}
}

func WithStatusMessage(msg string) JobUpdateOption {
	return func(p *jobUpdateParams) {
		p.StatusMessage = &msg
	}
}

// WithResourceID links the record to its finalized remote record. Only valid when analyzed.
func WithResourceID(id string) JobUpdateOption {
	return func(p *jobUpdateParams) {
		p.ResourceID = &id
	}
}

func WithAnalysisResult(raw json.RawMessage) JobUpdateOption {
	return func(p *jobUpdateParams) {
		p.AnalysisResult = raw
	}
}

func WithConfidence(c float64) JobUpdateOption {
	return func(p *jobUpdateParams) {
		p.Confidence = &c
	}
}

func resolveUpdate(opts []JobUpdateOption) *jobUpdateParams {
	params := &jobUpdateParams{}
	for _, opt := range opts {
		opt(params)
	}
	if params.Progress != nil {
		p := clampProgress(*params.Progress)
		params.Progress = &p
	}
	return params
}

func clampProgress(p int) int {
	if p < 0 {
		return 0
	}
	if p > MaxInFlightProgress {
		return MaxInFlightProgress
	}
	return p
}

// checkUpdate validates option combinations that do not depend on the stored record.
func checkUpdate(state models.JobState, params *jobUpdateParams) error {
	if !state.Valid() {
		return fmt.Errorf("%w: unknown state %q", ErrInvalidUpdate, state)
	}
	if params.ResourceID != nil && state != models.JobStateAnalyzed {
		return fmt.Errorf("%w: resource id requires the analyzed state", ErrInvalidUpdate)
	}
	if state == models.JobStateAnalyzed && (params.ResourceID == nil || *params.ResourceID == "") {
		return fmt.Errorf("%w: analyzed records need a resource id", ErrInvalidUpdate)
	}
	if params.Confidence != nil && !models.InRange(*params.Confidence, 0, 100) {
		return fmt.Errorf("%w: confidence %.2f out of range", ErrInvalidUpdate, *params.Confidence)
	}
	return nil
}

// fromStates lists the states from which a record may move to state.
func fromStates(state models.JobState) []string {
	all := []models.JobState{
		models.JobStatePending, models.JobStateSubmitted, models.JobStateProcessing,
		models.JobStateAnalyzed, models.JobStateError,
	}
	var out []string
	for _, from := range all {
		if models.CanTransition(from, state) {
			out = append(out, string(from))
		}
	}
	return out
}

// ApplyUpdate performs UpdateJob against an in-memory record with the same rules the
// database enforces. It is used by in-memory stores.
func ApplyUpdate(job *models.JobRecord, state models.JobState, now time.Time, opts ...JobUpdateOption) error {
	params := resolveUpdate(opts)
	if err := checkUpdate(state, params); err != nil {
		return err
	}
	if !models.CanTransition(job.State, state) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, job.State, state)
	}

	job.State = state
	if state == models.JobStateAnalyzed {
		job.Progress = 100
	} else if params.Progress != nil && *params.Progress > job.Progress {
		job.Progress = *params.Progress
	}
	if params.StatusMessage != nil {
		job.StatusMessage = *params.StatusMessage
	}
	if params.ResourceID != nil {
		id := *params.ResourceID
		job.ResourceID = &id
	}
	if params.AnalysisResult != nil {
		job.AnalysisResult = append(json.RawMessage(nil), params.AnalysisResult...)
	}
	if params.Confidence != nil {
		c := *params.Confidence
		job.Confidence = &c
	}
	if state.Terminal() && job.AnalyzedAt == nil {
		ts := now
		job.AnalyzedAt = &ts
	}
	job.UpdatedAt = now
	return nil
}

// ValidateNew checks a record before insertion.
func ValidateNew(job *models.JobRecord) error {
	if job.ID == uuid.Nil {
		return fmt.Errorf("%w: missing id", ErrInvalidUpdate)
	}
	if job.State != models.JobStatePending {
		return fmt.Errorf("%w: new records start pending", ErrInvalidUpdate)
	}
	if job.JobID != nil || job.ResourceID != nil {
		return fmt.Errorf("%w: new records carry no external ids", ErrInvalidUpdate)
	}
	if job.Progress != 0 {
		return fmt.Errorf("%w: new records start at zero progress", ErrInvalidUpdate)
	}
	if job.Latitude != nil && !models.InRange(*job.Latitude, -90, 90) {
		return fmt.Errorf("%w: latitude %v out of range", ErrInvalidUpdate, *job.Latitude)
	}
	if job.Longitude != nil && !models.InRange(*job.Longitude, -180, 180) {
		return fmt.Errorf("%w: longitude %v out of range", ErrInvalidUpdate, *job.Longitude)
	}
	return nil
}

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return 500
	}
	if limit > 1000 {
		return 1000
	}
	return limit
}
