package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ALEXSANDER2002/aritana/pkg/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore implements the Store interface using pgx/v5.
type PostgresStore struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

// NewPostgresStore creates a new PostgresStore.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool, now: func() time.Time { return time.Now().UTC() }}
}

// Ping checks database connectivity.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

const jobColumns = `id, job_id, state, progress, status_message, poll_attempts, status_url, result_url,
	resource_id, analysis_result, confidence, title, description, region, locality, latitude, longitude,
	photo_taken_at, image_name, image_content_type, image_size, uploaded_at, analyzed_at, updated_at`

func scanJob(row pgx.Row) (*models.JobRecord, error) {
	var j models.JobRecord
	var state string
	var result []byte
	err := row.Scan(&j.ID, &j.JobID, &state, &j.Progress, &j.StatusMessage, &j.PollAttempts,
		&j.StatusURL, &j.ResultURL, &j.ResourceID, &result, &j.Confidence,
		&j.Title, &j.Description, &j.Region, &j.Locality, &j.Latitude, &j.Longitude,
		&j.PhotoTakenAt, &j.ImageName, &j.ImageContentType, &j.ImageSize,
		&j.UploadedAt, &j.AnalyzedAt, &j.UpdatedAt)
	if err != nil {
		return nil, err
	}
	j.State = models.JobState(state)
	if len(result) > 0 {
		j.AnalysisResult = result
	}
	return &j, nil
}

// --- Jobs ---

func (s *PostgresStore) CreateJob(ctx context.Context, job *models.JobRecord) error {
	if err := ValidateNew(job); err != nil {
		return err
	}
	now := s.now()
	if job.UploadedAt.IsZero() {
		job.UploadedAt = now
	}
	job.UpdatedAt = now

	_, err := s.pool.Exec(ctx,
		`INSERT INTO job_records (id, state, progress, status_message, title, description, region, locality,
		   latitude, longitude, photo_taken_at, image_name, image_content_type, image_size, uploaded_at, updated_at)
		 VALUES ($1, $2, 0, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		job.ID, string(job.State), job.StatusMessage, job.Title, job.Description, job.Region, job.Locality,
		job.Latitude, job.Longitude, job.PhotoTakenAt, job.ImageName, job.ImageContentType, job.ImageSize,
		job.UploadedAt, job.UpdatedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("create job: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetJob(ctx context.Context, id uuid.UUID) (*models.JobRecord, error) {
	j, err := scanJob(s.pool.QueryRow(ctx,
		`SELECT `+jobColumns+` FROM job_records WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	return j, nil
}

func (s *PostgresStore) GetJobByJobID(ctx context.Context, jobID string) (*models.JobRecord, error) {
	jobID = strings.TrimSpace(jobID)
	if jobID == "" {
		return nil, ErrNotFound
	}
	j, err := scanJob(s.pool.QueryRow(ctx,
		`SELECT `+jobColumns+` FROM job_records WHERE job_id = $1`, jobID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get job by job id: %w", err)
	}
	return j, nil
}

func (s *PostgresStore) ListJobs(ctx context.Context, filter JobFilter) ([]*models.JobRecord, error) {
	var states []string
	for _, st := range filter.States {
		states = append(states, string(st))
	}

	rows, err := s.pool.Query(ctx,
		`SELECT `+jobColumns+` FROM job_records
		 WHERE ($1::text[] IS NULL OR state = ANY($1::text[]))
		 ORDER BY uploaded_at DESC, id
		 LIMIT $2`, states, normalizeLimit(filter.Limit))
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	jobs := []*models.JobRecord{}
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}

func (s *PostgresStore) AttachJob(ctx context.Context, id uuid.UUID, sub Attachment) (*models.JobRecord, error) {
	jobID := strings.TrimSpace(sub.JobID)
	if jobID == "" {
		return nil, fmt.Errorf("%w: empty job id", ErrInvalidUpdate)
	}

	j, err := scanJob(s.pool.QueryRow(ctx,
		`UPDATE job_records SET
		   job_id = $2,
		   status_url = NULLIF($3, ''),
		   result_url = NULLIF($4, ''),
		   state = 'submitted',
		   poll_attempts = 0,
		   updated_at = $5
		 WHERE id = $1 AND state = 'pending'
		 RETURNING `+jobColumns,
		id, jobID, sub.StatusURL, sub.ResultURL, s.now()))
	if err == nil {
		return j, nil
	}
	if isDuplicateKeyError(err) {
		return nil, ErrDuplicateKey
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, s.explainMiss(ctx, id, models.JobStateSubmitted)
	}
	return nil, fmt.Errorf("attach job: %w", err)
}

func (s *PostgresStore) RecordPollAttempt(ctx context.Context, id uuid.UUID) (int, error) {
	var attempts int
	err := s.pool.QueryRow(ctx,
		`UPDATE job_records SET poll_attempts = poll_attempts + 1, updated_at = $2
		 WHERE id = $1 RETURNING poll_attempts`, id, s.now()).Scan(&attempts)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("record poll attempt: %w", err)
	}
	return attempts, nil
}

func (s *PostgresStore) ResetPollAttempts(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE job_records SET poll_attempts = 0, updated_at = $2 WHERE id = $1`, id, s.now())
	if err != nil {
		return fmt.Errorf("reset poll attempts: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateJob moves a record to state and applies opts in a single statement. The WHERE
// clause only matches rows whose current state may transition to state, so concurrent
// writers cannot move a record backwards.
func (s *PostgresStore) UpdateJob(ctx context.Context, id uuid.UUID, state models.JobState, opts ...JobUpdateOption) (*models.JobRecord, error) {
	params := resolveUpdate(opts)
	if err := checkUpdate(state, params); err != nil {
		return nil, err
	}

	var result []byte
	if params.AnalysisResult != nil {
		result = []byte(params.AnalysisResult)
	}

	j, err := scanJob(s.pool.QueryRow(ctx,
		`UPDATE job_records SET
		   state = $2::text,
		   progress = CASE WHEN $2::text = 'analyzed' THEN 100
		                   ELSE GREATEST(progress, COALESCE($3::int, progress)) END,
		   status_message = COALESCE($4::text, status_message),
		   resource_id = COALESCE($5::text, resource_id),
		   analysis_result = COALESCE($6::jsonb, analysis_result),
		   confidence = COALESCE($7::float8, confidence),
		   analyzed_at = CASE WHEN $2::text IN ('analyzed', 'error') THEN COALESCE(analyzed_at, $8::timestamptz)
		                      ELSE analyzed_at END,
		   updated_at = $8::timestamptz
		 WHERE id = $1 AND state = ANY($9::text[])
		 RETURNING `+jobColumns,
		id, string(state), params.Progress, params.StatusMessage, params.ResourceID, result,
		params.Confidence, s.now(), fromStates(state)))
	if err == nil {
		return j, nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, s.explainMiss(ctx, id, state)
	}
	if isCheckViolation(err) {
		return nil, fmt.Errorf("%w: %v", ErrInvalidUpdate, err)
	}
	return nil, fmt.Errorf("update job: %w", err)
}

// explainMiss tells a missing record apart from a refused transition after a conditional
// update matched no rows.
func (s *PostgresStore) explainMiss(ctx context.Context, id uuid.UUID, target models.JobState) error {
	var current string
	err := s.pool.QueryRow(ctx, `SELECT state FROM job_records WHERE id = $1`, id).Scan(&current)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("get job state: %w", err)
	}
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current, target)
}

// isDuplicateKeyError checks if a pgx error is a unique constraint violation.
func isDuplicateKeyError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" // unique_violation
	}
	return false
}

func isCheckViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23514"
	}
	return false
}

var _ Store = (*PostgresStore)(nil)
