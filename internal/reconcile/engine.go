// Package reconcile drives a job record through its lifecycle by polling the gateway.
package reconcile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ALEXSANDER2002/aritana/internal/cache"
	"github.com/ALEXSANDER2002/aritana/internal/gateway"
	"github.com/ALEXSANDER2002/aritana/internal/store"
	"github.com/ALEXSANDER2002/aritana/internal/telemetry"
	"github.com/ALEXSANDER2002/aritana/internal/timeline"
	"github.com/ALEXSANDER2002/aritana/pkg/models"
	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"
)

// MaxPollAttempts is the number of consecutive polls without an answer after which a job
// is marked as failed.
const MaxPollAttempts = 30

// ErrAttemptsExhausted is logged when a record reaches the poll ceiling.
var ErrAttemptsExhausted = errors.New("poll attempts exhausted")

// Status messages stored on records when the gateway sends none.
const (
	MessageQueued          = "Aguardando processamento"
	MessageProcessing      = "Processando imagem"
	MessageAwaitingResult  = "Aguardando resultado da análise"
	MessageAnalyzed        = "Análise concluída"
	MessageFailed          = "Falha no processamento da imagem"
	messageExhaustedFormat = "Serviço de análise não respondeu após %d tentativas"
)

// Engine reconciles local job records with the gateway's view of their jobs.
type Engine struct {
	gateway     gateway.Client
	store       store.Store
	cache       cache.Cache
	metrics     *telemetry.Provider
	maxAttempts int
	sweep       *rate.Limiter

	group singleflight.Group
}

// Option configures an Engine.
type Option func(*Engine)

// WithMaxAttempts overrides MaxPollAttempts. Values below 1 are ignored.
func WithMaxAttempts(n int) Option {
	return func(e *Engine) {
		if n >= 1 {
			e.maxAttempts = n
		}
	}
}

func WithMetrics(p *telemetry.Provider) Option {
	return func(e *Engine) {
		e.metrics = p
	}
}

// WithSweepRate paces PollInFlight to at most perSecond gateway polls.
func WithSweepRate(perSecond float64, burst int) Option {
	return func(e *Engine) {
		if perSecond <= 0 {
			return
		}
		if burst < 1 {
			burst = 1
		}
		e.sweep = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
}

// NewEngine creates an Engine. A nil cache disables invalidation.
func NewEngine(gw gateway.Client, st store.Store, ca cache.Cache, opts ...Option) *Engine {
	e := &Engine{
		gateway:     gw,
		store:       st,
		cache:       ca,
		maxAttempts: MaxPollAttempts,
		sweep:       rate.NewLimiter(rate.Inf, 1),
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// PollByJobID resolves the record for an external job id and polls it.
func (e *Engine) PollByJobID(ctx context.Context, jobID string) (*models.JobRecord, error) {
	job, err := e.store.GetJobByJobID(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("loading job %s: %w", jobID, err)
	}
	return e.Poll(ctx, job.ID)
}

// pollFlightTimeout bounds a shared poll. The flight is detached from the callers'
// contexts, so one caller going away does not fail the others.
const pollFlightTimeout = time.Minute

// Poll asks the gateway for the job's status once and applies the answer to the record.
// Terminal and pending records are returned unchanged. Gateway failures are never
// returned; they count towards the poll ceiling instead. Concurrent polls for the same
// record share one gateway call. A caller whose context ends stops waiting with ctx.Err()
// while the shared poll completes for the rest.
func (e *Engine) Poll(ctx context.Context, id uuid.UUID) (*models.JobRecord, error) {
	ch := e.group.DoChan(id.String(), func() (any, error) {
		flightCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), pollFlightTimeout)
		defer cancel()
		return e.poll(flightCtx, id)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*models.JobRecord), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (e *Engine) poll(ctx context.Context, id uuid.UUID) (*models.JobRecord, error) {
	job, err := e.store.GetJob(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("loading job: %w", err)
	}
	if job.State.Terminal() || job.JobID == nil {
		return job, nil
	}

	var statusURL string
	if job.StatusURL != nil {
		statusURL = *job.StatusURL
	}
	payload, err := e.gateway.PollStatus(ctx, *job.JobID, statusURL)
	if err != nil || payload == nil {
		slog.Debug("poll returned no status", "job_id", *job.JobID, "error", err)
		return e.recordMiss(ctx, job)
	}
	e.metrics.RecordPoll("answered")

	if job.PollAttempts > 0 {
		if err := e.store.ResetPollAttempts(ctx, job.ID); err != nil {
			return nil, fmt.Errorf("resetting poll attempts: %w", err)
		}
		job.PollAttempts = 0
	}
	return e.apply(ctx, job, payload)
}

// recordMiss counts a poll without an answer and fails the job at the ceiling.
func (e *Engine) recordMiss(ctx context.Context, job *models.JobRecord) (*models.JobRecord, error) {
	e.metrics.RecordPoll("missed")
	attempts, err := e.store.RecordPollAttempt(ctx, job.ID)
	if err != nil {
		return nil, fmt.Errorf("recording poll attempt: %w", err)
	}
	job.PollAttempts = attempts
	if attempts < e.maxAttempts {
		return job, nil
	}

	slog.Warn("giving up on job", "error", ErrAttemptsExhausted, "job_id", *job.JobID, "attempts", attempts)
	e.metrics.RecordPoll("exhausted")
	return e.transition(ctx, job, models.JobStateError,
		store.WithStatusMessage(fmt.Sprintf(messageExhaustedFormat, attempts)))
}

func (e *Engine) apply(ctx context.Context, job *models.JobRecord, p *gateway.StatusPayload) (*models.JobRecord, error) {
	switch p.Status {
	case gateway.StatusQueued:
		return e.transition(ctx, job, job.State, store.WithStatusMessage(messageOr(p.Message, MessageQueued)))

	case gateway.StatusRunning:
		opts := []store.JobUpdateOption{store.WithStatusMessage(messageOr(p.Message, MessageProcessing))}
		if p.Progress != nil {
			opts = append(opts, store.WithProgress(*p.Progress))
		}
		return e.transition(ctx, job, models.JobStateProcessing, opts...)

	case gateway.StatusSucceeded:
		if p.ResourceID == "" {
			return e.transition(ctx, job, models.JobStateProcessing,
				store.WithStatusMessage(messageOr(p.Message, MessageAwaitingResult)))
		}
		return e.complete(ctx, job, p)

	case gateway.StatusFailed:
		return e.transition(ctx, job, models.JobStateError, store.WithStatusMessage(messageOr(p.Message, MessageFailed)))

	default:
		slog.Warn("unrecognized job status", "job_id", *job.JobID, "status", p.RawStatus)
		if p.Message == "" {
			return job, nil
		}
		return e.transition(ctx, job, job.State, store.WithStatusMessage(p.Message))
	}
}

// complete fetches the finished record and marks the job analyzed. When the result is not
// available yet the job stays in processing and the next poll tries again.
func (e *Engine) complete(ctx context.Context, job *models.JobRecord, p *gateway.StatusPayload) (*models.JobRecord, error) {
	rec, err := e.gateway.FetchResult(ctx, p.ResourceID)
	if err != nil || rec == nil {
		slog.Info("result not available yet", "job_id", *job.JobID, "resource_id", p.ResourceID, "error", err)
		opts := []store.JobUpdateOption{store.WithStatusMessage(MessageAwaitingResult)}
		if p.Progress != nil {
			opts = append(opts, store.WithProgress(*p.Progress))
		}
		return e.transition(ctx, job, models.JobStateProcessing, opts...)
	}

	raw, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("encoding analysis result: %w", err)
	}
	opts := []store.JobUpdateOption{
		store.WithResourceID(p.ResourceID),
		store.WithAnalysisResult(raw),
		store.WithStatusMessage(messageOr(p.Message, MessageAnalyzed)),
	}
	if rec.Confidence != nil && *rec.Confidence >= 0 && *rec.Confidence <= 100 {
		opts = append(opts, store.WithConfidence(*rec.Confidence))
	}
	return e.transition(ctx, job, models.JobStateAnalyzed, opts...)
}

// transition persists the update and invalidates cached views when anything visible changed.
func (e *Engine) transition(ctx context.Context, job *models.JobRecord, state models.JobState, opts ...store.JobUpdateOption) (*models.JobRecord, error) {
	updated, err := e.store.UpdateJob(ctx, job.ID, state, opts...)
	if errors.Is(err, store.ErrInvalidTransition) {
		// Another writer finished the record first.
		current, getErr := e.store.GetJob(ctx, job.ID)
		if getErr != nil {
			return nil, fmt.Errorf("reloading job: %w", getErr)
		}
		return current, nil
	}
	if err != nil {
		return nil, fmt.Errorf("updating job: %w", err)
	}

	if updated.State != job.State {
		e.metrics.RecordTransition(string(updated.State))
		slog.Info("job state changed", "job_id", *job.JobID, "from", job.State, "to", updated.State,
			"progress", updated.Progress)
	}
	if visibleChange(job, updated) {
		scope := timeline.ScopeListings
		if updated.State == models.JobStateAnalyzed {
			scope = timeline.ScopeAll
		}
		if err := timeline.Invalidate(ctx, e.cache, scope); err != nil {
			slog.Warn("cache invalidation failed", "job_id", *job.JobID, "scope", scope.String(), "error", err)
		}
	}
	return updated, nil
}

func visibleChange(before, after *models.JobRecord) bool {
	return before.State != after.State ||
		before.Progress != after.Progress ||
		before.StatusMessage != after.StatusMessage
}

func messageOr(msg, fallback string) string {
	if msg != "" {
		return msg
	}
	return fallback
}
