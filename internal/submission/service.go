// Package submission turns an uploaded photo into a tracked classification job.
package submission

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ALEXSANDER2002/aritana/internal/cache"
	"github.com/ALEXSANDER2002/aritana/internal/gateway"
	"github.com/ALEXSANDER2002/aritana/internal/store"
	"github.com/ALEXSANDER2002/aritana/internal/telemetry"
	"github.com/ALEXSANDER2002/aritana/internal/timeline"
	"github.com/ALEXSANDER2002/aritana/pkg/models"
	"github.com/google/uuid"
)

// User-facing messages stored on the record and returned to the uploader.
const (
	MessageMissingJobID = "API não retornou job_id válido"
	MessageSubmitFailed = "Erro ao enviar imagem para análise. Tente novamente."
	MessageSubmitted    = "Imagem enviada para análise"
)

// SubmitError is returned when the gateway did not accept the image. The local record
// exists and stays pending; Message is safe to show to the uploader.
type SubmitError struct {
	Message string
	Err     error
}

func (e *SubmitError) Error() string {
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

func (e *SubmitError) Unwrap() error { return e.Err }

// Upload is one photo with the metadata the uploader supplied.
type Upload struct {
	Image    gateway.Image
	Metadata gateway.Metadata
}

// Service validates uploads, records them and hands them to the gateway.
type Service struct {
	gateway gateway.Client
	store   store.Store
	cache   cache.Cache
	metrics *telemetry.Provider
	now     func() time.Time
}

// Option configures a Service.
type Option func(*Service)

func WithMetrics(p *telemetry.Provider) Option {
	return func(s *Service) {
		s.metrics = p
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// NewService creates a Service. A nil cache disables invalidation.
func NewService(gw gateway.Client, st store.Store, ca cache.Cache, opts ...Option) *Service {
	s := &Service{
		gateway: gw,
		store:   st,
		cache:   ca,
		now:     func() time.Time { return time.Now().UTC() },
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Submit validates the upload, stores a pending record and submits the image. On success
// the returned record is submitted and carries the gateway's job id. When the gateway
// refuses or is unreachable the pending record is returned together with a *SubmitError.
// Invalid uploads return a *ValidationError and store nothing.
func (s *Service) Submit(ctx context.Context, up Upload) (*models.JobRecord, error) {
	contentType, err := Validate(up.Image.Name, up.Image.ContentType, up.Image.Data)
	if err != nil {
		s.metrics.RecordUpload("invalid")
		return nil, err
	}
	up.Image.ContentType = contentType

	now := s.now()
	meta := up.Metadata.WithDefaults(up.Image.Name, now)
	job := &models.JobRecord{
		ID:               uuid.New(),
		State:            models.JobStatePending,
		Title:            meta.Title,
		Description:      meta.Description,
		Region:           meta.Region,
		Locality:         meta.Locality,
		Latitude:         meta.Latitude,
		Longitude:        meta.Longitude,
		PhotoTakenAt:     meta.PhotoTakenAt,
		ImageName:        up.Image.Name,
		ImageContentType: contentType,
		ImageSize:        int64(len(up.Image.Data)),
		UploadedAt:       now,
	}
	if err := s.store.CreateJob(ctx, job); err != nil {
		return nil, fmt.Errorf("creating job record: %w", err)
	}
	s.invalidate(ctx, timeline.ScopeListings)

	sub, err := s.gateway.Submit(ctx, up.Image, meta)
	if err == nil && (sub == nil || strings.TrimSpace(sub.JobID) == "") {
		err = gateway.ErrMissingJobID
	}
	if err != nil {
		return s.refused(ctx, job, err)
	}

	attached, err := s.store.AttachJob(ctx, job.ID, store.Attachment{
		JobID:     sub.JobID,
		StatusURL: sub.StatusURL,
		ResultURL: sub.ResultURL,
	})
	if err != nil {
		return nil, fmt.Errorf("attaching job %s: %w", sub.JobID, err)
	}
	if updated, err := s.store.UpdateJob(ctx, job.ID, models.JobStateSubmitted, store.WithStatusMessage(MessageSubmitted)); err == nil {
		attached = updated
	} else {
		slog.Warn("could not set submission message", "id", job.ID, "error", err)
	}

	s.invalidate(ctx, timeline.ScopeAll)
	s.metrics.RecordUpload("accepted")
	slog.Info("image submitted", "id", job.ID, "job_id", sub.JobID, "size", job.ImageSize)
	return attached, nil
}

func (s *Service) refused(ctx context.Context, job *models.JobRecord, cause error) (*models.JobRecord, error) {
	message := MessageSubmitFailed
	outcome := "gateway_error"
	if errors.Is(cause, gateway.ErrMissingJobID) {
		message = MessageMissingJobID
		outcome = "missing_job_id"
	}
	s.metrics.RecordUpload(outcome)
	slog.Error("submission failed", "id", job.ID, "error", cause)

	updated, err := s.store.UpdateJob(ctx, job.ID, models.JobStatePending, store.WithStatusMessage(message))
	if err != nil {
		slog.Warn("could not record submission failure", "id", job.ID, "error", err)
		updated = job
	}
	s.invalidate(ctx, timeline.ScopeListings)
	return updated, &SubmitError{Message: message, Err: cause}
}

func (s *Service) invalidate(ctx context.Context, scope timeline.Scope) {
	if err := timeline.Invalidate(ctx, s.cache, scope); err != nil {
		slog.Warn("cache invalidation failed", "scope", scope.String(), "error", err)
	}
}
