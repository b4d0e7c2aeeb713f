// Package storetest provides an in-memory store.Store for unit tests.
package storetest

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ALEXSANDER2002/aritana/internal/store"
	"github.com/ALEXSANDER2002/aritana/pkg/models"
	"github.com/google/uuid"
)

// MemStore keeps records in a map and applies the same transition rules as the
// Postgres store. Setting Err makes every call fail with it.
type MemStore struct {
	Err error
	Now func() time.Time

	mu   sync.Mutex
	jobs map[uuid.UUID]*models.JobRecord
}

func NewMemStore() *MemStore {
	return &MemStore{jobs: make(map[uuid.UUID]*models.JobRecord)}
}

func (m *MemStore) now() time.Time {
	if m.Now != nil {
		return m.Now().UTC()
	}
	return time.Now().UTC()
}

func (m *MemStore) Ping(_ context.Context) error {
	return m.Err
}

func (m *MemStore) CreateJob(_ context.Context, job *models.JobRecord) error {
	if m.Err != nil {
		return m.Err
	}
	if err := store.ValidateNew(job); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.jobs == nil {
		m.jobs = make(map[uuid.UUID]*models.JobRecord)
	}
	if _, ok := m.jobs[job.ID]; ok {
		return store.ErrDuplicateKey
	}
	now := m.now()
	if job.UploadedAt.IsZero() {
		job.UploadedAt = now
	}
	job.UpdatedAt = now
	m.jobs[job.ID] = clone(job)
	return nil
}

func (m *MemStore) GetJob(_ context.Context, id uuid.UUID) (*models.JobRecord, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return clone(j), nil
}

func (m *MemStore) GetJobByJobID(_ context.Context, jobID string) (*models.JobRecord, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	jobID = strings.TrimSpace(jobID)
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, j := range m.jobs {
		if j.JobID != nil && *j.JobID == jobID && jobID != "" {
			return clone(j), nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *MemStore) ListJobs(_ context.Context, filter store.JobFilter) ([]*models.JobRecord, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	want := make(map[models.JobState]bool, len(filter.States))
	for _, s := range filter.States {
		want[s] = true
	}

	m.mu.Lock()
	out := []*models.JobRecord{}
	for _, j := range m.jobs {
		if len(want) > 0 && !want[j.State] {
			continue
		}
		out = append(out, clone(j))
	}
	m.mu.Unlock()

	sort.Slice(out, func(a, b int) bool {
		if !out[a].UploadedAt.Equal(out[b].UploadedAt) {
			return out[a].UploadedAt.After(out[b].UploadedAt)
		}
		return out[a].ID.String() < out[b].ID.String()
	})
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (m *MemStore) AttachJob(_ context.Context, id uuid.UUID, sub store.Attachment) (*models.JobRecord, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	jobID := strings.TrimSpace(sub.JobID)
	if jobID == "" {
		return nil, fmt.Errorf("%w: empty job id", store.ErrInvalidUpdate)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	for otherID, other := range m.jobs {
		if otherID != id && other.JobID != nil && *other.JobID == jobID {
			return nil, store.ErrDuplicateKey
		}
	}
	if j.State != models.JobStatePending {
		return nil, fmt.Errorf("%w: %s -> %s", store.ErrInvalidTransition, j.State, models.JobStateSubmitted)
	}
	j.JobID = &jobID
	j.StatusURL = optional(sub.StatusURL)
	j.ResultURL = optional(sub.ResultURL)
	j.State = models.JobStateSubmitted
	j.PollAttempts = 0
	j.UpdatedAt = m.now()
	return clone(j), nil
}

func (m *MemStore) RecordPollAttempt(_ context.Context, id uuid.UUID) (int, error) {
	if m.Err != nil {
		return 0, m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	if !ok {
		return 0, store.ErrNotFound
	}
	j.PollAttempts++
	j.UpdatedAt = m.now()
	return j.PollAttempts, nil
}

func (m *MemStore) ResetPollAttempts(_ context.Context, id uuid.UUID) error {
	if m.Err != nil {
		return m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	if !ok {
		return store.ErrNotFound
	}
	j.PollAttempts = 0
	j.UpdatedAt = m.now()
	return nil
}

func (m *MemStore) UpdateJob(_ context.Context, id uuid.UUID, state models.JobState, opts ...store.JobUpdateOption) (*models.JobRecord, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	updated := clone(j)
	if err := store.ApplyUpdate(updated, state, m.now(), opts...); err != nil {
		return nil, err
	}
	m.jobs[id] = updated
	return clone(updated), nil
}

// Len returns the number of stored records.
func (m *MemStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.jobs)
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func clone(j *models.JobRecord) *models.JobRecord {
	c := *j
	if j.JobID != nil {
		v := *j.JobID
		c.JobID = &v
	}
	if j.ResourceID != nil {
		v := *j.ResourceID
		c.ResourceID = &v
	}
	if j.StatusURL != nil {
		v := *j.StatusURL
		c.StatusURL = &v
	}
	if j.ResultURL != nil {
		v := *j.ResultURL
		c.ResultURL = &v
	}
	if j.AnalysisResult != nil {
		c.AnalysisResult = append(json.RawMessage(nil), j.AnalysisResult...)
	}
	return &c
}

var _ store.Store = (*MemStore)(nil)
