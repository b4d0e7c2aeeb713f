// Package models contains shared data models used across the ARITANA codebase.
package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// JobState is the local processing state of an uploaded image.
type JobState string

const (
	JobStatePending    JobState = "pending"
	JobStateSubmitted  JobState = "submitted"
	JobStateProcessing JobState = "processing"
	JobStateAnalyzed   JobState = "analyzed"
	JobStateError      JobState = "error"
)

// Display tokens used by the dashboard for a record's local status.
const (
	DisplayPending    = "pendente"
	DisplayProcessing = "processando"
	DisplayAnalyzed   = "analisada"
	DisplayError      = "erro"
)

// A pending record has no external job id, so the only way out of pending is submission.
var validTransitions = map[JobState][]JobState{
	JobStatePending:    {JobStateSubmitted},
	JobStateSubmitted:  {JobStateProcessing, JobStateAnalyzed, JobStateError},
	JobStateProcessing: {JobStateAnalyzed, JobStateError},
}

// CanTransition reports whether a record may move from one state to another.
// Non-terminal states may be re-entered so progress and messages can change;
// analyzed and error are final.
func CanTransition(from, to JobState) bool {
	if from.Terminal() {
		return false
	}
	if from == to {
		return true
	}
	for _, allowed := range validTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// Valid reports whether s is one of the known states.
func (s JobState) Valid() bool {
	switch s {
	case JobStatePending, JobStateSubmitted, JobStateProcessing, JobStateAnalyzed, JobStateError:
		return true
	}
	return false
}

// Terminal reports whether no further transitions are possible.
func (s JobState) Terminal() bool {
	return s == JobStateAnalyzed || s == JobStateError
}

// InFlight reports whether the record has been handed to the gateway and is awaiting a result.
func (s JobState) InFlight() bool {
	return s == JobStateSubmitted || s == JobStateProcessing
}

// DisplayStatus returns the dashboard token. Submitted records display as processing.
func (s JobState) DisplayStatus() string {
	switch s {
	case JobStatePending:
		return DisplayPending
	case JobStateSubmitted, JobStateProcessing:
		return DisplayProcessing
	case JobStateAnalyzed:
		return DisplayAnalyzed
	case JobStateError:
		return DisplayError
	default:
		return string(s)
	}
}

// JobRecord is one locally uploaded image and its classification job.
// The API returns the external job_id on upload; the client polls
// GET /api/v1/jobs/{job_id}/status until the state is analyzed or error.
type JobRecord struct {
	ID             uuid.UUID       `db:"id"                 json:"id"`
	JobID          *string         `db:"job_id"             json:"job_id"`
	State          JobState        `db:"state"              json:"state"`
	Progress       int             `db:"progress"           json:"progress"`
	StatusMessage  string          `db:"status_message"     json:"status_message"`
	PollAttempts   int             `db:"poll_attempts"      json:"poll_attempts"`
	StatusURL      *string         `db:"status_url"         json:"status_url,omitempty"`
	ResultURL      *string         `db:"result_url"         json:"result_url,omitempty"`
	ResourceID     *string         `db:"resource_id"        json:"resource_id"`
	AnalysisResult json.RawMessage `db:"analysis_result"    json:"analysis_result,omitempty"`
	Confidence     *float64        `db:"confidence"         json:"confidence,omitempty"`

	Title        string     `db:"title"          json:"title"`
	Description  string     `db:"description"    json:"description"`
	Region       string     `db:"region"         json:"region"`
	Locality     string     `db:"locality"       json:"locality"`
	Latitude     *float64   `db:"latitude"       json:"latitude,omitempty"`
	Longitude    *float64   `db:"longitude"      json:"longitude,omitempty"`
	PhotoTakenAt *time.Time `db:"photo_taken_at" json:"photo_taken_at,omitempty"`

	ImageName        string `db:"image_name"         json:"image_name"`
	ImageContentType string `db:"image_content_type" json:"image_content_type"`
	ImageSize        int64  `db:"image_size"         json:"image_size"`

	UploadedAt time.Time  `db:"uploaded_at" json:"uploaded_at"`
	AnalyzedAt *time.Time `db:"analyzed_at" json:"analyzed_at,omitempty"`
	UpdatedAt  time.Time  `db:"updated_at"  json:"updated_at"`
}

// Result decodes the stored analysis result. It returns nil when none has been stored
// or the payload cannot be decoded.
func (j *JobRecord) Result() *RemoteRecord {
	if len(j.AnalysisResult) == 0 {
		return nil
	}
	var rec RemoteRecord
	if err := json.Unmarshal(j.AnalysisResult, &rec); err != nil {
		return nil
	}
	return &rec
}
