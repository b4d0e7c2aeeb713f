package reconcile

import "github.com/ALEXSANDER2002/aritana/pkg/models"

// JobStatusView is the body of the job status endpoint.
type JobStatusView struct {
	JobID      string  `json:"job_id"`
	Status     string  `json:"status"`
	Progress   int     `json:"progresso"`
	Message    string  `json:"mensagem"`
	ResourceID *string `json:"resource_id"`
	Error      *string `json:"erro"`
}

// StatusView renders a record for the status endpoint. Erro carries the status message
// only when the job failed.
func StatusView(job *models.JobRecord) JobStatusView {
	v := JobStatusView{
		Status:     job.State.DisplayStatus(),
		Progress:   job.Progress,
		Message:    job.StatusMessage,
		ResourceID: job.ResourceID,
	}
	if job.JobID != nil {
		v.JobID = *job.JobID
	}
	if job.State == models.JobStateError {
		msg := job.StatusMessage
		v.Error = &msg
	}
	return v
}
