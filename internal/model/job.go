package model

import "time"

// Job is one render request's lifecycle record, from admission to
// terminal state. The request snapshot is immutable after Submit; the
// mutable fields are written only by the scheduler under its lock, and
// only by the owning worker once the job is dequeued.
type Job struct {
	ID         string    `json:"job_id"`
	TemplateID string    `json:"template_id"`
	Status     JobStatus `json:"status"`
	Progress   int       `json:"progress"`

	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	// Set only on completed jobs.
	OutputPath      string  `json:"-"`
	DownloadURL     string  `json:"download_url,omitempty"`
	FileSizeBytes   int64   `json:"file_size_bytes,omitempty"`
	DurationSeconds float64 `json:"duration_seconds,omitempty"`

	// Set only on failed jobs.
	Error *JobError `json:"error,omitempty"`

	// Admission-time snapshot of the validated request.
	Request RenderRequest `json:"-"`
}

// JobError carries the pipeline error recorded on a failed job.
type JobError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
