package jobs

import (
	"context"
	"time"
)

// JobType represents the type of job to be executed.
type JobType string

const (
	// JobTypeIngestFile represents ingestion of one live events file.
	JobTypeIngestFile JobType = "ingest_file"
)

// JobStatus represents the current status of a job.
type JobStatus string

const (
	// JobStatusPending indicates the job is waiting to be processed.
	JobStatusPending JobStatus = "pending"
	// JobStatusRunning indicates the job is currently being processed.
	JobStatusRunning JobStatus = "running"
	// JobStatusCompleted indicates the job completed successfully.
	JobStatusCompleted JobStatus = "completed"
	// JobStatusFailed indicates the job failed.
	JobStatusFailed JobStatus = "failed"
	// JobStatusRetrying indicates the job failed and is being retried.
	JobStatusRetrying JobStatus = "retrying"
)

// IngestFileJob asks a worker to ingest one JSONL file into the event store.
type IngestFileJob struct {
	JobID string `json:"job_id"`

	// Path is a local path or gs:// URI of the file.
	Path string `json:"path"`

	Status      JobStatus  `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	// Events is the number of events upserted by the last successful attempt.
	Events int `json:"events"`

	Error      string `json:"error,omitempty"`
	RetryCount int    `json:"retry_count"`
	MaxRetries int    `json:"max_retries"`
}

// Job is a generic interface for all job types.
type Job interface {
	GetID() string
	GetType() JobType
	GetStatus() JobStatus
}

// GetID implements the Job interface.
func (j *IngestFileJob) GetID() string {
	return j.JobID
}

// GetType implements the Job interface.
func (j *IngestFileJob) GetType() JobType {
	return JobTypeIngestFile
}

// GetStatus implements the Job interface.
func (j *IngestFileJob) GetStatus() JobStatus {
	return j.Status
}

// Publisher defines the interface for publishing jobs to a queue.
type Publisher interface {
	// PublishIngestFile enqueues a file ingestion job. A job for a path that
	// is already pending is dropped and reported with published=false.
	PublishIngestFile(ctx context.Context, job *IngestFileJob) (published bool, err error)

	// Close closes the publisher and releases resources.
	Close() error
}

// Consumer defines the interface for consuming jobs from a queue.
type Consumer interface {
	// Start begins consuming jobs from the queue.
	// The handler function is called for each job received.
	Start(ctx context.Context, handler JobHandler) error

	// Stop stops consuming jobs and waits for in-flight jobs to complete.
	Stop(ctx context.Context) error
}

// JobHandler processes a job. A returned error triggers a retry until
// MaxRetries is exhausted.
type JobHandler func(ctx context.Context, job Job) error

// JobStore tracks job state for inspection.
type JobStore interface {
	SaveJob(ctx context.Context, job *IngestFileJob) error
	GetJob(ctx context.Context, jobID string) (*IngestFileJob, error)
	ListJobs(ctx context.Context, filter JobFilter) ([]*IngestFileJob, error)
}

// JobFilter defines filtering criteria for listing jobs.
type JobFilter struct {
	Path   string
	Status JobStatus
	Limit  int
}
