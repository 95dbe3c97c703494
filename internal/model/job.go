// internal/model/job.go
package model

import (
	"time"

	"github.com/google/uuid"
)

// JobStatus represents the status of a print job
type JobStatus string

const (
	JobStatusPending JobStatus = "PENDING"
	JobStatusSuccess JobStatus = "SUCCESS"
	JobStatusFailed  JobStatus = "FAILED"
)

// JobResult reports the outcome of one print job
type JobResult struct {
	ID           uuid.UUID      `json:"id"`
	Transport    ConnectionType `json:"transport"`
	DeviceID     string         `json:"device_id,omitempty"`
	Items        int            `json:"items"`
	BytesWritten int            `json:"bytes_written"`
	Status       JobStatus      `json:"status"`
	StartedAt    time.Time      `json:"started_at"`
	DurationMs   int64          `json:"duration_ms"`
	ErrorKind    ErrorKind      `json:"error_kind,omitempty"`
	ErrorMessage string         `json:"error_message,omitempty"`
	Retryable    bool           `json:"retryable,omitempty"`
}
