package domain

import (
	"errors"
	"time"
)

// ErrJobNotFound is returned when a notification job id is unknown.
var ErrJobNotFound = errors.New("notification job not found")

// JobStatus tracks a queued notification job.
type JobStatus string

const (
	JobQueued    JobStatus = "queued"
	JobRunning   JobStatus = "running"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
)

// JobRecipient is a subscriber addressed by a queued job.
type JobRecipient struct {
	SubscriberID string `json:"subscriber_id,omitempty"`
	Email        string `json:"email"`
}

// NotificationJob is the unit of work placed on the queue: one rendered
// message for a list of subscribers, sent with one profile.
type NotificationJob struct {
	ID         string         `json:"id"`
	Profile    string         `json:"profile"`
	Message    MessageJob     `json:"message"`
	Recipients []JobRecipient `json:"recipients"`
	EnqueuedAt time.Time      `json:"enqueued_at"`
}

// JobRecord is the persisted summary of a job.
type JobRecord struct {
	ID         string      `json:"id"`
	Profile    string      `json:"profile"`
	Status     JobStatus   `json:"status"`
	Result     BatchResult `json:"result"`
	Error      string      `json:"error,omitempty"`
	Recipients int         `json:"recipients"`
	StartedAt  time.Time   `json:"started_at"`
	FinishedAt *time.Time  `json:"finished_at,omitempty"`
}
