package models

import "time"

// TranslateTask is the externally visible view of an in-flight translation.
type TranslateTask struct {
	ID             string     `json:"id"`
	SourceFile     string     `json:"sourceFile"`
	SourceLanguage string     `json:"sourceLanguage"`
	TargetLanguage string     `json:"targetLanguage"`
	Stage          TaskStage  `json:"stage"`
	Remote         *RemoteJob `json:"remote,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
}

// TaskStage is where an in-flight translation currently is.
type TaskStage string

const (
	TaskStageSubmitting TaskStage = "submitting"
	TaskStagePolling    TaskStage = "polling"
	TaskStageStreaming  TaskStage = "streaming"
)

// TranslationRequest is one inbound translate call backed by a temp upload.
type TranslationRequest struct {
	ID           string `json:"id"`
	SourceLang   string `json:"source"`
	TargetLang   string `json:"target"`
	FilePath     string `json:"-"`
	OriginalName string `json:"originalName"`
}

// JobStatus is the status string reported by the remote status endpoint.
type JobStatus string

const (
	JobStatusQueued   JobStatus = "QUEUED"
	JobStatusComplete JobStatus = "COMPLETE"
	JobStatusFailed   JobStatus = "FAILED"
	JobStatusUnknown  JobStatus = "UNKNOWN"
)

// ParseJobStatus maps a raw remote status onto the closed set. Matching is
// exact; anything else (including empty or differently cased) is
// JobStatusUnknown.
func ParseJobStatus(raw string) JobStatus {
	switch JobStatus(raw) {
	case JobStatusQueued:
		return JobStatusQueued
	case JobStatusComplete:
		return JobStatusComplete
	case JobStatusFailed:
		return JobStatusFailed
	default:
		return JobStatusUnknown
	}
}

// JobState is the local lifecycle of a remote job while we wait on it.
type JobState string

const (
	JobStateSubmitted JobState = "submitted"
	JobStatePolling   JobState = "polling"
	JobStateCompleted JobState = "completed"
	JobStateFailed    JobState = "failed"
	JobStateTimedOut  JobState = "timed_out"
	JobStateCanceled  JobState = "canceled"
	// JobStateErrored means a status check itself failed, as opposed to the
	// remote reporting FAILED.
	JobStateErrored JobState = "errored"
)

// Terminal reports whether no further polling may happen from s.
func (s JobState) Terminal() bool {
	switch s {
	case JobStateCompleted, JobStateFailed, JobStateTimedOut, JobStateCanceled, JobStateErrored:
		return true
	default:
		return false
	}
}

// RemoteJob tracks a submitted job. Only Observe and Finish mutate it.
type RemoteJob struct {
	RequestID   string    `json:"requestId"`
	Status      JobStatus `json:"status"`
	State       JobState  `json:"state"`
	SubmittedAt time.Time `json:"submittedAt"`
	Polls       int       `json:"polls"`
}

// NewRemoteJob returns a job in the submitted state.
func NewRemoteJob(requestID string, submittedAt time.Time) *RemoteJob {
	return &RemoteJob{
		RequestID:   requestID,
		Status:      JobStatusQueued,
		State:       JobStateSubmitted,
		SubmittedAt: submittedAt,
	}
}

// Observe records one poll result and returns the resulting state.
// A job already in a terminal state is left untouched.
func (j *RemoteJob) Observe(status JobStatus) JobState {
	if j.State.Terminal() {
		return j.State
	}
	j.Polls++
	j.Status = status
	switch status {
	case JobStatusComplete:
		j.State = JobStateCompleted
	case JobStatusFailed:
		j.State = JobStateFailed
	default:
		j.State = JobStatePolling
	}
	return j.State
}

// Finish moves a non-terminal job to a terminal state that is not driven by
// a poll result (timeout, cancellation).
func (j *RemoteJob) Finish(state JobState) JobState {
	if j.State.Terminal() || !state.Terminal() {
		return j.State
	}
	j.State = state
	return j.State
}
