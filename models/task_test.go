package models

import (
	"testing"
	"time"
)

func TestParseJobStatus(t *testing.T) {
	cases := map[string]JobStatus{
		"QUEUED":    JobStatusQueued,
		"COMPLETE":  JobStatusComplete,
		"FAILED":    JobStatusFailed,
		"complete":  JobStatusUnknown,
		" FAILED ":  JobStatusUnknown,
		"queued":    JobStatusUnknown,
		"":          JobStatusUnknown,
		"RUNNING":   JobStatusUnknown,
		"PROGRESS":  JobStatusUnknown,
		"COMPLETED": JobStatusUnknown,
	}
	for raw, want := range cases {
		if got := ParseJobStatus(raw); got != want {
			t.Errorf("ParseJobStatus(%q) = %s, want %s", raw, got, want)
		}
	}
}

func TestRemoteJobObserve(t *testing.T) {
	job := NewRemoteJob("42", time.Now())
	if job.State != JobStateSubmitted {
		t.Fatalf("state = %s, want submitted", job.State)
	}

	if got := job.Observe(JobStatusQueued); got != JobStatePolling {
		t.Fatalf("after QUEUED state = %s, want polling", got)
	}
	if got := job.Observe(JobStatusUnknown); got != JobStatePolling {
		t.Fatalf("after UNKNOWN state = %s, want polling", got)
	}
	if got := job.Observe(JobStatusComplete); got != JobStateCompleted {
		t.Fatalf("after COMPLETE state = %s, want completed", got)
	}
	if job.Polls != 3 {
		t.Fatalf("polls = %d, want 3", job.Polls)
	}
}

func TestRemoteJobTerminalIsSticky(t *testing.T) {
	job := NewRemoteJob("7", time.Now())
	job.Observe(JobStatusFailed)

	if got := job.Observe(JobStatusComplete); got != JobStateFailed {
		t.Fatalf("state = %s, want failed to stick", got)
	}
	if got := job.Finish(JobStateTimedOut); got != JobStateFailed {
		t.Fatalf("Finish changed terminal state to %s", got)
	}
	if job.Polls != 1 {
		t.Fatalf("polls = %d, want 1", job.Polls)
	}
}

func TestRemoteJobFinishRejectsNonTerminal(t *testing.T) {
	job := NewRemoteJob("7", time.Now())
	job.Observe(JobStatusQueued)

	if got := job.Finish(JobStatePolling); got != JobStatePolling {
		t.Fatalf("state = %s, want polling", got)
	}
	if got := job.Finish(JobStateCanceled); got != JobStateCanceled {
		t.Fatalf("state = %s, want canceled", got)
	}
}

func TestRemoteJobErroredIsTerminal(t *testing.T) {
	job := NewRemoteJob("9", time.Now())
	job.Observe(JobStatusQueued)

	if got := job.Finish(JobStateErrored); got != JobStateErrored {
		t.Fatalf("state = %s, want errored", got)
	}
	if got := job.Observe(JobStatusFailed); got != JobStateErrored {
		t.Fatalf("errored job moved to %s", got)
	}
}
