// Package service implements the revenue workflows on top of the API
// client: the single-shot fetch and the asynchronous upload with its
// poll-until-terminal wait loop.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/operasoftware/revenueapi-go/internal/client"
)

// UploadAPI is the capability the upload workflow needs from the API
// client: submit a payload and poll the resulting job. Tests substitute
// a fake that scripts arbitrary status sequences.
type UploadAPI interface {
	UploadDailyData(ctx context.Context, csvPayload string, reportDate time.Time) (string, error)
	CheckJobStatus(ctx context.Context, jobID string) (client.JobStatus, error)
}

// State is the local state of one upload invocation.
type State string

const (
	StateNotSubmitted State = "not_submitted"
	StateSubmitted    State = "submitted"
	StateSucceeded    State = "succeeded"
	StateFailed       State = "failed"

	// StateTimedOut means the local wait budget ran out. The remote job
	// may still be running; this is never reported as a remote failure.
	StateTimedOut State = "timed_out"
)

var (
	// ErrUploadFailed means the remote service declared the job failed.
	ErrUploadFailed = errors.New("upload job failed")

	// ErrWaitTimeout means the poll budget was exhausted before the job
	// reached a terminal status.
	ErrWaitTimeout = errors.New("wait budget exhausted")
)

// WaitConfig bounds the submit-and-wait poll loop. The loop stops at
// whichever of MaxAttempts or MaxWait is hit first.
type WaitConfig struct {
	PollInterval time.Duration
	MaxWait      time.Duration
	MaxAttempts  int
}

// DefaultWaitConfig returns the poll budget the hosted API is sized
// for: jobs are short, so a fixed 5s interval inside a 15m budget.
func DefaultWaitConfig() WaitConfig {
	return WaitConfig{
		PollInterval: 5 * time.Second,
		MaxWait:      15 * time.Minute,
		MaxAttempts:  180,
	}
}

// Outcome reports how one upload invocation ended.
type Outcome struct {
	JobID      string
	State      State
	LastStatus client.JobStatus
	Attempts   int
	Elapsed    time.Duration
}

// UploadService orchestrates submit, status-check and submit-and-wait.
// A service holds no per-invocation state; concurrent invocations are
// independent.
type UploadService struct {
	api  UploadAPI
	wait WaitConfig

	// OnPoll, when set, observes every status call of the wait loop so
	// a UI can render progress without owning the loop.
	OnPoll func(attempt int, status client.JobStatus, err error)
}

// NewUploadService creates an upload workflow with the given poll
// budget. Zero fields of wait fall back to DefaultWaitConfig.
func NewUploadService(api UploadAPI, wait WaitConfig) *UploadService {
	def := DefaultWaitConfig()
	if wait.PollInterval <= 0 {
		wait.PollInterval = def.PollInterval
	}
	if wait.MaxWait <= 0 {
		wait.MaxWait = def.MaxWait
	}
	if wait.MaxAttempts <= 0 {
		wait.MaxAttempts = def.MaxAttempts
	}
	return &UploadService{api: api, wait: wait}
}

// Submit starts an upload without waiting for the remote job. The
// returned job id must be used for a later status check.
func (s *UploadService) Submit(ctx context.Context, csvPayload string, reportDate time.Time) (string, error) {
	jobID, err := s.api.UploadDailyData(ctx, csvPayload, reportDate)
	if err != nil {
		return "", err
	}
	slog.Info("upload started", "job_id", jobID)
	return jobID, nil
}

// Status performs exactly one status check for an externally known job
// id. It is a pure query; repeated calls against a terminal job return
// the same status.
func (s *UploadService) Status(ctx context.Context, jobID string) (client.JobStatus, error) {
	return s.api.CheckJobStatus(ctx, jobID)
}

// SubmitAndWait submits the payload and polls the job on a fixed
// interval until it reaches a terminal status or the wait budget is
// exhausted.
//
// Transient failures (client.ErrRemote) consume a poll attempt but do
// not end the loop; exhausting the budget on them alone still yields
// StateTimedOut. client.ErrAuth, client.ErrNotFound and client.ErrParse
// end the loop immediately with that error. A job status of failed or
// undefined is an authoritative remote failure.
func (s *UploadService) SubmitAndWait(ctx context.Context, csvPayload string, reportDate time.Time) (Outcome, error) {
	out := Outcome{State: StateNotSubmitted}

	jobID, err := s.api.UploadDailyData(ctx, csvPayload, reportDate)
	if err != nil {
		return out, err
	}
	out.JobID = jobID
	out.State = StateSubmitted
	slog.Info("upload started, waiting for job",
		"job_id", jobID, "poll_interval", s.wait.PollInterval, "max_wait", s.wait.MaxWait)

	return s.waitForJob(ctx, out)
}

func (s *UploadService) waitForJob(ctx context.Context, out Outcome) (Outcome, error) {
	start := time.Now()
	for {
		out.Attempts++
		status, err := s.api.CheckJobStatus(ctx, out.JobID)
		if s.OnPoll != nil {
			s.OnPoll(out.Attempts, status, err)
		}

		switch {
		case err != nil && errors.Is(err, client.ErrRemote):
			// Transient; the attempt is spent but the loop continues.
			slog.Warn("status check failed, will retry",
				"job_id", out.JobID, "attempt", out.Attempts, "error", err)

		case err != nil:
			out.Elapsed = time.Since(start)
			return out, err

		default:
			out.LastStatus = status
			switch status {
			case client.StatusSucceeded:
				out.State = StateSucceeded
				out.Elapsed = time.Since(start)
				slog.Info("upload job succeeded",
					"job_id", out.JobID, "attempts", out.Attempts, "elapsed", out.Elapsed)
				return out, nil
			case client.StatusRunning:
				// Stay submitted, keep polling.
			default:
				out.State = StateFailed
				out.Elapsed = time.Since(start)
				return out, fmt.Errorf("%w: job %s reported status %q",
					ErrUploadFailed, out.JobID, status)
			}
		}

		// The budget is checked before sleeping so a poll that cannot
		// complete within MaxWait is never started.
		if out.Attempts >= s.wait.MaxAttempts || time.Since(start)+s.wait.PollInterval > s.wait.MaxWait {
			out.State = StateTimedOut
			out.Elapsed = time.Since(start)
			return out, fmt.Errorf("%w: job %s still %q after %d attempts in %s",
				ErrWaitTimeout, out.JobID, out.LastStatus, out.Attempts,
				out.Elapsed.Round(time.Millisecond))
		}

		select {
		case <-time.After(s.wait.PollInterval):
		case <-ctx.Done():
			out.State = StateTimedOut
			out.Elapsed = time.Since(start)
			return out, ctx.Err()
		}
	}
}
