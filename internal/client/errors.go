package client

import "errors"

// Error kinds returned by the API client. Callers discriminate with
// errors.Is; the concrete message carries the remote response detail.
var (
	// ErrAuth means the API rejected the supplied credentials.
	ErrAuth = errors.New("authentication rejected")

	// ErrValidation means the request payload was rejected before a job
	// was created. No job id exists for this submission.
	ErrValidation = errors.New("invalid request payload")

	// ErrNotFound means the service has no record of the given job id.
	ErrNotFound = errors.New("unknown job id")

	// ErrRemote covers 5xx responses and transport-level failures. It is
	// the only error kind the upload wait loop treats as transient.
	ErrRemote = errors.New("remote service error")

	// ErrParse means the response body did not have the expected shape.
	ErrParse = errors.New("unexpected response format")
)
