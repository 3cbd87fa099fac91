package client

// JobStatus is the state of a remote upload job as reported by a single
// status check. It is never cached; every value comes from a fresh call.
type JobStatus string

const (
	// StatusRunning covers both queued and in-progress jobs.
	StatusRunning JobStatus = "running"

	// StatusSucceeded is the terminal success state.
	StatusSucceeded JobStatus = "succeeded"

	// StatusFailed is the terminal failure state.
	StatusFailed JobStatus = "failed"

	// StatusUndefined is reported when the API returns a status string
	// this client does not know. The upload workflow treats it as an
	// authoritative failure.
	StatusUndefined JobStatus = "undefined"
)

// Terminal reports whether no further remote transition can occur.
func (s JobStatus) Terminal() bool {
	return s != StatusRunning
}

// ParseJobStatus maps the API's status strings onto JobStatus values.
// "pending" and "running" both map to StatusRunning.
func ParseJobStatus(s string) JobStatus {
	switch s {
	case "pending", "running":
		return StatusRunning
	case "success", "succeeded":
		return StatusSucceeded
	case "failed":
		return StatusFailed
	default:
		return StatusUndefined
	}
}
