package constants

// JobStatus is the canonical lifecycle status for a processing job.
type JobStatus string

// Stable values (the backend sends these exact strings).
const (
	JobStatusPending              JobStatus = "pending"               // accepted, pipeline not started
	JobStatusProcessing           JobStatus = "processing"            // pipeline running
	JobStatusAwaitingVerification JobStatus = "awaiting_verification" // extraction done, human review needed
	JobStatusCompleted            JobStatus = "completed"             // artifacts generated
	JobStatusFailed               JobStatus = "failed"                // terminal failure, error_message set
)

// Terminal reports whether no further lifecycle transition can occur.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// SyncTerminal reports whether a status observer should stop syncing.
// awaiting_verification is soft-terminal: the job is parked until a human
// review hands it back to the pipeline.
func (s JobStatus) SyncTerminal() bool {
	return s.Terminal() || s == JobStatusAwaitingVerification
}

// SeverityRank orders statuses by operational urgency so that jobs in
// flight or needing attention sort ahead of settled ones. Unknown
// statuses sink to the bottom.
func (s JobStatus) SeverityRank() int {
	switch s {
	case JobStatusProcessing:
		return 0
	case JobStatusAwaitingVerification:
		return 1
	case JobStatusPending:
		return 2
	case JobStatusFailed:
		return 3
	case JobStatusCompleted:
		return 4
	default:
		return 99
	}
}
