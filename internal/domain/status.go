package domain

// Job status values persisted in the jobs database. Once a job reaches
// completed or cancelled no further transition occurs.
const (
	JobStatusPending    = "pending"
	JobStatusProcessing = "processing"
	JobStatusCompleted  = "completed"
	JobStatusFailed     = "failed"
	JobStatusCancelled  = "cancelled"
)
