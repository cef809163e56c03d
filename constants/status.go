package constants

// JobStatus is the canonical status for rows in extract_job.
type JobStatus string

// Stable values (store these exact strings in DB).
const (
	JobStatusRunning   JobStatus = "RUNNING"   // provider call in flight
	JobStatusSucceeded JobStatus = "SUCCEEDED" // at least one page transcribed
	JobStatusEmpty     JobStatus = "EMPTY"     // provider answered with zero pages
	JobStatusFailed    JobStatus = "FAILED"    // terminal failure
)
