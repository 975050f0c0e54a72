package panorama

// JobStatus is the lifecycle state of a generation job.
type JobStatus string

const (
	StatusIdle      JobStatus = "idle"
	StatusSubmitted JobStatus = "submitted"
	StatusPending   JobStatus = "pending"
	StatusComplete  JobStatus = "complete"
	StatusFailed    JobStatus = "failed"
)

// Terminal reports whether no further transition can happen from s.
func (s JobStatus) Terminal() bool {
	return s == StatusComplete || s == StatusFailed
}

// Job tracks one generation request from submission to terminal status.
type Job struct {
	// LocalRequestID is assigned at submission and increases monotonically.
	LocalRequestID uint64
	// Handle is the service-assigned job id, empty until acknowledged.
	Handle       string
	Prompt       string
	StyleID      int
	NegativeText *string
	Status       JobStatus
	// Result is set iff Status is StatusComplete.
	Result *Descriptor
	// ErrorMessage is set iff Status is StatusFailed.
	ErrorMessage string
	// Polls counts status checks issued for this job.
	Polls int
}

// Clone returns a deep copy safe to hand to callers.
func (j Job) Clone() Job {
	if j.NegativeText != nil {
		v := *j.NegativeText
		j.NegativeText = &v
	}
	if j.Result != nil {
		r := *j.Result
		j.Result = &r
	}
	return j
}
