package domain

import "time"

// SagaStatus is the state of a multi-step transition.
type SagaStatus string

const (
	SagaRunning   SagaStatus = "running"
	SagaFailed    SagaStatus = "failed"
	SagaCompleted SagaStatus = "completed"
)

// SagaProgress is the durable record of how far a multi-step transition got.
// LastStep counts completed steps, so a retry resumes at steps[LastStep].
type SagaProgress struct {
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
	ID         string     `json:"id"`
	Kind       string     `json:"kind"`
	SubjectID  string     `json:"subject_id"`
	ActorID    string     `json:"actor_id"`
	Status     SagaStatus `json:"status"`
	FailedStep string     `json:"failed_step,omitempty"`
	Error      string     `json:"error,omitempty"`
	LastStep   int        `json:"last_step"`
}

// IsCompleted reports whether every step has been applied.
func (p *SagaProgress) IsCompleted() bool {
	return p.Status == SagaCompleted
}

// SagaID builds the deterministic saga id for a transition kind on a subject.
func SagaID(kind, subjectID string) string {
	return kind + ":" + subjectID
}
