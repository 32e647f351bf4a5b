// Package research supervises long-running deep-research jobs through
// periodic status polling, independent of the realtime session.
//
// Each submitted job gets its own polling loop bounded by a global maximum
// duration. Progress messages surface incrementally and citations are taken
// only from the job service's structured metadata, never parsed out of model
// text.
package research

import "time"

// Status is the lifecycle status of a research job.
type Status string

const (
	StatusQueued    Status = "queued"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// IsTerminal reports whether the status is one of the three terminal states.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

// Citation is a structured reference attached to a job's final answer,
// extracted from job metadata.
type Citation struct {
	URI   string
	Title string
}

// Request describes a research job submission handed to the external job
// service.
type Request struct {
	Query            string
	ArbitrationModel string
	ResearchModel    string
	SearchResource   string
}

// Job is a snapshot of a supervised research job.
type Job struct {
	ID          string
	Query       string
	Status      Status
	Progress    []string
	Citations   []Citation
	Answer      string
	Err         error
	SubmittedAt time.Time
}

// dedupeCitations drops citations whose URI was already seen, preserving
// first-seen order.
func dedupeCitations(citations []Citation) []Citation {
	seen := make(map[string]struct{}, len(citations))
	deduped := make([]Citation, 0, len(citations))
	for _, citation := range citations {
		if _, dup := seen[citation.URI]; dup {
			continue
		}
		seen[citation.URI] = struct{}{}
		deduped = append(deduped, citation)
	}
	return deduped
}
