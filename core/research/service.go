package research

import "context"

// StatusSnapshot is one poll's view of a remote job. Progress holds every
// progress message the service has produced so far, in order; the supervisor
// emits only the ones it has not surfaced yet.
type StatusSnapshot struct {
	Status   Status
	Progress []string
	Error    string
}

// Result is the final payload of a completed job. Citations come from the
// service's structured annotations.
type Result struct {
	Answer    string
	Citations []Citation
}

// JobService is the external deep-research collaborator. Implementations
// must be safe for concurrent use across job loops.
type JobService interface {
	CreateJob(ctx context.Context, req Request) (remoteID string, err error)
	JobStatus(ctx context.Context, remoteID string) (StatusSnapshot, error)
	JobResult(ctx context.Context, remoteID string) (Result, error)
	CancelJob(ctx context.Context, remoteID string) error
}

// Sink receives research output for rendering. Consumed, not owned; the
// same UI implementation typically also backs the orchestration sink.
type Sink interface {
	AppendText(text string)
	SetStatus(status string)
	AppendCitations(citations []Citation)
}

// NopSink discards everything.
type NopSink struct{}

func (NopSink) AppendText(string)          {}
func (NopSink) SetStatus(string)           {}
func (NopSink) AppendCitations([]Citation) {}
