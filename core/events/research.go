package events

const (
	// KindResearchSubmitted identifies a research job accepted for polling.
	KindResearchSubmitted Kind = "research.submitted"
	// KindResearchProgress identifies an incremental progress message.
	KindResearchProgress Kind = "research.progress"
	// KindResearchFinished identifies a job reaching any terminal status.
	KindResearchFinished Kind = "research.finished"
)

// ResearchSubmitted marks a job entering the queued status.
type ResearchSubmitted struct {
	Base
	JobID string
	Query string
}

func NewResearchSubmitted(jobID, query string) ResearchSubmitted {
	return ResearchSubmitted{Base: NewBase(KindResearchSubmitted), JobID: jobID, Query: query}
}

// ResearchProgress marks one new progress message, emitted in order and
// never duplicated.
type ResearchProgress struct {
	Base
	JobID   string
	Message string
}

func NewResearchProgress(jobID, message string) ResearchProgress {
	return ResearchProgress{Base: NewBase(KindResearchProgress), JobID: jobID, Message: message}
}

// ResearchFinished marks a job's single terminal transition.
type ResearchFinished struct {
	Base
	JobID  string
	Status string
	Error  string
}

func NewResearchFinished(jobID, status, errText string) ResearchFinished {
	return ResearchFinished{Base: NewBase(KindResearchFinished), JobID: jobID, Status: status, Error: errText}
}
