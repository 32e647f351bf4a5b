package research

import (
	"fmt"
	"time"
)

// PollingTimeoutError reports a job exceeding the global maximum polling
// duration. The job is terminally failed; the loop never blocks forever.
type PollingTimeoutError struct {
	JobID string
	Limit time.Duration
}

func (e *PollingTimeoutError) Error() string {
	return fmt.Sprintf("research job %s exceeded maximum polling duration %s", e.JobID, e.Limit)
}
