package research

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jinzhu/copier"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	coreevents "github.com/DXC-Lab-Linkage/ai-agent-sample-hub/core/events"
)

const (
	defaultPollInterval    = 1500 * time.Millisecond
	defaultMaxPollDuration = 30 * time.Minute
)

// Supervisor manages research jobs. Every job polls on its own goroutine,
// fully independent of other jobs and of the realtime session.
type Supervisor struct {
	service JobService
	sink    Sink
	emit    func(coreevents.Event)

	pollInterval    time.Duration
	maxPollDuration time.Duration

	mu     sync.Mutex
	jobs   map[string]*trackedJob
	closed bool

	wg        sync.WaitGroup
	closeOnce sync.Once
}

type trackedJob struct {
	job      Job
	remoteID string
	cancel   context.CancelFunc
	// seen guards progress deduplication; messages are emitted in order and
	// at most once.
	seen map[string]struct{}
}

type SupervisorOption func(*Supervisor)

// WithSink routes answers, progress, and citations to the given sink.
func WithSink(sink Sink) SupervisorOption {
	return func(s *Supervisor) {
		if sink != nil {
			s.sink = sink
		}
	}
}

// WithEventListener registers a callback for job lifecycle events. The
// callback runs inline on the polling path and should not block.
func WithEventListener(listener func(coreevents.Event)) SupervisorOption {
	return func(s *Supervisor) {
		if listener != nil {
			s.emit = listener
		}
	}
}

// WithPollInterval sets the sleep between status polls.
func WithPollInterval(interval time.Duration) SupervisorOption {
	return func(s *Supervisor) {
		if interval > 0 {
			s.pollInterval = interval
		}
	}
}

// WithMaxPollDuration bounds every job's polling loop. Exceeding it fails
// the job with *PollingTimeoutError.
func WithMaxPollDuration(limit time.Duration) SupervisorOption {
	return func(s *Supervisor) {
		if limit > 0 {
			s.maxPollDuration = limit
		}
	}
}

// NewSupervisor builds a supervisor over the given job service.
func NewSupervisor(service JobService, opts ...SupervisorOption) *Supervisor {
	s := &Supervisor{
		service:         service,
		sink:            NopSink{},
		emit:            func(coreevents.Event) {},
		pollInterval:    defaultPollInterval,
		maxPollDuration: defaultMaxPollDuration,
		jobs:            map[string]*trackedJob{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Submit creates a research job in queued status and starts its polling
// loop. The returned id addresses the job in Cancel and Job.
func (s *Supervisor) Submit(ctx context.Context, req Request) (string, error) {
	ctx, span := tracer.Start(ctx, "submit research job")
	defer span.End()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return "", fmt.Errorf("supervisor closed")
	}
	s.mu.Unlock()

	remoteID, err := s.service.CreateJob(ctx, req)
	if err != nil {
		err = fmt.Errorf("failed to create research job: %w", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}

	id := uuid.NewString()
	span.SetAttributes(attribute.String("research.job_id", id))

	// The loop context is detached from the submission context: the job
	// outlives the caller and stops only through Cancel, Close, or its own
	// deadline.
	loopCtx, cancel := context.WithCancel(context.Background())

	tracked := &trackedJob{
		job: Job{
			ID:          id,
			Query:       req.Query,
			Status:      StatusQueued,
			SubmittedAt: time.Now(),
		},
		remoteID: remoteID,
		cancel:   cancel,
		seen:     map[string]struct{}{},
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		cancel()
		return "", fmt.Errorf("supervisor closed")
	}
	s.jobs[id] = tracked
	s.mu.Unlock()

	s.emit(coreevents.NewResearchSubmitted(id, req.Query))
	s.sink.SetStatus(fmt.Sprintf("research %s: queued", id))

	s.wg.Add(1)
	go s.poll(loopCtx, id)

	return id, nil
}

// Cancel stops the job's polling loop and requests remote cancellation on a
// best-effort basis. The job's terminal status becomes cancelled unless it
// already reached another terminal status.
func (s *Supervisor) Cancel(ctx context.Context, id string) error {
	s.mu.Lock()
	tracked, ok := s.jobs[id]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("unknown research job %s", id)
	}
	remoteID := tracked.remoteID
	cancel := tracked.cancel
	s.mu.Unlock()

	if err := s.service.CancelJob(ctx, remoteID); err != nil {
		logger.Warn("remote cancellation failed", "job_id", id, "error", err)
	}

	s.finish(id, StatusCancelled, nil)
	cancel()
	return nil
}

// Job returns a point-in-time snapshot of the job.
func (s *Supervisor) Job(id string) (Job, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tracked, ok := s.jobs[id]
	if !ok {
		return Job{}, false
	}

	snapshot := Job{}
	if err := copier.Copy(&snapshot, &tracked.job); err != nil {
		return tracked.job, true
	}
	return snapshot, true
}

// Close stops all polling loops and waits for them to finish. Jobs that were
// not terminal become cancelled.
func (s *Supervisor) Close() {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		cancels := make([]context.CancelFunc, 0, len(s.jobs))
		for _, tracked := range s.jobs {
			cancels = append(cancels, tracked.cancel)
		}
		s.mu.Unlock()

		for _, cancel := range cancels {
			cancel()
		}
		s.wg.Wait()
	})
}

func (s *Supervisor) poll(ctx context.Context, id string) {
	defer s.wg.Done()

	s.mu.Lock()
	tracked, ok := s.jobs[id]
	if !ok {
		s.mu.Unlock()
		return
	}
	remoteID := tracked.remoteID
	s.mu.Unlock()

	deadline := time.Now().Add(s.maxPollDuration)

	for {
		select {
		case <-ctx.Done():
			s.finish(id, StatusCancelled, nil)
			return
		case <-time.After(s.pollInterval):
		}

		if time.Now().After(deadline) {
			s.finish(id, StatusFailed, &PollingTimeoutError{JobID: id, Limit: s.maxPollDuration})
			return
		}

		snapshot, err := s.service.JobStatus(ctx, remoteID)
		if err != nil {
			if ctx.Err() != nil {
				s.finish(id, StatusCancelled, nil)
				return
			}
			// Transient poll failures do not terminate the job; the
			// deadline does.
			logger.Warn("research status poll failed", "job_id", id, "error", err)
			continue
		}

		switch snapshot.Status {
		case StatusQueued:
			// Still waiting for the service to pick the job up.

		case StatusRunning:
			s.markRunning(id)
			s.emitProgress(id, snapshot.Progress)

		case StatusFailed:
			var jobErr error
			if snapshot.Error != "" {
				jobErr = errors.New(snapshot.Error)
			} else {
				jobErr = errors.New("research job failed")
			}
			s.finish(id, StatusFailed, jobErr)
			return

		case StatusCancelled:
			s.finish(id, StatusCancelled, nil)
			return

		case StatusCompleted:
			result, err := s.service.JobResult(ctx, remoteID)
			if err != nil {
				s.finish(id, StatusFailed, fmt.Errorf("failed to fetch research result: %w", err))
				return
			}
			s.complete(id, result)
			return
		}
	}
}

func (s *Supervisor) markRunning(id string) {
	s.mu.Lock()
	tracked, ok := s.jobs[id]
	if !ok || tracked.job.Status != StatusQueued {
		s.mu.Unlock()
		return
	}
	tracked.job.Status = StatusRunning
	s.mu.Unlock()

	s.sink.SetStatus(fmt.Sprintf("research %s: running", id))
}

func (s *Supervisor) emitProgress(id string, progress []string) {
	s.mu.Lock()
	tracked, ok := s.jobs[id]
	if !ok {
		s.mu.Unlock()
		return
	}

	fresh := make([]string, 0, len(progress))
	for _, message := range progress {
		if message == "" {
			continue
		}
		if _, dup := tracked.seen[message]; dup {
			continue
		}
		tracked.seen[message] = struct{}{}
		tracked.job.Progress = append(tracked.job.Progress, message)
		fresh = append(fresh, message)
	}
	s.mu.Unlock()

	for _, message := range fresh {
		s.sink.AppendText(message)
		s.emit(coreevents.NewResearchProgress(id, message))
	}
}

func (s *Supervisor) complete(id string, result Result) {
	citations := dedupeCitations(result.Citations)

	s.mu.Lock()
	tracked, ok := s.jobs[id]
	if !ok || tracked.job.Status.IsTerminal() {
		s.mu.Unlock()
		return
	}
	tracked.job.Status = StatusCompleted
	tracked.job.Answer = result.Answer
	tracked.job.Citations = citations
	s.mu.Unlock()

	s.sink.AppendText(result.Answer)
	if len(citations) > 0 {
		s.sink.AppendCitations(citations)
	}
	s.sink.SetStatus(fmt.Sprintf("research %s: completed", id))
	s.emit(coreevents.NewResearchFinished(id, string(StatusCompleted), ""))
}

// finish records a terminal status exactly once. Later attempts, including
// the loop unwinding after Cancel, are no-ops.
func (s *Supervisor) finish(id string, status Status, jobErr error) {
	s.mu.Lock()
	tracked, ok := s.jobs[id]
	if !ok || tracked.job.Status.IsTerminal() {
		s.mu.Unlock()
		return
	}
	tracked.job.Status = status
	tracked.job.Err = jobErr
	s.mu.Unlock()

	errText := ""
	if jobErr != nil {
		errText = jobErr.Error()
		s.sink.SetStatus(fmt.Sprintf("research %s: failed: %v", id, jobErr))
	} else {
		s.sink.SetStatus(fmt.Sprintf("research %s: %s", id, status))
	}
	s.emit(coreevents.NewResearchFinished(id, string(status), errText))
}
