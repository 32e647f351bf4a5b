package research

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"
)

type stubService struct {
	mu        sync.Mutex
	snapshots []StatusSnapshot
	statusErr []error
	result    Result
	resultErr error
	cancelled []string
}

func (s *stubService) CreateJob(ctx context.Context, req Request) (string, error) {
	return "remote-1", nil
}

func (s *stubService) JobStatus(ctx context.Context, remoteID string) (StatusSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.statusErr) > 0 {
		err := s.statusErr[0]
		s.statusErr = s.statusErr[1:]
		if err != nil {
			return StatusSnapshot{}, err
		}
	}
	if len(s.snapshots) == 0 {
		return StatusSnapshot{Status: StatusRunning}, nil
	}
	snapshot := s.snapshots[0]
	if len(s.snapshots) > 1 {
		s.snapshots = s.snapshots[1:]
	}
	return snapshot, nil
}

func (s *stubService) JobResult(ctx context.Context, remoteID string) (Result, error) {
	return s.result, s.resultErr
}

func (s *stubService) CancelJob(ctx context.Context, remoteID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelled = append(s.cancelled, remoteID)
	return nil
}

type recordResearchSink struct {
	mu            sync.Mutex
	texts         []string
	statuses      []string
	citationCalls [][]Citation
}

func (s *recordResearchSink) AppendText(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.texts = append(s.texts, text)
}

func (s *recordResearchSink) SetStatus(status string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statuses = append(s.statuses, status)
}

func (s *recordResearchSink) AppendCitations(citations []Citation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.citationCalls = append(s.citationCalls, citations)
}

func awaitTerminal(t *testing.T, s *Supervisor, id string) Job {
	t.Helper()
	deadline := time.After(3 * time.Second)
	for {
		job, ok := s.Job(id)
		if !ok {
			t.Fatalf("job %s disappeared", id)
		}
		if job.Status.IsTerminal() {
			return job
		}
		select {
		case <-deadline:
			t.Fatalf("job never reached a terminal status, stuck at %s", job.Status)
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestJobEmitsOrderedProgressAndOneDedupedCitationList(t *testing.T) {
	service := &stubService{
		snapshots: []StatusSnapshot{
			{Status: StatusRunning, Progress: []string{"searching sources"}},
			{Status: StatusRunning, Progress: []string{"searching sources", "reading papers"}},
			{Status: StatusCompleted},
		},
		result: Result{
			Answer: "final answer",
			Citations: []Citation{
				{URI: "https://example.com/a", Title: "A"},
				{URI: "https://example.com/b", Title: "B"},
				{URI: "https://example.com/a", Title: "A again"},
			},
		},
	}
	sink := &recordResearchSink{}
	supervisor := NewSupervisor(service, WithSink(sink), WithPollInterval(10*time.Millisecond))
	defer supervisor.Close()

	id, err := supervisor.Submit(context.Background(), Request{Query: "what is up"})
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}

	job := awaitTerminal(t, supervisor, id)
	if job.Status != StatusCompleted {
		t.Fatalf("expected completed job, got %s (%v)", job.Status, job.Err)
	}

	wantProgress := []string{"searching sources", "reading papers"}
	if len(job.Progress) != len(wantProgress) {
		t.Fatalf("expected %d progress messages, got %v", len(wantProgress), job.Progress)
	}
	for i, want := range wantProgress {
		if job.Progress[i] != want {
			t.Fatalf("progress out of order: got %v", job.Progress)
		}
	}

	sink.mu.Lock()
	defer sink.mu.Unlock()
	if len(sink.citationCalls) != 1 {
		t.Fatalf("expected exactly one citation list, got %d", len(sink.citationCalls))
	}
	citations := sink.citationCalls[0]
	if len(citations) != 2 {
		t.Fatalf("expected deduplicated citations, got %v", citations)
	}
	if citations[0].URI != "https://example.com/a" || citations[1].URI != "https://example.com/b" {
		t.Fatalf("citation order not preserved: %v", citations)
	}
}

func TestExceedingMaxPollDurationFailsWithTimeout(t *testing.T) {
	service := &stubService{} // always running
	supervisor := NewSupervisor(service,
		WithPollInterval(10*time.Millisecond),
		WithMaxPollDuration(50*time.Millisecond),
	)
	defer supervisor.Close()

	id, err := supervisor.Submit(context.Background(), Request{Query: "never ends"})
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}

	job := awaitTerminal(t, supervisor, id)
	if job.Status != StatusFailed {
		t.Fatalf("expected failed job, got %s", job.Status)
	}
	var timeoutErr *PollingTimeoutError
	if !errors.As(job.Err, &timeoutErr) {
		t.Fatalf("expected PollingTimeoutError, got %v", job.Err)
	}
}

func TestCancelStopsPollingAndRequestsRemoteCancellation(t *testing.T) {
	service := &stubService{}
	supervisor := NewSupervisor(service, WithPollInterval(10*time.Millisecond))
	defer supervisor.Close()

	id, err := supervisor.Submit(context.Background(), Request{Query: "cancel me"})
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}

	if err := supervisor.Cancel(context.Background(), id); err != nil {
		t.Fatalf("cancel failed: %v", err)
	}

	job := awaitTerminal(t, supervisor, id)
	if job.Status != StatusCancelled {
		t.Fatalf("expected cancelled job, got %s", job.Status)
	}

	service.mu.Lock()
	defer service.mu.Unlock()
	if len(service.cancelled) != 1 || service.cancelled[0] != "remote-1" {
		t.Fatalf("expected remote cancellation, got %v", service.cancelled)
	}
}

func TestServiceFailureTerminatesJob(t *testing.T) {
	service := &stubService{
		snapshots: []StatusSnapshot{
			{Status: StatusRunning},
			{Status: StatusFailed, Error: "search backend unavailable"},
		},
	}
	supervisor := NewSupervisor(service, WithPollInterval(5*time.Millisecond))
	defer supervisor.Close()

	id, _ := supervisor.Submit(context.Background(), Request{Query: "doomed"})
	job := awaitTerminal(t, supervisor, id)

	if job.Status != StatusFailed {
		t.Fatalf("expected failed job, got %s", job.Status)
	}
	if job.Err == nil || job.Err.Error() != "search backend unavailable" {
		t.Fatalf("expected service error to surface, got %v", job.Err)
	}
}

func TestTransientPollErrorsDoNotTerminateJob(t *testing.T) {
	service := &stubService{
		statusErr: []error{
			fmt.Errorf("connection reset"),
			fmt.Errorf("status 503"),
		},
		snapshots: []StatusSnapshot{{Status: StatusCompleted}},
		result:    Result{Answer: "recovered"},
	}
	supervisor := NewSupervisor(service, WithPollInterval(5*time.Millisecond))
	defer supervisor.Close()

	id, _ := supervisor.Submit(context.Background(), Request{Query: "flaky"})
	job := awaitTerminal(t, supervisor, id)

	if job.Status != StatusCompleted || job.Answer != "recovered" {
		t.Fatalf("expected completion despite transient errors, got %+v", job)
	}
}

func TestIndependentJobsDoNotBlockEachOther(t *testing.T) {
	slow := &stubService{} // never completes
	fast := &stubService{
		snapshots: []StatusSnapshot{{Status: StatusCompleted}},
		result:    Result{Answer: "quick"},
	}

	slowSupervisor := NewSupervisor(slow, WithPollInterval(10*time.Millisecond))
	defer slowSupervisor.Close()
	fastSupervisor := NewSupervisor(fast, WithPollInterval(10*time.Millisecond))
	defer fastSupervisor.Close()

	slowID, _ := slowSupervisor.Submit(context.Background(), Request{Query: "slow"})
	fastID, _ := fastSupervisor.Submit(context.Background(), Request{Query: "fast"})

	job := awaitTerminal(t, fastSupervisor, fastID)
	if job.Status != StatusCompleted {
		t.Fatalf("fast job blocked, got %s", job.Status)
	}

	if slowJob, _ := slowSupervisor.Job(slowID); slowJob.Status.IsTerminal() {
		t.Fatalf("slow job should still be polling")
	}
}
