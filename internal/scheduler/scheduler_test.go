package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/clipforge/api/internal/model"
)

// fakeRunner lets tests hold jobs in-flight and decide their outcome.
type fakeRunner struct {
	mu      sync.Mutex
	started chan string
	release chan struct{}
	fail    error
	result  Result
}

func newFakeRunner() *fakeRunner {
	return &fakeRunner{
		started: make(chan string, 16),
		release: make(chan struct{}),
		result:  Result{OutputPath: "/tmp/out.mp4", FileSizeBytes: 1024, DurationSeconds: 56},
	}
}

func (f *fakeRunner) Run(ctx context.Context, job model.Job, report ProgressFunc) (Result, error) {
	f.started <- job.ID
	report(30)
	select {
	case <-f.release:
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return Result{}, f.fail
	}
	return f.result, nil
}

func (f *fakeRunner) setFail(err error) {
	f.mu.Lock()
	f.fail = err
	f.mu.Unlock()
}

func req() model.RenderRequest {
	return model.RenderRequest{TemplateID: "fight_video_standard"}
}

func waitStatus(t *testing.T, s *Scheduler, id string, want model.JobStatus) model.Job {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if j, ok := s.Get(id); ok && j.Status == want {
			return j
		}
		time.Sleep(5 * time.Millisecond)
	}
	j, _ := s.Get(id)
	t.Fatalf("job %s never reached %s (now %s)", id, want, j.Status)
	return model.Job{}
}

func TestScheduler_CompletesJob(t *testing.T) {
	runner := newFakeRunner()
	var mu sync.Mutex
	var terminal []model.Job
	s := New(Options{
		Workers: 1, QueueSize: 4, Runner: runner,
		OnTerminal: func(j model.Job) {
			mu.Lock()
			terminal = append(terminal, j)
			mu.Unlock()
		},
	})
	s.Start()
	defer s.Stop()

	job, err := s.Submit(req())
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if job.Status != model.JobStatusQueued {
		t.Errorf("fresh job status = %s, want queued", job.Status)
	}

	<-runner.started
	waitStatus(t, s, job.ID, model.JobStatusProcessing)
	close(runner.release)

	done := waitStatus(t, s, job.ID, model.JobStatusCompleted)
	if done.Progress != 100 {
		t.Errorf("completed progress = %d, want 100", done.Progress)
	}
	if done.DownloadURL != "/download/"+job.ID {
		t.Errorf("download url = %q", done.DownloadURL)
	}
	if done.FileSizeBytes != 1024 || done.DurationSeconds != 56 {
		t.Errorf("result not recorded: %+v", done)
	}
	if done.CompletedAt == nil || done.StartedAt == nil {
		t.Error("timestamps not stamped")
	}

	mu.Lock()
	defer mu.Unlock()
	if len(terminal) != 1 || terminal[0].ID != job.ID {
		t.Errorf("terminal hook fired %d times", len(terminal))
	}
}

func TestScheduler_FailedJobRecordsCode(t *testing.T) {
	runner := newFakeRunner()
	runner.setFail(errors.New("ffmpeg exploded"))
	s := New(Options{
		Workers: 1, QueueSize: 4, Runner: runner,
		ErrCode: func(error) string { return "FFMPEG_ERROR" },
	})
	s.Start()
	defer s.Stop()

	job, err := s.Submit(req())
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	<-runner.started
	close(runner.release)

	failed := waitStatus(t, s, job.ID, model.JobStatusFailed)
	if failed.Error == nil || failed.Error.Code != "FFMPEG_ERROR" {
		t.Fatalf("error not recorded: %+v", failed.Error)
	}
	if failed.Error.Message != "ffmpeg exploded" {
		t.Errorf("error message = %q", failed.Error.Message)
	}
}

func TestScheduler_QueueFullCountsActiveOnly(t *testing.T) {
	runner := newFakeRunner()
	s := New(Options{Workers: 1, QueueSize: 2, Runner: runner})
	s.Start()
	defer s.Stop()

	j1, err := s.Submit(req())
	if err != nil {
		t.Fatalf("Submit 1: %v", err)
	}
	<-runner.started // j1 now processing
	if _, err := s.Submit(req()); err != nil {
		t.Fatalf("Submit 2: %v", err)
	}

	// queued + processing == 2 == capacity
	if _, err := s.Submit(req()); !errors.Is(err, ErrQueueFull) {
		t.Fatalf("Submit 3 = %v, want ErrQueueFull", err)
	}

	close(runner.release)
	waitStatus(t, s, j1.ID, model.JobStatusCompleted)
	<-runner.started // j2 picked up

	// Terminal jobs free capacity even while still listed.
	if _, err := s.Submit(req()); err != nil {
		t.Fatalf("Submit after completion: %v", err)
	}
}

func TestScheduler_StatsAndList(t *testing.T) {
	runner := newFakeRunner()
	s := New(Options{Workers: 1, QueueSize: 4, Runner: runner})
	s.Start()
	defer s.Stop()

	j1, _ := s.Submit(req())
	<-runner.started
	s.Submit(req())

	stats := s.Stats()
	if stats.TotalJobs != 2 || stats.Processing != 1 || stats.Queued != 1 {
		t.Errorf("stats = %+v", stats)
	}
	if stats.MaxWorkers != 1 || stats.MaxQueueSize != 4 {
		t.Errorf("limits = %+v", stats)
	}

	list := s.List()
	if len(list) != 2 {
		t.Fatalf("List() len = %d", len(list))
	}

	close(runner.release)
	waitStatus(t, s, j1.ID, model.JobStatusCompleted)
}

func TestScheduler_StopFailsQueuedJobs(t *testing.T) {
	runner := newFakeRunner()
	s := New(Options{Workers: 1, QueueSize: 4, Runner: runner})
	s.Start()

	s.Submit(req())
	<-runner.started
	queued, _ := s.Submit(req())

	s.Stop()

	j, ok := s.Get(queued.ID)
	if !ok {
		t.Fatal("queued job vanished on stop")
	}
	if j.Status != model.JobStatusFailed || j.Error == nil || j.Error.Code != "SERVER_ERROR" {
		t.Errorf("queued job after stop: status=%s err=%+v", j.Status, j.Error)
	}

	if _, err := s.Submit(req()); err == nil {
		t.Error("Submit after Stop succeeded")
	}
}

func TestScheduler_ExpireTerminal(t *testing.T) {
	runner := newFakeRunner()
	s := New(Options{Workers: 1, QueueSize: 4, Runner: runner})
	s.Start()
	defer s.Stop()

	job, _ := s.Submit(req())
	<-runner.started
	close(runner.release)
	waitStatus(t, s, job.ID, model.JobStatusCompleted)

	if got := s.ExpireTerminal(time.Now().Add(-time.Hour)); len(got) != 0 {
		t.Errorf("fresh job expired: %v", got)
	}
	expired := s.ExpireTerminal(time.Now().Add(time.Hour))
	if len(expired) != 1 || expired[0].ID != job.ID {
		t.Fatalf("expired = %+v", expired)
	}
	if s.Has(job.ID) {
		t.Error("expired job still registered")
	}
}
