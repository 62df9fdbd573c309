// Package scheduler owns the render job lifecycle: a bounded FIFO
// queue, an in-memory job registry, and a fixed pool of workers that
// drain the queue. One Scheduler value is constructed at startup and
// shared by the HTTP layer, the websocket hub, and the retention
// sweeper.
package scheduler

import (
	"context"
	"errors"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/clipforge/api/internal/model"
)

// ErrQueueFull is returned by Submit when queued plus processing jobs
// have reached the configured queue size.
var ErrQueueFull = errors.New("job queue is full")

// ProgressFunc reports coarse progress (0-100) for a running job.
type ProgressFunc func(progress int)

// Result is what a successful run produces.
type Result struct {
	OutputPath      string
	FileSizeBytes   int64
	DurationSeconds float64
}

// Runner executes one job. A returned error fails the job; the error's
// pipeline code (see render.CodeOf) is recorded on it.
type Runner interface {
	Run(ctx context.Context, job model.Job, report ProgressFunc) (Result, error)
}

// ErrorCoder extracts a stable error code from a runner error. Wired in
// by the caller so the scheduler stays ignorant of pipeline internals.
type ErrorCoder func(err error) string

// Options configure a Scheduler.
type Options struct {
	Workers   int
	QueueSize int
	Runner    Runner
	ErrCode   ErrorCoder

	// OnTerminal fires after a job reaches completed or failed, outside
	// the registry lock. Used for webhooks and websocket broadcasts.
	OnTerminal func(job model.Job)

	// OnProgress fires on every progress or status change, outside the
	// registry lock.
	OnProgress func(job model.Job)
}

// Scheduler is the single in-process render queue.
type Scheduler struct {
	mu      sync.Mutex
	jobs    map[string]*model.Job
	pending chan string

	workers int
	maxSize int
	runner  Runner
	errCode ErrorCoder
	stopped bool

	onTerminal func(model.Job)
	onProgress func(model.Job)

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New builds a stopped Scheduler. Call Start to launch the workers.
func New(opts Options) *Scheduler {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = 1
	}
	if opts.ErrCode == nil {
		opts.ErrCode = func(error) string { return "SERVER_ERROR" }
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		jobs:       make(map[string]*model.Job),
		pending:    make(chan string, opts.QueueSize),
		workers:    opts.Workers,
		maxSize:    opts.QueueSize,
		runner:     opts.Runner,
		errCode:    opts.ErrCode,
		onTerminal: opts.OnTerminal,
		onProgress: opts.OnProgress,
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Start launches the worker pool.
func (s *Scheduler) Start() {
	for i := 0; i < s.workers; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}
	log.Printf("Scheduler started: %d workers, queue size %d", s.workers, s.maxSize)
}

// Stop cancels running jobs, fails everything still queued, and waits
// for the workers to exit.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	s.mu.Unlock()

	s.cancel()
	close(s.pending)
	s.wg.Wait()

	s.mu.Lock()
	var drained []model.Job
	for _, j := range s.jobs {
		if j.Status == model.JobStatusQueued {
			now := time.Now().UTC()
			j.Status = model.JobStatusFailed
			j.CompletedAt = &now
			j.Error = &model.JobError{Code: "SERVER_ERROR", Message: "server shutting down"}
			drained = append(drained, *j)
		}
	}
	s.mu.Unlock()

	for _, j := range drained {
		s.notifyTerminal(j)
	}
	log.Printf("Scheduler stopped")
}

// Submit admits a validated request. Capacity counts queued plus
// processing jobs; terminal jobs never block admission. The returned
// job snapshot has status queued.
func (s *Scheduler) Submit(req model.RenderRequest) (model.Job, error) {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return model.Job{}, errors.New("scheduler is stopped")
	}
	active := 0
	for _, j := range s.jobs {
		if !j.Status.Terminal() {
			active++
		}
	}
	if active >= s.maxSize {
		s.mu.Unlock()
		return model.Job{}, ErrQueueFull
	}

	job := &model.Job{
		ID:         uuid.New().String(),
		TemplateID: req.TemplateID,
		Status:     model.JobStatusQueued,
		CreatedAt:  time.Now().UTC(),
		Request:    req,
	}
	s.jobs[job.ID] = job
	snapshot := *job

	// Buffered to maxSize, and admission is bounded by the same number,
	// so this send never blocks. Sent under the lock so Stop cannot
	// close the channel between the capacity check and the send.
	s.pending <- job.ID
	s.mu.Unlock()

	log.Printf("Job %s queued (template %s)", job.ID, job.TemplateID)
	return snapshot, nil
}

// Get returns a copy of the job, if known.
func (s *Scheduler) Get(id string) (model.Job, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[id]
	if !ok {
		return model.Job{}, false
	}
	return *j, true
}

// Has reports whether the job id is still registered.
func (s *Scheduler) Has(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.jobs[id]
	return ok
}

// List returns copies of all jobs, newest first.
func (s *Scheduler) List() []model.Job {
	s.mu.Lock()
	out := make([]model.Job, 0, len(s.jobs))
	for _, j := range s.jobs {
		out = append(out, *j)
	}
	s.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

// Stats aggregates job counts by status.
func (s *Scheduler) Stats() model.QueueStats {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := model.QueueStats{
		TotalJobs:    len(s.jobs),
		MaxWorkers:   s.workers,
		MaxQueueSize: s.maxSize,
	}
	for _, j := range s.jobs {
		switch j.Status {
		case model.JobStatusQueued:
			stats.Queued++
		case model.JobStatusProcessing:
			stats.Processing++
		case model.JobStatusCompleted:
			stats.Completed++
		case model.JobStatusFailed:
			stats.Failed++
		}
	}
	return stats
}

// ExpireTerminal removes terminal jobs whose completion time is before
// the cutoff and returns the removed snapshots. Used by the retention
// sweeper.
func (s *Scheduler) ExpireTerminal(cutoff time.Time) []model.Job {
	s.mu.Lock()
	defer s.mu.Unlock()

	var expired []model.Job
	for id, j := range s.jobs {
		if j.Status.Terminal() && j.CompletedAt != nil && j.CompletedAt.Before(cutoff) {
			expired = append(expired, *j)
			delete(s.jobs, id)
		}
	}
	return expired
}

func (s *Scheduler) worker(n int) {
	defer s.wg.Done()
	for id := range s.pending {
		if s.ctx.Err() != nil {
			return
		}
		s.runOne(n, id)
	}
}

func (s *Scheduler) runOne(worker int, id string) {
	job, ok := s.markProcessing(id)
	if !ok {
		return
	}
	log.Printf("Worker %d processing job %s", worker, id)

	report := func(progress int) {
		s.setProgress(id, progress)
	}

	res, err := s.runner.Run(s.ctx, job, report)
	if err != nil {
		code := s.errCode(err)
		log.Printf("Job %s failed: %s: %v", id, code, err)
		s.markFailed(id, code, err.Error())
		return
	}
	log.Printf("Job %s completed: %s (%d bytes)", id, res.OutputPath, res.FileSizeBytes)
	s.markCompleted(id, res)
}

func (s *Scheduler) markProcessing(id string) (model.Job, bool) {
	s.mu.Lock()
	j, ok := s.jobs[id]
	if !ok || j.Status != model.JobStatusQueued {
		s.mu.Unlock()
		return model.Job{}, false
	}
	now := time.Now().UTC()
	j.Status = model.JobStatusProcessing
	j.StartedAt = &now
	j.Progress = 0
	snapshot := *j
	s.mu.Unlock()

	s.notifyProgress(snapshot)
	return snapshot, true
}

func (s *Scheduler) setProgress(id string, progress int) {
	if progress < 0 {
		progress = 0
	}
	if progress > 100 {
		progress = 100
	}
	s.mu.Lock()
	j, ok := s.jobs[id]
	if !ok || j.Status != model.JobStatusProcessing {
		s.mu.Unlock()
		return
	}
	j.Progress = progress
	snapshot := *j
	s.mu.Unlock()

	s.notifyProgress(snapshot)
}

func (s *Scheduler) markCompleted(id string, res Result) {
	s.mu.Lock()
	j, ok := s.jobs[id]
	if !ok {
		s.mu.Unlock()
		return
	}
	now := time.Now().UTC()
	j.Status = model.JobStatusCompleted
	j.Progress = 100
	j.CompletedAt = &now
	j.OutputPath = res.OutputPath
	j.DownloadURL = "/download/" + id
	j.FileSizeBytes = res.FileSizeBytes
	j.DurationSeconds = res.DurationSeconds
	snapshot := *j
	s.mu.Unlock()

	s.notifyTerminal(snapshot)
}

func (s *Scheduler) markFailed(id, code, message string) {
	s.mu.Lock()
	j, ok := s.jobs[id]
	if !ok {
		s.mu.Unlock()
		return
	}
	now := time.Now().UTC()
	j.Status = model.JobStatusFailed
	j.CompletedAt = &now
	j.Error = &model.JobError{Code: code, Message: message}
	snapshot := *j
	s.mu.Unlock()

	s.notifyTerminal(snapshot)
}

func (s *Scheduler) notifyTerminal(job model.Job) {
	if s.onProgress != nil {
		s.onProgress(job)
	}
	if s.onTerminal != nil {
		s.onTerminal(job)
	}
}

func (s *Scheduler) notifyProgress(job model.Job) {
	if s.onProgress != nil {
		s.onProgress(job)
	}
}
