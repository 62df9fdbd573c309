package webhook

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/clipforge/api/internal/model"
)

func completedJob() model.Job {
	now := time.Now().UTC()
	return model.Job{
		ID:              "job-1",
		Status:          model.JobStatusCompleted,
		Progress:        100,
		CompletedAt:     &now,
		DownloadURL:     "/download/job-1",
		FileSizeBytes:   2048,
		DurationSeconds: 56,
	}
}

func TestNotify_CompletedPayload(t *testing.T) {
	var got Payload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("bad request: %s %s", r.Method, r.Header.Get("Content-Type"))
		}
		json.NewDecoder(r.Body).Decode(&got)
	}))
	defer srv.Close()

	n := NewWithClient(srv.Client(), RetryPolicy{MaxAttempts: 1})
	if err := n.Notify(context.Background(), srv.URL, completedJob()); err != nil {
		t.Fatalf("Notify: %v", err)
	}

	if got.Event != EventCompleted || got.Status != "completed" {
		t.Errorf("event/status = %s/%s", got.Event, got.Status)
	}
	if got.DownloadURL != "/download/job-1" || got.FileSizeBytes != 2048 || got.DurationSeconds != 56 {
		t.Errorf("result fields: %+v", got)
	}
	if got.Error != nil {
		t.Error("completed payload carries an error")
	}
}

func TestNotify_FailedPayload(t *testing.T) {
	var got Payload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&got)
	}))
	defer srv.Close()

	job := model.Job{
		ID:     "job-2",
		Status: model.JobStatusFailed,
		Error:  &model.JobError{Code: "FFMPEG_ERROR", Message: "encode blew up"},
	}
	n := NewWithClient(srv.Client(), RetryPolicy{MaxAttempts: 1})
	if err := n.Notify(context.Background(), srv.URL, job); err != nil {
		t.Fatalf("Notify: %v", err)
	}

	if got.Event != EventFailed {
		t.Errorf("event = %s", got.Event)
	}
	if got.Error == nil || got.Error.Code != "FFMPEG_ERROR" {
		t.Errorf("error payload: %+v", got.Error)
	}
	if got.DownloadURL != "" {
		t.Error("failed payload carries a download url")
	}
}

func TestNotify_RetriesThenSucceeds(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	defer srv.Close()

	n := NewWithClient(srv.Client(), RetryPolicy{MaxAttempts: 4, Backoff: time.Millisecond})
	if err := n.Notify(context.Background(), srv.URL, completedJob()); err != nil {
		t.Fatalf("Notify: %v", err)
	}
	if got := atomic.LoadInt32(&calls); got != 3 {
		t.Errorf("calls = %d, want 3", got)
	}
}

func TestNotify_ExhaustsAttempts(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	n := NewWithClient(srv.Client(), RetryPolicy{MaxAttempts: 3, Backoff: time.Millisecond})
	if err := n.Notify(context.Background(), srv.URL, completedJob()); err == nil {
		t.Fatal("expected delivery failure")
	}
	if got := atomic.LoadInt32(&calls); got != 3 {
		t.Errorf("calls = %d, want exactly MaxAttempts", got)
	}
}

func TestRetryPolicyBudget(t *testing.T) {
	p := RetryPolicy{MaxAttempts: 4, PerAttemptTimeout: 10 * time.Second, Backoff: 2 * time.Second}
	// Four 10s attempts plus waits of 2, 4, and 6 seconds.
	if got := p.Budget(); got != 52*time.Second {
		t.Errorf("Budget() = %v, want 52s", got)
	}
	if got := (RetryPolicy{PerAttemptTimeout: 5 * time.Second}).Budget(); got != 5*time.Second {
		t.Errorf("single-attempt Budget() = %v, want 5s", got)
	}
}

func TestNotify_ContextCancelStopsRetries(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	n := NewWithClient(srv.Client(), RetryPolicy{MaxAttempts: 5, Backoff: time.Hour})
	err := n.Notify(ctx, srv.URL, completedJob())
	if err == nil {
		t.Fatal("expected error from canceled context")
	}
}
