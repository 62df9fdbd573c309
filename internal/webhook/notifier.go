// Package webhook delivers terminal job notifications to caller-supplied
// URLs. Delivery is best effort: a bounded number of attempts with
// linear backoff, then the failure is logged and dropped.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/clipforge/api/internal/model"
)

// Event names carried in the payload.
const (
	EventCompleted = "render.completed"
	EventFailed    = "render.failed"
)

// RetryPolicy bounds delivery. MaxAttempts counts the first try, so a
// policy of retries=3 means MaxAttempts=4. Backoff grows linearly:
// attempt n waits n*Backoff before retrying.
type RetryPolicy struct {
	MaxAttempts       int
	PerAttemptTimeout time.Duration
	Backoff           time.Duration
}

// Budget is an upper bound on how long a full delivery can take: every
// attempt's timeout plus the backoff waits between attempts. Callers
// deadline the outer context with it so retries are never cut short.
func (p RetryPolicy) Budget() time.Duration {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	total := time.Duration(attempts) * p.PerAttemptTimeout
	for i := 1; i < attempts; i++ {
		total += time.Duration(i) * p.Backoff
	}
	return total
}

// Payload is the JSON body POSTed to the webhook URL.
type Payload struct {
	Event     string `json:"event"`
	JobID     string `json:"job_id"`
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`

	DownloadURL     string  `json:"download_url,omitempty"`
	FileSizeBytes   int64   `json:"file_size_bytes,omitempty"`
	DurationSeconds float64 `json:"duration_seconds,omitempty"`

	Error *model.JobError `json:"error,omitempty"`
}

// Notifier posts job payloads.
type Notifier struct {
	client *http.Client
	policy RetryPolicy
}

// New builds a notifier. The client timeout is the per-attempt bound.
func New(policy RetryPolicy) *Notifier {
	if policy.MaxAttempts <= 0 {
		policy.MaxAttempts = 1
	}
	return &Notifier{
		client: &http.Client{Timeout: policy.PerAttemptTimeout},
		policy: policy,
	}
}

// NewWithClient is the injectable constructor used by tests.
func NewWithClient(client *http.Client, policy RetryPolicy) *Notifier {
	if policy.MaxAttempts <= 0 {
		policy.MaxAttempts = 1
	}
	return &Notifier{client: client, policy: policy}
}

// PayloadFor builds the delivery payload for a terminal job.
func PayloadFor(job model.Job) Payload {
	p := Payload{
		JobID:     job.ID,
		Status:    string(job.Status),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	if job.Status == model.JobStatusCompleted {
		p.Event = EventCompleted
		p.DownloadURL = job.DownloadURL
		p.FileSizeBytes = job.FileSizeBytes
		p.DurationSeconds = job.DurationSeconds
	} else {
		p.Event = EventFailed
		p.Error = job.Error
	}
	return p
}

// Notify delivers the job's terminal payload to url, retrying per the
// policy. Returns the last delivery error, nil on success.
func (n *Notifier) Notify(ctx context.Context, url string, job model.Job) error {
	body, err := json.Marshal(PayloadFor(job))
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}

	var lastErr error
	for attempt := 1; attempt <= n.policy.MaxAttempts; attempt++ {
		if attempt > 1 {
			wait := time.Duration(attempt-1) * n.policy.Backoff
			select {
			case <-time.After(wait):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		lastErr = n.post(ctx, url, body)
		if lastErr == nil {
			log.Printf("Webhook delivered for job %s (attempt %d)", job.ID, attempt)
			return nil
		}
		log.Printf("Webhook attempt %d/%d for job %s failed: %v",
			attempt, n.policy.MaxAttempts, job.ID, lastErr)
	}
	return fmt.Errorf("webhook delivery failed after %d attempts: %w", n.policy.MaxAttempts, lastErr)
}

func (n *Notifier) post(ctx context.Context, url string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return nil
}
