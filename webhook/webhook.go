// Package webhook posts signed job notifications to caller-supplied URLs.
package webhook

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// SignatureHeader carries "sha256=<hex HMAC of the body>" when a secret is set.
const SignatureHeader = "X-Webkeep-Signature"

// EventBatchCompleted is sent once a batch archive job finishes.
const EventBatchCompleted = "batch.completed"

// Event is the payload sent to webhook endpoints.
type Event struct {
	Type      string `json:"type"`
	JobID     string `json:"job_id"`
	Timestamp int64  `json:"timestamp"`
	Data      any    `json:"data"`
}

// DefaultRetryDelays is the wait before each delivery attempt.
var DefaultRetryDelays = []time.Duration{0, 1 * time.Second, 5 * time.Second, 30 * time.Second}

// Notifier delivers events. The zero value is not usable; call New.
type Notifier struct {
	client *http.Client
	delays []time.Duration
}

// New returns a Notifier with a 10s per-attempt timeout. A nil delays
// slice uses DefaultRetryDelays.
func New(delays []time.Duration) *Notifier {
	if delays == nil {
		delays = DefaultRetryDelays
	}
	return &Notifier{
		client: &http.Client{Timeout: 10 * time.Second},
		delays: delays,
	}
}

// Sign returns the signature header value for body.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

// Deliver sends event once. Any status >= 400 is an error.
func (n *Notifier) Deliver(ctx context.Context, url, secret string, event *Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("webhook: marshal event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("webhook: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "Webkeep-Webhook/1.0")
	if secret != "" {
		req.Header.Set(SignatureHeader, Sign(secret, body))
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook: deliver: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook: endpoint returned status %d", resp.StatusCode)
	}
	return nil
}

// DeliverWithRetry tries each configured delay in turn and reports whether
// any attempt succeeded. It stops early when ctx is cancelled.
func (n *Notifier) DeliverWithRetry(ctx context.Context, url, secret string, event *Event) bool {
	log := slog.With("url", url, "event", event.Type, "job_id", event.JobID)
	for attempt, delay := range n.delays {
		if delay > 0 {
			select {
			case <-ctx.Done():
				return false
			case <-time.After(delay):
			}
		}
		if err := n.Deliver(ctx, url, secret, event); err != nil {
			log.Warn("webhook delivery failed", "attempt", attempt+1, "error", err)
			continue
		}
		log.Info("webhook delivered", "attempt", attempt+1)
		return true
	}
	log.Error("webhook delivery exhausted all retries")
	return false
}

// DeliverAsync runs DeliverWithRetry in its own goroutine.
func (n *Notifier) DeliverAsync(url, secret string, event *Event) {
	go n.DeliverWithRetry(context.Background(), url, secret, event)
}
