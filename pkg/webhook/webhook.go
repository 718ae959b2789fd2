// Package webhook delivers batch-completion notifications over HTTP.
package webhook

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// Event is the notification payload sent when a batch run completes.
type Event struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"` // "patterns.run.completed"
	Source     string    `json:"source"`
	Time       time.Time `json:"time"`
	RunID      string    `json:"runId"`
	Total      int       `json:"total"`
	Successful int       `json:"successful"`
	Failed     int       `json:"failed"`
	Elapsed    float64   `json:"elapsedSeconds"`
}

// NewEvent builds a run-completed event for the given summary counts.
func NewEvent(runID string, total, successful, failed int, elapsed time.Duration) *Event {
	return &Event{
		ID:         uuid.NewString(),
		Type:       "patterns.run.completed",
		Source:     "ogc-tester",
		Time:       time.Now().UTC(),
		RunID:      runID,
		Total:      total,
		Successful: successful,
		Failed:     failed,
		Elapsed:    elapsed.Seconds(),
	}
}

// Sender posts events over HTTP.
type Sender struct {
	client *http.Client
}

// NewSender creates a Sender with standard transport settings.
func NewSender(timeout time.Duration) *Sender {
	return &Sender{
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

// SendOptions controls how an event is sent.
type SendOptions struct {
	SigningKey string // HMAC key; empty disables signing
}

// Send delivers an event via HTTP POST.
func (s *Sender) Send(ctx context.Context, url string, event *Event, opts SendOptions) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Event-Type", event.Type)
	req.Header.Set("X-Event-Id", event.ID)

	if opts.SigningKey != "" {
		req.Header.Set("X-Signature-256", generateSignature(body, opts.SigningKey))
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	return &HTTPError{StatusCode: resp.StatusCode}
}

// generateSignature generates an HMAC-SHA256 signature.
func generateSignature(payload []byte, key string) string {
	mac := hmac.New(sha256.New, []byte(key))
	mac.Write(payload)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

// HTTPError represents an HTTP error response.
type HTTPError struct {
	StatusCode int
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d", e.StatusCode)
}

// IsClientError returns true for 4xx errors (shouldn't retry).
func IsClientError(err error) bool {
	if he, ok := err.(*HTTPError); ok {
		return he.StatusCode >= 400 && he.StatusCode < 500
	}
	return false
}
