package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sort"
	"strings"
	"time"
	"unicode"
)

// Reporter receives failures that should reach a human.
// Implementations must not block the caller for long and never panic.
type Reporter interface {
	Report(ctx context.Context, fields map[string]string, err error)
}

// Sender delivers a raw message
type Sender interface {
	Send(ctx context.Context, content string) error
}

// LogReporter writes reports to the standard logger
type LogReporter struct{}

func (LogReporter) Report(_ context.Context, fields map[string]string, err error) {
	log.Printf("Reported error: %s | Error: %v", formatFields(fields, " | "), err)
}

// WebhookReporter posts reports to a Discord-compatible webhook
type WebhookReporter struct {
	URL    string
	Client *http.Client
}

// NewWebhookReporter returns a reporter for url, or a LogReporter when url is empty
func NewWebhookReporter(url string) Reporter {
	if url == "" {
		return LogReporter{}
	}
	return &WebhookReporter{
		URL:    url,
		Client: &http.Client{Timeout: 5 * time.Second},
	}
}

type webhookMessage struct {
	Content string `json:"content"`
}

// Report posts in the background and returns immediately.
// Delivery is bounded by the client timeout, not by ctx.
func (r *WebhookReporter) Report(ctx context.Context, fields map[string]string, err error) {
	content := formatFields(fields, "\n")
	if err != nil {
		content += "\nError: " + err.Error()
	}
	sendCtx := context.WithoutCancel(ctx)
	go func() {
		if sendErr := r.Send(sendCtx, content); sendErr != nil {
			log.Printf("Failed to deliver error report: %v (original error: %v)", sendErr, err)
		}
	}()
}

// Send posts a raw message to the webhook
func (r *WebhookReporter) Send(ctx context.Context, content string) error {
	body, err := json.Marshal(webhookMessage{Content: content})
	if err != nil {
		return fmt.Errorf("failed to marshal webhook message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.URL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook responded with status %d", resp.StatusCode)
	}
	return nil
}

// formatFields renders fields as "Title Case Key: value" lines in key order
func formatFields(fields map[string]string, sep string) string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	lines := make([]string, 0, len(keys))
	for _, k := range keys {
		lines = append(lines, fmt.Sprintf("%s: %s", camelToTitle(k), fields[k]))
	}
	return strings.Join(lines, sep)
}

func camelToTitle(s string) string {
	var b strings.Builder
	for i, r := range s {
		if i == 0 {
			b.WriteRune(unicode.ToUpper(r))
			continue
		}
		if unicode.IsUpper(r) {
			b.WriteRune(' ')
		}
		b.WriteRune(r)
	}
	return b.String()
}
