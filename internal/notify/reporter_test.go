package notify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWebhookReporter(t *testing.T) {
	assert.IsType(t, LogReporter{}, NewWebhookReporter(""))
	assert.IsType(t, &WebhookReporter{}, NewWebhookReporter("https://discord.example/webhook"))
}

func TestWebhookReporterReport(t *testing.T) {
	received := make(chan webhookMessage, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var msg webhookMessage
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&msg))
		w.WriteHeader(http.StatusNoContent)
		received <- msg
	}))
	defer server.Close()

	reporter := NewWebhookReporter(server.URL)
	reporter.Report(context.Background(), map[string]string{
		"train":          "45",
		"date":           "2026-10-15",
		"departureTrack": "3",
	}, errors.New("boom"))

	select {
	case got := <-received:
		assert.Equal(t, "Date: 2026-10-15\nDeparture Track: 3\nTrain: 45\nError: boom", got.Content)
	case <-time.After(2 * time.Second):
		t.Fatal("report was not delivered")
	}
}

func TestWebhookReporterReportDoesNotBlock(t *testing.T) {
	release := make(chan struct{})
	var releaseOnce sync.Once
	unblock := func() { releaseOnce.Do(func() { close(release) }) }

	delivered := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
		w.WriteHeader(http.StatusNoContent)
		close(delivered)
	}))
	defer server.Close()
	defer unblock()

	ctx, cancel := context.WithCancel(context.Background())
	start := time.Now()
	NewWebhookReporter(server.URL).Report(ctx, map[string]string{"message": "slow"}, errors.New("boom"))
	cancel()
	assert.Less(t, time.Since(start), 500*time.Millisecond)

	unblock()
	select {
	case <-delivered:
	case <-time.After(2 * time.Second):
		t.Fatal("report was dropped when the caller's context ended")
	}
}

func TestWebhookReporterSendFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	reporter := NewWebhookReporter(server.URL).(*WebhookReporter)
	err := reporter.Send(context.Background(), "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")

	// Report swallows delivery failures
	reporter.Report(context.Background(), nil, errors.New("boom"))
}

func TestCamelToTitle(t *testing.T) {
	assert.Equal(t, "Message", camelToTitle("message"))
	assert.Equal(t, "Train Number", camelToTitle("trainNumber"))
	assert.Equal(t, "", camelToTitle(""))
}
