package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Chicken/VenaaRauhassa/internal/metrics"
)

func TestGetJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		assert.Equal(t, userAgent, r.Header.Get("User-Agent"))
		assert.Equal(t, "trace", r.Header.Get("X-Trace"))
		fmt.Fprint(w, `{"ok":true}`)
	}))
	defer server.Close()

	m := metrics.New(prometheus.NewRegistry())
	client := NewClient(5*time.Second, m)

	body, err := client.GetJSON(context.Background(), "test", server.URL, map[string]string{"X-Trace": "trace"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok":true}`, string(body))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ExternalAPIRequests.WithLabelValues("test", "GET", "200")))
}

func TestPostJSONErrorIsSanitized(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var got map[string]string
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		assert.Equal(t, "hunter22", got["password"], "the real payload is sent")

		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error":"nope"}`)
	}))
	defer server.Close()

	m := metrics.New(prometheus.NewRegistry())
	client := NewClient(5*time.Second, m)

	_, err := client.PostJSON(context.Background(), "vr", server.URL, map[string]string{
		"username": "user",
		"password": "hunter22",
	}, map[string]string{"aste-apikey": "secret-key", "X-Other": "visible"})
	require.Error(t, err)

	var reqErr *RequestError
	require.True(t, errors.As(err, &reqErr))
	assert.Equal(t, http.StatusUnauthorized, reqErr.StatusCode)
	assert.Equal(t, http.StatusUnauthorized, StatusCode(err))
	assert.Equal(t, "hu...22", reqErr.RequestBody["password"])
	assert.Equal(t, "user", reqErr.RequestBody["username"])
	assert.Equal(t, "se...ey", reqErr.RequestHeaders["aste-apikey"])
	assert.Equal(t, "visible", reqErr.RequestHeaders["X-Other"])
	assert.JSONEq(t, `{"error":"nope"}`, string(reqErr.ResponseBody))
	assert.NotContains(t, err.Error(), "hunter22")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.ExternalAPIRequests.WithLabelValues("vr", "POST", "401")))
}

func TestSendNetworkError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	m := metrics.New(prometheus.NewRegistry())
	_, err := NewClient(time.Second, m).GetJSON(context.Background(), "test", server.URL, nil)
	require.Error(t, err)
	assert.Equal(t, 0, StatusCode(err))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ExternalAPIRequests.WithLabelValues("test", "GET", "error")))
}

func TestSendFollowsRedirects(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/start", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/done?link=abc", http.StatusFound)
	})
	mux.HandleFunc("/done", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "ok")
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	res, err := NewClient(5*time.Second, nil).Send(context.Background(), "test", http.MethodGet, server.URL+"/start", nil, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "/done", res.FinalURL.Path)
	assert.Equal(t, "abc", res.FinalURL.Query().Get("link"))
}

func TestSanitize(t *testing.T) {
	assert.Equal(t, "...", Sanitize(""))
	assert.Equal(t, "...", Sanitize("abcd"))
	assert.Equal(t, "ab...fg", Sanitize("abcdefg"))

	assert.Equal(t, map[string]any{"refreshToken": "to...en", "a": "b"},
		sanitizeBody(url.Values{"refreshToken": {"tok-token"}, "a": {"b"}}))
	assert.Nil(t, sanitizeBody(nil))
}
