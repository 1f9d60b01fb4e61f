package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Chicken/VenaaRauhassa/internal/metrics"
)

const userAgent = "VenaaRauhassa (https://github.com/Chicken/VenaaRauhassa)"

var sanitizedKeywords = []string{"aste-apikey", "x-jwt-token", "password", "refreshtoken"}

// Client performs timed and counted requests against third-party APIs
type Client struct {
	http    *http.Client
	metrics *metrics.Metrics
}

// Response is a fully read upstream response
type Response struct {
	StatusCode int
	Body       []byte
	// FinalURL is the URL of the last request after redirects
	FinalURL *url.URL
}

// NewClient creates a client whose requests time out after timeout
func NewClient(timeout time.Duration, m *metrics.Metrics) *Client {
	return &Client{
		http:    &http.Client{Timeout: timeout},
		metrics: m,
	}
}

// WithJar returns a copy of the client that keeps cookies in jar
func (c *Client) WithJar(jar http.CookieJar) *Client {
	hc := *c.http
	hc.Jar = jar
	return &Client{http: &hc, metrics: c.metrics}
}

// GetJSON issues a GET and returns the raw body of a 2xx response
func (c *Client) GetJSON(ctx context.Context, vendor, rawURL string, headers map[string]string) ([]byte, error) {
	h := withDefault(headers, "Accept", "application/json")
	res, err := c.Send(ctx, vendor, http.MethodGet, rawURL, nil, nil, h)
	if err != nil {
		return nil, err
	}
	return res.Body, nil
}

// PostJSON issues a POST with body encoded as JSON and returns the raw body of a 2xx response
func (c *Client) PostJSON(ctx context.Context, vendor, rawURL string, body any, headers map[string]string) ([]byte, error) {
	encoded, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}
	h := withDefault(headers, "Content-Type", "application/json")
	h = withDefault(h, "Accept", "application/json")
	res, err := c.Send(ctx, vendor, http.MethodPost, rawURL, encoded, body, h)
	if err != nil {
		return nil, err
	}
	return res.Body, nil
}

// Send issues a request and reads the whole response.
// Non-2xx responses are returned as *RequestError together with nil Response.
// logBody is the value recorded (sanitized) on errors in place of the raw payload.
func (c *Client) Send(ctx context.Context, vendor, method, rawURL string, payload []byte, logBody any, headers map[string]string) (*Response, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, reader)
	if err != nil {
		return nil, c.wrap(method, rawURL, 0, logBody, headers, nil, err)
	}
	req.Header.Set("User-Agent", userAgent)
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.metrics.ObserveRequest(vendor, method, 0, time.Since(start))
		return nil, c.wrap(method, rawURL, 0, logBody, headers, nil, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	c.metrics.ObserveRequest(vendor, method, resp.StatusCode, time.Since(start))
	if err != nil {
		return nil, c.wrap(method, rawURL, resp.StatusCode, logBody, headers, nil, fmt.Errorf("failed to read body: %w", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, c.wrap(method, rawURL, resp.StatusCode, logBody, headers, body,
			fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Body:       body,
		FinalURL:   resp.Request.URL,
	}, nil
}

func (c *Client) wrap(method, rawURL string, status int, body any, headers map[string]string, respBody []byte, err error) error {
	return &RequestError{
		Method:         method,
		URL:            rawURL,
		StatusCode:     status,
		RequestBody:    sanitizeBody(body),
		RequestHeaders: sanitizeHeaders(headers),
		ResponseBody:   respBody,
		Err:            err,
	}
}

func withDefault(headers map[string]string, key, value string) map[string]string {
	out := make(map[string]string, len(headers)+1)
	for k, v := range headers {
		out[k] = v
	}
	if _, ok := out[key]; !ok {
		out[key] = value
	}
	return out
}

// Sanitize masks a secret down to its first and last two characters
func Sanitize(value string) string {
	if len(value) <= 4 {
		return "..."
	}
	return value[:2] + "..." + value[len(value)-2:]
}

func isSensitive(key string) bool {
	key = strings.ToLower(key)
	for _, k := range sanitizedKeywords {
		if k == key {
			return true
		}
	}
	return false
}

func sanitizeHeaders(headers map[string]string) map[string]string {
	if headers == nil {
		return nil
	}
	out := make(map[string]string, len(headers))
	for k, v := range headers {
		if isSensitive(k) {
			v = Sanitize(v)
		}
		out[k] = v
	}
	return out
}

func sanitizeBody(body any) map[string]any {
	if body == nil {
		return nil
	}

	var fields map[string]any
	switch b := body.(type) {
	case map[string]any:
		fields = b
	case url.Values:
		fields = make(map[string]any, len(b))
		for k := range b {
			fields[k] = b.Get(k)
		}
	default:
		encoded, err := json.Marshal(body)
		if err != nil || json.Unmarshal(encoded, &fields) != nil {
			return nil
		}
	}

	out := make(map[string]any, len(fields))
	for k, v := range fields {
		if isSensitive(k) {
			v = Sanitize(fmt.Sprint(v))
		}
		out[k] = v
	}
	return out
}
