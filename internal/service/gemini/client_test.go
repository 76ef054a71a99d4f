package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/janisto/gemini-chat-relay/internal/platform/metrics"
)

type recordedRequest struct {
	path   string
	apiKey string
	body   map[string]any
}

// fakeGemini stands in for the generative language API.
func fakeGemini(t *testing.T, status int, payload string) (*httptest.Server, *[]recordedRequest) {
	t.Helper()
	var (
		mu   sync.Mutex
		reqs []recordedRequest
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		var body map[string]any
		_ = json.Unmarshal(raw, &body)
		mu.Lock()
		reqs = append(reqs, recordedRequest{
			path:   r.URL.Path,
			apiKey: r.Header.Get("x-goog-api-key"),
			body:   body,
		})
		mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, payload)
	}))
	t.Cleanup(srv.Close)
	return srv, &reqs
}

func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	c, err := NewClient(context.Background(), "test-key", WithBaseURL(baseURL), WithModel("gemini-test"))
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	c.observe = func(string, string, time.Duration) {}
	return c
}

func TestClientGenerateSuccess(t *testing.T) {
	srv, reqs := fakeGemini(t, http.StatusOK,
		`{"candidates":[{"content":{"parts":[{"text":"Hello there"}],"role":"model"}}]}`)
	c := newTestClient(t, srv.URL)

	var observed []string
	c.observe = func(model, outcome string, _ time.Duration) {
		if model != "gemini-test" {
			t.Errorf("unexpected model label %q", model)
		}
		observed = append(observed, outcome)
	}

	gen, err := c.Generate(context.Background(), []string{"hi"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gen.Text != "Hello there" {
		t.Errorf("expected text %q, got %q", "Hello there", gen.Text)
	}
	if gen.Model != "gemini-test" {
		t.Errorf("expected model gemini-test, got %q", gen.Model)
	}
	if len(observed) != 1 || observed[0] != metrics.OutcomeSuccess {
		t.Errorf("expected one success observation, got %v", observed)
	}

	if len(*reqs) != 1 {
		t.Fatalf("expected 1 upstream request, got %d", len(*reqs))
	}
	got := (*reqs)[0]
	if !strings.HasSuffix(got.path, "/models/gemini-test:generateContent") {
		t.Errorf("unexpected upstream path %q", got.path)
	}
	if got.apiKey != "test-key" {
		t.Errorf("expected api key header, got %q", got.apiKey)
	}
	if !strings.Contains(mustJSON(t, got.body), `"text":"hi"`) {
		t.Errorf("expected request body to carry the message, got %v", got.body)
	}
}

func TestClientGenerateUpstreamError(t *testing.T) {
	srv, _ := fakeGemini(t, http.StatusForbidden,
		`{"error":{"code":403,"message":"quota exceeded","status":"PERMISSION_DENIED"}}`)
	c := newTestClient(t, srv.URL)

	var observed []string
	c.observe = func(_, outcome string, _ time.Duration) {
		observed = append(observed, outcome)
	}

	_, err := c.Generate(context.Background(), []string{"hi"})
	var upErr *UpstreamError
	if !errors.As(err, &upErr) {
		t.Fatalf("expected *UpstreamError, got %T: %v", err, err)
	}
	if upErr.Message != "quota exceeded" {
		t.Errorf("expected message %q, got %q", "quota exceeded", upErr.Message)
	}
	if upErr.Code != http.StatusForbidden {
		t.Errorf("expected code 403, got %d", upErr.Code)
	}
	if upErr.Status != "PERMISSION_DENIED" {
		t.Errorf("expected status PERMISSION_DENIED, got %q", upErr.Status)
	}
	if !errors.Is(err, ErrUpstream) {
		t.Error("expected errors.Is(err, ErrUpstream)")
	}
	if len(observed) != 1 || observed[0] != metrics.OutcomeUpstreamError {
		t.Errorf("expected one upstream_error observation, got %v", observed)
	}
}

func TestClientGenerateTransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := newTestClient(t, url)
	var observed []string
	c.observe = func(_, outcome string, _ time.Duration) {
		observed = append(observed, outcome)
	}
	_, err := c.Generate(context.Background(), []string{"hi"})
	if err == nil {
		t.Fatal("expected error from closed server")
	}
	var upErr *UpstreamError
	if errors.As(err, &upErr) {
		t.Fatalf("transport failure must not be an upstream error: %v", err)
	}
	if !strings.HasPrefix(err.Error(), "calling gemini: ") {
		t.Errorf("expected wrapped error, got %q", err.Error())
	}
	if len(observed) != 1 || observed[0] != metrics.OutcomeError {
		t.Errorf("expected one error observation, got %v", observed)
	}
}

func TestClientGenerateNoContents(t *testing.T) {
	srv, reqs := fakeGemini(t, http.StatusOK, `{}`)
	c := newTestClient(t, srv.URL)

	if _, err := c.Generate(context.Background(), nil); !errors.Is(err, ErrNoContents) {
		t.Fatalf("expected ErrNoContents, got %v", err)
	}
	if len(*reqs) != 0 {
		t.Fatal("expected no upstream request")
	}
}

func TestNewClientRequiresAPIKey(t *testing.T) {
	c, err := NewClient(context.Background(), "")
	if !errors.Is(err, ErrMissingAPIKey) {
		t.Fatalf("expected ErrMissingAPIKey, got %v", err)
	}
	if c != nil {
		t.Fatal("expected nil client")
	}
}

func TestNewClientDefaultModel(t *testing.T) {
	c, err := NewClient(context.Background(), "k", WithModel(""), WithHTTPClient(http.DefaultClient))
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	if c.Model() != DefaultModel {
		t.Fatalf("expected default model %q, got %q", DefaultModel, c.Model())
	}
}

func mustJSON(t *testing.T, v any) string {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return string(b)
}
