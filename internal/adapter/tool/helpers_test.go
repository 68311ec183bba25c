package tool

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

// jsonResponse builds a response the way net/http would for status.
func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Status:     strconv.Itoa(status) + " " + http.StatusText(status),
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     http.Header{"Content-Type": []string{"application/json"}},
	}
}

func strPtr(s string) *string { return &s }

// fullResult returns a RawResult with every required field set.
func fullResult(title, url, content, query string) RawResult {
	return RawResult{Title: &title, URL: &url, Content: &content, Query: &query}
}

// fakeBackend serves canned results per query and records requests.
type fakeBackend struct {
	name    string
	results map[string][]RawResult
	errs    map[string]error
	fetch   func(ctx context.Context, req FetchRequest) ([]RawResult, error)

	mu       sync.Mutex
	requests []FetchRequest
}

func (f *fakeBackend) Name() string {
	if f.name == "" {
		return "fake"
	}
	return f.name
}

func (f *fakeBackend) Fetch(ctx context.Context, req FetchRequest) ([]RawResult, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()

	if f.fetch != nil {
		return f.fetch(ctx, req)
	}
	if err := f.errs[req.Query]; err != nil {
		return nil, err
	}
	return f.results[req.Query], nil
}

func (f *fakeBackend) calls() []FetchRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]FetchRequest(nil), f.requests...)
}
