package tool

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearXNGBackendName(t *testing.T) {
	b := NewSearXNGBackend("http://localhost:8080/", 0, newTestLogger())
	assert.Equal(t, "searxng", b.Name())
	assert.Equal(t, "http://localhost:8080", b.instanceURL)
	assert.Equal(t, defaultSearchTimeout, b.client.Timeout)

	b = NewSearXNGBackend("http://localhost:8080", 3*time.Second, newTestLogger())
	assert.Equal(t, 3*time.Second, b.client.Timeout)
}

func TestSearXNGBackendSuccess(t *testing.T) {
	b := NewSearXNGBackend("http://localhost:8080", 0, newTestLogger())
	b.client = &http.Client{Transport: roundTripFunc(func(req *http.Request) (*http.Response, error) {
		assert.Equal(t, "application/json", req.Header.Get("Accept"))
		assert.Equal(t, "golang testing", req.URL.Query().Get("q"))
		assert.Equal(t, "json", req.URL.Query().Get("format"))
		return jsonResponse(http.StatusOK, `{"results":[
			{"title":"Go Testing","url":"https://go.dev/testing","content":"Testing in Go","score":1.5},
			{"title":"No content","url":"https://example.com"},
			{"title":"Third","url":"https://third","content":"c"}
		]}`), nil
	})}

	items, err := b.Fetch(context.Background(), FetchRequest{Query: "golang testing", MaxResults: 1})
	require.NoError(t, err)
	require.Len(t, items, 3, "items are returned unfiltered and uncut")

	got, dropped := collectResults([][]RawResult{items}, 0)
	assert.Equal(t, 1, dropped)
	require.Len(t, got, 2)
	assert.Equal(t, SearchResult{
		Title: "Go Testing", URL: "https://go.dev/testing", Content: "Testing in Go",
		Query: "golang testing", Score: 1.5,
	}, got[0])
	assert.Equal(t, "Third", got[1].Title)
}

func TestSearXNGBackendMalformedItem(t *testing.T) {
	b := NewSearXNGBackend("http://localhost:8080", 0, newTestLogger())
	b.client = &http.Client{Transport: roundTripFunc(func(*http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusOK, `{"results":[
			{"title":7,"url":"https://bad","content":"c"},
			"not an object",
			{"title":"ok","url":"https://ok","content":"c","score":"high"}
		]}`), nil
	})}

	items, err := b.Fetch(context.Background(), FetchRequest{Query: "q"})
	require.NoError(t, err)
	require.Len(t, items, 3)

	got, dropped := collectResults([][]RawResult{items}, 0)
	assert.Equal(t, 2, dropped)
	require.Len(t, got, 1)
	assert.Equal(t, SearchResult{Title: "ok", URL: "https://ok", Content: "c", Query: "q"}, got[0])
}

// A malformed leading item must not take one of the capped slots.
func TestSearXNGSearch_CapAppliesAfterFiltering(t *testing.T) {
	b := NewSearXNGBackend("http://localhost:8080", 0, newTestLogger())
	b.client = &http.Client{Transport: roundTripFunc(func(*http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusOK, `{"results":[
			{"title":"bad","url":"https://bad"},
			{"title":"v1","url":"https://v1","content":"c"},
			{"title":"v2","url":"https://v2","content":"c"},
			{"title":"v3","url":"https://v3","content":"c"},
			{"title":"v4","url":"https://v4","content":"c"}
		]}`), nil
	})}
	adapter := NewSearchAdapter(b, 10, nil, newTestLogger())

	res, err := adapter.Search(context.Background(), []string{"q"}, WithMaxResults(3))
	require.NoError(t, err)
	assert.Equal(t, []string{"v1", "v2", "v3"}, titles(res.Results))
}

func TestSearXNGBackendHTTPError(t *testing.T) {
	b := NewSearXNGBackend("http://localhost:8080", 0, newTestLogger())
	b.client = &http.Client{Transport: roundTripFunc(func(*http.Request) (*http.Response, error) {
		return nil, fmt.Errorf("connection refused")
	})}

	_, err := b.Fetch(context.Background(), FetchRequest{Query: "test"})
	assert.ErrorContains(t, err, "search request")
}

func TestSearXNGBackendNon200Status(t *testing.T) {
	b := NewSearXNGBackend("http://localhost:8080", 0, newTestLogger())
	b.client = &http.Client{Transport: roundTripFunc(func(*http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusServiceUnavailable, ``), nil
	})}

	_, err := b.Fetch(context.Background(), FetchRequest{Query: "test"})
	var re *RetrievalError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, "searxng", re.Backend)
	assert.Equal(t, http.StatusServiceUnavailable, re.StatusCode)
	assert.Equal(t, "Service Unavailable", re.Reason)
}

func TestSearXNGBackendInvalidJSON(t *testing.T) {
	b := NewSearXNGBackend("http://localhost:8080", 0, newTestLogger())
	b.client = &http.Client{Transport: roundTripFunc(func(*http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusOK, `<html>`), nil
	})}

	_, err := b.Fetch(context.Background(), FetchRequest{Query: "test"})
	assert.ErrorContains(t, err, "parse response")
}
