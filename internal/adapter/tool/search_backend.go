package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// SearchBackend abstracts the single network call behind a search: one query
// in, the endpoint's unvalidated result items out.
type SearchBackend interface {
	// Fetch issues one request for req.Query and returns the raw items in
	// endpoint order.
	Fetch(ctx context.Context, req FetchRequest) ([]RawResult, error)
	// Name returns the backend identifier (e.g. "tavily").
	Name() string
}

// FetchRequest is one per-query request issued by the SearchAdapter.
type FetchRequest struct {
	Query string
	// MaxResults is a hint passed to the endpoint; 0 means no hint.
	MaxResults int
}

// RawResult is one unvalidated result item as returned by the endpoint.
// Every field is optional.
type RawResult struct {
	Title      *string  `json:"title,omitempty"`
	URL        *string  `json:"url,omitempty"`
	Content    *string  `json:"content,omitempty"`
	Query      *string  `json:"query,omitempty"`
	Score      *float64 `json:"score,omitempty"`
	RawContent *string  `json:"raw_content,omitempty"`
}

// SearchResult is a RawResult with every required field present.
type SearchResult struct {
	Title      string  `json:"title"`
	URL        string  `json:"url"`
	Content    string  `json:"content"`
	Query      string  `json:"query"`
	Score      float64 `json:"score,omitempty"`
	RawContent string  `json:"raw_content,omitempty"`
}

// SearchResults is the ordered, capped output of one search call.
type SearchResults struct {
	Results []SearchResult `json:"results"`
}

// tryValidate converts raw into a SearchResult when title, url, content and
// query are all present and non-blank.
func tryValidate(raw RawResult) (SearchResult, bool) {
	title, ok1 := requiredString(raw.Title)
	url, ok2 := requiredString(raw.URL)
	content, ok3 := requiredString(raw.Content)
	query, ok4 := requiredString(raw.Query)
	if !ok1 || !ok2 || !ok3 || !ok4 {
		return SearchResult{}, false
	}

	r := SearchResult{Title: title, URL: url, Content: content, Query: query}
	if raw.Score != nil {
		r.Score = *raw.Score
	}
	if raw.RawContent != nil {
		r.RawContent = *raw.RawContent
	}
	return r, true
}

func requiredString(p *string) (string, bool) {
	if p == nil || strings.TrimSpace(*p) == "" {
		return "", false
	}
	return *p, true
}

// collectResults validates every item, concatenates survivors in query order
// and truncates to limit (0 = no limit). It reports how many items failed
// validation.
func collectResults(perQuery [][]RawResult, limit int) ([]SearchResult, int) {
	results := make([]SearchResult, 0)
	dropped := 0
	for _, items := range perQuery {
		for _, raw := range items {
			r, ok := tryValidate(raw)
			if !ok {
				dropped++
				continue
			}
			results = append(results, r)
		}
	}
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results, dropped
}

// decodeRawResults parses a {"results": [...]} body. Each field of an item is
// decoded on its own, so a field of the wrong type reads as absent without
// affecting its siblings; an item that is not an object reads as empty. A
// missing or null "results" key is an empty list; any other non-array value
// is a parse error.
func decodeRawResults(body []byte) ([]RawResult, error) {
	var envelope struct {
		Results []json.RawMessage `json:"results"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}

	items := make([]RawResult, len(envelope.Results))
	for i, msg := range envelope.Results {
		items[i] = decodeRawResult(msg)
	}
	return items, nil
}

func decodeRawResult(msg json.RawMessage) RawResult {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(msg, &fields); err != nil {
		return RawResult{}
	}
	return RawResult{
		Title:      decodeField[string](fields, "title"),
		URL:        decodeField[string](fields, "url"),
		Content:    decodeField[string](fields, "content"),
		Query:      decodeField[string](fields, "query"),
		Score:      decodeField[float64](fields, "score"),
		RawContent: decodeField[string](fields, "raw_content"),
	}
}

// decodeField returns nil when key is absent, null or not a T.
func decodeField[T any](fields map[string]json.RawMessage, key string) *T {
	raw, ok := fields[key]
	if !ok {
		return nil
	}
	var v *T
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil
	}
	return v
}
