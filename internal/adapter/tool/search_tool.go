package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/kaptinlin/jsonschema"
	"go.opentelemetry.io/otel/trace"

	"searchforge/internal/domain"
	"searchforge/internal/infra/tracer"
)

// SearchToolName is the tool name exposed to agents and MCP clients.
const SearchToolName = "tavily_search"

const searchToolParameters = `{
	"type": "object",
	"properties": {
		"queries": {
			"type": "array",
			"minItems": 1,
			"items": {"type": "string", "minLength": 1},
			"description": "Search queries; results are returned in query order"
		},
		"max_results": {
			"type": "integer",
			"minimum": 1,
			"description": "Cap on the combined number of results (default: configured cap)"
		}
	},
	"required": ["queries"]
}`

const searchToolOutput = `{
	"type": "object",
	"properties": {
		"results": {
			"type": "array",
			"items": {
				"type": "object",
				"properties": {
					"title": {"type": "string", "minLength": 1},
					"url": {"type": "string", "minLength": 1},
					"content": {"type": "string", "minLength": 1},
					"query": {"type": "string", "minLength": 1},
					"score": {"type": "number"},
					"raw_content": {"type": "string"}
				},
				"required": ["title", "url", "content", "query"]
			}
		}
	},
	"required": ["results"]
}`

// SearchTool exposes a SearchAdapter as an agent tool.
type SearchTool struct {
	adapter *SearchAdapter
	output  *jsonschema.Schema
	logger  *slog.Logger
}

// NewSearchTool creates the tavily_search tool.
func NewSearchTool(adapter *SearchAdapter, logger *slog.Logger) (*SearchTool, error) {
	compiled, err := jsonschema.NewCompiler().Compile([]byte(searchToolOutput))
	if err != nil {
		return nil, fmt.Errorf("compile output schema: %w", err)
	}
	return &SearchTool{adapter: adapter, output: compiled, logger: loggerOrDiscard(logger)}, nil
}

func (t *SearchTool) Name() string { return SearchToolName }
func (t *SearchTool) Description() string {
	return "Search the web for one or more queries and return title, url, content and query for each hit"
}

func (t *SearchTool) Schema() domain.ToolSchema {
	return domain.ToolSchema{
		Name:        t.Name(),
		Description: t.Description(),
		Parameters:  json.RawMessage(searchToolParameters),
	}
}

// OutputSchema describes the JSON document returned on success.
func (t *SearchTool) OutputSchema() json.RawMessage { return json.RawMessage(searchToolOutput) }

type searchToolParams struct {
	Queries    []string `json:"queries"`
	MaxResults int      `json:"max_results,omitempty"`
}

func (t *SearchTool) Execute(ctx context.Context, params json.RawMessage) (*domain.ToolResult, error) {
	return Execute(ctx, "tool."+SearchToolName, t.logger, params,
		func(ctx context.Context, span trace.Span, p searchToolParams) (any, error) {
			var opts []SearchOption
			if p.MaxResults != 0 {
				opts = append(opts, WithMaxResults(p.MaxResults))
			}

			res, err := t.adapter.Search(ctx, p.Queries, opts...)
			if err != nil {
				return nil, err
			}
			if err := t.checkOutput(res); err != nil {
				return nil, err
			}
			span.SetAttributes(tracer.IntAttr("search.results", len(res.Results)))
			return res, nil
		})
}

// checkOutput validates res against the declared output schema.
func (t *SearchTool) checkOutput(res *SearchResults) error {
	data, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("marshal results: %w", err)
	}
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("unmarshal results: %w", err)
	}
	result := t.output.Validate(doc)
	if !result.IsValid() {
		return fmt.Errorf("output schema violation: %s", result.Error())
	}
	return nil
}

var (
	_ domain.Tool                 = (*SearchTool)(nil)
	_ domain.OutputSchemaProvider = (*SearchTool)(nil)
)
