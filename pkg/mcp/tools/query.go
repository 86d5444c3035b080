package tools

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/semlens-inc/semlens-engine/pkg/models"
	"github.com/semlens-inc/semlens-engine/pkg/query"
)

// QueryToolDeps contains dependencies for the package query tools.
type QueryToolDeps struct {
	Engine *query.Engine
	Logger *zap.Logger
}

// RegisterQueryTools registers the read-side tools: metadata, search,
// definitions, dependency traversal, derived analysis, and sample rows.
func RegisterQueryTools(s *server.MCPServer, deps *QueryToolDeps) {
	registerReadMetadataTool(s, deps)
	registerFindObjectsTool(s, deps)
	registerGetObjectDefinitionTool(s, deps)
	registerAnalyzeDependenciesTool(s, deps)
	registerAnalyzeTool(s, deps)
	registerGetSampleRowsTool(s, deps)
}

// envelopeResult marshals a typed result and flags the MCP result as an
// error when the envelope reports failure.
func envelopeResult(v any, success bool) *mcp.CallToolResult {
	jsonResult, _ := json.Marshal(v)
	result := mcp.NewToolResultText(string(jsonResult))
	result.IsError = !success
	return result
}

func requestedEncoding(req mcp.CallToolRequest) models.Encoding {
	if enc, ok := getOptionalString(req, "encoding"); ok && models.Encoding(enc) == models.EncodingCompact {
		return models.EncodingCompact
	}
	return models.EncodingVerbose
}

func registerReadMetadataTool(s *server.MCPServer, deps *QueryToolDeps) {
	tool := mcp.NewTool(
		"read_metadata",
		mcp.WithDescription(
			"Get the summary of an exported semantic-model package: object counts by type, "+
				"dependency edge count, detected cycles and orphans, and per-table sample outcomes. "+
				"Call this first to understand the model's size before drilling in.",
		),
		mcp.WithString("package_id",
			mcp.Description("Package to read (default: the latest exported package)"),
		),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(false),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		packageID, _ := getOptionalString(req, "package_id")
		result := deps.Engine.ReadMetadata(packageID)
		return envelopeResult(result, result.Success), nil
	})
}

func registerFindObjectsTool(s *server.MCPServer, deps *QueryToolDeps) {
	tool := mcp.NewTool(
		"find_objects",
		mcp.WithDescription(
			"Search the package catalog for objects of one type with optional filter predicates. "+
				"Results are paged deterministically: the same filters and batch_number always return "+
				"the same page for a given package. Use batch_number to walk large result sets. "+
				"Set encoding=compact for a columnar shape that roughly halves the token cost of long lists.",
		),
		mcp.WithString("type",
			mcp.Description("Object type: table, column, metric, relationship, or role. Empty matches all types."),
		),
		mcp.WithObject("filters",
			mcp.Description("Filter predicates: name_contains (string), table (string), hidden (bool), unused (bool), min_complexity (number)"),
		),
		mcp.WithNumber("batch_size", mcp.Description("Page size (default 50)")),
		mcp.WithNumber("batch_number", mcp.Description("1-indexed page number (default 1)")),
		mcp.WithString("encoding", mcp.Description("verbose (default) or compact")),
		mcp.WithString("package_id", mcp.Description("Package to query (default: latest)")),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(false),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		packageID, _ := getOptionalString(req, "package_id")
		objType, _ := getOptionalString(req, "type")
		filters, _ := getOptionalObject(req, "filters")

		batchSize := 50
		if v, ok := getOptionalInt(req, "batch_size"); ok {
			batchSize = v
		}
		batchNumber := 1
		if v, ok := getOptionalInt(req, "batch_number"); ok {
			batchNumber = v
		}

		result := deps.Engine.FindObjects(packageID, objType, filters, batchSize, batchNumber, requestedEncoding(req))
		return envelopeResult(result, result.Success), nil
	})
}

func registerGetObjectDefinitionTool(s *server.MCPServer, deps *QueryToolDeps) {
	tool := mcp.NewTool(
		"get_object_definition",
		mcp.WithDescription(
			"Get one object's raw definition body plus its immediate dependency neighborhood: "+
				"what it depends on and what depends on it. Column names may be table-qualified "+
				"(\"Sales.Amount\").",
		),
		mcp.WithString("name", mcp.Required(), mcp.Description("Object name or id")),
		mcp.WithString("type", mcp.Description("Narrow the lookup to one object type")),
		mcp.WithString("package_id", mcp.Description("Package to query (default: latest)")),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(false),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		name, ok := getOptionalString(req, "name")
		if !ok || name == "" {
			return NewErrorResult("invalid_request", "name parameter is required", "pass the object name"), nil
		}
		packageID, _ := getOptionalString(req, "package_id")
		objType, _ := getOptionalString(req, "type")

		result := deps.Engine.GetObjectDefinition(packageID, objType, name)
		return envelopeResult(result, result.Success), nil
	})
}

func registerAnalyzeDependenciesTool(s *server.MCPServer, deps *QueryToolDeps) {
	tool := mcp.NewTool(
		"analyze_dependencies",
		mcp.WithDescription(
			"Walk the dependency graph from one object and return everything reachable, with the "+
				"traversal depth. direction=forward lists what the object depends on (transitively); "+
				"direction=reverse lists everything that depends on it.",
		),
		mcp.WithString("name", mcp.Required(), mcp.Description("Root object name or id")),
		mcp.WithString("direction", mcp.Description("forward (default) or reverse")),
		mcp.WithString("package_id", mcp.Description("Package to query (default: latest)")),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(false),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		name, ok := getOptionalString(req, "name")
		if !ok || name == "" {
			return NewErrorResult("invalid_request", "name parameter is required", "pass the object name"), nil
		}
		direction, ok := getOptionalString(req, "direction")
		if !ok || direction == "" {
			direction = "forward"
		}
		packageID, _ := getOptionalString(req, "package_id")

		result := deps.Engine.AnalyzeDependencies(packageID, name, direction)
		return envelopeResult(result, result.Success), nil
	})
}

func registerAnalyzeTool(s *server.MCPServer, deps *QueryToolDeps) {
	tool := mcp.NewTool(
		"analyze",
		mcp.WithDescription(
			"Run derived-analysis scans over the package: unused_columns, unused_metrics, cycles, "+
				"complexity, wide_tables (default: all). Findings are paged deterministically; repeated "+
				"calls within the analysis cache window return the cached page.",
		),
		mcp.WithArray("focus_areas",
			mcp.Description("Scans to run"),
			mcp.WithStringItems(),
		),
		mcp.WithNumber("batch_size", mcp.Description("Page size (default 50)")),
		mcp.WithNumber("batch_number", mcp.Description("1-indexed page number (default 1)")),
		mcp.WithString("priority_filter", mcp.Description("Only findings of this severity (info or warn)")),
		mcp.WithString("package_id", mcp.Description("Package to query (default: latest)")),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(false),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		packageID, _ := getOptionalString(req, "package_id")
		focusAreas, _ := getOptionalStringSlice(req, "focus_areas")
		priorityFilter, _ := getOptionalString(req, "priority_filter")

		batch := query.BatchConfig{}
		if v, ok := getOptionalInt(req, "batch_size"); ok {
			batch.BatchSize = v
		}
		if v, ok := getOptionalInt(req, "batch_number"); ok {
			batch.BatchNumber = v
		}

		result := deps.Engine.Analyze(packageID, focusAreas, batch, priorityFilter)
		return envelopeResult(result, result.Success), nil
	})
}

func registerGetSampleRowsTool(s *server.MCPServer, deps *QueryToolDeps) {
	tool := mcp.NewTool(
		"get_sample_rows",
		mcp.WithDescription(
			"Get sampled rows for one table from the package's sample store. Rows were captured at "+
				"export time; use them to understand value shapes, not current data.",
		),
		mcp.WithString("table_name", mcp.Required(), mcp.Description("Table to sample")),
		mcp.WithNumber("max_rows", mcp.Description("Row cap (default 20)")),
		mcp.WithString("encoding", mcp.Description("verbose (default) or compact")),
		mcp.WithString("package_id", mcp.Description("Package to query (default: latest)")),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(false),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		tableName, ok := getOptionalString(req, "table_name")
		if !ok || tableName == "" {
			return NewErrorResult("invalid_request", "table_name parameter is required", "pass the table name"), nil
		}
		packageID, _ := getOptionalString(req, "package_id")
		maxRows := 20
		if v, ok := getOptionalInt(req, "max_rows"); ok {
			maxRows = v
		}

		result := deps.Engine.GetSampleRows(packageID, tableName, maxRows, requestedEncoding(req))
		return envelopeResult(result, result.Success), nil
	})
}
