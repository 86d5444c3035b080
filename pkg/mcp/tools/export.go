package tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/semlens-inc/semlens-engine/pkg/export"
)

// ExportToolDeps contains dependencies for the export tool.
type ExportToolDeps struct {
	Builder        *export.Builder
	DefaultOptions export.Options
	Logger         *zap.Logger
}

// RegisterExportTools registers the package export tool.
func RegisterExportTools(s *server.MCPServer, deps *ExportToolDeps) {
	registerExportPackageTool(s, deps)
}

func registerExportPackageTool(s *server.MCPServer, deps *ExportToolDeps) {
	tool := mcp.NewTool(
		"export_package",
		mcp.WithDescription(
			"Export the source model into a new immutable package: definitions tree, "+
				"catalog/metadata/dependency analysis files, and compressed sample rows. "+
				"Returns the new package id and summary counts. Existing packages are untouched.",
		),
		mcp.WithBoolean("include_sample_rows",
			mcp.Description("Sample rows per table into the package (default: true)"),
		),
		mcp.WithNumber("sample_row_count",
			mcp.Description("Rows to sample per table (default 1000)"),
		),
		mcp.WithReadOnlyHintAnnotation(false),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(false),
		mcp.WithOpenWorldHintAnnotation(true),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		opts := deps.DefaultOptions
		if v, ok := getOptionalBool(req, "include_sample_rows"); ok {
			opts.IncludeSampleRows = v
		}
		if v, ok := getOptionalInt(req, "sample_row_count"); ok && v > 0 {
			opts.SampleRowCount = v
		}

		meta, err := deps.Builder.BuildPackage(ctx, opts)
		if err != nil {
			deps.Logger.Error("export failed", zap.Error(err))
			return nil, fmt.Errorf("export failed: %w", err)
		}

		return envelopeResult(struct {
			Success bool `json:"success"`
			Data    any  `json:"data"`
		}{Success: true, Data: meta}, true), nil
	})
}
